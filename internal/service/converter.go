package service

import (
	"time"

	"github.com/google/uuid"

	v1 "github.com/custom-policies/policy-console/api/v1"
	"github.com/custom-policies/policy-console/internal/store/model"
)

// APIToDBModel converts a structured policy to its database row. The
// actions sequence is stored in its wire-encoded string form, so list
// responses can hand the column straight back without re-encoding.
func APIToDBModel(policy v1.Policy, id, accountID string) (model.Policy, error) {
	encoded, err := v1.EncodeActions(policy.Actions)
	if err != nil {
		return model.Policy{}, err
	}

	return model.Policy{
		ID:          id,
		AccountID:   accountID,
		Name:        policy.Name,
		Description: policy.Description,
		Conditions:  policy.Conditions,
		IsEnabled:   policy.IsEnabled,
		Actions:     encoded,
	}, nil
}

// DBToWireResponse converts a database row to the wire response shape.
func DBToWireResponse(db *model.Policy) v1.ServerPolicyResponse {
	id, _ := uuid.Parse(db.ID)
	response := v1.ServerPolicyResponse{
		ID:          &id,
		Name:        db.Name,
		Description: db.Description,
		Conditions:  db.Conditions,
		IsEnabled:   db.IsEnabled,
		Actions:     db.Actions,
		Ctime:       wireTime(db.Ctime),
		Mtime:       wireTime(db.Mtime),
	}
	if db.LastEvaluation != nil {
		response.LastEvaluation = wireTime(*db.LastEvaluation)
	}
	return response
}

// DBToTrigger converts a trigger row to its API shape.
func DBToTrigger(db *model.Trigger) v1.Trigger {
	id, _ := uuid.Parse(db.ID)
	ctime := db.Ctime
	return v1.Trigger{
		ID:       &id,
		HostID:   db.HostID,
		HostName: db.HostName,
		Ctime:    &ctime,
	}
}

func modelTrigger(policyID, hostID, hostName string) model.Trigger {
	return model.Trigger{
		ID:       uuid.New().String(),
		PolicyID: policyID,
		HostID:   hostID,
		HostName: hostName,
	}
}

func wireTime(t time.Time) *string {
	formatted := t.UTC().Format(v1.WireTimeLayout)
	return &formatted
}
