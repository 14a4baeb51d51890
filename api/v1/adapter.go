package v1

import (
	"errors"
	"fmt"
	"time"

	"github.com/brunoga/deep/v4"
)

// WireTimeLayout is how timestamps travel on the wire: RFC 3339 with
// millisecond precision, UTC.
const WireTimeLayout = "2006-01-02T15:04:05.000Z07:00"

// ErrMalformedDate indicates a wire timestamp that could not be parsed.
var ErrMalformedDate = errors.New("malformed date")

// ToServerPolicy converts a structured policy into the wire request
// shape: isEnabled becomes is_enabled, actions collapse into the
// encoded string, and mtime is included only when set — the server must
// never receive an empty date for an unset field.
func ToServerPolicy(policy Policy) (ServerPolicyRequest, error) {
	encoded, err := EncodeActions(policy.Actions)
	if err != nil {
		return ServerPolicyRequest{}, err
	}

	request := ServerPolicyRequest{
		Name:        policy.Name,
		Description: policy.Description,
		Conditions:  policy.Conditions,
		IsEnabled:   policy.IsEnabled,
		Actions:     encoded,
	}
	if policy.Mtime != nil {
		request.Mtime = formatWireTime(*policy.Mtime)
	}
	return request, nil
}

// ToPolicy converts a wire response into the structured policy model,
// parsing timestamps and the encoded actions string. Element order in
// the actions string is preserved, so decode is the inverse of
// ToServerPolicy over the actions sequence.
func ToPolicy(response ServerPolicyResponse) (Policy, error) {
	actions, err := DecodeActions(response.Actions)
	if err != nil {
		return Policy{}, err
	}

	policy := Policy{
		ID:          response.ID,
		Name:        response.Name,
		Description: response.Description,
		Conditions:  response.Conditions,
		IsEnabled:   response.IsEnabled,
		Actions:     actions,
	}

	if policy.Ctime, err = parseWireTime(response.Ctime); err != nil {
		return Policy{}, err
	}
	if policy.Mtime, err = parseWireTime(response.Mtime); err != nil {
		return Policy{}, err
	}
	if policy.LastEvaluation, err = parseWireTime(response.LastEvaluation); err != nil {
		return Policy{}, err
	}
	return policy, nil
}

// ToPolicies decodes a paged response, preserving order.
func ToPolicies(paged PagedPolicyResponse) ([]Policy, error) {
	policies := make([]Policy, 0, len(paged.Data))
	for _, response := range paged.Data {
		policy, err := ToPolicy(response)
		if err != nil {
			return nil, err
		}
		policies = append(policies, policy)
	}
	return policies, nil
}

// CopyOf derives a fresh, unsaved policy from an existing one. The name
// is prefixed with "Copy of " and every server-assigned field is
// cleared so submission creates a new entity.
func CopyOf(policy Policy) Policy {
	copied := deep.MustCopy(policy)
	copied.Name = "Copy of " + policy.Name
	copied.ID = nil
	copied.Ctime = nil
	copied.Mtime = nil
	copied.LastEvaluation = nil
	return copied
}

func formatWireTime(t time.Time) *string {
	formatted := t.UTC().Format(WireTimeLayout)
	return &formatted
}

func parseWireTime(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339Nano, *s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrMalformedDate, *s)
	}
	return &parsed, nil
}
