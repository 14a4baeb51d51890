package store

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/custom-policies/policy-console/internal/store/model"
)

// TriggerListResult contains one page of trigger history plus the total
// count for the policy.
type TriggerListResult struct {
	Triggers model.TriggerList
	Total    int64
}

type Trigger interface {
	Record(ctx context.Context, trigger model.Trigger) (*model.Trigger, error)
	ListByPolicy(ctx context.Context, policyID string, offset, limit int) (*TriggerListResult, error)
	DeleteByPolicy(ctx context.Context, policyIDs []string) error
}

type TriggerStore struct {
	db *gorm.DB
}

var _ Trigger = (*TriggerStore)(nil)

func NewTrigger(db *gorm.DB) Trigger {
	return &TriggerStore{db: db}
}

func (s *TriggerStore) Record(ctx context.Context, trigger model.Trigger) (*model.Trigger, error) {
	if err := s.db.WithContext(ctx).Clauses(clause.Returning{}).Select("*").Create(&trigger).Error; err != nil {
		return nil, err
	}
	return &trigger, nil
}

func (s *TriggerStore) ListByPolicy(ctx context.Context, policyID string, offset, limit int) (*TriggerListResult, error) {
	query := s.db.WithContext(ctx).Model(&model.Trigger{}).Where("policy_id = ?", policyID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = 50
	}
	var triggers model.TriggerList
	err := query.Order("ctime DESC, id ASC").Limit(limit).Offset(offset).Find(&triggers).Error
	if err != nil {
		return nil, err
	}

	return &TriggerListResult{Triggers: triggers, Total: total}, nil
}

// DeleteByPolicy removes trigger history for deleted policies.
func (s *TriggerStore) DeleteByPolicy(ctx context.Context, policyIDs []string) error {
	if len(policyIDs) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Where("policy_id IN ?", policyIDs).Delete(&model.Trigger{}).Error
}
