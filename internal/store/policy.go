package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/custom-policies/policy-console/internal/store/model"
)

var (
	ErrPolicyNotFound  = errors.New("policy not found")
	ErrPolicyNameTaken = errors.New("policy name already taken for this account")
)

// FilterClause is one column/operator/value predicate. Columns are
// whitelisted by the caller before they reach the store.
type FilterClause struct {
	Column   string
	Operator string
	Value    string
}

// PolicyListOptions contains options for listing policies.
type PolicyListOptions struct {
	Filters    []FilterClause
	OrderBy    string
	Descending bool
	Offset     int
	Limit      int
}

// PolicyListResult contains one page of policies plus the total row
// count for the query without paging applied.
type PolicyListResult struct {
	Policies model.PolicyList
	Total    int64
}

type Policy interface {
	List(ctx context.Context, accountID string, opts *PolicyListOptions) (*PolicyListResult, error)
	Get(ctx context.Context, accountID, id string) (*model.Policy, error)
	Create(ctx context.Context, policy model.Policy) (*model.Policy, error)
	Update(ctx context.Context, policy model.Policy) (*model.Policy, error)
	DeleteMany(ctx context.Context, accountID string, ids []string) ([]string, error)
	SetEnabled(ctx context.Context, accountID string, ids []string, enabled bool) error
	SetLastEvaluation(ctx context.Context, accountID, id string, at time.Time) error
	NameExists(ctx context.Context, accountID, name, excludeID string) (bool, error)
}

type PolicyStore struct {
	db *gorm.DB
}

var _ Policy = (*PolicyStore)(nil)

func NewPolicy(db *gorm.DB) Policy {
	return &PolicyStore{db: db}
}

func (s *PolicyStore) List(ctx context.Context, accountID string, opts *PolicyListOptions) (*PolicyListResult, error) {
	query := s.db.WithContext(ctx).Model(&model.Policy{}).Where("account_id = ?", accountID)

	if opts != nil {
		for _, filter := range opts.Filters {
			var err error
			query, err = applyFilter(query, filter)
			if err != nil {
				return nil, err
			}
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	// Ordering and paging apply after the count.
	orderBy := "name"
	descending := false
	limit := 50
	offset := 0
	if opts != nil {
		if opts.OrderBy != "" {
			orderBy = opts.OrderBy
		}
		descending = opts.Descending
		if opts.Limit > 0 {
			limit = opts.Limit
		}
		if opts.Offset > 0 {
			offset = opts.Offset
		}
	}
	direction := "ASC"
	if descending {
		direction = "DESC"
	}
	query = query.Order(fmt.Sprintf("%s %s, id ASC", orderBy, direction)).
		Limit(limit).Offset(offset)

	var policies model.PolicyList
	if err := query.Find(&policies).Error; err != nil {
		return nil, err
	}

	return &PolicyListResult{Policies: policies, Total: total}, nil
}

func applyFilter(query *gorm.DB, filter FilterClause) (*gorm.DB, error) {
	switch filter.Operator {
	case "equal", "":
		return query.Where(filter.Column+" = ?", filter.Value), nil
	case "not_equal":
		return query.Where(filter.Column+" <> ?", filter.Value), nil
	case "like":
		return query.Where(filter.Column+" LIKE ?", "%"+filter.Value+"%"), nil
	case "ilike":
		return query.Where("LOWER("+filter.Column+") LIKE LOWER(?)", "%"+filter.Value+"%"), nil
	case "boolean_is":
		return query.Where(filter.Column+" = ?", filter.Value == "true"), nil
	}
	return nil, fmt.Errorf("unsupported filter operator %q", filter.Operator)
}

// mapUniqueConstraintError maps a DB unique constraint violation to the
// store sentinel. The only unique constraint besides the primary key is
// (account_id, name); IDs are server-generated UUIDs and do not collide.
func mapUniqueConstraintError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrPolicyNameTaken
	}
	// Raw driver error (e.g. tests without TranslateError)
	lowered := strings.ToLower(err.Error())
	if strings.Contains(lowered, "unique") || strings.Contains(lowered, "duplicate key") {
		return ErrPolicyNameTaken
	}
	return err
}

func (s *PolicyStore) Get(ctx context.Context, accountID, id string) (*model.Policy, error) {
	var policy model.Policy
	err := s.db.WithContext(ctx).
		First(&policy, "account_id = ? AND id = ?", accountID, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPolicyNotFound
		}
		return nil, err
	}
	return &policy, nil
}

func (s *PolicyStore) Create(ctx context.Context, policy model.Policy) (*model.Policy, error) {
	if err := s.db.WithContext(ctx).Clauses(clause.Returning{}).Select("*").Create(&policy).Error; err != nil {
		return nil, mapUniqueConstraintError(err)
	}
	return &policy, nil
}

func (s *PolicyStore) Update(ctx context.Context, policy model.Policy) (*model.Policy, error) {
	// Update all mutable fields including zero values. Immutable fields
	// (id, account_id, ctime) are not updated.
	result := s.db.WithContext(ctx).Model(&policy).
		Where("account_id = ?", policy.AccountID).
		Select("name", "description", "conditions", "is_enabled", "actions").
		Clauses(clause.Returning{}).
		Updates(&policy)
	if result.Error != nil {
		return nil, mapUniqueConstraintError(result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrPolicyNotFound
	}
	return &policy, nil
}

func (s *PolicyStore) DeleteMany(ctx context.Context, accountID string, ids []string) ([]string, error) {
	var existing []string
	err := s.db.WithContext(ctx).Model(&model.Policy{}).
		Where("account_id = ? AND id IN ?", accountID, ids).
		Pluck("id", &existing).Error
	if err != nil {
		return nil, err
	}
	if len(existing) == 0 {
		return []string{}, nil
	}
	err = s.db.WithContext(ctx).
		Where("account_id = ? AND id IN ?", accountID, existing).
		Delete(&model.Policy{}).Error
	if err != nil {
		return nil, err
	}
	return existing, nil
}

func (s *PolicyStore) SetEnabled(ctx context.Context, accountID string, ids []string, enabled bool) error {
	return s.db.WithContext(ctx).Model(&model.Policy{}).
		Where("account_id = ? AND id IN ?", accountID, ids).
		Update("is_enabled", enabled).Error
}

func (s *PolicyStore) SetLastEvaluation(ctx context.Context, accountID, id string, at time.Time) error {
	result := s.db.WithContext(ctx).Model(&model.Policy{}).
		Where("account_id = ? AND id = ?", accountID, id).
		Update("last_evaluation", at)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPolicyNotFound
	}
	return nil
}

func (s *PolicyStore) NameExists(ctx context.Context, accountID, name, excludeID string) (bool, error) {
	query := s.db.WithContext(ctx).Model(&model.Policy{}).
		Where("account_id = ? AND name = ?", accountID, name)
	if excludeID != "" {
		query = query.Where("id != ?", excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
