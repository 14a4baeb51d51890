package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	v1 "github.com/custom-policies/policy-console/api/v1"
	"github.com/custom-policies/policy-console/internal/condition"
	policyvalidation "github.com/custom-policies/policy-console/internal/validation"
	"github.com/custom-policies/policy-console/internal/store"
)

// PolicyService defines the interface for policy business logic operations.
type PolicyService interface {
	CreatePolicy(ctx context.Context, accountID string, request v1.ServerPolicyRequest) (*v1.ServerPolicyResponse, error)
	GetPolicy(ctx context.Context, accountID, id string) (*v1.ServerPolicyResponse, error)
	ListPolicies(ctx context.Context, accountID string, page v1.Page) (*v1.PagedPolicyResponse, int64, error)
	UpdatePolicy(ctx context.Context, accountID, id string, request v1.ServerPolicyRequest) (*v1.ServerPolicyResponse, error)
	DeletePolicies(ctx context.Context, accountID string, ids []string) ([]string, error)
	SetEnabled(ctx context.Context, accountID string, ids []string, enabled bool) error
	ValidateCondition(ctx context.Context, request v1.ServerPolicyRequest) error
	ValidateName(ctx context.Context, accountID, name, excludeID string) error
	ListTriggers(ctx context.Context, accountID, policyID string, page v1.Page) (*v1.PagedTriggerResponse, int64, error)
	RecordTrigger(ctx context.Context, accountID, policyID, hostID, hostName string) (*v1.Trigger, error)
}

// PolicyServiceImpl implements the PolicyService interface.
type PolicyServiceImpl struct {
	store store.Store
}

var _ PolicyService = (*PolicyServiceImpl)(nil)

// NewPolicyService creates a new PolicyService instance.
func NewPolicyService(store store.Store) *PolicyServiceImpl {
	return &PolicyServiceImpl{
		store: store,
	}
}

// policyFromRequest decodes the wire request into the structured model.
// A malformed actions string is a client error, not a server defect.
func policyFromRequest(request v1.ServerPolicyRequest) (v1.Policy, error) {
	actions, err := v1.DecodeActions(request.Actions)
	if err != nil {
		return v1.Policy{}, NewInvalidArgumentError(
			"Invalid actions string",
			err.Error(),
		)
	}
	return v1.Policy{
		Name:        request.Name,
		Description: request.Description,
		Conditions:  request.Conditions,
		IsEnabled:   request.IsEnabled,
		Actions:     actions,
	}, nil
}

// validatePolicy runs the full schema plus the condition syntax check.
func validatePolicy(policy v1.Policy) error {
	if err := policyvalidation.ValidatePolicy(policy); err != nil {
		fields, ok := err.(validation.Errors)
		if !ok {
			return NewInternalError("Policy validation failed", err.Error(), err)
		}
		return NewValidationError(fields)
	}
	if err := condition.Validate(policy.Conditions); err != nil {
		return NewInvalidArgumentError("Invalid condition", err.Error())
	}
	return nil
}

// CreatePolicy validates and persists a new policy.
func (s *PolicyServiceImpl) CreatePolicy(ctx context.Context, accountID string, request v1.ServerPolicyRequest) (*v1.ServerPolicyResponse, error) {
	policy, err := policyFromRequest(request)
	if err != nil {
		return nil, err
	}
	if err := validatePolicy(policy); err != nil {
		return nil, err
	}

	dbPolicy, err := APIToDBModel(policy, uuid.New().String(), accountID)
	if err != nil {
		return nil, NewInternalError("Failed to encode policy actions", err.Error(), err)
	}

	created, err := s.store.Policy().Create(ctx, dbPolicy)
	if err != nil {
		return nil, processPolicyStoreError(err, dbPolicy.Name, "create")
	}

	response := DBToWireResponse(created)
	return &response, nil
}

// GetPolicy retrieves a policy by ID.
func (s *PolicyServiceImpl) GetPolicy(ctx context.Context, accountID, id string) (*v1.ServerPolicyResponse, error) {
	dbPolicy, err := s.store.Policy().Get(ctx, accountID, id)
	if err != nil {
		if errors.Is(err, store.ErrPolicyNotFound) {
			return nil, NewPolicyNotFoundError(id)
		}
		return nil, NewInternalError("Failed to get policy", err.Error(), err)
	}

	response := DBToWireResponse(dbPolicy)
	return &response, nil
}

func getListOptions(page v1.Page) (*store.PolicyListOptions, error) {
	opts := &store.PolicyListOptions{
		Offset: (page.Index - 1) * page.Size,
		Limit:  page.Size,
	}
	if page.Index < 1 || page.Size < 1 {
		return nil, NewInvalidArgumentError(
			"Invalid page",
			"Page index and size must be at least 1",
		)
	}

	if page.Filter != nil {
		for _, element := range page.Filter.Elements {
			if !v1.PolicyColumns[element.Column] {
				return nil, NewInvalidArgumentError(
					"Invalid filter column",
					fmt.Sprintf("Column '%s' cannot be filtered on", element.Column),
				)
			}
			opts.Filters = append(opts.Filters, store.FilterClause{
				Column:   element.Column,
				Operator: string(element.Operator),
				Value:    element.Value,
			})
		}
	}

	if page.Sort != nil {
		if !v1.PolicyColumns[page.Sort.Column] {
			return nil, NewInvalidArgumentError(
				"Invalid sort column",
				fmt.Sprintf("Column '%s' cannot be sorted on", page.Sort.Column),
			)
		}
		opts.OrderBy = page.Sort.Column
		opts.Descending = page.Sort.Direction == v1.SortDescending
	}

	return opts, nil
}

// ListPolicies lists policies with optional filtering, ordering, and
// pagination. Returns the page plus the total row count.
func (s *PolicyServiceImpl) ListPolicies(ctx context.Context, accountID string, page v1.Page) (*v1.PagedPolicyResponse, int64, error) {
	opts, err := getListOptions(page)
	if err != nil {
		return nil, 0, err
	}

	result, err := s.store.Policy().List(ctx, accountID, opts)
	if err != nil {
		return nil, 0, NewInternalError("Failed to list policies", err.Error(), err)
	}

	response := &v1.PagedPolicyResponse{
		Data: make([]v1.ServerPolicyResponse, len(result.Policies)),
	}
	for i, dbPolicy := range result.Policies {
		response.Data[i] = DBToWireResponse(&dbPolicy)
	}

	return response, result.Total, nil
}

// UpdatePolicy replaces the mutable fields of an existing policy.
func (s *PolicyServiceImpl) UpdatePolicy(ctx context.Context, accountID, id string, request v1.ServerPolicyRequest) (*v1.ServerPolicyResponse, error) {
	policy, err := policyFromRequest(request)
	if err != nil {
		return nil, err
	}
	if err := validatePolicy(policy); err != nil {
		return nil, err
	}

	dbPolicy, err := APIToDBModel(policy, id, accountID)
	if err != nil {
		return nil, NewInternalError("Failed to encode policy actions", err.Error(), err)
	}

	updated, err := s.store.Policy().Update(ctx, dbPolicy)
	if err != nil {
		if errors.Is(err, store.ErrPolicyNotFound) {
			return nil, NewPolicyNotFoundError(id)
		}
		return nil, processPolicyStoreError(err, dbPolicy.Name, "update")
	}

	response := DBToWireResponse(updated)
	return &response, nil
}

// DeletePolicies deletes policies in bulk and returns the IDs that were
// actually removed. Unknown IDs are skipped, not errors.
func (s *PolicyServiceImpl) DeletePolicies(ctx context.Context, accountID string, ids []string) ([]string, error) {
	deleted, err := s.store.Policy().DeleteMany(ctx, accountID, ids)
	if err != nil {
		return nil, NewInternalError("Failed to delete policies", err.Error(), err)
	}
	if err := s.store.Trigger().DeleteByPolicy(ctx, deleted); err != nil {
		return nil, NewInternalError("Failed to delete trigger history", err.Error(), err)
	}
	return deleted, nil
}

// SetEnabled flips the enabled flag on policies in bulk.
func (s *PolicyServiceImpl) SetEnabled(ctx context.Context, accountID string, ids []string, enabled bool) error {
	if err := s.store.Policy().SetEnabled(ctx, accountID, ids, enabled); err != nil {
		return NewInternalError("Failed to update policies", err.Error(), err)
	}
	return nil
}

// ValidateCondition checks the condition expression of a candidate
// policy without persisting anything.
func (s *PolicyServiceImpl) ValidateCondition(ctx context.Context, request v1.ServerPolicyRequest) error {
	policy, err := policyFromRequest(request)
	if err != nil {
		return err
	}
	if err := policyvalidation.ValidateConditions(policy); err != nil {
		fields, ok := err.(validation.Errors)
		if !ok {
			return NewInternalError("Condition validation failed", err.Error(), err)
		}
		return NewValidationError(fields)
	}
	if err := condition.Validate(policy.Conditions); err != nil {
		return NewInvalidArgumentError("Invalid condition", err.Error())
	}
	return nil
}

// ValidateName checks a candidate name against the schema and against
// the account's existing policies. excludeID skips the policy being
// edited.
func (s *PolicyServiceImpl) ValidateName(ctx context.Context, accountID, name, excludeID string) error {
	if err := policyvalidation.ValidateDetails(v1.Policy{Name: name}); err != nil {
		fields, ok := err.(validation.Errors)
		if !ok {
			return NewInternalError("Name validation failed", err.Error(), err)
		}
		return NewValidationError(fields)
	}

	taken, err := s.store.Policy().NameExists(ctx, accountID, name, excludeID)
	if err != nil {
		return NewInternalError("Failed to check policy name", err.Error(), err)
	}
	if taken {
		return NewPolicyNameTakenError(name)
	}
	return nil
}

// ListTriggers returns the firing history of a policy, newest first.
func (s *PolicyServiceImpl) ListTriggers(ctx context.Context, accountID, policyID string, page v1.Page) (*v1.PagedTriggerResponse, int64, error) {
	// Scope check: the policy must belong to the account.
	if _, err := s.GetPolicy(ctx, accountID, policyID); err != nil {
		return nil, 0, err
	}

	result, err := s.store.Trigger().ListByPolicy(ctx, policyID, (page.Index-1)*page.Size, page.Size)
	if err != nil {
		return nil, 0, NewInternalError("Failed to list triggers", err.Error(), err)
	}

	response := &v1.PagedTriggerResponse{
		Data: make([]v1.Trigger, len(result.Triggers)),
	}
	for i, dbTrigger := range result.Triggers {
		response.Data[i] = DBToTrigger(&dbTrigger)
	}
	return response, result.Total, nil
}

// RecordTrigger stores one policy firing and bumps the policy's
// last-evaluation timestamp.
func (s *PolicyServiceImpl) RecordTrigger(ctx context.Context, accountID, policyID, hostID, hostName string) (*v1.Trigger, error) {
	if _, err := s.GetPolicy(ctx, accountID, policyID); err != nil {
		return nil, err
	}

	dbTrigger, err := s.store.Trigger().Record(ctx, modelTrigger(policyID, hostID, hostName))
	if err != nil {
		return nil, NewInternalError("Failed to record trigger", err.Error(), err)
	}
	if err := s.store.Policy().SetLastEvaluation(ctx, accountID, policyID, time.Now()); err != nil {
		return nil, NewInternalError("Failed to update last evaluation", err.Error(), err)
	}

	trigger := DBToTrigger(dbTrigger)
	return &trigger, nil
}
