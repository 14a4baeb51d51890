package service

import (
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gorm.io/gorm"

	"github.com/custom-policies/policy-console/internal/store"
)

// ErrorType represents the type of service error
type ErrorType string

const (
	ErrorTypeInvalidArgument ErrorType = "INVALID_ARGUMENT"
	ErrorTypeNotFound        ErrorType = "NOT_FOUND"
	ErrorTypeAlreadyExists   ErrorType = "ALREADY_EXISTS"
	ErrorTypeInternal        ErrorType = "INTERNAL"
)

// ServiceError represents a structured error from the service layer.
// Fields carries field-addressed validation errors when the error came
// from schema validation.
type ServiceError struct {
	Type    ErrorType
	Message string
	Detail  string
	Fields  validation.Errors
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func processPolicyStoreError(err error, policyName, operation string) *ServiceError {
	if errors.Is(err, store.ErrPolicyNameTaken) {
		return NewPolicyNameTakenError(policyName)
	}
	if errors.Is(err, store.ErrPolicyNotFound) || errors.Is(err, gorm.ErrRecordNotFound) {
		return NewPolicyNotFoundError(policyName)
	}
	return NewInternalError(fmt.Sprintf("Failed to %s policy", operation), err.Error(), err)
}

// NewInvalidArgumentError creates a new invalid argument error
func NewInvalidArgumentError(message, detail string) *ServiceError {
	return &ServiceError{
		Type:    ErrorTypeInvalidArgument,
		Message: message,
		Detail:  detail,
	}
}

// NewValidationError wraps field-addressed schema validation failures.
func NewValidationError(fields validation.Errors) *ServiceError {
	return &ServiceError{
		Type:    ErrorTypeInvalidArgument,
		Message: "Policy validation failed",
		Detail:  fields.Error(),
		Fields:  fields,
	}
}

func NewPolicyNotFoundError(policyID string) *ServiceError {
	return NewNotFoundError("Policy not found", fmt.Sprintf("Policy with ID '%s' does not exist", policyID))
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message, detail string) *ServiceError {
	return &ServiceError{
		Type:    ErrorTypeNotFound,
		Message: message,
		Detail:  detail,
	}
}

func NewPolicyNameTakenError(name string) *ServiceError {
	return NewAlreadyExistsError(
		"Policy name already taken",
		fmt.Sprintf("A policy named '%s' already exists for this account", name),
	)
}

// NewAlreadyExistsError creates a new already exists error
func NewAlreadyExistsError(message, detail string) *ServiceError {
	return &ServiceError{
		Type:    ErrorTypeAlreadyExists,
		Message: message,
		Detail:  detail,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message, detail string, err error) *ServiceError {
	return &ServiceError{
		Type:    ErrorTypeInternal,
		Message: message,
		Detail:  detail,
		Err:     err,
	}
}
