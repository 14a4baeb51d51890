// Package validation holds the schemas a policy is checked against
// before it is persisted. Failures are collected, not fail-fast, and
// addressed by field path so a form can render every error at once.
package validation

import (
	"fmt"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	v1 "github.com/custom-policies/policy-console/api/v1"
)

// MaxNameLength is the longest policy name the server accepts.
const MaxNameLength = 150

var (
	ErrNameRequired = validation.NewError(
		"required_field", "Write a name for this policy")
	ErrNameTooLong = validation.NewError(
		"max_length_exceeded", fmt.Sprintf("The name can have a maximum of %d characters", MaxNameLength))
	ErrConditionsRequired = validation.NewError(
		"required_field", "Write a condition")
	ErrEndpointRequired = validation.NewError(
		"required_field", "Write an endpoint URL for this webhook")
	ErrDuplicateWebhook = validation.NewError(
		"duplicate_restricted_action", "Only one webhook action is allowed.")
)

// ValidateDetails checks the fields of the details wizard step: name is
// required, non-blank and bounded; description and the enabled flag are
// unconstrained.
func ValidateDetails(policy v1.Policy) error {
	return validation.ValidateStruct(&policy,
		validation.Field(&policy.Name,
			validation.By(notBlank(ErrNameRequired)),
			validation.RuneLength(0, MaxNameLength).ErrorObject(ErrNameTooLong),
		),
	)
}

// ValidateConditions checks the condition step: the expression must be
// non-blank. Its syntax is checked separately by the condition package.
func ValidateConditions(policy v1.Policy) error {
	return validation.ValidateStruct(&policy,
		validation.Field(&policy.Conditions,
			validation.By(notBlank(ErrConditionsRequired)),
		),
	)
}

// ValidateActions checks each action against the schema for its type
// and enforces that at most one webhook action exists. Duplicates are
// reported as a single failure under "actions" carrying one sub-error
// per offending index at actions.<i>.type.
func ValidateActions(actions []v1.Action) error {
	elementErrors := validation.Errors{}

	for i, action := range actions {
		if err := validateAction(action); err != nil {
			elementErrors[strconv.Itoa(i)] = err
		}
	}

	if offenders := indicesOfType(actions, v1.ActionTypeWebhook); len(offenders) > 1 {
		for _, i := range offenders {
			key := strconv.Itoa(i)
			element, ok := elementErrors[key].(validation.Errors)
			if !ok {
				element = validation.Errors{}
			}
			element["type"] = ErrDuplicateWebhook
			elementErrors[key] = element
		}
	}

	if len(elementErrors) == 0 {
		return nil
	}
	return validation.Errors{"actions": elementErrors}
}

// ValidatePolicy is the union of the three step schemas, used on final
// submission.
func ValidatePolicy(policy v1.Policy) error {
	errs := validation.Errors{}
	collect(errs, ValidateDetails(policy))
	collect(errs, ValidateActions(policy.Actions))
	collect(errs, ValidateConditions(policy))
	return errs.Filter()
}

// validateAction picks the schema from the action's type discriminator.
// An action whose type has not been chosen yet passes structural checks
// only.
func validateAction(action v1.Action) error {
	switch action.Type {
	case v1.ActionTypeWebhook:
		return validation.ValidateStruct(&action,
			validation.Field(&action.Endpoint,
				validation.By(notBlank(ErrEndpointRequired)),
				is.URL,
			),
		)
	case v1.ActionTypeEmail:
		return nil
	}
	return nil
}

func indicesOfType(actions []v1.Action, actionType v1.ActionType) []int {
	var indices []int
	for i, action := range actions {
		if action.Type == actionType {
			indices = append(indices, i)
		}
	}
	return indices
}

func notBlank(errObject validation.Error) validation.RuleFunc {
	return func(value interface{}) error {
		s, _ := value.(string)
		if strings.TrimSpace(s) == "" {
			return errObject
		}
		return nil
	}
}

func collect(into validation.Errors, err error) {
	if err == nil {
		return
	}
	errs, ok := err.(validation.Errors)
	if !ok {
		return
	}
	for field, fieldErr := range errs {
		into[field] = fieldErr
	}
}
