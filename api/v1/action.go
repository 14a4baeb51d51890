package v1

import (
	"errors"
	"fmt"
	"strings"
)

// ActionType identifies the kind of notification an action fires.
// The zero value marks an action whose kind has not been chosen yet;
// such actions are never persisted.
type ActionType string

const (
	ActionTypeEmail   ActionType = "email"
	ActionTypeWebhook ActionType = "webhook"
)

// ErrUnknownActionType indicates an action type outside the closed set.
// Hitting it means a new type was added without updating every switch
// over ActionType.
var ErrUnknownActionType = errors.New("unknown action type")

// Known reports whether t is one of the recognized action types.
func (t ActionType) Known() bool {
	switch t {
	case ActionTypeEmail, ActionTypeWebhook:
		return true
	}
	return false
}

// Action is a notification side-effect attached to a policy.
// Endpoint is only meaningful for webhook actions.
type Action struct {
	Type     ActionType `json:"type"`
	Endpoint string     `json:"endpoint,omitempty"`
}

// EncodeToken renders a single action as its wire token:
// "email", or "webhook <endpoint>". The endpoint is the token remainder
// and may contain spaces, but never ';' (the list separator — a known
// limitation of the format).
func (a Action) EncodeToken() (string, error) {
	switch a.Type {
	case ActionTypeEmail:
		return string(a.Type), nil
	case ActionTypeWebhook:
		return string(a.Type) + " " + a.Endpoint, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownActionType, a.Type)
}

// EncodeActions serializes actions into the server's single-string form:
// tokens joined with ';'. Actions without a chosen type are dropped
// rather than emitted as empty tokens.
func EncodeActions(actions []Action) (string, error) {
	tokens := make([]string, 0, len(actions))
	for _, a := range actions {
		if a.Type == "" {
			continue
		}
		token, err := a.EncodeToken()
		if err != nil {
			return "", err
		}
		tokens = append(tokens, token)
	}
	return strings.Join(tokens, ";"), nil
}

// DecodeActionToken parses a single wire token back into an Action.
func DecodeActionToken(token string) (Action, error) {
	kind, rest, _ := strings.Cut(token, " ")
	actionType := ActionType(kind)
	if !actionType.Known() {
		return Action{}, fmt.Errorf("%w: %q", ErrUnknownActionType, kind)
	}
	action := Action{Type: actionType}
	if actionType == ActionTypeWebhook {
		action.Endpoint = rest
	}
	return action, nil
}

// DecodeActions parses the server's semicolon-joined actions string,
// preserving token order. Blank tokens (stray separators) are skipped.
func DecodeActions(encoded string) ([]Action, error) {
	actions := []Action{}
	if encoded == "" {
		return actions, nil
	}
	for _, token := range strings.Split(encoded, ";") {
		if strings.TrimSpace(token) == "" {
			continue
		}
		action, err := DecodeActionToken(token)
		if err != nil {
			return nil, err
		}
		actions = append(actions, action)
	}
	return actions, nil
}
