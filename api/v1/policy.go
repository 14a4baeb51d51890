package v1

import (
	"time"

	"github.com/google/uuid"
)

// Policy is the structured, client-facing policy model.
// ID, Ctime, Mtime and LastEvaluation are assigned by the server; a
// policy that has not been persisted yet carries none of them.
type Policy struct {
	ID             *uuid.UUID `json:"id,omitempty"`
	Name           string     `json:"name"`
	Description    string     `json:"description,omitempty"`
	Conditions     string     `json:"conditions"`
	IsEnabled      bool       `json:"isEnabled"`
	Actions        []Action   `json:"actions"`
	Ctime          *time.Time `json:"ctime,omitempty"`
	Mtime          *time.Time `json:"mtime,omitempty"`
	LastEvaluation *time.Time `json:"lastEvaluation,omitempty"`
}

// ServerPolicyRequest is the wire shape sent on create and update.
// Output-only fields (id, ctime, mtime, lastEvaluation) are never part
// of a request body; actions travel as a single encoded string.
type ServerPolicyRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Conditions  string  `json:"conditions"`
	IsEnabled   bool    `json:"is_enabled"`
	Actions     string  `json:"actions"`
	Mtime       *string `json:"mtime,omitempty"`
}

// ServerPolicyResponse is the wire shape returned by the server.
type ServerPolicyResponse struct {
	ID             *uuid.UUID `json:"id,omitempty"`
	Name           string     `json:"name"`
	Description    string     `json:"description,omitempty"`
	Conditions     string     `json:"conditions"`
	IsEnabled      bool       `json:"is_enabled"`
	Actions        string     `json:"actions"`
	Ctime          *string    `json:"ctime,omitempty"`
	Mtime          *string    `json:"mtime,omitempty"`
	LastEvaluation *string    `json:"lastEvaluation,omitempty"`
}

// PagedPolicyResponse is a page of policies as returned by the list
// endpoint. The total row count travels in the TotalCount header, not
// the body.
type PagedPolicyResponse struct {
	Data []ServerPolicyResponse `json:"data"`
}

// Trigger is one historical firing of a policy against a host.
type Trigger struct {
	ID       *uuid.UUID `json:"id,omitempty"`
	HostID   string     `json:"hostId,omitempty"`
	HostName string     `json:"hostName"`
	Ctime    *time.Time `json:"ctime,omitempty"`
}

// PagedTriggerResponse is a page of trigger history entries.
type PagedTriggerResponse struct {
	Data []Trigger `json:"data"`
}
