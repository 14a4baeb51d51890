package v1

import (
	"encoding/json"
	"errors"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/sirupsen/logrus"

	"github.com/custom-policies/policy-console/internal/service"
)

// Problem is an RFC 7807 problem document. Errors carries
// field-addressed validation failures keyed by dotted field path.
type Problem struct {
	Type     string            `json:"type"`
	Status   int               `json:"status"`
	Title    string            `json:"title"`
	Detail   *string           `json:"detail,omitempty"`
	Instance *string           `json:"instance,omitempty"`
	Errors   validation.Errors `json:"errors,omitempty"`
}

// handleError maps service errors to HTTP problem responses
func (h *PolicyHandler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	var serviceErr *service.ServiceError
	if errors.As(err, &serviceErr) {
		switch serviceErr.Type {
		case service.ErrorTypeInvalidArgument:
			h.problem(w, r, http.StatusBadRequest, serviceErr.Message, serviceErr.Detail, serviceErr.Fields)
			return
		case service.ErrorTypeNotFound:
			h.problem(w, r, http.StatusNotFound, serviceErr.Message, serviceErr.Detail, nil)
			return
		case service.ErrorTypeAlreadyExists:
			h.problem(w, r, http.StatusConflict, serviceErr.Message, serviceErr.Detail, nil)
			return
		}
	}

	logrus.WithError(err).Error("Unhandled service error")
	h.problem(w, r, http.StatusInternalServerError, "Internal server error", "An unexpected error occurred", nil)
}

// badRequest creates a 400 Bad Request response
func (h *PolicyHandler) badRequest(w http.ResponseWriter, r *http.Request, detail string) {
	h.problem(w, r, http.StatusBadRequest, "Bad Request", detail, nil)
}

func (h *PolicyHandler) problem(w http.ResponseWriter, r *http.Request, status int, title, detail string, fields validation.Errors) {
	instance := r.URL.Path
	body := Problem{
		Type:     "about:blank",
		Status:   status,
		Title:    title,
		Instance: &instance,
		Errors:   fields,
	}
	if detail != "" {
		body.Detail = &detail
	}

	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logrus.WithError(err).Error("Failed to write problem response")
	}
}
