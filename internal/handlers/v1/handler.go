package v1

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	apiv1 "github.com/custom-policies/policy-console/api/v1"
	"github.com/custom-policies/policy-console/internal/service"
)

// AccountHeader carries the account the request is scoped to. It is set
// by the authentication gateway in front of the service.
const AccountHeader = "X-Account-Id"

// TotalCountHeader carries the unpaged row count on list responses.
const TotalCountHeader = "TotalCount"

// PolicyHandler implements the public policies API.
type PolicyHandler struct {
	service service.PolicyService
}

// NewPolicyHandler creates a new policy handler
func NewPolicyHandler(service service.PolicyService) *PolicyHandler {
	return &PolicyHandler{service: service}
}

// Routes mounts the policy endpoints on a router.
func (h *PolicyHandler) Routes(r chi.Router) {
	r.Route("/policies", func(r chi.Router) {
		r.Get("/", h.ListPolicies)
		r.Post("/", h.CreatePolicy)
		r.Post("/validate", h.ValidateCondition)
		r.Post("/validate-name", h.ValidateName)
		r.Delete("/ids", h.DeletePolicies)
		r.Post("/ids/enabled", h.SetEnabled)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetPolicy)
			r.Put("/", h.UpdatePolicy)
			r.Get("/history/trigger", h.ListTriggers)
		})
	})
}

func (h *PolicyHandler) ListPolicies(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.account(w, r)
	if !ok {
		return
	}
	page, err := apiv1.PageFromRequest(r)
	if err != nil {
		h.badRequest(w, r, err.Error())
		return
	}

	response, total, err := h.service.ListPolicies(r.Context(), accountID, page)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	w.Header().Set(TotalCountHeader, strconv.FormatInt(total, 10))
	h.respond(w, http.StatusOK, response)
}

func (h *PolicyHandler) CreatePolicy(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.account(w, r)
	if !ok {
		return
	}
	var request apiv1.ServerPolicyRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.badRequest(w, r, "Invalid request body")
		return
	}

	response, err := h.service.CreatePolicy(r.Context(), accountID, request)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.respond(w, http.StatusCreated, response)
}

func (h *PolicyHandler) GetPolicy(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.account(w, r)
	if !ok {
		return
	}
	response, err := h.service.GetPolicy(r.Context(), accountID, chi.URLParam(r, "id"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, response)
}

func (h *PolicyHandler) UpdatePolicy(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.account(w, r)
	if !ok {
		return
	}
	var request apiv1.ServerPolicyRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.badRequest(w, r, "Invalid request body")
		return
	}

	response, err := h.service.UpdatePolicy(r.Context(), accountID, chi.URLParam(r, "id"), request)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, response)
}

func (h *PolicyHandler) DeletePolicies(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.account(w, r)
	if !ok {
		return
	}
	var ids []string
	if err := json.NewDecoder(r.Body).Decode(&ids); err != nil {
		h.badRequest(w, r, "Invalid request body: expected an array of policy IDs")
		return
	}

	deleted, err := h.service.DeletePolicies(r.Context(), accountID, ids)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, deleted)
}

func (h *PolicyHandler) SetEnabled(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.account(w, r)
	if !ok {
		return
	}
	enabled, err := strconv.ParseBool(r.URL.Query().Get("enabled"))
	if err != nil {
		h.badRequest(w, r, "Query parameter 'enabled' must be true or false")
		return
	}
	var ids []string
	if err := json.NewDecoder(r.Body).Decode(&ids); err != nil {
		h.badRequest(w, r, "Invalid request body: expected an array of policy IDs")
		return
	}

	if err := h.service.SetEnabled(r.Context(), accountID, ids, enabled); err != nil {
		h.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *PolicyHandler) ValidateCondition(w http.ResponseWriter, r *http.Request) {
	var request apiv1.ServerPolicyRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.badRequest(w, r, "Invalid request body")
		return
	}

	if err := h.service.ValidateCondition(r.Context(), request); err != nil {
		h.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *PolicyHandler) ValidateName(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.account(w, r)
	if !ok {
		return
	}
	var name string
	if err := json.NewDecoder(r.Body).Decode(&name); err != nil {
		h.badRequest(w, r, "Invalid request body: expected a JSON string")
		return
	}

	excludeID := r.URL.Query().Get("id")
	if err := h.service.ValidateName(r.Context(), accountID, name, excludeID); err != nil {
		h.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *PolicyHandler) ListTriggers(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.account(w, r)
	if !ok {
		return
	}
	page, err := apiv1.PageFromRequest(r)
	if err != nil {
		h.badRequest(w, r, err.Error())
		return
	}

	response, total, err := h.service.ListTriggers(r.Context(), accountID, chi.URLParam(r, "id"), page)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	w.Header().Set(TotalCountHeader, strconv.FormatInt(total, 10))
	h.respond(w, http.StatusOK, response)
}

func (h *PolicyHandler) account(w http.ResponseWriter, r *http.Request) (string, bool) {
	accountID := r.Header.Get(AccountHeader)
	if accountID == "" {
		h.badRequest(w, r, "Missing "+AccountHeader+" header")
		return "", false
	}
	return accountID, true
}

func (h *PolicyHandler) respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logrus.WithError(err).Error("Failed to write response")
	}
}
