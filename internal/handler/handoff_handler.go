package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	appErrors "github.com/reviewloop/outreach-backend/internal/errors"
	"github.com/reviewloop/outreach-backend/internal/model"
	"github.com/reviewloop/outreach-backend/internal/service"
)

// HandoffHandler is the human-operator surface over the escalation queue.
type HandoffHandler struct {
	Service *service.HandoffService
}

// ListPending returns a tenant's open escalations, most urgent first.
// A status query parameter switches the listing to another queue state.
func (h *HandoffHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	tenantID := r.URL.Query().Get("tenant_id")
	if tenantID == "" {
		http.Error(w, "tenant_id is required", http.StatusBadRequest)
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	status := model.HandoffPending
	if raw := r.URL.Query().Get("status"); raw != "" {
		status = model.HandoffStatus(raw)
	}

	handoffs, err := h.Service.List(tenantID, status, limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"data": handoffs})
}

// Claim assigns a pending handoff to the calling operator.
func (h *HandoffHandler) Claim(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body struct {
		Operator string `json:"operator"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Operator == "" {
		http.Error(w, "operator is required", http.StatusBadRequest)
		return
	}

	handoff, err := h.Service.Claim(id, body.Operator)
	if err != nil {
		writeHandoffError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(handoff)
}

// Resolve closes (or escalates) a handoff with operator notes.
func (h *HandoffHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body struct {
		Notes    string `json:"notes"`
		Escalate bool   `json:"escalate"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	handoff, err := h.Service.Resolve(id, body.Notes, body.Escalate)
	if err != nil {
		writeHandoffError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(handoff)
}

func writeHandoffError(w http.ResponseWriter, err error) {
	var notFound *appErrors.ErrNotFound
	var validation *appErrors.ErrValidation

	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &notFound):
		status = http.StatusNotFound
	case errors.As(err, &validation):
		status = http.StatusBadRequest
	}
	http.Error(w, err.Error(), status)
}
