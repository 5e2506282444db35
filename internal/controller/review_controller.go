package controller

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	appErrors "github.com/reviewloop/outreach-backend/internal/errors"
	"github.com/reviewloop/outreach-backend/internal/service"
)

type ReviewController struct {
	Agent *service.ReviewRequestAgent
}

// CreateReviewRequest handles the job-completed trigger.
func (c *ReviewController) CreateReviewRequest(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")

	var input service.CreateReviewRequestInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	input.TenantID = tenantID

	req, err := c.Agent.CreateReviewRequest(r.Context(), input)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(req)
}

// ProcessReviewResponse handles the customer's review submission callback.
func (c *ReviewController) ProcessReviewResponse(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "id")

	var body struct {
		Rating   int    `json:"rating"`
		Text     string `json:"text"`
		Platform string `json:"platform"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	result, err := c.Agent.ProcessReviewResponse(r.Context(), requestID, body.Rating, body.Text, body.Platform)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// MarkClicked records the customer opening the review link.
func (c *ReviewController) MarkClicked(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "id")

	if err := c.Agent.MarkClicked(r.Context(), requestID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeError maps the engine's error kinds onto HTTP statuses with a
// user-displayable reason.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	var rateLimited *appErrors.ErrRateLimitExceeded
	var alreadyActive *appErrors.ErrAlreadyActive
	var noSequence *appErrors.ErrNoActiveSequence
	var notFound *appErrors.ErrNotFound
	var blocked *appErrors.ErrSafetyBlocked
	var delivery *appErrors.ErrDeliveryFailed
	var validation *appErrors.ErrValidation

	switch {
	case errors.As(err, &rateLimited):
		status = http.StatusTooManyRequests
	case errors.As(err, &alreadyActive):
		status = http.StatusConflict
	case errors.As(err, &noSequence), errors.As(err, &notFound):
		status = http.StatusNotFound
	case errors.As(err, &blocked):
		status = http.StatusUnprocessableEntity
	case errors.As(err, &delivery):
		status = http.StatusBadGateway
	case errors.As(err, &validation):
		status = http.StatusBadRequest
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
