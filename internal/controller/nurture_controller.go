package controller

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	appErrors "github.com/reviewloop/outreach-backend/internal/errors"
	"github.com/reviewloop/outreach-backend/internal/model"
	"github.com/reviewloop/outreach-backend/internal/service"
)

type NurtureController struct {
	Agent *service.LeadNurtureAgent
}

// StartSequence handles missed-call / abandoned-quote / cold-lead triggers.
// A duplicate trigger for an already-active lead answers 200 with the
// existing sequence instead of creating another.
func (c *NurtureController) StartSequence(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")

	var input service.StartNurtureInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	input.TenantID = tenantID

	seq, err := c.Agent.StartNurtureSequence(r.Context(), input)
	if err != nil {
		var alreadyActive *appErrors.ErrAlreadyActive
		if errors.As(err, &alreadyActive) {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(alreadyActive.Existing)
			return
		}
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(seq)
}

// ProcessInbound is the webhook for replies from leads.
func (c *NurtureController) ProcessInbound(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	leadID := chi.URLParam(r, "leadID")

	var body struct {
		Text   string               `json:"text"`
		Method model.DeliveryMethod `json:"method"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if body.Method == "" {
		body.Method = model.MethodSMS
	}

	seq, err := c.Agent.ProcessIncomingMessage(r.Context(), tenantID, leadID, body.Text, body.Method)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(seq)
}

// ScheduleAppointment marks the sequence converted; the calendar booking
// itself happens elsewhere.
func (c *NurtureController) ScheduleAppointment(w http.ResponseWriter, r *http.Request) {
	sequenceID := chi.URLParam(r, "id")

	var body struct {
		At time.Time `json:"at"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if body.At.IsZero() {
		body.At = time.Now()
	}

	seq, err := c.Agent.ScheduleAppointment(r.Context(), sequenceID, body.At)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(seq)
}
