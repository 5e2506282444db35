package service

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	appErrors "github.com/reviewloop/outreach-backend/internal/errors"
	"github.com/reviewloop/outreach-backend/internal/metrics"
	"github.com/reviewloop/outreach-backend/internal/model"
	"github.com/reviewloop/outreach-backend/internal/repository"
)

// HandoffInput carries everything needed to open an escalation.
type HandoffInput struct {
	TenantID         string
	AgentType        model.AgentType
	ConversationID   string
	CustomerID       string
	Reason           string
	Urgency          model.HandoffUrgency
	History          []model.HandoffMessage
	CustomerContext  map[string]string
	SuggestedActions []string
}

// HandoffService writes and works the human escalation queue. Records are
// never auto-deleted; only a human action closes them.
type HandoffService struct {
	Repo    repository.HandoffRepositoryInterface
	Logger  *logrus.Logger
	Metrics *metrics.Metrics
}

// Open creates one pending handoff for a triggering event.
func (h *HandoffService) Open(input HandoffInput) (*model.HumanHandoff, error) {
	if input.Urgency == "" {
		input.Urgency = model.UrgencyNormal
	}
	handoff := &model.HumanHandoff{
		ID:               uuid.New().String(),
		TenantID:         input.TenantID,
		AgentType:        input.AgentType,
		ConversationID:   input.ConversationID,
		CustomerID:       input.CustomerID,
		Reason:           input.Reason,
		Urgency:          input.Urgency,
		History:          input.History,
		CustomerContext:  input.CustomerContext,
		SuggestedActions: input.SuggestedActions,
		Status:           model.HandoffPending,
	}
	if err := h.Repo.Create(handoff); err != nil {
		return nil, err
	}

	if h.Metrics != nil {
		h.Metrics.HandoffsCreated.WithLabelValues(string(input.AgentType), string(input.Urgency)).Inc()
	}
	h.Logger.WithFields(logrus.Fields{
		"handoff_id":  handoff.ID,
		"tenant_id":   input.TenantID,
		"customer_id": input.CustomerID,
		"urgency":     input.Urgency,
		"reason":      input.Reason,
	}).Info("human handoff opened")
	return handoff, nil
}

// Claim assigns a pending handoff to an operator.
func (h *HandoffService) Claim(id, operator string) (*model.HumanHandoff, error) {
	handoff, err := h.Repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if handoff.Status != model.HandoffPending {
		return nil, appErrors.NewValidation("status", "handoff is not pending")
	}
	handoff.Status = model.HandoffClaimed
	handoff.ClaimedBy = operator
	if err := h.Repo.Update(handoff); err != nil {
		return nil, err
	}
	return handoff, nil
}

// Resolve closes a handoff with operator notes; escalate routes it onward
// instead of closing it.
func (h *HandoffService) Resolve(id, notes string, escalate bool) (*model.HumanHandoff, error) {
	handoff, err := h.Repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if handoff.Status == model.HandoffResolved {
		return nil, appErrors.NewValidation("status", "handoff is already resolved")
	}
	if escalate {
		handoff.Status = model.HandoffEscalated
	} else {
		handoff.Status = model.HandoffResolved
	}
	handoff.ResolutionNotes = notes
	if err := h.Repo.Update(handoff); err != nil {
		return nil, err
	}
	return handoff, nil
}

// ListPending returns the tenant's open queue, most urgent first.
func (h *HandoffService) ListPending(tenantID string, limit int) ([]*model.HumanHandoff, error) {
	return h.List(tenantID, model.HandoffPending, limit)
}

// HasOpenFor reports whether a conversation has an unresolved handoff, so
// the agents can hold their automated replies while a human works it.
func (h *HandoffService) HasOpenFor(conversationID string) (bool, error) {
	return h.Repo.HasOpenForConversation(conversationID)
}

// List returns the tenant's handoffs in one status, most urgent first.
func (h *HandoffService) List(tenantID string, status model.HandoffStatus, limit int) ([]*model.HumanHandoff, error) {
	if limit < 1 || limit > 100 {
		limit = 50
	}
	return h.Repo.ListByStatus(tenantID, status, limit)
}
