package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	appErrors "github.com/reviewloop/outreach-backend/internal/errors"
	"github.com/reviewloop/outreach-backend/internal/metrics"
	"github.com/reviewloop/outreach-backend/internal/model"
	"github.com/reviewloop/outreach-backend/internal/queue"
	"github.com/reviewloop/outreach-backend/internal/repository"
	"github.com/reviewloop/outreach-backend/internal/transport"
)

// StartNurtureInput is the external trigger payload (missed call,
// abandoned quote, ...).
type StartNurtureInput struct {
	TenantID       string               `json:"tenant_id"`
	LeadID         string               `json:"lead_id"`
	LeadName       string               `json:"lead_name"`
	ContactAddress string               `json:"contact_address"`
	Method         model.DeliveryMethod `json:"method"`
	TriggerType    model.TriggerType    `json:"trigger_type"`
	TriggerPayload map[string]string    `json:"trigger_payload,omitempty"`
	BusinessName   string               `json:"business_name"`
}

// optOutKeywords must match the whole trimmed message, case-insensitively.
var optOutKeywords = map[string]bool{
	"stop":        true,
	"unsubscribe": true,
	"opt out":     true,
	"remove":      true,
	"cancel":      true,
}

// LeadNurtureAgent orchestrates the lead-recovery conversation lifecycle:
// active → completed | converted | opted_out | failed.
type LeadNurtureAgent struct {
	Sequences  repository.NurtureRepositoryInterface
	Templates  repository.TemplateRepositoryInterface
	Safety     *SafetyService
	Limiter    *RateLimiter
	Handoffs   *HandoffService
	Sender     transport.Sender
	Classifier Classifier
	Logger     *logrus.Logger
	Metrics    *metrics.Metrics

	MaxSteps      int
	StepInterval  time.Duration
	BatchPageSize int

	Now func() time.Time
}

func (a *LeadNurtureAgent) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

// StartNurtureSequence opens a recovery conversation for a lead. At most
// one active sequence exists per (tenant, lead): a second trigger returns
// the existing record rather than stacking a duplicate.
func (a *LeadNurtureAgent) StartNurtureSequence(ctx context.Context, input StartNurtureInput) (*model.NurtureSequence, error) {
	if input.TenantID == "" {
		return nil, appErrors.NewValidation("tenant_id", "required")
	}
	if input.LeadID == "" {
		return nil, appErrors.NewValidation("lead_id", "required")
	}
	if input.ContactAddress == "" {
		return nil, appErrors.NewValidation("contact_address", "required")
	}
	if input.TriggerType == "" {
		return nil, appErrors.NewValidation("trigger_type", "required")
	}
	if input.Method == "" {
		input.Method = model.MethodSMS
	}

	existing, err := a.Sequences.GetActiveByLead(input.TenantID, input.LeadID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, &appErrors.ErrAlreadyActive{Existing: existing}
	}

	check, err := a.Limiter.CheckLimit(ctx, input.TenantID, input.LeadID)
	if err != nil {
		return nil, err
	}
	if !check.Allowed {
		return nil, &appErrors.ErrRateLimitExceeded{
			TenantID:   input.TenantID,
			CustomerID: input.LeadID,
			Window:     check.Window,
			Reason:     check.Reason,
		}
	}

	seq := &model.NurtureSequence{
		ID:             uuid.New().String(),
		TenantID:       input.TenantID,
		LeadID:         input.LeadID,
		LeadName:       input.LeadName,
		ContactAddress: input.ContactAddress,
		Method:         input.Method,
		TriggerType:    input.TriggerType,
		TriggerPayload: input.TriggerPayload,
		SequenceStep:   1,
		MaxSteps:       a.MaxSteps,
		Status:         model.NurtureActive,
	}
	if input.BusinessName != "" {
		if seq.TriggerPayload == nil {
			seq.TriggerPayload = map[string]string{}
		}
		seq.TriggerPayload["business_name"] = input.BusinessName
	}
	if err := a.Sequences.CreateSequence(seq); err != nil {
		return nil, err
	}

	opener, err := a.renderStepMessage(seq, 0)
	if err != nil {
		return nil, err
	}

	verdict, err := a.Safety.CheckMessage(opener, seq.TenantID, model.AgentLeadNurture)
	if err != nil {
		return nil, err
	}
	if !verdict.Safe {
		a.fail(seq, "opener blocked by safety rules")
		return nil, &appErrors.ErrSafetyBlocked{Violations: violationSummaries(verdict.Violations)}
	}
	if verdict.Action == model.ActionAddDisclaimer {
		opener = verdict.ModifiedMessage
	}

	if err := a.sendAndLog(ctx, seq, opener); err != nil {
		a.fail(seq, "opener send failed")
		return nil, err
	}

	next := a.now().Add(a.StepInterval)
	seq.NextActionAt = &next
	if err := a.Sequences.UpdateSequence(seq); err != nil {
		return nil, err
	}
	a.Logger.WithFields(a.fields(seq)).WithField("trigger", seq.TriggerType).Info("nurture sequence started")
	return seq, nil
}

// ProcessIncomingMessage handles a reply from the lead: escalation and
// opt-out take precedence, then a rule-based reply keeps the conversation
// moving.
func (a *LeadNurtureAgent) ProcessIncomingMessage(ctx context.Context, tenantID, leadID, text string, method model.DeliveryMethod) (*model.NurtureSequence, error) {
	seq, err := a.Sequences.GetActiveByLead(tenantID, leadID)
	if err != nil {
		return nil, err
	}
	if seq == nil {
		return nil, &appErrors.ErrNoActiveSequence{TenantID: tenantID, LeadID: leadID}
	}

	classification := a.Classifier.Classify(text)
	inbound := &model.NurtureMessage{
		ID:         uuid.New().String(),
		SequenceID: seq.ID,
		Direction:  model.DirectionInbound,
		Text:       text,
		Method:     method,
		Intent:     classification.Intent,
		Sentiment:  classification.Sentiment,
		CreatedAt:  a.now(),
	}
	if err := a.Sequences.AppendMessage(inbound); err != nil {
		return nil, err
	}
	if a.Metrics != nil {
		a.Metrics.InboundClassified.WithLabelValues(string(classification.Intent)).Inc()
	}

	now := a.now()
	seq.LastInboundAt = &now

	verdict, err := a.Safety.CheckMessage(text, tenantID, model.AgentLeadNurture)
	if err != nil {
		return nil, err
	}

	handoffOpen, err := a.Handoffs.HasOpenFor(seq.ID)
	if err != nil {
		return nil, err
	}

	switch {
	// Opt-out wins over everything: an exact "stop" also classifies as
	// not_interested, but it must end the sequence, not escalate it.
	case isOptOut(text):
		if err := a.optOut(ctx, seq); err != nil {
			return nil, err
		}

	// An escalated conversation belongs to a human: keep logging what the
	// lead says, but send nothing until the handoff is resolved.
	case handoffOpen:
		a.Logger.WithFields(a.fields(seq)).Info("handoff open, automated reply suppressed")
		if err := a.Sequences.UpdateSequence(seq); err != nil {
			return nil, err
		}

	case verdict.Action == model.ActionHandoff || classification.Intent == model.IntentNotInterested:
		if err := a.escalate(ctx, seq, inbound, classification); err != nil {
			return nil, err
		}

	default:
		if classification.Intent == model.IntentReadyToBuy {
			seq.Qualified = true
		}
		reply := a.generateReply(seq, text, classification.Intent)
		replyVerdict, err := a.Safety.CheckMessage(reply, tenantID, model.AgentLeadNurture)
		if err != nil {
			return nil, err
		}
		if !replyVerdict.Safe {
			a.Logger.WithFields(a.fields(seq)).Warn("generated reply blocked by safety rules, not sent")
		} else {
			if replyVerdict.Action == model.ActionAddDisclaimer {
				reply = replyVerdict.ModifiedMessage
			}
			if err := a.sendAndLog(ctx, seq, reply); err != nil {
				a.Logger.WithError(err).WithFields(a.fields(seq)).Warn("reply send failed")
			}
		}
		if err := a.Sequences.UpdateSequence(seq); err != nil {
			return nil, err
		}
	}

	return seq, nil
}

// escalate opens a handoff with the full conversation history attached and
// acknowledges the lead. The sequence stays active pending human action,
// but scheduled sends are paused.
func (a *LeadNurtureAgent) escalate(ctx context.Context, seq *model.NurtureSequence, inbound *model.NurtureMessage, c Classification) error {
	inbound.HandoffNeeded = true
	if err := a.Sequences.UpdateMessage(inbound); err != nil {
		return err
	}

	urgency := model.UrgencyNormal
	if c.Sentiment == model.SentimentNegative {
		urgency = model.UrgencyHigh
	}

	history, err := a.conversationHistory(seq.ID)
	if err != nil {
		return err
	}
	if _, err := a.Handoffs.Open(HandoffInput{
		TenantID:       seq.TenantID,
		AgentType:      model.AgentLeadNurture,
		ConversationID: seq.ID,
		CustomerID:     seq.LeadID,
		Reason:         fmt.Sprintf("Escalation requested (intent=%s, sentiment=%s)", c.Intent, c.Sentiment),
		Urgency:        urgency,
		History:        history,
		CustomerContext: map[string]string{
			"lead_name": seq.LeadName,
			"trigger":   string(seq.TriggerType),
		},
		SuggestedActions: []string{
			"Review the conversation history",
			"Reach out to the lead directly",
		},
	}); err != nil {
		return err
	}

	if err := a.sendAndLog(ctx, seq, HandoffAckMessage); err != nil {
		a.Logger.WithError(err).WithFields(a.fields(seq)).Warn("handoff acknowledgement send failed")
	}

	// Pause scheduled sends until a human resolves the handoff.
	seq.NextActionAt = nil
	return a.Sequences.UpdateSequence(seq)
}

// optOut makes the suppression permanent and confirms it to the lead.
func (a *LeadNurtureAgent) optOut(ctx context.Context, seq *model.NurtureSequence) error {
	if !seq.Status.CanTransition(model.NurtureOptedOut) {
		return appErrors.NewValidation("status", fmt.Sprintf("cannot opt out from %s", seq.Status))
	}
	if err := a.Limiter.OptOut(ctx, seq.TenantID, seq.LeadID, "Customer requested opt-out"); err != nil {
		return err
	}

	// The confirmation is the one message an opted-out customer still
	// receives, so it bypasses the rate limiter.
	if err := a.sendAndLogUnlimited(ctx, seq, OptOutConfirmMessage); err != nil {
		a.Logger.WithError(err).WithFields(a.fields(seq)).Warn("opt-out confirmation send failed")
	}

	seq.Status = model.NurtureOptedOut
	seq.NextActionAt = nil
	return a.Sequences.UpdateSequence(seq)
}

// generateReply is the keyword-driven response rule set for inbound free
// text.
func (a *LeadNurtureAgent) generateReply(seq *model.NurtureSequence, text string, intent model.Intent) string {
	lower := strings.ToLower(text)

	if intent == model.IntentQuestion {
		return fmt.Sprintf("Great question, %s! The quickest way to get you an answer is a short call — would that work?", seq.LeadName)
	}
	if containsAny(lower, []string{"price", "cost", "how much", "quote", "estimate"}) {
		return fmt.Sprintf("Happy to put together a quote for you, %s. Can we set up a quick call to go over the details?", seq.LeadName)
	}
	if containsAny(lower, []string{"schedule", "book", "appointment", "available", "availability", "when"}) {
		return fmt.Sprintf("We'd love to get you on the calendar, %s. What day works best for you?", seq.LeadName)
	}
	if intent == model.IntentReadyToBuy {
		return fmt.Sprintf("That's great to hear, %s! Let's get you scheduled — what day works best?", seq.LeadName)
	}
	return fmt.Sprintf("Thanks for getting back to us, %s! Is there anything we can help you with, or any questions about our services?", seq.LeadName)
}

// RunScheduledSequences sends the next scripted step for every due active
// sequence. No classifier runs here — only inbound replies are classified.
// A step only advances after a confirmed successful send.
func (a *LeadNurtureAgent) RunScheduledSequences(ctx context.Context) (int, error) {
	start := a.now()
	defer func() {
		if a.Metrics != nil {
			a.Metrics.BatchRunDuration.WithLabelValues("nurture_steps").Observe(time.Since(start).Seconds())
		}
	}()

	due, err := a.Sequences.ListDueSequences(start, a.BatchPageSize)
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, seq := range due {
		if err := a.sendScheduledStep(ctx, seq); err != nil {
			a.Logger.WithError(err).WithFields(a.fields(seq)).Warn("scheduled step not sent, will retry next tick")
			continue
		}
		processed++
	}
	return processed, nil
}

func (a *LeadNurtureAgent) sendScheduledStep(ctx context.Context, seq *model.NurtureSequence) error {
	message, err := a.renderStepMessage(seq, seq.SequenceStep)
	if err != nil {
		return err
	}

	verdict, err := a.Safety.CheckMessage(message, seq.TenantID, model.AgentLeadNurture)
	if err != nil {
		return err
	}
	if !verdict.Safe {
		return &appErrors.ErrSafetyBlocked{Violations: violationSummaries(verdict.Violations)}
	}
	if verdict.Action == model.ActionAddDisclaimer {
		message = verdict.ModifiedMessage
	}

	if err := a.sendAndLog(ctx, seq, message); err != nil {
		return err
	}

	seq.SequenceStep++
	if seq.SequenceStep < seq.MaxSteps {
		next := a.now().Add(a.StepInterval)
		seq.NextActionAt = &next
	} else {
		// Steps exhausted without a reply: the sequence completes and no
		// further contact is attempted.
		seq.Status = model.NurtureCompleted
		seq.NextActionAt = nil
	}
	return a.Sequences.UpdateSequence(seq)
}

// ScheduleAppointment converts the sequence; calendar booking itself is an
// external collaborator.
func (a *LeadNurtureAgent) ScheduleAppointment(ctx context.Context, sequenceID string, when time.Time) (*model.NurtureSequence, error) {
	seq, err := a.Sequences.GetSequenceByID(sequenceID)
	if err != nil {
		return nil, err
	}
	if !seq.Status.CanTransition(model.NurtureConverted) {
		return nil, appErrors.NewValidation("status", fmt.Sprintf("cannot convert from %s", seq.Status))
	}

	seq.Appointment = true
	seq.Status = model.NurtureConverted
	converted := a.now()
	seq.ConvertedAt = &converted
	seq.NextActionAt = nil
	if seq.TriggerPayload == nil {
		seq.TriggerPayload = map[string]string{}
	}
	seq.TriggerPayload["appointment_at"] = when.Format(time.RFC3339)

	if err := a.Sequences.UpdateSequence(seq); err != nil {
		return nil, err
	}
	a.Logger.WithFields(a.fields(seq)).Info("nurture sequence converted")
	return seq, nil
}

// renderStepMessage composes the scripted message for a zero-based step
// from the tenant's template, falling back to the canned variant bank.
func (a *LeadNurtureAgent) renderStepMessage(seq *model.NurtureSequence, step int) (string, error) {
	text := NurtureMessage(seq.TriggerType, step)

	if step == 0 {
		tpl, err := a.Templates.GetByName(seq.TenantID, model.AgentLeadNurture, NurtureTemplateName(seq.TriggerType))
		if err != nil {
			return "", err
		}
		if tpl != nil {
			text = tpl.Text
		}
	}

	data := map[string]string{
		"leadName":     seq.LeadName,
		"businessName": seq.TriggerPayload["business_name"],
	}
	return RenderTemplate(text, data), nil
}

// sendAndLog checks the rate limiter, transmits, appends the outbound
// message to the conversation log, and bumps the counters.
func (a *LeadNurtureAgent) sendAndLog(ctx context.Context, seq *model.NurtureSequence, text string) error {
	check, err := a.Limiter.CheckLimit(ctx, seq.TenantID, seq.LeadID)
	if err != nil {
		return err
	}
	if !check.Allowed {
		return &appErrors.ErrRateLimitExceeded{
			TenantID:   seq.TenantID,
			CustomerID: seq.LeadID,
			Window:     check.Window,
			Reason:     check.Reason,
		}
	}
	return a.transmit(ctx, seq, text, true)
}

// sendAndLogUnlimited transmits without a rate-limit gate; reserved for
// the opt-out confirmation.
func (a *LeadNurtureAgent) sendAndLogUnlimited(ctx context.Context, seq *model.NurtureSequence, text string) error {
	return a.transmit(ctx, seq, text, false)
}

func (a *LeadNurtureAgent) transmit(ctx context.Context, seq *model.NurtureSequence, text string, count bool) error {
	msg := &model.NurtureMessage{
		ID:         uuid.New().String(),
		SequenceID: seq.ID,
		Direction:  model.DirectionOutbound,
		Text:       text,
		Method:     seq.Method,
		CreatedAt:  a.now(),
	}

	result, err := a.Sender.Send(ctx, queue.OutboundSendJob{
		TenantID:    seq.TenantID,
		AgentType:   model.AgentLeadNurture,
		ReferenceID: seq.ID,
		MessageID:   msg.ID,
		To:          seq.ContactAddress,
		Text:        text,
		Method:      seq.Method,
	})
	if err != nil || !result.Success {
		return &appErrors.ErrDeliveryFailed{Method: seq.Method, Cause: sendCause(result, err)}
	}

	msg.DeliveryStatus = "sent"
	if err := a.Sequences.AppendMessage(msg); err != nil {
		return err
	}

	if count {
		if err := a.Limiter.IncrementCount(ctx, seq.TenantID, seq.LeadID); err != nil {
			a.Logger.WithError(err).WithFields(a.fields(seq)).Warn("failed to increment rate counters")
		}
	}
	if a.Metrics != nil {
		a.Metrics.MessagesSent.WithLabelValues(string(model.AgentLeadNurture), string(seq.Method)).Inc()
	}
	return nil
}

// conversationHistory snapshots the sequence's log for a handoff record.
func (a *LeadNurtureAgent) conversationHistory(sequenceID string) ([]model.HandoffMessage, error) {
	messages, err := a.Sequences.ListMessages(sequenceID)
	if err != nil {
		return nil, err
	}
	history := make([]model.HandoffMessage, 0, len(messages))
	for _, m := range messages {
		history = append(history, model.HandoffMessage{
			Direction: m.Direction,
			Text:      m.Text,
			SentAt:    m.CreatedAt,
		})
	}
	return history, nil
}

func (a *LeadNurtureAgent) fail(seq *model.NurtureSequence, reason string) {
	if !seq.Status.CanTransition(model.NurtureFailed) {
		return
	}
	seq.Status = model.NurtureFailed
	seq.NextActionAt = nil
	if err := a.Sequences.UpdateSequence(seq); err != nil {
		a.Logger.WithError(err).WithFields(a.fields(seq)).Error("failed to mark nurture sequence failed")
	}
	a.Logger.WithFields(a.fields(seq)).WithField("reason", reason).Warn("nurture sequence failed")
}

func (a *LeadNurtureAgent) fields(seq *model.NurtureSequence) logrus.Fields {
	return logrus.Fields{
		"sequence_id": seq.ID,
		"tenant_id":   seq.TenantID,
		"lead_id":     seq.LeadID,
	}
}

// isOptOut matches the whole trimmed message against the opt-out keyword
// set, case-insensitively.
func isOptOut(text string) bool {
	return optOutKeywords[strings.ToLower(strings.TrimSpace(text))]
}
