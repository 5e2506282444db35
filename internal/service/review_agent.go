package service

import (
	"context"
	"fmt"
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

// CreateReviewRequestInput is the external trigger payload (job completed).
type CreateReviewRequestInput struct {
	TenantID       string               `json:"tenant_id"`
	CustomerID     string               `json:"customer_id"`
	CustomerName   string               `json:"customer_name"`
	JobID          string               `json:"job_id,omitempty"`
	JobType        string               `json:"job_type,omitempty"`
	Method         model.DeliveryMethod `json:"method"`
	ContactAddress string               `json:"contact_address"`
	BusinessName   string               `json:"business_name"`
	ReviewLink     string               `json:"review_link,omitempty"`
}

// ReviewResponseResult reports what happened to a submitted review. A
// below-threshold rating is intercepted: the customer gets an
// acknowledgement and a handoff is opened, never a public redirect.
type ReviewResponseResult struct {
	Intercepted bool   `json:"intercepted"`
	HandoffID   string `json:"handoff_id,omitempty"`
	RedirectURL string `json:"redirect_url,omitempty"`
	Message     string `json:"message"`
}

// ReviewRequestAgent orchestrates the review-solicitation lifecycle:
// pending → sent → delivered → (clicked →) reviewed, with failed reachable
// before reviewed.
type ReviewRequestAgent struct {
	Requests  repository.ReviewRequestRepositoryInterface
	Templates repository.TemplateRepositoryInterface
	Safety    *SafetyService
	Limiter   *RateLimiter
	Handoffs  *HandoffService
	Sender    transport.Sender
	Logger    *logrus.Logger
	Metrics   *metrics.Metrics

	MaxFollowups     int
	FollowupInterval time.Duration
	NegativeCutoff   int
	BatchPageSize    int

	Now func() time.Time
}

func (a *ReviewRequestAgent) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

// CreateReviewRequest solicits a review from a customer after a completed
// job. The rate limiter gates the attempt; the composed message passes
// through the safety rules engine before transmission.
func (a *ReviewRequestAgent) CreateReviewRequest(ctx context.Context, input CreateReviewRequestInput) (*model.ReviewRequest, error) {
	if input.TenantID == "" {
		return nil, appErrors.NewValidation("tenant_id", "required")
	}
	if input.CustomerID == "" {
		return nil, appErrors.NewValidation("customer_id", "required")
	}
	if input.ContactAddress == "" {
		return nil, appErrors.NewValidation("contact_address", "required")
	}
	if input.Method == "" {
		input.Method = model.MethodSMS
	}

	check, err := a.Limiter.CheckLimit(ctx, input.TenantID, input.CustomerID)
	if err != nil {
		return nil, err
	}
	if !check.Allowed {
		return nil, &appErrors.ErrRateLimitExceeded{
			TenantID:   input.TenantID,
			CustomerID: input.CustomerID,
			Window:     check.Window,
			Reason:     check.Reason,
		}
	}

	now := a.now()
	req := &model.ReviewRequest{
		ID:             uuid.New().String(),
		TenantID:       input.TenantID,
		CustomerID:     input.CustomerID,
		CustomerName:   input.CustomerName,
		JobID:          input.JobID,
		JobType:        input.JobType,
		Method:         input.Method,
		ContactAddress: input.ContactAddress,
		Status:         model.ReviewPending,
		SequenceStep:   0,
		MaxSequences:   a.MaxFollowups,
		Metadata: map[string]string{
			"business_name": input.BusinessName,
			"review_link":   input.ReviewLink,
		},
	}
	if err := a.Requests.Create(req); err != nil {
		return nil, err
	}

	message, templateID, err := a.renderStep(req, 0)
	if err != nil {
		return nil, err
	}

	verdict, err := a.Safety.CheckMessage(message, req.TenantID, model.AgentReviewRequest)
	if err != nil {
		return nil, err
	}
	if !verdict.Safe {
		a.fail(req, "blocked by safety rules")
		return nil, &appErrors.ErrSafetyBlocked{Violations: violationSummaries(verdict.Violations)}
	}
	if verdict.Action == model.ActionAddDisclaimer {
		message = verdict.ModifiedMessage
	}

	result, err := a.Sender.Send(ctx, queue.OutboundSendJob{
		TenantID:    req.TenantID,
		AgentType:   model.AgentReviewRequest,
		ReferenceID: req.ID,
		To:          req.ContactAddress,
		Text:        message,
		Method:      req.Method,
	})
	if err != nil || !result.Success {
		a.fail(req, "initial send failed")
		return nil, &appErrors.ErrDeliveryFailed{Method: req.Method, Cause: sendCause(result, err)}
	}

	if !req.Status.CanTransition(model.ReviewSent) {
		return nil, appErrors.NewValidation("status", fmt.Sprintf("cannot send from %s", req.Status))
	}
	req.Status = model.ReviewSent
	req.SequenceStep = 1
	next := now.Add(a.FollowupInterval)
	req.NextFollowupAt = &next
	if err := a.Requests.Update(req); err != nil {
		return nil, err
	}

	if err := a.Limiter.IncrementCount(ctx, req.TenantID, req.CustomerID); err != nil {
		a.Logger.WithError(err).WithFields(a.fields(req)).Warn("failed to increment rate counters")
	}
	if templateID != "" {
		if err := a.Templates.IncrementUsage(templateID); err != nil {
			a.Logger.WithError(err).Warn("failed to track template usage")
		}
	}
	if a.Metrics != nil {
		a.Metrics.MessagesSent.WithLabelValues(string(model.AgentReviewRequest), string(req.Method)).Inc()
	}
	a.Logger.WithFields(a.fields(req)).Info("review request sent")
	return req, nil
}

// ProcessReviewResponse handles a submitted review. Ratings below the
// negative cutoff are intercepted — acknowledged privately and escalated
// to a human — and can never later be published through this flow.
func (a *ReviewRequestAgent) ProcessReviewResponse(ctx context.Context, requestID string, rating int, text, platform string) (*ReviewResponseResult, error) {
	req, err := a.Requests.GetByID(requestID)
	if err != nil {
		return nil, err
	}
	if req.Status == model.ReviewReviewed {
		return nil, appErrors.NewValidation("status", "request already reviewed")
	}
	if !req.Status.CanTransition(model.ReviewReviewed) {
		return nil, appErrors.NewValidation("status", fmt.Sprintf("cannot record a review from %s", req.Status))
	}
	if rating < 1 || rating > 5 {
		return nil, appErrors.NewValidation("rating", "must be between 1 and 5")
	}

	req.Rating = &rating
	req.ReviewText = text
	req.Platform = platform
	req.Status = model.ReviewReviewed
	req.NextFollowupAt = nil

	if rating < a.NegativeCutoff {
		req.IsNegative = true
		if err := a.Requests.Update(req); err != nil {
			return nil, err
		}

		handoff, err := a.Handoffs.Open(HandoffInput{
			TenantID:       req.TenantID,
			AgentType:      model.AgentReviewRequest,
			ConversationID: req.ID,
			CustomerID:     req.CustomerID,
			Reason:         fmt.Sprintf("Negative review intercepted (rating %d/5)", rating),
			Urgency:        model.UrgencyHigh,
			History: []model.HandoffMessage{
				{Direction: model.DirectionInbound, Text: text, SentAt: a.now()},
			},
			CustomerContext: map[string]string{
				"customer_name": req.CustomerName,
				"job_type":      req.JobType,
				"rating":        fmt.Sprintf("%d", rating),
			},
			SuggestedActions: []string{
				"Call the customer within 24 hours",
				"Resolve the underlying issue",
				"Request an updated review after resolution",
			},
		})
		if err != nil {
			return nil, err
		}

		a.Logger.WithFields(a.fields(req)).WithField("rating", rating).Info("negative review intercepted")
		return &ReviewResponseResult{
			Intercepted: true,
			HandoffID:   handoff.ID,
			Message:     NegativeReviewAckMessage,
		}, nil
	}

	if err := a.Requests.Update(req); err != nil {
		return nil, err
	}
	a.Logger.WithFields(a.fields(req)).WithField("rating", rating).Info("positive review received")
	return &ReviewResponseResult{
		Intercepted: false,
		RedirectURL: platformRedirectURL(platform, req.Metadata),
		Message:     "Thank you! You'll be redirected to share your review.",
	}, nil
}

// MarkDelivered records a transport delivery confirmation.
func (a *ReviewRequestAgent) MarkDelivered(ctx context.Context, requestID string) error {
	return a.advance(requestID, model.ReviewDelivered)
}

// MarkClicked records the customer opening the review link.
func (a *ReviewRequestAgent) MarkClicked(ctx context.Context, requestID string) error {
	return a.advance(requestID, model.ReviewClicked)
}

func (a *ReviewRequestAgent) advance(requestID string, next model.ReviewRequestStatus) error {
	req, err := a.Requests.GetByID(requestID)
	if err != nil {
		return err
	}
	if !req.Status.CanTransition(next) {
		return appErrors.NewValidation("status", fmt.Sprintf("cannot transition %s -> %s", req.Status, next))
	}
	req.Status = next
	return a.Requests.Update(req)
}

// RunFollowupSequence advances every due request by one follow-up. A failed
// send leaves the record untouched so the next scheduler tick retries it;
// a record only advances after a confirmed successful send, which makes
// re-running the batch idempotent.
func (a *ReviewRequestAgent) RunFollowupSequence(ctx context.Context) (int, error) {
	start := a.now()
	defer func() {
		if a.Metrics != nil {
			a.Metrics.BatchRunDuration.WithLabelValues("review_followups").Observe(time.Since(start).Seconds())
		}
	}()

	due, err := a.Requests.ListDueFollowups(start, a.BatchPageSize)
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, req := range due {
		if err := a.sendFollowup(ctx, req); err != nil {
			a.Logger.WithError(err).WithFields(a.fields(req)).Warn("follow-up not sent, will retry next tick")
			continue
		}
		processed++
	}
	return processed, nil
}

func (a *ReviewRequestAgent) sendFollowup(ctx context.Context, req *model.ReviewRequest) error {
	check, err := a.Limiter.CheckLimit(ctx, req.TenantID, req.CustomerID)
	if err != nil {
		return err
	}
	if !check.Allowed {
		return &appErrors.ErrRateLimitExceeded{
			TenantID:   req.TenantID,
			CustomerID: req.CustomerID,
			Window:     check.Window,
			Reason:     check.Reason,
		}
	}

	message, templateID, err := a.renderStep(req, req.SequenceStep)
	if err != nil {
		return err
	}

	verdict, err := a.Safety.CheckMessage(message, req.TenantID, model.AgentReviewRequest)
	if err != nil {
		return err
	}
	if !verdict.Safe {
		return &appErrors.ErrSafetyBlocked{Violations: violationSummaries(verdict.Violations)}
	}
	if verdict.Action == model.ActionAddDisclaimer {
		message = verdict.ModifiedMessage
	}

	result, err := a.Sender.Send(ctx, queue.OutboundSendJob{
		TenantID:    req.TenantID,
		AgentType:   model.AgentReviewRequest,
		ReferenceID: req.ID,
		To:          req.ContactAddress,
		Text:        message,
		Method:      req.Method,
	})
	if err != nil || !result.Success {
		return &appErrors.ErrDeliveryFailed{Method: req.Method, Cause: sendCause(result, err)}
	}

	req.SequenceStep++
	if req.SequenceStep < req.MaxSequences {
		next := a.now().Add(a.FollowupInterval)
		req.NextFollowupAt = &next
	} else {
		// Sequence exhausted: no further contact is attempted.
		req.NextFollowupAt = nil
	}
	if err := a.Requests.Update(req); err != nil {
		return err
	}

	if err := a.Limiter.IncrementCount(ctx, req.TenantID, req.CustomerID); err != nil {
		a.Logger.WithError(err).WithFields(a.fields(req)).Warn("failed to increment rate counters")
	}
	if templateID != "" {
		if err := a.Templates.IncrementUsage(templateID); err != nil {
			a.Logger.WithError(err).Warn("failed to track template usage")
		}
	}
	if a.Metrics != nil {
		a.Metrics.MessagesSent.WithLabelValues(string(model.AgentReviewRequest), string(req.Method)).Inc()
	}
	return nil
}

// renderStep composes the message for a sequence step from the tenant's
// template, falling back to the built-in bank.
func (a *ReviewRequestAgent) renderStep(req *model.ReviewRequest, step int) (string, string, error) {
	text := DefaultReviewTemplate(step)
	templateID := ""

	tpl, err := a.Templates.GetByName(req.TenantID, model.AgentReviewRequest, ReviewTemplateName(step))
	if err != nil {
		return "", "", err
	}
	if tpl != nil {
		text = tpl.Text
		templateID = tpl.ID
	}

	data := map[string]string{
		"customerName": req.CustomerName,
		"jobType":      req.JobType,
		"businessName": req.Metadata["business_name"],
		"reviewLink":   platformRedirectURL(req.Platform, req.Metadata),
	}
	return RenderTemplate(text, data), templateID, nil
}

func (a *ReviewRequestAgent) fail(req *model.ReviewRequest, reason string) {
	if !req.Status.CanTransition(model.ReviewFailed) {
		return
	}
	req.Status = model.ReviewFailed
	req.NextFollowupAt = nil
	if err := a.Requests.Update(req); err != nil {
		a.Logger.WithError(err).WithFields(a.fields(req)).Error("failed to mark review request failed")
	}
	a.Logger.WithFields(a.fields(req)).WithField("reason", reason).Warn("review request failed")
}

func (a *ReviewRequestAgent) fields(req *model.ReviewRequest) logrus.Fields {
	return logrus.Fields{
		"request_id":  req.ID,
		"tenant_id":   req.TenantID,
		"customer_id": req.CustomerID,
	}
}

// platformRedirectURL picks the public review destination; a tenant's
// configured review_link wins over the per-platform defaults.
func platformRedirectURL(platform string, metadata map[string]string) string {
	if link := metadata["review_link"]; link != "" {
		return link
	}
	switch platform {
	case "facebook":
		return "https://www.facebook.com/reviews"
	case "yelp":
		return "https://www.yelp.com/writeareview"
	default:
		return "https://search.google.com/local/writereview"
	}
}

// sendCause normalizes the transport's two failure shapes (error vs.
// unsuccessful result) into one error.
func sendCause(result *transport.SendResult, err error) error {
	if err != nil {
		return err
	}
	if result != nil && result.Error != "" {
		return fmt.Errorf("%s", result.Error)
	}
	return fmt.Errorf("transport reported failure")
}

func violationSummaries(violations []Violation) []string {
	out := make([]string, 0, len(violations))
	for _, v := range violations {
		out = append(out, fmt.Sprintf("%s:%s", v.RuleType, v.Matched))
	}
	return out
}
