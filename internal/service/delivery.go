package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/reviewloop/outreach-backend/internal/model"
	"github.com/reviewloop/outreach-backend/internal/queue"
	"github.com/reviewloop/outreach-backend/internal/repository"
	"github.com/reviewloop/outreach-backend/internal/transport"
)

// DeliveryProcessor sits on the consuming side of the outbound-send queue:
// it invokes the transport provider and writes delivery status back onto
// the owning record. A returned error requeues the job.
type DeliveryProcessor struct {
	Requests  repository.ReviewRequestRepositoryInterface
	Sequences repository.NurtureRepositoryInterface
	Provider  transport.Sender
	Logger    *logrus.Logger
}

func (p *DeliveryProcessor) Process(ctx context.Context, job queue.OutboundSendJob) error {
	fields := logrus.Fields{
		"tenant_id":    job.TenantID,
		"agent":        job.AgentType,
		"reference_id": job.ReferenceID,
	}

	result, err := p.Provider.Send(ctx, job)
	if err != nil || !result.Success {
		p.Logger.WithError(err).WithFields(fields).Warn("provider send failed")
		if job.AgentType == model.AgentLeadNurture && job.MessageID != "" {
			if uerr := p.Sequences.UpdateMessageDeliveryStatus(job.MessageID, "failed"); uerr != nil {
				p.Logger.WithError(uerr).WithFields(fields).Error("failed to record delivery failure")
			}
		}
		return sendCause(result, err)
	}

	switch job.AgentType {
	case model.AgentReviewRequest:
		req, err := p.Requests.GetByID(job.ReferenceID)
		if err != nil {
			return err
		}
		// Follow-up sends arrive while already delivered; only the first
		// confirmation moves the status.
		if req.Status.CanTransition(model.ReviewDelivered) {
			req.Status = model.ReviewDelivered
			if err := p.Requests.Update(req); err != nil {
				return err
			}
		}
	case model.AgentLeadNurture:
		if job.MessageID != "" {
			if err := p.Sequences.UpdateMessageDeliveryStatus(job.MessageID, "delivered"); err != nil {
				return err
			}
		}
	}

	p.Logger.WithFields(fields).Info("message delivered")
	return nil
}
