package transport

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/reviewloop/outreach-backend/internal/queue"
)

// SendResult is what the transport boundary reports back. Success means the
// message was accepted for delivery; final delivery status arrives later
// through the worker's callbacks.
type SendResult struct {
	Success           bool
	ProviderMessageID string
	Error             string
}

// Sender is the outbound message transport boundary. The engine treats a
// failure as non-fatal: the caller leaves state unchanged or marks the
// record failed, and the attempt is repeated by the batch re-run.
type Sender interface {
	Send(ctx context.Context, job queue.OutboundSendJob) (*SendResult, error)
}

// QueueSender hands the message to the durable send queue; acceptance by
// the queue counts as a successful transmission handoff.
type QueueSender struct {
	Queue queue.Queue
}

func (s *QueueSender) Send(ctx context.Context, job queue.OutboundSendJob) (*SendResult, error) {
	if err := s.Queue.Publish(queue.OutboundSendTopic, job); err != nil {
		return &SendResult{Success: false, Error: err.Error()}, err
	}
	return &SendResult{Success: true}, nil
}

// MockProvider simulates a delivery provider with a configurable success
// rate; used by the worker in local runs.
type MockProvider struct {
	SuccessRate float64
}

func (p *MockProvider) Send(ctx context.Context, job queue.OutboundSendJob) (*SendResult, error) {
	rate := p.SuccessRate
	if rate == 0 {
		rate = 0.9
	}
	if rand.Float64() < rate {
		return &SendResult{Success: true, ProviderMessageID: fmt.Sprintf("mock-%s-%s", job.Method, job.ReferenceID)}, nil
	}
	err := fmt.Errorf("mock %s provider rejected the message", job.Method)
	return &SendResult{Success: false, Error: err.Error()}, err
}

var _ Sender = (*QueueSender)(nil)
var _ Sender = (*MockProvider)(nil)
