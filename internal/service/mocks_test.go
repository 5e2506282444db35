package service_test

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	appErrors "github.com/reviewloop/outreach-backend/internal/errors"
	"github.com/reviewloop/outreach-backend/internal/model"
	"github.com/reviewloop/outreach-backend/internal/queue"
	"github.com/reviewloop/outreach-backend/internal/transport"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// --- Mock repositories shared by the service tests ---

type MockRuleRepo struct {
	Rules     []*model.SafetyRule
	ListCalls int
	Err       error
}

func (m *MockRuleRepo) ListActive(tenantID string) ([]*model.SafetyRule, error) {
	m.ListCalls++
	if m.Err != nil {
		return nil, m.Err
	}
	out := []*model.SafetyRule{}
	for _, r := range m.Rules {
		if r.TenantID == "" || r.TenantID == tenantID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MockRuleRepo) Create(rule *model.SafetyRule) error {
	m.Rules = append(m.Rules, rule)
	return nil
}

type MockTemplateRepo struct {
	Templates  map[string]*model.ResponseTemplate // keyed by name
	UsageCalls map[string]int
}

func (m *MockTemplateRepo) GetByName(tenantID string, agent model.AgentType, name string) (*model.ResponseTemplate, error) {
	return m.Templates[name], nil
}

func (m *MockTemplateRepo) IncrementUsage(id string) error {
	if m.UsageCalls == nil {
		m.UsageCalls = map[string]int{}
	}
	m.UsageCalls[id]++
	return nil
}

func (m *MockTemplateRepo) IncrementSuccess(id string) error { return nil }

func (m *MockTemplateRepo) Create(t *model.ResponseTemplate) error { return nil }

type MockRequestRepo struct {
	mu       sync.Mutex
	Requests map[string]*model.ReviewRequest
}

func NewMockRequestRepo() *MockRequestRepo {
	return &MockRequestRepo{Requests: map[string]*model.ReviewRequest{}}
}

func (m *MockRequestRepo) Create(req *model.ReviewRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *req
	m.Requests[req.ID] = &copied
	return nil
}

func (m *MockRequestRepo) GetByID(id string) (*model.ReviewRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.Requests[id]
	if !ok {
		return nil, appErrors.NewNotFound("review request", id)
	}
	copied := *req
	return &copied, nil
}

func (m *MockRequestRepo) Update(req *model.ReviewRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *req
	m.Requests[req.ID] = &copied
	return nil
}

func (m *MockRequestRepo) ListDueFollowups(now time.Time, limit int) ([]*model.ReviewRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	due := []*model.ReviewRequest{}
	for _, req := range m.Requests {
		if req.Status != model.ReviewSent && req.Status != model.ReviewDelivered {
			continue
		}
		if req.NextFollowupAt == nil || req.NextFollowupAt.After(now) {
			continue
		}
		if req.SequenceStep >= req.MaxSequences {
			continue
		}
		copied := *req
		due = append(due, &copied)
		if len(due) >= limit {
			break
		}
	}
	return due, nil
}

type MockNurtureRepo struct {
	mu        sync.Mutex
	Sequences map[string]*model.NurtureSequence
	Messages  []*model.NurtureMessage
}

func NewMockNurtureRepo() *MockNurtureRepo {
	return &MockNurtureRepo{Sequences: map[string]*model.NurtureSequence{}}
}

func (m *MockNurtureRepo) CreateSequence(seq *model.NurtureSequence) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *seq
	m.Sequences[seq.ID] = &copied
	return nil
}

func (m *MockNurtureRepo) GetSequenceByID(id string) (*model.NurtureSequence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seq, ok := m.Sequences[id]
	if !ok {
		return nil, appErrors.NewNotFound("nurture sequence", id)
	}
	copied := *seq
	return &copied, nil
}

func (m *MockNurtureRepo) GetActiveByLead(tenantID, leadID string) (*model.NurtureSequence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, seq := range m.Sequences {
		if seq.TenantID == tenantID && seq.LeadID == leadID && seq.Status == model.NurtureActive {
			copied := *seq
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *MockNurtureRepo) UpdateSequence(seq *model.NurtureSequence) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *seq
	m.Sequences[seq.ID] = &copied
	return nil
}

func (m *MockNurtureRepo) ListDueSequences(now time.Time, limit int) ([]*model.NurtureSequence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	due := []*model.NurtureSequence{}
	for _, seq := range m.Sequences {
		if seq.Status != model.NurtureActive {
			continue
		}
		if seq.NextActionAt == nil || seq.NextActionAt.After(now) {
			continue
		}
		if seq.SequenceStep >= seq.MaxSteps {
			continue
		}
		copied := *seq
		due = append(due, &copied)
		if len(due) >= limit {
			break
		}
	}
	return due, nil
}

func (m *MockNurtureRepo) AppendMessage(msg *model.NurtureMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *msg
	m.Messages = append(m.Messages, &copied)
	return nil
}

func (m *MockNurtureRepo) UpdateMessage(msg *model.NurtureMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.Messages {
		if existing.ID == msg.ID {
			copied := *msg
			m.Messages[i] = &copied
			return nil
		}
	}
	return appErrors.NewNotFound("nurture message", msg.ID)
}

func (m *MockNurtureRepo) UpdateMessageDeliveryStatus(id, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.Messages {
		if existing.ID == id {
			existing.DeliveryStatus = status
			return nil
		}
	}
	return appErrors.NewNotFound("nurture message", id)
}

func (m *MockNurtureRepo) ListMessages(sequenceID string) ([]*model.NurtureMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*model.NurtureMessage{}
	for _, msg := range m.Messages {
		if msg.SequenceID == sequenceID {
			copied := *msg
			out = append(out, &copied)
		}
	}
	return out, nil
}

// Outbound returns the texts of outbound messages for a sequence, in order.
func (m *MockNurtureRepo) Outbound(sequenceID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []string{}
	for _, msg := range m.Messages {
		if msg.SequenceID == sequenceID && msg.Direction == model.DirectionOutbound {
			out = append(out, msg.Text)
		}
	}
	return out
}

type MockHandoffRepo struct {
	mu       sync.Mutex
	Handoffs map[string]*model.HumanHandoff
}

func NewMockHandoffRepo() *MockHandoffRepo {
	return &MockHandoffRepo{Handoffs: map[string]*model.HumanHandoff{}}
}

func (m *MockHandoffRepo) Create(h *model.HumanHandoff) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *h
	m.Handoffs[h.ID] = &copied
	return nil
}

func (m *MockHandoffRepo) GetByID(id string) (*model.HumanHandoff, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.Handoffs[id]
	if !ok {
		return nil, appErrors.NewNotFound("handoff", id)
	}
	copied := *h
	return &copied, nil
}

func (m *MockHandoffRepo) Update(h *model.HumanHandoff) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *h
	m.Handoffs[h.ID] = &copied
	return nil
}

func (m *MockHandoffRepo) ListByStatus(tenantID string, status model.HandoffStatus, limit int) ([]*model.HumanHandoff, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*model.HumanHandoff{}
	for _, h := range m.Handoffs {
		if h.TenantID == tenantID && h.Status == status {
			copied := *h
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *MockHandoffRepo) HasOpenForConversation(conversationID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, h := range m.Handoffs {
		if h.ConversationID == conversationID &&
			(h.Status == model.HandoffPending || h.Status == model.HandoffClaimed) {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockHandoffRepo) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Handoffs)
}

// MockSender records accepted sends and can be told to fail.
type MockSender struct {
	mu   sync.Mutex
	Sent []queue.OutboundSendJob
	Fail bool
}

func (m *MockSender) Send(ctx context.Context, job queue.OutboundSendJob) (*transport.SendResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		err := fmt.Errorf("mock transport failure")
		return &transport.SendResult{Success: false, Error: err.Error()}, err
	}
	m.Sent = append(m.Sent, job)
	return &transport.SendResult{Success: true, ProviderMessageID: "prov-1"}, nil
}

func (m *MockSender) SentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent)
}
