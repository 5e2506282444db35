package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/reviewloop/outreach-backend/internal/model"
	"github.com/reviewloop/outreach-backend/internal/queue"
	"github.com/reviewloop/outreach-backend/internal/service"
)

func TestDeliveryProcessorMarksReviewRequestDelivered(t *testing.T) {
	requests := NewMockRequestRepo()
	requests.Requests["req-1"] = &model.ReviewRequest{ID: "req-1", Status: model.ReviewSent}

	p := &service.DeliveryProcessor{
		Requests:  requests,
		Sequences: NewMockNurtureRepo(),
		Provider:  &MockSender{},
		Logger:    testLogger(),
	}

	err := p.Process(context.Background(), queue.OutboundSendJob{
		TenantID:    "tenant-1",
		AgentType:   model.AgentReviewRequest,
		ReferenceID: "req-1",
	})
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if requests.Requests["req-1"].Status != model.ReviewDelivered {
		t.Errorf("expected delivered, got %s", requests.Requests["req-1"].Status)
	}
}

func TestDeliveryProcessorFollowupLeavesTerminalStatus(t *testing.T) {
	requests := NewMockRequestRepo()
	requests.Requests["req-1"] = &model.ReviewRequest{ID: "req-1", Status: model.ReviewClicked}

	p := &service.DeliveryProcessor{
		Requests:  requests,
		Sequences: NewMockNurtureRepo(),
		Provider:  &MockSender{},
		Logger:    testLogger(),
	}

	err := p.Process(context.Background(), queue.OutboundSendJob{
		AgentType:   model.AgentReviewRequest,
		ReferenceID: "req-1",
	})
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if requests.Requests["req-1"].Status != model.ReviewClicked {
		t.Errorf("a later send must not regress the status, got %s", requests.Requests["req-1"].Status)
	}
}

func TestDeliveryProcessorUpdatesNurtureMessage(t *testing.T) {
	sequences := NewMockNurtureRepo()
	if err := sequences.AppendMessage(&model.NurtureMessage{
		ID:             "msg-1",
		SequenceID:     "seq-1",
		Direction:      model.DirectionOutbound,
		DeliveryStatus: "sent",
		CreatedAt:      time.Now(),
	}); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	p := &service.DeliveryProcessor{
		Requests:  NewMockRequestRepo(),
		Sequences: sequences,
		Provider:  &MockSender{},
		Logger:    testLogger(),
	}

	err := p.Process(context.Background(), queue.OutboundSendJob{
		AgentType:   model.AgentLeadNurture,
		ReferenceID: "seq-1",
		MessageID:   "msg-1",
	})
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}

	messages, _ := sequences.ListMessages("seq-1")
	if len(messages) != 1 || messages[0].DeliveryStatus != "delivered" {
		t.Errorf("expected delivered status, got %+v", messages)
	}
}

func TestDeliveryProcessorFailureRequeues(t *testing.T) {
	sequences := NewMockNurtureRepo()
	if err := sequences.AppendMessage(&model.NurtureMessage{
		ID:             "msg-1",
		SequenceID:     "seq-1",
		Direction:      model.DirectionOutbound,
		DeliveryStatus: "sent",
	}); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	p := &service.DeliveryProcessor{
		Requests:  NewMockRequestRepo(),
		Sequences: sequences,
		Provider:  &MockSender{Fail: true},
		Logger:    testLogger(),
	}

	err := p.Process(context.Background(), queue.OutboundSendJob{
		AgentType:   model.AgentLeadNurture,
		ReferenceID: "seq-1",
		MessageID:   "msg-1",
	})
	if err == nil {
		t.Fatal("expected an error so the job is requeued")
	}

	messages, _ := sequences.ListMessages("seq-1")
	if messages[0].DeliveryStatus != "failed" {
		t.Errorf("expected failed status, got %q", messages[0].DeliveryStatus)
	}
}
