package service_test

import (
	"testing"

	"github.com/reviewloop/outreach-backend/internal/model"
	"github.com/reviewloop/outreach-backend/internal/service"
)

func newHandoffService(repo *MockHandoffRepo) *service.HandoffService {
	return &service.HandoffService{Repo: repo, Logger: testLogger()}
}

func TestHandoffOpenClaimResolve(t *testing.T) {
	repo := NewMockHandoffRepo()
	svc := newHandoffService(repo)

	handoff, err := svc.Open(service.HandoffInput{
		TenantID:   "tenant-1",
		AgentType:  model.AgentLeadNurture,
		CustomerID: "lead-1",
		Reason:     "Escalation requested",
		Urgency:    model.UrgencyHigh,
	})
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if handoff.Status != model.HandoffPending {
		t.Errorf("expected pending, got %s", handoff.Status)
	}

	pending, err := svc.ListPending("tenant-1", 10)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending handoff, got %d", len(pending))
	}

	claimed, err := svc.Claim(handoff.ID, "operator-7")
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if claimed.Status != model.HandoffClaimed || claimed.ClaimedBy != "operator-7" {
		t.Errorf("unexpected claim result: %+v", claimed)
	}

	resolved, err := svc.Resolve(handoff.ID, "called the customer", false)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if resolved.Status != model.HandoffResolved {
		t.Errorf("expected resolved, got %s", resolved.Status)
	}
	if resolved.ResolutionNotes != "called the customer" {
		t.Errorf("notes not saved: %q", resolved.ResolutionNotes)
	}
}

func TestHandoffClaimRequiresPending(t *testing.T) {
	repo := NewMockHandoffRepo()
	svc := newHandoffService(repo)

	handoff, err := svc.Open(service.HandoffInput{TenantID: "tenant-1", AgentType: model.AgentReviewRequest, CustomerID: "cust-1", Reason: "test"})
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if _, err := svc.Claim(handoff.ID, "op-1"); err != nil {
		t.Fatalf("first claim failed: %v", err)
	}
	if _, err := svc.Claim(handoff.ID, "op-2"); err == nil {
		t.Error("expected second claim to fail")
	}
}

func TestHandoffResolveCanEscalate(t *testing.T) {
	repo := NewMockHandoffRepo()
	svc := newHandoffService(repo)

	handoff, err := svc.Open(service.HandoffInput{TenantID: "tenant-1", AgentType: model.AgentReviewRequest, CustomerID: "cust-1", Reason: "test"})
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}

	escalated, err := svc.Resolve(handoff.ID, "needs a manager", true)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if escalated.Status != model.HandoffEscalated {
		t.Errorf("expected escalated, got %s", escalated.Status)
	}
}

func TestHandoffOpenDefaultsUrgency(t *testing.T) {
	repo := NewMockHandoffRepo()
	svc := newHandoffService(repo)

	handoff, err := svc.Open(service.HandoffInput{TenantID: "tenant-1", AgentType: model.AgentReviewRequest, CustomerID: "cust-1", Reason: "test"})
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if handoff.Urgency != model.UrgencyNormal {
		t.Errorf("expected normal urgency default, got %s", handoff.Urgency)
	}
}
