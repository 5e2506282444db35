package model_test

import (
	"testing"

	"github.com/reviewloop/outreach-backend/internal/model"
)

func TestReviewRequestTransitions(t *testing.T) {
	allowed := []struct{ from, to model.ReviewRequestStatus }{
		{model.ReviewPending, model.ReviewSent},
		{model.ReviewSent, model.ReviewDelivered},
		{model.ReviewSent, model.ReviewReviewed},
		{model.ReviewDelivered, model.ReviewClicked},
		{model.ReviewClicked, model.ReviewReviewed},
		{model.ReviewSent, model.ReviewFailed},
	}
	for _, tc := range allowed {
		if !tc.from.CanTransition(tc.to) {
			t.Errorf("%s -> %s should be legal", tc.from, tc.to)
		}
	}

	forbidden := []struct{ from, to model.ReviewRequestStatus }{
		{model.ReviewPending, model.ReviewDelivered},
		{model.ReviewClicked, model.ReviewDelivered},
		{model.ReviewReviewed, model.ReviewSent},
		{model.ReviewFailed, model.ReviewSent},
		{model.ReviewReviewed, model.ReviewFailed},
	}
	for _, tc := range forbidden {
		if tc.from.CanTransition(tc.to) {
			t.Errorf("%s -> %s should be illegal", tc.from, tc.to)
		}
	}

	if !model.ReviewReviewed.Terminal() || !model.ReviewFailed.Terminal() {
		t.Error("reviewed and failed are terminal")
	}
	if model.ReviewSent.Terminal() {
		t.Error("sent is not terminal")
	}
}

func TestNurtureTransitionsOnlyLeaveActive(t *testing.T) {
	for _, next := range []model.NurtureStatus{
		model.NurtureCompleted, model.NurtureConverted, model.NurtureOptedOut, model.NurtureFailed,
	} {
		if !model.NurtureActive.CanTransition(next) {
			t.Errorf("active -> %s should be legal", next)
		}
		if next.CanTransition(model.NurtureActive) {
			t.Errorf("%s -> active should be illegal", next)
		}
		if !next.Terminal() {
			t.Errorf("%s should be terminal", next)
		}
	}
	if model.NurtureOptedOut.CanTransition(model.NurtureCompleted) {
		t.Error("terminal states have no outgoing edges")
	}
}

func TestSafetyActionPriorityOrdering(t *testing.T) {
	ordered := []model.SafetyAction{
		model.ActionAddDisclaimer, model.ActionWarn, model.ActionHandoff, model.ActionBlock,
	}
	for i := 1; i < len(ordered); i++ {
		if ordered[i].Priority() <= ordered[i-1].Priority() {
			t.Errorf("%s should outrank %s", ordered[i], ordered[i-1])
		}
	}
	if model.SafetyAction("bogus").Priority() != 0 {
		t.Error("unknown actions rank lowest")
	}
}

func TestSafetyRuleAppliesTo(t *testing.T) {
	global := &model.SafetyRule{}
	if !global.AppliesTo(model.AgentReviewRequest) || !global.AppliesTo(model.AgentLeadNurture) {
		t.Error("a rule with no agent types covers every agent")
	}

	scoped := &model.SafetyRule{AgentTypes: []model.AgentType{model.AgentLeadNurture}}
	if scoped.AppliesTo(model.AgentReviewRequest) {
		t.Error("scoped rule applied to the wrong agent")
	}
	if !scoped.AppliesTo(model.AgentLeadNurture) {
		t.Error("scoped rule missed its own agent")
	}
}
