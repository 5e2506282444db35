package service_test

import (
	"strings"
	"testing"

	"github.com/reviewloop/outreach-backend/internal/model"
	"github.com/reviewloop/outreach-backend/internal/service"
)

func TestRenderTemplateSubstitutesAllPlaceholders(t *testing.T) {
	template := "Hi {{customerName}}! Thanks for choosing us for your {{jobType}}."
	result := service.RenderTemplate(template, map[string]string{
		"customerName": "Ada",
		"jobType":      "HVAC repair",
	})

	expected := "Hi Ada! Thanks for choosing us for your HVAC repair."
	if result != expected {
		t.Errorf("expected %q, got %q", expected, result)
	}
	if strings.Contains(result, "{{") {
		t.Errorf("rendered message still contains a placeholder: %q", result)
	}
}

func TestRenderTemplateLeavesUnknownPlaceholders(t *testing.T) {
	result := service.RenderTemplate("Hello {{name}}, see {{link}}", map[string]string{"name": "Sam"})
	if result != "Hello Sam, see {{link}}" {
		t.Errorf("unexpected render result: %q", result)
	}
}

func TestRenderTemplateRepeatedPlaceholder(t *testing.T) {
	result := service.RenderTemplate("{{name}} and {{name}}", map[string]string{"name": "Ada"})
	if result != "Ada and Ada" {
		t.Errorf("unexpected render result: %q", result)
	}
}

func TestDefaultReviewTemplateClampsStep(t *testing.T) {
	if service.DefaultReviewTemplate(-1) != service.DefaultReviewTemplate(0) {
		t.Error("negative step should clamp to the first template")
	}
	if service.DefaultReviewTemplate(99) != service.DefaultReviewTemplate(3) {
		t.Error("out-of-range step should clamp to the last template")
	}
	for step := 0; step < 4; step++ {
		if !strings.Contains(service.DefaultReviewTemplate(step), "{{customerName}}") {
			t.Errorf("step %d template is missing the customerName placeholder", step)
		}
	}
}

func TestNurtureMessageFallsBackForUnknownTrigger(t *testing.T) {
	unknown := service.NurtureMessage(model.TriggerType("carrier_pigeon"), 0)
	if unknown != service.NurtureMessage(model.TriggerNoResponse, 0) {
		t.Error("unknown trigger should fall back to the no_response bank")
	}
}

func TestNurtureMessageClampsVariant(t *testing.T) {
	last := service.NurtureMessage(model.TriggerMissedCall, 2)
	if service.NurtureMessage(model.TriggerMissedCall, 10) != last {
		t.Error("out-of-range variant should clamp to the last message")
	}
}

func TestNurtureTemplateName(t *testing.T) {
	if got := service.NurtureTemplateName(model.TriggerMissedCall); got != "nurture_missed_call" {
		t.Errorf("unexpected template name: %q", got)
	}
}

func TestReviewTemplateName(t *testing.T) {
	cases := map[int]string{
		0: "review_request_initial",
		1: "review_request_followup_1",
		2: "review_request_followup_2",
		3: "review_request_followup_3",
		9: "review_request_followup_3",
	}
	for step, want := range cases {
		if got := service.ReviewTemplateName(step); got != want {
			t.Errorf("step %d: expected %q, got %q", step, want, got)
		}
	}
}
