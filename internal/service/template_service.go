package service

import (
	"strings"

	"github.com/reviewloop/outreach-backend/internal/model"
)

// RenderTemplate substitutes {{variable}} placeholders in a template. Empty
// values are dropped along with their placeholder.
func RenderTemplate(template string, data map[string]string) string {
	result := template
	for k, v := range data {
		result = strings.ReplaceAll(result, "{{"+k+"}}", v)
	}
	return result
}

// Default review-request templates, indexed by sequence step (0 = initial
// message). Used when the tenant has not configured its own.
var defaultReviewTemplates = []string{
	"Hi {{customerName}}! Thanks for choosing {{businessName}} for your {{jobType}}. We'd love to hear how we did — would you mind leaving us a quick review? {{reviewLink}}",
	"Hi {{customerName}}, just checking in — if you have a minute, a quick review of your {{jobType}} would mean a lot to us at {{businessName}}. {{reviewLink}}",
	"Hi {{customerName}}, we hope everything is still working great after your {{jobType}}. A short review helps neighbors find us: {{reviewLink}}",
	"Hi {{customerName}}, last note from us — if you were happy with your {{jobType}}, we'd be grateful for a review. Thanks again from {{businessName}}!",
}

// DefaultReviewTemplate returns the built-in template for the given
// sequence step, clamping past the end of the bank.
func DefaultReviewTemplate(step int) string {
	if step < 0 {
		step = 0
	}
	if step >= len(defaultReviewTemplates) {
		step = len(defaultReviewTemplates) - 1
	}
	return defaultReviewTemplates[step]
}

// ReviewTemplateName is the tenant-configurable template name for a given
// step ("review_request_initial", "review_request_followup_1", ...).
func ReviewTemplateName(step int) string {
	if step == 0 {
		return "review_request_initial"
	}
	names := []string{"", "review_request_followup_1", "review_request_followup_2", "review_request_followup_3"}
	if step < len(names) {
		return names[step]
	}
	return names[len(names)-1]
}

// Canned nurture messages, three escalating variants per trigger type.
// Variant 0 opens the sequence; later variants back the scheduled
// follow-up steps.
var nurtureMessageBank = map[model.TriggerType][3]string{
	model.TriggerMissedCall: {
		"Hi {{leadName}}, this is {{businessName}} — sorry we missed your call! How can we help?",
		"Hi {{leadName}}, just following up on your call to {{businessName}}. Still happy to help if you need us.",
		"Hi {{leadName}}, we haven't been able to connect since your call. Reply any time and we'll get you sorted.",
	},
	model.TriggerAbandonedQuote: {
		"Hi {{leadName}}, you recently requested a quote from {{businessName}}. Any questions we can answer?",
		"Hi {{leadName}}, your quote from {{businessName}} is still available. Want us to walk you through it?",
		"Hi {{leadName}}, last reminder about your quote from {{businessName}} — happy to adjust it if anything changed.",
	},
	model.TriggerNoResponse: {
		"Hi {{leadName}}, just checking back in from {{businessName}}. Is this still something you're interested in?",
		"Hi {{leadName}}, we don't want to pester you — one quick nudge from {{businessName}} in case this slipped by.",
		"Hi {{leadName}}, we'll close this out for now, but reply any time and {{businessName}} will pick it right back up.",
	},
	model.TriggerColdLead: {
		"Hi {{leadName}}, it's been a while since we talked at {{businessName}}. Anything we can help with these days?",
		"Hi {{leadName}}, {{businessName}} here — we've helped a lot of folks with similar projects lately. Want to revisit yours?",
		"Hi {{leadName}}, one last hello from {{businessName}}. We're around whenever the timing is right.",
	},
}

// NurtureMessage returns the canned message for a trigger and zero-based
// variant, clamping past the end of the bank.
func NurtureMessage(trigger model.TriggerType, variant int) string {
	bank, ok := nurtureMessageBank[trigger]
	if !ok {
		bank = nurtureMessageBank[model.TriggerNoResponse]
	}
	if variant < 0 {
		variant = 0
	}
	if variant >= len(bank) {
		variant = len(bank) - 1
	}
	return bank[variant]
}

// NurtureTemplateName is the tenant-configurable template name for a
// trigger's opener.
func NurtureTemplateName(trigger model.TriggerType) string {
	return "nurture_" + string(trigger)
}

// Fixed replies used by the nurture agent's inbound branches.
const (
	HandoffAckMessage        = "Thanks for reaching out! One of our team members will get back to you personally very soon."
	OptOutConfirmMessage     = "You've been unsubscribed and won't receive further messages from us. Thanks for letting us know."
	NegativeReviewAckMessage = "Thank you for your feedback — we're sorry we fell short. Someone from our team will reach out to make it right."
)
