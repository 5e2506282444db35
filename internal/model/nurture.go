package model

import "time"

// NurtureStatus is the lead-nurture lifecycle state. active is the only
// state that processes messages; everything else is terminal.
type NurtureStatus string

const (
	NurtureActive    NurtureStatus = "active"
	NurtureCompleted NurtureStatus = "completed"
	NurtureConverted NurtureStatus = "converted"
	NurtureOptedOut  NurtureStatus = "opted_out"
	NurtureFailed    NurtureStatus = "failed"
)

// CanTransition reports whether moving from s to next is legal. Only active
// has outgoing edges.
func (s NurtureStatus) CanTransition(next NurtureStatus) bool {
	if s != NurtureActive {
		return false
	}
	switch next {
	case NurtureCompleted, NurtureConverted, NurtureOptedOut, NurtureFailed:
		return true
	}
	return false
}

// Terminal reports whether the sequence can no longer change state.
func (s NurtureStatus) Terminal() bool { return s != NurtureActive }

// TriggerType is the event that starts a nurture sequence.
type TriggerType string

const (
	TriggerMissedCall     TriggerType = "missed_call"
	TriggerAbandonedQuote TriggerType = "abandoned_quote"
	TriggerNoResponse     TriggerType = "no_response"
	TriggerColdLead       TriggerType = "cold_lead"
)

// NurtureSequence is one multi-step recovery conversation for one lead.
// At most one active sequence exists per (tenant, lead).
type NurtureSequence struct {
	ID             string            `db:"id" json:"id"`
	TenantID       string            `db:"tenant_id" json:"tenant_id"`
	LeadID         string            `db:"lead_id" json:"lead_id"`
	LeadName       string            `db:"lead_name" json:"lead_name"`
	ContactAddress string            `db:"contact_address" json:"contact_address"`
	Method         DeliveryMethod    `db:"method" json:"method"`
	TriggerType    TriggerType       `db:"trigger_type" json:"trigger_type"`
	TriggerPayload map[string]string `db:"trigger_payload" json:"trigger_payload,omitempty"`
	SequenceStep   int               `db:"sequence_step" json:"sequence_step"`
	MaxSteps       int               `db:"max_steps" json:"max_steps"`
	Status         NurtureStatus     `db:"status" json:"status"`
	NextActionAt   *time.Time        `db:"next_action_at" json:"next_action_at,omitempty"`
	Qualified      bool              `db:"qualified" json:"qualified"`
	Appointment    bool              `db:"appointment_scheduled" json:"appointment_scheduled"`
	ConvertedAt    *time.Time        `db:"converted_at" json:"converted_at,omitempty"`
	LastInboundAt  *time.Time        `db:"last_inbound_at" json:"last_inbound_at,omitempty"`
	CreatedAt      time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time         `db:"updated_at" json:"updated_at"`
}

// MessageDirection distinguishes sides of the conversation log.
type MessageDirection string

const (
	DirectionOutbound MessageDirection = "outbound"
	DirectionInbound  MessageDirection = "inbound"
)

// Intent is the coarse meaning extracted from an inbound message.
type Intent string

const (
	IntentQuestion      Intent = "question"
	IntentObjection     Intent = "objection"
	IntentReadyToBuy    Intent = "ready_to_buy"
	IntentNotInterested Intent = "not_interested"
	IntentUnclear       Intent = "unclear"
)

// Sentiment is the coarse tone of an inbound message.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// NurtureMessage is one entry in a sequence's append-only conversation log.
// Delivery status and intent/sentiment are attached after creation; the
// text itself is never mutated.
type NurtureMessage struct {
	ID             string           `db:"id" json:"id"`
	SequenceID     string           `db:"sequence_id" json:"sequence_id"`
	Direction      MessageDirection `db:"direction" json:"direction"`
	Text           string           `db:"text" json:"text"`
	Method         DeliveryMethod   `db:"method" json:"method"`
	DeliveryStatus string           `db:"delivery_status" json:"delivery_status,omitempty"`
	Intent         Intent           `db:"intent" json:"intent,omitempty"`
	Sentiment      Sentiment        `db:"sentiment" json:"sentiment,omitempty"`
	HandoffNeeded  bool             `db:"handoff_needed" json:"handoff_needed"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
}
