package model

import "time"

// HandoffUrgency ranks how quickly a human should pick up an escalation.
type HandoffUrgency string

const (
	UrgencyLow    HandoffUrgency = "low"
	UrgencyNormal HandoffUrgency = "normal"
	UrgencyHigh   HandoffUrgency = "high"
	UrgencyUrgent HandoffUrgency = "urgent"
)

// HandoffStatus tracks an escalation through the operator queue.
type HandoffStatus string

const (
	HandoffPending   HandoffStatus = "pending"
	HandoffClaimed   HandoffStatus = "claimed"
	HandoffResolved  HandoffStatus = "resolved"
	HandoffEscalated HandoffStatus = "escalated"
)

// HandoffMessage is one line of the conversation snapshot captured when a
// handoff is opened.
type HandoffMessage struct {
	Direction MessageDirection `json:"direction"`
	Text      string           `json:"text"`
	SentAt    time.Time        `json:"sent_at"`
}

// HumanHandoff is a durable escalation record routing a conversation to a
// human operator. Created once per triggering event, never auto-deleted,
// and closed only by a human action.
type HumanHandoff struct {
	ID               string            `db:"id" json:"id"`
	TenantID         string            `db:"tenant_id" json:"tenant_id"`
	AgentType        AgentType         `db:"agent_type" json:"agent_type"`
	ConversationID   string            `db:"conversation_id" json:"conversation_id"`
	CustomerID       string            `db:"customer_id" json:"customer_id"`
	Reason           string            `db:"reason" json:"reason"`
	Urgency          HandoffUrgency    `db:"urgency" json:"urgency"`
	History          []HandoffMessage  `db:"history" json:"history,omitempty"`
	CustomerContext  map[string]string `db:"customer_context" json:"customer_context,omitempty"`
	SuggestedActions []string          `db:"suggested_actions" json:"suggested_actions,omitempty"`
	Status           HandoffStatus     `db:"status" json:"status"`
	ClaimedBy        string            `db:"claimed_by" json:"claimed_by,omitempty"`
	ResolutionNotes  string            `db:"resolution_notes" json:"resolution_notes,omitempty"`
	CreatedAt        time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time         `db:"updated_at" json:"updated_at"`
}
