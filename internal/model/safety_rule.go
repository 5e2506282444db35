package model

import "time"

// RuleType describes what kind of condition a safety rule encodes.
type RuleType string

const (
	RuleProhibitedTopic    RuleType = "prohibited_topic"
	RuleRequiredDisclaimer RuleType = "required_disclaimer"
	RuleHandoffTrigger     RuleType = "handoff_trigger"
)

// SafetyAction is the enforcement action attached to a rule. Actions are
// ordered: when several rules match one message the highest-priority action
// wins.
type SafetyAction string

const (
	ActionBlock         SafetyAction = "block"
	ActionHandoff       SafetyAction = "handoff"
	ActionWarn          SafetyAction = "warn"
	ActionAddDisclaimer SafetyAction = "add_disclaimer"
)

// Priority returns the rank of the action; block > handoff > warn >
// add_disclaimer. Unknown actions rank lowest.
func (a SafetyAction) Priority() int {
	switch a {
	case ActionBlock:
		return 4
	case ActionHandoff:
		return 3
	case ActionWarn:
		return 2
	case ActionAddDisclaimer:
		return 1
	}
	return 0
}

// AgentType identifies which automation agent a rule or template applies to.
type AgentType string

const (
	AgentReviewRequest AgentType = "review_request"
	AgentLeadNurture   AgentType = "lead_nurture"
)

// SafetyRule is a configured keyword/pattern match with an enforcement
// action. TenantID empty means the rule is global. Rules are read-only
// inputs to evaluation; tenant configuration owns their lifecycle.
type SafetyRule struct {
	ID         string            `db:"id" json:"id"`
	TenantID   string            `db:"tenant_id" json:"tenant_id,omitempty"`
	RuleType   RuleType          `db:"rule_type" json:"rule_type"`
	Keywords   []string          `db:"keywords" json:"keywords"`
	Patterns   []string          `db:"patterns" json:"patterns"`
	Action     SafetyAction      `db:"action" json:"action"`
	Metadata   map[string]string `db:"metadata" json:"metadata,omitempty"` // e.g. disclaimer text
	AgentTypes []AgentType       `db:"agent_types" json:"agent_types"`
	Active     bool              `db:"active" json:"active"`
	CreatedAt  time.Time         `db:"created_at" json:"created_at"`
}

// AppliesTo reports whether the rule covers the given agent. A rule with no
// agent types covers every agent.
func (r *SafetyRule) AppliesTo(agent AgentType) bool {
	if len(r.AgentTypes) == 0 {
		return true
	}
	for _, a := range r.AgentTypes {
		if a == agent {
			return true
		}
	}
	return false
}

// DisclaimerText returns the configured disclaimer for add_disclaimer rules.
func (r *SafetyRule) DisclaimerText() string {
	return r.Metadata["disclaimer"]
}
