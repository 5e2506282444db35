package model

import "time"

// ResponseTemplate is a tenant-scoped message template with {{variable}}
// placeholders. Read-only to the engine except for usage tracking.
type ResponseTemplate struct {
	ID           string    `db:"id" json:"id"`
	TenantID     string    `db:"tenant_id" json:"tenant_id"`
	AgentType    AgentType `db:"agent_type" json:"agent_type"`
	Name         string    `db:"name" json:"name"`
	Category     string    `db:"category" json:"category"`
	Text         string    `db:"text" json:"text"`
	UsageCount   int       `db:"usage_count" json:"usage_count"`
	SuccessCount int       `db:"success_count" json:"success_count"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
