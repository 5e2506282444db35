package repository

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/reviewloop/outreach-backend/internal/model"
)

type SafetyRuleRepositoryInterface interface {
	// ListActive returns the union of global rules and the tenant's own
	// rules that are flagged active.
	ListActive(tenantID string) ([]*model.SafetyRule, error)
	Create(rule *model.SafetyRule) error
}

type SafetyRuleRepository struct {
	DB *sql.DB
}

func (r *SafetyRuleRepository) ListActive(tenantID string) ([]*model.SafetyRule, error) {
	query := `
        SELECT id, tenant_id, rule_type, keywords, patterns, action, metadata, agent_types, active, created_at
        FROM safety_rules
        WHERE active = TRUE AND (tenant_id = '' OR tenant_id = $1)
        ORDER BY created_at
    `
	rows, err := r.DB.Query(query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rules := []*model.SafetyRule{}
	for rows.Next() {
		rule := &model.SafetyRule{}
		var keywords, patterns, metadata, agentTypes []byte
		if err := rows.Scan(&rule.ID, &rule.TenantID, &rule.RuleType, &keywords, &patterns,
			&rule.Action, &metadata, &agentTypes, &rule.Active, &rule.CreatedAt); err != nil {
			return nil, err
		}
		if err := unmarshalColumn(keywords, &rule.Keywords); err != nil {
			return nil, err
		}
		if err := unmarshalColumn(patterns, &rule.Patterns); err != nil {
			return nil, err
		}
		if err := unmarshalColumn(metadata, &rule.Metadata); err != nil {
			return nil, err
		}
		if err := unmarshalColumn(agentTypes, &rule.AgentTypes); err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

func (r *SafetyRuleRepository) Create(rule *model.SafetyRule) error {
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = time.Now()
	}
	keywords, _ := json.Marshal(rule.Keywords)
	patterns, _ := json.Marshal(rule.Patterns)
	metadata, _ := json.Marshal(rule.Metadata)
	agentTypes, _ := json.Marshal(rule.AgentTypes)

	query := `
        INSERT INTO safety_rules (id, tenant_id, rule_type, keywords, patterns, action, metadata, agent_types, active, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
    `
	_, err := r.DB.Exec(query, rule.ID, rule.TenantID, rule.RuleType, keywords, patterns,
		rule.Action, metadata, agentTypes, rule.Active, rule.CreatedAt)
	return err
}

// unmarshalColumn decodes a raw JSON column, tolerating NULL/empty values.
func unmarshalColumn(raw []byte, target any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, target)
}

var _ SafetyRuleRepositoryInterface = (*SafetyRuleRepository)(nil)
