package repository

import (
	"database/sql"
	"time"

	"github.com/reviewloop/outreach-backend/internal/model"
)

type TemplateRepositoryInterface interface {
	GetByName(tenantID string, agent model.AgentType, name string) (*model.ResponseTemplate, error)
	IncrementUsage(id string) error
	IncrementSuccess(id string) error
	Create(t *model.ResponseTemplate) error
}

type TemplateRepository struct {
	DB *sql.DB
}

// GetByName fetches a tenant's template by name; returns nil when the
// tenant has not configured one (the caller falls back to the built-in
// default).
func (r *TemplateRepository) GetByName(tenantID string, agent model.AgentType, name string) (*model.ResponseTemplate, error) {
	query := `
        SELECT id, tenant_id, agent_type, name, category, text, usage_count, success_count, created_at
        FROM response_templates
        WHERE tenant_id = $1 AND agent_type = $2 AND name = $3
    `
	var t model.ResponseTemplate
	err := r.DB.QueryRow(query, tenantID, agent, name).Scan(
		&t.ID, &t.TenantID, &t.AgentType, &t.Name, &t.Category,
		&t.Text, &t.UsageCount, &t.SuccessCount, &t.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

func (r *TemplateRepository) IncrementUsage(id string) error {
	_, err := r.DB.Exec(`UPDATE response_templates SET usage_count = usage_count + 1 WHERE id = $1`, id)
	return err
}

func (r *TemplateRepository) IncrementSuccess(id string) error {
	_, err := r.DB.Exec(`UPDATE response_templates SET success_count = success_count + 1 WHERE id = $1`, id)
	return err
}

func (r *TemplateRepository) Create(t *model.ResponseTemplate) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	query := `
        INSERT INTO response_templates (id, tenant_id, agent_type, name, category, text, usage_count, success_count, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `
	_, err := r.DB.Exec(query, t.ID, t.TenantID, t.AgentType, t.Name, t.Category,
		t.Text, t.UsageCount, t.SuccessCount, t.CreatedAt)
	return err
}

var _ TemplateRepositoryInterface = (*TemplateRepository)(nil)
