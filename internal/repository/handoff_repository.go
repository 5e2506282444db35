package repository

import (
	"database/sql"
	"encoding/json"
	"time"

	appErrors "github.com/reviewloop/outreach-backend/internal/errors"
	"github.com/reviewloop/outreach-backend/internal/model"
)

type HandoffRepositoryInterface interface {
	Create(h *model.HumanHandoff) error
	GetByID(id string) (*model.HumanHandoff, error)
	Update(h *model.HumanHandoff) error
	ListByStatus(tenantID string, status model.HandoffStatus, limit int) ([]*model.HumanHandoff, error)
	HasOpenForConversation(conversationID string) (bool, error)
}

type HandoffRepository struct {
	DB *sql.DB
}

const handoffColumns = `id, tenant_id, agent_type, conversation_id, customer_id, reason, urgency,
        history, customer_context, suggested_actions, status, claimed_by, resolution_notes, created_at, updated_at`

func (r *HandoffRepository) Create(h *model.HumanHandoff) error {
	now := time.Now()
	h.CreatedAt = now
	h.UpdatedAt = now
	history, _ := json.Marshal(h.History)
	context, _ := json.Marshal(h.CustomerContext)
	actions, _ := json.Marshal(h.SuggestedActions)

	query := `
        INSERT INTO human_handoffs (` + handoffColumns + `)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
    `
	_, err := r.DB.Exec(query, h.ID, h.TenantID, h.AgentType, h.ConversationID, h.CustomerID,
		h.Reason, h.Urgency, history, context, actions, h.Status, h.ClaimedBy,
		h.ResolutionNotes, h.CreatedAt, h.UpdatedAt)
	return err
}

func (r *HandoffRepository) GetByID(id string) (*model.HumanHandoff, error) {
	query := `SELECT ` + handoffColumns + ` FROM human_handoffs WHERE id = $1`
	h, err := scanHandoff(r.DB.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewNotFound("handoff", id)
		}
		return nil, err
	}
	return h, nil
}

func (r *HandoffRepository) Update(h *model.HumanHandoff) error {
	h.UpdatedAt = time.Now()
	query := `
        UPDATE human_handoffs
        SET status=$1, claimed_by=$2, resolution_notes=$3, updated_at=$4
        WHERE id=$5
    `
	_, err := r.DB.Exec(query, h.Status, h.ClaimedBy, h.ResolutionNotes, h.UpdatedAt, h.ID)
	return err
}

func (r *HandoffRepository) ListByStatus(tenantID string, status model.HandoffStatus, limit int) ([]*model.HumanHandoff, error) {
	query := `
        SELECT ` + handoffColumns + `
        FROM human_handoffs
        WHERE tenant_id = $1 AND status = $2
        ORDER BY
            CASE urgency WHEN 'urgent' THEN 0 WHEN 'high' THEN 1 WHEN 'normal' THEN 2 ELSE 3 END,
            created_at
        LIMIT $3
    `
	rows, err := r.DB.Query(query, tenantID, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	handoffs := []*model.HumanHandoff{}
	for rows.Next() {
		h, err := scanHandoff(rows)
		if err != nil {
			return nil, err
		}
		handoffs = append(handoffs, h)
	}
	return handoffs, rows.Err()
}

// HasOpenForConversation reports whether the conversation has a handoff
// that no human has resolved yet.
func (r *HandoffRepository) HasOpenForConversation(conversationID string) (bool, error) {
	query := `
        SELECT EXISTS(
            SELECT 1 FROM human_handoffs
            WHERE conversation_id = $1 AND status IN ($2, $3)
        )
    `
	var open bool
	err := r.DB.QueryRow(query, conversationID, model.HandoffPending, model.HandoffClaimed).Scan(&open)
	return open, err
}

func scanHandoff(row rowScanner) (*model.HumanHandoff, error) {
	h := &model.HumanHandoff{}
	var history, context, actions []byte
	err := row.Scan(&h.ID, &h.TenantID, &h.AgentType, &h.ConversationID, &h.CustomerID,
		&h.Reason, &h.Urgency, &history, &context, &actions, &h.Status, &h.ClaimedBy,
		&h.ResolutionNotes, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := unmarshalColumn(history, &h.History); err != nil {
		return nil, err
	}
	if err := unmarshalColumn(context, &h.CustomerContext); err != nil {
		return nil, err
	}
	if err := unmarshalColumn(actions, &h.SuggestedActions); err != nil {
		return nil, err
	}
	return h, nil
}

var _ HandoffRepositoryInterface = (*HandoffRepository)(nil)
