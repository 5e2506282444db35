package repository

import (
	"database/sql"
	"encoding/json"
	"time"

	appErrors "github.com/reviewloop/outreach-backend/internal/errors"
	"github.com/reviewloop/outreach-backend/internal/model"
)

type NurtureRepositoryInterface interface {
	CreateSequence(seq *model.NurtureSequence) error
	GetSequenceByID(id string) (*model.NurtureSequence, error)
	// GetActiveByLead returns the lead's active sequence, or nil when none
	// exists.
	GetActiveByLead(tenantID, leadID string) (*model.NurtureSequence, error)
	UpdateSequence(seq *model.NurtureSequence) error
	// ListDueSequences returns active sequences whose next action time has
	// elapsed and that still have steps left, bounded by limit.
	ListDueSequences(now time.Time, limit int) ([]*model.NurtureSequence, error)

	AppendMessage(msg *model.NurtureMessage) error
	UpdateMessage(msg *model.NurtureMessage) error
	UpdateMessageDeliveryStatus(id, status string) error
	ListMessages(sequenceID string) ([]*model.NurtureMessage, error)
}

type NurtureRepository struct {
	DB *sql.DB
}

const nurtureSequenceColumns = `id, tenant_id, lead_id, lead_name, contact_address, method, trigger_type,
        trigger_payload, sequence_step, max_steps, status, next_action_at, qualified,
        appointment_scheduled, converted_at, last_inbound_at, created_at, updated_at`

func (r *NurtureRepository) CreateSequence(seq *model.NurtureSequence) error {
	now := time.Now()
	seq.CreatedAt = now
	seq.UpdatedAt = now
	payload, _ := json.Marshal(seq.TriggerPayload)

	query := `
        INSERT INTO nurture_sequences (` + nurtureSequenceColumns + `)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
    `
	_, err := r.DB.Exec(query, seq.ID, seq.TenantID, seq.LeadID, seq.LeadName,
		seq.ContactAddress, seq.Method, seq.TriggerType, payload, seq.SequenceStep,
		seq.MaxSteps, seq.Status, seq.NextActionAt, seq.Qualified, seq.Appointment,
		seq.ConvertedAt, seq.LastInboundAt, seq.CreatedAt, seq.UpdatedAt)
	return err
}

func (r *NurtureRepository) GetSequenceByID(id string) (*model.NurtureSequence, error) {
	query := `SELECT ` + nurtureSequenceColumns + ` FROM nurture_sequences WHERE id = $1`
	seq, err := scanNurtureSequence(r.DB.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewNotFound("nurture sequence", id)
		}
		return nil, err
	}
	return seq, nil
}

func (r *NurtureRepository) GetActiveByLead(tenantID, leadID string) (*model.NurtureSequence, error) {
	query := `
        SELECT ` + nurtureSequenceColumns + `
        FROM nurture_sequences
        WHERE tenant_id = $1 AND lead_id = $2 AND status = 'active'
        LIMIT 1
    `
	seq, err := scanNurtureSequence(r.DB.QueryRow(query, tenantID, leadID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return seq, nil
}

func (r *NurtureRepository) UpdateSequence(seq *model.NurtureSequence) error {
	seq.UpdatedAt = time.Now()
	query := `
        UPDATE nurture_sequences
        SET sequence_step=$1, status=$2, next_action_at=$3, qualified=$4,
            appointment_scheduled=$5, converted_at=$6, last_inbound_at=$7, updated_at=$8
        WHERE id=$9
    `
	_, err := r.DB.Exec(query, seq.SequenceStep, seq.Status, seq.NextActionAt,
		seq.Qualified, seq.Appointment, seq.ConvertedAt, seq.LastInboundAt, seq.UpdatedAt, seq.ID)
	return err
}

func (r *NurtureRepository) ListDueSequences(now time.Time, limit int) ([]*model.NurtureSequence, error) {
	query := `
        SELECT ` + nurtureSequenceColumns + `
        FROM nurture_sequences
        WHERE status = 'active'
          AND next_action_at IS NOT NULL AND next_action_at <= $1
          AND sequence_step < max_steps
        ORDER BY next_action_at
        LIMIT $2
    `
	rows, err := r.DB.Query(query, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sequences := []*model.NurtureSequence{}
	for rows.Next() {
		seq, err := scanNurtureSequence(rows)
		if err != nil {
			return nil, err
		}
		sequences = append(sequences, seq)
	}
	return sequences, rows.Err()
}

func (r *NurtureRepository) AppendMessage(msg *model.NurtureMessage) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	query := `
        INSERT INTO nurture_messages (id, sequence_id, direction, text, method, delivery_status,
            intent, sentiment, handoff_needed, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
    `
	_, err := r.DB.Exec(query, msg.ID, msg.SequenceID, msg.Direction, msg.Text, msg.Method,
		msg.DeliveryStatus, msg.Intent, msg.Sentiment, msg.HandoffNeeded, msg.CreatedAt)
	return err
}

// UpdateMessage attaches delivery/analysis results; the message text itself
// is append-only and never rewritten.
func (r *NurtureRepository) UpdateMessage(msg *model.NurtureMessage) error {
	query := `
        UPDATE nurture_messages
        SET delivery_status=$1, intent=$2, sentiment=$3, handoff_needed=$4
        WHERE id=$5
    `
	_, err := r.DB.Exec(query, msg.DeliveryStatus, msg.Intent, msg.Sentiment, msg.HandoffNeeded, msg.ID)
	return err
}

// UpdateMessageDeliveryStatus is the transport worker's write-back path.
func (r *NurtureRepository) UpdateMessageDeliveryStatus(id, status string) error {
	_, err := r.DB.Exec(`UPDATE nurture_messages SET delivery_status=$1 WHERE id=$2`, status, id)
	return err
}

func (r *NurtureRepository) ListMessages(sequenceID string) ([]*model.NurtureMessage, error) {
	query := `
        SELECT id, sequence_id, direction, text, method, delivery_status, intent, sentiment, handoff_needed, created_at
        FROM nurture_messages
        WHERE sequence_id = $1
        ORDER BY created_at
    `
	rows, err := r.DB.Query(query, sequenceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []*model.NurtureMessage{}
	for rows.Next() {
		msg := &model.NurtureMessage{}
		if err := rows.Scan(&msg.ID, &msg.SequenceID, &msg.Direction, &msg.Text, &msg.Method,
			&msg.DeliveryStatus, &msg.Intent, &msg.Sentiment, &msg.HandoffNeeded, &msg.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func scanNurtureSequence(row rowScanner) (*model.NurtureSequence, error) {
	seq := &model.NurtureSequence{}
	var payload []byte
	err := row.Scan(&seq.ID, &seq.TenantID, &seq.LeadID, &seq.LeadName, &seq.ContactAddress,
		&seq.Method, &seq.TriggerType, &payload, &seq.SequenceStep, &seq.MaxSteps, &seq.Status,
		&seq.NextActionAt, &seq.Qualified, &seq.Appointment, &seq.ConvertedAt,
		&seq.LastInboundAt, &seq.CreatedAt, &seq.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := unmarshalColumn(payload, &seq.TriggerPayload); err != nil {
		return nil, err
	}
	return seq, nil
}

var _ NurtureRepositoryInterface = (*NurtureRepository)(nil)
