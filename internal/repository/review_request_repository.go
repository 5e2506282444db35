package repository

import (
	"database/sql"
	"encoding/json"
	"time"

	appErrors "github.com/reviewloop/outreach-backend/internal/errors"
	"github.com/reviewloop/outreach-backend/internal/model"
)

type ReviewRequestRepositoryInterface interface {
	Create(req *model.ReviewRequest) error
	GetByID(id string) (*model.ReviewRequest, error)
	Update(req *model.ReviewRequest) error
	// ListDueFollowups returns non-terminal requests whose follow-up time
	// has elapsed and that still have sequence steps left, bounded by limit.
	ListDueFollowups(now time.Time, limit int) ([]*model.ReviewRequest, error)
}

type ReviewRequestRepository struct {
	DB *sql.DB
}

const reviewRequestColumns = `id, tenant_id, customer_id, customer_name, job_id, job_type, method, contact_address,
        status, sequence_step, max_sequences, next_followup_at, rating, review_text, platform, is_negative,
        metadata, created_at, updated_at`

func (r *ReviewRequestRepository) Create(req *model.ReviewRequest) error {
	now := time.Now()
	req.CreatedAt = now
	req.UpdatedAt = now
	metadata, _ := json.Marshal(req.Metadata)

	query := `
        INSERT INTO review_requests (` + reviewRequestColumns + `)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
    `
	_, err := r.DB.Exec(query, req.ID, req.TenantID, req.CustomerID, req.CustomerName,
		req.JobID, req.JobType, req.Method, req.ContactAddress, req.Status,
		req.SequenceStep, req.MaxSequences, req.NextFollowupAt, req.Rating,
		req.ReviewText, req.Platform, req.IsNegative, metadata, req.CreatedAt, req.UpdatedAt)
	return err
}

func (r *ReviewRequestRepository) GetByID(id string) (*model.ReviewRequest, error) {
	query := `SELECT ` + reviewRequestColumns + ` FROM review_requests WHERE id = $1`
	req, err := scanReviewRequest(r.DB.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewNotFound("review request", id)
		}
		return nil, err
	}
	return req, nil
}

func (r *ReviewRequestRepository) Update(req *model.ReviewRequest) error {
	req.UpdatedAt = time.Now()
	metadata, _ := json.Marshal(req.Metadata)
	query := `
        UPDATE review_requests
        SET status=$1, sequence_step=$2, next_followup_at=$3, rating=$4, review_text=$5,
            platform=$6, is_negative=$7, metadata=$8, updated_at=$9
        WHERE id=$10
    `
	_, err := r.DB.Exec(query, req.Status, req.SequenceStep, req.NextFollowupAt,
		req.Rating, req.ReviewText, req.Platform, req.IsNegative, metadata, req.UpdatedAt, req.ID)
	return err
}

func (r *ReviewRequestRepository) ListDueFollowups(now time.Time, limit int) ([]*model.ReviewRequest, error) {
	query := `
        SELECT ` + reviewRequestColumns + `
        FROM review_requests
        WHERE status IN ('sent', 'delivered')
          AND next_followup_at IS NOT NULL AND next_followup_at <= $1
          AND sequence_step < max_sequences
        ORDER BY next_followup_at
        LIMIT $2
    `
	rows, err := r.DB.Query(query, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	requests := []*model.ReviewRequest{}
	for rows.Next() {
		req, err := scanReviewRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReviewRequest(row rowScanner) (*model.ReviewRequest, error) {
	req := &model.ReviewRequest{}
	var metadata []byte
	err := row.Scan(&req.ID, &req.TenantID, &req.CustomerID, &req.CustomerName,
		&req.JobID, &req.JobType, &req.Method, &req.ContactAddress, &req.Status,
		&req.SequenceStep, &req.MaxSequences, &req.NextFollowupAt, &req.Rating,
		&req.ReviewText, &req.Platform, &req.IsNegative, &metadata, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := unmarshalColumn(metadata, &req.Metadata); err != nil {
		return nil, err
	}
	return req, nil
}

var _ ReviewRequestRepositoryInterface = (*ReviewRequestRepository)(nil)
