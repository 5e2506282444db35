package model

import "time"

// ReviewRequestStatus is the review-solicitation lifecycle state.
type ReviewRequestStatus string

const (
	ReviewPending   ReviewRequestStatus = "pending"
	ReviewSent      ReviewRequestStatus = "sent"
	ReviewDelivered ReviewRequestStatus = "delivered"
	ReviewClicked   ReviewRequestStatus = "clicked"
	ReviewReviewed  ReviewRequestStatus = "reviewed"
	ReviewFailed    ReviewRequestStatus = "failed"
)

// reviewTransitions lists the legal forward moves. reviewed is terminal;
// failed is reachable from every non-terminal state.
var reviewTransitions = map[ReviewRequestStatus][]ReviewRequestStatus{
	ReviewPending:   {ReviewSent, ReviewFailed},
	ReviewSent:      {ReviewDelivered, ReviewClicked, ReviewReviewed, ReviewFailed},
	ReviewDelivered: {ReviewClicked, ReviewReviewed, ReviewFailed},
	ReviewClicked:   {ReviewReviewed, ReviewFailed},
}

// CanTransition reports whether moving from s to next is legal.
func (s ReviewRequestStatus) CanTransition(next ReviewRequestStatus) bool {
	for _, allowed := range reviewTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are possible.
func (s ReviewRequestStatus) Terminal() bool {
	return len(reviewTransitions[s]) == 0
}

// DeliveryMethod is the channel a message goes out on.
type DeliveryMethod string

const (
	MethodSMS      DeliveryMethod = "sms"
	MethodWhatsApp DeliveryMethod = "whatsapp"
	MethodEmail    DeliveryMethod = "email"
)

// ReviewRequest is one review-solicitation lifecycle for one customer.
type ReviewRequest struct {
	ID             string              `db:"id" json:"id"`
	TenantID       string              `db:"tenant_id" json:"tenant_id"`
	CustomerID     string              `db:"customer_id" json:"customer_id"`
	CustomerName   string              `db:"customer_name" json:"customer_name"`
	JobID          string              `db:"job_id" json:"job_id,omitempty"`
	JobType        string              `db:"job_type" json:"job_type,omitempty"`
	Method         DeliveryMethod      `db:"method" json:"method"`
	ContactAddress string              `db:"contact_address" json:"contact_address"`
	Status         ReviewRequestStatus `db:"status" json:"status"`
	SequenceStep   int                 `db:"sequence_step" json:"sequence_step"`
	MaxSequences   int                 `db:"max_sequences" json:"max_sequences"`
	NextFollowupAt *time.Time          `db:"next_followup_at" json:"next_followup_at,omitempty"`
	Rating         *int                `db:"rating" json:"rating,omitempty"`
	ReviewText     string              `db:"review_text" json:"review_text,omitempty"`
	Platform       string              `db:"platform" json:"platform,omitempty"`
	IsNegative     bool                `db:"is_negative" json:"is_negative"`
	Metadata       map[string]string   `db:"metadata" json:"metadata,omitempty"`
	CreatedAt      time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time           `db:"updated_at" json:"updated_at"`
}
