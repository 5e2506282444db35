package model

import "time"

// RateWindow names one of the counting periods used to cap contact
// frequency.
type RateWindow string

const (
	WindowDaily   RateWindow = "daily"
	WindowWeekly  RateWindow = "weekly"
	WindowMonthly RateWindow = "monthly"
)

// CustomerRateLimit tracks interaction counters and opt-out state for one
// (tenant, customer) pair. Created lazily on first contact attempt and
// retained forever for audit.
type CustomerRateLimit struct {
	TenantID          string     `json:"tenant_id"`
	CustomerID        string     `json:"customer_id"`
	DailyCount        int        `json:"daily_count"`
	WeeklyCount       int        `json:"weekly_count"`
	MonthlyCount      int        `json:"monthly_count"`
	OptedOut          bool       `json:"opted_out"`
	OptOutReason      string     `json:"opt_out_reason,omitempty"`
	LastInteractionAt *time.Time `json:"last_interaction_at,omitempty"`
	LastResetAt       time.Time  `json:"last_reset_at"`
}

// LimitCheck is the outcome of a rate-limit check: whether contact is
// allowed, why not, and the counters as of the check.
type LimitCheck struct {
	Allowed bool              `json:"allowed"`
	Reason  string            `json:"reason,omitempty"`
	Window  RateWindow        `json:"window,omitempty"`
	Limits  CustomerRateLimit `json:"limits"`
}
