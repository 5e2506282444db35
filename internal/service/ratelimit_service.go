package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/reviewloop/outreach-backend/internal/metrics"
	"github.com/reviewloop/outreach-backend/internal/model"
	"github.com/reviewloop/outreach-backend/internal/repository"
)

const optOutReasonDenied = "Customer has opted out"

// RateLimiter enforces daily/weekly/monthly interaction ceilings and
// opt-out state per (tenant, customer).
//
// CheckLimit and IncrementCount are deliberately separate calls: callers
// check first and increment only after the message is actually accepted
// for delivery. Concurrent requests for one customer can therefore both
// pass the check before either increments — an accepted small over-limit
// window at expected traffic; strict enforcement would need an atomic
// compare-and-increment at the store.
type RateLimiter struct {
	Store   repository.RateLimitStore
	Logger  *logrus.Logger
	Metrics *metrics.Metrics

	DailyLimit   int
	WeeklyLimit  int
	MonthlyLimit int

	Now func() time.Time
}

func (rl *RateLimiter) now() time.Time {
	if rl.Now != nil {
		return rl.Now()
	}
	return time.Now()
}

// CheckLimit reports whether the customer may be contacted. A zeroed record
// is created lazily on first lookup. Counters are rolled over before any
// ceiling is compared.
func (rl *RateLimiter) CheckLimit(ctx context.Context, tenantID, customerID string) (*model.LimitCheck, error) {
	now := rl.now()

	rec, err := rl.Store.Get(ctx, tenantID, customerID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		rec = &model.CustomerRateLimit{
			TenantID:    tenantID,
			CustomerID:  customerID,
			LastResetAt: now,
		}
		if err := rl.Store.Save(ctx, rec); err != nil {
			return nil, err
		}
	}

	if rl.resetPass(rec, now) {
		if err := rl.Store.Save(ctx, rec); err != nil {
			return nil, err
		}
	}

	check := &model.LimitCheck{Allowed: true, Limits: *rec}

	switch {
	case rec.OptedOut:
		check.Allowed = false
		check.Reason = optOutReasonDenied
	case rec.DailyCount >= rl.DailyLimit:
		check.Allowed = false
		check.Window = model.WindowDaily
		check.Reason = "Daily contact limit reached"
	case rec.WeeklyCount >= rl.WeeklyLimit:
		check.Allowed = false
		check.Window = model.WindowWeekly
		check.Reason = "Weekly contact limit reached"
	case rec.MonthlyCount >= rl.MonthlyLimit:
		check.Allowed = false
		check.Window = model.WindowMonthly
		check.Reason = "Monthly contact limit reached"
	}

	if !check.Allowed && rl.Metrics != nil {
		window := string(check.Window)
		if window == "" {
			window = "opt_out"
		}
		rl.Metrics.RateLimitDenials.WithLabelValues(window).Inc()
	}

	return check, nil
}

// resetPass zeroes any counter whose window has elapsed since the last
// reset. The reset timestamp moves only when at least one window rolled
// over. Returns whether the record changed.
func (rl *RateLimiter) resetPass(rec *model.CustomerRateLimit, now time.Time) bool {
	elapsed := now.Sub(rec.LastResetAt)
	rolled := false

	if elapsed >= 24*time.Hour {
		rec.DailyCount = 0
		rolled = true
	}
	if elapsed >= 7*24*time.Hour {
		rec.WeeklyCount = 0
	}
	if elapsed >= 30*24*time.Hour {
		rec.MonthlyCount = 0
	}
	if rolled {
		rec.LastResetAt = now
	}
	return rolled
}

// IncrementCount bumps all three window counters unconditionally. Call only
// after the message was accepted for delivery.
func (rl *RateLimiter) IncrementCount(ctx context.Context, tenantID, customerID string) error {
	return rl.Store.IncrementAll(ctx, tenantID, customerID, rl.now())
}

// OptOut permanently suppresses automated contact for the customer. There
// is no automatic re-opt-in path; clearing the flag is a manual store
// operation.
func (rl *RateLimiter) OptOut(ctx context.Context, tenantID, customerID, reason string) error {
	rec, err := rl.Store.Get(ctx, tenantID, customerID)
	if err != nil {
		return err
	}
	if rec == nil {
		rec = &model.CustomerRateLimit{
			TenantID:    tenantID,
			CustomerID:  customerID,
			LastResetAt: rl.now(),
		}
	}
	rec.OptedOut = true
	rec.OptOutReason = reason
	if err := rl.Store.Save(ctx, rec); err != nil {
		return err
	}

	if rl.Metrics != nil {
		rl.Metrics.OptOuts.Inc()
	}
	rl.Logger.WithFields(logrus.Fields{
		"tenant_id":   tenantID,
		"customer_id": customerID,
		"reason":      reason,
	}).Info("customer opted out of automated contact")
	return nil
}
