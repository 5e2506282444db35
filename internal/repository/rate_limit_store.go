package repository

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/reviewloop/outreach-backend/internal/model"
)

// RateLimitStore is the counter store behind the Rate Limit Engine. Records
// are created lazily by the engine and never deleted.
//
// The engine's read-then-write use of Get/Save is not atomic; see
// IncrementAll for the counter path, which is a single pipelined increment.
type RateLimitStore interface {
	// Get returns the stored record, or nil when none exists yet.
	Get(ctx context.Context, tenantID, customerID string) (*model.CustomerRateLimit, error)
	Save(ctx context.Context, rec *model.CustomerRateLimit) error
	// IncrementAll bumps all three window counters and stamps the last
	// interaction time.
	IncrementAll(ctx context.Context, tenantID, customerID string, now time.Time) error
}

// RedisRateLimitStore keeps one hash per (tenant, customer).
type RedisRateLimitStore struct {
	RDB *redis.Client
}

func rateLimitKey(tenantID, customerID string) string {
	return fmt.Sprintf("ratelimit:%s:%s", tenantID, customerID)
}

func (s *RedisRateLimitStore) Get(ctx context.Context, tenantID, customerID string) (*model.CustomerRateLimit, error) {
	fields, err := s.RDB.HGetAll(ctx, rateLimitKey(tenantID, customerID)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, nil
	}

	rec := &model.CustomerRateLimit{
		TenantID:     tenantID,
		CustomerID:   customerID,
		DailyCount:   atoi(fields["daily_count"]),
		WeeklyCount:  atoi(fields["weekly_count"]),
		MonthlyCount: atoi(fields["monthly_count"]),
		OptedOut:     fields["opted_out"] == "1",
		OptOutReason: fields["opt_out_reason"],
	}
	if t, err := time.Parse(time.RFC3339Nano, fields["last_reset_at"]); err == nil {
		rec.LastResetAt = t
	}
	if raw := fields["last_interaction_at"]; raw != "" {
		if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			rec.LastInteractionAt = &t
		}
	}
	return rec, nil
}

func (s *RedisRateLimitStore) Save(ctx context.Context, rec *model.CustomerRateLimit) error {
	optedOut := "0"
	if rec.OptedOut {
		optedOut = "1"
	}
	fields := map[string]interface{}{
		"daily_count":    rec.DailyCount,
		"weekly_count":   rec.WeeklyCount,
		"monthly_count":  rec.MonthlyCount,
		"opted_out":      optedOut,
		"opt_out_reason": rec.OptOutReason,
		"last_reset_at":  rec.LastResetAt.Format(time.RFC3339Nano),
	}
	if rec.LastInteractionAt != nil {
		fields["last_interaction_at"] = rec.LastInteractionAt.Format(time.RFC3339Nano)
	}
	return s.RDB.HSet(ctx, rateLimitKey(rec.TenantID, rec.CustomerID), fields).Err()
}

func (s *RedisRateLimitStore) IncrementAll(ctx context.Context, tenantID, customerID string, now time.Time) error {
	key := rateLimitKey(tenantID, customerID)
	pipe := s.RDB.Pipeline()
	pipe.HIncrBy(ctx, key, "daily_count", 1)
	pipe.HIncrBy(ctx, key, "weekly_count", 1)
	pipe.HIncrBy(ctx, key, "monthly_count", 1)
	pipe.HSet(ctx, key, "last_interaction_at", now.Format(time.RFC3339Nano))
	_, err := pipe.Exec(ctx)
	return err
}

var _ RateLimitStore = (*RedisRateLimitStore)(nil)

// InMemoryRateLimitStore backs tests and single-binary runs.
type InMemoryRateLimitStore struct {
	mu      sync.Mutex
	records map[string]*model.CustomerRateLimit
}

func NewInMemoryRateLimitStore() *InMemoryRateLimitStore {
	return &InMemoryRateLimitStore{records: make(map[string]*model.CustomerRateLimit)}
}

func (s *InMemoryRateLimitStore) Get(ctx context.Context, tenantID, customerID string) (*model.CustomerRateLimit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[rateLimitKey(tenantID, customerID)]
	if !ok {
		return nil, nil
	}
	copied := *rec
	return &copied, nil
}

func (s *InMemoryRateLimitStore) Save(ctx context.Context, rec *model.CustomerRateLimit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *rec
	s.records[rateLimitKey(rec.TenantID, rec.CustomerID)] = &copied
	return nil
}

func (s *InMemoryRateLimitStore) IncrementAll(ctx context.Context, tenantID, customerID string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := rateLimitKey(tenantID, customerID)
	rec, ok := s.records[key]
	if !ok {
		rec = &model.CustomerRateLimit{TenantID: tenantID, CustomerID: customerID, LastResetAt: now}
		s.records[key] = rec
	}
	rec.DailyCount++
	rec.WeeklyCount++
	rec.MonthlyCount++
	rec.LastInteractionAt = &now
	return nil
}

var _ RateLimitStore = (*InMemoryRateLimitStore)(nil)

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
