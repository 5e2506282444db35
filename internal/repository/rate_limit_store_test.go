package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reviewloop/outreach-backend/internal/model"
	"github.com/reviewloop/outreach-backend/internal/repository"
)

func TestInMemoryStoreGetMissingReturnsNil(t *testing.T) {
	store := repository.NewInMemoryRateLimitStore()

	rec, err := store.Get(context.Background(), "tenant-1", "cust-1")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestInMemoryStoreSaveAndGet(t *testing.T) {
	ctx := context.Background()
	store := repository.NewInMemoryRateLimitStore()
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	require.NoError(t, store.Save(ctx, &model.CustomerRateLimit{
		TenantID:     "tenant-1",
		CustomerID:   "cust-1",
		DailyCount:   2,
		OptedOut:     true,
		OptOutReason: "Customer requested opt-out",
		LastResetAt:  now,
	}))

	rec, err := store.Get(ctx, "tenant-1", "cust-1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 2, rec.DailyCount)
	assert.True(t, rec.OptedOut)
	assert.Equal(t, now, rec.LastResetAt)
}

func TestInMemoryStoreIncrementAll(t *testing.T) {
	ctx := context.Background()
	store := repository.NewInMemoryRateLimitStore()
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	// First increment lazily creates the record.
	require.NoError(t, store.IncrementAll(ctx, "tenant-1", "cust-1", now))
	require.NoError(t, store.IncrementAll(ctx, "tenant-1", "cust-1", now.Add(time.Hour)))

	rec, err := store.Get(ctx, "tenant-1", "cust-1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 2, rec.DailyCount)
	assert.Equal(t, 2, rec.WeeklyCount)
	assert.Equal(t, 2, rec.MonthlyCount)
	require.NotNil(t, rec.LastInteractionAt)
	assert.Equal(t, now.Add(time.Hour), *rec.LastInteractionAt)
}

func TestInMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := repository.NewInMemoryRateLimitStore()

	require.NoError(t, store.Save(ctx, &model.CustomerRateLimit{TenantID: "tenant-1", CustomerID: "cust-1"}))

	rec, err := store.Get(ctx, "tenant-1", "cust-1")
	require.NoError(t, err)
	rec.DailyCount = 99

	fresh, err := store.Get(ctx, "tenant-1", "cust-1")
	require.NoError(t, err)
	assert.Zero(t, fresh.DailyCount, "mutating a returned record must not touch the store")
}

func TestInMemoryStoreScopesKeysByTenant(t *testing.T) {
	ctx := context.Background()
	store := repository.NewInMemoryRateLimitStore()
	now := time.Now()

	require.NoError(t, store.IncrementAll(ctx, "tenant-1", "cust-1", now))

	other, err := store.Get(ctx, "tenant-2", "cust-1")
	require.NoError(t, err)
	assert.Nil(t, other, "the same customer id under another tenant is a separate record")
}
