package services_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BradenHooton/adminauth/internal/models"
	"github.com/BradenHooton/adminauth/internal/repositories"
	"github.com/BradenHooton/adminauth/internal/services"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newTestRateLimiter(t *testing.T, clock *fakeClock) (*services.RateLimitService, *repositories.MemoryAttemptStore) {
	t.Helper()

	store, err := repositories.NewMemoryAttemptStore(100)
	require.NoError(t, err)

	svc := services.NewRateLimitService(store, services.RateLimitConfig{
		MaxAttempts:     5,
		Window:          15 * time.Minute,
		LockoutDuration: 15 * time.Minute,
	}, discardLogger())
	svc.SetNowFunc(clock.Now)
	return svc, store
}

func TestRateLimitService_AllowsUnknownIdentity(t *testing.T) {
	svc, _ := newTestRateLimiter(t, newFakeClock())

	result := svc.CheckRateLimit(context.Background(), "192.168.1.1")
	assert.True(t, result.Allowed)
	assert.Nil(t, result.LockedUntil)
}

func TestRateLimitService_LocksAfterMaxAttempts(t *testing.T) {
	clock := newFakeClock()
	svc, store := newTestRateLimiter(t, clock)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		svc.RecordFailedAttempt(ctx, "192.168.1.1")
		assert.True(t, svc.CheckRateLimit(ctx, "192.168.1.1").Allowed, "attempt %d should not lock", i+1)
	}

	svc.RecordFailedAttempt(ctx, "192.168.1.1")

	result := svc.CheckRateLimit(ctx, "192.168.1.1")
	assert.False(t, result.Allowed)
	require.NotNil(t, result.LockedUntil)
	assert.Equal(t, clock.Now().Add(15*time.Minute), *result.LockedUntil)

	record, err := store.Get(ctx, "192.168.1.1")
	require.NoError(t, err)
	assert.Equal(t, 5, record.FailureCount)
	assert.Equal(t, *result.LockedUntil, record.ExpiresAt)
}

func TestRateLimitService_IdentitiesAreIndependent(t *testing.T) {
	svc, _ := newTestRateLimiter(t, newFakeClock())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		svc.RecordFailedAttempt(ctx, "10.0.0.1")
	}

	assert.False(t, svc.CheckRateLimit(ctx, "10.0.0.1").Allowed)
	assert.True(t, svc.CheckRateLimit(ctx, "10.0.0.2").Allowed)
}

func TestRateLimitService_LockoutElapses(t *testing.T) {
	clock := newFakeClock()
	svc, store := newTestRateLimiter(t, clock)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		svc.RecordFailedAttempt(ctx, "192.168.1.1")
	}
	require.False(t, svc.CheckRateLimit(ctx, "192.168.1.1").Allowed)

	clock.Advance(15*time.Minute - time.Second)
	assert.False(t, svc.CheckRateLimit(ctx, "192.168.1.1").Allowed)

	clock.Advance(time.Second)
	assert.True(t, svc.CheckRateLimit(ctx, "192.168.1.1").Allowed)

	// the first failure after a lockout starts a fresh count
	svc.RecordFailedAttempt(ctx, "192.168.1.1")
	record, err := store.Get(ctx, "192.168.1.1")
	require.NoError(t, err)
	assert.Equal(t, 1, record.FailureCount)
	assert.Nil(t, record.LockedUntil)
	assert.Equal(t, clock.Now(), record.FirstFailureAt)
}

func TestRateLimitService_WindowExpiryResetsCount(t *testing.T) {
	clock := newFakeClock()
	svc, store := newTestRateLimiter(t, clock)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		svc.RecordFailedAttempt(ctx, "192.168.1.1")
	}

	clock.Advance(15 * time.Minute)
	svc.RecordFailedAttempt(ctx, "192.168.1.1")

	assert.True(t, svc.CheckRateLimit(ctx, "192.168.1.1").Allowed)
	record, err := store.Get(ctx, "192.168.1.1")
	require.NoError(t, err)
	assert.Equal(t, 1, record.FailureCount)
	assert.Equal(t, clock.Now().Add(15*time.Minute), record.ExpiresAt)
}

func TestRateLimitService_FailuresWhileLockedDoNotExtendLockout(t *testing.T) {
	clock := newFakeClock()
	svc, store := newTestRateLimiter(t, clock)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		svc.RecordFailedAttempt(ctx, "192.168.1.1")
	}
	lockedUntil := *svc.CheckRateLimit(ctx, "192.168.1.1").LockedUntil

	clock.Advance(time.Minute)
	svc.RecordFailedAttempt(ctx, "192.168.1.1")

	record, err := store.Get(ctx, "192.168.1.1")
	require.NoError(t, err)
	assert.Equal(t, 6, record.FailureCount)
	require.NotNil(t, record.LockedUntil)
	assert.Equal(t, lockedUntil, *record.LockedUntil)
}

func TestRateLimitService_ClearAttempts(t *testing.T) {
	svc, store := newTestRateLimiter(t, newFakeClock())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		svc.RecordFailedAttempt(ctx, "192.168.1.1")
	}
	svc.ClearAttempts(ctx, "192.168.1.1")

	assert.True(t, svc.CheckRateLimit(ctx, "192.168.1.1").Allowed)
	record, err := store.Get(ctx, "192.168.1.1")
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestRateLimitService_SuccessResetsCounter(t *testing.T) {
	svc, _ := newTestRateLimiter(t, newFakeClock())
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		svc.RecordFailedAttempt(ctx, "192.168.1.1")
	}
	svc.ClearAttempts(ctx, "192.168.1.1")

	for i := 0; i < 4; i++ {
		svc.RecordFailedAttempt(ctx, "192.168.1.1")
	}
	assert.True(t, svc.CheckRateLimit(ctx, "192.168.1.1").Allowed)
}

func TestRateLimitService_ConcurrentFailuresAreCounted(t *testing.T) {
	clock := newFakeClock()
	svc, store := newTestRateLimiter(t, clock)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.RecordFailedAttempt(ctx, "192.168.1.1")
		}()
	}
	wg.Wait()

	record, err := store.Get(ctx, "192.168.1.1")
	require.NoError(t, err)
	assert.Equal(t, 4, record.FailureCount)
}

func TestRateLimitService_DefaultsApplied(t *testing.T) {
	clock := newFakeClock()
	store, err := repositories.NewMemoryAttemptStore(10)
	require.NoError(t, err)

	svc := services.NewRateLimitService(store, services.RateLimitConfig{}, discardLogger())
	svc.SetNowFunc(clock.Now)
	ctx := context.Background()

	for i := 0; i < services.DefaultMaxAttempts; i++ {
		svc.RecordFailedAttempt(ctx, "a")
	}

	result := svc.CheckRateLimit(ctx, "a")
	assert.False(t, result.Allowed)
	assert.Equal(t, clock.Now().Add(services.DefaultLockoutDuration), *result.LockedUntil)
}

func TestRateLimitService_FailsOpenOnStoreErrors(t *testing.T) {
	storeErr := errors.New("connection refused")
	store := &services.MockAttemptStore{
		GetFunc: func(ctx context.Context, identity string) (*models.LoginAttempt, error) {
			return nil, storeErr
		},
		UpdateFunc: func(ctx context.Context, identity string, fn repositories.AttemptUpdateFunc) error {
			return storeErr
		},
		DeleteFunc: func(ctx context.Context, identity string) error {
			return storeErr
		},
	}

	svc := services.NewRateLimitService(store, services.RateLimitConfig{}, discardLogger())
	ctx := context.Background()

	assert.NotPanics(t, func() {
		svc.RecordFailedAttempt(ctx, "a")
		svc.ClearAttempts(ctx, "a")
	})
	assert.True(t, svc.CheckRateLimit(ctx, "a").Allowed)
}
