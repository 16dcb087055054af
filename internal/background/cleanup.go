package background

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// ExpiredAttemptSweeper is implemented by every attempt store
type ExpiredAttemptSweeper interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// CleanupManager periodically drops login attempt records that can no longer
// affect a rate limit decision
type CleanupManager struct {
	store    ExpiredAttemptSweeper
	logger   *slog.Logger
	interval time.Duration
	nowFunc  func() time.Time
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(store ExpiredAttemptSweeper, logger *slog.Logger, interval time.Duration) *CleanupManager {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &CleanupManager{
		store:    store,
		logger:   logger,
		interval: interval,
		nowFunc:  time.Now,
		stopCh:   make(chan struct{}),
	}
}

// Start runs the sweep immediately and then on every interval until Stop is
// called or ctx is done. It blocks; run it in a goroutine.
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	cm.RunOnce(ctx)

	for {
		select {
		case <-ticker.C:
			cm.RunOnce(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

// RunOnce performs a single sweep and returns how many records were removed
func (cm *CleanupManager) RunOnce(ctx context.Context) int64 {
	cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	removed, err := cm.store.DeleteExpired(cleanupCtx, cm.nowFunc())
	if err != nil {
		cm.logger.Error("failed to sweep expired login attempts", slog.Any("error", err))
		return 0
	}

	if removed > 0 {
		cm.logger.Info("expired login attempts swept", slog.Int64("removed", removed))
	}
	return removed
}

// Stop signals the cleanup manager to stop. Safe to call more than once.
func (cm *CleanupManager) Stop() {
	cm.stopOnce.Do(func() { close(cm.stopCh) })
}
