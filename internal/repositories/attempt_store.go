package repositories

import (
	"context"
	"time"

	"github.com/BradenHooton/adminauth/internal/models"
)

// AttemptUpdateFunc receives the current record for an identity (nil when none
// exists) and returns its replacement. Returning nil deletes the record.
type AttemptUpdateFunc func(current *models.LoginAttempt) *models.LoginAttempt

// AttemptStore persists failed login attempt state keyed by client identity.
// Update must be atomic per identity.
type AttemptStore interface {
	Get(ctx context.Context, identity string) (*models.LoginAttempt, error)
	Update(ctx context.Context, identity string, fn AttemptUpdateFunc) error
	Delete(ctx context.Context, identity string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

var (
	_ AttemptStore = (*MemoryAttemptStore)(nil)
	_ AttemptStore = (*LoginAttemptRepository)(nil)
)
