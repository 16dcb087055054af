package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BradenHooton/adminauth/internal/database"
	"github.com/BradenHooton/adminauth/internal/models"
	"github.com/jackc/pgx/v5"
)

// LoginAttemptRepository stores attempt records in PostgreSQL so several
// instances behind a load balancer share one view of each identity
type LoginAttemptRepository struct {
	db *database.DB
}

// NewLoginAttemptRepository creates a new LoginAttemptRepository
func NewLoginAttemptRepository(db *database.DB) *LoginAttemptRepository {
	return &LoginAttemptRepository{db: db}
}

const selectAttemptColumns = `identity, failure_count, first_failure_at, locked_until, expires_at`

func scanAttempt(row pgx.Row) (*models.LoginAttempt, error) {
	var attempt models.LoginAttempt
	err := row.Scan(
		&attempt.Identity,
		&attempt.FailureCount,
		&attempt.FirstFailureAt,
		&attempt.LockedUntil,
		&attempt.ExpiresAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

// Get returns the record for identity, or nil when there is none
func (r *LoginAttemptRepository) Get(ctx context.Context, identity string) (*models.LoginAttempt, error) {
	query := `SELECT ` + selectAttemptColumns + ` FROM login_attempts WHERE identity = $1`

	attempt, err := scanAttempt(r.db.Pool.QueryRow(ctx, query, identity))
	if err != nil {
		return nil, fmt.Errorf("failed to load login attempt: %w", err)
	}
	return attempt, nil
}

// Update applies fn under a per-identity transaction lock. The advisory lock
// also serializes the first insert, which FOR UPDATE alone cannot cover.
func (r *LoginAttemptRepository) Update(ctx context.Context, identity string, fn AttemptUpdateFunc) error {
	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, identity); err != nil {
			return fmt.Errorf("failed to lock login attempt: %w", err)
		}

		query := `SELECT ` + selectAttemptColumns + ` FROM login_attempts WHERE identity = $1 FOR UPDATE`
		current, err := scanAttempt(tx.QueryRow(ctx, query, identity))
		if err != nil {
			return fmt.Errorf("failed to load login attempt: %w", err)
		}

		next := fn(current)
		if next == nil {
			if current == nil {
				return nil
			}
			if _, err := tx.Exec(ctx, `DELETE FROM login_attempts WHERE identity = $1`, identity); err != nil {
				return fmt.Errorf("failed to delete login attempt: %w", err)
			}
			return nil
		}

		upsert := `
			INSERT INTO login_attempts (identity, failure_count, first_failure_at, locked_until, expires_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, CURRENT_TIMESTAMP)
			ON CONFLICT (identity) DO UPDATE SET
				failure_count = EXCLUDED.failure_count,
				first_failure_at = EXCLUDED.first_failure_at,
				locked_until = EXCLUDED.locked_until,
				expires_at = EXCLUDED.expires_at,
				updated_at = CURRENT_TIMESTAMP
		`
		_, err = tx.Exec(ctx, upsert,
			identity,
			next.FailureCount,
			next.FirstFailureAt,
			next.LockedUntil,
			next.ExpiresAt,
		)
		if err != nil {
			return fmt.Errorf("failed to save login attempt: %w", err)
		}
		return nil
	})
}

// Delete removes the record for identity
func (r *LoginAttemptRepository) Delete(ctx context.Context, identity string) error {
	if _, err := r.db.Pool.Exec(ctx, `DELETE FROM login_attempts WHERE identity = $1`, identity); err != nil {
		return fmt.Errorf("failed to delete login attempt: %w", err)
	}
	return nil
}

// DeleteExpired removes records that are no longer needed for rate limiting
func (r *LoginAttemptRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.Pool.Exec(ctx, `DELETE FROM login_attempts WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired login attempts: %w", err)
	}
	return result.RowsAffected(), nil
}
