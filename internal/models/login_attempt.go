package models

import "time"

// LoginAttempt is the failed-login record kept per client identity
type LoginAttempt struct {
	Identity       string     `db:"identity"`
	FailureCount   int        `db:"failure_count"`
	FirstFailureAt time.Time  `db:"first_failure_at"`
	LockedUntil    *time.Time `db:"locked_until"`
	ExpiresAt      time.Time  `db:"expires_at"` // When the record can be swept
}

// IsLocked reports whether the record holds a lockout that has not yet elapsed
func (a *LoginAttempt) IsLocked(now time.Time) bool {
	return a.LockedUntil != nil && now.Before(*a.LockedUntil)
}

// Clone returns a deep copy so stores never hand out shared pointers
func (a *LoginAttempt) Clone() *LoginAttempt {
	if a == nil {
		return nil
	}
	c := *a
	if a.LockedUntil != nil {
		t := *a.LockedUntil
		c.LockedUntil = &t
	}
	return &c
}
