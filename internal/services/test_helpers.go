package services

import (
	"context"
	"time"

	"github.com/BradenHooton/adminauth/internal/models"
	"github.com/BradenHooton/adminauth/internal/repositories"
)

// MockAttemptStore implements repositories.AttemptStore for testing
type MockAttemptStore struct {
	GetFunc           func(ctx context.Context, identity string) (*models.LoginAttempt, error)
	UpdateFunc        func(ctx context.Context, identity string, fn repositories.AttemptUpdateFunc) error
	DeleteFunc        func(ctx context.Context, identity string) error
	DeleteExpiredFunc func(ctx context.Context, now time.Time) (int64, error)
}

func (m *MockAttemptStore) Get(ctx context.Context, identity string) (*models.LoginAttempt, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, identity)
	}
	return nil, nil
}

func (m *MockAttemptStore) Update(ctx context.Context, identity string, fn repositories.AttemptUpdateFunc) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, identity, fn)
	}
	return nil
}

func (m *MockAttemptStore) Delete(ctx context.Context, identity string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, identity)
	}
	return nil
}

func (m *MockAttemptStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	if m.DeleteExpiredFunc != nil {
		return m.DeleteExpiredFunc(ctx, now)
	}
	return 0, nil
}

// MockCredentialChecker implements CredentialChecker for testing
type MockCredentialChecker struct {
	AuthenticateFunc func(username, password string) (bool, error)
	Calls            int
}

func (m *MockCredentialChecker) Authenticate(username, password string) (bool, error) {
	m.Calls++
	if m.AuthenticateFunc != nil {
		return m.AuthenticateFunc(username, password)
	}
	return false, nil
}

// MockOTPVerifier implements OTPVerifier for testing. Codes passed to
// MarkUsed are rejected afterwards.
type MockOTPVerifier struct {
	EnabledValue bool
	ValidCode    string
	Used         []string
}

func (m *MockOTPVerifier) Enabled() bool { return m.EnabledValue }

func (m *MockOTPVerifier) Verify(code string) bool {
	if !m.EnabledValue {
		return true
	}
	if code != m.ValidCode {
		return false
	}
	for _, used := range m.Used {
		if used == code {
			return false
		}
	}
	return true
}

func (m *MockOTPVerifier) MarkUsed(code string) bool {
	if !m.Verify(code) {
		return false
	}
	if m.EnabledValue {
		m.Used = append(m.Used, code)
	}
	return true
}
