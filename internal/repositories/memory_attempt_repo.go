package repositories

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/BradenHooton/adminauth/internal/models"
	"github.com/hashicorp/golang-lru/v2/simplelru"
)

const DefaultMaxIdentities = 10000

// MemoryAttemptStore keeps attempt records in a bounded LRU. When full, the
// least recently touched identity is evicted.
type MemoryAttemptStore struct {
	mu      sync.Mutex
	records *simplelru.LRU[string, *models.LoginAttempt]
}

// NewMemoryAttemptStore creates a store holding at most capacity identities
func NewMemoryAttemptStore(capacity int) (*MemoryAttemptStore, error) {
	if capacity <= 0 {
		capacity = DefaultMaxIdentities
	}

	records, err := simplelru.NewLRU[string, *models.LoginAttempt](capacity, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create attempt cache: %w", err)
	}

	return &MemoryAttemptStore{records: records}, nil
}

func (s *MemoryAttemptStore) Get(ctx context.Context, identity string) (*models.LoginAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	attempt, ok := s.records.Get(identity)
	if !ok {
		return nil, nil
	}
	return attempt.Clone(), nil
}

func (s *MemoryAttemptStore) Update(ctx context.Context, identity string, fn AttemptUpdateFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current *models.LoginAttempt
	if existing, ok := s.records.Peek(identity); ok {
		current = existing.Clone()
	}

	next := fn(current)
	if next == nil {
		s.records.Remove(identity)
		return nil
	}

	next = next.Clone()
	next.Identity = identity
	s.records.Add(identity, next)
	return nil
}

func (s *MemoryAttemptStore) Delete(ctx context.Context, identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records.Remove(identity)
	return nil
}

// DeleteExpired drops every record whose ExpiresAt is not after now
func (s *MemoryAttemptStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for _, identity := range s.records.Keys() {
		attempt, ok := s.records.Peek(identity)
		if !ok {
			continue
		}
		if !now.Before(attempt.ExpiresAt) {
			s.records.Remove(identity)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of tracked identities
func (s *MemoryAttemptStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records.Len()
}
