package dedup

import (
	"context"
	"sync"
	"time"

	"leadgate/pkg/platform/sentinel"
)

// MemoryStore keeps claims in process memory with the same conditional-create
// and expiry semantics as the Redis store.
type MemoryStore struct {
	mu     sync.Mutex
	claims map[string]*Claim
	ttl    time.Duration
	now    func() time.Time
}

// NewMemoryStore constructs an in-memory claim store with the given TTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		claims: make(map[string]*Claim),
		ttl:    ttl,
		now:    time.Now,
	}
}

// SetClock overrides the clock, letting tests move time past claim expiry.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemoryStore) Claim(ctx context.Context, messageID, contentDigest string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if existing, ok := s.claims[messageID]; ok && existing.ExpiresAt.After(now) {
		metricClaims.WithLabelValues(outcomeLabel(false)).Inc()
		return false, nil
	}

	s.claims[messageID] = &Claim{
		MessageID:     messageID,
		Status:        StatusProcessing,
		ContentDigest: contentDigest,
		ClaimedAt:     now,
		ExpiresAt:     now.Add(s.ttl),
	}
	metricClaims.WithLabelValues(outcomeLabel(true)).Inc()
	return true, nil
}

func (s *MemoryStore) Complete(ctx context.Context, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	claim, ok := s.claims[messageID]
	if !ok || !claim.ExpiresAt.After(s.now()) {
		return sentinel.ErrNotFound
	}
	if claim.Status == StatusProcessed {
		return sentinel.ErrAlreadyUsed
	}
	claim.Status = StatusProcessed
	return nil
}
