package submission

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"leadgate/pkg/platform/sentinel"
)

// MemoryStore keeps submissions in process memory. It enforces the same
// conditional-write semantics as the PostgreSQL store so services behave
// identically in tests.
type MemoryStore struct {
	mu   sync.RWMutex
	subs map[string]*Submission
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{subs: make(map[string]*Submission)}
}

func storeKey(clientIdentity string, id uuid.UUID) string {
	return clientIdentity + "/" + id.String()
}

func (s *MemoryStore) Create(ctx context.Context, sub *Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := storeKey(sub.ClientIdentity, sub.ID)
	if _, exists := s.subs[key]; exists {
		return sentinel.ErrConflict
	}
	copied := clone(sub)
	copied.Version = 1
	s.subs[key] = copied
	sub.Version = 1
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, clientIdentity string, id uuid.UUID) (*Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subs[storeKey(clientIdentity, id)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(sub), nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id uuid.UUID) (*Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sub := range s.subs {
		if sub.ID == id {
			return clone(sub), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *MemoryStore) Update(ctx context.Context, sub *Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := storeKey(sub.ClientIdentity, sub.ID)
	current, ok := s.subs[key]
	if !ok {
		return sentinel.ErrNotFound
	}
	if current.Version != sub.Version {
		return sentinel.ErrConflict
	}
	copied := clone(sub)
	copied.Version = sub.Version + 1
	s.subs[key] = copied
	sub.Version = copied.Version
	return nil
}

func (s *MemoryStore) FindByStepRequest(ctx context.Context, clientIdentity string, step int, requestID string) (*Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sub := range s.subs {
		if sub.ClientIdentity != clientIdentity {
			continue
		}
		for i := range sub.StepHistory {
			ev := &sub.StepHistory[i]
			if ev.Step == step && ev.RequestID == requestID {
				return clone(sub), nil
			}
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *MemoryStore) ExistsCompletedByEmail(ctx context.Context, emailDigest, formName string, since time.Time, exclude uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sub := range s.subs {
		if sub.ClientIdentity == emailDigest && completedInWindow(sub, formName, since, exclude) {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) ExistsCompletedByPhone(ctx context.Context, phoneDigest, formName string, since time.Time, exclude uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sub := range s.subs {
		if sub.PhoneDigest == phoneDigest && completedInWindow(sub, formName, since, exclude) {
			return true, nil
		}
	}
	return false, nil
}

func completedInWindow(sub *Submission, formName string, since time.Time, exclude uuid.UUID) bool {
	if sub.ID == exclude || sub.FormName != formName || sub.CompletedAt == nil {
		return false
	}
	return !sub.CompletedAt.Before(since)
}

func clone(sub *Submission) *Submission {
	copied := *sub
	copied.StepHistory = append([]StepEvent(nil), sub.StepHistory...)
	if sub.Verification != nil {
		v := *sub.Verification
		copied.Verification = &v
	}
	if sub.EnrichmentMatched != nil {
		m := *sub.EnrichmentMatched
		copied.EnrichmentMatched = &m
	}
	if sub.VerifiedAt != nil {
		t := *sub.VerifiedAt
		copied.VerifiedAt = &t
	}
	if sub.CompletedAt != nil {
		t := *sub.CompletedAt
		copied.CompletedAt = &t
	}
	return &copied
}
