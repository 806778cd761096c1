package policy

import (
	"context"
	"sync"

	"leadgate/pkg/platform/sentinel"
)

// MemoryAllowBlockStore keeps list entries in process memory. Used in tests
// and single-node development.
type MemoryAllowBlockStore struct {
	mu      sync.RWMutex
	entries map[string]*AllowBlockEntry
}

// NewMemoryAllowBlockStore constructs an empty in-memory store.
func NewMemoryAllowBlockStore() *MemoryAllowBlockStore {
	return &MemoryAllowBlockStore{entries: make(map[string]*AllowBlockEntry)}
}

func (s *MemoryAllowBlockStore) Lookup(ctx context.Context, contactType ContactType, contactDigest string) (*AllowBlockEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[key(contactType, contactDigest)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *entry
	return &copied, nil
}

func (s *MemoryAllowBlockStore) Add(ctx context.Context, entry *AllowBlockEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *entry
	s.entries[key(entry.ContactType, entry.ContactDigest)] = &copied
	return nil
}

func key(contactType ContactType, digest string) string {
	return string(contactType) + "/" + digest
}
