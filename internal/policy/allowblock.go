package policy

import (
	"context"
	"time"
)

// ContactType identifies which contact dimension a list entry covers.
type ContactType string

const (
	ContactEmail ContactType = "email"
	ContactPhone ContactType = "phone"
)

// ListType identifies whether an entry allows or blocks its contact.
type ListType string

const (
	ListAllow ListType = "allow"
	ListBlock ListType = "block"
)

// AllowBlockEntry overrides rate limiting and domain checks for a specific
// contact. Contacts are stored as digests, never raw values.
type AllowBlockEntry struct {
	ContactType   ContactType
	ContactDigest string
	List          ListType
	Reason        string
	CreatedAt     time.Time
}

// AllowBlockStore resolves list entries. Lookup returns sentinel.ErrNotFound
// (wrapped or bare) when no entry exists for the contact.
type AllowBlockStore interface {
	Lookup(ctx context.Context, contactType ContactType, contactDigest string) (*AllowBlockEntry, error)
	Add(ctx context.Context, entry *AllowBlockEntry) error
}
