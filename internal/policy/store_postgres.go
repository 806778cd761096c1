package policy

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"leadgate/pkg/platform/sentinel"
)

// PostgresAllowBlockStore persists allow/block entries in PostgreSQL.
type PostgresAllowBlockStore struct {
	db *sql.DB
}

// NewPostgresAllowBlockStore constructs a PostgreSQL-backed store.
func NewPostgresAllowBlockStore(db *sql.DB) *PostgresAllowBlockStore {
	return &PostgresAllowBlockStore{db: db}
}

func (s *PostgresAllowBlockStore) Lookup(ctx context.Context, contactType ContactType, contactDigest string) (*AllowBlockEntry, error) {
	const query = `
		SELECT contact_type, contact_digest, list_type, reason, created_at
		FROM allow_block_entries
		WHERE contact_type = $1 AND contact_digest = $2`

	entry := &AllowBlockEntry{}
	err := s.db.QueryRowContext(ctx, query, string(contactType), contactDigest).Scan(
		&entry.ContactType,
		&entry.ContactDigest,
		&entry.List,
		&entry.Reason,
		&entry.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup allow/block entry: %w", err)
	}
	return entry, nil
}

func (s *PostgresAllowBlockStore) Add(ctx context.Context, entry *AllowBlockEntry) error {
	const query = `
		INSERT INTO allow_block_entries (contact_type, contact_digest, list_type, reason, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (contact_type, contact_digest)
		DO UPDATE SET list_type = EXCLUDED.list_type, reason = EXCLUDED.reason`

	_, err := s.db.ExecContext(ctx, query,
		string(entry.ContactType),
		entry.ContactDigest,
		string(entry.List),
		entry.Reason,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("add allow/block entry: %w", err)
	}
	return nil
}
