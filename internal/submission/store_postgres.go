package submission

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"leadgate/internal/policy"
	"leadgate/pkg/platform/sentinel"
)

// PostgresStore persists submissions in PostgreSQL. Step history and the
// verification record are stored as JSONB; every mutation is a conditional
// write guarded by the version column.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore constructs a PostgreSQL-backed submission store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const submissionColumns = `
	client_identity, id, form_name, status, status_reason, flag,
	created_at, updated_at, verified_at, completed_at,
	phone_digest, email_domain, domain_type, turnstile_validated,
	country_type, country_code, verification, builder_status,
	company_name, region, spam_score, enrichment_matched, external_id,
	step_history, version`

func (s *PostgresStore) Create(ctx context.Context, sub *Submission) error {
	history, verification, err := marshalJSONColumns(sub)
	if err != nil {
		return err
	}

	const query = `
		INSERT INTO submissions (` + submissionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
		        $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, 1)
		ON CONFLICT (client_identity, id) DO NOTHING`

	res, err := s.db.ExecContext(ctx, query,
		sub.ClientIdentity, sub.ID, sub.FormName, string(sub.Status), sub.StatusReason, string(sub.Flag),
		sub.CreatedAt, sub.UpdatedAt, sub.VerifiedAt, sub.CompletedAt,
		nullString(sub.PhoneDigest), sub.EmailDomain, string(sub.DomainType), sub.TurnstileValidated,
		string(sub.CountryType), sub.CountryCode, verification, string(sub.BuilderStatus),
		sub.CompanyName, sub.Region, sub.SpamScore, sub.EnrichmentMatched, sub.ExternalID,
		history,
	)
	if err != nil {
		return fmt.Errorf("create submission: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("create submission: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrConflict
	}
	sub.Version = 1
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, clientIdentity string, id uuid.UUID) (*Submission, error) {
	const query = `
		SELECT ` + submissionColumns + `
		FROM submissions
		WHERE client_identity = $1 AND id = $2`

	return s.scanOne(s.db.QueryRowContext(ctx, query, clientIdentity, id))
}

func (s *PostgresStore) GetByID(ctx context.Context, id uuid.UUID) (*Submission, error) {
	const query = `
		SELECT ` + submissionColumns + `
		FROM submissions
		WHERE id = $1`

	return s.scanOne(s.db.QueryRowContext(ctx, query, id))
}

func (s *PostgresStore) Update(ctx context.Context, sub *Submission) error {
	history, verification, err := marshalJSONColumns(sub)
	if err != nil {
		return err
	}

	const query = `
		UPDATE submissions SET
			status = $4, status_reason = $5, flag = $6, updated_at = $7,
			verified_at = $8, completed_at = $9, phone_digest = $10,
			domain_type = $11, verification = $12, builder_status = $13,
			company_name = $14, region = $15, spam_score = $16,
			enrichment_matched = $17, external_id = $18, step_history = $19,
			version = version + 1
		WHERE client_identity = $1 AND id = $2 AND version = $3`

	res, err := s.db.ExecContext(ctx, query,
		sub.ClientIdentity, sub.ID, sub.Version,
		string(sub.Status), sub.StatusReason, string(sub.Flag), sub.UpdatedAt,
		sub.VerifiedAt, sub.CompletedAt, nullString(sub.PhoneDigest),
		string(sub.DomainType), verification, string(sub.BuilderStatus),
		sub.CompanyName, sub.Region, sub.SpamScore,
		sub.EnrichmentMatched, sub.ExternalID, history,
	)
	if err != nil {
		return fmt.Errorf("update submission: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update submission: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrConflict
	}
	sub.Version++
	return nil
}

func (s *PostgresStore) FindByStepRequest(ctx context.Context, clientIdentity string, step int, requestID string) (*Submission, error) {
	const query = `
		SELECT ` + submissionColumns + `
		FROM submissions
		WHERE client_identity = $1
		  AND step_history @> $2::jsonb
		LIMIT 1`

	probe, err := json.Marshal([]map[string]any{{"step": step, "requestId": requestID}})
	if err != nil {
		return nil, fmt.Errorf("marshal step probe: %w", err)
	}
	return s.scanOne(s.db.QueryRowContext(ctx, query, clientIdentity, probe))
}

func (s *PostgresStore) ExistsCompletedByEmail(ctx context.Context, emailDigest, formName string, since time.Time, exclude uuid.UUID) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM submissions
			WHERE client_identity = $1 AND form_name = $2
			  AND completed_at IS NOT NULL AND completed_at >= $3
			  AND id <> $4
		)`
	return s.exists(ctx, query, emailDigest, formName, since, exclude)
}

func (s *PostgresStore) ExistsCompletedByPhone(ctx context.Context, phoneDigest, formName string, since time.Time, exclude uuid.UUID) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM submissions
			WHERE phone_digest = $1 AND form_name = $2
			  AND completed_at IS NOT NULL AND completed_at >= $3
			  AND id <> $4
		)`
	return s.exists(ctx, query, phoneDigest, formName, since, exclude)
}

func (s *PostgresStore) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var found bool
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&found); err != nil {
		return false, fmt.Errorf("rate limit window query: %w", err)
	}
	return found, nil
}

func (s *PostgresStore) scanOne(row *sql.Row) (*Submission, error) {
	sub := &Submission{}
	var (
		status, flag, domainType, countryType, builderStatus string
		phoneDigest                                          sql.NullString
		verification, history                                []byte
	)

	err := row.Scan(
		&sub.ClientIdentity, &sub.ID, &sub.FormName, &status, &sub.StatusReason, &flag,
		&sub.CreatedAt, &sub.UpdatedAt, &sub.VerifiedAt, &sub.CompletedAt,
		&phoneDigest, &sub.EmailDomain, &domainType, &sub.TurnstileValidated,
		&countryType, &sub.CountryCode, &verification, &builderStatus,
		&sub.CompanyName, &sub.Region, &sub.SpamScore, &sub.EnrichmentMatched, &sub.ExternalID,
		&history, &sub.Version,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan submission: %w", err)
	}

	sub.Status = Status(status)
	sub.Flag = Flag(flag)
	sub.DomainType = policy.DomainType(domainType)
	sub.CountryType = policy.CountryType(countryType)
	sub.BuilderStatus = BuilderStatus(builderStatus)
	sub.PhoneDigest = phoneDigest.String

	if len(verification) > 0 {
		rec := &VerificationRecord{}
		if err := json.Unmarshal(verification, rec); err != nil {
			return nil, fmt.Errorf("unmarshal verification record: %w", err)
		}
		sub.Verification = rec
	}
	if len(history) > 0 {
		if err := json.Unmarshal(history, &sub.StepHistory); err != nil {
			return nil, fmt.Errorf("unmarshal step history: %w", err)
		}
	}
	return sub, nil
}

func marshalJSONColumns(sub *Submission) (history, verification []byte, err error) {
	history, err = json.Marshal(sub.StepHistory)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal step history: %w", err)
	}
	if sub.Verification != nil {
		verification, err = json.Marshal(sub.Verification)
		if err != nil {
			return nil, nil, fmt.Errorf("marshal verification record: %w", err)
		}
	}
	return history, verification, nil
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
