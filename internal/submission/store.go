package submission

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store persists submissions. Implementations must make Create and Update
// conditional writes: Create fails with sentinel.ErrConflict if the identity
// pair already exists, Update fails with sentinel.ErrConflict if the stored
// version differs from the one being written. No caller may assume exclusive
// access.
type Store interface {
	Create(ctx context.Context, sub *Submission) error
	Get(ctx context.Context, clientIdentity string, id uuid.UUID) (*Submission, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Submission, error)
	Update(ctx context.Context, sub *Submission) error

	// FindByStepRequest locates a submission for clientIdentity whose history
	// already contains (step, requestID). Used to replay Step 1 retries that
	// arrive without a submission id.
	FindByStepRequest(ctx context.Context, clientIdentity string, step int, requestID string) (*Submission, error)

	// ExistsCompletedByEmail and ExistsCompletedByPhone answer the
	// rate-limit window view: any submission with the same contact digest
	// and form name completed at or after since, excluding exclude.
	ExistsCompletedByEmail(ctx context.Context, emailDigest, formName string, since time.Time, exclude uuid.UUID) (bool, error)
	ExistsCompletedByPhone(ctx context.Context, phoneDigest, formName string, since time.Time, exclude uuid.UUID) (bool, error)
}
