package submission

import (
	"time"

	"github.com/google/uuid"

	"leadgate/internal/policy"
)

// Status is the submission state machine. Transitions only move forward;
// Succeeded and Blocked are terminal, PendingReview waits on manual action.
type Status string

const (
	StatusCreated       Status = "created"
	StatusCodeRequested Status = "code_requested"
	StatusCodeSent      Status = "code_sent"
	StatusVerified      Status = "verified"
	StatusCompleted     Status = "completed"
	StatusQueued        Status = "queued"
	StatusSucceeded     Status = "succeeded"
	StatusPendingReview Status = "pending_review"
	StatusBlocked       Status = "blocked"
)

// statusOrder encodes the forward-only ordering of states. CodeRequested and
// CodeSent share a rank; both sit between Created and Verified.
var statusOrder = map[Status]int{
	StatusCreated:       1,
	StatusCodeRequested: 2,
	StatusCodeSent:      2,
	StatusVerified:      3,
	StatusCompleted:     4,
	StatusQueued:        5,
	StatusSucceeded:     6,
	StatusPendingReview: 6,
	StatusBlocked:       6,
}

// CanAdvanceTo reports whether moving from s to next respects the forward-only
// invariant. Re-entering the same rank is allowed for the CodeRequested /
// CodeSent pair only.
func (s Status) CanAdvanceTo(next Status) bool {
	from, ok := statusOrder[s]
	if !ok {
		return false
	}
	to, ok := statusOrder[next]
	if !ok {
		return false
	}
	if from == to {
		return from == 2
	}
	return to > from
}

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	return s == StatusSucceeded || s == StatusBlocked
}

// BuilderStatus is the coarse downstream-provisioning eligibility signal.
type BuilderStatus string

const (
	BuilderAvailable   BuilderStatus = "available"
	BuilderConstrained BuilderStatus = "constrained"
	BuilderPending     BuilderStatus = "pending"
	BuilderUnavailable BuilderStatus = "unavailable"
)

// Flag is the processing directive produced by classification.
type Flag string

const (
	FlagGreen  Flag = "green"
	FlagYellow Flag = "yellow"
	FlagRed    Flag = "red"
)

// VerificationRecord holds the single-use, time-bound one-time code state.
// Only the bcrypt hash of the code is stored.
type VerificationRecord struct {
	CodeHash    string    `json:"codeHash"`
	DeliveryRef string    `json:"deliveryRef"`
	Channel     string    `json:"channel"`
	IssuedAt    time.Time `json:"issuedAt"`
	Attempts    int       `json:"attempts"`
}

// GeoSnapshot records where a step request came from, as resolved at the
// time of the request.
type GeoSnapshot struct {
	CountryCode string `json:"countryCode,omitempty"`
	Region      string `json:"region,omitempty"`
}

// StepEvent is one entry in the append-only step history.
type StepEvent struct {
	Step      int         `json:"step"`
	Mode      string      `json:"mode,omitempty"`
	RequestID string      `json:"requestId"`
	At        time.Time   `json:"at"`
	ClientIP  string      `json:"clientIp,omitempty"`
	UserAgent string      `json:"userAgent,omitempty"`
	Geo       GeoSnapshot `json:"geo"`
}

// Submission is the aggregate owned by the gateway during synchronous steps
// and handed to the processor via the queue. Identity is
// (ClientIdentity, ID); ClientIdentity is the SHA-256 digest of the
// normalized email, so raw contact data is never persisted.
type Submission struct {
	ClientIdentity string
	ID             uuid.UUID
	FormName       string

	Status       Status
	StatusReason string
	Flag         Flag

	CreatedAt   time.Time
	UpdatedAt   time.Time
	VerifiedAt  *time.Time
	CompletedAt *time.Time

	PhoneDigest        string
	EmailDomain        string
	DomainType         policy.DomainType
	TurnstileValidated bool

	CountryType policy.CountryType
	CountryCode string

	Verification *VerificationRecord

	BuilderStatus BuilderStatus
	CompanyName   string
	Region        string
	SpamScore     float64

	// EnrichmentMatched is nil until the waterfall has run for this
	// submission; false means every provider came up empty or failed.
	EnrichmentMatched *bool

	ExternalID string

	StepHistory []StepEvent

	// Version supports optimistic concurrency on conditional updates.
	Version int
}

// FindStepEvent returns the recorded event for (step, mode, requestID), if
// any. Used to make retried requests idempotent.
func (s *Submission) FindStepEvent(step int, mode, requestID string) *StepEvent {
	for i := range s.StepHistory {
		ev := &s.StepHistory[i]
		if ev.Step == step && ev.Mode == mode && ev.RequestID == requestID {
			return ev
		}
	}
	return nil
}

// AppendStep appends a step event. History never shrinks and past entries
// are never mutated.
func (s *Submission) AppendStep(ev StepEvent) {
	s.StepHistory = append(s.StepHistory, ev)
}
