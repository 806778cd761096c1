// Package event defines the state-change message published after Step 3 and
// consumed by the processor. It sits in its own package so the gateway and
// the queue layer can share it without depending on each other.
package event

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SubmissionCompleted announces that a submission reached Completed and is
// ready for asynchronous enrichment, classification, and provisioning.
type SubmissionCompleted struct {
	MessageID      string    `json:"messageId"`
	ClientIdentity string    `json:"clientIdentity"`
	SubmissionID   uuid.UUID `json:"submissionId"`
	FormName       string    `json:"formName"`
	CompletedAt    time.Time `json:"completedAt"`
}

// ContentDigest returns a stable digest of the event payload, stored on the
// dedup claim so redeliveries with altered content are detectable.
func (e SubmissionCompleted) ContentDigest() string {
	canonical := fmt.Sprintf("%s|%s|%s|%d",
		e.ClientIdentity, e.SubmissionID, e.FormName, e.CompletedAt.UnixNano())
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

// Marshal encodes the event for the wire.
func (e SubmissionCompleted) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Unmarshal decodes a wire payload.
func Unmarshal(data []byte) (SubmissionCompleted, error) {
	var e SubmissionCompleted
	if err := json.Unmarshal(data, &e); err != nil {
		return SubmissionCompleted{}, fmt.Errorf("decode submission event: %w", err)
	}
	return e, nil
}
