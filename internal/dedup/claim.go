// Package dedup implements the first-writer-wins claim mechanism that
// prevents duplicate asynchronous processing of redelivered events.
//
// A claim is conditionally created per message id; at most one claimant wins
// and may execute side effects. Expired claims are treated as absent and may
// be re-claimed, which bounds the at-most-once guarantee to the TTL window.
package dedup

import (
	"context"
	"time"
)

// Status of a claim record.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusProcessed  Status = "processed"
)

// Claim records that a message id has been taken by a processor.
type Claim struct {
	MessageID     string    `json:"messageId"`
	Status        Status    `json:"status"`
	ContentDigest string    `json:"contentDigest"`
	ClaimedAt     time.Time `json:"claimedAt"`
	ExpiresAt     time.Time `json:"expiresAt"`
}

// Store is the claim persistence contract. Claim must be an atomic
// conditional create: it returns true only for the single caller that
// created the record, false whenever a live record already exists.
type Store interface {
	Claim(ctx context.Context, messageID, contentDigest string) (bool, error)
	Complete(ctx context.Context, messageID string) error
}
