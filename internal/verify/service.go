// Package verify issues and checks one-time phone verification codes.
//
// Codes are fixed-length, cryptographically random, single-use, and
// time-bound. Only the bcrypt hash is stored, and it is stored against the
// submission, never against the raw phone number.
package verify

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"leadgate/internal/submission"
	"leadgate/pkg/platform/sentinel"
)

// Channel selects the delivery mechanism for a code.
type Channel string

const (
	ChannelSMS   Channel = "sms"
	ChannelVoice Channel = "voice"
)

// ParseChannel validates a channel string.
func ParseChannel(s string) (Channel, error) {
	switch Channel(s) {
	case ChannelSMS, ChannelVoice:
		return Channel(s), nil
	default:
		return "", fmt.Errorf("unknown verification channel %q", s)
	}
}

// Sender dispatches a code via an external delivery channel and returns the
// vendor's delivery reference id. The phone number is used transiently and
// never persisted.
type Sender interface {
	Send(ctx context.Context, phone, code string, channel Channel) (string, error)
}

// Service issues and checks one-time codes.
type Service struct {
	sender     Sender
	codeLength int
	ttl        time.Duration
}

// New constructs a verification service.
func New(sender Sender, codeLength int, ttl time.Duration) (*Service, error) {
	if sender == nil {
		return nil, fmt.Errorf("sender is required")
	}
	if codeLength < 4 {
		return nil, fmt.Errorf("code length must be at least 4")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("code ttl must be positive")
	}
	return &Service{sender: sender, codeLength: codeLength, ttl: ttl}, nil
}

// Issue generates a code, dispatches it via the chosen channel, and returns
// the record to store against the submission. A delivery failure is a hard
// failure; no record is produced.
func (s *Service) Issue(ctx context.Context, phone, channel string, now time.Time) (*submission.VerificationRecord, error) {
	ch, err := ParseChannel(channel)
	if err != nil {
		return nil, err
	}

	code, err := generateCode(s.codeLength)
	if err != nil {
		return nil, fmt.Errorf("generate code: %w", err)
	}

	deliveryRef, err := s.sender.Send(ctx, phone, code, ch)
	if err != nil {
		return nil, fmt.Errorf("dispatch code: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash code: %w", err)
	}

	return &submission.VerificationRecord{
		CodeHash:    string(hash),
		DeliveryRef: deliveryRef,
		Channel:     string(ch),
		IssuedAt:    now,
	}, nil
}

// Check compares a supplied code against the stored record. It returns
// sentinel.ErrExpired past the TTL and sentinel.ErrInvalidState on mismatch;
// the stored value is never revealed either way.
func (s *Service) Check(record *submission.VerificationRecord, supplied string, now time.Time) error {
	if record == nil {
		return sentinel.ErrNotFound
	}
	if now.Sub(record.IssuedAt) > s.ttl {
		return sentinel.ErrExpired
	}
	if err := bcrypt.CompareHashAndPassword([]byte(record.CodeHash), []byte(supplied)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return sentinel.ErrInvalidState
		}
		return fmt.Errorf("compare code: %w", err)
	}
	return nil
}

// CodeTTL exposes the configured code lifetime.
func (s *Service) CodeTTL() time.Duration {
	return s.ttl
}

// generateCode produces a fixed-length numeric code from crypto/rand.
// Bytes past the largest multiple of ten are rejected so every digit is
// equally likely.
func generateCode(length int) (string, error) {
	const digits = "0123456789"
	limit := 256 - 256%len(digits)

	out := make([]byte, 0, length)
	var b [1]byte
	for len(out) < length {
		if _, err := rand.Read(b[:]); err != nil {
			return "", err
		}
		if int(b[0]) >= limit {
			continue
		}
		out = append(out, digits[int(b[0])%len(digits)])
	}
	return string(out), nil
}
