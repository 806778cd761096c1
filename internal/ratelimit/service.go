// Package ratelimit checks historical-submission windows along email, phone,
// and combined dimensions. The window is a derived view over completed
// submissions, not a stored counter.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"leadgate/internal/policy"
	"leadgate/pkg/platform/sentinel"
	"leadgate/pkg/requestcontext"
)

// Dimension selects which contact digests the check runs against.
type Dimension string

const (
	DimensionEmail    Dimension = "email"
	DimensionPhone    Dimension = "phone"
	DimensionCombined Dimension = "combined"
)

// Identity carries the contact digests for a check. Combined checks need
// both; single-dimension checks ignore the other digest.
type Identity struct {
	EmailDigest string
	PhoneDigest string
}

// WindowStore answers the derived rate-limit window view. The submission
// store satisfies this.
type WindowStore interface {
	ExistsCompletedByEmail(ctx context.Context, emailDigest, formName string, since time.Time, exclude uuid.UUID) (bool, error)
	ExistsCompletedByPhone(ctx context.Context, phoneDigest, formName string, since time.Time, exclude uuid.UUID) (bool, error)
}

// Service validates submissions against the trailing window. Allow-list
// entries bypass the window; block-list entries deny outright.
type Service struct {
	windows   WindowStore
	allowlist policy.AllowBlockStore
	window    time.Duration
	logger    *slog.Logger
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets a logger for denial reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// New constructs a rate limit service over the given window view.
func New(windows WindowStore, allowlist policy.AllowBlockStore, window time.Duration, opts ...Option) (*Service, error) {
	if windows == nil {
		return nil, fmt.Errorf("window store is required")
	}
	if allowlist == nil {
		return nil, fmt.Errorf("allowlist store is required")
	}
	if window <= 0 {
		return nil, fmt.Errorf("window must be positive")
	}

	svc := &Service{windows: windows, allowlist: allowlist, window: window}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Validate reports whether a new submission is allowed on the given
// dimension. Combined requires the email and phone checks to pass
// independently.
func (s *Service) Validate(ctx context.Context, dim Dimension, identity Identity, formName string, exclude uuid.UUID) (bool, error) {
	switch dim {
	case DimensionEmail:
		return s.checkEmail(ctx, identity, formName, exclude)
	case DimensionPhone:
		return s.checkPhone(ctx, identity, formName, exclude)
	case DimensionCombined:
		return s.checkCombined(ctx, identity, formName, exclude)
	default:
		return false, fmt.Errorf("unknown rate limit dimension %q", dim)
	}
}

func (s *Service) checkEmail(ctx context.Context, identity Identity, formName string, exclude uuid.UUID) (bool, error) {
	if entry, err := s.listEntry(ctx, policy.ContactEmail, identity.EmailDigest); err != nil {
		return false, err
	} else if entry != nil {
		if entry.List == policy.ListBlock {
			s.logDenial(ctx, DimensionEmail, formName)
			metricDenials.WithLabelValues(string(DimensionEmail)).Inc()
			return false, nil
		}
		return true, nil
	}

	since := requestcontext.Now(ctx).Add(-s.window)
	exists, err := s.windows.ExistsCompletedByEmail(ctx, identity.EmailDigest, formName, since, exclude)
	if err != nil {
		return false, fmt.Errorf("email window check: %w", err)
	}
	if exists {
		s.logDenial(ctx, DimensionEmail, formName)
		metricDenials.WithLabelValues(string(DimensionEmail)).Inc()
	}
	return !exists, nil
}

func (s *Service) checkPhone(ctx context.Context, identity Identity, formName string, exclude uuid.UUID) (bool, error) {
	if entry, err := s.listEntry(ctx, policy.ContactPhone, identity.PhoneDigest); err != nil {
		return false, err
	} else if entry != nil {
		if entry.List == policy.ListBlock {
			s.logDenial(ctx, DimensionPhone, formName)
			metricDenials.WithLabelValues(string(DimensionPhone)).Inc()
			return false, nil
		}
		return true, nil
	}

	since := requestcontext.Now(ctx).Add(-s.window)
	exists, err := s.windows.ExistsCompletedByPhone(ctx, identity.PhoneDigest, formName, since, exclude)
	if err != nil {
		return false, fmt.Errorf("phone window check: %w", err)
	}
	if exists {
		s.logDenial(ctx, DimensionPhone, formName)
		metricDenials.WithLabelValues(string(DimensionPhone)).Inc()
	}
	return !exists, nil
}

func (s *Service) checkCombined(ctx context.Context, identity Identity, formName string, exclude uuid.UUID) (bool, error) {
	g, ctx := errgroup.WithContext(ctx)

	var emailOK, phoneOK bool
	g.Go(func() error {
		ok, err := s.checkEmail(ctx, identity, formName, exclude)
		emailOK = ok
		return err
	})
	g.Go(func() error {
		ok, err := s.checkPhone(ctx, identity, formName, exclude)
		phoneOK = ok
		return err
	})
	if err := g.Wait(); err != nil {
		return false, err
	}
	return emailOK && phoneOK, nil
}

// listEntry resolves the allow/block override for a contact. A nil entry
// means no override exists and the window decides; an allow entry bypasses
// the window, a block entry denies regardless of history.
func (s *Service) listEntry(ctx context.Context, contactType policy.ContactType, digest string) (*policy.AllowBlockEntry, error) {
	if digest == "" {
		return nil, nil
	}
	entry, err := s.allowlist.Lookup(ctx, contactType, digest)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("allowlist lookup: %w", err)
	}
	return entry, nil
}

func (s *Service) logDenial(ctx context.Context, dim Dimension, formName string) {
	if s.logger != nil {
		s.logger.InfoContext(ctx, "rate limit denial",
			"dimension", dim,
			"form_name", formName,
		)
	}
}
