package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"leadgate/internal/policy"
	"leadgate/internal/submission"
	"leadgate/pkg/requestcontext"
)

const testForm = "trial_signup"

type RateLimitSuite struct {
	suite.Suite
	store     *submission.MemoryStore
	allowlist *policy.MemoryAllowBlockStore
	service   *Service
	ctx       context.Context
	now       time.Time
}

func TestRateLimitSuite(t *testing.T) {
	suite.Run(t, new(RateLimitSuite))
}

func (s *RateLimitSuite) SetupTest() {
	s.store = submission.NewMemoryStore()
	s.allowlist = policy.NewMemoryAllowBlockStore()
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)

	var err error
	s.service, err = New(s.store, s.allowlist, 365*24*time.Hour)
	s.Require().NoError(err)
}

// addCompleted records a completed submission at the given age.
func (s *RateLimitSuite) addCompleted(emailDigest, phoneDigest string, age time.Duration) uuid.UUID {
	completedAt := s.now.Add(-age)
	sub := &submission.Submission{
		ClientIdentity: emailDigest,
		ID:             uuid.New(),
		FormName:       testForm,
		Status:         submission.StatusSucceeded,
		PhoneDigest:    phoneDigest,
		CreatedAt:      completedAt,
		UpdatedAt:      completedAt,
		CompletedAt:    &completedAt,
	}
	s.Require().NoError(s.store.Create(s.ctx, sub))
	return sub.ID
}

func (s *RateLimitSuite) TestNew() {
	s.Run("nil window store returns error", func() {
		_, err := New(nil, s.allowlist, time.Hour)
		s.Require().Error(err)
	})

	s.Run("nil allowlist returns error", func() {
		_, err := New(s.store, nil, time.Hour)
		s.Require().Error(err)
	})

	s.Run("non-positive window returns error", func() {
		_, err := New(s.store, s.allowlist, 0)
		s.Require().Error(err)
	})
}

func (s *RateLimitSuite) TestEmailDimension() {
	s.Run("clean history is allowed", func() {
		allowed, err := s.service.Validate(s.ctx, DimensionEmail,
			Identity{EmailDigest: "email-a"}, testForm, uuid.Nil)
		s.Require().NoError(err)
		s.True(allowed)
	})

	s.Run("completion inside the window denies", func() {
		s.addCompleted("email-b", "phone-b", 30*24*time.Hour)

		allowed, err := s.service.Validate(s.ctx, DimensionEmail,
			Identity{EmailDigest: "email-b"}, testForm, uuid.Nil)
		s.Require().NoError(err)
		s.False(allowed)
	})

	s.Run("completion outside the window allows", func() {
		s.addCompleted("email-c", "phone-c", 366*24*time.Hour)

		allowed, err := s.service.Validate(s.ctx, DimensionEmail,
			Identity{EmailDigest: "email-c"}, testForm, uuid.Nil)
		s.Require().NoError(err)
		s.True(allowed)
	})

	s.Run("a different form does not deny", func() {
		s.addCompleted("email-d", "phone-d", time.Hour)

		allowed, err := s.service.Validate(s.ctx, DimensionEmail,
			Identity{EmailDigest: "email-d"}, "demo_request", uuid.Nil)
		s.Require().NoError(err)
		s.True(allowed)
	})

	s.Run("own submission is excluded from the window", func() {
		id := s.addCompleted("email-e", "phone-e", time.Hour)

		allowed, err := s.service.Validate(s.ctx, DimensionEmail,
			Identity{EmailDigest: "email-e"}, testForm, id)
		s.Require().NoError(err)
		s.True(allowed)
	})
}

func (s *RateLimitSuite) TestPhoneDimension() {
	s.Run("completion inside the window denies", func() {
		s.addCompleted("email-f", "phone-f", time.Hour)

		allowed, err := s.service.Validate(s.ctx, DimensionPhone,
			Identity{PhoneDigest: "phone-f"}, testForm, uuid.Nil)
		s.Require().NoError(err)
		s.False(allowed)
	})
}

func (s *RateLimitSuite) TestCombinedDimension() {
	s.Run("denies when only the phone matches", func() {
		s.addCompleted("email-g", "phone-g", time.Hour)

		allowed, err := s.service.Validate(s.ctx, DimensionCombined,
			Identity{EmailDigest: "fresh-email", PhoneDigest: "phone-g"}, testForm, uuid.Nil)
		s.Require().NoError(err)
		s.False(allowed)
	})

	s.Run("denies when only the email matches", func() {
		s.addCompleted("email-h", "phone-h", time.Hour)

		allowed, err := s.service.Validate(s.ctx, DimensionCombined,
			Identity{EmailDigest: "email-h", PhoneDigest: "fresh-phone"}, testForm, uuid.Nil)
		s.Require().NoError(err)
		s.False(allowed)
	})

	s.Run("allows when both are clean", func() {
		allowed, err := s.service.Validate(s.ctx, DimensionCombined,
			Identity{EmailDigest: "fresh-1", PhoneDigest: "fresh-2"}, testForm, uuid.Nil)
		s.Require().NoError(err)
		s.True(allowed)
	})
}

func (s *RateLimitSuite) TestAllowlistOverride() {
	s.Run("allowlisted email is never denied", func() {
		s.addCompleted("email-i", "phone-i", time.Hour)
		s.Require().NoError(s.allowlist.Add(s.ctx, &policy.AllowBlockEntry{
			ContactType:   policy.ContactEmail,
			ContactDigest: "email-i",
			List:          policy.ListAllow,
			CreatedAt:     s.now,
		}))

		allowed, err := s.service.Validate(s.ctx, DimensionEmail,
			Identity{EmailDigest: "email-i"}, testForm, uuid.Nil)
		s.Require().NoError(err)
		s.True(allowed)
	})

	s.Run("blocklisted email is denied even with a clean history", func() {
		s.Require().NoError(s.allowlist.Add(s.ctx, &policy.AllowBlockEntry{
			ContactType:   policy.ContactEmail,
			ContactDigest: "email-j",
			List:          policy.ListBlock,
			CreatedAt:     s.now,
		}))

		allowed, err := s.service.Validate(s.ctx, DimensionEmail,
			Identity{EmailDigest: "email-j"}, testForm, uuid.Nil)
		s.Require().NoError(err)
		s.False(allowed)
	})

	s.Run("blocklisted phone denies the combined dimension", func() {
		s.Require().NoError(s.allowlist.Add(s.ctx, &policy.AllowBlockEntry{
			ContactType:   policy.ContactPhone,
			ContactDigest: "phone-l",
			List:          policy.ListBlock,
			CreatedAt:     s.now,
		}))

		allowed, err := s.service.Validate(s.ctx, DimensionCombined,
			Identity{EmailDigest: "fresh-email-l", PhoneDigest: "phone-l"}, testForm, uuid.Nil)
		s.Require().NoError(err)
		s.False(allowed)
	})

	s.Run("phone allowlist covers the combined dimension's phone side", func() {
		s.addCompleted("email-k", "phone-k", time.Hour)
		s.Require().NoError(s.allowlist.Add(s.ctx, &policy.AllowBlockEntry{
			ContactType:   policy.ContactPhone,
			ContactDigest: "phone-k",
			List:          policy.ListAllow,
			CreatedAt:     s.now,
		}))

		allowed, err := s.service.Validate(s.ctx, DimensionCombined,
			Identity{EmailDigest: "fresh-email-k", PhoneDigest: "phone-k"}, testForm, uuid.Nil)
		s.Require().NoError(err)
		s.True(allowed)
	})
}

func (s *RateLimitSuite) TestUnknownDimension() {
	_, err := s.service.Validate(s.ctx, Dimension("bogus"), Identity{}, testForm, uuid.Nil)
	s.Require().Error(err)
}
