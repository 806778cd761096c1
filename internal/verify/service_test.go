package verify

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"leadgate/pkg/platform/sentinel"
)

// captureSender records the last dispatched code instead of delivering it.
type captureSender struct {
	lastPhone   string
	lastCode    string
	lastChannel Channel
	err         error
}

func (c *captureSender) Send(_ context.Context, phone, code string, channel Channel) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	c.lastPhone = phone
	c.lastCode = code
	c.lastChannel = channel
	return "ref-123", nil
}

type VerifySuite struct {
	suite.Suite
	sender  *captureSender
	service *Service
	ctx     context.Context
	now     time.Time
}

func TestVerifySuite(t *testing.T) {
	suite.Run(t, new(VerifySuite))
}

func (s *VerifySuite) SetupTest() {
	s.sender = &captureSender{}
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	var err error
	s.service, err = New(s.sender, 6, 10*time.Minute)
	s.Require().NoError(err)
}

func (s *VerifySuite) TestNew() {
	s.Run("nil sender returns error", func() {
		_, err := New(nil, 6, time.Minute)
		s.Require().Error(err)
	})

	s.Run("short code length returns error", func() {
		_, err := New(s.sender, 3, time.Minute)
		s.Require().Error(err)
	})

	s.Run("non-positive ttl returns error", func() {
		_, err := New(s.sender, 6, 0)
		s.Require().Error(err)
	})
}

func (s *VerifySuite) TestIssue() {
	s.Run("dispatches a numeric code of configured length", func() {
		record, err := s.service.Issue(s.ctx, "+12025551234", "sms", s.now)
		s.Require().NoError(err)

		s.Len(s.sender.lastCode, 6)
		for _, ch := range s.sender.lastCode {
			s.True(ch >= '0' && ch <= '9')
		}
		s.Equal(ChannelSMS, s.sender.lastChannel)
		s.Equal("ref-123", record.DeliveryRef)
		s.Equal("sms", record.Channel)
		s.Equal(s.now, record.IssuedAt)
	})

	s.Run("stores a hash, never the code", func() {
		record, err := s.service.Issue(s.ctx, "+12025551234", "voice", s.now)
		s.Require().NoError(err)
		s.NotEqual(s.sender.lastCode, record.CodeHash)
		s.NotContains(record.CodeHash, s.sender.lastCode)
	})

	s.Run("rejects an unknown channel", func() {
		_, err := s.service.Issue(s.ctx, "+12025551234", "carrier-pigeon", s.now)
		s.Require().Error(err)
	})

	s.Run("delivery failure produces no record", func() {
		s.sender.err = fmt.Errorf("gateway down")
		defer func() { s.sender.err = nil }()

		record, err := s.service.Issue(s.ctx, "+12025551234", "sms", s.now)
		s.Require().Error(err)
		s.Nil(record)
	})
}

// TestGenerateCode checks length and that sampling covers the whole digit
// range. With 600 digits drawn, a missing digit is practically impossible.
func (s *VerifySuite) TestGenerateCode() {
	seen := make(map[byte]bool)
	for i := 0; i < 100; i++ {
		code, err := generateCode(6)
		s.Require().NoError(err)
		s.Require().Len(code, 6)
		for j := 0; j < len(code); j++ {
			s.Require().True(code[j] >= '0' && code[j] <= '9')
			seen[code[j]] = true
		}
	}
	s.Len(seen, 10)
}

func (s *VerifySuite) TestCheck() {
	s.Run("accepts the issued code within ttl", func() {
		record, err := s.service.Issue(s.ctx, "+12025551234", "sms", s.now)
		s.Require().NoError(err)

		s.Require().NoError(s.service.Check(record, s.sender.lastCode, s.now.Add(5*time.Minute)))
	})

	s.Run("rejects a wrong code", func() {
		record, err := s.service.Issue(s.ctx, "+12025551234", "sms", s.now)
		s.Require().NoError(err)

		wrong := "000000"
		if s.sender.lastCode == wrong {
			wrong = "111111"
		}
		err = s.service.Check(record, wrong, s.now)
		s.Require().ErrorIs(err, sentinel.ErrInvalidState)
	})

	s.Run("rejects an expired code", func() {
		record, err := s.service.Issue(s.ctx, "+12025551234", "sms", s.now)
		s.Require().NoError(err)

		err = s.service.Check(record, s.sender.lastCode, s.now.Add(11*time.Minute))
		s.Require().ErrorIs(err, sentinel.ErrExpired)
	})

	s.Run("nil record returns ErrNotFound", func() {
		err := s.service.Check(nil, "123456", s.now)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}
