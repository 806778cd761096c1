package dedup

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"leadgate/pkg/platform/sentinel"
)

type MemoryStoreSuite struct {
	suite.Suite
	store *MemoryStore
	ctx   context.Context
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = NewMemoryStore(time.Hour)
	s.ctx = context.Background()
}

func (s *MemoryStoreSuite) TestClaim() {
	s.Run("first claim wins", func() {
		claimed, err := s.store.Claim(s.ctx, "msg-1", "digest-1")
		s.Require().NoError(err)
		s.True(claimed)
	})

	s.Run("second claim of the same message loses", func() {
		claimed, err := s.store.Claim(s.ctx, "msg-2", "digest-2")
		s.Require().NoError(err)
		s.True(claimed)

		claimed, err = s.store.Claim(s.ctx, "msg-2", "digest-2")
		s.Require().NoError(err)
		s.False(claimed)
	})

	s.Run("expired claim becomes claimable again", func() {
		now := time.Now()
		s.store.SetClock(func() time.Time { return now })

		claimed, err := s.store.Claim(s.ctx, "msg-3", "digest-3")
		s.Require().NoError(err)
		s.True(claimed)

		s.store.SetClock(func() time.Time { return now.Add(2 * time.Hour) })
		claimed, err = s.store.Claim(s.ctx, "msg-3", "digest-3")
		s.Require().NoError(err)
		s.True(claimed)
	})
}

// TestConcurrentClaims verifies exactly one goroutine wins a contested claim.
func (s *MemoryStoreSuite) TestConcurrentClaims() {
	const workers = 32
	var wins atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			claimed, err := s.store.Claim(s.ctx, "contested", "digest")
			s.NoError(err)
			if claimed {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), wins.Load())
}

func (s *MemoryStoreSuite) TestComplete() {
	s.Run("completes a processing claim", func() {
		_, err := s.store.Claim(s.ctx, "msg-4", "digest-4")
		s.Require().NoError(err)

		s.Require().NoError(s.store.Complete(s.ctx, "msg-4"))
	})

	s.Run("completing twice returns ErrAlreadyUsed", func() {
		_, err := s.store.Claim(s.ctx, "msg-5", "digest-5")
		s.Require().NoError(err)
		s.Require().NoError(s.store.Complete(s.ctx, "msg-5"))

		err = s.store.Complete(s.ctx, "msg-5")
		s.Require().ErrorIs(err, sentinel.ErrAlreadyUsed)
	})

	s.Run("completing an unknown claim returns ErrNotFound", func() {
		err := s.store.Complete(s.ctx, "never-claimed")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("completing an expired claim returns ErrNotFound", func() {
		now := time.Now()
		s.store.SetClock(func() time.Time { return now })
		_, err := s.store.Claim(s.ctx, "msg-6", "digest-6")
		s.Require().NoError(err)

		s.store.SetClock(func() time.Time { return now.Add(2 * time.Hour) })
		err = s.store.Complete(s.ctx, "msg-6")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}
