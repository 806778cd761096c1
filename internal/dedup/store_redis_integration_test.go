//go:build integration

package dedup_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"leadgate/internal/dedup"
	"leadgate/pkg/platform/sentinel"
	"leadgate/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *dedup.RedisStore
	ctx   context.Context
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.store = dedup.NewRedisStore(s.redis.Client, time.Hour)
	s.ctx = context.Background()
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(s.ctx))
}

func (s *RedisStoreSuite) TestClaimOnceSemantics() {
	claimed, err := s.store.Claim(s.ctx, "msg-1", "digest-1")
	s.Require().NoError(err)
	s.True(claimed)

	claimed, err = s.store.Claim(s.ctx, "msg-1", "digest-1")
	s.Require().NoError(err)
	s.False(claimed)
}

// TestConcurrentClaims verifies SET NX serializes contested claims.
func (s *RedisStoreSuite) TestConcurrentClaims() {
	const workers = 16
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

func (s *RedisStoreSuite) TestComplete() {
	_, err := s.store.Claim(s.ctx, "msg-2", "digest-2")
	s.Require().NoError(err)

	s.Require().NoError(s.store.Complete(s.ctx, "msg-2"))
	s.Require().ErrorIs(s.store.Complete(s.ctx, "msg-2"), sentinel.ErrAlreadyUsed)
}

func (s *RedisStoreSuite) TestCompleteUnknown() {
	s.Require().ErrorIs(s.store.Complete(s.ctx, "missing"), sentinel.ErrNotFound)
}

// TestClaimExpiry uses a short-TTL store so the claim window lapses.
func (s *RedisStoreSuite) TestClaimExpiry() {
	short := dedup.NewRedisStore(s.redis.Client, 100*time.Millisecond)

	claimed, err := short.Claim(s.ctx, "msg-3", "digest-3")
	s.Require().NoError(err)
	s.True(claimed)

	time.Sleep(200 * time.Millisecond)

	claimed, err = short.Claim(s.ctx, "msg-3", "digest-3")
	s.Require().NoError(err)
	s.True(claimed)
}
