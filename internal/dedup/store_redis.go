package dedup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"leadgate/pkg/platform/sentinel"
)

const claimKeyPrefix = "dedup:claim:"

// RedisStore is the production claim store. SET NX gives the atomic
// conditional create; the key TTL bounds the dedup window, after which Redis
// drops the record and the message id becomes claimable again.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore constructs a Redis-backed claim store with the given TTL.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Claim(ctx context.Context, messageID, contentDigest string) (bool, error) {
	now := time.Now()
	claim := Claim{
		MessageID:     messageID,
		Status:        StatusProcessing,
		ContentDigest: contentDigest,
		ClaimedAt:     now,
		ExpiresAt:     now.Add(s.ttl),
	}
	payload, err := json.Marshal(claim)
	if err != nil {
		return false, fmt.Errorf("marshal claim: %w", err)
	}

	acquired, err := s.client.SetNX(ctx, claimKeyPrefix+messageID, payload, s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim message %s: %w", messageID, err)
	}
	metricClaims.WithLabelValues(outcomeLabel(acquired)).Inc()
	return acquired, nil
}

func (s *RedisStore) Complete(ctx context.Context, messageID string) error {
	key := claimKeyPrefix + messageID
	payload, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return sentinel.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load claim %s: %w", messageID, err)
	}

	var claim Claim
	if err := json.Unmarshal(payload, &claim); err != nil {
		return fmt.Errorf("unmarshal claim %s: %w", messageID, err)
	}
	if claim.Status == StatusProcessed {
		return sentinel.ErrAlreadyUsed
	}
	claim.Status = StatusProcessed

	updated, err := json.Marshal(claim)
	if err != nil {
		return fmt.Errorf("marshal claim %s: %w", messageID, err)
	}
	// KEEPTTL preserves the original dedup window.
	if err := s.client.Set(ctx, key, updated, redis.KeepTTL).Err(); err != nil {
		return fmt.Errorf("complete claim %s: %w", messageID, err)
	}
	return nil
}

func outcomeLabel(acquired bool) string {
	if acquired {
		return "acquired"
	}
	return "duplicate"
}
