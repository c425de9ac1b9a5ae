package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"kyc-gateway/pkg/platform/sentinel"
)

const challengeKeyPrefix = "kyc:otp:"

// RedisChallengeStore keeps open challenges in Redis with a TTL, so expiry is
// enforced by the store and challenges are visible to every instance. Consume
// uses GETDEL so exactly one caller can take a challenge out.
type RedisChallengeStore struct {
	client *redis.Client
}

func NewRedisChallengeStore(client *redis.Client) *RedisChallengeStore {
	return &RedisChallengeStore{client: client}
}

func (s *RedisChallengeStore) Put(ctx context.Context, ch OpenChallenge, ttl time.Duration) error {
	payload, err := json.Marshal(ch)
	if err != nil {
		return fmt.Errorf("marshal challenge: %w", err)
	}
	if err := s.client.Set(ctx, challengeKeyPrefix+ch.CorrelationID, payload, ttl).Err(); err != nil {
		return fmt.Errorf("store challenge: %w", err)
	}
	return nil
}

func (s *RedisChallengeStore) Consume(ctx context.Context, correlationID string) (OpenChallenge, error) {
	payload, err := s.client.GetDel(ctx, challengeKeyPrefix+correlationID).Result()
	if errors.Is(err, redis.Nil) {
		// Expired keys and never-issued keys are indistinguishable here,
		// which is exactly what the contract requires.
		return OpenChallenge{}, sentinel.ErrNotFound
	}
	if err != nil {
		return OpenChallenge{}, fmt.Errorf("consume challenge: %w", err)
	}

	var ch OpenChallenge
	if err := json.Unmarshal([]byte(payload), &ch); err != nil {
		return OpenChallenge{}, fmt.Errorf("unmarshal challenge: %w", err)
	}
	return ch, nil
}
