package gateway

import (
	"context"
	"sync"
	"time"

	"kyc-gateway/pkg/platform/sentinel"
	"kyc-gateway/pkg/requestcontext"
)

// InMemoryChallengeStore holds open challenges in a mutex-guarded map.
// Suitable for single-instance deployments and tests; multi-instance
// deployments should use the Redis store so challenges survive routing to a
// different replica.
type InMemoryChallengeStore struct {
	mu         sync.Mutex
	challenges map[string]storedChallenge
}

type storedChallenge struct {
	challenge OpenChallenge
	expiresAt time.Time
}

func NewInMemoryChallengeStore() *InMemoryChallengeStore {
	return &InMemoryChallengeStore{challenges: make(map[string]storedChallenge)}
}

func (s *InMemoryChallengeStore) Put(ctx context.Context, ch OpenChallenge, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.challenges[ch.CorrelationID] = storedChallenge{
		challenge: ch,
		expiresAt: requestcontext.Now(ctx).Add(ttl),
	}
	return nil
}

func (s *InMemoryChallengeStore) Consume(ctx context.Context, correlationID string) (OpenChallenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.challenges[correlationID]
	if !ok {
		return OpenChallenge{}, sentinel.ErrNotFound
	}
	delete(s.challenges, correlationID)

	if requestcontext.Now(ctx).After(stored.expiresAt) {
		return OpenChallenge{}, sentinel.ErrExpired
	}
	return stored.challenge, nil
}
