// Package document persists verification attempt records.
package document

import (
	"context"
	"sync"

	"kyc-gateway/internal/kyc/models"
	id "kyc-gateway/pkg/domain"
	"kyc-gateway/pkg/platform/sentinel"
)

// InMemory keeps attempts in insertion order behind a mutex. Resolve holds
// the lock across validate and mutate, giving the same one-winner guarantee
// the postgres store gets from a conditional update.
type InMemory struct {
	mu   sync.RWMutex
	docs []*models.Document
}

func NewInMemory() *InMemory {
	return &InMemory{}
}

func (s *InMemory) Create(_ context.Context, doc *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.docs {
		if existing.ID == doc.ID {
			return sentinel.ErrAlreadyUsed
		}
	}
	stored := *doc
	s.docs = append(s.docs, &stored)
	return nil
}

// FindPendingByCorrelation returns the most recent Pending Aadhaar attempt
// for the given owner and correlation token.
func (s *InMemory) FindPendingByCorrelation(_ context.Context, userID id.UserID, correlationID string) (*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if doc := s.findPendingLocked(userID, correlationID); doc != nil {
		copied := *doc
		return &copied, nil
	}
	return nil, sentinel.ErrNotFound
}

// Resolve atomically transitions the most recent matching Pending attempt.
// The lock is held across validation and mutation so concurrent resolvers
// cannot both observe Pending; the loser gets sentinel.ErrNotFound.
func (s *InMemory) Resolve(_ context.Context, userID id.UserID, correlationID string,
	validate func(*models.Document) error, mutate func(*models.Document)) (*models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.findPendingLocked(userID, correlationID)
	if doc == nil {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(doc); err != nil {
		return nil, err
	}
	mutate(doc)

	copied := *doc
	return &copied, nil
}

// ListByUser returns the user's attempts, most recent first.
func (s *InMemory) ListByUser(_ context.Context, userID id.UserID) ([]*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Document
	for i := len(s.docs) - 1; i >= 0; i-- {
		if s.docs[i].UserID == userID {
			copied := *s.docs[i]
			out = append(out, &copied)
		}
	}
	return out, nil
}

// HasVerified reports whether any attempt of the given type is Verified.
func (s *InMemory) HasVerified(_ context.Context, userID id.UserID, docType models.DocumentType) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, doc := range s.docs {
		if doc.UserID == userID && doc.Type == docType && doc.Status == models.DocumentStatusVerified {
			return true, nil
		}
	}
	return false, nil
}

func (s *InMemory) findPendingLocked(userID id.UserID, correlationID string) *models.Document {
	for i := len(s.docs) - 1; i >= 0; i-- {
		doc := s.docs[i]
		if doc.UserID == userID &&
			doc.Type == models.DocumentTypeAadhaar &&
			doc.Status == models.DocumentStatusPending &&
			doc.CorrelationID != nil && *doc.CorrelationID == correlationID {
			return doc
		}
	}
	return nil
}
