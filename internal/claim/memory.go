package claim

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"dockmatch/internal/domain"
	"dockmatch/internal/port"
)

type memoryStore struct {
	mu     sync.Mutex
	byNote map[uuid.UUID]uuid.UUID
}

// NewMemoryStore creates an in-process ClaimStore. Suitable for a single
// instance; deployments running more than one replica use the Redis store.
func NewMemoryStore() port.ClaimStore {
	return &memoryStore{byNote: make(map[uuid.UUID]uuid.UUID)}
}

func (s *memoryStore) Claim(_ context.Context, noteID, invoiceID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if holder, ok := s.byNote[noteID]; ok && holder != invoiceID {
		return fmt.Errorf("%w: note %s held by invoice %s", domain.ErrNoteAlreadyClaimed, noteID, holder)
	}
	s.byNote[noteID] = invoiceID
	return nil
}

func (s *memoryStore) Release(_ context.Context, noteID, invoiceID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if holder, ok := s.byNote[noteID]; ok && holder == invoiceID {
		delete(s.byNote, noteID)
	}
	return nil
}

func (s *memoryStore) Holder(_ context.Context, noteID uuid.UUID) (uuid.UUID, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	holder, ok := s.byNote[noteID]
	return holder, ok, nil
}
