// Package memory is an in-memory TranscriptStore, used in tests and in
// deployments that do not keep an audit trail.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jantavoice/intake/internal/storage"
)

// Store is an in-memory implementation of storage.TranscriptStore.
type Store struct {
	mu      sync.RWMutex
	intakes map[string]*storage.IntakeRecord
}

var _ storage.TranscriptStore = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{intakes: make(map[string]*storage.IntakeRecord)}
}

func (s *Store) CreateIntake(ctx context.Context, rec *storage.IntakeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.intakes[rec.ID]; exists {
		return fmt.Errorf("intake %s already exists", rec.ID)
	}

	stored := *rec
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	stored.Messages = append([]storage.StoredMessage(nil), rec.Messages...)

	s.intakes[rec.ID] = &stored
	return nil
}

func (s *Store) AddMessage(ctx context.Context, intakeID string, msg *storage.StoredMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, exists := s.intakes[intakeID]
	if !exists {
		return fmt.Errorf("intake %s: %w", intakeID, storage.ErrNotFound)
	}

	stored := *msg
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	rec.Messages = append(rec.Messages, stored)
	rec.UpdatedAt = time.Now()
	return nil
}

func (s *Store) GetIntake(ctx context.Context, id string) (*storage.IntakeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.intakes[id]
	if !exists {
		return nil, fmt.Errorf("intake %s: %w", id, storage.ErrNotFound)
	}

	out := *rec
	out.Messages = append([]storage.StoredMessage(nil), rec.Messages...)
	return &out, nil
}

func (s *Store) ListIntakes(ctx context.Context, opts storage.ListOptions) ([]*storage.IntakeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*storage.IntakeRecord, 0, len(s.intakes))
	for _, rec := range s.intakes {
		out := *rec
		out.Messages = append([]storage.StoredMessage(nil), rec.Messages...)
		all = append(all, &out)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	if opts.Offset > 0 {
		if opts.Offset >= len(all) {
			return nil, nil
		}
		all = all[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(all) {
		all = all[:opts.Limit]
	}
	return all, nil
}
