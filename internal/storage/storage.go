// Package storage defines the audit store for finished intake sessions.
// This is a record of completed conversations, not dialogue-state
// persistence: a reload always starts a fresh session.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jantavoice/intake/internal/core/domain"
)

// ErrNotFound reports a lookup for an intake that was never recorded.
var ErrNotFound = errors.New("intake not found")

// IntakeRecord is one finished session: its collected fields and terminal
// outcome.
type IntakeRecord struct {
	ID        string
	Flow      domain.Flow
	Outcome   domain.Outcome
	Email     string
	Primary   string
	Location  string
	Details   string
	Messages  []StoredMessage
	CreatedAt time.Time
	UpdatedAt time.Time
}

// StoredMessage is one persisted transcript entry.
type StoredMessage struct {
	ID        string
	Sender    domain.Sender
	Text      string
	CreatedAt time.Time
}

// ListOptions pages intake listings.
type ListOptions struct {
	Limit  int
	Offset int
}

// TranscriptStore persists finished intakes and their transcripts.
type TranscriptStore interface {
	CreateIntake(ctx context.Context, rec *IntakeRecord) error
	AddMessage(ctx context.Context, intakeID string, msg *StoredMessage) error
	GetIntake(ctx context.Context, id string) (*IntakeRecord, error)
	ListIntakes(ctx context.Context, opts ListOptions) ([]*IntakeRecord, error)
}
