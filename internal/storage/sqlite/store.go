// Package sqlite is the SQLite-backed TranscriptStore.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jantavoice/intake/internal/core/domain"
	"github.com/jantavoice/intake/internal/storage"
)

// Store is a SQLite implementation of storage.TranscriptStore.
type Store struct {
	db *sql.DB
}

var _ storage.TranscriptStore = (*Store)(nil)

// New opens (or creates) the database at dbPath and ensures the schema.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS intakes (
			id TEXT PRIMARY KEY,
			flow TEXT NOT NULL,
			outcome TEXT NOT NULL,
			email TEXT NOT NULL,
			primary_field TEXT,
			location TEXT,
			details TEXT,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS intake_messages (
			id TEXT PRIMARY KEY,
			intake_id TEXT NOT NULL,
			sender TEXT NOT NULL,
			text TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			FOREIGN KEY (intake_id) REFERENCES intakes(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_intakes_outcome ON intakes(outcome)`,
		`CREATE INDEX IF NOT EXISTS idx_intake_messages_intake ON intake_messages(intake_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return nil
}

func (s *Store) CreateIntake(ctx context.Context, rec *storage.IntakeRecord) error {
	now := time.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO intakes (id, flow, outcome, email, primary_field, location, details, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, string(rec.Flow), string(rec.Outcome), rec.Email,
		rec.Primary, rec.Location, rec.Details, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert intake: %w", err)
	}

	for i := range rec.Messages {
		if err := s.AddMessage(ctx, rec.ID, &rec.Messages[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) AddMessage(ctx context.Context, intakeID string, msg *storage.StoredMessage) error {
	createdAt := msg.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO intake_messages (id, intake_id, sender, text, created_at) VALUES (?, ?, ?, ?, ?)`,
		msg.ID, intakeID, string(msg.Sender), msg.Text, createdAt,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `UPDATE intakes SET updated_at = ? WHERE id = ?`, time.Now(), intakeID)
	if err != nil {
		return fmt.Errorf("touch intake: %w", err)
	}
	return nil
}

func (s *Store) GetIntake(ctx context.Context, id string) (*storage.IntakeRecord, error) {
	rec := &storage.IntakeRecord{}
	var flow, outcome string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, flow, outcome, email, primary_field, location, details, created_at, updated_at
		 FROM intakes WHERE id = ?`, id,
	).Scan(&rec.ID, &flow, &outcome, &rec.Email, &rec.Primary, &rec.Location, &rec.Details, &rec.CreatedAt, &rec.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("intake %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query intake: %w", err)
	}
	rec.Flow = domain.Flow(flow)
	rec.Outcome = domain.Outcome(outcome)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, sender, text, created_at FROM intake_messages WHERE intake_id = ? ORDER BY created_at, id`, id)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var msg storage.StoredMessage
		var sender string
		if err := rows.Scan(&msg.ID, &sender, &msg.Text, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.Sender = domain.Sender(sender)
		rec.Messages = append(rec.Messages, msg)
	}
	return rec, rows.Err()
}

func (s *Store) ListIntakes(ctx context.Context, opts storage.ListOptions) ([]*storage.IntakeRecord, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, flow, outcome, email, primary_field, location, details, created_at, updated_at
		 FROM intakes ORDER BY created_at DESC LIMIT ? OFFSET ?`, limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("list intakes: %w", err)
	}
	defer rows.Close()

	var out []*storage.IntakeRecord
	for rows.Next() {
		rec := &storage.IntakeRecord{}
		var flow, outcome string
		if err := rows.Scan(&rec.ID, &flow, &outcome, &rec.Email, &rec.Primary, &rec.Location, &rec.Details, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan intake: %w", err)
		}
		rec.Flow = domain.Flow(flow)
		rec.Outcome = domain.Outcome(outcome)
		out = append(out, rec)
	}
	return out, rows.Err()
}
