// Package transcript persists finished dialogue sessions to the audit
// store. Recording is best-effort: a storage failure is logged, never
// surfaced into the dialogue.
package transcript

import (
	"context"
	"log/slog"
	"time"

	"github.com/jantavoice/intake/internal/core/domain"
	"github.com/jantavoice/intake/internal/storage"
)

const persistTimeout = 5 * time.Second

// Record stores the session's fields and full transcript under its
// terminal outcome. It detaches from the caller's context so a client
// disconnect cannot drop the audit record, while still bounding the write
// with its own timeout. Returns the intake ID, or "" when nothing was
// stored.
func Record(ctx context.Context, store storage.TranscriptStore, session *domain.Session, outcome domain.Outcome, id domain.Identity, logger *slog.Logger) string {
	if store == nil || session == nil {
		return ""
	}
	if logger == nil {
		logger = slog.Default()
	}

	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	rec := &storage.IntakeRecord{
		ID:       session.ID,
		Flow:     session.Flow,
		Outcome:  outcome,
		Email:    id.OrAnonymous().Email,
		Primary:  session.Fields.Primary,
		Location: session.Fields.Location,
		Details:  session.Fields.Details,
	}

	if err := store.CreateIntake(persistCtx, rec); err != nil {
		logger.Error("failed to store intake",
			slog.String("session_id", session.ID),
			slog.String("outcome", string(outcome)),
			slog.String("error", err.Error()),
		)
		return ""
	}

	for _, msg := range session.Transcript {
		if err := store.AddMessage(persistCtx, session.ID, &storage.StoredMessage{
			ID:        msg.ID,
			Sender:    msg.Sender,
			Text:      msg.Text,
			CreatedAt: msg.Timestamp,
		}); err != nil {
			logger.Error("failed to store transcript message",
				slog.String("session_id", session.ID),
				slog.String("message_id", msg.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	return session.ID
}
