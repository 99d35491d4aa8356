package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jantavoice/intake/internal/storage"
)

// HealthHandler reports liveness.
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// intakeView is the wire shape for one audited intake.
type intakeView struct {
	ID        string        `json:"id"`
	Flow      string        `json:"flow"`
	Outcome   string        `json:"outcome"`
	Email     string        `json:"email"`
	Primary   string        `json:"primary"`
	Location  string        `json:"location"`
	Details   string        `json:"details"`
	Messages  []messageView `json:"messages,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

type messageView struct {
	ID        string    `json:"id"`
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// IntakeHandlers serves the read-only audit view over finished sessions.
type IntakeHandlers struct {
	store  storage.TranscriptStore
	logger *slog.Logger
}

func NewIntakeHandlers(store storage.TranscriptStore, logger *slog.Logger) *IntakeHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &IntakeHandlers{store: store, logger: logger}
}

// List returns finished intakes, newest first, without transcripts.
func (h *IntakeHandlers) List(w http.ResponseWriter, r *http.Request) {
	opts := storage.ListOptions{Limit: 50}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			opts.Limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			opts.Offset = n
		}
	}

	recs, err := h.store.ListIntakes(r.Context(), opts)
	if err != nil {
		h.logger.Error("listing intakes failed", "error", err)
		writeError(w, http.StatusInternalServerError, "listing intakes failed")
		return
	}

	views := make([]intakeView, 0, len(recs))
	for _, rec := range recs {
		v := viewOf(rec)
		v.Messages = nil
		views = append(views, v)
	}
	writeJSON(w, http.StatusOK, map[string]any{"intakes": views})
}

// Get returns one intake with its full transcript.
func (h *IntakeHandlers) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rec, err := h.store.GetIntake(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "intake not found")
			return
		}
		h.logger.Error("loading intake failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "loading intake failed")
		return
	}
	writeJSON(w, http.StatusOK, viewOf(rec))
}

func viewOf(rec *storage.IntakeRecord) intakeView {
	v := intakeView{
		ID:        rec.ID,
		Flow:      string(rec.Flow),
		Outcome:   string(rec.Outcome),
		Email:     rec.Email,
		Primary:   rec.Primary,
		Location:  rec.Location,
		Details:   rec.Details,
		CreatedAt: rec.CreatedAt,
	}
	for _, m := range rec.Messages {
		v.Messages = append(v.Messages, messageView{
			ID:        m.ID,
			Sender:    string(m.Sender),
			Text:      m.Text,
			CreatedAt: m.CreatedAt,
		})
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
