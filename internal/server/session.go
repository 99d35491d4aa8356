package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jantavoice/intake/internal/adapters/client/ws"
	"github.com/jantavoice/intake/internal/command"
	"github.com/jantavoice/intake/internal/core/domain"
	"github.com/jantavoice/intake/internal/core/ports"
	"github.com/jantavoice/intake/internal/dialogue"
	"github.com/jantavoice/intake/internal/gazetteer"
	"github.com/jantavoice/intake/internal/location"
	"github.com/jantavoice/intake/internal/mux"
	"github.com/jantavoice/intake/internal/storage"
)

const handshakeTimeout = 3 * time.Second

// SessionDeps carries everything one conversation needs. The handler
// builds a fresh controller per connection; no dialogue state is shared
// across sessions.
type SessionDeps struct {
	Geocoder  ports.Geocoder
	Gazetteer *gazetteer.Gazetteer
	Submitter ports.Submitter
	Store     storage.TranscriptStore

	Interpreter   *command.Interpreter
	NavigateDelay time.Duration

	AllowedOrigins []string
	Logger         *slog.Logger
}

// SessionHandler upgrades the request and runs a conversation until the
// client disconnects.
type SessionHandler struct {
	deps     SessionDeps
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewSessionHandler builds the handler with a browser-origin allowlist;
// an empty allowlist admits everything, and non-browser clients with no
// Origin header are always admitted.
func NewSessionHandler(deps SessionDeps) *SessionHandler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	allowed := make(map[string]bool, len(deps.AllowedOrigins))
	for _, o := range deps.AllowedOrigins {
		allowed[o] = true
	}
	return &SessionHandler{
		deps: deps,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				if len(allowed) == 0 {
					return true
				}
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				return allowed[origin]
			},
		},
		logger: deps.Logger,
	}
}

func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flow := domain.FlowIssue
	if r.URL.Query().Get("flow") == string(domain.FlowService) {
		flow = domain.FlowService
	}
	identity := identityFrom(r)

	raw, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	conn := ws.New(raw, h.logger)
	defer conn.Close()

	if err := conn.Handshake(handshakeTimeout); err != nil {
		h.logger.Warn("client handshake failed", "error", err)
		return
	}

	resolver := location.New(conn, h.deps.Geocoder, h.deps.Gazetteer, h.logger)

	ctrl := dialogue.New(dialogue.Config{
		Flow:          flow,
		Identity:      identity,
		Bridge:        conn,
		Client:        conn,
		Resolver:      resolver,
		Submitter:     h.deps.Submitter,
		Store:         h.deps.Store,
		Interpreter:   h.deps.Interpreter,
		Logger:        h.logger,
		NavigateDelay: h.deps.NavigateDelay,
	})

	inputs := mux.New(ctrl.Post)
	ctrl.SetGate(inputs)

	conn.Announce(ctrl.Session().ID, flow)

	h.logger.Info("session attached",
		slog.String("session_id", ctrl.Session().ID),
		slog.String("flow", string(flow)),
		slog.Bool("speech", conn.Supported()),
	)

	// The controller owns all dialogue state on its own goroutine; the
	// read loop below feeds it through the multiplexer. When the socket
	// drops, cancelling the context lets Run record the outcome.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		ctrl.Run(ctx)
	}()

	_ = conn.Run(ctx, inputs)
	cancel()
	<-done

	h.logger.Info("session detached", slog.String("session_id", ctrl.Session().ID))
}

// identityFrom reads the caller-declared identity. Authentication is the
// embedding portal's concern; the engine only threads the value through
// to submission.
func identityFrom(r *http.Request) domain.Identity {
	email := r.Header.Get("X-User-Email")
	if email == "" {
		email = r.URL.Query().Get("email")
	}
	return domain.Identity{Email: email}
}
