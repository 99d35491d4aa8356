// Package ws attaches a browser client over a WebSocket. The browser owns
// the platform speech and geolocation APIs; this adapter relays their
// events to the engine and carries engine directives back, so the
// conversation state itself never leaves the server.
package ws

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/jantavoice/intake/internal/core/domain"
	"github.com/jantavoice/intake/internal/core/ports"
)

const (
	writeWait     = 10 * time.Second
	defaultLocate = 30 * time.Second
)

// envelope is the single frame shape in both directions. Fields beyond
// Type are populated per kind; unknown kinds are ignored so client and
// engine can evolve independently.
type envelope struct {
	Type string `json:"type"`

	// hello (client -> engine), sent once before anything else.
	SpeechSupported bool `json:"speech_supported,omitempty"`

	// utterance / text (client -> engine), message (engine -> client).
	ID     string `json:"id,omitempty"`
	Sender string `json:"sender,omitempty"`
	Text   string `json:"text,omitempty"`

	// utterance only: "voice" for the catch-all recognizer, "voice-cmd"
	// for a grammar hit.
	Origin string `json:"origin,omitempty"`

	// focus (client -> engine).
	Active bool `json:"active,omitempty"`

	// position / position_error (client -> engine).
	Lat    float64 `json:"lat,omitempty"`
	Lon    float64 `json:"lon,omitempty"`
	Reason string  `json:"reason,omitempty"`

	// listen / input (engine -> client).
	Enabled    bool `json:"enabled,omitempty"`
	Continuous bool `json:"continuous,omitempty"`

	// navigate (engine -> client).
	Target string `json:"target,omitempty"`

	// connected (engine -> client).
	SessionID string `json:"session_id,omitempty"`
	Flow      string `json:"flow,omitempty"`
}

// Sink receives the client's conversational input. The input multiplexer
// satisfies it.
type Sink interface {
	HandleUserMessage(text string, origin domain.Origin) bool
	SetTyping(typing bool)
}

// Conn adapts one WebSocket connection into the engine's client-facing
// ports: speech bridge, locator, and client directives.
type Conn struct {
	conn   *websocket.Conn
	logger *slog.Logger

	writeMu sync.Mutex

	mu        sync.Mutex
	supported bool
	// pending is a non-hello frame read during the handshake, replayed
	// at the top of Run.
	pending *envelope
	// position holds the reply channel for the one outstanding locate
	// request; geolocation is serialized by the dialogue controller.
	position chan envelope
}

// New wraps an upgraded connection. Speech is assumed unsupported until
// the client's hello says otherwise.
func New(conn *websocket.Conn, logger *slog.Logger) *Conn {
	if logger == nil {
		logger = slog.Default()
	}
	return &Conn{conn: conn, logger: logger}
}

// Handshake reads the client's hello frame and records its capabilities.
// A client that opens with anything other than a hello is treated as
// speech-incapable; the frame is kept and replayed at the top of Run.
func (c *Conn) Handshake(timeout time.Duration) error {
	if err := c.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return err
	}
	defer c.conn.SetReadDeadline(time.Time{})

	var env envelope
	if err := c.conn.ReadJSON(&env); err != nil {
		return err
	}
	if env.Type != "hello" {
		c.mu.Lock()
		c.pending = &env
		c.mu.Unlock()
		return nil
	}

	c.mu.Lock()
	c.supported = env.SpeechSupported
	c.mu.Unlock()
	return nil
}

// Announce tells the client which session it is attached to.
func (c *Conn) Announce(sessionID string, flow domain.Flow) {
	c.write(envelope{Type: "connected", SessionID: sessionID, Flow: string(flow)})
}

// Run reads frames until the connection drops or the context ends,
// dispatching conversational input into the sink and position replies to
// the waiting locate call. It blocks; the caller owns the goroutine.
func (c *Conn) Run(ctx context.Context, sink Sink) error {
	c.mu.Lock()
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()
	if pending != nil {
		c.dispatch(*pending, sink)
	}

	for {
		var env envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Warn("client connection dropped", "error", err)
			}
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.dispatch(env, sink)
	}
}

func (c *Conn) dispatch(env envelope, sink Sink) {
	switch env.Type {
	case "text":
		sink.HandleUserMessage(env.Text, domain.OriginTyped)
	case "utterance":
		origin := domain.OriginVoice
		if env.Origin == string(domain.OriginVoiceCommand) {
			origin = domain.OriginVoiceCommand
		}
		sink.HandleUserMessage(env.Text, origin)
	case "focus":
		sink.SetTyping(env.Active)
	case "position", "position_error":
		c.deliverPosition(env)
	case "hello":
		c.mu.Lock()
		c.supported = env.SpeechSupported
		c.mu.Unlock()
	default:
		c.logger.Debug("ignoring unknown client frame", "type", env.Type)
	}
}

// Supported reports whether the attached client can listen and speak.
func (c *Conn) Supported() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.supported
}

// Speak asks the client to synthesize the text. Platform queueing on the
// client keeps overlapping utterances ordered.
func (c *Conn) Speak(text string) {
	c.write(envelope{Type: "speak", Text: text})
}

// StartListening turns the client's recognizer on.
func (c *Conn) StartListening(continuous bool) {
	c.write(envelope{Type: "listen", Enabled: true, Continuous: continuous})
}

// StopListening turns the client's recognizer off.
func (c *Conn) StopListening() {
	c.write(envelope{Type: "listen"})
}

// Locate asks the client for device coordinates and waits for the reply.
// Implements ports.Locator.
func (c *Conn) Locate(ctx context.Context) (domain.Coordinates, error) {
	reply := make(chan envelope, 1)

	c.mu.Lock()
	if c.position != nil {
		c.mu.Unlock()
		return domain.Coordinates{}, errors.New("locate already in flight")
	}
	c.position = reply
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.position = nil
		c.mu.Unlock()
	}()

	c.write(envelope{Type: "locate"})

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultLocate)
		defer cancel()
	}

	select {
	case env := <-reply:
		if env.Type == "position_error" {
			if env.Reason == "denied" {
				return domain.Coordinates{}, ports.ErrPermissionDenied
			}
			return domain.Coordinates{}, ports.ErrNoGeolocation
		}
		return domain.Coordinates{Lat: env.Lat, Lon: env.Lon}, nil
	case <-ctx.Done():
		return domain.Coordinates{}, ctx.Err()
	}
}

func (c *Conn) deliverPosition(env envelope) {
	c.mu.Lock()
	reply := c.position
	c.mu.Unlock()
	if reply == nil {
		c.logger.Debug("dropping position frame with no locate in flight")
		return
	}
	select {
	case reply <- env:
	default:
	}
}

// AppendTranscript mirrors a transcript entry to the client's view.
// Implements ports.ClientDirectives.
func (c *Conn) AppendTranscript(msg domain.Message) {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	c.write(envelope{
		Type:   "message",
		ID:     msg.ID,
		Sender: string(msg.Sender),
		Text:   msg.Text,
	})
}

// SetInputEnabled toggles the client's text entry.
func (c *Conn) SetInputEnabled(enabled bool) {
	c.write(envelope{Type: "input", Enabled: enabled})
}

// Navigate sends the client to another view.
func (c *Conn) Navigate(target string) {
	c.write(envelope{Type: "navigate", Target: target})
}

// Close tears the connection down with a normal-closure frame.
func (c *Conn) Close() error {
	c.writeMu.Lock()
	deadline := time.Now().Add(writeWait)
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	c.writeMu.Unlock()
	return c.conn.Close()
}

func (c *Conn) write(env envelope) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(env); err != nil {
		c.logger.Warn("client write failed", "type", env.Type, "error", err)
	}
}
