// Package dialogue is the engine's finite-state machine. One controller
// owns one session: it is the sole writer of dialogue state, consumes
// events from a single inbox, and narrates every transition back through
// the speech bridge and the transcript.
package dialogue

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/jantavoice/intake/internal/command"
	"github.com/jantavoice/intake/internal/core/domain"
	"github.com/jantavoice/intake/internal/core/ports"
	"github.com/jantavoice/intake/internal/location"
	"github.com/jantavoice/intake/internal/storage"
	"github.com/jantavoice/intake/internal/submit"
	"github.com/jantavoice/intake/internal/transcript"
)

// Gate suspends the input multiplexer while an asynchronous acquisition
// (geolocation) is pending, so ambient audio and stray keystrokes cannot
// land mid-flight.
type Gate interface {
	SetSuspended(suspended bool)
}

// Config wires a controller. Identity is passed explicitly here; the
// engine never reads ambient authentication state.
type Config struct {
	Flow     domain.Flow
	Identity domain.Identity

	Bridge    ports.SpeechBridge
	Client    ports.ClientDirectives
	Resolver  *location.Resolver
	Submitter ports.Submitter

	// Store receives the finished session transcript, best-effort. Optional.
	Store storage.TranscriptStore
	// Gate is the input multiplexer's suspension hook. Optional.
	Gate Gate

	// Interpreter overrides the standard command table. Optional.
	Interpreter *command.Interpreter

	Logger *slog.Logger

	// NavigateDelay is how long the Done stage lingers before the client
	// is sent home.
	NavigateDelay time.Duration
}

const defaultNavigateDelay = 2 * time.Second

// minAnswerLen is the sole content guard on free-text answers. A
// simplicity trade-off, not a security boundary.
const minAnswerLen = 3

// Controller runs the conversation for one attached client.
type Controller struct {
	cfg     Config
	interp  *command.Interpreter
	prompts prompts
	logger  *slog.Logger

	session *domain.Session
	inbox   chan Event

	// seq tags in-flight async work; it advances on every transition so a
	// late-arriving result for a superseded stage is dropped.
	seq             uint64
	pendingLocation bool
	failedAttempts  int

	runCtx context.Context
}

// New creates a controller with a fresh session in the first stage.
func New(cfg Config) *Controller {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.NavigateDelay == 0 {
		cfg.NavigateDelay = defaultNavigateDelay
	}
	if cfg.Flow == "" {
		cfg.Flow = domain.FlowIssue
	}
	if cfg.Interpreter == nil {
		cfg.Interpreter = command.Default()
	}

	return &Controller{
		cfg:     cfg,
		interp:  cfg.Interpreter,
		prompts: promptsFor(cfg.Flow),
		logger:  cfg.Logger,
		session: &domain.Session{
			ID:        "sess_" + uuid.New().String(),
			Flow:      cfg.Flow,
			Stage:     domain.StageAskPrimary,
			StartedAt: time.Now(),
		},
		inbox: make(chan Event, 64),
	}
}

// Session returns the controller's session for read-only inspection.
func (c *Controller) Session() *domain.Session {
	return c.session
}

// SetGate attaches the input multiplexer's suspension hook. The mux is
// built around Post, so it cannot exist before the controller; call this
// before Run.
func (c *Controller) SetGate(gate Gate) {
	c.cfg.Gate = gate
}

// Post delivers an event into the inbox.
func (c *Controller) Post(ev Event) {
	c.inbox <- ev
}

// Run processes events until the context is cancelled, then records the
// session's terminal outcome. It is the only goroutine that touches the
// session.
func (c *Controller) Run(ctx context.Context) {
	c.runCtx = ctx
	c.start()

	for {
		select {
		case <-ctx.Done():
			c.finish()
			return
		case ev := <-c.inbox:
			c.dispatch(ev)
		}
	}
}

func (c *Controller) start() {
	c.say(c.prompts.welcome)
	if c.cfg.Bridge.Supported() {
		c.cfg.Bridge.StartListening(true)
	} else {
		// One-time disclosure; text-only from here on, never an error.
		c.say(promptVoiceUnavailable)
	}
	c.cfg.Client.SetInputEnabled(true)
}

func (c *Controller) dispatch(ev Event) {
	switch ev := ev.(type) {
	case UserMessage:
		c.handleUserMessage(ev)
	case locationResolved:
		c.handleLocationResolved(ev)
	case submissionDone:
		c.handleSubmissionDone(ev)
	case navigateDue:
		c.handleNavigateDue(ev)
	}
}

func (c *Controller) handleUserMessage(ev UserMessage) {
	if c.pendingLocation || c.session.Stage == domain.StageSubmitting || c.session.Stage == domain.StageDone {
		return
	}

	msg := command.Normalize(ev.Text)
	if msg == "" {
		return
	}

	c.appendUser(ev.Text)

	match := c.interp.Classify(ev.Text)
	switch match.Kind {
	case command.KindReset:
		c.restart(c.prompts.reset)
		return
	case command.KindCancel:
		c.restart(c.prompts.cancelled)
		return
	case command.KindGoHome:
		c.cfg.Bridge.Speak(promptGoHomeSpoken)
		c.cfg.Client.Navigate("home")
		return
	case command.KindEditPrimary:
		c.session.Fields.Primary = ""
		c.transition(domain.StageAskPrimary, c.prompts.editPrimary)
		return
	case command.KindEditDetails:
		c.session.Fields.Details = ""
		c.transition(domain.StageAskDetails, promptEditDetails)
		return
	case command.KindEditLocation:
		c.session.Fields.Location = ""
		c.transition(domain.StageAskLocation, promptEditLocation)
		return
	case command.KindAutoLocation:
		c.beginAutoLocation()
		return
	case command.KindSpeakRequest:
		c.say(c.prompts.summary(c.session.Fields))
		return
	case command.KindAffirm:
		if c.session.Stage == domain.StageConfirm {
			c.beginSubmission()
			return
		}
	case command.KindDeny:
		if c.session.Stage == domain.StageConfirm {
			c.restart(c.prompts.reset)
			return
		}
	}

	c.handleStageAnswer(ev.Text, msg)
}

// handleStageAnswer runs the per-stage logic for messages that did not
// match a global command.
func (c *Controller) handleStageAnswer(raw, normalized string) {
	raw = strings.TrimSpace(raw)
	switch c.session.Stage {
	case domain.StageAskPrimary:
		if utf8.RuneCountInString(normalized) < minAnswerLen {
			c.say(c.prompts.primaryInvalid)
			return
		}
		c.session.Fields.Primary = raw
		prompt := c.prompts.askLocation
		if suggested, ok := c.cfg.Resolver.Suggest(raw); ok {
			prompt = c.prompts.askLocationWithSuggestion(suggested)
		}
		c.transition(domain.StageAskLocation, prompt)

	case domain.StageAskLocation:
		if utf8.RuneCountInString(normalized) < minAnswerLen {
			c.say(promptLocationInvalid)
			return
		}
		c.session.Fields.Location = raw
		c.transition(domain.StageAskDetails, c.prompts.askDetails)

	case domain.StageAskDetails:
		if utf8.RuneCountInString(normalized) < minAnswerLen {
			c.say(promptDetailsInvalid)
			return
		}
		c.session.Fields.Details = raw
		c.transition(domain.StageConfirm, c.prompts.confirm(c.session.Fields))

	case domain.StageConfirm:
		c.say(promptConfirmHelp)
	}
}

func (c *Controller) beginAutoLocation() {
	c.pendingLocation = true
	c.seq++
	seq := c.seq

	// Pause both channels while the position prompt is up so the device
	// dialog and ambient audio cannot be captured as an utterance.
	c.cfg.Bridge.StopListening()
	c.cfg.Client.SetInputEnabled(false)
	c.suspendInput(true)
	c.announce(promptDetecting, promptDetectingSpoken)

	ctx := c.runCtx
	if ctx == nil {
		ctx = context.Background()
	}
	go func() {
		result, err := c.cfg.Resolver.Auto(ctx)
		c.Post(locationResolved{Seq: seq, Result: result, Err: err})
	}()
}

func (c *Controller) handleLocationResolved(ev locationResolved) {
	if !c.pendingLocation || ev.Seq != c.seq {
		// Stale result for a superseded request.
		return
	}
	c.pendingLocation = false
	c.suspendInput(false)
	c.cfg.Client.SetInputEnabled(true)
	if c.cfg.Bridge.Supported() {
		c.cfg.Bridge.StartListening(true)
	}

	if ev.Err != nil {
		switch {
		case errors.Is(ev.Err, ports.ErrPermissionDenied):
			c.say(promptLocationDenied)
		case errors.Is(ev.Err, ports.ErrNoGeolocation):
			c.say(promptNoGeolocation)
		default:
			c.logger.Warn("auto location failed",
				slog.String("session_id", c.session.ID),
				slog.String("error", ev.Err.Error()),
			)
			c.say(promptLocationDenied)
		}
		c.transition(domain.StageAskLocation, "")
		return
	}

	c.session.Fields.Location = ev.Result.Text
	c.transition(domain.StageAskDetails, promptAddressSet(ev.Result.Text))
}

func (c *Controller) beginSubmission() {
	c.session.Stage = domain.StageSubmitting
	c.seq++
	seq := c.seq

	c.cfg.Bridge.StopListening()
	c.cfg.Client.SetInputEnabled(false)
	c.say(promptSubmitting)

	flow := c.session.Flow
	payload := submit.BuildPayload(flow, c.cfg.Identity, c.session.Fields)

	ctx := c.runCtx
	if ctx == nil {
		ctx = context.Background()
	}
	go func() {
		result, err := c.cfg.Submitter.Submit(ctx, flow, payload)
		c.Post(submissionDone{Seq: seq, Result: result, Err: err})
	}()
}

func (c *Controller) handleSubmissionDone(ev submissionDone) {
	if c.session.Stage != domain.StageSubmitting || ev.Seq != c.seq {
		return
	}

	if ev.Err != nil {
		c.logger.Error("submission failed",
			slog.String("session_id", c.session.ID),
			slog.String("error", ev.Err.Error()),
		)
		c.failedAttempts++
		c.session.Fields = domain.Fields{}
		c.resumeInput()
		c.transition(domain.StageAskPrimary, promptServerError)
		return
	}

	if !ev.Result.OK {
		c.logger.Warn("submission rejected",
			slog.String("session_id", c.session.ID),
			slog.String("reason", ev.Result.Err),
		)
		c.failedAttempts++
		c.session.Fields = domain.Fields{}
		c.resumeInput()
		c.transition(domain.StageAskPrimary, c.prompts.failure)
		return
	}

	c.transition(domain.StageDone, c.prompts.success)
	seq := c.seq
	time.AfterFunc(c.cfg.NavigateDelay, func() {
		c.Post(navigateDue{Seq: seq})
	})
}

func (c *Controller) handleNavigateDue(ev navigateDue) {
	if c.session.Stage != domain.StageDone || ev.Seq != c.seq {
		return
	}
	c.cfg.Client.Navigate("home")
}

// restart clears every collected field and returns to the first stage.
func (c *Controller) restart(message string) {
	c.session.Fields = domain.Fields{}
	c.transition(domain.StageAskPrimary, message)
}

// transition moves the stage, advances the staleness sequence, and emits
// the single system message for the move. An empty message means the
// caller already said its piece.
func (c *Controller) transition(stage domain.Stage, message string) {
	c.session.Stage = stage
	c.seq++
	if message != "" {
		c.say(message)
	}
}

func (c *Controller) resumeInput() {
	c.cfg.Client.SetInputEnabled(true)
	if c.cfg.Bridge.Supported() {
		c.cfg.Bridge.StartListening(true)
	}
}

func (c *Controller) suspendInput(suspended bool) {
	if c.cfg.Gate != nil {
		c.cfg.Gate.SetSuspended(suspended)
	}
}

// say appends a system message to the transcript, renders it on the
// client, and narrates it.
func (c *Controller) say(text string) {
	c.announce(text, text)
}

// announce is say with independent written and spoken forms.
func (c *Controller) announce(text, spoken string) {
	msg := domain.Message{
		ID:        "msg_" + uuid.New().String(),
		Sender:    domain.SenderSystem,
		Text:      text,
		Timestamp: time.Now(),
	}
	c.session.Transcript = append(c.session.Transcript, msg)
	c.cfg.Client.AppendTranscript(msg)
	c.cfg.Bridge.Speak(spoken)
}

func (c *Controller) appendUser(text string) {
	msg := domain.Message{
		ID:        "msg_" + uuid.New().String(),
		Sender:    domain.SenderUser,
		Text:      text,
		Timestamp: time.Now(),
	}
	c.session.Transcript = append(c.session.Transcript, msg)
	c.cfg.Client.AppendTranscript(msg)
}

// finish records the session's terminal outcome, best-effort.
func (c *Controller) finish() {
	outcome := domain.OutcomeAbandoned
	switch {
	case c.session.Stage == domain.StageDone:
		outcome = domain.OutcomeSubmitted
	case c.failedAttempts > 0:
		outcome = domain.OutcomeFailed
	}

	transcript.Record(context.Background(), c.cfg.Store, c.session, outcome, c.cfg.Identity, c.logger)
}
