package dialogue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jantavoice/intake/internal/core/domain"
	"github.com/jantavoice/intake/internal/core/ports"
	"github.com/jantavoice/intake/internal/gazetteer"
	"github.com/jantavoice/intake/internal/location"
	"github.com/jantavoice/intake/internal/storage/memory"
)

type fakeBridge struct {
	supported bool
	spoken    []string
	starts    int
	stops     int
}

func (b *fakeBridge) StartListening(continuous bool) { b.starts++ }
func (b *fakeBridge) StopListening()                 { b.stops++ }
func (b *fakeBridge) Speak(text string)              { b.spoken = append(b.spoken, text) }
func (b *fakeBridge) Supported() bool                { return b.supported }

type fakeClient struct {
	transcript  []domain.Message
	inputStates []bool
	navigations []string
}

func (c *fakeClient) AppendTranscript(msg domain.Message) { c.transcript = append(c.transcript, msg) }
func (c *fakeClient) SetInputEnabled(enabled bool)        { c.inputStates = append(c.inputStates, enabled) }
func (c *fakeClient) Navigate(target string)              { c.navigations = append(c.navigations, target) }

type fakeLocator struct {
	pos domain.Coordinates
	err error
}

func (f *fakeLocator) Locate(ctx context.Context) (domain.Coordinates, error) { return f.pos, f.err }

type fakeGeocoder struct {
	addr domain.Address
	err  error
}

func (f *fakeGeocoder) ReverseGeocode(ctx context.Context, c domain.Coordinates) (domain.Address, error) {
	return f.addr, f.err
}

type fakeSubmitter struct {
	result  domain.SubmissionResult
	err     error
	payload domain.SubmissionPayload
	calls   int
}

func (f *fakeSubmitter) Submit(ctx context.Context, flow domain.Flow, payload domain.SubmissionPayload) (domain.SubmissionResult, error) {
	f.calls++
	f.payload = payload
	return f.result, f.err
}

type harness struct {
	c         *Controller
	bridge    *fakeBridge
	client    *fakeClient
	submitter *fakeSubmitter
	locator   *fakeLocator
	store     *memory.Store
}

func newHarness(t *testing.T, flow domain.Flow) *harness {
	t.Helper()

	bridge := &fakeBridge{supported: true}
	client := &fakeClient{}
	locator := &fakeLocator{pos: domain.Coordinates{Lat: 18.52, Lon: 73.85}}
	geocoder := &fakeGeocoder{addr: domain.Address{City: "Pune", State: "Maharashtra", Country: "India"}}
	submitter := &fakeSubmitter{result: domain.SubmissionResult{OK: true}}
	store := memory.New()

	gaz := gazetteer.New([]string{"Maharashtra"}, map[string][]string{"Maharashtra": {"Pune"}})

	c := New(Config{
		Flow:          flow,
		Identity:      domain.Identity{Email: "citizen@example.com"},
		Bridge:        bridge,
		Client:        client,
		Resolver:      location.New(locator, geocoder, gaz, nil),
		Submitter:     submitter,
		Store:         store,
		NavigateDelay: time.Millisecond,
	})
	c.start()

	return &harness{c: c, bridge: bridge, client: client, submitter: submitter, locator: locator, store: store}
}

// send drives a user message through the reducer synchronously.
func (h *harness) send(text string) {
	h.c.dispatch(UserMessage{Text: text, Origin: domain.OriginTyped})
}

// pump dispatches the next inbox event, failing the test if none arrives.
func (h *harness) pump(t *testing.T) {
	t.Helper()
	select {
	case ev := <-h.c.inbox:
		h.c.dispatch(ev)
	case <-time.After(2 * time.Second):
		t.Fatal("no event arrived in inbox")
	}
}

func (h *harness) lastSystemMessage() string {
	for i := len(h.c.session.Transcript) - 1; i >= 0; i-- {
		if h.c.session.Transcript[i].Sender == domain.SenderSystem {
			return h.c.session.Transcript[i].Text
		}
	}
	return ""
}

func TestHappyPathIssueFlow(t *testing.T) {
	h := newHarness(t, domain.FlowIssue)

	h.send("broken streetlight on MG road")
	if h.c.session.Stage != domain.StageAskLocation {
		t.Fatalf("stage = %q, want ask_location", h.c.session.Stage)
	}
	if h.c.session.Fields.Primary != "broken streetlight on MG road" {
		t.Fatalf("primary = %q", h.c.session.Fields.Primary)
	}

	h.send("auto location")
	if !h.c.pendingLocation {
		t.Fatal("location acquisition should be pending")
	}
	h.pump(t) // locationResolved
	if h.c.session.Stage != domain.StageAskDetails {
		t.Fatalf("stage = %q, want ask_details", h.c.session.Stage)
	}
	if h.c.session.Fields.Location != "Pune, Maharashtra, India" {
		t.Fatalf("location = %q", h.c.session.Fields.Location)
	}

	h.send("it has been dark for 5 nights")
	if h.c.session.Stage != domain.StageConfirm {
		t.Fatalf("stage = %q, want confirm", h.c.session.Stage)
	}

	h.send("yes")
	if h.c.session.Stage != domain.StageSubmitting {
		t.Fatalf("stage = %q, want submitting", h.c.session.Stage)
	}
	h.pump(t) // submissionDone
	if h.c.session.Stage != domain.StageDone {
		t.Fatalf("stage = %q, want done", h.c.session.Stage)
	}
	if h.submitter.calls != 1 {
		t.Fatalf("submitter called %d times", h.submitter.calls)
	}
	if h.submitter.payload.Description != "broken streetlight on MG road" {
		t.Fatalf("payload = %+v", h.submitter.payload)
	}
	if h.submitter.payload.Email != "citizen@example.com" {
		t.Fatalf("payload email = %q", h.submitter.payload.Email)
	}

	h.pump(t) // navigateDue
	if len(h.client.navigations) != 1 || h.client.navigations[0] != "home" {
		t.Fatalf("navigations = %v", h.client.navigations)
	}
}

func TestSubmissionFailureReturnsToStart(t *testing.T) {
	h := newHarness(t, domain.FlowService)
	h.submitter.result = domain.SubmissionResult{OK: false, Err: "backend said no"}

	h.send("water tanker")
	h.send("near the old market")
	h.send("need it tomorrow morning")
	h.send("yes")
	h.pump(t) // submissionDone

	if h.c.session.Stage != domain.StageAskPrimary {
		t.Fatalf("stage = %q, want ask_primary", h.c.session.Stage)
	}
	if h.c.session.Fields != (domain.Fields{}) {
		t.Fatalf("fields not cleared: %+v", h.c.session.Fields)
	}
	if h.lastSystemMessage() != servicePrompts.failure {
		t.Fatalf("last message = %q", h.lastSystemMessage())
	}
}

func TestTransportErrorReturnsToStart(t *testing.T) {
	h := newHarness(t, domain.FlowIssue)
	h.submitter.err = errors.New("connection refused")

	h.send("overflowing drain")
	h.send("Station Road")
	h.send("smells awful for a week")
	h.send("yes")
	h.pump(t)

	if h.c.session.Stage != domain.StageAskPrimary {
		t.Fatalf("stage = %q", h.c.session.Stage)
	}
	if h.lastSystemMessage() != promptServerError {
		t.Fatalf("last message = %q", h.lastSystemMessage())
	}
}

func TestCommandNeverStoredAsAnswer(t *testing.T) {
	h := newHarness(t, domain.FlowService)

	h.send("street cleaning")
	h.send("MG Road")
	if h.c.session.Stage != domain.StageAskDetails {
		t.Fatalf("stage = %q", h.c.session.Stage)
	}

	h.send("reset")
	if h.c.session.Stage != domain.StageAskPrimary {
		t.Fatalf("reset must rewind to first stage, got %q", h.c.session.Stage)
	}
	if h.c.session.Fields.Details == "reset" {
		t.Fatal("command text leaked into a field")
	}
	if h.c.session.Fields != (domain.Fields{}) {
		t.Fatalf("fields not cleared: %+v", h.c.session.Fields)
	}
}

func TestEditLocationIdempotent(t *testing.T) {
	h := newHarness(t, domain.FlowService)

	h.send("garbage pickup")
	h.send("Shivaji Nagar")
	h.send("missed for three days")

	h.send("edit location")
	h.send("edit location")

	if h.c.session.Fields.Primary != "garbage pickup" {
		t.Fatalf("primary lost: %q", h.c.session.Fields.Primary)
	}
	if h.c.session.Fields.Details != "missed for three days" {
		t.Fatalf("details lost: %q", h.c.session.Fields.Details)
	}
	if h.c.session.Fields.Location != "" {
		t.Fatalf("location not cleared: %q", h.c.session.Fields.Location)
	}
	if h.c.session.Stage != domain.StageAskLocation {
		t.Fatalf("stage = %q", h.c.session.Stage)
	}
}

func TestAnswerLengthBoundary(t *testing.T) {
	h := newHarness(t, domain.FlowIssue)

	h.send("ab")
	if h.c.session.Stage != domain.StageAskPrimary || h.c.session.Fields.Primary != "" {
		t.Fatal("2-character answer must be rejected")
	}
	if h.lastSystemMessage() != issuePrompts.primaryInvalid {
		t.Fatalf("expected re-prompt, got %q", h.lastSystemMessage())
	}

	h.send("abc")
	if h.c.session.Stage != domain.StageAskLocation || h.c.session.Fields.Primary != "abc" {
		t.Fatal("3-character answer must be accepted")
	}
}

func TestConfirmDenyClearsFields(t *testing.T) {
	h := newHarness(t, domain.FlowService)

	h.send("tree trimming")
	h.send("Baner Road")
	h.send("branches touching power lines")
	h.send("no")

	if h.c.session.Stage != domain.StageAskPrimary {
		t.Fatalf("stage = %q", h.c.session.Stage)
	}
	if h.c.session.Fields != (domain.Fields{}) {
		t.Fatalf("fields not cleared: %+v", h.c.session.Fields)
	}
	if h.submitter.calls != 0 {
		t.Fatal("deny must not submit")
	}
}

func TestConfirmUnrecognizedGetsHelp(t *testing.T) {
	h := newHarness(t, domain.FlowService)

	h.send("tree trimming")
	h.send("Baner Road")
	h.send("branches touching power lines")
	h.send("maybe later")

	if h.c.session.Stage != domain.StageConfirm {
		t.Fatalf("stage = %q, want confirm", h.c.session.Stage)
	}
	if h.lastSystemMessage() != promptConfirmHelp {
		t.Fatalf("last message = %q", h.lastSystemMessage())
	}
}

func TestLocationDeniedAsksManual(t *testing.T) {
	h := newHarness(t, domain.FlowIssue)
	h.locator.err = ports.ErrPermissionDenied

	h.send("pothole")
	h.send("auto location")
	h.pump(t)

	if h.c.session.Stage != domain.StageAskLocation {
		t.Fatalf("stage = %q", h.c.session.Stage)
	}
	if h.c.session.Fields.Location != "" {
		t.Fatalf("location must stay empty, got %q", h.c.session.Fields.Location)
	}
	if h.lastSystemMessage() != promptLocationDenied {
		t.Fatalf("last message = %q", h.lastSystemMessage())
	}
}

func TestStaleLocationResultDropped(t *testing.T) {
	h := newHarness(t, domain.FlowIssue)

	h.send("pothole near school")
	before := h.c.session.Fields.Location

	// A result for a request that was never issued (or long superseded).
	h.c.dispatch(locationResolved{Seq: 999, Result: domain.LocationResult{Text: "Elsewhere"}})

	if h.c.session.Fields.Location != before {
		t.Fatal("stale result must not write session state")
	}
}

func TestInputIgnoredWhilePendingLocation(t *testing.T) {
	h := newHarness(t, domain.FlowIssue)

	h.send("pothole near school")
	h.send("auto location")

	transcriptLen := len(h.c.session.Transcript)
	h.send("this should be ignored")
	if len(h.c.session.Transcript) != transcriptLen {
		t.Fatal("messages must be ignored while geolocation is pending")
	}

	h.pump(t)
	if h.c.session.Stage != domain.StageAskDetails {
		t.Fatalf("stage = %q", h.c.session.Stage)
	}
}

func TestUnsupportedBridgeDegradesToTextOnly(t *testing.T) {
	bridge := &fakeBridge{supported: false}
	client := &fakeClient{}
	c := New(Config{
		Flow:      domain.FlowIssue,
		Bridge:    bridge,
		Client:    client,
		Resolver:  location.New(&fakeLocator{}, &fakeGeocoder{}, gazetteer.Empty(), nil),
		Submitter: &fakeSubmitter{},
	})
	c.start()

	if bridge.starts != 0 {
		t.Fatal("listening must not start without a speech platform")
	}

	found := false
	for _, msg := range c.session.Transcript {
		if msg.Text == promptVoiceUnavailable {
			found = true
		}
	}
	if !found {
		t.Fatal("degradation notice missing from transcript")
	}
}

func TestGoHomeNavigates(t *testing.T) {
	h := newHarness(t, domain.FlowService)

	h.send("go home")
	if len(h.client.navigations) != 1 || h.client.navigations[0] != "home" {
		t.Fatalf("navigations = %v", h.client.navigations)
	}
}

func TestSpeakRequestIncomplete(t *testing.T) {
	h := newHarness(t, domain.FlowService)

	h.send("speak my request")
	if h.lastSystemMessage() != servicePrompts.summary(domain.Fields{}) {
		t.Fatalf("last message = %q", h.lastSystemMessage())
	}
}

func TestPrimaryAnswerSuggestsExtractedLocation(t *testing.T) {
	h := newHarness(t, domain.FlowIssue)

	h.send("there is a pothole near Pune station")
	want := issuePrompts.askLocationWithSuggestion("Pune, Maharashtra")
	if h.lastSystemMessage() != want {
		t.Fatalf("prompt = %q, want %q", h.lastSystemMessage(), want)
	}
}

func TestEveryTransitionSpeaks(t *testing.T) {
	h := newHarness(t, domain.FlowIssue)

	h.send("broken streetlight")
	h.send("MG Road")

	var systemCount int
	for _, msg := range h.c.session.Transcript {
		if msg.Sender == domain.SenderSystem {
			systemCount++
		}
	}
	if len(h.bridge.spoken) != systemCount {
		t.Fatalf("spoken %d, system messages %d", len(h.bridge.spoken), systemCount)
	}
}

func TestFinishRecordsSubmittedOutcome(t *testing.T) {
	h := newHarness(t, domain.FlowIssue)

	h.send("broken streetlight on MG road")
	h.send("MG Road, Pune")
	h.send("dark for 5 nights")
	h.send("yes")
	h.pump(t)

	h.c.finish()

	rec, err := h.store.GetIntake(context.Background(), h.c.session.ID)
	if err != nil {
		t.Fatalf("intake not recorded: %v", err)
	}
	if rec.Outcome != domain.OutcomeSubmitted {
		t.Fatalf("outcome = %q", rec.Outcome)
	}
	if len(rec.Messages) != len(h.c.session.Transcript) {
		t.Fatalf("stored %d messages, transcript has %d", len(rec.Messages), len(h.c.session.Transcript))
	}
}
