// Package ports defines the interfaces between the dialogue controller and
// its asynchronous collaborators. Collaborators never mutate session state;
// they deliver results as events into the controller's inbox.
package ports

import (
	"context"

	"github.com/jantavoice/intake/internal/core/domain"
)

// SpeechBridge is the normalized adapter over the client's platform
// speech-to-text and text-to-speech. Utterances arrive through the session
// inbox, one event per finalized recognition result; the bridge itself
// carries only the outbound half of the contract.
type SpeechBridge interface {
	// StartListening enables recognition on the client. Continuous mode
	// keeps the recognizer running across results.
	StartListening(continuous bool)
	// StopListening disables recognition, e.g. while geolocation is pending.
	StopListening()
	// Speak narrates text. Fire-and-forget: overlapping calls are neither
	// queued nor cancelled here; the platform's own audio queue applies.
	Speak(text string)
	// Supported reports whether the client has a speech platform at all.
	// When false the engine degrades to text-only with a one-time notice.
	Supported() bool
}

// Locator obtains a one-shot device position from the client.
type Locator interface {
	// Locate requests the current position. It returns ErrNoGeolocation
	// when the capability is absent and ErrPermissionDenied when the user
	// refuses; both are non-fatal and route the flow to manual entry.
	Locate(ctx context.Context) (domain.Coordinates, error)
}

// Geocoder turns a raw position into a human-readable address string.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, c domain.Coordinates) (domain.Address, error)
}

// Directory serves the reference gazetteer used for free-text location
// extraction: the set of states and each state's cities.
type Directory interface {
	States(ctx context.Context) ([]string, error)
	Cities(ctx context.Context, state string) ([]string, error)
}

// Submitter sends the final structured payload to the intake backend.
// Single attempt; the transport's own timeout is the only timeout.
type Submitter interface {
	Submit(ctx context.Context, flow domain.Flow, payload domain.SubmissionPayload) (domain.SubmissionResult, error)
}

// ClientDirectives is the outbound surface toward the attached client that
// is not speech: transcript rendering, input gating, and navigation.
type ClientDirectives interface {
	// AppendTranscript renders one transcript entry on the client.
	AppendTranscript(msg domain.Message)
	// SetInputEnabled gates the text field, e.g. during geolocation or
	// after submission.
	SetInputEnabled(enabled bool)
	// Navigate sends the client away from the flow; the session is
	// discarded.
	Navigate(target string)
}
