// Package domain holds the canonical types for the conversational intake
// engine: dialogue sessions, stages, transcripts, and submission records.
package domain

import "time"

// Flow identifies which intake conversation a session runs.
type Flow string

const (
	// FlowIssue is the "report an issue" conversation.
	FlowIssue Flow = "issue"
	// FlowService is the "request a service" conversation.
	FlowService Flow = "service"
)

// Stage is the dialogue controller's position in the conversation sequence.
// Exactly one stage is active at a time.
type Stage string

const (
	// StageAskPrimary collects the service name or issue description.
	StageAskPrimary Stage = "ask_primary"
	// StageAskLocation collects the location, typed or auto-detected.
	StageAskLocation Stage = "ask_location"
	// StageAskDetails collects the free-form detail text.
	StageAskDetails Stage = "ask_details"
	// StageConfirm awaits a yes/no on the assembled request.
	StageConfirm Stage = "confirm"
	// StageSubmitting means the submission call is in flight.
	StageSubmitting Stage = "submitting"
	// StageDone is terminal; navigation away is scheduled.
	StageDone Stage = "done"
)

// Sender tags a transcript entry as user- or system-originated.
type Sender string

const (
	SenderUser   Sender = "user"
	SenderSystem Sender = "system"
)

// Origin records which input channel produced a user message.
type Origin string

const (
	// OriginTyped is the text field's submit action.
	OriginTyped Origin = "typed"
	// OriginVoice is an ordinary finalized recognition result.
	OriginVoice Origin = "voice"
	// OriginVoiceCommand is a recognition result that matched the
	// always-on command phrase set client-side.
	OriginVoiceCommand Origin = "voice-cmd"
)

// Message is one transcript entry.
type Message struct {
	ID        string    `json:"id"`
	Sender    Sender    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Fields are the values collected over the course of a conversation.
// They advance monotonically through the stages; only an explicit edit or
// reset command clears them.
type Fields struct {
	// Primary is the service name (service flow) or the issue
	// description (issue flow).
	Primary  string `json:"primary"`
	Location string `json:"location"`
	Details  string `json:"details"`
}

// Complete reports whether every field needed for submission is present.
func (f Fields) Complete() bool {
	return f.Primary != "" && f.Location != "" && f.Details != ""
}

// Session is the dialogue state for one attached client. It is owned
// exclusively by the dialogue controller; nothing else mutates it.
type Session struct {
	ID         string    `json:"id"`
	Flow       Flow      `json:"flow"`
	Stage      Stage     `json:"stage"`
	Fields     Fields    `json:"fields"`
	Transcript []Message `json:"transcript"`
	StartedAt  time.Time `json:"started_at"`
}

// Outcome is the terminal disposition of a session.
type Outcome string

const (
	OutcomeSubmitted Outcome = "submitted"
	OutcomeFailed    Outcome = "failed"
	OutcomeAbandoned Outcome = "abandoned"
)
