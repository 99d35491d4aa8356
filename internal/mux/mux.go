// Package mux merges the two user input channels (the speech bridge's
// utterance stream and the text field's submit action) into one ordered
// sequence of messages for the dialogue controller.
package mux

import (
	"strings"
	"sync"
	"time"

	"github.com/jantavoice/intake/internal/core/domain"
	"github.com/jantavoice/intake/internal/dialogue"
)

// echoWindow is how long after a command-origin dispatch an identical
// plain-voice message is treated as the recognizer echoing the same
// utterance through its catch-all, and dropped.
const echoWindow = 1500 * time.Millisecond

// Mux funnels both producers into the controller inbox. It applies the
// focus-suppression rule (plain voice dispatch is suppressed while the
// user is typing; explicit command phrases stay live) and the suspension
// gate raised while geolocation is pending.
type Mux struct {
	post func(dialogue.Event)

	mu        sync.Mutex
	typing    bool
	suspended bool
	lastCmd   string
	lastCmdAt time.Time
}

// New creates a multiplexer that posts accepted messages to post.
func New(post func(dialogue.Event)) *Mux {
	return &Mux{post: post}
}

// SetTyping records whether the text field currently has focus.
func (m *Mux) SetTyping(active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.typing = active
}

// SetSuspended raises or clears the suspension gate; while raised, both
// producers are blocked. Implements dialogue.Gate.
func (m *Mux) SetSuspended(suspended bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.suspended = suspended
}

// HandleUserMessage is the single entry point for both channels. It
// reports whether the message was accepted and handed to the controller.
func (m *Mux) HandleUserMessage(text string, origin domain.Origin) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}

	m.mu.Lock()
	if m.suspended {
		m.mu.Unlock()
		return false
	}
	if origin == domain.OriginVoice {
		// Catch-all voice dispatch pauses while the user is typing.
		if m.typing {
			m.mu.Unlock()
			return false
		}
		// The recognizer reports a matched command phrase twice: once as
		// a command callback and once through the catch-all. Drop the echo.
		if normalized := strings.ToLower(trimmed); normalized == m.lastCmd && time.Since(m.lastCmdAt) < echoWindow {
			m.mu.Unlock()
			return false
		}
	}
	if origin == domain.OriginVoiceCommand {
		m.lastCmd = strings.ToLower(trimmed)
		m.lastCmdAt = time.Now()
	}
	m.mu.Unlock()

	m.post(dialogue.UserMessage{Text: trimmed, Origin: origin})
	return true
}
