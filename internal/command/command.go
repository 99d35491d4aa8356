// Package command classifies incoming user messages against the fixed table
// of global dialogue commands. Classification runs before any stage logic;
// a matched message is handled uniformly regardless of stage and is never
// recorded as a stage answer.
package command

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// Kind is the effect a matched command carries.
type Kind string

const (
	// KindNone means the message is an ordinary dialogue answer.
	KindNone Kind = ""
	// KindReset clears all fields and returns to the first stage.
	KindReset Kind = "reset"
	// KindCancel abandons the current request.
	KindCancel Kind = "cancel"
	// KindGoHome exits the flow entirely.
	KindGoHome Kind = "go_home"
	// KindEditPrimary rewinds to the service/issue question.
	KindEditPrimary Kind = "edit_primary"
	// KindEditLocation rewinds to the location question.
	KindEditLocation Kind = "edit_location"
	// KindEditDetails rewinds to the details question.
	KindEditDetails Kind = "edit_details"
	// KindAutoLocation asks for device geolocation.
	KindAutoLocation Kind = "auto_location"
	// KindSpeakRequest narrates the collected request so far.
	KindSpeakRequest Kind = "speak_request"
	// KindAffirm is a confirm-stage yes; outside Confirm it falls through
	// to stage logic.
	KindAffirm Kind = "affirm"
	// KindDeny is a confirm-stage no.
	KindDeny Kind = "deny"
)

// Mode selects how a phrase is compared against the message.
type Mode string

const (
	// ModeExact matches the whole normalized message.
	ModeExact Mode = "exact"
	// ModeSubstring matches anywhere in the normalized message.
	ModeSubstring Mode = "substring"
)

// DefaultFuzzyThreshold is the similarity floor for fuzzy phrase matching,
// tuned for typical speech-recognition noise.
const DefaultFuzzyThreshold = 0.6

// Spec is one entry in the ordered command table.
type Spec struct {
	Kind      Kind
	Phrases   []string
	Mode      Mode
	Fuzzy     bool
	Threshold float64
}

// Match is a successful classification.
type Match struct {
	Kind   Kind
	Phrase string
	// Score is 1 for exact/substring hits, the similarity for fuzzy hits.
	Score float64
}

// Interpreter evaluates the ordered table. Matching short-circuits: the
// first spec whose predicate accepts the message wins.
type Interpreter struct {
	specs []Spec
}

// New builds an interpreter over the given table, filling in the default
// fuzzy threshold where unset.
func New(specs []Spec) *Interpreter {
	table := make([]Spec, len(specs))
	copy(table, specs)
	for i := range table {
		if table[i].Fuzzy && table[i].Threshold == 0 {
			table[i].Threshold = DefaultFuzzyThreshold
		}
	}
	return &Interpreter{specs: table}
}

// Default returns the interpreter over the engine's standard command table.
func Default() *Interpreter {
	return DefaultWithThreshold(DefaultFuzzyThreshold)
}

// DefaultWithThreshold is Default with the fuzzy similarity floor taken
// from configuration.
func DefaultWithThreshold(threshold float64) *Interpreter {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultFuzzyThreshold
	}
	in := New([]Spec{
		{Kind: KindReset, Phrases: []string{"reset", "restart", "start over"}, Mode: ModeExact, Fuzzy: true},
		{Kind: KindCancel, Phrases: []string{"cancel"}, Mode: ModeExact, Fuzzy: true},
		{Kind: KindGoHome, Phrases: []string{"go home"}, Mode: ModeExact, Fuzzy: true},
		{Kind: KindEditPrimary, Phrases: []string{"edit service", "change service", "edit issue", "change issue"}, Mode: ModeExact, Fuzzy: true},
		{Kind: KindEditDetails, Phrases: []string{"edit details", "change details"}, Mode: ModeExact, Fuzzy: true},
		{Kind: KindEditLocation, Phrases: []string{"edit location", "change location"}, Mode: ModeExact, Fuzzy: true},
		{Kind: KindAutoLocation, Phrases: []string{"auto location"}, Mode: ModeSubstring, Fuzzy: true},
		{Kind: KindSpeakRequest, Phrases: []string{"speak my request"}, Mode: ModeExact, Fuzzy: true},
		// Confirm-stage synonyms. Exact only: fuzzying "yes"/"no" against
		// recognition noise causes far more harm than it prevents.
		{Kind: KindAffirm, Phrases: []string{"yes", "submit", "send", "save"}, Mode: ModeExact},
		{Kind: KindDeny, Phrases: []string{"no"}, Mode: ModeExact},
	})
	for i := range in.specs {
		if in.specs[i].Fuzzy {
			in.specs[i].Threshold = threshold
		}
	}
	return in
}

// Classify normalizes the message and walks the table in order. A zero
// Match (KindNone) means the message falls through to stage logic.
func (in *Interpreter) Classify(text string) Match {
	msg := Normalize(text)
	if msg == "" {
		return Match{}
	}

	for _, spec := range in.specs {
		for _, phrase := range spec.Phrases {
			switch spec.Mode {
			case ModeSubstring:
				if strings.Contains(msg, phrase) {
					return Match{Kind: spec.Kind, Phrase: phrase, Score: 1}
				}
			default:
				if msg == phrase {
					return Match{Kind: spec.Kind, Phrase: phrase, Score: 1}
				}
			}
		}
		if !spec.Fuzzy {
			continue
		}
		for _, phrase := range spec.Phrases {
			if score := Similarity(msg, phrase); score >= spec.Threshold {
				return Match{Kind: spec.Kind, Phrase: phrase, Score: score}
			}
		}
	}

	return Match{}
}

// Normalize lowercases and trims a raw message for matching.
func Normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// Similarity is 1 - editDistance/maxLen over runes, in [0,1]. Identical
// strings score 1; strings with nothing in common approach 0.
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := len([]rune(a))
	if lb := len([]rune(b)); lb > longest {
		longest = lb
	}
	if longest == 0 {
		return 1
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}
