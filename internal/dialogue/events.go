package dialogue

import "github.com/jantavoice/intake/internal/core/domain"

// Event is a message into the controller's inbox. All asynchronous
// collaborators deliver their results this way; nothing mutates session
// state from outside the reducer goroutine.
type Event interface{ isEvent() }

// UserMessage is one accepted input from either channel.
type UserMessage struct {
	Text   string
	Origin domain.Origin
}

// locationResolved is the completion of an auto-location request. Seq ties
// it to the request that started it so a stale arrival for a superseded
// stage is dropped.
type locationResolved struct {
	Seq    uint64
	Result domain.LocationResult
	Err    error
}

// submissionDone is the completion of a submission attempt.
type submissionDone struct {
	Seq    uint64
	Result domain.SubmissionResult
	Err    error
}

// navigateDue fires when the post-submission redirect delay elapses.
type navigateDue struct {
	Seq uint64
}

func (UserMessage) isEvent()      {}
func (locationResolved) isEvent() {}
func (submissionDone) isEvent()   {}
func (navigateDue) isEvent()      {}
