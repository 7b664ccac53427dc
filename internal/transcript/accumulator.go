// Package transcript merges streaming speech-recognition fragments into a
// stable, growing text buffer.
package transcript

import (
	"github.com/lexiqai/assist-gateway/internal/speech"
)

// separator is appended after every committed fragment.
const separator = " "

// State is the transcript at one point in time. Committed only grows;
// Interim is the current unconfirmed hypothesis and is replaced wholesale.
type State struct {
	Committed string
	Interim   string
}

// Apply returns the state after ev. A final fragment is appended to Committed
// and clears Interim; an interim fragment replaces Interim.
//
// Events are assumed to arrive at most once per sequence index. Replaying a
// final event appends its text again.
func Apply(s State, ev speech.RecognitionEvent) State {
	if ev.IsFinal {
		return State{Committed: s.Committed + ev.Text + separator}
	}
	return State{Committed: s.Committed, Interim: ev.Text}
}

// Display is the text to show: committed plus interim while recording,
// committed alone otherwise.
func (s State) Display(recording bool) string {
	if recording {
		return s.Committed + s.Interim
	}
	return s.Committed
}

// Accumulator holds the State for its single owner. It is not safe for
// concurrent use.
type Accumulator struct {
	state State
}

// NewAccumulator creates an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// Apply folds ev into the accumulated state and returns the new state.
func (a *Accumulator) Apply(ev speech.RecognitionEvent) State {
	a.state = Apply(a.state, ev)
	return a.state
}

// State returns the current state.
func (a *Accumulator) State() State {
	return a.state
}

// Reset discards all accumulated text.
func (a *Accumulator) Reset() {
	a.state = State{}
}
