// Package speech abstracts continuous speech-recognition providers as a
// stream of RecognitionEvent values.
package speech

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrAlreadyActive is returned by Start when a stream is already running.
	ErrAlreadyActive = errors.New("speech capability is already active")
	// ErrNotActive is returned when audio is sent without a running stream.
	ErrNotActive = errors.New("speech capability is not active")
)

// RecognitionEvent is one hypothesis from the recognizer.
type RecognitionEvent struct {
	// Text is the hypothesis for the current utterance
	Text string

	// IsFinal marks that this text will not be revised
	IsFinal bool

	// SequenceIndex identifies the utterance. Interim revisions share the index
	// of the final that eventually replaces them; it never decreases within a stream.
	SequenceIndex int

	// Confidence is the recognizer's score (0.0 to 1.0) if available
	Confidence float64

	Timestamp time.Time
}

// Capability is a platform speech recognizer.
type Capability interface {
	// IsAvailable reports whether the recognizer can be used at all
	IsAvailable() bool

	// Start begins streaming events into out, in order. The capability owns
	// out from Start until Stop, and closes it on Stop.
	Start(ctx context.Context, out chan<- RecognitionEvent) error

	// Stop ends the stream. No events are sent after Stop returns.
	Stop() error
}

// AudioSink is implemented by capabilities that are fed audio by the caller
// rather than capturing it themselves.
type AudioSink interface {
	SendAudio(audioData []byte) error
}
