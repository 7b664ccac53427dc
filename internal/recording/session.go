// Package recording drives a speech capability through start/stop cycles and
// folds its events into a transcript.
package recording

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/lexiqai/assist-gateway/internal/observability"
	"github.com/lexiqai/assist-gateway/internal/speech"
	"github.com/lexiqai/assist-gateway/internal/transcript"
)

var (
	// ErrCapabilityUnavailable is returned by Start when the recognizer cannot be used.
	ErrCapabilityUnavailable = errors.New("speech recognition is not available")
	// ErrNotRecording is returned by Stop outside the Recording state.
	ErrNotRecording = errors.New("session is not recording")
)

// eventBuffer is the capacity of the channel handed to the capability.
const eventBuffer = 64

// State is the lifecycle state of a Session.
type State int

const (
	StateIdle State = iota
	StateRecording
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Update describes the transcript after one applied event.
type Update struct {
	Committed string
	Interim   string
	Display   string
	State     State
}

// Listener receives session output. OnTranscript is called from the session's
// event goroutine; OnFinalize is called from Stop after the last OnTranscript.
type Listener interface {
	OnTranscript(Update)
	OnFinalize(text string)
}

// Session owns one transcript and the capability stream feeding it.
// Idle -> Recording -> Stopped -> Recording ... ; Reset returns to Idle.
type Session struct {
	id         string
	capability speech.Capability
	listener   Listener
	logger     zerolog.Logger
	metrics    *observability.RecordingMetrics

	// lifecycle serializes Start, Stop and Reset.
	lifecycle sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}

	mu      sync.Mutex
	state   State
	cycle   int // bumped by every Start; pumps of earlier cycles are stale
	acc     *transcript.Accumulator
	lastSeq int
}

// NewSession creates an idle session. listener may be nil.
func NewSession(capability speech.Capability, listener Listener) *Session {
	id := observability.NewCorrelationID()
	return &Session{
		id:         id,
		capability: capability,
		listener:   listener,
		logger:     observability.WithCorrelationID(id).With().Str("component", "recording").Logger(),
		metrics:    observability.NewRecordingMetrics(),
		state:      StateIdle,
		acc:        transcript.NewAccumulator(),
	}
}

// ID returns the session's correlation id.
func (s *Session) ID() string {
	return s.id
}

// Start begins a recording cycle. Committed text from earlier cycles is kept.
// Starting a session that is already recording does nothing.
func (s *Session) Start(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if !s.capability.IsAvailable() {
		s.logger.Warn().Msg("Speech capability unavailable, not starting")
		return ErrCapabilityUnavailable
	}

	s.mu.Lock()
	if s.state == StateRecording {
		s.mu.Unlock()
		return nil
	}
	prev := s.state
	// Recording before the capability starts so its first events are kept.
	s.state = StateRecording
	s.cycle++
	cycle := s.cycle
	s.lastSeq = -1
	s.mu.Unlock()

	events := make(chan speech.RecognitionEvent, eventBuffer)
	streamCtx, cancel := context.WithCancel(ctx)
	if err := s.capability.Start(streamCtx, events); err != nil {
		cancel()
		s.mu.Lock()
		s.state = prev
		s.mu.Unlock()
		observability.RecordError("capability_start", "recording")
		return fmt.Errorf("failed to start speech capability: %w", err)
	}

	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	go s.pump(cycle, events, done)

	s.metrics.RecordStart()
	s.logger.Info().Str("from", prev.String()).Msg("Recording started")
	return nil
}

// pump applies events in channel order until the capability closes the channel.
// A pump outlives its cycle when the capability fails to stop; its events are
// then dropped.
func (s *Session) pump(cycle int, events <-chan speech.RecognitionEvent, done chan<- struct{}) {
	defer close(done)
	for ev := range events {
		s.deliverCycle(cycle, ev)
	}
}

// deliver applies ev to the current cycle.
func (s *Session) deliver(ev speech.RecognitionEvent) {
	s.mu.Lock()
	cycle := s.cycle
	s.mu.Unlock()
	s.deliverCycle(cycle, ev)
}

func (s *Session) deliverCycle(cycle int, ev speech.RecognitionEvent) {
	s.mu.Lock()
	if s.state != StateRecording {
		state := s.state
		s.mu.Unlock()
		s.logger.Debug().Str("state", state.String()).Msg("Dropping recognition event outside recording")
		observability.RecordRecognitionEvent("dropped")
		return
	}
	if cycle != s.cycle {
		current := s.cycle
		s.mu.Unlock()
		s.logger.Warn().
			Int("cycle", cycle).
			Int("current_cycle", current).
			Msg("Dropping recognition event from an earlier cycle")
		observability.RecordRecognitionEvent("dropped")
		return
	}

	if ev.SequenceIndex < s.lastSeq {
		s.logger.Warn().
			Int("sequence", ev.SequenceIndex).
			Int("last_sequence", s.lastSeq).
			Msg("Recognition event sequence went backwards")
	}
	s.lastSeq = ev.SequenceIndex

	st := s.acc.Apply(ev)
	update := Update{
		Committed: st.Committed,
		Interim:   st.Interim,
		Display:   st.Display(true),
		State:     StateRecording,
	}
	s.mu.Unlock()

	if ev.IsFinal {
		observability.RecordRecognitionEvent("final")
	} else {
		observability.RecordRecognitionEvent("interim")
	}

	if s.listener != nil {
		s.listener.OnTranscript(update)
	}
}

// Stop ends the recording cycle. Events the capability delivered before
// stopping are applied first; the listener then receives the committed text.
func (s *Session) Stop() error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	text, err := s.stopLocked()
	if errors.Is(err, ErrNotRecording) {
		return err
	}

	if s.listener != nil {
		s.listener.OnFinalize(text)
	}
	return err
}

// stopLocked ends the stream and moves to Stopped. Caller holds lifecycle.
func (s *Session) stopLocked() (string, error) {
	s.mu.Lock()
	if s.state != StateRecording {
		s.mu.Unlock()
		return "", ErrNotRecording
	}
	s.mu.Unlock()

	var stopErr error
	if err := s.capability.Stop(); err != nil {
		// The channel may never close; its pump's later events are dropped by
		// state now and by cycle once a new cycle starts.
		s.logger.Error().Err(err).Msg("Failed to stop speech capability")
		observability.RecordError("capability_stop", "recording")
		stopErr = fmt.Errorf("failed to stop speech capability: %w", err)
	} else {
		<-s.done
	}
	s.cancel()

	s.mu.Lock()
	s.state = StateStopped
	text := s.acc.State().Committed
	s.mu.Unlock()

	s.metrics.RecordStop()
	s.logger.Info().Int("committed_len", len(text)).Msg("Recording stopped")
	return text, stopErr
}

// Reset stops any running cycle without finalizing and discards the transcript.
func (s *Session) Reset() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if _, err := s.stopLocked(); err != nil && !errors.Is(err, ErrNotRecording) {
		s.logger.Warn().Err(err).Msg("Reset continued after stop failure")
	}

	s.mu.Lock()
	s.acc.Reset()
	s.state = StateIdle
	s.lastSeq = -1
	s.mu.Unlock()

	s.logger.Info().Msg("Session reset")
}

// State returns the lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Transcript returns a snapshot of the accumulated transcript.
func (s *Session) Transcript() transcript.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acc.State()
}

// DisplayText is committed plus interim text while recording, committed text otherwise.
func (s *Session) DisplayText() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acc.State().Display(s.state == StateRecording)
}

// Snapshot returns the current transcript as an Update.
func (s *Session) Snapshot() Update {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.acc.State()
	return Update{
		Committed: st.Committed,
		Interim:   st.Interim,
		Display:   st.Display(s.state == StateRecording),
		State:     s.state,
	}
}
