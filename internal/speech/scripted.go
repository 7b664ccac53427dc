package speech

import (
	"context"
	"sync"
	"time"
)

// Scripted is a Capability whose events are pushed by the caller. It stands in
// for a real recognizer in tests and local development.
type Scripted struct {
	mu        sync.Mutex
	available bool
	startErr  error
	out       chan<- RecognitionEvent
	running   bool
	starts    int
	audio     [][]byte
}

// NewScripted creates a scripted capability.
func NewScripted(available bool) *Scripted {
	return &Scripted{available: available}
}

// FailStart makes subsequent Start calls return err.
func (s *Scripted) FailStart(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startErr = err
}

func (s *Scripted) IsAvailable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.available
}

func (s *Scripted) Start(_ context.Context, out chan<- RecognitionEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyActive
	}
	if s.startErr != nil {
		return s.startErr
	}
	s.out = out
	s.running = true
	s.starts++
	return nil
}

// Emit sends ev to the running stream, blocking until it is accepted.
// It reports false when no stream is running.
func (s *Scripted) Emit(ev RecognitionEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return false
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	s.out <- ev
	return true
}

// SendAudio records the chunk.
func (s *Scripted) SendAudio(audioData []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return ErrNotActive
	}
	s.audio = append(s.audio, append([]byte(nil), audioData...))
	return nil
}

func (s *Scripted) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false
	close(s.out)
	s.out = nil
	return nil
}

// Starts returns how many times Start succeeded.
func (s *Scripted) Starts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.starts
}

// Running reports whether a stream is active.
func (s *Scripted) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// AudioBytes returns the total number of audio bytes received.
func (s *Scripted) AudioBytes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, chunk := range s.audio {
		n += len(chunk)
	}
	return n
}
