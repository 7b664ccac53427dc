package speech

import (
	"context"
	"errors"
	"testing"
)

func TestScripted_Lifecycle(t *testing.T) {
	s := NewScripted(true)
	out := make(chan RecognitionEvent, 2)

	if s.Emit(RecognitionEvent{Text: "early"}) {
		t.Error("Expected Emit before Start to report false")
	}

	if err := s.Start(context.Background(), out); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := s.Start(context.Background(), out); !errors.Is(err, ErrAlreadyActive) {
		t.Errorf("Expected ErrAlreadyActive on second Start, got %v", err)
	}

	if !s.Emit(RecognitionEvent{Text: "hello", IsFinal: true}) {
		t.Fatal("Expected Emit to succeed while running")
	}
	ev := <-out
	if ev.Text != "hello" || !ev.IsFinal || ev.Timestamp.IsZero() {
		t.Errorf("Unexpected event: %+v", ev)
	}

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if _, ok := <-out; ok {
		t.Error("Expected channel to be closed after Stop")
	}
	if s.Running() {
		t.Error("Expected Running to be false after Stop")
	}
	if s.Starts() != 1 {
		t.Errorf("Expected 1 start, got %d", s.Starts())
	}
}

func TestScripted_FailStart(t *testing.T) {
	s := NewScripted(true)
	startErr := errors.New("microphone busy")
	s.FailStart(startErr)

	if err := s.Start(context.Background(), make(chan RecognitionEvent)); !errors.Is(err, startErr) {
		t.Errorf("Expected start error, got %v", err)
	}
	if s.Running() {
		t.Error("Expected capability not to be running")
	}
}

func TestScripted_SendAudio(t *testing.T) {
	s := NewScripted(true)

	if err := s.SendAudio([]byte{1}); !errors.Is(err, ErrNotActive) {
		t.Errorf("Expected ErrNotActive before Start, got %v", err)
	}

	if err := s.Start(context.Background(), make(chan RecognitionEvent)); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := s.SendAudio([]byte{1, 2, 3}); err != nil {
		t.Fatalf("SendAudio failed: %v", err)
	}
	if err := s.SendAudio([]byte{4}); err != nil {
		t.Fatalf("SendAudio failed: %v", err)
	}
	if s.AudioBytes() != 4 {
		t.Errorf("Expected 4 audio bytes, got %d", s.AudioBytes())
	}
}
