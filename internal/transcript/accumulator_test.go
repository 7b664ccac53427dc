package transcript

import (
	"testing"

	"github.com/lexiqai/assist-gateway/internal/speech"
)

func interim(text string, seq int) speech.RecognitionEvent {
	return speech.RecognitionEvent{Text: text, SequenceIndex: seq}
}

func final(text string, seq int) speech.RecognitionEvent {
	return speech.RecognitionEvent{Text: text, IsFinal: true, SequenceIndex: seq}
}

func TestAccumulator_InterimThenFinal(t *testing.T) {
	acc := NewAccumulator()

	acc.Apply(interim("He", 0))
	acc.Apply(interim("Hell", 0))
	s := acc.Apply(final("Hello", 0))

	if s.Committed != "Hello " || s.Interim != "" {
		t.Fatalf("after final: got %+v", s)
	}

	s = acc.Apply(interim("World", 1))
	if s.Committed != "Hello " || s.Interim != "World" {
		t.Fatalf("after next interim: got %+v", s)
	}
}

func TestAccumulator_InterimIsReplacedNotAppended(t *testing.T) {
	acc := NewAccumulator()
	acc.Apply(interim("the quick", 0))
	s := acc.Apply(interim("the quick brown", 0))

	if s.Interim != "the quick brown" {
		t.Errorf("Expected full replacement, got %q", s.Interim)
	}
	if s.Committed != "" {
		t.Errorf("Interim must not commit, got %q", s.Committed)
	}
}

func TestAccumulator_FinalDiscardsInterim(t *testing.T) {
	acc := NewAccumulator()
	acc.Apply(interim("helo wrld", 0))
	s := acc.Apply(final("hello world", 0))

	if s.Committed != "hello world " || s.Interim != "" {
		t.Errorf("got %+v", s)
	}
}

func TestAccumulator_CommittedOnlyGrows(t *testing.T) {
	acc := NewAccumulator()
	prev := ""
	events := []speech.RecognitionEvent{
		interim("a", 0), final("a", 0), interim("b", 1), interim("bc", 1), final("bcd", 1), final("e", 2),
	}
	for _, ev := range events {
		s := acc.Apply(ev)
		if len(s.Committed) < len(prev) || s.Committed[:len(prev)] != prev {
			t.Fatalf("committed was rewritten: %q -> %q", prev, s.Committed)
		}
		prev = s.Committed
	}
	if prev != "a bcd e " {
		t.Errorf("Expected 'a bcd e ', got %q", prev)
	}
}

func TestAccumulator_ReplayedFinalAppendsTwice(t *testing.T) {
	acc := NewAccumulator()
	acc.Apply(final("same", 3))
	s := acc.Apply(final("same", 3))

	if s.Committed != "same same " {
		t.Errorf("Expected duplicate append, got %q", s.Committed)
	}
}

func TestState_Display(t *testing.T) {
	s := State{Committed: "Hello ", Interim: "Wor"}

	if got := s.Display(true); got != "Hello Wor" {
		t.Errorf("recording display = %q", got)
	}
	if got := s.Display(false); got != "Hello " {
		t.Errorf("stopped display = %q", got)
	}
	if s.Display(true) != s.Display(true) {
		t.Error("Display must be idempotent")
	}
}

func TestApply_IsPure(t *testing.T) {
	before := State{Committed: "x ", Interim: "y"}
	_ = Apply(before, final("z", 0))

	if before.Committed != "x " || before.Interim != "y" {
		t.Errorf("Apply mutated its input: %+v", before)
	}
}

func TestAccumulator_Reset(t *testing.T) {
	acc := NewAccumulator()
	acc.Apply(final("gone", 0))
	acc.Reset()

	if s := acc.State(); s.Committed != "" || s.Interim != "" {
		t.Errorf("Expected empty state, got %+v", s)
	}
}
