package score

import (
	"errors"
	"math"
	"testing"
)

func TestTotalTicksFloor(t *testing.T) {
	s, err := NewEditorState(480, 120, []EditorNote{note("a", 60, 0, 480)})
	if err != nil {
		t.Fatalf("new state: %v", err)
	}
	if got, want := s.TotalTicks(), int64(4*4*480); got != want {
		t.Fatalf("total ticks = %d, want floor %d", got, want)
	}
	if math.Abs(s.DurationSeconds()-0.5) > 1e-9 {
		t.Fatalf("duration = %g, want 0.5", s.DurationSeconds())
	}
}

func TestTotalTicksFollowsMutations(t *testing.T) {
	s, err := NewEditorState(96, 120, nil)
	if err != nil {
		t.Fatalf("new state: %v", err)
	}
	floor := s.FloorTicks()

	n, err := s.AddNote(note("a", 60, floor, 100))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if s.TotalTicks() != floor+100 {
		t.Fatalf("total = %d, want %d", s.TotalTicks(), floor+100)
	}

	if _, err := s.UpdateNote(n.ID, Patch{DurationTicks: ptr(int64(300))}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if s.TotalTicks() != floor+300 {
		t.Fatalf("total = %d, want %d", s.TotalTicks(), floor+300)
	}

	if _, err := s.RemoveNote(n.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if s.TotalTicks() != floor {
		t.Fatalf("total = %d, want floor %d", s.TotalTicks(), floor)
	}
}

func TestNewEditorStateIsAtomic(t *testing.T) {
	_, err := NewEditorState(480, 120, []EditorNote{
		note("a", 60, 0, 10),
		note("b", 300, 0, 10),
	})
	if !errors.Is(err, ErrInvariantViolation) {
		t.Fatalf("expected invariant violation, got %v", err)
	}
	if _, err := NewEditorState(0, 120, nil); !errors.Is(err, ErrInvariantViolation) {
		t.Fatalf("expected ppq rejection, got %v", err)
	}
	if _, err := NewEditorState(480, 0, nil); !errors.Is(err, ErrInvariantViolation) {
		t.Fatalf("expected bpm rejection, got %v", err)
	}
}

func TestPosition(t *testing.T) {
	cases := map[float64]string{
		0:              "1.1.000",
		480:            "1.2.000",
		1920 + 480 + 5: "2.2.005",
		-10:            "1.1.000",
	}
	for tick, want := range cases {
		if got := Position(tick, 480); got != want {
			t.Errorf("Position(%v) = %s, want %s", tick, got, want)
		}
	}
}
