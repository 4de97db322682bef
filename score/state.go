package score

import (
	"fmt"
	"math"
)

// Musical grid assumptions for the editor (4/4)
const (
	BeatsPerBar = 4
	MinimumBars = 4
)

// EditorState is the in-memory document of one editing session.
// It is built atomically by NewEditorState and replaced wholesale on load.
type EditorState struct {
	PPQ   int
	BPM   float64
	Notes *Model

	totalTicks      int64
	durationSeconds float64
}

// NewEditorState validates every note before returning a state; nothing is
// partially constructed on error.
func NewEditorState(ppq int, bpm float64, notes []EditorNote) (*EditorState, error) {
	if ppq <= 0 {
		return nil, fmt.Errorf("%w: ppq %d must be positive", ErrInvariantViolation, ppq)
	}
	if !(bpm > 0) {
		return nil, fmt.Errorf("%w: bpm %g must be positive", ErrInvariantViolation, bpm)
	}
	model, err := NewModelFrom(notes)
	if err != nil {
		return nil, err
	}
	s := &EditorState{PPQ: ppq, BPM: bpm, Notes: model}
	s.Recompute()
	return s, nil
}

// TotalTicks is max(last note end, MinimumBars bars)
func (s *EditorState) TotalTicks() int64 {
	return s.totalTicks
}

// DurationSeconds is the time of the last note end at the session tempo
func (s *EditorState) DurationSeconds() float64 {
	return s.durationSeconds
}

// FloorTicks is the minimum content length at the current ppq
func (s *EditorState) FloorTicks() int64 {
	return int64(MinimumBars * BeatsPerBar * s.PPQ)
}

// TicksPerBar returns the bar length in ticks
func (s *EditorState) TicksPerBar() int64 {
	return int64(BeatsPerBar * s.PPQ)
}

// Recompute re-derives totalTicks and durationSeconds from the notes
func (s *EditorState) Recompute() {
	end := s.Notes.MaxEndTick()
	s.totalTicks = max(end, s.FloorTicks())
	s.durationSeconds = float64(end) * 60 / (s.BPM * float64(s.PPQ))
}

// AddNote adds a note and re-derives the totals
func (s *EditorState) AddNote(n EditorNote) (EditorNote, error) {
	added, err := s.Notes.Add(n)
	if err != nil {
		return EditorNote{}, err
	}
	s.Recompute()
	return added, nil
}

// UpdateNote patches a note and re-derives the totals
func (s *EditorState) UpdateNote(id string, p Patch) (EditorNote, error) {
	updated, err := s.Notes.Update(id, p)
	if err != nil {
		return EditorNote{}, err
	}
	s.Recompute()
	return updated, nil
}

// RemoveNote deletes a note and re-derives the totals
func (s *EditorState) RemoveNote(id string) (EditorNote, error) {
	removed, err := s.Notes.Remove(id)
	if err != nil {
		return EditorNote{}, err
	}
	s.Recompute()
	return removed, nil
}

// SetTempo changes the session tempo
func (s *EditorState) SetTempo(bpm float64) error {
	if !(bpm > 0) {
		return fmt.Errorf("%w: bpm %g must be positive", ErrInvariantViolation, bpm)
	}
	s.BPM = bpm
	s.Recompute()
	return nil
}

// Position formats a tick as bar.beat.tick; bar and beat count from 1
func Position(tick float64, ppq int) string {
	if ppq <= 0 {
		return "1.1.000"
	}
	t := int64(math.Max(tick, 0))
	beat := int64(ppq)
	bar := beat * BeatsPerBar
	return fmt.Sprintf("%d.%d.%03d", t/bar+1, t%bar/beat+1, t%beat)
}
