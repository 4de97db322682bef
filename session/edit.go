package session

import (
	"fmt"
	"math"

	"go-pianoroll/score"
)

// GridStep is one preset grid step in ticks
func (s *Session) GridStep(drum bool) int64 {
	if s.doc == nil {
		return 1
	}
	if drum {
		return s.opts.Drums.GridTicks(s.doc.PPQ)
	}
	return s.opts.Melodic.GridTicks(s.doc.PPQ)
}

// NewNoteAt adds a note at tick, snapped down to the preset grid, with the
// preset's length and velocity. Melodic pitches are kept inside the preset
// range; drum notes get the accent velocity on beats.
func (s *Session) NewNoteAt(tick float64, pitch int, drum bool) (score.EditorNote, error) {
	if s.doc == nil {
		return score.EditorNote{}, ErrNoSession
	}
	ppq := s.doc.PPQ
	t := int64(math.Max(tick, 0))

	var n score.EditorNote
	if drum {
		d := s.opts.Drums
		start := d.Quantize(t, ppq)
		n = score.EditorNote{
			Pitch:         pitch,
			StartTick:     start,
			DurationTicks: d.LengthTicks(ppq),
			Velocity:      d.VelocityAt(start, ppq),
			TrackIndex:    DrumTrack,
			IsDrum:        true,
		}
	} else {
		m := s.opts.Melodic
		n = score.EditorNote{
			Pitch:         m.ClampPitch(pitch),
			StartTick:     m.Quantize(t, ppq),
			DurationTicks: m.LengthTicks(ppq),
			Velocity:      m.Velocity,
			TrackIndex:    MelodicTrack,
		}
	}
	return s.AddNote(n)
}

// MoveNote shifts a note by grid steps and semitones, clamped to the plane
func (s *Session) MoveNote(id string, steps, semitones int) (score.EditorNote, error) {
	n, ok := s.Note(id)
	if !ok {
		return score.EditorNote{}, s.missing(id)
	}
	start := max(n.StartTick+int64(steps)*s.GridStep(n.IsDrum), 0)
	pitch := min(max(n.Pitch+semitones, score.MinPitch), score.MaxPitch)
	return s.UpdateNote(id, score.Patch{StartTick: &start, Pitch: &pitch})
}

// ResizeNote grows or shrinks a note by grid steps, never below one tick
func (s *Session) ResizeNote(id string, steps int) (score.EditorNote, error) {
	n, ok := s.Note(id)
	if !ok {
		return score.EditorNote{}, s.missing(id)
	}
	dur := max(n.DurationTicks+int64(steps)*s.GridStep(n.IsDrum), 1)
	return s.UpdateNote(id, score.Patch{DurationTicks: &dur})
}

// ToggleDrum moves a note between the melodic and drum tracks
func (s *Session) ToggleDrum(id string) (score.EditorNote, error) {
	n, ok := s.Note(id)
	if !ok {
		return score.EditorNote{}, s.missing(id)
	}
	drum := !n.IsDrum
	track := MelodicTrack
	if drum {
		track = DrumTrack
	}
	return s.UpdateNote(id, score.Patch{IsDrum: &drum, TrackIndex: &track})
}

func (s *Session) missing(id string) error {
	if s.doc == nil {
		return ErrNoSession
	}
	return fmt.Errorf("%w: %q", score.ErrNoteNotFound, id)
}

// NextByTime returns the neighbour of id in start order (dir +1 or -1).
// With an empty id it returns the first note at or after the playhead.
func (s *Session) NextByTime(id string, dir int) (score.EditorNote, bool) {
	notes := s.Notes()
	if len(notes) == 0 {
		return score.EditorNote{}, false
	}
	if id == "" {
		tick := int64(s.CurrentTick())
		for _, n := range notes {
			if n.StartTick >= tick {
				return n, true
			}
		}
		return notes[len(notes)-1], true
	}
	for i, n := range notes {
		if n.ID != id {
			continue
		}
		j := i + dir
		if j < 0 || j >= len(notes) {
			return n, true
		}
		return notes[j], true
	}
	return score.EditorNote{}, false
}

// NextByPitch returns the closest note above (dir +1) or below (dir -1) id,
// preferring notes that sound at id's start tick, then the closest in time
func (s *Session) NextByPitch(id string, dir int) (score.EditorNote, bool) {
	cur, ok := s.Note(id)
	if !ok {
		return score.EditorNote{}, false
	}
	var (
		best     score.EditorNote
		bestRank = math.Inf(1)
	)
	for _, n := range s.Notes() {
		dp := (n.Pitch - cur.Pitch) * dir
		if n.ID == id || dp <= 0 {
			continue
		}
		dt := 0.0
		if cur.StartTick < n.StartTick || cur.StartTick >= n.EndTick() {
			dt = math.Abs(float64(n.StartTick - cur.StartTick))
		}
		// time distance dominates; pitch breaks ties
		rank := dt*1000 + float64(dp)
		if rank < bestRank {
			best, bestRank = n, rank
		}
	}
	return best, !math.IsInf(bestRank, 1)
}
