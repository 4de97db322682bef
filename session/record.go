package session

import (
	"go-pianoroll/midi"
	"go-pianoroll/score"
)

type heldNote struct {
	tick     float64
	velocity uint8
}

// recorder tracks keys held on the live input while recording
type recorder struct {
	armed bool
	held  map[[2]uint8]heldNote // (channel, key)
}

// reset drops held keys; the armed flag survives
func (r *recorder) reset() {
	r.held = make(map[[2]uint8]heldNote)
}

// SetRecording arms or disarms recording from the live input
func (s *Session) SetRecording(on bool) {
	s.recorder.armed = on
	if !on {
		s.recorder.reset()
	}
}

// Recording reports whether recording is armed
func (s *Session) Recording() bool {
	return s.recorder.armed
}

// Record feeds one live input event. While playing with recording armed, a
// key press followed by its release becomes a note, both ends quantized to
// the preset grid and at least one step long. Events on the percussion
// channel record drum notes. Returns the note when one was added.
func (s *Session) Record(ev midi.Event) (score.EditorNote, bool, error) {
	if s.doc == nil || !s.recorder.armed || s.state != StatePlaying {
		return score.EditorNote{}, false, nil
	}
	key := [2]uint8{ev.Channel, ev.Note}
	switch {
	case ev.Starts():
		s.recorder.held[key] = heldNote{tick: s.CurrentTick(), velocity: ev.Velocity}
		return score.EditorNote{}, false, nil
	case ev.Ends():
		h, ok := s.recorder.held[key]
		if !ok {
			return score.EditorNote{}, false, nil
		}
		delete(s.recorder.held, key)
		return s.commitRecorded(ev.Channel == midi.PercussionChannel, int(ev.Note), h, s.CurrentTick())
	}
	return score.EditorNote{}, false, nil
}

func (s *Session) commitRecorded(drum bool, pitch int, h heldNote, endTick float64) (score.EditorNote, bool, error) {
	ppq := s.doc.PPQ
	grid := s.opts.Melodic.Base()
	track := MelodicTrack
	if drum {
		grid = s.opts.Drums.Base()
		track = DrumTrack
	}
	step := grid.GridTicks(ppq)
	start := grid.QuantizeNearest(h.tick, ppq)
	end := grid.QuantizeNearest(endTick, ppq)
	n, err := s.AddNote(score.EditorNote{
		Pitch:         pitch,
		StartTick:     start,
		DurationTicks: max(end-start, step),
		Velocity:      midi.VelocityToUnit(h.velocity),
		TrackIndex:    track,
		IsDrum:        drum,
	})
	if err != nil {
		return score.EditorNote{}, false, err
	}
	return n, true, nil
}
