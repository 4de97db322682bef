package session

import (
	"fmt"
	"io"
	"os"

	"go-pianoroll/midi"
	"go-pianoroll/score"
)

// Track layout of exported files
const (
	MelodicTrack = 0
	DrumTrack    = 1
)

// FromFile builds an editor state from a decoded file. The state is either
// complete or not built at all.
func FromFile(f *midi.File) (*score.EditorState, error) {
	notes := make([]score.EditorNote, 0, f.NoteCount())
	for ti, t := range f.Tracks {
		drum := t.IsDrum()
		for _, n := range t.Notes {
			notes = append(notes, score.EditorNote{
				Pitch:         int(n.Pitch),
				StartTick:     n.StartTick,
				DurationTicks: n.DurationTicks,
				Velocity:      midi.VelocityToUnit(n.Velocity),
				TrackIndex:    ti,
				IsDrum:        drum,
				Modulation:    ccToUnit(n.Modulation),
				Expression:    ccToUnit(n.Expression),
			})
		}
	}
	return score.NewEditorState(f.PPQ, f.BPM, notes)
}

// ToFile lays the notes out as exactly two tracks: melodic on channel 0 and
// drums on the percussion channel, with the session tempo.
func ToFile(st *score.EditorState) *midi.File {
	f := &midi.File{
		PPQ: st.PPQ,
		BPM: st.BPM,
		Tracks: []midi.Track{
			MelodicTrack: {Name: "Melodic", Channel: 0},
			DrumTrack:    {Name: "Drums", Channel: midi.PercussionChannel, IsPercussion: true},
		},
	}
	for _, n := range st.Notes.Notes() {
		tr := MelodicTrack
		if n.IsDrum {
			tr = DrumTrack
		}
		f.Tracks[tr].Notes = append(f.Tracks[tr].Notes, midi.Note{
			Pitch:         uint8(n.Pitch),
			StartTick:     n.StartTick,
			DurationTicks: n.DurationTicks,
			Velocity:      midi.UnitToVelocity(n.Velocity),
			Modulation:    unitToCC(n.Modulation),
			Expression:    unitToCC(n.Expression),
		})
	}
	return f
}

// Decode reads a Standard MIDI File into a new editor state
func Decode(r io.Reader) (*score.EditorState, error) {
	f, err := midi.Decode(r)
	if err != nil {
		return nil, err
	}
	return FromFile(f)
}

// DecodeFile reads the file at path
func DecodeFile(path string) (*score.EditorState, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	st, err := Decode(fh)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return st, nil
}

// writeFile encodes f to path via a temporary file so a failed export never
// leaves a truncated file behind
func writeFile(path string, f *midi.File) error {
	tmp := path + ".tmp"
	fh, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := midi.Encode(fh, f); err != nil {
		fh.Close()
		os.Remove(tmp)
		return err
	}
	if err := fh.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func ccToUnit(v *uint8) *float64 {
	if v == nil {
		return nil
	}
	u := float64(*v) / 127
	return &u
}

func unitToCC(v *float64) *uint8 {
	if v == nil {
		return nil
	}
	cc := midi.UnitToCC(*v)
	return &cc
}
