package midi

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// ErrParse is returned for malformed or empty Standard MIDI Files
var ErrParse = errors.New("midi parse error")

// DefaultBPM is used when a file carries no tempo event
const DefaultBPM = 120.0

// File is the codec's view of a Standard MIDI File
type File struct {
	PPQ    int
	BPM    float64 // first tempo event
	Tracks []Track
}

// Track holds the notes of one channel of one source track
type Track struct {
	Name         string
	Channel      uint8
	IsPercussion bool
	Notes        []Note
}

// Note is one note in ticks. Modulation and Expression are the last CC1/CC11
// value seen on the channel at the note's start, if any.
type Note struct {
	Pitch         uint8
	StartTick     int64
	DurationTicks int64
	Velocity      uint8
	Modulation    *uint8
	Expression    *uint8
}

// NoteCount sums notes across all tracks
func (f *File) NoteCount() int {
	n := 0
	for _, t := range f.Tracks {
		n += len(t.Notes)
	}
	return n
}

// IsDrum reports whether the track plays percussion: the reserved channel or
// a track flagged as drums by name
func (t Track) IsDrum() bool {
	return t.IsPercussion || t.Channel == PercussionChannel
}

// Decode reads a Standard MIDI File. Files without any notes fail with ErrParse.
func Decode(r io.Reader) (*File, error) {
	s, err := smf.ReadFrom(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	mt, ok := s.TimeFormat.(smf.MetricTicks)
	if !ok || mt.Resolution() == 0 {
		return nil, fmt.Errorf("%w: unsupported time format %v", ErrParse, s.TimeFormat)
	}

	f := &File{PPQ: int(mt.Resolution()), BPM: DefaultBPM}
	if tc := s.TempoChanges(); len(tc) > 0 && tc[0].BPM > 0 {
		f.BPM = tc[0].BPM
	}
	for _, tr := range s.Tracks {
		f.Tracks = append(f.Tracks, decodeTrack(tr)...)
	}
	if f.NoteCount() == 0 {
		return nil, fmt.Errorf("%w: file contains no notes", ErrParse)
	}
	return f, nil
}

type openNote struct {
	index int // into the channel's notes
	start int64
}

type channelState struct {
	notes      []Note
	open       map[uint8][]openNote // FIFO per key
	modulation *uint8
	expression *uint8
}

// decodeTrack pairs note starts with ends and splits the track by channel
func decodeTrack(tr smf.Track) []Track {
	var (
		name     string
		abs      int64
		channels = map[uint8]*channelState{}
		order    []uint8
	)
	state := func(ch uint8) *channelState {
		cs, ok := channels[ch]
		if !ok {
			cs = &channelState{open: map[uint8][]openNote{}}
			channels[ch] = cs
			order = append(order, ch)
		}
		return cs
	}

	for _, ev := range tr {
		abs += int64(ev.Delta)
		var text string
		if ev.Message.GetMetaTrackName(&text) && name == "" {
			name = text
			continue
		}

		msg := gomidi.Message(ev.Message)
		var ch, key, vel, cc, val uint8
		switch {
		case msg.GetNoteStart(&ch, &key, &vel):
			cs := state(ch)
			cs.notes = append(cs.notes, Note{
				Pitch:      key,
				StartTick:  abs,
				Velocity:   vel,
				Modulation: copyByte(cs.modulation),
				Expression: copyByte(cs.expression),
			})
			cs.open[key] = append(cs.open[key], openNote{index: len(cs.notes) - 1, start: abs})
		case msg.GetNoteEnd(&ch, &key):
			cs := state(ch)
			q := cs.open[key]
			if len(q) == 0 {
				continue
			}
			cs.notes[q[0].index].DurationTicks = max(abs-q[0].start, 1)
			cs.open[key] = q[1:]
		case msg.GetControlChange(&ch, &cc, &val):
			cs := state(ch)
			switch cc {
			case CCModulation:
				cs.modulation = &val
			case CCExpression:
				cs.expression = &val
			}
		}
	}

	perc := isPercussionName(name)
	var out []Track
	for _, ch := range order {
		cs := channels[ch]
		// unterminated notes run to the end of the track
		for _, q := range cs.open {
			for _, o := range q {
				cs.notes[o.index].DurationTicks = max(abs-o.start, 1)
			}
		}
		if len(cs.notes) == 0 {
			continue
		}
		out = append(out, Track{Name: name, Channel: ch, IsPercussion: perc, Notes: cs.notes})
	}
	return out
}

func isPercussionName(name string) bool {
	n := strings.ToLower(name)
	return strings.Contains(n, "drum") || strings.Contains(n, "perc")
}

func copyByte(b *uint8) *uint8 {
	if b == nil {
		return nil
	}
	v := *b
	return &v
}

type timed struct {
	tick  int64
	order int // note-offs sort before CCs before note-ons at the same tick
	msg   []byte
}

// clipOverlaps orders notes by start (shorter first on ties) and shortens each
// note to end at or before the next onset of its pitch. Overlapping notes on
// one key cannot be told apart once written, so they decode back the same way
// only after clipping.
func clipOverlaps(notes []Note) []Note {
	out := slices.Clone(notes)
	slices.SortStableFunc(out, func(a, b Note) int {
		return cmp.Or(cmp.Compare(a.StartTick, b.StartTick), cmp.Compare(a.DurationTicks, b.DurationTicks))
	})
	byPitch := map[uint8][]int{}
	for i := range out {
		out[i].DurationTicks = max(out[i].DurationTicks, 1)
		byPitch[out[i].Pitch] = append(byPitch[out[i].Pitch], i)
	}
	for _, idx := range byPitch {
		next := 0
		for k, i := range idx {
			next = max(next, k+1)
			for next < len(idx) && out[idx[next]].StartTick <= out[i].StartTick {
				next++
			}
			if next < len(idx) {
				out[i].DurationTicks = min(out[i].DurationTicks, out[idx[next]].StartTick-out[i].StartTick)
			}
		}
	}
	return out
}

// Encode writes f as a format 1 Standard MIDI File, one SMF track per Track.
// The first track carries the meter and the single tempo event. Same-pitch
// notes that overlap are clipped at the next onset.
func Encode(w io.Writer, f *File) error {
	if f.PPQ <= 0 || f.PPQ > 0x7FFF {
		return fmt.Errorf("invalid ppq %d", f.PPQ)
	}
	bpm := f.BPM
	if bpm <= 0 {
		bpm = DefaultBPM
	}

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(uint16(f.PPQ))

	for i, t := range f.Tracks {
		var tr smf.Track
		if t.Name != "" {
			tr.Add(0, smf.MetaTrackSequenceName(t.Name))
		}
		if i == 0 {
			tr.Add(0, smf.MetaMeter(4, 4))
			tr.Add(0, smf.MetaTempo(bpm))
		}

		events := make([]timed, 0, len(t.Notes)*2)
		for _, n := range clipOverlaps(t.Notes) {
			if n.Modulation != nil {
				events = append(events, timed{n.StartTick, 1, gomidi.ControlChange(t.Channel, CCModulation, *n.Modulation)})
			}
			if n.Expression != nil {
				events = append(events, timed{n.StartTick, 1, gomidi.ControlChange(t.Channel, CCExpression, *n.Expression)})
			}
			vel := max(n.Velocity, 1)
			events = append(events,
				timed{n.StartTick, 2, gomidi.NoteOn(t.Channel, n.Pitch, vel)},
				timed{n.StartTick + n.DurationTicks, 0, gomidi.NoteOff(t.Channel, n.Pitch)},
			)
		}
		slices.SortStableFunc(events, func(a, b timed) int {
			if a.tick != b.tick {
				return cmp.Compare(a.tick, b.tick)
			}
			return a.order - b.order
		})

		var last int64
		for _, ev := range events {
			tr.Add(uint32(ev.tick-last), ev.msg)
			last = ev.tick
		}
		tr.Close(0)
		if err := s.Add(tr); err != nil {
			return fmt.Errorf("add track %d: %w", i, err)
		}
	}

	if _, err := s.WriteTo(w); err != nil {
		return fmt.Errorf("write smf: %w", err)
	}
	return nil
}
