package transport

import (
	"math"
	"sort"

	"go-pianoroll/debug"
	"go-pianoroll/score"
)

// Event is one note handed to the sound collaborator
type Event struct {
	Tick            int64
	OnSeconds       float64 // transport time of the note-on
	Pitch           int
	DurationSeconds float64
	Velocity        float64 // 0-1
	IsDrum          bool
	DrumClass       score.DrumClass
	NoteID          string
}

// Sound triggers notes. Events arrive in tick order.
type Sound interface {
	Trigger(ev Event)
}

// SoundFunc adapts a function to Sound
type SoundFunc func(ev Event)

func (f SoundFunc) Trigger(ev Event) { f(ev) }

type onsetKey struct {
	tick  int64
	class score.DrumClass
}

// BuildSchedule turns notes into playback events ordered by tick. The input
// is always re-sorted since edits may leave it out of order. Drum notes of
// the same class sharing an onset tick are collapsed into the first one.
func BuildSchedule(notes []score.EditorNote, tempo Tempo) []Event {
	sorted := make([]score.EditorNote, len(notes))
	copy(sorted, notes)
	if !sort.SliceIsSorted(sorted, func(i, j int) bool { return sorted[i].StartTick < sorted[j].StartTick }) {
		debug.Log("schedule", "ordering correction: %d notes re-sorted by tick", len(sorted))
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartTick < sorted[j].StartTick
	})

	seen := make(map[onsetKey]struct{})
	events := make([]Event, 0, len(sorted))
	dropped := 0
	for _, n := range sorted {
		class := n.Class()
		if class != score.DrumClassNone {
			key := onsetKey{tick: n.StartTick, class: class}
			if _, dup := seen[key]; dup {
				dropped++
				continue
			}
			seen[key] = struct{}{}
		}
		events = append(events, Event{
			Tick:            n.StartTick,
			OnSeconds:       tempo.TicksToSeconds(float64(n.StartTick)),
			Pitch:           n.Pitch,
			DurationSeconds: tempo.TicksToSeconds(float64(n.DurationTicks)),
			Velocity:        n.Velocity,
			IsDrum:          n.IsDrum,
			DrumClass:       class,
			NoteID:          n.ID,
		})
	}
	if dropped > 0 {
		debug.Log("schedule", "suppressed %d duplicate drum onsets", dropped)
	}
	return events
}

// Player walks a schedule as the playhead advances, firing each event once
type Player struct {
	sound     Sound
	events    []Event
	next      int
	done      float64 // every event with Tick <= done has been handled
	lookahead int64
}

// NewPlayer creates a player firing into sound, lookahead ticks ahead of the playhead
func NewPlayer(sound Sound, lookahead int64) *Player {
	return &Player{sound: sound, lookahead: max(lookahead, 0), done: -1}
}

// Load replaces the schedule after an edit. Events up to the last fired
// horizon are not fired again.
func (p *Player) Load(events []Event) {
	p.events = events
	p.next = sort.Search(len(p.events), func(i int) bool {
		return float64(p.events[i].Tick) > p.done
	})
}

// Rewind positions the cursor at the first event at or after tick
func (p *Player) Rewind(tick float64) {
	p.done = math.Ceil(tick) - 1
	p.next = sort.Search(len(p.events), func(i int) bool {
		return float64(p.events[i].Tick) > p.done
	})
}

// Advance fires every pending event up to tick+lookahead and returns how many fired
func (p *Player) Advance(tick float64) int {
	horizon := tick + float64(p.lookahead)
	fired := 0
	for p.next < len(p.events) && float64(p.events[p.next].Tick) <= horizon {
		if p.sound != nil {
			p.sound.Trigger(p.events[p.next])
		}
		p.next++
		fired++
	}
	p.done = math.Max(p.done, horizon)
	return fired
}

// Pending returns the number of events not fired yet
func (p *Player) Pending() int {
	return len(p.events) - p.next
}
