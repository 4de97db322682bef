package transport

import (
	"math"
	"testing"
	"time"

	"go-pianoroll/score"
)

type fakeTime struct{ t time.Time }

func (f *fakeTime) now() time.Time          { return f.t }
func (f *fakeTime) advance(d time.Duration) { f.t = f.t.Add(d) }

func newFakeTime() *fakeTime { return &fakeTime{t: time.Unix(1000, 0)} }

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestTempoConversion(t *testing.T) {
	tempo := Tempo{BPM: 120, PPQ: 480}
	if got := tempo.TicksToSeconds(480); !approx(got, 0.5) {
		t.Fatalf("480 ticks = %g s, want 0.5", got)
	}
	if got := tempo.SecondsToTicks(0.5); !approx(got, 480) {
		t.Fatalf("0.5 s = %g ticks, want 480", got)
	}
	for _, tick := range []float64{0, 1, 333, 96000} {
		if got := tempo.SecondsToTicks(tempo.TicksToSeconds(tick)); !approx(got, tick) {
			t.Fatalf("round trip %g -> %g", tick, got)
		}
	}
}

func TestClockPauseStopSeek(t *testing.T) {
	ft := newFakeTime()
	c := NewClockWithSource(ft.now)

	c.Start()
	ft.advance(2 * time.Second)
	if got := c.CurrentSeconds(); !approx(got, 2) {
		t.Fatalf("after 2s: %g", got)
	}

	c.Pause()
	ft.advance(5 * time.Second)
	if got := c.CurrentSeconds(); !approx(got, 2) {
		t.Fatalf("paused clock moved: %g", got)
	}

	c.Start()
	ft.advance(time.Second)
	if got := c.CurrentSeconds(); !approx(got, 3) {
		t.Fatalf("resumed: %g, want 3", got)
	}

	c.SetSeconds(10)
	ft.advance(500 * time.Millisecond)
	if got := c.CurrentSeconds(); !approx(got, 10.5) {
		t.Fatalf("after seek: %g, want 10.5", got)
	}

	c.Stop()
	if c.IsStarted() || c.CurrentSeconds() != 0 {
		t.Fatalf("stop should rewind to 0 and halt")
	}
}

func TestSyncFreezesWhenPaused(t *testing.T) {
	ft := newFakeTime()
	c := NewClockWithSource(ft.now)
	s := NewSync(c, Tempo{BPM: 120, PPQ: 480})

	c.Start()
	ft.advance(time.Second)
	if got := s.Poll(); !approx(got, 960) {
		t.Fatalf("tick = %g, want 960", got)
	}

	c.Pause()
	ft.advance(time.Second)
	if got := s.Poll(); !approx(got, 960) {
		t.Fatalf("paused tick = %g, want 960", got)
	}
}

func TestSyncSeekIsImmediate(t *testing.T) {
	ft := newFakeTime()
	c := NewClockWithSource(ft.now)
	s := NewSync(c, Tempo{BPM: 120, PPQ: 480})
	s.Poll()

	s.Seek(1440)
	if got := s.CurrentTick(); got != 1440 {
		t.Fatalf("seek not visible: %g", got)
	}
	if got := s.Poll(); !approx(got, 1440) {
		t.Fatalf("poll after seek = %g, want 1440", got)
	}
	if !approx(c.CurrentSeconds(), 1.5) {
		t.Fatalf("transport not moved: %g s", c.CurrentSeconds())
	}
}

func TestSyncTempoChangeRecomputes(t *testing.T) {
	ft := newFakeTime()
	c := NewClockWithSource(ft.now)
	s := NewSync(c, Tempo{BPM: 120, PPQ: 480})
	c.SetSeconds(1)
	s.Poll()

	s.SetTempo(Tempo{BPM: 60, PPQ: 480})
	// paused, but the cached tick must not survive the tempo change
	if got := s.Poll(); !approx(got, 480) {
		t.Fatalf("tick after bpm change = %g, want 480", got)
	}
	if c.BPM() != 60 {
		t.Fatalf("transport bpm = %g, want 60", c.BPM())
	}

	s.SetTempo(Tempo{BPM: 60, PPQ: 96})
	if got := s.Poll(); !approx(got, 96) {
		t.Fatalf("tick after ppq change = %g, want 96", got)
	}
}

func drum(id string, pitch int, tick int64) score.EditorNote {
	return score.EditorNote{ID: id, Pitch: pitch, StartTick: tick, DurationTicks: 10, Velocity: 1, IsDrum: true}
}

func TestScheduleSuppressesDuplicateDrumOnsets(t *testing.T) {
	notes := []score.EditorNote{
		drum("a", 36, 0),
		drum("b", 36, 10),
		drum("c", 40, 10),
		drum("d", 36, 20),
	}
	var got []int64
	p := NewPlayer(SoundFunc(func(ev Event) { got = append(got, ev.Tick) }), 0)
	p.Load(BuildSchedule(notes, Tempo{BPM: 120, PPQ: 480}))
	p.Advance(1000)

	want := []int64{0, 10, 20}
	if len(got) != len(want) {
		t.Fatalf("got %d triggers %v, want %v", len(got), got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("trigger %d at %d, want %d", i, got[i], want[i])
		}
	}
}

func TestScheduleKeepsDifferentClassesAndChords(t *testing.T) {
	notes := []score.EditorNote{
		drum("kick", 36, 0),
		drum("hat", 46, 0), // metallic class, same onset
		{ID: "c", Pitch: 60, StartTick: 0, DurationTicks: 10, Velocity: 1},
		{ID: "e", Pitch: 64, StartTick: 0, DurationTicks: 10, Velocity: 1},
	}
	events := BuildSchedule(notes, Tempo{BPM: 120, PPQ: 480})
	if len(events) != 4 {
		t.Fatalf("got %d events, want 4", len(events))
	}
}

func TestScheduleResortsUnorderedInput(t *testing.T) {
	notes := []score.EditorNote{
		{ID: "late", Pitch: 60, StartTick: 960, DurationTicks: 480, Velocity: 1},
		{ID: "early", Pitch: 62, StartTick: 0, DurationTicks: 480, Velocity: 0.5},
	}
	events := BuildSchedule(notes, Tempo{BPM: 120, PPQ: 480})
	if events[0].NoteID != "early" || events[1].NoteID != "late" {
		t.Fatalf("events not ordered by tick: %+v", events)
	}
	if !approx(events[1].OnSeconds, 1) || !approx(events[1].DurationSeconds, 0.5) {
		t.Fatalf("timing wrong: %+v", events[1])
	}
}

func TestPlayerAdvanceAndRewind(t *testing.T) {
	var got []string
	p := NewPlayer(SoundFunc(func(ev Event) { got = append(got, ev.NoteID) }), 0)
	p.Load([]Event{{Tick: 0, NoteID: "a"}, {Tick: 100, NoteID: "b"}, {Tick: 200, NoteID: "c"}})

	if n := p.Advance(50); n != 1 {
		t.Fatalf("fired %d, want 1", n)
	}
	if n := p.Advance(60); n != 0 {
		t.Fatalf("refired events: %d", n)
	}
	p.Advance(150)
	p.Rewind(100)
	p.Advance(250)
	want := []string{"a", "b", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestPlayerReloadDoesNotRefire(t *testing.T) {
	count := 0
	p := NewPlayer(SoundFunc(func(Event) { count++ }), 240)
	events := []Event{{Tick: 0}, {Tick: 200}, {Tick: 400}}
	p.Load(events)
	p.Advance(0) // horizon 240 fires 0 and 200
	if count != 2 {
		t.Fatalf("fired %d, want 2", count)
	}
	p.Load(events)
	p.Advance(100)
	if count != 2 {
		t.Fatalf("reload refired events: %d", count)
	}
	p.Advance(200)
	if count != 3 {
		t.Fatalf("fired %d, want 3", count)
	}
}
