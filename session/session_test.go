package session

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go-pianoroll/midi"
	"go-pianoroll/render"
	"go-pianoroll/score"
	"go-pianoroll/transport"
	"go-pianoroll/viewport"
)

type fakeTransport struct {
	seconds float64
	started bool
	bpm     float64
}

func (f *fakeTransport) CurrentSeconds() float64 { return f.seconds }
func (f *fakeTransport) IsStarted() bool         { return f.started }
func (f *fakeTransport) Start()                  { f.started = true }
func (f *fakeTransport) Pause()                  { f.started = false }
func (f *fakeTransport) Stop()                   { f.started, f.seconds = false, 0 }
func (f *fakeTransport) SetSeconds(s float64)    { f.seconds = s }
func (f *fakeTransport) SetBPM(bpm float64)      { f.bpm = bpm }

func (f *fakeTransport) advance(d float64) {
	if f.started {
		f.seconds += d
	}
}

type fakeSound struct {
	events  []transport.Event
	flushes int
}

func (f *fakeSound) Trigger(ev transport.Event) { f.events = append(f.events, ev) }
func (f *fakeSound) Flush()                     { f.flushes++ }

func (f *fakeSound) ticks() []int64 {
	out := make([]int64, len(f.events))
	for i, ev := range f.events {
		out[i] = ev.Tick
	}
	return out
}

type harness struct {
	s     *Session
	tr    *fakeTransport
	sound *fakeSound
	grid  *render.Recorder
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{tr: &fakeTransport{}, sound: &fakeSound{}, grid: &render.Recorder{}}
	h.s = New(Options{Transport: h.tr, Sound: h.sound, Grid: h.grid, PixelsPerTick: 0.2})
	h.s.Resize(848, 624, 1)
	return h
}

func note(id string, pitch int, start, dur int64) score.EditorNote {
	return score.EditorNote{ID: id, Pitch: pitch, StartTick: start, DurationTicks: dur, Velocity: 0.8}
}

func drum(id string, pitch int, start int64) score.EditorNote {
	n := note(id, pitch, start, 60)
	n.IsDrum = true
	n.TrackIndex = DrumTrack
	return n
}

func doc(t *testing.T, notes ...score.EditorNote) *score.EditorState {
	t.Helper()
	st, err := score.NewEditorState(480, 120, notes)
	if err != nil {
		t.Fatalf("NewEditorState: %v", err)
	}
	return st
}

func (h *harness) load(t *testing.T, notes ...score.EditorNote) {
	t.Helper()
	if err := h.s.Load(doc(t, notes...)); err != nil {
		t.Fatalf("Load: %v", err)
	}
}

func TestStateTransitions(t *testing.T) {
	h := newHarness(t)
	s := h.s

	if s.State() != StateEmpty {
		t.Fatalf("state = %v", s.State())
	}
	if err := s.Play(); !errors.Is(err, ErrNoSession) {
		t.Fatalf("Play on empty: %v", err)
	}

	h.load(t, note("a", 60, 0, 480))
	if s.State() != StateLoaded || s.CurrentTick() != 0 {
		t.Fatalf("after load: %v at %v", s.State(), s.CurrentTick())
	}
	if err := s.Pause(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("Pause from loaded: %v", err)
	}
	if err := s.Stop(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("Stop from loaded: %v", err)
	}

	if err := s.Play(); err != nil || s.State() != StatePlaying || !h.tr.started {
		t.Fatalf("Play: %v, %v", err, s.State())
	}
	if err := s.Play(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("Play while playing: %v", err)
	}

	h.tr.advance(0.5)
	s.Loop().Step()
	if err := s.Pause(); err != nil || s.State() != StatePaused {
		t.Fatalf("Pause: %v, %v", err, s.State())
	}
	if s.CurrentTick() != 480 {
		t.Fatalf("paused at %v, want 480", s.CurrentTick())
	}

	if err := s.Seek(960); err != nil || s.State() != StatePaused {
		t.Fatalf("Seek changed state: %v, %v", err, s.State())
	}

	if err := s.Stop(); err != nil || s.State() != StatePaused || s.CurrentTick() != 0 {
		t.Fatalf("Stop: %v, %v at %v", err, s.State(), s.CurrentTick())
	}

	s.Close()
	if s.State() != StateEmpty || s.Loop().Len() != 0 {
		t.Fatalf("after close: %v, %d callbacks", s.State(), s.Loop().Len())
	}
	if err := s.Seek(10); !errors.Is(err, ErrNoSession) {
		t.Fatalf("Seek on empty: %v", err)
	}
}

func TestLoadReplacesFrameCallback(t *testing.T) {
	h := newHarness(t)
	h.load(t, note("a", 60, 0, 480))
	first := h.s.handle
	h.tr.started = true

	h.load(t, note("b", 62, 0, 480))
	if first.Active() {
		t.Fatal("old frame callback still registered")
	}
	if h.s.Loop().Len() != 1 {
		t.Fatalf("callbacks = %d, want 1", h.s.Loop().Len())
	}
	if _, ok := h.s.Note("a"); ok {
		t.Fatal("old document still visible")
	}
	if h.s.State() != StateLoaded || h.s.CurrentTick() != 0 {
		t.Fatalf("state = %v at %v", h.s.State(), h.s.CurrentTick())
	}
}

func TestPlaybackTriggersInOrder(t *testing.T) {
	h := newHarness(t)
	h.load(t, note("late", 64, 960, 120), note("early", 60, 0, 120))
	h.s.Play()

	h.s.Loop().Step()
	if got := h.sound.ticks(); len(got) != 1 || got[0] != 0 {
		t.Fatalf("first frame fired %v", got)
	}
	h.tr.advance(0.5)
	h.s.Loop().Step()
	if len(h.sound.events) != 1 {
		t.Fatalf("fired early: %v", h.sound.ticks())
	}
	h.tr.advance(0.5)
	h.s.Loop().Step()
	if got := h.sound.ticks(); len(got) != 2 || got[1] != 960 {
		t.Fatalf("fired %v, want [0 960]", got)
	}
}

func TestPausedTickIsFrozen(t *testing.T) {
	h := newHarness(t)
	h.load(t, note("a", 60, 0, 480))
	h.s.Play()
	h.tr.advance(0.25)
	h.s.Loop().Step()
	h.s.Pause()

	h.tr.seconds += 3 // a transport that keeps reporting time while paused
	h.s.Loop().Step()
	if h.s.CurrentTick() != 240 {
		t.Fatalf("tick moved while paused: %v", h.s.CurrentTick())
	}
}

func TestSeekIsImmediate(t *testing.T) {
	h := newHarness(t)
	h.load(t, note("a", 60, 0, 480))
	h.s.Seek(960)
	if h.s.CurrentTick() != 960 {
		t.Fatalf("tick = %v before any frame", h.s.CurrentTick())
	}
	if h.tr.seconds != 1 {
		t.Fatalf("transport at %v s, want 1", h.tr.seconds)
	}
	h.s.Loop().Step()
	if h.s.LastFrame().Tick != 960 {
		t.Fatalf("frame drew playhead at %v", h.s.LastFrame().Tick)
	}

	// clamped to the content
	h.s.Seek(1e9)
	if h.s.CurrentTick() != float64(h.s.TotalTicks()) {
		t.Fatalf("seek not clamped: %v", h.s.CurrentTick())
	}
}

func TestPlaybackStopsAtEnd(t *testing.T) {
	h := newHarness(t)
	h.load(t, note("a", 60, 0, 480)) // content is the four bar floor: 8s
	h.s.Play()
	h.tr.advance(9)
	h.s.Loop().Step()
	if h.s.State() != StatePaused || h.s.CurrentTick() != 0 {
		t.Fatalf("state = %v at %v, want paused at 0", h.s.State(), h.s.CurrentTick())
	}
	if h.sound.flushes == 0 {
		t.Fatal("sound not silenced at end")
	}
}

func TestEditDuringPlayback(t *testing.T) {
	h := newHarness(t)
	h.load(t, note("a", 60, 0, 120))
	h.s.Play()
	h.s.Loop().Step()
	h.tr.advance(0.5) // tick 480
	h.s.Loop().Step()

	if _, err := h.s.AddNote(note("ahead", 62, 720, 120)); err != nil {
		t.Fatal(err)
	}
	if _, err := h.s.AddNote(note("behind", 64, 240, 120)); err != nil {
		t.Fatal(err)
	}
	h.s.Loop().Step()
	h.tr.advance(0.25) // tick 720
	h.s.Loop().Step()

	got := h.sound.ticks()
	if len(got) != 2 || got[0] != 0 || got[1] != 720 {
		t.Fatalf("fired %v, want [0 720]", got)
	}
}

func TestDuplicateDrumOnsetsTriggerOnce(t *testing.T) {
	h := newHarness(t)
	h.load(t, drum("k1", 36, 0), drum("k2", 36, 10), drum("k3", 35, 10), drum("k4", 36, 20))
	h.s.Play()
	h.tr.advance(0.1)
	h.s.Loop().Step()

	got := h.sound.ticks()
	if len(got) != 3 || got[0] != 0 || got[1] != 10 || got[2] != 20 {
		t.Fatalf("fired %v, want [0 10 20]", got)
	}
}

func TestFramePanicIsContained(t *testing.T) {
	h := newHarness(t)
	h.s.Loop().Register(func() { panic("boom") })
	h.load(t, note("a", 60, 0, 480))

	h.s.Loop().Step()
	h.s.Loop().Step()
	if h.s.FramesDrawn() != 2 {
		t.Fatalf("frames drawn = %d, want 2", h.s.FramesDrawn())
	}
	if _, panics := h.s.Loop().Stats(); panics != 2 {
		t.Fatalf("panics = %d, want 2", panics)
	}
}

func TestUnsizedFrameIsSkipped(t *testing.T) {
	s := New(Options{Transport: &fakeTransport{}})
	if err := s.Load(doc(t, note("a", 60, 0, 480))); err != nil {
		t.Fatal(err)
	}
	s.Loop().Step()
	if s.FramesDrawn() != 0 {
		t.Fatal("drew before layout")
	}
	s.Resize(400, 300, 2)
	s.Loop().Step()
	if s.FramesDrawn() != 1 {
		t.Fatal("did not draw after layout")
	}
}

func TestFrameCullsToViewport(t *testing.T) {
	h := newHarness(t)
	h.load(t, note("in", 60, 0, 100), note("out", 60, 5000, 100))
	h.s.FocusPitch(60)
	h.s.Loop().Step()

	f := h.s.LastFrame()
	if len(f.Notes) != 1 || f.Notes[0].ID != "in" {
		t.Fatalf("frame notes = %+v", f.Notes)
	}
	if len(h.grid.Fills(render.PaintMelodicNote)) != 1 {
		t.Fatal("expected exactly one note drawn")
	}
}

func TestMutationsRecomputeTotals(t *testing.T) {
	h := newHarness(t)
	h.load(t, note("a", 60, 0, 480))
	floor := h.s.TotalTicks()
	if floor != 7680 {
		t.Fatalf("total = %d, want 7680", floor)
	}
	h.s.AddNote(note("long", 60, 9000, 1000))
	if h.s.TotalTicks() != 10000 || h.s.View().ContentTicks != 10000 {
		t.Fatalf("total = %d, view content = %d", h.s.TotalTicks(), h.s.View().ContentTicks)
	}
	h.s.RemoveNote("long")
	if h.s.TotalTicks() != floor {
		t.Fatalf("total = %d after remove", h.s.TotalTicks())
	}

	bad := 200
	if _, err := h.s.UpdateNote("a", score.Patch{Pitch: &bad}); !errors.Is(err, score.ErrInvariantViolation) {
		t.Fatalf("err = %v", err)
	}
	if n, _ := h.s.Note("a"); n.Pitch != 60 {
		t.Fatalf("rejected update changed note: %+v", n)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	h := newHarness(t)
	h.load(t, note("a", 60, 0, 480), note("b", 67, 240, 240), drum("k", 36, 0), drum("h", 42, 120))
	h.s.SetTempo(100)

	var buf bytes.Buffer
	if err := h.s.Export(&buf); err != nil {
		t.Fatalf("Export: %v", err)
	}
	f, err := midi.Decode(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(f.Tracks) != 2 || f.Tracks[DrumTrack].Channel != midi.PercussionChannel {
		t.Fatalf("exported tracks = %+v", f.Tracks)
	}

	other := newHarness(t)
	if err := other.s.Import(&buf); err != nil {
		t.Fatalf("Import: %v", err)
	}
	if other.s.BPM() < 99.99 || other.s.BPM() > 100.01 {
		t.Fatalf("bpm = %v", other.s.BPM())
	}
	got := other.s.Notes()
	want := h.s.Notes()
	if len(got) != len(want) {
		t.Fatalf("notes = %d, want %d", len(got), len(want))
	}
	for i := range want {
		g, w := got[i], want[i]
		if g.Pitch != w.Pitch || g.StartTick != w.StartTick || g.DurationTicks != w.DurationTicks || g.IsDrum != w.IsDrum {
			t.Errorf("note %d = %+v, want %+v", i, g, w)
		}
	}
}

func TestExportClipsNestedSamePitch(t *testing.T) {
	h := newHarness(t)
	h.load(t, note("long", 60, 0, 960), note("short", 60, 240, 120))

	pass := func(from *Session) *harness {
		var buf bytes.Buffer
		if err := from.Export(&buf); err != nil {
			t.Fatalf("Export: %v", err)
		}
		to := newHarness(t)
		if err := to.s.Import(&buf); err != nil {
			t.Fatalf("Import: %v", err)
		}
		return to
	}
	want := map[int64]int64{0: 240, 240: 120}
	once := pass(h.s)
	twice := pass(once.s)
	for _, hh := range []*harness{once, twice} {
		got := hh.s.Notes()
		if len(got) != 2 {
			t.Fatalf("notes = %d", len(got))
		}
		for _, n := range got {
			if n.DurationTicks != want[n.StartTick] {
				t.Fatalf("note at %d has duration %d, want %d", n.StartTick, n.DurationTicks, want[n.StartTick])
			}
		}
	}
}

func TestFailedImportKeepsSession(t *testing.T) {
	h := newHarness(t)
	h.load(t, note("a", 60, 0, 480))
	err := h.s.Import(bytes.NewReader([]byte("MThd garbage")))
	if !errors.Is(err, midi.ErrParse) {
		t.Fatalf("err = %v, want ErrParse", err)
	}
	if h.s.State() != StateLoaded {
		t.Fatalf("state = %v", h.s.State())
	}
	if _, ok := h.s.Note("a"); !ok {
		t.Fatal("previous document lost")
	}
}

func waitFor(t *testing.T, loop *FrameLoop, done *bool) {
	t.Helper()
	for i := 0; i < 400 && !*done; i++ {
		loop.Step()
		time.Sleep(5 * time.Millisecond)
	}
	if !*done {
		t.Fatal("async operation did not finish")
	}
}

func TestAsyncExportThenImport(t *testing.T) {
	h := newHarness(t)
	h.load(t, note("a", 60, 0, 480), drum("k", 36, 0))
	path := filepath.Join(t.TempDir(), "out.mid")

	var exported bool
	var exportErr error
	h.s.ExportAsync(context.Background(), path, func(err error) { exported, exportErr = true, err })
	waitFor(t, h.s.Loop(), &exported)
	if exportErr != nil {
		t.Fatalf("export: %v", exportErr)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatal("temporary file left behind")
	}

	other := newHarness(t)
	var imported bool
	var importErr error
	other.s.ImportAsync(context.Background(), path, func(err error) { imported, importErr = true, err })
	if other.s.State() != StateEmpty {
		t.Fatal("installed before the loop ran")
	}
	waitFor(t, other.s.Loop(), &imported)
	if importErr != nil {
		t.Fatalf("import: %v", importErr)
	}
	if other.s.State() != StateLoaded || len(other.s.Notes()) != 2 {
		t.Fatalf("state = %v, notes = %d", other.s.State(), len(other.s.Notes()))
	}
}

func TestAsyncImportFailure(t *testing.T) {
	h := newHarness(t)
	var done bool
	var importErr error
	h.s.ImportAsync(context.Background(), filepath.Join(t.TempDir(), "missing.mid"), func(err error) { done, importErr = true, err })
	waitFor(t, h.s.Loop(), &done)
	if importErr == nil || h.s.State() != StateEmpty {
		t.Fatalf("err = %v, state = %v", importErr, h.s.State())
	}
}

func TestNewNoteAtUsesPreset(t *testing.T) {
	h := newHarness(t)
	h.load(t)

	n, err := h.s.NewNoteAt(250, 60, false)
	if err != nil {
		t.Fatal(err)
	}
	if n.StartTick != 240 || n.DurationTicks != 240 || n.Velocity != 0.8 || n.IsDrum {
		t.Fatalf("melodic note = %+v", n)
	}

	k, err := h.s.NewNoteAt(485, 36, true)
	if err != nil {
		t.Fatal(err)
	}
	if k.StartTick != 480 || !k.IsDrum || k.Velocity != 1 || k.TrackIndex != DrumTrack {
		t.Fatalf("drum note = %+v", k)
	}

	// pitches outside the preset range are pulled in
	lo, _ := h.s.NewNoteAt(0, 5, false)
	if lo.Pitch != h.s.Melodic().Low {
		t.Fatalf("pitch = %d, want %d", lo.Pitch, h.s.Melodic().Low)
	}
}

func TestMoveAndResize(t *testing.T) {
	h := newHarness(t)
	h.load(t, note("a", 60, 240, 240))

	n, err := h.s.MoveNote("a", 2, -1)
	if err != nil || n.StartTick != 480 || n.Pitch != 59 {
		t.Fatalf("moved = %+v, %v", n, err)
	}
	n, _ = h.s.MoveNote("a", -10, 0)
	if n.StartTick != 0 {
		t.Fatalf("start = %d, want clamp to 0", n.StartTick)
	}
	n, _ = h.s.ResizeNote("a", -5)
	if n.DurationTicks != 1 {
		t.Fatalf("duration = %d, want 1", n.DurationTicks)
	}
	n, _ = h.s.ToggleDrum("a")
	if !n.IsDrum || n.TrackIndex != DrumTrack {
		t.Fatalf("toggle = %+v", n)
	}
	if _, err := h.s.MoveNote("zzz", 1, 0); !errors.Is(err, score.ErrNoteNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestNavigation(t *testing.T) {
	h := newHarness(t)
	h.load(t, note("a", 60, 0, 480), note("b", 64, 0, 480), note("c", 62, 480, 480), note("d", 72, 960, 120))

	if n, _ := h.s.NextByTime("", 1); n.ID != "a" {
		t.Fatalf("first = %s", n.ID)
	}
	if n, _ := h.s.NextByTime("b", 1); n.ID != "c" {
		t.Fatalf("after b = %s", n.ID)
	}
	if n, _ := h.s.NextByTime("d", 1); n.ID != "d" {
		t.Fatalf("past the end = %s", n.ID)
	}
	if n, ok := h.s.NextByPitch("a", 1); !ok || n.ID != "b" {
		t.Fatalf("above a = %s", n.ID)
	}
	if _, ok := h.s.NextByPitch("a", -1); ok {
		t.Fatal("found a note below the lowest one")
	}
}

func TestRecordFromKeyboard(t *testing.T) {
	h := newHarness(t)
	h.load(t)
	h.s.SetRecording(true)

	// not playing: ignored
	if _, added, _ := h.s.Record(midi.Event{Type: midi.NoteOn, Note: 60, Velocity: 100}); added {
		t.Fatal("recorded while stopped")
	}

	h.s.Play()
	h.tr.advance(0.13) // tick 124.8
	h.s.Loop().Step()
	h.s.Record(midi.Event{Type: midi.NoteOn, Note: 60, Velocity: 100})
	h.tr.advance(0.37) // tick 480
	h.s.Loop().Step()
	n, added, err := h.s.Record(midi.Event{Type: midi.NoteOff, Note: 60})
	if err != nil || !added {
		t.Fatalf("added = %v, err = %v", added, err)
	}
	if n.StartTick != 120 || n.DurationTicks != 360 || n.IsDrum {
		t.Fatalf("recorded = %+v", n)
	}

	// a tap shorter than the grid still gets one step
	h.s.Record(midi.Event{Type: midi.NoteOn, Channel: midi.PercussionChannel, Note: 36, Velocity: 127})
	n, added, _ = h.s.Record(midi.Event{Type: midi.NoteOn, Channel: midi.PercussionChannel, Note: 36})
	if !added || !n.IsDrum || n.DurationTicks != 120 {
		t.Fatalf("drum tap = %+v", n)
	}
}

func TestDragLocksScroll(t *testing.T) {
	h := newHarness(t)
	h.load(t, note("a", 60, 0, 480))
	start := h.s.View()

	if !h.s.BeginDrag(viewport.ButtonMiddle, viewport.Modifiers{}, 100, 100) {
		t.Fatal("middle drag not accepted")
	}
	h.s.Wheel(3, viewport.Modifiers{}, 0)
	h.s.SetScrollbar(AxisY, 1)
	if h.s.View() != start {
		t.Fatal("wheel or scrollbar moved the view during a drag")
	}
	h.s.Zoom(2, 0)
	h.s.FocusTick(4800)
	h.s.FocusPitch(20)
	if h.s.View() != start {
		t.Fatal("zoom or focus moved the view during a drag")
	}
	h.s.DragTo(100, 40)
	if h.s.View().ScrollY != start.ScrollY+60 {
		t.Fatalf("drag scrollY = %v", h.s.View().ScrollY)
	}
	h.s.EndDrag()

	h.s.Wheel(1, viewport.Modifiers{}, 0)
	if h.s.View().ScrollY == start.ScrollY+60 {
		t.Fatal("wheel ignored after drag ended")
	}
}

func TestToggleDisplayModeResizesGrid(t *testing.T) {
	h := newHarness(t)
	w := h.s.View().Width
	if h.s.ToggleDisplayMode() != render.ModeCompact {
		t.Fatal("expected compact")
	}
	if h.s.View().Width <= w {
		t.Fatalf("grid width %v not larger than %v", h.s.View().Width, w)
	}
	h.s.ToggleDisplayMode()
	if h.s.View().Width != w {
		t.Fatalf("width = %v after toggling back", h.s.View().Width)
	}
}

func TestNoteAt(t *testing.T) {
	h := newHarness(t)
	h.load(t, note("a", 60, 480, 480))
	h.s.FocusPitch(60)
	v := h.s.View()
	x := v.TickToPixelX(600)
	y := v.PitchToPixelY(60) + 3
	if n, ok := h.s.NoteAt(x, y); !ok || n.ID != "a" {
		t.Fatalf("NoteAt = %+v, %v", n, ok)
	}
	if _, ok := h.s.NoteAt(v.TickToPixelX(100), y); ok {
		t.Fatal("hit empty space")
	}
}

func TestFollowPlayheadPagesWhilePlaying(t *testing.T) {
	h := newHarness(t)
	h.load(t, note("a", 60, 0, 480))
	s := h.s

	if err := s.Play(); err != nil {
		t.Fatal(err)
	}
	h.tr.advance(5.5) // 5280 ticks, past the 4000 visible
	s.Loop().Step()
	v := s.View()
	if x := v.TickToPixelX(s.CurrentTick()); x < v.Width {
		t.Fatalf("playhead at x=%v should be off screen before following", x)
	}

	s.FollowPlayhead()
	v = s.View()
	if x := v.TickToPixelX(s.CurrentTick()); x < 0 || x >= v.Width {
		t.Fatalf("playhead at x=%v after follow", x)
	}

	// paused playback leaves the view alone
	if err := s.Pause(); err != nil {
		t.Fatal(err)
	}
	s.FocusTick(0)
	before := s.View().ScrollX
	s.FollowPlayhead()
	if s.View().ScrollX != before {
		t.Fatal("follow moved the view while paused")
	}
}
