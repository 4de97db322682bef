// Package session owns one editing session: the document, the viewport, the
// transport link and the per-frame redraw.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"

	"go-pianoroll/debug"
	"go-pianoroll/midi"
	"go-pianoroll/render"
	"go-pianoroll/score"
	"go-pianoroll/style"
	"go-pianoroll/transport"
	"go-pianoroll/viewport"
)

var (
	// ErrInvalidTransition is returned for a playback command the current state doesn't accept
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrNoSession is returned when an operation needs a loaded document
	ErrNoSession = errors.New("no document loaded")
)

// State of the editing session
type State int

const (
	StateEmpty State = iota
	StateLoaded
	StatePlaying
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateLoaded:
		return "loaded"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Flusher is implemented by sounds that can silence pending output
type Flusher interface {
	Flush()
}

// Options configures a session. Zero values fall back to defaults.
type Options struct {
	Transport transport.Transport
	Sound     transport.Sound

	// Backends for the three surfaces; nil draws nowhere
	Gutter, Ruler, Grid render.Backend

	Loop *FrameLoop

	Melodic *style.Melodic
	Drums   *style.Drums

	PixelsPerTick float64
	MinZoom       float64
	MaxZoom       float64
	WheelStep     float64
	Lookahead     int64 // ticks
	Mode          render.Mode
}

// Session is the editing state machine. All methods must be called from the
// thread that steps the frame loop.
type Session struct {
	opts  Options
	state State

	doc    *score.EditorState
	sync   *transport.Sync
	player *transport.Player
	sound  transport.Sound

	view   viewport.Viewport
	input  *viewport.Input
	engine *render.Engine
	scale  float64

	loop   *FrameLoop
	handle *Handle

	scheduleDirty bool
	recorder      recorder

	lastFrame render.Frame
	drawn     uint64
}

// New creates a session in the Empty state
func New(opts Options) *Session {
	if opts.Transport == nil {
		opts.Transport = transport.NewClock()
	}
	if opts.Loop == nil {
		opts.Loop = NewFrameLoop()
	}
	if opts.Melodic == nil || opts.Drums == nil {
		lib := style.Builtin()
		if opts.Melodic == nil {
			opts.Melodic, _ = lib.Melodic("straight")
		}
		if opts.Drums == nil {
			opts.Drums, _ = lib.Drums("gm-16")
		}
	}
	if !(opts.PixelsPerTick > 0) {
		opts.PixelsPerTick = 0.1
	}

	v := viewport.New(opts.PixelsPerTick)
	if opts.MinZoom > 0 {
		v.MinPixelsPerTick = opts.MinZoom
	}
	if opts.MaxZoom > 0 {
		v.MaxPixelsPerTick = opts.MaxZoom
	}
	in := viewport.NewInput()
	if opts.WheelStep > 0 {
		in.WheelStep = opts.WheelStep
	}

	s := &Session{
		opts:   opts,
		sound:  opts.Sound,
		view:   v,
		input:  in,
		engine: render.NewEngine(backendOr(opts.Gutter), backendOr(opts.Ruler), backendOr(opts.Grid)),
		scale:  1,
		loop:   opts.Loop,
	}
	s.engine.SetMode(opts.Mode)
	s.recorder.reset()
	return s
}

func backendOr(b render.Backend) render.Backend {
	if b == nil {
		return &render.Recorder{}
	}
	return b
}

// State returns the current state
func (s *Session) State() State { return s.state }

// Loop returns the frame loop the session draws from
func (s *Session) Loop() *FrameLoop { return s.loop }

// Engine exposes the render engine (layout, stats)
func (s *Session) Engine() *render.Engine { return s.engine }

// View returns a copy of the viewport
func (s *Session) View() viewport.Viewport { return s.view }

// LastFrame returns the snapshot drawn by the most recent frame
func (s *Session) LastFrame() render.Frame { return s.lastFrame }

// FramesDrawn counts frames that reached the surfaces
func (s *Session) FramesDrawn() uint64 { return s.drawn }

// Melodic returns the active melodic preset
func (s *Session) Melodic() *style.Melodic { return s.opts.Melodic }

// Drums returns the active drum preset
func (s *Session) Drums() *style.Drums { return s.opts.Drums }

// SetPresets swaps the editing presets
func (s *Session) SetPresets(m *style.Melodic, d *style.Drums) {
	if m != nil {
		s.opts.Melodic = m
	}
	if d != nil {
		s.opts.Drums = d
	}
}

// Loaded reports whether a document is installed
func (s *Session) Loaded() bool { return s.doc != nil }

// PPQ returns the document resolution, 0 when empty
func (s *Session) PPQ() int {
	if s.doc == nil {
		return 0
	}
	return s.doc.PPQ
}

// BPM returns the document tempo, 0 when empty
func (s *Session) BPM() float64 {
	if s.doc == nil {
		return 0
	}
	return s.doc.BPM
}

// TotalTicks returns the content length, 0 when empty
func (s *Session) TotalTicks() int64 {
	if s.doc == nil {
		return 0
	}
	return s.doc.TotalTicks()
}

// DurationSeconds returns the time of the last note end
func (s *Session) DurationSeconds() float64 {
	if s.doc == nil {
		return 0
	}
	return s.doc.DurationSeconds()
}

// CurrentTick returns the playhead from the last poll
func (s *Session) CurrentTick() float64 {
	if s.sync == nil {
		return 0
	}
	return s.sync.CurrentTick()
}

// Notes returns a copy of every note
func (s *Session) Notes() []score.EditorNote {
	if s.doc == nil {
		return nil
	}
	return s.doc.Notes.Notes()
}

// Note looks up one note
func (s *Session) Note(id string) (score.EditorNote, bool) {
	if s.doc == nil {
		return score.EditorNote{}, false
	}
	return s.doc.Notes.Get(id)
}

// Load installs a new document. Any previous document is discarded whole,
// its frame callback canceled before the new one is registered.
func (s *Session) Load(doc *score.EditorState) error {
	if doc == nil {
		return fmt.Errorf("%w: nil document", ErrNoSession)
	}
	s.teardown()

	s.doc = doc
	tempo := transport.Tempo{BPM: doc.BPM, PPQ: doc.PPQ}
	s.sync = transport.NewSync(s.opts.Transport, tempo)
	s.sync.Seek(0)
	s.player = transport.NewPlayer(s.sound, s.lookahead())
	s.scheduleDirty = true
	s.recorder.reset()

	s.view = s.view.SetContent(doc.TotalTicks())
	s.view = s.view.FocusOnTick(0, s.view.Width)
	s.state = StateLoaded
	s.handle = s.loop.Register(s.frame)

	debug.Log("session", "loaded: %d notes, ppq %d, bpm %.2f, %d ticks", doc.Notes.Len(), doc.PPQ, doc.BPM, doc.TotalTicks())
	return nil
}

// Import decodes a Standard MIDI File and loads it. On error the current
// session is left untouched.
func (s *Session) Import(r io.Reader) error {
	doc, err := Decode(r)
	if err != nil {
		debug.Log("io", "import failed: %v", err)
		return err
	}
	return s.Load(doc)
}

// ImportAsync decodes path in the background and installs the result on the
// loop thread. done, if set, runs on the loop thread with the outcome.
func (s *Session) ImportAsync(ctx context.Context, path string, done func(error)) {
	go func() {
		doc, err := DecodeFile(path)
		if err == nil {
			err = ctx.Err()
		}
		s.loop.Post(func() {
			if err == nil {
				err = s.Load(doc)
			} else {
				debug.Log("io", "import %s failed: %v", path, err)
			}
			if done != nil {
				done(err)
			}
		})
	}()
}

// Export writes the document as a two-track Standard MIDI File
func (s *Session) Export(w io.Writer) error {
	if s.doc == nil {
		return ErrNoSession
	}
	return midi.Encode(w, ToFile(s.doc))
}

// ExportAsync snapshots the document now and writes it to path in the
// background. done, if set, runs on the loop thread.
func (s *Session) ExportAsync(ctx context.Context, path string, done func(error)) {
	if s.doc == nil {
		if done != nil {
			done(ErrNoSession)
		}
		return
	}
	f := ToFile(s.doc)
	go func() {
		err := ctx.Err()
		if err == nil {
			err = writeFile(path, f)
		}
		if err != nil {
			debug.Log("io", "export %s failed: %v", path, err)
		}
		s.loop.Post(func() {
			if done != nil {
				done(err)
			}
		})
	}()
}

// Close discards the document and returns to Empty
func (s *Session) Close() {
	s.teardown()
	s.doc = nil
	s.sync = nil
	s.player = nil
	s.lastFrame = render.Frame{}
	s.state = StateEmpty
}

func (s *Session) teardown() {
	s.handle.Cancel()
	s.handle = nil
	if s.state == StatePlaying || s.state == StatePaused {
		s.opts.Transport.Stop()
	}
	s.silence()
}

// Play starts the transport from the current tick
func (s *Session) Play() error {
	switch s.state {
	case StateEmpty:
		return ErrNoSession
	case StatePlaying:
		return fmt.Errorf("%w: already playing", ErrInvalidTransition)
	}
	tick := s.sync.CurrentTick()
	if tick >= float64(s.doc.TotalTicks()) {
		tick = 0
	}
	s.sync.Seek(tick)
	s.rebuildSchedule()
	s.player.Rewind(tick)
	s.opts.Transport.Start()
	s.state = StatePlaying
	return nil
}

// Pause freezes the transport at the current tick
func (s *Session) Pause() error {
	switch s.state {
	case StateEmpty:
		return ErrNoSession
	case StatePlaying:
	default:
		return fmt.Errorf("%w: pause from %s", ErrInvalidTransition, s.state)
	}
	s.opts.Transport.Pause()
	s.silence()
	s.state = StatePaused
	return nil
}

// TogglePlay plays from Loaded/Paused and pauses while Playing
func (s *Session) TogglePlay() error {
	if s.state == StatePlaying {
		return s.Pause()
	}
	return s.Play()
}

// Stop halts the transport and rewinds to tick 0
func (s *Session) Stop() error {
	switch s.state {
	case StateEmpty:
		return ErrNoSession
	case StatePlaying, StatePaused:
	default:
		return fmt.Errorf("%w: stop from %s", ErrInvalidTransition, s.state)
	}
	s.opts.Transport.Stop()
	s.sync.Seek(0)
	s.player.Rewind(0)
	s.silence()
	s.recorder.reset()
	s.state = StatePaused
	return nil
}

// Seek jumps the playhead. The state does not change.
func (s *Session) Seek(tick float64) error {
	if s.doc == nil {
		return ErrNoSession
	}
	tick = math.Min(math.Max(tick, 0), float64(s.doc.TotalTicks()))
	s.sync.Seek(tick)
	s.player.Rewind(tick)
	s.silence()
	return nil
}

// SetTempo changes the document tempo. Conversions are recomputed on the
// next poll and the schedule is rebuilt.
func (s *Session) SetTempo(bpm float64) error {
	if s.doc == nil {
		return ErrNoSession
	}
	tick := s.sync.CurrentTick()
	if err := s.doc.SetTempo(bpm); err != nil {
		return err
	}
	tempo := transport.Tempo{BPM: bpm, PPQ: s.doc.PPQ}
	s.sync.SetTempo(tempo)
	// keep the playhead on the same tick under the new tempo
	s.sync.Seek(tick)
	s.scheduleDirty = true
	return nil
}

// AddNote inserts a note into the document
func (s *Session) AddNote(n score.EditorNote) (score.EditorNote, error) {
	if s.doc == nil {
		return score.EditorNote{}, ErrNoSession
	}
	added, err := s.doc.AddNote(n)
	if err != nil {
		return score.EditorNote{}, err
	}
	s.mutated()
	return added, nil
}

// UpdateNote patches a note in the document
func (s *Session) UpdateNote(id string, p score.Patch) (score.EditorNote, error) {
	if s.doc == nil {
		return score.EditorNote{}, ErrNoSession
	}
	updated, err := s.doc.UpdateNote(id, p)
	if err != nil {
		return score.EditorNote{}, err
	}
	s.mutated()
	return updated, nil
}

// RemoveNote deletes a note from the document
func (s *Session) RemoveNote(id string) (score.EditorNote, error) {
	if s.doc == nil {
		return score.EditorNote{}, ErrNoSession
	}
	removed, err := s.doc.RemoveNote(id)
	if err != nil {
		return score.EditorNote{}, err
	}
	s.mutated()
	return removed, nil
}

func (s *Session) mutated() {
	s.view = s.view.SetContent(s.doc.TotalTicks())
	s.scheduleDirty = true
}

// Resize lays the surfaces out in a container of the given logical size
func (s *Session) Resize(width, height, scale float64) {
	if !(scale > 0) {
		scale = 1
	}
	s.scale = scale
	gw, gh := s.engine.Resize(width, height, scale)
	s.view = s.view.Resize(gw, gh)
}

// Zoom scales the time axis around anchorX (grid px). Ignored during a drag.
func (s *Session) Zoom(factor, anchorX float64) {
	if s.input.Dragging() {
		return
	}
	s.view = s.view.ZoomBy(factor, anchorX)
}

// Pan scrolls by a pixel delta
func (s *Session) Pan(dx, dy float64) {
	if s.input.Dragging() {
		return
	}
	s.view = s.view.PanBy(dx, dy)
}

// Wheel applies wheel notches at grid x; ctrl zooms around x. Ignored
// during a drag.
func (s *Session) Wheel(notches float64, mods viewport.Modifiers, x float64) {
	if s.input.Dragging() {
		return
	}
	if mods.Ctrl {
		s.Zoom(math.Pow(1.1, -notches), x)
		return
	}
	s.view = s.input.Wheel(s.view, notches, mods)
}

// BeginDrag starts a pan drag if the gesture is a pan gesture
func (s *Session) BeginDrag(b viewport.Button, mods viewport.Modifiers, x, y float64) bool {
	return s.input.BeginDrag(b, mods, x, y)
}

// DragTo follows the pointer during a pan drag
func (s *Session) DragTo(x, y float64) {
	s.view = s.input.DragTo(s.view, x, y)
}

// EndDrag commits the drag
func (s *Session) EndDrag() {
	s.input.EndDrag()
}

// Dragging reports whether a pan drag is active
func (s *Session) Dragging() bool {
	return s.input.Dragging()
}

// Axis selects a scrollbar
type Axis int

const (
	AxisX Axis = iota
	AxisY
)

// SetScrollbar positions one axis from a [0,1] scrollbar value; ignored
// during a drag
func (s *Session) SetScrollbar(axis Axis, fraction float64) {
	if axis == AxisX {
		s.view = s.input.ScrollbarX(s.view, fraction)
	} else {
		s.view = s.input.ScrollbarY(s.view, fraction)
	}
}

// FocusTick scrolls tick to 10% of the grid width
func (s *Session) FocusTick(tick float64) {
	if s.input.Dragging() {
		return
	}
	s.view = s.view.FocusOnTick(tick, s.view.Width)
}

// FocusPitch centres the pitch row vertically
func (s *Session) FocusPitch(pitch int) {
	if s.input.Dragging() {
		return
	}
	s.view = s.view.FocusOnPitch(float64(pitch), s.view.Height)
}

// FollowPlayhead pages the view when the playhead leaves it during playback
func (s *Session) FollowPlayhead() {
	if s.state != StatePlaying || s.input.Dragging() {
		return
	}
	tick := s.CurrentTick()
	if x := s.view.TickToPixelX(tick); x < 0 || x >= s.view.Width {
		s.FocusTick(tick)
	}
}

// ToggleDisplayMode flips between full and compact layout
func (s *Session) ToggleDisplayMode() render.Mode {
	next := render.ModeCompact
	if s.engine.Mode() == render.ModeCompact {
		next = render.ModeFull
	}
	gw, gh := s.engine.SetMode(next)
	s.view = s.view.Resize(gw, gh)
	return next
}

// HitTest maps a grid point to a tick and pitch
func (s *Session) HitTest(x, y float64) (tick float64, pitch int) {
	return math.Max(0, s.view.PixelXToTick(x)), s.view.PitchAt(y)
}

// NoteAt returns the note under a grid point, preferring the latest start
func (s *Session) NoteAt(x, y float64) (score.EditorNote, bool) {
	if s.doc == nil {
		return score.EditorNote{}, false
	}
	tick, pitch := s.HitTest(x, y)
	t := int64(tick)
	hits := s.doc.Notes.QueryRange(t, t+1, pitch, pitch)
	if len(hits) == 0 {
		return score.EditorNote{}, false
	}
	return hits[len(hits)-1], true
}

// Frame runs one frame directly; normally the frame loop calls it
func (s *Session) Frame() {
	s.frame()
}

// frame polls the transport, feeds the player and redraws. Nothing in here
// blocks.
func (s *Session) frame() {
	if s.doc == nil {
		return
	}
	tick := s.sync.Poll()

	if s.state == StatePlaying {
		if tick >= float64(s.doc.TotalTicks()) {
			debug.Log("session", "end of content at tick %.0f", tick)
			s.Stop()
			tick = s.sync.CurrentTick()
		} else {
			if s.scheduleDirty {
				s.rebuildSchedule()
			}
			s.player.Advance(tick)
		}
	}

	f := render.Capture(s.doc.Notes, s.view, s.doc.PPQ, s.doc.TotalTicks(), tick, s.state == StatePlaying)
	s.lastFrame = f
	if s.engine.Draw(f) {
		s.drawn++
	} else {
		debug.LogEvery(60, "frame", "skipped: viewport not laid out")
	}
}

func (s *Session) rebuildSchedule() {
	tempo := transport.Tempo{BPM: s.doc.BPM, PPQ: s.doc.PPQ}
	s.player.Load(transport.BuildSchedule(s.doc.Notes.Notes(), tempo))
	s.scheduleDirty = false
}

func (s *Session) silence() {
	if f, ok := s.sound.(Flusher); ok {
		f.Flush()
	}
}

func (s *Session) lookahead() int64 {
	return max(s.opts.Lookahead, 0)
}
