package render

import (
	"go-pianoroll/score"
	"go-pianoroll/viewport"
)

// NoteSource is the read side of the note model used for culling
type NoteSource interface {
	QueryRange(tickStart, tickEnd int64, pitchLow, pitchHigh int) []score.EditorNote
}

// Frame is one consistent snapshot handed read-only to all three surfaces
type Frame struct {
	View       viewport.Viewport
	Notes      []score.EditorNote // already culled to the visible window
	PPQ        int
	TotalTicks int64
	Tick       float64 // playhead
	Playing    bool
}

// Capture takes the snapshot for one frame. The viewport is copied by value
// and the notes are queried once, so later mutations can't leak into a frame
// that is already being drawn.
func Capture(src NoteSource, v viewport.Viewport, ppq int, totalTicks int64, tick float64, playing bool) Frame {
	f := Frame{View: v, PPQ: ppq, TotalTicks: totalTicks, Tick: tick, Playing: playing}
	if src == nil || v.Width <= 0 || v.Height <= 0 {
		return f
	}
	start, end := v.VisibleTicks()
	low, high := v.VisiblePitches()
	f.Notes = src.QueryRange(start, end, low, high)
	return f
}

// Sized reports whether the frame has somewhere to draw
func (f Frame) Sized() bool {
	return f.View.Width > 0 && f.View.Height > 0 && f.View.PixelsPerTick > 0
}
