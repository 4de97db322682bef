package render

import (
	"fmt"
	"math"

	"go-pianoroll/viewport"
)

// Mode is the layout-only display mode
type Mode int

const (
	ModeFull    Mode = iota // labelled key gutter
	ModeCompact             // narrow gutter, no labels
)

func (m Mode) String() string {
	if m == ModeCompact {
		return "compact"
	}
	return "full"
}

// Layout is the size of the fixed chrome around the grid, in logical px
type Layout struct {
	GutterWidth float64
	RulerHeight float64
}

// Layout returns the chrome sizes for the mode
func (m Mode) Layout() Layout {
	if m == ModeCompact {
		return Layout{GutterWidth: 18, RulerHeight: 12}
	}
	return Layout{GutterWidth: 48, RulerHeight: 24}
}

// Region is one of the three surfaces
type Region int

const (
	RegionNone Region = iota
	RegionGutter
	RegionRuler
	RegionGrid
)

// Locate maps a point in a width x height container to the surface under it,
// in that surface's own coordinates. The corner above the gutter is RegionNone.
func (l Layout) Locate(x, y, width, height float64) (Region, float64, float64) {
	if x < 0 || y < 0 || x >= width || y >= height {
		return RegionNone, 0, 0
	}
	switch {
	case y < l.RulerHeight:
		if x < l.GutterWidth {
			return RegionNone, 0, 0
		}
		return RegionRuler, x - l.GutterWidth, y
	case x < l.GutterWidth:
		return RegionGutter, x, y - l.RulerHeight
	}
	return RegionGrid, x - l.GutterWidth, y - l.RulerHeight
}

// Line spacing below which a grid level is skipped, in logical px
const minLineSpacing = 3.0

// Stats describes what the last frame drew
type Stats struct {
	Rows          int
	Lines         int
	NotesDrawn    int
	NotesCulled   int
	PlayheadDrawn bool
}

// Engine draws frames onto the gutter, ruler and grid canvases
type Engine struct {
	Gutter *Canvas
	Ruler  *Canvas
	Grid   *Canvas

	mode  Mode
	stats Stats

	container struct{ width, height, scale float64 }
}

// NewEngine creates an engine over three backends
func NewEngine(gutter, ruler, grid Backend) *Engine {
	return &Engine{
		Gutter: NewCanvas(gutter),
		Ruler:  NewCanvas(ruler),
		Grid:   NewCanvas(grid),
	}
}

// Mode returns the current display mode
func (e *Engine) Mode() Mode {
	return e.mode
}

// SetMode switches display mode and re-lays out the surfaces
func (e *Engine) SetMode(m Mode) (gridWidth, gridHeight float64) {
	e.mode = m
	c := e.container
	return e.Resize(c.width, c.height, c.scale)
}

// Resize lays the three surfaces out inside a container of the given logical
// size and density. Returns the grid size for the viewport.
func (e *Engine) Resize(width, height, scale float64) (gridWidth, gridHeight float64) {
	e.container.width, e.container.height, e.container.scale = width, height, scale
	l := e.mode.Layout()
	gridWidth = math.Max(0, width-l.GutterWidth)
	gridHeight = math.Max(0, height-l.RulerHeight)
	if width <= 0 || height <= 0 {
		gridWidth, gridHeight = 0, 0
	}
	e.Gutter.Resize(math.Min(l.GutterWidth, math.Max(width, 0)), gridHeight, scale)
	e.Ruler.Resize(gridWidth, math.Min(l.RulerHeight, math.Max(height, 0)), scale)
	e.Grid.Resize(gridWidth, gridHeight, scale)
	return gridWidth, gridHeight
}

// Locate maps a container point using the current mode and size
func (e *Engine) Locate(x, y float64) (Region, float64, float64) {
	return e.mode.Layout().Locate(x, y, e.container.width, e.container.height)
}

// Stats returns what the last drawn frame contained
func (e *Engine) Stats() Stats {
	return e.stats
}

// Draw renders one frame onto all three surfaces. It returns false without
// drawing when there is no laid-out area yet.
func (e *Engine) Draw(f Frame) bool {
	if !f.Sized() || e.Grid.Empty() {
		return false
	}
	e.stats = Stats{}
	e.drawGrid(f)
	e.drawGutter(f)
	e.drawRuler(f)
	return true
}

func (e *Engine) drawGutter(f Frame) {
	c := e.Gutter
	if c.Empty() {
		return
	}
	w, _ := c.Size()
	c.Clear(PaintBackground)
	first, last := f.View.VisibleRows()
	for row := first; row <= last; row++ {
		pitch := 127 - row
		y := f.View.PitchToPixelY(float64(pitch))
		paint := PaintWhiteKey
		if isBlackKey(pitch) {
			paint = PaintBlackKey
		}
		c.FillRect(0, y, w, viewport.RowHeight, paint)
		c.HLine(0, w, y+viewport.RowHeight-1, 1, PaintBeatLine)
		if e.mode == ModeFull && pitch%12 == 0 {
			c.Text(2, y, NoteName(pitch), PaintKeyLabel)
		}
	}
}

func (e *Engine) drawRuler(f Frame) {
	c := e.Ruler
	if c.Empty() {
		return
	}
	w, h := c.Size()
	c.Clear(PaintRuler)
	ppq := int64(max(f.PPQ, 1))
	bar := ppq * 4
	start, end := f.View.VisibleTicks()
	beatStep := ppq
	if float64(ppq)*f.View.PixelsPerTick < minLineSpacing*2 {
		beatStep = bar
	}
	for tick := start / beatStep * beatStep; tick <= end; tick += beatStep {
		x := f.View.TickToPixelX(float64(tick))
		if tick%bar == 0 {
			c.VLine(x, 0, h, 1, PaintBarLine)
			if e.mode == ModeFull {
				c.Text(x+2, 0, fmt.Sprintf("%d", tick/bar+1), PaintRulerText)
			}
		} else {
			c.VLine(x, h/2, h, 1, PaintBeatLine)
		}
	}
	if x := f.View.TickToPixelX(f.Tick); x >= 0 && x < w {
		c.FillRect(x-2, 0, 5, h, PaintPlayhead)
	}
}

func (e *Engine) drawGrid(f Frame) {
	c := e.Grid
	w, h := c.Size()
	v := f.View
	c.Clear(PaintBackground)

	// 1. rows, virtualized to the visible range
	first, last := v.VisibleRows()
	for row := first; row <= last; row++ {
		pitch := 127 - row
		paint := PaintRowWhite
		if isBlackKey(pitch) {
			paint = PaintRowBlack
		}
		c.FillRect(0, v.PitchToPixelY(float64(pitch)), w, viewport.RowHeight, paint)
		e.stats.Rows++
	}

	// 2. columns at sixteenth-note granularity
	ppq := int64(max(f.PPQ, 1))
	bar := ppq * 4
	step := max(ppq/4, 1)
	for float64(step)*v.PixelsPerTick < minLineSpacing && step < bar {
		step = nextStep(step, ppq, bar)
	}
	start, end := v.VisibleTicks()
	for tick := start / step * step; tick <= end; tick += step {
		x := v.TickToPixelX(float64(tick))
		if x < 0 || x >= w {
			continue
		}
		switch {
		case tick%bar == 0: // bar wins over beat
			c.VLine(x, 0, h, 2, PaintBarLine)
		case tick%ppq == 0:
			c.VLine(x, 0, h, 1, PaintBeatLine)
		default:
			c.VLine(x, 0, h, 1, PaintSubdivisionLine)
		}
		e.stats.Lines++
	}

	// 3. notes; re-check bounds in case the query was loose
	for _, n := range f.Notes {
		x := v.TickToPixelX(float64(n.StartTick))
		nw := float64(n.DurationTicks) * v.PixelsPerTick
		y := v.PitchToPixelY(float64(n.Pitch))
		if x+nw <= 0 || x >= w || y+viewport.RowHeight <= 0 || y >= h {
			e.stats.NotesCulled++
			continue
		}
		paint := PaintMelodicNote
		if n.IsDrum {
			paint = PaintDrumNote
		}
		c.FillRect(x, y+1, math.Max(nw-1, 1), viewport.RowHeight-2, paint)
		e.stats.NotesDrawn++
	}

	// 4. playhead
	if x := v.TickToPixelX(f.Tick); x >= 0 && x < w {
		c.VLine(x, 0, h, 2, PaintPlayhead)
		e.stats.PlayheadDrawn = true
	}
}

// nextStep coarsens the grid: sixteenth -> beat -> bar
func nextStep(step, ppq, bar int64) int64 {
	if step < ppq {
		return ppq
	}
	return bar
}

var noteNames = []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// NoteName formats a pitch as name + octave, C4 = 60
func NoteName(pitch int) string {
	return fmt.Sprintf("%s%d", noteNames[pitch%12], pitch/12-1)
}

func isBlackKey(pitch int) bool {
	switch pitch % 12 {
	case 1, 3, 6, 8, 10:
		return true
	}
	return false
}
