// Package viewport maps between the tick x pitch plane and pixel space.
//
// All coordinates are logical pixels relative to the top-left corner of the
// note grid. The transform methods take the Viewport by value and have no side
// effects, so rendering and pointer hit-testing share exactly the same math.
package viewport

import "math"

// RowHeight is the height of one pitch row in logical pixels
const RowHeight = 12.0

// NumRows is the number of pitch rows (MIDI 0-127)
const NumRows = 128

// Default zoom limits in pixels per tick
const (
	DefaultMinPixelsPerTick = 0.005
	DefaultMaxPixelsPerTick = 8.0
)

// Viewport is the pan/zoom state over the tick x pitch plane
type Viewport struct {
	PixelsPerTick float64
	ScrollX       float64 // logical px, >= 0
	ScrollY       float64 // logical px, >= 0

	Width  float64 // visible grid width in logical px
	Height float64 // visible grid height in logical px

	ContentTicks int64 // totalTicks of the document

	MinPixelsPerTick float64
	MaxPixelsPerTick float64
}

// New creates a viewport with the given zoom and no scroll
func New(pixelsPerTick float64) Viewport {
	return Viewport{
		PixelsPerTick:    pixelsPerTick,
		MinPixelsPerTick: DefaultMinPixelsPerTick,
		MaxPixelsPerTick: DefaultMaxPixelsPerTick,
	}
}

// TickToPixelX maps a tick to an x coordinate on the grid
func (v Viewport) TickToPixelX(tick float64) float64 {
	return tick*v.PixelsPerTick - v.ScrollX
}

// PixelXToTick is the inverse of TickToPixelX
func (v Viewport) PixelXToTick(px float64) float64 {
	return (px + v.ScrollX) / v.PixelsPerTick
}

// PitchToPixelY maps a pitch to the y coordinate of the top of its row
func (v Viewport) PitchToPixelY(pitch float64) float64 {
	return (127-pitch)*RowHeight - v.ScrollY
}

// PixelYToPitch is the inverse of PitchToPixelY. Use PitchAt for hit-testing.
func (v Viewport) PixelYToPitch(py float64) float64 {
	return 127 - (py+v.ScrollY)/RowHeight
}

// PitchAt returns the pitch row containing py, clamped to 0-127
func (v Viewport) PitchAt(py float64) int {
	p := 127 - int(math.Floor((py+v.ScrollY)/RowHeight))
	return min(max(p, 0), 127)
}

// ContentWidth is the extent of the time axis in px
func (v Viewport) ContentWidth() float64 {
	return float64(v.ContentTicks) * v.PixelsPerTick
}

// ContentHeight is the extent of the pitch axis in px
func (v Viewport) ContentHeight() float64 {
	return NumRows * RowHeight
}

// MaxScrollX is the largest valid horizontal scroll
func (v Viewport) MaxScrollX() float64 {
	return math.Max(0, v.ContentWidth()-v.Width)
}

// MaxScrollY is the largest valid vertical scroll
func (v Viewport) MaxScrollY() float64 {
	return math.Max(0, v.ContentHeight()-v.Height)
}

// Clamped returns v with both scroll offsets inside their bounds
func (v Viewport) Clamped() Viewport {
	v.ScrollX = clamp(v.ScrollX, 0, v.MaxScrollX())
	v.ScrollY = clamp(v.ScrollY, 0, v.MaxScrollY())
	return v
}

// ZoomBy scales pixelsPerTick by factor, keeping the tick under anchorX on
// the same pixel. The result is clamped.
func (v Viewport) ZoomBy(factor, anchorX float64) Viewport {
	if !(factor > 0) || math.IsInf(factor, 0) {
		return v
	}
	anchorTick := v.PixelXToTick(anchorX)
	v.PixelsPerTick = v.clampZoom(v.PixelsPerTick * factor)
	v.ScrollX = anchorTick*v.PixelsPerTick - anchorX
	return v.Clamped()
}

// PanBy adds to the scroll offsets and clamps
func (v Viewport) PanBy(dx, dy float64) Viewport {
	v.ScrollX += dx
	v.ScrollY += dy
	return v.Clamped()
}

// FocusOnTick scrolls so tick sits at 10% of the viewport width
func (v Viewport) FocusOnTick(tick float64, viewportWidth float64) Viewport {
	v.ScrollX = tick*v.PixelsPerTick - viewportWidth*0.1
	return v.Clamped()
}

// FocusOnPitch scrolls so the pitch row is vertically centred
func (v Viewport) FocusOnPitch(pitch float64, viewportHeight float64) Viewport {
	rowCenter := (127-pitch)*RowHeight + RowHeight/2
	v.ScrollY = rowCenter - viewportHeight/2
	return v.Clamped()
}

// Resize updates the visible grid size and re-clamps
func (v Viewport) Resize(width, height float64) Viewport {
	v.Width = math.Max(0, width)
	v.Height = math.Max(0, height)
	return v.Clamped()
}

// SetContent updates the content length and re-clamps
func (v Viewport) SetContent(totalTicks int64) Viewport {
	v.ContentTicks = max(totalTicks, 0)
	return v.Clamped()
}

// ScrollFractionX maps the horizontal scroll to [0,1] for a scrollbar
func (v Viewport) ScrollFractionX() float64 {
	return fraction(v.ScrollX, v.MaxScrollX())
}

// ScrollFractionY maps the vertical scroll to [0,1] for a scrollbar
func (v Viewport) ScrollFractionY() float64 {
	return fraction(v.ScrollY, v.MaxScrollY())
}

// SetScrollFractionX positions the horizontal scroll from a [0,1] scrollbar value
func (v Viewport) SetScrollFractionX(f float64) Viewport {
	v.ScrollX = clamp(f, 0, 1) * v.MaxScrollX()
	return v
}

// SetScrollFractionY positions the vertical scroll from a [0,1] scrollbar value
func (v Viewport) SetScrollFractionY(f float64) Viewport {
	v.ScrollY = clamp(f, 0, 1) * v.MaxScrollY()
	return v
}

// VisibleTicks returns the tick window [start, end) covered by the grid
func (v Viewport) VisibleTicks() (start, end int64) {
	start = int64(math.Floor(v.PixelXToTick(0)))
	end = int64(math.Ceil(v.PixelXToTick(v.Width)))
	return max(start, 0), max(end, 0)
}

// VisibleRows returns the first and last row index touched by the grid
func (v Viewport) VisibleRows() (first, last int) {
	first = int(math.Floor(v.ScrollY / RowHeight))
	last = int(math.Ceil((v.ScrollY+v.Height)/RowHeight)) - 1
	return max(first, 0), min(last, NumRows-1)
}

// VisiblePitches returns the pitch range [low, high] covered by the grid
func (v Viewport) VisiblePitches() (low, high int) {
	first, last := v.VisibleRows()
	return 127 - last, 127 - first
}

func (v Viewport) clampZoom(ppt float64) float64 {
	lo, hi := v.MinPixelsPerTick, v.MaxPixelsPerTick
	if lo <= 0 {
		lo = DefaultMinPixelsPerTick
	}
	if hi < lo {
		hi = math.Max(lo, DefaultMaxPixelsPerTick)
	}
	return clamp(ppt, lo, hi)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func fraction(v, limit float64) float64 {
	if limit <= 0 {
		return 0
	}
	return clamp(v/limit, 0, 1)
}
