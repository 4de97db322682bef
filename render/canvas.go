// Package render draws the piano roll onto three synchronized surfaces: the
// pitch gutter, the time ruler and the note grid.
package render

import (
	"image"
	"math"
)

// Paint is a drawing role; backends map it to a concrete color
type Paint int

const (
	PaintBackground Paint = iota
	PaintWhiteKey
	PaintBlackKey
	PaintKeyLabel
	PaintRowWhite
	PaintRowBlack
	PaintBarLine
	PaintBeatLine
	PaintSubdivisionLine
	PaintRuler
	PaintRulerText
	PaintMelodicNote
	PaintDrumNote
	PaintPlayhead
)

// Backend is a physical-pixel drawing target (terminal cells, an image, a recorder)
type Backend interface {
	// Resize reallocates the backing buffer to width x height physical pixels
	Resize(width, height int)
	Clear(p Paint)
	FillRect(r image.Rectangle, p Paint)
	Text(x, y int, s string, p Paint)
}

// Canvas draws in logical pixels onto a Backend. The logical size and the
// backing size are tracked separately; the backing is width*scale by
// height*scale so output stays sharp at any device density.
type Canvas struct {
	backend Backend

	width, height float64 // logical
	scale         float64
	backing       image.Point
}

// NewCanvas wraps a backend. It has no size until Resize.
func NewCanvas(b Backend) *Canvas {
	return &Canvas{backend: b, scale: 1}
}

// Resize sets the logical size and density. The backend is only reallocated
// when the backing size actually changes. Returns true if it did.
func (c *Canvas) Resize(width, height, scale float64) bool {
	if !(scale > 0) {
		scale = 1
	}
	c.width = math.Max(0, width)
	c.height = math.Max(0, height)
	c.scale = scale

	backing := image.Pt(int(math.Ceil(c.width*scale)), int(math.Ceil(c.height*scale)))
	if backing == c.backing {
		return false
	}
	c.backing = backing
	c.backend.Resize(backing.X, backing.Y)
	return true
}

// Size returns the logical size
func (c *Canvas) Size() (width, height float64) {
	return c.width, c.height
}

// Scale returns the logical-to-physical factor
func (c *Canvas) Scale() float64 {
	return c.scale
}

// BackingSize returns the physical size of the backend buffer
func (c *Canvas) BackingSize() image.Point {
	return c.backing
}

// Empty reports whether there is nothing to draw into
func (c *Canvas) Empty() bool {
	return c.backing.X <= 0 || c.backing.Y <= 0
}

// Clear fills the whole backing buffer
func (c *Canvas) Clear(p Paint) {
	c.backend.Clear(p)
}

// FillRect fills a logical rectangle, snapped to whole physical pixels.
// Anything outside the canvas is clipped; a fully clipped rect is skipped.
func (c *Canvas) FillRect(x, y, w, h float64, p Paint) bool {
	r := c.snap(x, y, w, h).Intersect(image.Rectangle{Max: c.backing})
	if r.Empty() {
		return false
	}
	c.backend.FillRect(r, p)
	return true
}

// VLine draws a vertical line of the given logical thickness, at least one
// physical pixel wide
func (c *Canvas) VLine(x, y0, y1, thickness float64, p Paint) bool {
	return c.FillRect(x, y0, thickness, y1-y0, p)
}

// HLine draws a horizontal line, at least one physical pixel tall
func (c *Canvas) HLine(x0, x1, y, thickness float64, p Paint) bool {
	return c.FillRect(x0, y, x1-x0, thickness, p)
}

// Text draws a label with its top-left corner at the logical point
func (c *Canvas) Text(x, y float64, s string, p Paint) {
	px, py := int(math.Round(x*c.scale)), int(math.Round(y*c.scale))
	if px >= c.backing.X || py >= c.backing.Y {
		return
	}
	c.backend.Text(px, py, s, p)
}

// snap converts logical coordinates to a physical rectangle whose edges fall
// on pixel boundaries. Non-empty inputs never collapse to zero size.
func (c *Canvas) snap(x, y, w, h float64) image.Rectangle {
	if w <= 0 || h <= 0 {
		return image.Rectangle{}
	}
	x0 := int(math.Round(x * c.scale))
	y0 := int(math.Round(y * c.scale))
	x1 := int(math.Round((x + w) * c.scale))
	y1 := int(math.Round((y + h) * c.scale))
	if x1 <= x0 {
		x1 = x0 + 1
	}
	if y1 <= y0 {
		y1 = y0 + 1
	}
	return image.Rect(x0, y0, x1, y1)
}
