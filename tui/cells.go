package tui

import (
	"image"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"go-pianoroll/render"
	"go-pianoroll/theme"
)

// One terminal cell in physical pixels. A cell is exactly one pitch row tall.
const (
	CellWidth  = 6
	CellHeight = 12
)

type cell struct {
	bg, fg   render.Paint
	r        rune
	selected bool
}

type styleKey struct {
	bg, fg   render.Paint
	selected bool
}

// Cells is a render.Backend that rasterizes onto terminal cells. Fills
// covering most of a cell set its background; rects thinner than a cell
// become line glyphs; hairline horizontal rects are dropped.
type Cells struct {
	theme      *theme.Theme
	cols, rows int
	cells      []cell

	styles map[styleKey]lipgloss.Style
}

// NewCells creates an empty cell surface
func NewCells(th *theme.Theme) *Cells {
	return &Cells{theme: th, styles: make(map[styleKey]lipgloss.Style)}
}

// Size returns the surface size in cells
func (c *Cells) Size() (cols, rows int) {
	return c.cols, c.rows
}

func (c *Cells) Resize(width, height int) {
	c.cols = (max(width, 0) + CellWidth - 1) / CellWidth
	c.rows = (max(height, 0) + CellHeight - 1) / CellHeight
	c.cells = make([]cell, c.cols*c.rows)
	c.Clear(render.PaintBackground)
}

func (c *Cells) Clear(p render.Paint) {
	for i := range c.cells {
		c.cells[i] = cell{bg: p, fg: p, r: ' '}
	}
}

func (c *Cells) FillRect(r image.Rectangle, p render.Paint) {
	if r.Dy()*2 <= CellHeight && r.Dx() > r.Dy() {
		return
	}
	c0, c1 := span(r.Min.X, r.Max.X, CellWidth, c.cols)
	r0, r1 := span(r.Min.Y, r.Max.Y, CellHeight, c.rows)
	thin := r.Dx() < CellWidth
	for row := r0; row < r1; row++ {
		for col := c0; col < c1; col++ {
			cl := &c.cells[row*c.cols+col]
			if thin {
				cl.r, cl.fg = c.glyph(p), p
				continue
			}
			cl.bg, cl.fg, cl.r = p, p, ' '
		}
	}
}

func (c *Cells) Text(x, y int, s string, p render.Paint) {
	row := y / CellHeight
	if row < 0 || row >= c.rows {
		return
	}
	col := x / CellWidth
	for _, r := range s {
		if col >= c.cols {
			return
		}
		if col >= 0 {
			cl := &c.cells[row*c.cols+col]
			cl.r, cl.fg = r, p
		}
		col++
	}
}

// Select highlights the cells under a physical rect
func (c *Cells) Select(r image.Rectangle) {
	r = r.Intersect(image.Rect(0, 0, c.cols*CellWidth, c.rows*CellHeight))
	if r.Empty() {
		return
	}
	c0, c1 := span(r.Min.X, r.Max.X, CellWidth, c.cols)
	r0, r1 := span(r.Min.Y, r.Max.Y, CellHeight, c.rows)
	for row := r0; row < r1; row++ {
		for col := c0; col < c1; col++ {
			c.cells[row*c.cols+col].selected = true
		}
	}
}

// Rune returns the glyph at a cell, for tests and hit checks
func (c *Cells) Rune(col, row int) rune {
	if col < 0 || col >= c.cols || row < 0 || row >= c.rows {
		return 0
	}
	return c.cells[row*c.cols+col].r
}

// Background returns the paint behind a cell
func (c *Cells) Background(col, row int) render.Paint {
	if col < 0 || col >= c.cols || row < 0 || row >= c.rows {
		return render.PaintBackground
	}
	return c.cells[row*c.cols+col].bg
}

// Lines renders every row as a styled string, merging runs of equal style
func (c *Cells) Lines() []string {
	out := make([]string, c.rows)
	var run strings.Builder
	for row := 0; row < c.rows; row++ {
		var line strings.Builder
		line.Grow(c.cols * 4)
		var cur styleKey
		flush := func() {
			if run.Len() > 0 {
				line.WriteString(c.style(cur).Render(run.String()))
				run.Reset()
			}
		}
		for col := 0; col < c.cols; col++ {
			cl := c.cells[row*c.cols+col]
			k := styleKey{bg: cl.bg, fg: cl.fg, selected: cl.selected}
			if col == 0 || k != cur {
				flush()
				cur = k
			}
			run.WriteRune(cl.r)
		}
		flush()
		out[row] = line.String()
	}
	return out
}

func (c *Cells) style(k styleKey) lipgloss.Style {
	if s, ok := c.styles[k]; ok {
		return s
	}
	s := lipgloss.NewStyle().
		Background(c.theme.PaintColor(k.bg)).
		Foreground(c.theme.PaintColor(k.fg))
	if k.selected {
		s = s.Reverse(true)
	}
	c.styles[k] = s
	return s
}

func (c *Cells) glyph(p render.Paint) rune {
	switch p {
	case render.PaintMelodicNote:
		return c.theme.Symbols.NoteHead
	case render.PaintDrumNote:
		return c.theme.Symbols.DrumHit
	}
	return c.theme.Symbols.VLine
}

// span maps [a,b) px to whole cells: edges round to the nearest boundary, and
// anything narrower than that keeps the cell containing a
func span(a, b, size, n int) (int, int) {
	lo := int(math.Round(float64(a) / float64(size)))
	hi := int(math.Round(float64(b) / float64(size)))
	if hi <= lo {
		lo = a / size
		hi = lo + 1
	}
	return max(lo, 0), min(hi, n)
}
