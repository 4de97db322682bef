package tui

import (
	"image"
	"strings"
	"testing"

	"go-pianoroll/render"
	"go-pianoroll/theme"
)

func newCells(t *testing.T, cols, rows int) *Cells {
	t.Helper()
	c := NewCells(theme.Default())
	c.Resize(cols*CellWidth, rows*CellHeight)
	return c
}

func TestCellsResizeRoundsUp(t *testing.T) {
	c := NewCells(theme.Default())
	c.Resize(13, 25)
	if cols, rows := c.Size(); cols != 3 || rows != 3 {
		t.Fatalf("size = %dx%d, want 3x3", cols, rows)
	}
}

func TestCellsFillRowAndNote(t *testing.T) {
	c := newCells(t, 10, 4)
	c.FillRect(image.Rect(0, 12, 60, 24), render.PaintRowBlack)
	// a note inset by one px top and bottom still owns its row
	c.FillRect(image.Rect(12, 13, 36, 23), render.PaintMelodicNote)

	for col := 0; col < 10; col++ {
		want := render.PaintRowBlack
		if col >= 2 && col < 6 {
			want = render.PaintMelodicNote
		}
		if got := c.Background(col, 1); got != want {
			t.Errorf("col %d = %v, want %v", col, got, want)
		}
	}
	if c.Background(3, 0) != render.PaintBackground || c.Background(3, 2) != render.PaintBackground {
		t.Error("note leaked into neighbouring rows")
	}
}

func TestCellsThinLines(t *testing.T) {
	c := newCells(t, 10, 3)
	c.FillRect(image.Rect(13, 0, 15, 36), render.PaintPlayhead)
	for row := 0; row < 3; row++ {
		if c.Rune(2, row) != '│' {
			t.Fatalf("row %d glyph = %q", row, c.Rune(2, row))
		}
		if c.Background(2, row) != render.PaintBackground {
			t.Fatal("vertical line changed the background")
		}
	}

	// row separators are dropped
	c.FillRect(image.Rect(0, 11, 60, 12), render.PaintBeatLine)
	if c.Rune(5, 0) != ' ' {
		t.Fatalf("hairline drew %q", c.Rune(5, 0))
	}

	// very short notes keep a visible head
	c.FillRect(image.Rect(31, 13, 33, 23), render.PaintDrumNote)
	if c.Rune(5, 1) != '◆' {
		t.Fatalf("short drum = %q", c.Rune(5, 1))
	}
}

func TestCellsText(t *testing.T) {
	c := newCells(t, 4, 2)
	c.Text(2, 12, "C4xx", render.PaintKeyLabel)
	if c.Rune(0, 1) != 'C' || c.Rune(1, 1) != '4' || c.Rune(3, 1) != 'x' {
		t.Fatalf("text not placed: %q%q", c.Rune(0, 1), c.Rune(1, 1))
	}
	c.Text(0, 100, "off", render.PaintKeyLabel)
}

func TestCellsLines(t *testing.T) {
	c := newCells(t, 8, 3)
	c.FillRect(image.Rect(0, 0, 24, 12), render.PaintMelodicNote)
	c.Select(image.Rect(0, 0, 24, 12))
	lines := c.Lines()
	if len(lines) != 3 {
		t.Fatalf("lines = %d", len(lines))
	}
	for _, l := range lines {
		if !strings.Contains(l, " ") {
			t.Fatalf("line lost its cells: %q", l)
		}
	}
	c.Clear(render.PaintBackground)
	if c.cells[0].selected {
		t.Fatal("clear kept the selection")
	}
}
