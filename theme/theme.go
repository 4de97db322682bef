package theme

import (
	"image/color"

	"github.com/charmbracelet/lipgloss"

	"go-pianoroll/render"
)

type Theme struct {
	Palette *Palette
	Symbols Symbols

	paints map[render.Paint]RGB
}

type Symbols struct {
	// Transport state in the header
	Play   rune // ▶
	Pause  rune // ‖
	Stop   rune // ■
	Record rune // ●

	// Thin lines in terminal cells
	VLine rune // │
	HLine rune // ─

	// Note starts in terminal cells
	NoteHead rune // ▌
	DrumHit  rune // ◆
}

func New(palette *Palette) *Theme {
	t := &Theme{
		Palette: palette,
		Symbols: Symbols{
			Play:   '▶',
			Pause:  '‖',
			Stop:   '■',
			Record: '●',

			VLine: '│',
			HLine: '─',

			NoteHead: '▌',
			DrumHit:  '◆',
		},
	}
	t.paints = t.paintTable()
	return t
}

// Default uses the embedded default palette
func Default() *Theme {
	p, err := Builtin(DefaultPalette)
	if err != nil {
		panic(err)
	}
	return New(p)
}

// Load resolves a palette name or a .gpl path; empty means the default
func Load(nameOrPath string) (*Theme, error) {
	if nameOrPath == "" {
		return Default(), nil
	}
	p, err := Builtin(nameOrPath)
	if err != nil {
		if p, err = LoadGPL(nameOrPath); err != nil {
			return nil, err
		}
	}
	return New(p), nil
}

// Color roles mapped to palette positions (0-1)
const (
	RoleBG      = 0.0 // deep purple
	RoleSurface = 0.1 // dark purple
	RoleMuted   = 0.2 // purple-magenta
	RoleFG      = 0.4 // pink-purple (readable)
	RoleAccent  = 0.5 // vivid magenta
	RoleCursor  = 0.6 // rose pink
	RoleActive  = 0.7 // soft red
	RoleWarning = 0.8 // orange
	RoleSuccess = 1.0 // bright yellow
)

var white = RGB{255, 255, 255}

// paintTable derives every drawing role from the palette. Backgrounds are
// heavily shaded so notes stand out.
func (t *Theme) paintTable() map[render.Paint]RGB {
	p := t.Palette
	return map[render.Paint]RGB{
		render.PaintBackground:      p.Lookup(RoleBG).Shade(0.18),
		render.PaintWhiteKey:        p.Lookup(RoleFG).Mix(white, 0.85),
		render.PaintBlackKey:        p.Lookup(RoleBG).Shade(0.3),
		render.PaintKeyLabel:        p.Lookup(RoleBG).Shade(0.6),
		render.PaintRowWhite:        p.Lookup(RoleSurface).Shade(0.26),
		render.PaintRowBlack:        p.Lookup(RoleBG).Shade(0.16),
		render.PaintBarLine:         p.Lookup(RoleMuted).Shade(0.8),
		render.PaintBeatLine:        p.Lookup(RoleMuted).Shade(0.5),
		render.PaintSubdivisionLine: p.Lookup(RoleSurface).Shade(0.38),
		render.PaintRuler:           p.Lookup(RoleSurface).Shade(0.35),
		render.PaintRulerText:       p.Lookup(RoleFG).Mix(white, 0.5),
		render.PaintMelodicNote:     p.Lookup(RoleAccent),
		render.PaintDrumNote:        p.Lookup(RoleWarning),
		render.PaintPlayhead:        p.Lookup(RoleSuccess),
	}
}

// Paint returns the color for a drawing role
func (t *Theme) Paint(p render.Paint) RGB {
	if c, ok := t.paints[p]; ok {
		return c
	}
	return t.Palette.Lookup(RoleFG)
}

// PaintColor is Paint as a lipgloss color
func (t *Theme) PaintColor(p render.Paint) lipgloss.Color {
	return rgbToLipgloss(t.Paint(p))
}

// PaintRGBA is Paint for image backends
func (t *Theme) PaintRGBA(p render.Paint) color.RGBA {
	c := t.Paint(p)
	return color.RGBA{c[0], c[1], c[2], 0xff}
}

// RGBA is a palette role for image backends
func (t *Theme) RGBA(role float64) color.RGBA {
	c := t.Palette.Lookup(role)
	return color.RGBA{c[0], c[1], c[2], 0xff}
}

// Style helpers

func (t *Theme) BG() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleBG))
}

func (t *Theme) FG() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleFG))
}

func (t *Theme) Accent() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleAccent))
}

func (t *Theme) Muted() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleMuted))
}

func (t *Theme) Active() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleActive))
}

func (t *Theme) Cursor() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleCursor))
}

func (t *Theme) Warning() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleWarning))
}

func (t *Theme) Success() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleSuccess))
}

// Color returns lipgloss color for any normalized value 0-1
func (t *Theme) Color(norm float64) lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(norm))
}

func rgbToLipgloss(c RGB) lipgloss.Color {
	return lipgloss.Color(c.Hex())
}
