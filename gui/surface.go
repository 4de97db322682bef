package gui

import (
	"image"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"

	"go-pianoroll/render"
	"go-pianoroll/theme"
)

// labels are rasterized once with the debug font and tinted on draw
const maxCachedLabels = 2048

// Surface is a render.Backend backed by an offscreen ebiten image
type Surface struct {
	theme *theme.Theme
	img   *ebiten.Image

	// textScale enlarges the debug font to match the device density
	textScale float64
	labels    map[string]*ebiten.Image
}

// NewSurface creates a surface with no backing image
func NewSurface(th *theme.Theme) *Surface {
	return &Surface{theme: th, textScale: 1, labels: make(map[string]*ebiten.Image)}
}

// Image returns the backing image, nil before the first non-empty Resize
func (s *Surface) Image() *ebiten.Image { return s.img }

func (s *Surface) Resize(width, height int) {
	if s.img != nil {
		if b := s.img.Bounds(); b.Dx() == width && b.Dy() == height {
			return
		}
		s.img.Deallocate()
		s.img = nil
	}
	if width <= 0 || height <= 0 {
		return
	}
	s.img = ebiten.NewImage(width, height)
}

func (s *Surface) Clear(p render.Paint) {
	if s.img == nil {
		return
	}
	s.img.Fill(s.theme.PaintRGBA(p))
}

func (s *Surface) FillRect(r image.Rectangle, p render.Paint) {
	if s.img == nil || r.Empty() {
		return
	}
	ebitenutil.DrawRect(s.img, float64(r.Min.X), float64(r.Min.Y), float64(r.Dx()), float64(r.Dy()), s.theme.PaintRGBA(p))
}

func (s *Surface) Text(x, y int, str string, p render.Paint) {
	if s.img == nil || str == "" {
		return
	}
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(s.textScale, s.textScale)
	op.GeoM.Translate(float64(x), float64(y))
	op.ColorScale.ScaleWithColor(s.theme.PaintRGBA(p))
	s.img.DrawImage(s.label(str), op)
}

// Outline strokes a one pixel border inside r
func (s *Surface) Outline(r image.Rectangle, p render.Paint) {
	if s.img == nil || r.Empty() {
		return
	}
	c := s.theme.PaintRGBA(p)
	x, y, w, h := float64(r.Min.X), float64(r.Min.Y), float64(r.Dx()), float64(r.Dy())
	ebitenutil.DrawRect(s.img, x, y, w, 1, c)
	ebitenutil.DrawRect(s.img, x, y+h-1, w, 1, c)
	ebitenutil.DrawRect(s.img, x, y, 1, h, c)
	ebitenutil.DrawRect(s.img, x+w-1, y, 1, h, c)
}

func (s *Surface) label(str string) *ebiten.Image {
	if img, ok := s.labels[str]; ok {
		return img
	}
	img := ebiten.NewImage(max(1, len([]rune(str))*7), 14)
	ebitenutil.DebugPrintAt(img, str, 0, 0)
	if len(s.labels) >= maxCachedLabels {
		for k, old := range s.labels {
			old.Deallocate()
			delete(s.labels, k)
		}
	}
	s.labels[str] = img
	return img
}
