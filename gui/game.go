package gui

import (
	"context"
	"fmt"
	"image"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"go-pianoroll/debug"
	"go-pianoroll/midi"
	"go-pianoroll/render"
	"go-pianoroll/score"
	"go-pianoroll/session"
	"go-pianoroll/theme"
	"go-pianoroll/viewport"
)

// status bar below the roll, logical px
const statusHeight = 18

// Config is what the window host needs beyond the session options
type Config struct {
	Theme *theme.Theme

	// Scale overrides the monitor density when > 0
	Scale    float64
	ZoomStep float64

	Path       string
	ExportPath string
	PPQ        int
	BPM        float64

	Keyboard midi.Source
}

// Game is the ebiten host for one editing session
type Game struct {
	s   *session.Session
	cfg Config
	th  *theme.Theme

	gutter, ruler, grid *Surface
	bar                 *Surface

	// logical window size and density from the last Layout
	width, height int
	scale         float64

	path      string
	selected  string
	drumEntry bool

	status    string
	statusErr bool
	statusAt  time.Time

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates the host and its session, opening cfg.Path in the background
func New(cfg Config, opts session.Options) *Game {
	if cfg.Theme == nil {
		cfg.Theme = theme.Default()
	}
	if !(cfg.ZoomStep > 1) {
		cfg.ZoomStep = 1.25
	}
	if cfg.PPQ <= 0 {
		cfg.PPQ = 480
	}
	if !(cfg.BPM > 0) {
		cfg.BPM = 120
	}
	g := &Game{
		cfg:    cfg,
		th:     cfg.Theme,
		gutter: NewSurface(cfg.Theme),
		ruler:  NewSurface(cfg.Theme),
		grid:   NewSurface(cfg.Theme),
		bar:    NewSurface(cfg.Theme),
		scale:  1,
	}
	opts.Gutter, opts.Ruler, opts.Grid = g.gutter, g.ruler, g.grid
	g.s = session.New(opts)
	g.ctx, g.cancel = context.WithCancel(context.Background())

	doc, err := score.NewEditorState(cfg.PPQ, cfg.BPM, nil)
	if err == nil {
		err = g.s.Load(doc)
	}
	g.check(err)
	if cfg.Path != "" {
		g.open(cfg.Path)
	}
	return g
}

// Session exposes the editing session
func (g *Game) Session() *session.Session { return g.s }

// Close stops playback and releases the session
func (g *Game) Close() {
	g.cancel()
	g.s.Close()
}

func (g *Game) Update() error {
	if kb := g.cfg.Keyboard; kb != nil {
		for _, ev := range kb.Drain() {
			if _, _, err := g.s.Record(ev); err != nil {
				g.setError(err)
			}
		}
	}

	mods := modifiers()
	for _, k := range inpututil.AppendJustPressedKeys(nil) {
		if g.do(keyAction(k, mods)) {
			return ebiten.Termination
		}
	}
	g.mouse(mods)
	g.s.FollowPlayhead()

	if g.status != "" && !g.statusErr && time.Since(g.statusAt) > 4*time.Second {
		g.status = ""
	}
	return nil
}

// do runs one key action and reports whether the window should close
func (g *Game) do(a action) bool {
	switch a {
	case actQuit:
		g.Close()
		return true
	case actPlay:
		g.check(g.s.TogglePlay())
	case actStop:
		g.check(g.s.Stop())
	case actStart:
		g.check(g.s.Seek(0))
		g.s.FocusTick(0)
	case actRecord:
		g.s.SetRecording(!g.s.Recording())
	case actTempoUp:
		g.check(g.s.SetTempo(math.Round(g.s.BPM()) + 5))
	case actTempoDown:
		g.check(g.s.SetTempo(math.Max(math.Round(g.s.BPM())-5, 5)))
	case actZoomIn:
		g.s.Zoom(g.cfg.ZoomStep, g.anchorX())
	case actZoomOut:
		g.s.Zoom(1/g.cfg.ZoomStep, g.anchorX())
	case actLayout:
		g.setStatus("layout: %s", g.s.ToggleDisplayMode())
	case actAdd:
		g.addAtPlayhead()
	case actDelete:
		if n, ok := g.s.Note(g.selected); ok {
			_, err := g.s.RemoveNote(n.ID)
			g.check(err)
			g.selected = ""
		}
	case actDeselect:
		g.selected = ""
	case actEarlier:
		g.edit(g.s.MoveNote(g.selected, -1, 0))
	case actLater:
		g.edit(g.s.MoveNote(g.selected, 1, 0))
	case actUp:
		g.edit(g.s.MoveNote(g.selected, 0, 1))
	case actDown:
		g.edit(g.s.MoveNote(g.selected, 0, -1))
	case actShorter:
		g.edit(g.s.ResizeNote(g.selected, -1))
	case actLonger:
		g.edit(g.s.ResizeNote(g.selected, 1))
	case actDrum:
		g.edit(g.s.ToggleDrum(g.selected))
	case actDrumMode:
		g.drumEntry = !g.drumEntry
	case actExport:
		g.export(g.exportPath())
	}
	return false
}

func (g *Game) mouse(mods viewport.Modifiers) {
	cx, cy := ebiten.CursorPosition()
	px, py := float64(cx)/g.scale, float64(cy)/g.scale
	where, x, y := g.s.Engine().Locate(px, py)

	if _, wy := ebiten.Wheel(); wy != 0 && where == render.RegionGrid {
		g.s.Wheel(-wy, mods, x)
	}

	if g.s.Dragging() {
		pressed := false
		for _, b := range []ebiten.MouseButton{ebiten.MouseButtonLeft, ebiten.MouseButtonMiddle, ebiten.MouseButtonRight} {
			pressed = pressed || ebiten.IsMouseButtonPressed(b)
		}
		if pressed {
			g.s.DragTo(px, py)
		} else {
			g.s.EndDrag()
		}
		return
	}

	for _, b := range []ebiten.MouseButton{ebiten.MouseButtonLeft, ebiten.MouseButtonMiddle, ebiten.MouseButtonRight} {
		if !inpututil.IsMouseButtonJustPressed(b) {
			continue
		}
		if g.s.BeginDrag(button(b), mods, px, py) {
			return
		}
		switch where {
		case render.RegionRuler:
			tick, _ := g.s.HitTest(x, 0)
			g.check(g.s.Seek(tick))
		case render.RegionGrid:
			g.click(b, x, y)
		}
	}
}

func (g *Game) click(b ebiten.MouseButton, x, y float64) {
	n, hit := g.s.NoteAt(x, y)
	switch b {
	case ebiten.MouseButtonLeft:
		if hit {
			g.selected = n.ID
			return
		}
		tick, pitch := g.s.HitTest(x, y)
		g.edit(g.s.NewNoteAt(tick, pitch, g.drumEntry))
	case ebiten.MouseButtonRight:
		if hit {
			_, err := g.s.RemoveNote(n.ID)
			g.check(err)
			if g.selected == n.ID {
				g.selected = ""
			}
		}
	}
}

func (g *Game) Draw(screen *ebiten.Image) {
	g.s.Loop().Step()
	g.markSelection()

	screen.Fill(g.th.PaintRGBA(render.PaintRuler))
	l := g.s.Engine().Mode().Layout()
	g.blit(screen, g.gutter, 0, l.RulerHeight)
	g.blit(screen, g.ruler, l.GutterWidth, 0)
	g.blit(screen, g.grid, l.GutterWidth, l.RulerHeight)

	g.drawStatus()
	g.blit(screen, g.bar, 0, float64(g.height-statusHeight))
}

// blit copies a surface to its logical position on the screen buffer
func (g *Game) blit(screen *ebiten.Image, s *Surface, x, y float64) {
	img := s.Image()
	if img == nil {
		return
	}
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(math.Round(x*g.scale), math.Round(y*g.scale))
	screen.DrawImage(img, op)
}

func (g *Game) markSelection() {
	n, ok := g.s.Note(g.selected)
	if !ok {
		return
	}
	v := g.s.View()
	x0 := v.TickToPixelX(float64(n.StartTick)) * g.scale
	x1 := v.TickToPixelX(float64(n.EndTick())) * g.scale
	y := v.PitchToPixelY(float64(n.Pitch)) * g.scale
	g.grid.Outline(image.Rect(int(math.Round(x0)), int(math.Round(y)), int(math.Round(x1)), int(math.Round(y+viewport.RowHeight*g.scale))), render.PaintPlayhead)
}

func (g *Game) drawStatus() {
	g.bar.Resize(physicalSize(g.width, statusHeight, g.scale))
	if g.bar.Image() == nil {
		return
	}
	g.bar.img.Fill(g.th.RGBA(theme.RoleSurface))

	name := "untitled"
	if g.path != "" {
		name = filepath.Base(g.path)
	}
	parts := []string{fmt.Sprintf("%s %3.0fbpm %s", g.s.State(), g.s.BPM(), score.Position(g.s.CurrentTick(), g.s.PPQ())), name}
	if g.s.Recording() {
		parts = append(parts, "REC")
	}
	if g.drumEntry {
		parts = append(parts, "[drums]")
	}
	if n, ok := g.s.Note(g.selected); ok {
		parts = append(parts, fmt.Sprintf("%s len %d vel %.2f", render.NoteName(n.Pitch), n.DurationTicks, n.Velocity))
	}
	if g.status != "" {
		parts = append(parts, g.status)
	}
	// the debug font only covers ASCII
	line := strings.Map(func(r rune) rune {
		if r > 0x7e {
			return -1
		}
		return r
	}, strings.Join(parts, "  "))
	g.bar.Text(int(4*g.scale), int(2*g.scale), line, render.PaintRulerText)
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	scale := g.cfg.Scale
	if !(scale > 0) {
		scale = ebiten.Monitor().DeviceScaleFactor()
	}
	if outsideWidth != g.width || outsideHeight != g.height || scale != g.scale {
		g.width, g.height, g.scale = outsideWidth, outsideHeight, scale
		for _, s := range []*Surface{g.gutter, g.ruler, g.grid, g.bar} {
			s.textScale = scale
		}
		g.s.Resize(float64(outsideWidth), float64(max(outsideHeight-statusHeight, 0)), scale)
	}
	return physicalSize(outsideWidth, outsideHeight, scale)
}

func (g *Game) anchorX() float64 {
	v := g.s.View()
	if x := v.TickToPixelX(g.s.CurrentTick()); x >= 0 && x < v.Width {
		return x
	}
	return v.Width / 2
}

func (g *Game) addAtPlayhead() {
	var pitch int
	if n, ok := g.s.Note(g.selected); ok && n.IsDrum == g.drumEntry {
		pitch = n.Pitch
	} else if g.drumEntry {
		pitch = int(g.s.Drums().KitMap().Slots[0])
	} else {
		low, high := g.s.View().VisiblePitches()
		pitch = (low + high) / 2
	}
	n, err := g.s.NewNoteAt(g.s.CurrentTick(), pitch, g.drumEntry)
	if err != nil {
		g.setError(err)
		return
	}
	g.selected = n.ID
	if g.s.State() != session.StatePlaying {
		g.check(g.s.Seek(float64(n.StartTick + g.s.GridStep(n.IsDrum))))
	}
}

func (g *Game) edit(n score.EditorNote, err error) {
	if err != nil {
		g.setError(err)
		return
	}
	g.selected = n.ID
}

func (g *Game) exportPath() string {
	if g.cfg.ExportPath != "" {
		return g.cfg.ExportPath
	}
	if g.path == "" {
		return "untitled.mid"
	}
	ext := filepath.Ext(g.path)
	return strings.TrimSuffix(g.path, ext) + "-edit" + ext
}

func (g *Game) export(path string) {
	g.setStatus("exporting %s...", path)
	g.s.ExportAsync(g.ctx, path, func(err error) {
		if err != nil {
			g.setError(err)
			return
		}
		g.setStatus("exported %s", path)
	})
}

func (g *Game) open(path string) {
	g.setStatus("opening %s...", path)
	g.s.ImportAsync(g.ctx, path, func(err error) {
		if err != nil {
			g.setError(err)
			return
		}
		g.path = path
		g.selected = ""
		g.setStatus("opened %s: %d notes", filepath.Base(path), len(g.s.Notes()))
	})
}

func (g *Game) check(err error) {
	if err != nil {
		g.setError(err)
	}
}

func (g *Game) setStatus(format string, args ...any) {
	g.status = fmt.Sprintf(format, args...)
	g.statusErr = false
	g.statusAt = time.Now()
}

func (g *Game) setError(err error) {
	debug.Log("gui", "error: %v", err)
	g.status = err.Error()
	g.statusErr = true
	g.statusAt = time.Now()
}
