package tui

import (
	"context"
	"fmt"
	"image"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"go-pianoroll/debug"
	"go-pianoroll/midi"
	"go-pianoroll/render"
	"go-pianoroll/score"
	"go-pianoroll/session"
	"go-pianoroll/theme"
	"go-pianoroll/viewport"
	"go-pianoroll/widgets"
)

// Config is what the terminal host needs beyond the session options
type Config struct {
	Theme    *theme.Theme
	FPS      int
	ZoomStep float64

	// Path is opened on start; empty starts a blank document
	Path       string
	ExportPath string
	PPQ        int
	BPM        float64

	// Keyboard feeds recording; may be nil
	Keyboard midi.Source
}

type prompt int

const (
	promptNone prompt = iota
	promptExport
	promptOpen
)

// chrome lines around the piano roll: header, status, footer
const chromeLines = 3

type frameMsg time.Time

type loadedMsg struct {
	path string
	doc  *score.EditorState
	err  error
}

// Model is the bubbletea host for one editing session
type Model struct {
	s    *session.Session
	cfg  Config
	th   *theme.Theme
	keys keyMap

	gutter, ruler, grid *Cells

	width, height int
	path          string
	selected      string
	drumEntry     bool
	showHelp      bool

	prompt prompt
	input  textinput.Model

	status    string
	statusErr bool
	statusAt  time.Time

	ctx    context.Context
	cancel context.CancelFunc

	quitting bool
}

// New creates the host and its session. opts supplies transport, sound and
// presets; the surfaces are the terminal cell buffers.
func New(cfg Config, opts session.Options) *Model {
	if cfg.Theme == nil {
		cfg.Theme = theme.Default()
	}
	if cfg.FPS <= 0 {
		cfg.FPS = 30
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

	m := &Model{
		cfg:    cfg,
		th:     cfg.Theme,
		keys:   defaultKeys(),
		gutter: NewCells(cfg.Theme),
		ruler:  NewCells(cfg.Theme),
		grid:   NewCells(cfg.Theme),
		path:   cfg.Path,
	}
	opts.Gutter, opts.Ruler, opts.Grid = m.gutter, m.ruler, m.grid
	m.s = session.New(opts)
	m.ctx, m.cancel = context.WithCancel(context.Background())

	ti := textinput.New()
	ti.CharLimit = 256
	ti.Width = 60
	m.input = ti

	if cfg.Path == "" {
		m.loadBlank()
	}
	return m
}

// Session exposes the editing session
func (m *Model) Session() *session.Session { return m.s }

func (m *Model) loadBlank() {
	doc, err := score.NewEditorState(m.cfg.PPQ, m.cfg.BPM, nil)
	if err != nil {
		m.setError(err)
		return
	}
	if err := m.s.Load(doc); err != nil {
		m.setError(err)
	}
}

func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.tick()}
	if m.cfg.Path != "" {
		cmds = append(cmds, importCmd(m.cfg.Path))
	}
	return tea.Batch(cmds...)
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(time.Second/time.Duration(m.cfg.FPS), func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

func importCmd(path string) tea.Cmd {
	return func() tea.Msg {
		doc, err := session.DecodeFile(path)
		return loadedMsg{path: path, doc: doc, err: err}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.relayout()

	case frameMsg:
		m.frame()
		if m.quitting {
			return m, nil
		}
		return m, m.tick()

	case loadedMsg:
		err := msg.err
		if err == nil {
			err = m.s.Load(msg.doc)
		}
		if err != nil {
			m.setError(err)
			if !m.s.Loaded() {
				m.loadBlank()
			}
			return m, nil
		}
		m.opened(msg.path)

	case tea.MouseMsg:
		m.mouse(msg)

	case tea.KeyMsg:
		if m.prompt != promptNone {
			return m, m.updatePrompt(msg)
		}
		return m, m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) frame() {
	if m.kbd() != nil {
		for _, ev := range m.kbd().Drain() {
			if _, _, err := m.s.Record(ev); err != nil {
				m.setError(err)
			}
		}
	}
	m.s.FollowPlayhead()
	m.s.Loop().Step()
	m.markSelection()
	if m.status != "" && !m.statusErr && time.Since(m.statusAt) > 4*time.Second {
		m.status = ""
	}
}

func (m *Model) kbd() midi.Source { return m.cfg.Keyboard }

func (m *Model) markSelection() {
	n, ok := m.s.Note(m.selected)
	if !ok {
		return
	}
	v := m.s.View()
	x0 := v.TickToPixelX(float64(n.StartTick))
	x1 := v.TickToPixelX(float64(n.EndTick()))
	y := v.PitchToPixelY(float64(n.Pitch))
	m.grid.Select(image.Rect(int(math.Round(x0)), int(y), int(math.Round(x1)), int(y+viewport.RowHeight)))
}

func (m *Model) relayout() {
	rows := max(m.height-chromeLines, 0)
	m.s.Resize(float64(m.width*CellWidth), float64(rows*CellHeight), 1)
	m.input.Width = max(m.width-16, 10)
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	k := m.keys
	switch {
	case key.Matches(msg, k.Quit):
		return m.quit()
	case key.Matches(msg, k.Help):
		m.showHelp = !m.showHelp

	case key.Matches(msg, k.Prev):
		m.selectNote(m.s.NextByTime(m.selected, -1))
	case key.Matches(msg, k.Next):
		m.selectNote(m.s.NextByTime(m.selected, 1))
	case key.Matches(msg, k.Up):
		m.selectNote(m.s.NextByPitch(m.selected, 1))
	case key.Matches(msg, k.Down):
		m.selectNote(m.s.NextByPitch(m.selected, -1))

	case key.Matches(msg, k.MoveLeft):
		m.edit(m.s.MoveNote(m.selected, -1, 0))
	case key.Matches(msg, k.MoveRight):
		m.edit(m.s.MoveNote(m.selected, 1, 0))
	case key.Matches(msg, k.MoveUp):
		m.edit(m.s.MoveNote(m.selected, 0, 1))
	case key.Matches(msg, k.MoveDown):
		m.edit(m.s.MoveNote(m.selected, 0, -1))
	case key.Matches(msg, k.Shorter):
		m.edit(m.s.ResizeNote(m.selected, -1))
	case key.Matches(msg, k.Longer):
		m.edit(m.s.ResizeNote(m.selected, 1))
	case key.Matches(msg, k.Drum):
		m.edit(m.s.ToggleDrum(m.selected))
	case key.Matches(msg, k.DrumMode):
		m.drumEntry = !m.drumEntry
	case key.Matches(msg, k.Add):
		m.addAtPlayhead()
	case key.Matches(msg, k.Delete):
		m.deleteSelected()

	case key.Matches(msg, k.ZoomIn):
		m.s.Zoom(m.cfg.ZoomStep, m.anchorX())
	case key.Matches(msg, k.ZoomOut):
		m.s.Zoom(1/m.cfg.ZoomStep, m.anchorX())
	case key.Matches(msg, k.PanLeft):
		m.s.Pan(-m.s.View().Width/4, 0)
	case key.Matches(msg, k.PanRight):
		m.s.Pan(m.s.View().Width/4, 0)
	case key.Matches(msg, k.PanUp):
		m.s.Pan(0, -viewport.RowHeight*6)
	case key.Matches(msg, k.PanDown):
		m.s.Pan(0, viewport.RowHeight*6)
	case key.Matches(msg, k.Layout):
		mode := m.s.ToggleDisplayMode()
		m.setStatus("layout: %s", mode)

	case key.Matches(msg, k.Play):
		m.check(m.s.TogglePlay())
	case key.Matches(msg, k.Stop):
		m.check(m.s.Stop())
	case key.Matches(msg, k.Start):
		m.check(m.s.Seek(0))
		m.s.FocusTick(0)
	case key.Matches(msg, k.SeekSelected):
		if n, ok := m.s.Note(m.selected); ok {
			m.check(m.s.Seek(float64(n.StartTick)))
		}
	case key.Matches(msg, k.TempoUp):
		m.check(m.s.SetTempo(math.Round(m.s.BPM()) + 5))
	case key.Matches(msg, k.TempoDown):
		m.check(m.s.SetTempo(math.Max(math.Round(m.s.BPM())-5, 5)))
	case key.Matches(msg, k.Record):
		m.s.SetRecording(!m.s.Recording())

	case key.Matches(msg, k.Export):
		return m.openPrompt(promptExport, m.exportPath())
	case key.Matches(msg, k.Open):
		return m.openPrompt(promptOpen, m.path)
	}
	return nil
}

func (m *Model) quit() tea.Cmd {
	m.quitting = true
	m.cancel()
	m.s.Close()
	return tea.Quit
}

// anchorX zooms around the playhead when it is visible, else the grid centre
func (m *Model) anchorX() float64 {
	v := m.s.View()
	if x := v.TickToPixelX(m.s.CurrentTick()); x >= 0 && x < v.Width {
		return x
	}
	return v.Width / 2
}

func (m *Model) selectNote(n score.EditorNote, ok bool) {
	if !ok {
		return
	}
	m.selected = n.ID
	m.reveal(n)
}

// reveal scrolls just enough to bring n on screen
func (m *Model) reveal(n score.EditorNote) {
	v := m.s.View()
	start, end := v.VisibleTicks()
	if n.StartTick < start || n.StartTick >= end {
		m.s.FocusTick(float64(n.StartTick))
	}
	low, high := v.VisiblePitches()
	if n.Pitch < low || n.Pitch > high {
		m.s.FocusPitch(n.Pitch)
	}
}

func (m *Model) edit(n score.EditorNote, err error) {
	if err != nil {
		m.setError(err)
		return
	}
	m.selected = n.ID
	m.reveal(n)
}

// addAtPlayhead enters a note at the playhead and steps the playhead one
// grid step forward when stopped, for step entry
func (m *Model) addAtPlayhead() {
	tick := m.s.CurrentTick()
	pitch := m.defaultPitch()
	n, err := m.s.NewNoteAt(tick, pitch, m.drumEntry)
	if err != nil {
		m.setError(err)
		return
	}
	m.selected = n.ID
	m.reveal(n)
	if m.s.State() != session.StatePlaying {
		m.s.Seek(float64(n.StartTick + m.s.GridStep(n.IsDrum)))
	}
}

func (m *Model) defaultPitch() int {
	if n, ok := m.s.Note(m.selected); ok && n.IsDrum == m.drumEntry {
		return n.Pitch
	}
	if m.drumEntry {
		return int(m.s.Drums().KitMap().Slots[0])
	}
	low, high := m.s.View().VisiblePitches()
	return (low + high) / 2
}

func (m *Model) deleteSelected() {
	n, ok := m.s.Note(m.selected)
	if !ok {
		return
	}
	next, hasNext := m.s.NextByTime(n.ID, 1)
	if !hasNext || next.ID == n.ID {
		next, hasNext = m.s.NextByTime(n.ID, -1)
	}
	if _, err := m.s.RemoveNote(n.ID); err != nil {
		m.setError(err)
		return
	}
	m.selected = ""
	if hasNext && next.ID != n.ID {
		m.selected = next.ID
	}
}

func (m *Model) check(err error) {
	if err != nil {
		m.setError(err)
	}
}

func (m *Model) setStatus(format string, args ...any) {
	m.status = fmt.Sprintf(format, args...)
	m.statusErr = false
	m.statusAt = time.Now()
}

func (m *Model) setError(err error) {
	debug.Log("tui", "error: %v", err)
	m.status = err.Error()
	m.statusErr = true
	m.statusAt = time.Now()
}

func (m *Model) opened(path string) {
	m.path = path
	m.selected = ""
	m.setStatus("opened %s: %d notes", filepath.Base(path), len(m.s.Notes()))
}

func (m *Model) exportPath() string {
	if m.cfg.ExportPath != "" {
		return m.cfg.ExportPath
	}
	if m.path == "" {
		return "untitled.mid"
	}
	ext := filepath.Ext(m.path)
	return strings.TrimSuffix(m.path, ext) + "-edit" + ext
}

func (m *Model) openPrompt(p prompt, value string) tea.Cmd {
	m.prompt = p
	m.input.SetValue(value)
	m.input.CursorEnd()
	return m.input.Focus()
}

func (m *Model) updatePrompt(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.closePrompt()
		return nil
	case key.Matches(msg, m.keys.Confirm):
		path := strings.TrimSpace(m.input.Value())
		p := m.prompt
		m.closePrompt()
		if path == "" {
			return nil
		}
		if p == promptExport {
			m.export(path)
		} else {
			m.open(path)
		}
		return nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func (m *Model) closePrompt() {
	m.prompt = promptNone
	m.input.Blur()
	m.input.Reset()
}

// export and open finish on the frame loop, so their callbacks run inside
// a later frameMsg
func (m *Model) export(path string) {
	m.setStatus("exporting %s...", path)
	m.s.ExportAsync(m.ctx, path, func(err error) {
		if err != nil {
			m.setError(err)
			return
		}
		m.cfg.ExportPath = path
		m.setStatus("exported %s", path)
	})
}

func (m *Model) open(path string) {
	m.setStatus("opening %s...", path)
	m.s.ImportAsync(m.ctx, path, func(err error) {
		if err != nil {
			m.setError(err)
			return
		}
		m.opened(path)
	})
}

// locate maps a terminal cell to a surface, at the cell centre. The first
// line is the header.
func (m *Model) locate(cx, cy int) (render.Region, float64, float64) {
	x := float64(cx*CellWidth) + CellWidth/2
	y := float64((cy-1)*CellHeight) + CellHeight/2
	return m.s.Engine().Locate(x, y)
}

func (m *Model) mouse(msg tea.MouseMsg) {
	mods := viewport.Modifiers{Shift: msg.Shift, Ctrl: msg.Ctrl, Alt: msg.Alt}
	where, x, y := m.locate(msg.X, msg.Y)
	// drags follow the raw cell position so they keep working off-surface
	px, py := float64(msg.X*CellWidth), float64(msg.Y*CellHeight)

	switch msg.Button {
	case tea.MouseButtonWheelUp, tea.MouseButtonWheelDown:
		if msg.Action != tea.MouseActionPress || where != render.RegionGrid {
			return
		}
		notches := 1.0
		if msg.Button == tea.MouseButtonWheelUp {
			notches = -1
		}
		m.s.Wheel(notches, mods, x)
		return
	}

	switch msg.Action {
	case tea.MouseActionMotion:
		if m.s.Dragging() {
			m.s.DragTo(px, py)
		}
	case tea.MouseActionRelease:
		if m.s.Dragging() {
			m.s.EndDrag()
		}
	case tea.MouseActionPress:
		if m.s.BeginDrag(button(msg.Button), mods, px, py) {
			return
		}
		switch where {
		case render.RegionRuler:
			tick, _ := m.s.HitTest(x, 0)
			m.check(m.s.Seek(tick))
		case render.RegionGrid:
			m.click(msg.Button, x, y)
		}
	}
}

func (m *Model) click(b tea.MouseButton, x, y float64) {
	n, hit := m.s.NoteAt(x, y)
	switch b {
	case tea.MouseButtonLeft:
		if hit {
			m.selected = n.ID
			return
		}
		tick, pitch := m.s.HitTest(x, y)
		m.edit(m.s.NewNoteAt(tick, pitch, m.drumEntry))
	case tea.MouseButtonRight:
		if hit {
			m.selected = n.ID
			m.deleteSelected()
		}
	}
}

func button(b tea.MouseButton) viewport.Button {
	switch b {
	case tea.MouseButtonLeft:
		return viewport.ButtonLeft
	case tea.MouseButtonMiddle:
		return viewport.ButtonMiddle
	case tea.MouseButtonRight:
		return viewport.ButtonRight
	}
	return viewport.ButtonNone
}

func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	var out strings.Builder
	out.WriteString(m.header())
	out.WriteString("\n")

	if m.showHelp {
		out.WriteString(m.keys.helpView())
	} else {
		out.WriteString(m.rollView())
	}

	out.WriteString("\n")
	out.WriteString(m.statusLine())
	out.WriteString("\n")
	out.WriteString(m.footer())
	return out.String()
}

func (k keyMap) helpView() string {
	return lipgloss.NewStyle().Padding(0, 1).Render(widgets.RenderKeyHelp(k.sections()))
}

func (m *Model) header() string {
	sym := m.th.Symbols
	headerStyle := lipgloss.NewStyle().Foreground(m.th.Accent()).Bold(true)
	dimStyle := lipgloss.NewStyle().Foreground(m.th.Muted())
	recStyle := lipgloss.NewStyle().Foreground(m.th.Active()).Bold(true)

	state := sym.Stop
	switch m.s.State() {
	case session.StatePlaying:
		state = sym.Play
	case session.StatePaused:
		state = sym.Pause
	}

	name := "untitled"
	if m.path != "" {
		name = filepath.Base(m.path)
	}
	line := headerStyle.Render(fmt.Sprintf("go-pianoroll  %c %-7s %3.0fbpm  %s", state, m.s.State(), m.s.BPM(), score.Position(m.s.CurrentTick(), m.s.PPQ())))
	line += dimStyle.Render("  " + name)
	if m.drumEntry {
		line += dimStyle.Render("  [drums]")
	}
	if m.s.Recording() {
		line += recStyle.Render(fmt.Sprintf("  %c REC", sym.Record))
	}
	return line
}

func (m *Model) rollView() string {
	gutter := m.gutter.Lines()
	ruler := m.ruler.Lines()
	grid := m.grid.Lines()
	gutterCols, _ := m.gutter.Size()

	corner := lipgloss.NewStyle().Background(m.th.PaintColor(render.PaintRuler)).Render(strings.Repeat(" ", gutterCols))
	lines := make([]string, 0, len(ruler)+len(grid))
	for _, r := range ruler {
		lines = append(lines, corner+r)
	}
	for i, g := range grid {
		if i < len(gutter) {
			g = gutter[i] + g
		}
		lines = append(lines, g)
	}
	// keep the status line in place before the first frame is drawn
	for len(lines) < max(m.height-chromeLines, 0) {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func (m *Model) statusLine() string {
	if m.status != "" {
		st := lipgloss.NewStyle().Foreground(m.th.Success())
		if m.statusErr {
			st = lipgloss.NewStyle().Foreground(m.th.Warning())
		}
		return st.Render(m.status)
	}
	n, ok := m.s.Note(m.selected)
	if !ok {
		return lipgloss.NewStyle().Foreground(m.th.Muted()).Render(fmt.Sprintf("%d notes", len(m.s.Notes())))
	}
	kind := "melodic"
	if n.IsDrum {
		kind = "drum " + n.Class().String()
		if name := m.s.Drums().KitMap().NameOf(n.Pitch); name != "" {
			kind += " (" + name + ")"
		}
	}
	return lipgloss.NewStyle().Foreground(m.th.FG()).Render(fmt.Sprintf("%-4s %s  len %d  vel %.2f  %s",
		render.NoteName(n.Pitch), score.Position(float64(n.StartTick), m.s.PPQ()), n.DurationTicks, n.Velocity, kind))
}

func (m *Model) footer() string {
	switch m.prompt {
	case promptExport:
		return "export to: " + m.input.View()
	case promptOpen:
		return "open: " + m.input.View()
	}
	return lipgloss.NewStyle().Foreground(m.th.Muted()).Render(widgets.RenderKeyLine(m.width, m.keys.short()...))
}
