package tui

import (
	"github.com/charmbracelet/bubbles/key"

	"go-pianoroll/widgets"
)

func bind(help string, keys ...string) key.Binding {
	return key.NewBinding(key.WithKeys(keys...), key.WithHelp(keys[0], help))
}

type keyMap struct {
	Quit key.Binding
	Help key.Binding

	Prev, Next, Up, Down                  key.Binding
	MoveLeft, MoveDown, MoveUp, MoveRight key.Binding
	Shorter, Longer                       key.Binding
	Add, Delete, Drum, DrumMode           key.Binding

	ZoomOut, ZoomIn                     key.Binding
	PanLeft, PanRight, PanDown, PanUp   key.Binding
	Layout                              key.Binding

	Play, Stop, Start, SeekSelected key.Binding
	TempoDown, TempoUp              key.Binding
	Record                          key.Binding

	Open, Export key.Binding

	Confirm, Cancel key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Quit: bind("quit", "ctrl+c", "q"),
		Help: bind("help", "?"),

		Prev: bind("prev note", "h", "left"),
		Next: bind("next note", "l", "right"),
		Up:   bind("note above", "k", "up"),
		Down: bind("note below", "j", "down"),

		MoveLeft:  bind("move earlier", "y"),
		MoveDown:  bind("move down", "u"),
		MoveUp:    bind("move up", "i"),
		MoveRight: bind("move later", "o"),
		Shorter:   bind("shorter", "n"),
		Longer:    bind("longer", "m"),

		Add:      key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "add note")),
		Delete:   bind("delete", "x", "delete"),
		Drum:     bind("drum/melodic", "d"),
		DrumMode: bind("drum entry", "D"),

		ZoomOut:  bind("zoom out", "-"),
		ZoomIn:   bind("zoom in", "=", "+"),
		PanLeft:  bind("scroll left", "H"),
		PanRight: bind("scroll right", "L"),
		PanDown:  bind("scroll down", "J"),
		PanUp:    bind("scroll up", "K"),
		Layout:   bind("compact", "tab"),

		Play:         bind("play/pause", "p"),
		Stop:         bind("stop", "s"),
		Start:        bind("to start", "0", "home"),
		SeekSelected: bind("to note", "g"),
		TempoDown:    bind("tempo -5", "["),
		TempoUp:      bind("tempo +5", "]"),
		Record:       bind("record", "r"),

		Open:   bind("open", "ctrl+o"),
		Export: bind("export", "e"),

		Confirm: bind("ok", "enter"),
		Cancel:  bind("cancel", "esc"),
	}
}

// short is the one-line footer
func (k keyMap) short() []key.Binding {
	return []key.Binding{k.Play, k.Add, k.Delete, k.Prev, k.Next, k.ZoomIn, k.ZoomOut, k.Export, k.Help, k.Quit}
}

func (k keyMap) sections() []widgets.KeySection {
	return []widgets.KeySection{
		widgets.Section("Select", k.Prev, k.Next, k.Up, k.Down),
		widgets.Section("Edit", k.Add, k.Delete, k.MoveLeft, k.MoveRight, k.MoveUp, k.MoveDown, k.Shorter, k.Longer, k.Drum, k.DrumMode),
		widgets.Section("View", k.ZoomIn, k.ZoomOut, k.PanLeft, k.PanRight, k.PanUp, k.PanDown, k.Layout),
		widgets.Section("Transport", k.Play, k.Stop, k.Start, k.SeekSelected, k.TempoUp, k.TempoDown, k.Record),
		widgets.Section("File", k.Open, k.Export, k.Help, k.Quit),
	}
}
