// Package app turns the configuration into a ready session environment for
// the terminal and window hosts.
package app

import (
	"context"
	"fmt"

	"go-pianoroll/config"
	"go-pianoroll/debug"
	"go-pianoroll/midi"
	"go-pianoroll/render"
	"go-pianoroll/session"
	"go-pianoroll/style"
	"go-pianoroll/theme"
	"go-pianoroll/transport"
)

// Env is what a host needs to start editing
type Env struct {
	Config  *config.Config
	Theme   *theme.Theme
	Options session.Options

	// Keyboard is nil unless an input port is configured
	Keyboard midi.Source

	// Warnings are setup problems the editor can run without, like a
	// missing output port
	Warnings []string

	cancel  context.CancelFunc
	closers []func() error
	midi    bool
}

// Setup resolves presets and palette, and opens MIDI ports when enabled.
// Only configuration errors are fatal; port errors become warnings.
func Setup(cfg *config.Config) (*Env, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	env := &Env{Config: cfg}

	lib := style.Builtin()
	path, err := cfg.PresetsPath()
	if err != nil {
		return nil, err
	}
	if path != "" {
		if lib, err = style.LoadFile(path); err != nil {
			return nil, err
		}
	}
	melodic, err := lib.Melodic(cfg.Style.Melodic)
	if err != nil {
		return nil, err
	}
	drums, err := lib.Drums(cfg.Style.Drums)
	if err != nil {
		return nil, err
	}

	if env.Theme, err = theme.Load(cfg.View.Palette); err != nil {
		return nil, fmt.Errorf("palette: %w", err)
	}

	clock := transport.NewClock()
	clock.SetBPM(cfg.Transport.BPM)
	env.Options = session.Options{
		Transport:     clock,
		Melodic:       melodic,
		Drums:         drums,
		PixelsPerTick: cfg.View.PixelsPerTick,
		MinZoom:       cfg.View.MinZoom,
		MaxZoom:       cfg.View.MaxZoom,
		WheelStep:     cfg.View.WheelStep,
		Lookahead:     int64(cfg.Transport.Lookahead),
	}
	if cfg.View.Compact {
		env.Options.Mode = render.ModeCompact
	}

	if !cfg.MIDI.Enabled {
		return env, nil
	}
	env.midi = true

	out, err := midi.OpenPortOutput(cfg.MIDI.OutputPort, clock.CurrentSeconds)
	if err != nil {
		env.warn("no sound: %v", err)
	} else {
		env.Options.Sound = out
		env.closers = append(env.closers, out.Close)
	}

	if cfg.MIDI.InputPort != "" {
		ctx, cancel := context.WithCancel(context.Background())
		mgr := midi.NewInputManager(cfg.MIDI.InputPort)
		go mgr.Run(ctx)
		env.Keyboard = mgr
		env.cancel = cancel
	}
	return env, nil
}

func (e *Env) warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	debug.Log("app", "%s", msg)
	e.Warnings = append(e.Warnings, msg)
}

// Close releases ports in reverse order of opening
func (e *Env) Close() {
	if e.cancel != nil {
		e.cancel()
	}
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			debug.Log("app", "close: %v", err)
		}
	}
	e.closers = nil
	if e.midi {
		midi.CloseDriver()
	}
}
