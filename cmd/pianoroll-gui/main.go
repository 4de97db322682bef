package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hajimehoshi/ebiten/v2"

	"go-pianoroll/app"
	"go-pianoroll/config"
	"go-pianoroll/debug"
	"go-pianoroll/gui"
)

const (
	windowW = 1280
	windowH = 720
)

func main() {
	debugFlag := flag.Bool("debug", false, "write the debug log")
	configPath := flag.String("config", "", "config file (default ~/.config/go-pianoroll/config.toml)")
	exportPath := flag.String("o", "", "export path for ctrl+s")
	flag.Parse()

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFrom(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *debugFlag || cfg.Debug.Enabled {
		if err := debug.Enable(); err != nil {
			fmt.Fprintf(os.Stderr, "debug log: %v\n", err)
		}
		defer debug.Disable()
	}

	env, err := app.Setup(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	defer env.Close()
	for _, w := range env.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}

	g := gui.New(gui.Config{
		Theme:      env.Theme,
		Scale:      cfg.View.Scale,
		ZoomStep:   cfg.View.ZoomStep,
		Path:       flag.Arg(0),
		ExportPath: *exportPath,
		PPQ:        cfg.Transport.PPQ,
		BPM:        cfg.Transport.BPM,
		Keyboard:   env.Keyboard,
	}, env.Options)
	defer g.Close()

	title := "go-pianoroll"
	if flag.Arg(0) != "" {
		title += " - " + filepath.Base(flag.Arg(0))
	}
	ebiten.SetWindowSize(windowW, windowH)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowTitle(title)
	ebiten.SetTPS(cfg.View.FPS)
	if err := ebiten.RunGame(g); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}
