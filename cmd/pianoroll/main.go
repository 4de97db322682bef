package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"go-pianoroll/app"
	"go-pianoroll/config"
	"go-pianoroll/debug"
	"go-pianoroll/tui"
)

func main() {
	debugFlag := flag.Bool("debug", false, "write the debug log")
	configPath := flag.String("config", "", "config file (default ~/.config/go-pianoroll/config.toml)")
	exportPath := flag.String("o", "", "default export path")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: pianoroll [flags] [file.mid]\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Error: config: %v\n", err)
		os.Exit(1)
	}
	if *debugFlag || cfg.Debug.Enabled {
		if err := debug.Enable(); err != nil {
			fmt.Printf("Warning: debug log: %v\n", err)
		}
		defer debug.Disable()
	}

	env, err := app.Setup(cfg)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	defer env.Close()
	for _, w := range env.Warnings {
		fmt.Printf("Warning: %s\n", w)
	}

	m := tui.New(tui.Config{
		Theme:      env.Theme,
		FPS:        cfg.View.FPS,
		ZoomStep:   cfg.View.ZoomStep,
		Path:       flag.Arg(0),
		ExportPath: *exportPath,
		PPQ:        cfg.Transport.PPQ,
		BPM:        cfg.Transport.BPM,
		Keyboard:   env.Keyboard,
	}, env.Options)

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}
