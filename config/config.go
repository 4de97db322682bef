package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// MIDIConfig selects the ports used for playback and recording
type MIDIConfig struct {
	OutputPort string `toml:"output_port"` // empty: first available
	InputPort  string `toml:"input_port"`  // substring match, empty: none
	Enabled    bool   `toml:"enabled"`
}

// TransportConfig holds defaults for new documents
type TransportConfig struct {
	BPM       float64 `toml:"bpm"`
	PPQ       int     `toml:"ppq"`
	Lookahead int     `toml:"lookahead"` // ticks scheduled ahead of the playhead
}

// ViewConfig stores viewport preferences
type ViewConfig struct {
	PixelsPerTick float64 `toml:"pixels_per_tick"`
	ZoomStep      float64 `toml:"zoom_step"`
	MinZoom       float64 `toml:"min_zoom"`
	MaxZoom       float64 `toml:"max_zoom"`
	FPS           int     `toml:"fps"`
	Scale         float64 `toml:"scale"` // 0: use the device scale factor
	WheelStep     float64 `toml:"wheel_step"`
	Compact       bool    `toml:"compact"`
	Palette       string  `toml:"palette,omitempty"` // built-in name or .gpl path
}

// StyleConfig names the editing presets
type StyleConfig struct {
	Melodic string `toml:"melodic"`
	Drums   string `toml:"drums"`
	File    string `toml:"file,omitempty"` // extra presets, layered over the built-in ones
}

// DebugConfig toggles the debug log
type DebugConfig struct {
	Enabled bool `toml:"enabled"`
}

// Config is the main configuration structure
type Config struct {
	MIDI      MIDIConfig      `toml:"midi"`
	Transport TransportConfig `toml:"transport"`
	View      ViewConfig      `toml:"view"`
	Style     StyleConfig     `toml:"style"`
	Debug     DebugConfig     `toml:"debug"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		MIDI: MIDIConfig{Enabled: true},
		Transport: TransportConfig{
			BPM:       120,
			PPQ:       480,
			Lookahead: 120,
		},
		View: ViewConfig{
			PixelsPerTick: 0.1,
			ZoomStep:      1.25,
			MinZoom:       0.005,
			MaxZoom:       8,
			FPS:           60,
			WheelStep:     36,
		},
		Style: StyleConfig{
			Melodic: "straight",
			Drums:   "gm-16",
		},
	}
}

// Validate resets out-of-range values to their defaults
func (c *Config) Validate() {
	d := DefaultConfig()
	if !(c.Transport.BPM > 0 && c.Transport.BPM <= 999) {
		c.Transport.BPM = d.Transport.BPM
	}
	if c.Transport.PPQ <= 0 || c.Transport.PPQ > 0x7FFF {
		c.Transport.PPQ = d.Transport.PPQ
	}
	if c.Transport.Lookahead < 0 {
		c.Transport.Lookahead = d.Transport.Lookahead
	}
	if !(c.View.MinZoom > 0) || c.View.MaxZoom < c.View.MinZoom {
		c.View.MinZoom, c.View.MaxZoom = d.View.MinZoom, d.View.MaxZoom
	}
	if !(c.View.PixelsPerTick >= c.View.MinZoom && c.View.PixelsPerTick <= c.View.MaxZoom) {
		c.View.PixelsPerTick = d.View.PixelsPerTick
	}
	if !(c.View.ZoomStep > 1) {
		c.View.ZoomStep = d.View.ZoomStep
	}
	if c.View.FPS < 1 || c.View.FPS > 240 {
		c.View.FPS = d.View.FPS
	}
	if c.View.Scale < 0 {
		c.View.Scale = 0
	}
	if !(c.View.WheelStep > 0) {
		c.View.WheelStep = d.View.WheelStep
	}
	if strings.TrimSpace(c.Style.Melodic) == "" {
		c.Style.Melodic = d.Style.Melodic
	}
	if strings.TrimSpace(c.Style.Drums) == "" {
		c.Style.Drums = d.Style.Drums
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "go-pianoroll"), nil
}

// ConfigPath returns the full path to config.toml
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads the config from disk, or returns defaults if not found
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads a config file. Keys missing from the file keep their defaults.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return cfg, nil
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.Validate()
	return cfg, nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the config to path, creating its directory
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// PresetsPath resolves the style file, expanding a leading ~/
func (c *Config) PresetsPath() (string, error) {
	path := strings.TrimSpace(c.Style.File)
	if path == "" {
		return "", nil
	}
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(home, path[2:])
	}
	return path, nil
}
