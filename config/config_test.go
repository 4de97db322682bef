package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if *cfg != *DefaultConfig() {
		t.Fatalf("cfg = %+v, want defaults", cfg)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg := DefaultConfig()
	cfg.MIDI.OutputPort = "IAC Driver Bus 1"
	cfg.Transport.BPM = 98
	cfg.View.Compact = true
	cfg.Style.File = "~/presets.yaml"
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	path, _ := ConfigPath()
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config not written: %v", err)
	}
	got, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if *got != *cfg {
		t.Fatalf("got %+v, want %+v", got, cfg)
	}

	home, _ := os.UserHomeDir()
	if p, _ := got.PresetsPath(); p != filepath.Join(home, "presets.yaml") {
		t.Fatalf("PresetsPath = %q", p)
	}
}

func TestPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := "[transport]\nbpm = 140\n\n[view]\nfps = 30\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Transport.BPM != 140 || cfg.View.FPS != 30 {
		t.Fatalf("values not read: %+v", cfg)
	}
	if cfg.Transport.PPQ != 480 || cfg.Style.Melodic != "straight" {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}

func TestValidateResetsNonsense(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Transport.BPM = -3
	cfg.Transport.PPQ = 0
	cfg.View.PixelsPerTick = 100
	cfg.View.ZoomStep = 0.5
	cfg.View.FPS = 0
	cfg.Style.Drums = " "
	cfg.Validate()
	if *cfg != *DefaultConfig() {
		t.Fatalf("cfg = %+v, want defaults", cfg)
	}
}

func TestMalformedFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[transport\nbpm = "), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(path); err == nil {
		t.Fatal("expected parse error")
	}
}
