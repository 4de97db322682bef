package style

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestBuiltinPresets(t *testing.T) {
	lib := Builtin()
	if len(lib.Names()) == 0 {
		t.Fatal("no builtin presets")
	}
	m, err := lib.Melodic("straight")
	if err != nil {
		t.Fatalf("Melodic: %v", err)
	}
	if m.GridTicks(480) != 120 || m.LengthTicks(480) != 240 {
		t.Fatalf("grid = %d, length = %d", m.GridTicks(480), m.LengthTicks(480))
	}
	d, err := lib.Drums("gm-16")
	if err != nil {
		t.Fatalf("Drums: %v", err)
	}
	if d.KitMap().NameOf(36) != "Kick" {
		t.Fatalf("kit not resolved: %+v", d.KitMap())
	}
	if _, err := lib.Drums("straight"); err == nil {
		t.Fatal("melodic preset returned as drums")
	}
}

func TestQuantize(t *testing.T) {
	c := Common{Grid: 4}
	tests := []struct {
		tick int64
		want int64
	}{
		{0, 0}, {119, 0}, {120, 120}, {250, 240}, {-5, 0},
	}
	for _, tt := range tests {
		if got := c.Quantize(tt.tick, 480); got != tt.want {
			t.Errorf("Quantize(%d) = %d, want %d", tt.tick, got, tt.want)
		}
	}
	if got := c.QuantizeNearest(179, 480); got != 120 {
		t.Errorf("QuantizeNearest(179) = %d", got)
	}
	if got := c.QuantizeNearest(181, 480); got != 240 {
		t.Errorf("QuantizeNearest(181) = %d", got)
	}
	// grid finer than the resolution still advances
	if (Common{Grid: 32}).GridTicks(8) != 1 {
		t.Errorf("grid step collapsed to zero")
	}
}

func TestDrumAccent(t *testing.T) {
	d := &Drums{Common: Common{Velocity: 0.6}, Accent: 1}
	if d.VelocityAt(480, 480) != 1 || d.VelocityAt(120, 480) != 0.6 {
		t.Fatalf("accent not applied on beats only")
	}
}

func TestParseRejectsSchemaViolations(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown category", "presets:\n  - {name: a, category: strings, grid: 4, length: 1, velocity: 1}\n", "unknown category"},
		{"key from other variant", "presets:\n  - {name: a, category: melodic, grid: 4, length: 1, velocity: 1, kit: gm}\n", `key "kit"`},
		{"missing kit", "presets:\n  - {name: a, category: drums, grid: 4, length: 1, velocity: 1}\n", "missing kit"},
		{"unknown kit", "presets:\n  - {name: a, category: drums, grid: 4, length: 1, velocity: 1, kit: nope}\n", "unknown kit"},
		{"bad velocity", "presets:\n  - {name: a, category: melodic, grid: 4, length: 1, velocity: 3}\n", "velocity"},
		{"bad range", "presets:\n  - {name: a, category: melodic, grid: 4, length: 1, velocity: 1, low: 90, high: 10}\n", "pitch range"},
		{"duplicate", "presets:\n  - {name: a, category: melodic, grid: 4, length: 1, velocity: 1}\n  - {name: a, category: melodic, grid: 4, length: 1, velocity: 1}\n", "duplicate"},
		{"unknown top-level", "colors: {}\n", "colors"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if !errors.Is(err, ErrInvalidPreset) {
				t.Fatalf("err = %v, want ErrInvalidPreset", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestLoadFileLayersOverBuiltin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.yaml")
	data := `
kits:
  - name: mine
    title: My kit
    slots: [35, 38, 42, 46, 41, 43, 45, 49, 51, 39, 37, 56, 75, 70, 64, 63]
presets:
  - name: straight
    category: melodic
    grid: 8
    length: 1
    velocity: 0.5
  - name: mine-16
    category: drums
    grid: 4
    length: 1
    velocity: 0.8
    kit: mine
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	lib, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	m, err := lib.Melodic("straight")
	if err != nil || m.Grid != 8 {
		t.Fatalf("override not applied: %+v, %v", m, err)
	}
	// range defaults to the full keyboard
	if m.Low != 0 || m.High != 127 {
		t.Fatalf("range = %d-%d", m.Low, m.High)
	}
	d, err := lib.Drums("mine-16")
	if err != nil || d.KitMap().NameOf(35) != "Kick" {
		t.Fatalf("user kit not resolved: %v", err)
	}
	if _, ok := lib.Kit("gm"); !ok {
		t.Fatal("builtin kit lost after merge")
	}
	if _, err := lib.Melodic("bass"); err != nil {
		t.Fatal("builtin preset lost after merge")
	}
}
