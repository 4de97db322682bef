// Package style loads editing presets: the quantize grid, default note length
// and velocity used when notes are entered by hand or recorded.
package style

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ErrInvalidPreset is returned when preset data does not match the schema
var ErrInvalidPreset = errors.New("invalid preset")

// Category tags a preset variant
type Category string

const (
	CategoryMelodic Category = "melodic"
	CategoryDrums   Category = "drums"
)

// Common holds the keys every preset has
type Common struct {
	Name     string   `yaml:"name"`
	Category Category `yaml:"category"`
	Grid     int      `yaml:"grid"`   // steps per beat
	Length   int      `yaml:"length"` // default note length in steps
	Velocity float64  `yaml:"velocity"`
}

// GridTicks is one grid step at the given resolution, at least one tick
func (c Common) GridTicks(ppq int) int64 {
	return max(int64(ppq)/int64(max(c.Grid, 1)), 1)
}

// Quantize snaps tick down to the grid
func (c Common) Quantize(tick int64, ppq int) int64 {
	if tick <= 0 {
		return 0
	}
	step := c.GridTicks(ppq)
	return tick / step * step
}

// QuantizeNearest snaps tick to the closest grid line
func (c Common) QuantizeNearest(tick float64, ppq int) int64 {
	step := float64(c.GridTicks(ppq))
	q := int64(tick/step+0.5) * int64(step)
	return max(q, 0)
}

// LengthTicks is the default note length
func (c Common) LengthTicks(ppq int) int64 {
	return c.GridTicks(ppq) * int64(max(c.Length, 1))
}

func (c Common) validate() error {
	switch {
	case c.Name == "":
		return fmt.Errorf("%w: missing name", ErrInvalidPreset)
	case c.Grid < 1 || c.Grid > 32:
		return fmt.Errorf("%w: %s: grid %d out of range 1-32", ErrInvalidPreset, c.Name, c.Grid)
	case c.Length < 1:
		return fmt.Errorf("%w: %s: length must be at least one step", ErrInvalidPreset, c.Name)
	case !(c.Velocity > 0 && c.Velocity <= 1):
		return fmt.Errorf("%w: %s: velocity %v out of range (0,1]", ErrInvalidPreset, c.Name, c.Velocity)
	}
	return nil
}

// Preset is one of *Melodic or *Drums
type Preset interface {
	Base() Common
	Validate() error
}

// Melodic presets constrain hand-entered pitches to a range
type Melodic struct {
	Common `yaml:",inline"`
	Low    int `yaml:"low"`
	High   int `yaml:"high"`
}

func (m *Melodic) Base() Common { return m.Common }

func (m *Melodic) Validate() error {
	if err := m.Common.validate(); err != nil {
		return err
	}
	if m.Low < 0 || m.High > 127 || m.Low > m.High {
		return fmt.Errorf("%w: %s: pitch range %d-%d", ErrInvalidPreset, m.Name, m.Low, m.High)
	}
	return nil
}

// ClampPitch keeps pitch inside the preset range
func (m *Melodic) ClampPitch(pitch int) int {
	return min(max(pitch, m.Low), m.High)
}

// Drums presets pick a kit and accent on-beat hits
type Drums struct {
	Common `yaml:",inline"`
	Kit    string  `yaml:"kit"`
	Accent float64 `yaml:"accent"`

	kit Kit
}

func (d *Drums) Base() Common { return d.Common }

func (d *Drums) Validate() error {
	if err := d.Common.validate(); err != nil {
		return err
	}
	if d.Kit == "" {
		return fmt.Errorf("%w: %s: missing kit", ErrInvalidPreset, d.Name)
	}
	if d.Accent != 0 && !(d.Accent > 0 && d.Accent <= 1) {
		return fmt.Errorf("%w: %s: accent %v out of range (0,1]", ErrInvalidPreset, d.Name, d.Accent)
	}
	return nil
}

// KitMap returns the resolved kit
func (d *Drums) KitMap() Kit {
	return d.kit
}

// VelocityAt returns the accent velocity on beats, the base velocity elsewhere
func (d *Drums) VelocityAt(tick int64, ppq int) float64 {
	if d.Accent > 0 && ppq > 0 && tick%int64(ppq) == 0 {
		return d.Accent
	}
	return d.Velocity
}

// allowed keys per category
var schema = map[Category][]string{
	CategoryMelodic: {"name", "category", "grid", "length", "velocity", "low", "high"},
	CategoryDrums:   {"name", "category", "grid", "length", "velocity", "kit", "accent"},
}

// Library is a validated set of presets and kits
type Library struct {
	presets map[string]Preset
	order   []string
	kits    map[string]Kit
}

type document struct {
	Presets []yaml.Node `yaml:"presets"`
	Kits    []Kit       `yaml:"kits"`
}

//go:embed builtin.yaml
var builtinYAML []byte

// Builtin returns the embedded presets
func Builtin() *Library {
	lib, err := Parse(builtinYAML)
	if err != nil {
		panic(fmt.Errorf("failed to load builtin presets: %w", err))
	}
	return lib
}

// LoadFile parses a preset file and layers it over the built-in presets
func LoadFile(path string) (*Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	user, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	lib := Builtin()
	lib.Merge(user)
	return lib, nil
}

// Parse decodes and validates preset YAML. Each preset is checked against
// the key set of its category; unknown keys are rejected.
func Parse(data []byte) (*Library, error) {
	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPreset, err)
	}

	lib := &Library{presets: map[string]Preset{}, kits: map[string]Kit{}}
	for name, k := range builtinKits {
		lib.kits[name] = k
	}
	for _, k := range doc.Kits {
		if k.Name == "" {
			return nil, fmt.Errorf("%w: kit without name", ErrInvalidPreset)
		}
		lib.kits[k.Name] = k
	}

	for i := range doc.Presets {
		p, err := decodePreset(&doc.Presets[i])
		if err != nil {
			return nil, err
		}
		if err := lib.add(p); err != nil {
			return nil, err
		}
	}
	return lib, nil
}

func decodePreset(node *yaml.Node) (Preset, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: line %d: preset must be a mapping", ErrInvalidPreset, node.Line)
	}
	var tag struct {
		Category Category `yaml:"category"`
	}
	if err := node.Decode(&tag); err != nil {
		return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidPreset, node.Line, err)
	}
	allowed, ok := schema[tag.Category]
	if !ok {
		return nil, fmt.Errorf("%w: line %d: unknown category %q", ErrInvalidPreset, node.Line, tag.Category)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i]
		if !slices.Contains(allowed, key.Value) {
			return nil, fmt.Errorf("%w: line %d: key %q not allowed for %s presets", ErrInvalidPreset, key.Line, key.Value, tag.Category)
		}
	}

	var p Preset
	switch tag.Category {
	case CategoryMelodic:
		m := &Melodic{Low: 0, High: 127}
		if err := node.Decode(m); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidPreset, node.Line, err)
		}
		p = m
	case CategoryDrums:
		d := &Drums{}
		if err := node.Decode(d); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidPreset, node.Line, err)
		}
		p = d
	}
	return p, p.Validate()
}

func (l *Library) add(p Preset) error {
	name := p.Base().Name
	if _, dup := l.presets[name]; dup {
		return fmt.Errorf("%w: duplicate preset %q", ErrInvalidPreset, name)
	}
	if d, ok := p.(*Drums); ok {
		k, ok := l.kits[d.Kit]
		if !ok {
			return fmt.Errorf("%w: %s: unknown kit %q", ErrInvalidPreset, name, d.Kit)
		}
		d.kit = k
	}
	l.presets[name] = p
	l.order = append(l.order, name)
	return nil
}

// Merge adds other's kits and presets, replacing same-named entries
func (l *Library) Merge(other *Library) {
	for name, k := range other.kits {
		l.kits[name] = k
	}
	for _, name := range other.order {
		if _, ok := l.presets[name]; !ok {
			l.order = append(l.order, name)
		}
		l.presets[name] = other.presets[name]
	}
}

// Names lists preset names in definition order
func (l *Library) Names() []string {
	return slices.Clone(l.order)
}

// Get looks up a preset by name
func (l *Library) Get(name string) (Preset, bool) {
	p, ok := l.presets[name]
	return p, ok
}

// Melodic returns the named melodic preset
func (l *Library) Melodic(name string) (*Melodic, error) {
	p, ok := l.presets[name]
	if !ok {
		return nil, fmt.Errorf("preset %q not found", name)
	}
	m, ok := p.(*Melodic)
	if !ok {
		return nil, fmt.Errorf("preset %q is not melodic", name)
	}
	return m, nil
}

// Drums returns the named drum preset
func (l *Library) Drums(name string) (*Drums, error) {
	p, ok := l.presets[name]
	if !ok {
		return nil, fmt.Errorf("preset %q not found", name)
	}
	d, ok := p.(*Drums)
	if !ok {
		return nil, fmt.Errorf("preset %q is not a drum preset", name)
	}
	return d, nil
}

// Kit looks up a kit by name
func (l *Library) Kit(name string) (Kit, bool) {
	k, ok := l.kits[name]
	return k, ok
}

// KitNames lists the available kits, sorted
func (l *Library) KitNames() []string {
	names := make([]string, 0, len(l.kits))
	for name := range l.kits {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
