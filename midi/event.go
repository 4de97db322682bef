package midi

import "fmt"

// MIDI status nibbles
const (
	NoteOn  uint8 = 0x90
	NoteOff uint8 = 0x80
	CC      uint8 = 0xB0
)

// Reserved General MIDI percussion channel (10 in 1-based numbering)
const PercussionChannel uint8 = 9

// Controller numbers carried through import/export
const (
	CCModulation uint8 = 1
	CCExpression uint8 = 11
)

// Event is a live message from an input port
type Event struct {
	Type     uint8 // NoteOn, NoteOff, CC
	Channel  uint8
	Note     uint8 // controller number for CC
	Velocity uint8 // value for CC
}

// Starts reports whether the event begins a note
func (e Event) Starts() bool {
	return e.Type == NoteOn && e.Velocity > 0
}

// Ends reports whether the event releases a note (note-off or zero-velocity note-on)
func (e Event) Ends() bool {
	return e.Type == NoteOff || (e.Type == NoteOn && e.Velocity == 0)
}

func (e Event) String() string {
	switch {
	case e.Starts():
		return fmt.Sprintf("on ch%d %d vel %d", e.Channel, e.Note, e.Velocity)
	case e.Ends():
		return fmt.Sprintf("off ch%d %d", e.Channel, e.Note)
	case e.Type == CC:
		return fmt.Sprintf("cc ch%d #%d=%d", e.Channel, e.Note, e.Velocity)
	}
	return fmt.Sprintf("0x%02x ch%d", e.Type, e.Channel)
}

// VelocityToUnit maps a 1-127 velocity to 0-1
func VelocityToUnit(v uint8) float64 {
	return float64(min(v, 127)) / 127
}

// UnitToVelocity maps 0-1 to a sounding velocity, never 0
func UnitToVelocity(v float64) uint8 {
	x := int(v*127 + 0.5)
	return uint8(min(max(x, 1), 127))
}

// UnitToCC maps 0-1 to a 0-127 controller value
func UnitToCC(v float64) uint8 {
	x := int(v*127 + 0.5)
	return uint8(min(max(x, 0), 127))
}
