package midi

import (
	"fmt"
	"strings"

	"go-pianoroll/debug"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// KeyboardInput listens to a MIDI keyboard and forwards note events
type KeyboardInput struct {
	name     string
	stopFunc func()

	events chan Event
}

// NewKeyboardInput starts listening on inPort. A nil port gives an input that
// never produces events.
func NewKeyboardInput(inPort drivers.In) (*KeyboardInput, error) {
	return listen(inPort, make(chan Event, 64))
}

// listen forwards inPort into events, which may be shared between inputs
func listen(inPort drivers.In, events chan Event) (*KeyboardInput, error) {
	kb := &KeyboardInput{events: events}
	if inPort == nil {
		return kb, nil
	}
	kb.name = inPort.String()

	stop, err := gomidi.ListenTo(inPort, func(msg gomidi.Message, timestampms int32) {
		if ev, ok := eventOf(msg); ok {
			kb.push(ev)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	kb.stopFunc = stop
	debug.Log("midi", "keyboard listening: %s", kb.name)
	return kb, nil
}

// OpenKeyboardInput opens the first input whose name contains match
// (case-insensitive), or the first input if match is empty
func OpenKeyboardInput(match string) (*KeyboardInput, error) {
	ports, err := ListPorts()
	if err != nil {
		return nil, err
	}
	match = strings.ToLower(match)
	for _, in := range ports.Ins {
		if match == "" || strings.Contains(strings.ToLower(in.String()), match) {
			return NewKeyboardInput(in)
		}
	}
	return nil, fmt.Errorf("midi input %q not found", match)
}

// Name is the port name
func (kb *KeyboardInput) Name() string {
	return kb.name
}

// Events delivers note-on, note-off and CC events. Events are dropped when
// the consumer falls behind.
func (kb *KeyboardInput) Events() <-chan Event {
	return kb.events
}

// Drain returns all queued events without blocking
func (kb *KeyboardInput) Drain() []Event {
	var out []Event
	for {
		select {
		case ev := <-kb.events:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func (kb *KeyboardInput) push(ev Event) {
	select {
	case kb.events <- ev:
	default:
		debug.Log("midi", "keyboard queue full, dropped %v", ev)
	}
}

// Close stops listening
func (kb *KeyboardInput) Close() error {
	if kb.stopFunc != nil {
		kb.stopFunc()
		kb.stopFunc = nil
	}
	return nil
}

func eventOf(msg gomidi.Message) (Event, bool) {
	var channel, note, velocity uint8
	switch {
	case msg.GetNoteStart(&channel, &note, &velocity):
		return Event{Type: NoteOn, Channel: channel, Note: note, Velocity: velocity}, true
	case msg.GetNoteEnd(&channel, &note):
		return Event{Type: NoteOff, Channel: channel, Note: note}, true
	case msg.GetControlChange(&channel, &note, &velocity):
		return Event{Type: CC, Channel: channel, Note: note, Velocity: velocity}, true
	}
	return Event{}, false
}
