package midi

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go-pianoroll/debug"
)

// Source is anything that queues live note input for the frame loop
type Source interface {
	Drain() []Event
}

// DeviceEvent is emitted when an input port connects or disconnects
type DeviceEvent struct {
	Type DeviceEventType
	Name string
}

type DeviceEventType int

const (
	DeviceConnected DeviceEventType = iota
	DeviceDisconnected
)

func (t DeviceEventType) String() string {
	if t == DeviceDisconnected {
		return "disconnected"
	}
	return "connected"
}

// InputManager handles hot-plug of MIDI keyboards. Every input whose name
// contains the match string (all inputs when empty) is opened as it appears
// and closed when it goes away. Events of all inputs share one queue.
type InputManager struct {
	match    string
	pollRate time.Duration

	events  chan Event
	devices chan DeviceEvent

	mu     sync.RWMutex
	inputs map[string]*KeyboardInput

	portNames func() ([]string, error)
	open      func(name string, events chan Event) (*KeyboardInput, error)
}

// NewInputManager creates a manager for inputs matching match
// (case-insensitive). Call Run to start scanning.
func NewInputManager(match string) *InputManager {
	return &InputManager{
		match:     strings.ToLower(match),
		pollRate:  time.Second,
		events:    make(chan Event, 256),
		devices:   make(chan DeviceEvent, 16),
		inputs:    make(map[string]*KeyboardInput),
		portNames: inputNames,
		open:      openNamed,
	}
}

// Devices returns a channel of connect/disconnect events. It is closed when
// Run returns.
func (m *InputManager) Devices() <-chan DeviceEvent {
	return m.devices
}

// Inputs returns the names of the open inputs, sorted
func (m *InputManager) Inputs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.inputs))
	for name := range m.inputs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Drain returns all queued events of every input without blocking
func (m *InputManager) Drain() []Event {
	var out []Event
	for {
		select {
		case ev := <-m.events:
			out = append(out, ev)
		default:
			return out
		}
	}
}

// Run starts the polling loop (blocking - run in goroutine)
func (m *InputManager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.pollRate)
	defer ticker.Stop()

	m.scan()

	for {
		select {
		case <-ctx.Done():
			m.closeAll()
			close(m.devices)
			return
		case <-ticker.C:
			m.scan()
		}
	}
}

func (m *InputManager) scan() {
	names, err := m.portNames()
	if err != nil {
		// a hung driver skips this scan and keeps what is open
		debug.Log("midi", "scan: %v", err)
		return
	}

	seen := make(map[string]bool)
	for _, name := range names {
		if m.match != "" && !strings.Contains(strings.ToLower(name), m.match) {
			continue
		}
		seen[name] = true

		m.mu.RLock()
		_, exists := m.inputs[name]
		m.mu.RUnlock()
		if exists {
			continue
		}

		kb, err := m.open(name, m.events)
		if err != nil {
			debug.Log("midi", "open %s: %v", name, err)
			continue
		}
		m.mu.Lock()
		m.inputs[name] = kb
		m.mu.Unlock()
		m.notify(DeviceEvent{Type: DeviceConnected, Name: name})
	}

	m.mu.Lock()
	var gone []string
	for name, kb := range m.inputs {
		if !seen[name] {
			kb.Close()
			delete(m.inputs, name)
			gone = append(gone, name)
		}
	}
	m.mu.Unlock()
	for _, name := range gone {
		m.notify(DeviceEvent{Type: DeviceDisconnected, Name: name})
	}
}

func (m *InputManager) notify(ev DeviceEvent) {
	debug.Log("midi", "input %s: %s", ev.Type, ev.Name)
	select {
	case m.devices <- ev:
	default:
	}
}

func (m *InputManager) closeAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, kb := range m.inputs {
		kb.Close()
	}
	m.inputs = make(map[string]*KeyboardInput)
}

func inputNames() ([]string, error) {
	ports, err := ListPorts()
	if err != nil {
		return nil, err
	}
	return ports.InNames(), nil
}

func openNamed(name string, events chan Event) (*KeyboardInput, error) {
	ports, err := ListPorts()
	if err != nil {
		return nil, err
	}
	for _, in := range ports.Ins {
		if in.String() == name {
			return listen(in, events)
		}
	}
	return nil, fmt.Errorf("midi input %q not found", name)
}
