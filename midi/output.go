package midi

import (
	"fmt"
	"sync"
	"time"

	"go-pianoroll/debug"
	"go-pianoroll/transport"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// Sender sends one message to a port
type Sender func(msg gomidi.Message) error

// PortOutput plays scheduled events on a MIDI output port. Melodic notes go
// out on channel 0, drums on the percussion channel. Events are sent at their
// transport time relative to the clock, so a lookahead window can be used.
type PortOutput struct {
	send  Sender
	clock func() float64 // transport seconds

	mu       sync.Mutex
	timers   map[*time.Timer]struct{}
	sounding map[[2]uint8]int // (channel, key) -> overlapping note count
	closed   bool
}

// NewPortOutput wraps a sender. clock reports the current transport time.
func NewPortOutput(send Sender, clock func() float64) *PortOutput {
	return &PortOutput{
		send:     send,
		clock:    clock,
		timers:   make(map[*time.Timer]struct{}),
		sounding: make(map[[2]uint8]int),
	}
}

// OpenPortOutput opens the named output port (or the first one if name is empty)
func OpenPortOutput(name string, clock func() float64) (*PortOutput, error) {
	out, err := findOut(name)
	if err != nil {
		return nil, err
	}
	send, err := gomidi.SendTo(out)
	if err != nil {
		return nil, fmt.Errorf("open output %q: %w", out.String(), err)
	}
	debug.Log("midi", "output opened: %s", out.String())
	return NewPortOutput(send, clock), nil
}

// Trigger schedules the note-on and note-off of ev. It never blocks on the
// note duration.
func (p *PortOutput) Trigger(ev transport.Event) {
	ch := uint8(0)
	if ev.IsDrum {
		ch = PercussionChannel
	}
	key := uint8(min(max(ev.Pitch, 0), 127))
	vel := UnitToVelocity(ev.Velocity)

	delay := time.Duration((ev.OnSeconds - p.clock()) * float64(time.Second))
	dur := time.Duration(ev.DurationSeconds * float64(time.Second))

	p.at(delay, func() { p.noteOn(ch, key, vel) })
	p.at(delay+dur, func() { p.noteOff(ch, key) })
}

// Flush cancels pending events and releases every sounding note
func (p *PortOutput) Flush() {
	p.mu.Lock()
	for t := range p.timers {
		t.Stop()
	}
	clear(p.timers)
	sounding := p.sounding
	p.sounding = make(map[[2]uint8]int)
	p.mu.Unlock()

	for k := range sounding {
		p.sendLogged(gomidi.NoteOff(k[0], k[1]))
	}
}

// Close flushes and stops accepting events
func (p *PortOutput) Close() error {
	p.Flush()
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return nil
}

func (p *PortOutput) at(delay time.Duration, fn func()) {
	if delay <= 0 {
		fn()
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		p.mu.Lock()
		_, live := p.timers[t]
		delete(p.timers, t)
		p.mu.Unlock()
		if live {
			fn()
		}
	})
	p.timers[t] = struct{}{}
}

func (p *PortOutput) noteOn(ch, key, vel uint8) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.sounding[[2]uint8{ch, key}]++
	p.mu.Unlock()
	p.sendLogged(gomidi.NoteOn(ch, key, vel))
}

func (p *PortOutput) noteOff(ch, key uint8) {
	k := [2]uint8{ch, key}
	p.mu.Lock()
	n, ok := p.sounding[k]
	if !ok {
		p.mu.Unlock()
		return
	}
	if n <= 1 {
		delete(p.sounding, k)
	} else {
		p.sounding[k] = n - 1
	}
	p.mu.Unlock()
	p.sendLogged(gomidi.NoteOff(ch, key))
}

func (p *PortOutput) sendLogged(msg gomidi.Message) {
	if err := p.send(msg); err != nil {
		debug.Log("midi", "send %v: %v", msg, err)
	}
}

// findOut returns the named output port, or the first available one
func findOut(name string) (drivers.Out, error) {
	ports, err := ListPorts()
	if err != nil {
		return nil, err
	}
	for _, out := range ports.Outs {
		if name == "" || out.String() == name {
			return out, nil
		}
	}
	if name == "" {
		return nil, fmt.Errorf("no midi output ports")
	}
	return nil, fmt.Errorf("midi output %q not found", name)
}
