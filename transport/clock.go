package transport

import (
	"sync"
	"time"
)

// Transport is the external clock driving playback time
type Transport interface {
	CurrentSeconds() float64
	IsStarted() bool
	Start()
	Pause()
	Stop()
	SetSeconds(s float64)
	SetBPM(bpm float64)
}

// Clock is a wall-clock Transport. Position advances with real time while
// started; BPM is informational since position is kept in seconds.
type Clock struct {
	mu      sync.Mutex
	now     func() time.Time
	started bool
	t0      time.Time // wall time matching offset
	offset  float64   // seconds at t0
	bpm     float64
}

// NewClock creates a stopped clock at 0 seconds
func NewClock() *Clock {
	return NewClockWithSource(time.Now)
}

// NewClockWithSource uses now as the time source (tests use a fake)
func NewClockWithSource(now func() time.Time) *Clock {
	return &Clock{now: now, bpm: 120}
}

func (c *Clock) CurrentSeconds() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position()
}

func (c *Clock) IsStarted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.started
}

func (c *Clock) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return
	}
	c.t0 = c.now()
	c.started = true
}

func (c *Clock) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offset = c.position()
	c.started = false
}

func (c *Clock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offset = 0
	c.started = false
}

func (c *Clock) SetSeconds(s float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offset = max(s, 0)
	c.t0 = c.now()
}

func (c *Clock) SetBPM(bpm float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bpm = bpm
}

// BPM returns the last tempo set
func (c *Clock) BPM() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bpm
}

func (c *Clock) position() float64 {
	if !c.started {
		return c.offset
	}
	return c.offset + c.now().Sub(c.t0).Seconds()
}
