package transport

import "math"

// Sync derives the current tick from a Transport, polled once per frame.
// While the transport is stopped or paused the tick stays frozen; a seek or a
// tempo change is reflected on the very next poll.
type Sync struct {
	transport Transport
	tempo     Tempo
	tick      float64
	dirty     bool // tempo changed, recompute even when frozen
}

// NewSync creates a Sync over t at the given tempo
func NewSync(t Transport, tempo Tempo) *Sync {
	t.SetBPM(tempo.BPM)
	return &Sync{transport: t, tempo: tempo, dirty: true}
}

// Tempo returns the tempo used for conversions
func (s *Sync) Tempo() Tempo {
	return s.tempo
}

// Transport returns the underlying transport
func (s *Sync) Transport() Transport {
	return s.transport
}

// CurrentTick returns the tick from the last poll
func (s *Sync) CurrentTick() float64 {
	return s.tick
}

// Poll reads the transport position and returns the current tick
func (s *Sync) Poll() float64 {
	if !s.tempo.Valid() {
		return s.tick
	}
	if s.transport.IsStarted() || s.dirty {
		s.tick = math.Max(0, s.tempo.SecondsToTicks(s.transport.CurrentSeconds()))
		s.dirty = false
	}
	return s.tick
}

// Seek moves the transport to tick. The new position is visible immediately.
func (s *Sync) Seek(tick float64) {
	tick = math.Max(0, tick)
	if s.tempo.Valid() {
		s.transport.SetSeconds(s.tempo.TicksToSeconds(tick))
	}
	s.tick = tick
	s.dirty = false
}

// SetTempo swaps the bpm/ppq pair; the next poll recomputes from scratch
func (s *Sync) SetTempo(t Tempo) {
	if t == s.tempo {
		return
	}
	s.tempo = t
	s.transport.SetBPM(t.BPM)
	s.dirty = true
}

// Reset forces the tick back to 0 after a transport stop
func (s *Sync) Reset() {
	s.tick = 0
	s.dirty = false
}
