// Package transport converts between wall-clock seconds and musical ticks and
// schedules notes for playback.
package transport

// Tempo is the bpm/ppq pair every conversion depends on
type Tempo struct {
	BPM float64
	PPQ int
}

// Valid reports whether conversions with t are defined
func (t Tempo) Valid() bool {
	return t.BPM > 0 && t.PPQ > 0
}

// SecondsToTicks converts transport seconds to ticks: s * (bpm/60) * ppq
func (t Tempo) SecondsToTicks(seconds float64) float64 {
	return seconds * (t.BPM / 60) * float64(t.PPQ)
}

// TicksToSeconds converts ticks to transport seconds: tick * 60 / (bpm * ppq)
func (t Tempo) TicksToSeconds(tick float64) float64 {
	return tick * 60 / (t.BPM * float64(t.PPQ))
}
