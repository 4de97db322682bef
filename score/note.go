package score

import "fmt"

// Pitch and velocity bounds for an EditorNote
const (
	MinPitch = 0
	MaxPitch = 127
	NumPitch = MaxPitch + 1
)

// KickPitchThreshold splits drum notes into two trigger classes: anything
// below it is a kick, anything at or above it is metallic/other.
// Keep at 45 until product confirms a different split.
const KickPitchThreshold = 45

// DrumClass groups drum notes that must not retrigger on the same onset
type DrumClass int

const (
	DrumClassNone     DrumClass = iota // melodic note
	DrumClassKick                      // isDrum && pitch < KickPitchThreshold
	DrumClassMetallic                  // isDrum && pitch >= KickPitchThreshold
)

func (c DrumClass) String() string {
	switch c {
	case DrumClassKick:
		return "kick"
	case DrumClassMetallic:
		return "metallic"
	default:
		return "none"
	}
}

// EditorNote is a single note in the editing session
type EditorNote struct {
	ID            string   `json:"id"`
	Pitch         int      `json:"pitch"`
	StartTick     int64    `json:"startTick"`
	DurationTicks int64    `json:"durationTicks"`
	Velocity      float64  `json:"velocity"` // 0-1
	TrackIndex    int      `json:"trackIndex"`
	IsDrum        bool     `json:"isDrum"`
	Modulation    *float64 `json:"modulation,omitempty"` // 0-1, CC1
	Expression    *float64 `json:"expression,omitempty"` // 0-1, CC11
}

// EndTick returns the first tick after the note
func (n EditorNote) EndTick() int64 {
	return n.StartTick + n.DurationTicks
}

// Class returns the drum class of the note
func (n EditorNote) Class() DrumClass {
	return ClassOf(n.IsDrum, n.Pitch)
}

// ClassOf classifies a pitch. Melodic notes have no drum class.
func ClassOf(isDrum bool, pitch int) DrumClass {
	if !isDrum {
		return DrumClassNone
	}
	if pitch < KickPitchThreshold {
		return DrumClassKick
	}
	return DrumClassMetallic
}

// Validate checks the note against the model bounds
func (n EditorNote) Validate() error {
	if n.Pitch < MinPitch || n.Pitch > MaxPitch {
		return fmt.Errorf("%w: pitch %d outside [%d,%d]", ErrInvariantViolation, n.Pitch, MinPitch, MaxPitch)
	}
	if n.StartTick < 0 {
		return fmt.Errorf("%w: start tick %d is negative", ErrInvariantViolation, n.StartTick)
	}
	if n.DurationTicks < 1 {
		return fmt.Errorf("%w: duration %d ticks, need at least 1", ErrInvariantViolation, n.DurationTicks)
	}
	if !unit(n.Velocity) {
		return fmt.Errorf("%w: velocity %g outside [0,1]", ErrInvariantViolation, n.Velocity)
	}
	if n.TrackIndex < 0 {
		return fmt.Errorf("%w: track index %d is negative", ErrInvariantViolation, n.TrackIndex)
	}
	if n.Modulation != nil && !unit(*n.Modulation) {
		return fmt.Errorf("%w: modulation %g outside [0,1]", ErrInvariantViolation, *n.Modulation)
	}
	if n.Expression != nil && !unit(*n.Expression) {
		return fmt.Errorf("%w: expression %g outside [0,1]", ErrInvariantViolation, *n.Expression)
	}
	return nil
}

// unit reports v in [0,1]; NaN fails
func unit(v float64) bool {
	return v >= 0 && v <= 1
}

// clone copies the optional fields so callers can't alias model storage
func (n EditorNote) clone() EditorNote {
	if n.Modulation != nil {
		v := *n.Modulation
		n.Modulation = &v
	}
	if n.Expression != nil {
		v := *n.Expression
		n.Expression = &v
	}
	return n
}

// Patch describes a partial update. Nil fields are left as they are.
type Patch struct {
	Pitch         *int
	StartTick     *int64
	DurationTicks *int64
	Velocity      *float64
	TrackIndex    *int
	IsDrum        *bool
	Modulation    *float64
	Expression    *float64
}

// Apply returns n with the patch applied. n is not modified.
func (p Patch) Apply(n EditorNote) EditorNote {
	out := n.clone()
	if p.Pitch != nil {
		out.Pitch = *p.Pitch
	}
	if p.StartTick != nil {
		out.StartTick = *p.StartTick
	}
	if p.DurationTicks != nil {
		out.DurationTicks = *p.DurationTicks
	}
	if p.Velocity != nil {
		out.Velocity = *p.Velocity
	}
	if p.TrackIndex != nil {
		out.TrackIndex = *p.TrackIndex
	}
	if p.IsDrum != nil {
		out.IsDrum = *p.IsDrum
	}
	if p.Modulation != nil {
		v := *p.Modulation
		out.Modulation = &v
	}
	if p.Expression != nil {
		v := *p.Expression
		out.Expression = &v
	}
	return out
}
