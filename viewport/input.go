package viewport

// Button identifies the pointer button that started a gesture
type Button int

const (
	ButtonNone Button = iota
	ButtonLeft
	ButtonMiddle
	ButtonRight
)

// Modifiers held during a pointer or wheel event
type Modifiers struct {
	Shift bool
	Ctrl  bool
	Alt   bool
}

// DefaultWheelStep is how many px one wheel notch scrolls
const DefaultWheelStep = RowHeight * 3

// Input arbitrates the three scroll sources: drag pan, wheel and scrollbars.
// A drag holds exclusive control of the scroll offsets until it ends; wheel
// and scrollbar input arriving meanwhile is dropped.
type Input struct {
	WheelStep float64

	dragging     bool
	lastX, lastY float64
}

// NewInput creates an input arbiter with the default wheel step
func NewInput() *Input {
	return &Input{WheelStep: DefaultWheelStep}
}

// Dragging reports whether a pan drag is active
func (in *Input) Dragging() bool {
	return in.dragging
}

// BeginDrag starts a pan drag if the gesture is a pan gesture: middle button,
// or any button with ctrl/alt held. Plain left drags belong to note editing.
func (in *Input) BeginDrag(b Button, mods Modifiers, x, y float64) bool {
	if b != ButtonMiddle && !mods.Ctrl && !mods.Alt {
		return false
	}
	in.dragging = true
	in.lastX, in.lastY = x, y
	return true
}

// DragTo pans v so the content follows the pointer
func (in *Input) DragTo(v Viewport, x, y float64) Viewport {
	if !in.dragging {
		return v
	}
	dx, dy := x-in.lastX, y-in.lastY
	in.lastX, in.lastY = x, y
	return v.PanBy(-dx, -dy)
}

// EndDrag releases the scroll offsets
func (in *Input) EndDrag() {
	in.dragging = false
}

// Wheel scrolls vertically, or horizontally with shift held. Ignored while
// dragging.
func (in *Input) Wheel(v Viewport, notches float64, mods Modifiers) Viewport {
	if in.dragging {
		return v
	}
	step := in.WheelStep
	if step <= 0 {
		step = DefaultWheelStep
	}
	if mods.Shift {
		return v.PanBy(notches*step, 0)
	}
	return v.PanBy(0, notches*step)
}

// ScrollbarX applies a horizontal scrollbar value in [0,1]. Ignored while dragging.
func (in *Input) ScrollbarX(v Viewport, f float64) Viewport {
	if in.dragging {
		return v
	}
	return v.SetScrollFractionX(f)
}

// ScrollbarY applies a vertical scrollbar value in [0,1]. Ignored while dragging.
func (in *Input) ScrollbarY(v Viewport, f float64) Viewport {
	if in.dragging {
		return v
	}
	return v.SetScrollFractionY(f)
}
