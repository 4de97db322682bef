package render

import "image"

// OpKind is the kind of a recorded drawing call
type OpKind int

const (
	OpResize OpKind = iota
	OpClear
	OpFill
	OpText
)

// Op is one recorded drawing call
type Op struct {
	Kind  OpKind
	Rect  image.Rectangle // fill rect, or the new size for OpResize
	Paint Paint
	Text  string
}

// Recorder is a Backend that keeps the calls of the current frame. It is the
// headless target for tests and the miditest dump command.
type Recorder struct {
	Size image.Point
	Ops  []Op

	Resizes int
}

// Resize records a reallocation
func (r *Recorder) Resize(width, height int) {
	r.Size = image.Pt(width, height)
	r.Resizes++
	r.Ops = append(r.Ops, Op{Kind: OpResize, Rect: image.Rect(0, 0, width, height)})
}

// Clear starts a new frame
func (r *Recorder) Clear(p Paint) {
	r.Ops = append(r.Ops[:0], Op{Kind: OpClear, Paint: p})
}

func (r *Recorder) FillRect(rect image.Rectangle, p Paint) {
	r.Ops = append(r.Ops, Op{Kind: OpFill, Rect: rect, Paint: p})
}

func (r *Recorder) Text(x, y int, s string, p Paint) {
	r.Ops = append(r.Ops, Op{Kind: OpText, Rect: image.Rect(x, y, x, y), Paint: p, Text: s})
}

// Fills returns the fill rects drawn with paint p
func (r *Recorder) Fills(p Paint) []image.Rectangle {
	var out []image.Rectangle
	for _, op := range r.Ops {
		if op.Kind == OpFill && op.Paint == p {
			out = append(out, op.Rect)
		}
	}
	return out
}

// Texts returns all labels drawn in the current frame
func (r *Recorder) Texts() []string {
	var out []string
	for _, op := range r.Ops {
		if op.Kind == OpText {
			out = append(out, op.Text)
		}
	}
	return out
}
