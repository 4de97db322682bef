package score

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// Model holds the note collection of one editing session.
// Notes are kept sorted by start tick (then pitch, then id). Not safe for
// concurrent use; the session serializes all access.
type Model struct {
	notes       []EditorNote
	ids         map[string]struct{}
	maxDuration int64 // longest note, bounds the QueryRange back-scan
}

// NewModel creates an empty model
func NewModel() *Model {
	return &Model{ids: make(map[string]struct{})}
}

// NewModelFrom builds a model from notes, all or nothing
func NewModelFrom(notes []EditorNote) (*Model, error) {
	m := NewModel()
	for _, n := range notes {
		if _, err := m.Add(n); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Len returns the number of notes
func (m *Model) Len() int {
	return len(m.notes)
}

// Notes returns a copy of all notes in ascending start order
func (m *Model) Notes() []EditorNote {
	out := make([]EditorNote, len(m.notes))
	for i, n := range m.notes {
		out[i] = n.clone()
	}
	return out
}

// Get returns the note with the given id
func (m *Model) Get(id string) (EditorNote, bool) {
	if _, ok := m.ids[id]; !ok {
		return EditorNote{}, false
	}
	return m.notes[m.indexOf(id)].clone(), true
}

// Add inserts a note. An empty id gets a generated one. Returns the stored note.
func (m *Model) Add(n EditorNote) (EditorNote, error) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if _, taken := m.ids[n.ID]; taken {
		return EditorNote{}, fmt.Errorf("%w: duplicate id %q", ErrInvariantViolation, n.ID)
	}
	if err := n.Validate(); err != nil {
		return EditorNote{}, err
	}
	n = n.clone()
	m.insert(n)
	m.ids[n.ID] = struct{}{}
	if n.DurationTicks > m.maxDuration {
		m.maxDuration = n.DurationTicks
	}
	return n.clone(), nil
}

// Update applies a patch to the note with the given id. The patched note is
// validated before anything changes.
func (m *Model) Update(id string, p Patch) (EditorNote, error) {
	if _, ok := m.ids[id]; !ok {
		return EditorNote{}, fmt.Errorf("%w: %q", ErrNoteNotFound, id)
	}
	i := m.indexOf(id)
	next := p.Apply(m.notes[i])
	if err := next.Validate(); err != nil {
		return EditorNote{}, err
	}
	m.notes = append(m.notes[:i], m.notes[i+1:]...)
	m.insert(next)
	m.recomputeMaxDuration()
	return next.clone(), nil
}

// Remove deletes the note with the given id
func (m *Model) Remove(id string) (EditorNote, error) {
	if _, ok := m.ids[id]; !ok {
		return EditorNote{}, fmt.Errorf("%w: %q", ErrNoteNotFound, id)
	}
	i := m.indexOf(id)
	removed := m.notes[i]
	m.notes = append(m.notes[:i], m.notes[i+1:]...)
	delete(m.ids, id)
	m.recomputeMaxDuration()
	return removed, nil
}

// QueryRange returns the notes whose [start, end) overlaps [tickStart, tickEnd)
// and whose pitch is within [pitchLow, pitchHigh], in ascending start order.
func (m *Model) QueryRange(tickStart, tickEnd int64, pitchLow, pitchHigh int) []EditorNote {
	if tickEnd <= tickStart || pitchHigh < pitchLow {
		return nil
	}
	// Nothing starting before tickStart-maxDuration can reach tickStart.
	from := sort.Search(len(m.notes), func(i int) bool {
		return m.notes[i].StartTick > tickStart-m.maxDuration
	})
	var out []EditorNote
	for i := from; i < len(m.notes); i++ {
		n := m.notes[i]
		if n.StartTick >= tickEnd {
			break
		}
		if n.EndTick() <= tickStart {
			continue
		}
		if n.Pitch < pitchLow || n.Pitch > pitchHigh {
			continue
		}
		out = append(out, n.clone())
	}
	return out
}

// FindDuplicateOnset reports whether a drum note of the given class already
// starts at tick. Melodic notes never count as duplicates.
func (m *Model) FindDuplicateOnset(tick int64, class DrumClass) bool {
	if class == DrumClassNone {
		return false
	}
	i := sort.Search(len(m.notes), func(i int) bool {
		return m.notes[i].StartTick >= tick
	})
	for ; i < len(m.notes) && m.notes[i].StartTick == tick; i++ {
		if m.notes[i].Class() == class {
			return true
		}
	}
	return false
}

// MaxEndTick returns the end of the latest note, 0 when empty
func (m *Model) MaxEndTick() int64 {
	var end int64
	for _, n := range m.notes {
		if e := n.EndTick(); e > end {
			end = e
		}
	}
	return end
}

func (m *Model) insert(n EditorNote) {
	i := sort.Search(len(m.notes), func(i int) bool {
		return less(n, m.notes[i])
	})
	m.notes = append(m.notes, EditorNote{})
	copy(m.notes[i+1:], m.notes[i:])
	m.notes[i] = n
}

func (m *Model) indexOf(id string) int {
	for i := range m.notes {
		if m.notes[i].ID == id {
			return i
		}
	}
	return -1
}

func (m *Model) recomputeMaxDuration() {
	m.maxDuration = 0
	for _, n := range m.notes {
		if n.DurationTicks > m.maxDuration {
			m.maxDuration = n.DurationTicks
		}
	}
}

func less(a, b EditorNote) bool {
	if a.StartTick != b.StartTick {
		return a.StartTick < b.StartTick
	}
	if a.Pitch != b.Pitch {
		return a.Pitch < b.Pitch
	}
	return a.ID < b.ID
}
