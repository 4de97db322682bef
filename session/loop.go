package session

import (
	"fmt"
	"runtime/debug"
	"sync"

	pdebug "go-pianoroll/debug"
)

// FrameLoop runs registered per-frame callbacks on the host's UI thread.
// The host calls Step once per animation frame. Work finished on other
// goroutines is handed back with Post and runs at the start of the next Step.
type FrameLoop struct {
	mu        sync.Mutex
	nextID    int
	callbacks []registration
	posted    []func()

	frames uint64
	panics uint64
}

type registration struct {
	id int
	fn func()
}

// Handle revokes one registration
type Handle struct {
	loop *FrameLoop
	id   int
}

// NewFrameLoop creates an empty loop
func NewFrameLoop() *FrameLoop {
	return &FrameLoop{}
}

// Register adds fn to every subsequent frame until the handle is canceled
func (l *FrameLoop) Register(fn func()) *Handle {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextID++
	l.callbacks = append(l.callbacks, registration{id: l.nextID, fn: fn})
	return &Handle{loop: l, id: l.nextID}
}

// Cancel removes the registration. Safe to call more than once or on nil.
func (h *Handle) Cancel() {
	if h == nil || h.loop == nil {
		return
	}
	l := h.loop
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, r := range l.callbacks {
		if r.id == h.id {
			l.callbacks = append(l.callbacks[:i:i], l.callbacks[i+1:]...)
			break
		}
	}
	h.loop = nil
}

// Active reports whether the handle is still registered
func (h *Handle) Active() bool {
	return h != nil && h.loop != nil
}

// Post queues fn to run on the loop thread at the start of the next Step.
// Safe from any goroutine.
func (l *FrameLoop) Post(fn func()) {
	l.mu.Lock()
	l.posted = append(l.posted, fn)
	l.mu.Unlock()
}

// Step runs posted work, then every registered callback. A panic inside one
// callback is logged and skips the rest of that callback only.
func (l *FrameLoop) Step() {
	l.mu.Lock()
	posted := l.posted
	l.posted = nil
	l.mu.Unlock()
	for _, fn := range posted {
		l.run("post", fn)
	}

	// snapshot: a callback may cancel or register during the frame
	l.mu.Lock()
	callbacks := append([]registration(nil), l.callbacks...)
	l.frames++
	l.mu.Unlock()
	for _, r := range callbacks {
		if !l.registered(r.id) {
			continue
		}
		l.run("frame", r.fn)
	}
}

// Len returns the number of registered callbacks
func (l *FrameLoop) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.callbacks)
}

// Stats returns frames stepped and callbacks that panicked
func (l *FrameLoop) Stats() (frames, panics uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.frames, l.panics
}

func (l *FrameLoop) registered(id int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, r := range l.callbacks {
		if r.id == id {
			return true
		}
	}
	return false
}

func (l *FrameLoop) run(category string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.mu.Lock()
			l.panics++
			l.mu.Unlock()
			pdebug.Log(category, "recovered: %v\n%s", r, debug.Stack())
		}
	}()
	fn()
}

func (h *Handle) String() string {
	if h == nil {
		return "frame#-"
	}
	return fmt.Sprintf("frame#%d", h.id)
}
