package session

import (
	"sync"
	"testing"
)

func TestFrameLoopOrderAndCancel(t *testing.T) {
	l := NewFrameLoop()
	var calls []string
	a := l.Register(func() { calls = append(calls, "a") })
	l.Register(func() { calls = append(calls, "b") })

	l.Step()
	a.Cancel()
	a.Cancel()
	l.Step()

	want := []string{"a", "b", "b"}
	if len(calls) != len(want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("calls = %v, want %v", calls, want)
		}
	}
	if a.Active() || l.Len() != 1 {
		t.Fatalf("active = %v, len = %d", a.Active(), l.Len())
	}
	var nilHandle *Handle
	nilHandle.Cancel()
	if nilHandle.Active() || nilHandle.String() != "frame#-" {
		t.Fatalf("nil handle = %v", nilHandle)
	}
}

func TestFrameLoopCancelDuringStep(t *testing.T) {
	l := NewFrameLoop()
	var second *Handle
	ran := false
	l.Register(func() { second.Cancel() })
	second = l.Register(func() { ran = true })

	l.Step()
	if ran {
		t.Fatal("callback canceled earlier in the frame still ran")
	}
}

func TestFrameLoopRecovers(t *testing.T) {
	l := NewFrameLoop()
	count := 0
	l.Register(func() { panic("boom") })
	l.Register(func() { count++ })
	l.Post(func() { panic("posted") })

	l.Step()
	l.Step()
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}
	frames, panics := l.Stats()
	if frames != 2 || panics != 3 {
		t.Fatalf("frames = %d, panics = %d", frames, panics)
	}
}

func TestFrameLoopPostRunsFirst(t *testing.T) {
	l := NewFrameLoop()
	var order []string
	l.Register(func() { order = append(order, "frame") })

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		l.Post(func() { order = append(order, "posted") })
	}()
	wg.Wait()

	l.Step()
	if len(order) != 2 || order[0] != "posted" {
		t.Fatalf("order = %v", order)
	}
	l.Step()
	if len(order) != 3 {
		t.Fatalf("posted work ran twice: %v", order)
	}
}
