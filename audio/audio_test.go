package audio

import (
	"sync"
	"testing"
	"time"
)

func assert(t *testing.T, cond bool, format string, args ...any) {
	t.Helper()
	if !cond {
		t.Fatalf(format, args...)
	}
}

func TestTrySendDrainsInOrder(t *testing.T) {
	var mu sync.Mutex
	var seen []byte

	s := NewSink(4, func(c Command) {
		mu.Lock()
		seen = append(seen, c.Data[0])
		mu.Unlock()
	})
	defer s.Close()

	for i := byte(0); i < 3; i++ {
		assert(t, s.TrySend(Command{Data: []byte{i}}), "TrySend %d should succeed", i)
	}

	deadline := time.Now().Add(time.Second)
	for {
		mu.Lock()
		n := len(seen)
		mu.Unlock()
		if n == 3 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for drain, got %d of 3", n)
		}
		time.Sleep(time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	assert(t, seen[0] == 0 && seen[1] == 1 && seen[2] == 2, "expected in-order drain, got %v", seen)
}

func TestTrySendReturnsFalseWhenFull(t *testing.T) {
	// Block the drain goroutine by giving it a func that waits, so the
	// queue actually fills instead of draining immediately.
	block := make(chan struct{})
	s := NewSink(1, func(c Command) { <-block })
	defer close(block)
	defer s.Close()

	assert(t, s.TrySend(Command{Data: []byte{1}}), "first send should succeed")

	// Give the drain goroutine a chance to pick up the first command
	// and block on it before we fill the queue behind it.
	time.Sleep(10 * time.Millisecond)

	assert(t, s.TrySend(Command{Data: []byte{2}}), "second send should fill the queue")
	assert(t, !s.TrySend(Command{Data: []byte{3}}), "third send should be NACKed, queue is full")
}
