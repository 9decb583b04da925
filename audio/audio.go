// Package audio is the host-side stand-in for the audio synthesizer DSP
// (wave mixing, ADSR envelopes) named out of scope in spec.md §1. It
// models the single point of cross-thread communication spec.md §5
// calls out: a background worker consuming commands via a bounded
// single-producer/single-consumer queue, grounded on
// KTStephano-GVM/vm/devices.go's nonBlockingChan pattern.
package audio

import "sync/atomic"

// Command is one SOUNDCMD payload, copied (not borrowed) into the
// queue per spec.md §5's "simpler, default for a reimplementation"
// choice.
type Command struct {
	Data []byte
}

// Sink is a bounded, non-blocking command queue with a background
// drain goroutine standing in for the DSP worker.
type Sink struct {
	ch       chan Command
	depth    atomic.Int32
	capacity int32
	done     chan struct{}
}

// NewSink starts a Sink with the given queue capacity, draining
// commands with drain until Close is called.
func NewSink(capacity int32, drain func(Command)) *Sink {
	s := &Sink{ch: make(chan Command, capacity), capacity: capacity, done: make(chan struct{})}
	go func() {
		for {
			select {
			case cmd, ok := <-s.ch:
				if !ok {
					return
				}
				s.depth.Add(-1)
				if drain != nil {
					drain(cmd)
				}
			case <-s.done:
				return
			}
		}
	}()
	return s
}

// TrySend enqueues cmd without blocking, returning false (NACK) if the
// queue is full.
func (s *Sink) TrySend(cmd Command) bool {
	if s.depth.Load() >= s.capacity {
		return false
	}
	select {
	case s.ch <- cmd:
		s.depth.Add(1)
		return true
	default:
		return false
	}
}

// Close stops the drain goroutine.
func (s *Sink) Close() {
	close(s.done)
}
