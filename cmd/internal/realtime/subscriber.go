package realtime

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrClosed reports that the subscriber was unsubscribed or the bus shut
	// down while waiting.
	ErrClosed = errors.New("realtime: subscriber closed")
	// ErrHeartbeat reports that the wait elapsed with no event; the caller
	// should emit a keep-alive and wait again.
	ErrHeartbeat = errors.New("realtime: heartbeat interval elapsed")
)

// Subscriber is one live connection's private FIFO queue.
//
// The queue is unbounded: a slow reader buffers instead of stalling the
// publisher or losing frames. Enqueue order is delivery order.
//
// Design notes:
// - ready carries at most one wake-up token; the queue itself lives in buf.
// - done is closed exactly once by Close, never the channels broadcasters
//   write to, so enqueue stays panic-free under concurrent close.
type Subscriber struct {
	mu  sync.Mutex
	buf []Envelope

	ready chan struct{}
	done  chan struct{}

	closeOnce sync.Once
}

func newSubscriber() *Subscriber {
	return &Subscriber{
		ready: make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

// enqueue appends env and reports whether the subscriber was still open.
func (s *Subscriber) enqueue(env Envelope) bool {
	select {
	case <-s.done:
		return false
	default:
	}

	s.mu.Lock()
	s.buf = append(s.buf, env)
	s.mu.Unlock()

	select {
	case s.ready <- struct{}{}:
	default:
	}
	return true
}

// pop removes and returns the oldest queued envelope, if any.
func (s *Subscriber) pop() (Envelope, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.buf) == 0 {
		return Envelope{}, false
	}
	env := s.buf[0]
	s.buf = s.buf[1:]
	if len(s.buf) > 0 {
		// More queued: keep the wake-up token armed for the next Next call.
		select {
		case s.ready <- struct{}{}:
		default:
		}
	}
	return env, true
}

// Next blocks until an event is queued, wait elapses (ErrHeartbeat), the
// subscriber closes (ErrClosed), or ctx is done.
func (s *Subscriber) Next(ctx context.Context, wait time.Duration) (Envelope, error) {
	if env, ok := s.pop(); ok {
		return env, nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return Envelope{}, ctx.Err()
		case <-s.done:
			return Envelope{}, ErrClosed
		case <-timer.C:
			return Envelope{}, ErrHeartbeat
		case <-s.ready:
			if env, ok := s.pop(); ok {
				return env, nil
			}
		}
	}
}

// Done is closed when the subscriber is removed from the bus.
func (s *Subscriber) Done() <-chan struct{} {
	return s.done
}

// Close marks the subscriber dead (idempotent). Queued events are dropped.
func (s *Subscriber) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}
