package realtime

import (
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// BusMetrics carries the optional instrumentation hooks for a Bus. A nil
// metrics struct, or nil individual collectors, disables that signal.
type BusMetrics struct {
	EventsPublished prometheus.Counter
	Subscribers     prometheus.Gauge
}

// Bus is the in-process broadcast fan-out for change events.
//
// Concurrency guarantees:
// - Subscribe/Unsubscribe are safe under concurrent Publish.
// - Publish iterates a read-locked snapshot; dead subscribers found during
//   delivery are removed afterwards, never mid-iteration.
// - A dead subscriber never blocks delivery to the rest.
type Bus struct {
	log     *slog.Logger
	metrics *BusMetrics

	mu   sync.RWMutex
	subs map[*Subscriber]struct{}
}

func NewBus(log *slog.Logger, metrics *BusMetrics) *Bus {
	if log == nil {
		log = slog.Default()
	}
	return &Bus{
		log:     log,
		metrics: metrics,
		subs:    make(map[*Subscriber]struct{}),
	}
}

// Subscribe registers a new live subscriber and returns its queue handle.
func (b *Bus) Subscribe() *Subscriber {
	s := newSubscriber()

	b.mu.Lock()
	b.subs[s] = struct{}{}
	n := len(b.subs)
	b.mu.Unlock()

	if b.metrics != nil && b.metrics.Subscribers != nil {
		b.metrics.Subscribers.Set(float64(n))
	}
	b.log.Debug("bus.subscribe", "subscribers", n)
	return s
}

// Unsubscribe removes s and closes it. Idempotent.
func (b *Bus) Unsubscribe(s *Subscriber) {
	if s == nil {
		return
	}

	b.mu.Lock()
	_, present := b.subs[s]
	delete(b.subs, s)
	n := len(b.subs)
	b.mu.Unlock()

	// Close after removal so a concurrent Publish never enqueues onto a
	// subscriber it still thinks is live.
	s.Close()

	if present {
		if b.metrics != nil && b.metrics.Subscribers != nil {
			b.metrics.Subscribers.Set(float64(n))
		}
		b.log.Debug("bus.unsubscribe", "subscribers", n)
	}
}

// Publish enqueues env onto every live subscriber in registration-set order.
// Subscribers that turn out dead are dropped from the set.
func (b *Bus) Publish(env Envelope) {
	b.mu.RLock()
	snapshot := make([]*Subscriber, 0, len(b.subs))
	for s := range b.subs {
		snapshot = append(snapshot, s)
	}
	b.mu.RUnlock()

	var dead []*Subscriber
	for _, s := range snapshot {
		if !s.enqueue(env) {
			dead = append(dead, s)
		}
	}
	for _, s := range dead {
		b.Unsubscribe(s)
	}

	if b.metrics != nil && b.metrics.EventsPublished != nil {
		b.metrics.EventsPublished.Inc()
	}
	b.log.Debug("bus.publish", "channel", env.Channel, "event", env.Event, "delivered", len(snapshot)-len(dead))
}
