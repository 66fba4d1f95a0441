package repo

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/banter-chat/banter/internal/metrics"
)

// observeFunc opens one upstream stream. The returned channels follow the
// source contract: both close on termination, the error channel carries at
// most one terminal error.
type observeFunc[T any] func(ctx context.Context) (<-chan T, <-chan error)

const defaultSubscriberBuffer = 16

// subscriber is one registered downstream consumer.
type subscriber[T any] struct {
	ch   chan T
	errs chan error
}

// fanout multiplexes one upstream stream to any number of subscribers.
//
// It is a two-state machine: idle (no subscribers, no upstream goroutine)
// and active (at least one subscriber, exactly one pump goroutine). The
// first subscriber starts the upstream, the last one leaving cancels it.
// The latest upstream value is cached and replayed to late subscribers.
//
// All state transitions happen under mu. The pump revalidates its
// generation after every receive, so a pump that was cancelled or replaced
// can never touch the arena of its successor.
type fanout[T any] struct {
	resource string // metric label
	log      *slog.Logger

	mu          sync.Mutex
	observe     observeFunc[T]
	subscribers map[string]*subscriber[T]
	latest      *T
	cancel      context.CancelFunc
	gen         uint64
	buffer      int
}

func newFanout[T any](resource string, observe observeFunc[T]) *fanout[T] {
	return &fanout[T]{
		resource:    resource,
		log:         slog.With("component", "repository", "resource", resource),
		observe:     observe,
		subscribers: make(map[string]*subscriber[T]),
		buffer:      defaultSubscriberBuffer,
	}
}

// subscribe registers a new consumer and returns its stream plus a stop
// function. The stop function is idempotent. If a cached value exists it
// is delivered before any new upstream emission.
func (f *fanout[T]) subscribe() (<-chan T, <-chan error, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := uuid.NewString()
	sub := &subscriber[T]{
		ch:   make(chan T, f.buffer),
		errs: make(chan error, 1),
	}
	f.subscribers[id] = sub
	metrics.Subscribers.WithLabelValues(f.resource).Inc()

	if f.latest != nil {
		sub.ch <- *f.latest
	}
	if f.cancel == nil {
		f.startLocked()
	}

	var once sync.Once
	stop := func() {
		once.Do(func() { f.remove(id) })
	}
	return sub.ch, sub.errs, stop
}

// startLocked launches a new upstream pump. Caller holds mu.
func (f *fanout[T]) startLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	f.gen++
	gen := f.gen

	values, errs := f.observe(ctx)
	metrics.UpstreamStarts.WithLabelValues(f.resource).Inc()
	f.log.Debug("upstream started")

	go f.pump(gen, values, errs)
}

// pump drains one upstream stream: caches and broadcasts every value, and
// on termination finishes all current subscribers and returns to idle.
func (f *fanout[T]) pump(gen uint64, values <-chan T, errs <-chan error) {
	for v := range values {
		f.mu.Lock()
		if gen != f.gen {
			f.mu.Unlock()
			return
		}
		f.latest = &v
		for _, sub := range f.subscribers {
			select {
			case sub.ch <- v:
			default:
				// A stalled consumer must not block the pump.
				f.log.Warn("subscriber buffer full, dropping value")
			}
		}
		f.mu.Unlock()
	}

	err := <-errs

	f.mu.Lock()
	defer f.mu.Unlock()
	if gen != f.gen {
		return
	}
	if err != nil {
		f.log.Warn("upstream terminated", "error", err)
	} else {
		f.log.Debug("upstream completed")
	}

	// Upstream is gone. Finish every subscriber, clear the arena and go
	// idle so the next subscribe retries from scratch.
	for _, sub := range f.subscribers {
		if err != nil {
			sub.errs <- err
		}
		close(sub.ch)
		close(sub.errs)
	}
	metrics.Subscribers.WithLabelValues(f.resource).Sub(float64(len(f.subscribers)))
	f.subscribers = make(map[string]*subscriber[T])
	f.stopLocked()
}

// remove unregisters one subscriber; the last one out cancels the upstream.
func (f *fanout[T]) remove(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	sub, ok := f.subscribers[id]
	if !ok {
		return
	}
	delete(f.subscribers, id)
	close(sub.ch)
	close(sub.errs)
	metrics.Subscribers.WithLabelValues(f.resource).Dec()

	if len(f.subscribers) == 0 {
		f.stopLocked()
	}
}

// stopLocked cancels the running upstream, if any, and invalidates its
// pump. The cached value survives an idle period; only reset discards it.
func (f *fanout[T]) stopLocked() {
	if f.cancel == nil {
		return
	}
	f.cancel()
	f.cancel = nil
	f.gen++
	f.log.Debug("upstream cancelled")
}

func (f *fanout[T]) subscriberCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subscribers)
}

// reset swaps the upstream source: the running upstream is cancelled, the
// cached value dropped, and a fresh upstream started only if subscribers
// are present.
func (f *fanout[T]) reset(observe observeFunc[T]) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.stopLocked()
	f.latest = nil
	f.observe = observe
	if len(f.subscribers) > 0 {
		f.startLocked()
	}
}

// shutdown finishes every subscriber and cancels the upstream.
func (f *fanout[T]) shutdown() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.stopLocked()
	for _, sub := range f.subscribers {
		close(sub.ch)
		close(sub.errs)
	}
	metrics.Subscribers.WithLabelValues(f.resource).Sub(float64(len(f.subscribers)))
	f.subscribers = make(map[string]*subscriber[T])
	f.latest = nil
}
