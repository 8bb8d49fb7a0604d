// Package queue implements the ingest queue shared by all producers.
//
// Publishing never blocks. When the queue is full, an account update already
// queued for the same pubkey is superseded in place, since only the latest
// write version of an account matters; otherwise the oldest entry is
// dropped. Every such decision is counted.
package queue

import (
	"context"
	"errors"
	"sync"

	"github.com/ef-ds/deque"
	"github.com/ridge/geyser/event"
	"go.uber.org/atomic"
)

// ErrClosed is returned by Pop after Close once the queue is drained
var ErrClosed = errors.New("queue closed")

// Outcome describes what Publish did with an event
type Outcome int

// Publish outcomes
const (
	// Enqueued means the event was appended to the queue
	Enqueued Outcome = iota
	// Superseded means the event replaced a queued update of the same account
	Superseded
	// Stale means the event was discarded because a newer update of the
	// same account is queued
	Stale
	// DroppedOldest means the event was appended after dropping the oldest
	// entry
	DroppedOldest
	// Rejected means the queue is closed
	Rejected
)

var outcomeNames = [...]string{"enqueued", "superseded", "stale", "droppedOldest", "rejected"}

func (o Outcome) String() string {
	return outcomeNames[o]
}

// Stats are cumulative counters of a queue
type Stats struct {
	Published  uint64 `json:"published"`
	Superseded uint64 `json:"superseded"`
	Stale      uint64 `json:"stale"`
	Dropped    uint64 `json:"dropped"`
}

type entry struct {
	e event.Event
}

// Queue is a bounded multi-producer queue with a single logical consumer
type Queue struct {
	capacity int
	observer func(int)

	mu     sync.Mutex
	items  deque.Deque             // *entry
	latest map[event.Pubkey]*entry // last queued entry per account
	closed bool

	notify   chan struct{}
	closedCh chan struct{}

	published  atomic.Uint64
	superseded atomic.Uint64
	stale      atomic.Uint64
	dropped    atomic.Uint64
}

// Option configures a Queue
type Option func(*Queue)

// WithLengthObserver installs a callback invoked with the new length every
// time it changes. The callback is called under the queue lock and must not
// block.
func WithLengthObserver(fn func(int)) Option {
	return func(q *Queue) {
		q.observer = fn
	}
}

// New creates a queue holding at most capacity events
func New(capacity int, options ...Option) *Queue {
	if capacity < 1 {
		panic("queue capacity must be positive")
	}
	q := &Queue{
		capacity: capacity,
		observer: func(int) {},
		latest:   map[event.Pubkey]*entry{},
		notify:   make(chan struct{}, 1),
		closedCh: make(chan struct{}),
	}
	for _, opt := range options {
		opt(q)
	}
	return q
}

// Publish adds an event to the queue without blocking
func (q *Queue) Publish(e event.Event) Outcome {
	outcome := q.publish(e)
	switch outcome {
	case Rejected:
		return outcome
	case Superseded:
		q.superseded.Inc()
	case Stale:
		q.stale.Inc()
	case DroppedOldest:
		q.dropped.Inc()
	}
	q.published.Inc()
	if outcome != Stale {
		select {
		case q.notify <- struct{}{}:
		default:
		}
	}
	return outcome
}

func (q *Queue) publish(e event.Event) Outcome {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return Rejected
	}

	u, isAccount := e.(event.AccountUpdate)
	outcome := Enqueued
	if q.items.Len() >= q.capacity {
		if isAccount {
			if queued := q.latest[u.Pubkey]; queued != nil {
				if queued.e.(event.AccountUpdate).WriteVersion >= u.WriteVersion {
					return Stale
				}
				queued.e = u
				return Superseded
			}
		}
		q.dropFront()
		outcome = DroppedOldest
	}

	ent := &entry{e: e}
	q.items.PushBack(ent)
	if isAccount {
		q.latest[u.Pubkey] = ent
	}
	q.observer(q.items.Len())
	return outcome
}

// dropFront removes the head entry; the caller holds the lock
func (q *Queue) dropFront() *entry {
	v, ok := q.items.PopFront()
	if !ok {
		return nil
	}
	ent := v.(*entry)
	if u, ok := ent.e.(event.AccountUpdate); ok && q.latest[u.Pubkey] == ent {
		delete(q.latest, u.Pubkey)
	}
	return ent
}

// TryPop removes and returns the oldest event, if any
func (q *Queue) TryPop() (event.Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	ent := q.dropFront()
	if ent == nil {
		return nil, false
	}
	q.observer(q.items.Len())
	return ent.e, true
}

// Pop waits for an event and removes it from the queue.
//
// After Close, Pop keeps returning the remaining events and then ErrClosed.
func (q *Queue) Pop(ctx context.Context) (event.Event, error) {
	for {
		if e, ok := q.TryPop(); ok {
			return e, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-q.notify:
		case <-q.closedCh:
			if e, ok := q.TryPop(); ok {
				return e, nil
			}
			return nil, ErrClosed
		}
	}
}

// Close stops accepting events and wakes the consumer
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.closedCh)
	}
}

// Len returns the number of queued events; never more than Capacity
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.items.Len()
}

// Capacity returns the maximum number of queued events
func (q *Queue) Capacity() int {
	return q.capacity
}

// Stats returns the counters accumulated since the queue was created
func (q *Queue) Stats() Stats {
	return Stats{
		Published:  q.published.Load(),
		Superseded: q.superseded.Load(),
		Stale:      q.stale.Load(),
		Dropped:    q.dropped.Load(),
	}
}
