// Package admission bounds the number of message deliveries in progress on a
// connection.
//
// Every message handed to a connection first reserves a slot in the
// connection Budget. Reserving fails once the hard stream cap is reached: the
// connection is then considered overloaded and must be dropped. A reserved
// message is admitted, i.e. allowed to open its stream, only while the
// number of streams in flight is below the deferral threshold; otherwise
// admission waits until earlier streams complete.
package admission

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ridge/geyser/defaults"
	"go.uber.org/atomic"
)

// ErrOverloaded means the connection exceeded its stream budget
var ErrOverloaded = errors.New("stream budget exhausted")

// ErrClosed is returned for operations on a closed budget
var ErrClosed = errors.New("stream budget closed")

// Config is the configuration of a per-connection budget
type Config struct {
	// MaxStreams is the hard cap on reserved plus in-flight deliveries
	MaxStreams int
	// MaxPartial is the number of in-flight streams at which admission is
	// deferred
	MaxPartial int
	// DeferralGrace bounds the time a message may stay deferred before the
	// connection is considered overloaded; zero waits forever
	DeferralGrace time.Duration
}

// WithDefaults returns the config with zero fields replaced by defaults
func (c Config) WithDefaults() Config {
	if c.MaxStreams == 0 {
		c.MaxStreams = defaults.MaxStreams
	}
	if c.MaxPartial == 0 {
		c.MaxPartial = c.MaxStreams * 3 / 4
		if c.MaxPartial == 0 {
			c.MaxPartial = 1
		}
	}
	return c
}

// Validate checks the consistency of the config
func (c Config) Validate() error {
	if c.MaxStreams <= 0 {
		return fmt.Errorf("max streams must be positive, got %d", c.MaxStreams)
	}
	if c.MaxPartial <= 0 || c.MaxPartial > c.MaxStreams {
		return fmt.Errorf("deferral threshold %d must be in [1, %d]", c.MaxPartial, c.MaxStreams)
	}
	if c.DeferralGrace < 0 {
		return fmt.Errorf("negative deferral grace %s", c.DeferralGrace)
	}
	return nil
}

// Snapshot is a point-in-time view of a budget
type Snapshot struct {
	Pending  int // reserved or in flight
	InFlight int
	Deferred int // waiting in Admit
	Peak     int // highest InFlight seen
}

// Budget is the stream budget of a single connection.
//
// The balance of calls is: every successful Reserve is followed by either
// Cancel, or a successful Admit and then Release. Once the budget is closed,
// Release and Cancel are no-ops.
type Budget struct {
	config Config
	global *Global

	mu       sync.Mutex
	pending  int
	inFlight int
	deferred int
	peak     int
	closed   bool
	wake     chan struct{} // closed and replaced when capacity frees up
}

// New creates a budget. The global aggregate is optional.
func New(config Config, global *Global) *Budget {
	return &Budget{
		config: config,
		global: global,
		wake:   make(chan struct{}),
	}
}

// Config returns the configuration of the budget
func (b *Budget) Config() Config {
	return b.config
}

// Reserve takes a slot for a new message without blocking.
//
// Returns ErrOverloaded if the hard cap is reached.
func (b *Budget) Reserve() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}
	if b.pending >= b.config.MaxStreams {
		return ErrOverloaded
	}
	b.pending++
	b.global.add(1, 0)
	return nil
}

// Admit waits until a reserved message may open its stream.
//
// Returns ErrOverloaded if the message stays deferred longer than the grace
// period, ErrClosed if the budget is closed, or the context error. On
// failure the reservation is kept and must be cancelled.
func (b *Budget) Admit(ctx context.Context) error {
	var grace <-chan time.Time
	for deferred := false; ; {
		b.mu.Lock()
		if b.closed {
			b.undefer(deferred)
			b.mu.Unlock()
			return ErrClosed
		}
		if b.inFlight < b.config.MaxPartial {
			b.undefer(deferred)
			b.inFlight++
			if b.inFlight > b.peak {
				b.peak = b.inFlight
			}
			b.mu.Unlock()
			b.global.add(0, 1)
			return nil
		}
		if !deferred {
			deferred = true
			b.deferred++
		}
		wake := b.wake
		b.mu.Unlock()

		if grace == nil && b.config.DeferralGrace > 0 {
			timer := time.NewTimer(b.config.DeferralGrace)
			defer timer.Stop()
			grace = timer.C
		}

		select {
		case <-ctx.Done():
			b.mu.Lock()
			b.undefer(true)
			b.mu.Unlock()
			return ctx.Err()
		case <-grace:
			b.mu.Lock()
			b.undefer(true)
			b.mu.Unlock()
			return fmt.Errorf("%w: deferred for more than %s", ErrOverloaded, b.config.DeferralGrace)
		case <-wake:
		}
	}
}

func (b *Budget) undefer(deferred bool) {
	if deferred {
		b.deferred--
	}
}

// broadcast wakes all waiters; the caller holds the lock
func (b *Budget) broadcast() {
	if b.deferred > 0 || b.closed {
		close(b.wake)
		b.wake = make(chan struct{})
	}
}

// Release completes an admitted message
func (b *Budget) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	if b.inFlight == 0 {
		panic("admission: Release without Admit")
	}
	b.inFlight--
	b.pending--
	b.global.add(-1, -1)
	b.broadcast()
}

// Cancel drops a reservation that was never admitted
func (b *Budget) Cancel() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	if b.pending == b.inFlight {
		panic("admission: Cancel without Reserve")
	}
	b.pending--
	b.global.add(-1, 0)
}

// Close releases all reservations and fails waiting and future calls
func (b *Budget) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	b.global.add(-int64(b.pending), -int64(b.inFlight))
	b.pending = 0
	b.inFlight = 0
	b.broadcast()
}

// Snapshot returns the current counters
func (b *Budget) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	return Snapshot{
		Pending:  b.pending,
		InFlight: b.inFlight,
		Deferred: b.deferred,
		Peak:     b.peak,
	}
}

// Global aggregates the budgets of all connections. It is bookkeeping only:
// admission decisions are taken per connection.
type Global struct {
	pending  atomic.Int64
	inFlight atomic.Int64
}

func (g *Global) add(pending, inFlight int64) {
	if g == nil {
		return
	}
	if pending != 0 {
		g.pending.Add(pending)
	}
	if inFlight != 0 {
		g.inFlight.Add(inFlight)
	}
}

// Pending returns the number of reserved or in-flight messages of all
// connections
func (g *Global) Pending() int64 {
	return g.pending.Load()
}

// InFlight returns the number of open streams of all connections
func (g *Global) InFlight() int64 {
	return g.inFlight.Load()
}
