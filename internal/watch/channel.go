// Package watch implements the buffered-watch channel: a single-producer,
// multi-consumer last-value channel backed by a fixed pool of slots
// allocated at construction, so the producer never blocks on a consumer
// and values are never allocated per commit. Each Write and Read still
// allocates a small guard, and each commit replaces the notification
// channel AwaitChange waits on.
//
// The slot-rotation idea (find the oldest free slot to write, the newest
// readable slot to read) avoids a channel allocation per value, trading
// it for explicit age bookkeeping on each slot instead of an
// always-fresh broadcast.
package watch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// ErrNoSender is returned by AwaitChange once the sender has been dropped
// and no further values will ever be produced.
var ErrNoSender = errors.New("watch: sender dropped, no further changes")

// ErrClosed is returned by Write if the channel's sender has already been
// closed.
var ErrClosed = errors.New("watch: channel closed")

type slotState int

const (
	stateFree slotState = iota
	stateWriting
	stateReading
)

type slot[T any] struct {
	state   slotState
	age     uint64
	readers int
	value   T
}

// Channel is a buffered-watch channel of values of type T. The zero value
// is not usable; construct with New.
type Channel[T any] struct {
	mu      sync.Mutex
	slots   []*slot[T]
	nextAge atomic.Uint64 // monotonic sequence counter, assigned on each commit
	closed  bool

	notifyMu sync.Mutex
	notify   chan struct{} // closed and replaced every time a new value is committed
}

// DefaultSlots is the minimum recommended pool size for a single consumer:
// one slot being written, one being read, one spare so the writer never
// waits on the reader.
const DefaultSlots = 3

// New returns a buffered-watch channel with the given number of slots.
// numSlots must be >= numConsumers+2; New panics otherwise, since violating
// it breaks the "at least one slot is always readable" invariant that
// makes the channel non-blocking.
func New[T any](numSlots int, numConsumers int) *Channel[T] {
	if numSlots < numConsumers+2 {
		panic(fmt.Sprintf("watch: numSlots (%d) must be >= numConsumers+2 (%d)", numSlots, numConsumers+2))
	}

	ch := &Channel[T]{
		slots:  make([]*slot[T], numSlots),
		notify: make(chan struct{}),
	}
	for i := range ch.slots {
		ch.slots[i] = &slot[T]{state: stateFree}
	}
	return ch
}

// WriteGuard is a mutable reference to the slot a producer is currently
// filling. Exactly one WriteGuard may exist at a time.
type WriteGuard[T any] struct {
	ch   *Channel[T]
	slot *slot[T]
}

// Value returns a pointer to the slot's value for the producer to mutate
// in place; no allocation occurs on this path.
func (g *WriteGuard[T]) Value() *T {
	return &g.slot.value
}

// Release commits the slot, making it the newest readable value and waking
// every waiter in AwaitChange.
func (g *WriteGuard[T]) Release() {
	g.ch.mu.Lock()
	g.slot.state = stateFree
	g.slot.age = g.ch.nextAge.Add(1)
	g.ch.mu.Unlock()
	g.ch.wake()
}

// Write locks the oldest free slot for writing and returns a guard over
// it. Returns ErrClosed if the sender side has already been dropped.
// Write never blocks on a reader: it only scans slot metadata, which is a
// bounded O(numSlots) operation independent of how many or how slowly
// consumers drain prior values.
func (ch *Channel[T]) Write() (*WriteGuard[T], error) {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	if ch.closed {
		return nil, ErrClosed
	}

	var oldest *slot[T]
	for _, s := range ch.slots {
		if s.state != stateFree {
			continue
		}
		if oldest == nil || s.age < oldest.age {
			oldest = s
		}
	}
	if oldest == nil {
		// Unreachable given the numSlots >= numConsumers+2 invariant enforced
		// at construction; a panic here documents a broken invariant rather
		// than silently blocking the producer.
		panic("watch: no free slot available, numSlots invariant violated")
	}
	oldest.state = stateWriting
	return &WriteGuard[T]{ch: ch, slot: oldest}, nil
}

// ReadGuard is a reference-counted hold on the newest readable slot.
type ReadGuard[T any] struct {
	ch   *Channel[T]
	slot *slot[T]
}

// Value returns a copy of the slot's value. Safe to call any number of
// times before Release.
func (g *ReadGuard[T]) Value() T {
	return g.slot.value
}

// Age reports the monotonic age of the value the guard is holding, for
// comparison against a previously observed age (see AwaitChange).
func (g *ReadGuard[T]) Age() uint64 {
	return g.slot.age
}

// Release decrements the slot's reader count, freeing it once the last
// reader is gone.
func (g *ReadGuard[T]) Release() {
	g.ch.mu.Lock()
	g.slot.readers--
	if g.slot.readers == 0 {
		g.slot.state = stateFree
	}
	g.ch.mu.Unlock()
}

// Read locks the newest readable slot (free or already being read) for
// reading and returns a guard over it.
func (ch *Channel[T]) Read() *ReadGuard[T] {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	var newest *slot[T]
	for _, s := range ch.slots {
		if s.state == stateWriting {
			continue
		}
		if newest == nil || s.age > newest.age {
			newest = s
		}
	}
	if newest == nil {
		panic("watch: no readable slot available, numSlots invariant violated")
	}
	if newest.state == stateFree {
		newest.state = stateReading
	}
	newest.readers++
	return &ReadGuard[T]{ch: ch, slot: newest}
}

// Latest is a convenience wrapper around Read/Release for callers that
// just want the current value without holding a guard across other work.
func (ch *Channel[T]) Latest() (T, uint64) {
	g := ch.Read()
	defer g.Release()
	return g.Value(), g.Age()
}

// Close marks the channel as dropped by its sender. Any blocked or future
// AwaitChange calls return ErrNoSender.
func (ch *Channel[T]) Close() {
	ch.mu.Lock()
	ch.closed = true
	ch.mu.Unlock()
	ch.wake()
}

func (ch *Channel[T]) wake() {
	ch.notifyMu.Lock()
	close(ch.notify)
	ch.notify = make(chan struct{})
	ch.notifyMu.Unlock()
}

func (ch *Channel[T]) waitChan() chan struct{} {
	ch.notifyMu.Lock()
	defer ch.notifyMu.Unlock()
	return ch.notify
}

// AwaitChange blocks until the newest readable slot's age exceeds lastAge,
// the sender is dropped (ErrNoSender), or ctx is cancelled. It returns the
// new value and its age on success.
func (ch *Channel[T]) AwaitChange(ctx context.Context, lastAge uint64) (T, uint64, error) {
	for {
		ch.mu.Lock()
		closed := ch.closed
		ch.mu.Unlock()

		value, age := ch.Latest()
		if age > lastAge {
			return value, age, nil
		}
		if closed {
			var zero T
			return zero, 0, ErrNoSender
		}

		waiter := ch.waitChan()
		select {
		case <-waiter:
			continue
		case <-ctx.Done():
			var zero T
			return zero, 0, ctx.Err()
		}
	}
}
