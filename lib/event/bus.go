// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package event

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/bureau-foundation/hasher/lib/schema"
)

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("event bus closed")

// DefaultCapacity is the input buffer size used when BusOptions does
// not set one.
const DefaultCapacity = 1024

// BusOptions configures a Bus.
type BusOptions struct {
	// Capacity is the number of published events buffered ahead of
	// dispatch. Zero means DefaultCapacity.
	Capacity int
}

// Bus is a multi-producer event channel with fan-out to subscribers.
type Bus struct {
	input   chan schema.Event
	closing chan struct{}
	done    chan struct{}

	closeOnce sync.Once

	mu          sync.Mutex
	subscribers map[*Subscription]struct{}
	closed      bool

	// sequence is written only by the dispatch goroutine.
	sequence uint64
}

// NewBus creates a Bus and starts its dispatch goroutine. Call Close to
// stop it.
func NewBus(options BusOptions) *Bus {
	capacity := options.Capacity
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	bus := &Bus{
		input:       make(chan schema.Event, capacity),
		closing:     make(chan struct{}),
		done:        make(chan struct{}),
		subscribers: make(map[*Subscription]struct{}),
	}
	go bus.dispatch()
	return bus
}

// Publish queues event for delivery. It blocks while the input buffer
// is full. Returns ctx.Err() if ctx is cancelled first, or ErrClosed
// if the bus is closing. The Sequence field is overwritten.
func (b *Bus) Publish(ctx context.Context, event schema.Event) error {
	select {
	case <-b.closing:
		return ErrClosed
	default:
	}
	select {
	case b.input <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-b.closing:
		return ErrClosed
	}
}

// Subscribe registers a new subscriber. It receives every event
// dispatched after Subscribe returns. Subscribing to a closed bus
// returns a subscription whose channel is already closed.
func (b *Bus) Subscribe(options SubscribeOptions) *Subscription {
	subscription := newSubscription(b, options)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		subscription.closeChannel()
		return subscription
	}
	b.subscribers[subscription] = struct{}{}
	return subscription
}

// Close stops accepting events, delivers everything already buffered,
// closes every subscriber channel, and waits for dispatch to finish.
// Events published concurrently with Close may be dropped. Close is
// idempotent.
func (b *Bus) Close() {
	b.closeOnce.Do(func() { close(b.closing) })
	<-b.done
}

// Done is closed once the bus has shut down.
func (b *Bus) Done() <-chan struct{} { return b.done }

func (b *Bus) dispatch() {
	defer close(b.done)
	for {
		select {
		case event := <-b.input:
			b.deliver(event)
		case <-b.closing:
			b.drain()
			b.shutdown()
			return
		}
	}
}

func (b *Bus) drain() {
	for {
		select {
		case event := <-b.input:
			b.deliver(event)
		default:
			return
		}
	}
}

func (b *Bus) deliver(event schema.Event) {
	b.sequence++
	event.Sequence = b.sequence

	b.mu.Lock()
	subscribers := make([]*Subscription, 0, len(b.subscribers))
	for subscription := range b.subscribers {
		subscribers = append(subscribers, subscription)
	}
	b.mu.Unlock()

	for _, subscription := range subscribers {
		subscription.send(event)
	}
}

func (b *Bus) shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for subscription := range b.subscribers {
		subscription.closeChannel()
		delete(b.subscribers, subscription)
	}
}

func (b *Bus) remove(subscription *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subscribers, subscription)
}

// DefaultSubscriptionBuffer is the per-subscriber buffer used when
// SubscribeOptions does not set one.
const DefaultSubscriptionBuffer = 256

// SubscribeOptions configures one subscription.
type SubscribeOptions struct {
	// Buffer is the subscriber channel capacity. Zero means
	// DefaultSubscriptionBuffer.
	Buffer int

	// Lossy drops events when the buffer is full instead of waiting
	// for the subscriber. Dropped events are counted by Dropped.
	Lossy bool
}

// Subscription is one consumer of a Bus. C is closed when the
// subscription or the bus is closed.
type Subscription struct {
	C <-chan schema.Event

	bus       *Bus
	channel   chan schema.Event
	lossy     bool
	dropped   atomic.Uint64
	done      chan struct{}
	closeOnce sync.Once

	// mu serializes sends against closing channel.
	mu     sync.Mutex
	closed bool
}

func newSubscription(bus *Bus, options SubscribeOptions) *Subscription {
	buffer := options.Buffer
	if buffer <= 0 {
		buffer = DefaultSubscriptionBuffer
	}
	channel := make(chan schema.Event, buffer)
	return &Subscription{
		C:       channel,
		bus:     bus,
		channel: channel,
		lossy:   options.Lossy,
		done:    make(chan struct{}),
	}
}

// send runs on the dispatch goroutine. A lossless subscriber blocks
// dispatch until it reads or closes.
func (s *Subscription) send(event schema.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.lossy {
		select {
		case s.channel <- event:
		default:
			s.dropped.Add(1)
		}
		return
	}
	select {
	case s.channel <- event:
	case <-s.done:
	}
}

// Dropped returns the number of events discarded because a lossy
// subscriber's buffer was full.
func (s *Subscription) Dropped() uint64 { return s.dropped.Load() }

// Close unsubscribes and closes C. Events already buffered stay
// readable. Safe to call more than once and after the bus has closed.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.bus.remove(s)
		s.closeChannel()
	})
}

func (s *Subscription) closeChannel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.channel)
	}
}
