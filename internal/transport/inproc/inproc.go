// Package inproc is an in-memory fan-out bus implementing the transport
// package's interfaces, used by node/controller tests and small worked
// examples that want several peers in one process without real sockets.
package inproc

import (
	"context"
	"sync"
)

// Bus fans out every frame Published by one Endpoint to every other
// Endpoint registered on it.
type Bus struct {
	mu        sync.Mutex
	endpoints map[*Endpoint]struct{}
}

// NewBus returns an empty Bus.
func NewBus() *Bus {
	return &Bus{endpoints: make(map[*Endpoint]struct{})}
}

// Join registers a new Endpoint on the bus and returns it.
func (b *Bus) Join() *Endpoint {
	e := &Endpoint{bus: b, inbox: make(chan []byte, 64)}
	b.mu.Lock()
	b.endpoints[e] = struct{}{}
	b.mu.Unlock()
	return e
}

func (b *Bus) leave(e *Endpoint) {
	b.mu.Lock()
	delete(b.endpoints, e)
	b.mu.Unlock()
}

func (b *Bus) broadcast(from *Endpoint, frame []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for e := range b.endpoints {
		if e == from {
			continue
		}
		select {
		case e.inbox <- frame:
		default:
			// Slow subscriber: drop rather than block the publisher, matching
			// the "non-blocking semantics preferred" guidance in
			// SPEC_FULL.md §6.
		}
	}
}

// Endpoint is a Bus member: a transport.Peer implementation.
type Endpoint struct {
	bus    *Bus
	inbox  chan []byte
	closed bool
	mu     sync.Mutex
}

// Publish broadcasts frame to every other Endpoint on the bus.
func (e *Endpoint) Publish(ctx context.Context, frame []byte) error {
	e.bus.broadcast(e, frame)
	return nil
}

// Recv blocks until a frame arrives or ctx is cancelled.
func (e *Endpoint) Recv(ctx context.Context) ([]byte, error) {
	select {
	case frame := <-e.inbox:
		return frame, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close removes the endpoint from its bus.
func (e *Endpoint) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	e.bus.leave(e)
	return nil
}
