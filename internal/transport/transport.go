// Package transport names the interface between the node core and the
// broadcast fabric it runs on. SPEC_FULL.md §1 treats the transport as an
// external collaborator: the core defines the message schema (see the
// node package), the transport only moves opaque bytes to every
// currently-connected peer on a single shared topic.
package transport

import "context"

// Publisher sends a single frame's worth of bytes to every connected
// subscriber. Implementations must send each Publish call as one atomic
// unit — never split or coalesced with another call — matching the
// "one complete JSON document per send" requirement in SPEC_FULL.md §6.
type Publisher interface {
	Publish(ctx context.Context, frame []byte) error
}

// Subscriber receives frames published by any connected peer, in arbitrary
// order, with possible duplication. Recv blocks until a frame arrives or ctx
// is cancelled.
type Subscriber interface {
	Recv(ctx context.Context) ([]byte, error)
}

// Peer is a publisher/subscriber pair bound to one endpoint, the shape a
// node needs to both broadcast to and receive from its configured peers.
type Peer interface {
	Publisher
	Subscriber
	Close() error
}
