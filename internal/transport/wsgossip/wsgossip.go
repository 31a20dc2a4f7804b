// Package wsgossip is a reference transport.Peer implementation over
// WebSocket connections: one long-lived connection per peer, one frame per
// WriteMessage call. It stands in for the PUB/SUB socket the original
// Python source used, grounded in the teacher pack's own WebSocket
// fan-out handler (bsv-blockchain-teranode's HandleWebsocket.go). It is a
// worked reference adapter, not part of the specified core invariants —
// SPEC_FULL.md §1 treats the transport substrate as an external
// collaborator.
package wsgossip

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Node is a gossip endpoint: it accepts inbound peer connections on a bound
// HTTP server and dials outbound connections to configured peers. Every
// connection, inbound or outbound, is both written to on Publish and read
// from into a single shared inbox.
type Node struct {
	logger *slog.Logger

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
	inbox chan []byte

	server *http.Server
}

// New returns a Node ready to Bind and Dial.
func New() *Node {
	return &Node{
		logger: slog.Default().With("component", "wsgossip"),
		conns:  make(map[*websocket.Conn]struct{}),
		inbox:  make(chan []byte, 256),
	}
}

// Bind starts an HTTP server on addr (e.g. ":5000") that upgrades every
// connection to a gossip peer.
func (n *Node) Bind(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			n.logger.Error("upgrade failed", "error", err)
			return
		}
		n.adopt(conn)
	})
	n.server = &http.Server{Addr: addr, Handler: mux}

	go func() {
		if err := n.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			n.logger.Error("gossip server stopped", "error", err)
		}
	}()
	return nil
}

// Dial connects outbound to a peer endpoint ("host:port") and adopts the
// resulting connection the same way an inbound one is adopted.
func (n *Node) Dial(peer string) error {
	url := fmt.Sprintf("ws://%s/", peer)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return fmt.Errorf("wsgossip: dial %s: %w", peer, err)
	}
	n.adopt(conn)
	return nil
}

func (n *Node) adopt(conn *websocket.Conn) {
	n.mu.Lock()
	n.conns[conn] = struct{}{}
	n.mu.Unlock()

	go func() {
		defer n.drop(conn)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			select {
			case n.inbox <- data:
			default:
				n.logger.Warn("gossip inbox full, dropping frame")
			}
		}
	}()
}

func (n *Node) drop(conn *websocket.Conn) {
	n.mu.Lock()
	delete(n.conns, conn)
	n.mu.Unlock()
	_ = conn.Close()
}

// Publish writes frame as a single WebSocket text message to every
// currently-connected peer.
func (n *Node) Publish(ctx context.Context, frame []byte) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	for conn := range n.conns {
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			n.logger.Warn("publish to peer failed", "error", err)
		}
	}
	return nil
}

// Recv blocks until a frame arrives from any connected peer or ctx is
// cancelled. Close does not unblock a pending Recv.
func (n *Node) Recv(ctx context.Context) ([]byte, error) {
	select {
	case frame, ok := <-n.inbox:
		if !ok {
			return nil, fmt.Errorf("wsgossip: closed")
		}
		return frame, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close shuts down the bound server and every adopted connection.
func (n *Node) Close() error {
	n.mu.Lock()
	for conn := range n.conns {
		_ = conn.Close()
	}
	n.conns = make(map[*websocket.Conn]struct{})
	n.mu.Unlock()

	if n.server != nil {
		return n.server.Close()
	}
	return nil
}
