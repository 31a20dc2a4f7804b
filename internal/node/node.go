// Package node implements the gossip-facing peer: the wire protocol's five
// operations, the NoChain/Synced lifecycle, and the single coarse lock
// discipline the chain and pool are accessed under from two contexts — the
// controller (local submissions, local mining) and the receiver loop
// (inbound gossip frames).
package node

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"

	"github.com/looplab/fsm"

	"github.com/darkness-chain/pedagogical-node/internal/account"
	"github.com/darkness-chain/pedagogical-node/internal/chain"
	"github.com/darkness-chain/pedagogical-node/internal/config"
	"github.com/darkness-chain/pedagogical-node/internal/transport"
)

// Lifecycle states (SPEC_FULL.md §5.6): a node is created chainless and
// transitions to Synced exactly once, whether by adopting a peer's chain or
// by falling back to a freshly minted genesis chain.
const (
	StateNoChain = "NoChain"
	StateSynced  = "Synced"

	eventAdopt = "adopt"
)

// Node is one gossip peer: an identity, an owned (once adopted) chain, a
// peer set, and the publisher/subscriber pair it gossips over.
type Node struct {
	account *account.Account
	cfg     config.Config
	logger  *slog.Logger

	pub transport.Publisher
	sub transport.Subscriber

	// peerMu guards peers, the set of host:port endpoints this node
	// gossips to. It is a plain set rather than an injected store: the
	// node owns its peer list directly, the same way it owns its chain
	// pointer, and nothing else needs to see it through an interface.
	peerMu sync.RWMutex
	peers  map[string]struct{}
	self   string

	// mu guards the chain pointer itself — swapping it out on adoption —
	// separately from the Chain value's own internal mutex, which guards
	// reads/writes of its Blocks and TxPool. Two cooperating locks rather
	// than one: a standalone *chain.Chain remains safely usable (and
	// testable) without a Node, while the Node layer only has to
	// synchronize the one additional thing it adds, which chain is
	// current.
	mu    sync.RWMutex
	chain *chain.Chain

	fsm *fsm.FSM

	events chan Event
}

// New constructs a Node in the NoChain state. acct is the node's identity;
// pub/sub is its gossip transport.
func New(acct *account.Account, pub transport.Publisher, sub transport.Subscriber, cfg config.Config) *Node {
	n := &Node{
		account: acct,
		cfg:     cfg,
		logger:  slog.Default().With("component", "node", "address", acct.Address()),
		pub:     pub,
		sub:     sub,
		peers:   make(map[string]struct{}),
		events:  make(chan Event, 64),
	}
	n.fsm = fsm.NewFSM(
		StateNoChain,
		fsm.Events{
			{Name: eventAdopt, Src: []string{StateNoChain, StateSynced}, Dst: StateSynced},
		},
		fsm.Callbacks{
			"enter_" + StateSynced: func(ctx context.Context, e *fsm.Event) {
				n.logger.Info("chain adopted, node synced")
			},
		},
	)
	return n
}

// Events returns the Node's outbound event channel.
func (n *Node) Events() <-chan Event {
	return n.events
}

// Address returns the node's own P2PKH address.
func (n *Node) Address() string {
	return n.account.Address()
}

// SetSelfEndpoint records the host:port this node is itself reachable at,
// so a later addPeer call rejects a peer trying to add the node to its own
// peer set (a loop that would otherwise gossip a node's blocks back to
// itself).
func (n *Node) SetSelfEndpoint(endpoint string) {
	n.peerMu.Lock()
	defer n.peerMu.Unlock()
	n.self = endpoint
}

// validatePeerAddress reports whether address has host:port shape and a
// numeric port, per SPEC_FULL.md §5.6's peer-set semantics.
func validatePeerAddress(address string) error {
	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return fmt.Errorf("node: peer address %q is not host:port: %w", address, err)
	}
	if host == "" {
		return fmt.Errorf("node: peer address %q has an empty host", address)
	}
	if _, err := strconv.Atoi(port); err != nil {
		return fmt.Errorf("node: peer address %q has a non-numeric port: %w", address, err)
	}
	return nil
}

// addPeer validates and registers a peer endpoint, rejecting anything that
// isn't host:port shaped or that names this node's own endpoint.
func (n *Node) addPeer(address string) error {
	if err := validatePeerAddress(address); err != nil {
		return err
	}
	n.peerMu.Lock()
	defer n.peerMu.Unlock()
	if n.self != "" && address == n.self {
		return fmt.Errorf("node: refusing to add own endpoint %q as a peer", address)
	}
	n.peers[address] = struct{}{}
	return nil
}

// listPeers returns every currently registered peer endpoint.
func (n *Node) listPeers() []string {
	n.peerMu.RLock()
	defer n.peerMu.RUnlock()
	out := make([]string, 0, len(n.peers))
	for p := range n.peers {
		out = append(out, p)
	}
	return out
}

// State returns the node's current lifecycle state (StateNoChain or
// StateSynced).
func (n *Node) State() string {
	return n.fsm.Current()
}

// Chain returns the node's currently adopted chain, or nil if the node is
// still in StateNoChain.
func (n *Node) Chain() *chain.Chain {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.chain
}

func (n *Node) adopt(ctx context.Context, c *chain.Chain) {
	n.mu.Lock()
	n.chain = c
	n.mu.Unlock()
	if err := n.fsm.Event(ctx, eventAdopt); err != nil {
		n.logger.Warn("fsm transition rejected", "error", err)
	}
	n.emit(ChainAdopted{Head: c.Head()})
}

// Run drives the receiver loop: it blocks on sub.Recv, dispatches each
// frame, and keeps going on a per-frame error so one malformed or rejected
// frame never kills the loop (adapted from the teacher's polling listener,
// which isolates per-poll errors the same way). It returns when ctx is
// cancelled.
func (n *Node) Run(ctx context.Context) {
	for {
		frame, err := n.sub.Recv(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			n.logger.Error("receive failed", "error", err)
			continue
		}
		if err := n.handleFrame(ctx, frame); err != nil {
			n.logger.Warn("dropping frame", "error", err)
		}
	}
}

func (n *Node) handleFrame(ctx context.Context, raw []byte) error {
	f, err := decodeFrame(raw)
	if err != nil {
		return err
	}
	switch f.Operation {
	case opAddTransaction:
		return n.handleAddTransaction(ctx, f)
	case opAddBlock:
		return n.handleAddBlock(ctx, f)
	case opConsensus:
		return n.handleConsensus(ctx, f)
	case opConsensusResp:
		return n.handleConsensusResp(ctx, f)
	case opAddPeer:
		return n.handleAddPeer(ctx, f)
	default:
		return fmt.Errorf("node: unknown operation %q", f.Operation)
	}
}

func (n *Node) handleAddTransaction(ctx context.Context, f Frame) error {
	var p addTransactionParams
	if err := json.Unmarshal(f.Parameters, &p); err != nil {
		return fmt.Errorf("node: decode add_transaction: %w", err)
	}
	if p.Transaction == nil {
		return fmt.Errorf("node: add_transaction: missing transaction")
	}
	if !p.Transaction.Verify() {
		return fmt.Errorf("node: add_transaction: signature does not verify")
	}

	c := n.Chain()
	if c == nil {
		// No pool to add to yet; the transaction is simply lost, same as
		// the source dropping anything that arrives before a chain exists.
		return fmt.Errorf("node: add_transaction: no chain adopted yet")
	}

	if added := c.AddTransaction(p.Transaction); !added {
		return nil
	}
	n.emit(TxAccepted{Tx: p.Transaction})

	out, err := encodeFrame(opAddTransaction, addTransactionParams{Transaction: p.Transaction})
	if err != nil {
		return err
	}
	n.broadcast(ctx, out)
	return nil
}

func (n *Node) handleAddBlock(ctx context.Context, f Frame) error {
	var p addBlockParams
	if err := json.Unmarshal(f.Parameters, &p); err != nil {
		return fmt.Errorf("node: decode add_block: %w", err)
	}
	if p.Block == nil {
		return fmt.Errorf("node: add_block: missing block")
	}

	c := n.Chain()
	if c == nil {
		// Can't place a block with nothing to chain it to; ask the network
		// for the chain instead.
		n.broadcastConsensus(ctx)
		return nil
	}
	if p.Block.HashVal != nil && c.HasBlock(*p.Block.HashVal) {
		return nil
	}
	if !p.Block.Verify() {
		return fmt.Errorf("node: add_block: block does not verify")
	}

	accepted, err := c.AddBlockFromPeer(p.Block)
	if err != nil {
		return fmt.Errorf("node: add_block: rejected: %w", err)
	}

	n.emit(BlockAccepted{Block: accepted})
	out, err := encodeFrame(opAddBlock, addBlockParams{Block: accepted})
	if err != nil {
		return err
	}
	n.broadcast(ctx, out)
	return nil
}

func (n *Node) handleConsensus(ctx context.Context, _ Frame) error {
	c := n.Chain()
	if c == nil {
		return nil
	}
	data, err := c.ToJSON()
	if err != nil {
		return fmt.Errorf("node: encode chain for consensus_resp: %w", err)
	}
	out, err := encodeFrame(opConsensusResp, consensusRespParams{Blockchain: data})
	if err != nil {
		return err
	}
	n.broadcast(ctx, out)
	return nil
}

func (n *Node) handleConsensusResp(ctx context.Context, f Frame) error {
	var p consensusRespParams
	if err := json.Unmarshal(f.Parameters, &p); err != nil {
		return fmt.Errorf("node: decode consensus_resp: %w", err)
	}
	candidate, err := chain.FromJSON(p.Blockchain)
	if err != nil {
		return fmt.Errorf("node: consensus_resp: decode chain: %w", err)
	}
	if !candidate.IsValid() {
		return fmt.Errorf("node: consensus_resp: candidate chain invalid")
	}

	current := n.Chain()
	if current == nil || candidate.Length() > current.Length() {
		n.adopt(ctx, candidate)
		// Re-broadcast so other still-unsynced peers converge too.
		data, err := candidate.ToJSON()
		if err != nil {
			return fmt.Errorf("node: re-encode adopted chain: %w", err)
		}
		out, err := encodeFrame(opConsensusResp, consensusRespParams{Blockchain: data})
		if err != nil {
			return err
		}
		n.broadcast(ctx, out)
	}
	return nil
}

func (n *Node) handleAddPeer(ctx context.Context, f Frame) error {
	var p addPeerParams
	if err := json.Unmarshal(f.Parameters, &p); err != nil {
		return fmt.Errorf("node: decode add_peer: %w", err)
	}
	if p.Address != "" {
		if err := n.addPeer(p.Address); err != nil {
			n.logger.Warn("peer add rejected", "error", err)
		}
	}
	if len(p.Blockchain) == 0 {
		return nil
	}

	rebuilt, err := rebuildChain(n.cfg.Difficulty, p.Blockchain)
	if err != nil {
		n.logger.Warn("add_peer: could not rebuild candidate chain", "error", err)
		return nil
	}

	current := n.Chain()
	if current == nil || rebuilt.Length() >= current.Length() {
		n.adopt(ctx, rebuilt)
	}
	return nil
}
