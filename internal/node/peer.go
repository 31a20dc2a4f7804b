package node

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/darkness-chain/pedagogical-node/internal/chain"
	"github.com/darkness-chain/pedagogical-node/internal/transaction"
)

// ErrNoChain is returned by SubmitTransaction while the node is still in
// StateNoChain. No other Node operation returns it: a controller Snapshot of
// a chainless node reports zero Length and PoolLen rather than an error.
var ErrNoChain = fmt.Errorf("node: no blockchain adopted yet")

// SubmitTransaction verifies and pools a locally-originated transaction,
// then gossips it — the same acceptance path an inbound add_transaction
// takes.
func (n *Node) SubmitTransaction(ctx context.Context, tx *transaction.Transaction) error {
	if !tx.Verify() {
		return fmt.Errorf("node: submit transaction: signature does not verify")
	}
	c := n.Chain()
	if c == nil {
		return ErrNoChain
	}
	if added := c.AddTransaction(tx); !added {
		return nil
	}
	n.emit(TxAccepted{Tx: tx})

	out, err := encodeFrame(opAddTransaction, addTransactionParams{Transaction: tx})
	if err != nil {
		return err
	}
	n.broadcast(ctx, out)
	return nil
}

// AddPeer registers a new peer endpoint and gossips an add_peer frame
// carrying that endpoint plus (if this node has one) a snapshot of its
// current chain, so the new peer can bootstrap from it directly instead of
// waiting for a consensus round-trip.
func (n *Node) AddPeer(ctx context.Context, address string) error {
	if err := n.addPeer(address); err != nil {
		return fmt.Errorf("node: add peer: %w", err)
	}

	var snapshot json.RawMessage
	if c := n.Chain(); c != nil {
		data, err := c.ToJSON()
		if err != nil {
			return fmt.Errorf("node: add peer: encode chain: %w", err)
		}
		snapshot = data
	}

	out, err := encodeFrame(opAddPeer, addPeerParams{Address: address, Blockchain: snapshot})
	if err != nil {
		return err
	}
	n.broadcast(ctx, out)
	return nil
}

// Peers returns every endpoint currently registered in the node's peer set.
func (n *Node) Peers() []string {
	return n.listPeers()
}

// rebuildChain replays a gossiped chain dict into a freshly owned Chain at
// the local node's difficulty: the peer's genesis is trusted verbatim, and
// every later block is replayed through AddBlockFromPeer so the acceptance
// gate (hash, index, previous_hash, timestamp, difficulty) still runs block
// by block rather than trusting the whole snapshot wholesale. A peer on a
// stale or lower difficulty can't smuggle an unearned chain in this way
// (SPEC_FULL.md §5.6's "sanitizing rebuild").
func rebuildChain(difficulty int, data json.RawMessage) (*chain.Chain, error) {
	peerChain, err := chain.FromJSON(data)
	if err != nil {
		return nil, fmt.Errorf("node: decode peer chain: %w", err)
	}
	if peerChain.Length() == 0 {
		return nil, fmt.Errorf("node: peer chain is empty")
	}

	rebuilt := chain.NewWithGenesis(difficulty, peerChain.BlockAt(0))
	for i := 1; i < peerChain.Length(); i++ {
		if _, err := rebuilt.AddBlockFromPeer(peerChain.BlockAt(i)); err != nil {
			return nil, fmt.Errorf("node: peer chain rejected at block %d: %w", i, err)
		}
	}
	if !rebuilt.IsValid() {
		return nil, fmt.Errorf("node: rebuilt chain failed final validation")
	}
	return rebuilt, nil
}
