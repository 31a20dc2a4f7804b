package node

import (
	"github.com/darkness-chain/pedagogical-node/internal/block"
	"github.com/darkness-chain/pedagogical-node/internal/transaction"
)

// Event is emitted on a Node's outbound channel whenever something a
// controller or UI would want to know about happens: a transaction entering
// the pool, or a block becoming the new head.
type Event interface {
	isEvent()
}

// TxAccepted is emitted when a transaction is added to the pool, whether
// submitted locally or received over gossip.
type TxAccepted struct {
	Tx *transaction.Transaction
}

func (TxAccepted) isEvent() {}

// BlockAccepted is emitted when a block becomes the chain's new head,
// whether mined locally or accepted from a peer.
type BlockAccepted struct {
	Block *block.Block
}

func (BlockAccepted) isEvent() {}

// ChainAdopted is emitted every time the node adopts a chain: when it leaves
// NoChain (by adopting a peer's chain via consensus_resp/add_peer or by
// falling back to a freshly created genesis chain), and again whenever a
// later consensus_resp or add_peer replaces the current chain.
type ChainAdopted struct {
	Head *block.Block
}

func (ChainAdopted) isEvent() {}

func (n *Node) emit(e Event) {
	select {
	case n.events <- e:
	default:
		n.logger.Warn("event channel full, dropping event")
	}
}
