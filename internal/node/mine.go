package node

import (
	"context"
	"fmt"
	"time"

	"github.com/darkness-chain/pedagogical-node/internal/chain"
)

func (n *Node) broadcast(ctx context.Context, frame []byte) {
	var err error
	for attempt := 0; attempt <= n.cfg.BroadcastMaxRetries; attempt++ {
		if err = n.pub.Publish(ctx, frame); err == nil {
			return
		}
		n.logger.Warn("publish failed, retrying", "attempt", attempt, "error", err)
	}
	n.logger.Error("publish gave up after max retries", "error", err)
}

func (n *Node) broadcastConsensus(ctx context.Context) {
	out, err := encodeFrame(opConsensus, consensusParams{})
	if err != nil {
		n.logger.Error("encode consensus frame failed", "error", err)
		return
	}
	n.broadcast(ctx, out)
}

// RequestMine drives a local "mine now" request (SPEC_FULL.md §5.6):
//
//   - If the node has no chain yet, it broadcasts consensus, waits out the
//     configured rendezvous window for a consensus_resp to land, and falls
//     back to a freshly created genesis chain if none did. Either way, it
//     returns without mining — the caller must ask again once synced.
//   - Otherwise it mines the pool into a new block. If, during a brief
//     interleaved consensus exchange immediately afterward, a peer's longer
//     chain replaced the one just mined (the chain's length no longer
//     matches what mining just produced), the locally-mined block is not
//     broadcast — it already lost to a longer chain. Otherwise the new head
//     is broadcast as add_block.
func (n *Node) RequestMine(ctx context.Context) error {
	if n.Chain() == nil {
		n.broadcastConsensus(ctx)
		select {
		case <-time.After(n.cfg.ConsensusRendezvous):
		case <-ctx.Done():
			return ctx.Err()
		}
		if n.Chain() == nil {
			created := chain.Create(n.cfg.Difficulty, n.account)
			created.BlockReward = n.cfg.BlockReward
			n.adopt(ctx, created)
		}
		return nil
	}

	c := n.Chain()
	newHead, err := c.MineBlock(n.account)
	if err != nil {
		return fmt.Errorf("node: mine: %w", err)
	}
	lengthAfterMine := c.Length()
	n.emit(BlockAccepted{Block: newHead})

	n.broadcastConsensus(ctx)
	select {
	case <-time.After(n.cfg.ConsensusRendezvous):
	case <-ctx.Done():
		return ctx.Err()
	}

	if n.Chain().Length() == lengthAfterMine {
		out, err := encodeFrame(opAddBlock, addBlockParams{Block: newHead})
		if err != nil {
			return err
		}
		n.broadcast(ctx, out)
	}
	return nil
}
