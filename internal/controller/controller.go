// Package controller is the thin facade a CLI or UI front end talks to: it
// translates user actions (submit a transaction, request mining, add a
// peer, read a snapshot) into Node calls, and exposes the Node's event
// stream unchanged. It does not hold any chain state itself.
package controller

import (
	"context"
	"time"

	"github.com/darkness-chain/pedagogical-node/internal/account"
	"github.com/darkness-chain/pedagogical-node/internal/node"
	"github.com/darkness-chain/pedagogical-node/internal/transaction"
)

// Controller wraps a Node with the operations a front end issues.
type Controller struct {
	node *node.Node
}

// New wraps n.
func New(n *node.Node) *Controller {
	return &Controller{node: n}
}

// Snapshot is a read-only view of the node's current state, for displaying
// to a user.
type Snapshot struct {
	Address string
	State   string
	Length  int
	PoolLen int
	Peers   []string
}

// Snapshot returns the node's current displayable state.
func (c *Controller) Snapshot() Snapshot {
	snap := Snapshot{
		Address: c.node.Address(),
		State:   c.node.State(),
		Peers:   c.node.Peers(),
	}
	if ch := c.node.Chain(); ch != nil {
		snap.Length = ch.Length()
		snap.PoolLen = ch.PoolLen()
	}
	return snap
}

// SubmitTransaction builds, signs with acct, and submits a transfer from
// acct's address to receiver. It returns node.ErrNoChain, surfaced to
// the user as "No blockchain", if the node hasn't adopted a chain yet.
func (c *Controller) SubmitTransaction(ctx context.Context, acct *account.Account, receiver string, amount float64) error {
	tx := transaction.New(acct.Address(), receiver, amount, nowSeconds())
	tx.Sign(acct)
	return c.node.SubmitTransaction(ctx, tx)
}

// RequestMine asks the node to mine the pool now (or, if it has no chain
// yet, to bootstrap one — see node.Node.RequestMine).
func (c *Controller) RequestMine(ctx context.Context) error {
	return c.node.RequestMine(ctx)
}

// AddPeer registers and gossips a new peer endpoint.
func (c *Controller) AddPeer(ctx context.Context, address string) error {
	return c.node.AddPeer(ctx, address)
}

// Events returns the node's outbound event stream.
func (c *Controller) Events() <-chan node.Event {
	return c.node.Events()
}

func nowSeconds() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}
