package node

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/darkness-chain/pedagogical-node/internal/account"
	"github.com/darkness-chain/pedagogical-node/internal/config"
	"github.com/darkness-chain/pedagogical-node/internal/transaction"
	"github.com/darkness-chain/pedagogical-node/internal/transport/inproc"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Difficulty = 1
	cfg.ConsensusRendezvous = 150 * time.Millisecond
	return cfg
}

func newTestNode(t *testing.T, bus *inproc.Bus) *Node {
	t.Helper()
	acct, err := account.New()
	require.NoError(t, err)
	ep := bus.Join()
	return New(acct, ep, ep, testConfig())
}

func TestRequestMine_BootstrapsFreshChainWhenAlone(t *testing.T) {
	bus := inproc.NewBus()
	n := newTestNode(t, bus)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go n.Run(ctx)

	require.Equal(t, StateNoChain, n.State())
	require.NoError(t, n.RequestMine(ctx))

	require.Eventually(t, func() bool {
		return n.State() == StateSynced
	}, time.Second, 10*time.Millisecond)
	require.NotNil(t, n.Chain())
	require.Equal(t, 1, n.Chain().Length())
}

func TestSubmitTransaction_RequiresChain(t *testing.T) {
	bus := inproc.NewBus()
	n := newTestNode(t, bus)
	acct, err := account.New()
	require.NoError(t, err)

	tx := signedTransaction(t, acct, "bob", 10)
	err = n.SubmitTransaction(context.Background(), tx)
	require.ErrorIs(t, err, ErrNoChain)
}

func TestTwoNodes_GossipTransactionAndMinedBlock(t *testing.T) {
	bus := inproc.NewBus()
	a := newTestNode(t, bus)
	b := newTestNode(t, bus)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.Run(ctx)
	go b.Run(ctx)

	// a bootstraps a fresh chain; b adopts it via consensus.
	require.NoError(t, a.RequestMine(ctx))
	require.Eventually(t, func() bool { return a.State() == StateSynced }, time.Second, 10*time.Millisecond)

	require.NoError(t, b.RequestMine(ctx))
	require.Eventually(t, func() bool { return b.State() == StateSynced }, time.Second, 10*time.Millisecond)
	require.Equal(t, *a.Chain().Head().HashVal, *b.Chain().Head().HashVal,
		"b should have adopted a's chain via consensus rather than bootstrapping its own")

	sender, err := account.New()
	require.NoError(t, err)
	tx := signedTransaction(t, sender, "bob", 10)
	require.NoError(t, a.SubmitTransaction(ctx, tx))

	require.Eventually(t, func() bool {
		c := b.Chain()
		return c != nil && c.PoolLen() == 1
	}, time.Second, 10*time.Millisecond, "transaction submitted on a should gossip to b")

	require.NoError(t, a.RequestMine(ctx))
	require.Eventually(t, func() bool {
		c := b.Chain()
		return c != nil && c.Length() == a.Chain().Length()
	}, time.Second, 10*time.Millisecond, "a mined block should gossip to and be accepted by b")
}

func TestAddPeer_BootstrapsNewNodeFromExistingChain(t *testing.T) {
	bus := inproc.NewBus()
	a := newTestNode(t, bus)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.Run(ctx)

	require.NoError(t, a.RequestMine(ctx))
	require.Eventually(t, func() bool { return a.State() == StateSynced }, time.Second, 10*time.Millisecond)

	b := newTestNode(t, bus)
	go b.Run(ctx)

	require.NoError(t, a.AddPeer(ctx, "b-address:0"))

	require.Eventually(t, func() bool {
		return b.State() == StateSynced
	}, time.Second, 10*time.Millisecond, "b should adopt a's chain via add_peer")
	require.Equal(t, a.Chain().Length(), b.Chain().Length())
}

func signedTransaction(t *testing.T, sender *account.Account, receiver string, amount float64) *transaction.Transaction {
	t.Helper()
	tx := transaction.New(sender.Address(), receiver, amount, 1700000000)
	tx.Sign(sender)
	return tx
}
