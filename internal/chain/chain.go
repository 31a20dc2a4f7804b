// Package chain implements the append-only sequence of blocks plus
// pending-transaction pool, the block-acceptance invariants, mining, and
// whole-chain validation.
package chain

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/darkness-chain/pedagogical-node/internal/account"
	"github.com/darkness-chain/pedagogical-node/internal/block"
	"github.com/darkness-chain/pedagogical-node/internal/transaction"
)

// DefaultBlockReward is the coinbase amount minted per mined block when a
// Chain is created without an explicit override.
const DefaultBlockReward = 50.0

// ErrInvalidBlock is returned when a candidate block fails the
// block-acceptance gate (hash mismatch, insufficient difficulty, or
// index/previous-hash/timestamp disagreement with the head).
var ErrInvalidBlock = errors.New("chain: invalid block")

// ErrEmptyPool is returned by MineBlock when there are no pending
// transactions to mine.
var ErrEmptyPool = errors.New("chain: transaction pool is empty")

// now returns the current time as seconds-since-epoch, matching the data
// model's real-number timestamp convention.
func now() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}

// Chain is the Node's exclusively-owned append-only block sequence plus its
// pending-transaction pool. Every read-modify-write on Blocks or TxPool is
// guarded by mu — the one coarse lock the concurrency model (SPEC_FULL.md
// §6) calls for, shared by the controller context and the network
// receiver's goroutine.
type Chain struct {
	mu sync.Mutex

	Difficulty  int                        `json:"difficulty"`
	Blocks      []*block.Block             `json:"blocks"`
	TxPool      []*transaction.Transaction `json:"tx_pool"`
	BlockReward float64                    `json:"block_reward"`

	hashIndex map[string]struct{} // hashval-indexed set for O(1) duplicate detection
}

// Create builds a chain with a mined, miner-signed genesis block.
func Create(difficulty int, miner *account.Account) *Chain {
	genesis := block.New(0, "", now())
	genesis.Mine(difficulty)
	genesis.Sign(miner)

	c := &Chain{
		Difficulty:  difficulty,
		Blocks:      []*block.Block{genesis},
		TxPool:      []*transaction.Transaction{},
		BlockReward: DefaultBlockReward,
		hashIndex:   map[string]struct{}{},
	}
	c.indexBlock(genesis)
	return c
}

// NewWithGenesis builds a chain whose first block is genesis, taken
// verbatim rather than mined locally. Used by a node rebuilding a peer's
// chain from an add_peer gossip frame: the peer's genesis is trusted as-is,
// and every later block is replayed through AddBlockFromPeer so the
// acceptance gate still runs on blocks 1..N (see SPEC_FULL.md §5.6).
func NewWithGenesis(difficulty int, genesis *block.Block) *Chain {
	c := &Chain{
		Difficulty:  difficulty,
		Blocks:      []*block.Block{genesis},
		TxPool:      []*transaction.Transaction{},
		BlockReward: DefaultBlockReward,
		hashIndex:   map[string]struct{}{},
	}
	c.indexBlock(genesis)
	return c
}

func (c *Chain) indexBlock(b *block.Block) {
	if c.hashIndex == nil {
		c.hashIndex = map[string]struct{}{}
	}
	if b.HashVal != nil {
		c.hashIndex[*b.HashVal] = struct{}{}
	}
}

// Head returns the last block of the chain.
func (c *Chain) Head() *block.Block {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Blocks[len(c.Blocks)-1]
}

// BlockAt returns the block at position i.
func (c *Chain) BlockAt(i int) *block.Block {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Blocks[i]
}

// Length returns the number of blocks in the chain.
func (c *Chain) Length() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Blocks)
}

// PoolLen returns the number of pending transactions in the pool.
func (c *Chain) PoolLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.TxPool)
}

// HasBlock reports whether a block with the given hashval is already
// present in the chain, via the hashval index rather than a linear scan
// over Blocks (see SPEC_FULL.md §5.6 and §10).
func (c *Chain) HasBlock(hashval string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.hashIndex[hashval]
	return ok
}

// AddTransaction appends t to the pool unless a transaction with the same
// signature is already present, in which case it is silently dropped. It
// reports whether t was newly added.
func (c *Chain) AddTransaction(t *transaction.Transaction) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.addTransactionLocked(t)
}

func (c *Chain) addTransactionLocked(t *transaction.Transaction) bool {
	key, ok := t.DedupKey()
	if ok {
		for _, existing := range c.TxPool {
			if k, exists := existing.DedupKey(); exists && k == key {
				return false
			}
		}
	}
	c.TxPool = append(c.TxPool, t)
	return true
}

// MineBlock mines the pool's pending transactions (plus a freshly appended
// coinbase reward to miner) into a new block, appends it if it passes the
// acceptance gate, and always clears the pool afterward — even on
// rejection, matching the source's behavior (see SPEC_FULL.md §10).
//
// Returns ErrEmptyPool if the pool has no pending transactions.
func (c *Chain) MineBlock(miner *account.Account) (*block.Block, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.TxPool) == 0 {
		return nil, ErrEmptyPool
	}

	minerAddress := miner.Address()
	coinbase := transaction.New(transaction.CoinbaseSender, minerAddress, c.BlockReward, now())
	c.TxPool = append(c.TxPool, coinbase)

	head := c.Blocks[len(c.Blocks)-1]
	candidate := block.New(head.Index+1, mustHash(head), now())
	candidate.Miner = &minerAddress
	for _, tx := range c.TxPool {
		candidate.AddTransaction(tx)
	}
	candidate.Mine(c.Difficulty)
	candidate.Sign(miner)

	accepted, err := c.addBlockLocked(candidate)
	c.TxPool = c.TxPool[:0]
	return accepted, err
}

// AddBlockFromPeer runs the block-acceptance gate against a block received
// from the network. On acceptance the pool is cleared — even of pending
// transactions not included in the accepted block. That is lossy but
// matches the source's behavior; see SPEC_FULL.md §10's open question for
// the principled alternative (drop only transactions whose signatures
// appear in the accepted block) that this implementation deliberately does
// not take.
func (c *Chain) AddBlockFromPeer(b *block.Block) (*block.Block, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	accepted, err := c.addBlockLocked(b)
	if err == nil {
		c.TxPool = c.TxPool[:0]
	}
	return accepted, err
}

// addBlockLocked is the acceptance gate shared by MineBlock and
// AddBlockFromPeer. Caller must hold mu.
func (c *Chain) addBlockLocked(b *block.Block) (*block.Block, error) {
	head := c.Blocks[len(c.Blocks)-1]

	switch {
	case head.HashVal == nil:
		return nil, fmt.Errorf("%w: head has no hashval", ErrInvalidBlock)
	case b.Timestamp < head.Timestamp:
		return nil, fmt.Errorf("%w: timestamp regresses head", ErrInvalidBlock)
	case b.Index != head.Index+1:
		return nil, fmt.Errorf("%w: index is not head.index+1", ErrInvalidBlock)
	case b.PreviousHash != *head.HashVal:
		return nil, fmt.Errorf("%w: previous_hash does not match head", ErrInvalidBlock)
	case !b.HashIsValid(c.Difficulty):
		return nil, fmt.Errorf("%w: hash is not valid at this difficulty", ErrInvalidBlock)
	}

	c.Blocks = append(c.Blocks, b)
	c.indexBlock(b)
	return b, nil
}

func mustHash(b *block.Block) string {
	if b.HashVal == nil {
		return ""
	}
	return *b.HashVal
}

// IsValid scans the chain, requiring every non-genesis block to satisfy
// HashIsValid and chain its previous_hash to the prior block's hashval.
// Genesis is checked for hash validity only.
func (c *Chain) IsValid() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isValidLocked()
}

func (c *Chain) isValidLocked() bool {
	if len(c.Blocks) == 0 {
		return false
	}
	if !c.Blocks[0].HashIsValid(c.Difficulty) {
		return false
	}
	for i := 1; i < len(c.Blocks); i++ {
		cur, prev := c.Blocks[i], c.Blocks[i-1]
		if prev.HashVal == nil || cur.PreviousHash != *prev.HashVal {
			return false
		}
		if !cur.HashIsValid(c.Difficulty) {
			return false
		}
	}
	return true
}

// chainJSON mirrors the wire chain dict shape for decoding; Chain's own
// exported fields already match it for encoding.
type chainJSON struct {
	Difficulty  int                        `json:"difficulty"`
	Blocks      []*block.Block             `json:"blocks"`
	TxPool      []*transaction.Transaction `json:"tx_pool"`
	BlockReward float64                    `json:"block_reward"`
}

// ToJSON encodes the chain dict per SPEC_FULL.md §7.
func (c *Chain) ToJSON() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return json.Marshal(chainJSON{
		Difficulty:  c.Difficulty,
		Blocks:      c.Blocks,
		TxPool:      c.TxPool,
		BlockReward: c.BlockReward,
	})
}

// FromJSON decodes a chain dict, deep-copying every block and transaction
// into a freshly owned Chain (the decode itself is the deep copy the
// ownership model in SPEC_FULL.md §4 requires of network-received chains).
func FromJSON(data []byte) (*Chain, error) {
	var decoded chainJSON
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, fmt.Errorf("chain: decode: %w", err)
	}
	c := &Chain{
		Difficulty:  decoded.Difficulty,
		Blocks:      decoded.Blocks,
		TxPool:      decoded.TxPool,
		BlockReward: decoded.BlockReward,
		hashIndex:   map[string]struct{}{},
	}
	for _, b := range c.Blocks {
		c.indexBlock(b)
	}
	return c, nil
}

// Clone returns a deep copy of the chain via its wire encoding, giving the
// caller a chain it can mutate or validate without racing the original's
// owner. Used when handing a snapshot to a peer or to the UI.
func (c *Chain) Clone() (*Chain, error) {
	data, err := c.ToJSON()
	if err != nil {
		return nil, err
	}
	return FromJSON(data)
}
