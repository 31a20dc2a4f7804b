// Package block implements the ordered transaction container with
// proof-of-work nonce, miner signature, and chained hash.
package block

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/darkness-chain/pedagogical-node/internal/account"
	"github.com/darkness-chain/pedagogical-node/internal/crypto"
	"github.com/darkness-chain/pedagogical-node/internal/transaction"
)

// Block is an ordered container of transactions, chained to its
// predecessor's hash and mined under proof-of-work.
//
// PreviousHash is empty for genesis. Miner is nil until the producer sets it
// (it stays nil on a genesis block built by chain.Create). HashVal is nil
// until the block has been mined.
type Block struct {
	Index        int                        `json:"index"`
	PreviousHash string                     `json:"previous_hash"`
	Nonce        int                        `json:"nonce"`
	Timestamp    float64                    `json:"timestamp"`
	Miner        *string                    `json:"miner"`
	HashVal      *string                    `json:"hashval"`
	Transactions []*transaction.Transaction `json:"transactions"`
	Signature    *string                    `json:"signature"`
}

// New constructs an empty block at the given position, chained to
// previousHash, with the timestamp the caller passes in.
//
// The upstream Python source evaluates its Timestamp default once, at class
// definition — every Block instance that doesn't pass an explicit timestamp
// shares that stale value. That is a latent bug, not a feature (see
// SPEC_FULL.md §10); New has no default timestamp, and the chain package
// passes the current time for every block it builds.
func New(index int, previousHash string, timestamp float64) *Block {
	return &Block{
		Index:        index,
		PreviousHash: previousHash,
		Timestamp:    timestamp,
		Transactions: []*transaction.Transaction{},
	}
}

// AddTransaction appends tx and assigns its TxNumber to its 0-indexed
// position within the block.
func (b *Block) AddTransaction(tx *transaction.Transaction) {
	n := len(b.Transactions)
	tx.TxNumber = &n
	b.Transactions = append(b.Transactions, tx)
}

// CanonicalForHash returns canon_block_for_hash(b): the concatenation of the
// decimal-string forms of index, previous_hash, nonce, timestamp, miner,
// followed by sender||receiver||amount for every transaction in order.
//
// This is deliberately string concatenation, not canonical JSON — an
// asymmetry with CanonicalForSignature that is preserved from the source
// rather than "fixed" (see SPEC_FULL.md §10).
func (b *Block) CanonicalForHash() string {
	var sb strings.Builder
	sb.WriteString(strconv.Itoa(b.Index))
	sb.WriteString(b.PreviousHash)
	sb.WriteString(strconv.Itoa(b.Nonce))
	sb.WriteString(transaction.FormatFloat(b.Timestamp))
	if b.Miner != nil {
		sb.WriteString(*b.Miner)
	}
	for _, tx := range b.Transactions {
		sb.WriteString(tx.HashInputFields())
	}
	return sb.String()
}

// computeHash returns the hex SHA-256 digest of CanonicalForHash().
func (b *Block) computeHash() string {
	return fmt.Sprintf("%x", crypto.SHA256([]byte(b.CanonicalForHash())))
}

// Mine searches nonces starting from the block's current Nonce until
// computeHash() produces a hex digest with difficulty leading zero
// characters, sets HashVal to it, and returns it.
func (b *Block) Mine(difficulty int) string {
	prefix := strings.Repeat("0", difficulty)
	h := b.computeHash()
	for !strings.HasPrefix(h, prefix) {
		b.Nonce++
		h = b.computeHash()
	}
	b.HashVal = &h
	return h
}

// HashIsValid reports whether the block's recomputed hash matches HashVal
// and satisfies the difficulty's leading-zero requirement.
func (b *Block) HashIsValid(difficulty int) bool {
	if b.HashVal == nil {
		return false
	}
	prefix := strings.Repeat("0", difficulty)
	return *b.HashVal == b.computeHash() && strings.HasPrefix(*b.HashVal, prefix)
}

// canonicalSigPayload mirrors the block for CanonicalForSignature: every
// field except Signature, recursively key-sorted by canonicalizeJSON.
type canonicalSigPayload struct {
	Index        int                        `json:"index"`
	PreviousHash string                     `json:"previous_hash"`
	Nonce        int                        `json:"nonce"`
	Timestamp    json.RawMessage            `json:"timestamp"`
	Miner        *string                    `json:"miner"`
	HashVal      *string                    `json:"hashval"`
	Transactions []*transaction.Transaction `json:"transactions"`
}

// CanonicalForSignature returns canon_block_for_sig(b): the canonical JSON
// object of the block with Signature removed, keys sorted ascending by
// codepoint at every nesting level (not just the top level) — including
// inside each transaction embedded in Transactions, matching canon_tx's own
// sorting discipline. Unlike CanonicalForHash, this is ordinary canonical
// JSON — see the CanonicalForHash doc comment for why the two forms differ.
func (b *Block) CanonicalForSignature() []byte {
	payload := canonicalSigPayload{
		Index:        b.Index,
		PreviousHash: b.PreviousHash,
		Nonce:        b.Nonce,
		Timestamp:    json.RawMessage(transaction.FormatFloat(b.Timestamp)),
		Miner:        b.Miner,
		HashVal:      b.HashVal,
		Transactions: b.Transactions,
	}
	raw, _ := json.Marshal(payload)
	return canonicalizeJSON(raw)
}

// canonicalizeJSON re-encodes raw with every object's keys sorted ascending
// by codepoint, recursing into nested objects and arrays so a transaction
// embedded several levels deep is sorted the same as a top-level one. Scalar
// values (including null) pass through unchanged.
func canonicalizeJSON(raw json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return raw
	}
	switch trimmed[0] {
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return raw
		}
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		sortStrings(keys)

		var sb strings.Builder
		sb.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				sb.WriteByte(',')
			}
			kb, _ := json.Marshal(k)
			sb.Write(kb)
			sb.WriteByte(':')
			sb.Write(canonicalizeJSON(obj[k]))
		}
		sb.WriteByte('}')
		return json.RawMessage(sb.String())
	case '[':
		var arr []json.RawMessage
		if err := json.Unmarshal(raw, &arr); err != nil {
			return raw
		}
		var sb strings.Builder
		sb.WriteByte('[')
		for i, v := range arr {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.Write(canonicalizeJSON(v))
		}
		sb.WriteByte(']')
		return json.RawMessage(sb.String())
	default:
		return raw
	}
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// Sign sets b.Signature to the base64 encoding of acct's recoverable
// signature over CanonicalForSignature(b).
func (b *Block) Sign(acct *account.Account) {
	sig := acct.Sign(string(b.CanonicalForSignature()))
	encoded := base64.StdEncoding.EncodeToString(sig)
	b.Signature = &encoded
}

// Verify reports whether the block is internally consistent: its signature
// recovers to Miner, every transaction verifies, and its hash is correct
// (HashIsValid is NOT re-checked against a difficulty here — callers that
// need the proof-of-work check call HashIsValid separately with the
// chain's difficulty).
func (b *Block) Verify() bool {
	if b.Signature == nil || b.Miner == nil {
		return false
	}
	sig, err := base64.StdEncoding.DecodeString(*b.Signature)
	if err != nil {
		return false
	}
	if !crypto.VerifySignature(sig, b.CanonicalForSignature(), *b.Miner) {
		return false
	}
	for _, tx := range b.Transactions {
		if !tx.Verify() {
			return false
		}
	}
	return b.HashVal != nil && *b.HashVal == b.computeHash()
}
