// Package transaction implements the value-transfer record signed and
// verified against the addresses it names, plus its canonical
// pre-signature serialization.
package transaction

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/darkness-chain/pedagogical-node/internal/account"
	"github.com/darkness-chain/pedagogical-node/internal/crypto"
)

// CoinbaseSender is the reserved sender literal marking a block-reward
// transaction. Coinbase transactions carry no signature and bypass
// signature verification.
const CoinbaseSender = "NETWORK_ADMIN"

// Transaction is a value transfer from Sender to Receiver.
//
// TxNumber is nil until the enclosing block assigns it (the transaction's
// position within that block). Signature is nil for coinbase transactions.
type Transaction struct {
	Sender    string  `json:"sender"`
	Receiver  string  `json:"receiver"`
	Amount    float64 `json:"amount"`
	Timestamp float64 `json:"timestamp"`
	TxNumber  *int    `json:"tx_number"`
	Signature *string `json:"signature"`
}

// New constructs an unsigned, unnumbered transaction with the given fields.
func New(sender, receiver string, amount, timestamp float64) *Transaction {
	return &Transaction{
		Sender:    sender,
		Receiver:  receiver,
		Amount:    amount,
		Timestamp: timestamp,
	}
}

// FormatFloat renders f the way Python's json.dumps renders a float: the
// shortest round-tripping decimal, with a trailing ".0" for integral values.
// This is an interoperability constraint (see SPEC_FULL.md §4/DESIGN.md):
// canon_tx's hash input is only stable across implementations if every
// implementation formats floats identically. Also used by the block
// package's hash-input concatenation, which embeds the same amount format.
func FormatFloat(f float64) string {
	if !math.IsInf(f, 0) && !math.IsNaN(f) {
		abs := math.Abs(f)
		if f == math.Trunc(f) && abs < 1e16 {
			return strconv.FormatFloat(f, 'f', 1, 64)
		}
		if abs >= 1e-4 && abs < 1e16 {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// CanonicalPreSignature returns canon_tx(t): a JSON object with keys sorted
// ascending by codepoint, containing exactly sender, receiver, amount,
// timestamp — never tx_number or signature.
func (t *Transaction) CanonicalPreSignature() []byte {
	return []byte(fmt.Sprintf(
		`{"amount":%s,"receiver":%s,"sender":%s,"timestamp":%s}`,
		FormatFloat(t.Amount),
		quoteString(t.Receiver),
		quoteString(t.Sender),
		FormatFloat(t.Timestamp),
	))
}

// HashInputFields returns the sender, receiver, and amount fields in the
// exact decimal-string form Block.CanonicalForHash concatenates them in.
func (t *Transaction) HashInputFields() string {
	return t.Sender + t.Receiver + FormatFloat(t.Amount)
}

// MarshalJSON renders Amount and Timestamp the way Python's json.dumps
// would (via FormatFloat) in every JSON encoding of a Transaction, not just
// CanonicalPreSignature — so a Transaction embedded whole inside
// Block.CanonicalForSignature (canon_block_for_sig includes the full
// transaction objects, unlike canon_tx) still round-trips to the same
// bytes a Python-side implementation would produce.
func (t *Transaction) MarshalJSON() ([]byte, error) {
	type alias Transaction
	return json.Marshal(struct {
		*alias
		Amount    json.RawMessage `json:"amount"`
		Timestamp json.RawMessage `json:"timestamp"`
	}{
		alias:     (*alias)(t),
		Amount:    json.RawMessage(FormatFloat(t.Amount)),
		Timestamp: json.RawMessage(FormatFloat(t.Timestamp)),
	})
}

// quoteString escapes s as a JSON string literal. Addresses and the
// coinbase sentinel are always plain ASCII, but we escape properly rather
// than assume that.
func quoteString(s string) string {
	// encoding/json's Marshal on a string never fails.
	b, _ := json.Marshal(s)
	return string(b)
}

// Sign sets t.Signature to the base64 encoding of acct's recoverable
// signature over CanonicalPreSignature(t).
func (t *Transaction) Sign(acct *account.Account) {
	sig := acct.Sign(string(t.CanonicalPreSignature()))
	encoded := base64.StdEncoding.EncodeToString(sig)
	t.Signature = &encoded
}

// Verify reports whether t carries a valid signature for its Sender.
// Coinbase transactions (Sender == CoinbaseSender) are always valid.
func (t *Transaction) Verify() bool {
	if t.Sender == CoinbaseSender {
		return true
	}
	if t.Signature == nil {
		return false
	}
	sig, err := base64.StdEncoding.DecodeString(*t.Signature)
	if err != nil {
		return false
	}
	return crypto.VerifySignature(sig, t.CanonicalPreSignature(), t.Sender)
}

// DedupKey returns the key under which t is deduplicated in a pool: its
// base64 signature. Two transactions with identical signatures are the same
// transaction. Coinbase transactions (no signature) are never deduplicated
// against one another by this key alone — callers must not rely on it for
// coinbase transactions.
func (t *Transaction) DedupKey() (string, bool) {
	if t.Signature == nil {
		return "", false
	}
	return *t.Signature, true
}
