package block

import (
	"strings"
	"testing"

	"github.com/darkness-chain/pedagogical-node/internal/account"
	"github.com/darkness-chain/pedagogical-node/internal/transaction"
)

func newTestAccount(t *testing.T) *account.Account {
	t.Helper()
	a, err := account.New()
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func TestMine_ProducesValidHash(t *testing.T) {
	b := New(0, "", 1700000000)
	hash := b.Mine(2)

	if !strings.HasPrefix(hash, "00") {
		t.Errorf("mined hash %s does not have the required leading zeros", hash)
	}
	if !b.HashIsValid(2) {
		t.Error("HashIsValid should accept the block's own freshly mined hash")
	}
}

func TestHashIsValid_RejectsTamperedNonce(t *testing.T) {
	b := New(0, "", 1700000000)
	b.Mine(1)
	b.Nonce++
	if b.HashIsValid(1) {
		t.Error("HashIsValid should reject a block whose nonce no longer matches its hashval")
	}
}

func TestSignVerify(t *testing.T) {
	miner := newTestAccount(t)
	b := New(1, "previousHashValue", 1700000000)
	minerAddr := miner.Address()
	b.Miner = &minerAddr
	b.Mine(1)
	b.Sign(miner)

	if !b.Verify() {
		t.Error("a freshly mined and signed block should verify")
	}
}

func TestVerify_RejectsTamperedTransaction(t *testing.T) {
	miner := newTestAccount(t)
	sender := newTestAccount(t)
	b := New(1, "previousHashValue", 1700000000)
	minerAddr := miner.Address()
	b.Miner = &minerAddr

	tx := transaction.New(sender.Address(), "bob", 10, 1700000000)
	tx.Sign(sender)
	b.AddTransaction(tx)

	b.Mine(1)
	b.Sign(miner)
	if !b.Verify() {
		t.Fatal("block should verify before tampering")
	}

	tx.Amount = 999
	if b.Verify() {
		t.Error("tampering with an included transaction's amount should break block verification")
	}
}

func TestVerify_RejectsWrongMiner(t *testing.T) {
	miner := newTestAccount(t)
	impostor := newTestAccount(t)
	b := New(1, "previousHashValue", 1700000000)
	minerAddr := miner.Address()
	b.Miner = &minerAddr
	b.Mine(1)
	b.Sign(miner)

	impostorAddr := impostor.Address()
	b.Miner = &impostorAddr
	if b.Verify() {
		t.Error("swapping the miner field after signing should break verification")
	}
}

func TestAddTransaction_AssignsTxNumber(t *testing.T) {
	b := New(0, "", 1700000000)
	tx1 := transaction.New("alice", "bob", 1, 1700000000)
	tx2 := transaction.New("bob", "carol", 2, 1700000000)
	b.AddTransaction(tx1)
	b.AddTransaction(tx2)

	if tx1.TxNumber == nil || *tx1.TxNumber != 0 {
		t.Error("first transaction should be numbered 0")
	}
	if tx2.TxNumber == nil || *tx2.TxNumber != 1 {
		t.Error("second transaction should be numbered 1")
	}
}

func TestCanonicalForSignature_ExcludesSignature(t *testing.T) {
	miner := newTestAccount(t)
	b := New(1, "previousHashValue", 1700000000)
	minerAddr := miner.Address()
	b.Miner = &minerAddr
	b.Mine(1)

	beforeSign := b.CanonicalForSignature()
	b.Sign(miner)
	afterSign := b.CanonicalForSignature()

	if string(beforeSign) != string(afterSign) {
		t.Error("CanonicalForSignature should not change once Signature is set, since it always excludes it")
	}
	if strings.Contains(string(afterSign), "signature") {
		t.Error("CanonicalForSignature should never include the signature field")
	}
}

func TestCanonicalForSignature_SortsKeysInsideNestedTransactions(t *testing.T) {
	sender := newTestAccount(t)
	b := New(1, "previousHashValue", 1700000000)

	tx := transaction.New(sender.Address(), "bob", 10, 1700000000)
	tx.Sign(sender)
	b.AddTransaction(tx)

	raw := b.CanonicalForSignature()
	txStart := strings.Index(string(raw), `"transactions":[{`)
	if txStart < 0 {
		t.Fatal("expected a transactions array with at least one nested object")
	}
	txObj := string(raw)[txStart+len(`"transactions":[`):]
	txObj = txObj[:strings.Index(txObj, "}")+1]

	amountIdx := strings.Index(txObj, `"amount"`)
	senderIdx := strings.Index(txObj, `"sender"`)
	signatureIdx := strings.Index(txObj, `"signature"`)
	timestampIdx := strings.Index(txObj, `"timestamp"`)
	if amountIdx < 0 || senderIdx < 0 || signatureIdx < 0 || timestampIdx < 0 {
		t.Fatalf("nested transaction object missing expected keys: %s", txObj)
	}
	if !(amountIdx < senderIdx && senderIdx < signatureIdx && signatureIdx < timestampIdx) {
		t.Errorf("nested transaction keys are not sorted ascending by codepoint: %s", txObj)
	}
}
