package account

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/darkness-chain/pedagogical-node/internal/crypto"
)

func TestNew_DistinctAccounts(t *testing.T) {
	a, err := New()
	if err != nil {
		t.Fatal(err)
	}
	b, err := New()
	if err != nil {
		t.Fatal(err)
	}
	if a.Address() == b.Address() {
		t.Error("two fresh accounts produced the same address")
	}
}

func TestFromHex_RoundTrip(t *testing.T) {
	a, err := New()
	if err != nil {
		t.Fatal(err)
	}
	restored, err := FromHex(a.PrivateKeyHex())
	if err != nil {
		t.Fatal(err)
	}
	if restored.Address() != a.Address() {
		t.Errorf("restored address = %s, want %s", restored.Address(), a.Address())
	}
}

func TestFromHex_RejectsWrongLength(t *testing.T) {
	if _, err := FromHex("ab"); err == nil {
		t.Error("expected error for a too-short hex key")
	}
}

func TestFromWIF_RoundTrip(t *testing.T) {
	a, err := New()
	if err != nil {
		t.Fatal(err)
	}
	restored, err := FromWIF(a.ToWIF())
	if err != nil {
		t.Fatal(err)
	}
	if restored.Address() != a.Address() {
		t.Errorf("restored address = %s, want %s", restored.Address(), a.Address())
	}
}

func TestFromMnemonic_Deterministic(t *testing.T) {
	mnemonic := "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	a1, err := FromMnemonic(mnemonic, "", 0)
	if err != nil {
		t.Fatal(err)
	}
	a2, err := FromMnemonic(mnemonic, "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if a1.Address() != a2.Address() {
		t.Error("same mnemonic+index produced different addresses")
	}
}

func TestFromMnemonic_DifferentIndices(t *testing.T) {
	mnemonic := "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	a0, err := FromMnemonic(mnemonic, "", 0)
	if err != nil {
		t.Fatal(err)
	}
	a1, err := FromMnemonic(mnemonic, "", 1)
	if err != nil {
		t.Fatal(err)
	}
	if a0.Address() == a1.Address() {
		t.Error("different indices derived the same address")
	}
}

func TestFromMnemonic_RejectsInvalid(t *testing.T) {
	if _, err := FromMnemonic("not a real mnemonic phrase at all", "", 0); err == nil {
		t.Error("expected error for an invalid mnemonic")
	}
}

func TestToFile_FromFile_RoundTrip(t *testing.T) {
	a, err := New()
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "wallet.json")
	if err := a.ToFile(path); err != nil {
		t.Fatal(err)
	}
	restored, err := FromFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if restored.Address() != a.Address() {
		t.Errorf("restored address = %s, want %s", restored.Address(), a.Address())
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("wallet file permissions = %o, want 600", info.Mode().Perm())
	}
}

func TestAddress_P2PKHFormat(t *testing.T) {
	a, err := New()
	if err != nil {
		t.Fatal(err)
	}
	addr := a.Address()
	if !strings.HasPrefix(addr, "t") {
		t.Errorf("address should start with t (base58check of the WIF version byte 0x80), got %s", addr)
	}
}

func TestSign_VerifiesAgainstOwnAddress(t *testing.T) {
	a, err := New()
	if err != nil {
		t.Fatal(err)
	}
	sig := a.Sign("a payload")
	if len(sig) != 65 {
		t.Fatalf("signature length = %d, want 65", len(sig))
	}
	if !crypto.VerifySignature(sig, []byte("a payload"), a.Address()) {
		t.Error("signature should verify against the signing account's own address")
	}
}
