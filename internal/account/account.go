// Package account wraps a secp256k1 private key and exposes the operations
// the rest of the node needs from an identity: signing, address derivation,
// and persistence.
package account

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/tyler-smith/go-bip32"
	"github.com/tyler-smith/go-bip39"

	"github.com/darkness-chain/pedagogical-node/internal/crypto"
)

// Account is a secp256k1 identity: a private key plus the operations derived
// from it (signing, address, WIF, persistence).
type Account struct {
	priv []byte // 32 bytes
}

// New generates a fresh Account from a freshly drawn private key.
func New() (*Account, error) {
	priv, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("account: generate key: %w", err)
	}
	return &Account{priv: priv}, nil
}

// FromHex imports a private key from its 64-hex-character form.
func FromHex(hexKey string) (*Account, error) {
	priv, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("account: decode hex: %w", err)
	}
	if len(priv) != 32 {
		return nil, fmt.Errorf("account: private key must be 32 bytes, got %d", len(priv))
	}
	return &Account{priv: priv}, nil
}

// FromWIF imports a private key from its compressed Wallet Import Format
// encoding.
func FromWIF(wif string) (*Account, error) {
	priv, err := crypto.WIFDecode(wif)
	if err != nil {
		return nil, fmt.Errorf("account: decode wif: %w", err)
	}
	return &Account{priv: priv}, nil
}

// FromMnemonic derives an Account from a BIP-39 mnemonic and passphrase,
// using BIP-32 hardened derivation along m/44'/0'/0'/0/{index} — the same
// derivation shape the teacher's Ethereum address generator uses, applied
// here to a single-chain secp256k1 identity rather than a per-network one.
// This supplements the hex/WIF import paths spec.md names; it is not a
// replacement for them.
func FromMnemonic(mnemonic, passphrase string, index uint32) (*Account, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, fmt.Errorf("account: invalid mnemonic")
	}
	seed := bip39.NewSeed(mnemonic, passphrase)

	master, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, fmt.Errorf("account: master key: %w", err)
	}
	purpose, err := master.NewChildKey(bip32.FirstHardenedChild + 44)
	if err != nil {
		return nil, fmt.Errorf("account: derive purpose: %w", err)
	}
	coin, err := purpose.NewChildKey(bip32.FirstHardenedChild + 0)
	if err != nil {
		return nil, fmt.Errorf("account: derive coin: %w", err)
	}
	acct, err := coin.NewChildKey(bip32.FirstHardenedChild + 0)
	if err != nil {
		return nil, fmt.Errorf("account: derive account: %w", err)
	}
	change, err := acct.NewChildKey(0)
	if err != nil {
		return nil, fmt.Errorf("account: derive change: %w", err)
	}
	child, err := change.NewChildKey(index)
	if err != nil {
		return nil, fmt.Errorf("account: derive child: %w", err)
	}

	priv := make([]byte, 32)
	copy(priv, child.Key)
	return &Account{priv: priv}, nil
}

// walletFile is the on-disk shape of a persisted account: a single hex
// private key field, per spec.
type walletFile struct {
	PrivateKey string `json:"private_key"`
}

// FromFile restores an Account previously written by ToFile.
func FromFile(path string) (*Account, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("account: read wallet file: %w", err)
	}
	var wf walletFile
	if err := json.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("account: decode wallet file: %w", err)
	}
	return FromHex(wf.PrivateKey)
}

// ToFile persists the account's private key as {"private_key": "<hex>"}.
func (a *Account) ToFile(path string) error {
	data, err := json.Marshal(walletFile{PrivateKey: a.PrivateKeyHex()})
	if err != nil {
		return fmt.Errorf("account: encode wallet file: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("account: write wallet file: %w", err)
	}
	return nil
}

// PrivateKeyHex returns the private key as a 64-character hex string.
func (a *Account) PrivateKeyHex() string {
	return hex.EncodeToString(a.priv)
}

// Sign returns a 65-byte recoverable secp256k1 signature over the UTF-8
// bytes of message.
func (a *Account) Sign(message string) []byte {
	return crypto.SignRecoverable(a.priv, []byte(message))
}

// Address returns the account's P2PKH address.
func (a *Account) Address() string {
	pub := crypto.PrivKeyToPub(a.priv)
	return crypto.P2PKHAddress(pub)
}

// ToWIF returns the account's private key in compressed WIF form.
func (a *Account) ToWIF() string {
	return crypto.WIFEncode(a.priv)
}
