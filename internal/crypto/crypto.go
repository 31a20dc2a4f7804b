// Package crypto provides the secp256k1 / Bitcoin-style primitives the rest
// of the node builds on: key generation, double-SHA256, hash160, Base58Check
// addressing, and recoverable-signature sign/recover.
package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"
	btcecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil/base58"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // RIPEMD-160 is required by hash160
)

// ErrInvalidSignature is returned when a signature is absent, fails to
// recover a public key, or recovers to an address that does not match the
// claimed signer.
var ErrInvalidSignature = errors.New("crypto: invalid signature")

// curveOrder is secp256k1's group order n. A candidate private scalar must
// fall in [1, n-1].
var curveOrder, _ = new(big.Int).SetString(
	"FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFEBAAEDCE6AF48A03BBFD25E8CD0364141", 16,
)

// WIFVersion and AddrVersion are the two version bytes Bitcoin mainnet
// defines for WIF-encoded private keys and P2PKH addresses, respectively.
//
// The upstream Python source this node is based on passes WIFVersion where
// standard Bitcoin would use AddrVersion when deriving a P2PKH address from a
// public key (see P2PKHAddress below). That is preserved here bit-for-bit:
// existing wallets produced by the source authenticate against addresses
// computed with WIFVersion, and "fixing" this would silently change every
// address on the network. Do not change P2PKHAddress to use AddrVersion.
const (
	WIFVersion  byte = 0x80
	AddrVersion byte = 0x00
)

// SHA256 returns the SHA-256 digest of x.
func SHA256(x []byte) []byte {
	sum := sha256.Sum256(x)
	return sum[:]
}

// DoubleSHA256 returns SHA256(SHA256(x)).
func DoubleSHA256(x []byte) []byte {
	return SHA256(SHA256(x))
}

// RIPEMD160 returns the RIPEMD-160 digest of x.
func RIPEMD160(x []byte) []byte {
	h := ripemd160.New()
	h.Write(x)
	return h.Sum(nil)
}

// Hash160 returns RIPEMD160(SHA256(x)), Bitcoin's standard public-key hash.
func Hash160(x []byte) []byte {
	return RIPEMD160(SHA256(x))
}

// GeneratePrivateKey draws 32 cryptographically random bytes and rejects the
// draw (redrawing) whenever the big-endian integer interpretation is zero or
// at least the secp256k1 group order. This mirrors the upstream source's
// rejection-sampling loop rather than relying on a library's own keygen, so
// the resulting byte distribution matches bit-for-bit.
func GeneratePrivateKey() ([]byte, error) {
	buf := make([]byte, 32)
	for {
		if _, err := rand.Read(buf); err != nil {
			return nil, err
		}
		n := new(big.Int).SetBytes(buf)
		if n.Sign() > 0 && n.Cmp(curveOrder) < 0 {
			out := make([]byte, 32)
			copy(out, buf)
			return out, nil
		}
	}
}

// PrivKeyToPub derives the compressed secp256k1 public key for priv.
func PrivKeyToPub(priv []byte) []byte {
	_, pub := btcec.PrivKeyFromBytes(priv)
	return pub.SerializeCompressed()
}

// Base58CheckEncode encodes version||payload||checksum as Base58, where
// checksum is the first 4 bytes of DoubleSHA256(version||payload).
func Base58CheckEncode(version byte, payload []byte) string {
	return base58.CheckEncode(payload, version)
}

// Base58CheckDecode reverses Base58CheckEncode, returning the payload and the
// version byte it was encoded with.
func Base58CheckDecode(s string) (payload []byte, version byte, err error) {
	return base58.CheckDecode(s)
}

// P2PKHAddress derives a Pay-to-Public-Key-Hash address from a compressed
// public key: base58check(WIFVersion || hash160(pubKey)). See the WIFVersion
// doc comment for why this uses WIFVersion instead of AddrVersion.
func P2PKHAddress(compressedPubKey []byte) string {
	return Base58CheckEncode(WIFVersion, Hash160(compressedPubKey))
}

// WIFEncode encodes a 32-byte private key in compressed Wallet Import Format:
// base58check(0x80 || priv || 0x01).
func WIFEncode(priv []byte) string {
	payload := make([]byte, 0, len(priv)+1)
	payload = append(payload, priv...)
	payload = append(payload, 0x01)
	return Base58CheckEncode(WIFVersion, payload)
}

// WIFDecode reverses WIFEncode, returning the 32-byte private key.
func WIFDecode(wif string) ([]byte, error) {
	payload, version, err := Base58CheckDecode(wif)
	if err != nil {
		return nil, err
	}
	if version != WIFVersion {
		return nil, errors.New("crypto: unexpected WIF version byte")
	}
	// Compressed-key flag byte trails the 32-byte scalar.
	if len(payload) != 33 {
		return nil, errors.New("crypto: unexpected WIF payload length")
	}
	return payload[:32], nil
}

// SignRecoverable signs message with priv, returning a 65-byte recoverable
// secp256k1 signature: a one-byte header encoding the recovery ID and
// compression flag, followed by the 32-byte R and 32-byte S values. The
// message is hashed with SHA-256 before signing, matching the upstream
// source's default recoverable-signature hasher.
func SignRecoverable(priv []byte, message []byte) []byte {
	key, _ := btcec.PrivKeyFromBytes(priv)
	hash := SHA256(message)
	return btcecdsa.SignCompact(key, hash, true)
}

// RecoverAddress recovers the P2PKH address of the public key that produced
// sig over message, per the same SHA-256 pre-hash SignRecoverable uses.
func RecoverAddress(sig []byte, message []byte) (string, error) {
	hash := SHA256(message)
	pub, _, err := btcecdsa.RecoverCompact(sig, hash)
	if err != nil {
		return "", ErrInvalidSignature
	}
	return P2PKHAddress(pub.SerializeCompressed()), nil
}

// VerifySignature reports whether sig is a valid recoverable signature over
// message by the holder of address.
func VerifySignature(sig []byte, message []byte, address string) bool {
	recovered, err := RecoverAddress(sig, message)
	if err != nil {
		return false
	}
	return recovered == address
}
