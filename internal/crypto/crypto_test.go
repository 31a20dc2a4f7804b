package crypto

import (
	"strings"
	"testing"
)

func TestGeneratePrivateKey_Length(t *testing.T) {
	priv, err := GeneratePrivateKey()
	if err != nil {
		t.Fatal(err)
	}
	if len(priv) != 32 {
		t.Errorf("private key length = %d, want 32", len(priv))
	}
}

func TestGeneratePrivateKey_Distinct(t *testing.T) {
	a, err := GeneratePrivateKey()
	if err != nil {
		t.Fatal(err)
	}
	b, err := GeneratePrivateKey()
	if err != nil {
		t.Fatal(err)
	}
	if string(a) == string(b) {
		t.Error("two generated private keys were identical")
	}
}

func TestP2PKHAddress_UsesWIFVersion(t *testing.T) {
	priv, err := GeneratePrivateKey()
	if err != nil {
		t.Fatal(err)
	}
	pub := PrivKeyToPub(priv)
	addr := P2PKHAddress(pub)

	_, version, err := Base58CheckDecode(addr)
	if err != nil {
		t.Fatal(err)
	}
	// This is the intentional source quirk (SPEC_FULL.md §10): addresses are
	// encoded with the WIF version byte, not the standard P2PKH version
	// byte. Any fix that changes this would break interoperability with
	// previously-generated addresses.
	if version != WIFVersion {
		t.Errorf("address version byte = 0x%02x, want WIFVersion 0x%02x", version, WIFVersion)
	}
}

func TestWIFRoundTrip(t *testing.T) {
	priv, err := GeneratePrivateKey()
	if err != nil {
		t.Fatal(err)
	}
	wif := WIFEncode(priv)
	decoded, err := WIFDecode(wif)
	if err != nil {
		t.Fatal(err)
	}
	if string(decoded) != string(priv) {
		t.Error("WIF round trip did not preserve the private key")
	}
}

func TestSignRecoverable_RecoverAddress(t *testing.T) {
	priv, err := GeneratePrivateKey()
	if err != nil {
		t.Fatal(err)
	}
	pub := PrivKeyToPub(priv)
	addr := P2PKHAddress(pub)
	message := []byte("hello node")

	sig := SignRecoverable(priv, message)
	if len(sig) != 65 {
		t.Fatalf("signature length = %d, want 65", len(sig))
	}

	recovered, err := RecoverAddress(sig, message)
	if err != nil {
		t.Fatal(err)
	}
	if recovered != addr {
		t.Errorf("recovered address = %s, want %s", recovered, addr)
	}
}

func TestVerifySignature(t *testing.T) {
	priv, err := GeneratePrivateKey()
	if err != nil {
		t.Fatal(err)
	}
	pub := PrivKeyToPub(priv)
	addr := P2PKHAddress(pub)
	message := []byte("a message")
	sig := SignRecoverable(priv, message)

	if !VerifySignature(sig, message, addr) {
		t.Error("VerifySignature should accept a correctly-signed message")
	}
	if VerifySignature(sig, []byte("a different message"), addr) {
		t.Error("VerifySignature should reject a tampered message")
	}

	otherPriv, _ := GeneratePrivateKey()
	otherAddr := P2PKHAddress(PrivKeyToPub(otherPriv))
	if VerifySignature(sig, message, otherAddr) {
		t.Error("VerifySignature should reject recovery against the wrong address")
	}
}

func TestHash160_Length(t *testing.T) {
	h := Hash160([]byte("anything"))
	if len(h) != 20 {
		t.Errorf("Hash160 length = %d, want 20", len(h))
	}
}

func TestBase58CheckEncode_Alphabet(t *testing.T) {
	encoded := Base58CheckEncode(AddrVersion, []byte{1, 2, 3, 4})
	const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"
	for _, r := range encoded {
		if !strings.ContainsRune(base58Alphabet, r) {
			t.Errorf("encoded string contains non-base58 character %q", r)
		}
	}
}
