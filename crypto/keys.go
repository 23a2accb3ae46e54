package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil/bech32"
)

// AddressPrefix defines the human-readable prefix of a bech32 address.
type AddressPrefix string

// WNEPrefix is the prefix used for all grantchain addresses.
const WNEPrefix AddressPrefix = "wne"

// Address represents a 32-byte grantchain address with a specific prefix.
type Address struct {
	prefix AddressPrefix
	bytes  [32]byte
}

func NewAddress(prefix AddressPrefix, b [32]byte) Address {
	return Address{prefix: prefix, bytes: b}
}

func (a Address) String() string {
	conv, err := bech32.ConvertBits(a.bytes[:], 8, 5, true)
	if err != nil {
		panic(err)
	}
	encoded, err := bech32.Encode(string(a.prefix), conv)
	if err != nil {
		panic(err)
	}
	return encoded
}

func (a Address) Bytes() [32]byte {
	return a.bytes
}

// Prefix returns the human-readable prefix associated with the address.
func (a Address) Prefix() AddressPrefix {
	return a.prefix
}

func DecodeAddress(addrStr string) (Address, error) {
	prefix, decoded, err := bech32.Decode(addrStr)
	if err != nil {
		return Address{}, fmt.Errorf("invalid bech32 string: %w", err)
	}
	conv, err := bech32.ConvertBits(decoded, 5, 8, false)
	if err != nil {
		return Address{}, fmt.Errorf("invalid bech32 payload: %w", err)
	}
	if len(conv) != 32 {
		return Address{}, fmt.Errorf("address must be 32 bytes, got %d", len(conv))
	}
	var b [32]byte
	copy(b[:], conv)
	return Address{prefix: AddressPrefix(prefix), bytes: b}, nil
}

// ParseAddress accepts either a bech32 address or a hex-encoded 32-byte value.
func ParseAddress(raw string) (Address, error) {
	trimmed := strings.TrimSpace(raw)
	if addr, err := DecodeAddress(trimmed); err == nil {
		return addr, nil
	}
	data, err := hex.DecodeString(strings.TrimPrefix(trimmed, "0x"))
	if err != nil {
		return Address{}, fmt.Errorf("address is neither bech32 nor hex: %w", err)
	}
	if len(data) != 32 {
		return Address{}, fmt.Errorf("address must be 32 bytes, got %d", len(data))
	}
	var b [32]byte
	copy(b[:], data)
	return Address{prefix: WNEPrefix, bytes: b}, nil
}

// SignerKey wraps an ed25519 private key used to sign proof-of-process
// messages.
type SignerKey struct {
	priv ed25519.PrivateKey
}

// GenerateSignerKey creates a fresh ed25519 signer key.
func GenerateSignerKey() (*SignerKey, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &SignerKey{priv: priv}, nil
}

// SignerKeyFromSeed reconstructs a signer key from its 32-byte seed.
func SignerKeyFromSeed(seed []byte) (*SignerKey, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, errors.New("crypto: seed must be 32 bytes")
	}
	return &SignerKey{priv: ed25519.NewKeyFromSeed(seed)}, nil
}

// Seed returns the 32-byte seed the key can be reconstructed from.
func (k *SignerKey) Seed() []byte {
	return k.priv.Seed()
}

// PubKey returns the 32-byte public key.
func (k *SignerKey) PubKey() [32]byte {
	var pub [32]byte
	copy(pub[:], k.priv.Public().(ed25519.PublicKey))
	return pub
}

// Address returns the bech32 address form of the public key.
func (k *SignerKey) Address() Address {
	return NewAddress(WNEPrefix, k.PubKey())
}

// Sign signs the message with the underlying ed25519 key.
func (k *SignerKey) Sign(message []byte) [64]byte {
	var sig [64]byte
	copy(sig[:], ed25519.Sign(k.priv, message))
	return sig
}
