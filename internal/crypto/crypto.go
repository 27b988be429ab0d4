// Package crypto implements C1's hashing and signing primitives:
// SHA-256 for content hashes and Ed25519 for validator/account
// signatures (spec.md §4.1).
//
// Ed25519 is taken from the standard library rather than
// go-libp2p-crypto's implementation. The libp2p crypto package is
// still used, one layer up in internal/p2p, for the peer-identity
// keypair spec.md §4.7 requires to be distinct from the validator
// signing key — see DESIGN.md for the split.
package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"io"
)

const (
	// PublicKeySize is the size in bytes of an Ed25519 public key / Address.
	PublicKeySize = ed25519.PublicKeySize
	// PrivateKeySize is the size in bytes of an Ed25519 private key.
	PrivateKeySize = ed25519.PrivateKeySize
	// SignatureSize is the size in bytes of an Ed25519 signature.
	SignatureSize = ed25519.SignatureSize
	// HashSize is the size in bytes of a SHA-256 digest.
	HashSize = sha256.Size
)

// PrivateKey is a validator/account signing key.
type PrivateKey ed25519.PrivateKey

// PublicKey is a validator/account verifying key; its raw bytes double as
// the account Address (spec.md §3).
type PublicKey ed25519.PublicKey

// GenerateKeyPair creates a fresh Ed25519 keypair using crypto/rand.
func GenerateKeyPair() (PrivateKey, PublicKey, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, err
	}
	return PrivateKey(priv), PublicKey(pub), nil
}

// KeyPairFromSeed derives a keypair from a 32-byte seed, matching the raw
// validator/wallet key file format of spec.md §6.
func KeyPairFromSeed(seed []byte) (PrivateKey, PublicKey, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, nil, ErrInvalidSeedLength
	}
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)
	return PrivateKey(priv), PublicKey(pub), nil
}

// Sign signs msg with priv.
func Sign(priv PrivateKey, msg []byte) []byte {
	return ed25519.Sign(ed25519.PrivateKey(priv), msg)
}

// Verify reports whether sig is a valid signature of msg by pub.
func Verify(pub PublicKey, msg, sig []byte) bool {
	if len(pub) != PublicKeySize || len(sig) != SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub), msg, sig)
}

// Hash returns the SHA-256 digest of data.
func Hash(data []byte) [HashSize]byte {
	return sha256.Sum256(data)
}

// RandBytes fills a buffer of size n using crypto/rand.
func RandBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, err
	}
	return b, nil
}
