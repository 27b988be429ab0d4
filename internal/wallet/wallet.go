// Package wallet implements key generation, raw key-file I/O, and
// offline transaction signing for validator and account keys (spec.md
// §6's "Validator key file"/"Wallet key file" format).
//
// It sits outside the node's runtime path: spec.md §1 treats the
// wallet as an external collaborator, and this package exists only so
// cmd/tinynode's genkey subcommand and the core's tests have a real
// implementation of that file format to drive, mirroring
// tinychain's account/key.go and original_source's wallet.rs.
package wallet

import (
	"os"

	"github.com/pkg/errors"

	"github.com/tinynode/tinynode/internal/crypto"
	"github.com/tinynode/tinynode/internal/types"
)

// keyFileMode restricts a written key file to owner read/write, since it
// holds a raw private key.
const keyFileMode = 0600

// Key is a loaded or freshly generated Ed25519 keypair, together with
// its derived Address.
type Key struct {
	Priv crypto.PrivateKey
	Pub  crypto.PublicKey
}

// Address returns the account/validator address derived from the key's
// public bytes (spec.md §3).
func (k *Key) Address() types.Address { return types.BytesToAddress(k.Pub) }

// Generate creates a fresh Ed25519 keypair.
func Generate() (*Key, error) {
	priv, pub, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, errors.Wrap(err, "wallet: generate key pair")
	}
	return &Key{Priv: priv, Pub: pub}, nil
}

// Load reads a key file at path: the raw 32-byte Ed25519 seed, with no
// envelope, header, or encoding (spec.md §6). The public key and
// address are re-derived from the seed.
func Load(path string) (*Key, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "wallet: read key file")
	}
	return FromSeed(data)
}

// FromSeed derives a Key from a 32-byte Ed25519 seed, the in-memory
// equivalent of Load for callers that already hold the raw bytes (e.g.
// a key passed via an environment variable rather than a file).
func FromSeed(seed []byte) (*Key, error) {
	priv, pub, err := crypto.KeyPairFromSeed(seed)
	if err != nil {
		return nil, errors.Wrap(err, "wallet: decode key seed")
	}
	return &Key{Priv: priv, Pub: pub}, nil
}

// Save writes the key's raw 32-byte seed to path, creating it if
// necessary with permissions restricted to the owner.
func (k *Key) Save(path string) error {
	seed := ed25519Seed(k.Priv)
	if err := os.WriteFile(path, seed, keyFileMode); err != nil {
		return errors.Wrap(err, "wallet: write key file")
	}
	return nil
}

// ed25519Seed extracts the 32-byte seed from a 64-byte Ed25519 private
// key, which is itself seed||pubkey.
func ed25519Seed(priv crypto.PrivateKey) []byte {
	seed := make([]byte, 32)
	copy(seed, priv[:32])
	return seed
}

// SignTransaction signs tx with k on its caller's behalf, the offline
// signing step of spec.md §4.2's transaction lifecycle ("created by
// wallet"). It does not set tx.Sender: callers build the transaction
// with Sender already set to k.Address() before signing.
func (k *Key) SignTransaction(tx *types.Transaction) {
	tx.Sign(k.Priv)
}
