package types

import "encoding/hex"

// HashLength is the size in bytes of a Hash (spec.md §3).
const HashLength = 32

// AddressLength is the size in bytes of an Address (spec.md §3).
const AddressLength = 32

// SignatureLength is the size in bytes of a Signature (spec.md §3).
const SignatureLength = 64

// Hash is a 32-byte SHA-256 digest.
type Hash [HashLength]byte

// Address is a 32-byte account identifier, equal to the owning keypair's
// Ed25519 public key bytes (spec.md §3).
type Address [AddressLength]byte

// Signature is a 64-byte Ed25519 signature.
type Signature [SignatureLength]byte

// ZeroHash is the all-zero hash used as the genesis parent hash and as the
// empty-block tx_root convention (spec.md §3).
var ZeroHash = Hash{}

// IsZero reports whether h is the all-zero hash.
func (h Hash) IsZero() bool { return h == ZeroHash }

// Bytes returns a copy of h as a byte slice.
func (h Hash) Bytes() []byte {
	b := make([]byte, HashLength)
	copy(b, h[:])
	return b
}

// String renders h as lowercase hex, matching spec.md §6's genesis file
// address/hash convention.
func (h Hash) String() string { return hex.EncodeToString(h[:]) }

// BytesToHash copies up to HashLength bytes of b into a Hash.
func BytesToHash(b []byte) Hash {
	var h Hash
	copy(h[:], b)
	return h
}

// HashFromHex decodes a lowercase hex string of exactly 32 bytes.
func HashFromHex(s string) (Hash, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Hash{}, err
	}
	if len(b) != HashLength {
		return Hash{}, ErrInvalidHexLength
	}
	return BytesToHash(b), nil
}

// Bytes returns a copy of a as a byte slice.
func (a Address) Bytes() []byte {
	b := make([]byte, AddressLength)
	copy(b, a[:])
	return b
}

// String renders a as lowercase hex.
func (a Address) String() string { return hex.EncodeToString(a[:]) }

// IsZero reports whether a is the all-zero address.
func (a Address) IsZero() bool { return a == Address{} }

// BytesToAddress copies up to AddressLength bytes of b into an Address.
func BytesToAddress(b []byte) Address {
	var a Address
	copy(a[:], b)
	return a
}

// AddressFromHex decodes a lowercase hex string of exactly 32 bytes.
func AddressFromHex(s string) (Address, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Address{}, err
	}
	if len(b) != AddressLength {
		return Address{}, ErrInvalidHexLength
	}
	return BytesToAddress(b), nil
}

// Bytes returns a copy of s as a byte slice.
func (s Signature) Bytes() []byte {
	b := make([]byte, SignatureLength)
	copy(b, s[:])
	return b
}

// BytesToSignature copies up to SignatureLength bytes of b into a Signature.
func BytesToSignature(b []byte) Signature {
	var s Signature
	copy(s[:], b)
	return s
}
