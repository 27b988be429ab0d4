package codec

import "crypto/sha256"

// HashSize is the size in bytes of the hash type used throughout this
// package: a raw SHA-256 digest, kept here as [32]byte to avoid an import
// cycle with internal/types (which itself imports codec).
const HashSize = sha256.Size

// MerkleRoot computes the binary Merkle root over leaves using SHA-256,
// duplicating the last node at any level with an odd count (spec.md §3).
// The empty list yields the all-zero hash.
func MerkleRoot(leaves [][HashSize]byte) [HashSize]byte {
	if len(leaves) == 0 {
		return [HashSize]byte{}
	}
	level := make([][HashSize]byte, len(leaves))
	copy(level, leaves)

	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}
		next := make([][HashSize]byte, len(level)/2)
		for i := 0; i < len(next); i++ {
			var buf [2 * HashSize]byte
			copy(buf[:HashSize], level[2*i][:])
			copy(buf[HashSize:], level[2*i+1][:])
			next[i] = sha256.Sum256(buf[:])
		}
		level = next
	}
	return level[0]
}
