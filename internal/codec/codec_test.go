package codec

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriterReaderRoundTrip(t *testing.T) {
	w := NewWriter()
	w.PutUint64(42)
	w.PutFixed([]byte{1, 2, 3, 4})
	w.PutBytes([]byte("hello world"))
	w.PutUint64(0)

	r := NewReader(w.Bytes())
	require.Equal(t, uint64(42), r.Uint64())
	require.Equal(t, []byte{1, 2, 3, 4}, r.Fixed(4))
	require.Equal(t, []byte("hello world"), r.Bytes())
	require.Equal(t, uint64(0), r.Uint64())
	require.NoError(t, r.Err())
	require.Equal(t, 0, r.Remaining())
}

func TestReaderTruncated(t *testing.T) {
	r := NewReader([]byte{1, 2, 3})
	r.Uint64()
	require.ErrorIs(t, r.Err(), ErrTruncated)

	r2 := NewReader([]byte{1, 0, 0, 0})
	r2.Bytes()
	require.ErrorIs(t, r2.Err(), ErrTruncated)
}

func TestReaderStickyError(t *testing.T) {
	r := NewReader(nil)
	r.Uint64()
	require.Error(t, r.Err())
	require.Equal(t, uint64(0), r.Uint64())
	require.Nil(t, r.Fixed(4))
	require.Nil(t, r.Bytes())
}

func TestMerkleRootEmptyIsZero(t *testing.T) {
	root := MerkleRoot(nil)
	require.Equal(t, [HashSize]byte{}, root)
}

func TestMerkleRootDeterministicAndSensitive(t *testing.T) {
	a := sha256.Sum256([]byte("a"))
	b := sha256.Sum256([]byte("b"))
	c := sha256.Sum256([]byte("c"))

	root1 := MerkleRoot([][HashSize]byte{a, b, c})
	root2 := MerkleRoot([][HashSize]byte{a, b, c})
	require.Equal(t, root1, root2)

	rootChanged := MerkleRoot([][HashSize]byte{a, b, sha256.Sum256([]byte("d"))})
	require.NotEqual(t, root1, rootChanged)
}

func TestMerkleRootOddCountDuplicatesLast(t *testing.T) {
	a := sha256.Sum256([]byte("a"))
	b := sha256.Sum256([]byte("b"))
	c := sha256.Sum256([]byte("c"))

	withThree := MerkleRoot([][HashSize]byte{a, b, c})
	withDuplicatedLast := MerkleRoot([][HashSize]byte{a, b, c, c})
	require.Equal(t, withDuplicatedLast, withThree)
}
