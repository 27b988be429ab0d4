// Package codec implements the single canonical binary encoding used
// everywhere a canonical hash, signature, or on-disk/wire
// representation is computed (spec.md §4.1): fixed-width
// little-endian integers, length-prefixed byte slices, field order
// matching struct declaration order. The encoder is total: it never
// returns an error.
//
// json-iterator (github.com/json-iterator/go), which the teacher uses
// for on-disk block encoding, is deliberately not used here — its
// map/slice/field ordering is not guaranteed byte-stable the way a
// hand-rolled fixed encoder is, and canonical hashing/signing depends
// on that stability. json-iterator is still wired in for the genesis
// document, where human-readable JSON is required and no hash is
// computed over the encoding (see DESIGN.md).
package codec

import (
	"bytes"
	"encoding/binary"
)

// Writer accumulates a canonical encoding. Every method is infallible;
// buffer growth is the only allocation involved.
type Writer struct {
	buf bytes.Buffer
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer { return &Writer{} }

// Bytes returns the accumulated encoding.
func (w *Writer) Bytes() []byte { return w.buf.Bytes() }

// PutUint64 appends v as 8 little-endian bytes.
func (w *Writer) PutUint64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf.Write(b[:])
}

// PutFixed appends b verbatim, with no length prefix. Use only for
// fields whose length is fixed and known to the reader (addresses,
// hashes, signatures).
func (w *Writer) PutFixed(b []byte) {
	w.buf.Write(b)
}

// PutBytes appends a 4-byte little-endian length prefix followed by b.
func (w *Writer) PutBytes(b []byte) {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(b)))
	w.buf.Write(lenBuf[:])
	w.buf.Write(b)
}

// Reader consumes a canonical encoding produced by Writer.
type Reader struct {
	buf []byte
	off int
	err error
}

// NewReader wraps b for sequential decoding.
func NewReader(b []byte) *Reader { return &Reader{buf: b} }

// Err returns the first error encountered, if any.
func (r *Reader) Err() error { return r.err }

func (r *Reader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

// Uint64 reads 8 little-endian bytes.
func (r *Reader) Uint64() uint64 {
	if r.err != nil {
		return 0
	}
	if r.off+8 > len(r.buf) {
		r.fail(ErrTruncated)
		return 0
	}
	v := binary.LittleEndian.Uint64(r.buf[r.off : r.off+8])
	r.off += 8
	return v
}

// Fixed reads exactly n bytes verbatim.
func (r *Reader) Fixed(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.off+n > len(r.buf) {
		r.fail(ErrTruncated)
		return nil
	}
	out := make([]byte, n)
	copy(out, r.buf[r.off:r.off+n])
	r.off += n
	return out
}

// Bytes reads a 4-byte little-endian length prefix followed by that many
// bytes.
func (r *Reader) Bytes() []byte {
	if r.err != nil {
		return nil
	}
	if r.off+4 > len(r.buf) {
		r.fail(ErrTruncated)
		return nil
	}
	n := int(binary.LittleEndian.Uint32(r.buf[r.off : r.off+4]))
	r.off += 4
	return r.Fixed(n)
}

// Remaining reports how many undecoded bytes are left.
func (r *Reader) Remaining() int {
	return len(r.buf) - r.off
}
