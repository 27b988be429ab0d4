package p2p

import (
	"encoding/binary"

	"github.com/tinynode/tinynode/internal/codec"
	"github.com/tinynode/tinynode/internal/types"
)

// Message type tags, matching spec.md §4.7's wire message catalog.
const (
	TypeTx                 = "tx_msg"
	TypeBlock              = "block_msg"
	TypeSyncRequest        = "sync_request"
	TypeSyncResponseBlocks = "sync_response_blocks"
	TypeSyncResponseNone   = "sync_response_no_blocks"
)

// LengthPrefixSize is the size in bytes of the frame length prefix,
// matching the framing convention of tinychain's p2p/stream.go
// (pb.DATA_LENGTH_SIZE).
const LengthPrefixSize = 4

// Frame is one length-prefixed, typed message on the wire: all payloads
// use the same canonical binary encoding as storage/hashing (spec.md
// §4.7).
type Frame struct {
	Type    string
	Payload []byte
}

// Encode serializes the frame as: [4-byte LE total length][type
// length-prefixed][payload length-prefixed].
func (f *Frame) Encode() []byte {
	w := codec.NewWriter()
	w.PutBytes([]byte(f.Type))
	w.PutBytes(f.Payload)
	body := w.Bytes()

	out := make([]byte, LengthPrefixSize+len(body))
	binary.LittleEndian.PutUint32(out[:LengthPrefixSize], uint32(len(body)))
	copy(out[LengthPrefixSize:], body)
	return out
}

// DecodeFrameBody parses a frame body (without its outer length prefix).
func DecodeFrameBody(body []byte) (*Frame, error) {
	r := codec.NewReader(body)
	typ := r.Bytes()
	payload := r.Bytes()
	if r.Err() != nil {
		return nil, r.Err()
	}
	return &Frame{Type: string(typ), Payload: payload}, nil
}

// TxMessage wraps a gossiped transaction (spec.md §4.7).
type TxMessage struct {
	Tx *types.Transaction
}

func (m *TxMessage) Encode() []byte { return m.Tx.Encode() }

func DecodeTxMessage(b []byte) (*TxMessage, error) {
	tx, err := types.DecodeTransaction(b)
	if err != nil {
		return nil, err
	}
	return &TxMessage{Tx: tx}, nil
}

// BlockMessage wraps a gossiped block (spec.md §4.7).
type BlockMessage struct {
	Block *types.Block
}

func (m *BlockMessage) Encode() []byte { return m.Block.Encode() }

func DecodeBlockMessage(b []byte) (*BlockMessage, error) {
	block, err := types.DecodeBlock(b)
	if err != nil {
		return nil, err
	}
	return &BlockMessage{Block: block}, nil
}

// SyncRequest asks a peer for blocks starting at FromHeight, optionally
// bounded by ToHash (spec.md §4.7).
type SyncRequest struct {
	FromHeight uint64
	ToHash     *types.Hash // nil means "as many as you have"
}

func (m *SyncRequest) Encode() []byte {
	w := codec.NewWriter()
	w.PutUint64(m.FromHeight)
	if m.ToHash != nil {
		w.PutFixed([]byte{1})
		w.PutFixed(m.ToHash[:])
	} else {
		w.PutFixed([]byte{0})
	}
	return w.Bytes()
}

func DecodeSyncRequest(b []byte) (*SyncRequest, error) {
	r := codec.NewReader(b)
	m := &SyncRequest{FromHeight: r.Uint64()}
	hasTo := r.Fixed(1)
	if r.Err() != nil {
		return nil, r.Err()
	}
	if len(hasTo) == 1 && hasTo[0] == 1 {
		h := types.BytesToHash(r.Fixed(types.HashLength))
		m.ToHash = &h
	}
	if r.Err() != nil {
		return nil, r.Err()
	}
	return m, nil
}

// SyncResponseBlocks carries an ordered batch of blocks in reply to a
// SyncRequest (spec.md §4.7).
type SyncResponseBlocks struct {
	Blocks types.Blocks
}

func (m *SyncResponseBlocks) Encode() []byte {
	w := codec.NewWriter()
	w.PutUint64(uint64(len(m.Blocks)))
	for _, b := range m.Blocks {
		w.PutBytes(b.Encode())
	}
	return w.Bytes()
}

func DecodeSyncResponseBlocks(b []byte) (*SyncResponseBlocks, error) {
	r := codec.NewReader(b)
	n := r.Uint64()
	if r.Err() != nil {
		return nil, r.Err()
	}
	blocks := make(types.Blocks, 0, n)
	for i := uint64(0); i < n; i++ {
		raw := r.Bytes()
		if r.Err() != nil {
			return nil, r.Err()
		}
		block, err := types.DecodeBlock(raw)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, block)
	}
	return &SyncResponseBlocks{Blocks: blocks}, nil
}

// SyncResponseNoBlocks tells the requester the peer has nothing past its
// current tip (spec.md §4.7).
type SyncResponseNoBlocks struct{}

func (m *SyncResponseNoBlocks) Encode() []byte { return nil }
