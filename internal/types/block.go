package types

import (
	"github.com/tinynode/tinynode/internal/codec"
	"github.com/tinynode/tinynode/internal/crypto"
)

// Header is a block header (spec.md §3).
type Header struct {
	ParentHash  Hash    // zero for genesis
	BlockNumber uint64  // genesis = 0
	Timestamp   uint64  // unix seconds
	TxRoot      Hash    // Merkle root of included tx identifiers
	Validator   Address // proposer
	Signature   Signature
}

// signingBytes returns the canonical encoding of the header excluding its
// own signature field (spec.md §3).
func (h *Header) signingBytes() []byte {
	w := codec.NewWriter()
	w.PutFixed(h.ParentHash[:])
	w.PutUint64(h.BlockNumber)
	w.PutUint64(h.Timestamp)
	w.PutFixed(h.TxRoot[:])
	w.PutFixed(h.Validator[:])
	return w.Bytes()
}

// Hash is the header hash: SHA-256 of the canonical encoding of the header
// excluding the signature field. Block hash is defined to equal header hash
// (spec.md §3).
func (h *Header) Hash() Hash {
	return Hash(crypto.Hash(h.signingBytes()))
}

// Sign signs the header hash with priv, the proposer's validator key, and
// stores the signature and validator address.
func (h *Header) Sign(priv crypto.PrivateKey, pub crypto.PublicKey) {
	h.Validator = BytesToAddress(pub)
	id := h.Hash()
	sig := crypto.Sign(priv, id[:])
	h.Signature = BytesToSignature(sig)
}

// VerifySignature reports whether h.Signature is a valid signature by
// h.Validator over h.Hash() (spec.md §4.6 check 5).
func (h *Header) VerifySignature() bool {
	id := h.Hash()
	return crypto.Verify(crypto.PublicKey(h.Validator[:]), id[:], h.Signature[:])
}

func (h *Header) encode() []byte {
	w := codec.NewWriter()
	w.PutFixed(h.ParentHash[:])
	w.PutUint64(h.BlockNumber)
	w.PutUint64(h.Timestamp)
	w.PutFixed(h.TxRoot[:])
	w.PutFixed(h.Validator[:])
	w.PutFixed(h.Signature[:])
	return w.Bytes()
}

func decodeHeader(r *codec.Reader) *Header {
	h := &Header{
		ParentHash:  BytesToHash(r.Fixed(HashLength)),
		BlockNumber: r.Uint64(),
		Timestamp:   r.Uint64(),
		TxRoot:      BytesToHash(r.Fixed(HashLength)),
		Validator:   BytesToAddress(r.Fixed(AddressLength)),
		Signature:   BytesToSignature(r.Fixed(SignatureLength)),
	}
	return h
}

// Block is a header plus its ordered list of transactions (spec.md §3).
type Block struct {
	Header       *Header
	Transactions Transactions
}

// NewBlock constructs a block and sets its header's TxRoot from txs.
func NewBlock(header *Header, txs Transactions) *Block {
	header.TxRoot = txs.MerkleRoot()
	return &Block{Header: header, Transactions: txs}
}

// Hash returns the block's hash, which is its header's hash (spec.md §3).
func (b *Block) Hash() Hash { return b.Header.Hash() }

// Height returns the block's height (block number).
func (b *Block) Height() uint64 { return b.Header.BlockNumber }

// CheckTxRoot reports whether the block's declared TxRoot matches the
// Merkle root recomputed from its transactions (spec.md §3's block
// invariant, and spec.md §4.6 check 6).
func (b *Block) CheckTxRoot() bool {
	return b.Header.TxRoot == b.Transactions.MerkleRoot()
}

// Encode produces the canonical binary encoding of the block, used for
// storage and wire transmission.
func (b *Block) Encode() []byte {
	w := codec.NewWriter()
	headerBytes := b.Header.encode()
	w.PutBytes(headerBytes)
	w.PutUint64(uint64(len(b.Transactions)))
	for _, tx := range b.Transactions {
		w.PutBytes(tx.Encode())
	}
	return w.Bytes()
}

// DecodeBlock parses the canonical encoding produced by Encode.
func DecodeBlock(b []byte) (*Block, error) {
	r := codec.NewReader(b)
	headerBytes := r.Bytes()
	if r.Err() != nil {
		return nil, r.Err()
	}
	hr := codec.NewReader(headerBytes)
	header := decodeHeader(hr)
	if hr.Err() != nil {
		return nil, hr.Err()
	}

	n := r.Uint64()
	if r.Err() != nil {
		return nil, r.Err()
	}
	txs := make(Transactions, 0, n)
	for i := uint64(0); i < n; i++ {
		txBytes := r.Bytes()
		if r.Err() != nil {
			return nil, r.Err()
		}
		tx, err := DecodeTransaction(txBytes)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return &Block{Header: header, Transactions: txs}, nil
}

// Blocks is an ordered list of blocks, sortable by height; it is the
// payload type of SyncResponseBlocks (spec.md §4.7).
type Blocks []*Block

func (bs Blocks) Len() int           { return len(bs) }
func (bs Blocks) Less(i, j int) bool { return bs[i].Height() < bs[j].Height() }
func (bs Blocks) Swap(i, j int)      { bs[i], bs[j] = bs[j], bs[i] }
