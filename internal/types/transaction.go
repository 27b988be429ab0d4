package types

import (
	"github.com/tinynode/tinynode/internal/codec"
	"github.com/tinynode/tinynode/internal/crypto"
)

// Transaction is a signed value transfer from sender to recipient
// (spec.md §3).
type Transaction struct {
	Sender    Address
	Recipient Address
	Amount    uint64
	Nonce     uint64
	Signature Signature
}

// NewTransaction builds an unsigned transaction; callers sign it with Sign.
func NewTransaction(sender, recipient Address, amount, nonce uint64) *Transaction {
	return &Transaction{
		Sender:    sender,
		Recipient: recipient,
		Amount:    amount,
		Nonce:     nonce,
	}
}

// signingBytes returns the canonical encoding of the fields that are hashed
// and signed over: sender, recipient, amount, nonce — the signature itself
// is excluded (spec.md §3).
func (tx *Transaction) signingBytes() []byte {
	w := codec.NewWriter()
	w.PutFixed(tx.Sender[:])
	w.PutFixed(tx.Recipient[:])
	w.PutUint64(tx.Amount)
	w.PutUint64(tx.Nonce)
	return w.Bytes()
}

// ID is the transaction's canonical identifier: the SHA-256 hash of its
// signing bytes (spec.md §3). It is stable regardless of whether the
// transaction is currently signed.
func (tx *Transaction) ID() Hash {
	h := crypto.Hash(tx.signingBytes())
	return Hash(h)
}

// Sign signs the transaction's ID with priv and stores the signature,
// matching the wallet's offline-signing contract (spec.md §6).
func (tx *Transaction) Sign(priv crypto.PrivateKey) {
	id := tx.ID()
	sig := crypto.Sign(priv, id[:])
	tx.Signature = BytesToSignature(sig)
}

// VerifySignature reports whether tx.Signature is a valid Ed25519
// signature by tx.Sender over tx.ID() (spec.md §3/§4.4 step 1).
func (tx *Transaction) VerifySignature() bool {
	id := tx.ID()
	return crypto.Verify(crypto.PublicKey(tx.Sender[:]), id[:], tx.Signature[:])
}

// Encode produces the canonical binary encoding of the full transaction,
// including the signature, for storage and wire transmission.
func (tx *Transaction) Encode() []byte {
	w := codec.NewWriter()
	w.PutFixed(tx.Sender[:])
	w.PutFixed(tx.Recipient[:])
	w.PutUint64(tx.Amount)
	w.PutUint64(tx.Nonce)
	w.PutFixed(tx.Signature[:])
	return w.Bytes()
}

// DecodeTransaction parses the canonical encoding produced by Encode.
func DecodeTransaction(b []byte) (*Transaction, error) {
	r := codec.NewReader(b)
	tx := &Transaction{
		Sender:    BytesToAddress(r.Fixed(AddressLength)),
		Recipient: BytesToAddress(r.Fixed(AddressLength)),
		Amount:    r.Uint64(),
		Nonce:     r.Uint64(),
		Signature: BytesToSignature(r.Fixed(SignatureLength)),
	}
	if r.Err() != nil {
		return nil, r.Err()
	}
	return tx, nil
}

// Transactions is an ordered list of transactions, e.g. a block body.
type Transactions []*Transaction

// IDs returns the canonical identifiers of every transaction, in order.
func (txs Transactions) IDs() []Hash {
	ids := make([]Hash, len(txs))
	for i, tx := range txs {
		ids[i] = tx.ID()
	}
	return ids
}

// MerkleRoot computes the Merkle root over the transactions' identifiers
// (spec.md §3).
func (txs Transactions) MerkleRoot() Hash {
	leaves := make([][codec.HashSize]byte, len(txs))
	for i, id := range txs.IDs() {
		leaves[i] = [codec.HashSize]byte(id)
	}
	return Hash(codec.MerkleRoot(leaves))
}
