package types

import (
	"github.com/tinynode/tinynode/internal/codec"
)

// Account is a world-state entry (spec.md §3). A missing account is
// treated as {0, 0} for reads and is only materialized on first credit.
type Account struct {
	Balance uint64
	Nonce   uint64
}

// Encode produces the canonical binary encoding of the account.
func (a *Account) Encode() []byte {
	w := codec.NewWriter()
	w.PutUint64(a.Balance)
	w.PutUint64(a.Nonce)
	return w.Bytes()
}

// DecodeAccount parses the canonical encoding produced by Encode.
func DecodeAccount(b []byte) (*Account, error) {
	r := codec.NewReader(b)
	a := &Account{
		Balance: r.Uint64(),
		Nonce:   r.Uint64(),
	}
	if r.Err() != nil {
		return nil, r.Err()
	}
	return a, nil
}

// ChainTip is the canonical chain's current head (spec.md §3).
type ChainTip struct {
	Hash   Hash
	Height uint64
}

// Encode produces the canonical binary encoding of the chain tip.
func (t *ChainTip) Encode() []byte {
	w := codec.NewWriter()
	w.PutFixed(t.Hash[:])
	w.PutUint64(t.Height)
	return w.Bytes()
}

// DecodeChainTip parses the canonical encoding produced by Encode.
func DecodeChainTip(b []byte) (*ChainTip, error) {
	r := codec.NewReader(b)
	t := &ChainTip{
		Hash:   BytesToHash(r.Fixed(HashLength)),
		Height: r.Uint64(),
	}
	if r.Err() != nil {
		return nil, r.Err()
	}
	return t, nil
}
