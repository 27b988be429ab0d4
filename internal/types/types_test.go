package types

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tinynode/tinynode/internal/crypto"
)

func newKeyPair(t *testing.T) (crypto.PrivateKey, crypto.PublicKey, Address) {
	priv, pub, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	return priv, pub, BytesToAddress(pub)
}

func TestTransactionSignAndVerify(t *testing.T) {
	priv, _, sender := newKeyPair(t)
	_, _, recipient := newKeyPair(t)

	tx := NewTransaction(sender, recipient, 100, 0)
	tx.Sign(priv)
	require.True(t, tx.VerifySignature())

	tx.Amount = 200
	require.False(t, tx.VerifySignature())
}

func TestTransactionIDStableUnderSignature(t *testing.T) {
	priv, _, sender := newKeyPair(t)
	_, _, recipient := newKeyPair(t)

	tx := NewTransaction(sender, recipient, 100, 0)
	unsignedID := tx.ID()
	tx.Sign(priv)
	require.Equal(t, unsignedID, tx.ID())
}

func TestTransactionEncodeDecodeRoundTrip(t *testing.T) {
	priv, _, sender := newKeyPair(t)
	_, _, recipient := newKeyPair(t)

	tx := NewTransaction(sender, recipient, 100, 7)
	tx.Sign(priv)

	decoded, err := DecodeTransaction(tx.Encode())
	require.NoError(t, err)
	require.Equal(t, tx, decoded)
}

func TestTransactionsMerkleRootEmptyIsZero(t *testing.T) {
	var txs Transactions
	require.Equal(t, ZeroHash, txs.MerkleRoot())
}

func TestTransactionsMerkleRootChangesWithContent(t *testing.T) {
	priv, _, sender := newKeyPair(t)
	_, _, recipient := newKeyPair(t)

	tx1 := NewTransaction(sender, recipient, 1, 0)
	tx1.Sign(priv)
	tx2 := NewTransaction(sender, recipient, 2, 1)
	tx2.Sign(priv)

	root1 := Transactions{tx1}.MerkleRoot()
	root2 := Transactions{tx1, tx2}.MerkleRoot()
	require.NotEqual(t, root1, root2)
}

func TestHeaderSignAndVerify(t *testing.T) {
	priv, pub, _ := newKeyPair(t)
	h := &Header{
		ParentHash:  ZeroHash,
		BlockNumber: 1,
		Timestamp:   100,
		TxRoot:      ZeroHash,
	}
	h.Sign(priv, pub)
	require.True(t, h.VerifySignature())
	require.Equal(t, BytesToAddress(pub), h.Validator)

	h.Timestamp = 200
	require.False(t, h.VerifySignature())
}

func TestBlockHashEqualsHeaderHash(t *testing.T) {
	h := &Header{ParentHash: ZeroHash, BlockNumber: 0, Timestamp: 1}
	block := NewBlock(h, nil)
	require.Equal(t, h.Hash(), block.Hash())
}

func TestBlockCheckTxRoot(t *testing.T) {
	priv, _, sender := newKeyPair(t)
	_, _, recipient := newKeyPair(t)
	tx := NewTransaction(sender, recipient, 1, 0)
	tx.Sign(priv)

	h := &Header{ParentHash: ZeroHash, BlockNumber: 1, Timestamp: 1}
	block := NewBlock(h, Transactions{tx})
	require.True(t, block.CheckTxRoot())

	block.Header.TxRoot = ZeroHash
	require.False(t, block.CheckTxRoot())
}

func TestBlockEncodeDecodeRoundTrip(t *testing.T) {
	priv, pub, sender := newKeyPair(t)
	_, _, recipient := newKeyPair(t)
	tx := NewTransaction(sender, recipient, 5, 0)
	tx.Sign(priv)

	h := &Header{ParentHash: ZeroHash, BlockNumber: 1, Timestamp: 123}
	block := NewBlock(h, Transactions{tx})
	block.Header.Sign(priv, pub)

	decoded, err := DecodeBlock(block.Encode())
	require.NoError(t, err)
	require.Equal(t, block.Hash(), decoded.Hash())
	require.Len(t, decoded.Transactions, 1)
	require.Equal(t, tx.ID(), decoded.Transactions[0].ID())
}

func TestAddressHexRoundTrip(t *testing.T) {
	_, _, addr := newKeyPair(t)
	decoded, err := AddressFromHex(addr.String())
	require.NoError(t, err)
	require.Equal(t, addr, decoded)

	_, err = AddressFromHex("not-hex")
	require.Error(t, err)

	_, err = AddressFromHex("ab")
	require.Error(t, err)
}

func TestHashFromHexRoundTrip(t *testing.T) {
	h := Hash{1, 2, 3}
	decoded, err := HashFromHex(h.String())
	require.NoError(t, err)
	require.Equal(t, h, decoded)
}
