package p2p

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tinynode/tinynode/internal/crypto"
	"github.com/tinynode/tinynode/internal/types"
)

func TestFrameEncodeDecodeRoundTrip(t *testing.T) {
	f := &Frame{Type: TypeTx, Payload: []byte("payload")}
	encoded := f.Encode()

	size := int(encoded[0]) | int(encoded[1])<<8 | int(encoded[2])<<16 | int(encoded[3])<<24
	require.Equal(t, len(encoded)-LengthPrefixSize, size)

	decoded, err := DecodeFrameBody(encoded[LengthPrefixSize:])
	require.NoError(t, err)
	require.Equal(t, f.Type, decoded.Type)
	require.Equal(t, f.Payload, decoded.Payload)
}

func newSignedTx(t *testing.T) *types.Transaction {
	priv, pub, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	_, pub2, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	tx := types.NewTransaction(types.BytesToAddress(pub), types.BytesToAddress(pub2), 10, 0)
	tx.Sign(priv)
	return tx
}

func TestTxMessageRoundTrip(t *testing.T) {
	tx := newSignedTx(t)
	msg := &TxMessage{Tx: tx}
	decoded, err := DecodeTxMessage(msg.Encode())
	require.NoError(t, err)
	require.Equal(t, tx.ID(), decoded.Tx.ID())
}

func TestBlockMessageRoundTrip(t *testing.T) {
	block := types.NewBlock(&types.Header{ParentHash: types.ZeroHash, BlockNumber: 1}, types.Transactions{newSignedTx(t)})
	msg := &BlockMessage{Block: block}
	decoded, err := DecodeBlockMessage(msg.Encode())
	require.NoError(t, err)
	require.Equal(t, block.Hash(), decoded.Block.Hash())
}

func TestSyncRequestRoundTripWithoutToHash(t *testing.T) {
	req := &SyncRequest{FromHeight: 42}
	decoded, err := DecodeSyncRequest(req.Encode())
	require.NoError(t, err)
	require.Equal(t, uint64(42), decoded.FromHeight)
	require.Nil(t, decoded.ToHash)
}

func TestSyncRequestRoundTripWithToHash(t *testing.T) {
	h := types.Hash{1, 2, 3}
	req := &SyncRequest{FromHeight: 7, ToHash: &h}
	decoded, err := DecodeSyncRequest(req.Encode())
	require.NoError(t, err)
	require.Equal(t, uint64(7), decoded.FromHeight)
	require.NotNil(t, decoded.ToHash)
	require.Equal(t, h, *decoded.ToHash)
}

func TestSyncResponseBlocksRoundTrip(t *testing.T) {
	b1 := types.NewBlock(&types.Header{BlockNumber: 1}, nil)
	b2 := types.NewBlock(&types.Header{BlockNumber: 2}, nil)
	resp := &SyncResponseBlocks{Blocks: types.Blocks{b1, b2}}

	decoded, err := DecodeSyncResponseBlocks(resp.Encode())
	require.NoError(t, err)
	require.Len(t, decoded.Blocks, 2)
	require.Equal(t, b1.Hash(), decoded.Blocks[0].Hash())
	require.Equal(t, b2.Hash(), decoded.Blocks[1].Hash())
}
