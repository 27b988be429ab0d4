package node

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tinynode/tinynode/internal/config"
	"github.com/tinynode/tinynode/internal/consensus"
	"github.com/tinynode/tinynode/internal/crypto"
	"github.com/tinynode/tinynode/internal/mempool"
	"github.com/tinynode/tinynode/internal/p2p"
	"github.com/tinynode/tinynode/internal/storage"
	"github.com/tinynode/tinynode/internal/types"
)

func testConfig(t *testing.T) *config.Config {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("genesis_file: genesis.json\n"), 0644))
	return config.New(path)
}

func testPeer(t *testing.T) *p2p.Peer {
	identity, err := p2p.NewIdentity()
	require.NoError(t, err)
	peer, err := p2p.New(identity, "127.0.0.1:0", nil, 8, false)
	require.NoError(t, err)
	return peer
}

// newTestNode builds a fully wired Node over a fresh temp-dir store with
// a single validator, without starting its background goroutines or
// network listener.
func newTestNode(t *testing.T, validatorPriv crypto.PrivateKey, validatorPub crypto.PublicKey) (*Node, *types.Block) {
	store, err := storage.Open(t.TempDir(), true)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	validatorAddr := types.BytesToAddress(validatorPub)
	engine := consensus.New([]types.Address{validatorAddr})
	pool := mempool.New(mempool.Config{MaxTransactions: 100})
	peer := testPeer(t)

	n := New(testConfig(t), store, pool, engine, peer, Options{
		IsValidator: true,
		PrivateKey:  validatorPriv,
		PublicKey:   validatorPub,
		ReorgDepth:  64,
	})

	genesis := types.NewBlock(&types.Header{ParentHash: types.ZeroHash, BlockNumber: 0, Timestamp: 1000}, nil)
	require.NoError(t, n.Bootstrap(genesis, nil))

	tip, err := store.GetTip()
	require.NoError(t, err)
	n.branches = consensus.NewBranchHeads(consensus.ChainHead{Hash: tip.Hash, Height: tip.Height})

	return n, genesis
}

func buildChildBlock(t *testing.T, priv crypto.PrivateKey, pub crypto.PublicKey, parent *types.Block, txs types.Transactions) *types.Block {
	header := &types.Header{
		ParentHash:  parent.Hash(),
		BlockNumber: parent.Height() + 1,
		Timestamp:   parent.Header.Timestamp + 3,
	}
	block := types.NewBlock(header, txs)
	block.Header.Sign(priv, pub)
	return block
}

func TestNodeBootstrapSetsTip(t *testing.T) {
	priv, pub, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	n, genesis := newTestNode(t, priv, pub)

	tip, err := n.currentTip()
	require.NoError(t, err)
	require.Equal(t, genesis.Hash(), tip.Hash)
	require.Equal(t, uint64(0), tip.Height)
}

func TestIngestBlockCommitsOnTip(t *testing.T) {
	priv, pub, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	n, genesis := newTestNode(t, priv, pub)

	block := buildChildBlock(t, priv, pub, genesis, nil)

	n.mu.Lock()
	n.ingestBlock(block, false)
	n.mu.Unlock()

	tip, err := n.currentTip()
	require.NoError(t, err)
	require.Equal(t, block.Hash(), tip.Hash)
	require.Equal(t, uint64(1), tip.Height)
}

func TestIngestBlockRejectsInvalidProposer(t *testing.T) {
	priv, pub, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	otherPriv, otherPub, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	n, genesis := newTestNode(t, priv, pub)

	block := buildChildBlock(t, otherPriv, otherPub, genesis, nil)

	n.mu.Lock()
	n.ingestBlock(block, false)
	n.mu.Unlock()

	tip, err := n.currentTip()
	require.NoError(t, err)
	require.Equal(t, genesis.Hash(), tip.Hash, "block from a non-validator must not advance the tip")
}

func TestIngestBlockBuffersOrphan(t *testing.T) {
	priv, pub, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	n, genesis := newTestNode(t, priv, pub)

	block1 := buildChildBlock(t, priv, pub, genesis, nil)
	block2 := buildChildBlock(t, priv, pub, block1, nil)

	n.mu.Lock()
	n.ingestBlock(block2, false) // parent (block1) unknown: orphaned
	tipBefore, err := n.currentTip()
	require.NoError(t, err)
	require.Equal(t, genesis.Hash(), tipBefore.Hash)
	require.Len(t, n.orphans[block1.Hash()], 1)

	n.ingestBlock(block1, false) // promotes block2 once block1 lands
	n.mu.Unlock()

	tip, err := n.currentTip()
	require.NoError(t, err)
	require.Equal(t, block2.Hash(), tip.Hash)
	require.Empty(t, n.orphans)
}

func TestSubmitTransactionAddsToPoolAndStatusIsPending(t *testing.T) {
	priv, pub, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	n, _ := newTestNode(t, priv, pub)

	_, recipientPub, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	sender := types.BytesToAddress(pub)
	recipient := types.BytesToAddress(recipientPub)

	tx := types.NewTransaction(sender, recipient, 0, 0)
	tx.Sign(priv)

	require.NoError(t, n.SubmitTransaction(tx))
	require.Equal(t, TxPending, n.TransactionStatus(tx.ID()))
}

func TestTransactionStatusTransitionsToCommitted(t *testing.T) {
	priv, pub, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	n, genesis := newTestNode(t, priv, pub)
	sender := types.BytesToAddress(pub)

	recipientPriv, recipientPub, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	_ = recipientPriv
	recipient := types.BytesToAddress(recipientPub)

	tx := types.NewTransaction(sender, recipient, 0, 0)
	tx.Sign(priv)
	require.NoError(t, n.SubmitTransaction(tx))

	block := buildChildBlock(t, priv, pub, genesis, types.Transactions{tx})
	n.mu.Lock()
	n.ingestBlock(block, false)
	n.mu.Unlock()

	require.Equal(t, TxCommitted, n.TransactionStatus(tx.ID()))
	require.False(t, n.pool.Contains(tx.ID()))
}

func TestTransactionStatusUnknownForUnseenID(t *testing.T) {
	priv, pub, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	n, _ := newTestNode(t, priv, pub)
	require.Equal(t, TxUnknown, n.TransactionStatus(types.Hash{9, 9, 9}))
}

func TestBalanceAndNonceDefaultToZeroForUnknownAddress(t *testing.T) {
	priv, pub, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	n, _ := newTestNode(t, priv, pub)

	_, unknownPub, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	unknown := types.BytesToAddress(unknownPub)

	balance, err := n.Balance(unknown)
	require.NoError(t, err)
	require.Equal(t, uint64(0), balance)

	nonce, err := n.Nonce(unknown)
	require.NoError(t, err)
	require.Equal(t, uint64(0), nonce)
}

func TestLatestBlockInfoReflectsTip(t *testing.T) {
	priv, pub, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	n, genesis := newTestNode(t, priv, pub)

	info, err := n.LatestBlockInfo()
	require.NoError(t, err)
	require.Equal(t, genesis.Hash(), info.Hash)
	require.Equal(t, uint64(0), info.Height)
}

func TestReorgToLongerForkUnwindsAndReplays(t *testing.T) {
	priv, pub, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	n, genesis := newTestNode(t, priv, pub)

	// Canonical branch: genesis -> a1
	a1 := buildChildBlock(t, priv, pub, genesis, nil)
	n.mu.Lock()
	n.ingestBlock(a1, false)
	n.mu.Unlock()

	// Competing branch off genesis: b1 -> b2, longer than the canonical
	// single-block chain once b2 lands. b1 alone ties a1's height, so its
	// effect on the tip is a hash-order tiebreak and deliberately not
	// asserted here; only b2 landing unambiguously outgrows a1.
	b1 := buildChildBlock(t, priv, pub, genesis, nil)
	// Same parent, proposer and timestamp as a1 would make b1 the very
	// same block; a later timestamp gives it a distinct hash.
	b1.Header.Timestamp++
	b1.Header.Sign(priv, pub)
	n.mu.Lock()
	n.ingestBlock(b1, false)
	n.mu.Unlock()

	b2 := buildChildBlock(t, priv, pub, b1, nil)
	n.mu.Lock()
	n.ingestBlock(b2, false)
	n.mu.Unlock()

	tip, err := n.currentTip()
	require.NoError(t, err)
	require.Equal(t, b2.Hash(), tip.Hash, "b1->b2 is longer than a1 and must become canonical")
	require.Equal(t, uint64(2), tip.Height)
}

func TestProductionInfoIsUsedByTryPropose(t *testing.T) {
	priv, pub, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	n, genesis := newTestNode(t, priv, pub)
	n.engine.SetBlockInterval(0)

	time.Sleep(time.Millisecond) // ensure now() > genesis timestamp + 0
	n.tryPropose()

	tip, err := n.currentTip()
	require.NoError(t, err)
	require.Greater(t, tip.Height, genesis.Header.BlockNumber)
}
