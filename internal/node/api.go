package node

import (
	lru "github.com/hashicorp/golang-lru"

	"github.com/tinynode/tinynode/internal/p2p"
	"github.com/tinynode/tinynode/internal/storage"
	"github.com/tinynode/tinynode/internal/types"
)

// txStatusCacheSize bounds the best-effort committed-transaction index
// api.go maintains for TransactionStatus; it is a convenience index for
// RPC, not part of the durable state model (spec.md §4.3 has no
// tx-by-id index), so it only needs to cover recently committed blocks.
const txStatusCacheSize = 16384

// TxStatus is the three-way transaction status internal/rpc's
// get_transaction_status reports, matching the original's semantics of
// consulting mempool-contains before storage-by-tx-id.
type TxStatus int

const (
	TxUnknown TxStatus = iota
	TxPending
	TxCommitted
)

func (s TxStatus) String() string {
	switch s {
	case TxPending:
		return "pending"
	case TxCommitted:
		return "committed"
	default:
		return "unknown"
	}
}

// BlockInfo summarizes the current canonical tip for get_latest_block_info.
type BlockInfo struct {
	Hash      types.Hash
	Height    uint64
	Timestamp uint64
}

// Balance returns addr's current committed balance (0 for an account
// that has never been credited, spec.md §3).
func (n *Node) Balance(addr types.Address) (uint64, error) {
	acc, err := n.store.GetAccount(addr)
	if err != nil {
		if storage.IsNotFound(err) {
			return 0, nil
		}
		return 0, err
	}
	return acc.Balance, nil
}

// Nonce returns addr's current committed nonce, the value the next
// transaction it sends must carry (spec.md §4.4).
func (n *Node) Nonce(addr types.Address) (uint64, error) {
	acc, err := n.store.GetAccount(addr)
	if err != nil {
		if storage.IsNotFound(err) {
			return 0, nil
		}
		return 0, err
	}
	return acc.Nonce, nil
}

// LatestBlockInfo returns a summary of the current canonical tip.
func (n *Node) LatestBlockInfo() (BlockInfo, error) {
	tip, err := n.currentTip()
	if err != nil {
		return BlockInfo{}, err
	}
	block, err := n.store.GetBlock(tip.Hash)
	if err != nil {
		return BlockInfo{}, err
	}
	return BlockInfo{Hash: tip.Hash, Height: tip.Height, Timestamp: block.Header.Timestamp}, nil
}

// SubmitTransaction is the RPC-originated entry point of spec.md §4.2's
// "created by wallet -> admitted to mempool" step: it runs the same
// admission check as a gossiped transaction and, if accepted, gossips it
// onward since (unlike a wire-received tx) it was never marked seen by
// the peer layer.
func (n *Node) SubmitTransaction(tx *types.Transaction) error {
	id := tx.ID()
	if n.pool.Contains(id) {
		return nil
	}
	if err := n.pool.Add(tx, n.admissionView); err != nil {
		return err
	}
	n.peer.Gossip(p2p.TypeTx, tx.Encode())
	return nil
}

// TransactionStatus reports whether id is pending in the mempool,
// already committed to the canonical chain, or unknown to this node.
func (n *Node) TransactionStatus(id types.Hash) TxStatus {
	if n.pool.Contains(id) {
		return TxPending
	}
	if _, ok := n.committedTx.Get(id); ok {
		return TxCommitted
	}
	return TxUnknown
}

// recordCommittedTx indexes block's transactions for TransactionStatus.
func (n *Node) recordCommittedTx(block *types.Block) {
	for _, tx := range block.Transactions {
		n.committedTx.Add(tx.ID(), block.Hash())
	}
}

// forgetCommittedTx removes block's transactions from the committed-tx
// index, called when a reorg unwinds block off the canonical chain.
func (n *Node) forgetCommittedTx(block *types.Block) {
	for _, tx := range block.Transactions {
		n.committedTx.Remove(tx.ID())
	}
}

func newCommittedTxCache() *lru.Cache {
	c, _ := lru.New(txStatusCacheSize)
	return c
}
