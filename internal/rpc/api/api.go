// Package api adapts the node orchestrator's exported methods to the
// shapes internal/rpc/handlers need, mirroring the split tinychain
// draws between rpc/api.ChainAPI/TransactionAPI and tiny.Tiny itself.
package api

import (
	"github.com/tinynode/tinynode/internal/node"
	"github.com/tinynode/tinynode/internal/types"
)

// API is the single RPC-facing facade over a running node.
type API struct {
	node *node.Node
}

// New wraps n for RPC use.
func New(n *node.Node) *API {
	return &API{node: n}
}

// GetBalance returns addr's current committed balance.
func (a *API) GetBalance(addr types.Address) (uint64, error) {
	return a.node.Balance(addr)
}

// GetNonce returns addr's current committed nonce.
func (a *API) GetNonce(addr types.Address) (uint64, error) {
	return a.node.Nonce(addr)
}

// SubmitTransaction admits tx to the local mempool and gossips it,
// returning its canonical identifier.
func (a *API) SubmitTransaction(tx *types.Transaction) (types.Hash, error) {
	if err := a.node.SubmitTransaction(tx); err != nil {
		return types.Hash{}, err
	}
	return tx.ID(), nil
}

// GetTransactionStatus reports whether id is pending, committed, or
// unknown to the local node.
func (a *API) GetTransactionStatus(id types.Hash) node.TxStatus {
	return a.node.TransactionStatus(id)
}

// GetLatestBlockInfo returns a summary of the current canonical tip.
func (a *API) GetLatestBlockInfo() (node.BlockInfo, error) {
	return a.node.LatestBlockInfo()
}
