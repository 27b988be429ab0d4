package handlers

import (
	"context"

	"github.com/intel-go/fastjson"
	"github.com/osamingo/jsonrpc"

	"github.com/tinynode/tinynode/internal/rpc/api"
	"github.com/tinynode/tinynode/internal/types"
)

type getTransactionStatusParams struct {
	Hash string `json:"hash"`
}

type getTransactionStatusResult struct {
	Status string `json:"status"`
}

// GetTransactionStatusHandler implements the get_transaction_status RPC
// method: a three-way status from mempool-contains, then the node's
// in-memory index of recently committed transactions (spec.md §6).
type GetTransactionStatusHandler struct {
	API *api.API
}

func (h GetTransactionStatusHandler) ServeJSONRPC(c context.Context, params *fastjson.RawMessage) (interface{}, *jsonrpc.Error) {
	var p getTransactionStatusParams
	if err := jsonrpc.Unmarshal(params, &p); err != nil {
		return nil, err
	}

	id, err := types.HashFromHex(p.Hash)
	if err != nil {
		return nil, errInvalidHash(p.Hash)
	}

	status := h.API.GetTransactionStatus(id)
	return getTransactionStatusResult{Status: status.String()}, nil
}

func (GetTransactionStatusHandler) Name() string        { return "get_transaction_status" }
func (GetTransactionStatusHandler) Params() interface{} { return getTransactionStatusParams{} }
func (GetTransactionStatusHandler) Result() interface{} { return getTransactionStatusResult{} }
