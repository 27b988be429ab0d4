package handlers

import (
	"context"

	"github.com/intel-go/fastjson"
	"github.com/osamingo/jsonrpc"

	"github.com/tinynode/tinynode/internal/rpc/api"
	"github.com/tinynode/tinynode/internal/types"
)

type getBalanceParams struct {
	Address string `json:"address"`
}

type getBalanceResult struct {
	Balance uint64 `json:"balance"`
}

// GetBalanceHandler implements the get_balance RPC method (spec.md §6).
type GetBalanceHandler struct {
	API *api.API
}

func (h GetBalanceHandler) ServeJSONRPC(c context.Context, params *fastjson.RawMessage) (interface{}, *jsonrpc.Error) {
	var p getBalanceParams
	if err := jsonrpc.Unmarshal(params, &p); err != nil {
		return nil, err
	}

	addr, err := types.AddressFromHex(p.Address)
	if err != nil {
		return nil, errInvalidAddress(p.Address)
	}

	balance, gerr := h.API.GetBalance(addr)
	if gerr != nil {
		return nil, errStorageFailure(gerr)
	}
	return getBalanceResult{Balance: balance}, nil
}

func (GetBalanceHandler) Name() string        { return "get_balance" }
func (GetBalanceHandler) Params() interface{} { return getBalanceParams{} }
func (GetBalanceHandler) Result() interface{} { return getBalanceResult{} }
