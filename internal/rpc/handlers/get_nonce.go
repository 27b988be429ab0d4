package handlers

import (
	"context"

	"github.com/intel-go/fastjson"
	"github.com/osamingo/jsonrpc"

	"github.com/tinynode/tinynode/internal/rpc/api"
	"github.com/tinynode/tinynode/internal/types"
)

type getNonceParams struct {
	Address string `json:"address"`
}

type getNonceResult struct {
	Nonce uint64 `json:"nonce"`
}

// GetNonceHandler implements the get_nonce RPC method (spec.md §6).
type GetNonceHandler struct {
	API *api.API
}

func (h GetNonceHandler) ServeJSONRPC(c context.Context, params *fastjson.RawMessage) (interface{}, *jsonrpc.Error) {
	var p getNonceParams
	if err := jsonrpc.Unmarshal(params, &p); err != nil {
		return nil, err
	}

	addr, err := types.AddressFromHex(p.Address)
	if err != nil {
		return nil, errInvalidAddress(p.Address)
	}

	nonce, gerr := h.API.GetNonce(addr)
	if gerr != nil {
		return nil, errStorageFailure(gerr)
	}
	return getNonceResult{Nonce: nonce}, nil
}

func (GetNonceHandler) Name() string        { return "get_nonce" }
func (GetNonceHandler) Params() interface{} { return getNonceParams{} }
func (GetNonceHandler) Result() interface{} { return getNonceResult{} }
