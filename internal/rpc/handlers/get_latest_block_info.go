package handlers

import (
	"context"

	"github.com/intel-go/fastjson"
	"github.com/osamingo/jsonrpc"

	"github.com/tinynode/tinynode/internal/rpc/api"
)

type getLatestBlockInfoParams struct{}

type getLatestBlockInfoResult struct {
	Hash      string `json:"hash"`
	Height    uint64 `json:"height"`
	Timestamp uint64 `json:"timestamp"`
}

// GetLatestBlockInfoHandler implements the get_latest_block_info RPC
// method (spec.md §6).
type GetLatestBlockInfoHandler struct {
	API *api.API
}

func (h GetLatestBlockInfoHandler) ServeJSONRPC(c context.Context, params *fastjson.RawMessage) (interface{}, *jsonrpc.Error) {
	info, err := h.API.GetLatestBlockInfo()
	if err != nil {
		return nil, errNotFound("chain has not been bootstrapped")
	}
	return getLatestBlockInfoResult{
		Hash:      info.Hash.String(),
		Height:    info.Height,
		Timestamp: info.Timestamp,
	}, nil
}

func (GetLatestBlockInfoHandler) Name() string        { return "get_latest_block_info" }
func (GetLatestBlockInfoHandler) Params() interface{} { return getLatestBlockInfoParams{} }
func (GetLatestBlockInfoHandler) Result() interface{} { return getLatestBlockInfoResult{} }
