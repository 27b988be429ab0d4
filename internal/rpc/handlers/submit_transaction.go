package handlers

import (
	"context"
	"encoding/hex"

	"github.com/intel-go/fastjson"
	"github.com/osamingo/jsonrpc"

	"github.com/tinynode/tinynode/internal/rpc/api"
	"github.com/tinynode/tinynode/internal/types"
)

type submitTransactionParams struct {
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	Amount    uint64 `json:"amount"`
	Nonce     uint64 `json:"nonce"`
	Signature string `json:"signature"`
}

type submitTransactionResult struct {
	TxHash string `json:"tx_hash"`
}

// SubmitTransactionHandler implements the submit_transaction RPC method:
// the RPC-facing half of spec.md §4.2's "created by wallet -> admitted to
// mempool" step, taking an already offline-signed transaction.
type SubmitTransactionHandler struct {
	API *api.API
}

func (h SubmitTransactionHandler) ServeJSONRPC(c context.Context, params *fastjson.RawMessage) (interface{}, *jsonrpc.Error) {
	var p submitTransactionParams
	if err := jsonrpc.Unmarshal(params, &p); err != nil {
		return nil, err
	}

	sender, err := types.AddressFromHex(p.Sender)
	if err != nil {
		return nil, errInvalidAddress(p.Sender)
	}
	recipient, err := types.AddressFromHex(p.Recipient)
	if err != nil {
		return nil, errInvalidAddress(p.Recipient)
	}
	sig, err := hex.DecodeString(p.Signature)
	if err != nil || len(sig) != types.SignatureLength {
		return nil, &jsonrpc.Error{Code: errCodeInvalidParams, Message: "invalid signature"}
	}

	tx := types.NewTransaction(sender, recipient, p.Amount, p.Nonce)
	tx.Signature = types.BytesToSignature(sig)

	id, serr := h.API.SubmitTransaction(tx)
	if serr != nil {
		return nil, errInvalidTransaction(serr)
	}
	return submitTransactionResult{TxHash: id.String()}, nil
}

func (SubmitTransactionHandler) Name() string        { return "submit_transaction" }
func (SubmitTransactionHandler) Params() interface{} { return submitTransactionParams{} }
func (SubmitTransactionHandler) Result() interface{} { return submitTransactionResult{} }
