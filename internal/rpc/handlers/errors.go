package handlers

import "github.com/osamingo/jsonrpc"

const (
	errCodeInvalidParams jsonrpc.ErrorCode = 400
	errCodeNotFound      jsonrpc.ErrorCode = 404
	errCodeInvalidTx     jsonrpc.ErrorCode = 422
	errCodeInternal      jsonrpc.ErrorCode = 500
)

func errInvalidAddress(raw string) *jsonrpc.Error {
	return &jsonrpc.Error{Code: errCodeInvalidParams, Message: "invalid address: " + raw}
}

func errInvalidHash(raw string) *jsonrpc.Error {
	return &jsonrpc.Error{Code: errCodeInvalidParams, Message: "invalid hash: " + raw}
}

func errInvalidTransaction(err error) *jsonrpc.Error {
	return &jsonrpc.Error{Code: errCodeInvalidTx, Message: err.Error()}
}

func errStorageFailure(err error) *jsonrpc.Error {
	return &jsonrpc.Error{Code: errCodeInternal, Message: err.Error()}
}

func errNotFound(message string) *jsonrpc.Error {
	return &jsonrpc.Error{Code: errCodeNotFound, Message: message}
}
