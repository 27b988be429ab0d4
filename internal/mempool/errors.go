package mempool

import "github.com/pkg/errors"

// Error kinds named by spec.md §4.5.
var (
	ErrAlreadyPresent = errors.New("mempool: transaction already present")
	ErrPoolFull       = errors.New("mempool: pool is full")
)

// InvalidTransactionError wraps the underlying stateful-validation failure
// (spec.md §4.5's InvalidTransaction(reason)).
type InvalidTransactionError struct {
	Reason error
}

func (e *InvalidTransactionError) Error() string {
	return "mempool: invalid transaction: " + e.Reason.Error()
}

func (e *InvalidTransactionError) Unwrap() error { return e.Reason }
