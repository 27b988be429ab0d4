package state

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrInvalidSignature is returned when a transaction's signature fails to
// verify against its sender (spec.md §4.4 step 1).
var ErrInvalidSignature = errors.New("state: invalid signature")

// NonceMismatchError is returned when a transaction's nonce does not equal
// the sender's current on-state nonce (spec.md §4.4 step 2).
type NonceMismatchError struct {
	Expected uint64
	Actual   uint64
}

func (e *NonceMismatchError) Error() string {
	return fmt.Sprintf("state: nonce mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// InsufficientBalanceError is returned when the sender's balance cannot
// cover the transaction amount (spec.md §4.4 step 2).
type InsufficientBalanceError struct {
	Required  uint64
	Available uint64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("state: insufficient balance: required %d, available %d", e.Required, e.Available)
}
