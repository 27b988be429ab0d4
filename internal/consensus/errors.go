package consensus

import (
	"fmt"

	"github.com/pkg/errors"
)

// Error kinds named by spec.md §4.6.
var (
	ErrInvalidSignature = errors.New("consensus: invalid block signature")
	ErrBadTxRoot        = errors.New("consensus: tx_root does not match computed Merkle root")
	ErrReorgTooDeep     = errors.New("consensus: reorg exceeds maximum supported depth")
)

// InvalidProposerError is returned when a block's declared validator does
// not match the expected proposer for its height.
type InvalidProposerError struct {
	Expected, Got [32]byte
}

func (e *InvalidProposerError) Error() string {
	return fmt.Sprintf("consensus: invalid proposer: expected %x, got %x", e.Expected, e.Got)
}

// BadParentError is returned when a block's parent linkage does not match
// the expected parent (wrong parent_hash or non-consecutive block_number).
type BadParentError struct {
	Reason string
}

func (e *BadParentError) Error() string { return "consensus: bad parent: " + e.Reason }

// BadTimestampError is returned when a block's timestamp violates the
// monotonicity or clock-skew bound of spec.md §4.6 check 3.
type BadTimestampError struct {
	Reason string
}

func (e *BadTimestampError) Error() string { return "consensus: bad timestamp: " + e.Reason }
