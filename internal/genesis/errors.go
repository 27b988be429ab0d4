package genesis

import "github.com/pkg/errors"

// ErrNoValidators is returned when the genesis document's validator list is
// empty; the round-robin proposer schedule requires at least one entry.
var ErrNoValidators = errors.New("genesis: validator set must not be empty")
