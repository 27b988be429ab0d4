package consensus

import "github.com/tinynode/tinynode/internal/types"

// ValidatorSet is the ordered list of addresses authorized to propose
// blocks, fixed at genesis (spec.md §4.6).
type ValidatorSet struct {
	ordered []types.Address
	index   map[types.Address]int
}

// NewValidatorSet builds a ValidatorSet from its genesis order.
func NewValidatorSet(validators []types.Address) *ValidatorSet {
	idx := make(map[types.Address]int, len(validators))
	for i, v := range validators {
		idx[v] = i
	}
	return &ValidatorSet{ordered: append([]types.Address(nil), validators...), index: idx}
}

// Len returns the number of validators, N.
func (vs *ValidatorSet) Len() int { return len(vs.ordered) }

// Contains reports whether addr is a member of the validator set.
func (vs *ValidatorSet) Contains(addr types.Address) bool {
	_, ok := vs.index[addr]
	return ok
}

// ExpectedProposer returns the validator expected to propose the block at
// the given height (height >= 1): validators[height mod N] (spec.md §4.6).
// Height 0 (genesis) has no scheduled proposer in this sense; callers must
// not call this for height 0.
func (vs *ValidatorSet) ExpectedProposer(height uint64) types.Address {
	n := uint64(len(vs.ordered))
	return vs.ordered[height%n]
}
