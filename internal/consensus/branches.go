package consensus

import "github.com/tinynode/tinynode/internal/types"

// BranchHeads tracks the set of known branch heads in memory, the
// in-memory complement to the flat keyed block store spec.md §9 describes:
// "a flat keyed store of all known blocks and headers, a parent_hash edge
// in each header, and an in-memory branch head set." Fork choice
// (PreferredHead) is then a pure function over this set.
type BranchHeads struct {
	heads map[types.Hash]ChainHead
}

// NewBranchHeads creates a tracker seeded with the genesis/starting head.
func NewBranchHeads(genesis ChainHead) *BranchHeads {
	return &BranchHeads{heads: map[types.Hash]ChainHead{genesis.Hash: genesis}}
}

// Observe records a newly validated block as a candidate head, replacing
// its parent as a head if the parent was tracked (the common case: a block
// extends the branch its parent was the tip of).
func (b *BranchHeads) Observe(head ChainHead) {
	delete(b.heads, head.ParentHash)
	b.heads[head.Hash] = head
}

// Heads returns the current set of known branch heads.
func (b *BranchHeads) Heads() []ChainHead {
	out := make([]ChainHead, 0, len(b.heads))
	for _, h := range b.heads {
		out = append(out, h)
	}
	return out
}

// Preferred returns the canonical head under the longest-chain,
// lowest-hash-tie-break rule.
func (b *BranchHeads) Preferred() (ChainHead, bool) {
	return PreferredHead(b.Heads())
}

// Prune drops any tracked head that is not the current canonical head and
// is shallower than keepAbove, bounding memory growth from abandoned short
// forks.
func (b *BranchHeads) Prune(canonical types.Hash, keepAbove uint64) {
	for hash, head := range b.heads {
		if hash == canonical {
			continue
		}
		if head.Height < keepAbove {
			delete(b.heads, hash)
		}
	}
}
