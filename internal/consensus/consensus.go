// Package consensus implements C6: proposer schedule, block authenticity
// checks, longest-chain fork choice, and the local block-production
// trigger (spec.md §4.6).
package consensus

import (
	"time"

	"github.com/tinynode/tinynode/internal/logging"
	"github.com/tinynode/tinynode/internal/types"
)

var log = logging.GetLogger("consensus")

// DefaultMaxClockSkew is the default tolerance for a block's timestamp
// being ahead of the local clock (spec.md §4.6).
const DefaultMaxClockSkew = 30 * time.Second

// DefaultBlockInterval is the default cadence of the production trigger
// (spec.md §4.6).
const DefaultBlockInterval = 3 * time.Second

// Engine is C6: it knows the validator set and enforces block-acceptance
// rules and fork choice. It holds no chain state itself — callers supply
// the parent header/chain-tip information each check needs, matching
// tinychain's stateless BlockValidator interface
// (consensus/consensus.go's BlockValidator).
type Engine struct {
	validators    *ValidatorSet
	maxClockSkew  time.Duration
	blockInterval time.Duration
}

// New builds a consensus engine bound to the genesis validator set.
func New(validators []types.Address) *Engine {
	return &Engine{
		validators:    NewValidatorSet(validators),
		maxClockSkew:  DefaultMaxClockSkew,
		blockInterval: DefaultBlockInterval,
	}
}

// SetMaxClockSkew overrides the default clock-skew tolerance.
func (e *Engine) SetMaxClockSkew(d time.Duration) { e.maxClockSkew = d }

// SetBlockInterval overrides the default production-trigger cadence.
func (e *Engine) SetBlockInterval(d time.Duration) { e.blockInterval = d }

// Validators returns the engine's validator set.
func (e *Engine) Validators() *ValidatorSet { return e.validators }

// ExpectedProposer returns the validator expected to propose the block at
// height (spec.md §4.6; height must be >= 1).
func (e *Engine) ExpectedProposer(height uint64) types.Address {
	return e.validators.ExpectedProposer(height)
}

// ValidateHeader runs block-acceptance checks 1-5 of spec.md §4.6 against
// parent. Check 6 (tx_root) is performed by ValidateBlock, and check 7
// (per-transaction stateful validity) by the state machine during apply;
// neither is repeated here.
func (e *Engine) ValidateHeader(header *types.Header, parent *types.Header, now time.Time) error {
	if header.BlockNumber != parent.BlockNumber+1 {
		return &BadParentError{Reason: "block_number is not parent.block_number + 1"}
	}
	if header.ParentHash != parent.Hash() {
		return &BadParentError{Reason: "parent_hash does not match parent block's hash"}
	}
	if header.Timestamp < parent.Timestamp {
		return &BadTimestampError{Reason: "timestamp precedes parent timestamp"}
	}
	skewLimit := uint64(now.Add(e.maxClockSkew).Unix())
	if header.Timestamp > skewLimit {
		return &BadTimestampError{Reason: "timestamp exceeds allowed clock skew"}
	}
	expected := e.ExpectedProposer(header.BlockNumber)
	if header.Validator != expected {
		return &InvalidProposerError{Expected: expected, Got: header.Validator}
	}
	if !header.VerifySignature() {
		return ErrInvalidSignature
	}
	return nil
}

// ValidateBlock additionally checks the block's tx_root against its
// transactions (spec.md §4.6 check 6), on top of ValidateHeader.
func (e *Engine) ValidateBlock(block *types.Block, parent *types.Header, now time.Time) error {
	if err := e.ValidateHeader(block.Header, parent, now); err != nil {
		return err
	}
	if !block.CheckTxRoot() {
		return ErrBadTxRoot
	}
	return nil
}

// ValidateGenesis checks only the structural shape of a genesis block: it
// is never checked against the proposer schedule or signature-verified —
// it is the self-certifying anchor (spec.md §3, §9 Open Question 1).
func (e *Engine) ValidateGenesis(block *types.Block) error {
	if block.Header.BlockNumber != 0 {
		return &BadParentError{Reason: "genesis must be height 0"}
	}
	if !block.Header.ParentHash.IsZero() {
		return &BadParentError{Reason: "genesis parent_hash must be zero"}
	}
	if !block.CheckTxRoot() {
		return ErrBadTxRoot
	}
	return nil
}

// ChainHead describes a branch head as far as fork choice needs to know:
// its tip hash, height, and parent hash (so reorg can walk back to the
// common ancestor).
type ChainHead struct {
	Hash       types.Hash
	Height     uint64
	ParentHash types.Hash
}

// PreferredHead is a pure function over a set of candidate heads
// implementing spec.md §4.6's fork choice: longest chain, ties broken by
// lexicographically smallest hash (spec.md §9 Open Question 3).
func PreferredHead(heads []ChainHead) (ChainHead, bool) {
	if len(heads) == 0 {
		return ChainHead{}, false
	}
	best := heads[0]
	for _, h := range heads[1:] {
		if h.Height > best.Height {
			best = h
			continue
		}
		if h.Height == best.Height && lessHash(h.Hash, best.Hash) {
			best = h
		}
	}
	return best, true
}

func lessHash(a, b types.Hash) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// ProductionInfo describes the block the local node should now build, as
// returned by the production trigger (spec.md §4.6).
type ProductionInfo struct {
	ParentHash types.Hash
	Height     uint64
	Timestamp  uint64
}

// ShouldPropose implements the periodic production trigger: it reports
// whether self is the expected proposer for tip.Height+1 and whether
// enough time has elapsed since the parent block's timestamp, returning
// the block-production parameters when so (spec.md §4.6).
func (e *Engine) ShouldPropose(self types.Address, tip *types.Header, now time.Time) (ProductionInfo, bool) {
	nextHeight := tip.BlockNumber + 1
	if e.ExpectedProposer(nextHeight) != self {
		return ProductionInfo{}, false
	}
	parentTime := time.Unix(int64(tip.Timestamp), 0)
	if now.Before(parentTime.Add(e.blockInterval)) {
		return ProductionInfo{}, false
	}
	return ProductionInfo{
		ParentHash: tip.Hash(),
		Height:     nextHeight,
		Timestamp:  uint64(now.Unix()),
	}, true
}
