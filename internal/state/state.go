// Package state implements C4: the stateful transaction/block validation
// and application logic that runs over a writable view of the world state
// (spec.md §4.4).
package state

import (
	"github.com/tinynode/tinynode/internal/logging"
	"github.com/tinynode/tinynode/internal/storage"
	"github.com/tinynode/tinynode/internal/types"
)

var log = logging.GetLogger("state")

// Reader is the read-only capability level of a state view (spec.md §4.4).
type Reader interface {
	GetAccount(addr types.Address) *types.Account
	GetBalance(addr types.Address) uint64
	GetNonce(addr types.Address) uint64
}

// Store is the subset of storage.Store that the state machine reads
// through; narrowed to ease testing with fakes.
type Store interface {
	GetAccount(addr types.Address) (*types.Account, error)
}

// View is a writable state view staged over a durable Store: reads fall
// through to committed storage, writes are buffered in memory until the
// caller hands the accumulated changes to storage.CommitBlock. This is the
// "staging buffer" spec.md §4.4 requires so that a rejected block leaves
// committed state untouched.
type View struct {
	store   Store
	dirty   map[types.Address]*types.Account
	touched []types.Address // insertion order, for deterministic change sets
}

// NewView opens a writable state view over store.
func NewView(store Store) *View {
	return &View{
		store: store,
		dirty: make(map[types.Address]*types.Account),
	}
}

func zeroAccount() *types.Account { return &types.Account{} }

// GetAccount returns the account at addr, treating a missing account as
// {0, 0} per spec.md §3.
func (v *View) GetAccount(addr types.Address) *types.Account {
	if acc, ok := v.dirty[addr]; ok {
		return acc
	}
	acc, err := v.store.GetAccount(addr)
	if err != nil || acc == nil {
		return zeroAccount()
	}
	cp := *acc
	return &cp
}

// GetBalance returns addr's balance.
func (v *View) GetBalance(addr types.Address) uint64 { return v.GetAccount(addr).Balance }

// GetNonce returns addr's nonce.
func (v *View) GetNonce(addr types.Address) uint64 { return v.GetAccount(addr).Nonce }

func (v *View) set(addr types.Address, acc *types.Account) {
	if _, exists := v.dirty[addr]; !exists {
		v.touched = append(v.touched, addr)
	}
	v.dirty[addr] = acc
}

// ValidateTransaction performs spec.md §4.4's stateful validity check
// against the view's current (possibly in-progress) state:
//  1. signature verifies
//  2. tx.nonce == sender's current nonce, and sender's balance >= amount
//
// Self-transfers are explicitly allowed (spec.md §4.4 point 3): they still
// consume a nonce and are a value no-op.
func (v *View) ValidateTransaction(tx *types.Transaction) error {
	if !tx.VerifySignature() {
		return ErrInvalidSignature
	}
	sender := v.GetAccount(tx.Sender)
	if sender.Nonce != tx.Nonce {
		return &NonceMismatchError{Expected: sender.Nonce, Actual: tx.Nonce}
	}
	if sender.Balance < tx.Amount {
		return &InsufficientBalanceError{Required: tx.Amount, Available: sender.Balance}
	}
	return nil
}

// ApplyTransaction applies tx to the view in place: debits sender, bumps
// its nonce, credits recipient (spec.md §4.4). It first validates tx
// against this same view and, if that fails, returns the validation error
// without changing the view.
func (v *View) ApplyTransaction(tx *types.Transaction) error {
	if err := v.ValidateTransaction(tx); err != nil {
		return err
	}
	sender := v.GetAccount(tx.Sender)
	sender.Balance -= tx.Amount
	sender.Nonce++
	v.set(tx.Sender, sender)

	recipient := v.GetAccount(tx.Recipient)
	recipient.Balance += tx.Amount
	v.set(tx.Recipient, recipient)
	return nil
}

// ApplyBlock validates and applies every transaction in block sequentially
// against the view's evolving state. If any transaction fails, ApplyBlock
// returns that error and leaves the view exactly as it was before the call
// — callers discard the view entirely on error, so committed state and the
// chain tip are left unchanged (spec.md §4.4, property 4).
func (v *View) ApplyBlock(block *types.Block) error {
	snapshotDirty := make(map[types.Address]*types.Account, len(v.dirty))
	for addr, acc := range v.dirty {
		cp := *acc
		snapshotDirty[addr] = &cp
	}
	snapshotTouched := append([]types.Address(nil), v.touched...)

	for i, tx := range block.Transactions {
		if err := v.ApplyTransaction(tx); err != nil {
			log.Errorf("block %s rejected at tx %d (%s): %s", block.Hash(), i, tx.ID(), err)
			v.dirty = snapshotDirty
			v.touched = snapshotTouched
			return err
		}
	}
	return nil
}

// Changes returns the accumulated per-address account changes, in the
// order their addresses were first touched, ready to be handed to
// storage.CommitBlock.
func (v *View) Changes() []storage.AccountChange {
	out := make([]storage.AccountChange, 0, len(v.touched))
	for _, addr := range v.touched {
		out = append(out, storage.AccountChange{Address: addr, Account: v.dirty[addr]})
	}
	return out
}

// Reset discards all staged writes, returning the view to reading straight
// through to the backing store.
func (v *View) Reset() {
	v.dirty = make(map[types.Address]*types.Account)
	v.touched = nil
}
