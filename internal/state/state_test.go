package state

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tinynode/tinynode/internal/crypto"
	"github.com/tinynode/tinynode/internal/types"
)

var errNotFound = errors.New("state test: account not found")

type fakeStore struct {
	accounts map[types.Address]*types.Account
}

func newFakeStore() *fakeStore {
	return &fakeStore{accounts: make(map[types.Address]*types.Account)}
}

func (f *fakeStore) GetAccount(addr types.Address) (*types.Account, error) {
	acc, ok := f.accounts[addr]
	if !ok {
		return nil, errNotFound
	}
	cp := *acc
	return &cp, nil
}

func newAddress(t *testing.T) types.Address {
	_, pub, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	return types.BytesToAddress(pub)
}

func signedTx(t *testing.T, priv crypto.PrivateKey, sender, recipient types.Address, amount, nonce uint64) *types.Transaction {
	tx := types.NewTransaction(sender, recipient, amount, nonce)
	tx.Sign(priv)
	return tx
}

func TestViewGetAccountMissingIsZero(t *testing.T) {
	view := NewView(newFakeStore())
	addr := newAddress(t)
	acc := view.GetAccount(addr)
	require.Equal(t, uint64(0), acc.Balance)
	require.Equal(t, uint64(0), acc.Nonce)
}

func TestViewApplyTransactionDebitsAndCredits(t *testing.T) {
	priv, pub, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	sender := types.BytesToAddress(pub)
	recipient := newAddress(t)

	store := newFakeStore()
	store.accounts[sender] = &types.Account{Balance: 100, Nonce: 0}

	view := NewView(store)
	tx := signedTx(t, priv, sender, recipient, 40, 0)
	require.NoError(t, view.ApplyTransaction(tx))

	require.Equal(t, uint64(60), view.GetBalance(sender))
	require.Equal(t, uint64(1), view.GetNonce(sender))
	require.Equal(t, uint64(40), view.GetBalance(recipient))
}

func TestViewApplyTransactionRejectsBadNonce(t *testing.T) {
	priv, pub, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	sender := types.BytesToAddress(pub)
	recipient := newAddress(t)

	store := newFakeStore()
	store.accounts[sender] = &types.Account{Balance: 100, Nonce: 5}

	view := NewView(store)
	tx := signedTx(t, priv, sender, recipient, 10, 0)
	err = view.ApplyTransaction(tx)
	require.Error(t, err)
	var nonceErr *NonceMismatchError
	require.ErrorAs(t, err, &nonceErr)
}

func TestViewApplyTransactionRejectsInsufficientBalance(t *testing.T) {
	priv, pub, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	sender := types.BytesToAddress(pub)
	recipient := newAddress(t)

	store := newFakeStore()
	store.accounts[sender] = &types.Account{Balance: 5, Nonce: 0}

	view := NewView(store)
	tx := signedTx(t, priv, sender, recipient, 10, 0)
	err = view.ApplyTransaction(tx)
	require.Error(t, err)
	var balErr *InsufficientBalanceError
	require.ErrorAs(t, err, &balErr)
}

func TestViewApplyBlockRollsBackOnFailure(t *testing.T) {
	priv, pub, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	sender := types.BytesToAddress(pub)
	recipient := newAddress(t)

	store := newFakeStore()
	store.accounts[sender] = &types.Account{Balance: 100, Nonce: 0}

	view := NewView(store)
	good := signedTx(t, priv, sender, recipient, 10, 0)
	bad := signedTx(t, priv, sender, recipient, 10, 0) // reuses nonce 0, invalid after good applies

	block := types.NewBlock(&types.Header{}, types.Transactions{good, bad})
	err = view.ApplyBlock(block)
	require.Error(t, err)

	// state must be exactly as before the call: sender untouched.
	require.Equal(t, uint64(100), view.GetBalance(sender))
	require.Equal(t, uint64(0), view.GetNonce(sender))
	require.Empty(t, view.Changes())
}

func TestViewChangesOrderedByFirstTouch(t *testing.T) {
	priv, pub, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	sender := types.BytesToAddress(pub)
	recipient := newAddress(t)

	store := newFakeStore()
	store.accounts[sender] = &types.Account{Balance: 100, Nonce: 0}

	view := NewView(store)
	tx := signedTx(t, priv, sender, recipient, 10, 0)
	require.NoError(t, view.ApplyTransaction(tx))

	changes := view.Changes()
	require.Len(t, changes, 2)
	require.Equal(t, sender, changes[0].Address)
	require.Equal(t, recipient, changes[1].Address)
}
