package consensus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tinynode/tinynode/internal/crypto"
	"github.com/tinynode/tinynode/internal/types"
)

func newValidator(t *testing.T) (crypto.PrivateKey, crypto.PublicKey, types.Address) {
	priv, pub, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	return priv, pub, types.BytesToAddress(pub)
}

func signedHeader(priv crypto.PrivateKey, pub crypto.PublicKey, parent types.Hash, number, ts uint64) *types.Header {
	h := &types.Header{ParentHash: parent, BlockNumber: number, Timestamp: ts, TxRoot: types.ZeroHash}
	h.Sign(priv, pub)
	return h
}

func TestExpectedProposerRoundRobin(t *testing.T) {
	_, _, a1 := newValidator(t)
	_, _, a2 := newValidator(t)
	engine := New([]types.Address{a1, a2})

	require.Equal(t, a2, engine.ExpectedProposer(1))
	require.Equal(t, a1, engine.ExpectedProposer(2))
	require.Equal(t, a2, engine.ExpectedProposer(3))
}

func TestValidateHeaderAcceptsWellFormedHeader(t *testing.T) {
	priv, pub, addr := newValidator(t)
	engine := New([]types.Address{addr})
	engine.SetMaxClockSkew(time.Minute)

	parent := &types.Header{BlockNumber: 0, Timestamp: 1000}
	now := time.Unix(1010, 0)
	header := signedHeader(priv, pub, parent.Hash(), 1, 1005)
	require.NoError(t, engine.ValidateHeader(header, parent, now))
}

func TestValidateHeaderRejectsWrongProposer(t *testing.T) {
	priv, pub, _ := newValidator(t)
	_, _, other := newValidator(t)
	engine := New([]types.Address{other})

	parent := &types.Header{BlockNumber: 0, Timestamp: 1000}
	header := signedHeader(priv, pub, parent.Hash(), 1, 1005)
	err := engine.ValidateHeader(header, parent, time.Unix(1010, 0))
	require.Error(t, err)
	var proposerErr *InvalidProposerError
	require.ErrorAs(t, err, &proposerErr)
}

func TestValidateHeaderRejectsBadParentLinkage(t *testing.T) {
	priv, pub, addr := newValidator(t)
	engine := New([]types.Address{addr})

	parent := &types.Header{BlockNumber: 0, Timestamp: 1000}
	header := signedHeader(priv, pub, types.ZeroHash, 1, 1005) // wrong parent hash
	err := engine.ValidateHeader(header, parent, time.Unix(1010, 0))
	require.Error(t, err)
	var parentErr *BadParentError
	require.ErrorAs(t, err, &parentErr)
}

func TestValidateHeaderRejectsExcessiveClockSkew(t *testing.T) {
	priv, pub, addr := newValidator(t)
	engine := New([]types.Address{addr})
	engine.SetMaxClockSkew(5 * time.Second)

	parent := &types.Header{BlockNumber: 0, Timestamp: 1000}
	header := signedHeader(priv, pub, parent.Hash(), 1, 2000)
	err := engine.ValidateHeader(header, parent, time.Unix(1000, 0))
	require.Error(t, err)
	var tsErr *BadTimestampError
	require.ErrorAs(t, err, &tsErr)
}

func TestValidateHeaderRejectsTamperedSignature(t *testing.T) {
	priv, pub, addr := newValidator(t)
	engine := New([]types.Address{addr})
	engine.SetMaxClockSkew(time.Minute)

	parent := &types.Header{BlockNumber: 0, Timestamp: 1000}
	header := signedHeader(priv, pub, parent.Hash(), 1, 1005)
	header.Timestamp++ // invalidates the signature without changing Validator
	err := engine.ValidateHeader(header, parent, time.Unix(1010, 0))
	require.ErrorIs(t, err, ErrInvalidSignature)
}

func TestValidateGenesisAcceptsHeightZero(t *testing.T) {
	engine := New([]types.Address{{}})
	genesis := types.NewBlock(&types.Header{ParentHash: types.ZeroHash, BlockNumber: 0}, nil)
	require.NoError(t, engine.ValidateGenesis(genesis))
}

func TestValidateGenesisRejectsNonZeroHeight(t *testing.T) {
	engine := New([]types.Address{{}})
	block := types.NewBlock(&types.Header{ParentHash: types.ZeroHash, BlockNumber: 1}, nil)
	err := engine.ValidateGenesis(block)
	require.Error(t, err)
	var parentErr *BadParentError
	require.ErrorAs(t, err, &parentErr)
}

func TestShouldProposeHonorsIntervalAndSchedule(t *testing.T) {
	_, _, a1 := newValidator(t)
	_, _, a2 := newValidator(t)
	engine := New([]types.Address{a1, a2})
	engine.SetBlockInterval(3 * time.Second)

	tip := &types.Header{BlockNumber: 0, Timestamp: 1000}

	_, ok := engine.ShouldPropose(a2, tip, time.Unix(1001, 0))
	require.False(t, ok, "not enough time elapsed")

	_, ok = engine.ShouldPropose(a1, tip, time.Unix(1005, 0))
	require.False(t, ok, "a1 is not the expected proposer at height 1")

	info, ok := engine.ShouldPropose(a2, tip, time.Unix(1005, 0))
	require.True(t, ok)
	require.Equal(t, uint64(1), info.Height)
	require.Equal(t, tip.Hash(), info.ParentHash)
}

func TestPreferredHeadPicksLongestChain(t *testing.T) {
	short := ChainHead{Hash: types.Hash{1}, Height: 5}
	long := ChainHead{Hash: types.Hash{2}, Height: 6}

	best, ok := PreferredHead([]ChainHead{short, long})
	require.True(t, ok)
	require.Equal(t, long.Hash, best.Hash)
}

func TestPreferredHeadBreaksTiesByLowestHash(t *testing.T) {
	a := ChainHead{Hash: types.Hash{2}, Height: 5}
	b := ChainHead{Hash: types.Hash{1}, Height: 5}

	best, ok := PreferredHead([]ChainHead{a, b})
	require.True(t, ok)
	require.Equal(t, b.Hash, best.Hash)
}

func TestPreferredHeadEmptySet(t *testing.T) {
	_, ok := PreferredHead(nil)
	require.False(t, ok)
}

func TestBranchHeadsObserveReplacesParent(t *testing.T) {
	genesis := ChainHead{Hash: types.Hash{0}, Height: 0}
	heads := NewBranchHeads(genesis)

	child := ChainHead{Hash: types.Hash{1}, Height: 1, ParentHash: genesis.Hash}
	heads.Observe(child)

	all := heads.Heads()
	require.Len(t, all, 1)
	require.Equal(t, child.Hash, all[0].Hash)

	preferred, ok := heads.Preferred()
	require.True(t, ok)
	require.Equal(t, child.Hash, preferred.Hash)
}

func TestBranchHeadsObserveKeepsFork(t *testing.T) {
	genesis := ChainHead{Hash: types.Hash{0}, Height: 0}
	heads := NewBranchHeads(genesis)

	childA := ChainHead{Hash: types.Hash{1}, Height: 1, ParentHash: genesis.Hash}
	heads.Observe(childA)

	// a second block also extending genesis forks the chain: genesis is
	// no longer a head, so childB is kept alongside childA.
	childB := ChainHead{Hash: types.Hash{2}, Height: 1, ParentHash: genesis.Hash}
	heads.Observe(childB)

	all := heads.Heads()
	require.Len(t, all, 2)
	require.ElementsMatch(t, []types.Hash{childA.Hash, childB.Hash}, []types.Hash{all[0].Hash, all[1].Hash})
}
