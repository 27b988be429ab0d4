package wallet

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinynode/tinynode/internal/types"
)

func TestGenerateProducesDistinctKeys(t *testing.T) {
	k1, err := Generate()
	require.NoError(t, err)
	k2, err := Generate()
	require.NoError(t, err)

	assert.NotEqual(t, k1.Address(), k2.Address())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "validator.key")

	k, err := Generate()
	require.NoError(t, err)
	require.NoError(t, k.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, k.Address(), loaded.Address())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(keyFileMode), info.Mode().Perm())
}

func TestFromSeedIsDeterministic(t *testing.T) {
	seed := make([]byte, 32)
	for i := range seed {
		seed[i] = byte(i)
	}
	k1, err := FromSeed(seed)
	require.NoError(t, err)
	k2, err := FromSeed(seed)
	require.NoError(t, err)

	assert.Equal(t, k1.Address(), k2.Address())
}

func TestFromSeedRejectsWrongLength(t *testing.T) {
	_, err := FromSeed([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestSignTransactionProducesVerifiableSignature(t *testing.T) {
	k, err := Generate()
	require.NoError(t, err)
	recipient, err := Generate()
	require.NoError(t, err)

	tx := types.NewTransaction(k.Address(), recipient.Address(), 10, 0)
	k.SignTransaction(tx)

	assert.True(t, tx.VerifySignature())
}
