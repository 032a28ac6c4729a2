package token

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obsfarm/farmd/common/db"
)

func newTestVault(t *testing.T) *Vault {
	v, err := NewVault(db.NewMapDB(), nil)
	require.NoError(t, err)
	return v
}

func TestVault_Mint(t *testing.T) {
	v := newTestVault(t)

	assert.True(t, InvalidRequestError.Equals(v.Mint("obs", "alice", nil)))
	assert.True(t, InvalidRequestError.Equals(v.Mint("obs", "alice", new(big.Int))))

	require.NoError(t, v.Mint("obs", "alice", big.NewInt(1000)))
	require.NoError(t, v.Mint("obs", "alice", big.NewInt(500)))

	bal, err := v.BalanceOf("obs", "alice")
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1500), bal)

	// balances are per asset
	bal, err = v.BalanceOf("usdt", "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(0), bal.Int64())
}

func TestVault_PullPush(t *testing.T) {
	v := newTestVault(t)
	require.NoError(t, v.Mint("obs", "alice", big.NewInt(1000)))

	require.NoError(t, v.Pull("obs", "alice", big.NewInt(600)))
	bal, err := v.BalanceOf("obs", "alice")
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(400), bal)
	custody, err := v.CustodyBalance("obs")
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(600), custody)

	// more than the account holds
	err = v.Pull("obs", "alice", big.NewInt(500))
	assert.True(t, OutOfBalanceError.Equals(err))

	require.NoError(t, v.Push("obs", "bob", big.NewInt(100)))
	bal, err = v.BalanceOf("obs", "bob")
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(100), bal)

	// more than custody holds
	err = v.Push("obs", "bob", big.NewInt(501))
	assert.True(t, OutOfBalanceError.Equals(err))
	custody, err = v.CustodyBalance("obs")
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(500), custody)

	// zero moves are no-ops
	require.NoError(t, v.Pull("obs", "alice", new(big.Int)))
	require.NoError(t, v.Push("obs", "bob", new(big.Int)))
}
