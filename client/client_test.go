package client

import (
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obsfarm/farmd/common"
	"github.com/obsfarm/farmd/common/db"
	"github.com/obsfarm/farmd/farm"
	"github.com/obsfarm/farmd/server"
	"github.com/obsfarm/farmd/token"
)

func newTestEndpoint(t *testing.T) (string, *common.TestClock) {
	dbase := db.NewMapDB()
	vault, err := token.NewVault(dbase, nil)
	require.NoError(t, err)
	require.NoError(t, vault.Mint("obs", "alice", big.NewInt(50000)))
	require.NoError(t, vault.FundCustody("obs", big.NewInt(10000)))

	clock := &common.TestClock{}
	clock.SetTime(time.Unix(1700000000, 0))
	f, err := farm.New(
		farm.Config{
			AssetID:      "obs",
			AdminAccount: "admin",
			RewardBudget: big.NewInt(10000),
		},
		dbase, vault, farm.NewStaticAuthorizer("admin"), clock, nil)
	require.NoError(t, err)

	ts := httptest.NewServer(server.NewManager("127.0.0.1:0", f, nil).Handler())
	t.Cleanup(ts.Close)
	return ts.URL, clock
}

func TestClient(t *testing.T) {
	endpoint, clock := newTestEndpoint(t)
	c := New(endpoint)

	require.NoError(t, c.Deposit("alice", "10000"))

	ac, err := c.GetAccount("alice")
	require.NoError(t, err)
	assert.Equal(t, "9975", ac.Deposited)

	clock.PassTime(365 * 24 * time.Hour)
	require.NoError(t, c.Claim("alice"))

	st, err := c.GetStats()
	require.NoError(t, err)
	assert.Equal(t, "1795", st.TotalClaimed)
	assert.Equal(t, 1, st.HolderCount)

	require.NoError(t, c.Sweep("admin", "obs", "treasury", "100"))
}

func TestClient_RemoteError(t *testing.T) {
	endpoint, _ := newTestEndpoint(t)
	c := New(endpoint)

	err := c.Sweep("mallory", "obs", "mallory", "1")
	re, ok := err.(*RemoteError)
	require.True(t, ok)
	assert.Equal(t, http.StatusForbidden, re.Status)
	assert.Equal(t, int(farm.UnauthorizedError), re.Code)

	_, err = c.GetAccount("nobody")
	re, ok = err.(*RemoteError)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, re.Status)
}
