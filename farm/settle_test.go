package farm

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingReward(t *testing.T) {
	f, clock := newTestFarm(t, newMockTransfer())
	base := clock.Now().Unix()

	tests := []struct {
		name      string
		deposited int64
		settled   int64
		now       int64
		expected  int64
	}{
		{"inactive", 0, base, base + 365*day, 0},
		{"no elapsed", 9975, base, base, 0},
		{"negative elapsed", 9975, base + day, base, 0},
		{"one year", 9975, base, base + 365*day, 1795},
		{"half year", 9975, base, base + 365*day/2, 897},
		{"small principal rounds to zero", 5, base, base + day, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ac := &Account{
				Deposited:     big.NewInt(tt.deposited),
				LastSettledAt: tt.settled,
				TotalEarned:   new(big.Int),
			}
			r := f.pendingReward(ac, tt.now)
			assert.Equal(t, tt.expected, r.Int64())
		})
	}
}

func TestSettle_AdvancesTimestampWithoutReward(t *testing.T) {
	tr := newMockTransfer()
	f, clock := newTestFarm(t, tr)
	now := clock.Now().Unix()

	ac := newAccount()
	ac.LastSettledAt = now - 100*day
	claimed := new(big.Int)

	paid, err := f.settle("alice", ac, claimed, now)
	require.NoError(t, err)
	assert.Equal(t, int64(0), paid.Int64())
	assert.Equal(t, now, ac.LastSettledAt)
	assert.Empty(t, tr.calls)

	// settling at an earlier instant must not rewind the timestamp
	_, err = f.settle("alice", ac, claimed, now-day)
	require.NoError(t, err)
	assert.Equal(t, now, ac.LastSettledAt)
}

func TestSettle_PaysBeforeCommit(t *testing.T) {
	tr := newMockTransfer()
	f, clock := newTestFarm(t, tr)
	now := clock.Now().Unix()

	ac := &Account{
		Deposited:     big.NewInt(9975),
		StakingSince:  now - 365*day,
		LastSettledAt: now - 365*day,
		TotalEarned:   new(big.Int),
	}
	claimed := new(big.Int)

	paid, err := f.settle("alice", ac, claimed, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1795), paid.Int64())
	assert.Equal(t, int64(1795), ac.TotalEarned.Int64())
	assert.Equal(t, int64(1795), claimed.Int64())
	assert.Equal(t, now, ac.LastSettledAt)
	assert.Equal(t, big.NewInt(1795), tr.pushedTo("alice"))

	// second settlement at the same instant is a no-op
	paid, err = f.settle("alice", ac, claimed, now)
	require.NoError(t, err)
	assert.Equal(t, int64(0), paid.Int64())
	assert.Equal(t, int64(1795), claimed.Int64())
}
