package farm

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obsfarm/farmd/common"
	"github.com/obsfarm/farmd/common/db"
	"github.com/obsfarm/farmd/common/errors"
)

const day = int64(24 * 60 * 60)

type transferCall struct {
	kind   string
	asset  string
	party  string
	amount *big.Int
}

type mockTransfer struct {
	calls    []transferCall
	failPull bool
	failPush map[string]bool
}

func newMockTransfer() *mockTransfer {
	return &mockTransfer{failPush: make(map[string]bool)}
}

func (m *mockTransfer) Pull(asset, from string, amount *big.Int) error {
	if m.failPull {
		return errors.New("pull rejected")
	}
	m.calls = append(m.calls, transferCall{"pull", asset, from, new(big.Int).Set(amount)})
	return nil
}

func (m *mockTransfer) Push(asset, to string, amount *big.Int) error {
	if m.failPush[to] {
		return errors.New("push rejected")
	}
	m.calls = append(m.calls, transferCall{"push", asset, to, new(big.Int).Set(amount)})
	return nil
}

func (m *mockTransfer) pushedTo(to string) *big.Int {
	sum := new(big.Int)
	for _, c := range m.calls {
		if c.kind == "push" && c.party == to {
			sum.Add(sum, c.amount)
		}
	}
	return sum
}

func newTestFarmWithDB(t *testing.T, dbase db.Database, tr Transfer) (*Farm, *common.TestClock) {
	clock := &common.TestClock{}
	clock.SetTime(time.Unix(1700000000, 0))
	f, err := New(
		Config{
			AssetID:      "obs",
			AdminAccount: "admin",
			RewardBudget: big.NewInt(1000000),
		},
		dbase, tr, NewStaticAuthorizer("admin"), clock, nil)
	require.NoError(t, err)
	return f, clock
}

func newTestFarm(t *testing.T, tr Transfer) (*Farm, *common.TestClock) {
	return newTestFarmWithDB(t, db.NewMapDB(), tr)
}

func TestFarm_Deposit(t *testing.T) {
	tr := newMockTransfer()
	f, clock := newTestFarm(t, tr)
	now := clock.Now().Unix()

	assert.True(t, InvalidAmountError.Equals(f.Deposit("alice", nil)))
	assert.True(t, InvalidAmountError.Equals(f.Deposit("alice", new(big.Int))))
	assert.True(t, InvalidAmountError.Equals(f.Deposit("alice", big.NewInt(-1))))

	require.NoError(t, f.Deposit("alice", big.NewInt(10000)))

	ac, err := f.GetAccount("alice")
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(9975), ac.Deposited)
	assert.Equal(t, now, ac.StakingSince)
	assert.Equal(t, now, ac.LastSettledAt)
	assert.Equal(t, int64(0), ac.TotalEarned.Int64())
	assert.Equal(t, 1, f.HolderCount())
	assert.Equal(t, big.NewInt(25), tr.pushedTo("admin"))

	// top-up deposits accumulate net amounts and keep the entry time
	clock.PassTime(time.Duration(day) * time.Second)
	require.NoError(t, f.Deposit("alice", big.NewInt(10000)))
	ac, err = f.GetAccount("alice")
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(2*9975), ac.Deposited)
	assert.Equal(t, now, ac.StakingSince)
	assert.Equal(t, 1, f.HolderCount())
}

func TestFarm_DepositPullFailure(t *testing.T) {
	tr := newMockTransfer()
	tr.failPull = true
	f, _ := newTestFarm(t, tr)

	err := f.Deposit("alice", big.NewInt(10000))
	assert.True(t, TransferFailedError.Equals(err))

	ac, err := f.GetAccount("alice")
	require.NoError(t, err)
	assert.Nil(t, ac)
	assert.Equal(t, 0, f.HolderCount())
}

func TestFarm_DepositFeeFailure(t *testing.T) {
	tr := newMockTransfer()
	tr.failPush["admin"] = true
	f, _ := newTestFarm(t, tr)

	err := f.Deposit("alice", big.NewInt(10000))
	assert.True(t, TransferFailedError.Equals(err))

	ac, err := f.GetAccount("alice")
	require.NoError(t, err)
	assert.Nil(t, ac)
	assert.Equal(t, 0, f.HolderCount())
	assert.Equal(t, int64(0), f.TotalClaimedRewards().Int64())
}

func TestFarm_ClaimOneYear(t *testing.T) {
	tr := newMockTransfer()
	f, clock := newTestFarm(t, tr)

	require.NoError(t, f.Deposit("alice", big.NewInt(10000)))
	clock.PassTime(time.Duration(365*day) * time.Second)

	// 9975 * 1800 * 365d / 365d / 10000, truncated
	pending, err := f.PendingRewards("alice")
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1795), pending)

	require.NoError(t, f.Claim("alice"))
	assert.Equal(t, big.NewInt(1795), tr.pushedTo("alice"))

	ac, err := f.GetAccount("alice")
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1795), ac.TotalEarned)
	assert.Equal(t, clock.Now().Unix(), ac.LastSettledAt)
	assert.Equal(t, big.NewInt(1795), f.TotalClaimedRewards())

	// a second claim at the same instant pays nothing
	require.NoError(t, f.Claim("alice"))
	assert.Equal(t, big.NewInt(1795), tr.pushedTo("alice"))
	pending, err = f.PendingRewards("alice")
	require.NoError(t, err)
	assert.Equal(t, int64(0), pending.Int64())
}

func TestFarm_ClaimUnknownAccount(t *testing.T) {
	tr := newMockTransfer()
	f, _ := newTestFarm(t, tr)

	assert.NoError(t, f.Claim("nobody"))
	pending, err := f.PendingRewards("nobody")
	require.NoError(t, err)
	assert.Equal(t, int64(0), pending.Int64())
	assert.Empty(t, tr.calls)
}

func TestFarm_ClaimTransferFailure(t *testing.T) {
	tr := newMockTransfer()
	f, clock := newTestFarm(t, tr)

	require.NoError(t, f.Deposit("alice", big.NewInt(10000)))
	before, err := f.GetAccount("alice")
	require.NoError(t, err)

	clock.PassTime(time.Duration(100*day) * time.Second)
	tr.failPush["alice"] = true

	err = f.Claim("alice")
	assert.True(t, TransferFailedError.Equals(err))

	after, err := f.GetAccount("alice")
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, int64(0), f.TotalClaimedRewards().Int64())

	// the projection still sees the unrealized reward
	pending, err := f.PendingRewards("alice")
	require.NoError(t, err)
	assert.True(t, pending.Sign() > 0)
}

func TestFarm_WithdrawCliff(t *testing.T) {
	tr := newMockTransfer()
	f, clock := newTestFarm(t, tr)

	require.NoError(t, f.Deposit("alice", big.NewInt(10000)))

	clock.PassTime(time.Duration(9*day) * time.Second)
	err := f.Withdraw("alice", big.NewInt(100))
	assert.True(t, CliffNotElapsedError.Equals(err))
	ac, err := f.GetAccount("alice")
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(9975), ac.Deposited)

	// elapsed time equal to the cliff is still too early
	clock.PassTime(time.Duration(1*day) * time.Second)
	err = f.Withdraw("alice", big.NewInt(100))
	assert.True(t, CliffNotElapsedError.Equals(err))

	clock.PassTime(time.Duration(1*day) * time.Second)
	require.NoError(t, f.Withdraw("alice", big.NewInt(100)))
	ac, err = f.GetAccount("alice")
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(9875), ac.Deposited)
}

func TestFarm_WithdrawInsufficientBalance(t *testing.T) {
	tr := newMockTransfer()
	f, clock := newTestFarm(t, tr)

	assert.True(t, InsufficientBalanceError.Equals(
		f.Withdraw("alice", big.NewInt(1))))

	require.NoError(t, f.Deposit("alice", big.NewInt(10000)))
	clock.PassTime(time.Duration(11*day) * time.Second)

	assert.True(t, InsufficientBalanceError.Equals(
		f.Withdraw("alice", big.NewInt(9976))))
	assert.True(t, InsufficientBalanceError.Equals(
		f.Withdraw("alice", new(big.Int))))
	assert.True(t, InsufficientBalanceError.Equals(
		f.Withdraw("alice", big.NewInt(-5))))
}

func TestFarm_WithdrawAllAndReactivate(t *testing.T) {
	tr := newMockTransfer()
	f, clock := newTestFarm(t, tr)
	entry := clock.Now().Unix()

	require.NoError(t, f.Deposit("alice", big.NewInt(10000)))
	clock.PassTime(time.Duration(11*day) * time.Second)
	require.NoError(t, f.Withdraw("alice", big.NewInt(9975)))

	assert.Equal(t, 0, f.HolderCount())
	ac, err := f.GetAccount("alice")
	require.NoError(t, err)
	assert.Equal(t, int64(0), ac.Deposited.Int64())
	assert.True(t, ac.TotalEarned.Sign() > 0)

	// an inactive account accrues nothing
	clock.PassTime(time.Duration(30*day) * time.Second)
	pending, err := f.PendingRewards("alice")
	require.NoError(t, err)
	assert.Equal(t, int64(0), pending.Int64())

	// reactivation starts a new cliff
	earned := new(big.Int).Set(ac.TotalEarned)
	require.NoError(t, f.Deposit("alice", big.NewInt(5000)))
	ac, err = f.GetAccount("alice")
	require.NoError(t, err)
	assert.Equal(t, 1, f.HolderCount())
	assert.Equal(t, entry+41*day, ac.StakingSince)
	assert.Equal(t, earned, ac.TotalEarned)

	err = f.Withdraw("alice", big.NewInt(1))
	assert.True(t, CliffNotElapsedError.Equals(err))
}

func TestFarm_WithdrawPushFailure(t *testing.T) {
	tr := newMockTransfer()
	f, clock := newTestFarm(t, tr)

	require.NoError(t, f.Deposit("alice", big.NewInt(10000)))
	clock.PassTime(time.Duration(11*day) * time.Second)

	before, err := f.GetAccount("alice")
	require.NoError(t, err)
	tr.failPush["alice"] = true

	err = f.Withdraw("alice", big.NewInt(100))
	assert.True(t, TransferFailedError.Equals(err))

	after, err := f.GetAccount("alice")
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, 1, f.HolderCount())
	assert.Equal(t, int64(0), f.TotalClaimedRewards().Int64())
}

func TestFarm_WithdrawSettlesFirst(t *testing.T) {
	tr := newMockTransfer()
	f, clock := newTestFarm(t, tr)

	require.NoError(t, f.Deposit("alice", big.NewInt(10000)))
	clock.PassTime(time.Duration(365*day) * time.Second)
	require.NoError(t, f.Withdraw("alice", big.NewInt(9975)))

	// reward for the full year plus the principal
	assert.Equal(t, big.NewInt(1795+9975), tr.pushedTo("alice"))
	ac, err := f.GetAccount("alice")
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1795), ac.TotalEarned)
}

func TestFarm_RewardScalesLinearly(t *testing.T) {
	tr := newMockTransfer()
	f, clock := newTestFarm(t, tr)

	require.NoError(t, f.Deposit("alice", big.NewInt(10000)))
	require.NoError(t, f.Deposit("bob", big.NewInt(30000)))
	clock.PassTime(time.Duration(73*day) * time.Second)

	pa, err := f.PendingRewards("alice")
	require.NoError(t, err)
	pb, err := f.PendingRewards("bob")
	require.NoError(t, err)
	assert.Equal(t, new(big.Int).Mul(pa, big.NewInt(3)), pb)
}

func TestFarm_Sweep(t *testing.T) {
	tr := newMockTransfer()
	f, _ := newTestFarm(t, tr)

	err := f.Sweep("mallory", "obs", "mallory", big.NewInt(100))
	assert.True(t, UnauthorizedError.Equals(err))

	err = f.Sweep("admin", "obs", "treasury", new(big.Int))
	assert.True(t, InvalidAmountError.Equals(err))

	// sweeping the tracked asset shows up in the claimed total without
	// being attributed to any account
	require.NoError(t, f.Sweep("admin", "obs", "treasury", big.NewInt(500)))
	assert.Equal(t, big.NewInt(500), f.TotalClaimedRewards())
	assert.Equal(t, big.NewInt(500), tr.pushedTo("treasury"))

	// a foreign asset bypasses the ledger counters entirely
	require.NoError(t, f.Sweep("admin", "usdt", "treasury", big.NewInt(700)))
	assert.Equal(t, big.NewInt(500), f.TotalClaimedRewards())
}

func TestFarm_SweepTransferFailure(t *testing.T) {
	tr := newMockTransfer()
	tr.failPush["treasury"] = true
	f, _ := newTestFarm(t, tr)

	err := f.Sweep("admin", "obs", "treasury", big.NewInt(100))
	assert.True(t, TransferFailedError.Equals(err))
	assert.Equal(t, int64(0), f.TotalClaimedRewards().Int64())
}

func TestFarm_RemainingBudget(t *testing.T) {
	tr := newMockTransfer()
	f, _ := newTestFarm(t, tr)

	assert.Equal(t, big.NewInt(1000000), f.RemainingBudget())
	require.NoError(t, f.Sweep("admin", "obs", "treasury", big.NewInt(400000)))
	assert.Equal(t, big.NewInt(600000), f.RemainingBudget())

	// the budget is not enforced; the counter may pass it
	require.NoError(t, f.Sweep("admin", "obs", "treasury", big.NewInt(700000)))
	assert.Equal(t, int64(0), f.RemainingBudget().Int64())
	assert.Equal(t, big.NewInt(1100000), f.TotalClaimedRewards())
}

type eventRecorder struct {
	accounts []string
	amounts  []*big.Int
}

func (r *eventRecorder) OnRewardPaid(account string, amount *big.Int) {
	r.accounts = append(r.accounts, account)
	r.amounts = append(r.amounts, amount)
}

func TestFarm_RewardPaidEvents(t *testing.T) {
	tr := newMockTransfer()
	f, clock := newTestFarm(t, tr)

	rec := &eventRecorder{}
	f.AddListener(rec)

	require.NoError(t, f.Deposit("alice", big.NewInt(10000)))
	assert.Empty(t, rec.accounts)

	clock.PassTime(time.Duration(365*day) * time.Second)
	require.NoError(t, f.Claim("alice"))
	require.Len(t, rec.accounts, 1)
	assert.Equal(t, "alice", rec.accounts[0])
	assert.Equal(t, big.NewInt(1795), rec.amounts[0])

	// zero settlements emit nothing
	require.NoError(t, f.Claim("alice"))
	assert.Len(t, rec.accounts, 1)

	f.RemoveListener(rec)
	clock.PassTime(time.Duration(365*day) * time.Second)
	require.NoError(t, f.Claim("alice"))
	assert.Len(t, rec.accounts, 1)
}

func TestFarm_Persistence(t *testing.T) {
	dbase := db.NewMapDB()
	tr := newMockTransfer()
	f1, clock := newTestFarmWithDB(t, dbase, tr)

	require.NoError(t, f1.Deposit("alice", big.NewInt(10000)))
	require.NoError(t, f1.Deposit("bob", big.NewInt(20000)))
	clock.PassTime(time.Duration(365*day) * time.Second)
	require.NoError(t, f1.Claim("alice"))

	f2, _ := newTestFarmWithDB(t, dbase, tr)
	assert.Equal(t, 2, f2.HolderCount())
	assert.Equal(t, f1.TotalClaimedRewards(), f2.TotalClaimedRewards())

	ac1, err := f1.GetAccount("alice")
	require.NoError(t, err)
	ac2, err := f2.GetAccount("alice")
	require.NoError(t, err)
	assert.Equal(t, ac1, ac2)
}

func TestFarm_TotalClaimedMatchesEarned(t *testing.T) {
	tr := newMockTransfer()
	f, clock := newTestFarm(t, tr)

	require.NoError(t, f.Deposit("alice", big.NewInt(10000)))
	require.NoError(t, f.Deposit("bob", big.NewInt(50000)))

	for i := 0; i < 4; i++ {
		clock.PassTime(time.Duration(100*day) * time.Second)
		require.NoError(t, f.Claim("alice"))
		require.NoError(t, f.Claim("bob"))
	}

	sum := new(big.Int)
	for _, id := range []string{"alice", "bob"} {
		ac, err := f.GetAccount(id)
		require.NoError(t, err)
		sum.Add(sum, ac.TotalEarned)
	}
	assert.Equal(t, sum, f.TotalClaimedRewards())
}
