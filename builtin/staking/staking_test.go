// Copyright (c) 2025 The EMY developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emylabs/emy/builtin/token"
	"github.com/emylabs/emy/builtin/whitelist"
	"github.com/emylabs/emy/emy"
	"github.com/emylabs/emy/lvldb"
	"github.com/emylabs/emy/state"
)

var (
	owner       = emy.BytesToAddress([]byte("owner"))
	admin       = emy.BytesToAddress([]byte("admin"))
	dao         = emy.BytesToAddress([]byte("dao"))
	alice       = emy.BytesToAddress([]byte("alice"))
	bob         = emy.BytesToAddress([]byte("bob"))
	carol       = emy.BytesToAddress([]byte("carol"))
	stakingAddr = emy.BytesToAddress([]byte("staking"))
	rewardAddr  = emy.BytesToAddress([]byte("reward"))
	lpAddr      = emy.BytesToAddress([]byte("lp"))

	pool = big.NewInt(10_000_000)
)

const (
	coolDown = 10
	freeze   = 20
	t0       = 1_000
)

// tokenCalls drives token contracts directly with the staking contract as caller.
type tokenCalls struct {
	st *state.State
}

func (c *tokenCalls) TransferFrom(tk, from, to emy.Address, amount *big.Int) error {
	return token.New(tk, c.st).TransferFrom(stakingAddr, from, to, amount)
}

func (c *tokenCalls) Transfer(tk, to emy.Address, amount *big.Int) error {
	return token.New(tk, c.st).Transfer(stakingAddr, to, amount)
}

func (c *tokenCalls) Mint(tk, to emy.Address, amount *big.Int) error {
	return token.New(tk, c.st).Mint(stakingAddr, to, amount)
}

type fixture struct {
	st      *state.State
	staking *Staking
	reward  *token.Token
	lp      *token.Token
	tree    *whitelist.Tree
}

func supply() *big.Int {
	return new(big.Int).Mul(big.NewInt(1_000_000), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

func newFixture(t *testing.T, withLP bool) *fixture {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	st := state.New(db)

	reward := token.New(rewardAddr, st)
	require.NoError(t, reward.Initialize(owner, "Erc20my", "EMY", 18, supply()))
	require.NoError(t, reward.SetMinter(owner, stakingAddr))

	lp := token.New(lpAddr, st)
	require.NoError(t, lp.Initialize(owner, "Uniswap V2", "UNI-V2", 18, supply()))
	for _, acc := range []emy.Address{alice, bob, carol} {
		require.NoError(t, lp.Transfer(owner, acc, big.NewInt(1_000)))
		require.NoError(t, lp.Approve(acc, stakingAddr, big.NewInt(1_000)))
	}

	tree := whitelist.NewAddressTree([]emy.Address{alice, bob, owner})
	s := New(stakingAddr, st, &tokenCalls{st})
	require.NoError(t, s.Initialize(owner, rewardAddr, pool, coolDown, freeze, tree.Root()))
	require.NoError(t, s.SetDao(owner, dao))
	if withLP {
		require.NoError(t, s.SetLPToken(owner, lpAddr))
	}
	return &fixture{st, s, reward, lp, tree}
}

func (f *fixture) proof(t *testing.T, acc emy.Address) []emy.Bytes32 {
	p, err := f.tree.AddressProof(acc)
	require.NoError(t, err)
	return p
}

func (f *fixture) stake(t *testing.T, acc emy.Address, amount int64, now uint64) {
	require.NoError(t, f.staking.Stake(acc, big.NewInt(amount), f.proof(t, acc), now))
}

func (f *fixture) assertAllStaked(t *testing.T, accounts ...emy.Address) {
	sum := new(big.Int)
	for _, acc := range accounts {
		b, err := f.staking.BalanceOf(acc)
		require.NoError(t, err)
		sum.Add(sum, b)
	}
	all, err := f.staking.AllStaked()
	require.NoError(t, err)
	assert.Equal(t, 0, sum.Cmp(all), "allStaked %v, sum %v", all, sum)
}

func balanceOf(t *testing.T, tk *token.Token, acc emy.Address) *big.Int {
	b, err := tk.BalanceOf(acc)
	require.NoError(t, err)
	return b
}

func TestInitialize(t *testing.T) {
	f := newFixture(t, false)

	o, err := f.staking.Owner()
	require.NoError(t, err)
	assert.Equal(t, owner, o)

	cd, err := f.staking.CoolDown()
	require.NoError(t, err)
	assert.Equal(t, uint64(coolDown), cd)

	fr, err := f.staking.Freeze()
	require.NoError(t, err)
	assert.Equal(t, uint64(freeze), fr)

	root, err := f.staking.Root()
	require.NoError(t, err)
	assert.Equal(t, f.tree.Root(), root)

	p, err := f.staking.Pool()
	require.NoError(t, err)
	assert.Equal(t, pool, p)

	assert.Equal(t, ErrAlreadyInitialized, f.staking.Initialize(owner, rewardAddr, pool, coolDown, freeze, root))

	other := New(emy.BytesToAddress([]byte("other")), f.st, nil)
	assert.Equal(t, ErrZeroCoolDown, other.Initialize(owner, rewardAddr, pool, 0, freeze, root))
}

func TestStakeRequiresLPToken(t *testing.T) {
	f := newFixture(t, false)

	err := f.staking.Stake(alice, big.NewInt(100), f.proof(t, alice), t0)
	assert.Equal(t, ErrLPTokenNotSet, err)

	// regardless of whitelist status
	err = f.staking.Stake(carol, big.NewInt(100), nil, t0)
	assert.Equal(t, ErrLPTokenNotSet, err)

	_, err = f.staking.Unstake(alice, big.NewInt(1), t0)
	assert.Equal(t, ErrLPTokenNotSet, err)

	_, err = f.staking.Claim(alice, t0)
	assert.Equal(t, ErrLPTokenNotSet, err)
}

func TestStake(t *testing.T) {
	f := newFixture(t, true)

	assert.Equal(t, ErrInvalidProof, f.staking.Stake(carol, big.NewInt(100), f.proof(t, alice), t0))
	assert.Equal(t, ErrInvalidProof, f.staking.Stake(alice, big.NewInt(100), nil, t0))

	err := f.staking.Stake(alice, big.NewInt(2_000), f.proof(t, alice), t0)
	assert.Equal(t, token.ErrSubUnderflow, err)

	f.stake(t, alice, 100, t0)

	acc, err := f.staking.AccountOf(alice)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(100), acc.Balance)
	assert.Equal(t, uint64(t0), acc.LastStakeTime)
	assert.Equal(t, uint64(t0), acc.LastAccrualTime)

	assert.Equal(t, big.NewInt(900), balanceOf(t, f.lp, alice))
	assert.Equal(t, big.NewInt(100), balanceOf(t, f.lp, stakingAddr))

	// restaking keeps the accrual baseline
	f.stake(t, alice, 50, t0+5)
	acc, err = f.staking.AccountOf(alice)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(150), acc.Balance)
	assert.Equal(t, uint64(t0+5), acc.LastStakeTime)
	assert.Equal(t, uint64(t0), acc.LastAccrualTime)

	f.stake(t, bob, 300, t0+5)
	f.assertAllStaked(t, alice, bob, carol)
}

func TestClaimAfterThreeIntervals(t *testing.T) {
	f := newFixture(t, true)
	f.stake(t, alice, 100, t0)

	claimable, err := f.staking.Claimable(alice, t0+3*coolDown)
	require.NoError(t, err)

	minted, err := f.staking.Claim(alice, t0+3*coolDown)
	require.NoError(t, err)

	// pool * 3 * 100 / 100
	assert.Equal(t, big.NewInt(30_000_000), minted)
	assert.Equal(t, minted, claimable)
	assert.Equal(t, big.NewInt(30_000_000), balanceOf(t, f.reward, alice))

	acc, err := f.staking.AccountOf(alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(t0+3*coolDown), acc.LastAccrualTime)

	// nothing left until the next interval
	minted, err = f.staking.Claim(alice, t0+3*coolDown+coolDown-1)
	require.NoError(t, err)
	assert.Nil(t, minted)
	assert.Equal(t, big.NewInt(30_000_000), balanceOf(t, f.reward, alice))
}

func TestClaimRewardOverflow(t *testing.T) {
	f := newFixture(t, true)
	huge := new(big.Int).Add(new(big.Int).Lsh(big.NewInt(1), 255), big.NewInt(1))
	require.NoError(t, f.staking.SetPool(owner, huge))
	f.stake(t, alice, 100, t0)

	// one interval still fits in 256 bits
	claimable, err := f.staking.Claimable(alice, t0+coolDown)
	require.NoError(t, err)
	assert.Equal(t, 0, huge.Cmp(claimable))

	_, err = f.staking.Claimable(alice, t0+2*coolDown)
	assert.ErrorIs(t, err, ErrRewardOverflow)

	minted, err := f.staking.Claim(alice, t0+2*coolDown)
	assert.ErrorIs(t, err, ErrRewardOverflow)
	assert.Nil(t, minted)
	assert.Equal(t, 0, balanceOf(t, f.reward, alice).Sign())

	acc, err := f.staking.AccountOf(alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(t0), acc.LastAccrualTime)
}

func TestClaimKeepsRemainder(t *testing.T) {
	f := newFixture(t, true)
	f.stake(t, alice, 100, t0)

	minted, err := f.staking.Claim(alice, t0+25)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(20_000_000), minted)

	acc, err := f.staking.AccountOf(alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(t0+20), acc.LastAccrualTime)

	minted, err = f.staking.Claim(alice, t0+30)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(10_000_000), minted)
}

func TestClaimBeforeInterval(t *testing.T) {
	f := newFixture(t, true)
	f.stake(t, alice, 100, t0)

	minted, err := f.staking.Claim(alice, t0+coolDown-1)
	require.NoError(t, err)
	assert.Nil(t, minted)
	assert.Equal(t, 0, balanceOf(t, f.reward, alice).Sign())

	claimable, err := f.staking.Claimable(alice, t0+coolDown-1)
	require.NoError(t, err)
	assert.Equal(t, 0, claimable.Sign())
}

func TestClaimNoBalance(t *testing.T) {
	f := newFixture(t, true)

	_, err := f.staking.Claim(alice, t0)
	assert.Equal(t, ErrNoBalance, err)

	claimable, err := f.staking.Claimable(alice, t0+100)
	require.NoError(t, err)
	assert.Equal(t, 0, claimable.Sign())
}

func TestRewardMonotoneInIntervals(t *testing.T) {
	f := newFixture(t, true)
	f.stake(t, alice, 70, t0)
	f.stake(t, bob, 30, t0)

	prev := new(big.Int)
	for n := uint64(0); n < 10; n++ {
		c, err := f.staking.Claimable(alice, t0+n*coolDown+3)
		require.NoError(t, err)
		assert.True(t, c.Cmp(prev) >= 0)
		prev = c
	}
}

func TestProportionalReward(t *testing.T) {
	f := newFixture(t, true)
	f.stake(t, alice, 100, t0)
	f.stake(t, bob, 300, t0)

	minted, err := f.staking.Claim(alice, t0+coolDown)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(2_500_000), minted)

	minted, err = f.staking.Claim(bob, t0+coolDown)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(7_500_000), minted)
}

func TestFloorDivision(t *testing.T) {
	f := newFixture(t, true)
	f.stake(t, alice, 1, t0)
	f.stake(t, bob, 2, t0)

	minted, err := f.staking.Claim(alice, t0+coolDown)
	require.NoError(t, err)
	// 10,000,000 / 3 rounded down
	assert.Equal(t, big.NewInt(3_333_333), minted)
}

func TestUnstakeFrozen(t *testing.T) {
	f := newFixture(t, true)
	f.stake(t, alice, 100, t0)
	f.stake(t, alice, 100, t0+15)

	// the first stake's window has elapsed but the latest has not
	_, err := f.staking.Unstake(alice, big.NewInt(50), t0+freeze+1)
	assert.Equal(t, ErrFrozen, err)

	_, err = f.staking.Unstake(alice, big.NewInt(50), t0+15+freeze)
	assert.NoError(t, err)
}

func TestUnstake(t *testing.T) {
	f := newFixture(t, true)
	f.stake(t, alice, 100, t0)
	f.stake(t, bob, 100, t0)

	_, err := f.staking.Unstake(alice, big.NewInt(101), t0+freeze)
	assert.Equal(t, ErrNotEnoughBalance, err)

	minted, err := f.staking.Unstake(alice, big.NewInt(40), t0+freeze)
	require.NoError(t, err)
	// two intervals of half the pool
	assert.Equal(t, big.NewInt(10_000_000), minted)
	assert.Equal(t, big.NewInt(10_000_000), balanceOf(t, f.reward, alice))
	assert.Equal(t, big.NewInt(940), balanceOf(t, f.lp, alice))

	acc, err := f.staking.AccountOf(alice)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(60), acc.Balance)
	assert.Equal(t, uint64(t0+freeze), acc.LastAccrualTime)
	f.assertAllStaked(t, alice, bob)

	minted, err = f.staking.Unstake(alice, big.NewInt(60), t0+freeze+1)
	require.NoError(t, err)
	assert.Nil(t, minted)
	assert.Equal(t, big.NewInt(1_000), balanceOf(t, f.lp, alice))
	f.assertAllStaked(t, alice, bob)

	// a drained account starts over on the next stake
	f.stake(t, alice, 10, t0+100)
	acc, err = f.staking.AccountOf(alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(t0+100), acc.LastAccrualTime)
}

func TestAdminSurface(t *testing.T) {
	f := newFixture(t, false)

	assert.Equal(t, ErrOnlyOwner, f.staking.SetAdmin(alice, alice))
	require.NoError(t, f.staking.SetAdmin(owner, admin))
	a, err := f.staking.Admin()
	require.NoError(t, err)
	assert.Equal(t, admin, a)

	assert.Equal(t, ErrOnlyOwnerOrAdmin, f.staking.SetPool(alice, big.NewInt(1)))
	require.NoError(t, f.staking.SetPool(admin, big.NewInt(42)))
	p, err := f.staking.Pool()
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(42), p)

	assert.Equal(t, ErrOnlyOwnerOrAdmin, f.staking.SetLPToken(alice, lpAddr))
	require.NoError(t, f.staking.SetLPToken(admin, lpAddr))
	assert.Equal(t, ErrLPTokenAlreadySet, f.staking.SetLPToken(owner, lpAddr))

	assert.Equal(t, ErrDaoAlreadySet, f.staking.SetDao(owner, alice))
	assert.Equal(t, ErrOnlyOwner, f.staking.SetDao(admin, alice))
}

func TestSetRoot(t *testing.T) {
	f := newFixture(t, true)

	newTree := whitelist.NewAddressTree([]emy.Address{carol, bob})
	assert.Equal(t, ErrOnlyDao, f.staking.SetRoot(owner, newTree.Root()))
	require.NoError(t, f.staking.SetRoot(dao, newTree.Root()))

	ok, err := f.staking.IsAllowed(alice, f.proof(t, alice))
	require.NoError(t, err)
	assert.False(t, ok)

	proof, err := newTree.AddressProof(carol)
	require.NoError(t, err)
	assert.Equal(t, ErrInvalidProof, f.staking.Stake(alice, big.NewInt(1), f.proof(t, alice), t0))
	assert.NoError(t, f.staking.Stake(carol, big.NewInt(1), proof, t0))
}

func TestSetRootWithoutDao(t *testing.T) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	defer db.Close()

	s := New(stakingAddr, state.New(db), nil)
	require.NoError(t, s.Initialize(owner, rewardAddr, pool, coolDown, freeze, emy.Bytes32{}))
	assert.Equal(t, ErrOnlyDao, s.SetRoot(emy.Address{}, emy.Bytes32{1}))
}
