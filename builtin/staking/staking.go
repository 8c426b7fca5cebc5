// Copyright (c) 2025 The EMY developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package staking implements the LP staking pool. Stakers must be on the
// whitelist and earn reward tokens per whole cool down interval in
// proportion to their share of the pool.
package staking

import (
	"math/big"

	"github.com/emylabs/emy/builtin/reverts"
	"github.com/emylabs/emy/builtin/solidity"
	"github.com/emylabs/emy/builtin/whitelist"
	"github.com/emylabs/emy/emy"
	"github.com/emylabs/emy/log"
	"github.com/emylabs/emy/state"
)

var logger = log.WithContext("pkg", "staking")

var (
	ErrLPTokenNotSet      = reverts.New("lpToken not set")
	ErrLPTokenAlreadySet  = reverts.New("lpToken already set")
	ErrInvalidProof       = reverts.New("Invalid proof")
	ErrFrozen             = reverts.New("Tokens still frozen")
	ErrNotEnoughBalance   = reverts.New("Not enough balance")
	ErrNoBalance          = reverts.New("No balance to claim")
	ErrOnlyOwner          = reverts.New("Only owner allowed")
	ErrOnlyOwnerOrAdmin   = reverts.New("Only owner or admin allowed")
	ErrOnlyDao            = reverts.New("Only dao allowed")
	ErrDaoAlreadySet      = reverts.New("dao already set")
	ErrZeroCoolDown       = reverts.New("coolDown must be nonzero")
	ErrAlreadyInitialized = reverts.New("staking already initialized")
	ErrRewardOverflow     = reverts.New("reward overflow")
)

// Tokens moves tokens on behalf of the staking contract.
type Tokens interface {
	// TransferFrom pulls amount of token from owner to recipient, spending
	// the staking contract's allowance.
	TransferFrom(token, from, to emy.Address, amount *big.Int) error
	// Transfer sends amount of token held by the staking contract.
	Transfer(token, to emy.Address, amount *big.Int) error
	// Mint creates amount of token for recipient. The staking contract must be the minter.
	Mint(token, to emy.Address, amount *big.Int) error
}

// Staking is the storage view of a deployed staking contract.
type Staking struct {
	addr        emy.Address
	tokens      Tokens
	owner       *solidity.Address
	admin       *solidity.Address
	dao         *solidity.Address
	lpToken     *solidity.Address
	rewardToken *solidity.Address
	pool        *solidity.Uint256
	coolDown    *solidity.Uint64
	freeze      *solidity.Uint64
	root        *solidity.Bytes32
	allStaked   *solidity.Uint256
	accounts    *solidity.Mapping[emy.Address, *Account]
}

// New creates the view of the staking contract at addr. tokens may be nil
// when only the read surface is used.
func New(addr emy.Address, state *state.State, tokens Tokens) *Staking {
	ctx := solidity.NewContext(addr, state)
	return &Staking{
		addr:        addr,
		tokens:      tokens,
		owner:       solidity.NewAddress(ctx, solidity.Slot(0)),
		admin:       solidity.NewAddress(ctx, solidity.Slot(1)),
		dao:         solidity.NewAddress(ctx, solidity.Slot(2)),
		lpToken:     solidity.NewAddress(ctx, solidity.Slot(3)),
		rewardToken: solidity.NewAddress(ctx, solidity.Slot(4)),
		pool:        solidity.NewUint256(ctx, solidity.Slot(5)),
		coolDown:    solidity.NewUint64(ctx, solidity.Slot(6)),
		freeze:      solidity.NewUint64(ctx, solidity.Slot(7)),
		root:        solidity.NewBytes32(ctx, solidity.Slot(8)),
		allStaked:   solidity.NewUint256(ctx, solidity.Slot(9)),
		accounts:    solidity.NewMapping[emy.Address, *Account](ctx, solidity.Slot(10)),
	}
}

// Address returns the contract address.
func (s *Staking) Address() emy.Address {
	return s.addr
}

// Initialize configures a freshly deployed contract. The deployer becomes the owner.
func (s *Staking) Initialize(
	deployer emy.Address,
	rewardToken emy.Address,
	pool *big.Int,
	coolDown uint64,
	freeze uint64,
	root emy.Bytes32,
) error {
	owner, err := s.owner.Get()
	if err != nil {
		return err
	}
	if !owner.IsZero() {
		return ErrAlreadyInitialized
	}
	if coolDown == 0 {
		return ErrZeroCoolDown
	}
	s.owner.Set(deployer)
	s.rewardToken.Set(rewardToken)
	s.pool.Set(pool)
	s.coolDown.Set(coolDown)
	s.freeze.Set(freeze)
	s.root.Set(root)
	return nil
}

//
// Getters - no state change
//

func (s *Staking) Owner() (emy.Address, error)       { return s.owner.Get() }
func (s *Staking) Admin() (emy.Address, error)       { return s.admin.Get() }
func (s *Staking) Dao() (emy.Address, error)         { return s.dao.Get() }
func (s *Staking) LPToken() (emy.Address, error)     { return s.lpToken.Get() }
func (s *Staking) RewardToken() (emy.Address, error) { return s.rewardToken.Get() }
func (s *Staking) Pool() (*big.Int, error)           { return s.pool.Get() }
func (s *Staking) CoolDown() (uint64, error)         { return s.coolDown.Get() }
func (s *Staking) Freeze() (uint64, error)           { return s.freeze.Get() }
func (s *Staking) Root() (emy.Bytes32, error)        { return s.root.Get() }
func (s *Staking) AllStaked() (*big.Int, error)      { return s.allStaked.Get() }

// AccountOf returns the stake record of addr. Unknown addresses yield an empty account.
func (s *Staking) AccountOf(addr emy.Address) (*Account, error) {
	acc, err := s.accounts.Get(addr)
	if err != nil {
		return nil, err
	}
	if acc.Balance == nil {
		acc.Balance = new(big.Int)
	}
	return acc, nil
}

// BalanceOf returns the staked balance of addr.
func (s *Staking) BalanceOf(addr emy.Address) (*big.Int, error) {
	acc, err := s.AccountOf(addr)
	if err != nil {
		return nil, err
	}
	return acc.Balance, nil
}

// IsAllowed checks proof against the current whitelist root.
func (s *Staking) IsAllowed(account emy.Address, proof []emy.Bytes32) (bool, error) {
	root, err := s.root.Get()
	if err != nil {
		return false, err
	}
	return whitelist.IsAllowed(root, account, proof), nil
}

// Claimable returns the reward a claim by addr would mint at time now.
func (s *Staking) Claimable(addr emy.Address, now uint64) (*big.Int, error) {
	acc, err := s.AccountOf(addr)
	if err != nil {
		return nil, err
	}
	if acc.IsEmpty() {
		return new(big.Int), nil
	}
	r, _, err := s.accrue(acc, now)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return new(big.Int), nil
	}
	return r, nil
}

// accrue returns the reward earned by acc and the intervals it covers.
// A nil reward means no whole interval has elapsed.
func (s *Staking) accrue(acc *Account, now uint64) (*big.Int, uint64, error) {
	coolDown, err := s.coolDown.Get()
	if err != nil {
		return nil, 0, err
	}
	n := acc.intervals(now, coolDown)
	if n == 0 {
		return nil, 0, nil
	}
	pool, err := s.pool.Get()
	if err != nil {
		return nil, 0, err
	}
	allStaked, err := s.allStaked.Get()
	if err != nil {
		return nil, 0, err
	}
	r := reward(pool, n, acc.Balance, allStaked)
	if r.BitLen() > 256 {
		return nil, 0, ErrRewardOverflow
	}
	return r, n * coolDown, nil
}

//
// Stake operations
//

func (s *Staking) requireLPToken() (emy.Address, error) {
	lpToken, err := s.lpToken.Get()
	if err != nil {
		return emy.Address{}, err
	}
	if lpToken.IsZero() {
		return emy.Address{}, ErrLPTokenNotSet
	}
	return lpToken, nil
}

// Stake pulls amount of LP token from caller into the pool.
func (s *Staking) Stake(caller emy.Address, amount *big.Int, proof []emy.Bytes32, now uint64) error {
	lpToken, err := s.requireLPToken()
	if err != nil {
		return err
	}
	allowed, err := s.IsAllowed(caller, proof)
	if err != nil {
		return err
	}
	if !allowed {
		return ErrInvalidProof
	}
	if err := s.tokens.TransferFrom(lpToken, caller, s.addr, amount); err != nil {
		return err
	}

	acc, err := s.AccountOf(caller)
	if err != nil {
		return err
	}
	if acc.IsEmpty() {
		acc.LastAccrualTime = now
	}
	acc.Balance = new(big.Int).Add(acc.Balance, amount)
	acc.LastStakeTime = now
	if err := s.accounts.Set(caller, acc); err != nil {
		return err
	}
	if err := s.allStaked.Add(amount); err != nil {
		return err
	}
	logger.Debug("staked", "account", caller, "amount", amount)
	return nil
}

// Unstake returns amount of LP token to caller once the freeze window of
// the latest stake has passed. Pending reward is minted first; the minted
// amount is returned, nil when nothing accrued.
func (s *Staking) Unstake(caller emy.Address, amount *big.Int, now uint64) (*big.Int, error) {
	lpToken, err := s.requireLPToken()
	if err != nil {
		return nil, err
	}
	acc, err := s.AccountOf(caller)
	if err != nil {
		return nil, err
	}
	freeze, err := s.freeze.Get()
	if err != nil {
		return nil, err
	}
	if now < acc.LastStakeTime+freeze {
		return nil, ErrFrozen
	}
	if acc.Balance.Cmp(amount) < 0 {
		return nil, ErrNotEnoughBalance
	}

	var minted *big.Int
	if !acc.IsEmpty() {
		if minted, err = s.payout(caller, acc, now); err != nil {
			return nil, err
		}
	}

	acc.Balance = new(big.Int).Sub(acc.Balance, amount)
	if err := s.accounts.Set(caller, acc); err != nil {
		return nil, err
	}
	if err := s.allStaked.Sub(amount); err != nil {
		return nil, err
	}
	if err := s.tokens.Transfer(lpToken, caller, amount); err != nil {
		return nil, err
	}
	logger.Debug("unstaked", "account", caller, "amount", amount)
	return minted, nil
}

// Claim mints the reward accrued by caller. The minted amount is returned,
// nil when no whole interval has elapsed.
func (s *Staking) Claim(caller emy.Address, now uint64) (*big.Int, error) {
	if _, err := s.requireLPToken(); err != nil {
		return nil, err
	}
	acc, err := s.AccountOf(caller)
	if err != nil {
		return nil, err
	}
	if acc.IsEmpty() {
		return nil, ErrNoBalance
	}
	minted, err := s.payout(caller, acc, now)
	if err != nil {
		return nil, err
	}
	if minted == nil {
		return nil, nil
	}
	return minted, s.accounts.Set(caller, acc)
}

// payout advances the accrual baseline of acc by the elapsed whole
// intervals and mints the reward. acc is updated but not stored.
func (s *Staking) payout(caller emy.Address, acc *Account, now uint64) (*big.Int, error) {
	r, elapsed, err := s.accrue(acc, now)
	if err != nil || r == nil {
		return nil, err
	}
	rewardToken, err := s.rewardToken.Get()
	if err != nil {
		return nil, err
	}
	if err := s.tokens.Mint(rewardToken, caller, r); err != nil {
		return nil, err
	}
	acc.LastAccrualTime += elapsed
	logger.Debug("reward minted", "account", caller, "amount", r)
	return r, nil
}

//
// Admin surface
//

func (s *Staking) requireOwner(caller emy.Address) error {
	owner, err := s.owner.Get()
	if err != nil {
		return err
	}
	if caller != owner {
		return ErrOnlyOwner
	}
	return nil
}

func (s *Staking) requireOwnerOrAdmin(caller emy.Address) error {
	owner, err := s.owner.Get()
	if err != nil {
		return err
	}
	admin, err := s.admin.Get()
	if err != nil {
		return err
	}
	if caller != owner && caller != admin {
		return ErrOnlyOwnerOrAdmin
	}
	return nil
}

// SetAdmin replaces the admin. Owner only.
func (s *Staking) SetAdmin(caller, admin emy.Address) error {
	if err := s.requireOwner(caller); err != nil {
		return err
	}
	s.admin.Set(admin)
	return nil
}

// SetPool replaces the reward minted per interval. Owner or admin only.
func (s *Staking) SetPool(caller emy.Address, pool *big.Int) error {
	if err := s.requireOwnerOrAdmin(caller); err != nil {
		return err
	}
	s.pool.Set(pool)
	return nil
}

// SetLPToken sets the staked token. It can be set only once.
func (s *Staking) SetLPToken(caller, token emy.Address) error {
	if err := s.requireOwnerOrAdmin(caller); err != nil {
		return err
	}
	current, err := s.lpToken.Get()
	if err != nil {
		return err
	}
	if !current.IsZero() {
		return ErrLPTokenAlreadySet
	}
	s.lpToken.Set(token)
	return nil
}

// SetRoot replaces the whitelist root. Only the dao may call it.
func (s *Staking) SetRoot(caller emy.Address, root emy.Bytes32) error {
	dao, err := s.dao.Get()
	if err != nil {
		return err
	}
	if dao.IsZero() || caller != dao {
		return ErrOnlyDao
	}
	s.root.Set(root)
	logger.Info("whitelist root changed", "root", root)
	return nil
}

// SetDao binds the governance contract. Owner only, once.
func (s *Staking) SetDao(caller, dao emy.Address) error {
	if err := s.requireOwner(caller); err != nil {
		return err
	}
	current, err := s.dao.Get()
	if err != nil {
		return err
	}
	if !current.IsZero() {
		return ErrDaoAlreadySet
	}
	s.dao.Set(dao)
	return nil
}
