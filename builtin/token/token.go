// Copyright (c) 2025 The EMY developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package token implements a fungible token with a single minter role.
// The same contract backs the reward token and the LP token.
package token

import (
	"math/big"

	"github.com/holiman/uint256"

	"github.com/emylabs/emy/builtin/reverts"
	"github.com/emylabs/emy/builtin/solidity"
	"github.com/emylabs/emy/emy"
	"github.com/emylabs/emy/state"
)

var (
	ErrOnlyOwner          = reverts.New("Only owner allowed")
	ErrOnlyMinter         = reverts.New("Only minter allowed")
	ErrBurnExceeds        = reverts.New("ERC20: burn amount exceeds balance")
	ErrSubUnderflow       = reverts.New("ds-math-sub-underflow")
	ErrAddOverflow        = reverts.New("ds-math-add-overflow")
	ErrTransferToZero     = reverts.New("ERC20: transfer to the zero address")
	ErrApproveToZero      = reverts.New("ERC20: approve to the zero address")
	ErrMintToZero         = reverts.New("ERC20: mint to the zero address")
	ErrAlreadyInitialized = reverts.New("token already initialized")
)

// allowanceKey identifies the allowance of spender over owner's balance.
type allowanceKey struct {
	owner   emy.Address
	spender emy.Address
}

func (k allowanceKey) Bytes() []byte {
	return append(k.owner.Bytes(), k.spender.Bytes()...)
}

// Token is the storage view of a deployed token contract.
type Token struct {
	addr       emy.Address
	name       *solidity.String
	symbol     *solidity.String
	decimals   *solidity.Uint64
	supply     *solidity.Uint256
	balances   *solidity.Mapping[emy.Address, *big.Int]
	allowances *solidity.Mapping[allowanceKey, *big.Int]
	owner      *solidity.Address
	minter     *solidity.Address
}

func New(addr emy.Address, state *state.State) *Token {
	ctx := solidity.NewContext(addr, state)
	return &Token{
		addr:       addr,
		name:       solidity.NewString(ctx, solidity.Slot(0)),
		symbol:     solidity.NewString(ctx, solidity.Slot(1)),
		decimals:   solidity.NewUint64(ctx, solidity.Slot(2)),
		supply:     solidity.NewUint256(ctx, solidity.Slot(3)),
		balances:   solidity.NewMapping[emy.Address, *big.Int](ctx, solidity.Slot(4)),
		allowances: solidity.NewMapping[allowanceKey, *big.Int](ctx, solidity.Slot(5)),
		owner:      solidity.NewAddress(ctx, solidity.Slot(6)),
		minter:     solidity.NewAddress(ctx, solidity.Slot(7)),
	}
}

// Address returns the contract address.
func (t *Token) Address() emy.Address {
	return t.addr
}

// Initialize sets up a freshly deployed token. The deployer owns the whole
// supply and is the initial minter.
func (t *Token) Initialize(deployer emy.Address, name, symbol string, decimals uint8, supply *big.Int) error {
	owner, err := t.owner.Get()
	if err != nil {
		return err
	}
	if !owner.IsZero() {
		return ErrAlreadyInitialized
	}
	if err := t.name.Set(name); err != nil {
		return err
	}
	if err := t.symbol.Set(symbol); err != nil {
		return err
	}
	t.decimals.Set(uint64(decimals))
	t.owner.Set(deployer)
	t.minter.Set(deployer)
	if supply.Sign() > 0 {
		return t.mint(deployer, supply)
	}
	return nil
}

func (t *Token) Name() (string, error)   { return t.name.Get() }
func (t *Token) Symbol() (string, error) { return t.symbol.Get() }

func (t *Token) Decimals() (uint8, error) {
	d, err := t.decimals.Get()
	return uint8(d), err
}

func (t *Token) TotalSupply() (*big.Int, error) { return t.supply.Get() }
func (t *Token) Owner() (emy.Address, error)    { return t.owner.Get() }
func (t *Token) Minter() (emy.Address, error)   { return t.minter.Get() }

func (t *Token) BalanceOf(addr emy.Address) (*big.Int, error) {
	return t.get(t.balances.Get(addr))
}

func (t *Token) Allowance(owner, spender emy.Address) (*big.Int, error) {
	return t.get(t.allowances.Get(allowanceKey{owner, spender}))
}

func (t *Token) get(v *big.Int, err error) (*big.Int, error) {
	if err != nil {
		return nil, err
	}
	if v == nil {
		return new(big.Int), nil
	}
	return v, nil
}

// Transfer moves amount from sender to recipient.
func (t *Token) Transfer(from, to emy.Address, amount *big.Int) error {
	if to.IsZero() {
		return ErrTransferToZero
	}
	fromBal, err := t.BalanceOf(from)
	if err != nil {
		return err
	}
	newFrom, err := sub(fromBal, amount)
	if err != nil {
		return err
	}
	if err := t.balances.Set(from, newFrom); err != nil {
		return err
	}

	toBal, err := t.BalanceOf(to)
	if err != nil {
		return err
	}
	newTo, err := add(toBal, amount)
	if err != nil {
		return err
	}
	return t.balances.Set(to, newTo)
}

// Approve sets the allowance of spender over owner's balance.
func (t *Token) Approve(owner, spender emy.Address, amount *big.Int) error {
	if spender.IsZero() {
		return ErrApproveToZero
	}
	return t.allowances.Set(allowanceKey{owner, spender}, amount)
}

// TransferFrom moves amount from owner to recipient, spending spender's allowance.
func (t *Token) TransferFrom(spender, from, to emy.Address, amount *big.Int) error {
	allowance, err := t.Allowance(from, spender)
	if err != nil {
		return err
	}
	remaining, err := sub(allowance, amount)
	if err != nil {
		return err
	}
	if err := t.allowances.Set(allowanceKey{from, spender}, remaining); err != nil {
		return err
	}
	return t.Transfer(from, to, amount)
}

// Mint credits amount to recipient. Only the minter may mint.
func (t *Token) Mint(caller, to emy.Address, amount *big.Int) error {
	if err := t.requireMinter(caller); err != nil {
		return err
	}
	if to.IsZero() {
		return ErrMintToZero
	}
	return t.mint(to, amount)
}

func (t *Token) mint(to emy.Address, amount *big.Int) error {
	supply, err := t.supply.Get()
	if err != nil {
		return err
	}
	newSupply, err := add(supply, amount)
	if err != nil {
		return err
	}
	bal, err := t.BalanceOf(to)
	if err != nil {
		return err
	}
	newBal, err := add(bal, amount)
	if err != nil {
		return err
	}
	t.supply.Set(newSupply)
	return t.balances.Set(to, newBal)
}

// Burn destroys amount from holder. Only the minter may burn.
func (t *Token) Burn(caller, from emy.Address, amount *big.Int) error {
	if err := t.requireMinter(caller); err != nil {
		return err
	}
	bal, err := t.BalanceOf(from)
	if err != nil {
		return err
	}
	if bal.Cmp(amount) < 0 {
		return ErrBurnExceeds
	}
	if err := t.balances.Set(from, new(big.Int).Sub(bal, amount)); err != nil {
		return err
	}
	return t.supply.Sub(amount)
}

// SetMinter hands the minter role to another account. Only the owner may do so.
func (t *Token) SetMinter(caller, minter emy.Address) error {
	owner, err := t.owner.Get()
	if err != nil {
		return err
	}
	if caller != owner {
		return ErrOnlyOwner
	}
	t.minter.Set(minter)
	return nil
}

func (t *Token) requireMinter(caller emy.Address) error {
	minter, err := t.minter.Get()
	if err != nil {
		return err
	}
	if caller != minter {
		return ErrOnlyMinter
	}
	return nil
}

func sub(a, b *big.Int) (*big.Int, error) {
	x, y := uint256.MustFromBig(a), uint256.MustFromBig(b)
	z, underflow := new(uint256.Int).SubOverflow(x, y)
	if underflow {
		return nil, ErrSubUnderflow
	}
	return z.ToBig(), nil
}

func add(a, b *big.Int) (*big.Int, error) {
	x, y := uint256.MustFromBig(a), uint256.MustFromBig(b)
	z, overflow := new(uint256.Int).AddOverflow(x, y)
	if overflow {
		return nil, ErrAddOverflow
	}
	return z.ToBig(), nil
}
