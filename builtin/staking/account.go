// Copyright (c) 2025 The EMY developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"math/big"
)

// Account is the stake record of a single address.
type Account struct {
	Balance         *big.Int
	LastStakeTime   uint64
	LastAccrualTime uint64
}

// IsEmpty returns whether the account holds no stake.
func (a *Account) IsEmpty() bool {
	return a.Balance == nil || a.Balance.Sign() == 0
}

// intervals returns the number of whole cool down intervals elapsed since the last accrual.
func (a *Account) intervals(now, coolDown uint64) uint64 {
	if now <= a.LastAccrualTime {
		return 0
	}
	return (now - a.LastAccrualTime) / coolDown
}

// reward computes pool * n * balance / allStaked, rounded down.
func reward(pool *big.Int, n uint64, balance, allStaked *big.Int) *big.Int {
	if allStaked.Sign() == 0 {
		return new(big.Int)
	}
	r := new(big.Int).Mul(pool, new(big.Int).SetUint64(n))
	r.Mul(r, balance)
	return r.Div(r, allStaked)
}
