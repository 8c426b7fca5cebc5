// Copyright (c) 2025 The EMY developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/emylabs/emy/api/utils"
	"github.com/emylabs/emy/builtin"
	"github.com/emylabs/emy/emy"
	"github.com/emylabs/emy/ledger"
	"github.com/emylabs/emy/state"
)

type Config struct {
	Owner       emy.Address           `json:"owner"`
	Admin       emy.Address           `json:"admin"`
	Dao         emy.Address           `json:"dao"`
	LPToken     emy.Address           `json:"lpToken"`
	RewardToken emy.Address           `json:"rewardToken"`
	Pool        *math.HexOrDecimal256 `json:"pool"`
	CoolDown    uint64                `json:"coolDown"`
	Freeze      uint64                `json:"freeze"`
	Root        emy.Bytes32           `json:"root"`
	AllStaked   *math.HexOrDecimal256 `json:"allStaked"`
}

type Account struct {
	Address         emy.Address           `json:"address"`
	Balance         *math.HexOrDecimal256 `json:"balance"`
	LastStakeTime   uint64                `json:"lastStakeTime"`
	LastAccrualTime uint64                `json:"lastAccrualTime"`
	Claimable       *math.HexOrDecimal256 `json:"claimable"`
	// UnfreezeTime is the first time unstake is allowed.
	UnfreezeTime uint64  `json:"unfreezeTime"`
	Config       *Config `json:"config"`
}

type Staking struct {
	ledger *ledger.Ledger
	addr   emy.Address
}

func New(ledger *ledger.Ledger, addr emy.Address) *Staking {
	return &Staking{ledger, addr}
}

func hexOrDecimal(v *big.Int) *math.HexOrDecimal256 {
	return (*math.HexOrDecimal256)(v)
}

func (s *Staking) account(st *state.State, addr emy.Address, now uint64) (*Account, error) {
	contract := builtin.Staking.Native(s.addr, st, nil)

	var (
		cfg Config
		err error
		v   *big.Int
	)
	if cfg.Owner, err = contract.Owner(); err != nil {
		return nil, err
	}
	if cfg.Admin, err = contract.Admin(); err != nil {
		return nil, err
	}
	if cfg.Dao, err = contract.Dao(); err != nil {
		return nil, err
	}
	if cfg.LPToken, err = contract.LPToken(); err != nil {
		return nil, err
	}
	if cfg.RewardToken, err = contract.RewardToken(); err != nil {
		return nil, err
	}
	if v, err = contract.Pool(); err != nil {
		return nil, err
	}
	cfg.Pool = hexOrDecimal(v)
	if cfg.CoolDown, err = contract.CoolDown(); err != nil {
		return nil, err
	}
	if cfg.Freeze, err = contract.Freeze(); err != nil {
		return nil, err
	}
	if cfg.Root, err = contract.Root(); err != nil {
		return nil, err
	}
	if v, err = contract.AllStaked(); err != nil {
		return nil, err
	}
	cfg.AllStaked = hexOrDecimal(v)

	acc, err := contract.AccountOf(addr)
	if err != nil {
		return nil, err
	}
	claimable, err := contract.Claimable(addr, now)
	if err != nil {
		return nil, err
	}
	return &Account{
		Address:         addr,
		Balance:         hexOrDecimal(acc.Balance),
		LastStakeTime:   acc.LastStakeTime,
		LastAccrualTime: acc.LastAccrualTime,
		Claimable:       hexOrDecimal(claimable),
		UnfreezeTime:    acc.LastStakeTime + cfg.Freeze,
		Config:          &cfg,
	}, nil
}

func (s *Staking) handleGetAccount(w http.ResponseWriter, req *http.Request) error {
	addr, err := emy.ParseAddress(mux.Vars(req)["address"])
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "address"))
	}
	var acc *Account
	if err := s.ledger.View(func(st *state.State, _ ledger.Head, now uint64) error {
		acc, err = s.account(st, addr, now)
		return err
	}); err != nil {
		return err
	}
	return utils.WriteJSON(w, acc)
}

func (s *Staking) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/{address}").
		Methods(http.MethodGet).
		Name("GET /staking/{address}").
		HandlerFunc(utils.WrapHandlerFunc(s.handleGetAccount))
}
