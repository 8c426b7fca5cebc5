// Copyright (c) 2025 The EMY developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package genesis builds the initial state: the reward and LP tokens, the
// staking pool and the dao, wired to each other.
package genesis

import (
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/emylabs/emy/builtin"
	"github.com/emylabs/emy/builtin/whitelist"
	"github.com/emylabs/emy/emy"
	"github.com/emylabs/emy/state"
)

// Deployments are the contract addresses created at genesis.
type Deployments struct {
	RewardToken emy.Address `json:"rewardToken"`
	LPToken     emy.Address `json:"lpToken"`
	Staking     emy.Address `json:"staking"`
	Dao         emy.Address `json:"dao"`
}

// Genesis is a resolved genesis config, ready to build.
type Genesis struct {
	id          emy.Bytes32
	timestamp   uint64
	deployments Deployments
	whitelist   *whitelist.Tree
	build       func(st *state.State) error
}

func (g *Genesis) ID() emy.Bytes32          { return g.id }
func (g *Genesis) Timestamp() uint64        { return g.timestamp }
func (g *Genesis) Deployments() Deployments { return g.deployments }

// Whitelist returns the tree of the configured whitelist, nil if the
// config carries a bare root.
func (g *Genesis) Whitelist() *whitelist.Tree { return g.whitelist }

// Build initializes the given state.
func (g *Genesis) Build(st *state.State) error {
	return g.build(st)
}

type tokenParams struct {
	Name        string
	Symbol      string
	Decimals    uint8
	Supply      *big.Int
	Owner       emy.Address
	Allocations []allocation
}

type allocation struct {
	To     emy.Address
	Amount *big.Int
}

// params is the resolved config; its rlp encoding identifies the genesis.
type params struct {
	Timestamp   uint64
	Deployer    emy.Address
	RewardToken tokenParams
	LPToken     tokenParams
	Pool        *big.Int
	CoolDown    uint64
	Freeze      uint64
	Admin       emy.Address
	Root        emy.Bytes32
	Chairman    emy.Address
	Quorum      *big.Int
	Duration    uint64
}

// NewDefault returns the development genesis.
func NewDefault() *Genesis {
	g, err := New(DefaultConfig())
	if err != nil {
		panic(err)
	}
	return g
}

// New resolves the config into a genesis.
func New(cfg *Config) (*Genesis, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	p, tree, err := resolve(cfg)
	if err != nil {
		return nil, err
	}

	data, err := rlp.EncodeToBytes(p)
	if err != nil {
		return nil, errors.Wrap(err, "encode genesis")
	}

	g := &Genesis{
		id:        emy.Blake2b(data),
		timestamp: p.Timestamp,
		deployments: Deployments{
			RewardToken: emy.CreateContractAddress(p.Deployer, 0),
			LPToken:     emy.CreateContractAddress(p.Deployer, 1),
			Staking:     emy.CreateContractAddress(p.Deployer, 2),
			Dao:         emy.CreateContractAddress(p.Deployer, 3),
		},
		whitelist: tree,
	}
	g.build = func(st *state.State) error {
		return build(st, p, g.deployments)
	}
	return g, nil
}

func resolve(cfg *Config) (*params, *whitelist.Tree, error) {
	var (
		p   = &params{Timestamp: cfg.Timestamp}
		err error
	)
	if p.Deployer, err = cfg.Resolve(cfg.Deployer); err != nil {
		return nil, nil, errors.WithMessage(err, "deployer")
	}
	if p.RewardToken, err = resolveToken(cfg, &cfg.RewardToken); err != nil {
		return nil, nil, errors.WithMessage(err, "rewardToken")
	}
	if p.LPToken, err = resolveToken(cfg, &cfg.LPToken); err != nil {
		return nil, nil, errors.WithMessage(err, "lpToken")
	}

	p.Pool = bigOf(cfg.Staking.Pool)
	p.CoolDown = cfg.Staking.CoolDown
	p.Freeze = cfg.Staking.Freeze
	if cfg.Staking.Admin != "" {
		if p.Admin, err = cfg.Resolve(cfg.Staking.Admin); err != nil {
			return nil, nil, errors.WithMessage(err, "staking admin")
		}
	}

	var tree *whitelist.Tree
	if cfg.Staking.Root != nil {
		p.Root = *cfg.Staking.Root
	} else {
		accounts := make([]emy.Address, 0, len(cfg.Staking.Whitelist))
		for _, ref := range cfg.Staking.Whitelist {
			addr, err := cfg.Resolve(ref)
			if err != nil {
				return nil, nil, errors.WithMessage(err, "staking whitelist")
			}
			accounts = append(accounts, addr)
		}
		tree = whitelist.NewAddressTree(accounts)
		p.Root = tree.Root()
	}

	if p.Chairman, err = cfg.Resolve(cfg.Dao.Chairman); err != nil {
		return nil, nil, errors.WithMessage(err, "dao chairman")
	}
	p.Quorum = bigOf(cfg.Dao.Quorum)
	p.Duration = cfg.Dao.Duration
	return p, tree, nil
}

func resolveToken(cfg *Config, t *TokenConfig) (tokenParams, error) {
	owner, err := cfg.Resolve(t.Owner)
	if err != nil {
		return tokenParams{}, err
	}
	tp := tokenParams{
		Name:     t.Name,
		Symbol:   t.Symbol,
		Decimals: t.Decimals,
		Supply:   bigOf(t.Supply),
		Owner:    owner,
	}
	for _, a := range t.Allocations {
		to, err := cfg.Resolve(a.To)
		if err != nil {
			return tokenParams{}, err
		}
		tp.Allocations = append(tp.Allocations, allocation{to, bigOf(a.Amount)})
	}
	return tp, nil
}

func deployToken(st *state.State, addr emy.Address, tp *tokenParams) error {
	builtin.Token.Deploy(st, addr)
	t := builtin.Token.Native(addr, st)
	if err := t.Initialize(tp.Owner, tp.Name, tp.Symbol, tp.Decimals, tp.Supply); err != nil {
		return err
	}
	for _, a := range tp.Allocations {
		if err := t.Transfer(tp.Owner, a.To, a.Amount); err != nil {
			return errors.WithMessagef(err, "allocate to %v", a.To)
		}
	}
	return nil
}

func build(st *state.State, p *params, d Deployments) error {
	if err := deployToken(st, d.RewardToken, &p.RewardToken); err != nil {
		return errors.WithMessage(err, "reward token")
	}
	if err := deployToken(st, d.LPToken, &p.LPToken); err != nil {
		return errors.WithMessage(err, "lp token")
	}
	// staking mints rewards
	if err := builtin.Token.Native(d.RewardToken, st).SetMinter(p.RewardToken.Owner, d.Staking); err != nil {
		return errors.WithMessage(err, "set minter")
	}

	builtin.Staking.Deploy(st, d.Staking)
	s := builtin.Staking.Native(d.Staking, st, nil)
	if err := s.Initialize(p.Deployer, d.RewardToken, p.Pool, p.CoolDown, p.Freeze, p.Root); err != nil {
		return errors.WithMessage(err, "staking")
	}
	if !p.Admin.IsZero() {
		if err := s.SetAdmin(p.Deployer, p.Admin); err != nil {
			return errors.WithMessage(err, "staking admin")
		}
	}
	if err := s.SetLPToken(p.Deployer, d.LPToken); err != nil {
		return errors.WithMessage(err, "staking lp token")
	}
	if err := s.SetDao(p.Deployer, d.Dao); err != nil {
		return errors.WithMessage(err, "staking dao")
	}

	builtin.Dao.Deploy(st, d.Dao)
	if err := builtin.Dao.Native(d.Dao, st, nil).Initialize(p.Chairman, d.Staking, p.Quorum, p.Duration); err != nil {
		return errors.WithMessage(err, "dao")
	}
	st.SetNonce(p.Deployer, 4)
	return nil
}
