// Copyright (c) 2025 The EMY developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package genesis

import (
	"bytes"
	_ "embed"
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/emylabs/emy/emy"
)

//go:embed default.yaml
var defaultConfig []byte

// Config is the yaml description of a genesis. Account fields accept either
// a name declared under accounts or a hex address.
type Config struct {
	Timestamp   uint64                 `yaml:"timestamp"`
	Deployer    string                 `yaml:"deployer"`
	Accounts    map[string]emy.Address `yaml:"accounts"`
	RewardToken TokenConfig            `yaml:"rewardToken"`
	LPToken     TokenConfig            `yaml:"lpToken"`
	Staking     StakingConfig          `yaml:"staking"`
	Dao         DaoConfig              `yaml:"dao"`
}

type TokenConfig struct {
	Name        string                `yaml:"name"`
	Symbol      string                `yaml:"symbol"`
	Decimals    uint8                 `yaml:"decimals"`
	Supply      *math.HexOrDecimal256 `yaml:"supply"`
	Owner       string                `yaml:"owner"`
	Allocations []Allocation          `yaml:"allocations"`
}

// Allocation is a transfer from the token owner made at genesis.
type Allocation struct {
	To     string                `yaml:"to"`
	Amount *math.HexOrDecimal256 `yaml:"amount"`
}

type StakingConfig struct {
	Pool     *math.HexOrDecimal256 `yaml:"pool"`
	CoolDown uint64                `yaml:"coolDown"`
	Freeze   uint64                `yaml:"freeze"`
	Admin    string                `yaml:"admin"`
	// exactly one of Whitelist and Root is set
	Whitelist []string     `yaml:"whitelist"`
	Root      *emy.Bytes32 `yaml:"root"`
}

type DaoConfig struct {
	Chairman string                `yaml:"chairman"`
	Quorum   *math.HexOrDecimal256 `yaml:"quorum"`
	Duration uint64                `yaml:"duration"`
}

// LoadConfig reads a yaml genesis config from file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read genesis file")
	}
	return ParseConfig(data)
}

// ParseConfig decodes a yaml genesis config. Unknown fields are rejected.
func ParseConfig(data []byte) (*Config, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, errors.Wrap(err, "decode genesis config")
	}
	return &cfg, nil
}

// DefaultConfig returns the compiled in development genesis.
func DefaultConfig() *Config {
	cfg, err := ParseConfig(defaultConfig)
	if err != nil {
		panic(err)
	}
	return cfg
}

// Resolve maps an account name or hex address to an address.
func (c *Config) Resolve(ref string) (emy.Address, error) {
	if addr, ok := c.Accounts[ref]; ok {
		return addr, nil
	}
	addr, err := emy.ParseAddress(ref)
	if err != nil {
		return emy.Address{}, fmt.Errorf("unknown account %q", ref)
	}
	return addr, nil
}

func (c *Config) validate() error {
	if err := c.RewardToken.validate("rewardToken"); err != nil {
		return err
	}
	if err := c.LPToken.validate("lpToken"); err != nil {
		return err
	}
	if c.Staking.CoolDown == 0 {
		return errors.New("staking: coolDown must be nonzero")
	}
	if c.Staking.Pool == nil {
		return errors.New("staking: pool must be set")
	}
	if (len(c.Staking.Whitelist) == 0) == (c.Staking.Root == nil) {
		return errors.New("staking: exactly one of whitelist and root must be set")
	}
	if c.Dao.Duration == 0 {
		return errors.New("dao: duration must be nonzero")
	}
	if c.Dao.Quorum == nil || bigOf(c.Dao.Quorum).Sign() < 0 {
		return errors.New("dao: quorum must be a non-negative integer")
	}
	return nil
}

func (t *TokenConfig) validate(name string) error {
	if t.Name == "" || t.Symbol == "" {
		return fmt.Errorf("%s: name and symbol must be set", name)
	}
	if t.Supply == nil || bigOf(t.Supply).Sign() < 1 {
		return fmt.Errorf("%s: supply must be a positive integer", name)
	}
	for _, a := range t.Allocations {
		if a.Amount == nil || bigOf(a.Amount).Sign() < 1 {
			return fmt.Errorf("%s: allocation to %s must be a positive integer", name, a.To)
		}
	}
	return nil
}

func bigOf(v *math.HexOrDecimal256) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set((*big.Int)(v))
}
