// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"os"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/vechain/stakepool/pubkey"
	"github.com/vechain/stakepool/stakepool"
	"github.com/vechain/stakepool/stakepool/fees"
)

const envPrefix = "stakepool"

// Config is the pool definition read by the init command. Environment
// variables prefixed with STAKEPOOL_ override the file.
type Config struct {
	Pool              pubkey.Pubkey `yaml:"pool" envconfig:"pool"`
	Reserve           pubkey.Pubkey `yaml:"reserve" envconfig:"reserve"`
	Manager           pubkey.Pubkey `yaml:"manager" envconfig:"manager"`
	Staker            pubkey.Pubkey `yaml:"staker" envconfig:"staker"`
	ManagerFeeAccount pubkey.Pubkey `yaml:"manager_fee_account" envconfig:"manager_fee_account"`

	MaxValidators          uint32        `yaml:"max_validators" envconfig:"max_validators"`
	MaxValidatorsPerUpdate uint32        `yaml:"max_validators_per_update" envconfig:"max_validators_per_update"`
	MinimumReserve         uint64        `yaml:"minimum_reserve" envconfig:"minimum_reserve"`
	Fees                   fees.Schedule `yaml:"fees" envconfig:"fees"`

	Chain ChainConfig `yaml:"chain" envconfig:"chain"`
}

// ChainConfig sets up the simulated chain the pool runs against.
type ChainConfig struct {
	Epoch             uint64 `yaml:"epoch" envconfig:"epoch"`
	MinimumDelegation uint64 `yaml:"minimum_delegation" envconfig:"minimum_delegation"`
	RentExemptReserve uint64 `yaml:"rent_exempt_reserve" envconfig:"rent_exempt_reserve"`
	// lamports placed in the reserve on top of rent
	ReserveLamports uint64 `yaml:"reserve_lamports" envconfig:"reserve_lamports"`
}

func defaultConfig() Config {
	return Config{
		MaxValidators:          100,
		MaxValidatorsPerUpdate: stakepool.DefaultMaxValidatorsPerUpdate,
		Chain: ChainConfig{
			Epoch:             1,
			MinimumDelegation: 1_000_000_000,
			RentExemptReserve: 2_282_880,
		},
	}
}

// loadConfig reads path over the defaults, then applies the environment.
// An empty path only applies the environment.
func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "read config")
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, errors.Wrap(err, "parse config")
		}
	}
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, errors.Wrap(err, "config from environment")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Pool.IsZero() {
		return errors.New("config: pool address is required")
	}
	if c.Reserve.IsZero() {
		return errors.New("config: reserve address is required")
	}
	if c.ManagerFeeAccount.IsZero() {
		c.ManagerFeeAccount = c.Manager
	}
	if c.ManagerFeeAccount.IsZero() {
		return errors.New("config: manager or manager fee account is required")
	}
	if c.MaxValidators == 0 {
		return errors.New("config: max validators must be positive")
	}
	return c.Fees.Validate()
}

func (c *Config) poolConfig() stakepool.Config {
	return stakepool.Config{
		Pool:                   c.Pool,
		Reserve:                c.Reserve,
		Manager:                c.Manager,
		Staker:                 c.Staker,
		ManagerFeeAccount:      c.ManagerFeeAccount,
		MaxValidators:          c.MaxValidators,
		MaxValidatorsPerUpdate: c.MaxValidatorsPerUpdate,
		MinimumReserve:         c.MinimumReserve,
		Fees:                   c.Fees,
	}
}
