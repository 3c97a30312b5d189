// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stakepool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/stakepool/pubkey"
	"github.com/vechain/stakepool/sharetoken"
	"github.com/vechain/stakepool/stakeacct"
	"github.com/vechain/stakepool/stakeacct/sim"
	"github.com/vechain/stakepool/stakepool/fees"
	"github.com/vechain/stakepool/stakepool/preferred"
	"github.com/vechain/stakepool/stakepool/reserve"
	"github.com/vechain/stakepool/stakepool/reverts"
	"github.com/vechain/stakepool/stakepool/validator"
)

func TestInitialize(t *testing.T) {
	env := newTestEnv(t, 1_000_000, func(c *Config) { c.MinimumReserve = 1_000 })

	h := env.pool.Header()
	assert.Equal(t, pubkey.Authority(poolKey), h.Authority)
	assert.Equal(t, uint64(1_000_000), h.TotalValue)
	assert.Equal(t, uint64(1_000_000), h.ShareSupply)
	assert.Equal(t, uint64(1), h.LastUpdateEpoch)
	assert.Equal(t, uint32(2), h.MaxValidatorsPerUpdate)
	assert.Equal(t, uint64(1_000_000), env.shares(t, managerFee))

	_, err := Initialize(ctx, Config{Pool: poolKey, Reserve: reserveAddr, MaxValidators: 5}, env.deps())
	assert.ErrorIs(t, err, ErrAlreadyInitialized)

	reopened, err := Open(env.deps())
	require.NoError(t, err)
	assert.Equal(t, h, reopened.Header())

	_, err = Open(Deps{Clock: env.chain, Stake: env.chain, Shares: env.ledger, Store: &memStore{}})
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestInitializeRejects(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(chain *sim.Chain, ledger *sharetoken.Ledger)
		wantErr error
	}{
		{
			name: "reserve below minimum",
			setup: func(chain *sim.Chain, _ *sharetoken.Ledger) {
				_ = chain.CreateStakeAccount(reserveAddr, 500+rent, poolAuth)
			},
			wantErr: reserve.ErrMinimumTooLarge,
		},
		{
			name: "reserve not controlled",
			setup: func(chain *sim.Chain, _ *sharetoken.Ledger) {
				_ = chain.CreateStakeAccount(reserveAddr, 5_000, stakeacct.Authorized{Staker: alice, Withdrawer: alice})
			},
			wantErr: ErrInvalidReserve,
		},
		{
			name:    "reserve missing",
			setup:   func(*sim.Chain, *sharetoken.Ledger) {},
			wantErr: ErrInvalidReserve,
		},
		{
			name: "shares already issued",
			setup: func(chain *sim.Chain, ledger *sharetoken.Ledger) {
				_ = chain.CreateStakeAccount(reserveAddr, 5_000, poolAuth)
				_ = ledger.Mint(ctx, alice, 1)
			},
			wantErr: ErrInvalidShareSupply,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain := sim.New(stakeacct.Params{MinimumDelegation: minDelegation, RentExemptReserve: rent}, 1)
			ledger := sharetoken.NewLedger()
			tt.setup(chain, ledger)
			store := &memStore{}

			_, err := Initialize(ctx, Config{
				Pool:           poolKey,
				Reserve:        reserveAddr,
				MaxValidators:  5,
				MinimumReserve: 1_000,
			}, Deps{Clock: chain, Stake: chain, Shares: ledger, Store: store})
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, store.state)
		})
	}
}

func TestAddValidator(t *testing.T) {
	env := newTestEnv(t, 1_000_000, func(c *Config) { c.MaxValidators = 2 })

	require.NoError(t, env.pool.AddValidator(ctx, vote1, 0))
	AssertValidator(env.pool, vote1).Status(validator.StatusActive).Active(minStake).Transient(0).Assert(t)

	acc, err := env.chain.Get(ctx, env.stakeAddress(t, vote1))
	require.NoError(t, err)
	require.NotNil(t, acc)
	assert.Equal(t, stakeacct.StateDelegated, acc.State)
	assert.Equal(t, vote1, acc.Delegation.Voter)
	assert.Equal(t, poolAuth, acc.Authorized)
	assert.Equal(t, uint64(minStake), acc.Lamports)
	assert.Equal(t, uint64(1_000_000-minStake), env.reserveBalance(t))

	assert.ErrorIs(t, env.pool.AddValidator(ctx, vote1, 0), ErrValidatorAlreadyAdded)

	require.NoError(t, env.pool.AddValidator(ctx, vote2, 7))
	assert.Equal(t, pubkey.StakeAddress(poolKey, vote2, 7), env.stakeAddress(t, vote2))

	err = env.pool.AddValidator(ctx, vote3, 0)
	assert.ErrorIs(t, err, ErrRegistryFull)
	assert.Equal(t, reverts.KindState, reverts.KindOf(err))

	assert.Len(t, env.pool.Validators(), 2)
	assert.Equal(t, uint64(1_000_000), env.pool.Header().TotalValue)
}

func TestAddValidatorKeepsMinimumReserve(t *testing.T) {
	env := newTestEnv(t, 1_000, func(c *Config) { c.MinimumReserve = 950 })

	err := env.pool.AddValidator(ctx, vote1, 0)
	assert.ErrorIs(t, err, ErrReserveTooLow)
	assert.Equal(t, reverts.KindFunds, reverts.KindOf(err))
	assert.Empty(t, env.pool.Validators())
	assert.Equal(t, uint64(1_000), env.reserveBalance(t))
}

func TestOperationsRequireFreshPool(t *testing.T) {
	env := newTestEnv(t, 1_000_000)
	require.NoError(t, env.pool.AddValidator(ctx, vote1, 0))
	env.chain.AdvanceEpoch(1)

	ops := map[string]func() error{
		"add":      func() error { return env.pool.AddValidator(ctx, vote2, 0) },
		"remove":   func() error { return env.pool.RemoveValidator(ctx, vote1) },
		"increase": func() error { return env.pool.IncreaseStake(ctx, vote1, 1_000) },
		"decrease": func() error { return env.pool.DecreaseStake(ctx, vote1, minStake, validator.TargetReserve) },
		"deposit": func() error {
			_, err := env.pool.Deposit(ctx, alice, 100, nil)
			return err
		},
		"withdraw": func() error {
			_, err := env.pool.Withdraw(ctx, managerFee, 100, nil)
			return err
		},
	}
	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			err := op()
			assert.ErrorIs(t, err, ErrPoolOutOfDate)
			assert.Equal(t, reverts.KindStaleness, reverts.KindOf(err))
		})
	}

	env.updateAll(t)
	assert.NoError(t, env.pool.AddValidator(ctx, vote2, 0))
}

func TestIncreaseStake(t *testing.T) {
	env := newTestEnv(t, 1_000_000)
	require.NoError(t, env.pool.AddValidator(ctx, vote1, 0))

	assert.ErrorIs(t, env.pool.IncreaseStake(ctx, vote1, minStake-1), ErrStakeTooSmall)
	assert.ErrorIs(t, env.pool.IncreaseStake(ctx, vote2, 1_000), ErrValidatorNotFound)

	require.NoError(t, env.pool.IncreaseStake(ctx, vote1, 1_000))
	AssertValidator(env.pool, vote1).Status(validator.StatusActive).Active(minStake).Transient(1_000).Assert(t)
	assert.Equal(t, pubkey.TransientAddress(poolKey, vote1, 1), env.transientAddress(t, vote1))
	assert.Equal(t, uint64(1_000), env.lamports(t, env.transientAddress(t, vote1)))

	// one transient at a time
	assert.ErrorIs(t, env.pool.IncreaseStake(ctx, vote1, 1_000), ErrTransientInProgress)
	assert.ErrorIs(t, env.pool.DecreaseStake(ctx, vote1, minStake, validator.TargetReserve), ErrTransientInProgress)
	// the activating transient would be orphaned
	assert.ErrorIs(t, env.pool.RemoveValidator(ctx, vote1), ErrTransientInProgress)

	NewSequence(env).NextEpoch().Run(t)
	AssertValidator(env.pool, vote1).Status(validator.StatusActive).Active(minStake + 1_000).Transient(0).Assert(t)
	assert.Equal(t, uint64(1_000_000), env.pool.Header().TotalValue)
}

func TestDecreaseStake(t *testing.T) {
	env := newTestEnv(t, 1_000_000)
	NewSequence(env).
		AddValidator(vote1).
		IncreaseStake(vote1, 1_000).
		NextEpoch().
		Run(t)

	active := uint64(minStake + 1_000)
	assert.ErrorIs(t, env.pool.DecreaseStake(ctx, vote1, active, validator.TargetActive), ErrAmountTooLarge)
	assert.ErrorIs(t, env.pool.DecreaseStake(ctx, vote1, active+1, validator.TargetReserve), ErrAmountTooLarge)
	assert.ErrorIs(t, env.pool.DecreaseStake(ctx, vote1, active-60, validator.TargetReserve), ErrStakeBelowMinimum)
	assert.ErrorIs(t, env.pool.DecreaseStake(ctx, vote1, rent-1, validator.TargetReserve), ErrStakeTooSmall)

	require.NoError(t, env.pool.DecreaseStake(ctx, vote1, 500, validator.TargetActive))
	AssertValidator(env.pool, vote1).
		Status(validator.StatusDeactivatingTransient).
		Active(active - 500).
		Transient(500).
		Assert(t)
	assert.ErrorIs(t, env.pool.DecreaseStake(ctx, vote1, 100, validator.TargetReserve), ErrWrongStatus)
	// merging back into the active account needs it to stay
	assert.ErrorIs(t, env.pool.RemoveValidator(ctx, vote1), ErrTransientInProgress)

	NewSequence(env).NextEpoch().Run(t)
	AssertValidator(env.pool, vote1).Status(validator.StatusActive).Active(active).Transient(0).Assert(t)
	assert.Equal(t, uint64(1_000_000-active), env.reserveBalance(t))
}

func TestDecreaseToReserve(t *testing.T) {
	env := newTestEnv(t, 1_000_000)
	NewSequence(env).AddValidator(vote1).NextEpoch().Run(t)

	require.NoError(t, env.pool.DecreaseStake(ctx, vote1, minStake, validator.TargetReserve))
	AssertValidator(env.pool, vote1).
		Status(validator.StatusDeactivatingTransient).
		Active(0).
		Transient(minStake).
		Assert(t)
	assert.Zero(t, env.lamports(t, env.stakeAddress(t, vote1)))

	env.chain.AdvanceEpoch(1)
	_, err := env.pool.UpdateValidatorListBalance(ctx, 0, 0, true)
	require.NoError(t, err)
	AssertValidator(env.pool, vote1).Status(validator.StatusReadyForRemoval).Active(0).Transient(0).Assert(t)

	totals, err := env.pool.UpdatePoolBalance(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000), totals.TotalValue)
	assert.Equal(t, uint64(1_000_000), env.reserveBalance(t))

	removed, err := env.pool.CleanupRemovedValidators(ctx)
	require.NoError(t, err)
	require.Len(t, removed, 1)
	assert.Equal(t, vote1, removed[0].VoteID)
	assert.Empty(t, env.pool.Validators())
}

func TestRemoveValidator(t *testing.T) {
	env := newTestEnv(t, 1_000_000)
	NewSequence(env).
		AddValidator(vote1).
		AddValidator(vote2).
		IncreaseStake(vote2, 2_000).
		NextEpoch().
		Run(t)

	require.NoError(t, env.pool.RemoveValidator(ctx, vote1))
	AssertValidator(env.pool, vote1).Status(validator.StatusDeactivatingValidator).Active(minStake).Assert(t)
	assert.ErrorIs(t, env.pool.RemoveValidator(ctx, vote1), ErrWrongStatus)
	assert.ErrorIs(t, env.pool.RemoveValidator(ctx, vote3), ErrValidatorNotFound)

	// removing with a decrease to the reserve in flight deactivates both
	require.NoError(t, env.pool.DecreaseStake(ctx, vote2, 1_000, validator.TargetReserve))
	require.NoError(t, env.pool.RemoveValidator(ctx, vote2))
	AssertValidator(env.pool, vote2).
		Status(validator.StatusDeactivatingAll).
		Active(minStake + 1_000).
		Transient(1_000).
		Assert(t)

	env.chain.AdvanceEpoch(1)
	for start := 0; start < 2; start++ {
		_, err := env.pool.UpdateValidatorListBalance(ctx, start, 1, true)
		require.NoError(t, err)
	}
	AssertValidator(env.pool, vote1).Status(validator.StatusReadyForRemoval).Active(0).Assert(t)
	AssertValidator(env.pool, vote2).Status(validator.StatusReadyForRemoval).Active(0).Transient(0).Assert(t)

	totals := env.updateAll(t)
	assert.Equal(t, uint64(1_000_000), totals.TotalValue)
	assert.Equal(t, uint64(1_000_000), env.reserveBalance(t))
	assert.Empty(t, env.pool.Validators())
}

func TestPreferredValidator(t *testing.T) {
	env := newTestEnv(t, 1_000_000)
	NewSequence(env).AddValidator(vote1).AddValidator(vote2).Run(t)

	assert.ErrorIs(t, env.pool.SetPreferred(preferred.KindDeposit, &vote3), ErrValidatorNotFound)
	assert.Nil(t, env.pool.Header().Preferred.Deposit)

	require.NoError(t, env.pool.SetPreferred(preferred.KindDeposit, &vote1))
	require.NoError(t, env.pool.SetPreferred(preferred.KindWithdraw, &vote2))
	pref, err := env.pool.Preferred(preferred.KindDeposit)
	require.NoError(t, err)
	assert.Equal(t, &vote1, pref)

	// removal resets the preference right away
	require.NoError(t, env.pool.RemoveValidator(ctx, vote1))
	assert.Nil(t, env.pool.Header().Preferred.Deposit)
	assert.ErrorIs(t, env.pool.SetPreferred(preferred.KindDeposit, &vote1), ErrWrongStatus)

	// a status change invalidates it when read, and the reset is saved
	require.NoError(t, env.pool.DecreaseStake(ctx, vote2, minStake, validator.TargetReserve))
	assert.Equal(t, &vote2, env.pool.Header().Preferred.Withdraw)
	pref, err = env.pool.Preferred(preferred.KindWithdraw)
	require.NoError(t, err)
	assert.Nil(t, pref)
	assert.Nil(t, env.pool.Header().Preferred.Withdraw)
	assert.Nil(t, env.store.state.Header.Preferred.Withdraw)
}

func TestSetFee(t *testing.T) {
	env := newTestEnv(t, 1_000_000)

	require.NoError(t, env.pool.SetFee(fees.KindEpoch, fees.Fee{Numerator: 1, Denominator: 10}))
	h := env.pool.Header()
	assert.True(t, h.Fees.Epoch.IsZero())
	require.NotNil(t, h.NextEpochFee)
	assert.Equal(t, fees.Fee{Numerator: 1, Denominator: 10}, *h.NextEpochFee)

	assert.ErrorIs(t, env.pool.SetFee(fees.KindDeposit, fees.Fee{Numerator: 2, Denominator: 1}), ErrInvalidFee)
	assert.ErrorIs(t, env.pool.SetFee(fees.KindReferral, fees.Fee{Numerator: 1, Denominator: 3}), ErrInvalidFee)

	require.NoError(t, env.pool.SetFee(fees.KindReferral, fees.Fee{Numerator: 30, Denominator: 100}))
	require.NoError(t, env.pool.SetFee(fees.KindStakeWithdrawal, fees.Fee{Numerator: 1, Denominator: 200}))
	require.NoError(t, env.pool.SetFee(fees.KindStakeDeposit, fees.Fee{Numerator: 1, Denominator: 50}))
	h = env.pool.Header()
	assert.Equal(t, fees.Fee{Numerator: 1, Denominator: 50}, h.Fees.StakeDeposit)
	assert.Equal(t, uint8(30), h.Fees.ReferralPercent)
	assert.Equal(t, fees.Fee{Numerator: 1, Denominator: 200}, h.Fees.StakeWithdrawal)
}
