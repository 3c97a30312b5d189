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
	"github.com/vechain/stakepool/stakeacct"
	"github.com/vechain/stakepool/stakeacct/sim"
	"github.com/vechain/stakepool/stakepool/fees"
	"github.com/vechain/stakepool/stakepool/preferred"
	"github.com/vechain/stakepool/stakepool/validator"
)

func TestDepositFees(t *testing.T) {
	env := newTestEnv(t, 1_000_000, func(c *Config) {
		c.Fees.Deposit = fees.Fee{Numerator: 1, Denominator: 100}
		c.Fees.ReferralPercent = 50
	})

	r, err := env.pool.Deposit(ctx, alice, 10_000, &bob)
	require.NoError(t, err)
	assert.Equal(t, Receipt{Lamports: 10_000, Shares: 9_900, Fee: 50, Referral: 50}, *r)
	assert.Equal(t, uint64(9_900), env.shares(t, alice))
	assert.Equal(t, uint64(50), env.shares(t, bob))
	assert.Equal(t, uint64(1_000_050), env.shares(t, managerFee))
	assert.Equal(t, uint64(990_000), env.lamports(t, alice))
	assert.Equal(t, uint64(1_010_000), env.reserveBalance(t))

	h := env.pool.Header()
	assert.Equal(t, uint64(1_010_000), h.TotalValue)
	assert.Equal(t, uint64(1_010_000), h.ShareSupply)

	// without a referrer the manager keeps the whole fee
	r, err = env.pool.Deposit(ctx, bob, 1_000, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), r.Fee)
	assert.Zero(t, r.Referral)

	_, err = env.pool.Deposit(ctx, alice, 1, nil)
	assert.ErrorIs(t, err, ErrDepositTooSmall)
	_, err = env.pool.Deposit(ctx, alice, 0, nil)
	assert.ErrorIs(t, err, ErrZeroAmount)

	before := env.pool.Header()
	_, err = env.pool.Deposit(ctx, alice, 2_000_000, nil)
	assert.ErrorIs(t, err, sim.ErrInsufficientFunds)
	assert.Equal(t, before, env.pool.Header())
}

func TestWithdrawFromReserve(t *testing.T) {
	env := newTestEnv(t, 1_000_000, func(c *Config) {
		c.Fees.Withdrawal = fees.Fee{Numerator: 1, Denominator: 100}
	})
	_, err := env.pool.Deposit(ctx, alice, 10_000, nil)
	require.NoError(t, err)

	r, err := env.pool.Withdraw(ctx, alice, 1_000, nil)
	require.NoError(t, err)
	assert.Equal(t, Receipt{Lamports: 990, Shares: 990, Fee: 10}, *r)
	assert.Equal(t, uint64(9_000), env.shares(t, alice))
	assert.Equal(t, uint64(1_000_010), env.shares(t, managerFee))
	assert.Equal(t, uint64(990_990), env.lamports(t, alice))

	h := env.pool.Header()
	assert.Equal(t, uint64(1_009_010), h.TotalValue)
	assert.Equal(t, uint64(1_009_010), h.ShareSupply)

	_, err = env.pool.Withdraw(ctx, alice, 20_000, nil)
	assert.ErrorIs(t, err, ErrInsufficientShares)
	_, err = env.pool.Withdraw(ctx, alice, 0, nil)
	assert.ErrorIs(t, err, ErrZeroAmount)

	// the manager pays no fee on its own shares
	r, err = env.pool.Withdraw(ctx, managerFee, 1_000, nil)
	require.NoError(t, err)
	assert.Zero(t, r.Fee)
	assert.Equal(t, uint64(1_000), r.Lamports)
}

func TestReserveOverdraw(t *testing.T) {
	env := newTestEnv(t, 1_000_000, func(c *Config) { c.MinimumReserve = 500_000 })
	NewSequence(env).AddValidator(vote1).Run(t)

	assert.ErrorIs(t, env.pool.IncreaseStake(ctx, vote1, 600_000), ErrReserveTooLow)

	_, err := env.pool.Withdraw(ctx, managerFee, 600_000, nil)
	assert.ErrorIs(t, err, ErrReserveTooLow)
	assert.Equal(t, uint64(1_000_000), env.shares(t, managerFee))

	r, err := env.pool.Withdraw(ctx, managerFee, 100_000, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(100_000), r.Lamports)
	assert.Equal(t, uint64(100_000), env.lamports(t, managerFee))

	h := env.pool.Header()
	assert.Equal(t, uint64(900_000), h.TotalValue)
	assert.Equal(t, uint64(900_000), h.ShareSupply)
	assert.Equal(t, uint64(1_000_000-minStake-100_000), env.reserveBalance(t))
}

func TestWithdrawStake(t *testing.T) {
	env := newTestEnv(t, 1_000_000)
	NewSequence(env).
		AddValidator(vote1).
		AddValidator(vote2).
		IncreaseStake(vote1, 5_000).
		IncreaseStake(vote2, 5_000).
		NextEpoch().
		Run(t)
	require.NoError(t, env.pool.SetPreferred(preferred.KindWithdraw, &vote1))

	_, err := env.pool.Withdraw(ctx, managerFee, 1_000, &vote2)
	assert.ErrorIs(t, err, ErrIncorrectWithdrawValidator)

	r, err := env.pool.Withdraw(ctx, managerFee, 1_000, &vote1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000), r.Lamports)
	require.NotNil(t, r.Account)
	assert.Equal(t, WithdrawalAddress(poolKey, managerFee, 1), *r.Account)

	acc, err := env.chain.Get(ctx, *r.Account)
	require.NoError(t, err)
	require.NotNil(t, acc)
	assert.Equal(t, stakeacct.Authorized{Staker: managerFee, Withdrawer: managerFee}, acc.Authorized)
	assert.Equal(t, vote1, acc.Delegation.Voter)
	assert.Equal(t, uint64(1_000), acc.Lamports)
	AssertValidator(env.pool, vote1).Active(4_110).Assert(t)
	assert.Equal(t, uint64(999_000), env.pool.Header().TotalValue)

	_, err = env.pool.Withdraw(ctx, managerFee, 4_050, &vote1)
	assert.ErrorIs(t, err, ErrStakeBelowMinimum)
	_, err = env.pool.Withdraw(ctx, managerFee, 50, &vote1)
	assert.ErrorIs(t, err, ErrWithdrawalTooSmall)
	_, err = env.pool.Withdraw(ctx, managerFee, 1_000, &vote3)
	assert.ErrorIs(t, err, ErrValidatorNotFound)

	NewSequence(env).NextEpoch().Run(t)
}

func TestFullStakeWithdrawal(t *testing.T) {
	env := newTestEnv(t, 1_000_000)
	NewSequence(env).
		AddValidator(vote1).
		AddValidator(vote2).
		IncreaseStake(vote2, 5_000).
		NextEpoch().
		IncreaseStake(vote2, 1_000).
		Run(t)

	// the transient could not be merged anywhere once the account is gone
	_, err := env.pool.Withdraw(ctx, managerFee, 5_110, &vote2)
	assert.ErrorIs(t, err, ErrTransientInProgress)

	NewSequence(env).NextEpoch().Run(t)
	AssertValidator(env.pool, vote2).Active(6_110).Transient(0).Assert(t)

	r, err := env.pool.Withdraw(ctx, managerFee, 6_110, &vote2)
	require.NoError(t, err)
	assert.Equal(t, uint64(6_110), r.Lamports)
	AssertValidator(env.pool, vote2).Status(validator.StatusReadyForRemoval).Active(0).Assert(t)
	assert.Zero(t, env.lamports(t, env.stakeAddress(t, vote2)))

	NewSequence(env).NextEpoch().Run(t)
	entries := env.pool.Validators()
	require.Len(t, entries, 1)
	assert.Equal(t, vote1, entries[0].VoteID)
	assert.Equal(t, uint64(1_000_000-6_110), env.pool.Header().TotalValue)
}

func TestDepositSlippage(t *testing.T) {
	env := newTestEnv(t, 1_000_000, func(c *Config) {
		c.Fees.Deposit = fees.Fee{Numerator: 1, Denominator: 100}
		c.Fees.Withdrawal = fees.Fee{Numerator: 1, Denominator: 100}
	})

	_, err := env.pool.DepositWithSlippage(ctx, alice, 10_000, nil, 9_901)
	assert.ErrorIs(t, err, ErrExceededSlippage)
	assert.Equal(t, uint64(1_000_000), env.lamports(t, alice))
	assert.Zero(t, env.shares(t, alice))

	r, err := env.pool.DepositWithSlippage(ctx, alice, 10_000, nil, 9_900)
	require.NoError(t, err)
	assert.Equal(t, uint64(9_900), r.Shares)

	_, err = env.pool.WithdrawWithSlippage(ctx, alice, 1_000, nil, 991)
	assert.ErrorIs(t, err, ErrExceededSlippage)
	assert.Equal(t, uint64(9_900), env.shares(t, alice))

	r, err = env.pool.WithdrawWithSlippage(ctx, alice, 1_000, nil, 990)
	require.NoError(t, err)
	assert.Equal(t, uint64(990), r.Lamports)
	assert.Equal(t, uint64(8_900), env.shares(t, alice))
}

func TestDepositResetsStalePreference(t *testing.T) {
	env := newTestEnv(t, 1_000_000)
	NewSequence(env).AddValidator(vote1).IncreaseStake(vote1, 5_000).NextEpoch().Run(t)
	require.NoError(t, env.pool.SetPreferred(preferred.KindDeposit, &vote1))
	require.NoError(t, env.pool.DecreaseStake(ctx, vote1, 1_000, validator.TargetReserve))

	_, err := env.pool.Deposit(ctx, alice, 1_000, nil)
	require.NoError(t, err)
	assert.Nil(t, env.pool.Header().Preferred.Deposit)
	assert.Nil(t, env.store.state.Header.Preferred.Deposit)
}

func TestDepositStake(t *testing.T) {
	env := newTestEnv(t, 1_000_000, func(c *Config) {
		c.Fees.StakeDeposit = fees.Fee{Numerator: 1, Denominator: 100}
	})
	NewSequence(env).AddValidator(vote1).AddValidator(vote2).NextEpoch().Run(t)

	aliceStake := pubkey.BytesToPubkey([]byte("alice-stake"))
	bobStake := pubkey.BytesToPubkey([]byte("bob-stake"))
	require.NoError(t, env.chain.CreateDelegated(ctx, alice, aliceStake, 10_000, vote1, stakeacct.Authorized{Staker: alice, Withdrawer: alice}))
	require.NoError(t, env.chain.CreateDelegated(ctx, bob, bobStake, 10_000, vote2, stakeacct.Authorized{Staker: bob, Withdrawer: bob}))

	// still activating
	_, err := env.pool.DepositStake(ctx, alice, aliceStake, nil, 0)
	assert.ErrorIs(t, err, ErrInvalidStakeAccount)
	_, err = env.pool.DepositStake(ctx, alice, pubkey.BytesToPubkey([]byte("nothing")), nil, 0)
	assert.ErrorIs(t, err, ErrInvalidStakeAccount)

	NewSequence(env).NextEpoch().Run(t)
	require.NoError(t, env.pool.SetPreferred(preferred.KindDeposit, &vote1))

	_, err = env.pool.DepositStake(ctx, bob, bobStake, nil, 0)
	assert.ErrorIs(t, err, ErrIncorrectDepositValidator)
	_, err = env.pool.DepositStake(ctx, alice, aliceStake, nil, 9_901)
	assert.ErrorIs(t, err, ErrExceededSlippage)
	assert.Equal(t, uint64(10_000), env.lamports(t, aliceStake))

	r, err := env.pool.DepositStake(ctx, alice, aliceStake, nil, 9_900)
	require.NoError(t, err)
	assert.Equal(t, Receipt{Lamports: 10_000, Shares: 9_900, Fee: 100}, *r)
	assert.Zero(t, env.lamports(t, aliceStake))
	assert.Equal(t, uint64(9_900), env.shares(t, alice))
	AssertValidator(env.pool, vote1).Status(validator.StatusActive).Active(minStake + 10_000).Assert(t)
	assert.Equal(t, uint64(1_010_000), env.pool.Header().TotalValue)

	// once the preferred validator leaves active, any validator is accepted
	// and the stale preference is dropped with the deposit
	require.NoError(t, env.pool.DecreaseStake(ctx, vote1, 5_000, validator.TargetReserve))
	_, err = env.pool.DepositStake(ctx, bob, bobStake, nil, 0)
	require.NoError(t, err)
	assert.Nil(t, env.pool.Header().Preferred.Deposit)
	assert.Nil(t, env.store.state.Header.Preferred.Deposit)
	AssertValidator(env.pool, vote2).Active(minStake + 10_000).Assert(t)

	NewSequence(env).NextEpoch().Run(t)
	assert.Equal(t, uint64(1_020_000), env.pool.Header().TotalValue)
}

func TestWithdrawFromTransient(t *testing.T) {
	env := newTestEnv(t, 1_000_000)
	NewSequence(env).
		AddValidator(vote1).
		AddValidator(vote2).
		IncreaseStake(vote1, 5_000).
		IncreaseStake(vote2, 2_000).
		NextEpoch().
		DecreaseStake(vote1, 5_000, validator.TargetReserve).
		Run(t)

	// vote2 still has active stake to give
	_, err := env.pool.WithdrawTransient(ctx, managerFee, 1_000, vote1, 0)
	assert.ErrorIs(t, err, ErrActiveStakeAvailable)

	_, err = env.pool.Withdraw(ctx, managerFee, 2_000, &vote2)
	require.NoError(t, err)
	AssertValidator(env.pool, vote2).Active(minStake).Assert(t)

	_, err = env.pool.WithdrawTransient(ctx, managerFee, 4_950, vote1, 0)
	assert.ErrorIs(t, err, ErrStakeBelowMinimum)
	_, err = env.pool.WithdrawTransient(ctx, managerFee, 50, vote1, 0)
	assert.ErrorIs(t, err, ErrWithdrawalTooSmall)
	_, err = env.pool.WithdrawTransient(ctx, managerFee, 2_000, vote1, 2_001)
	assert.ErrorIs(t, err, ErrExceededSlippage)

	r, err := env.pool.WithdrawTransient(ctx, managerFee, 2_000, vote1, 2_000)
	require.NoError(t, err)
	require.NotNil(t, r.Account)
	assert.Equal(t, WithdrawalAddress(poolKey, managerFee, 2), *r.Account)
	acc, err := env.chain.Get(ctx, *r.Account)
	require.NoError(t, err)
	require.NotNil(t, acc)
	assert.Equal(t, uint64(2_000), acc.Lamports)
	assert.Equal(t, vote1, acc.Delegation.Voter)
	assert.Equal(t, stakeacct.Authorized{Staker: managerFee, Withdrawer: managerFee}, acc.Authorized)
	AssertValidator(env.pool, vote1).Status(validator.StatusDeactivatingTransient).Active(minStake).Transient(3_000).Assert(t)

	// emptying the transient ends the decrease
	_, err = env.pool.WithdrawTransient(ctx, managerFee, 3_000, vote1, 0)
	require.NoError(t, err)
	AssertValidator(env.pool, vote1).Status(validator.StatusActive).Active(minStake).Transient(0).Assert(t)
	assert.Zero(t, env.lamports(t, env.transientAddress(t, vote1)))
	assert.Equal(t, uint64(993_000), env.pool.Header().TotalValue)

	NewSequence(env).NextEpoch().Run(t)
	assert.Equal(t, uint64(993_000), env.pool.Header().TotalValue)
}
