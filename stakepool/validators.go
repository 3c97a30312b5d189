// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stakepool

import (
	"context"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/pkg/errors"

	"github.com/vechain/stakepool/pubkey"
	"github.com/vechain/stakepool/stakeacct"
	"github.com/vechain/stakepool/stakepool/fees"
	"github.com/vechain/stakepool/stakepool/preferred"
	"github.com/vechain/stakepool/stakepool/validator"
)

func (p *Pool) authorized() stakeacct.Authorized {
	a := p.state.Header.Authority
	return stakeacct.Authorized{Staker: a, Withdrawer: a}
}

// minimumStake is the smallest balance a delegated stake account may hold.
func minimumStake(params stakeacct.Params) (uint64, error) {
	v, overflow := math.SafeAdd(params.MinimumDelegation, params.RentExemptReserve)
	if overflow {
		return 0, ErrOverflow
	}
	return v, nil
}

// AddValidator adds a validator, funding its stake account from the reserve
// with the minimum delegation.
func (p *Pool) AddValidator(ctx context.Context, vote pubkey.Pubkey, seed uint32) error {
	logger.Debug("adding validator", "vote", vote, "seed", seed)

	err := p.run("add_validator", func(next *State) error {
		epoch, err := p.requireFresh(ctx, &next.Header)
		if err != nil {
			return err
		}
		params, err := p.deps.Stake.Params(ctx)
		if err != nil {
			return errors.Wrap(err, "stake params")
		}
		amount, err := minimumStake(params)
		if err != nil {
			return err
		}
		entry := validator.New(vote, seed, epoch, amount)
		if err := next.Validators.Add(entry); err != nil {
			return err
		}
		balance, err := p.reserve.Balance(ctx, p.deps.Stake)
		if err != nil {
			return err
		}
		if err := p.reserve.CheckWithdraw(balance, amount); err != nil {
			return err
		}
		stakeAddr, _ := p.engine.Addresses(entry)
		if err := p.deps.Stake.CreateDelegated(ctx, next.Header.Reserve, stakeAddr, amount, vote, p.authorized()); err != nil {
			return errors.Wrap(err, "create validator stake")
		}
		return nil
	})
	if err != nil {
		logger.Info("add validator failed", "vote", vote, "error", err)
		return err
	}
	logger.Info("added validator", "vote", vote)
	return nil
}

// RemoveValidator starts removing a validator. Its stake is deactivated and
// drains into the reserve over the following epoch updates.
func (p *Pool) RemoveValidator(ctx context.Context, vote pubkey.Pubkey) error {
	logger.Debug("removing validator", "vote", vote)

	err := p.run("remove_validator", func(next *State) error {
		if _, err := p.requireFresh(ctx, &next.Header); err != nil {
			return err
		}
		entry := next.lookup(vote)
		if entry == nil {
			return errors.WithMessage(ErrValidatorNotFound, vote.String())
		}
		deactivate, err := entry.Remove()
		if err != nil {
			return errors.WithMessagef(err, "%v is %v", vote, entry.Status)
		}
		next.Header.Preferred.Forget(vote)
		if deactivate {
			stakeAddr, _ := p.engine.Addresses(entry)
			if err := p.deps.Stake.Deactivate(ctx, stakeAddr); err != nil {
				return errors.Wrap(err, "deactivate validator stake")
			}
		}
		return nil
	})
	if err != nil {
		logger.Info("remove validator failed", "vote", vote, "error", err)
		return err
	}
	logger.Info("removed validator", "vote", vote)
	return nil
}

// IncreaseStake moves amount from the reserve into a new transient stake
// account delegated to the validator. It is merged into the validator stake
// once active.
func (p *Pool) IncreaseStake(ctx context.Context, vote pubkey.Pubkey, amount uint64) error {
	logger.Debug("increasing stake", "vote", vote, "amount", amount)

	err := p.run("increase_stake", func(next *State) error {
		if _, err := p.requireFresh(ctx, &next.Header); err != nil {
			return err
		}
		entry := next.lookup(vote)
		if entry == nil {
			return errors.WithMessage(ErrValidatorNotFound, vote.String())
		}
		params, err := p.deps.Stake.Params(ctx)
		if err != nil {
			return errors.Wrap(err, "stake params")
		}
		floor, err := minimumStake(params)
		if err != nil {
			return err
		}
		if amount < floor {
			return errors.WithMessagef(ErrStakeTooSmall, "%d below %d", amount, floor)
		}
		if err := entry.Increase(amount); err != nil {
			return err
		}
		balance, err := p.reserve.Balance(ctx, p.deps.Stake)
		if err != nil {
			return err
		}
		if err := p.reserve.CheckWithdraw(balance, amount); err != nil {
			return err
		}
		_, transient := p.engine.Addresses(entry)
		if err := p.deps.Stake.CreateDelegated(ctx, next.Header.Reserve, transient, amount, vote, p.authorized()); err != nil {
			return errors.Wrap(err, "create transient stake")
		}
		return nil
	})
	if err != nil {
		logger.Info("increase stake failed", "vote", vote, "error", err)
		return err
	}
	logger.Info("increased stake", "vote", vote)
	return nil
}

// DecreaseStake splits amount off the validator stake into a new transient
// account and deactivates it. At the next epoch it is merged into target.
func (p *Pool) DecreaseStake(ctx context.Context, vote pubkey.Pubkey, amount uint64, target validator.Target) error {
	logger.Debug("decreasing stake", "vote", vote, "amount", amount, "target", target)

	err := p.run("decrease_stake", func(next *State) error {
		if _, err := p.requireFresh(ctx, &next.Header); err != nil {
			return err
		}
		entry := next.lookup(vote)
		if entry == nil {
			return errors.WithMessage(ErrValidatorNotFound, vote.String())
		}
		params, err := p.deps.Stake.Params(ctx)
		if err != nil {
			return errors.Wrap(err, "stake params")
		}
		if amount < params.RentExemptReserve {
			return errors.WithMessagef(ErrStakeTooSmall, "%d below rent", amount)
		}
		if amount < entry.ActiveBalance {
			floor, err := minimumStake(params)
			if err != nil {
				return err
			}
			if entry.ActiveBalance-amount < floor {
				return errors.WithMessagef(ErrStakeBelowMinimum, "%d would remain", entry.ActiveBalance-amount)
			}
		}
		stakeAddr, _ := p.engine.Addresses(entry)
		if err := entry.Decrease(amount, target); err != nil {
			return err
		}
		_, transient := p.engine.Addresses(entry)
		if err := p.deps.Stake.Split(ctx, stakeAddr, transient, amount); err != nil {
			return errors.Wrap(err, "split transient stake")
		}
		if err := p.deps.Stake.Deactivate(ctx, transient); err != nil {
			return errors.Wrap(err, "deactivate transient stake")
		}
		return nil
	})
	if err != nil {
		logger.Info("decrease stake failed", "vote", vote, "error", err)
		return err
	}
	logger.Info("decreased stake", "vote", vote)
	return nil
}

// SetPreferred sets, or with a nil vote clears, a preferred validator.
func (p *Pool) SetPreferred(kind preferred.Kind, vote *pubkey.Pubkey) error {
	logger.Debug("set preferred validator", "kind", kind, "vote", vote)

	return p.run("set_preferred", func(next *State) error {
		return next.Header.Preferred.Set(kind, vote, next.lookup)
	})
}

// SetFee changes a fee. An epoch fee change only applies from the next new
// epoch update, so the reward of the running epoch is charged at the old rate.
// The referral fee is a percentage and must be given over 100.
func (p *Pool) SetFee(kind fees.Kind, fee fees.Fee) error {
	logger.Debug("set fee", "kind", kind, "fee", fee)

	err := p.run("set_fee", func(next *State) error {
		if err := fee.Validate(); err != nil {
			return err
		}
		s := &next.Header.Fees
		switch kind {
		case fees.KindEpoch:
			next.Header.NextEpochFee = &fee
		case fees.KindDeposit:
			s.Deposit = fee
		case fees.KindWithdrawal:
			s.Withdrawal = fee
		case fees.KindStakeWithdrawal:
			s.StakeWithdrawal = fee
		case fees.KindStakeDeposit:
			s.StakeDeposit = fee
		case fees.KindReferral:
			if fee.Denominator != 100 {
				return errors.WithMessage(ErrInvalidFee, "referral fee is a percentage")
			}
			s.ReferralPercent = uint8(fee.Numerator)
		default:
			return errors.WithMessagef(ErrInvalidFee, "unknown kind %v", kind)
		}
		return nil
	})
	if err != nil {
		logger.Info("set fee failed", "kind", kind, "error", err)
	}
	return err
}
