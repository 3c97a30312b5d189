// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stakepool

import (
	"context"
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/pkg/errors"

	"github.com/vechain/stakepool/pubkey"
	"github.com/vechain/stakepool/stakeacct"
	"github.com/vechain/stakepool/stakepool/fees"
	"github.com/vechain/stakepool/stakepool/preferred"
	"github.com/vechain/stakepool/stakepool/validator"
)

// Receipt describes a deposit or withdrawal.
type Receipt struct {
	Lamports uint64
	Shares   uint64 // minted to, or burned from, the holder
	Fee      uint64 // shares taken by the manager
	Referral uint64 // shares paid to the referrer
	// Account is the stake account split off for a withdrawal from a validator.
	Account *pubkey.Pubkey `json:",omitempty"`
}

// quote is the share split of a deposit.
type quote struct {
	shares   uint64 // minted in total
	fee      uint64 // of shares, kept by the pool
	referral uint64 // of fee, paid to the referrer
}

func quoteDeposit(h *Header, lamports uint64, rate fees.Fee, referrer *pubkey.Pubkey, minShares uint64) (*quote, error) {
	if lamports == 0 {
		return nil, ErrZeroAmount
	}
	shares, err := fees.SharesForDeposit(lamports, h.TotalValue, h.ShareSupply)
	if err != nil {
		return nil, err
	}
	fee, err := rate.Apply(shares)
	if err != nil {
		return nil, err
	}
	if fee >= shares {
		return nil, errors.WithMessagef(ErrDepositTooSmall, "%d lamports", lamports)
	}
	if shares-fee < minShares {
		return nil, errors.WithMessagef(ErrExceededSlippage, "%d shares, minimum %d", shares-fee, minShares)
	}
	q := &quote{shares: shares, fee: fee}
	if referrer != nil {
		if q.referral, err = fees.ReferralShares(fee, h.Fees.ReferralPercent); err != nil {
			return nil, err
		}
	}
	return q, nil
}

// issue mints the shares of a deposit of lamports and adds it to the pool.
func (p *Pool) issue(ctx context.Context, h *Header, to pubkey.Pubkey, lamports uint64, q *quote, referrer *pubkey.Pubkey) (*Receipt, error) {
	total, overflow := math.SafeAdd(h.TotalValue, lamports)
	if overflow {
		return nil, ErrOverflow
	}
	supply, overflow := math.SafeAdd(h.ShareSupply, q.shares)
	if overflow {
		return nil, ErrOverflow
	}
	type mint struct {
		to     pubkey.Pubkey
		amount uint64
	}
	mints := []mint{{to, q.shares - q.fee}, {h.ManagerFeeAccount, q.fee - q.referral}}
	if q.referral > 0 {
		mints = append(mints, mint{*referrer, q.referral})
	}
	for _, m := range mints {
		if m.amount == 0 {
			continue
		}
		if err := p.deps.Shares.Mint(ctx, m.to, m.amount); err != nil {
			return nil, errors.Wrap(err, "mint shares")
		}
	}
	h.TotalValue, h.ShareSupply = total, supply
	return &Receipt{Lamports: lamports, Shares: q.shares - q.fee, Fee: q.fee - q.referral, Referral: q.referral}, nil
}

// Deposit moves lamports from a wallet into the reserve and mints shares to
// it, less the deposit fee. Part of the fee goes to the referrer when given.
func (p *Pool) Deposit(ctx context.Context, from pubkey.Pubkey, lamports uint64, referrer *pubkey.Pubkey) (*Receipt, error) {
	return p.DepositWithSlippage(ctx, from, lamports, referrer, 0)
}

// DepositWithSlippage is Deposit failing with ErrExceededSlippage when the
// depositor would receive fewer than minShares.
func (p *Pool) DepositWithSlippage(ctx context.Context, from pubkey.Pubkey, lamports uint64, referrer *pubkey.Pubkey, minShares uint64) (*Receipt, error) {
	logger.Debug("depositing", "from", from, "lamports", lamports, "minShares", minShares)

	var receipt *Receipt
	err := p.run("deposit", func(next *State) error {
		h := &next.Header
		if _, err := p.requireFresh(ctx, h); err != nil {
			return err
		}
		if _, reset := h.Preferred.Resolve(preferred.KindDeposit, next.lookup); reset {
			logger.Debug("reset preferred validator", "kind", preferred.KindDeposit)
		}
		q, err := quoteDeposit(h, lamports, h.Fees.Deposit, referrer, minShares)
		if err != nil {
			return err
		}
		if err := p.deps.Stake.Transfer(ctx, from, h.Reserve, lamports); err != nil {
			return errors.Wrap(err, "transfer deposit")
		}
		receipt, err = p.issue(ctx, h, from, lamports, q, referrer)
		return err
	})
	if err != nil {
		logger.Info("deposit failed", "from", from, "error", err)
		return nil, err
	}
	logger.Info("deposited", "from", from, "lamports", lamports, "shares", receipt.Shares)
	return receipt, nil
}

// DepositStake takes over a fully active stake account of owner, merges it
// into the stake of the validator it is delegated to and mints shares for
// all its lamports, less the stake deposit fee. While a deposit preference
// is set, only stake delegated to that validator is accepted.
func (p *Pool) DepositStake(ctx context.Context, owner, stake pubkey.Pubkey, referrer *pubkey.Pubkey, minShares uint64) (*Receipt, error) {
	logger.Debug("depositing stake", "owner", owner, "stake", stake)

	var receipt *Receipt
	err := p.run("deposit_stake", func(next *State) error {
		h := &next.Header
		epoch, err := p.requireFresh(ctx, h)
		if err != nil {
			return err
		}
		acc, err := p.deps.Stake.Get(ctx, stake)
		if err != nil {
			return errors.Wrap(err, "get deposited stake")
		}
		switch {
		case acc == nil:
			return errors.WithMessagef(ErrInvalidStakeAccount, "%v not found", stake)
		case acc.ActivationAt(epoch) != stakeacct.Active:
			return errors.WithMessagef(ErrInvalidStakeAccount, "%v is %v", stake, acc.ActivationAt(epoch))
		case acc.Lockup != (stakeacct.Lockup{}):
			return errors.WithMessagef(ErrInvalidStakeAccount, "%v is locked up", stake)
		}
		vote := acc.Delegation.Voter

		if pref, reset := h.Preferred.Resolve(preferred.KindDeposit, next.lookup); pref != nil && *pref != vote {
			return errors.WithMessagef(ErrIncorrectDepositValidator, "preferred %v", *pref)
		} else if reset {
			logger.Debug("reset preferred validator", "kind", preferred.KindDeposit)
		}
		entry := next.lookup(vote)
		if entry == nil {
			return errors.WithMessage(ErrValidatorNotFound, vote.String())
		}
		if entry.Status != validator.StatusActive {
			return errors.WithMessagef(ErrWrongStatus, "%v is %v", vote, entry.Status)
		}
		stakeAddr, _ := p.engine.Addresses(entry)
		dst, err := p.deps.Stake.Get(ctx, stakeAddr)
		if err != nil {
			return errors.Wrap(err, "get validator stake")
		}
		if dst == nil || dst.ActivationAt(epoch) != stakeacct.Active || !dst.ControlledBy(h.Authority, stakeacct.Lockup{}) {
			return errors.WithMessagef(ErrWrongStatus, "validator stake of %v not active", vote)
		}

		q, err := quoteDeposit(h, acc.Lamports, h.Fees.StakeDeposit, referrer, minShares)
		if err != nil {
			return err
		}
		active, overflow := math.SafeAdd(entry.ActiveBalance, acc.Lamports)
		if overflow {
			return ErrOverflow
		}
		if err := p.deps.Stake.Authorize(ctx, stake, p.authorized()); err != nil {
			return errors.Wrap(err, "authorize deposited stake")
		}
		if err := p.deps.Stake.Merge(ctx, stakeAddr, stake); err != nil {
			return errors.Wrap(err, "merge deposited stake")
		}
		entry.ActiveBalance = active
		receipt, err = p.issue(ctx, h, owner, acc.Lamports, q, referrer)
		return err
	})
	if err != nil {
		logger.Info("deposit stake failed", "owner", owner, "stake", stake, "error", err)
		return nil, err
	}
	logger.Info("deposited stake", "owner", owner, "stake", stake, "lamports", receipt.Lamports, "shares", receipt.Shares)
	return receipt, nil
}

// withdrawal describes what a holder takes out of the pool.
type withdrawal struct {
	owner       pubkey.Pubkey
	shares      uint64
	source      *pubkey.Pubkey // nil for the reserve
	transient   bool           // take from the transient account of source
	minLamports uint64
}

// Withdraw burns shares of owner and pays out their value, less the
// withdrawal fee. With a nil source the lamports come from the reserve.
// Otherwise a stake account is split off the source validator and handed
// to the owner.
func (p *Pool) Withdraw(ctx context.Context, owner pubkey.Pubkey, shares uint64, source *pubkey.Pubkey) (*Receipt, error) {
	return p.withdraw(ctx, withdrawal{owner: owner, shares: shares, source: source})
}

// WithdrawWithSlippage is Withdraw failing with ErrExceededSlippage when
// fewer than minLamports would be paid out.
func (p *Pool) WithdrawWithSlippage(ctx context.Context, owner pubkey.Pubkey, shares uint64, source *pubkey.Pubkey, minLamports uint64) (*Receipt, error) {
	return p.withdraw(ctx, withdrawal{owner: owner, shares: shares, source: source, minLamports: minLamports})
}

// WithdrawTransient pays out of the transient stake of vote. It is only
// allowed once no validator has active stake above the minimum left to give.
func (p *Pool) WithdrawTransient(ctx context.Context, owner pubkey.Pubkey, shares uint64, vote pubkey.Pubkey, minLamports uint64) (*Receipt, error) {
	return p.withdraw(ctx, withdrawal{owner: owner, shares: shares, source: &vote, transient: true, minLamports: minLamports})
}

func (p *Pool) withdraw(ctx context.Context, w withdrawal) (*Receipt, error) {
	logger.Debug("withdrawing", "owner", w.owner, "shares", w.shares, "source", w.source, "transient", w.transient)

	var receipt Receipt
	err := p.run("withdraw", func(next *State) error {
		h := &next.Header
		if _, err := p.requireFresh(ctx, h); err != nil {
			return err
		}
		if w.shares == 0 {
			return ErrZeroAmount
		}
		held, err := p.deps.Shares.BalanceOf(ctx, w.owner)
		if err != nil {
			return errors.Wrap(err, "share balance")
		}
		if held < w.shares {
			return errors.WithMessagef(ErrInsufficientShares, "holds %d, requested %d", held, w.shares)
		}

		rate := h.Fees.Withdrawal
		if w.source != nil {
			rate = h.Fees.StakeWithdrawal
		}
		var fee uint64
		if w.owner != h.ManagerFeeAccount {
			if fee, err = rate.Apply(w.shares); err != nil {
				return err
			}
		}
		burn := w.shares - fee
		lamports, err := fees.LamportsForShares(burn, h.TotalValue, h.ShareSupply)
		if err != nil {
			return err
		}
		if lamports == 0 {
			return errors.WithMessagef(ErrWithdrawalTooSmall, "%d shares", w.shares)
		}
		if lamports < w.minLamports {
			return errors.WithMessagef(ErrExceededSlippage, "%d lamports, minimum %d", lamports, w.minLamports)
		}

		switch {
		case w.source == nil:
			err = p.withdrawReserve(ctx, w.owner, lamports)
		case w.transient:
			receipt.Account, err = p.withdrawTransient(ctx, next, w.owner, *w.source, lamports)
		default:
			receipt.Account, err = p.withdrawStake(ctx, next, w.owner, *w.source, lamports)
		}
		if err != nil {
			return err
		}

		if fee > 0 {
			if err := p.deps.Shares.Transfer(ctx, w.owner, h.ManagerFeeAccount, fee); err != nil {
				return errors.Wrap(err, "transfer withdrawal fee")
			}
		}
		if err := p.deps.Shares.Burn(ctx, w.owner, burn); err != nil {
			return errors.Wrap(err, "burn shares")
		}
		h.TotalValue -= lamports
		h.ShareSupply -= burn
		receipt.Lamports, receipt.Shares, receipt.Fee = lamports, burn, fee
		return nil
	})
	if err != nil {
		logger.Info("withdraw failed", "owner", w.owner, "error", err)
		return nil, err
	}
	logger.Info("withdrew", "owner", w.owner, "lamports", receipt.Lamports, "shares", receipt.Shares)
	return &receipt, nil
}

func (p *Pool) withdrawReserve(ctx context.Context, owner pubkey.Pubkey, lamports uint64) error {
	balance, err := p.reserve.Balance(ctx, p.deps.Stake)
	if err != nil {
		return err
	}
	if err := p.reserve.CheckWithdraw(balance, lamports); err != nil {
		return err
	}
	return errors.Wrap(p.deps.Stake.Withdraw(ctx, p.reserve.Address, owner, lamports), "withdraw from reserve")
}

func (p *Pool) stakeFloor(ctx context.Context) (uint64, error) {
	params, err := p.deps.Stake.Params(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "stake params")
	}
	return minimumStake(params)
}

func (p *Pool) withdrawStake(ctx context.Context, next *State, owner, vote pubkey.Pubkey, lamports uint64) (*pubkey.Pubkey, error) {
	h := &next.Header
	entry := next.lookup(vote)
	if entry == nil {
		return nil, errors.WithMessage(ErrValidatorNotFound, vote.String())
	}
	floor, err := p.stakeFloor(ctx)
	if err != nil {
		return nil, err
	}

	// while the preferred validator has stake to spare, it must be used
	if pref, _ := h.Preferred.Resolve(preferred.KindWithdraw, next.lookup); pref != nil && *pref != vote {
		if pe := next.lookup(*pref); pe.ActiveBalance > floor {
			return nil, errors.WithMessagef(ErrIncorrectWithdrawValidator, "preferred %v", *pref)
		}
	}
	if lamports < floor {
		return nil, errors.WithMessagef(ErrWithdrawalTooSmall, "%d below %d", lamports, floor)
	}
	if lamports < entry.ActiveBalance && entry.ActiveBalance-lamports < floor {
		return nil, errors.WithMessagef(ErrStakeBelowMinimum, "%d would remain", entry.ActiveBalance-lamports)
	}
	stakeAddr, _ := p.engine.Addresses(entry)
	if err := entry.WithdrawActive(lamports); err != nil {
		return nil, err
	}
	return p.splitToOwner(ctx, h, owner, stakeAddr, lamports)
}

func (p *Pool) withdrawTransient(ctx context.Context, next *State, owner, vote pubkey.Pubkey, lamports uint64) (*pubkey.Pubkey, error) {
	entry := next.lookup(vote)
	if entry == nil {
		return nil, errors.WithMessage(ErrValidatorNotFound, vote.String())
	}
	floor, err := p.stakeFloor(ctx)
	if err != nil {
		return nil, err
	}
	var spare *validator.Entry
	next.Validators.Each(func(_ int, e *validator.Entry) bool {
		if e.ActiveBalance > floor {
			spare = e
			return false
		}
		return true
	})
	if spare != nil {
		return nil, errors.WithMessagef(ErrActiveStakeAvailable, "%v holds %d", spare.VoteID, spare.ActiveBalance)
	}
	if lamports < floor {
		return nil, errors.WithMessagef(ErrWithdrawalTooSmall, "%d below %d", lamports, floor)
	}
	if lamports < entry.TransientBalance && entry.TransientBalance-lamports < floor {
		return nil, errors.WithMessagef(ErrStakeBelowMinimum, "%d would remain", entry.TransientBalance-lamports)
	}
	_, transientAddr := p.engine.Addresses(entry)
	if err := entry.WithdrawTransient(lamports); err != nil {
		return nil, err
	}
	return p.splitToOwner(ctx, &next.Header, owner, transientAddr, lamports)
}

// splitToOwner splits lamports off a pool stake account into a new account
// handed over to owner.
func (p *Pool) splitToOwner(ctx context.Context, h *Header, owner, src pubkey.Pubkey, lamports uint64) (*pubkey.Pubkey, error) {
	h.WithdrawalSeq++
	dst := WithdrawalAddress(h.Pool, owner, h.WithdrawalSeq)
	if err := p.deps.Stake.Split(ctx, src, dst, lamports); err != nil {
		return nil, errors.Wrap(err, "split withdrawn stake")
	}
	if err := p.deps.Stake.Authorize(ctx, dst, stakeacct.Authorized{Staker: owner, Withdrawer: owner}); err != nil {
		return nil, errors.Wrap(err, "authorize withdrawn stake")
	}
	return &dst, nil
}

var withdrawalPrefix = []byte("withdrawal")

// WithdrawalAddress derives the address of the seq-th stake account split
// off for a withdrawing holder.
func WithdrawalAddress(pool, owner pubkey.Pubkey, seq uint64) pubkey.Pubkey {
	return pubkey.Derive(withdrawalPrefix, pool.Bytes(), owner.Bytes(), binary.BigEndian.AppendUint64(nil, seq))
}
