// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package validator

import (
	"github.com/ethereum/go-ethereum/common/math"

	"github.com/vechain/stakepool/pubkey"
	"github.com/vechain/stakepool/stakepool/reverts"
)

var (
	ErrNotFound            = reverts.New(reverts.KindState, "validator not found")
	ErrWrongStatus         = reverts.New(reverts.KindState, "validator status does not allow this operation")
	ErrTransientInProgress = reverts.New(reverts.KindState, "validator has transient stake in progress")
	ErrAmountTooLarge      = reverts.New(reverts.KindFunds, "amount exceeds active stake")
	ErrZeroAmount          = reverts.New(reverts.KindFunds, "amount must be positive")
)

// Entry is the pool's record of one validator.
type Entry struct {
	VoteID           pubkey.Pubkey
	Status           Status
	ActiveBalance    uint64 // lamports in the validator stake account
	TransientBalance uint64 // lamports in the transient stake account
	LastUpdateEpoch  uint64
	ValidatorSeed    uint32
	TransientSeed    uint64
	PendingTarget    Target // destination of a decrease in flight
}

// New creates an active entry for a freshly funded validator stake account.
func New(vote pubkey.Pubkey, seed uint32, epoch, active uint64) *Entry {
	return &Entry{
		VoteID:          vote,
		Status:          StatusActive,
		ActiveBalance:   active,
		LastUpdateEpoch: epoch,
		ValidatorSeed:   seed,
	}
}

// Total returns active plus transient balances.
func (e *Entry) Total() (uint64, error) {
	total, overflow := math.SafeAdd(e.ActiveBalance, e.TransientBalance)
	if overflow {
		return 0, reverts.ErrOverflow
	}
	return total, nil
}

// HasTransient reports whether a transient account may still hold pool stake.
func (e *Entry) HasTransient() bool {
	return e.TransientBalance > 0 ||
		e.Status == StatusDeactivatingTransient ||
		e.Status == StatusDeactivatingAll
}

// Removable reports whether cleanup may delete the entry.
func (e *Entry) Removable() bool {
	return e.Status == StatusReadyForRemoval && e.ActiveBalance == 0 && e.TransientBalance == 0
}

// IsStale reports whether the entry was last reconciled before epoch.
func (e *Entry) IsStale(epoch uint64) bool {
	return e.LastUpdateEpoch < epoch
}

// Increase records amount of new stake starting to activate in a fresh
// transient account. The transient seed is bumped before use.
func (e *Entry) Increase(amount uint64) error {
	if err := e.checkAdjustable(amount); err != nil {
		return err
	}
	e.TransientSeed++
	e.TransientBalance = amount
	return nil
}

// Decrease moves amount of active stake into a fresh transient account that
// is deactivating. The target is recorded and honored at merge time.
// Decreasing into the active account requires that some active stake stays.
func (e *Entry) Decrease(amount uint64, target Target) error {
	if err := e.checkAdjustable(amount); err != nil {
		return err
	}
	if amount > e.ActiveBalance || (target == TargetActive && amount == e.ActiveBalance) {
		return ErrAmountTooLarge
	}
	e.TransientSeed++
	e.ActiveBalance -= amount
	e.TransientBalance = amount
	e.Status = StatusDeactivatingTransient
	e.PendingTarget = target
	return nil
}

func (e *Entry) checkAdjustable(amount uint64) error {
	if amount == 0 {
		return ErrZeroAmount
	}
	if e.Status != StatusActive {
		return ErrWrongStatus
	}
	if e.TransientBalance > 0 {
		return ErrTransientInProgress
	}
	return nil
}

// Remove starts removing the validator. It returns whether the active
// account holds stake that must be deactivated.
func (e *Entry) Remove() (deactivate bool, err error) {
	switch e.Status {
	case StatusActive:
		if e.TransientBalance > 0 {
			// an activating transient has nowhere to go once the active account is gone
			return false, ErrTransientInProgress
		}
		if e.ActiveBalance == 0 {
			e.Status = StatusReadyForRemoval
			return false, nil
		}
		e.Status = StatusDeactivatingValidator
	case StatusDeactivatingTransient:
		if e.PendingTarget != TargetReserve {
			return false, ErrTransientInProgress
		}
		e.Status = StatusDeactivatingAll
	default:
		return false, ErrWrongStatus
	}
	return e.ActiveBalance > 0, nil
}

// WithdrawActive takes amount out of the active balance for a withdrawing
// holder. Taking everything leaves the entry ready for removal.
func (e *Entry) WithdrawActive(amount uint64) error {
	if amount == 0 {
		return ErrZeroAmount
	}
	if e.Status != StatusActive {
		return ErrWrongStatus
	}
	if amount > e.ActiveBalance {
		return ErrAmountTooLarge
	}
	if amount == e.ActiveBalance && e.HasTransient() {
		return ErrTransientInProgress
	}
	e.ActiveBalance -= amount
	if e.ActiveBalance == 0 {
		e.Status = StatusReadyForRemoval
	}
	return nil
}

// WithdrawTransient takes amount out of the transient balance for a
// withdrawing holder. Emptying the transient ends the adjustment in flight.
func (e *Entry) WithdrawTransient(amount uint64) error {
	if amount == 0 {
		return ErrZeroAmount
	}
	if amount > e.TransientBalance {
		return ErrAmountTooLarge
	}
	e.TransientBalance -= amount
	if e.TransientBalance == 0 {
		e.Status = e.Status.AfterTransientMerge(e.ActiveBalance > 0)
		e.PendingTarget = TargetReserve
	}
	return nil
}
