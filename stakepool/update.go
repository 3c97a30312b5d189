// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stakepool

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/pkg/errors"

	"github.com/vechain/stakepool/stakepool/accounting"
	"github.com/vechain/stakepool/stakepool/fees"
	"github.com/vechain/stakepool/stakepool/validator"
)

// Totals is the result of a pool balance update.
type Totals struct {
	Epoch          uint64
	NewEpoch       bool // first update of the epoch
	Reserve        uint64
	Staked         uint64 // active plus transient over all validators
	TotalValue     uint64
	PrevTotalValue uint64
	ShareSupply    uint64
	Reward         uint64
	FeeShares      uint64
}

func (p *Pool) epochForUpdate(ctx context.Context) (uint64, error) {
	distributing, err := p.deps.Clock.RewardDistributionActive(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "reward distribution status")
	}
	if distributing {
		return 0, ErrEpochRewardDistributionInProgress
	}
	epoch, err := p.deps.Clock.CurrentEpoch(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "current epoch")
	}
	return epoch, nil
}

// UpdateValidatorListBalance reconciles up to batch entries from position
// start against their stake accounts. Entries already reconciled in the
// current epoch are left alone. With allowMerge false nothing is moved and
// balances are recorded as found.
//
// All entries of the batch are planned before any stake account is touched.
// If applying fails midway, the entries applied so far are still committed.
func (p *Pool) UpdateValidatorListBalance(ctx context.Context, start, batch int, allowMerge bool) ([]*accounting.Outcome, error) {
	logger.Debug("updating validator list balance", "start", start, "batch", batch, "allowMerge", allowMerge)
	began := time.Now()

	p.mu.Lock()
	defer p.mu.Unlock()

	epoch, err := p.epochForUpdate(ctx)
	if err != nil {
		countOp("update_validators", err)
		logger.Info("update validator list balance failed", "error", err)
		return nil, err
	}

	next := p.state.Clone()
	limit := int(next.Header.MaxValidatorsPerUpdate)
	if batch <= 0 || batch > limit {
		batch = limit
	}
	from, to := next.Validators.Window(start, batch)

	outcomes := make([]*accounting.Outcome, 0, to-from)
	for i := from; i < to; i++ {
		out, err := p.engine.Plan(ctx, *next.Validators.At(i), epoch, allowMerge)
		if err != nil {
			countOp("update_validators", err)
			logger.Info("update validator list balance failed", "vote", next.Validators.At(i).VoteID, "error", err)
			return nil, errors.WithMessagef(err, "plan %v", next.Validators.At(i).VoteID)
		}
		outcomes = append(outcomes, out)
	}

	var applyErr error
	applied := outcomes[:0:0]
	for k, out := range outcomes {
		if applyErr = p.engine.Apply(ctx, out); applyErr != nil {
			applyErr = errors.WithMessagef(applyErr, "apply %v", out.Before.VoteID)
			break
		}
		*next.Validators.At(from + k) = out.After
		applied = append(applied, out)
		for _, a := range out.Actions {
			metricStakeActions().AddWithLabel(1, map[string]string{"action": a.Kind.String()})
		}
	}

	if len(applied) > 0 {
		if err := p.commit(next); err != nil {
			countOp("update_validators", err)
			return nil, err
		}
		p.record(func(j Journal) error { return j.RecordReconcile(ctx, epoch, applied) })
	}
	countOp("update_validators", applyErr)
	metricUpdateDuration().Observe(time.Since(began).Milliseconds())
	if applyErr != nil {
		logger.Info("update validator list balance failed", "applied", len(applied), "error", applyErr)
		return applied, applyErr
	}
	logger.Info("updated validator list balance", "epoch", epoch, "from", from, "to", to)
	return applied, nil
}

// UpdatePoolBalance recomputes the pool value from the reserve and the
// validator entries, which must all be reconciled for the current epoch.
// On the first update of an epoch the epoch fee is minted on the reward.
func (p *Pool) UpdatePoolBalance(ctx context.Context) (*Totals, error) {
	logger.Debug("updating pool balance")

	p.mu.Lock()
	defer p.mu.Unlock()

	var totals *Totals
	err := func() error {
		epoch, err := p.epochForUpdate(ctx)
		if err != nil {
			return err
		}
		// a fee left over by an interrupted update is minted before anything else
		carried, err := p.settleEpochFee(ctx)
		if err != nil {
			return err
		}

		next := p.state.Clone()
		var (
			staked uint64
			stale  *validator.Entry
		)
		next.Validators.Each(func(_ int, e *validator.Entry) bool {
			if e.IsStale(epoch) {
				stale = e
				return false
			}
			v, ierr := e.Total()
			if ierr == nil {
				var overflow bool
				if staked, overflow = math.SafeAdd(staked, v); !overflow {
					return true
				}
			}
			err = ErrOverflow
			return false
		})
		if stale != nil {
			return errors.WithMessagef(ErrStaleValidatorList, "%v updated at %d", stale.VoteID, stale.LastUpdateEpoch)
		}
		if err != nil {
			return err
		}

		reserveBalance, err := p.reserve.Balance(ctx, p.deps.Stake)
		if err != nil {
			return err
		}
		total, overflow := math.SafeAdd(reserveBalance, staked)
		if overflow {
			return ErrOverflow
		}
		supply, err := p.deps.Shares.Supply(ctx)
		if err != nil {
			return errors.Wrap(err, "share supply")
		}
		if supply != next.Header.ShareSupply {
			logger.Debug("share supply changed outside the pool", "recorded", next.Header.ShareSupply, "supply", supply)
		}

		h := &next.Header
		totals = &Totals{
			Epoch:          epoch,
			NewEpoch:       h.LastUpdateEpoch < epoch,
			Reserve:        reserveBalance,
			Staked:         staked,
			TotalValue:     total,
			PrevTotalValue: h.TotalValue,
		}
		if totals.NewEpoch {
			if total > h.TotalValue {
				totals.Reward = total - h.TotalValue
			}
			feeShares, err := fees.EpochFeeShares(totals.Reward, h.TotalValue, supply, h.Fees.Epoch)
			if err != nil {
				return err
			}
			h.PendingEpochFee = feeShares
			if h.NextEpochFee != nil {
				h.Fees.Epoch = *h.NextEpochFee
				h.NextEpochFee = nil
			}
			h.LastEpochTotalValue = h.TotalValue
			h.LastEpochShareSupply = h.ShareSupply
			h.LastUpdateEpoch = epoch
		}
		h.TotalValue = total
		h.ShareSupply = supply
		// the roll is saved before the fee is minted
		if err := p.commit(next); err != nil {
			return err
		}
		minted, err := p.settleEpochFee(ctx)
		if err != nil {
			return err
		}
		totals.FeeShares = carried + minted
		totals.ShareSupply = p.state.Header.ShareSupply
		return nil
	}()
	countOp("update_pool", err)
	if err != nil {
		logger.Info("update pool balance failed", "error", err)
		return nil, err
	}
	p.record(func(j Journal) error { return j.RecordTotals(ctx, totals) })
	logger.Info("updated pool balance", "epoch", totals.Epoch, "total", totals.TotalValue, "supply", totals.ShareSupply, "feeShares", totals.FeeShares)
	return totals, nil
}

// settleEpochFee mints the epoch fee recorded by the last epoch roll and
// clears it. The ledger supply tells whether an earlier attempt minted it
// already and only failed to save.
func (p *Pool) settleEpochFee(ctx context.Context) (uint64, error) {
	owed := p.state.Header.PendingEpochFee
	if owed == 0 {
		return 0, nil
	}
	next := p.state.Clone()
	h := &next.Header
	expected, overflow := math.SafeAdd(h.ShareSupply, owed)
	if overflow {
		return 0, ErrOverflow
	}
	supply, err := p.deps.Shares.Supply(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "share supply")
	}
	if supply < expected {
		if err := p.deps.Shares.Mint(ctx, h.ManagerFeeAccount, owed); err != nil {
			return 0, errors.Wrap(err, "mint epoch fee")
		}
		metricFeeShares().Add(int64(owed))
	} else {
		logger.Debug("epoch fee already minted", "shares", owed, "supply", supply)
	}
	h.ShareSupply = expected
	h.PendingEpochFee = 0
	if err := p.commit(next); err != nil {
		return 0, err
	}
	return owed, nil
}

// CleanupRemovedValidators deletes entries that are ready for removal and
// hold nothing, and drops preferences that are no longer valid.
func (p *Pool) CleanupRemovedValidators(ctx context.Context) ([]validator.Entry, error) {
	logger.Debug("cleaning up removed validators")

	var removed []validator.Entry
	err := p.run("cleanup", func(next *State) error {
		for _, e := range next.Validators.RemoveIf((*validator.Entry).Removable) {
			removed = append(removed, *e)
		}
		for _, kind := range next.Header.Preferred.Sanitize(next.lookup) {
			logger.Debug("reset preferred validator", "kind", kind)
		}
		return nil
	})
	if err != nil {
		logger.Info("cleanup failed", "error", err)
		return nil, err
	}
	if len(removed) > 0 {
		logger.Info("removed validators", "count", len(removed))
	}
	return removed, nil
}

// UpdateAll reconciles every entry in batches, then the pool balance, then
// cleans up removed validators.
func (p *Pool) UpdateAll(ctx context.Context, allowMerge bool) (*Totals, error) {
	h := p.Header()
	n := len(p.Validators())
	step := int(h.MaxValidatorsPerUpdate)
	for start := 0; start < n; start += step {
		if _, err := p.UpdateValidatorListBalance(ctx, start, step, allowMerge); err != nil {
			return nil, err
		}
	}
	totals, err := p.UpdatePoolBalance(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := p.CleanupRemovedValidators(ctx); err != nil {
		return nil, err
	}
	return totals, nil
}

// record passes committed results to the journal. The journal is an audit
// trail, failing to write it does not undo the update.
func (p *Pool) record(fn func(Journal) error) {
	if p.deps.Journal == nil {
		return
	}
	if err := fn(p.deps.Journal); err != nil {
		logger.Warn("failed to write journal", "error", err)
	}
}
