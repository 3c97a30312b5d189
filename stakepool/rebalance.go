// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stakepool

import (
	"context"

	"github.com/pkg/errors"

	"github.com/vechain/stakepool/stakepool/rebalance"
)

// Rebalance plans an even split of the pool value over the active
// validators, keeping retain lamports in the reserve on top of its minimum.
// The plan is executed unless dryRun is set.
func (p *Pool) Rebalance(ctx context.Context, retain uint64, dryRun bool) (*rebalance.Plan, error) {
	snap := p.Snapshot()
	if _, err := p.requireFresh(ctx, &snap.Header); err != nil {
		return nil, err
	}
	params, err := p.deps.Stake.Params(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "stake params")
	}
	floor, err := minimumStake(params)
	if err != nil {
		return nil, err
	}
	balance, err := p.ReserveBalance(ctx)
	if err != nil {
		return nil, err
	}

	plan := rebalance.Compute(&rebalance.Input{
		TotalValue:        snap.Header.TotalValue,
		ReserveBalance:    balance,
		ReserveMinimum:    snap.Header.MinimumReserve,
		Retain:            retain,
		RentExemptReserve: params.RentExemptReserve,
		MinimumStake:      floor,
		Entries:           snap.Validators.Entries(),
	})
	for _, s := range plan.Skips {
		logger.Debug("rebalance skipped validator", "vote", s.Vote, "reason", s.Reason)
	}
	if dryRun {
		return plan, nil
	}
	if err := plan.Execute(ctx, p); err != nil {
		logger.Info("rebalance failed", "error", err)
		return plan, err
	}
	logger.Info("rebalanced pool", "target", plan.Target, "moves", len(plan.Moves))
	return plan, nil
}
