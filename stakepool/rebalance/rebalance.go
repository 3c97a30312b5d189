// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package rebalance plans stake moves that spread the pool value evenly
// over its active validators.
package rebalance

import (
	"context"

	"github.com/pkg/errors"

	"github.com/vechain/stakepool/log"
	"github.com/vechain/stakepool/pubkey"
	"github.com/vechain/stakepool/stakepool/validator"
)

var logger = log.WithContext("pkg", "rebalance")

type Kind uint8

const (
	Increase Kind = iota
	Decrease
)

func (k Kind) String() string {
	if k == Increase {
		return "increase"
	}
	return "decrease"
}

// Move is one stake adjustment.
type Move struct {
	Vote     pubkey.Pubkey
	Kind     Kind
	Lamports uint64
}

// Skip records a validator left alone and why.
type Skip struct {
	Vote   pubkey.Pubkey
	Reason string
}

// Input is what the planner looks at.
type Input struct {
	TotalValue     uint64
	ReserveBalance uint64
	ReserveMinimum uint64
	// Retain is kept in the reserve on top of its minimum.
	Retain            uint64
	RentExemptReserve uint64
	// MinimumStake is the smallest delegated stake account, which bounds
	// both a new transient account and what a decrease must leave behind.
	MinimumStake uint64
	Entries      []validator.Entry
}

// Plan is the result of Compute.
type Plan struct {
	Target uint64 // desired lamports per validator
	Moves  []Move
	Skips  []Skip
}

func saturatingSub(a, b uint64) uint64 {
	if a < b {
		return 0
	}
	return a - b
}

// Compute plans the moves bringing every active validator towards an equal
// share of the pool value. Validators with stake in flight are skipped, and
// increases never spend more than the reserve can give.
func Compute(in *Input) *Plan {
	var candidates []validator.Entry
	for _, e := range in.Entries {
		if e.Status == validator.StatusActive {
			candidates = append(candidates, e)
		}
	}
	plan := &Plan{}
	if len(candidates) == 0 {
		return plan
	}

	keep := in.ReserveMinimum + in.Retain
	plan.Target = saturatingSub(in.TotalValue, keep) / uint64(len(candidates))
	floor := max(plan.Target, in.MinimumStake)
	budget := saturatingSub(in.ReserveBalance, keep)

	for _, e := range candidates {
		switch {
		case e.TransientBalance != 0:
			plan.Skips = append(plan.Skips, Skip{e.VoteID, "transient stake in flight"})
		case e.ActiveBalance > floor:
			amount := e.ActiveBalance - floor
			if amount <= in.RentExemptReserve {
				plan.Skips = append(plan.Skips, Skip{e.VoteID, "decrease below rent exemption"})
				continue
			}
			plan.Moves = append(plan.Moves, Move{e.VoteID, Decrease, amount})
		case e.ActiveBalance < plan.Target:
			amount := min(plan.Target-e.ActiveBalance, budget)
			if amount < in.MinimumStake {
				plan.Skips = append(plan.Skips, Skip{e.VoteID, "increase below minimum stake"})
				continue
			}
			budget -= amount
			plan.Moves = append(plan.Moves, Move{e.VoteID, Increase, amount})
		default:
			plan.Skips = append(plan.Skips, Skip{e.VoteID, "balanced"})
		}
	}
	return plan
}

// Staker adjusts validator stake.
type Staker interface {
	IncreaseStake(ctx context.Context, vote pubkey.Pubkey, amount uint64) error
	DecreaseStake(ctx context.Context, vote pubkey.Pubkey, amount uint64, target validator.Target) error
}

// Execute performs the moves in order. Decreases go to the reserve. It
// stops at the first failure.
func (p *Plan) Execute(ctx context.Context, s Staker) error {
	for _, m := range p.Moves {
		var err error
		switch m.Kind {
		case Increase:
			err = s.IncreaseStake(ctx, m.Vote, m.Lamports)
		case Decrease:
			err = s.DecreaseStake(ctx, m.Vote, m.Lamports, validator.TargetReserve)
		}
		if err != nil {
			return errors.WithMessagef(err, "%v %v by %d", m.Kind, m.Vote, m.Lamports)
		}
		logger.Debug("rebalanced validator", "vote", m.Vote, "move", m.Kind, "lamports", m.Lamports)
	}
	return nil
}
