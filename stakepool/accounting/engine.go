// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package accounting

import (
	"context"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/pkg/errors"

	"github.com/vechain/stakepool/log"
	"github.com/vechain/stakepool/pubkey"
	"github.com/vechain/stakepool/stakeacct"
	"github.com/vechain/stakepool/stakepool/reverts"
	"github.com/vechain/stakepool/stakepool/validator"
)

var logger = log.WithContext("pkg", "accounting")

// ActionKind is the kind of stake account operation an outcome requires.
type ActionKind uint8

const (
	ActionMerge ActionKind = iota
	ActionWithdraw
	ActionDeactivate
)

func (k ActionKind) String() string {
	return [...]string{"merge", "withdraw", "deactivate"}[k]
}

// Action is a single call to the stake account service.
type Action struct {
	Kind     ActionKind
	Dst      pubkey.Pubkey
	Src      pubkey.Pubkey
	Lamports uint64
}

// Outcome is the reconciliation of one entry: what was found, what must be
// done, and the entry once it is done.
type Outcome struct {
	Before    validator.Entry
	After     validator.Entry
	Validator Class
	Transient Class
	Actions   []Action
	ToReserve uint64 // lamports the actions move into the reserve
	Skipped   bool   // already reconciled for the epoch
}

// Engine reconciles validator entries against their stake accounts.
type Engine struct {
	pool      pubkey.Pubkey
	authority pubkey.Pubkey
	reserve   pubkey.Pubkey
	svc       stakeacct.Service
}

// New creates an engine for the pool.
func New(pool, reserve pubkey.Pubkey, svc stakeacct.Service) *Engine {
	return &Engine{
		pool:      pool,
		authority: pubkey.Authority(pool),
		reserve:   reserve,
		svc:       svc,
	}
}

// Addresses returns the validator and transient stake account addresses of e.
func (g *Engine) Addresses(e *validator.Entry) (stake, transient pubkey.Pubkey) {
	return pubkey.StakeAddress(g.pool, e.VoteID, e.ValidatorSeed),
		pubkey.TransientAddress(g.pool, e.VoteID, e.TransientSeed)
}

// Plan reconciles entry for epoch. It only reads from the service; the
// returned actions are executed by Apply.
func (g *Engine) Plan(ctx context.Context, entry validator.Entry, epoch uint64, allowMerge bool) (*Outcome, error) {
	out := &Outcome{Before: entry, After: entry}
	if !entry.IsStale(epoch) {
		out.Skipped = true
		out.Validator, out.Transient = Missing{}, Missing{}
		return out, nil
	}

	stakeAddr, transientAddr := g.Addresses(&entry)
	stakeAcc, err := g.svc.Get(ctx, stakeAddr)
	if err != nil {
		return nil, errors.Wrap(err, "get validator stake")
	}
	transientAcc, err := g.svc.Get(ctx, transientAddr)
	if err != nil {
		return nil, errors.Wrap(err, "get transient stake")
	}

	exp := Expectation{Authority: g.authority, Voter: entry.VoteID}
	vc := Classify(stakeAcc, exp, epoch)
	tc := Classify(transientAcc, exp, epoch)
	out.Validator, out.Transient = vc, tc

	var (
		status           = entry.Status
		active           uint64
		transient        uint64
		mergedIntoActive uint64
		// whether the active account keeps holding stake after this update
		activeRemaining = isDelegated(vc) || (!allowMerge && vc.Balance() > 0 && isMergeable(vc))
	)

	switch t := tc.(type) {
	case Missing:
		if entry.HasTransient() {
			status = status.AfterTransientMerge(activeRemaining)
		}
	case Foreign:
		logger.Debug("ignoring foreign transient account", "vote", entry.VoteID, "reason", t.Reason)
	case Mergeable:
		if !allowMerge {
			transient = t.Lamports
			break
		}
		dst := g.reserve
		if entry.PendingTarget == validator.TargetActive && status == validator.StatusDeactivatingTransient && live(vc) {
			dst = stakeAddr
			mergedIntoActive = t.Lamports
		} else if err := out.addToReserve(t.Lamports); err != nil {
			return nil, err
		}
		out.Actions = append(out.Actions, Action{Kind: ActionMerge, Dst: dst, Src: transientAddr, Lamports: t.Lamports})
		status = status.AfterTransientMerge(activeRemaining)
	case Delegated:
		v, ok := vc.(Delegated)
		if allowMerge && status == validator.StatusActive && t.Activation == stakeacct.Active &&
			ok && v.Activation == stakeacct.Active {
			out.Actions = append(out.Actions, Action{Kind: ActionMerge, Dst: stakeAddr, Src: transientAddr, Lamports: t.Lamports})
			mergedIntoActive = t.Lamports
		} else {
			// not ready to be merged anywhere yet
			transient = t.Lamports
		}
	}

	switch v := vc.(type) {
	case Missing:
	case Foreign:
		logger.Debug("ignoring foreign validator account", "vote", entry.VoteID, "reason", v.Reason)
	case Mergeable:
		if !allowMerge {
			active = v.Lamports
			break
		}
		out.Actions = append(out.Actions, Action{Kind: ActionMerge, Dst: g.reserve, Src: stakeAddr, Lamports: v.Lamports})
		if err := out.addToReserve(v.Lamports); err != nil {
			return nil, err
		}
		status = status.AfterValidatorMerge(transient > 0)
		if transient > 0 {
			// the remaining transient can only drain into the reserve now
			if live(tc) {
				out.Actions = append(out.Actions, Action{Kind: ActionDeactivate, Src: transientAddr})
			}
			out.After.PendingTarget = validator.TargetReserve
		}
	case Delegated:
		var overflow bool
		if active, overflow = math.SafeAdd(v.Lamports, mergedIntoActive); overflow {
			return nil, reverts.ErrOverflow
		}
		if allowMerge && v.Surplus > 0 {
			out.Actions = append(out.Actions, Action{Kind: ActionWithdraw, Dst: g.reserve, Src: stakeAddr, Lamports: v.Surplus})
			if err := out.addToReserve(v.Surplus); err != nil {
				return nil, err
			}
			active -= v.Surplus
		}
		// a validator on its way out must not keep a live delegation
		if allowMerge && status.Removing() && live(vc) {
			out.Actions = append(out.Actions, Action{Kind: ActionDeactivate, Src: stakeAddr})
		}
	}

	out.After.Status = status
	out.After.ActiveBalance = active
	out.After.TransientBalance = transient
	out.After.LastUpdateEpoch = epoch
	if _, err := out.After.Total(); err != nil {
		return nil, err
	}
	return out, nil
}

func (out *Outcome) addToReserve(lamports uint64) error {
	sum, overflow := math.SafeAdd(out.ToReserve, lamports)
	if overflow {
		return reverts.ErrOverflow
	}
	out.ToReserve = sum
	return nil
}

func isMergeable(c Class) bool {
	_, ok := c.(Mergeable)
	return ok
}

func isDelegated(c Class) bool {
	_, ok := c.(Delegated)
	return ok
}

// Apply performs the actions of an outcome, in order.
func (g *Engine) Apply(ctx context.Context, out *Outcome) error {
	for _, a := range out.Actions {
		var err error
		switch a.Kind {
		case ActionMerge:
			err = g.svc.Merge(ctx, a.Dst, a.Src)
		case ActionWithdraw:
			err = g.svc.Withdraw(ctx, a.Src, a.Dst, a.Lamports)
		case ActionDeactivate:
			err = g.svc.Deactivate(ctx, a.Src)
		}
		if err != nil {
			return errors.Wrapf(err, "%v %v", a.Kind, a.Src)
		}
		logger.Debug("applied stake action", "action", a.Kind, "src", a.Src, "dst", a.Dst, "lamports", a.Lamports)
	}
	return nil
}
