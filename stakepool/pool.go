// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stakepool

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/vechain/stakepool/log"
	"github.com/vechain/stakepool/pubkey"
	"github.com/vechain/stakepool/sharetoken"
	"github.com/vechain/stakepool/stakeacct"
	"github.com/vechain/stakepool/stakepool/accounting"
	"github.com/vechain/stakepool/stakepool/fees"
	"github.com/vechain/stakepool/stakepool/preferred"
	"github.com/vechain/stakepool/stakepool/registry"
	"github.com/vechain/stakepool/stakepool/reserve"
	"github.com/vechain/stakepool/stakepool/validator"
)

var logger = log.WithContext("pkg", "stakepool")

// DefaultMaxValidatorsPerUpdate bounds a reconciliation batch when the
// config leaves it unset.
const DefaultMaxValidatorsPerUpdate = 10

// Config describes a new pool.
type Config struct {
	Pool                   pubkey.Pubkey
	Reserve                pubkey.Pubkey
	Manager                pubkey.Pubkey
	Staker                 pubkey.Pubkey
	ManagerFeeAccount      pubkey.Pubkey
	MaxValidators          uint32
	MaxValidatorsPerUpdate uint32
	MinimumReserve         uint64
	Fees                   fees.Schedule
}

// Header is the pool wide state.
type Header struct {
	Pool              pubkey.Pubkey
	Authority         pubkey.Pubkey
	Reserve           pubkey.Pubkey
	Manager           pubkey.Pubkey
	Staker            pubkey.Pubkey
	ManagerFeeAccount pubkey.Pubkey

	TotalValue      uint64
	ShareSupply     uint64
	LastUpdateEpoch uint64

	// values as of the end of the previous epoch
	LastEpochTotalValue  uint64
	LastEpochShareSupply uint64
	// epoch fee shares recorded by the epoch roll and not yet minted
	PendingEpochFee uint64

	Preferred    preferred.Policy
	Fees         fees.Schedule
	NextEpochFee *fees.Fee `rlp:"nil"`

	MaxValidators          uint32
	MaxValidatorsPerUpdate uint32
	MinimumReserve         uint64

	// counts stake accounts split off for withdrawing holders
	WithdrawalSeq uint64
}

// Clone returns a copy sharing nothing with h.
func (h Header) Clone() Header {
	cpy := h
	cpy.Preferred = h.Preferred.Clone()
	if h.NextEpochFee != nil {
		f := *h.NextEpochFee
		cpy.NextEpochFee = &f
	}
	return cpy
}

// State is everything the pool persists.
type State struct {
	Header     Header
	Validators *registry.Registry
}

// Clone returns a deep copy.
func (s *State) Clone() *State {
	return &State{
		Header:     s.Header.Clone(),
		Validators: s.Validators.Clone(),
	}
}

func (s *State) lookup(vote pubkey.Pubkey) *validator.Entry {
	_, e := s.Validators.Find(vote)
	return e
}

// Store persists the pool state. Load returns nil when nothing was saved yet.
type Store interface {
	Load() (*State, error)
	Save(*State) error
}

// Clock tells the current epoch of the host chain.
type Clock interface {
	CurrentEpoch(ctx context.Context) (uint64, error)
	// RewardDistributionActive reports whether epoch rewards are still being
	// paid out, during which balances are not final.
	RewardDistributionActive(ctx context.Context) (bool, error)
}

// Journal receives the result of every committed epoch update.
type Journal interface {
	RecordReconcile(ctx context.Context, epoch uint64, outcomes []*accounting.Outcome) error
	RecordTotals(ctx context.Context, totals *Totals) error
}

// Deps are the collaborators of a pool. Journal is optional.
type Deps struct {
	Clock   Clock
	Stake   stakeacct.Service
	Shares  sharetoken.Service
	Store   Store
	Journal Journal
}

func (d *Deps) validate() error {
	if d.Clock == nil || d.Stake == nil || d.Shares == nil || d.Store == nil {
		return errors.New("stakepool: missing dependency")
	}
	return nil
}

// Pool is a stake pool. Operations are serialised; each one works on a copy
// of the state which is only committed when the operation succeeds.
type Pool struct {
	mu      sync.Mutex
	deps    Deps
	state   *State
	engine  *accounting.Engine
	reserve *reserve.Manager
}

func newPool(deps Deps, state *State) *Pool {
	h := &state.Header
	p := &Pool{
		deps:   deps,
		state:  state,
		engine: accounting.New(h.Pool, h.Reserve, deps.Stake),
		reserve: &reserve.Manager{
			Address:   h.Reserve,
			Authority: h.Authority,
			Minimum:   h.MinimumReserve,
		},
	}
	p.updateGauges()
	return p
}

// Initialize creates a pool. The reserve stake account must already exist,
// be controlled by the pool authority and hold at least the minimum reserve.
// Any lamports in it are issued as shares one for one to the manager fee account.
func Initialize(ctx context.Context, cfg Config, deps Deps) (*Pool, error) {
	logger.Debug("initializing pool", "pool", cfg.Pool, "reserve", cfg.Reserve)
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Fees.Validate(); err != nil {
		return nil, err
	}
	if cfg.MaxValidatorsPerUpdate == 0 {
		cfg.MaxValidatorsPerUpdate = DefaultMaxValidatorsPerUpdate
	}
	reg, err := registry.New(cfg.MaxValidators)
	if err != nil {
		return nil, err
	}

	existing, err := deps.Store.Load()
	if err != nil {
		return nil, errors.Wrap(err, "load state")
	}
	if existing != nil {
		return nil, ErrAlreadyInitialized
	}

	epoch, err := deps.Clock.CurrentEpoch(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "current epoch")
	}
	supply, err := deps.Shares.Supply(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "share supply")
	}
	if supply != 0 {
		return nil, errors.WithMessagef(ErrInvalidShareSupply, "supply %d", supply)
	}

	state := &State{
		Header: Header{
			Pool:                   cfg.Pool,
			Authority:              pubkey.Authority(cfg.Pool),
			Reserve:                cfg.Reserve,
			Manager:                cfg.Manager,
			Staker:                 cfg.Staker,
			ManagerFeeAccount:      cfg.ManagerFeeAccount,
			LastUpdateEpoch:        epoch,
			Fees:                   cfg.Fees,
			MaxValidators:          cfg.MaxValidators,
			MaxValidatorsPerUpdate: cfg.MaxValidatorsPerUpdate,
			MinimumReserve:         cfg.MinimumReserve,
		},
		Validators: reg,
	}
	p := newPool(deps, state)

	balance, err := p.reserve.Balance(ctx, deps.Stake)
	if err != nil {
		logger.Info("initialize pool failed", "pool", cfg.Pool, "error", err)
		return nil, err
	}
	if err := p.reserve.CheckMinimum(balance); err != nil {
		logger.Info("initialize pool failed", "pool", cfg.Pool, "error", err)
		return nil, err
	}
	if balance > 0 {
		if err := deps.Shares.Mint(ctx, cfg.ManagerFeeAccount, balance); err != nil {
			return nil, errors.Wrap(err, "mint initial shares")
		}
	}
	h := &state.Header
	h.TotalValue, h.ShareSupply = balance, balance
	h.LastEpochTotalValue, h.LastEpochShareSupply = balance, balance

	if err := deps.Store.Save(state); err != nil {
		return nil, errors.Wrap(err, "save state")
	}
	p.updateGauges()
	logger.Info("initialized pool", "pool", cfg.Pool, "authority", h.Authority, "value", balance)
	return p, nil
}

// Open loads a previously initialized pool.
func Open(deps Deps) (*Pool, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	state, err := deps.Store.Load()
	if err != nil {
		return nil, errors.Wrap(err, "load state")
	}
	if state == nil {
		return nil, ErrNotInitialized
	}
	return newPool(deps, state), nil
}

// Header returns a copy of the pool header.
func (p *Pool) Header() Header {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.Header.Clone()
}

// Validators returns copies of all entries, in registry order.
func (p *Pool) Validators() []validator.Entry {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.Validators.Entries()
}

// Validator returns a copy of the entry for vote.
func (p *Pool) Validator(vote pubkey.Pubkey) (*validator.Entry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e := p.state.lookup(vote)
	if e == nil {
		return nil, errors.WithMessage(ErrValidatorNotFound, vote.String())
	}
	cpy := *e
	return &cpy, nil
}

// Snapshot returns a copy of the whole state.
func (p *Pool) Snapshot() *State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.Clone()
}

// Addresses returns the validator and transient stake account addresses of e.
func (p *Pool) Addresses(e *validator.Entry) (stake, transient pubkey.Pubkey) {
	return p.engine.Addresses(e)
}

// Preferred returns the preferred validator of kind if it is still valid.
// A stale preference is cleared and the change saved.
func (p *Pool) Preferred(kind preferred.Kind) (*pubkey.Pubkey, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	next := p.state.Clone()
	vote, reset := next.Header.Preferred.Resolve(kind, next.lookup)
	if !reset {
		return vote, nil
	}
	logger.Debug("reset preferred validator", "kind", kind)
	return nil, p.commit(next)
}

// ReserveBalance returns the lamports the reserve holds for the pool.
func (p *Pool) ReserveBalance(ctx context.Context) (uint64, error) {
	return p.reserve.Balance(ctx, p.deps.Stake)
}

// commit persists next and makes it the current state.
func (p *Pool) commit(next *State) error {
	if err := p.deps.Store.Save(next); err != nil {
		return errors.Wrap(err, "save state")
	}
	p.state = next
	p.updateGauges()
	return nil
}

// run executes op on a copy of the state and commits it on success.
func (p *Pool) run(op string, fn func(next *State) error) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	next := p.state.Clone()
	if err := fn(next); err != nil {
		countOp(op, err)
		return err
	}
	err := p.commit(next)
	countOp(op, err)
	return err
}

// requireFresh fails unless the pool was updated in the current epoch.
func (p *Pool) requireFresh(ctx context.Context, h *Header) (uint64, error) {
	epoch, err := p.deps.Clock.CurrentEpoch(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "current epoch")
	}
	if h.LastUpdateEpoch < epoch {
		return 0, errors.WithMessagef(ErrPoolOutOfDate, "updated at %d, current %d", h.LastUpdateEpoch, epoch)
	}
	if h.PendingEpochFee > 0 {
		return 0, errors.WithMessagef(ErrPoolOutOfDate, "epoch fee of %d shares not minted", h.PendingEpochFee)
	}
	return epoch, nil
}
