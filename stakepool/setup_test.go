// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stakepool

import (
	"context"
	"sync"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/stakepool/pubkey"
	"github.com/vechain/stakepool/sharetoken"
	"github.com/vechain/stakepool/stakeacct"
	"github.com/vechain/stakepool/stakeacct/sim"
	"github.com/vechain/stakepool/stakepool/accounting"
	"github.com/vechain/stakepool/stakepool/validator"
)

const (
	rent          = 10
	minDelegation = 100
	minStake      = rent + minDelegation
)

var (
	ctx         = context.Background()
	poolKey     = pubkey.BytesToPubkey([]byte("pool"))
	reserveAddr = pubkey.BytesToPubkey([]byte("reserve"))
	managerFee  = pubkey.BytesToPubkey([]byte("manager-fee"))
	alice       = pubkey.BytesToPubkey([]byte("alice"))
	bob         = pubkey.BytesToPubkey([]byte("bob"))
	vote1       = pubkey.BytesToPubkey([]byte("vote-1"))
	vote2       = pubkey.BytesToPubkey([]byte("vote-2"))
	vote3       = pubkey.BytesToPubkey([]byte("vote-3"))
	poolAuth    = stakeacct.Authorized{Staker: pubkey.Authority(poolKey), Withdrawer: pubkey.Authority(poolKey)}
)

type memStore struct {
	state  *State
	saves  int
	failAt int // number of the save that fails, zero for none
}

func (m *memStore) Load() (*State, error) {
	if m.state == nil {
		return nil, nil
	}
	return m.state.Clone(), nil
}

func (m *memStore) Save(s *State) error {
	m.saves++
	if m.saves == m.failAt {
		return errors.New("disk full")
	}
	m.state = s.Clone()
	return nil
}

type memJournal struct {
	reconciled int
	totals     []*Totals
}

func (j *memJournal) RecordReconcile(_ context.Context, _ uint64, outcomes []*accounting.Outcome) error {
	j.reconciled += len(outcomes)
	return nil
}

func (j *memJournal) RecordTotals(_ context.Context, t *Totals) error {
	cpy := *t
	j.totals = append(j.totals, &cpy)
	return nil
}

type testEnv struct {
	chain   *sim.Chain
	ledger  *sharetoken.Ledger
	store   *memStore
	journal *memJournal
	pool    *Pool
}

// newTestEnv creates a pool at epoch 1 whose reserve holds reserveLamports
// on top of rent. Wallets of alice and bob hold 1,000,000 lamports each.
func newTestEnv(t *testing.T, reserveLamports uint64, opts ...func(*Config)) *testEnv {
	chain := sim.New(stakeacct.Params{MinimumDelegation: minDelegation, RentExemptReserve: rent}, 1)
	require.NoError(t, chain.CreateStakeAccount(reserveAddr, reserveLamports+rent, poolAuth))
	require.NoError(t, chain.Fund(alice, 1_000_000))
	require.NoError(t, chain.Fund(bob, 1_000_000))

	cfg := Config{
		Pool:                   poolKey,
		Reserve:                reserveAddr,
		ManagerFeeAccount:      managerFee,
		MaxValidators:          5,
		MaxValidatorsPerUpdate: 2,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	env := &testEnv{
		chain:   chain,
		ledger:  sharetoken.NewLedger(),
		store:   &memStore{},
		journal: &memJournal{},
	}
	pool, err := Initialize(ctx, cfg, env.deps())
	require.NoError(t, err)
	env.pool = pool
	return env
}

func (e *testEnv) deps() Deps {
	return Deps{Clock: e.chain, Stake: e.chain, Shares: e.ledger, Store: e.store, Journal: e.journal}
}

func (e *testEnv) lamports(t *testing.T, addr pubkey.Pubkey) uint64 {
	acc, err := e.chain.Get(ctx, addr)
	require.NoError(t, err)
	if acc == nil {
		return 0
	}
	return acc.Lamports
}

func (e *testEnv) shares(t *testing.T, owner pubkey.Pubkey) uint64 {
	v, err := e.ledger.BalanceOf(ctx, owner)
	require.NoError(t, err)
	return v
}

func (e *testEnv) reserveBalance(t *testing.T) uint64 {
	v, err := e.pool.ReserveBalance(ctx)
	require.NoError(t, err)
	return v
}

func (e *testEnv) stakeAddress(t *testing.T, vote pubkey.Pubkey) pubkey.Pubkey {
	entry, err := e.pool.Validator(vote)
	require.NoError(t, err)
	s, _ := e.pool.Addresses(entry)
	return s
}

func (e *testEnv) transientAddress(t *testing.T, vote pubkey.Pubkey) pubkey.Pubkey {
	entry, err := e.pool.Validator(vote)
	require.NoError(t, err)
	_, tr := e.pool.Addresses(entry)
	return tr
}

func (e *testEnv) updateAll(t *testing.T) *Totals {
	totals, err := e.pool.UpdateAll(ctx, true)
	require.NoError(t, err)
	return totals
}

// checkBooks verifies that after a full update the recorded balances match
// the stake accounts and the pool value adds up.
func (e *testEnv) checkBooks(t *testing.T) {
	state := e.pool.Snapshot()
	dump := spew.Sdump(state)

	var staked uint64
	for _, entry := range state.Validators.Entries() {
		stake, transient := e.pool.Addresses(&entry)
		assert.Equal(t, e.lamports(t, stake), entry.ActiveBalance, "active balance of %v\n%s", entry.VoteID, dump)
		assert.Equal(t, e.lamports(t, transient), entry.TransientBalance, "transient balance of %v\n%s", entry.VoteID, dump)
		total, err := entry.Total()
		require.NoError(t, err)
		staked += total
	}
	assert.Equal(t, e.reserveBalance(t)+staked, state.Header.TotalValue, "pool value\n%s", dump)

	supply, err := e.ledger.Supply(ctx)
	require.NoError(t, err)
	assert.Equal(t, supply, state.Header.ShareSupply, "share supply\n%s", dump)
}

type TestFunc func(t *testing.T)

type TestSequence struct {
	env *testEnv

	funcs []TestFunc
	mu    sync.Mutex
}

func NewSequence(env *testEnv) *TestSequence {
	return &TestSequence{env: env}
}

func (st *TestSequence) AddFunc(f TestFunc) *TestSequence {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.funcs = append(st.funcs, f)
	return st
}

func (st *TestSequence) AddValidator(vote pubkey.Pubkey) *TestSequence {
	return st.AddFunc(func(t *testing.T) {
		if err := st.env.pool.AddValidator(ctx, vote, 0); err != nil {
			t.Fatalf("failed to add validator %v: %v", vote, err)
		}
	})
}

func (st *TestSequence) IncreaseStake(vote pubkey.Pubkey, amount uint64) *TestSequence {
	return st.AddFunc(func(t *testing.T) {
		if err := st.env.pool.IncreaseStake(ctx, vote, amount); err != nil {
			t.Fatalf("failed to increase stake of %v: %v", vote, err)
		}
	})
}

func (st *TestSequence) DecreaseStake(vote pubkey.Pubkey, amount uint64, target validator.Target) *TestSequence {
	return st.AddFunc(func(t *testing.T) {
		if err := st.env.pool.DecreaseStake(ctx, vote, amount, target); err != nil {
			t.Fatalf("failed to decrease stake of %v: %v", vote, err)
		}
	})
}

func (st *TestSequence) RemoveValidator(vote pubkey.Pubkey) *TestSequence {
	return st.AddFunc(func(t *testing.T) {
		if err := st.env.pool.RemoveValidator(ctx, vote); err != nil {
			t.Fatalf("failed to remove validator %v: %v", vote, err)
		}
	})
}

func (st *TestSequence) Reward(vote pubkey.Pubkey, lamports uint64) *TestSequence {
	return st.AddFunc(func(t *testing.T) {
		if err := st.env.chain.Reward(st.env.stakeAddress(t, vote), lamports); err != nil {
			t.Fatalf("failed to reward %v: %v", vote, err)
		}
	})
}

func (st *TestSequence) Deposit(from pubkey.Pubkey, lamports uint64) *TestSequence {
	return st.AddFunc(func(t *testing.T) {
		if _, err := st.env.pool.Deposit(ctx, from, lamports, nil); err != nil {
			t.Fatalf("failed to deposit %d from %v: %v", lamports, from, err)
		}
	})
}

// NextEpoch advances the clock and runs a full update.
func (st *TestSequence) NextEpoch() *TestSequence {
	return st.AddFunc(func(t *testing.T) {
		epoch := st.env.chain.AdvanceEpoch(1)
		if _, err := st.env.pool.UpdateAll(ctx, true); err != nil {
			t.Fatalf("failed to update at epoch %d: %v", epoch, err)
		}
		st.env.checkBooks(t)
	})
}

func (st *TestSequence) Run(t *testing.T) {
	st.mu.Lock()
	defer st.mu.Unlock()

	for _, f := range st.funcs {
		f(t)
	}
}

type ValidatorAssertions struct {
	pool *Pool
	vote pubkey.Pubkey

	status    *validator.Status
	active    *uint64
	transient *uint64
}

func AssertValidator(pool *Pool, vote pubkey.Pubkey) *ValidatorAssertions {
	return &ValidatorAssertions{pool: pool, vote: vote}
}

func (va *ValidatorAssertions) Status(expected validator.Status) *ValidatorAssertions {
	va.status = &expected
	return va
}

func (va *ValidatorAssertions) Active(expected uint64) *ValidatorAssertions {
	va.active = &expected
	return va
}

func (va *ValidatorAssertions) Transient(expected uint64) *ValidatorAssertions {
	va.transient = &expected
	return va
}

func (va *ValidatorAssertions) Assert(t *testing.T) {
	entry, err := va.pool.Validator(va.vote)
	require.NoError(t, err, "failed to get validator %v", va.vote)

	if va.status != nil {
		assert.Equal(t, *va.status, entry.Status, "validator %v status mismatch", va.vote)
	}
	if va.active != nil {
		assert.Equal(t, *va.active, entry.ActiveBalance, "validator %v active balance mismatch", va.vote)
	}
	if va.transient != nil {
		assert.Equal(t, *va.transient, entry.TransientBalance, "validator %v transient balance mismatch", va.vote)
	}
}
