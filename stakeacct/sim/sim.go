// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package sim is an in-memory host chain: a stake account service plus an
// epoch clock. It backs the tests and the solo mode of the command line tool.
package sim

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/pkg/errors"

	"github.com/vechain/stakepool/log"
	"github.com/vechain/stakepool/pubkey"
	"github.com/vechain/stakepool/stakeacct"
)

var logger = log.WithContext("pkg", "sim")

var (
	ErrAccountNotFound   = errors.New("account not found")
	ErrAccountExists     = errors.New("account already exists")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidState      = errors.New("invalid account state")
	ErrMergeMismatch     = errors.New("accounts cannot be merged")
	ErrOverflow          = errors.New("lamports overflow")
)

var _ stakeacct.Service = (*Chain)(nil)

// Chain simulates the host chain. Delegations activate and deactivate fully
// at the next epoch boundary, there is no warmup or cooldown.
type Chain struct {
	mu           sync.Mutex
	epoch        uint64
	distributing bool
	params       stakeacct.Params
	accounts     map[pubkey.Pubkey]*stakeacct.Account
}

// New creates an empty chain at the given epoch.
func New(params stakeacct.Params, epoch uint64) *Chain {
	return &Chain{
		epoch:    epoch,
		params:   params,
		accounts: make(map[pubkey.Pubkey]*stakeacct.Account),
	}
}

// CurrentEpoch returns the current epoch.
func (c *Chain) CurrentEpoch(context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch, nil
}

// RewardDistributionActive reports whether epoch rewards are being paid out.
func (c *Chain) RewardDistributionActive(context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.distributing, nil
}

// AdvanceEpoch moves the clock forward by n epochs.
func (c *Chain) AdvanceEpoch(n uint64) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch += n
	logger.Debug("epoch advanced", "epoch", c.epoch)
	return c.epoch
}

// SetRewardDistribution toggles the reward payout window.
func (c *Chain) SetRewardDistribution(active bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.distributing = active
}

func (c *Chain) Get(_ context.Context, addr pubkey.Pubkey) (*stakeacct.Account, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if acc, ok := c.accounts[addr]; ok {
		return acc.Copy(), nil
	}
	return nil, nil
}

func (c *Chain) Params(context.Context) (stakeacct.Params, error) {
	return c.params, nil
}

func (c *Chain) CreateDelegated(
	_ context.Context,
	from, to pubkey.Pubkey,
	lamports uint64,
	voter pubkey.Pubkey,
	auth stakeacct.Authorized,
) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	src, err := c.mustGet(from)
	if err != nil {
		return err
	}
	if _, ok := c.accounts[to]; ok {
		return errors.WithMessage(ErrAccountExists, to.String())
	}
	if lamports < c.params.RentExemptReserve+c.params.MinimumDelegation {
		return errors.WithMessage(ErrInsufficientFunds, "below minimum delegation")
	}
	if c.free(src) < lamports {
		return errors.WithMessage(ErrInsufficientFunds, from.String())
	}
	c.debit(src, lamports)
	c.accounts[to] = &stakeacct.Account{
		Address:           to,
		Lamports:          lamports,
		RentExemptReserve: c.params.RentExemptReserve,
		State:             stakeacct.StateDelegated,
		Authorized:        auth,
		Delegation: stakeacct.Delegation{
			Voter:             voter,
			Stake:             lamports - c.params.RentExemptReserve,
			ActivationEpoch:   c.epoch,
			DeactivationEpoch: stakeacct.NotDeactivated,
		},
	}
	return nil
}

func (c *Chain) Split(_ context.Context, from, to pubkey.Pubkey, lamports uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	src, err := c.mustGet(from)
	if err != nil {
		return err
	}
	if src.State == stakeacct.StateUninitialized {
		return errors.WithMessage(ErrInvalidState, "split from non stake account")
	}
	if _, ok := c.accounts[to]; ok {
		return errors.WithMessage(ErrAccountExists, to.String())
	}
	rent := c.params.RentExemptReserve
	if lamports > src.Lamports || lamports < rent {
		return errors.WithMessage(ErrInsufficientFunds, "split amount")
	}
	remaining := src.Lamports - lamports
	if remaining != 0 && remaining < src.RentExemptReserve {
		return errors.WithMessage(ErrInsufficientFunds, "split leaves source below rent")
	}

	surplus := c.surplus(src)
	if remaining != 0 && src.State == stakeacct.StateDelegated && remaining < src.RentExemptReserve+surplus {
		return errors.WithMessage(ErrInsufficientFunds, "split leaves source below rent")
	}

	dst := src.Copy()
	dst.Address = to
	dst.Lamports = lamports
	dst.RentExemptReserve = rent
	if dst.State == stakeacct.StateDelegated {
		dst.Delegation.Stake = lamports - rent
	}

	if remaining == 0 {
		delete(c.accounts, from)
	} else {
		src.Lamports = remaining
		if src.State == stakeacct.StateDelegated {
			src.Delegation.Stake = remaining - src.RentExemptReserve - surplus
		}
	}
	c.accounts[to] = dst
	return nil
}

func (c *Chain) Merge(_ context.Context, dstAddr, srcAddr pubkey.Pubkey) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if dstAddr == srcAddr {
		return errors.WithMessage(ErrMergeMismatch, "merge into itself")
	}
	dst, err := c.mustGet(dstAddr)
	if err != nil {
		return err
	}
	src, err := c.mustGet(srcAddr)
	if err != nil {
		return err
	}
	if src.State == stakeacct.StateUninitialized || dst.State == stakeacct.StateUninitialized {
		return errors.WithMessage(ErrMergeMismatch, "not a stake account")
	}
	if src.Authorized != dst.Authorized || src.Lockup != dst.Lockup {
		return errors.WithMessage(ErrMergeMismatch, "authority mismatch")
	}

	srcAct, dstAct := src.ActivationAt(c.epoch), dst.ActivationAt(c.epoch)
	if srcAct == stakeacct.Deactivating || dstAct == stakeacct.Deactivating {
		return errors.WithMessage(ErrMergeMismatch, "deactivating stake")
	}
	srcLive := srcAct == stakeacct.Active || srcAct == stakeacct.Activating
	if srcLive {
		if srcAct != dstAct || src.Delegation.Voter != dst.Delegation.Voter {
			return errors.WithMessage(ErrMergeMismatch, "delegation mismatch")
		}
		if srcAct == stakeacct.Activating && src.Delegation.ActivationEpoch != dst.Delegation.ActivationEpoch {
			return errors.WithMessage(ErrMergeMismatch, "activation epoch mismatch")
		}
	}

	total, overflow := math.SafeAdd(dst.Lamports, src.Lamports)
	if overflow {
		return ErrOverflow
	}
	dst.Lamports = total
	if dstAct == stakeacct.Active || dstAct == stakeacct.Activating {
		dst.Delegation.Stake += src.Lamports
	}
	delete(c.accounts, srcAddr)
	return nil
}

func (c *Chain) Deactivate(_ context.Context, addr pubkey.Pubkey) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	acc, err := c.mustGet(addr)
	if err != nil {
		return err
	}
	if acc.State != stakeacct.StateDelegated || acc.Delegation.DeactivationEpoch != stakeacct.NotDeactivated {
		return errors.WithMessage(ErrInvalidState, "not an active delegation")
	}
	acc.Delegation.DeactivationEpoch = c.epoch
	return nil
}

func (c *Chain) Delegate(_ context.Context, addr, voter pubkey.Pubkey) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	acc, err := c.mustGet(addr)
	if err != nil {
		return err
	}
	switch acc.ActivationAt(c.epoch) {
	case stakeacct.ActivationNone:
		if acc.State != stakeacct.StateInitialized {
			return errors.WithMessage(ErrInvalidState, "not a stake account")
		}
	case stakeacct.Inactive:
	default:
		return errors.WithMessage(ErrInvalidState, "already delegated")
	}
	if acc.Lamports < acc.RentExemptReserve+c.params.MinimumDelegation {
		return errors.WithMessage(ErrInsufficientFunds, "below minimum delegation")
	}
	acc.State = stakeacct.StateDelegated
	acc.Delegation = stakeacct.Delegation{
		Voter:             voter,
		Stake:             acc.Lamports - acc.RentExemptReserve,
		ActivationEpoch:   c.epoch,
		DeactivationEpoch: stakeacct.NotDeactivated,
	}
	return nil
}

func (c *Chain) Authorize(_ context.Context, addr pubkey.Pubkey, auth stakeacct.Authorized) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	acc, err := c.mustGet(addr)
	if err != nil {
		return err
	}
	if acc.State == stakeacct.StateUninitialized {
		return errors.WithMessage(ErrInvalidState, "not a stake account")
	}
	acc.Authorized = auth
	return nil
}

func (c *Chain) Withdraw(_ context.Context, from, to pubkey.Pubkey, lamports uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	src, err := c.mustGet(from)
	if err != nil {
		return err
	}
	if src.State == stakeacct.StateUninitialized {
		return errors.WithMessage(ErrInvalidState, "not a stake account")
	}
	closing := lamports == src.Lamports && c.free(src) == src.Lamports-src.RentExemptReserve
	if !closing && c.free(src) < lamports {
		return errors.WithMessage(ErrInsufficientFunds, from.String())
	}
	if err := c.credit(to, lamports); err != nil {
		return err
	}
	if closing {
		delete(c.accounts, from)
	} else {
		c.debit(src, lamports)
	}
	return nil
}

func (c *Chain) Transfer(_ context.Context, from, to pubkey.Pubkey, lamports uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	src, err := c.mustGet(from)
	if err != nil {
		return err
	}
	if src.State != stakeacct.StateUninitialized {
		return errors.WithMessage(ErrInvalidState, "transfer from stake account")
	}
	if src.Lamports < lamports {
		return errors.WithMessage(ErrInsufficientFunds, from.String())
	}
	if err := c.credit(to, lamports); err != nil {
		return err
	}
	src.Lamports -= lamports
	return nil
}

// Fund credits lamports to addr, creating a wallet if nothing is there.
func (c *Chain) Fund(addr pubkey.Pubkey, lamports uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.credit(addr, lamports)
}

// CreateStakeAccount creates an initialized, undelegated stake account.
func (c *Chain) CreateStakeAccount(addr pubkey.Pubkey, lamports uint64, auth stakeacct.Authorized) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.accounts[addr]; ok {
		return errors.WithMessage(ErrAccountExists, addr.String())
	}
	if lamports < c.params.RentExemptReserve {
		return errors.WithMessage(ErrInsufficientFunds, "below rent exempt reserve")
	}
	c.accounts[addr] = &stakeacct.Account{
		Address:           addr,
		Lamports:          lamports,
		RentExemptReserve: c.params.RentExemptReserve,
		State:             stakeacct.StateInitialized,
		Authorized:        auth,
	}
	return nil
}

// Reward pays staking rewards into an active delegation.
func (c *Chain) Reward(addr pubkey.Pubkey, lamports uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	acc, err := c.mustGet(addr)
	if err != nil {
		return err
	}
	if act := acc.ActivationAt(c.epoch); act != stakeacct.Active && act != stakeacct.Deactivating {
		return errors.WithMessage(ErrInvalidState, "no effective stake")
	}
	total, overflow := math.SafeAdd(acc.Lamports, lamports)
	if overflow {
		return ErrOverflow
	}
	acc.Lamports = total
	acc.Delegation.Stake += lamports
	return nil
}

// Put stores acc as is, replacing whatever was at its address. Tests use it
// to simulate cluster restarts and accounts planted by third parties.
func (c *Chain) Put(acc *stakeacct.Account) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accounts[acc.Address] = acc.Copy()
}

// Remove deletes the account at addr.
func (c *Chain) Remove(addr pubkey.Pubkey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.accounts, addr)
}

func (c *Chain) mustGet(addr pubkey.Pubkey) (*stakeacct.Account, error) {
	acc, ok := c.accounts[addr]
	if !ok {
		return nil, errors.WithMessage(ErrAccountNotFound, addr.String())
	}
	return acc, nil
}

// surplus returns lamports of a live delegation above stake and rent.
func (c *Chain) surplus(acc *stakeacct.Account) uint64 {
	if acc.State != stakeacct.StateDelegated {
		return 0
	}
	bound := acc.RentExemptReserve + acc.Delegation.Stake
	if acc.Lamports <= bound {
		return 0
	}
	return acc.Lamports - bound
}

// free returns the lamports that can leave the account without closing it.
func (c *Chain) free(acc *stakeacct.Account) uint64 {
	switch acc.ActivationAt(c.epoch) {
	case stakeacct.ActivationNone, stakeacct.Inactive:
		if acc.State == stakeacct.StateUninitialized {
			return acc.Lamports
		}
		if acc.Lamports <= acc.RentExemptReserve {
			return 0
		}
		return acc.Lamports - acc.RentExemptReserve
	default:
		return c.surplus(acc)
	}
}

func (c *Chain) debit(acc *stakeacct.Account, lamports uint64) {
	acc.Lamports -= lamports
}

func (c *Chain) credit(addr pubkey.Pubkey, lamports uint64) error {
	acc, ok := c.accounts[addr]
	if !ok {
		c.accounts[addr] = &stakeacct.Account{Address: addr, Lamports: lamports}
		return nil
	}
	total, overflow := math.SafeAdd(acc.Lamports, lamports)
	if overflow {
		return ErrOverflow
	}
	acc.Lamports = total
	return nil
}
