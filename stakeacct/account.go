// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stakeacct

import (
	"github.com/vechain/stakepool/pubkey"
)

// NotDeactivated marks a delegation that was never deactivated.
const NotDeactivated = ^uint64(0)

// State of a stake account's data.
type State uint8

const (
	// StateUninitialized has no stake data, e.g. a plain wallet or a zeroed account.
	StateUninitialized State = iota
	// StateInitialized has authorities set but no delegation.
	StateInitialized
	// StateDelegated is delegated to a vote account.
	StateDelegated
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	case StateDelegated:
		return "delegated"
	default:
		return "unknown"
	}
}

// Activation is the delegation phase at a given epoch.
type Activation uint8

const (
	ActivationNone Activation = iota
	Activating
	Active
	Deactivating
	Inactive
)

func (a Activation) String() string {
	return [...]string{"none", "activating", "active", "deactivating", "inactive"}[a]
}

// Authorized holds the account authorities.
type Authorized struct {
	Staker     pubkey.Pubkey
	Withdrawer pubkey.Pubkey
}

// Lockup restricts withdrawals until Epoch unless signed by Custodian.
type Lockup struct {
	Epoch     uint64
	Custodian pubkey.Pubkey
}

// Delegation describes where and since when the stake is delegated.
type Delegation struct {
	Voter             pubkey.Pubkey
	Stake             uint64
	ActivationEpoch   uint64
	DeactivationEpoch uint64
}

// Account is a snapshot of a stake account.
type Account struct {
	Address           pubkey.Pubkey
	Lamports          uint64
	RentExemptReserve uint64
	State             State
	Authorized        Authorized
	Lockup            Lockup
	Delegation        Delegation
}

// ActivationAt returns the delegation phase at epoch.
// Stake that was activated and deactivated in the same epoch never became
// effective and is reported inactive right away.
func (a *Account) ActivationAt(epoch uint64) Activation {
	if a.State != StateDelegated {
		return ActivationNone
	}
	d := a.Delegation
	if d.DeactivationEpoch != NotDeactivated {
		if d.DeactivationEpoch < epoch || d.DeactivationEpoch == d.ActivationEpoch {
			return Inactive
		}
		return Deactivating
	}
	if d.ActivationEpoch >= epoch {
		return Activating
	}
	return Active
}

// ControlledBy reports whether both authorities and the lockup match the expected ones.
func (a *Account) ControlledBy(authority pubkey.Pubkey, lockup Lockup) bool {
	return a.Authorized.Staker == authority &&
		a.Authorized.Withdrawer == authority &&
		a.Lockup == lockup
}

// Copy returns a deep copy.
func (a *Account) Copy() *Account {
	cpy := *a
	return &cpy
}
