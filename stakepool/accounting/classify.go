// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package accounting

import (
	"github.com/vechain/stakepool/pubkey"
	"github.com/vechain/stakepool/stakeacct"
)

// Expectation is what a stake account must look like to count for the pool.
type Expectation struct {
	Authority pubkey.Pubkey
	Voter     pubkey.Pubkey
}

// Class is the classification of a stake account found at an address the
// pool derived. It is one of Missing, Foreign, Mergeable or Delegated.
type Class interface {
	// Balance is the lamports the account holds, zero when absent.
	Balance() uint64
	String() string
	class()
}

// Missing means nothing usable is at the address.
type Missing struct{}

// Foreign is an account the pool does not control. It is never counted and
// never touched.
type Foreign struct {
	Lamports uint64
	Reason   string
}

// Mergeable is a controlled account holding no live delegation: it was reset
// to initialized, or its delegation is fully inactive.
type Mergeable struct {
	Lamports uint64
}

// Delegated is a controlled account with a live delegation.
type Delegated struct {
	Lamports        uint64
	Surplus         uint64 // lamports above stake and rent
	Activation      stakeacct.Activation
	ActivationEpoch uint64
}

func (Missing) Balance() uint64     { return 0 }
func (c Foreign) Balance() uint64   { return c.Lamports }
func (c Mergeable) Balance() uint64 { return c.Lamports }
func (c Delegated) Balance() uint64 { return c.Lamports }

func (Missing) String() string   { return "missing" }
func (Foreign) String() string   { return "foreign" }
func (Mergeable) String() string { return "mergeable" }
func (Delegated) String() string { return "delegated" }

func (Missing) class()   {}
func (Foreign) class()   {}
func (Mergeable) class() {}
func (Delegated) class() {}

// Classify decides how the pool treats acc at epoch.
func Classify(acc *stakeacct.Account, exp Expectation, epoch uint64) Class {
	if acc == nil || acc.State == stakeacct.StateUninitialized {
		return Missing{}
	}
	if !acc.ControlledBy(exp.Authority, stakeacct.Lockup{}) {
		return Foreign{Lamports: acc.Lamports, Reason: "authority or lockup mismatch"}
	}
	if acc.State == stakeacct.StateInitialized {
		return Mergeable{Lamports: acc.Lamports}
	}
	if acc.Delegation.Voter != exp.Voter {
		return Foreign{Lamports: acc.Lamports, Reason: "delegated elsewhere"}
	}

	act := acc.ActivationAt(epoch)
	if act == stakeacct.Inactive {
		return Mergeable{Lamports: acc.Lamports}
	}
	var surplus uint64
	if bound := acc.RentExemptReserve + acc.Delegation.Stake; acc.Lamports > bound {
		surplus = acc.Lamports - bound
	}
	return Delegated{
		Lamports:        acc.Lamports,
		Surplus:         surplus,
		Activation:      act,
		ActivationEpoch: acc.Delegation.ActivationEpoch,
	}
}

// live reports whether c is a delegation that can still take merges.
func live(c Class) bool {
	d, ok := c.(Delegated)
	return ok && d.Activation != stakeacct.Deactivating
}
