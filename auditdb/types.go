// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package auditdb

import (
	"github.com/vechain/stakepool/pubkey"
	"github.com/vechain/stakepool/stakepool/validator"
)

// Reconcile is the journal record of one reconciled entry.
type Reconcile struct {
	Seq            uint64           `json:"seq"`
	Epoch          uint64           `json:"epoch"`
	Vote           pubkey.Pubkey    `json:"vote"`
	StatusBefore   validator.Status `json:"statusBefore"`
	Status         validator.Status `json:"status"`
	Active         uint64           `json:"active"`
	Transient      uint64           `json:"transient"`
	ToReserve      uint64           `json:"toReserve"`
	ValidatorClass string           `json:"validatorClass"`
	TransientClass string           `json:"transientClass"`
	Actions        uint32           `json:"actions"`
}

// Totals is the journal record of one pool balance update.
type Totals struct {
	Seq            uint64 `json:"seq"`
	Epoch          uint64 `json:"epoch"`
	NewEpoch       bool   `json:"newEpoch"`
	Reserve        uint64 `json:"reserve"`
	Staked         uint64 `json:"staked"`
	TotalValue     uint64 `json:"totalValue"`
	PrevTotalValue uint64 `json:"prevTotalValue"`
	ShareSupply    uint64 `json:"shareSupply"`
	Reward         uint64 `json:"reward"`
	FeeShares      uint64 `json:"feeShares"`
}

type Order int

const (
	ASC Order = iota
	DESC
)

// Range of epochs, both inclusive. To below From means unbounded.
type Range struct {
	From uint64
	To   uint64
}

type Options struct {
	Offset uint64
	Limit  uint64
}

// Filter selects journal records.
type Filter struct {
	Range   *Range
	Vote    *pubkey.Pubkey
	Order   Order
	Options *Options
}
