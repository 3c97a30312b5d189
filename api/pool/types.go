// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pool

import (
	"github.com/vechain/stakepool/api/utils"
	"github.com/vechain/stakepool/pubkey"
	"github.com/vechain/stakepool/stakepool"
	"github.com/vechain/stakepool/stakepool/fees"
	"github.com/vechain/stakepool/stakepool/validator"
)

type Header struct {
	Pool              pubkey.Pubkey  `json:"pool"`
	Authority         pubkey.Pubkey  `json:"authority"`
	Reserve           pubkey.Pubkey  `json:"reserve"`
	ReserveBalance    uint64         `json:"reserveBalance"`
	Manager           pubkey.Pubkey  `json:"manager"`
	Staker            pubkey.Pubkey  `json:"staker"`
	ManagerFeeAccount pubkey.Pubkey  `json:"managerFeeAccount"`
	TotalValue        uint64         `json:"totalValue"`
	TotalValueSOL     string         `json:"totalValueSol"`
	ShareSupply       uint64         `json:"shareSupply"`
	ExchangeRate      string         `json:"exchangeRate"`
	LastUpdateEpoch   uint64         `json:"lastUpdateEpoch"`
	PreferredDeposit  *pubkey.Pubkey `json:"preferredDeposit"`
	PreferredWithdraw *pubkey.Pubkey `json:"preferredWithdraw"`
	Fees              fees.Schedule  `json:"fees"`
	NextEpochFee      *fees.Fee      `json:"nextEpochFee"`
	Validators        int            `json:"validators"`
	MaxValidators     uint32         `json:"maxValidators"`
}

func convertHeader(h *stakepool.Header, reserve uint64, validators int) *Header {
	return &Header{
		Pool:              h.Pool,
		Authority:         h.Authority,
		Reserve:           h.Reserve,
		ReserveBalance:    reserve,
		Manager:           h.Manager,
		Staker:            h.Staker,
		ManagerFeeAccount: h.ManagerFeeAccount,
		TotalValue:        h.TotalValue,
		TotalValueSOL:     utils.SOL(h.TotalValue),
		ShareSupply:       h.ShareSupply,
		ExchangeRate:      utils.Rate(h.TotalValue, h.ShareSupply),
		LastUpdateEpoch:   h.LastUpdateEpoch,
		PreferredDeposit:  h.Preferred.Deposit,
		PreferredWithdraw: h.Preferred.Withdraw,
		Fees:              h.Fees,
		NextEpochFee:      h.NextEpochFee,
		Validators:        validators,
		MaxValidators:     h.MaxValidators,
	}
}

type Validator struct {
	Vote             pubkey.Pubkey    `json:"vote"`
	Status           validator.Status `json:"status"`
	ActiveBalance    uint64           `json:"activeBalance"`
	TransientBalance uint64           `json:"transientBalance"`
	TotalSOL         string           `json:"totalSol"`
	LastUpdateEpoch  uint64           `json:"lastUpdateEpoch"`
	StakeAccount     pubkey.Pubkey    `json:"stakeAccount"`
	TransientAccount pubkey.Pubkey    `json:"transientAccount"`
	PendingTarget    *string          `json:"pendingTarget,omitempty"`
}

// ConvertValidator builds the view of an entry and its stake accounts.
func ConvertValidator(e *validator.Entry, stake, transient pubkey.Pubkey) *Validator {
	v := &Validator{
		Vote:             e.VoteID,
		Status:           e.Status,
		ActiveBalance:    e.ActiveBalance,
		TransientBalance: e.TransientBalance,
		LastUpdateEpoch:  e.LastUpdateEpoch,
		StakeAccount:     stake,
		TransientAccount: transient,
	}
	if total, err := e.Total(); err == nil {
		v.TotalSOL = utils.SOL(total)
	}
	if e.Status == validator.StatusDeactivatingTransient || e.Status == validator.StatusDeactivatingAll {
		target := e.PendingTarget.String()
		v.PendingTarget = &target
	}
	return v
}
