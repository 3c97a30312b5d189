// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package fees

import (
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/vechain/stakepool/stakepool/reverts"
)

var ErrEmptyPool = reverts.New(reverts.KindFunds, "pool has no shares or value")

// mulDiv computes a*b/c on 256 bits. The result must fit 64 bits.
func mulDiv(a, b, c uint64, roundUp bool) (uint64, error) {
	if c == 0 {
		return 0, errors.WithMessage(reverts.ErrOverflow, "division by zero")
	}
	prod := new(uint256.Int).Mul(uint256.NewInt(a), uint256.NewInt(b))
	quo, rem := new(uint256.Int), new(uint256.Int)
	quo.DivMod(prod, uint256.NewInt(c), rem)
	if roundUp && !rem.IsZero() {
		quo.AddUint64(quo, 1)
	}
	if !quo.IsUint64() {
		return 0, reverts.ErrOverflow
	}
	return quo.Uint64(), nil
}

// SharesForDeposit converts deposited lamports to shares, rounding down.
// An empty pool issues shares one for one.
func SharesForDeposit(lamports, totalValue, supply uint64) (uint64, error) {
	if totalValue == 0 || supply == 0 {
		return lamports, nil
	}
	return mulDiv(lamports, supply, totalValue, false)
}

// LamportsForShares converts shares to the lamports they redeem, rounding down.
func LamportsForShares(shares, totalValue, supply uint64) (uint64, error) {
	if supply == 0 {
		return 0, ErrEmptyPool
	}
	return mulDiv(shares, totalValue, supply, false)
}

// SharesForLamports returns the shares to burn to receive lamports, rounding up.
func SharesForLamports(lamports, totalValue, supply uint64) (uint64, error) {
	if totalValue == 0 || supply == 0 {
		return 0, ErrEmptyPool
	}
	return mulDiv(lamports, supply, totalValue, true)
}

// EpochFeeShares returns the shares minted to the manager so that, after
// minting, the manager's shares are worth the fee taken on reward.
// prevTotal is the pool value before the reward was added.
func EpochFeeShares(reward, prevTotal, supply uint64, fee Fee) (uint64, error) {
	if reward == 0 || fee.IsZero() {
		return 0, nil
	}
	total, overflow := math.SafeAdd(prevTotal, reward)
	if overflow {
		return 0, reverts.ErrOverflow
	}
	feeLamports, err := fee.Apply(reward)
	if err != nil {
		return 0, err
	}
	if total == feeLamports || supply == 0 {
		return reward, nil
	}
	return mulDiv(supply, feeLamports, total-feeLamports, false)
}

// ReferralShares returns the referrer's part of a deposit fee, rounding down.
func ReferralShares(depositFee uint64, percent uint8) (uint64, error) {
	return mulDiv(depositFee, uint64(percent), 100, false)
}
