// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package utils

import (
	"math/big"

	"github.com/shopspring/decimal"
)

const lamportsDecimals = 9

// SOL formats lamports as SOL.
func SOL(lamports uint64) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(lamports), -lamportsDecimals).String()
}

// Rate formats num/den with 9 decimals, or "0" for a zero den.
func Rate(num, den uint64) string {
	if den == 0 {
		return "0"
	}
	n := decimal.NewFromBigInt(new(big.Int).SetUint64(num), 0)
	d := decimal.NewFromBigInt(new(big.Int).SetUint64(den), 0)
	return n.DivRound(d, lamportsDecimals).StringFixed(lamportsDecimals)
}
