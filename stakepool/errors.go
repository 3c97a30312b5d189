// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stakepool

import (
	"github.com/vechain/stakepool/stakepool/fees"
	"github.com/vechain/stakepool/stakepool/registry"
	"github.com/vechain/stakepool/stakepool/reserve"
	"github.com/vechain/stakepool/stakepool/reverts"
	"github.com/vechain/stakepool/stakepool/validator"
)

var (
	ErrValidatorNotFound     = validator.ErrNotFound
	ErrWrongStatus           = validator.ErrWrongStatus
	ErrTransientInProgress   = validator.ErrTransientInProgress
	ErrAmountTooLarge        = validator.ErrAmountTooLarge
	ErrZeroAmount            = validator.ErrZeroAmount
	ErrRegistryFull          = registry.ErrFull
	ErrValidatorAlreadyAdded = registry.ErrAlreadyAdded
	ErrReserveTooLow         = reserve.ErrReserveTooLow
	ErrInvalidReserve        = reserve.ErrInvalidReserve
	ErrInvalidFee            = fees.ErrInvalidFee
	ErrOverflow              = reverts.ErrOverflow

	ErrAlreadyInitialized = reverts.New(reverts.KindState, "pool already initialized")
	ErrNotInitialized     = reverts.New(reverts.KindState, "pool not initialized")
	ErrInvalidShareSupply = reverts.New(reverts.KindState, "share supply must be zero at initialization")

	ErrPoolOutOfDate                     = reverts.New(reverts.KindStaleness, "pool not updated for the current epoch")
	ErrStaleValidatorList                = reverts.New(reverts.KindStaleness, "validator list not updated for the current epoch")
	ErrEpochRewardDistributionInProgress = reverts.New(reverts.KindStaleness, "epoch reward distribution in progress")

	ErrStakeTooSmall              = reverts.New(reverts.KindFunds, "stake amount below the minimum delegation")
	ErrStakeBelowMinimum          = reverts.New(reverts.KindFunds, "remaining stake would fall below the minimum delegation")
	ErrDepositTooSmall            = reverts.New(reverts.KindFunds, "deposit too small to receive shares")
	ErrWithdrawalTooSmall         = reverts.New(reverts.KindFunds, "withdrawal too small")
	ErrInsufficientShares         = reverts.New(reverts.KindFunds, "not enough shares")
	ErrIncorrectWithdrawValidator = reverts.New(reverts.KindState, "withdrawal must come from the preferred validator")
	ErrIncorrectDepositValidator  = reverts.New(reverts.KindState, "stake must be delegated to the preferred deposit validator")
	ErrInvalidStakeAccount        = reverts.New(reverts.KindState, "stake account cannot be deposited")
	ErrActiveStakeAvailable       = reverts.New(reverts.KindState, "active stake must be withdrawn before transient stake")
	ErrExceededSlippage           = reverts.New(reverts.KindFunds, "result below the requested minimum")
)
