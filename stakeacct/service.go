// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package stakeacct defines the host chain's stake account service as seen by
// the pool. Implementations are trusted to report balances and states truthfully.
package stakeacct

import (
	"context"

	"github.com/vechain/stakepool/pubkey"
)

// Params are the host chain parameters relevant to stake accounts.
type Params struct {
	MinimumDelegation uint64
	RentExemptReserve uint64
}

// Service creates, moves and queries stake accounts.
type Service interface {
	// Get returns the account at addr, nil if nothing exists there.
	Get(ctx context.Context, addr pubkey.Pubkey) (*Account, error)
	// Params returns the current chain parameters.
	Params(ctx context.Context) (Params, error)

	// CreateDelegated moves lamports out of the from account into a new stake
	// account at to, owned by auth and delegated to voter.
	CreateDelegated(ctx context.Context, from, to pubkey.Pubkey, lamports uint64, voter pubkey.Pubkey, auth Authorized) error
	// Split moves lamports from a stake account into a new account at to, with
	// the same authorities and delegation.
	Split(ctx context.Context, from, to pubkey.Pubkey, lamports uint64) error
	// Merge moves all lamports of src into dst and closes src.
	Merge(ctx context.Context, dst, src pubkey.Pubkey) error
	// Deactivate starts deactivating the delegation at addr.
	Deactivate(ctx context.Context, addr pubkey.Pubkey) error
	// Delegate delegates an initialized or inactive account to voter.
	Delegate(ctx context.Context, addr, voter pubkey.Pubkey) error
	// Authorize replaces the authorities of addr.
	Authorize(ctx context.Context, addr pubkey.Pubkey, auth Authorized) error
	// Withdraw moves undelegated lamports out of a stake account.
	Withdraw(ctx context.Context, from, to pubkey.Pubkey, lamports uint64) error
	// Transfer moves lamports from a plain wallet.
	Transfer(ctx context.Context, from, to pubkey.Pubkey, lamports uint64) error
}
