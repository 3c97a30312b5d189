// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package sharetoken defines the fungible pool share token and provides an
// in-memory ledger implementation.
package sharetoken

import (
	"context"

	"github.com/vechain/stakepool/pubkey"
)

// Service mints and burns pool shares. Supply is authoritative: holders may
// burn shares on their own, outside of the pool.
type Service interface {
	Mint(ctx context.Context, to pubkey.Pubkey, amount uint64) error
	Burn(ctx context.Context, from pubkey.Pubkey, amount uint64) error
	Transfer(ctx context.Context, from, to pubkey.Pubkey, amount uint64) error
	BalanceOf(ctx context.Context, owner pubkey.Pubkey) (uint64, error)
	Supply(ctx context.Context) (uint64, error)
}
