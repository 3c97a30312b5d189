// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package reserve

import (
	"context"

	"github.com/pkg/errors"

	"github.com/vechain/stakepool/pubkey"
	"github.com/vechain/stakepool/stakeacct"
	"github.com/vechain/stakepool/stakepool/reverts"
)

var (
	ErrReserveTooLow   = reverts.New(reverts.KindFunds, "reserve would fall below its minimum")
	ErrInvalidReserve  = reverts.New(reverts.KindState, "reserve account is missing or not controlled by the pool")
	ErrMinimumTooLarge = reverts.New(reverts.KindFunds, "reserve holds less than the minimum")
)

// Manager guards the pool's undelegated buffer. The balance itself lives
// in the reserve stake account and is always read from the service.
type Manager struct {
	Address   pubkey.Pubkey
	Authority pubkey.Pubkey
	Minimum   uint64
}

// Account fetches the reserve and checks the pool still controls it.
func (m *Manager) Account(ctx context.Context, svc stakeacct.Service) (*stakeacct.Account, error) {
	acc, err := svc.Get(ctx, m.Address)
	if err != nil {
		return nil, errors.Wrap(err, "get reserve")
	}
	if acc == nil || acc.State == stakeacct.StateUninitialized || !acc.ControlledBy(m.Authority, stakeacct.Lockup{}) {
		return nil, errors.WithMessage(ErrInvalidReserve, m.Address.String())
	}
	return acc, nil
}

// Balance returns the reserve lamports usable by the pool, which excludes
// the rent exempt reserve kept by the account.
func (m *Manager) Balance(ctx context.Context, svc stakeacct.Service) (uint64, error) {
	acc, err := m.Account(ctx, svc)
	if err != nil {
		return 0, err
	}
	if acc.Lamports <= acc.RentExemptReserve {
		return 0, nil
	}
	return acc.Lamports - acc.RentExemptReserve, nil
}

// Available returns how much can leave a reserve holding balance.
func (m *Manager) Available(balance uint64) uint64 {
	if balance <= m.Minimum {
		return 0
	}
	return balance - m.Minimum
}

// CheckWithdraw fails if taking amount out of balance breaks the minimum.
func (m *Manager) CheckWithdraw(balance, amount uint64) error {
	if amount > m.Available(balance) {
		return errors.WithMessagef(ErrReserveTooLow, "requested %d, available %d", amount, m.Available(balance))
	}
	return nil
}

// CheckMinimum fails if balance is already below the minimum.
func (m *Manager) CheckMinimum(balance uint64) error {
	if balance < m.Minimum {
		return errors.WithMessagef(ErrMinimumTooLarge, "holds %d, minimum %d", balance, m.Minimum)
	}
	return nil
}
