// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package preferred

import (
	"github.com/pkg/errors"

	"github.com/vechain/stakepool/pubkey"
	"github.com/vechain/stakepool/stakepool/validator"
)

// Kind selects which preference.
type Kind uint8

const (
	KindDeposit Kind = iota
	KindWithdraw
)

func (k Kind) String() string {
	if k == KindWithdraw {
		return "withdraw"
	}
	return "deposit"
}

// ParseKind parses "deposit" or "withdraw".
func ParseKind(s string) (Kind, error) {
	switch s {
	case "deposit":
		return KindDeposit, nil
	case "withdraw":
		return KindWithdraw, nil
	}
	return 0, errors.Errorf("invalid preference kind %q", s)
}

// Lookup finds an entry by vote id, nil if absent.
type Lookup func(vote pubkey.Pubkey) *validator.Entry

// Policy holds the optional preferred validators for routing deposits and
// withdrawals. A preference is only valid while its entry exists and is active.
type Policy struct {
	Deposit  *pubkey.Pubkey `rlp:"nil"`
	Withdraw *pubkey.Pubkey `rlp:"nil"`
}

func (p *Policy) slot(kind Kind) **pubkey.Pubkey {
	if kind == KindWithdraw {
		return &p.Withdraw
	}
	return &p.Deposit
}

// Get returns the raw preference, without validation.
func (p *Policy) Get(kind Kind) *pubkey.Pubkey {
	return *p.slot(kind)
}

// Set sets or, with a nil vote, clears a preference.
func (p *Policy) Set(kind Kind, vote *pubkey.Pubkey, lookup Lookup) error {
	if vote == nil {
		*p.slot(kind) = nil
		return nil
	}
	entry := lookup(*vote)
	if entry == nil {
		return errors.WithMessage(validator.ErrNotFound, vote.String())
	}
	if entry.Status != validator.StatusActive {
		return errors.WithMessagef(validator.ErrWrongStatus, "%v is %v", vote, entry.Status)
	}
	v := *vote
	*p.slot(kind) = &v
	return nil
}

// Resolve returns the preference if it is still valid. An invalid preference
// is cleared and reset is true.
func (p *Policy) Resolve(kind Kind, lookup Lookup) (vote *pubkey.Pubkey, reset bool) {
	slot := p.slot(kind)
	if *slot == nil {
		return nil, false
	}
	if entry := lookup(**slot); entry != nil && entry.Status == validator.StatusActive {
		return *slot, false
	}
	*slot = nil
	return nil, true
}

// Sanitize resolves both preferences and returns the kinds that were reset.
func (p *Policy) Sanitize(lookup Lookup) []Kind {
	var reset []Kind
	for _, kind := range []Kind{KindDeposit, KindWithdraw} {
		if _, r := p.Resolve(kind, lookup); r {
			reset = append(reset, kind)
		}
	}
	return reset
}

// Forget clears any preference pointing at vote.
func (p *Policy) Forget(vote pubkey.Pubkey) {
	for _, kind := range []Kind{KindDeposit, KindWithdraw} {
		slot := p.slot(kind)
		if *slot != nil && **slot == vote {
			*slot = nil
		}
	}
}

// Clone returns a copy that shares nothing with p.
func (p Policy) Clone() Policy {
	var cpy Policy
	if p.Deposit != nil {
		v := *p.Deposit
		cpy.Deposit = &v
	}
	if p.Withdraw != nil {
		v := *p.Withdraw
		cpy.Withdraw = &v
	}
	return cpy
}
