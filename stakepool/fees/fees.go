// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package fees

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/vechain/stakepool/stakepool/reverts"
)

var ErrInvalidFee = reverts.New(reverts.KindState, "invalid fee")

// Fee is a ratio applied to an amount, rounded up in favor of the pool.
// A zero denominator means no fee.
type Fee struct {
	Numerator   uint64 `json:"numerator" yaml:"numerator"`
	Denominator uint64 `json:"denominator" yaml:"denominator"`
}

func (f Fee) String() string {
	return fmt.Sprintf("%d/%d", f.Numerator, f.Denominator)
}

// IsZero reports whether applying the fee always yields zero.
func (f Fee) IsZero() bool {
	return f.Numerator == 0 || f.Denominator == 0
}

// Validate checks the ratio is at most one.
func (f Fee) Validate() error {
	if f.Denominator == 0 {
		if f.Numerator != 0 {
			return errors.WithMessage(ErrInvalidFee, "zero denominator")
		}
		return nil
	}
	if f.Numerator > f.Denominator {
		return errors.WithMessagef(ErrInvalidFee, "%v exceeds 100%%", f)
	}
	return nil
}

// Apply returns ceil(amount * f).
func (f Fee) Apply(amount uint64) (uint64, error) {
	if f.IsZero() {
		return 0, nil
	}
	return mulDiv(amount, f.Numerator, f.Denominator, true)
}

// Kind names a fee in the schedule.
type Kind uint8

const (
	KindEpoch Kind = iota
	KindDeposit
	KindWithdrawal
	KindStakeWithdrawal
	KindReferral
	KindStakeDeposit
)

var kindNames = [...]string{
	KindEpoch:           "epoch",
	KindDeposit:         "deposit",
	KindWithdrawal:      "withdrawal",
	KindStakeWithdrawal: "stake-withdrawal",
	KindReferral:        "referral",
	KindStakeDeposit:    "stake-deposit",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// ParseKind parses a fee kind name.
func ParseKind(s string) (Kind, error) {
	for i, name := range kindNames {
		if name == s {
			return Kind(i), nil
		}
	}
	return 0, errors.Errorf("unknown fee kind %q", s)
}

// Schedule is the full set of fees charged by the pool.
type Schedule struct {
	Epoch           Fee   `json:"epoch" yaml:"epoch"`
	Deposit         Fee   `json:"deposit" yaml:"deposit"`
	Withdrawal      Fee   `json:"withdrawal" yaml:"withdrawal"`
	StakeWithdrawal Fee   `json:"stakeWithdrawal" yaml:"stake_withdrawal"`
	StakeDeposit    Fee   `json:"stakeDeposit" yaml:"stake_deposit"`
	ReferralPercent uint8 `json:"referralPercent" yaml:"referral_percent"`
}

// Validate checks every fee in the schedule.
func (s Schedule) Validate() error {
	for kind, f := range map[Kind]Fee{
		KindEpoch:           s.Epoch,
		KindDeposit:         s.Deposit,
		KindWithdrawal:      s.Withdrawal,
		KindStakeWithdrawal: s.StakeWithdrawal,
		KindStakeDeposit:    s.StakeDeposit,
	} {
		if err := f.Validate(); err != nil {
			return errors.WithMessage(err, kind.String())
		}
	}
	if s.ReferralPercent > 100 {
		return errors.WithMessage(ErrInvalidFee, "referral above 100%")
	}
	return nil
}
