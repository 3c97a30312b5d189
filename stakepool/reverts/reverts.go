// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package reverts

import (
	"errors"
)

// Kind groups revert errors by what the caller can do about them.
type Kind uint8

const (
	// KindState means the operation is not allowed in the current state, e.g.
	// the registry is full or the validator is in the wrong lifecycle status.
	KindState Kind = iota + 1
	// KindStaleness means an epoch update must run first.
	KindStaleness
	// KindFunds means a balance is too small, or would drop below a minimum.
	KindFunds
	// KindArithmetic means an amount overflowed.
	KindArithmetic
)

func (k Kind) String() string {
	switch k {
	case KindState:
		return "state"
	case KindStaleness:
		return "staleness"
	case KindFunds:
		return "funds"
	case KindArithmetic:
		return "arithmetic"
	default:
		return "unknown"
	}
}

// ErrOverflow is returned when checked arithmetic on amounts overflows.
var ErrOverflow = New(KindArithmetic, "arithmetic overflow")

// ErrRevert is returned when an operation is rejected. Nothing was changed.
type ErrRevert struct {
	kind    Kind
	message string
}

func New(kind Kind, message string) *ErrRevert {
	return &ErrRevert{
		kind:    kind,
		message: message,
	}
}

func (e *ErrRevert) Error() string {
	return e.message
}

func (e *ErrRevert) Kind() Kind {
	return e.kind
}

func IsRevertErr(err error) bool {
	var ve *ErrRevert
	return errors.As(err, &ve)
}

// KindOf returns the kind of the revert wrapped in err, zero if there is none.
func KindOf(err error) Kind {
	var ve *ErrRevert
	if errors.As(err, &ve) {
		return ve.kind
	}
	return 0
}
