// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package validator

import "github.com/pkg/errors"

// Status is the lifecycle status of a validator entry.
type Status uint8

const (
	// StatusActive can receive and release stake.
	StatusActive Status = iota
	// StatusDeactivatingTransient has part of its stake moved to a transient
	// account that is deactivating, to be merged at the next epoch.
	StatusDeactivatingTransient
	// StatusReadyForRemoval holds nothing the pool controls and awaits cleanup.
	StatusReadyForRemoval
	// StatusDeactivatingValidator is being removed, its active stake deactivating.
	StatusDeactivatingValidator
	// StatusDeactivatingAll is being removed while a transient is also deactivating.
	StatusDeactivatingAll
)

var statusNames = [...]string{
	StatusActive:                "active",
	StatusDeactivatingTransient: "deactivating_transient",
	StatusReadyForRemoval:       "ready_for_removal",
	StatusDeactivatingValidator: "deactivating_validator",
	StatusDeactivatingAll:       "deactivating_all",
}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return "unknown"
}

func (s Status) MarshalText() ([]byte, error) {
	if int(s) >= len(statusNames) {
		return nil, errors.Errorf("invalid status %d", s)
	}
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	for i, name := range statusNames {
		if name == string(text) {
			*s = Status(i)
			return nil
		}
	}
	return errors.Errorf("invalid status %q", text)
}

// Removing reports whether the entry is on its way out of the registry.
func (s Status) Removing() bool {
	return s == StatusDeactivatingValidator || s == StatusDeactivatingAll || s == StatusReadyForRemoval
}

// AfterTransientMerge returns the status once the transient stake has been
// merged away. activeRemaining tells if the active account still holds stake.
func (s Status) AfterTransientMerge(activeRemaining bool) Status {
	switch s {
	case StatusDeactivatingTransient:
		if activeRemaining {
			return StatusActive
		}
		return StatusReadyForRemoval
	case StatusDeactivatingAll:
		if activeRemaining {
			return StatusDeactivatingValidator
		}
		return StatusReadyForRemoval
	default:
		return s
	}
}

// AfterValidatorMerge returns the status once the active account has been
// merged into the reserve. Whatever the previous status, the validator can
// no longer hold stake and leaves the pool.
func (s Status) AfterValidatorMerge(transientRemaining bool) Status {
	if transientRemaining {
		return StatusDeactivatingAll
	}
	return StatusReadyForRemoval
}

// Target is where a decreased stake ends up.
type Target uint8

const (
	TargetReserve Target = iota
	TargetActive
)

func (t Target) String() string {
	if t == TargetActive {
		return "active"
	}
	return "reserve"
}

// ParseTarget parses "reserve" or "active".
func ParseTarget(s string) (Target, error) {
	switch s {
	case "reserve":
		return TargetReserve, nil
	case "active":
		return TargetActive, nil
	}
	return 0, errors.Errorf("invalid decrease target %q", s)
}
