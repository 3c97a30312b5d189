// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stakeacct

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vechain/stakepool/pubkey"
)

func TestActivationAt(t *testing.T) {
	acc := &Account{
		State: StateDelegated,
		Delegation: Delegation{
			ActivationEpoch:   10,
			DeactivationEpoch: NotDeactivated,
		},
	}

	assert.Equal(t, Activating, acc.ActivationAt(10))
	assert.Equal(t, Active, acc.ActivationAt(11))

	acc.Delegation.DeactivationEpoch = 12
	assert.Equal(t, Deactivating, acc.ActivationAt(12))
	assert.Equal(t, Inactive, acc.ActivationAt(13))

	acc.Delegation.DeactivationEpoch = 10
	assert.Equal(t, Inactive, acc.ActivationAt(10), "never effective")

	acc.State = StateInitialized
	assert.Equal(t, ActivationNone, acc.ActivationAt(13))
	assert.Equal(t, "none", acc.ActivationAt(13).String())
}

func TestControlledBy(t *testing.T) {
	authority := pubkey.BytesToPubkey([]byte("authority"))
	acc := &Account{Authorized: Authorized{Staker: authority, Withdrawer: authority}}

	assert.True(t, acc.ControlledBy(authority, Lockup{}))

	cpy := acc.Copy()
	cpy.Authorized.Withdrawer = pubkey.BytesToPubkey([]byte("attacker"))
	assert.False(t, cpy.ControlledBy(authority, Lockup{}))
	assert.True(t, acc.ControlledBy(authority, Lockup{}), "copy is independent")

	cpy = acc.Copy()
	cpy.Lockup.Epoch = 100
	assert.False(t, cpy.ControlledBy(authority, Lockup{}))
}
