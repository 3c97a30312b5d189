// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package reverts

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	errStale := New(KindStaleness, "validator list out of date")
	wrapped := errors.WithMessage(errStale, "entry 3")

	assert.True(t, IsRevertErr(wrapped))
	assert.Equal(t, KindStaleness, KindOf(wrapped))
	assert.True(t, errors.Is(wrapped, errStale))
	assert.Equal(t, "entry 3: validator list out of date", wrapped.Error())

	plain := errors.New("io")
	assert.False(t, IsRevertErr(plain))
	assert.False(t, IsRevertErr(nil))
	assert.Equal(t, Kind(0), KindOf(plain))
	assert.Equal(t, "unknown", KindOf(plain).String())
	assert.Equal(t, "arithmetic", KindArithmetic.String())
}
