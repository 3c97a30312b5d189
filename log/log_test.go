// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package log

import (
	"bytes"
	"testing"

	ethlog "github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithContextFollowsDefault(t *testing.T) {
	prev := ethlog.Root()
	defer ethlog.SetDefault(prev)

	logger := WithContext("pkg", "test")

	var buf bytes.Buffer
	h, err := NewHandler(&buf, FormatLogfmt, 3, false)
	require.NoError(t, err)
	SetDefault(h)

	logger.Info("reconciled", "epoch", 7)
	logger.Debug("hidden")

	out := buf.String()
	assert.Contains(t, out, "pkg=test")
	assert.Contains(t, out, "epoch=7")
	assert.Contains(t, out, "reconciled")
	assert.NotContains(t, out, "hidden")
}

func TestNewHandler(t *testing.T) {
	var buf bytes.Buffer
	for _, f := range []string{"", FormatTerminal, FormatJSON, FormatLogfmt} {
		h, err := NewHandler(&buf, f, 4, false)
		assert.NoError(t, err, f)
		assert.NotNil(t, h)
	}

	_, err := NewHandler(&buf, "xml", 3, false)
	assert.Error(t, err)
}
