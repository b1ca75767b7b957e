// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package log

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestSetDefaultCustomLogger should properly set the default logger when
// custom loggers are provided.
func TestSetDefaultCustomLogger(t *testing.T) {
	old := Root()
	defer SetDefault(old)

	type customLogger struct {
		Logger // Implement the Logger interface
	}

	customLog := &customLogger{}
	SetDefault(customLog)
	assert.Equal(t, customLog, Root())
}

func TestWithContextFollowsRoot(t *testing.T) {
	old := Root()
	defer SetDefault(old)

	// created before the root logger is configured
	logger := WithContext("pkg", "stake")

	var buf bytes.Buffer
	h, err := NewHandler(FormatJSON, &buf, new(slog.LevelVar), false)
	assert.NoError(t, err)
	SetDefault(NewLogger(h))
	logger.Info("kernel checked", "height", 7)

	out := buf.String()
	assert.Contains(t, out, `"pkg":"stake"`)
	assert.Contains(t, out, `"msg":"kernel checked"`)
	assert.Contains(t, out, `"lvl":"info"`)
}
