package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

// TestInitLoggerLevelFromEnv LOG_LEVEL控制日志级别，非法值回落info
func TestInitLoggerLevelFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	require.NoError(t, InitLogger())
	assert.False(t, Logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, Logger.Core().Enabled(zapcore.WarnLevel))

	t.Setenv("LOG_LEVEL", "not-a-level")
	require.NoError(t, InitLogger())
	assert.True(t, Logger.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, Logger.Core().Enabled(zapcore.DebugLevel))
}
