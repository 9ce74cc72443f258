package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	cases := map[LogLevel]zapcore.Level{
		DebugLevel: zapcore.DebugLevel,
		InfoLevel:  zapcore.InfoLevel,
		"":         zapcore.InfoLevel,
		"WARN":     zapcore.WarnLevel,
		ErrorLevel: zapcore.ErrorLevel,
	}
	for input, expected := range cases {
		level, err := ParseLevel(input)
		require.NoError(t, err, "level %q", input)
		assert.Equal(t, expected, level)
	}
	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestNewWritesFile(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Level = DebugLevel
	cfg.OutputPath = filepath.Join(t.TempDir(), "logs", "beecount.log")

	log, err := New(cfg)
	require.NoError(t, err)
	log.Info("frame processed")
	_ = log.Sync()

	data, err := os.ReadFile(cfg.OutputPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "frame processed")
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Level = "loud"
	_, err := New(cfg)
	assert.Error(t, err)
}
