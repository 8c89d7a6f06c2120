package logger

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bufferedLogger(level LogLevel, json bool) (Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewLogger(&Config{Level: level, Output: &buf, JSON: json, TimeFormat: "15:04:05"}), &buf
}

func TestFromContext(t *testing.T) {
	t.Run("Should return logger stored in context", func(t *testing.T) {
		expected := NewForTests()
		ctx := ContextWithLogger(t.Context(), expected)
		assert.Same(t, expected, FromContext(ctx))
	})
	t.Run("Should fall back to default logger", func(t *testing.T) {
		require.NotNil(t, FromContext(t.Context()))
	})
	t.Run("Should ignore values of the wrong type", func(t *testing.T) {
		ctx := context.WithValue(t.Context(), LoggerCtxKey, "not a logger")
		require.NotNil(t, FromContext(ctx))
	})
	t.Run("Should tolerate a nil context", func(t *testing.T) {
		//nolint:staticcheck // nil context is exercised on purpose
		require.NotNil(t, FromContext(nil))
	})
}

func TestLogLevel_ToCharmlogLevel(t *testing.T) {
	t.Run("Should map every level", func(t *testing.T) {
		cases := map[LogLevel]int{
			DebugLevel:          -4,
			InfoLevel:           0,
			WarnLevel:           4,
			ErrorLevel:          8,
			DisabledLevel:       1000,
			LogLevel("verbose"): 0,
		}
		for level, expected := range cases {
			assert.Equal(t, expected, int(level.ToCharmlogLevel()), "level %s", level)
		}
	})
}

func TestNewLogger(t *testing.T) {
	t.Run("Should write text output", func(t *testing.T) {
		l, buf := bufferedLogger(InfoLevel, false)
		l.Info("trigger fired", "trigger_id", "t1")
		assert.Contains(t, buf.String(), "trigger fired")
		assert.Contains(t, buf.String(), "trigger_id")
	})
	t.Run("Should write JSON output", func(t *testing.T) {
		l, buf := bufferedLogger(InfoLevel, true)
		l.Info("job handled")
		assert.Contains(t, buf.String(), `"msg":"job handled"`)
	})
	t.Run("Should filter below configured level", func(t *testing.T) {
		l, buf := bufferedLogger(WarnLevel, false)
		l.Debug("debug message")
		l.Info("info message")
		l.Warn("warn message")
		assert.NotContains(t, buf.String(), "info message")
		assert.Contains(t, buf.String(), "warn message")
	})
	t.Run("Should discard everything when disabled", func(t *testing.T) {
		l, buf := bufferedLogger(DisabledLevel, false)
		l.Error("error message")
		assert.Empty(t, buf.String())
	})
}

func TestLogger_With(t *testing.T) {
	t.Run("Should carry fields into child logger", func(t *testing.T) {
		l, buf := bufferedLogger(InfoLevel, false)
		l.With("component", "scheduler").Info("registered")
		assert.Contains(t, buf.String(), "component")
		assert.Contains(t, buf.String(), "scheduler")
	})
}

func TestConfigs(t *testing.T) {
	t.Run("Should discard output in test config", func(t *testing.T) {
		cfg := TestConfig()
		assert.Equal(t, DisabledLevel, cfg.Level)
		assert.Equal(t, io.Discard, cfg.Output)
	})
	t.Run("Should replace default logger on setup", func(t *testing.T) {
		l := SetupLogger("debug", true, false)
		assert.Same(t, l, GetDefault())
	})
}
