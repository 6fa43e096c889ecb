package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wonny/aegis-edge/pkg/config"
)

func jsonLogger(buf *bytes.Buffer) *Logger {
	return NewWithWriter(buf, &config.Config{Env: "test", LogLevel: "debug", LogFormat: "json"})
}

func decode(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestNewSetsGlobalLevel(t *testing.T) {
	tests := []struct {
		level string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			l := NewWithWriter(&buf, &config.Config{Env: "test", LogLevel: tt.level, LogFormat: "json"})
			require.NotNil(t, l)
			assert.Equal(t, tt.want, zerolog.GlobalLevel())
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"invalid", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLogLevel(tt.input))
		})
	}
}

func TestLevelsAndMessages(t *testing.T) {
	var buf bytes.Buffer
	l := jsonLogger(&buf)

	tests := []struct {
		name      string
		logFunc   func()
		wantMsg   string
		wantLevel string
	}{
		{"debug", func() { l.Debug("debug message") }, "debug message", "debug"},
		{"info", func() { l.Info("info message") }, "info message", "info"},
		{"warn", func() { l.Warn("warn message") }, "warn message", "warn"},
		{"error", func() { l.Error("error message") }, "error message", "error"},
		{"infof", func() { l.Infof("symbols: %d", 42) }, "symbols: 42", "info"},
		{"errorf", func() { l.Errorf("fetch failed: %s", "timeout") }, "fetch failed: timeout", "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			tt.logFunc()

			entry := decode(t, &buf)
			assert.Equal(t, tt.wantLevel, entry["level"])
			assert.Equal(t, tt.wantMsg, entry["message"])
			assert.Equal(t, "test", entry["env"])
		})
	}
}

func TestWithFieldsAndSymbol(t *testing.T) {
	var buf bytes.Buffer
	l := jsonLogger(&buf)

	l.WithSymbol("AAPL").WithFields(map[string]interface{}{
		"direction": "LONG",
		"confirmed": 9,
	}).Info("recommendation built")

	entry := decode(t, &buf)
	assert.Equal(t, "AAPL", entry["symbol"])
	assert.Equal(t, "LONG", entry["direction"])
	assert.Equal(t, float64(9), entry["confirmed"])
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	l := jsonLogger(&buf)

	l.WithError(errors.New("options chain missing")).Warn("degraded")

	entry := decode(t, &buf)
	assert.Equal(t, "options chain missing", entry["error"])
	assert.Equal(t, "degraded", entry["message"])
}

func TestConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, &config.Config{Env: "test", LogLevel: "info", LogFormat: "console"})
	l.Info("console message")

	assert.True(t, strings.Contains(buf.String(), "console message"))
}

func TestNop(t *testing.T) {
	l := NewNop()
	l.WithField("k", "v").Info("dropped")
}
