package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestNewZerolog_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerolog(&buf, "warn", "database")

	logger.Info().Msg("hidden")
	assert.Empty(t, buf.String())

	logger.Warn().Msg("visible")
	entry := decodeLine(t, &buf)
	assert.Equal(t, "visible", entry["message"])
	assert.Equal(t, "database", entry["component"])
}

func TestNewZerolog_InvalidLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerolog(&buf, "bogus", "influx")

	logger.Debug().Msg("hidden")
	assert.Empty(t, buf.String())
	logger.Info().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestDispatcherLogger_Levels(t *testing.T) {
	tests := []struct {
		name  string
		call  func(l *DispatcherLogger)
		level string
	}{
		{"debug", func(l *DispatcherLogger) { l.Debug("m", "command", ":FRAME:") }, "debug"},
		{"info", func(l *DispatcherLogger) { l.Info("m", "command", ":FRAME:") }, "info"},
		{"error", func(l *DispatcherLogger) { l.Error("m", "command", ":FRAME:") }, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			dl := NewDispatcherLogger(NewZerolog(&buf, "debug", "dispatcher"))
			tt.call(dl)

			entry := decodeLine(t, &buf)
			assert.Equal(t, tt.level, entry["level"])
			assert.Equal(t, ":FRAME:", entry["command"])
		})
	}
}

func TestToFields(t *testing.T) {
	fields := toFields([]any{"a", 1, 2, "skipped", "b", "x", "dangling"})
	assert.Equal(t, map[string]any{"a": 1, "b": "x"}, fields)
}
