package utils

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("debug", "json", &buf)

	logger.WithTraceID("trace-1").WithSource("review_service").WithContext(map[string]interface{}{
		"session_id": "abc",
	}).Error("Review failed", errors.New("boom"), map[string]interface{}{"attempt": 1})

	var entry LogEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	assert.Equal(t, "ERROR", entry.Level)
	assert.Equal(t, "Review failed", entry.Message)
	assert.Equal(t, "trace-1", entry.TraceID)
	assert.Equal(t, "review_service", entry.Source)
	assert.Equal(t, "boom", entry.Error)
	assert.Equal(t, "abc", entry.Context["session_id"])
	assert.EqualValues(t, 1, entry.Context["attempt"])
	assert.Equal(t, "logger_test.go", entry.File)
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("warn", "json", &buf)

	logger.Debug("hidden")
	logger.Info("hidden")
	logger.Warn("shown")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 1)
	assert.Contains(t, lines[0], "shown")
}

func TestLogger_TextOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", "text", &buf)

	logger.WithSource("http").Info("Request completed", map[string]interface{}{"status_code": 200})

	out := buf.String()
	assert.Contains(t, out, "INFO: Request completed")
	assert.Contains(t, out, "[source=http]")
	assert.Contains(t, out, `"status_code":200`)
}

func TestNewLogger_UnknownFormatDefaultsToJSON(t *testing.T) {
	logger := NewLogger("info", "yaml")
	assert.Equal(t, "json", logger.format)
	assert.Equal(t, INFO, logger.level)
}

func TestWithContext_DoesNotMutateParent(t *testing.T) {
	base := GetLogger().WithSource("test").WithContext(map[string]interface{}{"a": 1})
	child := base.WithContext(map[string]interface{}{"b": 2})

	assert.Len(t, base.context, 1)
	assert.Len(t, child.context, 2)
}
