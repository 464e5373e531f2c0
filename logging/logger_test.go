package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTextLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewTextLogger(buf, slog.LevelInfo)
	require.NotNil(t, logger)

	logger.Info("test message", "key", "value")

	output := buf.String()
	assert.Contains(t, output, "test message")
	assert.Contains(t, output, "key=value")
}

func TestNewJSONLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewJSONLogger(buf, slog.LevelInfo)
	require.NotNil(t, logger)

	logger.Info("test message", "key", "value")

	output := buf.String()
	assert.Contains(t, output, `"msg":"test message"`)
	assert.Contains(t, output, `"key":"value"`)

	// Verify it's valid JSON
	var parsed map[string]any
	err := json.Unmarshal([]byte(output), &parsed)
	require.NoError(t, err)
	assert.Equal(t, "test message", parsed["msg"])
	assert.Equal(t, "value", parsed["key"])
}

func TestNewNopLogger(t *testing.T) {
	logger := NewNopLogger()
	require.NotNil(t, logger)
	// Discards everything without panicking.
	logger.Info("dropped")
	logger.Error("also dropped")
}

func TestLevelFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewTextLogger(buf, slog.LevelWarn)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")

	output := buf.String()
	assert.NotContains(t, output, "debug message")
	assert.NotContains(t, output, "info message")
	assert.Contains(t, output, "warn message")
}

func TestWithComponent(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewTextLogger(buf, slog.LevelInfo).WithComponent("applier")

	logger.Info("applied")
	assert.Contains(t, buf.String(), "component=applier")
}

func TestAttributeHelpers(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewJSONLogger(buf, slog.LevelInfo)

	logger.Info("attrs",
		Height(42),
		Hash([]byte{0xde, 0xad}),
		TxKind("CallContract"),
		Method("increment"),
		State("initial"),
		Count(3),
		Duration(1500*time.Millisecond),
		Error(errors.New("boom")),
	)

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &parsed))
	assert.Equal(t, float64(42), parsed["height"])
	assert.Equal(t, "dead", parsed["hash"])
	assert.Equal(t, "CallContract", parsed["tx_kind"])
	assert.Equal(t, "increment", parsed["method"])
	assert.Equal(t, "initial", parsed["state"])
	assert.Equal(t, float64(3), parsed["count"])
	assert.Equal(t, float64(1500), parsed["duration_ms"])
	assert.Equal(t, "boom", parsed["error"])
}

func TestHashAttrEmpty(t *testing.T) {
	attr := Hash(nil)
	assert.Equal(t, "", attr.Value.String())
}

func TestErrorAttrNil(t *testing.T) {
	attr := Error(nil)
	assert.Equal(t, slog.Attr{}, attr)
}
