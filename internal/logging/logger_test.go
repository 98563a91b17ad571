package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	for input, want := range map[string]Level{
		"debug": DebugLevel,
		"INFO":  InfoLevel,
		"Warn":  WarnLevel,
		"error": ErrorLevel,
		"FATAL": FatalLevel,
	} {
		got, err := ParseLevel(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(WarnLevel, &buf)

	logger.Debug("hidden")
	logger.Info("hidden")
	logger.Warn("shown")
	logger.Error("also shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[WARN] shown")
	assert.Contains(t, out, "[ERROR] also shown")
}

func TestLoggerFieldFormatting(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(DebugLevel, &buf)

	logger.Info("order filled", "instrument", "NIFTY", "qty", 83)

	assert.Contains(t, buf.String(), "order filled {instrument=NIFTY, qty=83}")
}

func TestWithFieldsMergesIntoChildren(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(DebugLevel, &buf)

	child := logger.WithField("instrument", "NIFTY").WithFields(map[string]interface{}{"side": "LONG"})
	child.Info("entry")

	out := buf.String()
	assert.Contains(t, out, "instrument=NIFTY")
	assert.Contains(t, out, "side=LONG")

	// Per-call fields override inherited ones.
	buf.Reset()
	child.Info("entry", "side", "SHORT")
	assert.Contains(t, buf.String(), "side=SHORT")
	assert.NotContains(t, buf.String(), "side=LONG")
}

func TestWithFieldDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(DebugLevel, &buf)
	_ = logger.WithField("instrument", "NIFTY")

	logger.Info("plain")
	assert.NotContains(t, buf.String(), "instrument")
}
