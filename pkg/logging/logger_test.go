package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCapturedLogger(severity Severity) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	out := NewConsoleOutput(false, WithWriter(&buf), WithColor(false))
	return NewLogger(Config{Severity: severity, Outputs: []Output{out}}), &buf
}

func TestLoggerSeverityFilter(t *testing.T) {
	logger, buf := newCapturedLogger(WARN)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	output := buf.String()
	assert.NotContains(t, output, "debug message")
	assert.NotContains(t, output, "info message")
	assert.Contains(t, output, "warn message")
	assert.Contains(t, output, "error message")
}

func TestLoggerFormatting(t *testing.T) {
	logger, buf := newCapturedLogger(DEBUG)

	logger.Info("inserted %d facts", 3)
	assert.Contains(t, buf.String(), "inserted 3 facts")
}

func TestLoggerDefaultFields(t *testing.T) {
	logger, buf := newCapturedLogger(DEBUG)
	child := logger.WithFields(map[string]interface{}{"session_id": "abc-123"})

	child.Info("fired")

	assert.Contains(t, buf.String(), "session_id=abc-123")
}

func TestParseSeverity(t *testing.T) {
	cases := map[string]Severity{
		"DEBUG": DEBUG,
		"INFO":  INFO,
		"WARN":  WARN,
		"ERROR": ERROR,
		"FATAL": FATAL,
		"bogus": INFO,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseSeverity(in), in)
	}
}

func TestDefaultLogger(t *testing.T) {
	logger, _ := newCapturedLogger(DEBUG)
	SetLogger(logger)
	require.Same(t, logger, GetLogger())
}
