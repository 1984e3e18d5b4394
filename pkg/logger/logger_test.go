package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestVerbosityToLevel(t *testing.T) {
	tests := []struct {
		verbosity int
		want      zapcore.Level
	}{
		{-1, zapcore.WarnLevel},
		{VerbosityUser, zapcore.WarnLevel},
		{VerbosityInfo, zapcore.InfoLevel},
		{VerbosityDebug, zapcore.DebugLevel},
		{7, zapcore.DebugLevel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, VerbosityToLevel(tt.verbosity), "verbosity %d", tt.verbosity)
	}
}

func TestPlainEncoder_NoCommas(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Options{Verbosity: VerbosityDebug, Output: &buf})
	require.NoError(t, err)

	l.Named("ingest.reader").
		With(FieldRunID, "abc").
		Infow("Parsed file, done", FieldFile, "/data/a,b.nt", FieldCount, 3)
	l.Warnw("Close failed", FieldError, errors.New("lock held, retry"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	for _, line := range lines {
		assert.NotContains(t, line, ",")
	}
	assert.Contains(t, lines[0], "ingest.reader")
	assert.Contains(t, lines[0], "count=3 file=/data/a;b.nt run_id=abc")
	assert.Contains(t, lines[1], "WARN")
	assert.Contains(t, lines[1], "error=lock held; retry")
}

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Options{Verbosity: VerbosityUser, Output: &buf})
	require.NoError(t, err)

	l.Infow("progress", FieldCount, 1)
	l.Debugw("details")
	assert.Empty(t, buf.String())

	l.Warnw("attention")
	assert.Contains(t, buf.String(), "attention")
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Options{Verbosity: VerbosityInfo, JSON: true, Output: &buf})
	require.NoError(t, err)

	l.Infow("Inserted", FieldCount, 2)
	assert.Contains(t, buf.String(), `"count":2`)
	assert.Contains(t, buf.String(), `"msg":"Inserted"`)
}

func TestInitialize(t *testing.T) {
	defer func() {
		Logger = nil
		require.NoError(t, Initialize(Options{}))
	}()

	require.NoError(t, Initialize(Options{JSON: true, Output: &bytes.Buffer{}}))
	assert.True(t, JSONOutput)
	assert.NotNil(t, ComponentLogger("store"))
}
