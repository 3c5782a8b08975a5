package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"debug-2", slog.LevelDebug - 2},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"Warning", slog.LevelWarn},
		{" error ", slog.LevelError},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.input)
		require.NoError(t, err, "ParseLevel(%q)", tt.input)
		assert.Equal(t, tt.want, got, "ParseLevel(%q)", tt.input)
	}

	_, err := ParseLevel("loud")
	assert.ErrorContains(t, err, `log level "loud"`)
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, true, slog.LevelInfo)
	logger.Debug("hidden")
	logger.Info("render failed", "observer", "bob")

	var m map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &m), buf.String())
	assert.Equal(t, "render failed", m["msg"])
	assert.Equal(t, "bob", m["observer"])
}

func TestNewText(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, false, slog.LevelWarn).Warn("oracle down", "word", "cat")
	assert.Contains(t, buf.String(), `msg="oracle down"`)
	assert.Contains(t, buf.String(), "word=cat")
}

func TestInitSetsDefault(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	l := Init(false, slog.LevelError)
	assert.Same(t, l, slog.Default())
	assert.False(t, slog.Default().Enabled(context.Background(), slog.LevelWarn))
}
