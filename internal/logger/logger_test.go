package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("ERROR"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNewWithWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "info", "json")

	log.Debug("hidden")
	log.With("component", "poller").Info("view converged", "items", 40)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "view converged", entry["msg"])
	assert.Equal(t, "poller", entry["component"])
	assert.Equal(t, float64(40), entry["items"])
}

func TestNewWithWriterFormats(t *testing.T) {
	for _, format := range []string{"text", "pretty"} {
		var buf bytes.Buffer
		NewWithWriter(&buf, "debug", format).Debug("navigating", "index", 2)
		assert.Contains(t, buf.String(), "navigating", format)
	}
}
