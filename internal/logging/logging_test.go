package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToSlogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ToSlogLevel(Debug))
	assert.Equal(t, slog.LevelInfo, ToSlogLevel(Info))
	assert.Equal(t, slog.LevelWarn, ToSlogLevel(Warn))
	assert.Equal(t, slog.LevelError, ToSlogLevel(Error))
	assert.Equal(t, slog.LevelInfo, ToSlogLevel("bogus"), "unknown levels fall back to info")
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]Level{"debug": Debug, "INFO": Info, " warn ": Warn, "Error": Error} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("verbose")
	assert.ErrorContains(t, err, `unknown log level "verbose"`)
	_, err = ParseLevel("")
	assert.Error(t, err)
}

func TestNewFansOutToFile(t *testing.T) {
	var console bytes.Buffer
	path := filepath.Join(t.TempDir(), "cscoach.log")

	logger, closer, err := New(&console, Info, path)
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("analysed match", slog.String("demo", "abc123"))
	closer()

	assert.Contains(t, console.String(), "analysed match")
	assert.NotContains(t, console.String(), "hidden")

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "analysed match", entry["msg"])
	assert.Equal(t, "abc123", entry["demo"])
}
