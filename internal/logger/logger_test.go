package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_FileOutputHonorsLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "webdisk.log")

	require.NoError(t, Init(Config{Level: "WARN", Format: "text", Output: path, MaxSizeMB: 1}))
	t.Cleanup(func() { _ = Init(Config{Level: "INFO"}) })

	Info("hidden %d", 1)
	Warn("visible %d", 2)
	require.NoError(t, Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden 1")
	assert.Contains(t, string(data), "visible 2")
	assert.Contains(t, string(data), "WARN")
}

func TestInit_JSONFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "webdisk.json")

	require.NoError(t, Init(Config{Level: "debug", Format: "json", Output: path}))
	t.Cleanup(func() { _ = Init(Config{Level: "INFO"}) })

	Debug("cache size %d", 3)
	require.NoError(t, Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	line := strings.TrimSpace(string(data))
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	assert.Equal(t, "cache size 3", entry["msg"])
	assert.Equal(t, "debug", entry["level"])
}

func TestInit_UnknownFormat(t *testing.T) {
	assert.Error(t, Init(Config{Format: "xml"}))
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "ERROR", LevelError.String())
	assert.Equal(t, "UNKNOWN", Level(42).String())
}
