package utils

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/kimmokhwa/beautiful-management-app/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewLoggerTo(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLoggerTo(config.LoggingConfig{Level: "warn", Format: "json"}, &buf)
	require.NoError(t, err)

	logger.Info("dropped")
	logger.Warn("kept", zap.String("request_id", "abc"))
	require.NoError(t, logger.Sync())

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "kept", entry["msg"])
	assert.Equal(t, "abc", entry["request_id"])
	assert.Contains(t, entry, "timestamp")
}

func TestNewLoggerInvalidLevel(t *testing.T) {
	_, err := NewLogger(config.LoggingConfig{Level: "loud"})
	assert.Error(t, err)
}

func TestLogWriter(t *testing.T) {
	t.Run("Stdout", func(t *testing.T) {
		w, err := LogWriter(config.LoggingConfig{Output: "stdout"})
		require.NoError(t, err)
		assert.Equal(t, os.Stdout, w)
	})

	t.Run("FileCreatesDirectory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "app.log")
		w, err := LogWriter(config.LoggingConfig{Output: "file", FilePath: path, MaxSize: 1})
		require.NoError(t, err)

		_, err = w.Write([]byte("line\n"))
		require.NoError(t, err)
		assert.FileExists(t, path)
	})

	t.Run("FileNeedsPath", func(t *testing.T) {
		_, err := LogWriter(config.LoggingConfig{Output: "file"})
		assert.Error(t, err)
	})

	t.Run("UnknownOutput", func(t *testing.T) {
		_, err := LogWriter(config.LoggingConfig{Output: "syslog"})
		assert.Error(t, err)
	})
}
