package logging_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/codex7/codex7/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_WritesJSONToFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server.log")

	logger, cleanup, err := logging.Setup(logging.Config{
		Level:         "info",
		FilePath:      path,
		MaxSizeMB:     1,
		MaxFiles:      2,
		WriteToStderr: false,
	})
	require.NoError(t, err)
	defer cleanup()

	logger.Info("indexing started", slog.String("library_id", "lib-1"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"indexing started"`)
	assert.Contains(t, string(data), `"library_id":"lib-1"`)
}

func TestRotatingWriter_RotatesPastMaxSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server.log")

	w, err := logging.NewRotatingWriter(path, 0, 2)
	require.NoError(t, err)
	defer w.Close()

	payload := make([]byte, 2048)
	_, err = w.Write(payload)
	require.NoError(t, err)
	_, err = w.Write(payload)
	require.NoError(t, err)

	_, statErr := os.Stat(path + ".1")
	assert.NoError(t, statErr)
}

func TestDefaultLogPath_UnderHomeDir(t *testing.T) {
	p := logging.DefaultLogPath()
	assert.Contains(t, p, ".codex7")
	assert.Contains(t, p, "server.log")
}
