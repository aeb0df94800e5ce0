package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "brcode.log")

	lg, err := New("warn", logFile)
	require.NoError(t, err)

	lg.Info("dropped")
	lg.Warn("kept")
	_ = lg.Sync()

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	require.Contains(t, string(data), `"msg":"kept"`)
	require.NotContains(t, string(data), "dropped")
}

func TestNewInvalidLevel(t *testing.T) {
	_, err := New("loud", "")
	require.ErrorContains(t, err, "invalid log level")

	require.Panics(t, func() { Must("loud", "") })
}
