package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, LevelError, parseLogLevel("error"))
	assert.Equal(t, LevelDebug, parseLogLevel("DEBUG"))
	assert.Equal(t, LevelInfo, parseLogLevel("verbose")) // unknown -> info
	assert.Equal(t, LevelInfo, parseLogLevel(""))
}

func TestLoggerFilePathAndFiltering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.log")
	l, err := NewLogger("warn", path)
	require.NoError(t, err)

	l.Errorf("bus failure on %s", "/dev/i2c-5")
	l.Warnf("slow write")
	l.Infof("suppressed")
	l.Debugf("suppressed")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "ERROR - bus failure on /dev/i2c-5")
	assert.Contains(t, lines[1], "WARN - slow write")
}

func TestLoggerAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.log")

	for i := 0; i < 2; i++ {
		l, err := NewLogger("info", path)
		require.NoError(t, err)
		l.Infof("run %d", i)
		require.NoError(t, l.Close())
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "run 0")
	assert.Contains(t, string(data), "run 1")
}
