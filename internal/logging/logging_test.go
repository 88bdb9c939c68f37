package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	log, closeLog, err := New(Options{Level: "warn", Console: &buf})
	require.NoError(t, err)

	log.Info("quiet")
	log.Warn("loud")
	require.NoError(t, closeLog())

	out := buf.String()
	assert.NotContains(t, out, "quiet")
	assert.Contains(t, out, "loud")
	assert.Contains(t, out, "WARN")
}

func TestNew_TeesToFile(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "client.log")
	log, closeLog, err := New(Options{File: path, Console: &buf})
	require.NoError(t, err)

	log.Info("player subscribed")
	require.NoError(t, closeLog())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "player subscribed")
	assert.Contains(t, buf.String(), "player subscribed")
}

func TestNew_BadLevel(t *testing.T) {
	_, _, err := New(Options{Level: "loudest"})
	assert.Error(t, err)
}
