package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv(lookupFrom(nil))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
	assert.Equal(t, "localhost:8778", cfg.ServerAddr)
	assert.Equal(t, 200*time.Millisecond, cfg.TurnDelay)
}

func TestFromEnv_Overrides(t *testing.T) {
	cfg, err := FromEnv(lookupFrom(map[string]string{
		"SERVER_ADDR":    "maze.example:9000",
		"TEAM_NAME":      "ferrets",
		"PLAYERS":        "3",
		"HTTP_ADDR":      ":8080",
		"TURN_DELAY":     "0s",
		"READ_TIMEOUT":   "5s",
		"DIAL_ATTEMPTS":  "9",
		"SOLVE_BACKOFF":  "10ms",
		"JOURNAL_DRIVER": "sqlite",
		"JOURNAL_DSN":    "file::memory:",
	}))
	require.NoError(t, err)
	assert.Equal(t, "maze.example:9000", cfg.ServerAddr)
	assert.Equal(t, "ferrets", cfg.TeamName)
	assert.Equal(t, 3, cfg.Players)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Zero(t, cfg.TurnDelay)
	assert.Equal(t, 5*time.Second, cfg.ReadTimeout)
	assert.Equal(t, uint64(9), cfg.DialAttempts)
	assert.Equal(t, 10*time.Millisecond, cfg.SolveBackoff)
	assert.Equal(t, "sqlite", cfg.JournalDriver)
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"players not a number", map[string]string{"PLAYERS": "many"}, "PLAYERS"},
		{"bad duration", map[string]string{"TURN_DELAY": "fast"}, "TURN_DELAY"},
		{"negative attempts", map[string]string{"DIAL_ATTEMPTS": "-1"}, "DIAL_ATTEMPTS"},
		{"negative players", map[string]string{"PLAYERS": "-2"}, "PLAYERS"},
		{"empty team", map[string]string{"TEAM_NAME": ""}, "TEAM_NAME"},
		{"unknown driver", map[string]string{"JOURNAL_DRIVER": "mongo", "JOURNAL_DSN": "x"}, "mongo"},
		{"driver without dsn", map[string]string{"JOURNAL_DRIVER": "postgres"}, "JOURNAL_DSN"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromEnv(lookupFrom(tt.env))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestFromEnv_ReportsEveryBadValue(t *testing.T) {
	_, err := FromEnv(lookupFrom(map[string]string{"PLAYERS": "x", "TURN_DELAY": "y"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PLAYERS")
	assert.Contains(t, err.Error(), "TURN_DELAY")
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("TEAM_NAME=from_file\nPLAYERS=2\n"), 0o600))

	// godotenv never overrides variables that are already set
	t.Setenv("PLAYERS", "4")
	// registers a restore of TEAM_NAME before unsetting it for the file
	t.Setenv("TEAM_NAME", "")
	require.NoError(t, os.Unsetenv("TEAM_NAME"))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from_file", cfg.TeamName)
	assert.Equal(t, 4, cfg.Players)
}

func TestLoad_MissingFileIsFine(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.env"))
	assert.NoError(t, err)
}
