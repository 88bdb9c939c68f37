package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"
)

// Config holds the client's settings.
type Config struct {
	ServerAddr string // game server, host:port
	TeamName   string
	Players    int // 0 uses the server's expected player count

	HTTPAddr string // status API listen address, empty disables it

	LogLevel string
	LogFile  string // rotating log file, empty logs to stderr only

	TurnDelay    time.Duration // pause after each turn
	ReadTimeout  time.Duration // socket read deadline, 0 waits forever
	MaxFrameSize int           // largest accepted frame (bytes)

	DialAttempts  uint64
	DialBackoff   time.Duration
	SolveAttempts uint64
	SolveBackoff  time.Duration

	JournalDriver string // "postgres", "sqlite" or empty
	JournalDSN    string
}

func Defaults() Config {
	return Config{
		ServerAddr:    "localhost:8778",
		TeamName:      "gophers",
		LogLevel:      "info",
		TurnDelay:     200 * time.Millisecond,
		MaxFrameSize:  1 << 20,
		DialAttempts:  5,
		DialBackoff:   200 * time.Millisecond,
		SolveAttempts: 5,
		SolveBackoff:  50 * time.Millisecond,
	}
}

// Load reads envFile (a missing file is not an error) and then the process
// environment on top of the defaults. Every malformed value is reported.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: load %s: %w", envFile, err)
		}
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv builds a Config from lookup over the defaults.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	cfg := Defaults()
	var errs error

	getEnv(lookup, "SERVER_ADDR", &cfg.ServerAddr)
	getEnv(lookup, "TEAM_NAME", &cfg.TeamName)
	getEnv(lookup, "HTTP_ADDR", &cfg.HTTPAddr)
	getEnv(lookup, "LOG_LEVEL", &cfg.LogLevel)
	getEnv(lookup, "LOG_FILE", &cfg.LogFile)
	getEnv(lookup, "JOURNAL_DRIVER", &cfg.JournalDriver)
	getEnv(lookup, "JOURNAL_DSN", &cfg.JournalDSN)

	errs = multierr.Append(errs, getEnvAsInt(lookup, "PLAYERS", &cfg.Players))
	errs = multierr.Append(errs, getEnvAsInt(lookup, "MAX_FRAME_SIZE", &cfg.MaxFrameSize))
	errs = multierr.Append(errs, getEnvAsUint(lookup, "DIAL_ATTEMPTS", &cfg.DialAttempts))
	errs = multierr.Append(errs, getEnvAsUint(lookup, "SOLVE_ATTEMPTS", &cfg.SolveAttempts))
	errs = multierr.Append(errs, getEnvAsDuration(lookup, "TURN_DELAY", &cfg.TurnDelay))
	errs = multierr.Append(errs, getEnvAsDuration(lookup, "READ_TIMEOUT", &cfg.ReadTimeout))
	errs = multierr.Append(errs, getEnvAsDuration(lookup, "DIAL_BACKOFF", &cfg.DialBackoff))
	errs = multierr.Append(errs, getEnvAsDuration(lookup, "SOLVE_BACKOFF", &cfg.SolveBackoff))

	if errs != nil {
		return Config{}, errs
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	var errs error
	if c.ServerAddr == "" {
		errs = multierr.Append(errs, errors.New("config: SERVER_ADDR is empty"))
	}
	if c.TeamName == "" {
		errs = multierr.Append(errs, errors.New("config: TEAM_NAME is empty"))
	}
	if c.Players < 0 {
		errs = multierr.Append(errs, fmt.Errorf("config: PLAYERS must be >= 0, got %d", c.Players))
	}
	if c.MaxFrameSize <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("config: MAX_FRAME_SIZE must be positive, got %d", c.MaxFrameSize))
	}
	switch c.JournalDriver {
	case "", "postgres", "sqlite":
	default:
		errs = multierr.Append(errs, fmt.Errorf("config: unknown JOURNAL_DRIVER %q", c.JournalDriver))
	}
	if c.JournalDriver != "" && c.JournalDSN == "" {
		errs = multierr.Append(errs, errors.New("config: JOURNAL_DSN is required with JOURNAL_DRIVER"))
	}
	return errs
}

// getEnv overwrites *dst when key is set.
func getEnv(lookup func(string) (string, bool), key string, dst *string) {
	if v, ok := lookup(key); ok {
		*dst = v
	}
}

func getEnvAsInt(lookup func(string) (string, bool), key string, dst *int) error {
	v, ok := lookup(key)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("config: %s must be an integer: %w", key, err)
	}
	*dst = n
	return nil
}

func getEnvAsUint(lookup func(string) (string, bool), key string, dst *uint64) error {
	v, ok := lookup(key)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return fmt.Errorf("config: %s must be a non-negative integer: %w", key, err)
	}
	*dst = n
	return nil
}

func getEnvAsDuration(lookup func(string) (string, bool), key string, dst *time.Duration) error {
	v, ok := lookup(key)
	if !ok || v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("config: %s must be a duration like 200ms: %w", key, err)
	}
	*dst = d
	return nil
}
