// Package config reads server settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/DoyleJ11/bluff-backend/internal/engine"
)

type Config struct {
	Addr        string
	DatabaseURL string // empty runs without persistence
	LogLevel    string
	Dev         bool

	MoveTimeout      time.Duration
	GameTimeout      time.Duration
	RoomWaitTimeout  time.Duration
	WatchdogInterval time.Duration
	UserCacheTTL     time.Duration
}

func Default() Config {
	return Config{
		Addr:             ":8080",
		LogLevel:         "info",
		MoveTimeout:      engine.MoveTimeout,
		GameTimeout:      engine.GameTimeout,
		RoomWaitTimeout:  engine.RoomWaitTimeout,
		WatchdogInterval: 5 * time.Second,
		UserCacheTTL:     5 * time.Minute,
	}
}

// LoadEnvFile loads path into the process environment without overriding
// variables that are already set. A missing default file is not an error.
func LoadEnvFile(path string, required bool) error {
	if err := godotenv.Load(path); err != nil {
		if !required && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: load %s: %w", path, err)
	}
	return nil
}

// Load builds a Config from BLUFF_* variables on top of Default. Every
// malformed variable is reported, not just the first.
func Load() (Config, error) {
	return load(os.LookupEnv)
}

func load(lookup func(string) (string, bool)) (Config, error) {
	c := Default()
	var errs error

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) {
		v, ok := lookup(key)
		if !ok || v == "" {
			return
		}
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			errs = multierr.Append(errs, fmt.Errorf("%s: invalid duration %q", key, v))
			return
		}
		*dst = d
	}

	str("BLUFF_ADDR", &c.Addr)
	str("BLUFF_DATABASE_URL", &c.DatabaseURL)
	str("BLUFF_LOG_LEVEL", &c.LogLevel)
	if v, ok := lookup("BLUFF_DEV"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("BLUFF_DEV: invalid bool %q", v))
		}
		c.Dev = b
	}
	dur("BLUFF_MOVE_TIMEOUT", &c.MoveTimeout)
	dur("BLUFF_GAME_TIMEOUT", &c.GameTimeout)
	dur("BLUFF_ROOM_WAIT_TIMEOUT", &c.RoomWaitTimeout)
	dur("BLUFF_WATCHDOG_INTERVAL", &c.WatchdogInterval)
	dur("BLUFF_USER_CACHE_TTL", &c.UserCacheTTL)

	if errs != nil {
		return Config{}, fmt.Errorf("config: %w", errs)
	}
	return c, nil
}
