// Package config resolves runtime settings for the checkin CLI.
//
// Sources & precedence (later wins)
//
//  1. Built-in defaults (see Defaults).
//  2. <profile>/.env, then ./.env, parsed with godotenv.
//  3. CHECKIN_* environment variables.
//  4. Command-line flags, applied by the caller with the Override* helpers.
//
// Supported variables
//
//	CHECKIN_DB           path of the profile database
//	CHECKIN_ADDR         listen address of `checkin serve`
//	CHECKIN_LOG_LEVEL    debug | info | warn | error
//	CHECKIN_QUOTA_BYTES  storage cap in bytes, 0 for none
//	CHECKIN_TZ           IANA zone used for "today" (default: local)
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/pbaille/checkin/internal/store"
)

const (
	envDB       = "CHECKIN_DB"
	envAddr     = "CHECKIN_ADDR"
	envLogLevel = "CHECKIN_LOG_LEVEL"
	envQuota    = "CHECKIN_QUOTA_BYTES"
	envTimezone = "CHECKIN_TZ"

	// EnvProfile selects the profile directory when --profile is not given.
	EnvProfile = "CHECKIN_PROFILE"
)

// Config holds runtime settings.
type Config struct {
	ProfileDir string
	DBPath     string
	Addr       string
	LogLevel   string
	QuotaBytes int64
	Timezone   string
}

// DefaultProfileDir is ~/.checkin, or ./.checkin when the home directory is
// unknown.
func DefaultProfileDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".checkin"
	}
	return filepath.Join(home, ".checkin")
}

// Defaults returns the built-in settings for profileDir.
func Defaults(profileDir string) *Config {
	if profileDir == "" {
		profileDir = DefaultProfileDir()
	}
	return &Config{
		ProfileDir: profileDir,
		DBPath:     filepath.Join(profileDir, "checkin.db"),
		Addr:       "127.0.0.1:7420",
		LogLevel:   "warn",
		QuotaBytes: store.DefaultQuota,
	}
}

// Load builds a Config for profileDir from defaults, .env files and the
// environment seen through lookupEnv (os.LookupEnv in production).
func Load(profileDir string, lookupEnv func(string) (string, bool)) (*Config, error) {
	cfg := Defaults(profileDir)

	dotenv, err := readDotEnv(filepath.Join(cfg.ProfileDir, ".env"), ".env")
	if err != nil {
		return nil, err
	}

	lookup := func(key string) (string, bool) {
		if v, ok := lookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}

	if v, ok := lookup(envDB); ok && v != "" {
		cfg.DBPath = v
	}
	if v, ok := lookup(envAddr); ok && v != "" {
		cfg.Addr = v
	}
	if v, ok := lookup(envLogLevel); ok && v != "" {
		cfg.LogLevel = v
	}
	if v, ok := lookup(envTimezone); ok {
		cfg.Timezone = v
	}
	if v, ok := lookup(envQuota); ok && v != "" {
		if err := cfg.OverrideQuota(v); err != nil {
			return nil, err
		}
	}

	if _, err := cfg.Location(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// readDotEnv merges the given .env files in order; missing files are skipped.
func readDotEnv(paths ...string) (map[string]string, error) {
	merged := make(map[string]string)
	for _, p := range paths {
		values, err := godotenv.Read(p)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		for k, v := range values {
			merged[k] = v
		}
	}
	return merged, nil
}

// OverrideQuota parses a byte count such as "1048576".
func (c *Config) OverrideQuota(raw string) error {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || n < 0 {
		return fmt.Errorf("invalid quota %q: want a non-negative byte count", raw)
	}
	c.QuotaBytes = n
	return nil
}

// Location resolves Timezone. Empty or "Local" is the system zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Clock returns a time source in the configured location.
func (c *Config) Clock() (func() time.Time, error) {
	loc, err := c.Location()
	if err != nil {
		return nil, err
	}
	return func() time.Time { return time.Now().In(loc) }, nil
}
