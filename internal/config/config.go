// Package config reads server settings from the environment, an optional
// .env file and command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds everything the server needs at startup.
type Config struct {
	DBPath          string        `env:"ASSET_DB" envDefault:"assetnexus.sqlite3"`
	Addr            string        `env:"ASSET_ADDR" envDefault:":8080"`
	AdminUser       string        `env:"ASSET_ADMIN_USER" envDefault:"Admin"`
	LogPath         string        `env:"ASSET_LOG"`
	OpTimeout       time.Duration `env:"ASSET_OP_TIMEOUT" envDefault:"5s"`
	BarcodeAttempts int           `env:"ASSET_BARCODE_ATTEMPTS" envDefault:"32"`
	TokenTTL        time.Duration `env:"ASSET_TOKEN_TTL" envDefault:"168h"`
}

// Load reads the given .env files (".env" when none are named) and then the
// environment. Missing files are skipped. Variables already set in the
// environment win over file values.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// RegisterFlags binds the command-line flags to cfg, using its current
// values as defaults.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.DBPath, "db", c.DBPath, "")
	fs.StringVar(&c.DBPath, "d", c.DBPath, "")

	fs.StringVar(&c.Addr, "addr", c.Addr, "")
	fs.StringVar(&c.Addr, "a", c.Addr, "")

	fs.StringVar(&c.AdminUser, "user", c.AdminUser, "")
	fs.StringVar(&c.AdminUser, "u", c.AdminUser, "")

	fs.StringVar(&c.LogPath, "log", c.LogPath, "")
	fs.StringVar(&c.LogPath, "l", c.LogPath, "")
}

// Validate rejects settings the server can not run with.
func (c Config) Validate() error {
	var errs []error
	if c.DBPath == "" {
		errs = append(errs, errors.New("database path is empty"))
	}
	if c.Addr == "" {
		errs = append(errs, errors.New("listen address is empty"))
	}
	if c.AdminUser == "" {
		errs = append(errs, errors.New("admin username is empty"))
	}
	if c.OpTimeout <= 0 {
		errs = append(errs, fmt.Errorf("operation timeout must be positive, got %s", c.OpTimeout))
	}
	if c.BarcodeAttempts <= 0 {
		errs = append(errs, fmt.Errorf("barcode attempts must be positive, got %d", c.BarcodeAttempts))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, fmt.Errorf("token lifetime must be positive, got %s", c.TokenTTL))
	}
	return errors.Join(errs...)
}
