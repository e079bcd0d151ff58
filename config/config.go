// Package config loads the configuration surface the core consumes:
// dialect selection, connection parameters, worker count, and cache TTL.
package config

import (
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// AppFs is swappable for tests.
var AppFs = afero.NewOsFs()

// Config is everything the database manager needs at startup.
type Config struct {
	// Dialect selects the storage engine: "sqlite" or "mysql".
	Dialect string
	// Path is the database file for the embedded engine.
	Path string
	// DSN is the connection string for the pooled engine.
	DSN string
	// MaxOpenConns bounds the pooled engine's connections.
	MaxOpenConns int
	// Workers bounds the executor's worker pool.
	Workers int
	// CacheTTL is how long read-cache entries stay fresh.
	CacheTTL time.Duration
	// Verbose enables debug logging.
	Verbose bool
}

// Load reads configuration from .lorekeep.yaml (working directory, home
// directory, or ~/.config/lorekeep), the LOREKEEP_* environment, and an
// optional .env file, in ascending priority.
func Load() (*Config, error) {
	home, err := homedir.Dir()
	if err != nil {
		return nil, err
	}

	viper.SetConfigName(".lorekeep")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath(home)
	viper.AddConfigPath(filepath.Join(home, ".config", "lorekeep"))

	viper.SetEnvPrefix("LOREKEEP")
	viper.AutomaticEnv()

	viper.SetDefault("dialect", "sqlite")
	viper.SetDefault("path", "lorekeep.db")
	viper.SetDefault("max_open_conns", 10)
	viper.SetDefault("workers", 4)
	viper.SetDefault("cache_ttl", "30s")
	viper.SetDefault("verbose", false)

	_ = viper.ReadInConfig()

	if _, err := AppFs.Stat(".env"); err == nil {
		_ = godotenv.Overload(".env")
	}

	return &Config{
		Dialect:      viper.GetString("dialect"),
		Path:         viper.GetString("path"),
		DSN:          viper.GetString("dsn"),
		MaxOpenConns: viper.GetInt("max_open_conns"),
		Workers:      viper.GetInt("workers"),
		CacheTTL:     viper.GetDuration("cache_ttl"),
		Verbose:      viper.GetBool("verbose"),
	}, nil
}
