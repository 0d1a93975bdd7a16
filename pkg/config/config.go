// Package config loads engine configuration from struct defaults overlaid
// with NORMABASE_-prefixed environment variables.
package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	env "github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "NORMABASE_"

// Config is the root configuration shared by the CLI and the pipeline.
type Config struct {
	Database DatabaseConfig `koanf:"database" validate:"required"`
	Blob     BlobConfig     `koanf:"blob"`
	Ingest   IngestConfig   `koanf:"ingest"   validate:"required"`
	Log      LogConfig      `koanf:"log"`
}

// DatabaseConfig holds PostgreSQL connection settings. ConnString wins when
// set; otherwise a DSN is synthesized from the discrete fields.
type DatabaseConfig struct {
	ConnString string `koanf:"conn_string"`
	Host       string `koanf:"host"`
	Port       string `koanf:"port"`
	User       string `koanf:"user"`
	Password   string `koanf:"password"`
	DBName     string `koanf:"name"`
	SSLMode    string `koanf:"ssl_mode"`
	MaxConns   int    `koanf:"max_conns" validate:"min=1,max=100"`
}

// BlobConfig selects the raw-document source.
type BlobConfig struct {
	// Driver is "fs" or "gcs".
	Driver string `koanf:"driver" validate:"oneof=fs gcs"`
	// Root is the base directory (fs) or bucket name (gcs).
	Root string `koanf:"root"`
}

// IngestConfig bounds chunk sizing and batch concurrency.
type IngestConfig struct {
	MaxChunkChars    int    `koanf:"max_chunk_chars"    validate:"min=1"`
	FallbackMinChars int    `koanf:"fallback_min_chars" validate:"min=1"`
	Workers          int    `koanf:"workers"            validate:"min=1,max=64"`
	Jurisdiction     string `koanf:"jurisdiction"`
}

type LogConfig struct {
	Level string `koanf:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `koanf:"json"`
}

func defaults() Config {
	return Config{
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     "5432",
			User:     "postgres",
			DBName:   "normabase",
			SSLMode:  "disable",
			MaxConns: 10,
		},
		Blob: BlobConfig{Driver: "fs", Root: "."},
		Ingest: IngestConfig{
			MaxChunkChars:    5000,
			FallbackMinChars: 900,
			Workers:          4,
			Jurisdiction:     "federal_br",
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load builds the configuration from defaults plus environment overrides
// (e.g. NORMABASE_DATABASE_HOST).
func Load() (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(defaults(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("config: load defaults: %w", err)
	}
	envProvider := env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
			return strings.Replace(key, "_", ".", 1), value
		},
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("config: load environment: %w", err)
	}
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}

// DSN returns the connection string for the database, synthesizing one from
// the discrete fields when ConnString is empty.
func (d *DatabaseConfig) DSN() string {
	if d.ConnString != "" {
		return d.ConnString
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}
