// Package config provides functionality for managing configuration options
// for the application using command-line flags, an optional JSON config
// file, a .env file and environment variables.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Options holds the configuration values for the server.
type Options struct {
	// Addr defines the server's listening address (ip:port).
	Addr string `json:"server_address" env:"SERVER_ADDRESS"`

	// DatabaseDriver selects the SQL dialect: postgres or sqlite.
	DatabaseDriver string `json:"database_driver" env:"DATABASE_DRIVER"`
	// DatabaseDSN holds the connection string, or the file path for sqlite.
	DatabaseDSN string `json:"database_dsn" env:"DATABASE_DSN"`

	// SessionSecret signs the session cookie.
	SessionSecret string `json:"session_secret" env:"SESSION_SECRET"`
	// SessionTTL is how long a login stays valid.
	SessionTTL time.Duration `json:"session_ttl" env:"SESSION_TTL"`
	// SessionBackend selects where sessions live: sql or redis.
	SessionBackend string `json:"session_backend" env:"SESSION_BACKEND"`

	RedisAddr     string `json:"redis_addr" env:"REDIS_ADDR"`
	RedisPassword string `json:"redis_password" env:"REDIS_PASSWORD"`
	RedisDB       int    `json:"redis_db" env:"REDIS_DB"`

	// Env is production or development.
	Env      string `json:"app_env" env:"APP_ENV"`
	LogLevel string `json:"log_level" env:"LOG_LEVEL"`

	// BlobDriver selects attachment storage: fs or s3.
	BlobDriver      string `json:"blob_driver" env:"BLOB_DRIVER"`
	BlobDir         string `json:"blob_dir" env:"BLOB_DIR"`
	BlobS3Bucket    string `json:"blob_s3_bucket" env:"BLOB_S3_BUCKET"`
	BlobS3Region    string `json:"blob_s3_region" env:"BLOB_S3_REGION"`
	BlobS3Endpoint  string `json:"blob_s3_endpoint" env:"BLOB_S3_ENDPOINT"`
	BlobS3PathStyle bool   `json:"blob_s3_path_style" env:"BLOB_S3_PATH_STYLE"`

	// OTelEndpoint enables trace export when set (host:port of an OTLP/HTTP collector).
	OTelEndpoint string `json:"otel_endpoint" env:"OTEL_ENDPOINT"`

	// TLSCertFile and TLSKeyFile switch the server to HTTPS when both are set.
	TLSCertFile string `json:"tls_cert_file" env:"TLS_CERT_FILE"`
	TLSKeyFile  string `json:"tls_key_file" env:"TLS_KEY_FILE"`

	// Config is the path to the JSON config file.
	Config string `json:"-" env:"CONFIG"`
}

// Production reports whether the server runs in production mode.
func (o *Options) Production() bool {
	return strings.EqualFold(o.Env, "production")
}

// Defaults returns the options used when nothing else is configured.
func Defaults() *Options {
	return &Options{
		Addr:           "localhost:8080",
		DatabaseDriver: "postgres",
		SessionTTL:     7 * 24 * time.Hour,
		SessionBackend: "sql",
		RedisAddr:      "localhost:6379",
		Env:            "development",
		LogLevel:       "info",
		BlobDriver:     "fs",
		BlobDir:        "data/blobs",
		Config:         "config.json",
	}
}

// Validate checks combinations that cannot work at runtime.
func (o *Options) Validate() error {
	var errs []error
	switch o.DatabaseDriver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("unknown database driver %q", o.DatabaseDriver))
	}
	if o.DatabaseDSN == "" {
		errs = append(errs, errors.New("database dsn is required"))
	}
	switch o.SessionBackend {
	case "sql", "redis":
	default:
		errs = append(errs, fmt.Errorf("unknown session backend %q", o.SessionBackend))
	}
	switch o.BlobDriver {
	case "fs":
	case "s3":
		if o.BlobS3Bucket == "" {
			errs = append(errs, errors.New("s3 bucket is required for the s3 blob driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown blob driver %q", o.BlobDriver))
	}
	if o.SessionTTL <= 0 {
		errs = append(errs, errors.New("session ttl must be positive"))
	}
	if o.Production() && o.SessionSecret == "" {
		errs = append(errs, errors.New("session secret is required in production"))
	}
	if (o.TLSCertFile == "") != (o.TLSKeyFile == "") {
		errs = append(errs, errors.New("tls cert and key must be set together"))
	}
	return errors.Join(errs...)
}

// Parse parses the command-line flags, config file and environment variables.
// It exits the process on invalid configuration.
func Parse() *Options {
	_ = godotenv.Load()

	options, err := Load(os.Args[1:], os.Stderr)
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	return options
}

// Load resolves options from args. Precedence, lowest first: defaults, JSON
// config file, environment, explicitly set flags.
func Load(args []string, output io.Writer) (*Options, error) {
	flagged := &Options{}
	fs := flag.NewFlagSet("herokeeper", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&flagged.Addr, "a", "", "run on ip:port server")
	fs.StringVar(&flagged.DatabaseDSN, "d", "", "db address, or file path for sqlite")
	fs.StringVar(&flagged.DatabaseDriver, "driver", "", "database driver: postgres or sqlite")
	fs.StringVar(&flagged.LogLevel, "log-level", "", "log level")
	fs.StringVar(&flagged.Config, "config", "", "path to config file")
	fs.StringVar(&flagged.Config, "c", "", "path to config file (shorthand)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	options := Defaults()
	configPath := options.Config
	if p := os.Getenv("CONFIG"); p != "" {
		configPath = p
	}
	if flagged.Config != "" {
		configPath = flagged.Config
	}
	if err := readConfigFile(configPath, options); err != nil {
		return nil, err
	}
	options.Config = configPath

	if err := env.Parse(options); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "a":
			options.Addr = flagged.Addr
		case "d":
			options.DatabaseDSN = flagged.DatabaseDSN
		case "driver":
			options.DatabaseDriver = flagged.DatabaseDriver
		case "log-level":
			options.LogLevel = flagged.LogLevel
		}
	})

	if err := options.Validate(); err != nil {
		return nil, err
	}
	return options, nil
}

// readConfigFile merges the JSON file at path into options. A missing file
// is not an error.
func readConfigFile(path string, options *Options) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("error while reading config file: %w", err)
	}

	// session_ttl is written as a Go duration string in the file.
	var raw struct {
		*Options
		SessionTTL string `json:"session_ttl"`
	}
	raw.Options = options
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("error while parsing config file: %w", err)
	}
	if raw.SessionTTL != "" {
		ttl, err := time.ParseDuration(raw.SessionTTL)
		if err != nil {
			return fmt.Errorf("error while parsing config file: session_ttl: %w", err)
		}
		options.SessionTTL = ttl
	}
	return nil
}
