// Package config holds the mycoledger runtime configuration.
//
// Precedence (highest to lowest): CLI flags > env vars > config file > defaults.
// Environment variables use the MYCOLEDGER_ prefix with underscores for
// nesting:
//
//	MYCOLEDGER_STORAGE_DRIVER=sqlite
//	MYCOLEDGER_STORAGE_SQLITE_PATH=./mycoledger.db
//	MYCOLEDGER_BLOB_DRIVER=s3
//	MYCOLEDGER_BLOB_S3_BUCKET=ledger-archives
//	MYCOLEDGER_LOG_LEVEL=debug
package config

import (
	"errors"
	"fmt"
	"strings"
)

// Storage drivers.
const (
	StorageMemory   = "memory"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
)

// Metrics recorders.
const (
	MetricsNone       = "none"
	MetricsPrometheus = "prometheus"
	MetricsExpvar     = "expvar"
)

// Authorization policy modes.
const (
	PolicyAllowAll = "allow_all"
	PolicySteward  = "steward"
)

// Config represents the complete mycoledger configuration.
type Config struct {
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
	Blob    BlobConfig    `mapstructure:"blob"    yaml:"blob"`
	Log     LogConfig     `mapstructure:"log"     yaml:"log"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
	Policy  PolicyConfig  `mapstructure:"policy"  yaml:"policy"`
}

// StorageConfig selects the persistent ledger backend.
type StorageConfig struct {
	// Driver is one of memory, sqlite or postgres.
	Driver      string `mapstructure:"driver"       yaml:"driver"`
	SQLitePath  string `mapstructure:"sqlite_path"  yaml:"sqlite_path"`
	PostgresDSN string `mapstructure:"postgres_dsn" yaml:"postgres_dsn"`
}

// BlobConfig selects where ledger archives are written.
type BlobConfig struct {
	// Driver is one of fs, s3 or memory.
	Driver string   `mapstructure:"driver"  yaml:"driver"`
	FSRoot string   `mapstructure:"fs_root" yaml:"fs_root"`
	S3     S3Config `mapstructure:"s3"      yaml:"s3"`
}

// S3Config holds S3 or MinIO settings. Credentials come from the default AWS chain.
type S3Config struct {
	Bucket    string `mapstructure:"bucket"     yaml:"bucket"`
	Region    string `mapstructure:"region"     yaml:"region"`
	Endpoint  string `mapstructure:"endpoint"   yaml:"endpoint"`
	PathStyle bool   `mapstructure:"path_style" yaml:"path_style"`
}

// LogConfig provides typical settings for application logs.
type LogConfig struct {
	// Format can be 'json' or 'text'.
	Format string `mapstructure:"format" yaml:"format"`
	// Level of logging: 'error', 'warn', 'info', 'debug'.
	Level string `mapstructure:"level" yaml:"level"`
	// Destination is stderr, stdout or a file path.
	Destination string `mapstructure:"destination" yaml:"destination"`
}

// MetricsConfig selects the operation metrics recorder, tracing and audit
// output.
type MetricsConfig struct {
	Recorder string `mapstructure:"recorder" yaml:"recorder"`
	// Addr is the listen address of serve-metrics.
	Addr string `mapstructure:"addr" yaml:"addr"`
	// TracePath receives JSON-lines spans when non-empty.
	TracePath string `mapstructure:"trace_path" yaml:"trace_path"`
	// AuditPath receives one JSON line per mutation when non-empty.
	AuditPath string `mapstructure:"audit_path" yaml:"audit_path"`
}

// PolicyConfig selects the authorization policy for sensitive operations.
type PolicyConfig struct {
	Mode string `mapstructure:"mode" yaml:"mode"`
}

// Defaults returns a Config with the default value of every field.
func Defaults() *Config {
	return &Config{
		Storage: StorageConfig{
			Driver:      StorageSQLite,
			SQLitePath:  "mycoledger.db",
			PostgresDSN: "postgres://localhost/mycoledger?sslmode=disable",
		},
		Blob: BlobConfig{
			Driver: "fs",
			FSRoot: "./blobdata",
			S3:     S3Config{Region: "us-east-1"},
		},
		Log: LogConfig{
			Format:      "text",
			Level:       "info",
			Destination: "stderr",
		},
		Metrics: MetricsConfig{
			Recorder: MetricsNone,
			Addr:     ":9464",
		},
		Policy: PolicyConfig{Mode: PolicyAllowAll},
	}
}

// Validate reports every invalid field.
func (c *Config) Validate() error {
	var errs []error
	switch c.Storage.Driver {
	case StorageMemory, StorageSQLite, StoragePostgres:
	default:
		errs = append(errs, fmt.Errorf("storage.driver: unknown driver %q", c.Storage.Driver))
	}
	switch c.Blob.Driver {
	case "fs", "memory":
	case "s3":
		if strings.TrimSpace(c.Blob.S3.Bucket) == "" {
			errs = append(errs, errors.New("blob.s3.bucket: required for the s3 driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("blob.driver: unknown driver %q", c.Blob.Driver))
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log.format: must be json or text, got %q", c.Log.Format))
	}
	switch c.Metrics.Recorder {
	case MetricsNone, MetricsPrometheus, MetricsExpvar:
	default:
		errs = append(errs, fmt.Errorf("metrics.recorder: unknown recorder %q", c.Metrics.Recorder))
	}
	switch c.Policy.Mode {
	case PolicyAllowAll, PolicySteward:
	default:
		errs = append(errs, fmt.Errorf("policy.mode: unknown mode %q", c.Policy.Mode))
	}
	return errors.Join(errs...)
}
