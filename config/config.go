// config/config.go
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dalemusser/mandateidx/logging"
	"github.com/dalemusser/mandateidx/toolkit/db/mongodb"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// EnvPrefix is prepended to every key when read from the environment,
// e.g. mongo_uri → MANDATEIDX_MONGO_URI.
const EnvPrefix = "MANDATEIDX"

// DefaultDatabase is used when neither config nor the URI path names a database.
const DefaultDatabase = "mandate_db"

// Output formats for reports.
const (
	OutputText = "text"
	OutputJSON = "json"
	OutputYAML = "yaml"
)

// MongoConfig groups connection settings.
type MongoConfig struct {
	URI      string `mapstructure:"mongo_uri" json:"mongo_uri"`
	Database string `mapstructure:"mongo_database" json:"mongo_database"`
}

// ProvisionConfig groups index provisioning behavior.
type ProvisionConfig struct {
	// Concurrent issues the index DDL concurrently instead of one by one.
	Concurrent bool `mapstructure:"concurrent" json:"concurrent"`

	// ReferenceIndexes also manages the creditor/debtor unique indexes.
	ReferenceIndexes bool `mapstructure:"reference_indexes" json:"reference_indexes"`

	// DuplicateSamples caps the duplicate key groups reported when a unique
	// index cannot be built. 0 disables the lookup.
	DuplicateSamples int `mapstructure:"duplicate_samples" json:"duplicate_samples"`
}

// OutputConfig groups report and metrics output.
type OutputConfig struct {
	Format          string `mapstructure:"output" json:"output"`
	MetricsTextfile string `mapstructure:"metrics_textfile" json:"metrics_textfile"`
}

// Config holds the full mandateidx configuration.
type Config struct {
	// runtime
	Env      string `mapstructure:"env" json:"env"`             // "dev" | "prod"
	LogLevel string `mapstructure:"log_level" json:"log_level"` // debug, info, warn, error …

	Mongo     MongoConfig     `mapstructure:",squash" json:"mongo"`
	Provision ProvisionConfig `mapstructure:",squash" json:"provision"`
	Output    OutputConfig    `mapstructure:",squash" json:"output"`

	// Durations are parsed separately so plain seconds ("90") are accepted.
	DBConnectTimeout time.Duration `mapstructure:"-" json:"db_connect_timeout"`
	IndexBootTimeout time.Duration `mapstructure:"-" json:"index_boot_timeout"`
}

// Dump returns a pretty, redacted JSON string of the config for debugging.
func (c Config) Dump() string {
	s := c.redactedCopy()
	b, _ := json.MarshalIndent(s, "", "  ")
	return string(b)
}

func (c Config) redactedCopy() Config {
	cp := c
	cp.Mongo.URI = mongodb.RedactURI(c.Mongo.URI)
	return cp
}

// RegisterFlags defines the config flags on fs. Only flags the user sets
// explicitly override env, config files and defaults.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "Path to a config file (default: config.{yaml,yml,json,toml} in the working directory)")

	fs.String("env", "dev", `Runtime environment "dev"|"prod"`)
	fs.String("log_level", "info", "Log level")

	fs.String("mongo_uri", "mongodb://localhost:27017", "MongoDB connection string")
	fs.String("mongo_database", "", "Database name (default: database in URI, else "+DefaultDatabase+")")

	fs.String("db_connect_timeout", "10s", "Timeout for DB connect + ping (e.g., \"10s\", \"30\")")
	fs.String("index_boot_timeout", "120s", "Timeout for the whole run (e.g., \"90s\", \"2m\")")

	fs.Bool("concurrent", false, "Create indexes concurrently")
	fs.Bool("reference_indexes", false, "Also manage creditor/debtor unique indexes")
	fs.Int("duplicate_samples", 10, "Duplicate key groups to report when a unique index fails (0 disables)")

	fs.String("output", OutputText, "Report format: text|json|yaml")
	fs.String("metrics_textfile", "", "Write Prometheus metrics to this file after the run")
}

// Load merges defaults → config file → env vars → explicit flags into one Config.
// Final precedence (highest wins): flags(explicit) > env > config > defaults.
// fs must have been populated by RegisterFlags and parsed.
func Load(logger *zap.Logger, fs *pflag.FlagSet) (*Config, error) {
	// 0) Optionally load .env (real env still wins over .env)
	if err := godotenv.Load(); err == nil && logger != nil {
		logger.Info("Loaded .env file")
	}

	// 1) Viper + env
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	for _, k := range allKeys() {
		_ = v.BindEnv(k)
	}
	// The original deployment used these unprefixed names.
	_ = v.BindEnv("mongo_uri", EnvPrefix+"_MONGO_URI", "MONGODB_URI")
	_ = v.BindEnv("mongo_database", EnvPrefix+"_MONGO_DATABASE", "MONGODB_DATABASE")

	// 2) Config file
	explicit := ""
	if fs != nil {
		if f := fs.Lookup("config"); f != nil {
			explicit = strings.TrimSpace(f.Value.String())
		}
	}
	if err := mergeConfigFile(logger, v, explicit); err != nil {
		return nil, err
	}

	// 3) Defaults (lowest precedence)
	setDefaults(v)

	// 4) Apply *explicit* flags (highest precedence)
	if fs != nil {
		fs.VisitAll(func(f *pflag.Flag) {
			if f.Changed && f.Name != "config" {
				_ = v.BindPFlag(f.Name, f)
			}
		})
	}

	// 5) Build struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.Env = strings.ToLower(strings.TrimSpace(cfg.Env))
	cfg.Output.Format = strings.ToLower(strings.TrimSpace(cfg.Output.Format))
	cfg.Mongo.URI = strings.TrimSpace(cfg.Mongo.URI)
	cfg.Mongo.Database = strings.TrimSpace(cfg.Mongo.Database)
	if cfg.Mongo.Database == "" {
		cfg.Mongo.Database = mongodb.DatabaseFromURI(cfg.Mongo.URI)
	}
	if cfg.Mongo.Database == "" {
		cfg.Mongo.Database = DefaultDatabase
	}

	// Parse durations
	dbDur, err := parseDurationFlexible(v.Get("db_connect_timeout"), 10*time.Second)
	if err != nil && logger != nil {
		logger.Warn("invalid db_connect_timeout; using default 10s",
			zap.Any("value", v.Get("db_connect_timeout")), zap.Error(err))
	}
	cfg.DBConnectTimeout = dbDur

	dur, err := parseDurationFlexible(v.Get("index_boot_timeout"), 120*time.Second)
	if err != nil && logger != nil {
		logger.Warn("invalid index_boot_timeout; using default 120s",
			zap.Any("value", v.Get("index_boot_timeout")), zap.Error(err))
	}
	cfg.IndexBootTimeout = dur

	// 6) Validate
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// mergeConfigFile merges an explicit config file, or the first config.* file
// found in the working directory. A missing explicit file is an error.
func mergeConfigFile(logger *zap.Logger, v *viper.Viper, explicit string) error {
	if explicit != "" {
		b, err := os.ReadFile(explicit)
		if err != nil {
			return fmt.Errorf("read config file %q: %w", explicit, err)
		}
		ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(explicit)), ".")
		if ext == "yml" {
			ext = "yaml"
		}
		v.SetConfigType(ext)
		if err := v.MergeConfig(bytes.NewReader(b)); err != nil {
			return fmt.Errorf("decode config file %q: %w", explicit, err)
		}
		if logger != nil {
			logger.Info("Loaded config file", zap.String("file", explicit))
		}
		return nil
	}

	for _, ext := range [...]string{"yaml", "yml", "json", "toml"} {
		file := "config." + ext
		if _, err := os.Stat(file); err != nil {
			continue
		}
		b, err := os.ReadFile(file)
		if err != nil {
			if logger != nil {
				logger.Warn("cannot read config file", zap.String("file", file), zap.Error(err))
			}
			continue
		}
		v.SetConfigType(ext)
		if err := v.MergeConfig(bytes.NewReader(b)); err != nil {
			if logger != nil {
				logger.Warn("cannot decode config file", zap.String("file", file), zap.Error(err))
			}
			continue
		}
		if logger != nil {
			logger.Info("Loaded config file", zap.String("file", file))
		}
		break
	}
	return nil
}

func allKeys() []string {
	return []string{
		"env", "log_level",
		"mongo_uri", "mongo_database",
		"db_connect_timeout", "index_boot_timeout",
		"concurrent", "reference_indexes", "duplicate_samples",
		"output", "metrics_textfile",
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "dev")
	v.SetDefault("log_level", "info")

	v.SetDefault("mongo_uri", "mongodb://localhost:27017")

	v.SetDefault("db_connect_timeout", "10s")
	v.SetDefault("index_boot_timeout", "120s")

	v.SetDefault("concurrent", false)
	v.SetDefault("reference_indexes", false)
	v.SetDefault("duplicate_samples", 10)

	v.SetDefault("output", OutputText)
	v.SetDefault("metrics_textfile", "")
}

func validateConfig(cfg Config) error {
	var missing []string
	var invalid []string

	if cfg.Env != "dev" && cfg.Env != "prod" {
		invalid = append(invalid, `env must be "dev" or "prod"`)
	}
	if !logging.IsValidLogLevel(cfg.LogLevel) {
		invalid = append(invalid, "log_level must be one of "+strings.Join(logging.ValidLogLevels, ", "))
	}

	if cfg.Mongo.URI == "" {
		missing = append(missing, EnvPrefix+"_MONGO_URI (or --mongo_uri)")
	} else if err := mongodb.ValidateURI(cfg.Mongo.URI); err != nil {
		invalid = append(invalid, "mongo_uri: "+err.Error())
	}
	if strings.ContainsAny(cfg.Mongo.Database, "/\\. \"$") {
		invalid = append(invalid, "mongo_database contains characters MongoDB does not allow")
	}

	switch cfg.Output.Format {
	case OutputText, OutputJSON, OutputYAML:
	default:
		invalid = append(invalid, `output must be "text", "json" or "yaml"`)
	}
	if cfg.Provision.DuplicateSamples < 0 {
		invalid = append(invalid, "duplicate_samples must be >= 0")
	}

	if cfg.DBConnectTimeout <= 0 {
		invalid = append(invalid, "db_connect_timeout must be > 0")
	}
	if cfg.IndexBootTimeout <= 0 {
		invalid = append(invalid, "index_boot_timeout must be > 0")
	}

	if len(missing) == 0 && len(invalid) == 0 {
		return nil
	}

	var parts []string
	if len(missing) > 0 {
		parts = append(parts, "missing: "+strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		parts = append(parts, "invalid: "+strings.Join(invalid, ", "))
	}
	return fmt.Errorf("configuration errors: %s", strings.Join(parts, " | "))
}
