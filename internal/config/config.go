package config

import (
	stderrors "errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"idstat/domain/stats"
	"idstat/internal/errors"
)

// EnvPrefix namespaces environment overrides, e.g. IDSTAT_ANALYSIS_ALPHA.
const EnvPrefix = "IDSTAT"

// Config represents the complete application configuration
type Config struct {
	Analysis AnalysisConfig `mapstructure:"analysis"`
	Database DatabaseConfig `mapstructure:"database"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Workers  WorkersConfig  `mapstructure:"workers"`
	Input    InputConfig    `mapstructure:"input"`
}

// AnalysisConfig holds the statistical settings shared by every unit
type AnalysisConfig struct {
	Alpha     float64 `mapstructure:"alpha" validate:"gt=0,lt=1"`
	MinSample int     `mapstructure:"min_sample" validate:"gte=2"`
	SampleCap int     `mapstructure:"sample_cap" validate:"gte=0"`
	Seed      int64   `mapstructure:"seed"`
	PlanFile  string  `mapstructure:"plan_file"`
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL          string `mapstructure:"url"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"gte=0"`
	SampleTable  string `mapstructure:"sample_table"`
	CacheSize    int    `mapstructure:"cache_size" validate:"gte=0"`
}

// StorageConfig selects where run records go
type StorageConfig struct {
	Backend   string `mapstructure:"backend" validate:"oneof=memory postgres badger"`
	BadgerDir string `mapstructure:"badger_dir" validate:"required_if=Backend badger"`
}

// LoggingConfig holds log level and rotation settings
type LoggingConfig struct {
	Level      string `mapstructure:"level" validate:"omitempty,oneof=error warn info debug trace ERROR WARN INFO DEBUG TRACE"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" validate:"gte=0"`
	Compress   bool   `mapstructure:"compress"`
}

// MetricsConfig holds the optional Prometheus textfile dump
type MetricsConfig struct {
	TextfilePath string `mapstructure:"textfile_path"`
}

// WorkersConfig sizes the study worker pool; zero means one per CPU
type WorkersConfig struct {
	Count int `mapstructure:"count" validate:"gte=0"`
}

// InputConfig points at a spreadsheet used instead of the database
type InputConfig struct {
	File  string `mapstructure:"file"`
	Sheet string `mapstructure:"sheet"`
}

// Settings converts the analysis section into the settings threaded through the engine.
func (c *Config) Settings() stats.Settings {
	return stats.Settings{
		SampleCap: c.Analysis.SampleCap,
		Alpha:     c.Analysis.Alpha,
		MinSample: c.Analysis.MinSample,
		Seed:      c.Analysis.Seed,
	}
}

// WorkerCount resolves the configured pool size.
func (c *Config) WorkerCount() int {
	if c.Workers.Count > 0 {
		return c.Workers.Count
	}
	return runtime.NumCPU()
}

// SetDefaults registers every key with its default so env overrides bind.
func SetDefaults(v *viper.Viper) {
	defaults := stats.DefaultSettings()
	v.SetDefault("analysis.alpha", defaults.Alpha)
	v.SetDefault("analysis.min_sample", defaults.MinSample)
	v.SetDefault("analysis.sample_cap", 0)
	v.SetDefault("analysis.seed", int64(42))
	v.SetDefault("analysis.plan_file", "")

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_open_conns", 8)
	v.SetDefault("database.sample_table", "observations")
	v.SetDefault("database.cache_size", 64)

	v.SetDefault("storage.backend", "memory")
	v.SetDefault("storage.badger_dir", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size_mb", 50)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age_days", 28)
	v.SetDefault("logging.compress", false)

	v.SetDefault("metrics.textfile_path", "")
	v.SetDefault("workers.count", 0)
	v.SetDefault("input.file", "")
	v.SetDefault("input.sheet", "")
}

// NewViper returns a viper instance with defaults, env binding and the optional config file.
func NewViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("idstat")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !stderrors.As(err, &notFound) {
			return nil, errors.Wrapf(errors.ConfigInvalid(err.Error()), "failed to read config %s", configFile)
		}
	}
	return v, nil
}

// Load reads .env, the optional config file and IDSTAT_* variables, then validates the result
func Load(configFile string) (*Config, error) {
	_ = godotenv.Load()

	v, err := NewViper(configFile)
	if err != nil {
		return nil, err
	}
	return FromViper(v)
}

// FromViper decodes and validates a populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(errors.ConfigInvalid(err.Error()), "failed to decode configuration")
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks struct tags and cross-field rules
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if stderrors.As(err, &fieldErrs) {
			msgs := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
			}
			return errors.ConfigInvalid(strings.Join(msgs, "; "))
		}
		return errors.ConfigInvalid(err.Error())
	}
	if cfg.Storage.Backend == "postgres" && cfg.Database.URL == "" {
		return errors.ConfigInvalid("database.url is required for the postgres backend")
	}
	return nil
}
