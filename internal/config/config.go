// Package config provides configuration loading and validation for the
// lumberjack CLI.
package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// Sentinel validation errors.
var (
	ErrInvalidMerges      = errors.New("merge budget must not be negative")
	ErrInvalidWorkers     = errors.New("worker count must not be negative")
	ErrInvalidTypePattern = errors.New("type pattern does not compile")
	ErrInvalidLogLevel    = errors.New("unknown log level")
	ErrInvalidLogFormat   = errors.New("log format must be text or json")
)

// Default configuration values.
const (
	DefaultMerges         = 100
	DefaultTokenDelimiter = "_"
	DefaultTypePattern    = `^[_a-zA-Z]+$`
	DefaultStorePath      = "lumberjack.db"
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "text"
)

// DefaultNonMergeable lists node types that never merge.
var DefaultNonMergeable = []string{"block"}

// Config holds all configuration for lumberjack.
type Config struct {
	Fit     FitConfig     `mapstructure:"fit"`
	Parse   ParseConfig   `mapstructure:"parse"`
	Load    LoadConfig    `mapstructure:"load"`
	Store   StoreConfig   `mapstructure:"store"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// FitConfig holds merge settings.
type FitConfig struct {
	Merges         int      `mapstructure:"merges"`
	TokenDelimiter string   `mapstructure:"token_delimiter"`
	NonMergeable   []string `mapstructure:"non_mergeable"`
	// Rule is an optional path to a .risor eligibility rule.
	Rule string `mapstructure:"rule"`
}

// ParseConfig holds source conversion settings.
type ParseConfig struct {
	TypePattern       string `mapstructure:"type_pattern"`
	DropDocstrings    bool   `mapstructure:"drop_docstrings"`
	NamedOnly         bool   `mapstructure:"named_only"`
	Functions         bool   `mapstructure:"functions"`
	HideFunctionNames bool   `mapstructure:"hide_function_names"`
}

// LoadConfig holds input discovery settings.
type LoadConfig struct {
	// Workers is the parse pool size; 0 means one per CPU.
	Workers      int      `mapstructure:"workers"`
	SkipDirs     []string `mapstructure:"skip_dirs"`
	ValidateJSON bool     `mapstructure:"validate_json"`
}

// StoreConfig holds model database settings.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig holds logging-specific configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load loads configuration from file and LUMBERJACK_* environment variables.
// With an empty path it looks for .lumberjack.yaml in the working directory
// and is satisfied by defaults when none exists.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(".lumberjack")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("LUMBERJACK")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	readErr := v.ReadInConfig()
	if readErr != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFoundErr) {
			return nil, fmt.Errorf("failed to read config file: %w", readErr)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Default returns the configuration Load produces with no file or
// environment overrides.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// Defaults always decode.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("fit.merges", DefaultMerges)
	v.SetDefault("fit.token_delimiter", DefaultTokenDelimiter)
	v.SetDefault("fit.non_mergeable", DefaultNonMergeable)
	v.SetDefault("fit.rule", "")

	v.SetDefault("parse.type_pattern", DefaultTypePattern)
	v.SetDefault("parse.drop_docstrings", true)
	v.SetDefault("parse.named_only", false)
	v.SetDefault("parse.functions", false)
	v.SetDefault("parse.hide_function_names", true)

	v.SetDefault("load.workers", 0)
	v.SetDefault("load.skip_dirs", []string{})
	v.SetDefault("load.validate_json", false)

	v.SetDefault("store.path", DefaultStorePath)

	v.SetDefault("logging.level", DefaultLogLevel)
	v.SetDefault("logging.format", DefaultLogFormat)
}

func validate(cfg *Config) error {
	if cfg.Fit.Merges < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMerges, cfg.Fit.Merges)
	}
	if cfg.Load.Workers < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkers, cfg.Load.Workers)
	}
	if _, err := regexp.Compile(cfg.Parse.TypePattern); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTypePattern, err)
	}
	if _, err := parseLevel(cfg.Logging.Level); err != nil {
		return err
	}
	switch cfg.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, cfg.Logging.Format)
	}
	return nil
}
