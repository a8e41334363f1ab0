package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Store struct {
		Driver string
		Path   string
	}
	Log struct {
		Level string
		File  string
	}
	Loan struct {
		Days int
	}
	Operation struct {
		Timeout time.Duration
	}
}

// LoanPeriod is the default loan length. Zero means loans carry no due date.
func (c Config) LoanPeriod() time.Duration {
	if c.Loan.Days <= 0 {
		return 0
	}
	return time.Duration(c.Loan.Days) * 24 * time.Hour
}

// New returns a viper instance with defaults and LIBRARY_* environment
// overrides applied. Callers may bind flags before calling Load.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("LIBRARY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "library.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("loan.days", 14)
	v.SetDefault("operation.timeout", 5*time.Second)
	return v
}

// Load reads configFile when given, otherwise an optional library.yaml in
// the working directory, and unmarshals the result.
func Load(v *viper.Viper, configFile string) (Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("library")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.Operation.Timeout <= 0 {
		return Config{}, fmt.Errorf("operation.timeout must be positive, got %s", cfg.Operation.Timeout)
	}
	return cfg, nil
}
