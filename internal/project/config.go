package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/spf13/viper"

	"github.com/piwi3910/curenest/internal/model"
)

// Config is the resolved CLI configuration.
type Config struct {
	Settings    model.Settings
	DBPath      string
	LogLevel    string
	CatalogPath string
}

// fileConfig mirrors the YAML layout of config.yaml.
type fileConfig struct {
	TimeBudget  time.Duration      `mapstructure:"time_budget"`
	Spacing     float64            `mapstructure:"spacing"`
	EdgeMargin  float64            `mapstructure:"edge_margin"`
	Objective   string             `mapstructure:"objective"`
	Workers     int                `mapstructure:"workers"`
	CycleLength time.Duration      `mapstructure:"cycle_length"`
	Tuning      model.TuningConfig `mapstructure:"tuning"`
	DB          string             `mapstructure:"db"`
	LogLevel    string             `mapstructure:"log_level"`
	Catalog     string             `mapstructure:"catalog"`
}

// runtimeEnv holds overrides that always come from the environment.
type runtimeEnv struct {
	DB       string `env:"CURENEST_DB"`
	LogLevel string `env:"CURENEST_LOG_LEVEL"`
}

// DefaultConfigDir returns ~/.config/curenest.
func DefaultConfigDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		home, herr := os.UserHomeDir()
		if herr != nil {
			home = "."
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "curenest")
}

// DefaultConfigPath returns the user config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

func setDefaults(v *viper.Viper) {
	d := model.DefaultSettings()
	v.SetDefault("time_budget", d.TimeBudget.String())
	v.SetDefault("spacing", d.Spacing)
	v.SetDefault("edge_margin", d.EdgeMargin)
	v.SetDefault("objective", d.Objective.Name)
	v.SetDefault("workers", d.Workers)
	v.SetDefault("cycle_length", d.CycleLength.String())

	t := d.Tuning
	v.SetDefault("tuning.small_parts", t.SmallParts)
	v.SetDefault("tuning.large_parts", t.LargeParts)
	v.SetDefault("tuning.large_primary_share", t.LargePrimaryShare)
	v.SetDefault("tuning.min_fallback_reserve", t.MinFallbackReserve.String())
	v.SetDefault("tuning.watchdog_margin", t.WatchdogMargin.String())
	v.SetDefault("tuning.max_retries", t.MaxRetries)
	v.SetDefault("tuning.max_breadth", t.MaxBreadth)
	v.SetDefault("tuning.node_limit", t.NodeLimit)
	v.SetDefault("tuning.population", t.Population)
	v.SetDefault("tuning.generations", t.Generations)
	v.SetDefault("tuning.seed", t.Seed)

	v.SetDefault("db", filepath.Join(DefaultConfigDir(), "curenest.db"))
	v.SetDefault("log_level", "info")
	v.SetDefault("catalog", filepath.Join(DefaultConfigDir(), "catalog.json"))
}

// LoadConfig resolves the configuration. Precedence, highest first:
// CURENEST_DB / CURENEST_LOG_LEVEL, other CURENEST_* variables, the project
// file (.curenest.yaml in the working directory), the user file at path
// (DefaultConfigPath when empty), built-in defaults. Missing files are not
// an error.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	if path == "" {
		path = DefaultConfigPath()
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil && !isNotExist(err) {
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}

	if _, err := os.Stat(".curenest.yaml"); err == nil {
		pv := viper.New()
		pv.SetConfigFile(".curenest.yaml")
		if err := pv.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading project config: %w", err)
		}
		if err := v.MergeConfigMap(pv.AllSettings()); err != nil {
			return Config{}, fmt.Errorf("merging project config: %w", err)
		}
	}

	v.SetEnvPrefix("CURENEST")
	v.AutomaticEnv()

	return decodeConfig(v)
}

func decodeConfig(v *viper.Viper) (Config, error) {
	var fc fileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return Config{}, fmt.Errorf("unmarshaling config: %w", err)
	}

	objective, err := model.ObjectiveByName(fc.Objective)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}

	cfg := Config{
		Settings: model.Settings{
			TimeBudget:  fc.TimeBudget,
			Spacing:     fc.Spacing,
			EdgeMargin:  fc.EdgeMargin,
			Objective:   objective,
			Tuning:      fc.Tuning,
			Workers:     fc.Workers,
			CycleLength: fc.CycleLength,
		},
		DBPath:      fc.DB,
		LogLevel:    fc.LogLevel,
		CatalogPath: fc.Catalog,
	}

	var re runtimeEnv
	if err := env.Parse(&re); err != nil {
		return Config{}, fmt.Errorf("parsing environment: %w", err)
	}
	if re.DB != "" {
		cfg.DBPath = re.DB
	}
	if re.LogLevel != "" {
		cfg.LogLevel = re.LogLevel
	}

	if cfg.Settings.TimeBudget <= 0 {
		return Config{}, fmt.Errorf("config: time_budget must be positive, got %s", cfg.Settings.TimeBudget)
	}
	if cfg.Settings.Workers <= 0 {
		cfg.Settings.Workers = 1
	}
	return cfg, nil
}

func isNotExist(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
}

// WriteDefaultConfig writes a config file holding the built-in defaults. It
// refuses to overwrite an existing file.
func WriteDefaultConfig(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	v := viper.New()
	setDefaults(v)
	// SafeWriteConfigAs only writes explicitly set keys.
	for _, key := range v.AllKeys() {
		v.Set(key, v.Get(key))
	}
	if err := v.SafeWriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config %s: %w", path, err)
	}
	return nil
}
