// Package config loads run settings from defaults, an optional YAML file and
// SKALD_* environment variables, in increasing order of precedence.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. SKALD_BASE_DIR.
const EnvPrefix = "SKALD"

// Config holds the recognized construction settings of a run.
type Config struct {
	BaseDir             string  `mapstructure:"base_dir"`
	RunName             string  `mapstructure:"run_name"`
	PersistenceStrategy string  `mapstructure:"persistence_strategy"`
	MetricsFileFormat   string  `mapstructure:"metrics_file_format"`
	Console             Console `mapstructure:"console"`
}

// Console configures the run's console transcript.
type Console struct {
	Disabled bool   `mapstructure:"disabled"`
	Echo     bool   `mapstructure:"echo"`
	Level    string `mapstructure:"level"`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		BaseDir:             ".",
		PersistenceStrategy: "eager",
		MetricsFileFormat:   "parquet",
		Console: Console{
			Echo:  true,
			Level: "info",
		},
	}
}

func newViper() *viper.Viper {
	v := viper.New()
	d := Default()
	v.SetDefault("base_dir", d.BaseDir)
	v.SetDefault("run_name", d.RunName)
	v.SetDefault("persistence_strategy", d.PersistenceStrategy)
	v.SetDefault("metrics_file_format", d.MetricsFileFormat)
	v.SetDefault("console.disabled", d.Console.Disabled)
	v.SetDefault("console.echo", d.Console.Echo)
	v.SetDefault("console.level", d.Console.Level)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads configuration from path (YAML) and the environment. If path is
// empty only defaults and environment variables are used.
func Load(path string) (Config, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.PersistenceStrategy = strings.ToLower(strings.TrimSpace(cfg.PersistenceStrategy))
	cfg.MetricsFileFormat = strings.ToLower(strings.TrimSpace(cfg.MetricsFileFormat))
	return cfg, nil
}
