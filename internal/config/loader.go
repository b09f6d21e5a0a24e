package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load loads configuration from file and environment variables.
	// Priority: defaults → config file → environment variables (env wins)
	Load() (*Config, error)
}

type loader struct {
	rootDir string
}

// NewLoader creates a new configuration loader for the given root directory.
func NewLoader(rootDir string) Loader {
	return &loader{
		rootDir: rootDir,
	}
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Environment variables (CODEBRAID_*)
// 2. Config file (.codebraid/config.yml or .codebraid/config.yaml)
// 3. Default values
func (l *loader) Load() (*Config, error) {
	v := viper.New()

	configDir := filepath.Join(l.rootDir, ".codebraid")
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)

	v.SetEnvPrefix("CODEBRAID")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.BindEnv("cache.root")
	v.BindEnv("cache.no_cache")
	v.BindEnv("languages.definitions_dir")
	v.BindEnv("exec.temp_dir")
	v.BindEnv("exec.jupyter_timeout")
	v.BindEnv("progress.quiet")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Cache.Root == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			cfg.Cache.Root = filepath.Join(home, ".codebraid", "cache")
		}
	}
	if cfg.Exec.TempDir == "" {
		cfg.Exec.TempDir = filepath.Join(os.TempDir(), "codebraid")
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setDefaults configures viper with default values.
func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("cache.root", defaults.Cache.Root)
	v.SetDefault("cache.no_cache", defaults.Cache.NoCache)

	v.SetDefault("languages.definitions_dir", defaults.Languages.DefinitionsDir)

	v.SetDefault("exec.temp_dir", defaults.Exec.TempDir)
	v.SetDefault("exec.jupyter_timeout", defaults.Exec.JupyterTimeout)

	v.SetDefault("progress.quiet", defaults.Progress.Quiet)
}

// LoadConfig is a convenience function that creates a loader and loads config.
// It uses the current working directory as the root.
func LoadConfig() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return NewLoader(wd).Load()
}

// LoadConfigFromDir loads configuration from a specific directory.
func LoadConfigFromDir(rootDir string) (*Config, error) {
	return NewLoader(rootDir).Load()
}
