package config

// Config represents the complete codebraid configuration.
// It can be loaded from .codebraid/config.yml with environment variable overrides.
type Config struct {
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Languages LanguagesConfig `yaml:"languages" mapstructure:"languages"`
	Exec      ExecConfig      `yaml:"exec" mapstructure:"exec"`
	Progress  ProgressConfig  `yaml:"progress" mapstructure:"progress"`
}

// CacheConfig configures the content-addressed session cache (spec §4.I).
type CacheConfig struct {
	Root    string `yaml:"root" mapstructure:"root"`         // defaults to ~/.codebraid/cache
	NoCache bool   `yaml:"no_cache" mapstructure:"no_cache"` // never read or write the cache
}

// LanguagesConfig points at the directory of user-supplied language
// definition files (YAML, one language definition per file)
// that extend or override the built-in catalogue (spec §4.C).
type LanguagesConfig struct {
	DefinitionsDir string `yaml:"definitions_dir" mapstructure:"definitions_dir"`
}

// ExecConfig configures the subprocess executor (spec §4.G/§5).
type ExecConfig struct {
	TempDir        string `yaml:"temp_dir" mapstructure:"temp_dir"`
	JupyterTimeout int    `yaml:"jupyter_timeout" mapstructure:"jupyter_timeout"` // seconds, session default
}

// ProgressConfig configures the CLI progress reporter (spec §4.J).
type ProgressConfig struct {
	Quiet bool `yaml:"quiet" mapstructure:"quiet"`
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Cache: CacheConfig{
			Root:    "",
			NoCache: false,
		},
		Languages: LanguagesConfig{
			DefinitionsDir: "",
		},
		Exec: ExecConfig{
			TempDir:        "",
			JupyterTimeout: 60,
		},
		Progress: ProgressConfig{
			Quiet: false,
		},
	}
}
