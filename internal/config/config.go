package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/nwscript-tools/nwsoutline/internal/nwscript"
)

const configFileName = "config.yaml"

// Config is the per-repository configuration stored in .nwsoutline/config.yaml.
type Config struct {
	RepoRoot          string    `mapstructure:"repo_root" yaml:"repo_root"`
	SourceRoots       []string  `mapstructure:"source_roots" yaml:"source_roots"`
	Extensions        []string  `mapstructure:"extensions" yaml:"extensions"`
	Exclude           []string  `mapstructure:"exclude" yaml:"exclude,omitempty"`
	RespectGitignore  bool      `mapstructure:"respect_gitignore" yaml:"respect_gitignore"`
	Workers           int       `mapstructure:"workers" yaml:"workers"`
	DetectSampleBytes int       `mapstructure:"detect_sample_bytes" yaml:"detect_sample_bytes"`
	LegacyCharset     string    `mapstructure:"legacy_charset" yaml:"legacy_charset,omitempty"`
	Log               LogConfig `mapstructure:"log" yaml:"log"`
}

// LogConfig controls the MCP server log file.
type LogConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		SourceRoots:       []string{"."},
		Extensions:        []string{".nss"},
		RespectGitignore:  true,
		Workers:           runtime.GOMAXPROCS(0),
		DetectSampleBytes: nwscript.DefaultSampleSize,
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// ConfigPath returns the path to the config file in the state directory.
func ConfigPath(stateDir string) string {
	return filepath.Join(stateDir, configFileName)
}

// Save writes the configuration to disk as YAML.
func Save(cfg *Config, stateDir string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(ConfigPath(stateDir), data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ExtractorOptions maps the configuration onto extractor options.
func (c *Config) ExtractorOptions() nwscript.Options {
	return nwscript.Options{
		SampleSize:    c.DetectSampleBytes,
		LegacyCharset: c.LegacyCharset,
	}
}
