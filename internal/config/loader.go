package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. NWSOUTLINE_WORKERS.
const EnvPrefix = "NWSOUTLINE"

// Load reads the configuration with the following priority (highest first):
//  1. Environment variables (NWSOUTLINE_*)
//  2. stateDir/config.yaml
//  3. Default values
//
// A missing config file is not an error.
func Load(stateDir string) (*Config, error) {
	return LoadFile(stateDir, "")
}

// LoadFile is Load with an explicit config file. An empty file falls back to
// stateDir/config.yaml; a named file must exist.
func LoadFile(stateDir, file string) (*Config, error) {
	v := viper.New()
	if file != "" {
		if _, err := os.Stat(file); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(stateDir)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("repo_root", d.RepoRoot)
	v.SetDefault("source_roots", d.SourceRoots)
	v.SetDefault("extensions", d.Extensions)
	v.SetDefault("exclude", d.Exclude)
	v.SetDefault("respect_gitignore", d.RespectGitignore)
	v.SetDefault("workers", d.Workers)
	v.SetDefault("detect_sample_bytes", d.DetectSampleBytes)
	v.SetDefault("legacy_charset", d.LegacyCharset)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.max_size_mb", d.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
}
