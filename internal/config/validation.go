package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/nwscript-tools/nwsoutline/internal/nwscript"
)

// Validate checks cfg and returns every problem found.
func Validate(cfg *Config) error {
	var errs []error

	if len(cfg.SourceRoots) == 0 {
		errs = append(errs, errors.New("source_roots must not be empty"))
	}
	if len(cfg.Extensions) == 0 {
		errs = append(errs, errors.New("extensions must not be empty"))
	}
	for _, ext := range cfg.Extensions {
		if !strings.HasPrefix(ext, ".") {
			errs = append(errs, fmt.Errorf("extension %q must start with a dot", ext))
		}
	}
	for _, pattern := range cfg.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			errs = append(errs, fmt.Errorf("exclude pattern %q is not a valid glob", pattern))
		}
	}
	if cfg.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", cfg.Workers))
	}
	if cfg.DetectSampleBytes <= 0 {
		errs = append(errs, fmt.Errorf("detect_sample_bytes must be positive, got %d", cfg.DetectSampleBytes))
	}
	if cfg.LegacyCharset != "" {
		if _, err := nwscript.LookupCharset(cfg.LegacyCharset); err != nil {
			errs = append(errs, err)
		}
	}
	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q is not one of debug, info, warn, error", cfg.Log.Level))
	}

	return errors.Join(errs...)
}
