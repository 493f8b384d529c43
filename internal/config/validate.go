package config

import (
	"errors"
	"fmt"
	"strings"
)

var (
	validLogLevels  = []string{"trace", "debug", "info", "warn", "warning", "error"}
	validLogFormats = []string{"text", "json"}
)

// Validate checks every setting and reports all problems at once.
func (c *Config) Validate() error {
	if c.Version == "" {
		c.Version = VersionLatest
	}
	if c.Version != VersionLatest {
		return fmt.Errorf("%w: %s", ErrUnsupportedConfigVer, c.Version)
	}

	var errz []error

	if strings.TrimSpace(c.ScriptsDir) == "" {
		errz = append(errz, fmt.Errorf("%w: scripts_dir", ErrMissingRequiredField))
	}
	if strings.TrimSpace(c.Engine) == "" {
		errz = append(errz, fmt.Errorf("%w: engine", ErrMissingRequiredField))
	}
	if !oneOf(c.Logging.Level, validLogLevels) {
		errz = append(errz, fmt.Errorf("%w: logging.level %q (expected one of %s)",
			ErrInvalidValue, c.Logging.Level, strings.Join(validLogLevels, ", ")))
	}
	if !oneOf(c.Logging.Format, validLogFormats) {
		errz = append(errz, fmt.Errorf("%w: logging.format %q (expected one of %s)",
			ErrInvalidValue, c.Logging.Format, strings.Join(validLogFormats, ", ")))
	}

	return errors.Join(errz...)
}

func oneOf(value string, allowed []string) bool {
	for _, a := range allowed {
		if strings.EqualFold(value, a) {
			return true
		}
	}
	return false
}
