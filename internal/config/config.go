// Package config loads the optional bpftracer.toml settings file that lives
// next to the installed binary.
//
// Every setting has a default, so a missing file is not an error. String values
// may reference environment variables as ${VAR} or ${VAR:default}.
//
//	version = "v1"
//	scripts_dir = "scripts"
//	engine = "${BPFTRACE:bpftrace}"
//
//	[logging]
//	level = "error"
//	format = "text"
//	output = "stderr"
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/atlanticdynamic/bpftracer/internal/interpolation"
	"github.com/pelletier/go-toml/v2"
)

const (
	VersionLatest = "v1"

	// DefaultFileName is the settings file looked up in the install directory.
	DefaultFileName = "bpftracer.toml"

	DefaultScriptsDir = "scripts"
	DefaultEngine     = "bpftrace"
	DefaultLogLevel   = "error"
	DefaultLogFormat  = "text"
	DefaultLogOutput  = "stderr"
)

// Config holds the tool's settings.
type Config struct {
	Version string `toml:"version"`

	// ScriptsDir is where script names are resolved. A relative path is
	// relative to the install directory.
	ScriptsDir string `toml:"scripts_dir" env_interpolation:"yes"`

	// Engine is the bpftrace binary, a path or a name looked up on PATH.
	Engine string `toml:"engine" env_interpolation:"yes"`

	Logging Logging `toml:"logging" env_interpolation:"yes"`
}

// Logging configures the tool's own diagnostics, not the engine output.
type Logging struct {
	Level  string `toml:"level"  env_interpolation:"yes"`
	Format string `toml:"format" env_interpolation:"yes"`
	Output string `toml:"output" env_interpolation:"yes"`
}

// NewDefault returns the settings used when no file is present.
func NewDefault() *Config {
	return &Config{
		Version:    VersionLatest,
		ScriptsDir: DefaultScriptsDir,
		Engine:     DefaultEngine,
		Logging: Logging{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
			Output: DefaultLogOutput,
		},
	}
}

// NewConfig reads and validates the settings file at path.
func NewConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToLoadConfig, err)
	}

	cfg, err := NewConfigFromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// NewConfigFromBytes parses TOML settings on top of the defaults, expands
// environment references and validates the result. Unknown keys are rejected.
func NewConfigFromBytes(data []byte) (*Config, error) {
	cfg := NewDefault()

	dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParseToml, err)
	}

	if err := interpolation.InterpolateStruct(cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInterpolation, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load returns the settings from DefaultFileName in installDir, or the
// defaults when that file does not exist.
func Load(installDir string) (*Config, error) {
	path := filepath.Join(installDir, DefaultFileName)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return NewDefault(), nil
	}
	return NewConfig(path)
}

// ScriptsPath returns ScriptsDir resolved against installDir.
func (c *Config) ScriptsPath(installDir string) string {
	if filepath.IsAbs(c.ScriptsDir) {
		return c.ScriptsDir
	}
	return filepath.Join(installDir, c.ScriptsDir)
}

// InstallDir returns the directory holding the running executable, with
// symlinks resolved so that a linked binary still finds its scripts.
func InstallDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to locate executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe), nil
}
