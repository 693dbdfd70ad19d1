// Package config loads htnc.toml, the compiler's per-project settings.
package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// FileName is the name Find looks for.
const FileName = "htnc.toml"

// DefaultMaxClauses bounds DNF expansion when no file says otherwise.
const DefaultMaxClauses = 4096

// Color modes.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Config represents an htnc.toml file.
type Config struct {
	// MaxDNFClauses bounds the number of clauses a single precondition may
	// expand to. Zero means unbounded.
	MaxDNFClauses int `toml:"max_dnf_clauses"`

	// Color is one of "auto", "always" or "never".
	Color string `toml:"color"`

	Intrinsics Intrinsics `toml:"intrinsics"`
}

// Intrinsics tunes the builtin function table.
type Intrinsics struct {
	// Disable lists intrinsic names removed from the table.
	Disable []string `toml:"disable,omitempty"`
}

// Default returns the settings used without a file.
func Default() *Config {
	return &Config{
		MaxDNFClauses: DefaultMaxClauses,
		Color:         ColorAuto,
	}
}

// Load reads the file at path on top of the defaults.
func Load(path string) (*Config, error) {
	config := Default()
	md, err := toml.DecodeFile(path, config)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, errors.Errorf("%s: unknown key %q", path, undecoded[0].String())
	}
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, path)
	}
	return config, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	switch c.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return errors.Errorf("color must be %q, %q or %q, got %q", ColorAuto, ColorAlways, ColorNever, c.Color)
	}
	if c.MaxDNFClauses < 0 {
		return errors.Errorf("max_dnf_clauses must not be negative, got %d", c.MaxDNFClauses)
	}
	return nil
}

// UseColor resolves the color mode against whether output is a terminal.
func (c *Config) UseColor(terminal bool) bool {
	switch c.Color {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	}
	return terminal
}

// Find searches for htnc.toml starting from dir and walking up to parent
// directories, stopping at a .git boundary. It returns ("", nil, nil) if
// there is none.
func Find(dir string) (string, *Config, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", nil, err
	}
	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			config, err := Load(path)
			if err != nil {
				return "", nil, err
			}
			return path, config, nil
		}

		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return "", nil, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil, nil
		}
		dir = parent
	}
}
