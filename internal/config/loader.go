package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	// ConfigDir is the directory name under ~/.config
	ConfigDir = "mcpagent"
	// ConfigFile is the config file name
	ConfigFile = "config.json"
)

// FileSystem abstracts file operations for testability
type FileSystem interface {
	UserHomeDir() (string, error)
	ReadFile(path string) ([]byte, error)
}

// ConfigFileReader implements FileSystem using the real OS for config loading
type ConfigFileReader struct{}

func (ConfigFileReader) UserHomeDir() (string, error) {
	return os.UserHomeDir()
}

func (ConfigFileReader) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Loader handles configuration loading with injected dependencies
type Loader struct {
	fs FileSystem
}

// NewLoader creates a production Loader using the real filesystem
func NewLoader() *Loader {
	return &Loader{fs: ConfigFileReader{}}
}

// NewLoaderWithFS creates a Loader with a custom filesystem (for testing)
func NewLoaderWithFS(fs FileSystem) *Loader {
	return &Loader{fs: fs}
}

// DefaultPath returns ~/.config/mcpagent/config.json.
func (l *Loader) DefaultPath() (string, error) {
	homeDir, err := l.fs.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", ConfigDir, ConfigFile), nil
}

// Load reads configuration from ~/.config/mcpagent/config.json
// and merges it with defaults. Returns default config if the file doesn't exist.
// Returns error only for parse errors, permission issues, or validation failures.
func (l *Loader) Load() (*Config, error) {
	path, err := l.DefaultPath()
	if err != nil {
		return DefaultConfig(), nil // Use defaults if can't get home dir
	}
	return l.load(path, false)
}

// LoadFrom reads configuration from an explicit path. Unlike Load, a missing
// file is an error.
func (l *Loader) LoadFrom(path string) (*Config, error) {
	return l.load(path, true)
}

// NOTE: JSON keys are unmarshalled directly over the default configuration,
// so explicit zero values (0, false, "") in the file override defaults.
func (l *Loader) load(path string, mustExist bool) (*Config, error) {
	cfg := DefaultConfig()

	data, err := l.fs.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !mustExist {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Load is a convenience function using the default loader
func Load() (*Config, error) {
	return NewLoader().Load()
}
