// Package config loads per-repository settings from a YAML file under
// the .git directory.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the config file's name inside the burl state directory.
const FileName = "config.yaml"

// DirName is the state directory under .git shared with the database.
const DirName = "burl"

// DefaultMainBranch is used when the config file is absent or does not
// set one.
const DefaultMainBranch = "master"

// Config holds the per-repository settings.
type Config struct {
	// MainBranch is the short name of the branch that public history
	// lives on.
	MainBranch string `yaml:"mainBranch"`

	// PreserveTimestamps makes restack keep the author date as the
	// committer date when rebasing.
	PreserveTimestamps bool `yaml:"preserveTimestamps,omitempty"`
}

// Default returns the settings used when no config file exists.
func Default() Config {
	return Config{MainBranch: DefaultMainBranch}
}

// Path returns the config file location for the given .git directory.
func Path(gitDir string) string {
	return filepath.Join(gitDir, DirName, FileName)
}

// Load reads the config from the given .git directory. A missing file
// yields the defaults; a malformed file is an error.
func Load(gitDir string) (Config, error) {
	data, err := os.ReadFile(Path(gitDir))
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file: %w", err)
	}
	if cfg.MainBranch == "" {
		cfg.MainBranch = DefaultMainBranch
	}
	return cfg, nil
}

// Save writes the config, creating the state directory if needed.
func Save(gitDir string, cfg Config) error {
	dir := filepath.Join(gitDir, DirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(Path(gitDir), data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
