// config/config.go
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultFile is looked up in the working directory when no path is given.
const DefaultFile = "ferrum.yaml"

// Config holds interpreter and front-end settings.
type Config struct {
	Extension   string
	ModuleDir   string
	LogLevel    slog.Level
	Timeout     time.Duration
	HistoryFile string
	Prompt      string
}

type configDisk struct {
	Extension   string `yaml:"extension"`
	ModuleDir   string `yaml:"module_dir"`
	LogLevel    string `yaml:"log_level"`
	Timeout     string `yaml:"timeout"`
	HistoryFile string `yaml:"history_file"`
	Prompt      string `yaml:"prompt"`
}

// Default returns the built-in settings.
func Default() Config {
	history := ".ferrum_history"
	if home, err := os.UserHomeDir(); err == nil {
		history = filepath.Join(home, history)
	}
	return Config{
		Extension:   ".fm",
		ModuleDir:   ".",
		LogLevel:    slog.LevelWarn,
		HistoryFile: history,
		Prompt:      ">>> ",
	}
}

// Load reads path, or DefaultFile when path is empty. A missing default
// file yields Default(); a missing explicit file is an error.
func Load(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	f, err := os.Open(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("config: %w", err)
	}
	defer f.Close()
	cfg, err := Decode(f)
	if err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Decode parses YAML settings over the defaults. Unknown keys are rejected.
func Decode(r io.Reader) (Config, error) {
	var raw configDisk
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, err
	}
	return raw.toConfig()
}

func (d configDisk) toConfig() (Config, error) {
	cfg := Default()
	if d.Extension != "" {
		cfg.Extension = d.Extension
		if !strings.HasPrefix(cfg.Extension, ".") {
			cfg.Extension = "." + cfg.Extension
		}
	}
	if d.ModuleDir != "" {
		cfg.ModuleDir = d.ModuleDir
	}
	if d.LogLevel != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(d.LogLevel)); err != nil {
			return Config{}, fmt.Errorf("log_level: %w", err)
		}
	}
	if d.Timeout != "" {
		t, err := time.ParseDuration(d.Timeout)
		if err != nil {
			return Config{}, fmt.Errorf("timeout: %w", err)
		}
		cfg.Timeout = t
	}
	if d.HistoryFile != "" {
		cfg.HistoryFile = expandHome(d.HistoryFile)
	}
	if d.Prompt != "" {
		cfg.Prompt = d.Prompt
	}
	return cfg, nil
}

func expandHome(p string) string {
	if rest, ok := strings.CutPrefix(p, "~/"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, rest)
		}
	}
	return p
}
