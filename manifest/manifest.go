// Package manifest handles redex.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the name of the project configuration file.
const FileName = "redex.toml"

// Defaults applied to values left unset in redex.toml.
const (
	DefaultMaxSteps = 10000
	DefaultAddr     = ":4567"
)

// Manifest represents a redex.toml project configuration.
type Manifest struct {
	Project Project      `toml:"project"`
	Source  Source       `toml:"source"`
	Reduce  ReduceConfig `toml:"reduce"`
	Heap    HeapConfig   `toml:"heap"`
	Log     LogConfig    `toml:"log"`
	Server  ServerConfig `toml:"server"`

	// Dir is the directory containing the redex.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// Source names the term file the CLI evaluates when given no expression.
type Source struct {
	Entry string `toml:"entry"`
}

// ReduceConfig bounds normalization.
type ReduceConfig struct {
	MaxSteps int `toml:"max-steps"`
}

// HeapConfig bounds the term arena. MaxCells of 0 means unbounded.
type HeapConfig struct {
	MaxCells int `toml:"max-cells"`
}

// LogConfig configures commonlog. An empty File logs to stderr.
type LogConfig struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// ServerConfig configures the reduction service.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// Default returns the configuration used when no redex.toml exists.
func Default() *Manifest {
	m := &Manifest{}
	m.applyDefaults()
	return m
}

func (m *Manifest) applyDefaults() {
	if m.Reduce.MaxSteps <= 0 {
		m.Reduce.MaxSteps = DefaultMaxSteps
	}
	if m.Server.Addr == "" {
		m.Server.Addr = DefaultAddr
	}
}

// Load parses a redex.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if m.Heap.MaxCells < 0 {
		return nil, fmt.Errorf("%s: heap.max-cells must not be negative", path)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	m.applyDefaults()
	return &m, nil
}

// FindAndLoad walks up from startDir to find a redex.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// EntryPath returns the absolute path of the entry term file, or "" if none
// is configured.
func (m *Manifest) EntryPath() string {
	return m.resolve(m.Source.Entry)
}

// LogPath returns the absolute path of the log file, or "" for stderr.
func (m *Manifest) LogPath() string {
	return m.resolve(m.Log.File)
}

func (m *Manifest) resolve(p string) string {
	if p == "" {
		return ""
	}
	if filepath.IsAbs(p) || m.Dir == "" {
		return p
	}
	return filepath.Join(m.Dir, p)
}
