// Package project locates and parses lumen.toml, the per-project manifest
// that names the program and tunes the build.
package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// ManifestName is the file the project root is identified by.
const ManifestName = "lumen.toml"

// Manifest is a located, parsed lumen.toml.
type Manifest struct {
	Path   string
	Root   string
	Config Config
}

// Config mirrors the manifest layout.
type Config struct {
	Program ProgramConfig `toml:"program"`
	Build   BuildConfig   `toml:"build"`
}

// ProgramConfig names the on-chain program being built.
type ProgramConfig struct {
	Name    string `toml:"name"`
	Network string `toml:"network"`
	Entry   string `toml:"entry"`
}

// BuildConfig tunes the middle end.
type BuildConfig struct {
	MaxRounds int  `toml:"max_rounds"`
	Inline    bool `toml:"inline"`
}

// Find walks up from startDir to locate lumen.toml.
func Find(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, ManifestName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Load locates the manifest from startDir and parses it. ok is false when no
// manifest exists anywhere up the tree.
func Load(startDir string) (*Manifest, bool, error) {
	path, ok, err := Find(startDir)
	if err != nil || !ok {
		return nil, ok, err
	}
	cfg, err := Parse(path)
	if err != nil {
		return nil, true, err
	}
	return &Manifest{
		Path:   path,
		Root:   filepath.Dir(path),
		Config: cfg,
	}, true, nil
}

// Parse reads and validates one manifest file.
func Parse(path string) (Config, error) {
	var cfg Config
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if err := validate(path, meta, cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(path string, meta toml.MetaData, cfg Config) error {
	if !meta.IsDefined("program") {
		return fmt.Errorf("%s: missing [program]", path)
	}
	if !meta.IsDefined("program", "name") || strings.TrimSpace(cfg.Program.Name) == "" {
		return fmt.Errorf("%s: missing [program].name", path)
	}
	if !meta.IsDefined("program", "entry") || strings.TrimSpace(cfg.Program.Entry) == "" {
		return fmt.Errorf("%s: missing [program].entry", path)
	}
	if cfg.Build.MaxRounds < 0 {
		return fmt.Errorf("%s: [build].max_rounds must not be negative", path)
	}
	return nil
}

// EntryPath resolves [program].entry relative to the project root and checks
// it points at a tree artifact.
func (m *Manifest) EntryPath() (string, error) {
	rel := strings.TrimSpace(m.Config.Program.Entry)
	path := filepath.Join(m.Root, filepath.FromSlash(rel))
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%s: [program].entry path does not exist: %s", m.Path, path)
		}
		return "", fmt.Errorf("%s: failed to stat [program].entry: %w", m.Path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s: [program].entry must be a file", m.Path)
	}
	if filepath.Ext(path) != ".last" {
		return "", fmt.Errorf("%s: [program].entry must be a .last artifact", m.Path)
	}
	return path, nil
}
