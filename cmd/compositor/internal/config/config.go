package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/mod/modfile"
	"golang.org/x/mod/module"
	"gopkg.in/yaml.v3"

	"github.com/go-drift/compositor/pkg/compositing"
)

const (
	yamlFile = "compositor.yaml"
	tomlFile = "compositor.toml"
)

// Config represents the optional compositor.yaml or compositor.toml file.
type Config struct {
	Document    DocumentConfig    `yaml:"document" toml:"document"`
	Compositing CompositingConfig `yaml:"compositing" toml:"compositing"`
}

// DocumentConfig names the document and its default scene.
type DocumentConfig struct {
	Name  string `yaml:"name,omitempty" toml:"name,omitempty"`
	Scene string `yaml:"scene,omitempty" toml:"scene,omitempty"`
}

// CompositingConfig mirrors compositing.Settings. Pointer fields default
// to the compositor's own defaults when absent.
type CompositingConfig struct {
	Accelerated            *bool   `yaml:"accelerated,omitempty" toml:"accelerated,omitempty"`
	DebugBorders           bool    `yaml:"debugBorders,omitempty" toml:"debugBorders,omitempty"`
	RepaintCounter         bool    `yaml:"repaintCounter,omitempty" toml:"repaintCounter,omitempty"`
	MobileSiteHeuristics   bool    `yaml:"mobileSiteHeuristics,omitempty" toml:"mobileSiteHeuristics,omitempty"`
	ViewportWidth          *int    `yaml:"viewportWidth,omitempty" toml:"viewportWidth,omitempty"`
	UserScalable           *bool   `yaml:"userScalable,omitempty" toml:"userScalable,omitempty"`
	Subframe               bool    `yaml:"subframe,omitempty" toml:"subframe,omitempty"`
	CompositeFixedSiblings bool    `yaml:"compositeFixedSiblings,omitempty" toml:"compositeFixedSiblings,omitempty"`
	SlowUpdateThresholdMs  float64 `yaml:"slowUpdateThresholdMs,omitempty" toml:"slowUpdateThresholdMs,omitempty"`
}

// Resolved contains resolved configuration values.
type Resolved struct {
	Root         string
	ModulePath   string
	DocumentName string
	Scene        string
	Settings     compositing.Settings
}

// LoadOptional reads compositor.yaml or compositor.toml if present.
// Having both is an error.
func LoadOptional(dir string) (*Config, error) {
	yamlData, yamlErr := readOptional(filepath.Join(dir, yamlFile))
	if yamlErr != nil {
		return nil, yamlErr
	}
	tomlData, tomlErr := readOptional(filepath.Join(dir, tomlFile))
	if tomlErr != nil {
		return nil, tomlErr
	}

	var cfg Config
	switch {
	case yamlData != nil && tomlData != nil:
		return nil, fmt.Errorf("both %s and %s exist in %s", yamlFile, tomlFile, dir)
	case yamlData != nil:
		dec := yaml.NewDecoder(bytes.NewReader(yamlData))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to parse %s: %w", yamlFile, err)
		}
	case tomlData != nil:
		if err := toml.Unmarshal(tomlData, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", tomlFile, err)
		}
	}
	return &cfg, nil
}

func readOptional(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	if data == nil {
		data = []byte{}
	}
	return data, nil
}

// Resolve loads the project configuration (if present) and resolves
// defaults. A directory without go.mod is allowed; the document name then
// falls back to the directory name.
func Resolve(dir string) (*Resolved, error) {
	modulePath, err := modulePath(dir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	cfg, err := LoadOptional(dir)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(cfg.Document.Name)
	if name == "" {
		name = defaultDocumentName(modulePath, dir)
	}

	sceneFile := strings.TrimSpace(cfg.Document.Scene)
	if sceneFile != "" && !filepath.IsAbs(sceneFile) {
		sceneFile = filepath.Join(dir, sceneFile)
	}

	settings, err := cfg.Compositing.Settings()
	if err != nil {
		return nil, err
	}

	return &Resolved{
		Root:         dir,
		ModulePath:   modulePath,
		DocumentName: name,
		Scene:        sceneFile,
		Settings:     settings,
	}, nil
}

// Settings converts the file form into compositor settings.
func (c CompositingConfig) Settings() (compositing.Settings, error) {
	s := compositing.DefaultSettings()
	if c.Accelerated != nil {
		s.AcceleratedCompositing = *c.Accelerated
	}
	s.ShowDebugBorders = c.DebugBorders
	s.ShowRepaintCounter = c.RepaintCounter
	s.MobileSiteHeuristics = c.MobileSiteHeuristics
	if c.ViewportWidth != nil {
		if *c.ViewportWidth < -1 {
			return s, fmt.Errorf("compositing.viewportWidth must be -1, 0 or a width (got %d)", *c.ViewportWidth)
		}
		s.ViewportWidth = *c.ViewportWidth
	}
	if c.UserScalable != nil {
		s.ViewportUserScalable = *c.UserScalable
	}
	s.Subframe = c.Subframe
	s.CompositeFixedSiblings = c.CompositeFixedSiblings
	if c.SlowUpdateThresholdMs < 0 {
		return s, fmt.Errorf("compositing.slowUpdateThresholdMs cannot be negative")
	}
	if c.SlowUpdateThresholdMs > 0 {
		s.SlowUpdateThreshold = time.Duration(c.SlowUpdateThresholdMs * float64(time.Millisecond))
	}
	return s, nil
}

// FindProjectRoot walks up from the current directory to find go.mod.
func FindProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not in a Go module (no go.mod found)")
		}
		dir = parent
	}
}

func modulePath(dir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, "go.mod"))
	if err != nil {
		return "", fmt.Errorf("failed to read go.mod: %w", err)
	}
	path := modfile.ModulePath(data)
	if path == "" {
		return "", fmt.Errorf("could not determine module path from go.mod")
	}
	return path, nil
}

func defaultDocumentName(modulePath, dir string) string {
	base := filepath.Base(dir)
	if modulePath != "" {
		modName, _, ok := module.SplitPathVersion(modulePath)
		if ok {
			parts := strings.Split(modName, "/")
			base = parts[len(parts)-1]
		}
	}
	if base == "" || base == "." || base == string(filepath.Separator) {
		return "document"
	}
	return base
}
