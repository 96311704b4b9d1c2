package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-drift/compositor/pkg/compositing"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestResolveDefaults(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "playground")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatal(err)
	}

	cfg, err := Resolve(dir)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if cfg.DocumentName != "playground" {
		t.Errorf("DocumentName = %q, want %q", cfg.DocumentName, "playground")
	}
	if cfg.ModulePath != "" || cfg.Scene != "" {
		t.Errorf("unexpected module path %q or scene %q", cfg.ModulePath, cfg.Scene)
	}
	if cfg.Settings != compositing.DefaultSettings() {
		t.Errorf("Settings = %+v, want defaults", cfg.Settings)
	}
}

func TestDefaultDocumentName(t *testing.T) {
	tests := []struct {
		name       string
		modulePath string
		dir        string
		want       string
	}{
		{"module last element", "example.com/acme/widgets", "/src/x", "widgets"},
		{"major version suffix", "example.com/acme/widgets/v2", "/src/x", "widgets"},
		{"single element", "scratch", "/src/x", "scratch"},
		{"no module", "", "/src/pages", "pages"},
		{"filesystem root", "", string(filepath.Separator), "document"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := defaultDocumentName(tt.modulePath, tt.dir); got != tt.want {
				t.Errorf("defaultDocumentName(%q, %q) = %q, want %q", tt.modulePath, tt.dir, got, tt.want)
			}
		})
	}
}

func TestResolveYAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "go.mod", "module example.com/acme/pages\n\ngo 1.24\n")
	writeFile(t, dir, "compositor.yaml", `
document:
  scene: scenes/home.yaml
compositing:
  accelerated: true
  debugBorders: true
  mobileSiteHeuristics: true
  viewportWidth: 0
  userScalable: false
  compositeFixedSiblings: true
  slowUpdateThresholdMs: 2.5
`)

	cfg, err := Resolve(dir)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if cfg.ModulePath != "example.com/acme/pages" {
		t.Errorf("ModulePath = %q", cfg.ModulePath)
	}
	if cfg.DocumentName != "pages" {
		t.Errorf("DocumentName = %q, want pages", cfg.DocumentName)
	}
	if want := filepath.Join(dir, "scenes", "home.yaml"); cfg.Scene != want {
		t.Errorf("Scene = %q, want %q", cfg.Scene, want)
	}

	s := cfg.Settings
	if !s.AcceleratedCompositing || !s.ShowDebugBorders || s.ShowRepaintCounter {
		t.Errorf("debug settings wrong: %+v", s)
	}
	if !s.MobileSiteHeuristics || s.ViewportWidth != 0 || s.ViewportUserScalable || !s.CompositeFixedSiblings {
		t.Errorf("page settings wrong: %+v", s)
	}
	if s.SlowUpdateThreshold != 2500*time.Microsecond {
		t.Errorf("SlowUpdateThreshold = %v", s.SlowUpdateThreshold)
	}
}

func TestResolveTOML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "compositor.toml", `
[document]
name = "checkout"

[compositing]
accelerated = false
repaintCounter = true
`)

	cfg, err := Resolve(dir)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if cfg.DocumentName != "checkout" {
		t.Errorf("DocumentName = %q", cfg.DocumentName)
	}
	if cfg.Settings.AcceleratedCompositing || !cfg.Settings.ShowRepaintCounter {
		t.Errorf("Settings = %+v", cfg.Settings)
	}
}

func TestResolveErrors(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
	}{
		{"both formats", map[string]string{"compositor.yaml": "", "compositor.toml": ""}},
		{"unknown yaml key", map[string]string{"compositor.yaml": "compositing: {turbo: true}\n"}},
		{"bad toml", map[string]string{"compositor.toml": "[compositing\n"}},
		{"bad viewport width", map[string]string{"compositor.yaml": "compositing: {viewportWidth: -5}\n"}},
		{"negative threshold", map[string]string{"compositor.yaml": "compositing: {slowUpdateThresholdMs: -1}\n"}},
		{"empty go.mod", map[string]string{"go.mod": "go 1.24\n"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for name, content := range tt.files {
				writeFile(t, dir, name, content)
			}
			if _, err := Resolve(dir); err == nil {
				t.Error("Resolve() succeeded, want error")
			}
		})
	}
}
