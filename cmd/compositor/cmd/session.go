package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"github.com/muesli/termenv"

	"github.com/go-drift/compositor/cmd/compositor/internal/config"
	"github.com/go-drift/compositor/pkg/compositing"
	"github.com/go-drift/compositor/pkg/layout"
	"github.com/go-drift/compositor/pkg/platform"
	"github.com/go-drift/compositor/pkg/scene"
)

// sceneOptions are the flags shared by every command that loads a scene.
type sceneOptions struct {
	debugBorders   bool
	repaintCounter bool
	noAccel        bool
	trace          bool
}

// parseSceneArgs splits flags from positional arguments.
func parseSceneArgs(args []string) ([]string, sceneOptions) {
	opts := sceneOptions{}
	filtered := make([]string, 0, len(args))
	for _, arg := range args {
		switch arg {
		case "--debug-borders":
			opts.debugBorders = true
		case "--repaint-counter":
			opts.repaintCounter = true
		case "--no-accel":
			opts.noAccel = true
		case "--trace":
			opts.trace = true
		default:
			filtered = append(filtered, arg)
		}
	}
	return filtered, opts
}

// session is one scene loaded into a tree with a compositor attached.
type session struct {
	cfg    *config.Resolved
	path   string
	tree   *layout.Tree
	client *platform.RecordingClient
	comp   *compositing.Compositor
	opts   sceneOptions
}

func resolveProject() (*config.Resolved, error) {
	dir, err := homedir.Expand(projectDir)
	if err != nil {
		return nil, err
	}
	if dir == "" {
		root, err := config.FindProjectRoot()
		if err != nil {
			if root, err = os.Getwd(); err != nil {
				return nil, err
			}
		}
		dir = root
	}
	cfg, err := config.Resolve(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// openSession resolves the project, loads the scene and attaches a
// compositor. An empty path falls back to the configured scene.
func openSession(path string, opts sceneOptions) (*session, error) {
	cfg, err := resolveProject()
	if err != nil {
		return nil, err
	}
	if path == "" {
		path = cfg.Scene
	}
	if path == "" {
		return nil, fmt.Errorf("scene file is required (argument or document.scene in compositor.yaml)")
	}
	if path, err = homedir.Expand(path); err != nil {
		return nil, err
	}
	path, err = filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	doc, err := scene.Load(path)
	if err != nil {
		return nil, err
	}
	if doc.Name == "" {
		doc.Name = cfg.DocumentName
	}
	tree, err := doc.Build()
	if err != nil {
		return nil, err
	}

	settings := cfg.Settings
	if opts.debugBorders {
		settings.ShowDebugBorders = true
	}
	if opts.repaintCounter {
		settings.ShowRepaintCounter = true
	}
	if opts.noAccel {
		settings.AcceleratedCompositing = false
	}

	client := platform.NewRecordingClient()
	return &session{
		cfg:    cfg,
		path:   path,
		tree:   tree,
		client: client,
		comp:   compositing.New(tree, client, settings),
		opts:   opts,
	}, nil
}

// reload re-reads the scene file and applies it to the existing tree, so
// the compositor only sees the layers that changed.
func (s *session) reload() error {
	s.client.Reset()
	doc, err := scene.Load(s.path)
	if err != nil {
		return err
	}
	if doc.Name == "" {
		doc.Name = s.cfg.DocumentName
	}
	if err := doc.Apply(s.tree); err != nil {
		return err
	}
	// Moved and resized layers are not reported to the observer; a reload
	// is a relayout, so refresh every backing.
	s.comp.SetCompositingLayersNeedRebuild()
	return nil
}

func (s *session) update(kind compositing.UpdateType) {
	s.comp.UpdateCompositingLayers(kind, nil)
}

// print writes the attached graphics layer tree and the last update's
// statistics.
func (s *session) print(w io.Writer) error {
	out := termenv.NewOutput(w)
	frame, root := s.client.AttachedRoot()
	if frame == "" {
		frame = s.tree.Name()
	}
	header := fmt.Sprintf("document %s: compositing=%t overlap=%t", frame, s.comp.InCompositingMode(), s.comp.CompositingConsultsOverlap())
	fmt.Fprintln(w, out.String(header).Bold())
	if root != nil {
		fmt.Fprint(w, root.Dump())
	} else {
		fmt.Fprintln(w, "(no composited layers)")
	}
	for _, r := range s.client.ViewRepaints() {
		fmt.Fprintf(w, "repaint view (%g,%g)-(%g,%g)\n", r.Left, r.Top, r.Right, r.Bottom)
	}

	if sample, ok := s.comp.Trace().Last(); ok {
		c := sample.Counts
		line := out.String(fmt.Sprintf("%s update: %.3fms runs=%d visited=%d composited=%d created=%d removed=%d repaints=%d rebuilt=%t",
			sample.Type, sample.UpdateMs, c.RequirementRuns, c.LayersVisited, c.Composited,
			c.BackingsCreated, c.BackingsRemoved, c.Repaints, sample.HierarchyRebuilt))
		if threshold := s.comp.Trace().Threshold(); threshold > 0 && sample.UpdateMs > float64(threshold.Microseconds())/1000 {
			line = line.Foreground(out.Color("1"))
		}
		fmt.Fprintln(w, line)
	}

	if s.opts.trace {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(s.comp.Trace().Snapshot()); err != nil {
			return fmt.Errorf("failed to encode trace: %w", err)
		}
	}
	return nil
}
