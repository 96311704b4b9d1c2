// Package scene reads layer tree descriptions from YAML or TOML documents
// and applies them to a layout.Tree.
//
// Layers are matched by id, so applying a changed document to a tree built
// from an earlier version only reports the layers that actually changed to
// the tree's observer.
package scene

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/go-drift/compositor/pkg/errors"
	"github.com/go-drift/compositor/pkg/graphics"
	"github.com/go-drift/compositor/pkg/layout"
)

// Document is a complete scene: one document's layer tree and view state.
type Document struct {
	Name     string `yaml:"name,omitempty" toml:"name,omitempty"`
	Viewport Size   `yaml:"viewport" toml:"viewport"`
	Scroll   Point  `yaml:"scroll,omitempty" toml:"scroll,omitempty"`
	Root     *Node  `yaml:"root" toml:"root"`
}

// Size is a width and height pair.
type Size struct {
	Width  float64 `yaml:"width" toml:"width"`
	Height float64 `yaml:"height" toml:"height"`
}

// Point is an x and y pair.
type Point struct {
	X float64 `yaml:"x" toml:"x"`
	Y float64 `yaml:"y" toml:"y"`
}

// Node describes one layer. Location is [x, y] relative to the parent and
// Bounds is [left, top, right, bottom] in the layer's own coordinates.
type Node struct {
	ID              int       `yaml:"id" toml:"id"`
	Location        []float64 `yaml:"location,omitempty" toml:"location,omitempty"`
	Bounds          []float64 `yaml:"bounds,omitempty" toml:"bounds,omitempty"`
	ZIndex          int       `yaml:"zIndex,omitempty" toml:"zIndex,omitempty"`
	Positioned      bool      `yaml:"positioned,omitempty" toml:"positioned,omitempty"`
	StackingContext bool      `yaml:"stackingContext,omitempty" toml:"stackingContext,omitempty"`
	Style           Style     `yaml:"style,omitempty" toml:"style,omitempty"`
	Reflection      *Node     `yaml:"reflection,omitempty" toml:"reflection,omitempty"`
	Children        []*Node   `yaml:"children,omitempty" toml:"children,omitempty"`
}

// Style holds the style keys of a node.
type Style struct {
	Fixed              bool      `yaml:"fixed,omitempty" toml:"fixed,omitempty"`
	Positioned         bool      `yaml:"positioned,omitempty" toml:"positioned,omitempty"`
	Opacity            *float64  `yaml:"opacity,omitempty" toml:"opacity,omitempty"`
	Transform          []float64 `yaml:"transform,omitempty" toml:"transform,omitempty"`
	Transform3D        bool      `yaml:"transform3D,omitempty" toml:"transform3D,omitempty"`
	Preserve3D         bool      `yaml:"preserve3D,omitempty" toml:"preserve3D,omitempty"`
	Perspective        bool      `yaml:"perspective,omitempty" toml:"perspective,omitempty"`
	Mask               bool      `yaml:"mask,omitempty" toml:"mask,omitempty"`
	BackfaceHidden     bool      `yaml:"backfaceHidden,omitempty" toml:"backfaceHidden,omitempty"`
	OverflowClip       bool      `yaml:"overflowClip,omitempty" toml:"overflowClip,omitempty"`
	Video              bool      `yaml:"video,omitempty" toml:"video,omitempty"`
	VideoAccelerated   bool      `yaml:"videoAccelerated,omitempty" toml:"videoAccelerated,omitempty"`
	Canvas3D           bool      `yaml:"canvas3D,omitempty" toml:"canvas3D,omitempty"`
	Plugin             bool      `yaml:"plugin,omitempty" toml:"plugin,omitempty"`
	PluginAccelerated  bool      `yaml:"pluginAccelerated,omitempty" toml:"pluginAccelerated,omitempty"`
	AnimatingOpacity   bool      `yaml:"animatingOpacity,omitempty" toml:"animatingOpacity,omitempty"`
	AnimatingTransform bool      `yaml:"animatingTransform,omitempty" toml:"animatingTransform,omitempty"`
	SelfPainting       *bool     `yaml:"selfPainting,omitempty" toml:"selfPainting,omitempty"`
}

func sceneError(op string, layer int, err error) error {
	return &errors.CompositorError{Op: op, Kind: errors.KindScene, Layer: layer, Err: err}
}

// Decode reads a YAML document. Unknown keys are rejected.
func Decode(r io.Reader) (*Document, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, sceneError("scene.Decode", 0, fmt.Errorf("failed to parse yaml: %w", err))
	}
	if err := doc.validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// DecodeTOML reads a TOML document. Unknown keys are rejected.
func DecodeTOML(r io.Reader) (*Document, error) {
	dec := toml.NewDecoder(r)
	dec.DisallowUnknownFields()
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, sceneError("scene.DecodeTOML", 0, fmt.Errorf("failed to parse toml: %w", err))
	}
	if err := doc.validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Load reads a scene file, choosing the format from its extension.
// Files ending in .toml are TOML; everything else is YAML.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, sceneError("scene.Load", 0, fmt.Errorf("failed to read %s: %w", path, err))
	}
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return DecodeTOML(bytes.NewReader(data))
	}
	return Decode(bytes.NewReader(data))
}

func (d *Document) validate() error {
	if d.Root == nil {
		return sceneError("scene.validate", 0, fmt.Errorf("document has no root layer"))
	}
	seen := make(map[int]bool)
	var check func(n *Node, reflection bool) error
	check = func(n *Node, reflection bool) error {
		if n.ID <= 0 {
			return sceneError("scene.validate", n.ID, fmt.Errorf("layer ids must be positive"))
		}
		if seen[n.ID] {
			return sceneError("scene.validate", n.ID, fmt.Errorf("duplicate layer id"))
		}
		seen[n.ID] = true
		if len(n.Location) != 0 && len(n.Location) != 2 {
			return sceneError("scene.validate", n.ID, fmt.Errorf("location needs 2 numbers, got %d", len(n.Location)))
		}
		if len(n.Bounds) != 0 && len(n.Bounds) != 4 {
			return sceneError("scene.validate", n.ID, fmt.Errorf("bounds needs 4 numbers, got %d", len(n.Bounds)))
		}
		if len(n.Style.Transform) != 0 && len(n.Style.Transform) != 6 {
			return sceneError("scene.validate", n.ID, fmt.Errorf("transform needs 6 numbers, got %d", len(n.Style.Transform)))
		}
		if reflection && (len(n.Children) > 0 || n.Reflection != nil) {
			return sceneError("scene.validate", n.ID, fmt.Errorf("a reflection cannot have children or its own reflection"))
		}
		if n.Reflection != nil {
			if err := check(n.Reflection, true); err != nil {
				return err
			}
		}
		for _, child := range n.Children {
			if err := check(child, false); err != nil {
				return err
			}
		}
		return nil
	}
	return check(d.Root, false)
}

// LayoutStyle converts the node's keys into the compositor's style record.
func (n *Node) LayoutStyle() layout.Style {
	s := n.Style
	out := layout.Style{
		Positioned:         n.Positioned || s.Positioned || s.Fixed,
		Fixed:              s.Fixed,
		StackingContext:    n.StackingContext,
		ZIndex:             n.ZIndex,
		Transform3D:        s.Transform3D,
		Preserve3D:         s.Preserve3D,
		Perspective:        s.Perspective,
		Mask:               s.Mask,
		BackfaceHidden:     s.BackfaceHidden,
		OverflowClip:       s.OverflowClip,
		Video:              s.Video,
		VideoAccelerated:   s.VideoAccelerated,
		Canvas3D:           s.Canvas3D,
		Plugin:             s.Plugin,
		PluginAccelerated:  s.PluginAccelerated,
		AnimatingOpacity:   s.AnimatingOpacity,
		AnimatingTransform: s.AnimatingTransform,
		NotSelfPainting:    s.SelfPainting != nil && !*s.SelfPainting,
	}
	if s.Opacity != nil {
		out.HasOpacity = true
		out.Opacity = *s.Opacity
	}
	if len(s.Transform) == 6 {
		var m [6]float64
		copy(m[:], s.Transform)
		t := graphics.TransformFromAff3(m)
		out.Transform = &t
	}
	return out
}

func (n *Node) location() graphics.Offset {
	if len(n.Location) != 2 {
		return graphics.Offset{}
	}
	return graphics.Offset{X: n.Location[0], Y: n.Location[1]}
}

func (n *Node) bounds() graphics.Rect {
	if len(n.Bounds) != 4 {
		return graphics.Rect{}
	}
	return graphics.Rect{Left: n.Bounds[0], Top: n.Bounds[1], Right: n.Bounds[2], Bottom: n.Bounds[3]}
}

// Build creates a new tree from the document.
func (d *Document) Build() (*layout.Tree, error) {
	tree := layout.NewTree(d.Name)
	if err := d.Apply(tree); err != nil {
		return nil, err
	}
	return tree, nil
}

// Apply brings tree in line with the document. Layers are matched by id:
// existing layers are restyled, moved and reordered in place, missing ones
// are created and layers the document no longer mentions are destroyed.
// Only actual changes reach the tree's observer.
func (d *Document) Apply(tree *layout.Tree) error {
	if err := d.validate(); err != nil {
		return err
	}
	tree.SetViewport(graphics.Size{Width: d.Viewport.Width, Height: d.Viewport.Height})
	tree.SetScrollOffset(graphics.Offset{X: d.Scroll.X, Y: d.Scroll.Y})

	root, err := ensureLayer(tree, d.Root)
	if err != nil {
		return err
	}
	switch current := tree.Root(); {
	case current == nil:
		tree.SetRoot(root)
	case current != root:
		return sceneError("scene.Apply", d.Root.ID, fmt.Errorf("root layer cannot change (tree root is %d)", current.ID()))
	}

	seen := make(map[layout.ID]bool)
	if err := applyNode(tree, root, d.Root, seen); err != nil {
		return err
	}

	var stale []*layout.Layer
	var collect func(l *layout.Layer)
	collect = func(l *layout.Layer) {
		if !seen[l.ID()] {
			stale = append(stale, l)
			return
		}
		if refl := l.ReflectionLayer(); refl != nil && !seen[refl.ID()] {
			stale = append(stale, refl)
		}
		for _, child := range l.Children() {
			collect(child)
		}
	}
	collect(root)
	for _, l := range stale {
		tree.Destroy(l)
	}
	return nil
}

func ensureLayer(tree *layout.Tree, n *Node) (*layout.Layer, error) {
	if l := tree.Layer(layout.ID(n.ID)); l != nil {
		return l, nil
	}
	l, err := tree.NewLayerWithID(layout.ID(n.ID), n.LayoutStyle())
	if err != nil {
		return nil, sceneError("scene.Apply", n.ID, err)
	}
	return l, nil
}

func applyNode(tree *layout.Tree, l *layout.Layer, n *Node, seen map[layout.ID]bool) error {
	seen[l.ID()] = true
	if style := n.LayoutStyle(); !sameStyle(l.Style(), style) {
		l.SetStyle(style)
	}
	l.SetLocation(n.location())
	l.UpdateLayerPosition()
	l.SetLocalBoundingBox(n.bounds())

	if n.Reflection != nil {
		refl, err := ensureLayer(tree, n.Reflection)
		if err != nil {
			return err
		}
		if refl.ReflectionSource() != l {
			if refl.Parent() != nil {
				return sceneError("scene.Apply", n.Reflection.ID, fmt.Errorf("layer is already in the tree and cannot become a reflection"))
			}
			if old := l.ReflectionLayer(); old != nil {
				tree.ClearReflection(l)
				tree.Destroy(old)
			}
			tree.SetReflection(l, refl)
		}
		if err := applyNode(tree, refl, n.Reflection, seen); err != nil {
			return err
		}
	} else if refl := l.ReflectionLayer(); refl != nil {
		tree.ClearReflection(l)
		tree.Destroy(refl)
	}

	for i, cn := range n.Children {
		child, err := ensureLayer(tree, cn)
		if err != nil {
			return err
		}
		if child.IsReflection() || child == l {
			return sceneError("scene.Apply", cn.ID, fmt.Errorf("layer cannot be a child here"))
		}
		if kids := l.Children(); child.Parent() != l || i >= len(kids) || kids[i] != child {
			tree.InsertChild(l, child, i)
		}
		if err := applyNode(tree, child, cn, seen); err != nil {
			return err
		}
	}
	return nil
}

// sameStyle compares styles by value, including the transform matrix.
func sameStyle(a, b layout.Style) bool {
	ta, tb := a.Transform, b.Transform
	a.Transform, b.Transform = nil, nil
	if a != b || (ta == nil) != (tb == nil) {
		return false
	}
	return ta == nil || *ta == *tb
}
