package scene

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-drift/compositor/pkg/compositing"
	"github.com/go-drift/compositor/pkg/errors"
	"github.com/go-drift/compositor/pkg/graphics"
	"github.com/go-drift/compositor/pkg/layout"
)

const demoYAML = `
name: demo
viewport: {width: 800, height: 600}
scroll: {x: 0, y: 40}
root:
  id: 1
  bounds: [0, 0, 800, 600]
  stackingContext: true
  children:
    - id: 2
      location: [10, 10]
      bounds: [0, 0, 100, 100]
      zIndex: 1
      positioned: true
      stackingContext: true
      style: {opacity: 0.5, transform3D: true}
      reflection: {id: 9, location: [0, 100], bounds: [0, 0, 100, 100]}
    - id: 3
      location: [200, 0]
      bounds: [0, 0, 50, 50]
      style: {overflowClip: true, selfPainting: false, transform: [2, 0, 0, 0, 2, 0]}
`

const demoTOML = `
name = "demo"
viewport = {width = 800.0, height = 600.0}
scroll = {x = 0.0, y = 40.0}

[root]
id = 1
bounds = [0.0, 0.0, 800.0, 600.0]
stackingContext = true

[[root.children]]
id = 2
location = [10.0, 10.0]
bounds = [0.0, 0.0, 100.0, 100.0]
zIndex = 1
positioned = true
stackingContext = true
style = {opacity = 0.5, transform3D = true}
reflection = {id = 9, location = [0.0, 100.0], bounds = [0.0, 0.0, 100.0, 100.0]}

[[root.children]]
id = 3
location = [200.0, 0.0]
bounds = [0.0, 0.0, 50.0, 50.0]
style = {overflowClip = true, selfPainting = false, transform = [2.0, 0.0, 0.0, 0.0, 2.0, 0.0]}
`

func assertDemoTree(t *testing.T, tree *layout.Tree) {
	t.Helper()
	assert.Equal(t, "demo", tree.Name())
	assert.Equal(t, graphics.Size{Width: 800, Height: 600}, tree.Viewport())
	assert.Equal(t, graphics.Offset{Y: 40}, tree.ScrollOffset())

	root := tree.Root()
	require.NotNil(t, root)
	assert.Equal(t, layout.ID(1), root.ID())
	require.Len(t, root.Children(), 2)

	a := tree.Layer(2)
	require.NotNil(t, a)
	st := a.Style()
	assert.True(t, st.Positioned)
	assert.True(t, st.StackingContext)
	assert.Equal(t, 1, st.ZIndex)
	assert.True(t, st.IsTransparent())
	assert.True(t, st.Transform3D)
	assert.Equal(t, graphics.Offset{X: 10, Y: 10}, a.Position())
	assert.Equal(t, graphics.RectFromLTWH(0, 0, 100, 100), a.LocalBoundingBox())

	refl := a.ReflectionLayer()
	require.NotNil(t, refl)
	assert.Equal(t, layout.ID(9), refl.ID())
	assert.Equal(t, graphics.Offset{Y: 100}, refl.Position())

	b := tree.Layer(3)
	require.NotNil(t, b)
	bs := b.Style()
	assert.True(t, bs.OverflowClip)
	assert.False(t, b.IsSelfPaintingLayer())
	assert.True(t, b.IsNormalFlowOnly())
	require.NotNil(t, bs.Transform)
	assert.Equal(t, graphics.ScaleTransform(2, 2), *bs.Transform)
}

func TestDecodeYAML(t *testing.T) {
	doc, err := Decode(strings.NewReader(demoYAML))
	require.NoError(t, err)
	tree, err := doc.Build()
	require.NoError(t, err)
	assertDemoTree(t, tree)
}

func TestDecodeTOML(t *testing.T) {
	doc, err := DecodeTOML(strings.NewReader(demoTOML))
	require.NoError(t, err)
	tree, err := doc.Build()
	require.NoError(t, err)
	assertDemoTree(t, tree)
}

func TestLoadPicksFormatByExtension(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "demo.yaml")
	tomlPath := filepath.Join(dir, "demo.TOML")
	require.NoError(t, os.WriteFile(yamlPath, []byte(demoYAML), 0o644))
	require.NoError(t, os.WriteFile(tomlPath, []byte(demoTOML), 0o644))

	for _, path := range []string{yamlPath, tomlPath} {
		doc, err := Load(path)
		require.NoError(t, err, path)
		tree, err := doc.Build()
		require.NoError(t, err, path)
		assertDemoTree(t, tree)
	}

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"unknown key", "root: {id: 1, colour: red}", "colour"},
		{"no root", "name: empty", "no root"},
		{"zero id", "root: {id: 0}", "positive"},
		{"duplicate id", "root: {id: 1, children: [{id: 2}, {id: 2}]}", "duplicate"},
		{"short bounds", "root: {id: 1, bounds: [0, 0, 10]}", "bounds"},
		{"short location", "root: {id: 1, location: [1]}", "location"},
		{"bad transform", "root: {id: 1, style: {transform: [1, 0]}}", "transform"},
		{"reflection with children", "root: {id: 1, reflection: {id: 2, children: [{id: 3}]}}", "reflection"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)

			var ce *errors.CompositorError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, errors.KindScene, ce.Kind)
		})
	}
}

func TestApplyUpdatesTreeInPlace(t *testing.T) {
	doc, err := Decode(strings.NewReader(demoYAML))
	require.NoError(t, err)
	tree, err := doc.Build()
	require.NoError(t, err)

	c := compositing.New(tree, nil, compositing.DefaultSettings())
	c.UpdateCompositingLayers(compositing.UpdateAfterLayoutOrStyleChange, nil)
	a, b := tree.Layer(2), tree.Layer(3)
	require.True(t, c.IsComposited(a))
	require.True(t, c.IsComposited(tree.Layer(9)), "reflection follows its source")

	// Drop the 3D transform and the reflection, add a WebGL canvas.
	doc.Root.Children[0].Style.Transform3D = false
	doc.Root.Children[0].Reflection = nil
	doc.Root.Children = append(doc.Root.Children, &Node{
		ID:         4,
		Positioned: true,
		ZIndex:     2,
		Bounds:     []float64{0, 0, 10, 10},
		Style:      Style{Canvas3D: true},
	})
	require.NoError(t, doc.Apply(tree))
	c.UpdateCompositingLayers(compositing.UpdateAfterLayoutOrStyleChange, nil)

	assert.Same(t, a, tree.Layer(2), "layers are matched by id")
	assert.Nil(t, tree.Layer(9))
	assert.False(t, a.HasReflection())
	assert.False(t, c.IsComposited(a))
	assert.True(t, c.IsComposited(tree.Layer(4)))

	// Remove a layer and reorder the rest.
	doc.Root.Children = []*Node{doc.Root.Children[2], doc.Root.Children[1]}
	require.NoError(t, doc.Apply(tree))
	assert.Nil(t, tree.Layer(2))
	assert.Equal(t, []*layout.Layer{tree.Layer(4), b}, tree.Root().Children())
}

func TestApplyRejectsRootChange(t *testing.T) {
	doc, err := Decode(strings.NewReader(demoYAML))
	require.NoError(t, err)
	tree, err := doc.Build()
	require.NoError(t, err)

	other, err := Decode(strings.NewReader("root: {id: 50}"))
	require.NoError(t, err)
	assert.Error(t, other.Apply(tree))
}

func TestSameStyleComparesTransformValues(t *testing.T) {
	t1, t2 := graphics.ScaleTransform(2, 2), graphics.ScaleTransform(2, 2)
	t3 := graphics.ScaleTransform(3, 3)

	assert.True(t, sameStyle(layout.Style{Transform: &t1}, layout.Style{Transform: &t2}))
	assert.False(t, sameStyle(layout.Style{Transform: &t1}, layout.Style{Transform: &t3}))
	assert.False(t, sameStyle(layout.Style{Transform: &t1}, layout.Style{}))
	assert.False(t, sameStyle(layout.Style{ZIndex: 1}, layout.Style{}))
	assert.True(t, sameStyle(layout.Style{}, layout.Style{}))
}
