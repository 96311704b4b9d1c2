package compositing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-drift/compositor/pkg/graphics"
	"github.com/go-drift/compositor/pkg/layout"
)

func TestAncestorClippingLayer(t *testing.T) {
	s := newTestScene(t)
	clip := s.add(s.root, layout.Style{OverflowClip: true}, 10, 10, 100, 100)
	x := s.add(clip, positioned(layout.Style{Canvas3D: true}), 20, 20, 200, 200)
	c := s.compositor(DefaultSettings())

	update(c)

	require.True(t, c.IsComposited(x))
	assert.False(t, c.IsComposited(clip))
	assert.True(t, c.ClippedByAncestor(x))

	xb := c.Backing(x)
	ac := xb.AncestorClippingLayer()
	require.NotNil(t, ac)
	assert.Same(t, ac, xb.ChildForSuperlayers())
	assert.True(t, ac.MasksToBounds())
	assert.Equal(t, graphics.Offset{X: 10, Y: 10}, ac.Position())
	assert.Equal(t, graphics.Size{Width: 100, Height: 100}, ac.Size())
	assert.Equal(t, []*graphics.Layer{xb.GraphicsLayer()}, ac.Children())
	assert.Equal(t, graphics.Offset{X: 20, Y: 20}, xb.GraphicsLayer().Position())
	assert.Equal(t, []*graphics.Layer{ac}, c.Backing(s.root).GraphicsLayer().Children())
}

func TestDescendantClippingLayer(t *testing.T) {
	s := newTestScene(t)
	p := s.add(s.root, positioned(layout.Style{StackingContext: true, OverflowClip: true}), 0, 0, 100, 100)
	q := s.add(p, positioned(layout.Style{Canvas3D: true}), 10, 10, 200, 200)
	c := s.compositor(DefaultSettings())

	update(c)

	require.True(t, c.IsComposited(q))
	require.True(t, c.IsComposited(p), "clips a composited descendant")
	assert.True(t, c.ClipsCompositingDescendants(p))

	pb := c.Backing(p)
	cl := pb.ClippingLayer()
	require.NotNil(t, cl)
	assert.Same(t, cl, pb.ParentForSublayers())
	assert.Equal(t, []*graphics.Layer{cl}, pb.GraphicsLayer().Children())
	assert.Equal(t, []*graphics.Layer{c.Backing(q).GraphicsLayer()}, cl.Children())
	assert.Equal(t, graphics.Size{Width: 100, Height: 100}, cl.Size())
	assert.Equal(t, graphics.Offset{X: 10, Y: 10}, c.Backing(q).GraphicsLayer().Position())
}

func TestClippingRequiresStackingContext(t *testing.T) {
	s := newTestScene(t)
	p := s.add(s.root, layout.Style{OverflowClip: true}, 0, 0, 100, 100)
	p.SetHasCompositingDescendant(true)
	c := s.compositor(DefaultSettings())

	assert.False(t, c.ClipsCompositingDescendants(p))
}

func TestCalculateCompositedBounds(t *testing.T) {
	s := newTestScene(t)
	scale := graphics.ScaleTransform(2, 2)
	p := s.add(s.root, positioned(layout.Style{StackingContext: true, Transform: &scale}), 100, 100, 10, 10)
	s.add(p, layout.Style{}, 5, 5, 20, 20)
	composited := s.add(p, positioned(layout.Style{Canvas3D: true}), 500, 500, 10, 10)
	c := s.compositor(DefaultSettings())
	c.backings[composited.ID()] = newBacking(c, composited)

	assert.Equal(t, graphics.Rect{Left: 100, Top: 100, Right: 150, Bottom: 150}, c.CalculateCompositedBounds(p, s.root))
	assert.Equal(t, graphics.Rect{Left: 0, Top: 0, Right: 50, Bottom: 50}, c.CalculateCompositedBounds(p, p))

	p.SetStyle(positioned(layout.Style{StackingContext: true, Transform: &scale, OverflowClip: true}))
	assert.Equal(t, graphics.RectFromLTWH(100, 100, 10, 10), c.CalculateCompositedBounds(p, s.root))

	p.SetStyle(positioned(layout.Style{StackingContext: true, NotSelfPainting: true}))
	assert.Equal(t, graphics.Rect{}, c.CalculateCompositedBounds(p, s.root))
}

func TestCompositedBoundsIncludeReflection(t *testing.T) {
	s := newTestScene(t)
	src := s.add(s.root, positioned(layout.Style{StackingContext: true}), 0, 0, 100, 100)
	refl := s.tree.NewLayer(layout.Style{})
	refl.SetLocation(graphics.Offset{Y: 100})
	refl.UpdateLayerPosition()
	refl.SetLocalBoundingBox(graphics.RectFromLTWH(0, 0, 100, 100))
	s.tree.SetReflection(src, refl)
	c := s.compositor(DefaultSettings())

	assert.Equal(t, graphics.RectFromLTWH(0, 0, 100, 200), c.CalculateCompositedBounds(src, src))
}

func TestRepaintCompositedLayersAbsoluteRect(t *testing.T) {
	s := newTestScene(t)
	a := s.add(s.root, positioned(layout.Style{StackingContext: true, Canvas3D: true}), 10, 10, 200, 200)
	b := s.add(a, positioned(layout.Style{Canvas3D: true}), 50, 50, 100, 100)
	c := s.compositor(DefaultSettings())
	update(c)
	for _, l := range []*layout.Layer{s.root, a, b} {
		c.Backing(l).GraphicsLayer().ClearDirty()
	}

	c.RepaintCompositedLayersAbsoluteRect(graphics.RectFromLTWH(60, 60, 10, 10))

	assert.Equal(t, []graphics.Rect{graphics.RectFromLTWH(60, 60, 10, 10)}, c.Backing(s.root).GraphicsLayer().DirtyRects())
	assert.Equal(t, []graphics.Rect{graphics.RectFromLTWH(50, 50, 10, 10)}, c.Backing(a).GraphicsLayer().DirtyRects())
	assert.Equal(t, []graphics.Rect{graphics.RectFromLTWH(0, 0, 10, 10)}, c.Backing(b).GraphicsLayer().DirtyRects())
}

func TestPartialParentingHelpers(t *testing.T) {
	s := newTestScene(t)
	a := s.add(s.root, positioned(layout.Style{StackingContext: true, Canvas3D: true}), 0, 0, 200, 200)
	plain := s.add(a, layout.Style{NotSelfPainting: true}, 0, 0, 10, 10)
	b := s.add(a, positioned(layout.Style{Canvas3D: true}), 50, 50, 100, 100)
	c := s.compositor(DefaultSettings())
	update(c)

	require.False(t, c.IsComposited(plain))
	ag, bg := c.Backing(a).GraphicsLayer(), c.Backing(b).GraphicsLayer()
	require.Same(t, ag, bg.Parent())

	c.SetCompositingParent(b, nil)
	assert.Nil(t, bg.Parent())

	c.SetCompositingParent(b, a)
	assert.Same(t, ag, bg.Parent())

	c.SetCompositingParent(b, plain)
	assert.Same(t, ag, bg.Parent(), "uncomposited parents are ignored")

	c.ParentInRootLayer(b)
	assert.Same(t, c.RootPlatformLayer(), bg.Parent())

	c.RemoveCompositedChildren(s.root)
	assert.Empty(t, c.Backing(s.root).GraphicsLayer().Children())

	c.SetCompositingLayersNeedRebuild()
	update(c)
	assert.Equal(t, []*graphics.Layer{bg}, ag.Children())
	assert.Equal(t, []*graphics.Layer{ag}, c.Backing(s.root).GraphicsLayer().Children())
}

func TestUpdateCompositingDescendantGeometry(t *testing.T) {
	s := newTestScene(t)
	a := s.add(s.root, positioned(layout.Style{StackingContext: true, Canvas3D: true}), 0, 0, 200, 200)
	b := s.add(a, positioned(layout.Style{Canvas3D: true}), 50, 50, 100, 100)
	c := s.compositor(DefaultSettings())
	update(c)

	b.SetLocation(graphics.Offset{X: 70, Y: 80})
	b.UpdateLayerPosition()
	c.UpdateCompositingDescendantGeometry(a, a, CompositingChildren)

	assert.Equal(t, graphics.Offset{X: 70, Y: 80}, c.Backing(b).GraphicsLayer().Position())
}

func TestPartialUpdateKeepsPendingRebuild(t *testing.T) {
	s := newTestScene(t)
	a := s.add(s.root, positioned(layout.Style{StackingContext: true, Canvas3D: true}), 0, 0, 200, 200)
	c := s.compositor(DefaultSettings())
	update(c)

	c.SetCompositingLayersNeedRebuild()
	c.UpdateCompositingLayers(UpdateOnPaintingOrHitTest, a)
	assert.True(t, c.CompositingLayersNeedRebuild())

	c.UpdateCompositingLayers(UpdateOnPaintingOrHitTest, nil)
	assert.False(t, c.CompositingLayersNeedRebuild())
}

func TestEnclosingNonStackingClippingLayer(t *testing.T) {
	s := newTestScene(t)
	clip := s.add(s.root, layout.Style{OverflowClip: true}, 0, 0, 100, 100)
	inner := s.add(clip, layout.Style{}, 0, 0, 10, 10)
	sc := s.add(s.root, positioned(layout.Style{StackingContext: true, OverflowClip: true}), 0, 0, 100, 100)
	scChild := s.add(sc, layout.Style{}, 0, 0, 10, 10)
	c := s.compositor(DefaultSettings())

	assert.Same(t, clip, c.EnclosingNonStackingClippingLayer(inner))
	assert.Nil(t, c.EnclosingNonStackingClippingLayer(scChild))
	assert.Nil(t, c.EnclosingNonStackingClippingLayer(s.root))
}

func TestRootPlatformLayerTracksDocumentSize(t *testing.T) {
	s := newTestScene(t)
	s.add(s.root, positioned(layout.Style{Canvas3D: true}), 0, 0, 10, 10)
	c := s.compositor(DefaultSettings())
	update(c)
	require.NotNil(t, c.RootPlatformLayer())
	assert.Equal(t, graphics.Size{Width: 800, Height: 600}, c.RootPlatformLayer().Size())

	s.root.SetLocalBoundingBox(graphics.RectFromLTWH(0, 0, 800, 2000))
	c.UpdateRootLayerPosition()
	assert.Equal(t, graphics.Size{Width: 800, Height: 2000}, c.RootPlatformLayer().Size())
}
