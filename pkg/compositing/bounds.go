package compositing

import (
	"github.com/go-drift/compositor/pkg/graphics"
	"github.com/go-drift/compositor/pkg/layout"
)

// CalculateCompositedBounds returns the area painted into l's graphics
// layer, in ancestor's coordinates: l's own box united with the boxes of
// its non-composited descendants and its non-composited reflection. A layer
// that clips its overflow or has a mask only reports its own box.
func (c *Compositor) CalculateCompositedBounds(l, ancestor *layout.Layer) graphics.Rect {
	if !l.IsSelfPaintingLayer() {
		return graphics.Rect{}
	}

	box := l.LocalBoundingBox()
	s := l.Style()
	if s.OverflowClip || s.Mask {
		return box.Shift(l.ConvertToLayerCoords(ancestor))
	}

	l.UpdateZOrderLists()
	l.UpdateNormalFlowList()

	union := box
	if refl := l.ReflectionLayer(); refl != nil && !c.IsComposited(refl) {
		union = union.Union(c.CalculateCompositedBounds(refl, l))
	}
	for _, list := range [][]*layout.Layer{l.NegZOrderList(), l.PosZOrderList(), l.NormalFlowList()} {
		for _, child := range list {
			if !c.IsComposited(child) {
				union = union.Union(c.CalculateCompositedBounds(child, l))
			}
		}
	}

	// A composited layer's transform is applied by its graphics layer.
	if s.Transform != nil && !c.IsComposited(l) {
		union = s.Transform.MapRect(union)
	}

	return union.Shift(l.ConvertToLayerCoords(ancestor))
}
