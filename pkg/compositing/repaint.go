package compositing

import (
	"github.com/go-drift/compositor/pkg/graphics"
	"github.com/go-drift/compositor/pkg/layout"
)

// repaintOnCompositingChange repaints l and its non-composited descendants
// in l's repaint container. It runs while l has no backing: just before one
// is created, or just after one was destroyed.
func (c *Compositor) repaintOnCompositingChange(l *layout.Layer) {
	// Unattached layers have not been painted yet.
	if l.Parent() == nil || !l.IsAttached() {
		return
	}
	c.counts.Repaints++

	container := c.enclosingCompositingLayer(l)
	rect := c.CalculateCompositedBounds(l, container)
	if container == nil {
		c.client.RepaintViewRect(rect)
	} else {
		c.Backing(container).SetContentsNeedDisplayInRect(rect)
	}
	if container == nil || container.IsRootLayer() {
		// Content may move between the window and a graphics layer.
		c.client.SetNeedsOneShotDrawingSynchronization()
	}
}

// computeRepaintRects refreshes the cached repaint rects of l and its
// non-composited descendants relative to their new repaint container.
func (c *Compositor) computeRepaintRects(l *layout.Layer) {
	container := c.enclosingCompositingLayer(l)
	var walk func(cur *layout.Layer)
	walk = func(cur *layout.Layer) {
		cur.SetRepaintRect(cur.LocalBoundingBox().Shift(cur.ConvertToLayerCoords(container)))
		for _, child := range cur.Children() {
			if !c.IsComposited(child) {
				walk(child)
			}
		}
	}
	walk(l)
}

// RepaintCompositedLayersAbsoluteRect invalidates rect, in document
// coordinates, in every composited layer it reaches.
func (c *Compositor) RepaintCompositedLayersAbsoluteRect(rect graphics.Rect) {
	if root := c.tree.Root(); root != nil {
		c.recursiveRepaintLayerRect(root, rect)
	}
}

// recursiveRepaintLayerRect does not account for transforms.
func (c *Compositor) recursiveRepaintLayerRect(l *layout.Layer, rect graphics.Rect) {
	if b := c.Backing(l); b != nil {
		b.SetContentsNeedDisplayInRect(rect)
	}

	repaintChild := func(child *layout.Layer) {
		offset := child.ConvertToLayerCoords(l)
		c.recursiveRepaintLayerRect(child, rect.Shift(graphics.Offset{}.Sub(offset)))
	}
	if l.HasCompositingDescendant() {
		for _, child := range l.NegZOrderList() {
			repaintChild(child)
		}
		for _, child := range l.PosZOrderList() {
			repaintChild(child)
		}
	}
	for _, child := range l.NormalFlowList() {
		repaintChild(child)
	}
}
