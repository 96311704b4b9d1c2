package compositing

import (
	"github.com/go-drift/compositor/pkg/graphics"
	"github.com/go-drift/compositor/pkg/layout"
)

// refreshBacking recomputes bounds, configuration and geometry for a
// backing whose descendants have already been decided.
func (c *Compositor) refreshBacking(l *layout.Layer, b *Backing) {
	b.UpdateCompositedBounds()
	if refl := l.ReflectionLayer(); refl != nil {
		if rb := c.Backing(refl); rb != nil {
			rb.UpdateCompositedBounds()
		}
	}
	b.UpdateGraphicsLayerConfiguration()
	b.UpdateGraphicsLayerGeometry()
	if l.Parent() == nil {
		c.UpdateRootLayerPosition()
	}
}

// rebuildCompositingLayerTree re-parents graphics layers to mirror the
// composited layers in l's subtree. The child-for-superlayers nodes of
// the nearest composited descendants are collected in paint order, either
// into l's own backing or, when l is not composited, into the enclosing
// backing's list.
func (c *Compositor) rebuildCompositingLayerTree(l *layout.Layer, state compositingState, childLayersOfEnclosingLayer *[]*graphics.Layer) {
	b := c.Backing(l)
	if b != nil {
		c.refreshBacking(l, b)
	}

	var layerChildren []*graphics.Layer
	childList := childLayersOfEnclosingLayer
	if b != nil {
		childList = &layerChildren
	}

	childState := state
	if b != nil {
		childState.compositingAncestor = l
	}
	childState.depth++
	childState.subtreeIsCompositing = false

	if l.IsStackingContext() {
		for _, child := range l.NegZOrderList() {
			c.rebuildCompositingLayerTree(child, childState, childList)
		}
		// The foreground sits above the negative z-order children.
		if b != nil && b.ForegroundLayer() != nil {
			*childList = append(*childList, b.ForegroundLayer())
		}
	}

	for _, child := range l.NormalFlowList() {
		c.rebuildCompositingLayerTree(child, childState, childList)
	}

	if l.IsStackingContext() {
		for _, child := range l.PosZOrderList() {
			c.rebuildCompositingLayerTree(child, childState, childList)
		}
	}

	if b != nil {
		b.ParentForSublayers().SetChildren(layerChildren)
		*childLayersOfEnclosingLayer = append(*childLayersOfEnclosingLayer, b.ChildForSuperlayers())
	}
}

// updateLayerTreeGeometry refreshes geometry in l's subtree without
// touching the graphics layer hierarchy. Every child is visited: the
// geometry change may start above the first composited layer.
func (c *Compositor) updateLayerTreeGeometry(l *layout.Layer) {
	l.UpdateLayerPosition()
	if b := c.Backing(l); b != nil {
		c.refreshBacking(l, b)
	}

	if l.IsStackingContext() {
		for _, child := range l.NegZOrderList() {
			c.updateLayerTreeGeometry(child)
		}
	}
	for _, child := range l.NormalFlowList() {
		c.updateLayerTreeGeometry(child)
	}
	if l.IsStackingContext() {
		for _, child := range l.PosZOrderList() {
			c.updateLayerTreeGeometry(child)
		}
	}
}

// UpdateCompositingDescendantGeometry refreshes the geometry of the
// composited descendants of compositingAncestor found below l. With
// CompositingChildren it stops at the first composited layer on each path.
func (c *Compositor) UpdateCompositingDescendantGeometry(compositingAncestor, l *layout.Layer, depth UpdateDepth) {
	if l != compositingAncestor {
		if b := c.Backing(l); b != nil {
			b.UpdateCompositedBounds()
			if refl := l.ReflectionLayer(); refl != nil {
				if rb := c.Backing(refl); rb != nil {
					rb.UpdateCompositedBounds()
				}
			}
			b.UpdateGraphicsLayerGeometry()
			if depth == CompositingChildren {
				return
			}
		}
	}

	if refl := l.ReflectionLayer(); refl != nil {
		c.UpdateCompositingDescendantGeometry(compositingAncestor, refl, depth)
	}

	if !l.HasCompositingDescendant() {
		return
	}

	if l.IsStackingContext() {
		for _, child := range l.NegZOrderList() {
			c.UpdateCompositingDescendantGeometry(compositingAncestor, child, depth)
		}
	}
	for _, child := range l.NormalFlowList() {
		c.UpdateCompositingDescendantGeometry(compositingAncestor, child, depth)
	}
	if l.IsStackingContext() {
		for _, child := range l.PosZOrderList() {
			c.UpdateCompositingDescendantGeometry(compositingAncestor, child, depth)
		}
	}
}

// SetCompositingParent hosts child's graphics layers under parent's. A nil
// parent unparents child. Nothing happens when parent is not composited
// yet; the next full rebuild fixes the hierarchy.
func (c *Compositor) SetCompositingParent(child, parent *layout.Layer) {
	cb := c.Backing(child)
	if cb == nil {
		return
	}
	if parent == nil {
		cb.ChildForSuperlayers().RemoveFromParent()
		return
	}
	pb := c.Backing(parent)
	if pb == nil {
		return
	}
	pb.ParentForSublayers().AddChild(cb.ChildForSuperlayers())
}

// RemoveCompositedChildren detaches every graphics layer hosted by l.
func (c *Compositor) RemoveCompositedChildren(l *layout.Layer) {
	if b := c.Backing(l); b != nil {
		b.ParentForSublayers().RemoveAllChildren()
	}
}

// ParentInRootLayer hosts l's graphics layers directly under the root
// platform layer.
func (c *Compositor) ParentInRootLayer(l *layout.Layer) {
	b := c.Backing(l)
	if b == nil {
		return
	}
	anchor := b.ChildForSuperlayers()
	if anchor.Parent() == c.rootPlatformLayer {
		return
	}
	anchor.RemoveFromParent()
	if c.rootPlatformLayer != nil {
		c.rootPlatformLayer.AddChild(anchor)
	}
}
