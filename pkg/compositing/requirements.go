package compositing

import (
	"slices"

	"github.com/go-drift/compositor/pkg/errors"
	"github.com/go-drift/compositor/pkg/graphics"
	"github.com/go-drift/compositor/pkg/layout"
)

// computeCompositingRequirements walks l's subtree in paint order and
// decides which layers composite. state is the caller's child state:
// subtreeIsCompositing and fixedSibling are written back to it.
//
// Within one stacking context, once a layer composites every later layer
// must composite too (or, with overlap testing, every later layer that
// overlaps a composited one) so it can render above it. A composited
// negative z-order child forces l itself to composite so l's content can
// render over that child.
func (c *Compositor) computeCompositingRequirements(l *layout.Layer, overlap *OverlapMap, state *compositingState, layersChanged *bool) {
	c.counts.LayersVisited++
	l.UpdateLayerPosition()
	l.UpdateZOrderLists()
	l.UpdateNormalFlowList()

	l.SetHasCompositingDescendant(false)
	l.SetInsideFixedComposited(state.insideFixedComposited)
	c.passAncestors[l.ID()] = state.compositingAncestor

	mustOverlap := state.subtreeIsCompositing

	var absBounds graphics.Rect
	haveBounds := false
	if overlap != nil && !overlap.IsEmpty() {
		// Only composite if we overlap something already composited.
		absBounds = l.AbsoluteBoundingBox()
		haveBounds = true
		mustOverlap = overlap.Overlaps(absBounds)
	}
	l.SetMustOverlapCompositedLayers(mustOverlap)

	childState := newCompositingState(state.compositingAncestor)
	childState.depth = state.depth + 1
	childState.insideFixedComposited = state.insideFixedComposited

	willBeComposited := c.NeedsToBeComposited(l)

	if c.settings.CompositeFixedSiblings {
		if l.IsFixed() {
			state.fixedSibling = true
		}
		if !willBeComposited && state.fixedSibling {
			l.SetMustOverlapCompositedLayers(true)
			willBeComposited = c.NeedsToBeComposited(l)
		}
	}

	becomeComposited := func() {
		childState.compositingAncestor = l
		if l.IsFixed() {
			childState.insideFixedComposited = true
		}
		if overlap != nil {
			c.addToOverlapMap(overlap, l, &absBounds, &haveBounds)
		}
	}

	if willBeComposited {
		state.subtreeIsCompositing = true
		becomeComposited()
		// Video controls are painted by descendants and must stay in front.
		if l.Style().Video {
			childState.subtreeIsCompositing = true
		}
	}

	if l.IsStackingContext() {
		neg := l.NegZOrderList()
		if c.settings.CompositeFixedSiblings {
			// A fixed layer anywhere among the negative children could
			// otherwise let an earlier sibling paint into a higher layer.
			childState.fixedSibling = slices.ContainsFunc(neg, (*layout.Layer).IsFixed)
		}
		for _, child := range neg {
			c.computeCompositingRequirements(child, overlap, &childState, layersChanged)

			if !willBeComposited && childState.subtreeIsCompositing {
				l.SetMustOverlapCompositedLayers(true)
				if willBeComposited = c.NeedsToBeComposited(l); willBeComposited {
					becomeComposited()
				}
			}
		}
	}

	childState.fixedSibling = false
	for _, child := range l.NormalFlowList() {
		c.computeCompositingRequirements(child, overlap, &childState, layersChanged)
	}

	if l.IsStackingContext() {
		childState.fixedSibling = false
		for _, child := range l.PosZOrderList() {
			c.computeCompositingRequirements(child, overlap, &childState, layersChanged)
		}
	}

	// A software transform, opacity, mask or reflection cannot be applied
	// to composited descendants unless this layer composites as well.
	if !willBeComposited && childState.subtreeIsCompositing && requiresCompositingWhenDescendantsAreCompositing(l) {
		l.SetMustOverlapCompositedLayers(true)
		if overlap != nil && c.NeedsToBeComposited(l) {
			c.addToOverlapMap(overlap, l, &absBounds, &haveBounds)
		}
	}

	refl := l.ReflectionLayer()
	if refl != nil {
		refl.UpdateLayerPosition()
		refl.UpdateZOrderLists()
		refl.UpdateNormalFlowList()
		refl.SetInsideFixedComposited(l.InsideFixedComposited())
		refl.SetMustOverlapCompositedLayers(c.NeedsToBeComposited(l))
	}

	if childState.subtreeIsCompositing {
		state.subtreeIsCompositing = true
	}

	l.SetHasCompositingDescendant(childState.subtreeIsCompositing)

	// Backings are updated now so later siblings see current state.
	if c.UpdateBacking(l, RepaintNow) {
		*layersChanged = true
	}
	if refl != nil && c.UpdateLayerCompositingState(refl, RepaintNow) {
		*layersChanged = true
	}
}

func (c *Compositor) addToOverlapMap(overlap *OverlapMap, l *layout.Layer, bounds *graphics.Rect, computed *bool) {
	if l.IsRootLayer() {
		return
	}
	if !*computed {
		*bounds = l.AbsoluteBoundingBox()
		*computed = true
	}
	overlap.Add(l.ID(), *bounds)
}

// UpdateBacking creates or destroys l's backing to match
// NeedsToBeComposited. With RepaintNow the layer's footprint is repainted
// in its old repaint container: before the backing is created, or after it
// is destroyed. It reports whether a backing was created or destroyed.
func (c *Compositor) UpdateBacking(l *layout.Layer, policy RepaintPolicy) bool {
	changed := false

	if c.NeedsToBeComposited(l) {
		c.EnableCompositingMode(true)

		// 3D transforms turn off overlap testing.
		if requiresCompositingForTransform(l.Style()) {
			c.setCompositingConsultsOverlap(false)
		}

		if c.backings[l.ID()] == nil {
			if policy == RepaintNow {
				c.repaintOnCompositingChange(l)
			}
			c.backings[l.ID()] = newBacking(c, l)
			c.counts.BackingsCreated++
			changed = true
		}
	} else if b := c.backings[l.ID()]; b != nil {
		if src := l.ReflectionSource(); src != nil {
			if sb := c.Backing(src); sb != nil {
				if replica := sb.graphicsLayer.ReplicaLayer(); replica != nil && replica != b.graphicsLayer {
					errors.ReportInvariant("compositing.UpdateBacking", &errors.InvariantError{
						Invariant: "reflection-replica",
						Layer:     int(l.ID()),
						Detail:    "source is replicated by another layer",
					})
				}
				sb.graphicsLayer.SetReplicatedByLayer(nil)
			}
		}

		b.destroy()
		delete(c.backings, l.ID())
		c.counts.BackingsRemoved++
		changed = true

		// Cached repaint rects are relative to the repaint container,
		// which just changed.
		c.computeRepaintRects(l)

		if policy == RepaintNow {
			c.repaintOnCompositingChange(l)
		}
	}

	if changed && l.Style().Video {
		if v := l.VideoClient(); v != nil {
			v.AcceleratedRenderingStateChanged(c.IsComposited(l))
		}
	}
	return changed
}

// UpdateLayerCompositingState updates l's backing and, if l is composited,
// its clipping and foreground layers. It reports whether anything
// structural changed.
func (c *Compositor) UpdateLayerCompositingState(l *layout.Layer, policy RepaintPolicy) bool {
	changed := c.UpdateBacking(l, policy)
	if b := c.Backing(l); b != nil && b.UpdateGraphicsLayerConfiguration() {
		changed = true
	}
	return changed
}

// NeedsToBeComposited reports whether l should have a backing: for an
// intrinsic reason, because of overlap or propagation recorded by the last
// requirement pass, or because it sits inside a composited fixed layer.
func (c *Compositor) NeedsToBeComposited(l *layout.Layer) bool {
	if !c.settings.AcceleratedCompositing || !l.IsSelfPaintingLayer() {
		return false
	}
	if l.InsideFixedComposited() {
		return true
	}
	return c.RequiresCompositingLayer(l) || l.MustOverlapCompositedLayers()
}

// RequiresCompositingLayer reports whether l needs a backing for intrinsic
// reasons. A reflection answers for the layer it reflects.
func (c *Compositor) RequiresCompositingLayer(l *layout.Layer) bool {
	if src := l.ReflectionSource(); src != nil {
		l = src
	}
	// The root always composites once anything does.
	if c.compositing && l.IsRootLayer() {
		return true
	}
	s := l.Style()
	if c.settings.MobileSiteHeuristics {
		if c.requiresCompositingForMobileSites(l) {
			return true
		}
	} else if requiresCompositingForTransform(s) ||
		requiresCompositingForVideo(s) ||
		requiresCompositingForCanvas(s) ||
		requiresCompositingForPlugin(s) ||
		c.requiresCompositingForAnimation(s) {
		return true
	}
	return c.hasHiddenBackface(l) || c.ClipsCompositingDescendants(l)
}

// requiresCompositingForMobileSites replaces the media checks on pages
// built for small screens: fixed layers composite only when the page
// declares a device-width, non-zoomable viewport.
func (c *Compositor) requiresCompositingForMobileSites(l *layout.Layer) bool {
	if c.settings.Subframe {
		return false
	}
	s := l.Style()
	if requiresCompositingForTransform(s) || c.requiresCompositingForAnimation(s) {
		return true
	}
	if !l.IsFixed() {
		return false
	}
	return (c.settings.ViewportWidth == -1 || c.settings.ViewportWidth == 0) && !c.settings.ViewportUserScalable
}

// hasHiddenBackface checks l and its ancestors up to, but excluding, the
// composited ancestor recorded for l by the requirement pass.
func (c *Compositor) hasHiddenBackface(l *layout.Layer) bool {
	if l.Style().BackfaceHidden {
		return true
	}
	stop, ok := c.passAncestors[l.ID()]
	if !ok {
		stop = c.ancestorCompositingLayer(l)
	}
	for cur := l.Parent(); cur != nil && cur != stop; cur = cur.Parent() {
		if cur.Style().BackfaceHidden {
			return true
		}
	}
	return false
}

// ClipsCompositingDescendants reports whether l is a stacking context that
// clips its overflow and has composited descendants. Such a layer gets a
// clipping layer between itself and its children.
func (c *Compositor) ClipsCompositingDescendants(l *layout.Layer) bool {
	return l.HasCompositingDescendant() && l.Style().OverflowClip && l.IsStackingContext()
}

// ClippedByAncestor reports whether a composited layer is clipped by some
// layer between it and its composited ancestor. Composited layers are
// parented by z-order, but clipping follows the containment tree, so such
// a clip is not inherited through the graphics layer tree.
func (c *Compositor) ClippedByAncestor(l *layout.Layer) bool {
	if !c.IsComposited(l) || l.Parent() == nil {
		return false
	}
	compAncestor := c.ancestorCompositingLayer(l)
	if compAncestor == nil {
		return false
	}
	// The ancestor's own clip is handled by ClipsCompositingDescendants.
	var clipRoot *layout.Layer
	for cur := l; cur != nil; cur = cur.Parent() {
		if cur.Parent() == compAncestor {
			clipRoot = cur
			break
		}
	}
	if clipRoot == nil || clipRoot == l {
		return false
	}
	return !c.ancestorClipRect(l, compAncestor).IsInfinite()
}

// ancestorClipRect intersects the overflow clips of the layers strictly
// between l and compAncestor, in compAncestor's coordinates.
func (c *Compositor) ancestorClipRect(l, compAncestor *layout.Layer) graphics.Rect {
	clip := graphics.InfiniteRect
	for cur := l.Parent(); cur != nil && cur != compAncestor; cur = cur.Parent() {
		if !cur.Style().OverflowClip {
			continue
		}
		box := cur.LocalBoundingBox().Shift(cur.ConvertToLayerCoords(compAncestor))
		clip = clip.Intersect(box)
	}
	return clip
}

// EnclosingNonStackingClippingLayer returns the nearest ancestor that clips
// its overflow without being a stacking context, stopping at the first
// stacking context.
func (c *Compositor) EnclosingNonStackingClippingLayer(l *layout.Layer) *layout.Layer {
	for cur := l.Parent(); cur != nil; cur = cur.Parent() {
		if cur.IsStackingContext() {
			return nil
		}
		if cur.Style().OverflowClip {
			return cur
		}
	}
	return nil
}

// NeedsContentsCompositingLayer reports whether l needs a foreground layer:
// negative z-order children render in front of its background but behind
// its content.
func (c *Compositor) NeedsContentsCompositingLayer(l *layout.Layer) bool {
	return len(l.NegZOrderList()) > 0
}

func requiresCompositingForTransform(s layout.Style) bool {
	return s.Has3DTransform()
}

func requiresCompositingForVideo(s layout.Style) bool {
	return s.Video && s.VideoAccelerated
}

func requiresCompositingForCanvas(s layout.Style) bool {
	return s.Canvas3D
}

func requiresCompositingForPlugin(s layout.Style) bool {
	return s.Plugin && s.PluginAccelerated
}

func (c *Compositor) requiresCompositingForAnimation(s layout.Style) bool {
	return (s.AnimatingOpacity && c.compositing) || s.AnimatingTransform
}

func requiresCompositingWhenDescendantsAreCompositing(l *layout.Layer) bool {
	s := l.Style()
	return s.HasTransform() || s.IsTransparent() || s.Mask || l.HasReflection()
}
