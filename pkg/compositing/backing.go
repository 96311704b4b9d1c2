package compositing

import (
	"fmt"

	"github.com/go-drift/compositor/pkg/graphics"
	"github.com/go-drift/compositor/pkg/layout"
)

// Backing is the set of graphics layers owned by one composited layout
// layer. The main graphics layer paints the layer itself. Optional
// sublayers are created on demand:
//
//   - an ancestor clipping layer above the main layer, when a
//     non-composited ancestor clips this layer;
//   - a descendant clipping layer below it, when this layer clips
//     composited descendants;
//   - a foreground layer, when negative z-order children must render
//     between this layer's background and its content.
type Backing struct {
	owner      *layout.Layer
	compositor *Compositor

	graphicsLayer         *graphics.Layer
	ancestorClippingLayer *graphics.Layer
	clippingLayer         *graphics.Layer
	foregroundLayer       *graphics.Layer

	compositedBounds graphics.Rect
}

func newBacking(c *Compositor, owner *layout.Layer) *Backing {
	b := &Backing{owner: owner, compositor: c}
	b.graphicsLayer = b.createGraphicsLayer(fmt.Sprintf("layer %d", owner.ID()))
	return b
}

func (b *Backing) createGraphicsLayer(name string) *graphics.Layer {
	gl := graphics.NewLayer(name)
	gl.SetShowDebugBorder(b.compositor.settings.ShowDebugBorders)
	gl.SetShowRepaintCounter(b.compositor.settings.ShowRepaintCounter)
	return gl
}

// Owner returns the layer this backing belongs to.
func (b *Backing) Owner() *layout.Layer {
	return b.owner
}

// GraphicsLayer returns the main graphics layer.
func (b *Backing) GraphicsLayer() *graphics.Layer {
	return b.graphicsLayer
}

// AncestorClippingLayer returns the clip inserted above the main layer, or nil.
func (b *Backing) AncestorClippingLayer() *graphics.Layer {
	return b.ancestorClippingLayer
}

// ClippingLayer returns the clip inserted below the main layer, or nil.
func (b *Backing) ClippingLayer() *graphics.Layer {
	return b.clippingLayer
}

// ForegroundLayer returns the foreground content layer, or nil.
func (b *Backing) ForegroundLayer() *graphics.Layer {
	return b.foregroundLayer
}

// HasClippingLayer reports whether descendants are clipped by this backing.
func (b *Backing) HasClippingLayer() bool {
	return b.clippingLayer != nil
}

// HasAncestorClippingLayer reports whether this backing is clipped by an
// ancestor's overflow.
func (b *Backing) HasAncestorClippingLayer() bool {
	return b.ancestorClippingLayer != nil
}

// ParentForSublayers is the node that hosts composited descendants.
func (b *Backing) ParentForSublayers() *graphics.Layer {
	if b.clippingLayer != nil {
		return b.clippingLayer
	}
	return b.graphicsLayer
}

// ChildForSuperlayers is the node inserted into the parent backing.
func (b *Backing) ChildForSuperlayers() *graphics.Layer {
	if b.ancestorClippingLayer != nil {
		return b.ancestorClippingLayer
	}
	return b.graphicsLayer
}

// CompositedBounds returns the cached composited bounds in owner coordinates.
func (b *Backing) CompositedBounds() graphics.Rect {
	return b.compositedBounds
}

// UpdateCompositedBounds recomputes the cached bounds from the layer tree.
func (b *Backing) UpdateCompositedBounds() {
	b.compositedBounds = b.compositor.CalculateCompositedBounds(b.owner, b.owner)
}

// UpdateGraphicsLayerConfiguration creates or removes clipping and
// foreground layers and refreshes the reflection replica link. It reports
// whether the graphics layer hierarchy changed.
func (b *Backing) UpdateGraphicsLayerConfiguration() bool {
	c := b.compositor
	changed := false
	if b.updateClippingLayers(c.ClippedByAncestor(b.owner), c.ClipsCompositingDescendants(b.owner)) {
		changed = true
	}
	if b.updateForegroundLayer(c.NeedsContentsCompositingLayer(b.owner)) {
		changed = true
	}

	if refl := b.owner.ReflectionLayer(); refl != nil {
		if rb := c.Backing(refl); rb != nil {
			b.graphicsLayer.SetReplicatedByLayer(rb.graphicsLayer)
		}
	} else {
		b.graphicsLayer.SetReplicatedByLayer(nil)
	}

	b.graphicsLayer.MediaContents = b.owner.Style().Video && b.owner.Style().VideoAccelerated
	b.updateDebugIndicators()
	return changed
}

func (b *Backing) updateDebugIndicators() {
	s := b.compositor.settings
	for _, gl := range []*graphics.Layer{b.ancestorClippingLayer, b.graphicsLayer, b.clippingLayer, b.foregroundLayer} {
		if gl != nil {
			gl.SetShowDebugBorder(s.ShowDebugBorders)
			gl.SetShowRepaintCounter(s.ShowRepaintCounter)
		}
	}
}

func (b *Backing) updateClippingLayers(needsAncestorClip, needsDescendantClip bool) bool {
	changed := false

	if needsAncestorClip {
		if b.ancestorClippingLayer == nil {
			b.ancestorClippingLayer = b.createGraphicsLayer(fmt.Sprintf("ancestor clip %d", b.owner.ID()))
			b.ancestorClippingLayer.SetDrawsContent(false)
			b.ancestorClippingLayer.SetMasksToBounds(true)
			changed = true
		}
	} else if b.ancestorClippingLayer != nil {
		b.ancestorClippingLayer.Dispose()
		b.ancestorClippingLayer = nil
		changed = true
	}

	if needsDescendantClip {
		if b.clippingLayer == nil {
			b.clippingLayer = b.createGraphicsLayer(fmt.Sprintf("child clip %d", b.owner.ID()))
			b.clippingLayer.SetDrawsContent(false)
			b.clippingLayer.SetMasksToBounds(true)
			changed = true
		}
	} else if b.clippingLayer != nil {
		// Hosted children move back onto the main layer on the next rebuild.
		b.clippingLayer.Dispose()
		b.clippingLayer = nil
		changed = true
	}

	if changed {
		b.updateInternalHierarchy()
	}
	return changed
}

func (b *Backing) updateInternalHierarchy() {
	if b.ancestorClippingLayer != nil {
		// Keep the clip where the main layer used to be.
		if p := b.graphicsLayer.Parent(); p != nil && p != b.ancestorClippingLayer {
			b.graphicsLayer.RemoveFromParent()
			p.AddChild(b.ancestorClippingLayer)
		}
		b.ancestorClippingLayer.SetChildren([]*graphics.Layer{b.graphicsLayer})
	}
	if b.clippingLayer != nil {
		b.clippingLayer.RemoveFromParent()
		b.graphicsLayer.AddChild(b.clippingLayer)
	}
}

func (b *Backing) updateForegroundLayer(needsForeground bool) bool {
	if needsForeground {
		if b.foregroundLayer != nil {
			return false
		}
		b.foregroundLayer = b.createGraphicsLayer(fmt.Sprintf("foreground %d", b.owner.ID()))
		return true
	}
	if b.foregroundLayer == nil {
		return false
	}
	b.foregroundLayer.Dispose()
	b.foregroundLayer = nil
	return true
}

// UpdateGraphicsLayerGeometry positions and sizes the backing's layers
// relative to the parent composited layer. It never changes children.
func (b *Backing) UpdateGraphicsLayerGeometry() {
	c := b.compositor
	style := b.owner.Style()
	if style.Transform != nil {
		b.graphicsLayer.SetTransform(*style.Transform)
	} else {
		b.graphicsLayer.ClearTransform()
	}

	compAncestor := c.ancestorCompositingLayer(b.owner)
	local := b.compositedBounds
	relative := local.Shift(b.owner.ConvertToLayerCoords(compAncestor))

	var parentOrigin graphics.Offset
	if compAncestor != nil {
		ab := c.Backing(compAncestor)
		if ab.HasClippingLayer() {
			parentOrigin = compAncestor.LocalBoundingBox().Origin()
		} else {
			parentOrigin = ab.CompositedBounds().Origin()
		}
	}

	if compAncestor != nil && b.ancestorClippingLayer != nil {
		clip := c.ancestorClipRect(b.owner, compAncestor)
		b.ancestorClippingLayer.SetPosition(clip.Origin().Sub(parentOrigin))
		b.ancestorClippingLayer.SetSize(clip.Size())
		parentOrigin = clip.Origin()
	}

	b.graphicsLayer.SetPosition(relative.Origin().Sub(parentOrigin))
	b.graphicsLayer.SetSize(relative.Size())

	if b.clippingLayer != nil {
		box := b.owner.LocalBoundingBox()
		b.clippingLayer.SetPosition(box.Origin().Sub(local.Origin()))
		b.clippingLayer.SetSize(box.Size())
	}

	if b.foregroundLayer != nil {
		size := relative.Size()
		var origin graphics.Offset
		if b.clippingLayer != nil {
			// The foreground sits inside the clip, so undo its offset.
			origin = local.Origin().Sub(b.owner.LocalBoundingBox().Origin())
		}
		b.foregroundLayer.SetPosition(origin)
		b.foregroundLayer.SetSize(size)
	}

	if refl := b.owner.ReflectionLayer(); refl != nil {
		if rb := c.Backing(refl); rb != nil {
			rb.UpdateGraphicsLayerGeometry()
		}
	}
}

// SetContentsNeedDisplayInRect invalidates r, given in owner coordinates.
func (b *Backing) SetContentsNeedDisplayInRect(r graphics.Rect) {
	local := r.Shift(graphics.Offset{}.Sub(b.compositedBounds.Origin()))
	b.graphicsLayer.SetNeedsDisplayInRect(local)
	if b.foregroundLayer != nil {
		b.foregroundLayer.SetNeedsDisplayInRect(local)
	}
}

// SetContentsNeedDisplay invalidates everything the backing paints.
func (b *Backing) SetContentsNeedDisplay() {
	b.SetContentsNeedDisplayInRect(b.compositedBounds)
}

func (b *Backing) destroy() {
	for _, gl := range []*graphics.Layer{b.foregroundLayer, b.clippingLayer, b.graphicsLayer, b.ancestorClippingLayer} {
		if gl != nil {
			gl.Dispose()
		}
	}
	b.foregroundLayer = nil
	b.clippingLayer = nil
	b.ancestorClippingLayer = nil
}
