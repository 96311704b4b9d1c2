package layout

import (
	"slices"

	"github.com/go-drift/compositor/pkg/graphics"
)

// ID is the stable identity of a layer within its Tree.
type ID int

// VideoClient is notified when a video layer gains or loses its backing,
// so the media player can attach to the new surface.
type VideoClient interface {
	AcceleratedRenderingStateChanged(composited bool)
}

// Layer is one node of the paint-order layer tree: a stacking context or an
// overflow-clipping box produced by layout.
//
// Layout owns layers. The compositor only reads geometry and style and
// writes the annotation fields (overlap, compositing descendants, repaint
// rect); it never keeps layers alive.
type Layer struct {
	id       ID
	tree     *Tree
	parent   *Layer
	children []*Layer // tree order, reflections excluded
	style    Style

	location graphics.Offset // set by layout
	position graphics.Offset // cached by UpdateLayerPosition
	bounds   graphics.Rect   // local bounding box

	negZOrderList       []*Layer
	posZOrderList       []*Layer
	normalFlowList      []*Layer
	zOrderListsDirty    bool
	normalFlowListDirty bool

	mustOverlapCompositedLayers bool
	hasCompositingDescendant    bool
	insideFixedComposited       bool
	repaintRect                 graphics.Rect

	video VideoClient
}

// ID returns the layer's stable id.
func (l *Layer) ID() ID {
	return l.id
}

// Tree returns the owning tree.
func (l *Layer) Tree() *Tree {
	return l.tree
}

// Parent returns the parent layer; for a reflection this is its source.
func (l *Layer) Parent() *Layer {
	return l.parent
}

// Children returns the child layers in tree order.
func (l *Layer) Children() []*Layer {
	return l.children
}

// Style returns the layer's capability record.
func (l *Layer) Style() Style {
	return l.style
}

// SetStyle replaces the style and invalidates the lists that depend on it.
func (l *Layer) SetStyle(style Style) {
	old := l.style
	l.style = style
	paintOrderChanged := old.Positioned != style.Positioned || old.StackingContext != style.StackingContext || old.ZIndex != style.ZIndex || old.Fixed != style.Fixed
	if paintOrderChanged {
		l.dirtyStackingContextZOrderLists()
		l.zOrderListsDirty = true
		if l.parent != nil {
			l.parent.normalFlowListDirty = true
		}
	}
	if l.tree != nil && l.tree.observer != nil && l.IsAttached() {
		if paintOrderChanged {
			l.tree.observer.LayerPaintOrderDidChange(l)
		}
		l.tree.observer.LayerStyleDidChange(l)
	}
}

// SetLocation records the layer's offset from its parent as computed by
// layout. It takes effect on the next UpdateLayerPosition.
func (l *Layer) SetLocation(offset graphics.Offset) {
	l.location = offset
}

// Location returns the last offset set by layout.
func (l *Layer) Location() graphics.Offset {
	return l.location
}

// UpdateLayerPosition refreshes the cached position from layout.
func (l *Layer) UpdateLayerPosition() {
	l.position = l.location
}

// Position returns the cached position relative to the parent layer.
func (l *Layer) Position() graphics.Offset {
	return l.position
}

// SetLocalBoundingBox sets the box enclosing everything this layer paints,
// in its own coordinate space.
func (l *Layer) SetLocalBoundingBox(r graphics.Rect) {
	l.bounds = r
}

// LocalBoundingBox returns the layer's bounding box in its own coordinates.
func (l *Layer) LocalBoundingBox() graphics.Rect {
	return l.bounds
}

// IsRootLayer reports whether l is the root of its tree.
func (l *Layer) IsRootLayer() bool {
	return l.tree != nil && l.tree.root == l
}

// IsStackingContext reports whether l establishes a z-order scope.
// The root layer is always a stacking context.
func (l *Layer) IsStackingContext() bool {
	return l.style.StackingContext || l.IsRootLayer()
}

// IsNormalFlowOnly reports whether l paints in its parent's normal flow
// rather than through a stacking context's z-order lists.
func (l *Layer) IsNormalFlowOnly() bool {
	return !l.style.Positioned && !l.IsStackingContext() && !l.IsReflection()
}

// IsSelfPaintingLayer reports whether l paints its own content.
func (l *Layer) IsSelfPaintingLayer() bool {
	return !l.style.NotSelfPainting
}

// IsFixed reports whether l is position:fixed.
func (l *Layer) IsFixed() bool {
	return l.style.Fixed
}

// IsReflection reports whether l is the reflection of another layer.
func (l *Layer) IsReflection() bool {
	if l.tree == nil {
		return false
	}
	_, ok := l.tree.reflectionOf[l.id]
	return ok
}

// ReflectionLayer returns the layer reflecting l, or nil.
func (l *Layer) ReflectionLayer() *Layer {
	if l.tree == nil {
		return nil
	}
	if id, ok := l.tree.reflections[l.id]; ok {
		return l.tree.layers[id]
	}
	return nil
}

// ReflectionSource returns the layer l reflects, or nil.
func (l *Layer) ReflectionSource() *Layer {
	if l.tree == nil {
		return nil
	}
	if id, ok := l.tree.reflectionOf[l.id]; ok {
		return l.tree.layers[id]
	}
	return nil
}

// HasReflection reports whether l is reflected.
func (l *Layer) HasReflection() bool {
	return l.ReflectionLayer() != nil
}

// StackingContext returns the nearest ancestor that is a stacking context.
func (l *Layer) StackingContext() *Layer {
	for p := l.parent; p != nil; p = p.parent {
		if p.IsStackingContext() {
			return p
		}
	}
	return nil
}

// UpdateZOrderLists rebuilds the negative and positive z-order lists if they
// are stale. Only stacking contexts have z-order lists.
func (l *Layer) UpdateZOrderLists() {
	if !l.zOrderListsDirty {
		return
	}
	l.zOrderListsDirty = false
	l.negZOrderList = nil
	l.posZOrderList = nil
	if !l.IsStackingContext() {
		return
	}
	for _, child := range l.children {
		child.collectLayers(&l.posZOrderList, &l.negZOrderList)
	}
	byZIndex := func(a, b *Layer) int { return a.style.ZIndex - b.style.ZIndex }
	slices.SortStableFunc(l.posZOrderList, byZIndex)
	slices.SortStableFunc(l.negZOrderList, byZIndex)
}

// collectLayers adds l to the z-order lists of its stacking context and, if
// l does not start a new stacking context, recurses into its children.
func (l *Layer) collectLayers(pos, neg *[]*Layer) {
	if !l.IsNormalFlowOnly() {
		if l.style.ZIndex >= 0 {
			*pos = append(*pos, l)
		} else {
			*neg = append(*neg, l)
		}
	}
	if !l.IsStackingContext() {
		for _, child := range l.children {
			child.collectLayers(pos, neg)
		}
	}
}

// UpdateNormalFlowList rebuilds the normal-flow child list if stale.
func (l *Layer) UpdateNormalFlowList() {
	if !l.normalFlowListDirty {
		return
	}
	l.normalFlowListDirty = false
	l.normalFlowList = nil
	for _, child := range l.children {
		if child.IsNormalFlowOnly() {
			l.normalFlowList = append(l.normalFlowList, child)
		}
	}
}

// NegZOrderList returns the negative z-order children in paint order.
func (l *Layer) NegZOrderList() []*Layer {
	return l.negZOrderList
}

// PosZOrderList returns the zero and positive z-order children in paint order.
func (l *Layer) PosZOrderList() []*Layer {
	return l.posZOrderList
}

// NormalFlowList returns the normal-flow children in tree order.
func (l *Layer) NormalFlowList() []*Layer {
	return l.normalFlowList
}

// ZOrderListsDirty reports whether the z-order lists need rebuilding.
func (l *Layer) ZOrderListsDirty() bool {
	return l.zOrderListsDirty
}

// NormalFlowListDirty reports whether the normal-flow list needs rebuilding.
func (l *Layer) NormalFlowListDirty() bool {
	return l.normalFlowListDirty
}

func (l *Layer) dirtyStackingContextZOrderLists() {
	if sc := l.StackingContext(); sc != nil {
		sc.zOrderListsDirty = true
	}
}

// absolutePosition returns the layer origin in document coordinates.
// Fixed layers are positioned relative to the scrolled viewport.
func (l *Layer) absolutePosition() graphics.Offset {
	var offset graphics.Offset
	for cur := l; cur != nil; cur = cur.parent {
		if cur.style.Fixed && cur.tree != nil {
			return offset.Add(cur.position).Add(cur.tree.scroll)
		}
		offset = offset.Add(cur.position)
	}
	return offset
}

// ConvertToLayerCoords returns the offset of l's origin in ancestor's
// coordinate space. A nil ancestor means document coordinates.
func (l *Layer) ConvertToLayerCoords(ancestor *Layer) graphics.Offset {
	if ancestor == l {
		return graphics.Offset{}
	}
	offset := l.absolutePosition()
	if ancestor != nil {
		offset = offset.Sub(ancestor.absolutePosition())
	}
	return offset
}

// AbsoluteBoundingBox maps the local bounding box through every transform
// and offset up to the document and returns the enclosing rect.
func (l *Layer) AbsoluteBoundingBox() graphics.Rect {
	r := l.bounds
	for cur := l; cur != nil; cur = cur.parent {
		if t := cur.style.Transform; t != nil {
			r = t.MapRect(r)
		}
		if cur.style.Fixed && cur.tree != nil {
			return r.Shift(cur.position.Add(cur.tree.scroll))
		}
		r = r.Shift(cur.position)
	}
	return r
}

// MustOverlapCompositedLayers reports whether the last requirement pass
// decided l composites because of overlap or propagation.
func (l *Layer) MustOverlapCompositedLayers() bool {
	return l.mustOverlapCompositedLayers
}

// SetMustOverlapCompositedLayers records the overlap/propagation decision.
func (l *Layer) SetMustOverlapCompositedLayers(must bool) {
	l.mustOverlapCompositedLayers = must
}

// HasCompositingDescendant reports whether any descendant is composited.
func (l *Layer) HasCompositingDescendant() bool {
	return l.hasCompositingDescendant
}

// SetHasCompositingDescendant records whether any descendant is composited.
func (l *Layer) SetHasCompositingDescendant(has bool) {
	l.hasCompositingDescendant = has
}

// InsideFixedComposited reports whether a composited fixed-position ancestor
// was found for l during the last requirement pass.
func (l *Layer) InsideFixedComposited() bool {
	return l.insideFixedComposited
}

// SetInsideFixedComposited records the fixed-ancestor decision.
func (l *Layer) SetInsideFixedComposited(inside bool) {
	l.insideFixedComposited = inside
}

// RepaintRect returns the cached repaint rect, relative to the layer's
// repaint container.
func (l *Layer) RepaintRect() graphics.Rect {
	return l.repaintRect
}

// SetRepaintRect stores the repaint rect computed for the current container.
func (l *Layer) SetRepaintRect(r graphics.Rect) {
	l.repaintRect = r
}

// VideoClient returns the media client attached to a video layer.
func (l *Layer) VideoClient() VideoClient {
	return l.video
}

// SetVideoClient attaches a media client.
func (l *Layer) SetVideoClient(c VideoClient) {
	l.video = c
}

// IsAttached reports whether l is reachable from its tree's root.
func (l *Layer) IsAttached() bool {
	for cur := l; cur != nil; cur = cur.parent {
		if cur.IsRootLayer() {
			return true
		}
	}
	return false
}
