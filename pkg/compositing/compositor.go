// Package compositing decides which layout layers are promoted to hardware
// layers and maintains the tree of graphics layers that mirrors them.
//
// A Compositor observes one layout.Tree. Mutations mark the graphics tree
// stale; UpdateCompositingLayers brings it up to date in two passes: a
// requirement pass that walks layers in paint order deciding what
// composites (creating and destroying backings as it goes), followed by a
// rebuild pass that re-parents graphics layers, or a geometry-only pass
// when nothing structural changed.
//
// The compositor is not safe for concurrent use. Callers run it on the same
// goroutine as layout.
package compositing

import (
	"time"

	"github.com/go-drift/compositor/pkg/errors"
	"github.com/go-drift/compositor/pkg/graphics"
	"github.com/go-drift/compositor/pkg/layout"
	"github.com/go-drift/compositor/pkg/platform"
)

// maxRequirementRuns bounds how often one update re-runs the requirement
// pass after a global switch flipped mid-pass. Each switch flips at most
// once per update.
const maxRequirementRuns = 3

// Compositor owns the backings of one document and the root platform layer
// that hosts them.
type Compositor struct {
	tree     *layout.Tree
	client   platform.Client
	settings Settings

	backings map[layout.ID]*Backing
	// passAncestors records, per layer, the composited ancestor that was
	// current when the last requirement pass visited it.
	passAncestors map[layout.ID]*layout.Layer

	rootPlatformLayer *graphics.Layer
	rootLayerAttached bool

	// compositing and consultsOverlap are the document-wide switches.
	// consultsOverlap only ever goes from true to false.
	compositing       bool
	consultsOverlap   bool
	layersNeedRebuild bool

	trace  *UpdateTraceBuffer
	counts UpdateCounts
}

// New creates a compositor for tree and registers it as the tree's
// observer. A nil client is replaced by platform.NoopClient.
func New(tree *layout.Tree, client platform.Client, settings Settings) *Compositor {
	if client == nil {
		client = platform.NoopClient{}
	}
	c := &Compositor{
		tree:            tree,
		client:          client,
		settings:        settings,
		backings:        make(map[layout.ID]*Backing),
		passAncestors:   make(map[layout.ID]*layout.Layer),
		consultsOverlap: true,
		trace:           NewUpdateTraceBuffer(0, settings.SlowUpdateThreshold),
	}
	tree.SetObserver(c)
	return c
}

// Tree returns the observed layout tree.
func (c *Compositor) Tree() *layout.Tree {
	return c.tree
}

// Settings returns the cached settings.
func (c *Compositor) Settings() Settings {
	return c.settings
}

// ApplySettings caches new settings. A change to accelerated compositing
// or the debug indicators schedules a full rebuild.
func (c *Compositor) ApplySettings(s Settings) {
	old := c.settings
	if s.AcceleratedCompositing != old.AcceleratedCompositing ||
		s.ShowDebugBorders != old.ShowDebugBorders ||
		s.ShowRepaintCounter != old.ShowRepaintCounter {
		c.SetCompositingLayersNeedRebuild()
	}
	c.settings = s
	c.trace.SetThreshold(s.SlowUpdateThreshold)
}

// Trace returns the update trace buffer.
func (c *Compositor) Trace() *UpdateTraceBuffer {
	return c.trace
}

// InCompositingMode reports whether any layer has been composited since
// compositing was last disabled.
func (c *Compositor) InCompositingMode() bool {
	return c.compositing
}

// EnableCompositingMode switches compositing mode, creating or destroying
// the root platform layer.
func (c *Compositor) EnableCompositingMode(enable bool) {
	if enable == c.compositing {
		return
	}
	c.compositing = enable
	if enable {
		c.ensureRootPlatformLayer()
	} else {
		c.destroyRootPlatformLayer()
	}
}

// CompositingConsultsOverlap reports whether overlap testing is still on.
func (c *Compositor) CompositingConsultsOverlap() bool {
	return c.consultsOverlap
}

// setCompositingConsultsOverlap only accepts false; overlap testing is
// never re-enabled for a document.
func (c *Compositor) setCompositingConsultsOverlap(consult bool) {
	if !consult {
		c.consultsOverlap = false
	}
}

// DidStartAcceleratedAnimation turns off overlap testing. Layout does not
// run for every animation frame, so overlap results would go stale.
func (c *Compositor) DidStartAcceleratedAnimation() {
	c.setCompositingConsultsOverlap(false)
}

// SetCompositingLayersNeedRebuild marks the graphics tree stale. It is
// ignored outside compositing mode.
func (c *Compositor) SetCompositingLayersNeedRebuild() {
	if c.compositing {
		c.layersNeedRebuild = true
	}
}

// CompositingLayersNeedRebuild reports whether a rebuild is pending.
func (c *Compositor) CompositingLayersNeedRebuild() bool {
	return c.layersNeedRebuild
}

// Backing returns l's backing, or nil when l is not composited.
func (c *Compositor) Backing(l *layout.Layer) *Backing {
	if l == nil {
		return nil
	}
	return c.backings[l.ID()]
}

// IsComposited reports whether l currently has a backing.
func (c *Compositor) IsComposited(l *layout.Layer) bool {
	return c.Backing(l) != nil
}

// CompositedLayers returns the composited layers in paint order.
func (c *Compositor) CompositedLayers() []*layout.Layer {
	var out []*layout.Layer
	c.tree.Walk(func(l *layout.Layer) {
		if c.IsComposited(l) {
			out = append(out, l)
		}
	})
	return out
}

// ancestorCompositingLayer returns the nearest proper ancestor with a
// backing.
func (c *Compositor) ancestorCompositingLayer(l *layout.Layer) *layout.Layer {
	for p := l.Parent(); p != nil; p = p.Parent() {
		if c.IsComposited(p) {
			return p
		}
	}
	return nil
}

// enclosingCompositingLayer is like ancestorCompositingLayer but includes l.
func (c *Compositor) enclosingCompositingLayer(l *layout.Layer) *layout.Layer {
	if c.IsComposited(l) {
		return l
	}
	return c.ancestorCompositingLayer(l)
}

// UpdateCompositingLayers brings the graphics layer tree up to date. A nil
// updateRoot means the whole document and also clears the pending
// rebuild flag.
func (c *Compositor) UpdateCompositingLayers(updateType UpdateType, updateRoot *layout.Layer) {
	defer errors.Recover("compositing.UpdateCompositingLayers")

	checkForHierarchyUpdate := false
	needGeometryUpdate := false
	switch updateType {
	case UpdateAfterLayoutOrStyleChange, UpdateOnPaintingOrHitTest:
		checkForHierarchyUpdate = true
	case UpdateOnScroll:
		// Overlap changes with scrolling.
		if c.consultsOverlap {
			checkForHierarchyUpdate = true
		}
		needGeometryUpdate = true
	}
	if !checkForHierarchyUpdate && !needGeometryUpdate {
		return
	}

	needHierarchyUpdate := c.layersNeedRebuild
	fullUpdate := updateRoot == nil
	if fullUpdate {
		c.layersNeedRebuild = false
		updateRoot = c.tree.Root()
	}
	if updateRoot == nil {
		return
	}

	start := time.Now()
	c.counts = UpdateCounts{}
	sample := UpdateSample{Timestamp: start.UnixMilli(), Type: updateType.String()}

	if checkForHierarchyUpdate {
		if fullUpdate {
			c.releaseDetachedBackings()
		}
		phase := time.Now()
		for run := 0; run < maxRequirementRuns; run++ {
			wasCompositing, consulted := c.compositing, c.consultsOverlap
			state := newCompositingState(updateRoot)
			layersChanged := false
			var overlap *OverlapMap
			if c.consultsOverlap {
				overlap = NewOverlapMap()
			}
			c.computeCompositingRequirements(updateRoot, overlap, &state, &layersChanged)
			c.counts.RequirementRuns++
			needHierarchyUpdate = needHierarchyUpdate || layersChanged
			if wasCompositing == c.compositing && consulted == c.consultsOverlap {
				break
			}
		}
		sample.Phases.RequirementsMs = durationToMillis(time.Since(phase))
	}

	if needHierarchyUpdate {
		phase := time.Now()
		var childList []*graphics.Layer
		c.rebuildCompositingLayerTree(updateRoot, newCompositingState(updateRoot), &childList)
		// Host the document layer in the root platform layer.
		if updateRoot == c.tree.Root() && len(childList) > 0 && c.rootPlatformLayer != nil {
			c.rootPlatformLayer.SetChildren(childList)
		}
		sample.Phases.RebuildMs = durationToMillis(time.Since(phase))
		sample.HierarchyRebuilt = true
	} else if needGeometryUpdate {
		phase := time.Now()
		c.updateLayerTreeGeometry(updateRoot)
		sample.Phases.GeometryMs = durationToMillis(time.Since(phase))
	}

	if !c.settings.AcceleratedCompositing {
		c.EnableCompositingMode(false)
	}

	if checkForHierarchyUpdate && fullUpdate {
		c.verifyBackings()
	}
	if c.compositing && (needHierarchyUpdate || needGeometryUpdate) {
		c.client.ScheduleCompositingLayerSync()
	}

	d := time.Since(start)
	sample.UpdateMs = durationToMillis(d)
	sample.ConsultsOverlap = c.consultsOverlap
	c.counts.Composited = len(c.backings)
	sample.Counts = c.counts
	c.trace.Add(sample, d)
}

// releaseDetachedBackings destroys backings whose layers were removed from
// the tree; the requirement pass never visits them again.
func (c *Compositor) releaseDetachedBackings() {
	for id, b := range c.backings {
		if c.tree.Layer(id) == b.owner && b.owner.IsAttached() {
			continue
		}
		b.destroy()
		delete(c.backings, id)
		c.counts.BackingsRemoved++
	}
	for id, l := range c.passAncestors {
		if c.tree.Layer(id) == nil || (l != nil && c.tree.Layer(l.ID()) != l) {
			delete(c.passAncestors, id)
		}
	}
}

// verifyBackings reports layers whose backing disagrees with the decision
// just made, and reflections that disagree with their source.
func (c *Compositor) verifyBackings() {
	c.tree.Walk(func(l *layout.Layer) {
		if c.IsComposited(l) != c.NeedsToBeComposited(l) {
			errors.ReportInvariant("compositing.UpdateCompositingLayers", &errors.InvariantError{
				Invariant: "backing-matches-decision",
				Layer:     int(l.ID()),
				Detail:    "backing does not match needsToBeComposited",
			})
		}
		if refl := l.ReflectionLayer(); refl != nil && c.IsComposited(refl) != c.IsComposited(l) {
			errors.ReportInvariant("compositing.UpdateCompositingLayers", &errors.InvariantError{
				Invariant: "reflection-matches-source",
				Layer:     int(refl.ID()),
			})
		}
	})
}

// LayerWasAdded implements layout.Observer.
func (c *Compositor) LayerWasAdded(parent, child *layout.Layer) {
	c.SetCompositingLayersNeedRebuild()
}

// LayerWillBeRemoved implements layout.Observer. A composited child is
// unparented at once and its footprint repainted in the enclosing
// composited layer, since its content moves back to software painting.
func (c *Compositor) LayerWillBeRemoved(parent, child *layout.Layer) {
	b := c.Backing(child)
	if b == nil || c.tree.DocumentBeingDestroyed() {
		return
	}

	c.SetCompositingParent(child, nil)

	if compLayer := c.enclosingCompositingLayer(parent); compLayer != nil {
		bounds := b.CompositedBounds().Shift(child.ConvertToLayerCoords(compLayer))
		c.Backing(compLayer).SetContentsNeedDisplayInRect(bounds)
		c.client.SetNeedsOneShotDrawingSynchronization()
	}

	c.SetCompositingLayersNeedRebuild()
}

// LayerStyleDidChange implements layout.Observer.
func (c *Compositor) LayerStyleDidChange(l *layout.Layer) {
	if c.UpdateLayerCompositingState(l, RepaintNow) {
		c.SetCompositingLayersNeedRebuild()
		return
	}
	if b := c.Backing(l); b != nil {
		b.UpdateCompositedBounds()
		b.UpdateGraphicsLayerGeometry()
		c.UpdateCompositingDescendantGeometry(l, l, CompositingChildren)
		b.SetContentsNeedDisplay()
	}
}

// LayerPaintOrderDidChange implements layout.Observer. Backing children
// follow paint order, so a reordering needs a rebuild even when no
// compositing decision changes.
func (c *Compositor) LayerPaintOrderDidChange(l *layout.Layer) {
	if c.compositing {
		c.SetCompositingLayersNeedRebuild()
	}
}

// RootPlatformLayer returns the layer hosting the composited tree, or nil
// outside compositing mode.
func (c *Compositor) RootPlatformLayer() *graphics.Layer {
	return c.rootPlatformLayer
}

// RootLayerAttached reports whether the root platform layer is mounted.
func (c *Compositor) RootLayerAttached() bool {
	return c.rootLayerAttached
}

func (c *Compositor) ensureRootPlatformLayer() {
	if c.rootPlatformLayer != nil {
		return
	}
	c.rootPlatformLayer = graphics.NewLayer("root")
	c.rootPlatformLayer.SetDrawsContent(false)
	c.rootPlatformLayer.SetSize(c.documentSize())
	c.rootPlatformLayer.SetPosition(graphics.Offset{})
	// Clip transformed content to the frame.
	c.rootPlatformLayer.SetMasksToBounds(true)
	c.DidMoveOnscreen()
}

func (c *Compositor) destroyRootPlatformLayer() {
	if c.rootPlatformLayer == nil {
		return
	}
	c.WillMoveOffscreen()
	c.rootPlatformLayer.Dispose()
	c.rootPlatformLayer = nil
}

// DidMoveOnscreen mounts the root platform layer in the frame.
func (c *Compositor) DidMoveOnscreen() {
	if c.rootPlatformLayer == nil {
		return
	}
	c.client.AttachRootGraphicsLayer(c.tree.Name(), c.rootPlatformLayer)
	c.rootLayerAttached = true
}

// WillMoveOffscreen unmounts the root platform layer.
func (c *Compositor) WillMoveOffscreen() {
	if c.rootPlatformLayer == nil || !c.rootLayerAttached {
		return
	}
	c.client.AttachRootGraphicsLayer(c.tree.Name(), nil)
	c.rootLayerAttached = false
}

// UpdateRootLayerPosition resizes the root platform layer to the document.
func (c *Compositor) UpdateRootLayerPosition() {
	if c.rootPlatformLayer != nil {
		c.rootPlatformLayer.SetSize(c.documentSize())
	}
}

// documentSize is the extent of the root layer's content, never smaller
// than the viewport.
func (c *Compositor) documentSize() graphics.Size {
	size := c.tree.Viewport()
	if root := c.tree.Root(); root != nil {
		box := root.LocalBoundingBox()
		size.Width = max(size.Width, box.Right)
		size.Height = max(size.Height, box.Bottom)
	}
	return size
}

// Has3DContent reports whether any attached layer uses 3D rendering.
func (c *Compositor) Has3DContent() bool {
	root := c.tree.Root()
	return root != nil && layerHas3DContent(root)
}

func layerHas3DContent(l *layout.Layer) bool {
	if l.Style().Has3DTransform() {
		return true
	}
	l.UpdateZOrderLists()
	l.UpdateNormalFlowList()
	if l.IsStackingContext() {
		for _, child := range l.NegZOrderList() {
			if layerHas3DContent(child) {
				return true
			}
		}
		for _, child := range l.PosZOrderList() {
			if layerHas3DContent(child) {
				return true
			}
		}
	}
	for _, child := range l.NormalFlowList() {
		if layerHas3DContent(child) {
			return true
		}
	}
	return false
}
