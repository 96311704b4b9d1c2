package graphics

import (
	"fmt"
	"slices"
	"strings"
)

// Layer is a retained platform graphics layer. The compositor is the only
// writer of its tree shape; platform backends read the tree when syncing.
//
// A Layer has stable identity: it is mutated in place across updates and only
// disposed when the owning backing is destroyed.
type Layer struct {
	Name string

	parent   *Layer
	children []*Layer

	position      Offset
	size          Size
	transform     Transform
	hasTransform  bool
	masksToBounds bool
	drawsContent  bool

	// replica is the layer that reflects this one; replicaOf is the inverse.
	replica   *Layer
	replicaOf *Layer

	// MediaContents is set when the layer hosts accelerated media (video).
	MediaContents bool

	showDebugBorder    bool
	showRepaintCounter bool
	repaintCount       int

	// Dirty is set when content needs to be redrawn; dirtyRects accumulates
	// the invalidated regions in layer coordinates.
	Dirty      bool
	dirtyRects []Rect
	disposed   bool
}

// NewLayer creates an empty layer with the given debug name.
func NewLayer(name string) *Layer {
	return &Layer{Name: name, drawsContent: true, transform: IdentityTransform()}
}

// Parent returns the layer's parent, or nil when detached.
func (l *Layer) Parent() *Layer {
	return l.parent
}

// Children returns the child list in back-to-front order.
// The returned slice must not be modified.
func (l *Layer) Children() []*Layer {
	return l.children
}

// SetChildren replaces the child list. Each child is removed from its
// previous parent first.
func (l *Layer) SetChildren(children []*Layer) {
	if slices.Equal(l.children, children) {
		return
	}
	l.RemoveAllChildren()
	for _, child := range children {
		l.AddChild(child)
	}
}

// AddChild appends child, reparenting it if needed.
func (l *Layer) AddChild(child *Layer) {
	if child == nil || child == l {
		return
	}
	if child.parent != nil {
		child.RemoveFromParent()
	}
	child.parent = l
	l.children = append(l.children, child)
}

// RemoveFromParent detaches the layer from its parent, if any.
func (l *Layer) RemoveFromParent() {
	if l.parent == nil {
		return
	}
	p := l.parent
	if i := slices.Index(p.children, l); i >= 0 {
		p.children = slices.Delete(p.children, i, i+1)
	}
	l.parent = nil
}

// RemoveAllChildren detaches every child.
func (l *Layer) RemoveAllChildren() {
	for _, child := range l.children {
		child.parent = nil
	}
	l.children = nil
}

// Position returns the layer's position in its parent's coordinates.
func (l *Layer) Position() Offset {
	return l.position
}

// SetPosition moves the layer within its parent.
func (l *Layer) SetPosition(p Offset) {
	l.position = p
}

// Size returns the layer's size.
func (l *Layer) Size() Size {
	return l.size
}

// SetSize resizes the layer. A size change invalidates the content.
func (l *Layer) SetSize(s Size) {
	if l.size == s {
		return
	}
	l.size = s
	l.MarkDirty()
}

// Transform returns the layer transform and whether one is set.
func (l *Layer) Transform() (Transform, bool) {
	return l.transform, l.hasTransform
}

// SetTransform sets the layer transform.
func (l *Layer) SetTransform(t Transform) {
	l.transform = t
	l.hasTransform = !t.IsIdentity()
}

// ClearTransform removes any layer transform.
func (l *Layer) ClearTransform() {
	l.transform = IdentityTransform()
	l.hasTransform = false
}

// MasksToBounds reports whether sublayers are clipped to this layer's bounds.
func (l *Layer) MasksToBounds() bool {
	return l.masksToBounds
}

// SetMasksToBounds enables clipping of sublayers.
func (l *Layer) SetMasksToBounds(masks bool) {
	l.masksToBounds = masks
}

// DrawsContent reports whether the layer paints its own content.
func (l *Layer) DrawsContent() bool {
	return l.drawsContent
}

// SetDrawsContent toggles whether the layer paints its own content.
func (l *Layer) SetDrawsContent(draws bool) {
	l.drawsContent = draws
}

// ReplicaLayer returns the layer that replicates this one, if any.
func (l *Layer) ReplicaLayer() *Layer {
	return l.replica
}

// ReplicatedLayer returns the layer this layer is a replica of, if any.
func (l *Layer) ReplicatedLayer() *Layer {
	return l.replicaOf
}

// SetReplicatedByLayer sets (or clears, with nil) the replica of this layer.
func (l *Layer) SetReplicatedByLayer(replica *Layer) {
	if l.replica == replica {
		return
	}
	if l.replica != nil {
		l.replica.replicaOf = nil
	}
	l.replica = replica
	if replica != nil {
		replica.replicaOf = l
	}
}

// SetShowDebugBorder toggles the debug border drawn by the platform.
func (l *Layer) SetShowDebugBorder(show bool) {
	l.showDebugBorder = show
}

// ShowDebugBorder reports whether the debug border is drawn.
func (l *Layer) ShowDebugBorder() bool {
	return l.showDebugBorder
}

// SetShowRepaintCounter toggles the on-layer repaint counter.
func (l *Layer) SetShowRepaintCounter(show bool) {
	l.showRepaintCounter = show
}

// RepaintCount returns how many times the layer has been invalidated.
func (l *Layer) RepaintCount() int {
	return l.repaintCount
}

// MarkDirty invalidates the whole layer.
func (l *Layer) MarkDirty() {
	l.SetNeedsDisplayInRect(RectFromLTWH(0, 0, l.size.Width, l.size.Height))
}

// SetNeedsDisplayInRect invalidates a region in layer coordinates.
func (l *Layer) SetNeedsDisplayInRect(r Rect) {
	if l.disposed {
		return
	}
	l.Dirty = true
	l.repaintCount++
	if !r.IsEmpty() {
		l.dirtyRects = append(l.dirtyRects, r)
	}
}

// DirtyRects returns the regions invalidated since the last ClearDirty.
func (l *Layer) DirtyRects() []Rect {
	return l.dirtyRects
}

// ClearDirty marks the content as painted.
func (l *Layer) ClearDirty() {
	l.Dirty = false
	l.dirtyRects = nil
}

// Dispose detaches the layer from the tree and drops replica links.
func (l *Layer) Dispose() {
	l.RemoveFromParent()
	l.RemoveAllChildren()
	l.SetReplicatedByLayer(nil)
	if l.replicaOf != nil {
		l.replicaOf.SetReplicatedByLayer(nil)
	}
	l.dirtyRects = nil
	l.disposed = true
}

// Disposed reports whether Dispose has been called.
func (l *Layer) Disposed() bool {
	return l.disposed
}

// Dump renders the subtree as indented text, one layer per line.
func (l *Layer) Dump() string {
	var sb strings.Builder
	l.dump(&sb, 0)
	return sb.String()
}

func (l *Layer) dump(sb *strings.Builder, depth int) {
	sb.WriteString(strings.Repeat("  ", depth))
	fmt.Fprintf(sb, "%s pos=(%g,%g) size=(%gx%g)", l.Name, l.position.X, l.position.Y, l.size.Width, l.size.Height)
	if l.masksToBounds {
		sb.WriteString(" masks")
	}
	if l.hasTransform {
		sb.WriteString(" transform")
	}
	if l.replica != nil {
		fmt.Fprintf(sb, " replica=%s", l.replica.Name)
	}
	if l.MediaContents {
		sb.WriteString(" media")
	}
	sb.WriteString("\n")
	for _, child := range l.children {
		child.dump(sb, depth+1)
	}
}
