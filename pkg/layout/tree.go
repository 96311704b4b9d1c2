package layout

import (
	"fmt"
	"slices"

	"github.com/go-drift/compositor/pkg/graphics"
)

// Observer is notified of structural changes to the layer tree. The
// compositor implements it to batch rebuilds.
type Observer interface {
	LayerWasAdded(parent, child *Layer)
	LayerWillBeRemoved(parent, child *Layer)
	LayerStyleDidChange(layer *Layer)
	// LayerPaintOrderDidChange is called before LayerStyleDidChange when a
	// style change dirtied the z-order or normal-flow lists.
	LayerPaintOrderDidChange(layer *Layer)
}

// Tree is the registry of paint-order layers for one document. Layers are
// addressed by stable ids; non-owning relations such as reflections are
// stored as id maps rather than pointers.
type Tree struct {
	name   string
	root   *Layer
	layers map[ID]*Layer
	nextID ID

	// reflections maps a source layer to its reflection; reflectionOf is
	// the inverse.
	reflections  map[ID]ID
	reflectionOf map[ID]ID

	observer Observer

	viewport   graphics.Size
	scroll     graphics.Offset
	destroying bool
}

// NewTree creates an empty tree for the named document.
func NewTree(name string) *Tree {
	return &Tree{
		name:         name,
		layers:       make(map[ID]*Layer),
		reflections:  make(map[ID]ID),
		reflectionOf: make(map[ID]ID),
		nextID:       1,
	}
}

// Name returns the document name.
func (t *Tree) Name() string {
	return t.name
}

// SetObserver registers the observer notified of tree mutations.
func (t *Tree) SetObserver(o Observer) {
	t.observer = o
}

// NewLayer registers a detached layer with the next free id.
func (t *Tree) NewLayer(style Style) *Layer {
	id := t.nextID
	for t.layers[id] != nil {
		id++
	}
	l, _ := t.NewLayerWithID(id, style)
	return l
}

// NewLayerWithID registers a detached layer with a caller-chosen id.
func (t *Tree) NewLayerWithID(id ID, style Style) (*Layer, error) {
	if _, exists := t.layers[id]; exists {
		return nil, fmt.Errorf("layer id %d already registered", id)
	}
	l := &Layer{
		id:                  id,
		tree:                t,
		style:               style,
		zOrderListsDirty:    true,
		normalFlowListDirty: true,
	}
	t.layers[id] = l
	if id >= t.nextID {
		t.nextID = id + 1
	}
	return l, nil
}

// Layer looks up a layer by id.
func (t *Tree) Layer(id ID) *Layer {
	return t.layers[id]
}

// Len returns the number of registered layers.
func (t *Tree) Len() int {
	return len(t.layers)
}

// Root returns the root layer.
func (t *Tree) Root() *Layer {
	return t.root
}

// SetRoot installs the root layer. The root must be detached.
func (t *Tree) SetRoot(l *Layer) {
	t.root = l
	l.zOrderListsDirty = true
	l.normalFlowListDirty = true
}

// AppendChild adds child as the last child of parent.
func (t *Tree) AppendChild(parent, child *Layer) {
	t.InsertChild(parent, child, len(parent.children))
}

// InsertChild adds child to parent at index in tree order.
func (t *Tree) InsertChild(parent, child *Layer, index int) {
	if child.parent != nil {
		t.RemoveChild(child.parent, child)
	}
	index = max(0, min(index, len(parent.children)))
	parent.children = slices.Insert(parent.children, index, child)
	child.parent = parent
	parent.normalFlowListDirty = true
	child.dirtyStackingContextZOrderLists()
	child.zOrderListsDirty = true
	child.normalFlowListDirty = true
	if t.observer != nil {
		t.observer.LayerWasAdded(parent, child)
	}
}

// RemoveChild detaches child from parent. The observer is told before the
// tree changes so it can still see the old geometry.
func (t *Tree) RemoveChild(parent, child *Layer) {
	i := slices.Index(parent.children, child)
	if i < 0 {
		return
	}
	if t.observer != nil {
		t.observer.LayerWillBeRemoved(parent, child)
	}
	child.dirtyStackingContextZOrderLists()
	parent.children = slices.Delete(parent.children, i, i+1)
	parent.normalFlowListDirty = true
	child.parent = nil
}

// Destroy unregisters a detached layer and its subtree.
func (t *Tree) Destroy(l *Layer) {
	if l.parent != nil {
		if src := l.ReflectionSource(); src != nil {
			t.ClearReflection(src)
		} else {
			t.RemoveChild(l.parent, l)
		}
	}
	if refl := l.ReflectionLayer(); refl != nil {
		t.ClearReflection(l)
		t.Destroy(refl)
	}
	for _, child := range slices.Clone(l.children) {
		child.parent = nil
		t.Destroy(child)
	}
	l.children = nil
	delete(t.layers, l.id)
	if t.root == l {
		t.root = nil
	}
}

// SetReflection makes reflection the mirror of source. The reflection is
// parented to its source but does not appear in any child list.
func (t *Tree) SetReflection(source, reflection *Layer) {
	if old := source.ReflectionLayer(); old != nil && old != reflection {
		t.ClearReflection(source)
	}
	t.reflections[source.id] = reflection.id
	t.reflectionOf[reflection.id] = source.id
	reflection.parent = source
	if t.observer != nil {
		t.observer.LayerWasAdded(source, reflection)
	}
}

// ClearReflection removes source's reflection relation.
func (t *Tree) ClearReflection(source *Layer) {
	id, ok := t.reflections[source.id]
	if !ok {
		return
	}
	refl := t.layers[id]
	if refl != nil && t.observer != nil {
		t.observer.LayerWillBeRemoved(source, refl)
	}
	delete(t.reflections, source.id)
	delete(t.reflectionOf, id)
	if refl != nil {
		refl.parent = nil
	}
}

// Viewport returns the visible viewport size.
func (t *Tree) Viewport() graphics.Size {
	return t.viewport
}

// SetViewport sets the visible viewport size.
func (t *Tree) SetViewport(s graphics.Size) {
	t.viewport = s
}

// ScrollOffset returns the document scroll position.
func (t *Tree) ScrollOffset() graphics.Offset {
	return t.scroll
}

// SetScrollOffset scrolls the document. Fixed layers keep their viewport
// position, which moves them in document coordinates.
func (t *Tree) SetScrollOffset(o graphics.Offset) {
	t.scroll = o
}

// DocumentBeingDestroyed reports whether the document is tearing down.
func (t *Tree) DocumentBeingDestroyed() bool {
	return t.destroying
}

// SetDocumentBeingDestroyed marks the document as tearing down; layer
// removals are then not reported as individual repaints.
func (t *Tree) SetDocumentBeingDestroyed(destroying bool) {
	t.destroying = destroying
}

// Walk visits every attached layer in paint order (negative z-order,
// normal flow, positive z-order), refreshing stale lists on the way.
func (t *Tree) Walk(visit func(l *Layer)) {
	if t.root != nil {
		walkPaintOrder(t.root, visit)
	}
}

func walkPaintOrder(l *Layer, visit func(l *Layer)) {
	l.UpdateZOrderLists()
	l.UpdateNormalFlowList()
	visit(l)
	for _, child := range l.negZOrderList {
		walkPaintOrder(child, visit)
	}
	for _, child := range l.normalFlowList {
		walkPaintOrder(child, visit)
	}
	for _, child := range l.posZOrderList {
		walkPaintOrder(child, visit)
	}
}
