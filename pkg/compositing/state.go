package compositing

import "github.com/go-drift/compositor/pkg/layout"

// UpdateType says why UpdateCompositingLayers is running.
type UpdateType int

const (
	// UpdateAfterLayoutOrStyleChange re-evaluates which layers composite.
	UpdateAfterLayoutOrStyleChange UpdateType = iota
	// UpdateOnPaintingOrHitTest brings the tree up to date before use.
	UpdateOnPaintingOrHitTest
	// UpdateOnScroll moves layers; hierarchy is re-checked only while
	// overlap testing is on, since overlap changes with scrolling.
	UpdateOnScroll
)

func (u UpdateType) String() string {
	switch u {
	case UpdateAfterLayoutOrStyleChange:
		return "layout"
	case UpdateOnPaintingOrHitTest:
		return "paint"
	case UpdateOnScroll:
		return "scroll"
	default:
		return "unknown"
	}
}

// RepaintPolicy controls whether a backing change repaints immediately.
type RepaintPolicy int

const (
	// RepaintLater leaves invalidation to the caller.
	RepaintLater RepaintPolicy = iota
	// RepaintNow repaints the layer's footprint around the backing change.
	RepaintNow
)

// UpdateDepth bounds UpdateCompositingDescendantGeometry.
type UpdateDepth int

const (
	// CompositingChildren stops at the first composited layer on each path.
	CompositingChildren UpdateDepth = iota
	// AllDescendants visits every composited descendant.
	AllDescendants
)

// compositingState is the per-frame record threaded through the
// requirement and rebuild recursions. It is passed by value; only
// subtreeIsCompositing (and fixedSibling) flow back to the caller.
type compositingState struct {
	compositingAncestor  *layout.Layer
	subtreeIsCompositing bool
	// insideFixedComposited is set below a fixed layer that composites.
	insideFixedComposited bool
	// fixedSibling is set once a fixed layer was seen among siblings.
	fixedSibling bool
	depth        int
}

func newCompositingState(ancestor *layout.Layer) compositingState {
	return compositingState{compositingAncestor: ancestor}
}
