package compositing

import (
	"github.com/go-drift/compositor/pkg/graphics"
	"github.com/go-drift/compositor/pkg/layout"
)

// OverlapMap accumulates the absolute bounds of layers already composited
// in the current requirement pass. It lives for one pass only.
type OverlapMap struct {
	bounds map[layout.ID]graphics.Rect
	order  []layout.ID
}

// NewOverlapMap returns an empty map.
func NewOverlapMap() *OverlapMap {
	return &OverlapMap{bounds: make(map[layout.ID]graphics.Rect)}
}

// Add records the absolute bounds of a composited layer. Adding the same
// layer again replaces its bounds.
func (m *OverlapMap) Add(id layout.ID, r graphics.Rect) {
	if _, ok := m.bounds[id]; !ok {
		m.order = append(m.order, id)
	}
	m.bounds[id] = r
}

// Overlaps reports whether r shares a nonzero area with any recorded rect.
func (m *OverlapMap) Overlaps(r graphics.Rect) bool {
	for _, id := range m.order {
		if r.Intersects(m.bounds[id]) {
			return true
		}
	}
	return false
}

// Contains reports whether the layer has been recorded.
func (m *OverlapMap) Contains(id layout.ID) bool {
	_, ok := m.bounds[id]
	return ok
}

// IsEmpty reports whether nothing has been recorded yet.
func (m *OverlapMap) IsEmpty() bool {
	return len(m.order) == 0
}

// Len returns the number of recorded layers.
func (m *OverlapMap) Len() int {
	return len(m.order)
}
