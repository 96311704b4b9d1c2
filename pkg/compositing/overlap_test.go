package compositing

import (
	"testing"

	"github.com/go-drift/compositor/pkg/graphics"
)

func TestOverlapMap(t *testing.T) {
	m := NewOverlapMap()
	if !m.IsEmpty() {
		t.Fatal("new map should be empty")
	}
	if m.Overlaps(graphics.RectFromLTWH(0, 0, 1000, 1000)) {
		t.Fatal("empty map overlaps nothing")
	}

	m.Add(1, graphics.RectFromLTWH(0, 0, 100, 100))
	m.Add(2, graphics.RectFromLTWH(300, 300, 50, 50))

	tests := []struct {
		name string
		r    graphics.Rect
		want bool
	}{
		{"inside first", graphics.RectFromLTWH(10, 10, 5, 5), true},
		{"partial", graphics.RectFromLTWH(90, 90, 20, 20), true},
		{"touching edge", graphics.RectFromLTWH(100, 0, 50, 50), false},
		{"touching corner", graphics.RectFromLTWH(100, 100, 10, 10), false},
		{"between", graphics.RectFromLTWH(150, 150, 100, 100), false},
		{"second", graphics.RectFromLTWH(340, 340, 100, 100), true},
		{"empty rect", graphics.Rect{Left: 50, Top: 50, Right: 50, Bottom: 50}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.Overlaps(tt.r); got != tt.want {
				t.Errorf("Overlaps(%v) = %v, want %v", tt.r, got, tt.want)
			}
		})
	}
}

func TestOverlapMapReplace(t *testing.T) {
	m := NewOverlapMap()
	m.Add(7, graphics.RectFromLTWH(0, 0, 10, 10))
	m.Add(7, graphics.RectFromLTWH(500, 500, 10, 10))

	if m.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", m.Len())
	}
	if !m.Contains(7) || m.Contains(8) {
		t.Error("Contains reports the wrong layers")
	}
	if m.Overlaps(graphics.RectFromLTWH(0, 0, 10, 10)) {
		t.Error("replaced bounds should no longer overlap")
	}
	if !m.Overlaps(graphics.RectFromLTWH(505, 505, 10, 10)) {
		t.Error("new bounds should overlap")
	}
}
