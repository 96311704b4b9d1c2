package graphics

import (
	"math"

	"golang.org/x/image/math/f64"
)

// Transform is a 2D affine transform applied to a layer's local coordinate
// space. The zero value is not the identity; use IdentityTransform.
//
// The matrix layout follows f64.Aff3: [a, b, c, d, e, f] maps (x, y) to
// (a*x + b*y + c, d*x + e*y + f).
type Transform struct {
	m f64.Aff3
}

// IdentityTransform returns the identity transform.
func IdentityTransform() Transform {
	return Transform{m: f64.Aff3{1, 0, 0, 0, 1, 0}}
}

// TransformFromAff3 wraps a raw affine matrix.
func TransformFromAff3(m f64.Aff3) Transform {
	return Transform{m: m}
}

// TranslateTransform returns a transform that offsets by (dx, dy).
func TranslateTransform(dx, dy float64) Transform {
	return Transform{m: f64.Aff3{1, 0, dx, 0, 1, dy}}
}

// ScaleTransform returns a transform that scales by (sx, sy).
func ScaleTransform(sx, sy float64) Transform {
	return Transform{m: f64.Aff3{sx, 0, 0, 0, sy, 0}}
}

// RotateTransform returns a transform rotating by radians around the origin.
func RotateTransform(radians float64) Transform {
	sin, cos := math.Sincos(radians)
	return Transform{m: f64.Aff3{cos, -sin, 0, sin, cos, 0}}
}

// Aff3 returns the underlying matrix.
func (t Transform) Aff3() f64.Aff3 {
	return t.m
}

// IsIdentity reports whether t leaves every point unchanged.
func (t Transform) IsIdentity() bool {
	return t.m == f64.Aff3{1, 0, 0, 0, 1, 0}
}

// Concat returns the transform that applies other first, then t.
func (t Transform) Concat(other Transform) Transform {
	a, o := t.m, other.m
	return Transform{m: f64.Aff3{
		a[0]*o[0] + a[1]*o[3],
		a[0]*o[1] + a[1]*o[4],
		a[0]*o[2] + a[1]*o[5] + a[2],
		a[3]*o[0] + a[4]*o[3],
		a[3]*o[1] + a[4]*o[4],
		a[3]*o[2] + a[4]*o[5] + a[5],
	}}
}

// MapPoint applies the transform to a point.
func (t Transform) MapPoint(p Offset) Offset {
	return Offset{
		X: t.m[0]*p.X + t.m[1]*p.Y + t.m[2],
		Y: t.m[3]*p.X + t.m[4]*p.Y + t.m[5],
	}
}

// MapRect maps the four corners of r and returns their bounding box.
func (t Transform) MapRect(r Rect) Rect {
	if r.IsEmpty() {
		return r
	}
	corners := [4]Offset{
		t.MapPoint(Offset{X: r.Left, Y: r.Top}),
		t.MapPoint(Offset{X: r.Right, Y: r.Top}),
		t.MapPoint(Offset{X: r.Right, Y: r.Bottom}),
		t.MapPoint(Offset{X: r.Left, Y: r.Bottom}),
	}
	out := Rect{Left: corners[0].X, Top: corners[0].Y, Right: corners[0].X, Bottom: corners[0].Y}
	for _, c := range corners[1:] {
		out.Left = math.Min(out.Left, c.X)
		out.Top = math.Min(out.Top, c.Y)
		out.Right = math.Max(out.Right, c.X)
		out.Bottom = math.Max(out.Bottom, c.Y)
	}
	return out
}
