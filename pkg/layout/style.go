package layout

import "github.com/go-drift/compositor/pkg/graphics"

// Style is the plain-data capability record layout hands to the compositor.
// It carries only the flags the compositing decision needs; the compositor
// never inspects render objects directly.
type Style struct {
	// Positioned is true for relatively/absolutely/fixed positioned boxes.
	// Positioned layers and stacking contexts participate in z-order lists;
	// all other layers are normal-flow only.
	Positioned bool
	// Fixed is true for position:fixed boxes.
	Fixed bool
	// StackingContext is true when the layer establishes a z-order scope.
	StackingContext bool
	// ZIndex orders positioned layers within their stacking context.
	ZIndex int

	// Opacity in [0, 1]; values below 1 make the layer transparent.
	// The zero value is treated as fully opaque unless HasOpacity is set.
	Opacity    float64
	HasOpacity bool

	// Transform is the layer's 2D affine transform, nil when untransformed.
	Transform *graphics.Transform
	// Transform3D is true when the transform list has a 3D operation.
	Transform3D bool
	// Preserve3D is true for transform-style: preserve-3d.
	Preserve3D bool
	// Perspective is true when the layer sets a perspective.
	Perspective bool

	Mask           bool
	BackfaceHidden bool
	OverflowClip   bool

	Video             bool
	VideoAccelerated  bool
	Canvas3D          bool
	Plugin            bool
	PluginAccelerated bool

	AnimatingOpacity   bool
	AnimatingTransform bool

	// NotSelfPainting marks layers that exist only for bookkeeping and are
	// painted by an ancestor; such layers are never composited.
	NotSelfPainting bool
}

// HasTransform reports whether the layer has any transform.
func (s Style) HasTransform() bool {
	return s.Transform != nil || s.Transform3D || s.Preserve3D || s.Perspective
}

// IsTransparent reports whether the layer has opacity below 1.
func (s Style) IsTransparent() bool {
	return s.HasOpacity && s.Opacity < 1
}

// Has3DTransform reports whether the transform needs 3D rendering.
func (s Style) Has3DTransform() bool {
	return s.Transform3D || s.Preserve3D || s.Perspective
}
