package compositing

import "time"

// Settings are the page-level switches the compositor reads. They are
// cached by ApplySettings; a change that affects layer configuration
// schedules a full rebuild.
type Settings struct {
	// AcceleratedCompositing enables hardware layers at all. When false no
	// layer is ever composited and compositing mode is left after the next
	// update.
	AcceleratedCompositing bool
	// ShowDebugBorders draws borders around every graphics layer.
	ShowDebugBorders bool
	// ShowRepaintCounter overlays repaint counts on graphics layers.
	ShowRepaintCounter bool

	// MobileSiteHeuristics replaces the video/canvas/plugin checks with
	// the mobile-page rules (transforms, animations, fixed layers on
	// non-scalable device-width pages).
	MobileSiteHeuristics bool
	// ViewportWidth is the page's declared viewport width: -1 undefined,
	// 0 device-width, otherwise pixels.
	ViewportWidth int
	// ViewportUserScalable reports whether the user may zoom the page.
	ViewportUserScalable bool
	// Subframe is true when the document is hosted in a parent frame.
	Subframe bool

	// CompositeFixedSiblings composites every layer painted after a
	// fixed-position sibling in the same stacking context.
	CompositeFixedSiblings bool

	// SlowUpdateThreshold marks updates slower than this in the trace.
	SlowUpdateThreshold time.Duration
}

// DefaultSettings returns desktop defaults with accelerated compositing on.
func DefaultSettings() Settings {
	return Settings{
		AcceleratedCompositing: true,
		ViewportWidth:          -1,
		ViewportUserScalable:   true,
		SlowUpdateThreshold:    defaultSlowUpdateThreshold,
	}
}
