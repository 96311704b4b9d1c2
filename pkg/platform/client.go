package platform

import (
	"github.com/go-drift/compositor/pkg/graphics"
)

// Client is the platform side of the compositor. Every call is a
// fire-and-forget notification; none of them may call back into the
// compositor synchronously.
type Client interface {
	// ScheduleCompositingLayerSync asks the platform to commit the graphics
	// layer tree at its next opportunity.
	ScheduleCompositingLayerSync()
	// AttachRootGraphicsLayer mounts root in the frame's view hierarchy, or
	// unmounts the current root when root is nil.
	AttachRootGraphicsLayer(frame string, root *graphics.Layer)
	// RepaintViewRect invalidates a region of the software-painted view in
	// document coordinates.
	RepaintViewRect(rect graphics.Rect)
	// SetNeedsOneShotDrawingSynchronization asks the window system to
	// present the next software paint and layer commit together.
	SetNeedsOneShotDrawingSynchronization()
}

// NoopClient accepts all calls without side effects.
type NoopClient struct{}

func (NoopClient) ScheduleCompositingLayerSync()                    {}
func (NoopClient) AttachRootGraphicsLayer(string, *graphics.Layer) {}
func (NoopClient) RepaintViewRect(graphics.Rect)                    {}
func (NoopClient) SetNeedsOneShotDrawingSynchronization()           {}
