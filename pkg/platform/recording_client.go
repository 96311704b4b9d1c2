package platform

import (
	"sync"

	"github.com/go-drift/compositor/pkg/graphics"
)

// RecordingClient is a Client that remembers what it was asked to do.
// It backs the CLI output and tests.
//
// All methods are safe for concurrent use.
type RecordingClient struct {
	mu sync.Mutex

	syncRequests      int
	oneShotSyncs      int
	viewRepaints      []graphics.Rect
	attachedFrame     string
	attachedRoot      *graphics.Layer
	attachmentChanges int
}

// NewRecordingClient creates an empty recording client.
func NewRecordingClient() *RecordingClient {
	return &RecordingClient{}
}

// ScheduleCompositingLayerSync counts sync requests.
func (c *RecordingClient) ScheduleCompositingLayerSync() {
	c.mu.Lock()
	c.syncRequests++
	c.mu.Unlock()
}

// AttachRootGraphicsLayer records the mounted root.
func (c *RecordingClient) AttachRootGraphicsLayer(frame string, root *graphics.Layer) {
	c.mu.Lock()
	c.attachedFrame = frame
	c.attachedRoot = root
	c.attachmentChanges++
	c.mu.Unlock()
}

// RepaintViewRect records a software repaint.
func (c *RecordingClient) RepaintViewRect(rect graphics.Rect) {
	c.mu.Lock()
	c.viewRepaints = append(c.viewRepaints, rect)
	c.mu.Unlock()
}

// SetNeedsOneShotDrawingSynchronization counts one-shot sync requests.
func (c *RecordingClient) SetNeedsOneShotDrawingSynchronization() {
	c.mu.Lock()
	c.oneShotSyncs++
	c.mu.Unlock()
}

// AttachedRoot returns the currently mounted root layer and its frame.
func (c *RecordingClient) AttachedRoot() (string, *graphics.Layer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attachedFrame, c.attachedRoot
}

// AttachmentChanges returns how many times the root was (un)mounted.
func (c *RecordingClient) AttachmentChanges() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attachmentChanges
}

// SyncRequests returns the number of ScheduleCompositingLayerSync calls.
func (c *RecordingClient) SyncRequests() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.syncRequests
}

// OneShotSyncs returns the number of one-shot drawing sync requests.
func (c *RecordingClient) OneShotSyncs() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.oneShotSyncs
}

// ViewRepaints returns a copy of the recorded software repaints.
func (c *RecordingClient) ViewRepaints() []graphics.Rect {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]graphics.Rect, len(c.viewRepaints))
	copy(out, c.viewRepaints)
	return out
}

// Reset clears the recorded repaint and sync counters. The attachment state
// is kept.
func (c *RecordingClient) Reset() {
	c.mu.Lock()
	c.syncRequests = 0
	c.oneShotSyncs = 0
	c.viewRepaints = nil
	c.mu.Unlock()
}
