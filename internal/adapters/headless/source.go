package headless

import (
	"image"
	"sync"
)

// FrameSource is a settable video source. The demo host feeds it synthetic
// frames; tests use it to model a participant camera that becomes
// decodable (or not).
type FrameSource struct {
	mu    sync.Mutex
	frame image.Image
}

func NewFrameSource() *FrameSource {
	return &FrameSource{}
}

func (f *FrameSource) SetFrame(frame image.Image) {
	f.mu.Lock()
	f.frame = frame
	f.mu.Unlock()
}

// Frame implements core.VideoSource. Nil until a frame is set.
func (f *FrameSource) Frame() image.Image {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.frame
}
