package pip

import (
	"errors"
	"image"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/openmeet/pip/internal/core"
)

// Default logical canvas resolution; the platform window scales it.
const (
	DefaultWidth  = 1280
	DefaultHeight = 720
	DefaultFPS    = 24
)

var (
	ErrSurfaceNotReady = errors.New("compositing surface not allocated")
	ErrStreamBusy      = errors.New("previous capture stream still live")
)

// Surface owns the offscreen compositing canvas and its capture fan-out.
// It is allocated lazily on first enter and reused across sessions; only
// the capture stream is per-session.
type Surface struct {
	width  int
	height int

	mu     sync.Mutex
	canvas *image.RGBA
	stream *captureStream
}

func NewSurface(width, height int) *Surface {
	if width <= 0 || height <= 0 {
		width, height = DefaultWidth, DefaultHeight
	}
	return &Surface{width: width, height: height}
}

// Ensure allocates the canvas on first call and is a no-op thereafter.
func (s *Surface) Ensure() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.canvas != nil {
		return
	}
	s.canvas = image.NewRGBA(image.Rect(0, 0, s.width, s.height))
	log.Info().
		Str("module", "pip.surface").
		Int("width", s.width).
		Int("height", s.height).
		Msg("canvas allocated")
}

// Allocated reports whether Ensure has run.
func (s *Surface) Allocated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canvas != nil
}

// Canvas returns the drawing target. Only the render loop paints on it.
func (s *Surface) Canvas() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canvas
}

// CaptureStream wraps the canvas as a live stream at the given frame rate.
// At most one live stream exists at a time: the previous session's stream
// must be fully stopped before the sink is reused, else stale frames leak.
func (s *Surface) CaptureStream(fps int) (core.MediaStream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.canvas == nil {
		return nil, ErrSurfaceNotReady
	}
	if s.stream != nil && !s.stream.track.stopped() {
		return nil, ErrStreamBusy
	}
	s.stream = newCaptureStream(fps)
	return s.stream, nil
}

// publish hands the frame just painted to the live stream, if any.
// Called by the render loop after each tick; the frame is copied so
// consumers never observe a half-painted canvas.
func (s *Surface) publish() {
	s.mu.Lock()
	stream := s.stream
	canvas := s.canvas
	s.mu.Unlock()
	if stream == nil || canvas == nil || stream.track.stopped() {
		return
	}
	stream.track.push(cloneFrame(canvas))
}

func cloneFrame(src *image.RGBA) *image.RGBA {
	dst := image.NewRGBA(src.Bounds())
	copy(dst.Pix, src.Pix)
	return dst
}

// captureStream is the single-track stream produced by CaptureStream.
type captureStream struct {
	track *captureTrack
}

func newCaptureStream(fps int) *captureStream {
	if fps <= 0 {
		fps = DefaultFPS
	}
	return &captureStream{track: &captureTrack{
		fps:  fps,
		subs: make(map[int]func(image.Image)),
	}}
}

func (s *captureStream) Tracks() []core.MediaTrack {
	return []core.MediaTrack{s.track}
}

type captureTrack struct {
	fps int

	mu     sync.Mutex
	ended  bool
	subs   map[int]func(image.Image)
	nextID int
}

func (t *captureTrack) FPS() int { return t.fps }

func (t *captureTrack) OnFrame(fn func(image.Image)) core.Unsubscribe {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ended {
		return func() {}
	}
	id := t.nextID
	t.nextID++
	t.subs[id] = fn
	return func() {
		t.mu.Lock()
		delete(t.subs, id)
		t.mu.Unlock()
	}
}

func (t *captureTrack) Stop() {
	t.mu.Lock()
	if t.ended {
		t.mu.Unlock()
		return
	}
	t.ended = true
	t.subs = make(map[int]func(image.Image))
	t.mu.Unlock()
	log.Debug().Str("module", "pip.surface").Msg("capture track stopped")
}

func (t *captureTrack) stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ended
}

func (t *captureTrack) push(frame image.Image) {
	t.mu.Lock()
	fns := make([]func(image.Image), 0, len(t.subs))
	for _, fn := range t.subs {
		fns = append(fns, fn)
	}
	t.mu.Unlock()
	for _, fn := range fns {
		fn(frame)
	}
}
