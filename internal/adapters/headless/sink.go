package headless

import (
	"context"
	"image"
	"sync"

	"github.com/openmeet/pip/internal/core"
)

// Sink is the hidden playback element. It consumes the capture stream's
// video track and retains the most recent frame for preview endpoints.
type Sink struct {
	mu         sync.Mutex
	stream     core.MediaStream
	playing    bool
	lastFrame  image.Image
	unsubFrame core.Unsubscribe
	playErr    error
}

func NewSink() *Sink {
	return &Sink{}
}

// FailNextPlay injects an error into the next Play call (e.g.
// core.ErrPlaybackAborted to mimic a tab-switch storm).
func (s *Sink) FailNextPlay(err error) {
	s.mu.Lock()
	s.playErr = err
	s.mu.Unlock()
}

func (s *Sink) SetStream(stream core.MediaStream) {
	s.mu.Lock()
	s.stream = stream
	s.mu.Unlock()
}

func (s *Sink) Play(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.playErr; err != nil {
		s.playErr = nil
		return err
	}
	if s.stream == nil {
		return core.ErrPlaybackAborted
	}
	for _, track := range s.stream.Tracks() {
		video, ok := track.(core.VideoTrack)
		if !ok {
			continue
		}
		s.unsubFrame = video.OnFrame(func(frame image.Image) {
			s.mu.Lock()
			s.lastFrame = frame
			s.mu.Unlock()
		})
		break
	}
	s.playing = true
	return nil
}

func (s *Sink) Detach() {
	s.mu.Lock()
	unsub := s.unsubFrame
	s.unsubFrame = nil
	s.stream = nil
	s.playing = false
	s.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

func (s *Sink) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

// LastFrame returns the most recently played frame, or nil.
func (s *Sink) LastFrame() image.Image {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastFrame
}
