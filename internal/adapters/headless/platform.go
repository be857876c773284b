// Package headless provides in-process implementations of the platform
// boundaries: a PiP window, a playback sink, a media-session control
// surface and a visibility source. The demo host runs on it, and package
// tests reuse it as a deterministic platform double.
package headless

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/openmeet/pip/internal/core"
)

// Platform simulates the OS picture-in-picture capability.
type Platform struct {
	mu             sync.Mutex
	supported      bool
	open           bool
	requireGesture bool
	requestErr     error
	subs           map[int]func()
	nextID         int
}

func NewPlatform() *Platform {
	return &Platform{supported: true, subs: make(map[int]func())}
}

// SetSupported toggles the advertised capability.
func (p *Platform) SetSupported(supported bool) {
	p.mu.Lock()
	p.supported = supported
	p.mu.Unlock()
}

// SetRequireGesture makes RequestWindow fail with ErrUserGestureRequired,
// mimicking platforms that refuse non-interactive entry.
func (p *Platform) SetRequireGesture(require bool) {
	p.mu.Lock()
	p.requireGesture = require
	p.mu.Unlock()
}

// FailNextRequest injects an error into the next RequestWindow call.
func (p *Platform) FailNextRequest(err error) {
	p.mu.Lock()
	p.requestErr = err
	p.mu.Unlock()
}

func (p *Platform) Supported() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.supported
}

func (p *Platform) RequestWindow(ctx context.Context, sink core.VideoSink) error {
	p.mu.Lock()
	if !p.supported {
		p.mu.Unlock()
		return core.ErrUnsupported
	}
	if p.requireGesture {
		p.mu.Unlock()
		return core.ErrUserGestureRequired
	}
	if err := p.requestErr; err != nil {
		p.requestErr = nil
		p.mu.Unlock()
		return err
	}
	p.open = true
	p.mu.Unlock()
	log.Info().Str("module", "headless.platform").Msg("window opened")
	return nil
}

func (p *Platform) CloseWindow(ctx context.Context) error {
	p.mu.Lock()
	wasOpen := p.open
	p.open = false
	p.mu.Unlock()
	if wasOpen {
		log.Info().Str("module", "headless.platform").Msg("window closed")
	}
	return nil
}

func (p *Platform) WindowOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.open
}

func (p *Platform) OnWindowClosed(fn func()) core.Unsubscribe {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.subs[id] = fn
	p.mu.Unlock()
	return func() {
		p.mu.Lock()
		delete(p.subs, id)
		p.mu.Unlock()
	}
}

// SimulateUserClose closes the window the way a user would, firing the
// closed event to subscribers.
func (p *Platform) SimulateUserClose() {
	p.mu.Lock()
	if !p.open {
		p.mu.Unlock()
		return
	}
	p.open = false
	fns := make([]func(), 0, len(p.subs))
	for _, fn := range p.subs {
		fns = append(fns, fn)
	}
	p.mu.Unlock()
	log.Info().Str("module", "headless.platform").Msg("window closed by user")
	for _, fn := range fns {
		fn()
	}
}
