package pip

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/openmeet/pip/internal/core"
)

type sessionState int

const (
	stateIdle sessionState = iota
	stateEntering
	stateActive
	stateExiting
)

// Deps are the collaborators a Controller drives. All are owned by their
// adapters; the controller only borrows them for the session lifetime.
type Deps struct {
	Platform   core.Platform
	Sink       core.VideoSink
	Session    core.MediaSession
	Reader     core.StateReader
	Dispatcher core.Dispatcher
}

// Controller owns the picture-in-picture session lifecycle. Every enter
// and exit path funnels through it, and it is the only writer of session
// state. Construct one at application start and pass it by reference; the
// "exactly one active session" invariant follows from that.
type Controller struct {
	platform core.Platform
	sink     core.VideoSink
	reader   core.StateReader
	fps      int

	surface *Surface
	binder  *audioLevelBinder
	bridge  *mediaSessionBridge

	mu          sync.Mutex
	state       sessionState
	abortEntry  bool
	loop        *renderLoop
	stream      core.MediaStream
	unsubClosed core.Unsubscribe
}

func NewController(deps Deps, opts Options) *Controller {
	fps := opts.FPS
	if fps <= 0 {
		fps = DefaultFPS
	}
	c := &Controller{
		platform: deps.Platform,
		sink:     deps.Sink,
		reader:   deps.Reader,
		fps:      fps,
		surface:  NewSurface(opts.Width, opts.Height),
	}
	c.binder = newAudioLevelBinder(deps.Reader.AudioTrack)
	c.bridge = newMediaSessionBridge(deps.Session, deps.Reader, deps.Dispatcher)
	return c
}

// Supported reports whether the platform exposes a PiP capability.
func (c *Controller) Supported() bool {
	return c.platform != nil && c.platform.Supported()
}

// Active reports whether a session is live. Side-effect free.
func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == stateActive
}

// Enter starts a session: allocates the surface, starts the render loop,
// captures the stream into the sink, requests the platform window and
// activates the control bridge. No-op when already active or entering.
// Any failure after the loop starts unwinds completely before the error
// is returned: callers never observe a half-entered session.
func (c *Controller) Enter(ctx context.Context) error {
	if !c.Supported() {
		return core.ErrUnsupported
	}

	c.mu.Lock()
	switch c.state {
	case stateActive, stateEntering:
		c.mu.Unlock()
		return nil
	case stateExiting:
		c.mu.Unlock()
		return ErrBusy
	}
	c.state = stateEntering
	c.abortEntry = false
	c.mu.Unlock()

	err := c.enter(ctx)
	if err != nil && !expectedEntryError(err) {
		log.Warn().Err(err).Str("module", "pip.controller").Msg("enter failed")
	}
	return err
}

func (c *Controller) enter(ctx context.Context) (err error) {
	c.surface.Ensure()

	loop := newRenderLoop(c.surface, c.binder, c.getState, c.fps)
	loop.start()

	var (
		stream core.MediaStream
		unsub  core.Unsubscribe
	)
	defer func() {
		if err != nil {
			c.teardown(ctx, loop, stream, unsub)
			c.setState(stateIdle)
		}
	}()

	stream, err = c.surface.CaptureStream(c.fps)
	if err != nil {
		return err
	}
	c.sink.SetStream(stream)
	if err = c.sink.Play(ctx); err != nil {
		return err
	}
	if err = c.platform.RequestWindow(ctx, c.sink); err != nil {
		return err
	}

	c.bridge.Activate(c.getState, func() { c.exitAsync("hangup") })
	unsub = c.platform.OnWindowClosed(func() { c.exitAsync("window closed by user") })

	c.mu.Lock()
	if c.abortEntry {
		// Exit was requested while the platform request was pending. The
		// session auto-closes rather than lingering as an orphan window.
		c.abortEntry = false
		c.state = stateExiting
		c.mu.Unlock()
		log.Info().Str("module", "pip.controller").Msg("entry aborted by exit request")
		c.teardown(ctx, loop, stream, unsub)
		c.setState(stateIdle)
		return nil
	}
	c.loop = loop
	c.stream = stream
	c.unsubClosed = unsub
	c.state = stateActive
	c.mu.Unlock()

	log.Info().Str("module", "pip.controller").Msg("session active")
	return nil
}

// Exit tears the session down. The state flip happens first, under the
// lock, so concurrent exit calls are no-ops; the actual teardown then runs
// every step regardless of individual failures. Errors are logged, never
// returned: exit must be unconditionally completable.
func (c *Controller) Exit(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case stateEntering:
		// The entry's platform request is still pending; flag it so the
		// entering path tears itself down when it completes.
		c.abortEntry = true
		c.mu.Unlock()
		log.Info().Str("module", "pip.controller").Msg("exit requested mid-entry")
		return nil
	case stateActive:
	default:
		c.mu.Unlock()
		return nil
	}
	c.state = stateExiting
	loop, stream, unsub := c.loop, c.stream, c.unsubClosed
	c.loop, c.stream, c.unsubClosed = nil, nil, nil
	c.mu.Unlock()

	c.teardown(ctx, loop, stream, unsub)
	c.setState(stateIdle)
	log.Info().Str("module", "pip.controller").Msg("session exited")
	return nil
}

// Toggle exits when active, enters otherwise.
func (c *Controller) Toggle(ctx context.Context) error {
	if c.Active() {
		return c.Exit(ctx)
	}
	return c.Enter(ctx)
}

// SyncControls re-publishes the mic/camera icon state to the active
// session. Safe to call when inactive.
func (c *Controller) SyncControls() {
	c.bridge.Sync()
}

// CleanupOnConferenceLeave exits the session if one is live. Called when
// the conference ends, regardless of prior automation state.
func (c *Controller) CleanupOnConferenceLeave(ctx context.Context) error {
	if !c.Active() {
		return nil
	}
	return c.Exit(ctx)
}

// teardown releases session resources in reverse acquisition order:
// control bridge, render loop, closed-listener, platform window, capture
// stream, sink, audio binding. Every step runs even if an earlier one
// fails.
func (c *Controller) teardown(ctx context.Context, loop *renderLoop, stream core.MediaStream, unsub core.Unsubscribe) {
	c.bridge.Deactivate()
	if loop != nil {
		loop.halt()
	}
	if unsub != nil {
		unsub()
	}
	if c.platform.WindowOpen() {
		if err := c.platform.CloseWindow(ctx); err != nil {
			log.Warn().Err(err).Str("module", "pip.controller").Msg("close window failed")
		}
	}
	if stream != nil {
		for _, track := range stream.Tracks() {
			track.Stop()
		}
	}
	c.sink.Detach()
	c.binder.Unbind()
}

func (c *Controller) exitAsync(reason string) {
	log.Info().Str("module", "pip.controller").Str("reason", reason).Msg("exit triggered")
	go func() {
		if err := c.Exit(context.Background()); err != nil {
			log.Warn().Err(err).Str("module", "pip.controller").Msg("async exit failed")
		}
	}()
}

func (c *Controller) getState() (core.FocalView, bool) {
	return c.reader.FocalParticipant()
}

func (c *Controller) setState(s sessionState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}
