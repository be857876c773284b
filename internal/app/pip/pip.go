// Package pip projects the conference's focal video (or an avatar
// fallback) onto an OS-level floating window, keeps the window's transport
// controls synchronized with conference state, and automatically enters
// and exits as the hosting tab's visibility changes.
package pip

import (
	"context"
	"sync"
	"time"

	"github.com/openmeet/pip/internal/core"
)

// Options tune the engine. Zero values fall back to defaults.
type Options struct {
	Width     int
	Height    int
	FPS       int
	Debounce  time.Duration
	AutoEnter bool
}

// Engine bundles the session controller with its visibility automation,
// giving the host a single object to wire at application start.
type Engine struct {
	ctrl   *Controller
	vis    core.VisibilitySource
	reader core.StateReader
	opts   Options

	mu      sync.Mutex
	cleanup func()
}

func NewEngine(deps Deps, vis core.VisibilitySource, opts Options) *Engine {
	return &Engine{
		ctrl:   NewController(deps, opts),
		vis:    vis,
		reader: deps.Reader,
		opts:   opts,
	}
}

// Controller exposes the session controller for direct (user-triggered)
// enter/exit/toggle calls.
func (e *Engine) Controller() *Controller { return e.ctrl }

func (e *Engine) Supported() bool { return e.ctrl.Supported() }
func (e *Engine) Active() bool    { return e.ctrl.Active() }

// SyncControls re-publishes mic/camera icon state to the active session.
func (e *Engine) SyncControls() { e.ctrl.SyncControls() }

// OnConferenceJoined starts a fresh visibility automation for the
// conference's lifetime. Idempotent while a conference is joined.
func (e *Engine) OnConferenceJoined() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cleanup != nil {
		return
	}
	automation := NewAutomation(e.ctrl, e.vis, e.reader, e.opts)
	e.cleanup = automation.Start()
}

// OnConferenceLeft stops the automation and exits any live session.
func (e *Engine) OnConferenceLeft(ctx context.Context) error {
	e.mu.Lock()
	cleanup := e.cleanup
	e.cleanup = nil
	e.mu.Unlock()
	if cleanup != nil {
		cleanup()
	}
	return e.ctrl.CleanupOnConferenceLeave(ctx)
}
