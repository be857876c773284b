package pip

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/openmeet/pip/internal/core"
)

// DefaultDebounce collapses bursts of visibility events into one decision
// per window.
const DefaultDebounce = 100 * time.Millisecond

// Toggler is the slice of the session controller the automation drives.
type Toggler interface {
	Active() bool
	Toggle(ctx context.Context) error
}

// Automation keeps the session entered while the hosting tab is hidden and
// a conference is joined, exited while visible, without ever racing
// itself. It lives from conference join to conference leave.
type Automation struct {
	ctrl     Toggler
	vis      core.VisibilitySource
	reader   core.StateReader
	enabled  bool
	debounce time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	pending chan struct{}
	unsub   core.Unsubscribe
	closed  bool
}

func NewAutomation(ctrl Toggler, vis core.VisibilitySource, reader core.StateReader, opts Options) *Automation {
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Automation{
		ctrl:     ctrl,
		vis:      vis,
		reader:   reader,
		enabled:  opts.AutoEnter,
		debounce: debounce,
	}
}

// Start subscribes to visibility changes and returns the cleanup closure
// the caller must invoke on conference leave.
func (a *Automation) Start() func() {
	a.mu.Lock()
	if !a.closed && a.unsub == nil {
		a.unsub = a.vis.OnChange(a.onVisibilityChange)
	}
	a.mu.Unlock()
	log.Info().Str("module", "pip.automation").Bool("enabled", a.enabled).Msg("visibility automation started")
	return a.Cleanup
}

func (a *Automation) onVisibilityChange() {
	if !a.enabled || !a.reader.InConference() {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	// Restart the debounce window on every signal; only the eventual fire
	// evaluates state.
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = time.AfterFunc(a.debounce, a.evaluate)
}

// evaluate compares the tab state against the controller's actual session
// state. The platform is the source of truth; cached conference state can
// drift.
func (a *Automation) evaluate() {
	hidden := a.vis.Hidden()
	active := a.ctrl.Active()
	switch {
	case hidden && !active:
		a.scheduleToggle()
	case !hidden && active:
		a.scheduleToggle()
	}
}

// scheduleToggle serializes toggles through a single in-flight slot: a new
// request first waits out the previous one, swallowing its outcome, then
// occupies the slot itself. At most one enter/exit is in flight at any
// time system-wide.
func (a *Automation) scheduleToggle() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	prev := a.pending
	done := make(chan struct{})
	a.pending = done
	a.mu.Unlock()

	go func() {
		defer func() {
			close(done)
			a.mu.Lock()
			if a.pending == done {
				a.pending = nil
			}
			a.mu.Unlock()
		}()

		if prev != nil {
			<-prev
		}
		if err := a.ctrl.Toggle(context.Background()); err != nil && !expectedEntryError(err) {
			// Nobody is waiting on an automation toggle; log and degrade
			// to staying in the tab.
			log.Warn().Err(err).Str("module", "pip.automation").Msg("visibility toggle failed")
		}
	}()
}

// Cleanup clears any live debounce timer, removes the visibility
// subscription and waits for an in-flight toggle to settle.
func (a *Automation) Cleanup() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	unsub := a.unsub
	a.unsub = nil
	pending := a.pending
	a.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	if pending != nil {
		<-pending
	}
	log.Info().Str("module", "pip.automation").Msg("visibility automation stopped")
}
