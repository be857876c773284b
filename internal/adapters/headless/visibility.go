package headless

import (
	"sync"

	"github.com/openmeet/pip/internal/core"
)

// Visibility simulates the tab-visibility signal.
type Visibility struct {
	mu     sync.Mutex
	hidden bool
	subs   map[int]func()
	nextID int
}

func NewVisibility() *Visibility {
	return &Visibility{subs: make(map[int]func())}
}

func (v *Visibility) Hidden() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.hidden
}

func (v *Visibility) OnChange(fn func()) core.Unsubscribe {
	v.mu.Lock()
	id := v.nextID
	v.nextID++
	v.subs[id] = fn
	v.mu.Unlock()
	return func() {
		v.mu.Lock()
		delete(v.subs, id)
		v.mu.Unlock()
	}
}

// SetHidden flips the visibility state and notifies subscribers. Each
// call counts as one visibility signal, even when the value is unchanged
// (browsers fire spurious events too).
func (v *Visibility) SetHidden(hidden bool) {
	v.mu.Lock()
	v.hidden = hidden
	fns := make([]func(), 0, len(v.subs))
	for _, fn := range v.subs {
		fns = append(fns, fn)
	}
	v.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}
