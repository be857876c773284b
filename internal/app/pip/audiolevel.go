package pip

import (
	"math"
	"sync"

	"github.com/openmeet/pip/internal/core"
	"github.com/openmeet/pip/internal/domain"
)

// audioLevelBinder keeps the pulse level current for whichever participant
// is focal. At most one binding is live; Bind always detaches the previous
// one first, and every Bind is eventually matched by exactly one Unbind
// (on rebind or session exit).
type audioLevelBinder struct {
	lookup func(domain.ParticipantID) (core.AudioLevelTrack, bool)

	mu    sync.Mutex
	unsub core.Unsubscribe
	level float64
}

func newAudioLevelBinder(lookup func(domain.ParticipantID) (core.AudioLevelTrack, bool)) *audioLevelBinder {
	return &audioLevelBinder{lookup: lookup}
}

// Bind subscribes to the participant's audio level events. When the
// participant has no audio track the binder stays detached and the level
// decays to zero.
func (b *audioLevelBinder) Bind(id domain.ParticipantID) {
	b.Unbind()
	track, ok := b.lookup(id)
	if !ok {
		return
	}
	unsub := track.OnLevel(func(level float64) {
		if math.IsNaN(level) || level < 0 {
			return
		}
		// Sensitivity scale matches the stage level indicator.
		scaled := math.Min(level*1.2, 1)
		b.mu.Lock()
		b.level = scaled
		b.mu.Unlock()
	})
	b.mu.Lock()
	b.unsub = unsub
	b.mu.Unlock()
}

// Unbind removes the subscription if present and resets the level.
// Safe to call when nothing is bound.
func (b *audioLevelBinder) Unbind() {
	b.mu.Lock()
	unsub := b.unsub
	b.unsub = nil
	b.level = 0
	b.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

func (b *audioLevelBinder) Level() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.level
}
