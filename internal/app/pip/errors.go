package pip

import (
	"errors"

	"github.com/openmeet/pip/internal/core"
)

// ErrBusy is returned when an enter is requested while a previous session
// is still mid-exit. Callers may simply retry; transitions are short.
var ErrBusy = errors.New("picture-in-picture session is mid-transition")

var errInvalidColor = errors.New("invalid hex color")

// expectedEntryError reports whether err is a normal consequence of
// automation-triggered entry (no user gesture, playback interrupted by a
// tab-switch storm) rather than a platform failure worth a warning.
func expectedEntryError(err error) bool {
	return errors.Is(err, core.ErrUserGestureRequired) ||
		errors.Is(err, core.ErrPlaybackAborted)
}
