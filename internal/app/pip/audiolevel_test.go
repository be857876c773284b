package pip

import (
	"math"
	"testing"

	"github.com/openmeet/pip/internal/core"
	"github.com/openmeet/pip/internal/domain"
)

func levelBinderFixture() (*audioLevelBinder, map[domain.ParticipantID]*fakeLevelTrack) {
	tracks := map[domain.ParticipantID]*fakeLevelTrack{
		"a": {},
		"b": {},
	}
	binder := newAudioLevelBinder(func(id domain.ParticipantID) (core.AudioLevelTrack, bool) {
		track, ok := tracks[id]
		return track, ok
	})
	return binder, tracks
}

func TestBinderScalesAndClampsLevel(t *testing.T) {
	t.Parallel()
	binder, tracks := levelBinderFixture()
	binder.Bind("a")

	cases := []struct {
		in   float64
		want float64
	}{
		{0, 0},
		{0.5, 0.6},
		{0.9, 1},   // 1.08 clamps to 1
		{1.0, 1},
	}
	for _, tc := range cases {
		tracks["a"].emit(tc.in)
		if got := binder.Level(); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("Level() after emit(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestBinderIgnoresInvalidLevels(t *testing.T) {
	t.Parallel()
	binder, tracks := levelBinderFixture()
	binder.Bind("a")

	tracks["a"].emit(0.5)
	tracks["a"].emit(math.NaN())
	tracks["a"].emit(-0.2)
	if got := binder.Level(); math.Abs(got-0.6) > 1e-9 {
		t.Errorf("Level() = %v, want 0.6 (invalid emits ignored)", got)
	}
}

func TestBinderRebindDetachesPrevious(t *testing.T) {
	t.Parallel()
	binder, tracks := levelBinderFixture()

	binder.Bind("a")
	binder.Bind("b")

	bindsA, unbindsA := tracks["a"].counts()
	if bindsA != 1 || unbindsA != 1 {
		t.Errorf("track a binds/unbinds = %d/%d, want 1/1", bindsA, unbindsA)
	}

	// The stale track no longer moves the level.
	tracks["a"].emit(0.8)
	if got := binder.Level(); got != 0 {
		t.Errorf("Level() = %v after stale emit, want 0", got)
	}
	tracks["b"].emit(0.5)
	if got := binder.Level(); math.Abs(got-0.6) > 1e-9 {
		t.Errorf("Level() = %v from live track, want 0.6", got)
	}
}

func TestBinderUnknownParticipantStaysDetached(t *testing.T) {
	t.Parallel()
	binder, tracks := levelBinderFixture()
	binder.Bind("a")
	tracks["a"].emit(1)

	binder.Bind("missing")
	if got := binder.Level(); got != 0 {
		t.Errorf("Level() = %v after binding trackless participant, want 0", got)
	}
	_, unbindsA := tracks["a"].counts()
	if unbindsA != 1 {
		t.Errorf("previous track unbinds = %d, want 1", unbindsA)
	}
}

func TestBinderUnbindResetsAndIsIdempotent(t *testing.T) {
	t.Parallel()
	binder, tracks := levelBinderFixture()
	binder.Bind("a")
	tracks["a"].emit(1)

	binder.Unbind()
	binder.Unbind()

	if got := binder.Level(); got != 0 {
		t.Errorf("Level() = %v after unbind, want 0", got)
	}
	binds, unbinds := tracks["a"].counts()
	if binds != unbinds {
		t.Errorf("binds = %d, unbinds = %d; session must leave no net subscription", binds, unbinds)
	}
}
