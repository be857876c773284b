// Package rtc adapts pion WebRTC tracks to the pip engine's audio-level
// boundary. The engine itself never touches the media pipeline; it only
// consumes level-change events.
package rtc

import (
	"context"
	"math"
	"sync"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/openmeet/pip/internal/core"
)

// audioLevelURI is the RFC 6464 client-to-mixer audio level extension.
const audioLevelURI = "urn:ietf:params:rtp-hdrext:ssrc-audio-level"

// LevelTrack reads RTP packets from a remote audio track, decodes the
// ssrc-audio-level header extension and fans the resulting [0,1] levels
// out to subscribers.
type LevelTrack struct {
	track *webrtc.TrackRemote
	extID uint8

	mu     sync.Mutex
	subs   map[int]func(float64)
	nextID int
	cancel context.CancelFunc
}

// NewLevelTrack starts the read loop for the given remote track. The
// receiver's negotiated parameters locate the extension id; a track
// negotiated without the extension yields no level events.
func NewLevelTrack(ctx context.Context, track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) *LevelTrack {
	t := &LevelTrack{
		track: track,
		extID: levelExtensionID(receiver),
		subs:  make(map[int]func(float64)),
	}

	logger := log.With().
		Str("module", "rtc.level").
		Str("track_id", track.ID()).
		Logger()

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	go t.loop(ctx, &logger)
	return t
}

func levelExtensionID(receiver *webrtc.RTPReceiver) uint8 {
	if receiver == nil {
		return 0
	}
	for _, ext := range receiver.GetParameters().HeaderExtensions {
		if ext.URI == audioLevelURI {
			return uint8(ext.ID)
		}
	}
	return 0
}

// loop reads RTP packets until the context is cancelled or the track ends.
func (t *LevelTrack) loop(ctx context.Context, logger *zerolog.Logger) {
	if t.extID == 0 {
		logger.Info().Msg("no audio-level extension negotiated")
		return
	}
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("level loop ctx done")
			return
		default:
		}
		pkt, _, err := t.track.ReadRTP()
		if err != nil {
			logger.Info().Err(err).Msg("level loop read error, stopping")
			return
		}
		t.handlePacket(pkt)
	}
}

func (t *LevelTrack) handlePacket(pkt *rtp.Packet) {
	payload := pkt.GetExtension(t.extID)
	if payload == nil {
		return
	}
	var ext rtp.AudioLevelExtension
	if err := ext.Unmarshal(payload); err != nil {
		return
	}
	level := dbovToLinear(ext.Level)

	t.mu.Lock()
	fns := make([]func(float64), 0, len(t.subs))
	for _, fn := range t.subs {
		fns = append(fns, fn)
	}
	t.mu.Unlock()
	for _, fn := range fns {
		fn(level)
	}
}

// OnLevel implements core.AudioLevelTrack.
func (t *LevelTrack) OnLevel(fn func(float64)) core.Unsubscribe {
	t.mu.Lock()
	id := t.nextID
	t.nextID++
	t.subs[id] = fn
	t.mu.Unlock()
	return func() {
		t.mu.Lock()
		delete(t.subs, id)
		t.mu.Unlock()
	}
}

// Close stops the read loop.
func (t *LevelTrack) Close() {
	if t.cancel != nil {
		t.cancel()
	}
}

var _ core.AudioLevelTrack = (*LevelTrack)(nil)

// dbovToLinear converts an RFC 6464 level (0..127 dB below overload, 127
// meaning digital silence) to linear amplitude in [0,1].
func dbovToLinear(level uint8) float64 {
	if level >= 127 {
		return 0
	}
	return math.Pow(10, -float64(level)/20)
}
