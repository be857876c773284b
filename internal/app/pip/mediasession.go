package pip

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/openmeet/pip/internal/core"
	"github.com/openmeet/pip/internal/domain"
)

// defaultWindowTitle is shown when no focal participant is available.
const defaultWindowTitle = "Video Conference"

// mediaSessionBridge publishes window metadata and wires the transport
// controls (camera, microphone, hangup) to conference actions. Platform
// call failures are logged and swallowed: a missing control surface is a
// normal condition.
type mediaSessionBridge struct {
	session    core.MediaSession
	reader     core.StateReader
	dispatcher core.Dispatcher

	mu     sync.Mutex
	active bool
}

func newMediaSessionBridge(session core.MediaSession, reader core.StateReader, dispatcher core.Dispatcher) *mediaSessionBridge {
	return &mediaSessionBridge{session: session, reader: reader, dispatcher: dispatcher}
}

// Activate publishes metadata, registers the three action handlers and
// reports the initial mic/camera state so the window icons are correct
// before the first toggle. onHangup runs after the leave dispatch.
func (br *mediaSessionBridge) Activate(getState core.GetState, onHangup func()) {
	if br.session == nil {
		return
	}

	title := defaultWindowTitle
	if view, ok := getState(); ok && view.Participant.Name != "" {
		title = view.Participant.Name
	}
	if err := br.session.SetMetadata(title); err != nil {
		log.Warn().Err(err).Str("module", "pip.session").Msg("set metadata failed")
	}

	br.session.OnToggleCamera(func() {
		muted := br.reader.LocalMuted(domain.MediaVideo)
		br.dispatcher.MuteLocal(domain.MediaVideo, !muted)
		if err := br.session.SetCameraActive(muted); err != nil {
			log.Warn().Err(err).Str("module", "pip.session").Msg("set camera state failed")
		}
	})
	br.session.OnToggleMicrophone(func() {
		muted := br.reader.LocalMuted(domain.MediaAudio)
		br.dispatcher.MuteLocal(domain.MediaAudio, !muted)
		if err := br.session.SetMicrophoneActive(muted); err != nil {
			log.Warn().Err(err).Str("module", "pip.session").Msg("set microphone state failed")
		}
	})
	br.session.OnHangup(func() {
		log.Info().Str("module", "pip.session").Msg("hangup from window controls")
		br.dispatcher.LeaveConference()
		onHangup()
	})

	br.mu.Lock()
	br.active = true
	br.mu.Unlock()

	br.Sync()
}

// Sync re-publishes the mic/camera icon state from conference state.
// No-op when the bridge is not active.
func (br *mediaSessionBridge) Sync() {
	br.mu.Lock()
	active := br.active
	br.mu.Unlock()
	if !active || br.session == nil {
		return
	}
	if err := br.session.SetMicrophoneActive(!br.reader.LocalMuted(domain.MediaAudio)); err != nil {
		log.Warn().Err(err).Str("module", "pip.session").Msg("sync microphone state failed")
	}
	if err := br.session.SetCameraActive(!br.reader.LocalMuted(domain.MediaVideo)); err != nil {
		log.Warn().Err(err).Str("module", "pip.session").Msg("sync camera state failed")
	}
}

// Deactivate clears metadata and unregisters all handlers. Must run on
// every exit path; stale handlers would point at a torn-down session.
func (br *mediaSessionBridge) Deactivate() {
	br.mu.Lock()
	if !br.active {
		br.mu.Unlock()
		return
	}
	br.active = false
	br.mu.Unlock()
	if br.session == nil {
		return
	}
	if err := br.session.Clear(); err != nil {
		log.Warn().Err(err).Str("module", "pip.session").Msg("clear media session failed")
	}
}

func (br *mediaSessionBridge) Active() bool {
	br.mu.Lock()
	defer br.mu.Unlock()
	return br.active
}
