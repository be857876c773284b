package core

import "github.com/openmeet/pip/internal/domain"

// FocalView is a read-only snapshot of the participant currently on the
// conference stage.
type FocalView struct {
	Participant domain.Participant
	// Source is nil when the participant has no video track.
	Source     VideoSource
	VideoMuted bool
}

// GetState returns the current focal participant, if any. It is read-only
// and may be called from any render tick without synchronization.
type GetState func() (FocalView, bool)

// StateReader is the read-only conference state boundary consumed by the
// pip engine. The conference itself lives outside this subsystem.
type StateReader interface {
	FocalParticipant() (FocalView, bool)
	LocalMuted(media domain.MediaType) bool
	AudioTrack(id domain.ParticipantID) (AudioLevelTrack, bool)
	InConference() bool
}

// Dispatcher is the conference action boundary. Dispatches are
// fire-and-forget from this subsystem's perspective.
type Dispatcher interface {
	MuteLocal(media domain.MediaType, muted bool)
	LeaveConference()
}
