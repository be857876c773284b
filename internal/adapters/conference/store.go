// Package conference is an in-memory stand-in for the host application's
// conference state. It implements the read and dispatch boundaries the
// pip engine consumes, so the engine can be exercised without a real
// conference stack behind it.
package conference

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/openmeet/pip/internal/core"
	"github.com/openmeet/pip/internal/domain"
)

type participantEntry struct {
	meta       *domain.Participant
	source     core.VideoSource
	audio      core.AudioLevelTrack
	videoMuted bool
}

// Store is a threadsafe conference state holder. It owns the membership
// set but never touches session resources; the pip engine only reads it.
type Store struct {
	mu           sync.RWMutex
	joined       bool
	participants map[domain.ParticipantID]*participantEntry
	focal        domain.ParticipantID
	audioMuted   bool
	videoMuted   bool

	subs   map[int]func()
	nextID int
}

func NewStore() *Store {
	return &Store{
		participants: make(map[domain.ParticipantID]*participantEntry),
		subs:         make(map[int]func()),
	}
}

// Join marks the conference as joined.
func (s *Store) Join() {
	s.mu.Lock()
	s.joined = true
	s.mu.Unlock()
	log.Info().Str("module", "conference.store").Msg("conference joined")
	s.notify()
}

// Leave marks the conference as left and clears membership.
func (s *Store) Leave() {
	s.mu.Lock()
	s.joined = false
	s.participants = make(map[domain.ParticipantID]*participantEntry)
	s.focal = ""
	s.mu.Unlock()
	log.Info().Str("module", "conference.store").Msg("conference left")
	s.notify()
}

// AddParticipant registers a participant with optional video source and
// audio level track. The first participant becomes focal.
func (s *Store) AddParticipant(p *domain.Participant, source core.VideoSource, audio core.AudioLevelTrack) {
	s.mu.Lock()
	s.participants[p.ID] = &participantEntry{meta: p, source: source, audio: audio}
	if s.focal == "" {
		s.focal = p.ID
	}
	s.mu.Unlock()
	log.Info().
		Str("module", "conference.store").
		Str("participant", string(p.ID)).
		Str("name", p.Name).
		Msg("participant added")
	s.notify()
}

func (s *Store) RemoveParticipant(id domain.ParticipantID) {
	s.mu.Lock()
	delete(s.participants, id)
	if s.focal == id {
		s.focal = ""
		for pid := range s.participants {
			s.focal = pid
			break
		}
	}
	s.mu.Unlock()
	log.Info().Str("module", "conference.store").Str("participant", string(id)).Msg("participant removed")
	s.notify()
}

// SetFocal moves the stage to the given participant. Unknown ids are
// ignored.
func (s *Store) SetFocal(id domain.ParticipantID) bool {
	s.mu.Lock()
	_, ok := s.participants[id]
	if ok {
		s.focal = id
	}
	s.mu.Unlock()
	if ok {
		log.Info().Str("module", "conference.store").Str("participant", string(id)).Msg("focal changed")
		s.notify()
	}
	return ok
}

// SetParticipantVideoMuted flips a participant's video mute flag.
func (s *Store) SetParticipantVideoMuted(id domain.ParticipantID, muted bool) {
	s.mu.Lock()
	if e, ok := s.participants[id]; ok {
		e.videoMuted = muted
	}
	s.mu.Unlock()
	s.notify()
}

// Participants returns a read-only snapshot of the membership.
func (s *Store) Participants() []domain.Participant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Participant, 0, len(s.participants))
	for _, e := range s.participants {
		out = append(out, *e.meta)
	}
	return out
}

// FocalParticipant implements core.StateReader.
func (s *Store) FocalParticipant() (core.FocalView, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.participants[s.focal]
	if !ok {
		return core.FocalView{}, false
	}
	return core.FocalView{
		Participant: *e.meta,
		Source:      e.source,
		VideoMuted:  e.videoMuted,
	}, true
}

// LocalMuted implements core.StateReader.
func (s *Store) LocalMuted(media domain.MediaType) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if media == domain.MediaVideo {
		return s.videoMuted
	}
	return s.audioMuted
}

// AudioTrack implements core.StateReader.
func (s *Store) AudioTrack(id domain.ParticipantID) (core.AudioLevelTrack, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.participants[id]
	if !ok || e.audio == nil {
		return nil, false
	}
	return e.audio, true
}

// InConference implements core.StateReader.
func (s *Store) InConference() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.joined
}

// MuteLocal implements core.Dispatcher.
func (s *Store) MuteLocal(media domain.MediaType, muted bool) {
	s.mu.Lock()
	if media == domain.MediaVideo {
		s.videoMuted = muted
	} else {
		s.audioMuted = muted
	}
	s.mu.Unlock()
	log.Info().
		Str("module", "conference.store").
		Str("media", media.String()).
		Bool("muted", muted).
		Msg("local mute changed")
	s.notify()
}

// LeaveConference implements core.Dispatcher.
func (s *Store) LeaveConference() {
	s.Leave()
}

// OnChange subscribes to state-change notifications. Callbacks run on the
// mutating goroutine, outside the store lock.
func (s *Store) OnChange(fn func()) core.Unsubscribe {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Store) notify() {
	s.mu.RLock()
	fns := make([]func(), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()
	for _, fn := range fns {
		fn()
	}
}
