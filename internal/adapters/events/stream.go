// Package events streams conference and pip session state snapshots over
// a websocket, so an operator UI can mirror what the floating window
// shows.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/openmeet/pip/internal/adapters/conference"
	"github.com/openmeet/pip/internal/app/pip"
	"github.com/openmeet/pip/internal/domain"
)

var ErrBackpressure = errors.New("backpressure")

// Snapshot is one state update pushed to subscribers.
type Snapshot struct {
	PipSupported bool                 `json:"pip_supported"`
	PipActive    bool                 `json:"pip_active"`
	InConference bool                 `json:"in_conference"`
	AudioMuted   bool                 `json:"audio_muted"`
	VideoMuted   bool                 `json:"video_muted"`
	Focal        string               `json:"focal,omitempty"`
	Participants []domain.Participant `json:"participants"`
}

// Streamer fans state changes out to websocket subscribers.
type Streamer struct {
	store  *conference.Store
	engine *pip.Engine
}

func NewStreamer(store *conference.Store, engine *pip.Engine) *Streamer {
	return &Streamer{store: store, engine: engine}
}

func (s *Streamer) snapshot() Snapshot {
	snap := Snapshot{
		PipSupported: s.engine.Supported(),
		PipActive:    s.engine.Active(),
		InConference: s.store.InConference(),
		AudioMuted:   s.store.LocalMuted(domain.MediaAudio),
		VideoMuted:   s.store.LocalMuted(domain.MediaVideo),
		Participants: s.store.Participants(),
	}
	if view, ok := s.store.FocalParticipant(); ok {
		snap.Focal = string(view.Participant.ID)
	}
	return snap
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type eventConn struct {
	conn *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	closed bool
}

func (c *eventConn) TrySend(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- data:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *eventConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

// HandleEvents upgrades the request and streams snapshots until the
// client goes away or the server context ends. Slow clients miss updates
// instead of blocking the store.
func (s *Streamer) HandleEvents(ctx context.Context, c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "events").Msg("ws upgrade")
		return
	}
	conn := &eventConn{conn: ws, send: make(chan []byte, 16)}

	push := func() {
		data, err := json.Marshal(s.snapshot())
		if err != nil {
			log.Error().Err(err).Str("module", "events").Msg("snapshot marshal")
			return
		}
		if err := conn.TrySend(data); err != nil && !errors.Is(err, ErrBackpressure) {
			log.Debug().Err(err).Str("module", "events").Msg("snapshot dropped")
		}
	}

	unsub := s.store.OnChange(push)
	push()

	ctx, cancel := context.WithCancel(ctx)
	go func() {
		defer cancel()
		defer unsub()
		defer conn.Close()
		s.readPump(ctx, conn)
	}()
	go s.writePump(ctx, conn)
}

func (s *Streamer) writePump(ctx context.Context, c *eventConn) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "events").Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				log.Error().Err(err).Str("module", "events").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "events").Msg("writePump write error")
				return
			}
		}
	}
}

// readPump exists to notice client disconnects; inbound messages are
// ignored.
func (s *Streamer) readPump(ctx context.Context, c *eventConn) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			if _, _, err := c.conn.ReadMessage(); err != nil {
				log.Info().Err(err).Str("module", "events").Msg("client gone")
				return
			}
		}
	}
}
