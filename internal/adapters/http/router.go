package http

import (
	"context"
	"errors"
	"image/png"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/openmeet/pip/internal/adapters/conference"
	"github.com/openmeet/pip/internal/adapters/events"
	"github.com/openmeet/pip/internal/adapters/headless"
	"github.com/openmeet/pip/internal/app/pip"
	"github.com/openmeet/pip/internal/config"
	"github.com/openmeet/pip/internal/core"
	"github.com/openmeet/pip/internal/domain"
)

// Deps wires the ops/preview surface to the running engine.
type Deps struct {
	Engine *pip.Engine
	Store  *conference.Store
	Sink   *headless.Sink
}

func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = uuid.NewString()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, deps Deps) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("PipSessions", store))
	r.Use(ClientTokenMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	log.Info().Str("module", "adapters.http").Str("mode", cfg.Mode).Msg("router setup")

	api := r.Group("/api")

	api.GET("/pip/state", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"supported": deps.Engine.Supported(),
			"active":    deps.Engine.Active(),
		})
	})

	// Toggle on the request path stands in for the user-gesture entry
	// point; expected platform refusals map to 409 instead of 500.
	api.POST("/pip/toggle", func(c *gin.Context) {
		err := deps.Engine.Controller().Toggle(c.Request.Context())
		switch {
		case err == nil:
			c.JSON(http.StatusOK, gin.H{"active": deps.Engine.Active()})
		case errors.Is(err, core.ErrUnsupported):
			c.JSON(http.StatusConflict, gin.H{"error": "picture-in-picture not supported"})
		case errors.Is(err, core.ErrUserGestureRequired):
			c.JSON(http.StatusConflict, gin.H{"error": "user gesture required"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
	})

	api.GET("/pip/frame.png", func(c *gin.Context) {
		frame := deps.Sink.LastFrame()
		if frame == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "no frame available"})
			return
		}
		c.Header("Content-Type", "image/png")
		c.Status(http.StatusOK)
		if err := png.Encode(c.Writer, frame); err != nil {
			log.Warn().Err(err).Str("module", "adapters.http").Msg("frame encode failed")
		}
	})

	api.POST("/conference/join", func(c *gin.Context) {
		deps.Store.Join()
		c.JSON(http.StatusOK, gin.H{"joined": true})
	})

	api.POST("/conference/leave", func(c *gin.Context) {
		deps.Store.Leave()
		c.JSON(http.StatusOK, gin.H{"joined": false})
	})

	api.POST("/conference/participants", func(c *gin.Context) {
		var req struct {
			Name string `json:"name"`
		}
		if err := c.ShouldBindJSON(&req); err != nil || req.Name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid name"})
			return
		}
		p, err := domain.NewParticipant(req.Name)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		deps.Store.AddParticipant(p, headless.NewFrameSource(), nil)
		c.JSON(http.StatusOK, p)
	})

	api.POST("/conference/focal/:id", func(c *gin.Context) {
		if !deps.Store.SetFocal(domain.ParticipantID(c.Param("id"))) {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown participant"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"focal": c.Param("id")})
	})

	api.POST("/conference/mute", func(c *gin.Context) {
		var req struct {
			Media string `json:"media"`
			Muted bool   `json:"muted"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		media := domain.MediaAudio
		if req.Media == "video" {
			media = domain.MediaVideo
		}
		deps.Store.MuteLocal(media, req.Muted)
		c.JSON(http.StatusOK, gin.H{"media": media.String(), "muted": req.Muted})
	})

	streamer := events.NewStreamer(deps.Store, deps.Engine)
	api.GET("/ws/events", func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").Str("sid", c.GetString("client_token")).Msg("ws events endpoint hit")
		streamer.HandleEvents(ctx, c)
	})

	return r
}
