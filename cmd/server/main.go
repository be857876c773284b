package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/openmeet/pip/internal/adapters/conference"
	"github.com/openmeet/pip/internal/adapters/headless"
	router "github.com/openmeet/pip/internal/adapters/http"
	"github.com/openmeet/pip/internal/app/pip"
	"github.com/openmeet/pip/internal/config"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
	}

	store := conference.NewStore()
	platform := headless.NewPlatform()
	sink := headless.NewSink()
	session := headless.NewMediaSession()
	visibility := headless.NewVisibility()

	engine := pip.NewEngine(pip.Deps{
		Platform:   platform,
		Sink:       sink,
		Session:    session,
		Reader:     store,
		Dispatcher: store,
	}, visibility, pip.Options{
		Width:     cfg.CanvasWidth,
		Height:    cfg.CanvasHeight,
		FPS:       cfg.PipFPS,
		Debounce:  cfg.PipDebounce,
		AutoEnter: cfg.AutoPip,
	})

	// Mirror conference membership into the engine lifecycle and keep the
	// window's control icons in step with mute changes.
	var joinMu sync.Mutex
	wasJoined := false
	store.OnChange(func() {
		joinMu.Lock()
		defer joinMu.Unlock()
		joined := store.InConference()
		switch {
		case joined && !wasJoined:
			engine.OnConferenceJoined()
		case !joined && wasJoined:
			if err := engine.OnConferenceLeft(ctx); err != nil {
				log.Warn().Err(err).Msg("conference leave cleanup")
			}
		}
		wasJoined = joined
		engine.SyncControls()
	})

	r := router.SetupRouter(ctx, cfg, router.Deps{
		Engine: engine,
		Store:  store,
		Sink:   sink,
	})
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("pip host started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	if err := engine.OnConferenceLeft(context.Background()); err != nil {
		log.Warn().Err(err).Msg("shutdown cleanup")
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
