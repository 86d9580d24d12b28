package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/qazaqedu/iquiz-server/internal/auth"
	"github.com/qazaqedu/iquiz-server/internal/config"
	"github.com/qazaqedu/iquiz-server/internal/core"
	"github.com/qazaqedu/iquiz-server/internal/hub"
	"github.com/qazaqedu/iquiz-server/internal/service"
	"github.com/qazaqedu/iquiz-server/internal/store"
	"github.com/qazaqedu/iquiz-server/internal/store/sqlite"
	transporthttp "github.com/qazaqedu/iquiz-server/internal/transport/http"
)

// App wires together the registry, hub, service and transport layers.
type App struct {
	server          *stdhttp.Server
	hub             *hub.Hub
	archive         store.Archive
	shutdownTimeout time.Duration
	idleTimeout     time.Duration
	evictInterval   time.Duration
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	var archive store.Archive = store.NopArchive{}
	if cfg.DatabasePath != "" {
		sq, err := sqlite.New(cfg.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("init archive: %w", err)
		}
		archive = sq
		logger.Info().Str("db_path", cfg.DatabasePath).Msg("archive initialized")
	} else {
		logger.Info().Msg("archive disabled")
	}

	tokens := &auth.TokenConfig{
		Secret: []byte(cfg.TokenSecret),
		Issuer: "iquiz-server",
		TTL:    cfg.TokenTTL,
	}

	h := hub.New(cfg.SendBuffer, logger)
	registry := core.NewRegistry(cfg.CodeLength)
	svc := service.New(registry, h, archive, tokens, logger)
	server := transporthttp.NewServer(svc, h, *cfg, tokens, logger)

	return &App{
		server:          server,
		hub:             h,
		archive:         archive,
		shutdownTimeout: cfg.ShutdownTimeout,
		idleTimeout:     cfg.IdleTimeout,
		evictInterval:   cfg.EvictInterval,
		log:             logger,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go a.evictLoop(ctx)

	go func() {
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup()
			return err
		}

		a.cleanup()
		return <-serverErr
	}
}

// evictLoop periodically drops idle stream subscribers.
func (a *App) evictLoop(ctx context.Context) {
	if a.idleTimeout <= 0 || a.evictInterval <= 0 {
		return
	}
	ticker := time.NewTicker(a.evictInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := a.hub.EvictIdle(a.idleTimeout); n > 0 {
				a.log.Info().Int("evicted", n).Msg("idle subscribers evicted")
			}
		case <-ctx.Done():
			return
		}
	}
}

// cleanup closes the archive and other resources.
func (a *App) cleanup() {
	if a.archive != nil {
		if err := a.archive.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close archive")
		} else {
			a.log.Info().Msg("archive closed")
		}
	}
}
