package main

import (
	"context"
	"flag"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"

	"github.com/qazaqedu/iquiz-server/internal/app"
	"github.com/qazaqedu/iquiz-server/internal/config"
	"github.com/qazaqedu/iquiz-server/internal/log"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (defaults next to the binary)")
	flag.Parse()

	// Bootstrap logger for config loading; rebuilt once the level is known.
	bootLogger := log.New("info")

	cfg, resolvedPath, err := config.Load(bootLogger, *configPath)
	if err != nil {
		stdlog.Fatalf("load config: %v", err)
	}

	logger := log.New(cfg.LogLevel)
	logger.Info().Str("config", resolvedPath).Str("addr", cfg.Addr).Msg("starting iquiz server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(&cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build application")
	}

	if err := application.Run(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server exited with error")
	}
	logger.Info().Msg("server stopped")
}
