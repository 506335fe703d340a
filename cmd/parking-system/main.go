package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"parking-system/internal/config"
	"parking-system/internal/logging"
	"parking-system/internal/parking"
	"parking-system/internal/server"
	"parking-system/internal/store"
)

var mode = flag.String("mode", "server", "Mode to run: cli, server, or both")

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.Init(true)
		logging.Logger().Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Init(cfg.IsDevelopment())
	log := logging.Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetry, err := parking.NewTelemetryProvider()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}

	engine, err := parking.NewInstrumentedEngine(cfg.Parking.EngineConfig(), telemetry)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build engine")
	}

	archive, err := store.Open(cfg.Parking.ArchivePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Parking.ArchivePath).Msg("failed to open ticket archive")
	}
	defer archive.Close()
	engine.Subscribe(archive)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	switch *mode {
	case "cli":
		runCLI(ctx, cancel, engine, sigChan)
	case "server":
		runServer(cfg, engine, sigChan)
	case "both":
		runBoth(ctx, cancel, cfg, engine, sigChan)
	default:
		log.Fatal().Str("mode", *mode).Msg("invalid mode, must be cli, server, or both")
	}

	shutdownTelemetry(telemetry)
}

func runCLI(ctx context.Context, cancel context.CancelFunc, engine *parking.InstrumentedEngine, sigChan chan os.Signal) {
	go func() {
		<-sigChan
		logging.Logger().Info().Msg("shutting down")
		cancel()
	}()

	shell := parking.NewShell(engine)
	shell.Run(ctx)
}

func runServer(cfg *config.Config, engine *parking.InstrumentedEngine, sigChan chan os.Signal) {
	srv := server.NewServer(cfg.Server, engine)

	go func() {
		<-sigChan
		logging.Logger().Info().Msg("received shutdown signal")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logging.Logger().Error().Err(err).Msg("server shutdown error")
		}
	}()

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logging.Logger().Error().Err(err).Msg("server error")
	}
}

func runBoth(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, engine *parking.InstrumentedEngine, sigChan chan os.Signal) {
	srv := server.NewServer(cfg.Server, engine)

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- srv.Start()
	}()

	cliDone := make(chan struct{})
	go func() {
		shell := parking.NewShell(engine)
		shell.Run(ctx)
		close(cliDone)
	}()

	go func() {
		<-sigChan
		logging.Logger().Info().Msg("received shutdown signal")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logging.Logger().Error().Err(err).Msg("server shutdown error")
		}

		cancel()
	}()

	select {
	case err := <-serverDone:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Logger().Error().Err(err).Msg("server exited")
		}
	case <-cliDone:
		logging.Logger().Info().Msg("CLI exited")
	case <-ctx.Done():
	}
}

func shutdownTelemetry(telemetry *parking.TelemetryProvider) {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		logging.Logger().Error().Err(err).Msg("error shutting down telemetry")
	}
}
