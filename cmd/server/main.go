package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/scythe504/wavelength-backend/internal/config"
	"github.com/scythe504/wavelength-backend/internal/docstore"
	"github.com/scythe504/wavelength-backend/internal/logging"
	"github.com/scythe504/wavelength-backend/internal/random"
	"github.com/scythe504/wavelength-backend/internal/server"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("[main] server stopped")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.Setup(cfg.LogLevel, cfg.LogPretty)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := docstore.Open(ctx, cfg.StoreDriver, cfg.SQLitePath, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer closeStore()

	seed, err := random.NewSeed()
	if err != nil {
		return err
	}
	httpServer := server.New(cfg, store, random.New(seed)).HTTPServer()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", httpServer.Addr).Str("store", cfg.StoreDriver).Msg("[main] listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("[main] shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
