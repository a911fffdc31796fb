package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

func main() {
	setupLogger()
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if err := run(cfg); err != nil {
		log.Error().Err(err).Msg("backend stopped")
		os.Exit(1)
	}
}

// setupLogger reads GOMOKU_LOG_LEVEL and GOMOKU_LOG_PRETTY. Search statistics are
// logged at debug level.
func setupLogger() {
	level, err := zerolog.ParseLevel(getenv("GOMOKU_LOG_LEVEL", "info"))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if getenvBool("GOMOKU_LOG_PRETTY", false) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	}
}

func run(cfg Config) error {
	store := NewConfigStore(cfg)
	hub := NewHub()
	queue := newAnalysisQueue(store, hub)
	restoreResults(queue, cfg.ResultsPath)
	a := &api{config: store, queue: queue, hub: hub}

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newRouter(a),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(ctx.Done())
		return nil
	})
	g.Go(func() error {
		return queue.Run(ctx, queueWorkerCountForHost(cfg))
	})
	g.Go(func() error {
		log.Info().Str("addr", cfg.Addr).Msg("backend listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn().Err(err).Msg("graceful shutdown failed, closing")
			if closeErr := server.Close(); closeErr != nil && !errors.Is(closeErr, http.ErrServerClosed) {
				return closeErr
			}
		}
		return nil
	})

	err := g.Wait()
	if queued := queue.Len(); queued > 0 {
		log.Info().Int("queued", queued).Msg("dropping unanalysed boards")
	}
	saveResults(queue, store.Get().ResultsPath)
	return err
}
