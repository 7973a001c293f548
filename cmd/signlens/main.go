// Command signlens serves sign detection over HTTP and WebSocket.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/signlens/internal/app"
	"github.com/ayusman/signlens/internal/config"
	"github.com/ayusman/signlens/internal/logging"
	"github.com/ayusman/signlens/internal/server"
)

const shutdownTimeout = 15 * time.Second

func main() {
	os.Exit(run())
}

// run returns the process exit code once deferred cleanup has finished.
func run() int {
	cfg, err := config.Load()
	if err != nil {
		logrus.Errorf("Failed to load configuration: %v", err)
		return 1
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		logrus.Errorf("Failed to configure logging: %v", err)
		return 1
	}

	log.Info("SignLens - Sign Language Detection API")

	a, err := app.New(app.Config{
		ClassesPath: cfg.ClassesPath,
		Detector:    cfg.Detector(0),
		DBPath:      cfg.DBPath,
		HistoryKeep: cfg.HistoryKeep,
	}, log)
	if err != nil {
		log.Errorf("Failed to initialize: %v", err)
		return 1
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.WithError(err).Warn("Shutdown cleanup failed")
		}
	}()

	if cfg.StaticDir != "" {
		log.WithField("dir", cfg.StaticDir).Info("Serving realtime client")
	}

	srv := server.New(server.Config{
		Pipeline:     a.Pipeline(),
		StartupErr:   a.StartupErr(),
		Store:        a.Store(),
		StaticDir:    cfg.StaticDir,
		Logger:       log,
		MaxBodyBytes: cfg.MaxBodyBytes,
		CORSOrigin:   cfg.CORSOrigin,
	})

	httpServer := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      srv,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(logrus.Fields{
		"addr":         cfg.Addr(),
		"model_loaded": a.ModelLoaded(),
	}).Info("Starting server")
	return serve(ctx, httpServer, log)
}

// serve runs srv until it fails or ctx is cancelled, and returns the exit code.
func serve(ctx context.Context, srv *http.Server, log logrus.FieldLogger) int {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("Server failed: %v", err)
			return 1
		}
	case <-ctx.Done():
		log.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("Graceful shutdown failed")
		}
	}
	return 0
}
