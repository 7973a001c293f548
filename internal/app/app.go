// Package app wires the class table, detector, pipeline and store into one service object.
package app

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/signlens/internal/detection"
	"github.com/ayusman/signlens/internal/detector"
	"github.com/ayusman/signlens/internal/labels"
	"github.com/ayusman/signlens/internal/store"
)

// Config holds configuration options for the application.
type Config struct {
	// ClassesPath is an optional model_info.json; the built-in table is used without it.
	ClassesPath string
	Detector    detector.Config
	// DBPath enables the vocabulary and history store when set.
	DBPath string
	// HistoryKeep prunes the history to this many entries at startup (0 keeps all).
	HistoryKeep int
}

// App owns the process-wide detection state.
type App struct {
	config     Config
	log        logrus.FieldLogger
	labels     *labels.Table
	store      *store.Store
	detector   detector.Detector
	startupErr error
	pipeline   *detection.Pipeline
	mu         sync.RWMutex
}

// New creates a new App. A detector that fails to load does not fail New;
// the error is kept and reported through StartupErr. A store that fails to
// open does.
func New(config Config, log logrus.FieldLogger) (*App, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}

	a := &App{
		config: config,
		log:    log,
		labels: loadLabels(config.ClassesPath, log),
	}

	if config.DBPath != "" {
		st, err := store.New(config.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		a.store = st
		a.pruneHistory()
	}

	dc := config.Detector
	if config.ClassesPath != "" {
		dc.NumClasses = a.labels.Len()
	}
	if dc.Logger == nil {
		dc.Logger = log
	}

	if d, err := detector.Open(dc); err != nil {
		a.startupErr = err
		log.WithError(err).WithField("backend", dc.Backend).Error("Failed to load model")
	} else {
		a.detector = d
		log.WithFields(logrus.Fields{
			"backend": dc.Backend,
			"model":   dc.ModelPath,
		}).Info("Model loaded successfully")
	}

	a.pipeline = detection.New(a.detector, a.labels, log)
	return a, nil
}

func loadLabels(path string, log logrus.FieldLogger) *labels.Table {
	if path == "" {
		return labels.Default()
	}

	table, err := labels.Load(path)
	if err != nil {
		log.WithError(err).WithField("path", path).Warn("Failed to load class names, using built-in table")
		return labels.Default()
	}

	log.WithFields(logrus.Fields{"path": path, "classes": table.Len()}).Info("Loaded class names")
	return table
}

func (a *App) pruneHistory() {
	if a.config.HistoryKeep <= 0 {
		return
	}
	removed, err := a.store.History().Prune(a.config.HistoryKeep)
	if err != nil {
		a.log.WithError(err).Warn("Failed to prune detection history")
		return
	}
	if removed > 0 {
		a.log.WithField("removed", removed).Info("Pruned detection history")
	}
}

// SetDetector replaces the detector, clears any startup error and builds a
// new pipeline. Front ends copy Pipeline and StartupErr when they are
// constructed, so SetDetector must be called before server.New or cli.Run;
// front ends built earlier keep the previous pipeline.
func (a *App) SetDetector(d detector.Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detector = d
	a.startupErr = nil
	a.pipeline = detection.New(d, a.labels, a.log)
}

// Pipeline returns the detection pipeline.
func (a *App) Pipeline() *detection.Pipeline {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.pipeline
}

// StartupErr returns the detector load failure, or nil.
func (a *App) StartupErr() error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.startupErr
}

// ModelLoaded reports whether a detector is available.
func (a *App) ModelLoaded() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.detector != nil
}

// Labels returns the class table.
func (a *App) Labels() *labels.Table {
	return a.labels
}

// Store returns the store, or nil when none is configured.
func (a *App) Store() *store.Store {
	return a.store
}

// Close releases the detector and the store.
func (a *App) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var errs []error
	if a.detector != nil {
		if err := a.detector.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close detector: %w", err))
		}
		a.detector = nil
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
		a.store = nil
	}
	return errors.Join(errs...)
}
