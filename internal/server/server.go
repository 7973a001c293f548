// Package server provides the HTTP front end for sign detection.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/signlens/internal/detection"
	"github.com/ayusman/signlens/internal/labels"
	"github.com/ayusman/signlens/internal/server/api"
	"github.com/ayusman/signlens/internal/store"
)

// DefaultMaxBodyBytes bounds request bodies when Config.MaxBodyBytes is unset.
const DefaultMaxBodyBytes = 50 << 20

// Config holds the server configuration.
type Config struct {
	Pipeline *detection.Pipeline
	// StartupErr is the detector load failure, if any. Detection requests
	// are refused while it is set.
	StartupErr error
	Store      *store.Store
	StaticDir  string
	Logger     logrus.FieldLogger

	MaxBodyBytes int64
	CORSOrigin   string
}

// Server represents the HTTP server.
type Server struct {
	config  Config
	mux     *http.ServeMux
	handler http.Handler
	log     logrus.FieldLogger
	start   time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if config.Logger == nil {
		config.Logger = logrus.StandardLogger()
	}
	if config.Pipeline == nil {
		config.Pipeline = detection.New(nil, labels.Default(), config.Logger)
	}

	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		log:    config.Logger,
		start:  time.Now(),
	}
	s.setupRoutes()
	s.handler = s.cors(s.accessLog(s.mux))
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/", s.handleRoot)
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/classes", s.handleClasses)
	s.mux.HandleFunc("/detect", s.handleDetect)
	s.mux.Handle("/ws/detect", NewDetectSocket(s))

	if s.config.Store != nil {
		vocabulary := api.NewVocabularyHandler(s.config.Store)
		s.mux.Handle("/vocabulary", vocabulary)
		s.mux.Handle("/vocabulary/", vocabulary)
		s.mux.Handle("/history", api.NewHistoryHandler(s.config.Store))
	}

	// Serve the realtime client if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/ui/", http.StripPrefix("/ui/", fs))
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// ModelLoaded reports whether detection requests can be served.
func (s *Server) ModelLoaded() bool {
	return s.config.StartupErr == nil
}

// handleRoot handles GET /.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "Not found"})
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":      "Sign Language Detection API",
		"status":       "running",
		"model_loaded": s.ModelLoaded(),
	})
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{
		"status":       "healthy",
		"model_loaded": s.ModelLoaded(),
		"uptime":       time.Since(s.start).Round(time.Second).String(),
	}
	if s.config.StartupErr != nil {
		response["status"] = "degraded"
		response["error"] = s.config.StartupErr.Error()
	}

	s.writeJSON(w, http.StatusOK, response)
}

// handleClasses handles GET /classes.
func (s *Server) handleClasses(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	table := s.config.Pipeline.Labels()
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"classes": table.All(),
		"count":   table.Len(),
	})
}

// modelNotLoaded is the envelope returned while the detector is unavailable.
func (s *Server) modelNotLoaded() detection.Result {
	return detection.Failed(fmt.Errorf("%w: %v", detection.ErrModelNotLoaded, s.config.StartupErr))
}

// writeJSON writes a JSON response with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.WithError(err).Debug("Failed to write response")
	}
}

// writeResult writes a detection envelope with the shared encoder.
func (s *Server) writeResult(w http.ResponseWriter, status int, result detection.Result) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := detection.Encode(w, result); err != nil {
		s.log.WithError(err).Debug("Failed to write detection result")
	}
}
