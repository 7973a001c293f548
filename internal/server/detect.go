package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ayusman/signlens/internal/detection"
	"github.com/ayusman/signlens/internal/store"
)

// handleDetect handles POST /detect.
func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeResult(w, http.StatusRequestEntityTooLarge,
				detection.Failed(fmt.Errorf("request body exceeds %d bytes", tooLarge.Limit)))
			return
		}
		s.writeResult(w, http.StatusBadRequest, detection.Failed(fmt.Errorf("read body: %w", err)))
		return
	}

	req, err := detection.ParseRequest(body)
	if err != nil {
		s.writeResult(w, http.StatusBadRequest, detection.Failed(err))
		return
	}

	if !s.ModelLoaded() {
		s.writeResult(w, http.StatusServiceUnavailable, s.modelNotLoaded())
		return
	}

	if strings.TrimSpace(req.Image) == "" {
		s.writeResult(w, http.StatusBadRequest, detection.Failed(detection.ErrNoImage))
		return
	}

	result := s.config.Pipeline.Handle(req)
	s.record(store.SourceHTTP, req.Threshold(), result)
	s.writeResult(w, http.StatusOK, result)
}

// record stores result in the detection history. Failures are logged only.
func (s *Server) record(source string, threshold float64, result detection.Result) {
	if s.config.Store == nil {
		return
	}

	detections, err := json.Marshal(result.Detections)
	if err != nil {
		s.log.WithError(err).Warn("Failed to encode detections for history")
		return
	}

	entry := &store.HistoryEntry{
		Source:     source,
		Threshold:  threshold,
		Success:    result.Success,
		Count:      result.Count,
		Error:      result.Error,
		Detections: detections,
	}
	if top, ok := result.Top(); ok {
		entry.TopClass = top.ClassName
		entry.TopConfidence = top.Confidence
	}

	if err := s.config.Store.History().Record(entry); err != nil {
		s.log.WithError(err).WithField("source", source).Warn("Failed to record detection history")
	}
}
