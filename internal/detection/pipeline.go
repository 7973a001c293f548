package detection

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/signlens/internal/detector"
	"github.com/ayusman/signlens/internal/imaging"
	"github.com/ayusman/signlens/internal/labels"
)

// Request is the inbound detection request shared by both front ends.
type Request struct {
	Image      string   `json:"image"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// Threshold returns the requested confidence, or DefaultConfidence when unset.
func (r Request) Threshold() float64 {
	if r.Confidence == nil {
		return DefaultConfidence
	}
	return *r.Confidence
}

// Validate checks the request fields that can be checked without decoding.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Image) == "" {
		return ErrNoImage
	}
	if r.Confidence != nil {
		c := *r.Confidence
		if math.IsNaN(c) || c < 0 || c > 1 {
			return &ValidationError{Field: "confidence", Message: "must be between 0 and 1"}
		}
	}
	return nil
}

// Pipeline decodes images, runs the detector and normalises its output.
// It holds no per-request state and is safe for concurrent use when its
// detector is.
type Pipeline struct {
	detector detector.Detector
	labels   *labels.Table
	log      logrus.FieldLogger
}

// New creates a pipeline. A nil table falls back to the built-in labels.
func New(d detector.Detector, table *labels.Table, log logrus.FieldLogger) *Pipeline {
	if table == nil {
		table = labels.Default()
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Pipeline{
		detector: d,
		labels:   table,
		log:      log,
	}
}

// Labels returns the class table used to resolve names.
func (p *Pipeline) Labels() *labels.Table {
	return p.labels
}

// Handle validates req and runs it.
func (p *Pipeline) Handle(req Request) Result {
	if err := req.Validate(); err != nil {
		return Failed(err)
	}
	return p.Run(req.Image, req.Threshold())
}

// Run executes one detection request. It never panics and never returns an
// error; every failure is reported inside the returned Result.
func (p *Pipeline) Run(payload string, threshold float64) (result Result) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err := &InferenceError{Err: fmt.Errorf("panic: %v", r)}
			p.log.WithField("panic", r).Error("Detector panicked")
			result = Failed(err)
		}
	}()

	detections, err := p.detect(payload, threshold)
	if err != nil {
		p.logFailure(err)
		return Failed(err)
	}

	p.log.WithFields(logrus.Fields{
		"threshold": threshold,
		"elapsed":   time.Since(start).String(),
	}).Infof("Detected %d signs", len(detections))

	return Succeeded(detections)
}

func (p *Pipeline) detect(payload string, threshold float64) ([]Detection, error) {
	if strings.TrimSpace(payload) == "" {
		return nil, ErrNoImage
	}
	if p.detector == nil {
		return nil, ErrModelNotLoaded
	}

	img, _, err := imaging.Decode(payload)
	if err != nil {
		return nil, err
	}

	boxes, err := p.detector.Detect(img, threshold)
	if err != nil {
		return nil, &InferenceError{Err: err}
	}

	return Normalize(boxes, p.labels)
}

func (p *Pipeline) logFailure(err error) {
	var decodeErr *imaging.DecodeError
	switch {
	case errors.Is(err, ErrNoImage):
		p.log.Debug("Rejected request without image")
	case errors.As(err, &decodeErr):
		p.log.WithField("stage", decodeErr.Stage).WithError(err).Info("Rejected undecodable image")
	default:
		p.log.WithError(err).Warn("Detection failed")
	}
}
