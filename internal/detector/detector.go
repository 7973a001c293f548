package detector

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/signlens/internal/imaging"
)

// Detector defines the interface for sign detection backends.
type Detector interface {
	// Detect runs inference on img and returns the boxes scoring at least threshold,
	// flattened into one sequence in the backend's native order.
	// Implementations must be safe for concurrent use.
	Detect(img *imaging.RGB, threshold float64) ([]Box, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Backend names a Detector implementation.
type Backend string

const (
	// BackendWorker runs the model in a long-lived Python worker process.
	BackendWorker Backend = "worker"
	// BackendONNX runs an exported ONNX model in-process.
	BackendONNX Backend = "onnx"
)

// Config holds configuration options for the detection backends.
type Config struct {
	// Backend selects the implementation (default: worker).
	Backend Backend
	// ModelPath is the model weights file (.pt for worker, .onnx for onnx).
	ModelPath string

	// PythonPath is the interpreter used for the worker (default: venv python or python3).
	PythonPath string
	// WorkerScript is the path to yolo_worker.py (default: searched next to the binary).
	WorkerScript string
	// StartTimeoutSec bounds how long the worker may take to load the model.
	StartTimeoutSec int

	// LibraryPath is the onnxruntime shared library (default: system search path).
	LibraryPath string
	// InputSize is the square model input edge in pixels (default: 640).
	InputSize int
	// IOUThreshold is the NMS overlap threshold (default: 0.7).
	IOUThreshold float64
	// PoolSize is the number of ONNX sessions serving requests in parallel.
	PoolSize int
	// NumClasses is the number of classes the model predicts.
	NumClasses int

	Logger logrus.FieldLogger
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		Backend:         BackendWorker,
		StartTimeoutSec: 120,
		InputSize:       640,
		IOUThreshold:    0.7,
		NumClasses:      17,
	}
}

func (c Config) logger() logrus.FieldLogger {
	if c.Logger != nil {
		return c.Logger
	}
	return logrus.StandardLogger()
}

// Open creates the detector selected by cfg.Backend and loads its model.
func Open(cfg Config) (Detector, error) {
	switch cfg.Backend {
	case BackendWorker, "":
		d, err := NewWorkerDetector(cfg)
		if err != nil {
			return nil, err
		}
		return d, nil
	case BackendONNX:
		d, err := NewONNXDetector(cfg)
		if err != nil {
			return nil, err
		}
		return d, nil
	default:
		return nil, fmt.Errorf("unknown detector backend %q", cfg.Backend)
	}
}
