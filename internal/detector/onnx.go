package detector

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"

	"github.com/sirupsen/logrus"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/ayusman/signlens/internal/imaging"
)

// Tensor names produced by the ultralytics ONNX export.
const (
	onnxInputName  = "images"
	onnxOutputName = "output0"
)

// maxPoolSize bounds the default number of sessions.
const maxPoolSize = 8

var ortEnv struct {
	once sync.Once
	err  error
}

// initRuntime loads the onnxruntime library once per process.
func initRuntime(libraryPath string) error {
	ortEnv.once.Do(func() {
		if libraryPath != "" {
			ort.SetSharedLibraryPath(libraryPath)
		}
		ortEnv.err = ort.InitializeEnvironment()
	})
	return ortEnv.err
}

type onnxSession struct {
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
}

func (s *onnxSession) destroy() {
	if s.session != nil {
		s.session.Destroy()
	}
	if s.input != nil {
		s.input.Destroy()
	}
	if s.output != nil {
		s.output.Destroy()
	}
}

// ONNXDetector runs an exported YOLO model in-process.
// Each session owns its tensors, so concurrent requests take a session from the pool.
type ONNXDetector struct {
	config    Config
	sessions  chan *onnxSession
	created   int
	size      int
	anchors   int
	closeOnce sync.Once
}

// NewONNXDetector loads the model into a pool of sessions.
func NewONNXDetector(config Config) (*ONNXDetector, error) {
	if config.ModelPath == "" {
		return nil, errors.New("model path is not configured")
	}
	if _, err := os.Stat(config.ModelPath); err != nil {
		return nil, fmt.Errorf("model file: %w", err)
	}
	if config.NumClasses <= 0 {
		return nil, fmt.Errorf("invalid class count %d", config.NumClasses)
	}
	if config.InputSize <= 0 {
		config.InputSize = 640
	}
	if config.IOUThreshold <= 0 {
		config.IOUThreshold = 0.7
	}

	poolSize := config.PoolSize
	if poolSize <= 0 {
		poolSize = runtime.NumCPU() / 2
		if poolSize < 1 {
			poolSize = 1
		}
		if poolSize > maxPoolSize {
			poolSize = maxPoolSize
		}
	}

	if err := initRuntime(config.LibraryPath); err != nil {
		return nil, fmt.Errorf("initialize onnxruntime: %w", err)
	}

	d := &ONNXDetector{
		config:   config,
		sessions: make(chan *onnxSession, poolSize),
		size:     config.InputSize,
		anchors:  anchorCount(config.InputSize),
	}

	for i := 0; i < poolSize; i++ {
		s, err := d.newSession()
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("create onnx session %d: %w", i, err)
		}
		d.sessions <- s
		d.created++
	}

	config.logger().WithFields(logrus.Fields{
		"model":    config.ModelPath,
		"sessions": poolSize,
		"input":    config.InputSize,
	}).Info("ONNX model loaded")

	return d, nil
}

func (d *ONNXDetector) newSession() (*onnxSession, error) {
	s := &onnxSession{}

	input, err := ort.NewTensor(ort.NewShape(1, 3, int64(d.size), int64(d.size)), make([]float32, 3*d.size*d.size))
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}
	s.input = input

	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(4+d.config.NumClasses), int64(d.anchors)))
	if err != nil {
		s.destroy()
		return nil, fmt.Errorf("create output tensor: %w", err)
	}
	s.output = output

	options, err := ort.NewSessionOptions()
	if err != nil {
		s.destroy()
		return nil, err
	}
	defer options.Destroy()

	// One thread per session; parallelism comes from the pool.
	options.SetIntraOpNumThreads(1)
	options.SetInterOpNumThreads(1)

	session, err := ort.NewAdvancedSession(
		d.config.ModelPath,
		[]string{onnxInputName},
		[]string{onnxOutputName},
		[]ort.Value{input},
		[]ort.Value{output},
		options,
	)
	if err != nil {
		s.destroy()
		return nil, err
	}
	s.session = session

	return s, nil
}

// Detect letterboxes the image, runs the model and applies NMS.
func (d *ONNXDetector) Detect(img *imaging.RGB, threshold float64) ([]Box, error) {
	if img.Width() == 0 || img.Height() == 0 {
		return nil, errors.New("empty image")
	}

	s := <-d.sessions
	defer func() { d.sessions <- s }()

	canvas, lb := letterboxImage(img, d.size)
	fillInput(s.input.GetData(), canvas, d.size)

	if err := s.session.Run(); err != nil {
		return nil, fmt.Errorf("run onnx session: %w", err)
	}

	boxes := decodeOutput(s.output.GetData(), d.config.NumClasses, d.anchors, threshold, lb, img.Width(), img.Height())
	return nms(boxes, d.config.IOUThreshold), nil
}

// Close destroys every session in the pool.
// It waits for in-flight requests to hand their sessions back.
func (d *ONNXDetector) Close() error {
	d.closeOnce.Do(func() {
		for i := 0; i < d.created; i++ {
			s := <-d.sessions
			s.destroy()
		}
	})
	return nil
}
