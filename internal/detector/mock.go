package detector

import (
	"sync"

	"github.com/ayusman/signlens/internal/imaging"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu            sync.RWMutex
	boxes         []Box
	err           error
	calls         int
	lastThreshold float64
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetBoxes sets the boxes that will be returned by Detect.
func (m *MockDetector) SetBoxes(boxes []Box) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.boxes = boxes
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect has been invoked.
func (m *MockDetector) Calls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls
}

// LastThreshold returns the threshold passed to the most recent Detect call.
func (m *MockDetector) LastThreshold() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastThreshold
}

// Detect returns the pre-configured boxes or error.
func (m *MockDetector) Detect(img *imaging.RGB, threshold float64) ([]Box, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	m.lastThreshold = threshold
	if m.err != nil {
		return nil, m.err
	}

	out := make([]Box, len(m.boxes))
	copy(out, m.boxes)
	return out, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// Func adapts a plain function to the Detector interface.
type Func func(img *imaging.RGB, threshold float64) ([]Box, error)

// Detect calls f.
func (f Func) Detect(img *imaging.RGB, threshold float64) ([]Box, error) {
	return f(img, threshold)
}

// Close is a no-op.
func (f Func) Close() error {
	return nil
}

// SampleBoxes returns a preset detection of two known signs followed by a class id
// that is outside the default label table.
func SampleBoxes() []Box {
	return []Box{
		{X1: 120.5, Y1: 80.25, X2: 310.0, Y2: 402.75, ClassID: 15, Score: 0.91}, // xin_chao
		{X1: 20.0, Y1: 30.0, X2: 90.0, Y2: 140.0, ClassID: 5, Score: 0.64},      // cam_on
		{X1: 0, Y1: 0, X2: 10, Y2: 10, ClassID: 99, Score: 0.55},
	}
}
