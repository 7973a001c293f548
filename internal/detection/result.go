// Package detection implements the detection request pipeline shared by the
// CLI and HTTP front ends: decode the image, run the detector, normalise the
// boxes and wrap every outcome in the same result envelope.
package detection

import (
	"bytes"
	"encoding/json"
	"io"
)

// DefaultConfidence is the threshold used when a request does not set one.
const DefaultConfidence = 0.5

// BoundingBox is an axis-aligned box in image pixel space.
type BoundingBox struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Detection is one normalised, labelled detector hit.
type Detection struct {
	ClassID    int         `json:"class_id"`
	ClassName  string      `json:"class_name"`
	Confidence float64     `json:"confidence"`
	BBox       BoundingBox `json:"bbox"`
}

// Result is the envelope returned for every detection request.
// Count always equals len(Detections); Error is set only when Success is false.
type Result struct {
	Success    bool        `json:"success"`
	Detections []Detection `json:"detections"`
	Count      int         `json:"count"`
	Error      string      `json:"error,omitempty"`
}

// Succeeded builds a success envelope.
func Succeeded(detections []Detection) Result {
	if detections == nil {
		detections = []Detection{}
	}
	return Result{
		Success:    true,
		Detections: detections,
		Count:      len(detections),
	}
}

// Failed builds a failure envelope carrying err's description.
func Failed(err error) Result {
	msg := "unknown error"
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}
	return Result{
		Success:    false,
		Detections: []Detection{},
		Count:      0,
		Error:      msg,
	}
}

// Top returns the first detection, which for YOLO backends is the most confident one.
func (r Result) Top() (Detection, bool) {
	if len(r.Detections) == 0 {
		return Detection{}, false
	}
	return r.Detections[0], true
}

// Encode writes r as a single line of JSON.
// Both front ends use it so that identical inputs produce identical bytes.
func Encode(w io.Writer, r Result) error {
	data, err := Marshal(r)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// Marshal returns r as a single line of JSON terminated by a newline.
func Marshal(r Result) ([]byte, error) {
	if r.Detections == nil {
		r.Detections = []Detection{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
