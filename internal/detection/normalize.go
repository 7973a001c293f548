package detection

import (
	"fmt"
	"math"

	"github.com/ayusman/signlens/internal/detector"
	"github.com/ayusman/signlens/internal/labels"
)

// Normalize maps detector boxes to labelled detections, preserving order.
// Boxes are never merged, filtered or re-sorted.
func Normalize(boxes []detector.Box, table *labels.Table) ([]Detection, error) {
	out := make([]Detection, 0, len(boxes))
	for i, b := range boxes {
		if err := checkBox(b); err != nil {
			return nil, &InferenceError{Err: fmt.Errorf("box %d: %w", i, err)}
		}
		out = append(out, Detection{
			ClassID:    b.ClassID,
			ClassName:  table.Resolve(b.ClassID),
			Confidence: b.Score,
			BBox: BoundingBox{
				X1: b.X1,
				Y1: b.Y1,
				X2: b.X2,
				Y2: b.Y2,
			},
		})
	}
	return out, nil
}

// checkBox rejects values that cannot be serialised or labelled.
func checkBox(b detector.Box) error {
	if b.ClassID < 0 {
		return fmt.Errorf("negative class id %d", b.ClassID)
	}
	for _, v := range []float64{b.X1, b.Y1, b.X2, b.Y2, b.Score} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("non-finite value %v", v)
		}
	}
	return nil
}
