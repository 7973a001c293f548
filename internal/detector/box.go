// Package detector provides object detection backends that find signs in an image.
package detector

// Box is one raw detector hit: an axis-aligned box in source pixel space,
// the predicted class id and its score.
type Box struct {
	X1      float64 `json:"x1"`
	Y1      float64 `json:"y1"`
	X2      float64 `json:"x2"`
	Y2      float64 `json:"y2"`
	ClassID int     `json:"class_id"`
	Score   float64 `json:"score"`
}

// Area returns the box area, zero for degenerate boxes.
func (b Box) Area() float64 {
	w := b.X2 - b.X1
	h := b.Y2 - b.Y1
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// IoU returns the intersection over union of two boxes.
func (b Box) IoU(o Box) float64 {
	ix1 := maxFloat(b.X1, o.X1)
	iy1 := maxFloat(b.Y1, o.Y1)
	ix2 := minFloat(b.X2, o.X2)
	iy2 := minFloat(b.Y2, o.Y2)

	inter := Box{X1: ix1, Y1: iy1, X2: ix2, Y2: iy2}.Area()
	union := b.Area() + o.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// Flatten joins result groups into one sequence, keeping encounter order.
func Flatten(groups [][]Box) []Box {
	n := 0
	for _, g := range groups {
		n += len(g)
	}

	out := make([]Box, 0, n)
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
