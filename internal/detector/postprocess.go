package detector

import "sort"

// maxDetections caps the boxes kept after NMS.
const maxDetections = 300

// anchorCount returns the number of YOLO prediction cells for a square input
// with the standard 8/16/32 strides (8400 for 640).
func anchorCount(size int) int {
	n := 0
	for _, stride := range []int{8, 16, 32} {
		cells := size / stride
		n += cells * cells
	}
	return n
}

// decodeOutput reads a YOLOv8/v11 head of shape [4+numClasses, anchors]
// (cx, cy, w, h, then per-class scores) and returns every anchor whose best
// class scores at least threshold, in source pixel coordinates.
func decodeOutput(data []float32, numClasses, anchors int, threshold float64, lb letterbox, srcW, srcH int) []Box {
	var boxes []Box
	for a := 0; a < anchors; a++ {
		best := float32(0)
		cls := -1
		for c := 0; c < numClasses; c++ {
			s := data[(4+c)*anchors+a]
			if s > best {
				best = s
				cls = c
			}
		}
		if cls < 0 || float64(best) < threshold {
			continue
		}

		cx := float64(data[a])
		cy := float64(data[anchors+a])
		w := float64(data[2*anchors+a])
		h := float64(data[3*anchors+a])

		x1, y1 := lb.toSource(cx-w/2, cy-h/2)
		x2, y2 := lb.toSource(cx+w/2, cy+h/2)

		boxes = append(boxes, Box{
			X1:      clamp(x1, 0, float64(srcW)),
			Y1:      clamp(y1, 0, float64(srcH)),
			X2:      clamp(x2, 0, float64(srcW)),
			Y2:      clamp(y2, 0, float64(srcH)),
			ClassID: cls,
			Score:   float64(best),
		})
	}
	return boxes
}

// nms performs per-class non-maximum suppression and returns the kept boxes
// ordered by descending score.
func nms(boxes []Box, iouThreshold float64) []Box {
	sorted := make([]Box, len(boxes))
	copy(sorted, boxes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	kept := make([]Box, 0, len(sorted))
	for _, candidate := range sorted {
		suppressed := false
		for _, k := range kept {
			if k.ClassID == candidate.ClassID && k.IoU(candidate) > iouThreshold {
				suppressed = true
				break
			}
		}
		if suppressed {
			continue
		}
		kept = append(kept, candidate)
		if len(kept) == maxDetections {
			break
		}
	}
	return kept
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
