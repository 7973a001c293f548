//go:build !gocv
// +build !gocv

package detector

import (
	"bytes"
	"errors"
	"image/png"

	"github.com/ayusman/signlens/internal/imaging"
)

// encodeFrame encodes the image as PNG without OpenCV.
func encodeFrame(img *imaging.RGB) ([]byte, error) {
	if img.Width() == 0 || img.Height() == 0 {
		return nil, errors.New("empty image")
	}

	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
