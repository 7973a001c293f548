//go:build gocv
// +build gocv

package detector

import (
	"bytes"
	"errors"

	"gocv.io/x/gocv"

	"github.com/ayusman/signlens/internal/imaging"
)

// encodeFrame converts the RGB image to an OpenCV BGR Mat and encodes it as PNG.
func encodeFrame(img *imaging.RGB) ([]byte, error) {
	if img.Width() == 0 || img.Height() == 0 {
		return nil, errors.New("empty image")
	}

	rgb, err := gocv.NewMatFromBytes(img.Height(), img.Width(), gocv.MatTypeCV8UC3, compactPix(img))
	if err != nil {
		return nil, err
	}
	defer rgb.Close()

	bgr := gocv.NewMat()
	defer bgr.Close()
	gocv.CvtColor(rgb, &bgr, gocv.ColorRGBToBGR)

	buf, err := gocv.IMEncode(gocv.PNGFileExt, bgr)
	if err != nil {
		return nil, err
	}
	defer buf.Close()

	return bytes.Clone(buf.GetBytes()), nil
}

// compactPix returns the pixel rows without stride padding.
func compactPix(img *imaging.RGB) []byte {
	rowLen := 3 * img.Width()
	if img.Stride == rowLen {
		return img.Pix[:rowLen*img.Height()]
	}
	out := make([]byte, 0, rowLen*img.Height())
	for y := 0; y < img.Height(); y++ {
		start := y * img.Stride
		out = append(out, img.Pix[start:start+rowLen]...)
	}
	return out
}
