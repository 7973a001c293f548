package detector

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/nfnt/resize"
)

// padGray is the letterbox fill value used when the model was trained.
const padGray = 114

// letterbox records how a source image was fitted into the square model input.
type letterbox struct {
	Scale float64
	PadX  float64
	PadY  float64
}

// letterboxImage scales img to fit a size×size square keeping its aspect ratio
// and centres it on a grey canvas.
func letterboxImage(img image.Image, size int) (*image.RGBA, letterbox) {
	b := img.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())

	scale := math.Min(float64(size)/w, float64(size)/h)
	nw := int(math.Round(w * scale))
	nh := int(math.Round(h * scale))
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}

	resized := resize.Resize(uint(nw), uint(nh), img, resize.Bilinear)

	canvas := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{C: color.RGBA{R: padGray, G: padGray, B: padGray, A: 0xff}}, image.Point{}, draw.Src)

	padX := (size - nw) / 2
	padY := (size - nh) / 2
	dst := image.Rect(padX, padY, padX+nw, padY+nh)
	draw.Draw(canvas, dst, resized, resized.Bounds().Min, draw.Src)

	return canvas, letterbox{Scale: scale, PadX: float64(padX), PadY: float64(padY)}
}

// toSource maps a point in model input space back to source pixels.
func (l letterbox) toSource(x, y float64) (float64, float64) {
	return (x - l.PadX) / l.Scale, (y - l.PadY) / l.Scale
}

// fillInput writes the canvas into a CHW float32 tensor normalised to [0, 1].
func fillInput(dst []float32, canvas *image.RGBA, size int) {
	plane := size * size
	for y := 0; y < size; y++ {
		row := canvas.PixOffset(0, y)
		for x := 0; x < size; x++ {
			i := row + x*4
			p := y*size + x
			dst[p] = float32(canvas.Pix[i]) / 255
			dst[plane+p] = float32(canvas.Pix[i+1]) / 255
			dst[2*plane+p] = float32(canvas.Pix[i+2]) / 255
		}
	}
}
