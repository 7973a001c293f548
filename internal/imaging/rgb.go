// Package imaging decodes base64 image payloads into 3-channel RGB images.
package imaging

import (
	"image"
	"image/color"
)

// RGB is an in-memory image with three 8-bit channels per pixel and no alpha.
// Pix holds R, G, B in row-major order.
type RGB struct {
	Pix    []uint8
	Stride int
	Rect   image.Rectangle
}

// NewRGB allocates an RGB image with the given bounds.
func NewRGB(r image.Rectangle) *RGB {
	w, h := r.Dx(), r.Dy()
	return &RGB{
		Pix:    make([]uint8, 3*w*h),
		Stride: 3 * w,
		Rect:   r,
	}
}

// ColorModel implements image.Image.
func (p *RGB) ColorModel() color.Model { return color.RGBAModel }

// Bounds implements image.Image.
func (p *RGB) Bounds() image.Rectangle { return p.Rect }

// At implements image.Image. Every pixel is fully opaque.
func (p *RGB) At(x, y int) color.Color {
	return p.RGBAt(x, y)
}

// RGBAt returns the pixel at (x, y) as an opaque color.RGBA.
func (p *RGB) RGBAt(x, y int) color.RGBA {
	if !(image.Point{x, y}.In(p.Rect)) {
		return color.RGBA{}
	}
	i := p.PixOffset(x, y)
	return color.RGBA{R: p.Pix[i], G: p.Pix[i+1], B: p.Pix[i+2], A: 0xff}
}

// Set stores the colour at (x, y), discarding alpha.
func (p *RGB) Set(x, y int, c color.Color) {
	if !(image.Point{x, y}.In(p.Rect)) {
		return
	}
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	i := p.PixOffset(x, y)
	p.Pix[i], p.Pix[i+1], p.Pix[i+2] = n.R, n.G, n.B
}

// PixOffset returns the index of the first byte of the pixel at (x, y).
func (p *RGB) PixOffset(x, y int) int {
	return (y-p.Rect.Min.Y)*p.Stride + (x-p.Rect.Min.X)*3
}

// Width returns the image width in pixels.
func (p *RGB) Width() int { return p.Rect.Dx() }

// Height returns the image height in pixels.
func (p *RGB) Height() int { return p.Rect.Dy() }

// ToRGB converts any image to RGB.
// Alpha is dropped without compositing, so a semi-transparent pixel keeps its
// straight (non-premultiplied) colour. Paletted and grayscale images are expanded.
func ToRGB(src image.Image) *RGB {
	if rgb, ok := src.(*RGB); ok {
		return rgb
	}

	b := src.Bounds()
	dst := NewRGB(image.Rect(0, 0, b.Dx(), b.Dy()))

	switch s := src.(type) {
	case *image.NRGBA:
		for y := 0; y < b.Dy(); y++ {
			si := s.PixOffset(b.Min.X, b.Min.Y+y)
			di := y * dst.Stride
			for x := 0; x < b.Dx(); x++ {
				dst.Pix[di], dst.Pix[di+1], dst.Pix[di+2] = s.Pix[si], s.Pix[si+1], s.Pix[si+2]
				si += 4
				di += 3
			}
		}
	case *image.Gray:
		for y := 0; y < b.Dy(); y++ {
			si := s.PixOffset(b.Min.X, b.Min.Y+y)
			di := y * dst.Stride
			for x := 0; x < b.Dx(); x++ {
				v := s.Pix[si]
				dst.Pix[di], dst.Pix[di+1], dst.Pix[di+2] = v, v, v
				si++
				di += 3
			}
		}
	default:
		for y := 0; y < b.Dy(); y++ {
			di := y * dst.Stride
			for x := 0; x < b.Dx(); x++ {
				n := color.NRGBAModel.Convert(src.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
				dst.Pix[di], dst.Pix[di+1], dst.Pix[di+2] = n.R, n.G, n.B
				di += 3
			}
		}
	}

	return dst
}
