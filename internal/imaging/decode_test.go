package imaging

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/signlens/internal/fixtures"
)

func TestDecode_DataURLPrefix(t *testing.T) {
	raw := fixtures.PNG(fixtures.Gradient(8, 6))

	bare, bareFormat, err := Decode(fixtures.Base64(raw))
	require.NoError(t, err)

	prefixed, prefixedFormat, err := Decode(fixtures.DataURL("image/png", raw))
	require.NoError(t, err)

	assert.Equal(t, "png", bareFormat)
	assert.Equal(t, bareFormat, prefixedFormat)
	assert.Equal(t, bare.Rect, prefixed.Rect)
	assert.Equal(t, bare.Pix, prefixed.Pix)
}

func TestDecode_ConvertsToRGB(t *testing.T) {
	t.Run("opaque png keeps every pixel", func(t *testing.T) {
		src := fixtures.Gradient(5, 4)
		img, _, err := Decode(fixtures.PNGBase64(5, 4))
		require.NoError(t, err)

		assert.Equal(t, 3*5*4, len(img.Pix))
		for y := 0; y < 4; y++ {
			for x := 0; x < 5; x++ {
				want := src.NRGBAAt(x, y)
				got := img.RGBAt(x, y)
				assert.Equal(t, color.RGBA{R: want.R, G: want.G, B: want.B, A: 0xff}, got)
			}
		}
	})

	t.Run("grayscale expands to three equal channels", func(t *testing.T) {
		src := fixtures.Gray(6, 3)
		img, _, err := Decode(fixtures.Base64(fixtures.PNG(src)))
		require.NoError(t, err)

		assert.Equal(t, image.Rect(0, 0, 6, 3), img.Bounds())
		for y := 0; y < 3; y++ {
			for x := 0; x < 6; x++ {
				v := src.GrayAt(x, y).Y
				got := img.RGBAt(x, y)
				assert.Equal(t, [3]uint8{v, v, v}, [3]uint8{got.R, got.G, got.B})
			}
		}
	})

	t.Run("alpha is dropped without premultiplying", func(t *testing.T) {
		src := fixtures.Translucent(2, 2, color.NRGBA{R: 200, G: 100, B: 50, A: 128})
		img, _, err := Decode(fixtures.DataURL("image/png", fixtures.PNG(src)))
		require.NoError(t, err)

		got := img.RGBAt(1, 1)
		assert.Equal(t, color.RGBA{R: 200, G: 100, B: 50, A: 0xff}, got)
	})

	t.Run("paletted gif expands to RGB", func(t *testing.T) {
		src := fixtures.Paletted(4, 4)
		img, format, err := Decode(fixtures.Base64(fixtures.GIF(src)))
		require.NoError(t, err)

		assert.Equal(t, "gif", format)
		assert.Equal(t, 3*16, len(img.Pix))
		r, g, b, _ := src.At(2, 1).RGBA()
		got := img.RGBAt(2, 1)
		assert.Equal(t, [3]uint8{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8)}, [3]uint8{got.R, got.G, got.B})
	})

	t.Run("jpeg decodes", func(t *testing.T) {
		img, format, err := Decode(fixtures.Base64(fixtures.JPEG(fixtures.Gradient(16, 16))))
		require.NoError(t, err)
		assert.Equal(t, "jpeg", format)
		assert.Equal(t, 16, img.Width())
		assert.Equal(t, 16, img.Height())
	})
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		stage   string
	}{
		{name: "invalid alphabet", payload: "not-base64!!", stage: StageBase64},
		{name: "truncated base64", payload: "iVBORw0KGgo=x", stage: StageBase64},
		{name: "valid base64 but not an image", payload: fixtures.Base64([]byte("hello, world")), stage: StageImage},
		{name: "empty after prefix", payload: "data:image/png;base64,", stage: StageImage},
		{name: "truncated png", payload: fixtures.Base64(fixtures.PNG(fixtures.Gradient(4, 4))[:20]), stage: StageImage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, _, err := Decode(tt.payload)
			require.Error(t, err)
			assert.Nil(t, img)

			var decodeErr *DecodeError
			require.True(t, errors.As(err, &decodeErr))
			assert.Equal(t, tt.stage, decodeErr.Stage)
			assert.NotEmpty(t, err.Error())
		})
	}
}

// pngHeader returns a PNG that declares a w x h grayscale image but carries no pixel data.
func pngHeader(w, h uint32) []byte {
	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")

	chunk := func(kind string, data []byte) {
		binary.Write(&buf, binary.BigEndian, uint32(len(data)))
		body := append([]byte(kind), data...)
		buf.Write(body)
		binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(body))
	}

	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], w)
	binary.BigEndian.PutUint32(ihdr[4:8], h)
	ihdr[8] = 8 // bit depth, colour type 0 (gray)
	chunk("IHDR", ihdr)
	chunk("IEND", nil)
	return buf.Bytes()
}

func TestDecode_RejectsOversizedImage(t *testing.T) {
	for _, size := range [][2]uint32{{16000, 16000}, {65535, 65535}, {MaxPixels + 1, 1}} {
		payload := fixtures.Base64(pngHeader(size[0], size[1]))

		img, _, err := Decode(payload)
		require.Error(t, err)
		assert.Nil(t, img)

		var decodeErr *DecodeError
		require.True(t, errors.As(err, &decodeErr))
		assert.Equal(t, StageImage, decodeErr.Stage)
		assert.Contains(t, err.Error(), "pixel limit")
	}
}

func TestDecodeBase64(t *testing.T) {
	t.Run("ignores line breaks", func(t *testing.T) {
		data, err := DecodeBase64("aGVs\nbG8=")
		require.NoError(t, err)
		assert.Equal(t, []byte("hello"), data)
	})

	t.Run("accepts missing padding", func(t *testing.T) {
		data, err := DecodeBase64("aGVsbG8")
		require.NoError(t, err)
		assert.Equal(t, []byte("hello"), data)
	})
}

func TestStripDataURL(t *testing.T) {
	assert.Equal(t, "abc", StripDataURL("data:image/jpeg;base64,abc"))
	assert.Equal(t, "abc", StripDataURL("abc"))
	assert.Equal(t, "abc,def", StripDataURL("x,abc,def"))
}

func TestToRGB_ReturnsSameRGB(t *testing.T) {
	img := NewRGB(image.Rect(0, 0, 2, 2))
	assert.Same(t, img, ToRGB(img))
}

func TestRGB_SetAndAt(t *testing.T) {
	img := NewRGB(image.Rect(0, 0, 3, 3))
	img.Set(1, 2, color.NRGBA{R: 10, G: 20, B: 30, A: 40})

	assert.Equal(t, color.RGBA{R: 10, G: 20, B: 30, A: 0xff}, img.RGBAt(1, 2))
	assert.Equal(t, color.RGBA{}, img.RGBAt(5, 5))
}
