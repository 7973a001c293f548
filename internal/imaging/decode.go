package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Decode stages reported in DecodeError.
const (
	StageBase64 = "base64"
	StageImage  = "image"
)

// MaxPixels bounds the declared size of a decoded image. Larger images are
// rejected from their header, before any pixel buffer is allocated.
const MaxPixels = 89_478_485

// DecodeError is returned when a payload cannot be turned into an image.
type DecodeError struct {
	Stage string
	Err   error
}

func (e *DecodeError) Error() string {
	switch e.Stage {
	case StageBase64:
		return fmt.Sprintf("invalid base64 payload: %v", e.Err)
	default:
		return fmt.Sprintf("cannot identify image: %v", e.Err)
	}
}

func (e *DecodeError) Unwrap() error { return e.Err }

// StripDataURL returns the part of payload after the first comma, so that
// "data:image/png;base64,<B>" and "<B>" decode identically.
func StripDataURL(payload string) string {
	if _, data, found := strings.Cut(payload, ","); found {
		return data
	}
	return payload
}

// DecodeBase64 decodes standard base64, ignoring whitespace and accepting missing padding.
func DecodeBase64(payload string) ([]byte, error) {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\r', '\n':
			return -1
		}
		return r
	}, payload)

	enc := base64.StdEncoding
	if len(clean)%4 != 0 && !strings.Contains(clean, "=") {
		enc = base64.RawStdEncoding
	}

	data, err := enc.DecodeString(clean)
	if err != nil {
		return nil, &DecodeError{Stage: StageBase64, Err: err}
	}
	return data, nil
}

// Decode turns a base64 payload, optionally carrying a data-URL header, into an RGB image.
// It also returns the name of the container format that was detected.
func Decode(payload string) (*RGB, string, error) {
	data, err := DecodeBase64(StripDataURL(payload))
	if err != nil {
		return nil, "", err
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", &DecodeError{Stage: StageImage, Err: err}
	}
	if pixels := int64(cfg.Width) * int64(cfg.Height); pixels > MaxPixels {
		return nil, "", &DecodeError{
			Stage: StageImage,
			Err:   fmt.Errorf("image size %dx%d exceeds the %d pixel limit", cfg.Width, cfg.Height, MaxPixels),
		}
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", &DecodeError{Stage: StageImage, Err: err}
	}

	return ToRGB(img), format, nil
}
