package detection

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ParseRequest decodes one request object. Every front end parses its input
// here so that the same bytes yield the same envelope.
//
// Input that is not exactly one JSON object yields an error wrapping
// ErrInvalidRequest. A well-formed object with a mistyped field yields a
// *FieldError.
func ParseRequest(data []byte) (Request, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return Request{}, fmt.Errorf("%w: empty input", ErrInvalidRequest)
	}
	if data[0] != '{' {
		return Request{}, fmt.Errorf("%w: expected an object", ErrInvalidRequest)
	}

	var req Request
	dec := json.NewDecoder(bytes.NewReader(data))
	err := dec.Decode(&req)

	var typeErr *json.UnmarshalTypeError
	if err != nil && !errors.As(err, &typeErr) {
		return Request{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if rest := bytes.TrimSpace(data[dec.InputOffset():]); len(rest) > 0 {
		return Request{}, fmt.Errorf("%w: unexpected data after the request object", ErrInvalidRequest)
	}
	if typeErr != nil {
		return Request{}, &FieldError{Field: typeErr.Field, Expected: typeErr.Type.String()}
	}
	return req, nil
}
