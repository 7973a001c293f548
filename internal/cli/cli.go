// Package cli implements the one-shot stdin/stdout front end.
package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/ayusman/signlens/internal/detection"
)

// Exit codes.
const (
	ExitOK       = 0
	ExitBadInput = 1
)

// Run reads one JSON request from in, writes exactly one envelope to out and
// returns the process exit code. A non-nil startupErr means the detector
// could not be loaded; the request is answered with a failure envelope.
func Run(in io.Reader, out io.Writer, p *detection.Pipeline, startupErr error) int {
	data, err := io.ReadAll(in)
	if err != nil {
		return write(out, detection.Failed(fmt.Errorf("read input: %w", err)), ExitBadInput)
	}

	req, err := detection.ParseRequest(data)
	if err != nil {
		// A parsed object with a mistyped field is a request-level failure.
		code := ExitOK
		if errors.Is(err, detection.ErrInvalidRequest) {
			code = ExitBadInput
		}
		return write(out, detection.Failed(err), code)
	}

	if startupErr != nil {
		return write(out, detection.Failed(fmt.Errorf("%w: %v", detection.ErrModelNotLoaded, startupErr)), ExitOK)
	}

	return write(out, p.Handle(req), ExitOK)
}

// Abort writes a failure envelope for a setup error that happened before a
// request could be read, and returns ExitBadInput.
func Abort(out io.Writer, err error) int {
	write(out, detection.Failed(err), ExitBadInput)
	return ExitBadInput
}

func write(out io.Writer, r detection.Result, code int) int {
	if err := detection.Encode(out, r); err != nil {
		return ExitBadInput
	}
	return code
}
