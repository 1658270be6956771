package recorder

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedEnvironment means no recording capability is available.
	ErrUnsupportedEnvironment = errors.New("no disc recording support available")

	// ErrRecorderNotSupported means the selected recorder cannot burn data discs.
	ErrRecorderNotSupported = errors.New("recorder not supported")

	// ErrMediaNotSupported means the loaded media cannot be written.
	ErrMediaNotSupported = errors.New("media not supported")

	// ErrWriteCancelled means a write ended because cancellation was requested.
	ErrWriteCancelled = errors.New("write cancelled")

	// ErrRecorderNotFound means no recorder matches the requested ID.
	ErrRecorderNotFound = errors.New("recorder not found")
)

// NativeError carries the code and message reported by the native layer.
type NativeError struct {
	Op      string
	Code    int
	Message string
	Err     error
}

func (e *NativeError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s failed (code %d)", e.Op, e.Code)
	}
	return fmt.Sprintf("%s failed (code %d): %s", e.Op, e.Code, e.Message)
}

func (e *NativeError) Unwrap() error {
	return e.Err
}

// ErrorCode extracts the native code from err, or -1 when err carries none.
func ErrorCode(err error) int {
	if err == nil {
		return 0
	}
	var ne *NativeError
	if errors.As(err, &ne) {
		return ne.Code
	}
	return -1
}
