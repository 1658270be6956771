package fsimage

import (
	"errors"
	"fmt"

	"github.com/burnmedia/burnmedia/internal/recorder"
)

// ErrCancelled is returned by Assemble when the cancel signal was seen
// before all items were added.
var ErrCancelled = errors.New("image assembly cancelled")

// AssemblyError is a failure of the image builder.
type AssemblyError struct {
	Op      string
	Item    string // Display name of the item being added, if any
	Code    int
	Message string
	Err     error
}

func newAssemblyError(op, item string, err error) *AssemblyError {
	ae := &AssemblyError{Op: op, Item: item, Code: -1, Message: err.Error(), Err: err}
	var ne *recorder.NativeError
	if errors.As(err, &ne) {
		ae.Code = ne.Code
		if ne.Message != "" {
			ae.Message = ne.Message
		}
	}
	return ae
}

func (e *AssemblyError) Error() string {
	if e.Item != "" {
		return fmt.Sprintf("image %s %q failed (code %d): %s", e.Op, e.Item, e.Code, e.Message)
	}
	return fmt.Sprintf("image %s failed (code %d): %s", e.Op, e.Code, e.Message)
}

func (e *AssemblyError) Unwrap() error {
	return e.Err
}
