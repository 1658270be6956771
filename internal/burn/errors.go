package burn

import (
	"errors"
	"fmt"

	"github.com/burnmedia/burnmedia/internal/recorder"
)

var (
	// ErrCancelledByUser is recorded on jobs that ended because the user
	// asked them to stop.
	ErrCancelledByUser = errors.New("burn cancelled by user")

	// ErrJobActive is returned by Start while another job runs. The
	// running job is asked to cancel.
	ErrJobActive = errors.New("a burn is already in progress")
)

// WriteError is a write failure other than cancellation.
type WriteError struct {
	Code    int
	Message string
	Err     error
}

func newWriteError(err error) *WriteError {
	we := &WriteError{Code: recorder.ErrorCode(err), Message: err.Error(), Err: err}
	var ne *recorder.NativeError
	if errors.As(err, &ne) && ne.Message != "" {
		we.Message = ne.Message
	}
	return we
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write failed (code %d): %s", e.Code, e.Message)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// EjectError is an eject failure after a completed write.
type EjectError struct {
	Device string
	Err    error
}

func (e *EjectError) Error() string {
	return fmt.Sprintf("eject %s: %v", e.Device, e.Err)
}

func (e *EjectError) Unwrap() error {
	return e.Err
}
