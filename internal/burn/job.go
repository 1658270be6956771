package burn

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/burnmedia/burnmedia/internal/recorder"
)

// Job is the snapshot of a burn request. It does not change once the
// burn has started.
type Job struct {
	ID              uuid.UUID
	RecorderID      string
	VolumeLabel     string
	CloseMedia      bool
	EjectAfterWrite bool
	Verification    recorder.Verification
	Simulate        bool
}

// NewJob returns a job for recorderID with a fresh ID. An empty label is
// replaced by today's date. Media is closed by default.
func NewJob(recorderID, label string) Job {
	if label == "" {
		label = DefaultVolumeLabel(time.Now())
	}
	return Job{
		ID:          uuid.New(),
		RecorderID:  recorderID,
		VolumeLabel: label,
		CloseMedia:  true,
	}
}

// DefaultVolumeLabel formats t as YYYY_M_D.
func DefaultVolumeLabel(t time.Time) string {
	return fmt.Sprintf("%d_%d_%d", t.Year(), int(t.Month()), t.Day())
}

// Result is the outcome of a finished job.
type Result struct {
	JobID       uuid.UUID
	RecorderID  string
	VolumeLabel string
	Phase       Phase // Always Completed, Failed or Cancelled
	Message     string
	Code        int   // Native error code of a failure, 0 otherwise
	Err         error // Why the job did not complete
	EjectErr    error // Eject failure after a completed write
	Items       int
	Bytes       int64
	Started     time.Time
	Finished    time.Time
}

// Duration returns how long the job ran.
func (r Result) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}
