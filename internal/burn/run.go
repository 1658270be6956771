package burn

import (
	"context"
	"sync"
	"sync/atomic"
)

// Run is the handle of an active job. Status delivers every progress
// snapshot in order and is closed after the terminal one. It has a
// single consumer, which must keep reading until the channel closes.
type Run struct {
	job    Job
	ctx    context.Context
	status chan Status
	done   chan struct{}
	cancel atomic.Bool

	mu     sync.Mutex
	last   Status
	result Result
}

func newRun(ctx context.Context, job Job, buffer int) *Run {
	if buffer < 0 {
		buffer = 0
	}
	return &Run{
		job:    job,
		ctx:    ctx,
		status: make(chan Status, buffer),
		done:   make(chan struct{}),
		last:   Status{JobID: job.ID, Phase: Idle},
	}
}

// Job returns the job snapshot the run was started with.
func (r *Run) Job() Job {
	return r.job
}

// Status returns the progress channel.
func (r *Run) Status() <-chan Status {
	return r.status
}

// Cancel sets the cancel signal. The worker notices it before the next
// image item or on the next write event.
func (r *Run) Cancel() {
	r.cancel.Store(true)
}

// Cancelled reports whether cancellation has been requested.
func (r *Run) Cancelled() bool {
	return r.cancel.Load()
}

// Phase returns the phase of the last emitted status.
func (r *Run) Phase() Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last.Phase
}

// Last returns the most recent status.
func (r *Run) Last() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// Done is closed once the job has finished and Status is closed.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the job finishes and returns its result. The Status
// channel must be drained concurrently.
func (r *Run) Wait() Result {
	<-r.done
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.result
}

func (r *Run) emit(s Status) {
	s.JobID = r.job.ID
	r.mu.Lock()
	r.last = s
	r.mu.Unlock()

	select {
	case r.status <- s:
	case <-r.ctx.Done():
	}
}

func (r *Run) finish(res Result) {
	r.mu.Lock()
	r.result = res
	r.mu.Unlock()
}

func (r *Run) close() {
	close(r.status)
	close(r.done)
}
