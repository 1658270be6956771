// Package burn runs burn jobs: it builds the file-system image, writes it
// to the recorder with live progress and cancellation, and ejects the
// media afterwards.
package burn

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/burnmedia/burnmedia/internal/fsimage"
	"github.com/burnmedia/burnmedia/internal/logging"
	"github.com/burnmedia/burnmedia/internal/media"
	"github.com/burnmedia/burnmedia/internal/recorder"
)

// Assembler builds the image for a job.
type Assembler interface {
	Assemble(ctx context.Context, req fsimage.Request, cancelled func() bool, onProgress func(fsimage.Progress)) (fsimage.Image, error)
}

// Options configures an Orchestrator.
type Options struct {
	Service   recorder.Service
	Assembler Assembler
	Messages  Messages

	// StatusBuffer is the capacity of each run's status channel.
	StatusBuffer int

	// OnFinish, if set, is called with every result before Wait returns.
	OnFinish func(Result)
}

// Orchestrator runs at most one burn job at a time.
type Orchestrator struct {
	svc      recorder.Service
	asm      Assembler
	tr       *Translator
	buffer   int
	onFinish func(Result)
	log      *logging.Logger

	mu     sync.Mutex
	active *Run
}

// New returns an idle orchestrator.
func New(opts Options) *Orchestrator {
	msgs := opts.Messages
	if msgs.Actions == nil || msgs.Phases == nil {
		msgs = DefaultMessages()
	}
	return &Orchestrator{
		svc:      opts.Service,
		asm:      opts.Assembler,
		tr:       NewTranslator(msgs),
		buffer:   opts.StatusBuffer,
		onFinish: opts.OnFinish,
		log:      logging.Get("burn"),
	}
}

// Start begins burning items with job on a background worker. If a job is
// already running it is asked to cancel instead, and ErrJobActive is
// returned.
func (o *Orchestrator) Start(ctx context.Context, job Job, items []*media.Item) (*Run, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.active != nil {
		o.log.Info("burn requested while active, cancelling", "job", o.active.job.ID)
		o.active.Cancel()
		return nil, ErrJobActive
	}

	queued := make([]*media.Item, len(items))
	copy(queued, items)

	run := newRun(ctx, job, o.buffer)
	o.active = run
	go o.work(ctx, run, queued)
	return run, nil
}

// Cancel sets the cancel signal of the active job and reports whether
// there was one.
func (o *Orchestrator) Cancel() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.active == nil {
		return false
	}
	o.active.Cancel()
	return true
}

// State returns the phase of the active job, or Idle.
func (o *Orchestrator) State() Phase {
	o.mu.Lock()
	run := o.active
	o.mu.Unlock()
	if run == nil {
		return Idle
	}
	return run.Phase()
}

// Active returns the running job, or nil.
func (o *Orchestrator) Active() *Run {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active
}

func (o *Orchestrator) work(ctx context.Context, run *Run, items []*media.Item) {
	started := time.Now()
	res := Result{
		JobID:       run.job.ID,
		RecorderID:  run.job.RecorderID,
		VolumeLabel: run.job.VolumeLabel,
		Items:       len(items),
		Started:     started,
	}
	for _, it := range items {
		res.Bytes += it.SizeOnDisc()
	}

	defer func() {
		if p := recover(); p != nil {
			o.log.Error("burn worker panicked", "job", run.job.ID, "panic", p)
			res = o.failed(res, fmt.Errorf("burn worker panic: %v", p), -1)
		}
		res.Finished = time.Now()
		res.Message = o.tr.Phase(res.Phase)
		o.announce(run, res)

		o.mu.Lock()
		if o.active == run {
			o.active = nil
		}
		o.mu.Unlock()

		run.finish(res)
		if o.onFinish != nil {
			o.onFinish(res)
		}
		run.close()
	}()

	o.log.Info("burn started",
		"job", run.job.ID,
		"recorder", run.job.RecorderID,
		"label", run.job.VolumeLabel,
		"items", len(items))
	res = o.execute(ctx, run, items, res)
}

// announce emits the terminal status.
func (o *Orchestrator) announce(run *Run, res Result) {
	last := run.Last()
	st := Status{Phase: res.Phase, Message: res.Message, Percent: last.Percent, WriteEvent: last.WriteEvent}
	if res.Phase == Completed {
		st.Percent = 100
	}
	switch res.Phase {
	case Completed:
		o.log.Info("burn completed", "job", res.JobID, "took", time.Since(res.Started).Round(time.Millisecond))
	case Cancelled:
		o.log.Info("burn cancelled", "job", res.JobID)
	default:
		o.log.Error("burn failed", "job", res.JobID, "code", res.Code, "error", res.Err)
	}
	run.emit(st)
}

// execute runs the job and returns its result. Acquired handles are
// released in reverse order on every path.
func (o *Orchestrator) execute(ctx context.Context, run *Run, items []*media.Item, res Result) Result {
	job := run.job
	run.emit(Status{Phase: BuildingFileSystem, Message: o.tr.Phase(BuildingFileSystem)})

	dev, err := o.svc.Open(ctx, job.RecorderID)
	if err != nil {
		return o.failed(res, err, recorder.ErrorCode(err))
	}
	defer o.release("recorder", dev)

	info, err := dev.DetectMedia(ctx)
	if err != nil {
		return o.failed(res, err, recorder.ErrorCode(err))
	}
	var ms *recorder.Multisession
	if !info.Blank {
		ms = info.Multisession
	}

	img, err := o.asm.Assemble(ctx, fsimage.Request{
		Items:        items,
		VolumeLabel:  job.VolumeLabel,
		MediaType:    info.Type,
		Multisession: ms,
	}, run.Cancelled, func(p fsimage.Progress) {
		msg, pct := o.tr.Building(p)
		run.emit(Status{Phase: BuildingFileSystem, Message: msg, Percent: pct, CurrentFile: p.CurrentFile})
	})
	if errors.Is(err, fsimage.ErrCancelled) {
		return o.cancelled(res)
	}
	if err != nil {
		code := -1
		var ae *fsimage.AssemblyError
		if errors.As(err, &ae) {
			code = ae.Code
		}
		return o.failed(res, err, code)
	}
	defer o.release("image", img)

	if run.Cancelled() {
		return o.cancelled(res)
	}

	session, err := dev.OpenSession(ctx, recorder.WriteOptions{
		ClientName:   recorder.ClientName,
		CloseMedia:   job.CloseMedia,
		Verification: job.Verification,
		Simulate:     job.Simulate,
	})
	if err != nil {
		return o.failed(res, err, recorder.ErrorCode(err))
	}
	defer o.release("write session", session)

	run.emit(Status{Phase: Writing, Message: o.tr.Phase(Writing)})

	var stopped atomic.Bool
	err = session.Write(ctx, img, func(ev recorder.WriteEvent) {
		if stopped.Load() {
			return
		}
		if run.Cancelled() {
			stopped.Store(true)
			o.log.Info("cancelling write", "job", job.ID)
			if cerr := session.CancelWrite(); cerr != nil {
				o.log.Warn("cancel write request failed", "job", job.ID, "error", cerr)
			}
			return
		}
		msg, pct := o.tr.Writing(ev)
		o.log.Debug("write event", "action", ev.CurrentAction, "percent", pct)
		run.emit(Status{Phase: Writing, Message: msg, Percent: pct, WriteEvent: ev})
	})

	switch {
	case err == nil:
		res.Phase = Completed
		if job.EjectAfterWrite {
			if eerr := dev.Eject(ctx); eerr != nil {
				o.log.Warn("eject failed", "job", job.ID, "error", eerr)
				res.EjectErr = &EjectError{Device: dev.Recorder().Device, Err: eerr}
			}
		}
		return res
	case errors.Is(err, recorder.ErrWriteCancelled):
		return o.cancelled(res)
	default:
		we := newWriteError(err)
		return o.failed(res, we, we.Code)
	}
}

func (o *Orchestrator) failed(res Result, err error, code int) Result {
	res.Phase = Failed
	res.Err = err
	res.Code = code
	return res
}

func (o *Orchestrator) cancelled(res Result) Result {
	res.Phase = Cancelled
	res.Err = ErrCancelledByUser
	return res
}

// release closes c, logging failures so cleanup of the remaining
// handles continues.
func (o *Orchestrator) release(what string, c io.Closer) {
	if err := c.Close(); err != nil {
		o.log.Warn("releasing "+what, "error", err)
	}
}
