package cdrecord

import (
	"bufio"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/burnmedia/burnmedia/internal/recorder"
)

// session writes one track with cdrecord reading from stdin.
type session struct {
	dev         *device
	opts        recorder.WriteOptions
	startSector int64

	mu        sync.Mutex
	cmd       *exec.Cmd
	cancelled atomic.Bool
}

// args builds the cdrecord command line for an image of sectors sectors.
// The media stays open for further sessions unless CloseMedia is set.
func (s *session) args(sectors int64) []string {
	args := []string{
		"-v",
		"dev=" + s.dev.rec.Device,
		"gracetime=2",
		"-data",
		"-tao",
		fmt.Sprintf("tsize=%ds", sectors),
	}
	if !s.opts.CloseMedia {
		args = append(args, "-multi")
	}
	if s.opts.Simulate {
		args = append(args, "-dummy")
	}
	return append(args, "-")
}

func (s *session) Write(ctx context.Context, img recorder.Image, onEvent func(recorder.WriteEvent)) error {
	if onEvent == nil {
		onEvent = func(recorder.WriteEvent) {}
	}
	if s.cancelled.Load() {
		return recorder.ErrWriteCancelled
	}

	sectors := img.Sectors()
	verify := s.opts.Verification != recorder.VerifyNone && !s.opts.Simulate

	var digest hash.Hash
	var stdin io.Reader = img
	if verify && s.opts.Verification == recorder.VerifyFull {
		digest = sha256.New()
		stdin = io.TeeReader(img, digest)
	}

	args := s.args(sectors)
	s.dev.log.Info("writing image", "sectors", sectors, "args", args)

	cmd := exec.CommandContext(ctx, s.dev.tool, args...)
	cmd.Stdin = stdin
	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	events := newEventBuilder(time.Now(), s.startSector, sectors)
	onEvent(events.action(recorder.ActionValidatingMedia, time.Now()))

	if err := cmd.Start(); err != nil {
		pw.Close()
		return &recorder.NativeError{Op: "write", Code: exitCode(err), Message: err.Error(), Err: err}
	}
	s.mu.Lock()
	s.cmd = cmd
	s.mu.Unlock()
	if s.cancelled.Load() {
		s.interrupt(cmd)
	}

	waitErr := make(chan error, 1)
	go func() {
		err := cmd.Wait()
		pw.Close()
		waitErr <- err
	}()

	var lastMsg string
	scanner := bufio.NewScanner(pr)
	scanner.Split(scanLines)
	for scanner.Scan() {
		line := scanner.Text()
		p, ok := parseProgressLine(line)
		if !ok {
			if t := strings.TrimSpace(line); t != "" {
				lastMsg = t
			}
			continue
		}
		if p.isTrack {
			onEvent(events.track(p, time.Now()))
		} else {
			onEvent(events.action(p.action, time.Now()))
		}
	}
	// Keep the tool from blocking on output if the scanner gave up.
	_, _ = io.Copy(io.Discard, pr)

	err := <-waitErr
	s.mu.Lock()
	s.cmd = nil
	s.mu.Unlock()

	if err != nil {
		switch {
		case s.cancelled.Load():
			return fmt.Errorf("%w: %s", recorder.ErrWriteCancelled, lastLine(lastMsg, err.Error()))
		case ctx.Err() != nil:
			return fmt.Errorf("write interrupted: %w", ctx.Err())
		default:
			return &recorder.NativeError{Op: "write", Code: exitCode(err), Message: lastLine(lastMsg, err.Error()), Err: err}
		}
	}

	if verify {
		onEvent(events.action(recorder.ActionVerifying, time.Now()))
		if err := s.verify(ctx, sectors, digest); err != nil {
			return err
		}
	}
	onEvent(events.action(recorder.ActionCompleted, time.Now()))
	return nil
}

func (s *session) CancelWrite() error {
	s.cancelled.Store(true)
	s.mu.Lock()
	cmd := s.cmd
	s.mu.Unlock()
	if cmd == nil {
		return nil
	}
	return s.interrupt(cmd)
}

// interrupt asks cdrecord to stop the way Ctrl-C would.
func (s *session) interrupt(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	s.dev.log.Info("interrupting write", "pid", cmd.Process.Pid)
	if err := cmd.Process.Signal(os.Interrupt); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return &recorder.NativeError{Op: "cancel write", Code: errnoOf(err), Message: err.Error(), Err: err}
	}
	return nil
}

func (s *session) Close() error {
	s.mu.Lock()
	cmd := s.cmd
	s.mu.Unlock()
	if cmd != nil && cmd.Process != nil {
		return cmd.Process.Kill()
	}
	return nil
}
