package mkisofs

import (
	"bufio"
	"errors"
	"io"
	"os/exec"
	"sync"

	"github.com/burnmedia/burnmedia/internal/recorder"
)

// stream is the stdout of a running image tool.
type stream struct {
	r       *bufio.Reader
	pipe    io.Closer
	cmd     *exec.Cmd
	stderr  *tailBuffer
	sectors int64
	cleanup func()

	eof       bool
	closeOnce sync.Once
	closeErr  error
}

func (s *stream) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	if errors.Is(err, io.EOF) {
		s.eof = true
	}
	return n, err
}

func (s *stream) Sectors() int64 {
	return s.sectors
}

// Close stops the tool if the image was not read to the end and waits for
// it to exit. A tool failure after a full read is reported.
func (s *stream) Close() error {
	s.closeOnce.Do(func() {
		if !s.eof {
			s.pipe.Close()
		}
		err := s.cmd.Wait()
		if s.cleanup != nil {
			s.cleanup()
		}
		if err != nil && s.eof {
			s.closeErr = &recorder.NativeError{
				Op:      "build image",
				Code:    exitCode(err),
				Message: lastLine(s.stderr.String(), err.Error()),
				Err:     err,
			}
		}
	})
	return s.closeErr
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	max int
	buf []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.max; over > 0 {
		t.buf = t.buf[over:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}
