package burn

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/burnmedia/burnmedia/internal/fsimage"
	"github.com/burnmedia/burnmedia/internal/media"
	"github.com/burnmedia/burnmedia/internal/recorder"
)

// journal records resource lifecycle calls across the fakes.
type journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *journal) add(format string, args ...any) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, fmt.Sprintf(format, args...))
}

func (j *journal) list() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.entries...)
}

type fakeService struct {
	dev     *fakeDevice
	openErr error
}

func (s *fakeService) Recorders(context.Context) ([]recorder.Recorder, error) {
	return []recorder.Recorder{s.dev.rec}, nil
}

func (s *fakeService) Open(_ context.Context, id string) (recorder.Device, error) {
	if s.openErr != nil {
		return nil, s.openErr
	}
	if id != s.dev.rec.ID {
		return nil, recorder.ErrRecorderNotFound
	}
	s.dev.j.add("open device")
	return s.dev, nil
}

type fakeDevice struct {
	j        *journal
	rec      recorder.Recorder
	media    recorder.MediaInfo
	mediaErr error
	session  *fakeSession
	ejectErr error
	ejected  int
	sessions int
	opts     recorder.WriteOptions
}

func (d *fakeDevice) Recorder() recorder.Recorder { return d.rec }

func (d *fakeDevice) DetectMedia(context.Context) (recorder.MediaInfo, error) {
	return d.media, d.mediaErr
}

func (d *fakeDevice) OpenSession(_ context.Context, opts recorder.WriteOptions) (recorder.Session, error) {
	d.sessions++
	d.opts = opts
	d.j.add("open session")
	return d.session, nil
}

func (d *fakeDevice) Eject(context.Context) error {
	d.ejected++
	d.j.add("eject")
	return d.ejectErr
}

func (d *fakeDevice) Close() error {
	d.j.add("close device")
	return errors.New("device busy") // cleanup failures must not change the outcome
}

type fakeSession struct {
	j        *journal
	events   []recorder.WriteEvent
	beforeEv func(i int)
	writeErr error
	block    chan struct{}

	mu        sync.Mutex
	cancels   int
	cancelled bool
	written   int64
}

func (s *fakeSession) Write(ctx context.Context, img recorder.Image, onEvent func(recorder.WriteEvent)) error {
	s.j.add("write")
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	for i, ev := range s.events {
		if s.beforeEv != nil {
			s.beforeEv(i)
		}
		onEvent(ev)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.written = img.Sectors()
	if s.cancelled {
		return fmt.Errorf("engine stopped: %w", recorder.ErrWriteCancelled)
	}
	return s.writeErr
}

func (s *fakeSession) CancelWrite() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancels++
	s.cancelled = true
	s.j.add("cancel write")
	return nil
}

func (s *fakeSession) Close() error {
	s.j.add("close session")
	return nil
}

type memImage struct {
	*bytes.Reader
	j       *journal
	sectors int64
}

func (m *memImage) Sectors() int64 { return m.sectors }

func (m *memImage) Close() error {
	m.j.add("close image")
	return nil
}

type fakeAssembler struct {
	j       *journal
	req     fsimage.Request
	err     error
	after   func()
	panicky bool
}

func (a *fakeAssembler) Assemble(_ context.Context, req fsimage.Request, cancelled func() bool, onProgress func(fsimage.Progress)) (fsimage.Image, error) {
	if a.panicky {
		panic("builder exploded")
	}
	a.req = req
	for _, item := range req.Items {
		if cancelled() {
			return nil, fsimage.ErrCancelled
		}
		onProgress(fsimage.Progress{CurrentFile: item.DisplayName(), CopiedSectors: item.Sectors(), TotalSectors: item.Sectors()})
	}
	if a.err != nil {
		return nil, a.err
	}
	a.j.add("assemble")
	if a.after != nil {
		a.after()
	}
	return &memImage{Reader: bytes.NewReader(nil), j: a.j, sectors: 1000}, nil
}

type harness struct {
	j    *journal
	svc  *fakeService
	dev  *fakeDevice
	sess *fakeSession
	asm  *fakeAssembler
	orch *Orchestrator
	done []Result
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	j := &journal{}
	sess := &fakeSession{j: j}
	dev := &fakeDevice{
		j:       j,
		rec:     recorder.Recorder{ID: "/dev/sr0", Device: "/dev/sr0", CanBurnCD: true},
		media:   recorder.MediaInfo{Type: recorder.MediaCDR, TotalSectors: 359848, FreeSectors: 359848, Blank: true},
		session: sess,
	}
	h := &harness{
		j:    j,
		svc:  &fakeService{dev: dev},
		dev:  dev,
		sess: sess,
		asm:  &fakeAssembler{j: j},
	}
	h.orch = New(Options{
		Service:      h.svc,
		Assembler:    h.asm,
		StatusBuffer: 4,
		OnFinish:     func(r Result) { h.done = append(h.done, r) },
	})
	return h
}

// collect drains the run's status channel and returns everything it
// delivered along with the result.
func collect(run *Run) ([]Status, Result) {
	var statuses []Status
	for st := range run.Status() {
		statuses = append(statuses, st)
	}
	return statuses, run.Wait()
}

func testItems(t *testing.T, names ...string) []*media.Item {
	t.Helper()
	dir := t.TempDir()
	var items []*media.Item
	for _, name := range names {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, make([]byte, 4096), 0o644))
		item, err := media.NewFileItem(path)
		require.NoError(t, err)
		items = append(items, item)
	}
	return items
}

func writeEvents(start, count int64, written ...int64) []recorder.WriteEvent {
	events := []recorder.WriteEvent{
		{CurrentAction: recorder.ActionCalibratingPower, StartSector: start, SectorCount: count, LastWrittenSector: start},
	}
	for _, w := range written {
		events = append(events, recorder.WriteEvent{
			CurrentAction:     recorder.ActionWritingData,
			StartSector:       start,
			SectorCount:       count,
			LastWrittenSector: start + w,
		})
	}
	return append(events, recorder.WriteEvent{
		CurrentAction: recorder.ActionFinalization, StartSector: start, SectorCount: count, LastWrittenSector: start + count,
	})
}
