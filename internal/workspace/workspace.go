// Package workspace holds the foreground state of a burning session: the
// selected recorder, the queued items and the capacity estimate. Its
// methods are the user actions a front end exposes.
package workspace

import (
	"context"
	"errors"
	"fmt"

	"github.com/burnmedia/burnmedia/internal/burn"
	"github.com/burnmedia/burnmedia/internal/capacity"
	"github.com/burnmedia/burnmedia/internal/logging"
	"github.com/burnmedia/burnmedia/internal/media"
	"github.com/burnmedia/burnmedia/internal/recorder"
)

var (
	// ErrNoRecorder is returned by actions that need a selected recorder.
	ErrNoRecorder = errors.New("no recorder selected")

	// ErrNoItems is returned by StartBurn when nothing is queued.
	ErrNoItems = errors.New("nothing to burn")

	// ErrOutOfSpace is returned by AddItem once the queued items already
	// exceed the free space.
	ErrOutOfSpace = errors.New("not enough free space on media")
)

// BurnOptions are the user's choices for the next burn.
type BurnOptions struct {
	VolumeLabel     string
	CloseMedia      bool
	EjectAfterWrite bool
	Verification    recorder.Verification
	Simulate        bool
}

// Controller is owned by the foreground goroutine and is not safe for
// concurrent use. Burns run on the orchestrator's worker and report back
// through the run's status channel.
type Controller struct {
	svc   recorder.Service
	orch  *burn.Orchestrator
	items *media.Set
	space *capacity.Tracker
	log   *logging.Logger

	selected *recorder.Recorder
	media    *recorder.MediaInfo
}

// New returns a controller with nothing selected or queued. orch may be
// nil when the controller is only used to inspect recorders and media.
func New(svc recorder.Service, orch *burn.Orchestrator) *Controller {
	return &Controller{
		svc:   svc,
		orch:  orch,
		items: media.NewSet(),
		space: capacity.New(),
		log:   logging.Get("workspace"),
	}
}

// Recorders lists the recorders that can burn data discs.
func (c *Controller) Recorders(ctx context.Context) ([]recorder.Recorder, error) {
	all, err := c.svc.Recorders(ctx)
	if err != nil {
		return nil, err
	}
	var usable []recorder.Recorder
	for _, r := range all {
		if r.CanBurn() {
			usable = append(usable, r)
		}
	}
	if len(usable) == 0 {
		return nil, fmt.Errorf("no recorder can burn data discs: %w", recorder.ErrUnsupportedEnvironment)
	}
	return usable, nil
}

// SelectRecorder makes id the target recorder and detects its media. On
// failure the previous selection is kept.
func (c *Controller) SelectRecorder(ctx context.Context, id string) (recorder.MediaInfo, error) {
	dev, err := c.svc.Open(ctx, id)
	if err != nil {
		return recorder.MediaInfo{}, err
	}
	defer dev.Close()

	info, err := dev.DetectMedia(ctx)
	if err != nil {
		return recorder.MediaInfo{}, err
	}

	rec := dev.Recorder()
	c.selected = &rec
	c.applyMedia(info)
	c.log.Info("recorder selected", "recorder", rec.String(), "media", info.Type)
	return info, nil
}

// DetectMedia re-reads the media of the selected recorder.
func (c *Controller) DetectMedia(ctx context.Context) (recorder.MediaInfo, error) {
	if c.selected == nil {
		return recorder.MediaInfo{}, ErrNoRecorder
	}
	dev, err := c.svc.Open(ctx, c.selected.ID)
	if err != nil {
		return recorder.MediaInfo{}, err
	}
	defer dev.Close()

	info, err := dev.DetectMedia(ctx)
	if err != nil {
		// The media was removed or cannot be read any more.
		c.media = nil
		c.space.Forget()
		return recorder.MediaInfo{}, err
	}
	c.applyMedia(info)
	return info, nil
}

func (c *Controller) applyMedia(info recorder.MediaInfo) {
	c.media = &info
	c.space.OnMediaDetected(info.TotalBytes(), info.FreeBytes())
}

// Selected returns the selected recorder, if any.
func (c *Controller) Selected() (recorder.Recorder, bool) {
	if c.selected == nil {
		return recorder.Recorder{}, false
	}
	return *c.selected, true
}

// Media returns the last detected media, if any.
func (c *Controller) Media() (recorder.MediaInfo, bool) {
	if c.media == nil {
		return recorder.MediaInfo{}, false
	}
	return *c.media, true
}

// AddItem queues item. It is refused once free space is already
// negative; the item that crosses zero is still accepted.
func (c *Controller) AddItem(item *media.Item) error {
	if !c.space.Reserve(item.SizeOnDisc()) {
		free, _ := c.space.FreeSpace()
		return fmt.Errorf("adding %s with %d MB free: %w", item.DisplayName(), free, ErrOutOfSpace)
	}
	c.items.Add(item)
	c.log.Debug("item added", "name", item.DisplayName(), "size", item.SizeOnDisc())
	return nil
}

// AddPath builds an item for path and queues it.
func (c *Controller) AddPath(ctx context.Context, path string) (*media.Item, error) {
	item, err := media.NewItem(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := c.AddItem(item); err != nil {
		return nil, err
	}
	return item, nil
}

// RemoveItem drops item from the queue and gives back its space. It
// reports false when item was not queued.
func (c *Controller) RemoveItem(item *media.Item) bool {
	if !c.items.Remove(item) {
		return false
	}
	c.space.Release(item.SizeOnDisc())
	return true
}

// Items returns the queued items in order.
func (c *Controller) Items() []*media.Item {
	return c.items.Items()
}

// CanBurn reports whether a burn could be started.
func (c *Controller) CanBurn() bool {
	return c.selected != nil && c.items.Len() > 0
}

// OverCapacity reports whether the queue is estimated not to fit.
func (c *Controller) OverCapacity() bool {
	return c.space.OverCapacity()
}

// TotalSpace returns the media capacity in MB, if known.
func (c *Controller) TotalSpace() (int64, bool) {
	return c.space.TotalSpace()
}

// FreeSpace returns the estimated free space in MB, if known.
func (c *Controller) FreeSpace() (int64, bool) {
	return c.space.FreeSpace()
}

// QueuedSpace returns the MB reserved by the queued items.
func (c *Controller) QueuedSpace() int64 {
	return c.space.Reserved()
}

// SpaceSummary renders the capacity labels.
func (c *Controller) SpaceSummary() string {
	total, ok := c.space.TotalSpace()
	if !ok {
		return "Total Space: unknown, Free Space: unknown"
	}
	free, _ := c.space.FreeSpace()
	return fmt.Sprintf("Total Space: %d MB, Free Space: %d MB", total, free)
}

// StartBurn burns the queued items on the selected recorder. When a burn
// is already running the request cancels it and burn.ErrJobActive is
// returned.
func (c *Controller) StartBurn(ctx context.Context, opts BurnOptions) (*burn.Run, error) {
	if c.orch == nil {
		return nil, errors.New("workspace has no burn orchestrator")
	}
	if c.orch.Active() != nil {
		c.orch.Cancel()
		return nil, burn.ErrJobActive
	}
	if c.selected == nil {
		return nil, ErrNoRecorder
	}
	if c.items.Len() == 0 {
		return nil, ErrNoItems
	}
	if c.OverCapacity() {
		c.log.Warn("queued items exceed free space, burning anyway", "summary", c.SpaceSummary())
	}

	job := burn.NewJob(c.selected.ID, opts.VolumeLabel)
	job.CloseMedia = opts.CloseMedia
	job.EjectAfterWrite = opts.EjectAfterWrite
	job.Verification = opts.Verification
	job.Simulate = opts.Simulate

	return c.orch.Start(ctx, job, c.items.Items())
}

// RequestCancel asks the running burn to stop.
func (c *Controller) RequestCancel() bool {
	if c.orch == nil {
		return false
	}
	return c.orch.Cancel()
}
