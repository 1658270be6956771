package fsimage

import (
	"context"

	"github.com/burnmedia/burnmedia/internal/logging"
	"github.com/burnmedia/burnmedia/internal/media"
	"github.com/burnmedia/burnmedia/internal/recorder"
)

// Request describes the image to assemble.
type Request struct {
	Items        []*media.Item
	VolumeLabel  string
	MediaType    recorder.MediaType
	Multisession *recorder.Multisession // nil for blank media
}

// Assembler drives a fresh builder per request.
type Assembler struct {
	newBuilder NewBuilderFunc
	log        *logging.Logger
}

// NewAssembler returns an assembler that obtains builders from newBuilder.
func NewAssembler(newBuilder NewBuilderFunc) *Assembler {
	return &Assembler{
		newBuilder: newBuilder,
		log:        logging.Get("fsimage"),
	}
}

// Assemble adds req.Items in order and returns the finalized image.
//
// cancelled is polled before each item. When it reports true no further
// items are added and ErrCancelled is returned. Builder failures are
// returned as *AssemblyError. The builder is closed on every path and no
// partial image is ever returned.
func (a *Assembler) Assemble(ctx context.Context, req Request, cancelled func() bool, onProgress func(Progress)) (img Image, err error) {
	b, err := a.newBuilder()
	if err != nil {
		return nil, newAssemblyError("create", "", err)
	}
	defer func() {
		if cerr := b.Close(); cerr != nil {
			a.log.Warn("closing image builder", "error", cerr)
		}
	}()

	if err := b.ChooseDefaults(req.MediaType); err != nil {
		return nil, newAssemblyError("defaults", "", err)
	}
	if err := b.SetFileSystems(ISO9660 | Joliet); err != nil {
		return nil, newAssemblyError("file systems", "", err)
	}
	if err := b.SetVolumeName(req.VolumeLabel); err != nil {
		return nil, newAssemblyError("volume name", "", err)
	}
	if req.Multisession != nil {
		a.log.Debug("importing previous sessions",
			"last_start", req.Multisession.LastSessionStart,
			"next_writable", req.Multisession.NextWritable)
		if err := b.ImportSessions(req.Multisession); err != nil {
			return nil, newAssemblyError("import sessions", "", err)
		}
	}

	for i, item := range req.Items {
		if cancelled != nil && cancelled() {
			a.log.Info("image assembly cancelled", "added", i, "remaining", len(req.Items)-i)
			return nil, ErrCancelled
		}

		a.log.Debug("adding item", "name", item.DisplayName(), "size", item.SizeOnDisc())
		if err := b.Add(ctx, item, progressSink(onProgress)); err != nil {
			return nil, newAssemblyError("add", item.DisplayName(), err)
		}
	}

	img, err = b.Finalize(ctx)
	if err != nil {
		return nil, newAssemblyError("finalize", "", err)
	}
	a.log.Info("image assembled", "items", len(req.Items), "sectors", img.Sectors())
	return img, nil
}

func progressSink(onProgress func(Progress)) func(Progress) {
	if onProgress == nil {
		return func(Progress) {}
	}
	return onProgress
}
