// Package fsimage assembles queued media items into a file-system image
// stream by driving an external image builder.
package fsimage

import (
	"context"
	"io"
	"strings"

	"github.com/burnmedia/burnmedia/internal/media"
	"github.com/burnmedia/burnmedia/internal/recorder"
)

// FileSystems is a set of file-system variants to lay out in the image.
type FileSystems int

const (
	ISO9660 FileSystems = 1 << iota
	Joliet
)

// Has reports whether fs contains all of other.
func (fs FileSystems) Has(other FileSystems) bool {
	return fs&other == other
}

func (fs FileSystems) String() string {
	var names []string
	if fs.Has(ISO9660) {
		names = append(names, "iso9660")
	}
	if fs.Has(Joliet) {
		names = append(names, "joliet")
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "+")
}

// Progress reports how far the builder has got adding one item.
type Progress struct {
	CurrentFile   string
	CopiedSectors int64
	TotalSectors  int64
}

// Percent returns CopiedSectors as a share of TotalSectors, or 0 when the
// total is unknown.
func (p Progress) Percent() int {
	if p.TotalSectors <= 0 {
		return 0
	}
	return int(p.CopiedSectors * 100 / p.TotalSectors)
}

// Image is a finalized image stream. Closing it releases whatever
// produces the stream.
type Image interface {
	recorder.Image
	io.Closer
}

// Builder constructs one file-system image. Implementations return
// *recorder.NativeError for failures of the underlying tool.
type Builder interface {
	// ChooseDefaults tunes the image for the media it will be written to.
	ChooseDefaults(t recorder.MediaType) error
	SetFileSystems(fs FileSystems) error
	SetVolumeName(name string) error

	// ImportSessions makes the previous sessions on the media part of the
	// new image so the result can be appended.
	ImportSessions(ms *recorder.Multisession) error

	// Add puts item at the root of the image. onProgress is only called
	// while Add runs.
	Add(ctx context.Context, item *media.Item, onProgress func(Progress)) error

	// Finalize produces the image stream. The stream stays valid after
	// the builder is closed.
	Finalize(ctx context.Context) (Image, error)

	Close() error
}

// NewBuilderFunc creates a builder scoped to one assembly.
type NewBuilderFunc func() (Builder, error)
