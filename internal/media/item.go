// Package media models the files and folders queued for burning and the
// space each one occupies on disc.
package media

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"

	"github.com/dustin/go-humanize"
)

// SectorSize is the data sector size used to round footprints.
const SectorSize = 2048

// Kind tags an Item as a file or a directory.
type Kind int

const (
	KindFile Kind = iota
	KindDirectory
)

func (k Kind) String() string {
	if k == KindDirectory {
		return "directory"
	}
	return "file"
}

// Item is a file or directory queued for burning. Items are immutable
// once constructed; compare them by pointer.
type Item struct {
	kind        Kind
	path        string
	displayName string
	sizeOnDisc  int64
	files       int64

	iconOnce sync.Once
	icon     image.Image
}

// NewFileItem builds an Item for a single file.
func NewFileItem(path string) (*Item, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %q: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("cannot add %q: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("cannot add %q as a file: it is a directory", path)
	}

	return &Item{
		kind:        KindFile,
		path:        abs,
		displayName: filepath.Base(abs),
		sizeOnDisc:  RoundToSectors(info.Size()),
		files:       1,
	}, nil
}

// NewDirectoryItem builds an Item for a directory tree. Its footprint is
// the sum of its files' sector-rounded sizes.
func NewDirectoryItem(ctx context.Context, path string) (*Item, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %q: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("cannot add %q: %w", path, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("cannot add %q as a folder: not a directory", path)
	}

	fp, err := Measure(ctx, abs)
	if err != nil {
		return nil, err
	}

	return &Item{
		kind:        KindDirectory,
		path:        abs,
		displayName: filepath.Base(abs),
		sizeOnDisc:  fp.Bytes,
		files:       fp.Files,
	}, nil
}

// NewItem builds a file or directory Item depending on what path is.
func NewItem(ctx context.Context, path string) (*Item, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cannot add %q: %w", path, err)
	}
	if info.IsDir() {
		return NewDirectoryItem(ctx, path)
	}
	return NewFileItem(path)
}

func (i *Item) Kind() Kind          { return i.kind }
func (i *Item) Path() string        { return i.path }
func (i *Item) DisplayName() string { return i.displayName }
func (i *Item) SizeOnDisc() int64   { return i.sizeOnDisc }
func (i *Item) Files() int64        { return i.files }

// Icon returns a small thumbnail for presentation, or nil. Image files are
// decoded on first use.
func (i *Item) Icon() image.Image {
	i.iconOnce.Do(func() {
		if i.kind == KindFile {
			i.icon = LoadIcon(i.path)
		}
	})
	return i.icon
}

// Sectors returns the footprint in data sectors.
func (i *Item) Sectors() int64 {
	return i.sizeOnDisc / SectorSize
}

// String renders the item the way the file list shows it.
func (i *Item) String() string {
	return fmt.Sprintf("%s (%s)", i.displayName, humanize.IBytes(uint64(i.sizeOnDisc)))
}

// RoundToSectors rounds size up to a whole number of sectors.
func RoundToSectors(size int64) int64 {
	if size <= 0 {
		return 0
	}
	return (size + SectorSize - 1) / SectorSize * SectorSize
}
