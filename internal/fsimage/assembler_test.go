package fsimage

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/burnmedia/burnmedia/internal/media"
	"github.com/burnmedia/burnmedia/internal/recorder"
)

type memImage struct {
	*bytes.Reader
	sectors int64
}

func (m *memImage) Sectors() int64 { return m.sectors }
func (m *memImage) Close() error   { return nil }

type fakeBuilder struct {
	mediaType recorder.MediaType
	fs        FileSystems
	volume    string
	imported  *recorder.Multisession
	added     []string
	closed    int
	failAdd   string
	failFinal error
	onAdd     func(name string)
	finalized bool
}

func (b *fakeBuilder) ChooseDefaults(t recorder.MediaType) error { b.mediaType = t; return nil }
func (b *fakeBuilder) SetFileSystems(fs FileSystems) error       { b.fs = fs; return nil }
func (b *fakeBuilder) SetVolumeName(name string) error           { b.volume = name; return nil }

func (b *fakeBuilder) ImportSessions(ms *recorder.Multisession) error {
	b.imported = ms
	return nil
}

func (b *fakeBuilder) Add(_ context.Context, item *media.Item, onProgress func(Progress)) error {
	if item.DisplayName() == b.failAdd {
		return &recorder.NativeError{Op: "add", Code: 5, Message: "permission denied"}
	}
	b.added = append(b.added, item.DisplayName())
	onProgress(Progress{CurrentFile: item.DisplayName(), CopiedSectors: item.Sectors(), TotalSectors: item.Sectors()})
	if b.onAdd != nil {
		b.onAdd(item.DisplayName())
	}
	return nil
}

func (b *fakeBuilder) Finalize(context.Context) (Image, error) {
	if b.failFinal != nil {
		return nil, b.failFinal
	}
	b.finalized = true
	sectors := int64(16 + len(b.added))
	return &memImage{Reader: bytes.NewReader(make([]byte, sectors*recorder.SectorSize)), sectors: sectors}, nil
}

func (b *fakeBuilder) Close() error { b.closed++; return nil }

func newTestItems(t *testing.T, names ...string) []*media.Item {
	t.Helper()
	dir := t.TempDir()
	items := make([]*media.Item, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, make([]byte, 3000), 0o644))
		item, err := media.NewFileItem(path)
		require.NoError(t, err)
		items = append(items, item)
	}
	return items
}

func assemblerFor(b *fakeBuilder) *Assembler {
	return NewAssembler(func() (Builder, error) { return b, nil })
}

func TestAssembleEmpty(t *testing.T) {
	b := &fakeBuilder{}
	img, err := assemblerFor(b).Assemble(context.Background(), Request{VolumeLabel: "EMPTY"}, nil, nil)
	require.NoError(t, err)
	require.NotNil(t, img)

	assert.Equal(t, int64(16), img.Sectors())
	assert.True(t, b.finalized)
	assert.Equal(t, 1, b.closed)
}

func TestAssembleAddsInOrder(t *testing.T) {
	b := &fakeBuilder{}
	items := newTestItems(t, "b.txt", "a.txt", "c.txt")
	ms := &recorder.Multisession{Device: "/dev/sr0", LastSessionStart: 0, NextWritable: 11702}

	var progress []Progress
	img, err := assemblerFor(b).Assemble(context.Background(), Request{
		Items:        items,
		VolumeLabel:  "2024_3_7",
		MediaType:    recorder.MediaDVDPlusR,
		Multisession: ms,
	}, func() bool { return false }, func(p Progress) { progress = append(progress, p) })
	require.NoError(t, err)
	require.NotNil(t, img)

	assert.Equal(t, []string{"b.txt", "a.txt", "c.txt"}, b.added)
	assert.Equal(t, ISO9660|Joliet, b.fs)
	assert.Equal(t, "2024_3_7", b.volume)
	assert.Equal(t, recorder.MediaDVDPlusR, b.mediaType)
	assert.Same(t, ms, b.imported)
	assert.Equal(t, 1, b.closed)

	require.Len(t, progress, 3)
	assert.Equal(t, "b.txt", progress[0].CurrentFile)
	assert.Equal(t, 100, progress[0].Percent())
}

func TestAssembleSkipsImportForBlankMedia(t *testing.T) {
	b := &fakeBuilder{}
	_, err := assemblerFor(b).Assemble(context.Background(), Request{}, nil, nil)
	require.NoError(t, err)
	assert.Nil(t, b.imported)
}

func TestAssembleCancelledBeforeFirstItem(t *testing.T) {
	b := &fakeBuilder{}
	items := newTestItems(t, "a.txt", "b.txt")

	img, err := assemblerFor(b).Assemble(context.Background(), Request{Items: items}, func() bool { return true }, nil)
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Nil(t, img)

	var ae *AssemblyError
	assert.False(t, errors.As(err, &ae), "cancellation is not an assembly error")
	assert.Empty(t, b.added)
	assert.False(t, b.finalized)
	assert.Equal(t, 1, b.closed)
}

func TestAssembleCancelledMidway(t *testing.T) {
	cancel := false
	b := &fakeBuilder{onAdd: func(name string) {
		if name == "b.txt" {
			cancel = true
		}
	}}
	items := newTestItems(t, "a.txt", "b.txt", "c.txt")

	_, err := assemblerFor(b).Assemble(context.Background(), Request{Items: items}, func() bool { return cancel }, nil)
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Equal(t, []string{"a.txt", "b.txt"}, b.added)
	assert.Equal(t, 1, b.closed)
}

func TestAssembleAddFailure(t *testing.T) {
	b := &fakeBuilder{failAdd: "b.txt"}
	items := newTestItems(t, "a.txt", "b.txt", "c.txt")

	img, err := assemblerFor(b).Assemble(context.Background(), Request{Items: items}, nil, nil)
	assert.Nil(t, img)

	var ae *AssemblyError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "add", ae.Op)
	assert.Equal(t, "b.txt", ae.Item)
	assert.Equal(t, 5, ae.Code)
	assert.Equal(t, "permission denied", ae.Message)
	assert.Equal(t, []string{"a.txt"}, b.added)
	assert.False(t, b.finalized)
	assert.Equal(t, 1, b.closed)
}

func TestAssembleFinalizeFailure(t *testing.T) {
	b := &fakeBuilder{failFinal: errors.New("no space left on device")}

	_, err := assemblerFor(b).Assemble(context.Background(), Request{}, nil, nil)
	var ae *AssemblyError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "finalize", ae.Op)
	assert.Equal(t, -1, ae.Code)
	assert.Equal(t, 1, b.closed)
}

func TestAssembleBuilderUnavailable(t *testing.T) {
	a := NewAssembler(func() (Builder, error) {
		return nil, &recorder.NativeError{Op: "lookup", Code: 127, Message: "no mkisofs found"}
	})
	_, err := a.Assemble(context.Background(), Request{}, nil, nil)

	var ae *AssemblyError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, 127, ae.Code)
	assert.Contains(t, ae.Error(), "no mkisofs found")
}

func TestProgressPercent(t *testing.T) {
	assert.Equal(t, 0, Progress{CopiedSectors: 10}.Percent())
	assert.Equal(t, 25, Progress{CopiedSectors: 1, TotalSectors: 4}.Percent())
	assert.Equal(t, 100, Progress{CopiedSectors: 4, TotalSectors: 4}.Percent())
}

func TestFileSystemsString(t *testing.T) {
	assert.Equal(t, "iso9660+joliet", (ISO9660 | Joliet).String())
	assert.Equal(t, "none", FileSystems(0).String())
	assert.True(t, (ISO9660 | Joliet).Has(Joliet))
	assert.False(t, ISO9660.Has(ISO9660|Joliet))
}
