// Package mkisofs builds ISO9660/Joliet images with genisoimage, mkisofs
// or xorriso, streaming the image from the tool's standard output.
package mkisofs

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"syscall"
	"unicode/utf8"

	"github.com/burnmedia/burnmedia/internal/fsimage"
	"github.com/burnmedia/burnmedia/internal/logging"
	"github.com/burnmedia/burnmedia/internal/media"
	"github.com/burnmedia/burnmedia/internal/recorder"
)

// Tools are tried in this order when none is configured.
var Tools = []string{"genisoimage", "mkisofs", "xorriso"}

// MaxVolumeName is the longest volume identifier ISO9660 allows.
const MaxVolumeName = 32

// Lookup resolves the image tool. An empty preferred name tries Tools in
// order.
func Lookup(preferred string) (string, error) {
	if preferred != "" {
		path, err := exec.LookPath(preferred)
		if err != nil {
			return "", &recorder.NativeError{Op: "lookup", Code: 127, Message: fmt.Sprintf("%s not found", preferred), Err: err}
		}
		return path, nil
	}
	for _, tool := range Tools {
		if path, err := exec.LookPath(tool); err == nil {
			return path, nil
		}
	}
	return "", &recorder.NativeError{
		Op:      "lookup",
		Code:    127,
		Message: fmt.Sprintf("no image tool found (%s)", strings.Join(Tools, ", ")),
	}
}

// NewFunc returns a builder factory for the assembler.
func NewFunc(preferred string) fsimage.NewBuilderFunc {
	return func() (fsimage.Builder, error) {
		tool, err := Lookup(preferred)
		if err != nil {
			return nil, err
		}
		return New(tool), nil
	}
}

// Builder collects graft points and options and runs the tool on
// Finalize.
type Builder struct {
	tool     string
	fs       fsimage.FileSystems
	volume   string
	isoLevel int
	ms       *recorder.Multisession
	grafts   []string
	names    map[string]int
	log      *logging.Logger
}

// New returns a builder running tool.
func New(tool string) *Builder {
	return &Builder{
		tool:  tool,
		fs:    fsimage.ISO9660,
		names: make(map[string]int),
		log:   logging.Get("mkisofs"),
	}
}

func (b *Builder) isXorriso() bool {
	return strings.HasPrefix(filepath.Base(b.tool), "xorriso")
}

// ChooseDefaults enables ISO level 3 on DVD and BD media so single files
// may exceed 4 GiB.
func (b *Builder) ChooseDefaults(t recorder.MediaType) error {
	p, ok := recorder.ProfileFor(t)
	if ok && (p.DiscType == "dvd" || p.DiscType == "bd") {
		b.isoLevel = 3
	}
	return nil
}

func (b *Builder) SetFileSystems(fs fsimage.FileSystems) error {
	if !fs.Has(fsimage.ISO9660) {
		return &recorder.NativeError{Op: "file systems", Code: int(syscall.EINVAL), Message: fmt.Sprintf("%s images always carry iso9660, got %s", filepath.Base(b.tool), fs)}
	}
	b.fs = fs
	return nil
}

func (b *Builder) SetVolumeName(name string) error {
	b.volume = truncateRunes(name, MaxVolumeName)
	return nil
}

func (b *Builder) ImportSessions(ms *recorder.Multisession) error {
	if ms == nil || ms.Device == "" {
		return &recorder.NativeError{Op: "import sessions", Code: int(syscall.EINVAL), Message: "no previous session device"}
	}
	b.ms = ms
	return nil
}

// Add grafts item at the image root. Directories keep their name and
// carry their contents. Clashing names get a numeric suffix.
func (b *Builder) Add(ctx context.Context, item *media.Item, onProgress func(fsimage.Progress)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := os.Stat(item.Path()); err != nil {
		return &recorder.NativeError{Op: "add", Code: errnoOf(err), Message: err.Error(), Err: err}
	}

	name := b.uniqueName(item.DisplayName())
	target := escapeGraft(name)
	if item.Kind() == media.KindDirectory {
		target += "/"
	}
	b.grafts = append(b.grafts, target+"="+escapeGraft(item.Path()))

	onProgress(fsimage.Progress{
		CurrentFile:   item.DisplayName(),
		CopiedSectors: item.Sectors(),
		TotalSectors:  item.Sectors(),
	})
	return nil
}

func (b *Builder) uniqueName(name string) string {
	n := b.names[name]
	b.names[name] = n + 1
	if n == 0 {
		return name
	}
	ext := filepath.Ext(name)
	return fmt.Sprintf("%s (%d)%s", strings.TrimSuffix(name, ext), n+1, ext)
}

// Args returns the tool arguments for the current configuration, without
// the graft list.
func (b *Builder) Args() []string {
	var args []string
	if b.isXorriso() {
		args = append(args, "-as", "mkisofs")
	}
	args = append(args, "-r")
	if b.fs.Has(fsimage.Joliet) {
		args = append(args, "-J", "-joliet-long")
	}
	if b.isoLevel > 0 {
		args = append(args, "-iso-level", strconv.Itoa(b.isoLevel))
	}
	if b.volume != "" {
		args = append(args, "-V", b.volume)
	}
	if b.ms != nil {
		args = append(args,
			"-C", fmt.Sprintf("%d,%d", b.ms.LastSessionStart, b.ms.NextWritable),
			"-M", b.ms.Device)
	}
	return args
}

// Finalize sizes the image with -print-size, then starts the tool and
// returns its output as the image stream.
func (b *Builder) Finalize(ctx context.Context) (fsimage.Image, error) {
	var cleanup func()
	grafts := b.grafts
	if len(grafts) == 0 {
		empty, err := os.MkdirTemp("", "burnmedia-empty-")
		if err != nil {
			return nil, &recorder.NativeError{Op: "finalize", Code: errnoOf(err), Message: err.Error(), Err: err}
		}
		cleanup = func() { os.RemoveAll(empty) }
		grafts = []string{"/=" + escapeGraft(empty)}
	}

	args := append(b.Args(), "-graft-points")
	args = append(args, grafts...)

	sectors, err := b.printSize(ctx, args)
	if err != nil {
		if cleanup != nil {
			cleanup()
		}
		return nil, err
	}

	b.log.Debug("starting image tool", "tool", b.tool, "args", args, "sectors", sectors)
	cmd := exec.CommandContext(ctx, b.tool, args...)
	stderr := &tailBuffer{max: 4096}
	cmd.Stderr = stderr
	stdout, err := cmd.StdoutPipe()
	if err == nil {
		err = cmd.Start()
	}
	if err != nil {
		if cleanup != nil {
			cleanup()
		}
		return nil, &recorder.NativeError{Op: "finalize", Code: exitCode(err), Message: err.Error(), Err: err}
	}

	return &stream{
		r:       bufio.NewReaderSize(stdout, 64*1024),
		pipe:    stdout,
		cmd:     cmd,
		stderr:  stderr,
		sectors: sectors,
		cleanup: cleanup,
	}, nil
}

func (b *Builder) printSize(ctx context.Context, args []string) (int64, error) {
	sizeArgs := append([]string{"-quiet", "-print-size"}, args...)
	if b.isXorriso() {
		sizeArgs = append([]string{"-as", "mkisofs", "-quiet", "-print-size"}, args[2:]...)
	}
	cmd := exec.CommandContext(ctx, b.tool, sizeArgs...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return 0, &recorder.NativeError{
			Op:      "print size",
			Code:    exitCode(err),
			Message: lastLine(stderr.String(), err.Error()),
			Err:     err,
		}
	}

	sectors, ok := ParsePrintSize(stdout.String() + "\n" + stderr.String())
	if !ok {
		return 0, &recorder.NativeError{Op: "print size", Code: -1, Message: "image size not reported"}
	}
	return sectors, nil
}

// Close releases nothing the image stream still needs.
func (b *Builder) Close() error {
	b.grafts = nil
	return nil
}

var extentsRe = regexp.MustCompile(`(?i)extents (?:scheduled to be )?written\s*=\s*(\d+)`)

// ParsePrintSize extracts the sector count from -print-size output. With
// -quiet the tool prints just the number.
func ParsePrintSize(out string) (int64, bool) {
	if m := extentsRe.FindStringSubmatch(out); m != nil {
		n, err := strconv.ParseInt(m[1], 10, 64)
		return n, err == nil
	}
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if n, err := strconv.ParseInt(line, 10, 64); err == nil {
			return n, true
		}
	}
	return 0, false
}

// escapeGraft escapes the characters -graft-points treats specially.
func escapeGraft(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `=`, `\=`)
	return r.Replace(s)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func exitCode(err error) int {
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return ee.ExitCode()
	}
	return errnoOf(err)
}

func errnoOf(err error) int {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return int(errno)
	}
	return -1
}

func lastLine(s, fallback string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if last := strings.TrimSpace(lines[len(lines)-1]); last != "" {
		return last
	}
	return fallback
}
