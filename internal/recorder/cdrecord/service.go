// Package cdrecord is a recording service for Linux that drives cdrecord
// or wodim. Drives are found through /proc, lsblk and well known device
// paths, media is inspected with -minfo and -msinfo, and images are
// streamed to the tool's standard input in track-at-once mode.
package cdrecord

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/burnmedia/burnmedia/internal/logging"
	"github.com/burnmedia/burnmedia/internal/recorder"
)

// Tools are tried in this order when none is configured.
var Tools = []string{"cdrecord", "wodim"}

// Service implements recorder.Service.
type Service struct {
	preferred string

	mu   sync.Mutex
	tool string
	log  *logging.Logger
}

// New returns a service using the preferred tool, or the first of Tools
// found on PATH when preferred is empty.
func New(preferred string) *Service {
	return &Service{
		preferred: preferred,
		log:       logging.Get("cdrecord"),
	}
}

// Tool resolves the recording tool.
func (s *Service) Tool() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tool != "" {
		return s.tool, nil
	}

	candidates := Tools
	if s.preferred != "" {
		candidates = []string{s.preferred}
	}
	for _, name := range candidates {
		if path, err := exec.LookPath(name); err == nil {
			s.tool = path
			return path, nil
		}
	}
	return "", fmt.Errorf("no recording tool found (%s): %w", strings.Join(candidates, ", "), recorder.ErrUnsupportedEnvironment)
}

func (s *Service) Recorders(ctx context.Context) ([]recorder.Recorder, error) {
	tool, err := s.Tool()
	if err != nil {
		return nil, err
	}
	drives := DetectDrives(ctx, tool)
	if len(drives) == 0 {
		return nil, fmt.Errorf("no optical drives found: %w", recorder.ErrUnsupportedEnvironment)
	}
	s.log.Debug("detected drives", "count", len(drives), "tool", tool)
	return drives, nil
}

func (s *Service) Open(ctx context.Context, id string) (recorder.Device, error) {
	tool, err := s.Tool()
	if err != nil {
		return nil, err
	}
	drives, err := s.Recorders(ctx)
	if err != nil {
		return nil, err
	}
	for _, d := range drives {
		if d.ID != id && d.Device != id {
			continue
		}
		if !d.CanBurn() {
			return nil, fmt.Errorf("%s: %w", d, recorder.ErrRecorderNotSupported)
		}
		return &device{rec: d, tool: tool, log: s.log.With("device", d.Device)}, nil
	}
	return nil, fmt.Errorf("%s: %w", id, recorder.ErrRecorderNotFound)
}

// device is an opened drive.
type device struct {
	rec  recorder.Recorder
	tool string
	log  *logging.Logger

	mu    sync.Mutex
	media *recorder.MediaInfo
}

func (d *device) Recorder() recorder.Recorder {
	return d.rec
}

func (d *device) DetectMedia(ctx context.Context) (recorder.MediaInfo, error) {
	out, err := d.run(ctx, "-minfo")
	if err != nil {
		return recorder.MediaInfo{}, fmt.Errorf("%w: %w", recorder.ErrMediaNotSupported, err)
	}
	rep, err := parseMinfo(bytes.NewReader(out))
	if err != nil {
		return recorder.MediaInfo{}, err
	}

	info := rep.mediaInfo()
	if p, ok := recorder.ProfileFor(info.Type); !ok || !p.Writable {
		return info, fmt.Errorf("%s in %s: %w", rep.MediaType, d.rec.Device, recorder.ErrMediaNotSupported)
	}

	if rep.DiskStatus == statusAppendable {
		ms, err := d.multisession(ctx)
		if err != nil {
			d.log.Warn("reading previous sessions", "error", err)
		} else {
			info.Multisession = ms
		}
	}

	d.log.Info("media detected",
		"type", info.Type,
		"blank", info.Blank,
		"total_sectors", info.TotalSectors,
		"free_sectors", info.FreeSectors)

	d.mu.Lock()
	d.media = &info
	d.mu.Unlock()
	return info, nil
}

func (d *device) multisession(ctx context.Context) (*recorder.Multisession, error) {
	out, err := d.run(ctx, "-msinfo")
	if err != nil {
		return nil, err
	}
	last, next, err := parseMsinfo(bytes.NewReader(out))
	if err != nil {
		return nil, err
	}
	return &recorder.Multisession{Device: d.rec.Device, LastSessionStart: last, NextWritable: next}, nil
}

func (d *device) OpenSession(ctx context.Context, opts recorder.WriteOptions) (recorder.Session, error) {
	d.mu.Lock()
	media := d.media
	d.mu.Unlock()

	if media == nil {
		info, err := d.DetectMedia(ctx)
		if err != nil {
			return nil, err
		}
		media = &info
	}
	if media.FreeSectors <= 0 {
		return nil, fmt.Errorf("no writable space left: %w", recorder.ErrMediaNotSupported)
	}

	var start int64
	if media.Multisession != nil {
		start = media.Multisession.NextWritable
	}
	if opts.ClientName == "" {
		opts.ClientName = recorder.ClientName
	}
	d.log.Debug("opening write session",
		"client", opts.ClientName,
		"close_media", opts.CloseMedia,
		"verification", opts.Verification,
		"simulate", opts.Simulate)

	return &session{
		dev:         d,
		opts:        opts,
		startSector: start,
	}, nil
}

func (d *device) Eject(ctx context.Context) error {
	return eject(ctx, d.rec.Device)
}

func (d *device) Close() error {
	return nil
}

func (d *device) run(ctx context.Context, args ...string) ([]byte, error) {
	full := append([]string{"dev=" + d.rec.Device}, args...)
	cmd := exec.CommandContext(ctx, d.tool, full...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, &recorder.NativeError{
			Op:      strings.TrimPrefix(args[0], "-"),
			Code:    exitCode(err),
			Message: lastLine(stderr.String(), err.Error()),
			Err:     err,
		}
	}
	// cdrecord reports media details on stderr as well as stdout.
	return append(stdout.Bytes(), stderr.Bytes()...), nil
}
