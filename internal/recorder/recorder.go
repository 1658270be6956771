// Package recorder defines the boundary between burnmedia and the native
// disc-recording service: recorder enumeration, media detection, write
// sessions with a streamed progress callback, write cancellation and
// ejection. Concrete services live in subpackages.
package recorder

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"
)

// SectorSize is the logical sector size of data media in bytes.
const SectorSize = 2048

// ClientName identifies burnmedia to the recording service.
const ClientName = "BurnMedia"

// Recorder describes an optical drive that may be able to burn discs.
type Recorder struct {
	ID          string   // Unique recorder identity; the device path on Linux
	Device      string   // Device path like /dev/sr0
	VolumePaths []string // Mount points or aliases, may be empty
	Vendor      string
	Model       string
	CanBurnCD   bool
	CanBurnDVD  bool
	IsReady     bool
	Profiles    []MediaType // Media types the recorder reports it can write
}

// String renders the recorder the way drive pickers list it.
func (r Recorder) String() string {
	paths := r.Device
	if len(r.VolumePaths) > 0 {
		paths = strings.Join(r.VolumePaths, ",")
	}
	product := strings.TrimSpace(r.Vendor + " " + r.Model)
	if product == "" {
		return paths
	}
	return fmt.Sprintf("%s [%s]", paths, product)
}

// CanBurn reports whether the recorder can write any supported media.
func (r Recorder) CanBurn() bool {
	return r.CanBurnCD || r.CanBurnDVD
}

// Multisession carries what an image builder needs to append a new
// session after the ones already recorded on the media.
type Multisession struct {
	Device           string // Device to import the previous session from
	LastSessionStart int64  // First sector of the last recorded session
	NextWritable     int64  // First sector the new session will occupy
}

// MediaInfo is the result of detecting the media in a recorder.
type MediaInfo struct {
	Type         MediaType
	TotalSectors int64
	FreeSectors  int64
	Blank        bool
	Multisession *Multisession // nil for blank or closed media
}

// TotalBytes returns the media capacity in bytes.
func (m MediaInfo) TotalBytes() int64 {
	return m.TotalSectors * SectorSize
}

// FreeBytes returns the writable space left on the media in bytes.
func (m MediaInfo) FreeBytes() int64 {
	return m.FreeSectors * SectorSize
}

// Verification selects how written data is checked after a burn.
type Verification int

const (
	VerifyNone Verification = iota
	VerifyQuick
	VerifyFull
)

func (v Verification) String() string {
	switch v {
	case VerifyNone:
		return "none"
	case VerifyQuick:
		return "quick"
	case VerifyFull:
		return "full"
	default:
		return "unknown"
	}
}

// ParseVerification parses none, quick or full.
func ParseVerification(s string) (Verification, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return VerifyNone, nil
	case "quick":
		return VerifyQuick, nil
	case "full":
		return VerifyFull, nil
	default:
		return VerifyNone, fmt.Errorf("invalid verification level %q (must be none, quick or full)", s)
	}
}

// WriteOptions configures a write session.
type WriteOptions struct {
	ClientName   string
	CloseMedia   bool // Close the disc so no further sessions can be appended
	Verification Verification
	Simulate     bool // Run the laser off; nothing is recorded
}

// WriteAction is the step the write engine is currently performing.
type WriteAction int

const (
	ActionValidatingMedia WriteAction = iota
	ActionFormattingMedia
	ActionInitializingHardware
	ActionCalibratingPower
	ActionWritingData
	ActionFinalization
	ActionCompleted
	ActionVerifying
)

func (a WriteAction) String() string {
	switch a {
	case ActionValidatingMedia:
		return "validating-media"
	case ActionFormattingMedia:
		return "formatting-media"
	case ActionInitializingHardware:
		return "initializing-hardware"
	case ActionCalibratingPower:
		return "calibrating-power"
	case ActionWritingData:
		return "writing-data"
	case ActionFinalization:
		return "finalization"
	case ActionCompleted:
		return "completed"
	case ActionVerifying:
		return "verifying"
	default:
		return "unknown"
	}
}

// WriteEvent is one raw progress notification from the write engine.
type WriteEvent struct {
	ElapsedTime       time.Duration
	RemainingTime     time.Duration
	TotalTime         time.Duration
	CurrentAction     WriteAction
	StartSector       int64
	SectorCount       int64
	LastReadSector    int64
	LastWrittenSector int64
	BufferTotal       int64
	BufferUsed        int64
	BufferFree        int64
}

// Image is a readable file-system image of a known size.
type Image interface {
	io.Reader
	Sectors() int64
}

// Service enumerates recorders and opens them for use.
type Service interface {
	// Recorders lists the recorders on the system. It returns
	// ErrUnsupportedEnvironment when no recording capability exists.
	Recorders(ctx context.Context) ([]Recorder, error)

	// Open acquires a recorder by ID. It returns ErrRecorderNotSupported
	// when the recorder cannot write data discs.
	Open(ctx context.Context, id string) (Device, error)
}

// Device is an opened recorder. Close releases it.
type Device interface {
	Recorder() Recorder

	// DetectMedia inspects the loaded media. It returns
	// ErrMediaNotSupported when no writable media is present.
	DetectMedia(ctx context.Context) (MediaInfo, error)

	// OpenSession prepares a write session against the loaded media.
	OpenSession(ctx context.Context, opts WriteOptions) (Session, error)

	// Eject opens the tray.
	Eject(ctx context.Context) error

	Close() error
}

// Session writes one image stream to the media. Close releases it.
type Session interface {
	// Write streams image to the media and blocks until the write ends.
	// onEvent is called from the writing goroutine for every engine
	// event, in order. A write stopped by CancelWrite returns an error
	// that matches ErrWriteCancelled.
	Write(ctx context.Context, image Image, onEvent func(WriteEvent)) error

	// CancelWrite asks the engine to abort an in-flight Write. It does
	// not wait for Write to return.
	CancelWrite() error

	Close() error
}
