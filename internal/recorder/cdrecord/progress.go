package cdrecord

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/burnmedia/burnmedia/internal/recorder"
)

// sectorsPerMB converts cdrecord's "MB written" counter to sectors.
const sectorsPerMB = 1048576 / recorder.SectorSize

var trackRe = regexp.MustCompile(`Track\s+(\d+):\s+(\d+)\s+of\s+(\d+)\s+MB written\s+\(fifo\s+(\d+)%\)\s*(?:\[buf\s+(\d+)%\])?`)

// actionPrefixes maps status lines cdrecord prints between progress
// updates to the engine step they announce.
var actionPrefixes = []struct {
	prefix string
	action recorder.WriteAction
}{
	{"Blanking", recorder.ActionFormattingMedia},
	{"Formatting", recorder.ActionFormattingMedia},
	{"Performing OPC", recorder.ActionCalibratingPower},
	{"Starting new track", recorder.ActionWritingData},
	{"Starting to write", recorder.ActionInitializingHardware},
	{"Waiting for reader process", recorder.ActionInitializingHardware},
	{"Writing pregap", recorder.ActionInitializingHardware},
	{"Fixating", recorder.ActionFinalization},
}

// progressLine is one parsed line of write output.
type progressLine struct {
	action    recorder.WriteAction
	isAction  bool
	isTrack   bool
	writtenMB int64
	totalMB   int64
	fifo      int64
	buf       int64 // -1 when not reported
}

func parseProgressLine(line string) (progressLine, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return progressLine{}, false
	}

	if m := trackRe.FindStringSubmatch(line); m != nil {
		p := progressLine{isTrack: true, action: recorder.ActionWritingData, buf: -1}
		p.writtenMB, _ = strconv.ParseInt(m[2], 10, 64)
		p.totalMB, _ = strconv.ParseInt(m[3], 10, 64)
		p.fifo, _ = strconv.ParseInt(m[4], 10, 64)
		if m[5] != "" {
			p.buf, _ = strconv.ParseInt(m[5], 10, 64)
		}
		return p, true
	}

	for _, ap := range actionPrefixes {
		if strings.HasPrefix(line, ap.prefix) {
			return progressLine{isAction: true, action: ap.action}, true
		}
	}
	return progressLine{}, false
}

// scanLines splits on both \r and \n. cdrecord redraws its progress line
// with carriage returns.
func scanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// eventBuilder turns parsed lines into write events for one track.
type eventBuilder struct {
	started     time.Time
	startSector int64
	sectorCount int64
	current     recorder.WriteEvent
}

func newEventBuilder(started time.Time, startSector, sectorCount int64) *eventBuilder {
	return &eventBuilder{
		started:     started,
		startSector: startSector,
		sectorCount: sectorCount,
		current: recorder.WriteEvent{
			CurrentAction:     recorder.ActionValidatingMedia,
			StartSector:       startSector,
			SectorCount:       sectorCount,
			LastReadSector:    startSector,
			LastWrittenSector: startSector,
		},
	}
}

// action returns an event announcing a new engine step.
func (b *eventBuilder) action(a recorder.WriteAction, now time.Time) recorder.WriteEvent {
	b.current.CurrentAction = a
	if a == recorder.ActionCompleted || a == recorder.ActionFinalization {
		b.current.LastWrittenSector = b.startSector + b.sectorCount
		b.current.LastReadSector = b.current.LastWrittenSector
		b.current.RemainingTime = 0
	}
	b.stamp(now)
	return b.current
}

// track returns an event for a progress line. Written sectors are capped
// at the image size since cdrecord counts whole megabytes.
func (b *eventBuilder) track(p progressLine, now time.Time) recorder.WriteEvent {
	written := p.writtenMB * sectorsPerMB
	if b.sectorCount > 0 && written > b.sectorCount {
		written = b.sectorCount
	}

	b.current.CurrentAction = recorder.ActionWritingData
	b.current.LastWrittenSector = b.startSector + written
	b.current.LastReadSector = b.current.LastWrittenSector
	b.current.BufferTotal = 100
	b.current.BufferUsed = p.fifo
	b.current.BufferFree = 100 - p.fifo

	b.stamp(now)
	if written > 0 && b.sectorCount > 0 {
		left := b.sectorCount - written
		b.current.RemainingTime = time.Duration(float64(b.current.ElapsedTime) * float64(left) / float64(written))
	}
	b.current.TotalTime = b.current.ElapsedTime + b.current.RemainingTime
	return b.current
}

func (b *eventBuilder) stamp(now time.Time) {
	b.current.ElapsedTime = now.Sub(b.started)
	b.current.TotalTime = b.current.ElapsedTime + b.current.RemainingTime
}
