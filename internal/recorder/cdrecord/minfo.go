package cdrecord

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/burnmedia/burnmedia/internal/recorder"
)

// Disk status values reported by -minfo.
const (
	statusEmpty      = "empty"
	statusAppendable = "incomplete/appendable"
	statusComplete   = "complete"
)

// minfoReport is the subset of -minfo output the driver uses.
type minfoReport struct {
	MediaType    string
	DiskStatus   string
	NextWritable int64
	Remaining    int64
	LastTrackEnd int64 // Highest end address in the track table, -1 if none
}

// parseMinfo reads "key: value" lines and the track table of -minfo.
func parseMinfo(r io.Reader) (minfoReport, error) {
	rep := minfoReport{LastTrackEnd: -1}
	inTable := false

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			inTable = false
			continue
		}
		if strings.HasPrefix(line, "Track") && strings.Contains(line, "Start Addr") {
			inTable = true
			continue
		}
		if inTable {
			if strings.HasPrefix(line, "=") {
				continue
			}
			// Track Sess Type Start End Size
			fields := strings.Fields(line)
			if len(fields) >= 6 {
				if end, err := strconv.ParseInt(fields[4], 10, 64); err == nil && fields[2] != "Blank" && end > rep.LastTrackEnd {
					rep.LastTrackEnd = end
				}
			}
			continue
		}

		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "mounted media type":
			rep.MediaType = value
		case "disk status":
			rep.DiskStatus = value
		case "next writable address":
			if n, err := strconv.ParseInt(value, 10, 64); err == nil {
				rep.NextWritable = n
			}
		case "remaining writable size":
			if n, err := strconv.ParseInt(value, 10, 64); err == nil {
				rep.Remaining = n
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return rep, err
	}
	if rep.MediaType == "" {
		return rep, fmt.Errorf("no media type reported: %w", recorder.ErrMediaNotSupported)
	}
	return rep, nil
}

// mediaInfo converts the report. Total space is the used part plus what
// is still writable; a closed disc is sized from its track table.
func (rep minfoReport) mediaInfo() recorder.MediaInfo {
	info := recorder.MediaInfo{
		Type:  recorder.ParseMediaType(rep.MediaType),
		Blank: rep.DiskStatus == statusEmpty,
	}

	switch {
	case rep.DiskStatus == statusComplete:
		info.TotalSectors = rep.LastTrackEnd + 1
		info.FreeSectors = 0
	default:
		info.FreeSectors = rep.Remaining
		info.TotalSectors = rep.NextWritable + rep.Remaining
	}
	if info.TotalSectors < 0 {
		info.TotalSectors = 0
	}
	return info
}

// parseMsinfo parses the "last,next" pair printed by -msinfo.
func parseMsinfo(r io.Reader) (last, next int64, err error) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		a, b, ok := strings.Cut(strings.TrimSpace(scanner.Text()), ",")
		if !ok {
			continue
		}
		l, errA := strconv.ParseInt(strings.TrimSpace(a), 10, 64)
		n, errB := strconv.ParseInt(strings.TrimSpace(b), 10, 64)
		if errA == nil && errB == nil {
			return l, n, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, 0, err
	}
	return 0, 0, fmt.Errorf("no session info in -msinfo output")
}
