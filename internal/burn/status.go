package burn

import (
	"github.com/google/uuid"

	"github.com/burnmedia/burnmedia/internal/recorder"
)

// Phase is the state of a burn job.
type Phase int

const (
	Idle Phase = iota
	BuildingFileSystem
	Writing
	Completed
	Failed
	Cancelled
)

var phaseNames = map[Phase]string{
	Idle:               "idle",
	BuildingFileSystem: "building-file-system",
	Writing:            "writing",
	Completed:          "completed",
	Failed:             "failed",
	Cancelled:          "cancelled",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether p ends a job.
func (p Phase) Terminal() bool {
	return p == Completed || p == Failed || p == Cancelled
}

// Status is one progress snapshot of a job. The embedded write event
// carries the raw engine fields while writing and is zero otherwise.
type Status struct {
	JobID       uuid.UUID
	Phase       Phase
	Message     string
	Percent     int
	CurrentFile string // Item being added while building the file system

	recorder.WriteEvent
}

// WritePercent computes how much of the track has been written, capped at
// 100 when the drive reports sectors past the end of the track.
func WritePercent(startSector, sectorCount, lastWrittenSector int64) int {
	written := lastWrittenSector - startSector
	if written <= 0 || sectorCount <= 0 {
		return 0
	}
	return int(min(100*written/sectorCount, 100))
}
