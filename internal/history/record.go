// Package history keeps a persistent log of finished burn jobs.
package history

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"time"

	"github.com/burnmedia/burnmedia/internal/burn"
)

// Record is one finished job.
type Record struct {
	ID          string    `yaml:"id"`
	RecorderID  string    `yaml:"recorder"`
	VolumeLabel string    `yaml:"label"`
	Phase       string    `yaml:"phase"`
	Message     string    `yaml:"message"`
	Code        int       `yaml:"code,omitempty"`
	Error       string    `yaml:"error,omitempty"`
	EjectError  string    `yaml:"eject_error,omitempty"`
	Items       int       `yaml:"items"`
	Bytes       int64     `yaml:"bytes"`
	Started     time.Time `yaml:"started"`
	Finished    time.Time `yaml:"finished"`
}

// FromResult converts a burn result to a record.
func FromResult(res burn.Result) Record {
	rec := Record{
		ID:          res.JobID.String(),
		RecorderID:  res.RecorderID,
		VolumeLabel: res.VolumeLabel,
		Phase:       res.Phase.String(),
		Message:     res.Message,
		Code:        res.Code,
		Items:       res.Items,
		Bytes:       res.Bytes,
		Started:     res.Started,
		Finished:    res.Finished,
	}
	if res.Err != nil {
		rec.Error = res.Err.Error()
	}
	if res.EjectErr != nil {
		rec.EjectError = res.EjectErr.Error()
	}
	return rec
}

// Duration returns how long the job ran.
func (r Record) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}

// Encode serializes the record using gob.
func (r *Record) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode deserializes a gob encoded record.
func (r *Record) Decode(data []byte) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(r)
}

// keyPrefix groups job records in the store.
var keyPrefix = []byte("job/")

// makeKey orders records by finish time, then ID.
// Format: job/<unix nanos, big endian>/<id>
func makeKey(r Record) []byte {
	key := make([]byte, 0, len(keyPrefix)+8+1+len(r.ID))
	key = append(key, keyPrefix...)
	key = binary.BigEndian.AppendUint64(key, uint64(r.Finished.UnixNano()))
	key = append(key, '/')
	return append(key, r.ID...)
}
