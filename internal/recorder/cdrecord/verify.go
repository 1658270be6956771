package cdrecord

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"

	"github.com/burnmedia/burnmedia/internal/recorder"
)

// verify checks the track just written. Quick re-reads the media table
// of contents; full also compares the written sectors with the digest of
// the streamed image.
func (s *session) verify(ctx context.Context, sectors int64, digest hash.Hash) error {
	info, err := s.dev.DetectMedia(ctx)
	if err != nil {
		return &recorder.NativeError{Op: "verify", Code: recorder.ErrorCode(err), Message: err.Error(), Err: err}
	}
	if info.Blank {
		return &recorder.NativeError{Op: "verify", Code: -1, Message: "media still blank after write"}
	}
	if digest == nil {
		s.dev.log.Info("quick verification passed")
		return nil
	}

	want := digest.Sum(nil)
	got, err := hashSectors(ctx, s.dev.rec.Device, s.startSector, sectors)
	if err != nil {
		return &recorder.NativeError{Op: "verify", Code: errnoOf(err), Message: err.Error(), Err: err}
	}
	if !bytes.Equal(want, got) {
		return &recorder.NativeError{
			Op:      "verify",
			Code:    -1,
			Message: fmt.Sprintf("checksum mismatch: wrote %s, read %s", hex.EncodeToString(want), hex.EncodeToString(got)),
		}
	}
	s.dev.log.Info("full verification passed", "sha256", hex.EncodeToString(got))
	return nil
}

// hashSectors reads count sectors from device starting at start.
func hashSectors(ctx context.Context, device string, start, count int64) ([]byte, error) {
	f, err := os.Open(device)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if _, err := f.Seek(start*recorder.SectorSize, io.SeekStart); err != nil {
		return nil, err
	}
	h := sha256.New()
	r := &ctxReader{ctx: ctx, r: f}
	if _, err := io.CopyN(h, r, count*recorder.SectorSize); err != nil {
		return nil, fmt.Errorf("reading back %s: %w", device, err)
	}
	return h.Sum(nil), nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
