package media

import (
	"context"
	"fmt"
	"io/fs"
	"sync/atomic"

	"github.com/charlievieth/fastwalk"
)

// Footprint is the on-disc size of a directory tree.
type Footprint struct {
	Bytes int64
	Files int64
}

// Measure walks root in parallel and sums the sector-rounded size of
// every regular file beneath it. Symlinks are not followed.
func Measure(ctx context.Context, root string) (Footprint, error) {
	var bytes, files atomic.Int64

	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		bytes.Add(RoundToSectors(info.Size()))
		files.Add(1)
		return nil
	})
	if err != nil {
		return Footprint{}, fmt.Errorf("measuring %q: %w", root, err)
	}

	return Footprint{Bytes: bytes.Load(), Files: files.Load()}, nil
}
