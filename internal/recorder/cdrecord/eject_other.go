//go:build !linux

package cdrecord

import (
	"context"
	"os/exec"
	"strings"

	"github.com/burnmedia/burnmedia/internal/recorder"
)

func eject(ctx context.Context, device string) error {
	out, err := exec.CommandContext(ctx, "eject", device).CombinedOutput()
	if err != nil {
		return &recorder.NativeError{
			Op:      "eject",
			Code:    exitCode(err),
			Message: lastLine(strings.TrimSpace(string(out)), err.Error()),
			Err:     err,
		}
	}
	return nil
}
