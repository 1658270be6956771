//go:build linux

package cdrecord

import (
	"context"
	"os/exec"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/burnmedia/burnmedia/internal/recorder"
)

// cdromEject is CDROMEJECT from linux/cdrom.h.
const cdromEject = 0x5309

// eject opens the tray with the CDROMEJECT ioctl, falling back to the
// eject command when the drive refuses it.
func eject(ctx context.Context, device string) error {
	fd, err := unix.Open(device, unix.O_RDONLY|unix.O_NONBLOCK, 0)
	if err == nil {
		err = unix.IoctlSetInt(fd, cdromEject, 0)
		unix.Close(fd)
		if err == nil {
			return nil
		}
	}

	out, cmdErr := exec.CommandContext(ctx, "eject", device).CombinedOutput()
	if cmdErr != nil {
		return &recorder.NativeError{
			Op:      "eject",
			Code:    errnoOf(err),
			Message: lastLine(strings.TrimSpace(string(out)), err.Error()),
			Err:     err,
		}
	}
	return nil
}
