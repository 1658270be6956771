package cdrecord

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/burnmedia/burnmedia/internal/recorder"
)

const procCdromInfo = "/proc/sys/dev/cdrom/info"

// devicePaths are probed when neither /proc nor lsblk report a drive.
var devicePaths = []string{
	"/dev/sr0", "/dev/sr1", "/dev/sr2", "/dev/sr3",
	"/dev/cdrom", "/dev/dvd", "/dev/cdrw", "/dev/dvdrw",
}

// DetectDrives finds the optical drives on the system. tool, when not
// empty, is asked about each drive with -inq to fill in vendor and model.
func DetectDrives(ctx context.Context, tool string) []recorder.Recorder {
	var drives []recorder.Recorder

	// Method 1: /proc/sys/dev/cdrom/info
	if f, err := os.Open(procCdromInfo); err == nil {
		drives, _ = parseProcInfo(f)
		f.Close()
	}
	fromProc := len(drives) > 0

	// Method 2: lsblk
	if out, err := lsblk(ctx); err == nil {
		found, _ := parseLsblk(bytes.NewReader(out))
		drives = mergeDrives(drives, found)
	}

	// Method 3: well known device paths
	if len(drives) == 0 {
		drives = detectFromDevices()
	}

	if tool != "" {
		inquireAll(ctx, tool, drives, fromProc)
	}

	for i := range drives {
		drives[i].ID = drives[i].Device
		drives[i].VolumePaths = aliasesOf(drives[i].Device)
		drives[i].Profiles = writableProfiles(drives[i])
	}
	return drives
}

func lsblk(ctx context.Context) ([]byte, error) {
	out, err := exec.CommandContext(ctx, "lsblk", "-d", "-n", "-o", "NAME,TYPE,VENDOR,MODEL", "/dev/sr*").Output()
	if err == nil {
		return out, nil
	}
	return exec.CommandContext(ctx, "lsblk", "-d", "-n", "-o", "NAME,TYPE,VENDOR,MODEL").Output()
}

// parseProcInfo reads the column-per-drive layout of the kernel cdrom
// info file.
func parseProcInfo(r io.Reader) ([]recorder.Recorder, error) {
	var names []string
	var canWriteCD, canWriteDVD []bool

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		switch {
		case strings.HasPrefix(line, "drive name:"):
			for _, name := range strings.Fields(line)[2:] {
				names = append(names, "/dev/"+name)
			}
		case strings.HasPrefix(line, "Can write CD-R:"):
			for _, val := range strings.Fields(line)[3:] {
				canWriteCD = append(canWriteCD, val == "1")
			}
		case strings.HasPrefix(line, "Can write DVD-R:"):
			for _, val := range strings.Fields(line)[3:] {
				canWriteDVD = append(canWriteDVD, val == "1")
			}
		}
	}

	drives := make([]recorder.Recorder, 0, len(names))
	for i, name := range names {
		d := recorder.Recorder{Device: name, IsReady: true}
		if i < len(canWriteCD) {
			d.CanBurnCD = canWriteCD[i]
		}
		if i < len(canWriteDVD) {
			d.CanBurnDVD = canWriteDVD[i]
		}
		drives = append(drives, d)
	}
	return drives, scanner.Err()
}

// parseLsblk picks the rom devices out of lsblk NAME,TYPE,VENDOR,MODEL
// output.
func parseLsblk(r io.Reader) ([]recorder.Recorder, error) {
	var drives []recorder.Recorder

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 || fields[1] != "rom" {
			continue
		}
		d := recorder.Recorder{Device: "/dev/" + fields[0], IsReady: true}
		if len(fields) > 2 {
			d.Vendor = fields[2]
		}
		if len(fields) > 3 {
			d.Model = strings.Join(fields[3:], " ")
		}
		drives = append(drives, d)
	}
	return drives, scanner.Err()
}

// mergeDrives adds lsblk's vendor and model to drives found in /proc, or
// takes the lsblk list when /proc had none.
func mergeDrives(drives, found []recorder.Recorder) []recorder.Recorder {
	if len(drives) == 0 {
		return found
	}
	for i := range drives {
		for _, f := range found {
			if drives[i].Device != f.Device {
				continue
			}
			if drives[i].Vendor == "" {
				drives[i].Vendor = f.Vendor
			}
			if drives[i].Model == "" {
				drives[i].Model = f.Model
			}
			break
		}
	}
	return drives
}

func detectFromDevices() []recorder.Recorder {
	var drives []recorder.Recorder
	seen := map[string]bool{}
	for _, device := range devicePaths {
		if _, err := os.Stat(device); err != nil {
			continue
		}
		target, err := filepath.EvalSymlinks(device)
		if err != nil {
			target = device
		}
		if seen[target] {
			continue
		}
		seen[target] = true
		drives = append(drives, recorder.Recorder{Device: device, IsReady: true})
	}
	return drives
}

// inquiry is what the write tool reports about one drive.
type inquiry struct {
	vendor string
	model  string

	// capsKnown is set when the tool named the drive's write capabilities.
	capsKnown bool
	cd        bool
	dvd       bool
}

// inquireAll asks tool about every drive by device path. Capabilities
// already read from the kernel are kept.
func inquireAll(ctx context.Context, tool string, drives []recorder.Recorder, fromProc bool) {
	for i := range drives {
		inq, err := inquire(ctx, tool, drives[i].Device)
		if err != nil {
			continue
		}
		applyInquiry(&drives[i], inq, fromProc)
	}
}

func inquire(ctx context.Context, tool, device string) (inquiry, error) {
	out, err := exec.CommandContext(ctx, tool, "dev="+device, "-inq").Output()
	if err != nil && len(out) == 0 {
		return inquiry{}, err
	}
	return parseInquiry(bytes.NewReader(out)), nil
}

var inquiryFieldRe = regexp.MustCompile(`^(Vendor_info|Identification)\s*:\s*'([^']*)'`)

// parseInquiry reads -inq output. The "Device seems to be" line names the
// media the drive writes, e.g. "Generic mmc2 DVD-R/DVD-RW." or
// "Generic mmc CD-ROM.".
func parseInquiry(r io.Reader) inquiry {
	var inq inquiry

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if m := inquiryFieldRe.FindStringSubmatch(line); m != nil {
			if m[1] == "Vendor_info" {
				inq.vendor = strings.TrimSpace(m[2])
			} else {
				inq.model = strings.TrimSpace(m[2])
			}
			continue
		}

		rest, ok := strings.CutPrefix(line, "Device seems to be:")
		if !ok {
			continue
		}
		tokens := strings.FieldsFunc(rest, func(r rune) bool {
			return r == ' ' || r == '/' || r == ',' || r == '.'
		})
		for _, tok := range tokens {
			switch strings.ToUpper(tok) {
			case "CD-R", "CD-RW":
				inq.capsKnown = true
				inq.cd = true
			case "DVD-R", "DVD-RW", "DVD+R", "DVD+RW", "DVD-RAM":
				inq.capsKnown = true
				inq.cd = true
				inq.dvd = true
			case "CD-ROM", "DVD-ROM":
				inq.capsKnown = true
			}
		}
	}
	return inq
}

// applyInquiry fills in vendor and model where they are still missing.
// Write capabilities are only taken from the inquiry when the kernel did
// not report them; a drive the tool answered for without naming its
// media is assumed to burn both.
func applyInquiry(d *recorder.Recorder, inq inquiry, capsFromKernel bool) {
	if d.Vendor == "" {
		d.Vendor = inq.vendor
	}
	if d.Model == "" {
		d.Model = inq.model
	}
	if capsFromKernel {
		return
	}
	if inq.capsKnown {
		d.CanBurnCD = inq.cd
		d.CanBurnDVD = inq.dvd
		return
	}
	d.CanBurnCD = true
	d.CanBurnDVD = true
}

// aliasesOf lists the /dev symlinks that point at device.
func aliasesOf(device string) []string {
	var aliases []string
	for _, alias := range devicePaths {
		if alias == device {
			continue
		}
		if target, err := filepath.EvalSymlinks(alias); err == nil && target == device {
			aliases = append(aliases, alias)
		}
	}
	if len(aliases) == 0 {
		return nil
	}
	return append([]string{device}, aliases...)
}

func writableProfiles(d recorder.Recorder) []recorder.MediaType {
	var types []recorder.MediaType
	for _, p := range recorder.Profiles() {
		if !p.Writable {
			continue
		}
		if (p.DiscType == "cd" && d.CanBurnCD) || (p.DiscType == "dvd" && d.CanBurnDVD) {
			types = append(types, p.Type)
		}
	}
	return types
}
