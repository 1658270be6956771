package cdrecord

import (
	"bufio"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/burnmedia/burnmedia/internal/logging"
	"github.com/burnmedia/burnmedia/internal/recorder"
)

const procInfo = `CD-ROM information, Id: cdrom.c 3.20 2003/12/17

drive name:		sr1	sr0
drive speed:		48	24
drive # of slots:	1	1
Can close tray:		1	1
Can open tray:		1	1
Can write CD-R:		1	0
Can write CD-RW:	1	0
Can read DVD:		1	1
Can write DVD-R:	1	0
Can write DVD-RAM:	1	0
`

func TestParseProcInfo(t *testing.T) {
	drives, err := parseProcInfo(strings.NewReader(procInfo))
	require.NoError(t, err)
	require.Len(t, drives, 2)

	assert.Equal(t, "/dev/sr1", drives[0].Device)
	assert.True(t, drives[0].CanBurnCD)
	assert.True(t, drives[0].CanBurnDVD)
	assert.True(t, drives[0].IsReady)

	assert.Equal(t, "/dev/sr0", drives[1].Device)
	assert.False(t, drives[1].CanBurn())
}

func TestParseLsblk(t *testing.T) {
	out := `sda  disk ATA      Samsung SSD 860
sr0  rom  HL-DT-ST DVDRAM GH24NSD1
sr1  rom
`
	drives, err := parseLsblk(strings.NewReader(out))
	require.NoError(t, err)
	require.Len(t, drives, 2)

	assert.Equal(t, "/dev/sr0", drives[0].Device)
	assert.Equal(t, "HL-DT-ST", drives[0].Vendor)
	assert.Equal(t, "DVDRAM GH24NSD1", drives[0].Model)
	assert.Equal(t, "/dev/sr1", drives[1].Device)
	assert.Empty(t, drives[1].Vendor)
}

func TestMergeDrives(t *testing.T) {
	proc := []recorder.Recorder{{Device: "/dev/sr0", CanBurnCD: true}}
	found := []recorder.Recorder{{Device: "/dev/sr0", Vendor: "ASUS", Model: "DRW-24D5MT"}, {Device: "/dev/sr1"}}

	merged := mergeDrives(proc, found)
	require.Len(t, merged, 1)
	assert.Equal(t, "ASUS", merged[0].Vendor)
	assert.Equal(t, "DRW-24D5MT", merged[0].Model)
	assert.True(t, merged[0].CanBurnCD)

	assert.Equal(t, found, mergeDrives(nil, found))
}

const inqDVDWriter = `Device type    : Removable CD-ROM
Version        : 5
Response Format: 2
Capabilities   :
Vendor_info    : 'HL-DT-ST'
Identification : 'DVDRAM GH24NSD1 '
Revision       : 'LG00'
Device seems to be: Generic mmc2 DVD-R/DVD-RW.
`

func TestParseInquiry(t *testing.T) {
	tests := []struct {
		name      string
		out       string
		vendor    string
		model     string
		capsKnown bool
		cd        bool
		dvd       bool
	}{
		{"dvd writer", inqDVDWriter, "HL-DT-ST", "DVDRAM GH24NSD1", true, true, true},
		{"cd writer", "Vendor_info    : 'PLEXTOR '\nIdentification : 'CD-R   PX-W4824A'\nDevice seems to be: Generic mmc CD-RW.\n", "PLEXTOR", "CD-R   PX-W4824A", true, true, false},
		{"reader", "Vendor_info    : 'TSSTcorp'\nIdentification : 'DVD-ROM SH-D162D'\nDevice seems to be: Generic mmc2 DVD-ROM.\n", "TSSTcorp", "DVD-ROM SH-D162D", true, false, false},
		{"no capability line", "Vendor_info    : 'ASUS    '\n", "ASUS", "", false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inq := parseInquiry(strings.NewReader(tt.out))
			assert.Equal(t, tt.vendor, inq.vendor)
			assert.Equal(t, tt.model, inq.model)
			assert.Equal(t, tt.capsKnown, inq.capsKnown)
			assert.Equal(t, tt.cd, inq.cd)
			assert.Equal(t, tt.dvd, inq.dvd)
		})
	}
}

func TestApplyInquiryKeepsKernelCapabilities(t *testing.T) {
	d := recorder.Recorder{Device: "/dev/sr0", Vendor: "ASUS"}
	applyInquiry(&d, parseInquiry(strings.NewReader(inqDVDWriter)), true)

	assert.Equal(t, "ASUS", d.Vendor)
	assert.Equal(t, "DVDRAM GH24NSD1", d.Model)
	assert.False(t, d.CanBurn())

	d = recorder.Recorder{Device: "/dev/sr0"}
	applyInquiry(&d, inquiry{capsKnown: true}, false)
	assert.False(t, d.CanBurn())

	d = recorder.Recorder{Device: "/dev/sr0"}
	applyInquiry(&d, inquiry{vendor: "ASUS"}, false)
	assert.True(t, d.CanBurnCD)
	assert.True(t, d.CanBurnDVD)
}

func TestInquireAllMatchesByDevice(t *testing.T) {
	// Answers for sr0 come first so a positional match would mislabel sr1.
	tool := fakeTool(t, `case "$1" in
dev=/dev/sr0)
	echo "Vendor_info    : 'TSSTcorp'"
	echo "Identification : 'DVD-ROM SH-D162D'"
	echo "Device seems to be: Generic mmc2 DVD-ROM."
	;;
dev=/dev/sr1)
	echo "Vendor_info    : 'HL-DT-ST'"
	echo "Identification : 'DVDRAM GH24NSD1'"
	echo "Device seems to be: Generic mmc2 DVD-R/DVD-RW."
	;;
*)
	exit 1
	;;
esac
`)

	drives, err := parseProcInfo(strings.NewReader(procInfo))
	require.NoError(t, err)
	inquireAll(testContext(t), tool, drives, true)

	require.Len(t, drives, 2)
	assert.Equal(t, "/dev/sr1", drives[0].Device)
	assert.Equal(t, "HL-DT-ST", drives[0].Vendor)
	assert.True(t, drives[0].CanBurn())

	assert.Equal(t, "/dev/sr0", drives[1].Device)
	assert.Equal(t, "TSSTcorp", drives[1].Vendor)
	assert.Equal(t, "DVD-ROM SH-D162D", drives[1].Model)
	assert.False(t, drives[1].CanBurn())
	assert.Empty(t, writableProfiles(drives[1]))
}

func TestInquireAllFromLsblk(t *testing.T) {
	tool := fakeTool(t, `echo "Device seems to be: Generic mmc CD-RW."
`)
	drives := []recorder.Recorder{{Device: "/dev/sr0", Vendor: "PLEXTOR"}}
	inquireAll(testContext(t), tool, drives, false)

	assert.Equal(t, "PLEXTOR", drives[0].Vendor)
	assert.True(t, drives[0].CanBurnCD)
	assert.False(t, drives[0].CanBurnDVD)
}

func TestInquireToolMissing(t *testing.T) {
	drives := []recorder.Recorder{{Device: "/dev/sr0"}}
	inquireAll(testContext(t), filepath.Join(t.TempDir(), "cdrecord"), drives, false)
	assert.False(t, drives[0].CanBurn())
	assert.Empty(t, drives[0].Vendor)
}

func TestWritableProfiles(t *testing.T) {
	cdOnly := writableProfiles(recorder.Recorder{CanBurnCD: true})
	assert.Equal(t, []recorder.MediaType{recorder.MediaCDR, recorder.MediaCDRW}, cdOnly)

	both := writableProfiles(recorder.Recorder{CanBurnCD: true, CanBurnDVD: true})
	assert.Contains(t, both, recorder.MediaDVDPlusR)
	assert.NotContains(t, both, recorder.MediaDVDROM)
	assert.NotContains(t, both, recorder.MediaBDR)
}

const minfoBlankDVD = `Using SCSI Generic device.
Device type    : Removable CD-ROM
Mounted media class:      DVD
Mounted media type:       DVD+R
Disk Is not erasable
data type:                standard
disk status:              empty
session status:           empty
BG format status:         none
first track:              1
number of sessions:       1

Track  Sess Type   Start Addr End Addr   Size
==============================================
    1     1 Blank  0          2295103    2295104

Next writable address:              0
Remaining writable size:            2295104
`

const minfoAppendableCD = `Mounted media class:      CD
Mounted media type:       CD-R
Disk Is not erasable
disk status:              incomplete/appendable
session status:           empty

Track  Sess Type   Start Addr End Addr   Size
==============================================
    1     1 Data   0          11701      11702
    2     2 Blank  11702      359847     348146

Last session start address:         0
Last session leadout start address: 11702
Next writable address:              11702
Remaining writable size:            348146
`

const minfoClosedCD = `Mounted media type:       CD-R
disk status:              complete
session status:           complete

Track  Sess Type   Start Addr End Addr   Size
==============================================
    1     1 Data   0          11701      11702
    2     2 Data   11702      25000      13299
`

func TestParseMinfo(t *testing.T) {
	tests := []struct {
		name     string
		out      string
		wantType recorder.MediaType
		blank    bool
		total    int64
		free     int64
	}{
		{"blank dvd+r", minfoBlankDVD, recorder.MediaDVDPlusR, true, 2295104, 2295104},
		{"appendable cd-r", minfoAppendableCD, recorder.MediaCDR, false, 359848, 348146},
		{"closed cd-r", minfoClosedCD, recorder.MediaCDR, false, 25001, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rep, err := parseMinfo(strings.NewReader(tt.out))
			require.NoError(t, err)

			info := rep.mediaInfo()
			assert.Equal(t, tt.wantType, info.Type)
			assert.Equal(t, tt.blank, info.Blank)
			assert.Equal(t, tt.total, info.TotalSectors)
			assert.Equal(t, tt.free, info.FreeSectors)
		})
	}
}

func TestParseMinfoAppendableStatus(t *testing.T) {
	rep, err := parseMinfo(strings.NewReader(minfoAppendableCD))
	require.NoError(t, err)
	assert.Equal(t, statusAppendable, rep.DiskStatus)
	assert.Equal(t, int64(11702), rep.NextWritable)
}

func TestParseMinfoNoMedia(t *testing.T) {
	_, err := parseMinfo(strings.NewReader("cdrecord: No disk / Wrong disk!\n"))
	assert.ErrorIs(t, err, recorder.ErrMediaNotSupported)
}

func TestParseMsinfo(t *testing.T) {
	last, next, err := parseMsinfo(strings.NewReader("Using SCSI Generic device.\n0,11702\n"))
	require.NoError(t, err)
	assert.Equal(t, int64(0), last)
	assert.Equal(t, int64(11702), next)

	_, _, err = parseMsinfo(strings.NewReader("cdrecord: Cannot read session offset\n"))
	assert.Error(t, err)
}

func TestParseProgressLine(t *testing.T) {
	p, ok := parseProgressLine("Track 01:   12 of  178 MB written (fifo 100%) [buf  97%]   4.2x.")
	require.True(t, ok)
	assert.True(t, p.isTrack)
	assert.Equal(t, int64(12), p.writtenMB)
	assert.Equal(t, int64(178), p.totalMB)
	assert.Equal(t, int64(100), p.fifo)
	assert.Equal(t, int64(97), p.buf)

	p, ok = parseProgressLine("Track 01:    0 of  178 MB written (fifo  98%)")
	require.True(t, ok)
	assert.Equal(t, int64(98), p.fifo)
	assert.Equal(t, int64(-1), p.buf)

	p, ok = parseProgressLine("Performing OPC...")
	require.True(t, ok)
	assert.True(t, p.isAction)
	assert.Equal(t, recorder.ActionCalibratingPower, p.action)

	p, ok = parseProgressLine("Fixating...")
	require.True(t, ok)
	assert.Equal(t, recorder.ActionFinalization, p.action)

	_, ok = parseProgressLine("Driver flags   : MMC-3 SWABAUDIO BURNFREE")
	assert.False(t, ok)
	_, ok = parseProgressLine("   ")
	assert.False(t, ok)
}

func TestScanLinesSplitsCarriageReturns(t *testing.T) {
	in := "Starting new track at sector: 0\nTrack 01:    1 of   4 MB written\rTrack 01:    2 of   4 MB written\rFixating...\n"
	scanner := bufio.NewScanner(strings.NewReader(in))
	scanner.Split(scanLines)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	assert.Equal(t, []string{
		"Starting new track at sector: 0",
		"Track 01:    1 of   4 MB written",
		"Track 01:    2 of   4 MB written",
		"Fixating...",
	}, lines)
}

func TestEventBuilder(t *testing.T) {
	start := time.Unix(1000, 0)
	b := newEventBuilder(start, 11702, 2048)

	ev := b.action(recorder.ActionCalibratingPower, start.Add(time.Second))
	assert.Equal(t, recorder.ActionCalibratingPower, ev.CurrentAction)
	assert.Equal(t, int64(11702), ev.LastWrittenSector)
	assert.Equal(t, time.Second, ev.ElapsedTime)

	p, ok := parseProgressLine("Track 01:    2 of    4 MB written (fifo  90%) [buf  50%]")
	require.True(t, ok)
	ev = b.track(p, start.Add(5*time.Second))
	assert.Equal(t, recorder.ActionWritingData, ev.CurrentAction)
	assert.Equal(t, int64(11702+1024), ev.LastWrittenSector)
	assert.Equal(t, int64(2048), ev.SectorCount)
	assert.Equal(t, int64(90), ev.BufferUsed)
	assert.Equal(t, int64(10), ev.BufferFree)
	assert.Equal(t, 5*time.Second, ev.RemainingTime)
	assert.Equal(t, 10*time.Second, ev.TotalTime)

	// cdrecord rounds up the final megabyte
	p, _ = parseProgressLine("Track 01:    5 of    4 MB written (fifo 100%)")
	ev = b.track(p, start.Add(9*time.Second))
	assert.Equal(t, int64(11702+2048), ev.LastWrittenSector)

	ev = b.action(recorder.ActionCompleted, start.Add(10*time.Second))
	assert.Equal(t, time.Duration(0), ev.RemainingTime)
	assert.Equal(t, int64(11702+2048), ev.LastWrittenSector)
}

func TestSessionArgs(t *testing.T) {
	dev := &device{rec: recorder.Recorder{Device: "/dev/sr0"}, log: logging.Get("cdrecord")}

	s := &session{dev: dev, opts: recorder.WriteOptions{CloseMedia: true}}
	assert.Equal(t, []string{"-v", "dev=/dev/sr0", "gracetime=2", "-data", "-tao", "tsize=1000s", "-"}, s.args(1000))

	s = &session{dev: dev, opts: recorder.WriteOptions{Simulate: true}}
	assert.Equal(t, []string{"-v", "dev=/dev/sr0", "gracetime=2", "-data", "-tao", "tsize=16s", "-multi", "-dummy", "-"}, s.args(16))
}

func TestCancelBeforeWrite(t *testing.T) {
	dev := &device{rec: recorder.Recorder{Device: "/dev/sr0"}, tool: "/nonexistent/cdrecord", log: logging.Get("cdrecord")}
	s := &session{dev: dev}

	require.NoError(t, s.CancelWrite())
	err := s.Write(testContext(t), nil, nil)
	assert.ErrorIs(t, err, recorder.ErrWriteCancelled)
}

func TestLastLine(t *testing.T) {
	assert.Equal(t, "second", lastLine("first\nsecond\n", "x"))
	assert.Equal(t, "x", lastLine("  \n", "x"))
}
