// Package capacity tracks how much space is left on the selected media
// while items are queued and removed.
package capacity

// BytesPerMB is the unit the tracker counts in.
const BytesPerMB = 1048576

// ToMB converts bytes to whole megabytes, truncating.
func ToMB(bytes int64) int64 {
	return bytes / BytesPerMB
}

// Tracker holds total and free space estimates in MB. Both are unset
// until media has been detected. Free space may go negative: the
// reservation that crosses zero is accepted and later ones are refused.
//
// A Tracker is owned by the foreground context and is not safe for
// concurrent use.
type Tracker struct {
	total    int64
	free     int64
	known    bool
	reserved int64 // MB reserved by queued items
}

// New returns a tracker with no media detected.
func New() *Tracker {
	return &Tracker{}
}

// OnMediaDetected sets the total and free space from the detected media.
// Space already reserved by queued items is subtracted from free.
func (t *Tracker) OnMediaDetected(totalBytes, freeBytes int64) {
	t.total = ToMB(totalBytes)
	t.free = ToMB(freeBytes) - t.reserved
	t.known = true
}

// Forget clears the media estimates, e.g. when a recorder is deselected.
// Reservations are kept.
func (t *Tracker) Forget() {
	t.total = 0
	t.free = 0
	t.known = false
}

// Reserve accounts for an item about to be queued. It refuses, without
// changing anything, when free space is known and already negative.
func (t *Tracker) Reserve(sizeOnDisc int64) bool {
	if t.known && t.free < 0 {
		return false
	}
	mb := ToMB(sizeOnDisc)
	t.reserved += mb
	if t.known {
		t.free -= mb
	}
	return true
}

// Release gives back the space of an item removed from the queue.
func (t *Tracker) Release(sizeOnDisc int64) {
	mb := ToMB(sizeOnDisc)
	t.reserved -= mb
	if t.known {
		t.free += mb
	}
}

// TotalSpace returns the media capacity in MB and whether it is known.
func (t *Tracker) TotalSpace() (int64, bool) {
	return t.total, t.known
}

// FreeSpace returns the free space estimate in MB and whether it is known.
func (t *Tracker) FreeSpace() (int64, bool) {
	return t.free, t.known
}

// Reserved returns the MB currently reserved by queued items.
func (t *Tracker) Reserved() int64 {
	return t.reserved
}

// OverCapacity reports whether the queued items exceed the free space.
func (t *Tracker) OverCapacity() bool {
	return t.known && t.free < 0
}
