package recorder

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// MediaType identifies the physical media loaded in a recorder.
type MediaType int

const (
	MediaUnknown MediaType = iota
	MediaCDROM
	MediaCDR
	MediaCDRW
	MediaDVDROM
	MediaDVDRAM
	MediaDVDPlusR
	MediaDVDPlusRW
	MediaDVDPlusRDualLayer
	MediaDVDDashR
	MediaDVDDashRW
	MediaDVDDashRDualLayer
	MediaBDROM
	MediaBDR
	MediaBDRE
)

// MediaProfile describes a media type and how to handle it.
type MediaProfile struct {
	Key            string // Short name accepted on the command line
	Name           string // Human readable name
	Type           MediaType
	DiscType       string // "cd", "dvd" or "bd"
	Writable       bool
	Rewritable     bool
	NominalSectors int64 // Typical capacity of a blank disc
}

var profiles = []MediaProfile{
	{Key: "cd-rom", Name: "CD-ROM", Type: MediaCDROM, DiscType: "cd", NominalSectors: 359848},
	{Key: "cd-r", Name: "CD-R", Type: MediaCDR, DiscType: "cd", Writable: true, NominalSectors: 359848},
	{Key: "cd-rw", Name: "CD-RW", Type: MediaCDRW, DiscType: "cd", Writable: true, Rewritable: true, NominalSectors: 359848},
	{Key: "dvd-rom", Name: "DVD-ROM", Type: MediaDVDROM, DiscType: "dvd", NominalSectors: 2295104},
	{Key: "dvd-ram", Name: "DVD-RAM", Type: MediaDVDRAM, DiscType: "dvd", Writable: true, Rewritable: true, NominalSectors: 2236704},
	{Key: "dvd+r", Name: "DVD+R", Type: MediaDVDPlusR, DiscType: "dvd", Writable: true, NominalSectors: 2295104},
	{Key: "dvd+rw", Name: "DVD+RW", Type: MediaDVDPlusRW, DiscType: "dvd", Writable: true, Rewritable: true, NominalSectors: 2295104},
	{Key: "dvd+r-dl", Name: "DVD+R Dual Layer", Type: MediaDVDPlusRDualLayer, DiscType: "dvd", Writable: true, NominalSectors: 4173824},
	{Key: "dvd-r", Name: "DVD-R", Type: MediaDVDDashR, DiscType: "dvd", Writable: true, NominalSectors: 2298496},
	{Key: "dvd-rw", Name: "DVD-RW", Type: MediaDVDDashRW, DiscType: "dvd", Writable: true, Rewritable: true, NominalSectors: 2298496},
	{Key: "dvd-r-dl", Name: "DVD-R Dual Layer", Type: MediaDVDDashRDualLayer, DiscType: "dvd", Writable: true, NominalSectors: 4171712},
	{Key: "bd-rom", Name: "BD-ROM", Type: MediaBDROM, DiscType: "bd", NominalSectors: 12219392},
	{Key: "bd-r", Name: "BD-R", Type: MediaBDR, DiscType: "bd", Writable: true, NominalSectors: 12219392},
	{Key: "bd-re", Name: "BD-RE", Type: MediaBDRE, DiscType: "bd", Writable: true, Rewritable: true, NominalSectors: 11826176},
}

// Profiles returns all known media profiles.
func Profiles() []MediaProfile {
	out := make([]MediaProfile, len(profiles))
	copy(out, profiles)
	return out
}

// ProfileFor returns the profile of a media type.
func ProfileFor(t MediaType) (MediaProfile, bool) {
	for _, p := range profiles {
		if p.Type == t {
			return p, true
		}
	}
	return MediaProfile{Key: "unknown", Name: "Unknown media", Type: MediaUnknown}, false
}

// GetProfileByName returns a profile by its key ("dvd+rw") or its
// display name ("DVD+RW"), ignoring case.
func GetProfileByName(name string) (MediaProfile, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	for _, p := range profiles {
		if p.Key == n || strings.ToLower(p.Name) == n {
			return p, true
		}
	}
	return MediaProfile{}, false
}

// String returns the display name of the media type.
func (t MediaType) String() string {
	p, _ := ProfileFor(t)
	return p.Name
}

// ParseMediaType maps the media names reported by recording tools
// ("CD-R", "DVD+R/DL", "DVD-RW sequential recording", "BD-RE") to a type.
func ParseMediaType(s string) MediaType {
	u := strings.ToUpper(strings.TrimSpace(s))
	dual := strings.Contains(u, "DL") || strings.Contains(u, "DUAL")

	switch {
	case strings.HasPrefix(u, "BD-RE"):
		return MediaBDRE
	case strings.HasPrefix(u, "BD-ROM"):
		return MediaBDROM
	case strings.HasPrefix(u, "BD-R"):
		return MediaBDR
	case strings.HasPrefix(u, "DVD+RW"):
		return MediaDVDPlusRW
	case strings.HasPrefix(u, "DVD+R"):
		if dual {
			return MediaDVDPlusRDualLayer
		}
		return MediaDVDPlusR
	case strings.HasPrefix(u, "DVD-RW"):
		return MediaDVDDashRW
	case strings.HasPrefix(u, "DVD-RAM"):
		return MediaDVDRAM
	case strings.HasPrefix(u, "DVD-ROM"):
		return MediaDVDROM
	case strings.HasPrefix(u, "DVD-R"):
		if dual {
			return MediaDVDDashRDualLayer
		}
		return MediaDVDDashR
	case strings.HasPrefix(u, "CD-RW"):
		return MediaCDRW
	case strings.HasPrefix(u, "CD-R") && !strings.HasPrefix(u, "CD-ROM"):
		return MediaCDR
	case strings.HasPrefix(u, "CD-ROM"):
		return MediaCDROM
	default:
		return MediaUnknown
	}
}

// ListProfiles prints all media profiles grouped by disc family.
func ListProfiles(w io.Writer) {
	groups := map[string][]MediaProfile{}
	for _, p := range profiles {
		groups[p.DiscType] = append(groups[p.DiscType], p)
	}
	families := make([]string, 0, len(groups))
	for f := range groups {
		families = append(families, f)
	}
	sort.Strings(families)

	fmt.Fprintln(w, "Known media types:")
	fmt.Fprintln(w)
	for _, family := range families {
		fmt.Fprintf(w, "%s media:\n", strings.ToUpper(family))
		for _, p := range groups[family] {
			mode := "read-only"
			switch {
			case p.Rewritable:
				mode = "rewritable"
			case p.Writable:
				mode = "write-once"
			}
			fmt.Fprintf(w, "  %-10s - %s (%s, ~%d MB)\n",
				p.Key, p.Name, mode, p.NominalSectors*SectorSize/1048576)
		}
		fmt.Fprintln(w)
	}
}
