// Package config provides configuration management for burnmedia.
package config

// Default configuration values for burnmedia.
const (
	// DefaultVolumeLabel formats today's date as YYYY_M_D.
	DefaultVolumeLabel = "%Y_%n_%e"

	// DefaultVerification is the read-back check after a burn.
	DefaultVerification = "none"

	// DefaultStatusBuffer is the capacity of a run's status channel.
	DefaultStatusBuffer = 16

	// DefaultHistoryLimit is how many jobs `history` lists.
	DefaultHistoryLimit = 20
)

// DefaultLogComponents are the per-component levels written to a new
// config file.
var DefaultLogComponents = map[string]string{
	"burn":      "info",
	"cdrecord":  "info",
	"mkisofs":   "info",
	"workspace": "info",
}
