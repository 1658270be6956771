package recorder

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseMediaType(t *testing.T) {
	tests := []struct {
		input string
		want  MediaType
	}{
		{input: "CD-R", want: MediaCDR},
		{input: "CD-RW", want: MediaCDRW},
		{input: "CD-ROM", want: MediaCDROM},
		{input: "DVD+R", want: MediaDVDPlusR},
		{input: "DVD+R/DL", want: MediaDVDPlusRDualLayer},
		{input: "DVD+RW", want: MediaDVDPlusRW},
		{input: "DVD-R sequential recording", want: MediaDVDDashR},
		{input: "DVD-RW restricted overwrite", want: MediaDVDDashRW},
		{input: "DVD-R DL", want: MediaDVDDashRDualLayer},
		{input: "DVD-RAM", want: MediaDVDRAM},
		{input: "DVD-ROM", want: MediaDVDROM},
		{input: "BD-ROM", want: MediaBDROM},
		{input: "BD-R sequential recording", want: MediaBDR},
		{input: "BD-RE", want: MediaBDRE},
		{input: "  dvd+rw  ", want: MediaDVDPlusRW},
		{input: "floppy", want: MediaUnknown},
		{input: "", want: MediaUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseMediaType(tt.input))
		})
	}
}

func TestGetProfileByName(t *testing.T) {
	p, ok := GetProfileByName("dvd+rw")
	assert.True(t, ok)
	assert.Equal(t, MediaDVDPlusRW, p.Type)
	assert.True(t, p.Rewritable)

	p, ok = GetProfileByName("CD-R")
	assert.True(t, ok)
	assert.Equal(t, "cd", p.DiscType)

	_, ok = GetProfileByName("minidisc")
	assert.False(t, ok)
}

func TestMediaTypeString(t *testing.T) {
	assert.Equal(t, "DVD+R Dual Layer", MediaDVDPlusRDualLayer.String())
	assert.Equal(t, "Unknown media", MediaUnknown.String())
}

func TestListProfiles(t *testing.T) {
	var buf bytes.Buffer
	ListProfiles(&buf)

	out := buf.String()
	assert.Contains(t, out, "CD media:")
	assert.Contains(t, out, "DVD media:")
	assert.Contains(t, out, "BD media:")
	assert.Contains(t, out, "cd-rw")
	assert.Contains(t, out, "rewritable")
}
