package media

import (
	"image"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

// IconSize is the edge length of item icons in pixels.
const IconSize = 16

var iconExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".bmp": true, ".tif": true, ".tiff": true,
}

// LoadIcon returns a thumbnail of an image file, or nil when the file is
// not an image or cannot be decoded.
func LoadIcon(path string) image.Image {
	ext := strings.ToLower(filepath.Ext(path))
	if !iconExtensions[ext] {
		return nil
	}

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil
	}
	return imaging.Thumbnail(img, IconSize, IconSize, imaging.Lanczos)
}
