package server

import (
	"fmt"
	"image"
	_ "image/png" // decoder for stitched PNG output
	"os"
	"path/filepath"
	"strings"

	"github.com/alnah/go-pdfstitch/internal/stitch"
)

// webQuality is the JPEG quality of the optimized variant.
const webQuality = 80

// optimizedVariant writes a web-sized JPEG copy of a PNG result next to
// it and returns its path. JPEG results are already optimized and return
// an empty path.
func optimizedVariant(imagePath string) (string, error) {
	ext := strings.ToLower(filepath.Ext(imagePath))
	if ext == ".jpg" || ext == ".jpeg" {
		return "", nil
	}

	f, err := os.Open(imagePath) // #nosec G304 -- path is produced by the stitcher
	if err != nil {
		return "", err
	}
	img, _, err := image.Decode(f)
	_ = f.Close()
	if err != nil {
		return "", fmt.Errorf("decoding %s: %w", filepath.Base(imagePath), err)
	}

	out := strings.TrimSuffix(imagePath, filepath.Ext(imagePath)) + "-optimized.jpg"
	if err := stitch.WriteCanvas(img, out, stitch.FormatJPEG, webQuality); err != nil {
		return "", err
	}
	return out, nil
}
