package ocr

import (
	"bytes"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/heic"
)

// DecodeImage turns uploaded bytes into a bitmap, honoring embedded EXIF
// orientation. iPhone HEIC/HEIF uploads are decoded through a dedicated
// decoder since the standard image registry does not know the format.
func DecodeImage(data []byte, contentType string) (image.Image, error) {
	if isHEIC(data, contentType) {
		img, err := heic.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decode heic image: %w", err)
		}
		return img, nil
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// isHEIC checks the ftyp box brand; content type alone is unreliable since
// phones often upload HEIC bytes labeled image/jpeg.
func isHEIC(data []byte, contentType string) bool {
	ct := strings.ToLower(contentType)
	if strings.Contains(ct, "heic") || strings.Contains(ct, "heif") {
		return true
	}
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heif", "mif1", "msf1":
		return true
	}
	return false
}
