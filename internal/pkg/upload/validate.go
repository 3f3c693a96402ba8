package upload

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"
)

var allowedExt = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".bmp":  true,
	// SVG stays excluded: scriptable content
}

var allowedMime = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
	"image/bmp":  true,
}

var (
	ErrUnsupportedFormat = errors.New("only JPG, JPEG, PNG, GIF, WEBP and BMP screenshots are supported")
	ErrScriptable        = errors.New("HTML, SVG and XML content is not allowed")
	ErrUnsupportedType   = errors.New("the file type is not supported")
)

// ValidateImageBySniff checks the filename extension and the first bytes of
// the file against the image whitelist. Returns the detected mime type.
func ValidateImageBySniff(filename string, head []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExt[ext] {
		return "", ErrUnsupportedFormat
	}

	detected := http.DetectContentType(head)

	if strings.HasPrefix(detected, "text/html") || strings.HasPrefix(detected, "application/xhtml") {
		return "", ErrScriptable
	}
	if strings.HasPrefix(detected, "text/xml") || strings.HasPrefix(detected, "application/xml") || detected == "image/svg+xml" {
		return "", ErrScriptable
	}

	if allowedMime[detected] {
		return detected, nil
	}
	return "", ErrUnsupportedType
}
