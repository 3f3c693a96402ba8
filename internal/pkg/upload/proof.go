package upload

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/RiyaTorgal/SocietyPay-backend/internal/pkg/apperr"
	"github.com/RiyaTorgal/SocietyPay-backend/internal/pkg/objectstore"
	"github.com/disintegration/imaging"
	"github.com/gofiber/fiber/v2/log"
)

const (
	// MaxProofSize caps uploaded payment screenshots
	MaxProofSize = 5 << 20
	maxDimension = 1600
	proofPrefix  = "payment-screenshots"
)

var unsafeName = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// ProofUploader stores payment screenshots in the object store
type ProofUploader struct {
	store objectstore.Store
	now   func() time.Time
}

func NewProofUploader(store objectstore.Store) *ProofUploader {
	return &ProofUploader{store: store, now: time.Now}
}

// Upload validates, normalises and stores a screenshot, returning its public URL.
func (u *ProofUploader) Upload(ctx context.Context, filename string, data []byte) (string, error) {
	if u.store == nil {
		return "", apperr.InvalidState("file uploads are not configured")
	}
	if len(data) == 0 {
		return "", apperr.InvalidInput("screenshot is empty")
	}
	if len(data) > MaxProofSize {
		return "", apperr.InvalidInput("screenshot exceeds %d MB", MaxProofSize>>20)
	}

	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	mime, err := ValidateImageBySniff(filename, head)
	if err != nil {
		return "", apperr.Wrap(apperr.KindInvalidInput, err, err.Error())
	}

	body, contentType, ext := data, mime, strings.ToLower(filepath.Ext(filename))
	if mime != "image/webp" {
		normalized, nerr := Normalize(data)
		if nerr != nil {
			return "", apperr.InvalidInput("screenshot could not be decoded")
		}
		body, contentType, ext = normalized, "image/jpeg", ".jpg"
	}

	key := ProofKey(filename, ext, u.now())
	url, err := u.store.Put(ctx, key, body, contentType)
	if err != nil {
		log.Errorf("[Upload] Failed to store %s: %v", key, err)
		return "", apperr.Wrap(apperr.KindInternal, err, "store screenshot")
	}
	log.Infof("[Upload] Stored payment screenshot %s (%d bytes)", key, len(body))
	return url, nil
}

// Normalize applies EXIF orientation, bounds the image to 1600px and re-encodes it as JPEG.
func Normalize(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, err
	}
	img = fit(img)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func fit(img image.Image) image.Image {
	b := img.Bounds()
	if b.Dx() <= maxDimension && b.Dy() <= maxDimension {
		return img
	}
	return imaging.Fit(img, maxDimension, maxDimension, imaging.Lanczos)
}

// ProofKey builds payment-screenshots/<unix millis>_<sanitised name><ext>
func ProofKey(filename, ext string, now time.Time) string {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	base = strings.Trim(unsafeName.ReplaceAllString(base, "_"), "_")
	if base == "" {
		base = "screenshot"
	}
	if len(base) > 64 {
		base = base[:64]
	}
	return fmt.Sprintf("%s/%d_%s%s", proofPrefix, now.UnixMilli(), base, ext)
}
