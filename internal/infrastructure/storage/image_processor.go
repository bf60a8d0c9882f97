package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"net/http"

	_ "image/gif"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/semaphore"

	"grimoire-backend/internal/config"
)

// ErrNotAnImage reports upload bytes that cannot be decoded with any
// registered format.
var ErrNotAnImage = errors.New("data is not a decodable image")

// ErrTooLarge reports an upload over the configured size ceiling.
var ErrTooLarge = errors.New("image exceeds maximum upload size")

// ImageProcessor converts arbitrary uploads into the canonical encoding:
// resized to at most MaxWidth (aspect ratio preserved) and re-encoded as
// JPEG. Conversions are CPU-bound, so they run behind a weighted semaphore;
// the caller blocks for its own conversion but request dispatch for other
// work is never serialized behind a large upload.
type ImageProcessor struct {
	maxWidth     int
	quality      int
	maxBytes     int64
	allowedTypes map[string]string
	sem          *semaphore.Weighted
}

func NewImageProcessor(cfg config.ImageConfig) *ImageProcessor {
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &ImageProcessor{
		maxWidth:     cfg.MaxWidth,
		quality:      cfg.Quality,
		maxBytes:     cfg.MaxUploadBytes,
		allowedTypes: cfg.AllowedTypes,
		sem:          semaphore.NewWeighted(maxConcurrent),
	}
}

// ContentTypeAllowed consults the configured MIME table. An empty table
// allows everything the decoders accept.
func (p *ImageProcessor) ContentTypeAllowed(contentType string) bool {
	if len(p.allowedTypes) == 0 {
		return true
	}
	_, ok := p.allowedTypes[contentType]
	return ok
}

// Validate rejects oversized uploads, content types outside the configured
// table, and undecodable bytes, without fully decoding the pixel data. The
// type check sniffs the actual bytes rather than trusting a declared header.
func (p *ImageProcessor) Validate(data []byte) error {
	if p.maxBytes > 0 && int64(len(data)) > p.maxBytes {
		return fmt.Errorf("%w: %d bytes", ErrTooLarge, len(data))
	}
	if ct := http.DetectContentType(data); !p.ContentTypeAllowed(ct) {
		return fmt.Errorf("%w: content type %s is not accepted", ErrNotAnImage, ct)
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("%w: %v", ErrNotAnImage, err)
	}
	return nil
}

// Normalize produces the canonical JPEG bytes for an upload. It blocks while
// a conversion slot is acquired; ctx cancellation aborts the wait.
func (p *ImageProcessor) Normalize(ctx context.Context, data []byte) ([]byte, error) {
	if err := p.Validate(data); err != nil {
		return nil, err
	}

	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquire conversion slot: %w", err)
	}
	defer p.sem.Release(1)

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotAnImage, err)
	}

	// Only shrink; images narrower than the canonical width keep their size.
	if img.Bounds().Dx() > p.maxWidth {
		img = imaging.Resize(img, p.maxWidth, 0, imaging.Lanczos)
	}

	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: p.quality}); err != nil {
		return nil, fmt.Errorf("cannot encode image: %w", err)
	}
	return buf.Bytes(), nil
}
