package testutil

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"sync"

	"chirp/internal/models"
)

// ImageHostStub is an in-memory image host for tests. Err, when set, is
// returned from every upload.
type ImageHostStub struct {
	mu      sync.Mutex
	Err     error
	Uploads []models.ImageUpload
}

// Upload records the upload and returns a deterministic URL.
func (s *ImageHostStub) Upload(_ context.Context, upload models.ImageUpload) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return "", s.Err
	}
	s.Uploads = append(s.Uploads, upload)
	return fmt.Sprintf("https://images.test/%d/%s", len(s.Uploads), upload.Filename), nil
}

// Count returns the number of successful uploads.
func (s *ImageHostStub) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Uploads)
}

// TinyPNG returns an in-memory PNG byte slice with the requested dimensions.
func TinyPNG(t interface {
	Helper()
	Fatalf(string, ...any)
}, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	buf := bytes.NewBuffer(nil)
	if err := png.Encode(buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}
