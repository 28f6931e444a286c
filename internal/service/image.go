package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"mime"
	"strings"

	"chirp/internal/config"
	"chirp/internal/models"

	_ "golang.org/x/image/webp" // Register WebP decoder
)

const DefaultImageMaxUploadSizeMB = 5

// ImageHost stores image bytes and returns their public URL.
type ImageHost interface {
	Upload(ctx context.Context, upload models.ImageUpload) (string, error)
}

type imageUploader struct {
	host               ImageHost
	maxUploadSizeBytes int64
}

func newImageUploader(host ImageHost, cfg *config.Config) *imageUploader {
	maxUploadSizeMB := DefaultImageMaxUploadSizeMB
	if cfg != nil && cfg.ImageMaxUploadSizeMB > 0 {
		maxUploadSizeMB = cfg.ImageMaxUploadSizeMB
	}
	return &imageUploader{
		host:               host,
		maxUploadSizeBytes: int64(maxUploadSizeMB) * 1024 * 1024,
	}
}

// upload validates the image and hands it to the host. Nothing is written
// locally; a host failure surfaces as UPSTREAM_UNAVAILABLE.
func (u *imageUploader) upload(ctx context.Context, in models.ImageUpload) (string, error) {
	if u.host == nil {
		return "", models.NewValidationError("Image uploads are not available")
	}
	if err := u.validate(in); err != nil {
		return "", err
	}

	url, err := u.host.Upload(ctx, in)
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) && appErr.Code == models.CodeValidation {
			return "", err
		}
		return "", models.NewUpstreamUnavailableError(err)
	}
	if strings.TrimSpace(url) == "" {
		return "", models.NewUpstreamUnavailableError(errors.New("image host returned an empty URL"))
	}
	return url, nil
}

func (u *imageUploader) validate(in models.ImageUpload) error {
	if len(in.Data) == 0 {
		return models.NewValidationError("No file uploaded")
	}
	if int64(len(in.Data)) > u.maxUploadSizeBytes {
		return models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", u.maxUploadSizeBytes/(1024*1024)))
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(in.Data))
	if err != nil {
		return models.NewValidationError("Invalid image file")
	}
	if !isSupportedDecodedFormat(format) {
		return models.NewValidationError("Unsupported image format")
	}

	if provided := normalizeContentType(in.ContentType); strings.HasPrefix(provided, "image/") && !isMatchingContentType(provided, decodedFormatToMime(format)) {
		return models.NewValidationError("Image content type mismatch")
	}
	return nil
}

func normalizeContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

func isMatchingContentType(provided, detected string) bool {
	p := normalizeContentType(provided)
	d := normalizeContentType(detected)
	if p == d {
		return true
	}
	return (p == "image/jpg" && d == "image/jpeg") || (p == "image/jpeg" && d == "image/jpg")
}

func isSupportedDecodedFormat(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpeg", "jpg", "png", "gif", "webp":
		return true
	default:
		return false
	}
}

func decodedFormatToMime(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpeg", "jpg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	default:
		return ""
	}
}
