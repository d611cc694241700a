package services

import (
	"context"
	"encoding/base64"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"surveyapp/internal/config"
	"surveyapp/internal/observability"
	contextutils "surveyapp/internal/utils"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// ImageStore persists survey cover images decoded from data URIs
type ImageStore interface {
	SaveImage(ctx context.Context, dataURI string) (string, error)
	DeleteImage(ctx context.Context, relativePath string) error
}

var dataURIPattern = regexp.MustCompile(`^data:image/(\w+);base64,`)

var allowedImageTypes = map[string]bool{
	"jpg":  true,
	"jpeg": true,
	"png":  true,
	"gif":  true,
}

// FileImageStore writes images below a public directory that is served statically
type FileImageStore struct {
	publicDir string
	imageDir  string
	logger    *observability.Logger
}

// NewFileImageStore creates an image store rooted at the configured public directory
func NewFileImageStore(cfg *config.StorageConfig, logger *observability.Logger) *FileImageStore {
	publicDir, imageDir := config.DefaultPublicDir, config.DefaultImageDir
	if cfg != nil {
		if cfg.PublicDir != "" {
			publicDir = cfg.PublicDir
		}
		if cfg.ImageDir != "" {
			imageDir = cfg.ImageDir
		}
	}
	return &FileImageStore{publicDir: publicDir, imageDir: imageDir, logger: logger}
}

// PublicDir is the directory relative image paths resolve against
func (s *FileImageStore) PublicDir() string {
	return s.publicDir
}

// SaveImage decodes a base64 data URI and writes it under the image directory.
// It returns the path relative to the public directory, e.g. images/<uuid>.png.
func (s *FileImageStore) SaveImage(ctx context.Context, dataURI string) (result0 string, err error) {
	ctx, span := observability.TraceImageFunction(ctx, "save_image")
	defer observability.FinishSpan(span, &err)

	match := dataURIPattern.FindStringSubmatch(dataURI)
	if match == nil {
		return "", contextutils.NewAppError(contextutils.ErrorCodeInvalidImageFormat, contextutils.SeverityWarn,
			"did not match data URI with image data", "")
	}

	imageType := strings.ToLower(match[1])
	span.SetAttributes(attribute.String("image.type", imageType))
	if !allowedImageTypes[imageType] {
		return "", contextutils.ErrUnsupportedImageType.WithDetails("supported types are jpg, jpeg, png and gif")
	}

	payload := dataURI[strings.Index(dataURI, ",")+1:]
	payload = strings.ReplaceAll(payload, " ", "+")
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", contextutils.NewAppErrorWithCause(contextutils.ErrorCodeImageDecode, contextutils.SeverityWarn,
			"base64_decode failed", "", err)
	}

	dir := filepath.Join(s.publicDir, s.imageDir)
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return "", contextutils.WrapError(err, "failed to create image directory")
	}

	name := uuid.NewString() + "." + imageType
	if err = os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return "", contextutils.WrapError(err, "failed to write image")
	}

	observability.RecordImageStored(ctx, imageType)
	relativePath := s.imageDir + "/" + name
	s.logger.Debug(ctx, "Stored survey image", map[string]interface{}{
		"path":  relativePath,
		"bytes": len(data),
	})
	return relativePath, nil
}

// DeleteImage removes a stored image; a file that is already gone is not an error
func (s *FileImageStore) DeleteImage(ctx context.Context, relativePath string) (err error) {
	if relativePath == "" {
		return nil
	}
	_, span := observability.TraceImageFunction(ctx, "delete_image", attribute.String("image.path", relativePath))
	defer observability.FinishSpan(span, &err)

	path, err := s.AbsolutePath(relativePath)
	if err != nil {
		return err
	}
	if err = os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return contextutils.WrapError(err, "failed to delete image")
	}
	return nil
}

// AbsolutePath resolves a stored relative path under the public directory.
// Paths that would escape the public directory are rejected.
func (s *FileImageStore) AbsolutePath(relativePath string) (string, error) {
	base, err := filepath.Abs(s.publicDir)
	if err != nil {
		return "", contextutils.WrapError(err, "failed to resolve public directory")
	}
	path := filepath.Join(base, filepath.FromSlash(relativePath))
	if !strings.HasPrefix(path, base+string(filepath.Separator)) {
		return "", contextutils.NewAppError(contextutils.ErrorCodeInvalidInput, contextutils.SeverityWarn,
			"image path outside public directory", relativePath)
	}
	return path, nil
}
