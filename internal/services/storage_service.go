// internal/services/storage_service.go
package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/marketplace-backend/internal/apperrors"
	"github.com/javajoker/marketplace-backend/internal/storage"
)

type StorageService struct {
	store   storage.ObjectStore
	maxSize int64
}

type UploadResult struct {
	URL      string `json:"url"`
	Key      string `json:"key"`
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type"`
}

type UploadOptions struct {
	Folder       string
	MaxSize      int64 // in bytes
	AllowedTypes []string
}

func NewStorageService(store storage.ObjectStore, maxSizeMB int) *StorageService {
	if maxSizeMB <= 0 {
		maxSizeMB = 10
	}
	return &StorageService{
		store:   store,
		maxSize: int64(maxSizeMB) * 1024 * 1024,
	}
}

func (s *StorageService) GetDefaultUploadOptions(category string) UploadOptions {
	switch category {
	case "categories":
		return UploadOptions{
			Folder:       "categories",
			MaxSize:      2 * 1024 * 1024, // 2MB
			AllowedTypes: []string{".jpg", ".jpeg", ".png", ".gif", ".webp"},
		}
	default:
		return UploadOptions{
			Folder:       "products",
			MaxSize:      s.maxSize,
			AllowedTypes: []string{".jpg", ".jpeg", ".png", ".gif", ".webp"},
		}
	}
}

// UploadImage validates an uploaded image by size, extension and content
// signature, then stores it.
func (s *StorageService) UploadImage(ctx context.Context, header *multipart.FileHeader, options UploadOptions) (*UploadResult, error) {
	if header == nil {
		return nil, apperrors.Validation("image is required")
	}
	if header.Size == 0 {
		return nil, apperrors.Validation("image is empty")
	}
	if options.MaxSize > 0 && header.Size > options.MaxSize {
		return nil, apperrors.Validation("file size %d bytes exceeds maximum allowed size %d bytes", header.Size, options.MaxSize)
	}

	fileExt := strings.ToLower(filepath.Ext(header.Filename))
	if len(options.AllowedTypes) > 0 && !contains(options.AllowedTypes, fileExt) {
		return nil, apperrors.Validation("file type %q is not allowed", fileExt)
	}

	file, err := header.Open()
	if err != nil {
		return nil, apperrors.Internalf(err, "open upload")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, apperrors.Internalf(err, "read upload")
	}

	mimeType, ok := detectImageType(data)
	if !ok {
		return nil, apperrors.Validation("invalid image file")
	}

	key := s.generateFileName(fileExt, options.Folder)
	url, err := s.store.Put(ctx, key, bytes.NewReader(data), int64(len(data)), mimeType)
	if err != nil {
		return nil, apperrors.Internalf(err, "store image")
	}

	return &UploadResult{
		URL:      url,
		Key:      key,
		Size:     int64(len(data)),
		MimeType: mimeType,
	}, nil
}

// DeleteFile removes an object. Failures are logged, not returned: a stray
// object is preferable to failing the request that replaced it.
func (s *StorageService) DeleteFile(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.store.Delete(ctx, key); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"key":     key,
			"backend": s.store.Name(),
		}).Warn("Failed to delete stored file")
	}
}

func (s *StorageService) Backend() string {
	return s.store.Name()
}

func (s *StorageService) generateFileName(ext, folder string) string {
	timestamp := time.Now().UTC().Format("20060102")
	filename := fmt.Sprintf("%s_%s%s", timestamp, uuid.NewString(), ext)

	if folder != "" {
		return folder + "/" + filename
	}
	return filename
}

func detectImageType(buffer []byte) (string, bool) {
	switch {
	case len(buffer) >= 3 && buffer[0] == 0xFF && buffer[1] == 0xD8 && buffer[2] == 0xFF:
		return "image/jpeg", true
	case len(buffer) >= 8 && bytes.Equal(buffer[:8], []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}):
		return "image/png", true
	case len(buffer) >= 6 && (string(buffer[:6]) == "GIF87a" || string(buffer[:6]) == "GIF89a"):
		return "image/gif", true
	case len(buffer) >= 12 && string(buffer[:4]) == "RIFF" && string(buffer[8:12]) == "WEBP":
		return "image/webp", true
	}
	return "", false
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
