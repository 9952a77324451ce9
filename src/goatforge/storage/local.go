package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/goatd/goatforge/src/common/errors"
	"github.com/goatd/goatforge/src/common/paths"
)

// LocalConfig holds the local filesystem storage configuration
type LocalConfig struct {
	// BasePath is the root directory for storing artifacts
	BasePath string
}

// LocalBackend implements storage on the local filesystem
type LocalBackend struct {
	basePath string
}

// NewLocal creates a new local filesystem storage backend
func NewLocal(cfg LocalConfig) (*LocalBackend, error) {
	basePath := paths.Expand(cfg.BasePath)

	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", basePath, err)
	}

	return &LocalBackend{basePath: basePath}, nil
}

// fullPath returns the full filesystem path for a key. Keys are confined to
// basePath; anything that would escape collapses to its base name.
func (b *LocalBackend) fullPath(key string) string {
	cleanKey := filepath.Clean(key)
	for strings.HasPrefix(cleanKey, "/") || strings.HasPrefix(cleanKey, "../") {
		cleanKey = strings.TrimPrefix(cleanKey, "/")
		cleanKey = strings.TrimPrefix(cleanKey, "../")
	}

	fullPath := filepath.Join(b.basePath, cleanKey)
	absBase, _ := filepath.Abs(b.basePath)
	absFull, _ := filepath.Abs(fullPath)
	if !strings.HasPrefix(absFull, absBase) {
		return filepath.Join(b.basePath, filepath.Base(cleanKey))
	}
	return fullPath
}

// Upload uploads data to the local filesystem
func (b *LocalBackend) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	fullPath := b.fullPath(key)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return apperrors.ErrStorageUploadFailed.WithMessagef("creating directory for %s", key).WithCause(err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return apperrors.ErrStorageUploadFailed.WithMessagef("creating %s", key).WithCause(err)
	}
	defer file.Close()

	written, err := io.Copy(file, reader)
	if err != nil {
		os.Remove(fullPath)
		return apperrors.ErrStorageUploadFailed.WithMessagef("writing %s", key).WithCause(err)
	}
	if size > 0 && written != size {
		os.Remove(fullPath)
		return apperrors.ErrStorageUploadFailed.WithMessagef(
			"size mismatch for %s: expected %d bytes, wrote %d", key, size, written)
	}

	return nil
}

// Download downloads a file from the local filesystem
func (b *LocalBackend) Download(ctx context.Context, key string) (io.ReadCloser, *ObjectInfo, error) {
	fullPath := b.fullPath(key)

	file, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, apperrors.ErrArtifactNotFound.WithMessagef("object %s", key)
		}
		return nil, nil, apperrors.ErrStorageDownloadFailed.WithMessagef("opening %s", key).WithCause(err)
	}

	info, err := b.GetInfo(ctx, key)
	if err != nil {
		file.Close()
		return nil, nil, err
	}

	return file, info, nil
}

// Exists checks if a file exists
func (b *LocalBackend) Exists(ctx context.Context, key string) (bool, error) {
	_, err := os.Stat(b.fullPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat %s: %w", key, err)
	}
	return true, nil
}

// GetInfo retrieves metadata for a file
func (b *LocalBackend) GetInfo(ctx context.Context, key string) (*ObjectInfo, error) {
	fullPath := b.fullPath(key)

	stat, err := os.Stat(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.ErrArtifactNotFound.WithMessagef("object %s", key)
		}
		return nil, fmt.Errorf("failed to stat %s: %w", key, err)
	}

	return &ObjectInfo{
		Key:          key,
		Size:         stat.Size(),
		ContentType:  mime.TypeByExtension(filepath.Ext(fullPath)),
		LastModified: stat.ModTime(),
	}, nil
}

// List lists files with the given key prefix
func (b *LocalBackend) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var objects []ObjectInfo

	err := filepath.Walk(b.basePath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // skip unreadable entries
		}
		if info.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(b.basePath, path)
		if relErr != nil || !strings.HasPrefix(rel, prefix) {
			return nil
		}
		objects = append(objects, ObjectInfo{
			Key:          rel,
			Size:         info.Size(),
			LastModified: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}

	return objects, nil
}

// Ping checks that the base directory is accessible
func (b *LocalBackend) Ping(ctx context.Context) error {
	if !paths.IsDir(b.basePath) {
		return apperrors.ErrStorageUnavailable.WithMessagef("base path %s is not a directory", b.basePath)
	}
	return nil
}

// Type returns the storage backend type
func (b *LocalBackend) Type() string {
	return "local"
}

// Location returns the base path
func (b *LocalBackend) Location() string {
	return b.basePath
}
