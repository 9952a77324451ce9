package build

import (
	"archive/tar"
	"compress/bzip2"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	urlpath "path"
	"path/filepath"
	"strings"

	"github.com/goatd/goatforge/src/goatforge/db"
	"github.com/goatd/goatforge/src/goatforge/storage"
	"github.com/ulikunitz/xz"
)

// PrepareStage creates the build workspace and extracts the kernel source
type PrepareStage struct {
	storage storage.Backend
}

// NewPrepareStage creates a new prepare stage
func NewPrepareStage(storage storage.Backend) *PrepareStage {
	return &PrepareStage{storage: storage}
}

// Name returns the stage name
func (s *PrepareStage) Name() db.BuildStageName {
	return db.StagePrepare
}

// Validate checks whether this stage can run
func (s *PrepareStage) Validate(ctx context.Context, sc *StageContext) error {
	if sc.WorkspacePath == "" {
		return fmt.Errorf("workspace path not set")
	}
	if sc.SourceKey == "" {
		return fmt.Errorf("kernel source key not set")
	}
	if s.storage == nil {
		return fmt.Errorf("storage backend not configured")
	}
	return nil
}

// Execute creates workspace directories and extracts the kernel source
func (s *PrepareStage) Execute(ctx context.Context, sc *StageContext, progress ProgressFunc) error {
	progress(0, "Creating workspace directories")

	for _, dir := range []string{sc.SourcesDir, sc.BuildDir, sc.OutputDir, sc.LogsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	progress(10, fmt.Sprintf("Fetching kernel source %s", sc.SourceKey))

	localArchive := filepath.Join(sc.SourcesDir, urlpath.Base(sc.SourceKey))
	if err := s.fetchSource(ctx, sc.SourceKey, localArchive); err != nil {
		return fmt.Errorf("failed to fetch %s: %w", sc.SourceKey, err)
	}

	progress(40, "Extracting kernel source")

	if err := s.extractArchive(ctx, localArchive, sc.BuildDir); err != nil {
		return fmt.Errorf("failed to extract %s: %w", localArchive, err)
	}

	sourceDir, err := s.findSourceDir(sc.BuildDir)
	if err != nil {
		return fmt.Errorf("failed to locate kernel source dir: %w", err)
	}
	sc.SourceDir = sourceDir

	log.Info("kernel source prepared",
		"target", sc.Target.Full,
		"source", sc.SourceKey,
		"path", sourceDir)

	progress(100, "Workspace prepared")
	return nil
}

// fetchSource downloads the kernel source archive from storage
func (s *PrepareStage) fetchSource(ctx context.Context, key, localPath string) error {
	reader, _, err := s.storage.Download(ctx, key)
	if err != nil {
		return err
	}
	defer reader.Close()

	file, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("failed to create local file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, reader); err != nil {
		return fmt.Errorf("failed to write archive: %w", err)
	}
	return nil
}

// extractArchive extracts a tar archive (optionally compressed) to a directory
func (s *PrepareStage) extractArchive(ctx context.Context, archivePath, destDir string) error {
	file, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer file.Close()

	var reader io.Reader = file

	switch {
	case strings.HasSuffix(archivePath, ".tar.gz") || strings.HasSuffix(archivePath, ".tgz"):
		gzReader, err := gzip.NewReader(file)
		if err != nil {
			return fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gzReader.Close()
		reader = gzReader

	case strings.HasSuffix(archivePath, ".tar.bz2"):
		reader = bzip2.NewReader(file)

	case strings.HasSuffix(archivePath, ".tar.xz") || strings.HasSuffix(archivePath, ".txz"):
		xzReader, err := xz.NewReader(file)
		if err != nil {
			return fmt.Errorf("failed to create xz reader: %w", err)
		}
		reader = xzReader

	case strings.HasSuffix(archivePath, ".tar"):
		// Plain tar, no decompression needed

	default:
		return fmt.Errorf("unsupported archive format: %s", archivePath)
	}

	tarReader := tar.NewReader(reader)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read tar header: %w", err)
		}

		target := filepath.Join(destDir, header.Name)

		// Prevent path traversal out of the extraction directory
		if !strings.HasPrefix(filepath.Clean(target), filepath.Clean(destDir)+string(os.PathSeparator)) {
			return fmt.Errorf("invalid tar path: %s", header.Name)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, os.FileMode(header.Mode)); err != nil {
				return fmt.Errorf("failed to create directory: %w", err)
			}

		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return fmt.Errorf("failed to create parent directory: %w", err)
			}
			outFile, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(header.Mode))
			if err != nil {
				return fmt.Errorf("failed to create file: %w", err)
			}
			if _, err := io.Copy(outFile, tarReader); err != nil {
				outFile.Close()
				return fmt.Errorf("failed to write file: %w", err)
			}
			outFile.Close()

		case tar.TypeSymlink:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return fmt.Errorf("failed to create parent directory: %w", err)
			}
			if err := os.Symlink(header.Linkname, target); err != nil {
				return fmt.Errorf("failed to create symlink: %w", err)
			}

		case tar.TypeLink:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return fmt.Errorf("failed to create parent directory: %w", err)
			}
			if err := os.Link(filepath.Join(destDir, header.Linkname), target); err != nil {
				return fmt.Errorf("failed to create hard link: %w", err)
			}
		}
	}

	return nil
}

// findSourceDir finds the actual source directory after extraction.
// Kernel archives have a single top-level directory containing all files.
func (s *PrepareStage) findSourceDir(extractDir string) (string, error) {
	entries, err := os.ReadDir(extractDir)
	if err != nil {
		return "", err
	}
	if len(entries) == 1 && entries[0].IsDir() {
		return filepath.Join(extractDir, entries[0].Name()), nil
	}
	return extractDir, nil
}
