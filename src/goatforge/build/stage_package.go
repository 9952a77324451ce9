package build

import (
	"archive/tar"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/goatd/goatforge/src/goatforge/db"
	"github.com/goatd/goatforge/src/goatforge/storage"
	"github.com/ulikunitz/xz"
	"golang.org/x/crypto/blake2b"
)

// PackageStage bundles the build output into a tar.xz artifact, records its
// checksum and size, and optionally uploads it to storage.
type PackageStage struct {
	storage storage.Backend
	upload  bool
}

// NewPackageStage creates a new package stage. When upload is true the
// artifact is pushed to the storage backend after bundling.
func NewPackageStage(storage storage.Backend, upload bool) *PackageStage {
	return &PackageStage{storage: storage, upload: upload}
}

// Name returns the stage name
func (s *PackageStage) Name() db.BuildStageName {
	return db.StagePackage
}

// Validate checks whether this stage can run
func (s *PackageStage) Validate(ctx context.Context, sc *StageContext) error {
	if sc.OutputDir == "" {
		return fmt.Errorf("output directory not set")
	}
	entries, err := os.ReadDir(sc.OutputDir)
	if err != nil {
		return fmt.Errorf("failed to read output directory: %w", err)
	}
	if len(entries) == 0 {
		return fmt.Errorf("output directory is empty, compile stage produced nothing")
	}
	if s.upload && s.storage == nil {
		return fmt.Errorf("artifact upload requested but no storage backend configured")
	}
	return nil
}

// Execute bundles the output tree, computes its checksum and uploads it
func (s *PackageStage) Execute(ctx context.Context, sc *StageContext, progress ProgressFunc) error {
	progress(0, "Bundling build output")

	artifactName := fmt.Sprintf("kernel-%s.tar.xz", sc.Target.Full)
	artifactPath := filepath.Join(sc.WorkspacePath, artifactName)

	if err := s.bundle(ctx, sc.OutputDir, artifactPath); err != nil {
		return fmt.Errorf("failed to bundle output: %w", err)
	}

	progress(60, "Calculating checksum")

	checksum, size, err := checksumFile(artifactPath)
	if err != nil {
		return fmt.Errorf("failed to checksum artifact: %w", err)
	}

	sc.ArtifactFile = artifactPath
	sc.ArtifactChecksum = checksum
	sc.ArtifactSize = size

	log.Info("artifact packaged",
		"build_id", sc.BuildID,
		"artifact", artifactName,
		"checksum", checksum,
		"size_bytes", size)

	if s.upload {
		progress(75, "Uploading artifact")

		key := fmt.Sprintf("kernels/%s/%s/%s", sc.Target.Full, sc.BuildID, artifactName)
		if err := s.uploadArtifact(ctx, artifactPath, key, size); err != nil {
			return fmt.Errorf("failed to upload artifact: %w", err)
		}
		sc.ArtifactKey = key
	}

	progress(100, fmt.Sprintf("Packaging complete: %s (%d MB)", artifactName, size/(1024*1024)))
	return nil
}

// bundle writes a tar.xz archive of dir to destPath
func (s *PackageStage) bundle(ctx context.Context, dir, destPath string) error {
	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}
	defer out.Close()

	xzWriter, err := xz.NewWriter(out)
	if err != nil {
		return fmt.Errorf("failed to create xz writer: %w", err)
	}
	tarWriter := tar.NewWriter(xzWriter)

	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		var linkTarget string
		if info.Mode()&os.ModeSymlink != 0 {
			linkTarget, err = os.Readlink(path)
			if err != nil {
				return err
			}
		}

		header, err := tar.FileInfoHeader(info, linkTarget)
		if err != nil {
			return err
		}
		header.Name = rel

		if err := tarWriter.WriteHeader(header); err != nil {
			return err
		}

		if info.Mode().IsRegular() {
			file, err := os.Open(path)
			if err != nil {
				return err
			}
			_, err = io.Copy(tarWriter, file)
			file.Close()
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := tarWriter.Close(); err != nil {
		return fmt.Errorf("failed to finalize tar: %w", err)
	}
	if err := xzWriter.Close(); err != nil {
		return fmt.Errorf("failed to finalize xz stream: %w", err)
	}
	return nil
}

// uploadArtifact pushes the bundled artifact to the storage backend
func (s *PackageStage) uploadArtifact(ctx context.Context, localPath, key string, size int64) error {
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open artifact: %w", err)
	}
	defer file.Close()

	log.Info("uploading artifact",
		"local_path", localPath,
		"storage_key", key,
		"size", size)

	return s.storage.Upload(ctx, key, file, size, "application/x-xz")
}

// checksumFile returns the BLAKE2b-256 digest and size of a file
func checksumFile(path string) (string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer file.Close()

	hasher, err := blake2b.New256(nil)
	if err != nil {
		return "", 0, err
	}

	size, err := io.Copy(hasher, file)
	if err != nil {
		return "", 0, err
	}

	return hex.EncodeToString(hasher.Sum(nil)), size, nil
}
