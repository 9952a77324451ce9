package storage

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	apperrors "github.com/goatd/goatforge/src/common/errors"
)

func newTestBackend(t *testing.T) *LocalBackend {
	t.Helper()
	b, err := NewLocal(LocalConfig{BasePath: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestLocalUploadDownload(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	data := []byte("kernel source archive bytes")

	if err := b.Upload(ctx, "sources/linux-6.18.7.tar.xz", bytes.NewReader(data), int64(len(data)), "application/x-xz"); err != nil {
		t.Fatalf("upload: %v", err)
	}

	rc, info, err := b.Download(ctx, "sources/linux-6.18.7.tar.xz")
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	defer rc.Close()

	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Error("downloaded bytes differ from uploaded bytes")
	}
	if info.Size != int64(len(data)) {
		t.Errorf("info.Size = %d, want %d", info.Size, len(data))
	}
}

func TestLocalDownloadMissing(t *testing.T) {
	b := newTestBackend(t)
	_, _, err := b.Download(context.Background(), "nope.tar.xz")
	if !apperrors.Is(err, apperrors.ErrArtifactNotFound) {
		t.Errorf("error = %v, want ErrArtifactNotFound", err)
	}
}

func TestLocalExistsAndList(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	for _, key := range []string{"artifacts/a.pkg.tar.xz", "artifacts/b.pkg.tar.xz", "sources/s.tar.xz"} {
		if err := b.Upload(ctx, key, strings.NewReader("x"), 1, ""); err != nil {
			t.Fatal(err)
		}
	}

	ok, err := b.Exists(ctx, "artifacts/a.pkg.tar.xz")
	if err != nil || !ok {
		t.Errorf("Exists = %v, %v; want true", ok, err)
	}

	objects, err := b.List(ctx, "artifacts/")
	if err != nil {
		t.Fatal(err)
	}
	if len(objects) != 2 {
		t.Errorf("List returned %d objects, want 2", len(objects))
	}
}

func TestLocalKeyConfinement(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	if err := b.Upload(ctx, "../../escape.txt", strings.NewReader("x"), 1, ""); err != nil {
		t.Fatal(err)
	}
	ok, err := b.Exists(ctx, "escape.txt")
	if err != nil || !ok {
		t.Error("traversal key was not confined to the base path")
	}
}
