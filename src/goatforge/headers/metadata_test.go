package headers

import (
	"os"
	"path/filepath"
	"testing"

	apperrors "github.com/goatd/goatforge/src/common/errors"
)

// makeHeaderTree creates a fake header tree under srcRoot named
// linux-<name> whose release metadata records release. It returns the tree
// path. An empty release leaves the metadata file out entirely.
func makeHeaderTree(t *testing.T, srcRoot, name, release string) string {
	t.Helper()
	dir := filepath.Join(srcRoot, "linux-"+name)
	metaDir := filepath.Join(dir, filepath.Dir(DefaultReleaseFile))
	if err := os.MkdirAll(metaDir, 0755); err != nil {
		t.Fatal(err)
	}
	if release != "" {
		file := filepath.Join(dir, DefaultReleaseFile)
		if err := os.WriteFile(file, []byte(release+"\n"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestReadRelease(t *testing.T) {
	srcRoot := t.TempDir()
	dir := makeHeaderTree(t, srcRoot, "6.18.7-arch1", "6.18.7-arch1")

	got, err := ReadRelease(dir, DefaultReleaseFile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "6.18.7-arch1" {
		t.Errorf("release = %q, want %q (trailing newline must be trimmed)", got, "6.18.7-arch1")
	}
}

func TestReadReleaseTrimsTrailingWhitespaceOnly(t *testing.T) {
	srcRoot := t.TempDir()
	dir := makeHeaderTree(t, srcRoot, "x", "")
	file := filepath.Join(dir, DefaultReleaseFile)
	if err := os.WriteFile(file, []byte("6.18.7-arch1 \t\r\n"), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := ReadRelease(dir, DefaultReleaseFile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "6.18.7-arch1" {
		t.Errorf("release = %q, want trailing whitespace trimmed", got)
	}
}

func TestReadReleaseMissing(t *testing.T) {
	srcRoot := t.TempDir()
	dir := makeHeaderTree(t, srcRoot, "bare", "")

	_, err := ReadRelease(dir, DefaultReleaseFile)
	if !apperrors.Is(err, apperrors.ErrMetadataMissing) {
		t.Errorf("error = %v, want ErrMetadataMissing", err)
	}
}

func TestReadReleaseUnreadable(t *testing.T) {
	srcRoot := t.TempDir()
	dir := makeHeaderTree(t, srcRoot, "cursed", "")
	// A directory where the metadata file should be forces a read error
	// that is not a missing-file error.
	if err := os.MkdirAll(filepath.Join(dir, DefaultReleaseFile), 0755); err != nil {
		t.Fatal(err)
	}

	_, err := ReadRelease(dir, DefaultReleaseFile)
	if !apperrors.Is(err, apperrors.ErrMetadataUnreadable) {
		t.Errorf("error = %v, want ErrMetadataUnreadable", err)
	}
}

func TestMatches(t *testing.T) {
	srcRoot := t.TempDir()
	makeHeaderTree(t, srcRoot, "6.18.7-arch1", "6.18.7-arch1")
	makeHeaderTree(t, srcRoot, "6.18.7", "6.18.7")
	makeHeaderTree(t, srcRoot, "caps", "6.18.7-ARCH1")
	makeHeaderTree(t, srcRoot, "bare", "")

	tests := []struct {
		name   string
		dir    string
		target string
		want   bool
	}{
		{"exact match", "linux-6.18.7-arch1", "6.18.7-arch1", true},
		{"prefix is not a match", "linux-6.18.7", "6.18.7-arch1", false},
		{"substring is not a match", "linux-6.18.7-arch1", "6.18.7", false},
		{"case sensitive", "linux-caps", "6.18.7-arch1", false},
		{"missing metadata", "linux-bare", "6.18.7-arch1", false},
		{"missing directory", "linux-nope", "6.18.7-arch1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target, err := Parse(tt.target)
			if err != nil {
				t.Fatal(err)
			}
			got := Matches(filepath.Join(srcRoot, tt.dir), DefaultReleaseFile, target)
			if got != tt.want {
				t.Errorf("Matches(%s, %s) = %v, want %v", tt.dir, tt.target, got, tt.want)
			}
		})
	}
}
