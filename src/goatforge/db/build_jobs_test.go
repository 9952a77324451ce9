package db

import (
	"path/filepath"
	"testing"
	"time"

	apperrors "github.com/goatd/goatforge/src/common/errors"
)

func newTestDB(t *testing.T) *Database {
	t.Helper()
	d, err := New(Config{Path: filepath.Join(t.TempDir(), "history.db")})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func TestBuildJobCreateAndGet(t *testing.T) {
	repo := NewBuildJobRepository(newTestDB(t))

	job := &BuildJob{KernelVersion: "6.18.7-arch1"}
	if err := repo.Create(job); err != nil {
		t.Fatalf("create: %v", err)
	}
	if job.ID == "" {
		t.Fatal("job ID was not assigned")
	}
	if job.Status != BuildStatusPending {
		t.Errorf("status = %s, want pending", job.Status)
	}

	got, err := repo.GetByID(job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.KernelVersion != "6.18.7-arch1" {
		t.Errorf("kernel version = %s", got.KernelVersion)
	}
}

func TestBuildJobUpdate(t *testing.T) {
	repo := NewBuildJobRepository(newTestDB(t))

	job := &BuildJob{KernelVersion: "6.18.7-arch1"}
	if err := repo.Create(job); err != nil {
		t.Fatal(err)
	}

	now := time.Now()
	job.Status = BuildStatusSuccess
	job.CurrentStage = StageInstall
	job.ProgressPercent = 100
	job.ArtifactPath = "artifacts/linux-goatd-6.18.7-arch1.pkg.tar.xz"
	job.ArtifactChecksum = "deadbeef"
	job.ArtifactSize = 1024
	job.StartedAt = &now
	job.CompletedAt = &now
	if err := repo.Update(job); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := repo.GetByID(job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != BuildStatusSuccess || got.ProgressPercent != 100 {
		t.Errorf("job = %+v, want success at 100%%", got)
	}
	if got.StartedAt == nil || got.CompletedAt == nil {
		t.Error("timestamps not persisted")
	}
}

func TestBuildJobUpdateMissing(t *testing.T) {
	repo := NewBuildJobRepository(newTestDB(t))
	err := repo.Update(&BuildJob{ID: "nope", KernelVersion: "x"})
	if !apperrors.Is(err, apperrors.ErrBuildJobNotFound) {
		t.Errorf("error = %v, want ErrBuildJobNotFound", err)
	}
}

func TestBuildJobGetMissing(t *testing.T) {
	repo := NewBuildJobRepository(newTestDB(t))
	_, err := repo.GetByID("nope")
	if !apperrors.Is(err, apperrors.ErrBuildJobNotFound) {
		t.Errorf("error = %v, want ErrBuildJobNotFound", err)
	}
}

func TestBuildJobListByStatus(t *testing.T) {
	repo := NewBuildJobRepository(newTestDB(t))

	for _, status := range []BuildJobStatus{BuildStatusPending, BuildStatusFailed, BuildStatusFailed} {
		job := &BuildJob{KernelVersion: "6.18.7-arch1", Status: status}
		if err := repo.Create(job); err != nil {
			t.Fatal(err)
		}
	}

	failed, err := repo.ListByStatus(BuildStatusFailed)
	if err != nil {
		t.Fatal(err)
	}
	if len(failed) != 2 {
		t.Errorf("ListByStatus(failed) = %d jobs, want 2", len(failed))
	}

	all, err := repo.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Errorf("List = %d jobs, want 3", len(all))
	}
}
