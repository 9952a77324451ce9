package build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	apperrors "github.com/goatd/goatforge/src/common/errors"
	"github.com/goatd/goatforge/src/common/logs"
	"github.com/goatd/goatforge/src/common/paths"
	"github.com/goatd/goatforge/src/goatforge/db"
	"github.com/goatd/goatforge/src/goatforge/headers"
	"github.com/goatd/goatforge/src/goatforge/storage"
)

var log = logs.NewDefault()

// SetLogger sets the logger for the build package
func SetLogger(l *logs.Logger) {
	if l != nil {
		log = l
	}
}

// Config holds configuration for the build manager
type Config struct {
	WorkspaceBase string // Base directory for build workspaces
	KeepWorkspace bool   // Keep the workspace directory after a successful build
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() Config {
	return Config{
		WorkspaceBase: "~/.goatforge/builds",
	}
}

// Manager runs kernel build jobs through the staged pipeline and records
// their lifecycle in the build history database.
type Manager struct {
	buildJobRepo *db.BuildJobRepository
	storage      storage.Backend
	config       Config
	stages       []Stage
}

// NewManager creates a new build manager
func NewManager(database *db.Database, storageBackend storage.Backend, cfg Config) *Manager {
	if cfg.WorkspaceBase == "" {
		cfg.WorkspaceBase = DefaultConfig().WorkspaceBase
	}

	return &Manager{
		buildJobRepo: db.NewBuildJobRepository(database),
		storage:      storageBackend,
		config:       cfg,
	}
}

// RegisterStages sets up the ordered build pipeline
func (m *Manager) RegisterStages(stages []Stage) {
	m.stages = stages
}

// BuildJobRepo returns the build job repository
func (m *Manager) BuildJobRepo() *db.BuildJobRepository {
	return m.buildJobRepo
}

// Run executes the full pipeline for one kernel version. It blocks until
// the build completes or fails, persisting status transitions along the way.
func (m *Manager) Run(ctx context.Context, target headers.Version, sourceKey string) (*db.BuildJob, error) {
	if len(m.stages) == 0 {
		return nil, apperrors.ErrStageValidation.WithMessagef("no build stages registered")
	}

	job := &db.BuildJob{
		KernelVersion: target.Full,
		Status:        db.BuildStatusPending,
	}
	if err := m.buildJobRepo.Create(job); err != nil {
		return nil, fmt.Errorf("failed to record build job: %w", err)
	}

	workspace := filepath.Join(paths.Expand(m.config.WorkspaceBase), job.ID)

	sc := &StageContext{
		BuildID:       job.ID,
		Target:        target,
		WorkspacePath: workspace,
		SourcesDir:    filepath.Join(workspace, "sources"),
		BuildDir:      filepath.Join(workspace, "build"),
		OutputDir:     filepath.Join(workspace, "output"),
		LogsDir:       filepath.Join(workspace, "logs"),
		SourceKey:     sourceKey,
	}

	if err := paths.EnsureDir(sc.LogsDir); err != nil {
		return job, m.fail(job, "", fmt.Errorf("failed to create log directory: %w", err))
	}
	logFile, err := os.Create(filepath.Join(sc.LogsDir, "build.log"))
	if err != nil {
		return job, m.fail(job, "", fmt.Errorf("failed to create build log: %w", err))
	}
	defer logFile.Close()
	sc.LogWriter = logFile

	now := time.Now()
	job.Status = db.BuildStatusRunning
	job.WorkspacePath = workspace
	job.StartedAt = &now
	if err := m.buildJobRepo.Update(job); err != nil {
		return job, fmt.Errorf("failed to update build job: %w", err)
	}

	log.Info("build started",
		"build_id", job.ID,
		"kernel", target.Full,
		"workspace", workspace)

	for i, stage := range m.stages {
		select {
		case <-ctx.Done():
			return job, m.fail(job, stage.Name(), apperrors.ErrBuildAborted.WithCause(ctx.Err()))
		default:
		}

		job.CurrentStage = stage.Name()
		if err := m.buildJobRepo.Update(job); err != nil {
			return job, fmt.Errorf("failed to update build job: %w", err)
		}

		if err := stage.Validate(ctx, sc); err != nil {
			return job, m.fail(job, stage.Name(), apperrors.ErrStageValidation.WithCause(err))
		}

		base := i * 100 / len(m.stages)
		span := 100 / len(m.stages)
		progress := func(percent int, message string) {
			job.ProgressPercent = base + percent*span/100
			if err := m.buildJobRepo.Update(job); err != nil {
				log.Warn("failed to persist build progress", "build_id", job.ID, "error", err)
			}
			log.Debug("build progress",
				"build_id", job.ID,
				"stage", stage.Name(),
				"percent", job.ProgressPercent,
				"message", message)
		}

		log.Info("stage starting", "build_id", job.ID, "stage", stage.Name())
		if err := stage.Execute(ctx, sc, progress); err != nil {
			return job, m.fail(job, stage.Name(), apperrors.ErrStageExecution.WithCause(err))
		}
		log.Info("stage complete", "build_id", job.ID, "stage", stage.Name())
	}

	done := time.Now()
	job.Status = db.BuildStatusSuccess
	job.CurrentStage = ""
	job.ProgressPercent = 100
	job.ArtifactPath = sc.ArtifactKey
	if job.ArtifactPath == "" {
		job.ArtifactPath = sc.ArtifactFile
	}
	job.ArtifactChecksum = sc.ArtifactChecksum
	job.ArtifactSize = sc.ArtifactSize
	job.CompletedAt = &done
	if err := m.buildJobRepo.Update(job); err != nil {
		return job, fmt.Errorf("failed to update build job: %w", err)
	}

	if !m.config.KeepWorkspace {
		if err := os.RemoveAll(workspace); err != nil {
			log.Warn("failed to clean workspace", "build_id", job.ID, "error", err)
		}
	}

	log.Info("build complete",
		"build_id", job.ID,
		"kernel", target.Full,
		"artifact", job.ArtifactPath,
		"checksum", job.ArtifactChecksum)

	return job, nil
}

// fail marks the job failed and returns the original error
func (m *Manager) fail(job *db.BuildJob, stage db.BuildStageName, cause error) error {
	now := time.Now()
	job.Status = db.BuildStatusFailed
	job.ErrorMessage = cause.Error()
	job.ErrorStage = stage
	job.CompletedAt = &now
	if err := m.buildJobRepo.Update(job); err != nil {
		log.Error("failed to record build failure", "build_id", job.ID, "error", err)
	}

	log.Error("build failed",
		"build_id", job.ID,
		"stage", stage,
		"error", cause)

	return cause
}
