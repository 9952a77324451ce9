package db

import "time"

// BuildJobStatus represents the lifecycle state of a build job
type BuildJobStatus string

const (
	BuildStatusPending BuildJobStatus = "pending"
	BuildStatusRunning BuildJobStatus = "running"
	BuildStatusSuccess BuildJobStatus = "success"
	BuildStatusFailed  BuildJobStatus = "failed"
)

// BuildStageName identifies a pipeline stage
type BuildStageName string

const (
	StagePrepare BuildStageName = "prepare"
	StagePatch   BuildStageName = "patch"
	StageCompile BuildStageName = "compile"
	StagePackage BuildStageName = "package"
	StageInstall BuildStageName = "install"
)

// BuildJob records one kernel build run
type BuildJob struct {
	ID               string         `json:"id"`
	KernelVersion    string         `json:"kernel_version"`
	Status           BuildJobStatus `json:"status"`
	CurrentStage     BuildStageName `json:"current_stage,omitempty"`
	ProgressPercent  int            `json:"progress_percent"`
	WorkspacePath    string         `json:"workspace_path,omitempty"`
	ArtifactPath     string         `json:"artifact_path,omitempty"`
	ArtifactChecksum string         `json:"artifact_checksum,omitempty"`
	ArtifactSize     int64          `json:"artifact_size"`
	ErrorMessage     string         `json:"error_message,omitempty"`
	ErrorStage       BuildStageName `json:"error_stage,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	StartedAt        *time.Time     `json:"started_at,omitempty"`
	CompletedAt      *time.Time     `json:"completed_at,omitempty"`
}
