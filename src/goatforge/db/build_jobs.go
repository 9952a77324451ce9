package db

import (
	"database/sql"
	"time"

	apperrors "github.com/goatd/goatforge/src/common/errors"
	"github.com/google/uuid"
)

// BuildJobRepository handles build job database operations
type BuildJobRepository struct {
	db *Database
}

// NewBuildJobRepository creates a new build job repository
func NewBuildJobRepository(db *Database) *BuildJobRepository {
	return &BuildJobRepository{db: db}
}

// Create inserts a new build job
func (r *BuildJobRepository) Create(job *BuildJob) error {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	job.CreatedAt = time.Now()
	if job.Status == "" {
		job.Status = BuildStatusPending
	}

	query := `
		INSERT INTO build_jobs (id, kernel_version, status, current_stage,
			progress_percent, workspace_path,
			artifact_path, artifact_checksum, artifact_size,
			error_message, error_stage, created_at, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.DB().Exec(query,
		job.ID, job.KernelVersion, job.Status, job.CurrentStage,
		job.ProgressPercent, job.WorkspacePath,
		job.ArtifactPath, job.ArtifactChecksum, job.ArtifactSize,
		job.ErrorMessage, job.ErrorStage, job.CreatedAt, job.StartedAt, job.CompletedAt,
	)
	if err != nil {
		return apperrors.ErrDatabaseQuery.WithMessagef("inserting build job %s", job.ID).WithCause(err)
	}
	return nil
}

// Update persists the mutable fields of a build job
func (r *BuildJobRepository) Update(job *BuildJob) error {
	query := `
		UPDATE build_jobs SET status = ?, current_stage = ?, progress_percent = ?,
			workspace_path = ?, artifact_path = ?, artifact_checksum = ?,
			artifact_size = ?, error_message = ?, error_stage = ?,
			started_at = ?, completed_at = ?
		WHERE id = ?
	`
	result, err := r.db.DB().Exec(query,
		job.Status, job.CurrentStage, job.ProgressPercent,
		job.WorkspacePath, job.ArtifactPath, job.ArtifactChecksum,
		job.ArtifactSize, job.ErrorMessage, job.ErrorStage,
		job.StartedAt, job.CompletedAt,
		job.ID,
	)
	if err != nil {
		return apperrors.ErrDatabaseQuery.WithMessagef("updating build job %s", job.ID).WithCause(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.ErrDatabaseQuery.WithMessagef("updating build job %s", job.ID).WithCause(err)
	}
	if affected == 0 {
		return apperrors.ErrBuildJobNotFound.WithMessagef("build job %s", job.ID)
	}
	return nil
}

// selectBuildJobsQuery is the base SELECT query for build jobs
const selectBuildJobsQuery = `
	SELECT id, kernel_version, status, current_stage,
		progress_percent, workspace_path,
		artifact_path, artifact_checksum, artifact_size,
		error_message, error_stage, created_at, started_at, completed_at
	FROM build_jobs
`

// GetByID retrieves a build job by ID
func (r *BuildJobRepository) GetByID(id string) (*BuildJob, error) {
	query := selectBuildJobsQuery + ` WHERE id = ?`
	row := r.db.DB().QueryRow(query, id)
	return r.scanJob(row)
}

// List retrieves all build jobs, newest first
func (r *BuildJobRepository) List() ([]BuildJob, error) {
	query := selectBuildJobsQuery + ` ORDER BY created_at DESC`
	rows, err := r.db.DB().Query(query)
	if err != nil {
		return nil, apperrors.ErrDatabaseQuery.WithMessage("listing build jobs").WithCause(err)
	}
	defer rows.Close()
	return r.scanJobs(rows)
}

// ListByStatus retrieves all build jobs with a specific status
func (r *BuildJobRepository) ListByStatus(status BuildJobStatus) ([]BuildJob, error) {
	query := selectBuildJobsQuery + ` WHERE status = ? ORDER BY created_at DESC`
	rows, err := r.db.DB().Query(query, status)
	if err != nil {
		return nil, apperrors.ErrDatabaseQuery.WithMessagef("listing build jobs with status %s", status).WithCause(err)
	}
	defer rows.Close()
	return r.scanJobs(rows)
}

// ListByKernelVersion retrieves all build jobs for a kernel version
func (r *BuildJobRepository) ListByKernelVersion(version string) ([]BuildJob, error) {
	query := selectBuildJobsQuery + ` WHERE kernel_version = ? ORDER BY created_at DESC`
	rows, err := r.db.DB().Query(query, version)
	if err != nil {
		return nil, apperrors.ErrDatabaseQuery.WithMessagef("listing build jobs for kernel %s", version).WithCause(err)
	}
	defer rows.Close()
	return r.scanJobs(rows)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *BuildJobRepository) scanJob(row rowScanner) (*BuildJob, error) {
	var job BuildJob
	var currentStage, workspacePath, artifactPath, artifactChecksum sql.NullString
	var errorMessage, errorStage sql.NullString
	var startedAt, completedAt sql.NullTime

	err := row.Scan(
		&job.ID, &job.KernelVersion, &job.Status, &currentStage,
		&job.ProgressPercent, &workspacePath,
		&artifactPath, &artifactChecksum, &job.ArtifactSize,
		&errorMessage, &errorStage, &job.CreatedAt, &startedAt, &completedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.ErrBuildJobNotFound
	}
	if err != nil {
		return nil, apperrors.ErrDatabaseQuery.WithMessage("scanning build job").WithCause(err)
	}

	job.CurrentStage = BuildStageName(currentStage.String)
	job.WorkspacePath = workspacePath.String
	job.ArtifactPath = artifactPath.String
	job.ArtifactChecksum = artifactChecksum.String
	job.ErrorMessage = errorMessage.String
	job.ErrorStage = BuildStageName(errorStage.String)
	if startedAt.Valid {
		job.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		job.CompletedAt = &completedAt.Time
	}

	return &job, nil
}

func (r *BuildJobRepository) scanJobs(rows *sql.Rows) ([]BuildJob, error) {
	var jobs []BuildJob
	for rows.Next() {
		job, err := r.scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.ErrDatabaseQuery.WithMessage("iterating build jobs").WithCause(err)
	}
	return jobs, nil
}
