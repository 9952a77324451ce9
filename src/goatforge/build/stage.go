// Package build provides the goatforge kernel build pipeline: prepare,
// patch, compile, package, install.
package build

import (
	"context"
	"io"

	"github.com/goatd/goatforge/src/goatforge/db"
	"github.com/goatd/goatforge/src/goatforge/headers"
)

// Stage defines the interface for a single build pipeline stage
type Stage interface {
	// Name returns the stage name
	Name() db.BuildStageName

	// Validate checks whether this stage can run given the current context
	Validate(ctx context.Context, sc *StageContext) error

	// Execute runs the stage, updating progress via the callback
	Execute(ctx context.Context, sc *StageContext, progress ProgressFunc) error
}

// ProgressFunc reports stage progress (0-100) with an optional message
type ProgressFunc func(percent int, message string)

// StageContext holds shared state passed through the pipeline
type StageContext struct {
	BuildID       string
	Target        headers.Version
	WorkspacePath string // Root workspace directory for this build
	SourcesDir    string // Downloaded source archives
	BuildDir      string // Extracted kernel source being built
	OutputDir     string // Final output artifacts
	LogsDir       string // Build logs
	LogWriter     io.Writer

	// SourceKey is the storage key of the kernel source archive
	SourceKey string

	// SourceDir is the extracted kernel source root (populated by prepare)
	SourceDir string

	// Artifact info populated by the package stage
	ArtifactFile     string // Local path of the built package
	ArtifactKey      string // Storage key after upload (empty if not uploaded)
	ArtifactChecksum string // BLAKE2b-256 checksum
	ArtifactSize     int64  // Size in bytes
}
