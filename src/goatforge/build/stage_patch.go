package build

import (
	"context"
	"fmt"

	"github.com/goatd/goatforge/src/goatforge/db"
)

// Patcher mutates an extracted kernel source tree before compilation.
// Implementations cover concerns like package-script rebranding, compiler
// flag injection or kernel config enforcement; the stage only sequences
// them.
type Patcher interface {
	// Name identifies the patcher in logs and error messages
	Name() string
	// Apply mutates the source tree rooted at sourceDir
	Apply(ctx context.Context, sourceDir string) error
}

// PatchStage runs the configured patchers against the extracted source tree
type PatchStage struct {
	patchers []Patcher
}

// NewPatchStage creates a new patch stage. With no patchers it is a no-op.
func NewPatchStage(patchers ...Patcher) *PatchStage {
	return &PatchStage{patchers: patchers}
}

// Name returns the stage name
func (s *PatchStage) Name() db.BuildStageName {
	return db.StagePatch
}

// Validate checks whether this stage can run
func (s *PatchStage) Validate(ctx context.Context, sc *StageContext) error {
	if sc.SourceDir == "" {
		return fmt.Errorf("source directory not set, prepare stage must run first")
	}
	return nil
}

// Execute applies each patcher in order, failing the build on the first error
func (s *PatchStage) Execute(ctx context.Context, sc *StageContext, progress ProgressFunc) error {
	if len(s.patchers) == 0 {
		progress(100, "No patchers configured")
		return nil
	}

	for i, p := range s.patchers {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		progress(i*100/len(s.patchers), fmt.Sprintf("Applying %s", p.Name()))
		log.Debug("applying patcher", "build_id", sc.BuildID, "patcher", p.Name())

		if err := p.Apply(ctx, sc.SourceDir); err != nil {
			return fmt.Errorf("patcher %s failed: %w", p.Name(), err)
		}
	}

	progress(100, "Source tree patched")
	return nil
}
