package build

import (
	"context"
	"fmt"
	"runtime"

	"github.com/goatd/goatforge/src/goatforge/db"
)

// CompileStage runs the kernel build command in the extracted source tree
type CompileStage struct {
	executor Executor
	command  string
	args     []string
}

// NewCompileStage creates a compile stage. With an empty command it builds
// the kernel package with makepkg, placing packages in the output directory.
func NewCompileStage(executor Executor, command string, args ...string) *CompileStage {
	if command == "" {
		command = "makepkg"
		args = []string{"--noconfirm", "--skippgpcheck"}
	}
	return &CompileStage{
		executor: executor,
		command:  command,
		args:     args,
	}
}

// Name returns the stage name
func (s *CompileStage) Name() db.BuildStageName {
	return db.StageCompile
}

// Validate checks whether this stage can run
func (s *CompileStage) Validate(ctx context.Context, sc *StageContext) error {
	if sc.SourceDir == "" {
		return fmt.Errorf("source directory not set, prepare stage must run first")
	}
	if !s.executor.IsAvailable(s.command) {
		return fmt.Errorf("build command not found: %s", s.command)
	}
	return nil
}

// Execute runs the build command, streaming output to the build log
func (s *CompileStage) Execute(ctx context.Context, sc *StageContext, progress ProgressFunc) error {
	progress(0, fmt.Sprintf("Compiling kernel %s", sc.Target.Full))

	env := []string{
		"PKGDEST=" + sc.OutputDir,
		fmt.Sprintf("MAKEFLAGS=-j%d", runtime.NumCPU()),
	}

	log.Info("compiling kernel",
		"build_id", sc.BuildID,
		"kernel", sc.Target.Full,
		"command", s.command)

	if err := s.executor.Run(ctx, sc.SourceDir, env, sc.LogWriter, s.command, s.args...); err != nil {
		return fmt.Errorf("kernel compilation failed: %w", err)
	}

	progress(100, "Compilation complete")
	return nil
}
