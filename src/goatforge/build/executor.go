package build

import (
	"context"
	"fmt"
	"io"
	"os/exec"
)

// Executor is the interface for running build commands. The production
// implementation executes on the host; tests substitute recording fakes.
type Executor interface {
	// Run executes a command in dir, streaming combined output to logWriter
	Run(ctx context.Context, dir string, env []string, logWriter io.Writer, name string, args ...string) error

	// IsAvailable checks if the command binary is installed
	IsAvailable(name string) bool
}

// HostExecutor runs build commands directly on the host
type HostExecutor struct{}

// NewHostExecutor creates a host executor
func NewHostExecutor() *HostExecutor {
	return &HostExecutor{}
}

// Run executes a command in dir with the extra environment env appended to
// the process environment
func (e *HostExecutor) Run(ctx context.Context, dir string, env []string, logWriter io.Writer, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	if len(env) > 0 {
		cmd.Env = append(cmd.Environ(), env...)
	}
	cmd.Stdout = logWriter
	cmd.Stderr = logWriter

	log.Debug("running build command", "dir", dir, "command", name, "args", args)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s failed: %w", name, err)
	}
	return nil
}

// IsAvailable checks if the command binary is on PATH
func (e *HostExecutor) IsAvailable(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
