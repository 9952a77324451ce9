package build

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goatd/goatforge/src/goatforge/db"
	"github.com/goatd/goatforge/src/goatforge/headers"
	"golang.org/x/term"
)

// InstallStage installs the built kernel package on the host, verifies the
// header symlinks for the new kernel and drops the post-install hook so
// later header installs are picked up automatically.
type InstallStage struct {
	executor Executor
	engine   *headers.Engine
	hookPath string

	// SkipConfirm bypasses the interactive prompt (for --yes runs)
	SkipConfirm bool

	installCommand string
	installArgs    []string
}

// DefaultHookPath is where the post-install hook script is written
const DefaultHookPath = "/usr/local/sbin/goatforge-verify-headers"

// NewInstallStage creates an install stage. With an empty command it
// installs the bundled package with pacman.
func NewInstallStage(executor Executor, engine *headers.Engine, hookPath string, command string, args ...string) *InstallStage {
	if hookPath == "" {
		hookPath = DefaultHookPath
	}
	if command == "" {
		command = "pacman"
		args = []string{"-U", "--noconfirm"}
	}
	return &InstallStage{
		executor:       executor,
		engine:         engine,
		hookPath:       hookPath,
		installCommand: command,
		installArgs:    args,
	}
}

// Name returns the stage name
func (s *InstallStage) Name() db.BuildStageName {
	return db.StageInstall
}

// Validate checks whether this stage can run
func (s *InstallStage) Validate(ctx context.Context, sc *StageContext) error {
	if sc.ArtifactFile == "" {
		return fmt.Errorf("no artifact to install, package stage must run first")
	}
	if !s.executor.IsAvailable(s.installCommand) {
		return fmt.Errorf("install command not found: %s", s.installCommand)
	}
	return nil
}

// Execute installs the kernel package and verifies the header links
func (s *InstallStage) Execute(ctx context.Context, sc *StageContext, progress ProgressFunc) error {
	if !s.SkipConfirm {
		ok, err := confirmInstall(sc.Target.Full)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("installation declined")
		}
	}

	progress(10, fmt.Sprintf("Installing kernel %s", sc.Target.Full))

	args := append(append([]string{}, s.installArgs...), sc.ArtifactFile)
	if err := s.executor.Run(ctx, filepath.Dir(sc.ArtifactFile), nil, sc.LogWriter, s.installCommand, args...); err != nil {
		return fmt.Errorf("kernel installation failed: %w", err)
	}

	progress(60, "Verifying kernel header symlinks")

	moduleDir := s.engine.ModuleDir(sc.Target)
	linker := headers.NewLinkManager(s.engine)
	if err := linker.EnsureSymlinks(sc.Target, moduleDir); err != nil {
		return fmt.Errorf("header symlink verification failed: %w", err)
	}

	progress(85, "Writing post-install hook")

	emitter := headers.NewEmitter(s.engine)
	if err := emitter.WriteHook(s.hookPath); err != nil {
		return fmt.Errorf("failed to write post-install hook: %w", err)
	}

	log.Info("kernel installed",
		"build_id", sc.BuildID,
		"kernel", sc.Target.Full,
		"module_dir", moduleDir,
		"hook", s.hookPath)

	progress(100, "Installation complete")
	return nil
}

// confirmInstall prompts for confirmation on a terminal. Without a TTY the
// install is refused so unattended runs must pass the skip flag explicitly.
func confirmInstall(kernel string) (bool, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return false, fmt.Errorf("stdin is not a terminal, rerun with --yes to install kernel %s", kernel)
	}

	fmt.Fprintf(os.Stderr, "Install kernel %s on this system? [y/N] ", kernel)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false, fmt.Errorf("failed to read confirmation: %w", err)
	}

	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}
