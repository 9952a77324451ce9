// Package cmd implements the goatforge command-line interface.
package cmd

import (
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/goatd/goatforge/src/common/cli"
	apperrors "github.com/goatd/goatforge/src/common/errors"
	"github.com/goatd/goatforge/src/common/logs"
	"github.com/goatd/goatforge/src/common/version"
	"github.com/goatd/goatforge/src/goatforge/build"
	"github.com/goatd/goatforge/src/goatforge/headers"
	"github.com/goatd/goatforge/src/goatforge/internal/config"
)

var (
	// VersionInfo holds version information - set at build time via ldflags
	VersionInfo = version.New()

	cfgFile string
	logger  *logs.Logger
	cfg     *config.Config
)

// Linker variables - set via ldflags at build time
var (
	Version        = "dev"
	ReleaseName    = "Capricorn"
	ReleaseVersion = "0.0.0"
	BuildDate      = "unknown"
	GitCommit      = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "goatforge",
	Short: "goatd kernel build and header verification tool",
	Long: `goatforge builds, patches and installs goatd kernels, and verifies that
the kernel header symlinks under /lib/modules point at a header tree whose
recorded release matches the running kernel exactly.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}
		return initRuntime()
	},
}

// Execute runs the root command
func Execute() {
	VersionInfo.Version = Version
	VersionInfo.ReleaseName = ReleaseName
	VersionInfo.ReleaseVersion = ReleaseVersion
	VersionInfo.BuildDate = BuildDate
	VersionInfo.GitCommit = GitCommit

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(apperrors.GetExitCode(err))
	}
}

func init() {
	cli.RegisterConfigFlag(rootCmd, &cfgFile, "/etc/goatforge/goatforge.yaml")
	cli.RegisterLogFlags(rootCmd)

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(headersCmd)
	rootCmd.AddCommand(hookCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(historyCmd)
}

// initRuntime loads configuration and wires the logger into every package
func initRuntime() error {
	config.SetDefaults()

	opts := cli.DefaultConfigOptions("goatforge", "GOATFORGE")
	opts.ConfigFile = cfgFile
	if err := cli.InitConfig(opts); err != nil {
		return err
	}

	loaded, err := config.Load()
	if err != nil {
		return apperrors.ErrInvalidConfig.WithCause(err)
	}
	cfg = loaded

	logger = cli.InitLogger("goatforge")
	headers.SetLogger(logger)
	build.SetLogger(logger)

	return nil
}

// resolveTarget parses the --target flag, falling back to the running
// kernel release. Core packages never read uname themselves.
func resolveTarget(cmd *cobra.Command) (headers.Version, error) {
	raw, _ := cmd.Flags().GetString("target")
	if raw == "" {
		release, err := runningKernelRelease()
		if err != nil {
			return headers.Version{}, fmt.Errorf("failed to read running kernel release: %w", err)
		}
		raw = release
	}
	return headers.Parse(raw)
}

// runningKernelRelease returns the release field of uname(2)
func runningKernelRelease() (string, error) {
	var uts syscall.Utsname
	if err := syscall.Uname(&uts); err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, c := range uts.Release {
		if c == 0 {
			break
		}
		sb.WriteByte(byte(c))
	}
	return sb.String(), nil
}
