package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	apperrors "github.com/goatd/goatforge/src/common/errors"
	"github.com/goatd/goatforge/src/goatforge/headers"
)

var headersCmd = &cobra.Command{
	Use:   "headers",
	Short: "Discover and verify kernel header trees",
}

var headersDiscoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Locate a verified header tree for a kernel version",
	Long: `Searches the source root for a kernel header tree whose recorded release
matches the target version exactly. Directory names are never trusted; only
the release metadata inside each candidate counts.`,
	RunE: runHeadersDiscover,
}

var headersLinkCmd = &cobra.Command{
	Use:   "link",
	Short: "Point module build/source symlinks at a verified header tree",
	RunE:  runHeadersLink,
}

var headersWaitCmd = &cobra.Command{
	Use:   "wait",
	Short: "Block until a verified header tree appears",
	RunE:  runHeadersWait,
}

func init() {
	headersCmd.PersistentFlags().String("target", "", "Target kernel version (default: running kernel)")
	headersLinkCmd.Flags().String("module-dir", "", "Module directory to link (default: <module_root>/<target>)")
	headersWaitCmd.Flags().Duration("timeout", 5*time.Minute, "Give up after this long")

	headersCmd.AddCommand(headersDiscoverCmd)
	headersCmd.AddCommand(headersLinkCmd)
	headersCmd.AddCommand(headersWaitCmd)
}

func runHeadersDiscover(cmd *cobra.Command, args []string) error {
	target, err := resolveTarget(cmd)
	if err != nil {
		return err
	}

	engine := cfg.Headers.Engine()
	path, ok := engine.Discover(target)
	if !ok {
		return apperrors.ErrNoVerifiedHeaders.WithMessagef(
			"no header tree with recorded release %s found under %s", target.Full, engine.SrcRoot)
	}

	fmt.Println(path)
	return nil
}

func runHeadersLink(cmd *cobra.Command, args []string) error {
	target, err := resolveTarget(cmd)
	if err != nil {
		return err
	}

	engine := cfg.Headers.Engine()
	moduleDir, _ := cmd.Flags().GetString("module-dir")
	if moduleDir == "" {
		moduleDir = engine.ModuleDir(target)
	}

	linker := headers.NewLinkManager(engine)
	if err := linker.EnsureSymlinks(target, moduleDir); err != nil {
		return err
	}

	logger.Info("header symlinks verified", "kernel", target.Full, "module_dir", moduleDir)
	return nil
}

func runHeadersWait(cmd *cobra.Command, args []string) error {
	target, err := resolveTarget(cmd)
	if err != nil {
		return err
	}

	timeout, _ := cmd.Flags().GetDuration("timeout")
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	engine := cfg.Headers.Engine()
	path, err := headers.Wait(ctx, engine, target)
	if err != nil {
		return err
	}

	fmt.Println(path)
	return nil
}
