package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goatd/goatforge/src/goatforge/headers"
)

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Manage the post-install verification hook",
}

var hookEmitCmd = &cobra.Command{
	Use:   "emit",
	Short: "Write the shell hook that re-verifies header symlinks",
	Long: `Emits a standalone POSIX shell script with the same discovery and
verification behavior as this binary. Package managers run it after kernel
or header installs so the symlinks stay correct without goatforge present.`,
	RunE: runHookEmit,
}

func init() {
	hookEmitCmd.Flags().String("output", "", "Write the hook to this path (default: stdout)")
	hookCmd.AddCommand(hookEmitCmd)
}

func runHookEmit(cmd *cobra.Command, args []string) error {
	emitter := headers.NewEmitter(cfg.Headers.Engine())

	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		script, err := emitter.Render()
		if err != nil {
			return err
		}
		fmt.Print(script)
		return nil
	}

	if err := emitter.WriteHook(output); err != nil {
		return err
	}
	logger.Info("hook written", "path", output)
	return nil
}
