package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goatd/goatforge/src/goatforge/build"
	"github.com/goatd/goatforge/src/goatforge/db"
	"github.com/goatd/goatforge/src/goatforge/storage"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build, package and install a kernel",
	Long: `Runs the full kernel pipeline: fetch and extract the source, apply
patchers, compile, bundle the result and install it. After installation the
header symlinks for the new kernel are verified and the post-install hook is
written.`,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().String("target", "", "Target kernel version (default: running kernel)")
	buildCmd.Flags().Bool("skip-install", false, "Stop after packaging, do not install")
	buildCmd.Flags().Bool("yes", false, "Install without interactive confirmation")
}

func runBuild(cmd *cobra.Command, args []string) error {
	target, err := resolveTarget(cmd)
	if err != nil {
		return err
	}

	database, err := db.New(db.Config{Path: cfg.DB.Path})
	if err != nil {
		return err
	}
	defer database.Close()

	backend, err := storage.New(storageConfig())
	if err != nil {
		return err
	}

	skipInstall, _ := cmd.Flags().GetBool("skip-install")
	assumeYes, _ := cmd.Flags().GetBool("yes")

	executor := build.NewHostExecutor()
	engine := cfg.Headers.Engine()

	stages := []build.Stage{
		build.NewPrepareStage(backend),
		build.NewPatchStage(),
		build.NewCompileStage(executor, cfg.Build.Command),
		build.NewPackageStage(backend, cfg.Build.UploadArtifacts),
	}
	if !skipInstall {
		install := build.NewInstallStage(executor, engine, cfg.Headers.HookPath, cfg.Build.InstallCommand)
		install.SkipConfirm = assumeYes
		stages = append(stages, install)
	}

	manager := build.NewManager(database, backend, build.Config{
		WorkspaceBase: cfg.Build.Workspace,
		KeepWorkspace: cfg.Build.KeepWorkspace,
	})
	manager.RegisterStages(stages)

	job, err := manager.Run(cmd.Context(), target, cfg.Build.SourceKey(target))
	if err != nil {
		return err
	}

	fmt.Printf("build %s complete: kernel %s\n", job.ID, job.KernelVersion)
	if job.ArtifactPath != "" {
		fmt.Printf("artifact: %s (%s)\n", job.ArtifactPath, job.ArtifactChecksum)
	}
	return nil
}

// storageConfig maps the loaded configuration onto the storage package
func storageConfig() storage.Config {
	return storage.Config{
		Type: cfg.Storage.Type,
		Local: storage.LocalConfig{
			BasePath: cfg.Storage.Local.BasePath,
		},
		S3: storage.S3Config{
			Endpoint:        cfg.Storage.S3.Endpoint,
			Region:          cfg.Storage.S3.Region,
			Bucket:          cfg.Storage.S3.Bucket,
			AccessKeyID:     cfg.Storage.S3.AccessKey,
			SecretAccessKey: cfg.Storage.S3.SecretKey,
			UsePathStyle:    cfg.Storage.S3.UsePathStyle,
		},
	}
}
