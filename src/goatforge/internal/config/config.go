// Package config defines the goatforge configuration schema, loaded through
// Viper and validated before any command runs.
package config

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/spf13/viper"

	"github.com/goatd/goatforge/src/common/paths"
	"github.com/goatd/goatforge/src/goatforge/headers"
)

// Config represents the full goatforge configuration
type Config struct {
	Headers HeadersConfig `mapstructure:"headers"`
	Build   BuildConfig   `mapstructure:"build"`
	DB      DBConfig      `mapstructure:"db"`
	Storage StorageConfig `mapstructure:"storage"`
	Log     LogConfig     `mapstructure:"log"`
}

// HeadersConfig controls kernel header discovery and symlink verification
type HeadersConfig struct {
	// SrcRoot is the directory scanned for linux-* header trees
	SrcRoot string `mapstructure:"src_root"`

	// ModuleRoot is the kernel module base directory
	ModuleRoot string `mapstructure:"module_root"`

	// ReleaseFile is the metadata file checked inside each candidate,
	// relative to the candidate directory
	ReleaseFile string `mapstructure:"release_file"`

	// BrandMarkers are the substrings identifying branded kernel trees
	BrandMarkers []string `mapstructure:"brand_markers"`

	// HookPath is where the post-install verification hook is written
	HookPath string `mapstructure:"hook_path"`
}

// Validate validates the headers configuration
func (c *HeadersConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.SrcRoot, validation.Required),
		validation.Field(&c.ModuleRoot, validation.Required),
		validation.Field(&c.ReleaseFile, validation.Required),
		validation.Field(&c.BrandMarkers, validation.Required, validation.Length(1, 0)),
	)
}

// Engine builds a discovery engine from this configuration
func (c *HeadersConfig) Engine() *headers.Engine {
	return &headers.Engine{
		Locator: headers.Locator{
			SrcRoot:      paths.Expand(c.SrcRoot),
			BrandMarkers: c.BrandMarkers,
		},
		ReleaseFile: c.ReleaseFile,
		ModuleRoot:  paths.Expand(c.ModuleRoot),
	}
}

// BuildConfig controls the kernel build pipeline
type BuildConfig struct {
	// Workspace is the base directory for build workspaces
	Workspace string `mapstructure:"workspace"`

	// KeepWorkspace keeps workspaces of successful builds
	KeepWorkspace bool `mapstructure:"keep_workspace"`

	// SourceKeyTemplate names the storage key for a kernel source archive;
	// %s is replaced by the base version
	SourceKeyTemplate string `mapstructure:"source_key_template"`

	// Command overrides the compile command (default makepkg)
	Command string `mapstructure:"command"`

	// InstallCommand overrides the install command (default pacman)
	InstallCommand string `mapstructure:"install_command"`

	// UploadArtifacts pushes packaged artifacts to the storage backend
	UploadArtifacts bool `mapstructure:"upload_artifacts"`
}

// Validate validates the build configuration
func (c *BuildConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Workspace, validation.Required),
		validation.Field(&c.SourceKeyTemplate, validation.Required),
	)
}

// SourceKey returns the storage key for a kernel version's source archive
func (c *BuildConfig) SourceKey(v headers.Version) string {
	return fmt.Sprintf(c.SourceKeyTemplate, v.Base)
}

// DBConfig controls the build history database
type DBConfig struct {
	Path string `mapstructure:"path"`
}

// Validate validates the database configuration
func (c *DBConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// StorageConfig controls the artifact storage backend
type StorageConfig struct {
	Type  string         `mapstructure:"type"`
	Local LocalConfig    `mapstructure:"local"`
	S3    S3StorageConfig `mapstructure:"s3"`
}

// LocalConfig holds local filesystem backend settings
type LocalConfig struct {
	BasePath string `mapstructure:"base_path"`
}

// S3StorageConfig holds S3 backend settings
type S3StorageConfig struct {
	Endpoint     string `mapstructure:"endpoint"`
	Region       string `mapstructure:"region"`
	Bucket       string `mapstructure:"bucket"`
	AccessKey    string `mapstructure:"access_key"`
	SecretKey    string `mapstructure:"secret_key"`
	UsePathStyle bool   `mapstructure:"use_path_style"`
}

// Validate validates the storage configuration
func (c *StorageConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Type, validation.Required, validation.In("local", "s3")),
	); err != nil {
		return err
	}

	switch c.Type {
	case "local":
		return validation.ValidateStruct(&c.Local,
			validation.Field(&c.Local.BasePath, validation.Required),
		)
	case "s3":
		return validation.ValidateStruct(&c.S3,
			validation.Field(&c.S3.Region, validation.Required),
			validation.Field(&c.S3.Bucket, validation.Required),
		)
	}
	return nil
}

// LogConfig controls logging output and verbosity
type LogConfig struct {
	Output string `mapstructure:"output"`
	Level  string `mapstructure:"level"`
}

// Validate validates the log configuration
func (c *LogConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Output, validation.In("auto", "stdout", "journald")),
		validation.Field(&c.Level, validation.In("debug", "info", "warn", "error", "")),
	)
}

// Validate validates the full configuration
func (c *Config) Validate() error {
	if err := c.Headers.Validate(); err != nil {
		return fmt.Errorf("headers: %w", err)
	}
	if err := c.Build.Validate(); err != nil {
		return fmt.Errorf("build: %w", err)
	}
	if err := c.DB.Validate(); err != nil {
		return fmt.Errorf("db: %w", err)
	}
	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	return nil
}

// SetDefaults registers default values for every configuration key
func SetDefaults() {
	viper.SetDefault("headers.src_root", headers.DefaultSrcRoot)
	viper.SetDefault("headers.module_root", headers.DefaultModuleRoot)
	viper.SetDefault("headers.release_file", headers.DefaultReleaseFile)
	viper.SetDefault("headers.brand_markers", []string{headers.DefaultBrandMarker})
	viper.SetDefault("headers.hook_path", "/usr/local/sbin/goatforge-verify-headers")

	viper.SetDefault("build.workspace", "~/.goatforge/builds")
	viper.SetDefault("build.keep_workspace", false)
	viper.SetDefault("build.source_key_template", "kernels/linux-%s.tar.xz")
	viper.SetDefault("build.upload_artifacts", false)

	viper.SetDefault("db.path", "~/.goatforge/history.db")

	viper.SetDefault("storage.type", "local")
	viper.SetDefault("storage.local.base_path", "~/.goatforge/artifacts")

	viper.SetDefault("log.output", "auto")
	viper.SetDefault("log.level", "info")
}

// Load unmarshals and validates the configuration from Viper
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
