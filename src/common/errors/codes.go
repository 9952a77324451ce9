package errors

// Common error codes used across domains
const (
	CodeNotFound       Code = "not_found"
	CodeAlreadyExists  Code = "already_exists"
	CodeInvalidRequest Code = "invalid_request"
	CodeConflict       Code = "conflict"
	CodeInternal       Code = "internal_error"
	CodeUnavailable    Code = "unavailable"
	CodeTimeout        Code = "timeout"
)

// Process exit codes. The CLI maps structured errors onto these so that
// install hooks and scripts can distinguish failure classes.
const (
	ExitFailure      = 1 // generic failure
	ExitUsage        = 2 // malformed input or configuration
	ExitNoHeaders    = 3 // no verified header tree for the target version
	ExitLinkFailure  = 4 // symlink creation or verification failure
	ExitBuildFailure = 5 // build pipeline failure
)

// ============================================================================
// Version Errors
// ============================================================================

var (
	// ErrMalformedVersion is returned when a kernel version string is empty
	// or contains path-unsafe characters
	ErrMalformedVersion = New(DomainVersion, "malformed_version", ExitUsage,
		"Malformed kernel version string")
)

// ============================================================================
// Header Discovery Errors
// ============================================================================

var (
	// ErrMetadataMissing is returned when a candidate header tree has no
	// release metadata file
	ErrMetadataMissing = New(DomainHeaders, "metadata_missing", ExitNoHeaders,
		"Release metadata file not found in header tree")

	// ErrMetadataUnreadable is returned when the release metadata file exists
	// but cannot be read
	ErrMetadataUnreadable = New(DomainHeaders, "metadata_unreadable", ExitNoHeaders,
		"Release metadata file could not be read")

	// ErrNoVerifiedHeaders is returned when every discovery strategy is
	// exhausted without a metadata-verified header tree
	ErrNoVerifiedHeaders = New(DomainHeaders, "no_verified_headers", ExitNoHeaders,
		"No verified kernel header tree found for target version")
)

// ============================================================================
// Symlink Errors
// ============================================================================

var (
	// ErrSymlinkCreationFailed is returned on an I/O or permission failure
	// during the atomic symlink replace
	ErrSymlinkCreationFailed = New(DomainSymlink, "creation_failed", ExitLinkFailure,
		"Failed to create kernel header symlink")

	// ErrPostLinkVerificationFailed is returned when metadata re-read through
	// a freshly created link no longer matches the target version
	ErrPostLinkVerificationFailed = New(DomainSymlink, "post_link_verification_failed", ExitLinkFailure,
		"Post-link verification failed: link target no longer matches target version")
)

// ============================================================================
// Build Errors
// ============================================================================

var (
	// ErrBuildJobNotFound is returned when a build job cannot be found
	ErrBuildJobNotFound = New(DomainHistory, CodeNotFound, ExitFailure,
		"Build job not found")

	// ErrStageValidation is returned when a pipeline stage rejects the
	// current build context
	ErrStageValidation = New(DomainBuild, "stage_validation", ExitBuildFailure,
		"Build stage validation failed")

	// ErrStageExecution is returned when a pipeline stage fails to execute
	ErrStageExecution = New(DomainBuild, "stage_execution", ExitBuildFailure,
		"Build stage execution failed")

	// ErrBuildAborted is returned when the user declines the install
	// confirmation prompt
	ErrBuildAborted = New(DomainBuild, "aborted", ExitFailure,
		"Build aborted by user")
)

// ============================================================================
// Storage Errors
// ============================================================================

var (
	// ErrArtifactNotFound is returned when a storage object cannot be found
	ErrArtifactNotFound = New(DomainStorage, CodeNotFound, ExitFailure,
		"Artifact not found in storage")

	// ErrStorageUploadFailed is returned when a storage upload fails
	ErrStorageUploadFailed = New(DomainStorage, "upload_failed", ExitFailure,
		"Failed to upload artifact to storage")

	// ErrStorageDownloadFailed is returned when a storage download fails
	ErrStorageDownloadFailed = New(DomainStorage, "download_failed", ExitFailure,
		"Failed to download artifact from storage")

	// ErrStorageUnavailable is returned when the storage backend is unavailable
	ErrStorageUnavailable = New(DomainStorage, CodeUnavailable, ExitFailure,
		"Storage backend unavailable")
)

// ============================================================================
// History Errors
// ============================================================================

var (
	// ErrDatabaseConnection is returned when the history database cannot be opened
	ErrDatabaseConnection = New(DomainHistory, "connection_failed", ExitFailure,
		"History database connection failed")

	// ErrDatabaseQuery is returned when a history database query fails
	ErrDatabaseQuery = New(DomainHistory, "query_failed", ExitFailure,
		"History database query failed")
)

// ============================================================================
// Config Errors
// ============================================================================

var (
	// ErrInvalidConfig is returned when the loaded configuration fails validation
	ErrInvalidConfig = New(DomainConfig, CodeInvalidRequest, ExitUsage,
		"Invalid configuration")
)
