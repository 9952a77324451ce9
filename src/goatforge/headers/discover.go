package headers

import (
	"path/filepath"

	apperrors "github.com/goatd/goatforge/src/common/errors"
	"github.com/goatd/goatforge/src/common/logs"
)

var log = logs.NewDefault()

// SetLogger sets the logger for the headers package
func SetLogger(l *logs.Logger) {
	if l != nil {
		log = l
	}
}

// Filesystem conventions on the target system.
const (
	DefaultSrcRoot    = "/usr/src"
	DefaultModuleRoot = "/lib/modules"
)

// Engine resolves a target kernel version to a metadata-verified header
// tree. Discovery performs only reads: it is idempotent against unchanged
// filesystem state and safe to call concurrently.
type Engine struct {
	Locator

	// ReleaseFile is the metadata file path relative to each header tree.
	// Empty means DefaultReleaseFile.
	ReleaseFile string

	// ModuleRoot is where per-kernel module directories live (normally
	// /lib/modules). Discovery itself never touches it; the symlink manager
	// and the emitted hook derive module directories from it.
	ModuleRoot string
}

// NewEngine returns an engine with the standard filesystem conventions.
func NewEngine() *Engine {
	return &Engine{
		Locator:    Locator{SrcRoot: DefaultSrcRoot},
		ModuleRoot: DefaultModuleRoot,
	}
}

func (e *Engine) moduleRoot() string {
	if e.ModuleRoot == "" {
		return DefaultModuleRoot
	}
	return e.ModuleRoot
}

// ModuleDir returns the module directory for target under the engine's
// module root, e.g. /lib/modules/6.18.7-arch1.
func (e *Engine) ModuleDir(target Version) string {
	return filepath.Join(e.moduleRoot(), target.Full)
}

func (e *Engine) releaseFile() string {
	if e.ReleaseFile == "" {
		return DefaultReleaseFile
	}
	return e.ReleaseFile
}

// Discover returns the first header tree whose release metadata matches
// target exactly, walking the locator strategies in strict priority order.
// Exhaustion returns ok == false; there is no best-effort result.
func (e *Engine) Discover(target Version) (path string, ok bool) {
	for _, group := range e.Strategies(target) {
		for _, c := range group.Candidates {
			if Matches(c.Path, e.releaseFile(), target) {
				log.Debug("verified header tree",
					"strategy", string(group.Strategy),
					"path", c.Path,
					"target", target.Full)
				return c.Path, true
			}
			log.Debug("candidate rejected",
				"strategy", string(group.Strategy),
				"path", c.Path,
				"claimed", c.ClaimedVersion,
				"branded", c.Branded,
				"target", target.Full)
		}
		if group.Strategy == StrategyBrandFallback {
			log.Debug("branding fallback exhausted", "target", target.Full)
		}
	}

	log.Warn("no verified kernel header tree",
		"target", target.Full,
		"src_root", e.SrcRoot)
	return "", false
}

// DiscoverKernelHeaders is the orchestrator-facing entry point: it parses
// targetVersion and runs discovery against the standard engine
// configuration, returning the verified path or ErrNoVerifiedHeaders.
func DiscoverKernelHeaders(targetVersion string) (string, error) {
	target, err := Parse(targetVersion)
	if err != nil {
		return "", err
	}
	engine := NewEngine()
	path, ok := engine.Discover(target)
	if !ok {
		return "", apperrors.ErrNoVerifiedHeaders.WithMessagef(
			"no verified kernel header tree for %s under %s", target.Full, engine.SrcRoot)
	}
	return path, nil
}
