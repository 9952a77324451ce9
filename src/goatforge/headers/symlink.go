package headers

import (
	"fmt"
	"os"
	"path/filepath"

	apperrors "github.com/goatd/goatforge/src/common/errors"
	"github.com/goatd/goatforge/src/common/paths"
)

// linkNames are the two symlinks DKMS and module builds consume.
var linkNames = [2]string{"build", "source"}

// LinkManager (re)points the build/source symlinks of a module directory at
// a discovery-verified header tree. Every on-disk mutation is an atomic
// replace: a temporary link is created and renamed over the old one, so a
// concurrent reader never observes a missing or half-updated link.
type LinkManager struct {
	engine *Engine

	// symlink and rename are os.Symlink and os.Rename in production;
	// tests inject failures through them.
	symlink func(oldname, newname string) error
	rename  func(oldpath, newpath string) error
}

// NewLinkManager creates a link manager over a discovery engine.
func NewLinkManager(engine *Engine) *LinkManager {
	return &LinkManager{
		engine:  engine,
		symlink: os.Symlink,
		rename:  os.Rename,
	}
}

// EnsureSymlinks points moduleDir/build and moduleDir/source at the verified
// header tree for target. It refuses to link anything discovery did not
// verify: exhausted discovery fails with ErrNoVerifiedHeaders, never a
// nearest-version substitute.
func (m *LinkManager) EnsureSymlinks(target Version, moduleDir string) error {
	verified, ok := m.engine.Discover(target)
	if !ok {
		return apperrors.ErrNoVerifiedHeaders.WithMessagef(
			"no verified kernel header tree for %s under %s", target.Full, m.engine.SrcRoot)
	}

	if err := paths.EnsureDir(moduleDir); err != nil {
		return apperrors.ErrSymlinkCreationFailed.WithMessagef(
			"creating module directory %s", moduleDir).WithCause(err)
	}

	for _, name := range linkNames {
		if err := m.ensureLink(filepath.Join(moduleDir, name), verified, target); err != nil {
			return err
		}
	}
	return nil
}

func (m *LinkManager) ensureLink(link, verified string, target Version) error {
	if current, err := os.Readlink(link); err == nil {
		resolved := current
		if !filepath.IsAbs(resolved) {
			resolved = filepath.Join(filepath.Dir(link), current)
		}
		if resolved == verified {
			return nil
		}
		// The link points elsewhere. If its target still carries matching
		// metadata it stays; otherwise it is stale and gets replaced.
		if Matches(resolved, m.engine.releaseFile(), target) {
			log.Debug("existing link target still verified, leaving in place",
				"link", link, "target_dir", resolved)
			return nil
		}
		log.Warn("stale symlink detected, replacing",
			"link", link, "stale_target", resolved, "expected", target.Full)
	} else if paths.Exists(link) && !paths.IsSymlink(link) {
		// A regular file or directory squatting at the link path. Renaming
		// over it would either fail or silently destroy it; refuse instead.
		return apperrors.ErrSymlinkCreationFailed.WithMessagef(
			"%s exists but is not a symlink", link)
	}

	tmp := fmt.Sprintf("%s.tmp.%d", link, os.Getpid())
	_ = os.Remove(tmp) // leftover from an earlier crash

	if err := m.symlink(verified, tmp); err != nil {
		return apperrors.ErrSymlinkCreationFailed.WithMessagef("creating %s", link).WithCause(err)
	}

	// Verify through the temporary link before it becomes visible. Failing
	// here leaves the previous link, or its absence, untouched.
	if !Matches(tmp, m.engine.releaseFile(), target) {
		_ = os.Remove(tmp)
		return apperrors.ErrPostLinkVerificationFailed.WithMessagef(
			"%s no longer matches %s", verified, target.Full)
	}

	if err := m.rename(tmp, link); err != nil {
		_ = os.Remove(tmp)
		return apperrors.ErrSymlinkCreationFailed.WithMessagef("replacing %s", link).WithCause(err)
	}

	// Final check through the live link path, defending against the target
	// directory being altered mid-operation.
	release, err := ReadRelease(link, m.engine.releaseFile())
	if err != nil {
		return apperrors.ErrPostLinkVerificationFailed.WithMessagef(
			"re-reading metadata through %s", link).WithCause(err)
	}
	if release != target.Full {
		return apperrors.ErrPostLinkVerificationFailed.WithMessagef(
			"%s resolves to release %q, want %q", link, release, target.Full)
	}

	log.Info("kernel header symlink updated", "link", link, "target_dir", verified)
	return nil
}

// CreateKernelSymlinksFallback is the orchestrator-facing entry point: it
// parses targetVersion and ensures the symlinks under moduleDir using the
// standard engine configuration.
func CreateKernelSymlinksFallback(targetVersion, moduleDir string) error {
	target, err := Parse(targetVersion)
	if err != nil {
		return err
	}
	return NewLinkManager(NewEngine()).EnsureSymlinks(target, moduleDir)
}
