package headers

import (
	"context"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	apperrors "github.com/goatd/goatforge/src/common/errors"
)

// Wait blocks until a verified header tree for target exists under the
// engine's source root, or ctx is done. It probes once up front, then
// watches the source root and re-runs discovery on filesystem changes.
// This backs the orchestrator's "re-run after the user installs the header
// package" policy without polling.
func Wait(ctx context.Context, engine *Engine, target Version) (string, error) {
	if path, ok := engine.Discover(target); ok {
		return path, nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.DomainHeaders, "watch_failed",
			apperrors.ExitNoHeaders, "starting filesystem watcher")
	}
	defer watcher.Close()

	if err := addDirsRecursive(watcher, engine.SrcRoot); err != nil {
		return "", apperrors.Wrap(err, apperrors.DomainHeaders, "watch_failed",
			apperrors.ExitNoHeaders, "watching "+engine.SrcRoot)
	}

	// The tree may have appeared between the initial probe and the watch.
	if path, ok := engine.Discover(target); ok {
		return path, nil
	}

	log.Info("waiting for verified header tree",
		"target", target.Full, "src_root", engine.SrcRoot)

	for {
		select {
		case <-ctx.Done():
			return "", apperrors.ErrNoVerifiedHeaders.WithMessagef(
				"gave up waiting for %s under %s", target.Full, engine.SrcRoot).WithCause(ctx.Err())

		case ev, ok := <-watcher.Events:
			if !ok {
				return "", apperrors.ErrNoVerifiedHeaders.WithMessage("filesystem watcher closed")
			}
			// New directories created at runtime are added to the watch
			// list so the release file write deeper in the tree is seen.
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(watcher, ev.Name); addErr != nil {
						log.Warn("watch new dir failed", "path", ev.Name, "error", addErr)
					}
				}
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if path, ok := engine.Discover(target); ok {
				return path, nil
			}

		case werr, ok := <-watcher.Errors:
			if !ok {
				return "", apperrors.ErrNoVerifiedHeaders.WithMessage("filesystem watcher closed")
			}
			log.Warn("filesystem watcher error", "error", werr)
		}
	}
}

func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable entries
		}
		if !d.IsDir() {
			return nil
		}
		return w.Add(path)
	})
}
