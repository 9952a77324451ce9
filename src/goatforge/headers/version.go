// Package headers locates verified kernel header trees and maintains the
// build/source symlinks that DKMS and out-of-tree module builds rely on.
//
// Acceptance of a header tree is decided by exactly one rule: the release
// metadata file inside the tree must equal the target kernel release string.
// Directory names, branding conventions, and base-version prefixes only
// influence the order in which candidates are examined, never whether a
// candidate is accepted.
package headers

import (
	"strings"

	apperrors "github.com/goatd/goatforge/src/common/errors"
)

// Version identifies a kernel release.
type Version struct {
	// Full is the exact release string, e.g. "6.18.7-arch1". All
	// correctness comparisons use Full.
	Full string

	// Base is the release without its build/distro suffix, e.g. "6.18.7".
	// Base is used only to construct candidate directory names; it never
	// approves a match.
	Base string
}

// Parse validates a raw kernel release string and derives its base version.
// Version strings are interpolated into filesystem paths, so anything that
// could traverse directories is rejected.
func Parse(raw string) (Version, error) {
	if raw == "" {
		return Version{}, apperrors.ErrMalformedVersion.WithMessage("kernel version is empty")
	}
	if strings.Contains(raw, "..") {
		return Version{}, apperrors.ErrMalformedVersion.WithMessagef("kernel version %q contains a parent directory reference", raw)
	}
	if !pathSafe(raw) {
		return Version{}, apperrors.ErrMalformedVersion.WithMessagef("kernel version %q contains path-unsafe characters", raw)
	}
	return Version{Full: raw, Base: baseOf(raw)}, nil
}

// baseOf truncates a full release string at the first dash. A string with
// no dash is its own base.
func baseOf(full string) string {
	if i := strings.IndexByte(full, '-'); i >= 0 {
		return full[:i]
	}
	return full
}

// pathSafe reports whether s consists only of characters that are inert when
// joined into a path: alphanumerics, dot, underscore, plus, and dash.
func pathSafe(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '.' || c == '_' || c == '+' || c == '-':
		default:
			return false
		}
	}
	return true
}
