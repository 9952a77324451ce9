package headers

import (
	"os"
	"strings"
	"text/template"

	apperrors "github.com/goatd/goatforge/src/common/errors"
)

// hookScript is the shell mirror of Discover and EnsureSymlinks, executed by
// the package manager's post-install hook when no goatforge binary is
// available. It must make the same accept/reject decision as the engine for
// any candidate set: same strategy order, same metadata-exact acceptance,
// same atomic replace, same post-link verification. The parity tests in
// template_test.go run both implementations against shared fixtures.
//
// Requires GNU coreutils (mv -T) as shipped on the target distribution.
const hookScript = `#!/bin/sh
# Kernel header link hook generated by goatforge; do not edit.
# Regenerate with: goatforge hook emit
#
# Resolves the header tree for the target kernel release and points
# {{.ModuleRoot}}/<release>/build and .../source at it. A tree is accepted
# only when its release metadata equals the target release exactly; on
# exhaustion nothing is linked and the hook exits non-zero.
set -u
LC_ALL=C
export LC_ALL

SRC_ROOT="{{.SrcRoot}}"
MODULE_ROOT="{{.ModuleRoot}}"
RELEASE_FILE="{{.ReleaseFile}}"

target="${1:-$(uname -r)}"

# The target is interpolated into paths below; reject anything outside the
# release-string alphabet and any parent directory reference, the same rule
# the engine applies when parsing a version.
case "$target" in
""|*[!A-Za-z0-9._+-]*|*..*)
	echo "goatforge-hook: VERSION MISMATCH: malformed target release '$target'" >&2
	exit 1
	;;
esac

base="${target%%-*}"

# Exact comparison against the tree's release metadata, trimmed of trailing
# whitespace. The one and only acceptance check.
matches() {
	[ -f "$1/$RELEASE_FILE" ] || return 1
	rel=$(cat "$1/$RELEASE_FILE" 2>/dev/null) || return 1
	rel="${rel%"${rel##*[![:space:]]}"}"
	[ "$rel" = "$target" ]
}

# Branded names are deprioritized during the scan, never rejected or
# accepted by name.
is_branded() {
	case "${1##*/}" in
{{- range .BrandMarkers}}
	linux-*{{.}}*) return 0 ;;
{{- end}}
	esac
	return 1
}

verified=""

# Strategies 1 and 2: exact-name directory, then base-version directory.
# Presence alone is never sufficient.
for dir in "$SRC_ROOT/linux-$target" "$SRC_ROOT/linux-$base"; do
	[ -d "$dir" ] || continue
	if matches "$dir"; then
		verified="$dir"
		break
	fi
done

# Strategy 3: strict scan, non-branded names first, branded last (glob
# expansion under LC_ALL=C is lexically sorted). Strategy 4: branding
# fallback, re-scanning the branded subset with the same acceptance rule.
if [ -z "$verified" ]; then
	for pass in plain branded fallback; do
		for dir in "$SRC_ROOT"/linux-*; do
			[ -d "$dir" ] || continue
			case "$pass" in
			plain) is_branded "$dir" && continue ;;
			*) is_branded "$dir" || continue ;;
			esac
			if matches "$dir"; then
				verified="$dir"
				break
			fi
		done
		if [ -n "$verified" ]; then
			break
		fi
		if [ "$pass" = fallback ]; then
			echo "goatforge-hook: branding fallback exhausted for $target" >&2
		fi
	done
fi

if [ -z "$verified" ]; then
	echo "goatforge-hook: VERSION MISMATCH: no verified header tree for $target under $SRC_ROOT" >&2
	exit 1
fi

module_dir="$MODULE_ROOT/$target"
mkdir -p "$module_dir" || exit 1

for name in build source; do
	link="$module_dir/$name"
	current=$(readlink "$link" 2>/dev/null) || current=""
	case "$current" in
	""|/*) ;;
	*) current="$module_dir/$current" ;;
	esac
	[ "$current" = "$verified" ] && continue
	if [ -n "$current" ] && matches "$current"; then
		continue
	fi
	if [ -n "$current" ]; then
		echo "goatforge-hook: replacing stale $name link ($current)" >&2
	fi
	tmp="$link.tmp.$$"
	rm -f "$tmp"
	if ! ln -s "$verified" "$tmp"; then
		echo "goatforge-hook: failed to create $tmp" >&2
		exit 1
	fi
	if ! matches "$tmp"; then
		rm -f "$tmp"
		echo "goatforge-hook: VERSION MISMATCH: $verified changed while linking $name" >&2
		exit 1
	fi
	if ! mv -T "$tmp" "$link"; then
		rm -f "$tmp"
		echo "goatforge-hook: failed to replace $link" >&2
		exit 1
	fi
done

# Post-link verification through the live links.
for name in build source; do
	if ! matches "$module_dir/$name"; then
		echo "goatforge-hook: VERSION MISMATCH: post-link verification failed for $module_dir/$name" >&2
		exit 1
	fi
done

echo "goatforge-hook: linked $module_dir/{build,source} -> $verified"
`

var hookTemplate = template.Must(template.New("hook").Parse(hookScript))

// Emitter renders the post-install shell hook for an engine configuration.
type Emitter struct {
	engine *Engine
}

// NewEmitter creates an emitter bound to engine's filesystem conventions.
func NewEmitter(engine *Engine) *Emitter {
	return &Emitter{engine: engine}
}

// Render produces the hook script text.
func (e *Emitter) Render() (string, error) {
	var sb strings.Builder
	err := hookTemplate.Execute(&sb, struct {
		SrcRoot      string
		ModuleRoot   string
		ReleaseFile  string
		BrandMarkers []string
	}{
		SrcRoot:      e.engine.SrcRoot,
		ModuleRoot:   e.engine.moduleRoot(),
		ReleaseFile:  e.engine.releaseFile(),
		BrandMarkers: e.engine.brandMarkers(),
	})
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.DomainHeaders, "hook_render_failed",
			apperrors.ExitFailure, "rendering post-install hook")
	}
	return sb.String(), nil
}

// WriteHook renders the hook script and writes it executable at path.
func (e *Emitter) WriteHook(path string) error {
	script, err := e.Render()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		return apperrors.Wrap(err, apperrors.DomainHeaders, "hook_write_failed",
			apperrors.ExitFailure, "writing post-install hook")
	}
	return nil
}
