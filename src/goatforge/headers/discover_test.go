package headers

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	charmlog "github.com/charmbracelet/log"
	apperrors "github.com/goatd/goatforge/src/common/errors"
	"github.com/goatd/goatforge/src/common/logs"
)

func testEngine(srcRoot string) *Engine {
	return &Engine{Locator: Locator{SrcRoot: srcRoot}}
}

func mustParse(t *testing.T, raw string) Version {
	t.Helper()
	v, err := Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	return v
}

// The concrete scenario: a branded tree with the wrong release and a plain
// tree with the exact release. The exact tree must win, and the branded tree
// must never be chosen, regardless of naming or enumeration order.
func TestDiscoverExactness(t *testing.T) {
	srcRoot := t.TempDir()
	makeHeaderTree(t, srcRoot, "goatd-mainline", "6.19.0")
	want := makeHeaderTree(t, srcRoot, "6.18.7-arch1", "6.18.7-arch1")

	engine := testEngine(srcRoot)
	got, ok := engine.Discover(mustParse(t, "6.18.7-arch1"))
	if !ok {
		t.Fatal("discovery failed, want verified path")
	}
	if got != want {
		t.Errorf("Discover = %s, want %s", got, want)
	}
}

// A directory whose name claims the right version but whose metadata
// disagrees must lose to a differently named directory whose metadata is
// exact.
func TestDiscoverNameIsNeverTrusted(t *testing.T) {
	srcRoot := t.TempDir()
	makeHeaderTree(t, srcRoot, "6.18.7-arch1", "6.18.6-arch1") // lying name
	want := makeHeaderTree(t, srcRoot, "goatd-mainline", "6.18.7-arch1")

	engine := testEngine(srcRoot)
	got, ok := engine.Discover(mustParse(t, "6.18.7-arch1"))
	if !ok {
		t.Fatal("discovery failed, want branded tree with exact metadata")
	}
	if got != want {
		t.Errorf("Discover = %s, want %s", got, want)
	}
}

// No fuzzy fallback: a name containing the base version is worthless without
// exact metadata.
func TestDiscoverNoFuzzyFallback(t *testing.T) {
	srcRoot := t.TempDir()
	makeHeaderTree(t, srcRoot, "6.18.7", "6.18.7")              // base only
	makeHeaderTree(t, srcRoot, "6.18.7-arch2", "6.18.7-arch2") // near miss
	makeHeaderTree(t, srcRoot, "goatd-mainline", "6.19.0")

	engine := testEngine(srcRoot)
	if got, ok := engine.Discover(mustParse(t, "6.18.7-arch1")); ok {
		t.Errorf("Discover = %s, want no result", got)
	}
}

// The base-named directory is accepted only when its metadata carries the
// full target release (a tree built for the suffix-less release).
func TestDiscoverBaseDirectoryNeedsExactMetadata(t *testing.T) {
	srcRoot := t.TempDir()
	dir := makeHeaderTree(t, srcRoot, "6.18.7", "6.18.7-arch1")

	engine := testEngine(srcRoot)
	got, ok := engine.Discover(mustParse(t, "6.18.7-arch1"))
	if !ok || got != dir {
		t.Errorf("Discover = %s, %v; want %s via base-version strategy", got, ok, dir)
	}
}

func TestDiscoverIdempotent(t *testing.T) {
	srcRoot := t.TempDir()
	makeHeaderTree(t, srcRoot, "6.18.7-arch1", "6.18.7-arch1")
	makeHeaderTree(t, srcRoot, "goatd-mainline", "6.19.0")

	engine := testEngine(srcRoot)
	target := mustParse(t, "6.18.7-arch1")

	first, ok1 := engine.Discover(target)
	second, ok2 := engine.Discover(target)
	if ok1 != ok2 || first != second {
		t.Errorf("repeated discovery diverged: (%s, %v) vs (%s, %v)", first, ok1, second, ok2)
	}
}

func TestDiscoverEmptySrcRoot(t *testing.T) {
	engine := testEngine(filepath.Join(t.TempDir(), "missing"))
	if got, ok := engine.Discover(mustParse(t, "6.18.7-arch1")); ok {
		t.Errorf("Discover = %s, want no result for missing source root", got)
	}
}

func TestDiscoverBrandedAcceptedWhenExact(t *testing.T) {
	srcRoot := t.TempDir()
	want := makeHeaderTree(t, srcRoot, "goatd-mainline", "6.19.0-goatd-mainline")

	engine := testEngine(srcRoot)
	got, ok := engine.Discover(mustParse(t, "6.19.0-goatd-mainline"))
	if !ok || got != want {
		t.Errorf("Discover = %s, %v; want %s", got, ok, want)
	}
}

// The branding fallback applies no relaxed rule; its one contribution over
// the strict scan is a distinct diagnostic when it too comes up empty.
func TestDiscoverBrandingFallbackDiagnostic(t *testing.T) {
	srcRoot := t.TempDir()
	makeHeaderTree(t, srcRoot, "goatd-mainline", "6.19.0")

	var buf bytes.Buffer
	SetLogger(&logs.Logger{Logger: charmlog.NewWithOptions(&buf, charmlog.Options{Level: charmlog.DebugLevel})})
	defer SetLogger(logs.NewDefault())

	engine := testEngine(srcRoot)
	if got, ok := engine.Discover(mustParse(t, "6.18.7-arch1")); ok {
		t.Fatalf("Discover = %s, want no result", got)
	}
	if !strings.Contains(buf.String(), "branding fallback exhausted") {
		t.Errorf("log output missing branding fallback diagnostic:\n%s", buf.String())
	}
}

func TestDiscoverKernelHeadersMalformedVersion(t *testing.T) {
	_, err := DiscoverKernelHeaders("../../etc")
	if !apperrors.Is(err, apperrors.ErrMalformedVersion) {
		t.Errorf("error = %v, want ErrMalformedVersion", err)
	}
}

func TestModuleDir(t *testing.T) {
	engine := &Engine{ModuleRoot: "/lib/modules"}
	got := engine.ModuleDir(mustParse(t, "6.18.7-arch1"))
	if got != "/lib/modules/6.18.7-arch1" {
		t.Errorf("ModuleDir = %s", got)
	}
}
