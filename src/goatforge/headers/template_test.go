package headers

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func renderHook(t *testing.T, engine *Engine) string {
	t.Helper()
	hookPath := filepath.Join(t.TempDir(), "90-goatd-headers.sh")
	if err := NewEmitter(engine).WriteHook(hookPath); err != nil {
		t.Fatalf("WriteHook: %v", err)
	}
	return hookPath
}

func runHook(t *testing.T, hookPath, target string) (int, string) {
	t.Helper()
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	var stderr bytes.Buffer
	cmd := exec.Command(sh, hookPath, target)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if exit, ok := err.(*exec.ExitError); ok {
			return exit.ExitCode(), stderr.String()
		}
		t.Fatalf("running hook: %v", err)
	}
	return 0, stderr.String()
}

func TestRenderedHookShape(t *testing.T) {
	engine := NewEngine()
	script, err := NewEmitter(engine).Render()
	if err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{
		"#!/bin/sh",
		"set -u",
		`SRC_ROOT="/usr/src"`,
		`MODULE_ROOT="/lib/modules"`,
		`RELEASE_FILE="include/config/kernel.release"`,
		"uname -r",
		"VERSION MISMATCH",
		"linux-*goatd*",
	} {
		if !strings.Contains(script, want) {
			t.Errorf("rendered hook missing %q", want)
		}
	}
}

func TestWriteHookExecutable(t *testing.T) {
	hookPath := renderHook(t, NewEngine())
	info, err := os.Stat(hookPath)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm()&0100 == 0 {
		t.Errorf("hook mode = %v, want owner-executable", info.Mode())
	}
}

// P6: for shared fixture sets, the hook's accept/reject decision must equal
// the engine's for every candidate, including which tree gets linked.
func TestHookParityWithEngine(t *testing.T) {
	scenarios := []struct {
		name   string
		trees  map[string]string // dir name suffix -> metadata release
		target string
	}{
		{
			name: "exact beats branded",
			trees: map[string]string{
				"goatd-mainline": "6.19.0",
				"6.18.7-arch1":   "6.18.7-arch1",
			},
			target: "6.18.7-arch1",
		},
		{
			name: "branded with exact metadata wins over lying name",
			trees: map[string]string{
				"6.18.7-arch1":   "6.18.6-arch1",
				"goatd-mainline": "6.18.7-arch1",
			},
			target: "6.18.7-arch1",
		},
		{
			name: "no fuzzy fallback",
			trees: map[string]string{
				"6.18.7":       "6.18.7",
				"6.18.7-arch2": "6.18.7-arch2",
			},
			target: "6.18.7-arch1",
		},
		{
			name: "base directory with full metadata",
			trees: map[string]string{
				"6.18.7": "6.18.7-arch1",
			},
			target: "6.18.7-arch1",
		},
		{
			name: "branded accepted when exact",
			trees: map[string]string{
				"goatd-mainline": "6.19.0-goatd-mainline",
			},
			target: "6.19.0-goatd-mainline",
		},
		{
			name:   "empty source root",
			trees:  map[string]string{},
			target: "6.18.7-arch1",
		},
	}

	for _, sc := range scenarios {
		t.Run(sc.name, func(t *testing.T) {
			srcRoot := t.TempDir()
			moduleRoot := t.TempDir()
			for name, release := range sc.trees {
				makeHeaderTree(t, srcRoot, name, release)
			}

			engine := &Engine{
				Locator:    Locator{SrcRoot: srcRoot},
				ModuleRoot: moduleRoot,
			}
			target := mustParse(t, sc.target)
			enginePath, engineOK := engine.Discover(target)

			hookPath := renderHook(t, engine)
			exitCode, stderr := runHook(t, hookPath, sc.target)

			if engineOK {
				if exitCode != 0 {
					t.Fatalf("engine verified %s but hook exited %d: %s", enginePath, exitCode, stderr)
				}
				link := filepath.Join(moduleRoot, sc.target, "build")
				got, err := os.Readlink(link)
				if err != nil {
					t.Fatalf("hook made no build link: %v", err)
				}
				if got != enginePath {
					t.Errorf("hook linked %s, engine chose %s", got, enginePath)
				}
			} else {
				if exitCode == 0 {
					t.Fatal("engine found nothing but the hook succeeded")
				}
				if !strings.Contains(stderr, "VERSION MISMATCH") {
					t.Errorf("hook stderr missing VERSION MISMATCH tag: %s", stderr)
				}
				if _, err := os.Lstat(filepath.Join(moduleRoot, sc.target, "build")); err == nil {
					t.Error("hook created a link despite finding no verified tree")
				}
			}
		})
	}
}

// Both implementations interpolate the target release into filesystem paths,
// so both must reject path-unsafe release strings before touching anything,
// even when a tree's metadata equals the malicious string.
func TestHookRejectsMalformedTarget(t *testing.T) {
	srcRoot := t.TempDir()
	moduleRoot := t.TempDir()
	makeHeaderTree(t, srcRoot, "evil", "../escape")

	engine := &Engine{Locator: Locator{SrcRoot: srcRoot}, ModuleRoot: moduleRoot}
	hookPath := renderHook(t, engine)

	for _, target := range []string{"../escape", "6.18.7/arch1", "6.18.7 arch1"} {
		t.Run(target, func(t *testing.T) {
			if _, err := Parse(target); err == nil {
				t.Fatalf("Parse(%q) accepted a path-unsafe release", target)
			}
			exitCode, stderr := runHook(t, hookPath, target)
			if exitCode == 0 {
				t.Fatalf("hook accepted malformed target %q", target)
			}
			if !strings.Contains(stderr, "VERSION MISMATCH") {
				t.Errorf("hook stderr missing VERSION MISMATCH tag: %s", stderr)
			}
		})
	}

	// Nothing escaped the module root.
	if _, err := os.Lstat(filepath.Join(moduleRoot, "..", "escape")); err == nil {
		t.Error("hook created an entry outside the module root")
	}
	entries, err := os.ReadDir(moduleRoot)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("module root not empty after rejected targets: %v", entries)
	}
}

// On exhaustion the branding fallback pass reports its own diagnostic before
// the final mismatch error.
func TestHookBrandingFallbackDiagnostic(t *testing.T) {
	srcRoot := t.TempDir()
	moduleRoot := t.TempDir()
	makeHeaderTree(t, srcRoot, "goatd-mainline", "6.19.0")

	engine := &Engine{Locator: Locator{SrcRoot: srcRoot}, ModuleRoot: moduleRoot}
	hookPath := renderHook(t, engine)

	exitCode, stderr := runHook(t, hookPath, "6.18.7-arch1")
	if exitCode == 0 {
		t.Fatal("hook succeeded with no verified tree")
	}
	if !strings.Contains(stderr, "branding fallback exhausted") {
		t.Errorf("hook stderr missing branding fallback diagnostic: %s", stderr)
	}
	if !strings.Contains(stderr, "VERSION MISMATCH") {
		t.Errorf("hook stderr missing VERSION MISMATCH tag: %s", stderr)
	}
}

func TestHookIdempotent(t *testing.T) {
	srcRoot := t.TempDir()
	moduleRoot := t.TempDir()
	verified := makeHeaderTree(t, srcRoot, "6.18.7-arch1", "6.18.7-arch1")

	engine := &Engine{Locator: Locator{SrcRoot: srcRoot}, ModuleRoot: moduleRoot}
	hookPath := renderHook(t, engine)

	for i := 0; i < 2; i++ {
		if exitCode, stderr := runHook(t, hookPath, "6.18.7-arch1"); exitCode != 0 {
			t.Fatalf("run %d exited %d: %s", i, exitCode, stderr)
		}
	}

	for _, name := range []string{"build", "source"} {
		got, err := os.Readlink(filepath.Join(moduleRoot, "6.18.7-arch1", name))
		if err != nil {
			t.Fatal(err)
		}
		if got != verified {
			t.Errorf("%s -> %s, want %s", name, got, verified)
		}
	}
}

func TestHookReplacesStaleLink(t *testing.T) {
	srcRoot := t.TempDir()
	moduleRoot := t.TempDir()
	stale := makeHeaderTree(t, srcRoot, "goatd-mainline", "6.19.0")
	verified := makeHeaderTree(t, srcRoot, "6.18.7-arch1", "6.18.7-arch1")

	moduleDir := filepath.Join(moduleRoot, "6.18.7-arch1")
	if err := os.MkdirAll(moduleDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(stale, filepath.Join(moduleDir, "build")); err != nil {
		t.Fatal(err)
	}

	engine := &Engine{Locator: Locator{SrcRoot: srcRoot}, ModuleRoot: moduleRoot}
	hookPath := renderHook(t, engine)
	if exitCode, stderr := runHook(t, hookPath, "6.18.7-arch1"); exitCode != 0 {
		t.Fatalf("hook exited %d: %s", exitCode, stderr)
	}

	got, err := os.Readlink(filepath.Join(moduleDir, "build"))
	if err != nil {
		t.Fatal(err)
	}
	if got != verified {
		t.Errorf("build -> %s, want stale link replaced by %s", got, verified)
	}
}
