package headers

import (
	"context"
	"testing"
	"time"

	apperrors "github.com/goatd/goatforge/src/common/errors"
)

func TestWaitReturnsImmediatelyWhenPresent(t *testing.T) {
	srcRoot := t.TempDir()
	want := makeHeaderTree(t, srcRoot, "6.18.7-arch1", "6.18.7-arch1")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	got, err := Wait(ctx, testEngine(srcRoot), mustParse(t, "6.18.7-arch1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Errorf("Wait = %s, want %s", got, want)
	}
}

func TestWaitSeesLateInstall(t *testing.T) {
	srcRoot := t.TempDir()
	makeHeaderTree(t, srcRoot, "goatd-mainline", "6.19.0")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	done := make(chan struct{})
	var got string
	var waitErr error
	go func() {
		defer close(done)
		got, waitErr = Wait(ctx, testEngine(srcRoot), mustParse(t, "6.18.7-arch1"))
	}()

	// Give the watcher time to arm, then install the matching tree.
	time.Sleep(200 * time.Millisecond)
	want := makeHeaderTree(t, srcRoot, "6.18.7-arch1", "6.18.7-arch1")

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("Wait did not observe the installed header tree")
	}
	if waitErr != nil {
		t.Fatalf("unexpected error: %v", waitErr)
	}
	if got != want {
		t.Errorf("Wait = %s, want %s", got, want)
	}
}

func TestWaitTimesOut(t *testing.T) {
	srcRoot := t.TempDir()

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	_, err := Wait(ctx, testEngine(srcRoot), mustParse(t, "6.18.7-arch1"))
	if !apperrors.Is(err, apperrors.ErrNoVerifiedHeaders) {
		t.Errorf("error = %v, want ErrNoVerifiedHeaders", err)
	}
}
