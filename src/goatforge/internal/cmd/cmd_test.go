package cmd

import (
	"testing"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	expected := []string{"version", "headers", "hook", "build", "history"}

	commands := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		commands[cmd.Name()] = true
	}

	for _, name := range expected {
		if !commands[name] {
			t.Errorf("expected subcommand %q not found on root", name)
		}
	}
}

func TestHeadersCommand_HasSubcommands(t *testing.T) {
	expected := []string{"discover", "link", "wait"}

	commands := make(map[string]bool)
	for _, cmd := range headersCmd.Commands() {
		commands[cmd.Name()] = true
	}

	for _, name := range expected {
		if !commands[name] {
			t.Errorf("expected headers subcommand %q not found", name)
		}
	}
}

func TestRunningKernelRelease(t *testing.T) {
	release, err := runningKernelRelease()
	if err != nil {
		t.Fatalf("runningKernelRelease: %v", err)
	}
	if release == "" {
		t.Error("running kernel release is empty")
	}
}
