package exec

import (
	"strings"
	"testing"
)

func TestShell(t *testing.T) {
	out, err := Shell("echo harness")
	if err != nil {
		t.Fatalf("Shell() unexpected error: %v", err)
	}
	if strings.TrimSpace(out) != "harness" {
		t.Errorf("Shell() output = %q, want %q", out, "harness")
	}
}

func TestShellFailureCarriesOutput(t *testing.T) {
	_, err := Shell("echo broken >&2; exit 3")
	if err == nil {
		t.Fatal("Shell() expected error for non-zero exit")
	}
	if !strings.Contains(err.Error(), "broken") {
		t.Errorf("Shell() error should carry command output, got: %v", err)
	}
}

func TestShellLoggedUsesRunner(t *testing.T) {
	var seen string
	run := func(command string) (string, error) {
		seen = command
		return "", nil
	}

	if err := ShellLogged(run, "ovs-vsctl add-br s1"); err != nil {
		t.Fatalf("ShellLogged() unexpected error: %v", err)
	}
	if seen != "ovs-vsctl add-br s1" {
		t.Errorf("ShellLogged() ran %q", seen)
	}
}
