package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ferroterm/ferroterm/internal/version"
)

func TestRootCmd_Version(t *testing.T) {
	cmd := NewRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetArgs([]string{"version"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("version: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != version.DisplayVersion() {
		t.Errorf("version output = %q, want %q", got, version.DisplayVersion())
	}
}

func TestRootCmd_ModelsListWithNoConfig(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cmd := NewRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetArgs([]string{"models", "list"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("models list: %v", err)
	}
	if !strings.Contains(out.String(), "no models configured") {
		t.Errorf("output = %q, want it to mention no models configured", out.String())
	}
}

func TestRootCmd_KeysCheckWithNoConfig(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cmd := NewRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetArgs([]string{"keys", "check"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("keys check: %v", err)
	}
}

func TestRootCmd_RenderPreview(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cmd := NewRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetArgs([]string{"render", "--title", "demo", "--body", "hello", "--width", "40"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out.String(), "demo") || !strings.Contains(out.String(), "hello") {
		t.Errorf("output = %q, want it to contain title and body", out.String())
	}
}

func TestRootCmd_CommandTree(t *testing.T) {
	cmd := NewRootCmd()
	want := []string{"run", "models", "render", "keys", "version"}
	for _, name := range want {
		found := false
		for _, c := range cmd.Commands() {
			if c.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("root command tree missing %q", name)
		}
	}
}
