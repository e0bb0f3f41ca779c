package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lucasnoah/cihealer/internal/healer"
)

func TestHealHelp_DocumentsRulesFlagScope(t *testing.T) {
	out, err := executeCommand("heal", "--help")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "merged into the formatting rule set") {
		t.Errorf("--rules help should state which set extra files extend, got: %s", out)
	}
}

func TestHealCommand_RequiresGitRepo(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "ci.log")
	if err := os.WriteFile(logPath, []byte("Found 5 errors (3 fixable with the --fix option)"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := executeCommand("heal", "--dir", dir, "--no-db", logPath)
	if err == nil || !strings.Contains(err.Error(), "not a git repository") {
		t.Errorf("err = %v, want git repository error", err)
	}
}

func TestHealCommand_NoMatchWritesStatus(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "ci.log")
	if err := os.WriteFile(logPath, []byte("all checks passed"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := executeCommand("heal", "--dir", dir, "--no-db", "--no-commit", logPath)
	if err != nil {
		t.Fatalf("unmatched output must not be an error: %v", err)
	}
	if !strings.Contains(out, "SKIPPED") {
		t.Errorf("output = %q", out)
	}

	data, err := os.ReadFile(filepath.Join(dir, healer.StatusFileName))
	if err != nil {
		t.Fatalf("status file missing: %v", err)
	}
	status := string(data)
	if !strings.Contains(status, "healed=false") || !strings.Contains(status, "rollback=false") {
		t.Errorf("status file = %q", status)
	}
}

func TestHealCommand_DryRunWritesNoStatus(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "ci.log")
	if err := os.WriteFile(logPath, []byte("nothing recognizable here"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := executeCommand("heal", "--dir", dir, "--dry-run", "--no-db", "--no-commit", logPath); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, healer.StatusFileName)); !os.IsNotExist(err) {
		t.Error("dry run must not write the status file")
	}
}
