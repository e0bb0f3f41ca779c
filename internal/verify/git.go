package verify

import (
	"fmt"
	"os/exec"
	"strings"
)

// GitRunner provides git commands. Interface for testing.
type GitRunner interface {
	Run(dir string, args ...string) (string, error)
}

// ExecGit implements GitRunner using exec.Command.
type ExecGit struct{}

// Run executes git and returns its combined output with trailing newlines
// removed. Leading whitespace is preserved: porcelain status lines encode
// the unstaged column as a leading space.
func (g *ExecGit) Run(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	if dir != "" {
		cmd.Dir = dir
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		return strings.TrimRight(string(out), "\n"), fmt.Errorf("git %s: %s: %w", strings.Join(args, " "), strings.TrimSpace(string(out)), err)
	}
	return strings.TrimRight(string(out), "\n"), nil
}

// GitError reports a failed version-control operation.
type GitError struct {
	Op  string
	Err error
}

func (e *GitError) Error() string {
	return fmt.Sprintf("git %s: %v", e.Op, e.Err)
}

func (e *GitError) Unwrap() error { return e.Err }

// IsRepository reports whether dir is inside a git working tree.
func IsRepository(git GitRunner, dir string) bool {
	_, err := git.Run(dir, "rev-parse", "--git-dir")
	return err == nil
}
