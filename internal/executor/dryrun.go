package executor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DryRunCommand derives a non-destructive form of a fix command by
// tool-specific rewriting: check/diff flags are appended, apply flags are
// stripped. The rewritten command is returned without being executed.
func DryRunCommand(command string) (string, error) {
	args, err := SplitCommand(command)
	if err != nil {
		return "", err
	}
	if len(args) == 0 {
		return "", fmt.Errorf("empty command")
	}

	switch filepath.Base(args[0]) {
	case "black":
		args = ensureFlags(args, "--check", "--diff")
	case "ruff":
		args = dropFlag(args, "--fix")
	case "isort":
		args = ensureFlags(args, "--check-only", "--diff")
	case "gofmt":
		args = replaceFlag(args, "-w", "-l")
	case "prettier":
		args = replaceFlag(args, "--write", "--check")
	}
	return strings.Join(args, " "), nil
}

// ExecuteDryRun rewrites a command into its dry-run form and runs it.
func (e *Executor) ExecuteDryRun(req Request) (*Result, error) {
	rewritten, err := DryRunCommand(req.Command)
	if err != nil {
		return nil, &ValidationError{Command: req.Command, Reason: err.Error()}
	}
	req.Command = rewritten
	return e.Execute(req)
}

// ToolEnv returns environment hints for a tool. These tune caches and prompts
// without changing fix semantics.
func ToolEnv(tool string) map[string]string {
	switch tool {
	case "ruff":
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		return map[string]string{"RUFF_CACHE_DIR": filepath.Join(home, ".cache", "ruff")}
	case "isort":
		return map[string]string{"ISORT_QUIET": "1"}
	default:
		return nil
	}
}

func ensureFlags(args []string, flags ...string) []string {
	for _, f := range flags {
		found := false
		for _, a := range args {
			if a == f {
				found = true
				break
			}
		}
		if !found {
			args = append(args, f)
		}
	}
	return args
}

func dropFlag(args []string, flag string) []string {
	out := args[:0:0]
	for _, a := range args {
		if a != flag {
			out = append(out, a)
		}
	}
	return out
}

func replaceFlag(args []string, from, to string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		if a == from {
			out[i] = to
		} else {
			out[i] = a
		}
	}
	return out
}
