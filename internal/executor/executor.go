package executor

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

// Result holds the outcome of a single command run. Immutable once produced.
type Result struct {
	Command  string        `json:"command"`
	ExitCode int           `json:"exit_code"`
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	Duration time.Duration `json:"duration"`
	TimedOut bool          `json:"timed_out"`
	Dir      string        `json:"dir"`
}

// Request describes one command to execute.
type Request struct {
	Command string
	Timeout time.Duration     // zero means the executor default
	Dir     string            // empty means the executor default
	Env     map[string]string // appended to the process environment
	// SkipAllowlist disables command safety validation. Only the dry-run
	// path and tests set this; fix commands are always validated.
	SkipAllowlist bool
}

// ValidationError reports a command rejected before any process was spawned.
type ValidationError struct {
	Command string
	Reason  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("command rejected: %s: %q", e.Reason, e.Command)
}

// ExecError reports a process that could not be started.
type ExecError struct {
	Command string
	Err     error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("exec %q: %v", e.Command, e.Err)
}

func (e *ExecError) Unwrap() error { return e.Err }

// TimeoutError reports a process that exceeded its time budget. Result carries
// whatever output was collected before the process group was killed.
type TimeoutError struct {
	Command string
	Timeout time.Duration
	Result  *Result
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("command timed out after %s: %q", e.Timeout, e.Command)
}

const (
	stdoutTruncMarker = "\n[OUTPUT TRUNCATED - SIZE LIMIT EXCEEDED]"
	stderrTruncMarker = "\n[ERROR OUTPUT TRUNCATED - SIZE LIMIT EXCEEDED]"
)

// defaultAllowedTools is the base-executable allow-list for fix commands.
var defaultAllowedTools = map[string]bool{
	"ruff":        true,
	"black":       true,
	"isort":       true,
	"autopep8":    true,
	"yapf":        true,
	"pyupgrade":   true,
	"autoflake":   true,
	"docformatter": true,
	"prettier":    true,
	"eslint":      true,
	"rustfmt":     true,
	"gofmt":       true,
	"goimports":   true,
	"go":          true,
	"pixi":        true,
}

// dangerousPatterns are substrings that disqualify a command outright:
// shell metacharacters, chaining, networking, and destructive operations.
var dangerousPatterns = []string{
	"rm ", "sudo ", "chmod +x", "&&", "||", ";", "|", ">", "<",
	"curl", "wget", "ssh", "scp", "rsync", "$(", "`",
}

// Options configures an Executor. Zero values fall back to defaults.
type Options struct {
	DefaultTimeout time.Duration // default 5m
	MaxOutputBytes int           // per stream, default 10MiB
	Dir            string        // default current directory
	KillGrace      time.Duration // SIGTERM to SIGKILL interval, default 1s
	AllowedTools   []string      // replaces the built-in allow-list when set
}

// Executor runs external fix commands under a time budget, an allow-list,
// and output-size caps. It is safe to create one per pipeline with
// independent policies; there is no shared state between instances.
type Executor struct {
	defaultTimeout time.Duration
	maxOutput      int
	dir            string
	killGrace      time.Duration
	allowed        map[string]bool
}

// New creates an Executor with the given options.
func New(opts Options) *Executor {
	e := &Executor{
		defaultTimeout: opts.DefaultTimeout,
		maxOutput:      opts.MaxOutputBytes,
		dir:            opts.Dir,
		killGrace:      opts.KillGrace,
		allowed:        defaultAllowedTools,
	}
	if e.defaultTimeout <= 0 {
		e.defaultTimeout = 5 * time.Minute
	}
	if e.maxOutput <= 0 {
		e.maxOutput = 10 * 1024 * 1024
	}
	if e.dir == "" {
		e.dir, _ = os.Getwd()
	}
	if e.killGrace <= 0 {
		e.killGrace = time.Second
	}
	if len(opts.AllowedTools) > 0 {
		e.allowed = make(map[string]bool, len(opts.AllowedTools))
		for _, t := range opts.AllowedTools {
			e.allowed[t] = true
		}
	}
	return e
}

// Execute runs a single command and captures its output. Arguments are
// tokenized and passed directly to the executable; no shell interpreter is
// involved. A non-zero exit code is not an error — callers decide what a
// failing exit means. Errors are *ValidationError (rejected before spawn),
// *ExecError (could not start), or *TimeoutError (budget exceeded, with
// partial output in its Result).
func (e *Executor) Execute(req Request) (*Result, error) {
	command := strings.TrimSpace(req.Command)
	if !req.SkipAllowlist {
		if err := e.Validate(command); err != nil {
			return nil, err
		}
	}

	args, err := SplitCommand(command)
	if err != nil {
		return nil, &ValidationError{Command: command, Reason: err.Error()}
	}
	if len(args) == 0 {
		return nil, &ValidationError{Command: command, Reason: "empty command"}
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = e.defaultTimeout
	}
	dir := req.Dir
	if dir == "" {
		dir = e.dir
	}

	cmd := exec.Command(args[0], args[1:]...)
	cmd.Dir = dir
	cmd.Env = os.Environ()
	for k, v := range req.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	// New process group so the whole tree can be killed on timeout.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, &ExecError{Command: command, Err: err}
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	timedOut := false
	var waitErr error
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case waitErr = <-done:
	case <-timer.C:
		timedOut = true
		e.killGroup(cmd.Process.Pid)
		waitErr = <-done
	}

	exitCode := 0
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else if !timedOut {
			return nil, &ExecError{Command: command, Err: waitErr}
		} else {
			exitCode = -1
		}
	}

	res := &Result{
		Command:  command,
		ExitCode: exitCode,
		Stdout:   truncate(stdout.String(), e.maxOutput, stdoutTruncMarker),
		Stderr:   truncate(stderr.String(), e.maxOutput, stderrTruncMarker),
		Duration: time.Since(start),
		TimedOut: timedOut,
		Dir:      dir,
	}

	if timedOut {
		return nil, &TimeoutError{Command: command, Timeout: timeout, Result: res}
	}
	return res, nil
}

// Validate rejects commands containing dangerous patterns or whose base
// executable is not on the allow-list. It never spawns anything.
func (e *Executor) Validate(command string) error {
	lower := strings.ToLower(command)
	for _, pat := range dangerousPatterns {
		if strings.Contains(lower, pat) {
			return &ValidationError{Command: command, Reason: fmt.Sprintf("dangerous pattern %q", pat)}
		}
	}

	args, err := SplitCommand(command)
	if err != nil {
		return &ValidationError{Command: command, Reason: err.Error()}
	}
	if len(args) == 0 {
		return &ValidationError{Command: command, Reason: "empty command"}
	}

	base := filepath.Base(args[0])
	if !e.allowed[base] {
		return &ValidationError{Command: command, Reason: fmt.Sprintf("executable %q not in allow-list", base)}
	}
	return nil
}

// killGroup terminates a process group: SIGTERM first, then SIGKILL after the
// grace interval if the group is still alive.
func (e *Executor) killGroup(pid int) {
	pgid, err := syscall.Getpgid(pid)
	if err != nil {
		// Process already gone.
		return
	}
	_ = syscall.Kill(-pgid, syscall.SIGTERM)
	time.Sleep(e.killGrace)
	_ = syscall.Kill(-pgid, syscall.SIGKILL)
}

func truncate(s string, limit int, marker string) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + marker
}

// SplitCommand tokenizes a command string, honoring single and double quotes.
// It does not perform any shell expansion.
func SplitCommand(command string) ([]string, error) {
	var args []string
	var cur strings.Builder
	inToken := false
	var quote rune

	for _, r := range command {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quote = r
			inToken = true
		case r == ' ' || r == '\t' || r == '\n':
			if inToken {
				args = append(args, cur.String())
				cur.Reset()
				inToken = false
			}
		default:
			cur.WriteRune(r)
			inToken = true
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unbalanced quote in command")
	}
	if inToken {
		args = append(args, cur.String())
	}
	return args, nil
}
