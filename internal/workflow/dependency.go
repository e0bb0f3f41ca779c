package workflow

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lucasnoah/cihealer/internal/executor"
	"github.com/lucasnoah/cihealer/internal/rules"
	"github.com/lucasnoah/cihealer/internal/verify"
)

// lockArtifacts maps install-class fix commands to the lock file they must
// refresh and the manifest that declares it.
var lockArtifacts = map[string]struct{ lock, manifest string }{
	"pixi install": {lock: "pixi.lock", manifest: "pyproject.toml"},
	"go mod tidy":  {lock: "go.sum", manifest: "go.mod"},
}

// Dependency sequences matcher, executor, and committer for dependency
// issues. Beyond the formatting pipeline it gates install-class commands on
// lockfile freshness, and resolves handler-only matches (suggestions and
// conflict notices) without executing anything.
type Dependency struct {
	rules     *rules.Set
	runner    Runner
	committer CommitUnit
	dir       string
}

// NewDependency creates the dependency fix workflow rooted at dir.
func NewDependency(set *rules.Set, runner Runner, committer CommitUnit, dir string) *Dependency {
	return &Dependency{rules: set, runner: runner, committer: committer, dir: dir}
}

// Probe matches output against the dependency rules without doing any work.
func (w *Dependency) Probe(output string) *rules.Match {
	return w.rules.Match(output)
}

// Process runs the full dependency fix pipeline for one tool output.
func (w *Dependency) Process(output string, opts Options) *Outcome {
	start := time.Now()

	m := w.Probe(output)
	if m == nil {
		return &Outcome{
			Success: false,
			Message: "no dependency issues detected",
			Elapsed: time.Since(start),
		}
	}

	if m.CustomHandler != "" {
		return w.resolveHandler(m, start)
	}

	if opts.DryRun {
		return &Outcome{
			Success:         true,
			Message:         fmt.Sprintf("would execute: %s", m.FixCommand),
			PatternID:       m.PatternID,
			Tool:            m.Tool,
			Severity:        m.Severity,
			CommandExecuted: m.FixCommand,
			Elapsed:         time.Since(start),
		}
	}

	res, err := w.runner.Execute(executor.Request{
		Command: m.FixCommand,
		Env:     executor.ToolEnv(m.Tool),
	})
	if err != nil {
		return w.fail(m, start, fmt.Sprintf("failed to execute dependency fix: %v", err), err)
	}
	if res.ExitCode != 0 {
		out := w.fail(m, start,
			fmt.Sprintf("fix command %q exited with code %d", m.FixCommand, res.ExitCode), nil)
		out.CommandExecuted = res.Command
		out.ErrorDetail = strings.TrimSpace(res.Stderr)
		return out
	}

	// A zero exit is not enough for install-class commands: the lock
	// artifact must exist and be no older than its manifest.
	if err := w.verifyLockArtifact(m.FixCommand); err != nil {
		out := w.fail(m, start, fmt.Sprintf("fix verification failed: %v", err), err)
		out.CommandExecuted = res.Command
		return out
	}

	if opts.CreateCommit && m.RequiresCommit {
		git := w.rules.Document().Git
		commit, err := w.committer.AtomicCommit(verify.CommitOptions{
			MessageTemplate:  m.CommitMessageTemplate,
			Tool:             m.Tool,
			Author:           git.CommitAuthor,
			IncludeFileCount: git.IncludeFileCount,
			VerifySyntax:     opts.VerifySyntax,
		})
		if err != nil {
			var verr *verify.SyntaxVerificationError
			if errors.As(err, &verr) {
				return w.fail(m, start,
					fmt.Sprintf("syntax errors detected after dependency fix: %d file(s)", len(verr.Failed)), err)
			}
			return w.fail(m, start, fmt.Sprintf("git operation failed: %v", err), err)
		}
		if !commit.Success {
			out := w.fail(m, start, fmt.Sprintf("fix applied but commit failed: %s", commit.ErrorMessage), nil)
			out.CommandExecuted = res.Command
			out.Commit = commit
			out.ErrorDetail = commit.ErrorMessage
			return out
		}
		return &Outcome{
			Success:         true,
			Message:         fmt.Sprintf("fixed and committed %s dependency issue", m.Tool),
			PatternID:       m.PatternID,
			Tool:            m.Tool,
			Severity:        m.Severity,
			CommandExecuted: res.Command,
			FilesFixed:      commit.Files,
			Commit:          commit,
			Elapsed:         time.Since(start),
		}
	}

	changed, err := w.committer.ChangedFiles()
	if err != nil {
		return w.fail(m, start, fmt.Sprintf("git operation failed: %v", err), err)
	}
	return &Outcome{
		Success:         true,
		Message:         fmt.Sprintf("applied %s dependency fix without commit", m.Tool),
		PatternID:       m.PatternID,
		Tool:            m.Tool,
		Severity:        m.Severity,
		CommandExecuted: res.Command,
		FilesFixed:      changed,
		Elapsed:         time.Since(start),
	}
}

// resolveHandler terminates a handler-only match without invoking the
// executor or committer. Suggestions succeed; conflict notices fail.
func (w *Dependency) resolveHandler(m *rules.Match, start time.Time) *Outcome {
	out := &Outcome{
		PatternID: m.PatternID,
		Tool:      m.Tool,
		Severity:  m.Severity,
		Message:   m.HandlerMessage,
		Elapsed:   time.Since(start),
	}
	switch m.HandlerAction {
	case rules.ActionSuggest:
		out.Success = true
	case rules.ActionConflict:
		out.Success = false
	default:
		out.Success = false
		out.Message = fmt.Sprintf("unknown handler action for %q", m.CustomHandler)
		out.ErrorDetail = out.Message
	}
	return out
}

// verifyLockArtifact checks lock freshness by comparing file modification
// times. This inherits the original semantics and is a known weak guarantee
// under clock skew or fast successive writes.
func (w *Dependency) verifyLockArtifact(command string) error {
	art, ok := lockArtifacts[strings.TrimSpace(command)]
	if !ok {
		return nil
	}

	lockPath := filepath.Join(w.dir, art.lock)
	lockInfo, err := os.Stat(lockPath)
	if err != nil {
		return fmt.Errorf("lock file %s not found after install", art.lock)
	}

	manifestInfo, err := os.Stat(filepath.Join(w.dir, art.manifest))
	if err != nil {
		// No manifest to compare against; the lock existing is enough.
		return nil
	}
	if lockInfo.ModTime().Before(manifestInfo.ModTime()) {
		return fmt.Errorf("%s appears to still be outdated relative to %s", art.lock, art.manifest)
	}
	return nil
}

func (w *Dependency) fail(m *rules.Match, start time.Time, message string, err error) *Outcome {
	out := &Outcome{
		Success:   false,
		Message:   message,
		PatternID: m.PatternID,
		Tool:      m.Tool,
		Severity:  m.Severity,
		Elapsed:   time.Since(start),
	}
	if err != nil {
		out.ErrorDetail = err.Error()
	}
	return out
}
