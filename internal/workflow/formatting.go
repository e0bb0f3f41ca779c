package workflow

import (
	"errors"
	"fmt"
	"time"

	"github.com/lucasnoah/cihealer/internal/executor"
	"github.com/lucasnoah/cihealer/internal/rules"
	"github.com/lucasnoah/cihealer/internal/verify"
)

// Runner is the subset of the executor the workflows need. Interface for
// testing.
type Runner interface {
	Execute(req executor.Request) (*executor.Result, error)
	ExecuteDryRun(req executor.Request) (*executor.Result, error)
}

// CommitUnit is the subset of the verification and commit unit the workflows
// need. Interface for testing.
type CommitUnit interface {
	AtomicCommit(opts verify.CommitOptions) (*verify.CommitResult, error)
	ChangedFiles() ([]string, error)
}

// Formatting sequences matcher, executor, and committer for formatting
// issues: match the tool output, run the declared fix command, syntax-check
// the changed files, and commit atomically.
type Formatting struct {
	rules     *rules.Set
	runner    Runner
	committer CommitUnit
}

// NewFormatting creates the formatting fix workflow.
func NewFormatting(set *rules.Set, runner Runner, committer CommitUnit) *Formatting {
	return &Formatting{rules: set, runner: runner, committer: committer}
}

// Probe matches output against the formatting rules without doing any work.
func (w *Formatting) Probe(output string) *rules.Match {
	return w.rules.Match(output)
}

// Process runs the full formatting fix pipeline for one tool output.
func (w *Formatting) Process(output string, opts Options) *Outcome {
	start := time.Now()

	m := w.Probe(output)
	if m == nil {
		return &Outcome{
			Success: false,
			Message: "no fixable formatting issues detected",
			Elapsed: time.Since(start),
		}
	}

	if opts.DryRun {
		res, err := w.runner.ExecuteDryRun(executor.Request{
			Command: m.FixCommand,
			Env:     executor.ToolEnv(m.Tool),
		})
		if err != nil {
			return w.fail(m, start, fmt.Sprintf("dry run failed for %s", m.Tool), err)
		}
		return &Outcome{
			Success:         true,
			Message:         fmt.Sprintf("dry run completed for %s", m.Tool),
			PatternID:       m.PatternID,
			Tool:            m.Tool,
			Severity:        m.Severity,
			CommandExecuted: res.Command,
			Elapsed:         time.Since(start),
		}
	}

	res, err := w.runner.Execute(executor.Request{
		Command: m.FixCommand,
		Env:     executor.ToolEnv(m.Tool),
	})
	if err != nil {
		return w.fail(m, start, fmt.Sprintf("failed to execute formatting command: %v", err), err)
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
					fmt.Sprintf("syntax errors detected after formatting fix: %d file(s)", len(verr.Failed)), err)
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
			Message:         fmt.Sprintf("fixed and committed %s formatting issues", m.Tool),
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
		Message:         fmt.Sprintf("applied %s formatting fixes without commit", m.Tool),
		PatternID:       m.PatternID,
		Tool:            m.Tool,
		Severity:        m.Severity,
		CommandExecuted: res.Command,
		FilesFixed:      changed,
		Elapsed:         time.Since(start),
	}
}

func (w *Formatting) fail(m *rules.Match, start time.Time, message string, err error) *Outcome {
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
