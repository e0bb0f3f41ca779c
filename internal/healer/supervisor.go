package healer

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/lucasnoah/cihealer/internal/workflow"
)

// BackupDirName holds the recoverability checkpoint written before any
// mutation is attempted.
const BackupDirName = ".cihealer_backup"

// Restorer discards working-tree changes during rollback. Interface for
// testing; verify.Committer satisfies it.
type Restorer interface {
	RestoreAll() error
}

// RunResult is everything a supervisor run produces: the terminal status
// plus the context a caller needs for reporting.
type RunResult struct {
	Status     Status
	AttemptID  string
	Descriptor FixDescriptor
	Outcome    *workflow.Outcome
	Elapsed    time.Duration
}

// Supervisor is the top-level state machine: back up, apply the selected
// fix, and guarantee rollback of the backup marker and working-tree
// restoration on any failure.
type Supervisor struct {
	dir      string
	analyzer *Analyzer
	restorer Restorer
	opts     workflow.Options
}

// NewSupervisor creates a supervisor rooted at the repository dir.
func NewSupervisor(dir string, analyzer *Analyzer, restorer Restorer, opts workflow.Options) *Supervisor {
	return &Supervisor{dir: dir, analyzer: analyzer, restorer: restorer, opts: opts}
}

// Run analyzes the failure text, applies the selected fix, and returns the
// terminal status. A failed application never leaves partial state: the
// backup marker is cleaned up and the tree restored on every failure path.
func (s *Supervisor) Run(failureText string) *RunResult {
	start := time.Now()
	res := &RunResult{AttemptID: uuid.NewString()}

	res.Descriptor = s.analyzer.Analyze(failureText)
	if res.Descriptor.Kind == FixNone {
		res.Status = Status{Healed: false, Error: "no applicable fix found"}
		res.Elapsed = time.Since(start)
		return res
	}

	if err := s.backup(res.AttemptID); err != nil {
		res.Status = Status{Error: fmt.Sprintf("backup failed: %v", err)}
		res.Elapsed = time.Since(start)
		return res
	}

	out := s.apply(res.Descriptor, failureText)
	res.Outcome = out

	switch {
	case out == nil:
		s.rollbackInto(&res.Status)
		res.Status.Error = fmt.Sprintf("unknown fix kind %q", res.Descriptor.Kind)
	case !out.Success:
		s.rollbackInto(&res.Status)
		res.Status.Error = fmt.Sprintf("rollback triggered: %s", out.Message)
	default:
		s.removeBackup()
		res.Status.Healed = true
	}

	res.Elapsed = time.Since(start)
	return res
}

// Rollback undoes an attempt: restores the working tree and removes the
// backup marker. It is idempotent and safe to call when no backup exists.
func (s *Supervisor) Rollback() error {
	if s.restorer != nil {
		if err := s.restorer.RestoreAll(); err != nil {
			// Marker removal still proceeds; a checkpoint must never
			// survive a rollback.
			s.removeBackup()
			return err
		}
	}
	s.removeBackup()
	return nil
}

func (s *Supervisor) apply(desc FixDescriptor, failureText string) *workflow.Outcome {
	switch desc.Kind {
	case FixFormatting, FixDependency:
		return desc.owner.Process(failureText, s.opts)
	default:
		return nil
	}
}

func (s *Supervisor) backup(attemptID string) error {
	dir := filepath.Join(s.dir, BackupDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	marker := fmt.Sprintf("attempt=%s\nstarted=%s\n", attemptID, time.Now().Format(time.RFC3339))
	return os.WriteFile(filepath.Join(dir, "marker"), []byte(marker), 0o644)
}

func (s *Supervisor) rollbackInto(status *Status) {
	status.Rollback = true
	_ = s.Rollback()
}

func (s *Supervisor) removeBackup() {
	_ = os.RemoveAll(filepath.Join(s.dir, BackupDirName))
}
