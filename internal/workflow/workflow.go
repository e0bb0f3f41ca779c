package workflow

import (
	"time"

	"github.com/lucasnoah/cihealer/internal/rules"
	"github.com/lucasnoah/cihealer/internal/verify"
)

// Outcome is the unit returned to every caller of a workflow. It is never
// partially filled: every field reachable from Success is consistent with it.
type Outcome struct {
	Success         bool
	Message         string
	PatternID       string
	Tool            string
	Severity        rules.Severity
	CommandExecuted string
	FilesFixed      []string
	Commit          *verify.CommitResult
	Elapsed         time.Duration
	ErrorDetail     string
}

// Options controls how a workflow run behaves.
type Options struct {
	DryRun       bool
	VerifySyntax bool
	CreateCommit bool
}

// Workflow is one fix pipeline for a single category of issue. Probe matches
// without mutating anything; Process runs the full match, execute, verify,
// commit sequence. Process never returns an error — every failure kind is
// normalized into the Outcome.
type Workflow interface {
	Probe(output string) *rules.Match
	Process(output string, opts Options) *Outcome
}

// ProcessAll runs a workflow over several outputs sequentially, continuing
// past individual failures.
func ProcessAll(w Workflow, outputs []string, opts Options) []*Outcome {
	results := make([]*Outcome, 0, len(outputs))
	for _, out := range outputs {
		results = append(results, w.Process(out, opts))
	}
	return results
}
