package healer

import (
	"github.com/lucasnoah/cihealer/internal/rules"
	"github.com/lucasnoah/cihealer/internal/workflow"
)

// FixKind tags the variant of a FixDescriptor.
type FixKind string

const (
	FixNone       FixKind = "none"
	FixFormatting FixKind = "formatting"
	FixDependency FixKind = "dependency"
)

// FixDescriptor identifies the fix selected for a failure: which workflow
// owns it plus the matched pattern's identity. Each variant carries exactly
// what its application path needs; the supervisor dispatches on Kind without
// knowing workflow internals.
type FixDescriptor struct {
	Kind      FixKind
	PatternID string
	Tool      string
	Severity  rules.Severity

	owner workflow.Workflow
}

// Analyzer tries each workflow's match-only probe in priority order.
type Analyzer struct {
	formatting workflow.Workflow
	dependency workflow.Workflow
}

// NewAnalyzer creates a dispatch engine over the two workflows. Formatting
// is probed first.
func NewAnalyzer(formatting, dependency workflow.Workflow) *Analyzer {
	return &Analyzer{formatting: formatting, dependency: dependency}
}

// Analyze returns the first applicable fix descriptor for the failure text,
// or the no-op descriptor when nothing matches. No work beyond matching is
// performed.
func (a *Analyzer) Analyze(failureText string) FixDescriptor {
	if m := a.formatting.Probe(failureText); m != nil {
		return descriptorFor(FixFormatting, m, a.formatting)
	}
	if m := a.dependency.Probe(failureText); m != nil {
		return descriptorFor(FixDependency, m, a.dependency)
	}
	return FixDescriptor{Kind: FixNone}
}

func descriptorFor(kind FixKind, m *rules.Match, owner workflow.Workflow) FixDescriptor {
	return FixDescriptor{
		Kind:      kind,
		PatternID: m.PatternID,
		Tool:      m.Tool,
		Severity:  m.Severity,
		owner:     owner,
	}
}
