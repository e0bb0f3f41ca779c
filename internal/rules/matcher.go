package rules

import (
	"regexp"
	"strings"
	"sync"
)

// Set matches tool output against the rules of one document.
// Matching is first-match-wins: groups in document order, rules in
// declaration order. Overlapping patterns must be ordered by the rule author.
type Set struct {
	doc *Document

	mu       sync.Mutex
	compiled map[string]*regexp.Regexp
}

// NewSet wraps a loaded document for matching.
func NewSet(doc *Document) *Set {
	return &Set{doc: doc, compiled: make(map[string]*regexp.Regexp)}
}

// Document returns the underlying rule document.
func (s *Set) Document() *Document { return s.doc }

// RuleCount returns the number of rules across all groups.
func (s *Set) RuleCount() int {
	n := 0
	for _, g := range s.doc.Patterns {
		n += len(g.Rules)
	}
	return n
}

// Tools returns the group names in document order.
func (s *Set) Tools() []string {
	out := make([]string, 0, len(s.doc.Patterns))
	for _, g := range s.doc.Patterns {
		out = append(out, g.Name)
	}
	return out
}

// Match returns the first rule whose pattern matches output, or nil.
// Patterns are applied case-insensitively with matches allowed to span
// lines. A rule whose regex does not compile is skipped; it never aborts
// matching of the remaining rules.
func (s *Set) Match(output string) *Match {
	if strings.TrimSpace(output) == "" {
		return nil
	}

	for _, group := range s.doc.Patterns {
		for i := range group.Rules {
			if m := s.tryRule(&group.Rules[i], output); m != nil {
				return m
			}
		}
	}
	return nil
}

func (s *Set) tryRule(rule *Rule, output string) *Match {
	re, err := s.compile(rule.Pattern)
	if err != nil {
		return nil
	}
	sub := re.FindStringSubmatch(output)
	if sub == nil {
		return nil
	}

	captured := make(map[string]string)
	for _, cg := range rule.CaptureGroups {
		if cg.Index >= 1 && cg.Index < len(sub) {
			captured[cg.Name] = sub[cg.Index]
		}
	}

	m := &Match{
		PatternID:             rule.ID,
		Tool:                  rule.Tool,
		FixCommand:            renderTemplate(rule.FixCommand, captured),
		Severity:              rule.Severity,
		RequiresCommit:        rule.RequiresCommit,
		CommitMessageTemplate: rule.CommitMessageTemplate,
		Captured:              captured,
		Output:                output,
	}

	if rule.CustomHandler != "" {
		m.FixCommand = ""
		m.CustomHandler = rule.CustomHandler
		if h, ok := s.doc.CustomHandlers[rule.CustomHandler]; ok {
			m.HandlerAction = h.Action
			m.HandlerMessage = renderTemplate(h.MessageTemplate, captured)
		}
	}
	return m
}

func (s *Set) compile(pattern string) (*regexp.Regexp, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if re, ok := s.compiled[pattern]; ok {
		return re, nil
	}
	re, err := regexp.Compile("(?ims)" + pattern)
	if err != nil {
		return nil, err
	}
	s.compiled[pattern] = re
	return re, nil
}

// renderTemplate substitutes {name} placeholders with captured field values.
// Unknown placeholders are left untouched.
func renderTemplate(tmpl string, fields map[string]string) string {
	if tmpl == "" || len(fields) == 0 {
		return tmpl
	}
	out := tmpl
	for name, value := range fields {
		out = strings.ReplaceAll(out, "{"+name+"}", value)
	}
	return out
}
