package rules

import (
	"strings"
	"testing"
)

func docFromYAML(t *testing.T, src string) *Document {
	t.Helper()
	doc, err := Parse([]byte(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return doc
}

func TestMatch_RuffFixableErrors(t *testing.T) {
	doc, err := BuiltinFormatting()
	if err != nil {
		t.Fatalf("load builtin formatting: %v", err)
	}
	set := NewSet(doc)

	output := "Found 5 errors (3 fixable with the `--fix` option)."
	m := set.Match(output)
	if m == nil {
		t.Fatal("expected a match")
	}
	if m.PatternID != "ruff_fixable_errors" {
		t.Errorf("pattern id = %q", m.PatternID)
	}
	if m.Tool != "ruff" {
		t.Errorf("tool = %q", m.Tool)
	}
	if m.FixCommand != "ruff check --fix ." {
		t.Errorf("fix command = %q", m.FixCommand)
	}
	if m.Captured["error_count"] != "5" {
		t.Errorf("error_count = %q, want 5", m.Captured["error_count"])
	}
	if m.Captured["fixable_count"] != "3" {
		t.Errorf("fixable_count = %q, want 3", m.Captured["fixable_count"])
	}
	if m.Output != output {
		t.Errorf("original output not preserved")
	}
}

func TestMatch_ModuleNotFoundCustomHandler(t *testing.T) {
	doc, err := BuiltinDependencies()
	if err != nil {
		t.Fatalf("load builtin dependencies: %v", err)
	}
	set := NewSet(doc)

	m := set.Match("ModuleNotFoundError: No module named 'requests'")
	if m == nil {
		t.Fatal("expected a match")
	}
	if m.PatternID != "module_not_found_error" {
		t.Errorf("pattern id = %q", m.PatternID)
	}
	if m.FixCommand != "" {
		t.Errorf("custom-handler match should carry no fix command, got %q", m.FixCommand)
	}
	if m.HandlerAction != ActionSuggest {
		t.Errorf("handler action = %q", m.HandlerAction)
	}
	if !strings.Contains(m.HandlerMessage, "pixi add requests") {
		t.Errorf("handler message = %q, want it to mention pixi add requests", m.HandlerMessage)
	}
}

func TestMatch_LockOutdated(t *testing.T) {
	doc, err := BuiltinDependencies()
	if err != nil {
		t.Fatalf("load builtin dependencies: %v", err)
	}
	set := NewSet(doc)

	m := set.Match("The lock file is not up-to-date with pyproject.toml")
	if m == nil {
		t.Fatal("expected a match")
	}
	if m.PatternID != "pixi_lock_outdated" {
		t.Errorf("pattern id = %q", m.PatternID)
	}
	if m.FixCommand != "pixi install" {
		t.Errorf("fix command = %q", m.FixCommand)
	}
	if m.Severity != SeverityHigh {
		t.Errorf("severity = %q", m.Severity)
	}
}

func TestMatch_NoMatchReturnsNil(t *testing.T) {
	doc, err := BuiltinFormatting()
	if err != nil {
		t.Fatalf("load builtin formatting: %v", err)
	}
	set := NewSet(doc)

	if m := set.Match("SyntaxError: invalid syntax"); m != nil {
		t.Errorf("expected nil, got %+v", m)
	}
	if m := set.Match("   \n  "); m != nil {
		t.Errorf("blank input should not match, got %+v", m)
	}
}

func TestMatch_FirstMatchWins(t *testing.T) {
	doc := docFromYAML(t, `
patterns:
  alpha:
    - id: first
      name: First
      pattern: 'needs fixing'
      description: d
      fix_command: "ruff check --fix ."
      tool: ruff
      severity: low
      requires_git_commit: false
      commit_message_template: "style: fix"
    - id: second
      name: Second
      pattern: 'needs'
      description: d
      fix_command: "black ."
      tool: black
      severity: low
      requires_git_commit: false
      commit_message_template: "style: fix"
`)
	set := NewSet(doc)

	m := set.Match("output: code needs fixing now")
	if m == nil {
		t.Fatal("expected a match")
	}
	if m.PatternID != "first" {
		t.Errorf("earlier-declared rule should win, got %q", m.PatternID)
	}
}

func TestMatch_GroupOrderPreserved(t *testing.T) {
	doc := docFromYAML(t, `
patterns:
  zebra:
    - id: zebra_rule
      name: Z
      pattern: 'shared token'
      description: d
      fix_command: "ruff check ."
      tool: ruff
      severity: low
      requires_git_commit: false
      commit_message_template: "style: fix"
  apple:
    - id: apple_rule
      name: A
      pattern: 'shared token'
      description: d
      fix_command: "black ."
      tool: black
      severity: low
      requires_git_commit: false
      commit_message_template: "style: fix"
`)
	set := NewSet(doc)

	m := set.Match("a shared token appears")
	if m == nil {
		t.Fatal("expected a match")
	}
	if m.PatternID != "zebra_rule" {
		t.Errorf("document order should decide, got %q", m.PatternID)
	}
	tools := set.Tools()
	if len(tools) != 2 || tools[0] != "zebra" || tools[1] != "apple" {
		t.Errorf("tools = %v, want document order", tools)
	}
}

func TestMatch_BadRegexSkippedNotFatal(t *testing.T) {
	doc := docFromYAML(t, `
patterns:
  broken:
    - id: bad_regex
      name: Bad
      pattern: '([unclosed'
      description: d
      fix_command: "ruff check ."
      tool: ruff
      severity: low
      requires_git_commit: false
      commit_message_template: "style: fix"
    - id: good_rule
      name: Good
      pattern: 'fixable'
      description: d
      fix_command: "ruff check --fix ."
      tool: ruff
      severity: low
      requires_git_commit: false
      commit_message_template: "style: fix"
`)
	set := NewSet(doc)

	m := set.Match("3 fixable problems")
	if m == nil {
		t.Fatal("matching should survive a bad regex and reach later rules")
	}
	if m.PatternID != "good_rule" {
		t.Errorf("pattern id = %q", m.PatternID)
	}
}

func TestMatch_CaseInsensitiveAcrossLines(t *testing.T) {
	doc := docFromYAML(t, `
patterns:
  ruff:
    - id: spanning
      name: Spanning
      pattern: 'FOUND (\d+) error.*fixable'
      description: d
      fix_command: "ruff check --fix ."
      tool: ruff
      severity: low
      requires_git_commit: false
      commit_message_template: "style: fix"
      capture_groups:
        - index: 1
          name: count
`)
	set := NewSet(doc)

	m := set.Match("found 7 errors\nsome of them are\nFixable automatically")
	if m == nil {
		t.Fatal("expected case-insensitive multi-line match")
	}
	if m.Captured["count"] != "7" {
		t.Errorf("count = %q", m.Captured["count"])
	}
}

func TestMatch_FixCommandTemplateSubstitution(t *testing.T) {
	doc := docFromYAML(t, `
patterns:
  prettier:
    - id: single_file
      name: Single file
      pattern: '\[warn\] (\S+)'
      description: d
      fix_command: "prettier --write {file}"
      tool: prettier
      severity: low
      requires_git_commit: false
      commit_message_template: "style: fix"
      capture_groups:
        - index: 1
          name: file
`)
	set := NewSet(doc)

	m := set.Match("[warn] src/auth.ts")
	if m == nil {
		t.Fatal("expected a match")
	}
	if m.FixCommand != "prettier --write src/auth.ts" {
		t.Errorf("fix command = %q", m.FixCommand)
	}
}
