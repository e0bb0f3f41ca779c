package rules

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Severity classifies how urgent a matched issue is.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Valid reports whether s is one of the enumerated severities.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// HandlerAction is what a custom handler does instead of running a command.
type HandlerAction string

const (
	// ActionSuggest resolves to an advisory message and a successful outcome.
	ActionSuggest HandlerAction = "suggest"
	// ActionConflict resolves to an explanatory message and a failed outcome.
	ActionConflict HandlerAction = "conflict"
)

// CaptureGroup binds a regex capture group index to a named field.
type CaptureGroup struct {
	Index int    `yaml:"index"`
	Name  string `yaml:"name"`
}

// Rule is one declarative fix pattern.
type Rule struct {
	ID                    string         `yaml:"id"`
	Name                  string         `yaml:"name"`
	Pattern               string         `yaml:"pattern"`
	Description           string         `yaml:"description"`
	FixCommand            string         `yaml:"fix_command"`
	Tool                  string         `yaml:"tool"`
	Severity              Severity       `yaml:"severity"`
	RequiresCommit        bool           `yaml:"requires_git_commit"`
	CommitMessageTemplate string         `yaml:"commit_message_template"`
	CaptureGroups         []CaptureGroup `yaml:"capture_groups"`
	CustomHandler         string         `yaml:"custom_handler"`
}

// Handler resolves a match without a literal fix command.
type Handler struct {
	Action          HandlerAction `yaml:"action"`
	MessageTemplate string        `yaml:"message_template"`
}

// Group is the ordered list of rules owned by one tool or category.
type Group struct {
	Name  string
	Rules []Rule
}

// Groups preserves the document order of rule groups. Plain map decoding
// would lose it, and first-match-wins depends on it.
type Groups []Group

// UnmarshalYAML decodes a mapping node into an ordered slice of groups.
func (g *Groups) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("patterns: expected a mapping, got %v", node.Kind)
	}
	out := make(Groups, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var name string
		if err := node.Content[i].Decode(&name); err != nil {
			return fmt.Errorf("patterns: decoding group name: %w", err)
		}
		var list []Rule
		if err := node.Content[i+1].Decode(&list); err != nil {
			return fmt.Errorf("patterns.%s: %w", name, err)
		}
		out = append(out, Group{Name: name, Rules: list})
	}
	*g = out
	return nil
}

// EngineConfig carries engine-level toggles declared alongside the rules.
type EngineConfig struct {
	TimeoutSeconds        int      `yaml:"timeout_seconds"`
	MaxOutputSizeMB       int      `yaml:"max_output_size_mb"`
	BackupBeforeFix       bool     `yaml:"backup_before_fix"`
	VerifySyntaxAfterFix  bool     `yaml:"verify_syntax_after_fix"`
	AllowedFileExtensions []string `yaml:"allowed_file_extensions"`
	ExcludePatterns       []string `yaml:"exclude_patterns"`
}

// GitConfig carries commit defaults declared alongside the rules.
type GitConfig struct {
	CreateCommit     bool   `yaml:"create_commit"`
	CommitAuthor     string `yaml:"commit_author"`
	CommitPrefix     string `yaml:"commit_prefix"`
	IncludeFileCount bool   `yaml:"include_file_count"`
}

// Document is one declarative rule file: ordered pattern groups, the handler
// table, and the engine/git blocks.
type Document struct {
	Patterns       Groups             `yaml:"patterns"`
	CustomHandlers map[string]Handler `yaml:"custom_handlers"`
	Engine         EngineConfig       `yaml:"engine_config"`
	Git            GitConfig          `yaml:"git_config"`
}

// Match is the outcome of a successful pattern match. Constructed per match
// attempt and consumed immediately; never persisted.
type Match struct {
	PatternID             string
	Tool                  string
	FixCommand            string
	Severity              Severity
	RequiresCommit        bool
	CommitMessageTemplate string
	Captured              map[string]string
	CustomHandler         string
	HandlerAction         HandlerAction
	HandlerMessage        string
	Output                string
}
