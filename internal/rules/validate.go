package rules

import (
	"fmt"
	"regexp"
)

// ValidationError represents a single validation issue with a rule document.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks a rule document for structural and semantic errors. It
// returns every problem found (empty if valid) and never stops at the first;
// a malformed rule must not prevent the rest from being reported.
func (d *Document) Validate() []ValidationError {
	var errs []ValidationError
	seen := make(map[string]bool)
	d.validateInto(&errs, seen)
	return errs
}

// ValidateAll validates several documents together, additionally enforcing
// that rule identifiers are unique across the whole combined set.
func ValidateAll(docs ...*Document) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]bool)
	for _, d := range docs {
		d.validateInto(&errs, seen)
	}
	return errs
}

func (d *Document) validateInto(errs *[]ValidationError, seenIDs map[string]bool) {
	for _, group := range d.Patterns {
		for i, rule := range group.Rules {
			prefix := fmt.Sprintf("patterns.%s[%d]", group.Name, i)

			if rule.ID == "" {
				*errs = append(*errs, ValidationError{Field: prefix + ".id", Message: "is required"})
			} else if seenIDs[rule.ID] {
				*errs = append(*errs, ValidationError{
					Field:   prefix + ".id",
					Message: fmt.Sprintf("duplicate rule ID %q", rule.ID),
				})
			}
			seenIDs[rule.ID] = true

			for _, req := range []struct{ name, value string }{
				{"name", rule.Name},
				{"pattern", rule.Pattern},
				{"description", rule.Description},
				{"tool", rule.Tool},
				{"commit_message_template", rule.CommitMessageTemplate},
			} {
				if req.value == "" {
					*errs = append(*errs, ValidationError{
						Field:   fmt.Sprintf("%s.%s", prefix, req.name),
						Message: "is required",
					})
				}
			}

			// A rule resolves either through a fix command or a handler.
			if rule.FixCommand == "" && rule.CustomHandler == "" {
				*errs = append(*errs, ValidationError{
					Field:   prefix + ".fix_command",
					Message: "is required unless custom_handler is set",
				})
			}

			if !rule.Severity.Valid() {
				*errs = append(*errs, ValidationError{
					Field:   prefix + ".severity",
					Message: fmt.Sprintf("invalid severity %q (want low|medium|high|critical)", rule.Severity),
				})
			}

			if rule.Pattern != "" {
				if _, err := regexp.Compile("(?ims)" + rule.Pattern); err != nil {
					*errs = append(*errs, ValidationError{
						Field:   prefix + ".pattern",
						Message: fmt.Sprintf("invalid regex: %v", err),
					})
				}
			}

			for j, cg := range rule.CaptureGroups {
				if cg.Index < 1 {
					*errs = append(*errs, ValidationError{
						Field:   fmt.Sprintf("%s.capture_groups[%d].index", prefix, j),
						Message: "must be a positive group index",
					})
				}
				if cg.Name == "" {
					*errs = append(*errs, ValidationError{
						Field:   fmt.Sprintf("%s.capture_groups[%d].name", prefix, j),
						Message: "is required",
					})
				}
			}

			// Unknown handlers must fail at load time, not at fix time.
			if rule.CustomHandler != "" {
				if _, ok := d.CustomHandlers[rule.CustomHandler]; !ok {
					*errs = append(*errs, ValidationError{
						Field:   prefix + ".custom_handler",
						Message: fmt.Sprintf("references undefined handler %q", rule.CustomHandler),
					})
				}
			}
		}
	}

	for name, h := range d.CustomHandlers {
		prefix := fmt.Sprintf("custom_handlers.%s", name)
		if h.Action != ActionSuggest && h.Action != ActionConflict {
			*errs = append(*errs, ValidationError{
				Field:   prefix + ".action",
				Message: fmt.Sprintf("unrecognized action %q (want suggest|conflict)", h.Action),
			})
		}
		if h.MessageTemplate == "" {
			*errs = append(*errs, ValidationError{
				Field:   prefix + ".message_template",
				Message: "is required",
			})
		}
	}
}
