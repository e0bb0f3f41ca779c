package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/lucasnoah/cihealer/internal/rules"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect and validate fix rules",
}

var rulesValidateCmd = &cobra.Command{
	Use:   "validate [rule-files...]",
	Short: "Validate rule files (the built-ins when no files are given)",
	RunE: func(cmd *cobra.Command, args []string) error {
		docs, err := loadRuleDocs(args)
		if err != nil {
			return err
		}

		errs := rules.ValidateAll(docs...)
		w := cmd.OutOrStdout()
		if len(errs) == 0 {
			fmt.Fprintln(w, color.New(color.FgGreen).Sprint("all rules valid"))
			return nil
		}
		for _, e := range errs {
			fmt.Fprintf(w, "%s %s\n", color.New(color.FgRed).Sprint("invalid:"), e.Error())
		}
		cmd.SilenceUsage = true
		return fmt.Errorf("%d validation error(s)", len(errs))
	},
}

var rulesListCmd = &cobra.Command{
	Use:   "list [rule-files...]",
	Short: "List rules in match order",
	RunE: func(cmd *cobra.Command, args []string) error {
		docs, err := loadRuleDocs(args)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		for _, doc := range docs {
			for _, group := range doc.Patterns {
				fmt.Fprintf(w, "%s:\n", group.Name)
				for _, r := range group.Rules {
					action := r.FixCommand
					if r.CustomHandler != "" {
						action = "handler " + r.CustomHandler
					}
					fmt.Fprintf(w, "  %-28s %-8s %s\n", r.ID, r.Severity, action)
				}
			}
		}
		return nil
	},
}

func init() {
	rulesCmd.AddCommand(rulesValidateCmd)
	rulesCmd.AddCommand(rulesListCmd)
}

// loadRuleDocs loads the given rule files, or both built-in documents when
// no paths are supplied.
func loadRuleDocs(paths []string) ([]*rules.Document, error) {
	if len(paths) == 0 {
		formatting, err := rules.BuiltinFormatting()
		if err != nil {
			return nil, fmt.Errorf("load formatting rules: %w", err)
		}
		dependencies, err := rules.BuiltinDependencies()
		if err != nil {
			return nil, fmt.Errorf("load dependency rules: %w", err)
		}
		return []*rules.Document{formatting, dependencies}, nil
	}

	var docs []*rules.Document
	for _, path := range paths {
		doc, err := rules.Load(path)
		if err != nil {
			return nil, fmt.Errorf("load rules %s: %w", path, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
