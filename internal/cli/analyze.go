package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/lucasnoah/cihealer/internal/healer"
	"github.com/lucasnoah/cihealer/internal/rules"
	"github.com/lucasnoah/cihealer/internal/workflow"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [output-file]",
	Short: "Show which fix would be selected for captured tool output",
	Long: `Runs pattern matching only: nothing is executed, verified, or
committed. Useful for checking rule coverage against real CI logs.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input, err := readFailureInput(cmd, args)
		if err != nil {
			return err
		}

		formatting, err := rules.BuiltinFormatting()
		if err != nil {
			return fmt.Errorf("load formatting rules: %w", err)
		}
		dependencies, err := rules.BuiltinDependencies()
		if err != nil {
			return fmt.Errorf("load dependency rules: %w", err)
		}

		fmtFlow := workflow.NewFormatting(rules.NewSet(formatting), nil, nil)
		depFlow := workflow.NewDependency(rules.NewSet(dependencies), nil, nil, "")
		desc := healer.NewAnalyzer(fmtFlow, depFlow).Analyze(input)

		w := cmd.OutOrStdout()
		if desc.Kind == healer.FixNone {
			fmt.Fprintln(w, color.New(color.FgYellow).Sprint("no applicable fix found"))
			return nil
		}

		fmt.Fprintf(w, "kind:     %s\n", desc.Kind)
		fmt.Fprintf(w, "pattern:  %s\n", desc.PatternID)
		fmt.Fprintf(w, "tool:     %s\n", desc.Tool)
		fmt.Fprintf(w, "severity: %s\n", desc.Severity)
		return nil
	},
}
