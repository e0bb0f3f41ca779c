package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/cihealer/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect recorded healing attempts",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent healing attempts",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		d, cleanup, err := openDB()
		if err != nil {
			return err
		}
		defer cleanup()

		attempts, err := d.ListAttempts(limit)
		if err != nil {
			return fmt.Errorf("list attempts: %w", err)
		}
		if len(attempts) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No healing attempts recorded.")
			return nil
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%-10s %-26s %-8s %-8s %-8s %s\n",
			"TOOL", "PATTERN", "RESULT", "FILES", "DURATION", "TIMESTAMP")
		fmt.Fprintf(w, "%s\n", strings.Repeat("-", 80))
		for _, a := range attempts {
			result := "FAILED"
			if a.Healed {
				result = "HEALED"
			} else if a.Rollback {
				result = "ROLLED"
			}
			fmt.Fprintf(w, "%-10s %-26s %-8s %-8d %-8s %s\n",
				a.Tool, a.PatternID, result, a.FilesFixed,
				fmt.Sprintf("%dms", a.DurationMs), a.Timestamp)
		}
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show [attempt-id]",
	Short: "Show one healing attempt in full",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, cleanup, err := openDB()
		if err != nil {
			return err
		}
		defer cleanup()

		a, err := d.GetAttempt(args[0])
		if err != nil {
			return fmt.Errorf("get attempt: %w", err)
		}
		if a == nil {
			return fmt.Errorf("no attempt found with id %q", args[0])
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Attempt:   %s\n", a.AttemptID)
		fmt.Fprintf(w, "Pattern:   %s\n", a.PatternID)
		fmt.Fprintf(w, "Tool:      %s\n", a.Tool)
		fmt.Fprintf(w, "Severity:  %s\n", a.Severity)
		fmt.Fprintf(w, "Healed:    %t\n", a.Healed)
		fmt.Fprintf(w, "Rollback:  %t\n", a.Rollback)
		if a.Command != "" {
			fmt.Fprintf(w, "Command:   %s\n", a.Command)
		}
		if a.FilesFixed > 0 {
			fmt.Fprintf(w, "Files:     %d\n", a.FilesFixed)
		}
		if a.CommitHash != "" {
			fmt.Fprintf(w, "Commit:    %s\n", a.CommitHash)
		}
		if a.ErrorDetail != "" {
			fmt.Fprintf(w, "Error:     %s\n", a.ErrorDetail)
		}
		fmt.Fprintf(w, "Duration:  %dms\n", a.DurationMs)
		fmt.Fprintf(w, "Timestamp: %s\n", a.Timestamp)
		return nil
	},
}

var historyStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show per-tool healing statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, cleanup, err := openDB()
		if err != nil {
			return err
		}
		defer cleanup()

		stats, err := d.StatsByTool()
		if err != nil {
			return fmt.Errorf("stats by tool: %w", err)
		}
		if len(stats) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No healing attempts recorded.")
			return nil
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%-12s %-10s %-8s %s\n", "TOOL", "ATTEMPTS", "HEALED", "RATE")
		for _, s := range stats {
			rate := float64(s.Healed) / float64(s.Attempts) * 100
			fmt.Fprintf(w, "%-12s %-10d %-8d %.0f%%\n", s.Tool, s.Attempts, s.Healed, rate)
		}
		return nil
	},
}

func init() {
	historyListCmd.Flags().Int("limit", 20, "Maximum attempts to list (0 for all)")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyStatsCmd)
}

// openDB opens and migrates the history DB, returning it with a cleanup func.
func openDB() (*history.DB, func(), error) {
	path, err := history.DefaultDBPath()
	if err != nil {
		return nil, nil, err
	}
	d, err := history.Open(path)
	if err != nil {
		return nil, nil, err
	}
	if err := d.Migrate(); err != nil {
		d.Close()
		return nil, nil, err
	}
	return d, func() { d.Close() }, nil
}
