package cli

import (
	"github.com/spf13/cobra"
)

var version = "dev"

func SetVersion(v string) {
	version = v
}

var rootCmd = &cobra.Command{
	Use:   "cihealer",
	Short: "cihealer — self-healing for recoverable CI failures",
	Long: `cihealer reads raw CI tool output, matches it against declarative fix
rules, applies the fix in a sandboxed executor, syntax-checks the changed
files, and either commits atomically or restores the working tree.

Healing attempts are recorded in ~/.cihealer/ (SQLite).`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(healCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(dbCmd)
}
