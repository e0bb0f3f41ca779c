package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/lucasnoah/cihealer/internal/executor"
	"github.com/lucasnoah/cihealer/internal/healer"
	"github.com/lucasnoah/cihealer/internal/history"
	"github.com/lucasnoah/cihealer/internal/rules"
	"github.com/lucasnoah/cihealer/internal/verify"
	"github.com/lucasnoah/cihealer/internal/workflow"
)

var healCmd = &cobra.Command{
	Use:   "heal [output-file]",
	Short: "Attempt to heal a CI failure from captured tool output",
	Long: `Reads raw tool output from a file (or stdin when the argument is "-" or
omitted), selects a fix, applies it, and reports the terminal status.

The status file ` + healer.StatusFileName + ` is written to the repository
directory so CI steps can pick up the result without parsing logs.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("dir")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		noCommit, _ := cmd.Flags().GetBool("no-commit")
		noVerify, _ := cmd.Flags().GetBool("no-verify")
		noDB, _ := cmd.Flags().GetBool("no-db")
		ruleFiles, _ := cmd.Flags().GetStringSlice("rules")

		input, err := readFailureInput(cmd, args)
		if err != nil {
			return err
		}

		opts := workflow.Options{
			DryRun:       dryRun,
			VerifySyntax: !noVerify,
			CreateCommit: !noCommit,
		}
		sup, err := buildSupervisor(dir, opts, ruleFiles)
		if err != nil {
			return err
		}

		res := sup.Run(input)

		if !dryRun {
			if err := res.Status.Write(dir); err != nil {
				return fmt.Errorf("write status file: %w", err)
			}
		}
		if !noDB && !dryRun {
			if err := recordAttempt(res); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: record attempt: %v\n", err)
			}
		}

		printRunResult(cmd.OutOrStdout(), res)

		if !res.Status.Healed && res.Descriptor.Kind != healer.FixNone {
			cmd.SilenceUsage = true
			return fmt.Errorf("healing failed: %s", res.Status.Error)
		}
		return nil
	},
}

func init() {
	healCmd.Flags().String("dir", ".", "Repository directory to heal")
	healCmd.Flags().Bool("dry-run", false, "Show what would be fixed without changing anything")
	healCmd.Flags().Bool("no-commit", false, "Apply fixes but skip the git commit")
	healCmd.Flags().Bool("no-verify", false, "Skip syntax verification of changed files")
	healCmd.Flags().Bool("no-db", false, "Do not record the attempt in the history database")
	healCmd.Flags().StringSlice("rules", nil, "Additional rule files merged into the formatting rule set (matched before the dependency rules)")
}

// readFailureInput reads the captured tool output from the file argument,
// or from stdin when the argument is "-" or missing.
func readFailureInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("read output file: %w", err)
	}
	return string(data), nil
}

// buildSupervisor wires the rule sets, executor, committer, and workflows
// into a ready-to-run supervisor rooted at dir.
func buildSupervisor(dir string, opts workflow.Options, extraRuleFiles []string) (*healer.Supervisor, error) {
	formatting, err := rules.BuiltinFormatting()
	if err != nil {
		return nil, fmt.Errorf("load formatting rules: %w", err)
	}
	dependencies, err := rules.BuiltinDependencies()
	if err != nil {
		return nil, fmt.Errorf("load dependency rules: %w", err)
	}

	for _, path := range extraRuleFiles {
		doc, err := rules.Load(path)
		if err != nil {
			return nil, fmt.Errorf("load rules %s: %w", path, err)
		}
		// Custom files extend the formatting set.
		formatting.Patterns = append(formatting.Patterns, doc.Patterns...)
		for name, h := range doc.CustomHandlers {
			if formatting.CustomHandlers == nil {
				formatting.CustomHandlers = map[string]rules.Handler{}
			}
			formatting.CustomHandlers[name] = h
		}
	}
	if errs := rules.ValidateAll(formatting, dependencies); len(errs) > 0 {
		return nil, fmt.Errorf("invalid rules: %s", errs[0].Error())
	}

	engine := formatting.Engine
	exec := executor.New(executor.Options{
		Dir:            dir,
		DefaultTimeout: time.Duration(engine.TimeoutSeconds) * time.Second,
		MaxOutputBytes: engine.MaxOutputSizeMB * 1024 * 1024,
	})
	git := &verify.ExecGit{}
	if opts.CreateCommit && !verify.IsRepository(git, dir) {
		return nil, fmt.Errorf("%s is not a git repository (use --no-commit to fix without committing)", dir)
	}
	committer := verify.NewCommitter(git, dir, engine.AllowedFileExtensions)
	committer.Exclude(healer.BackupDirName, healer.StatusFileName)

	fmtFlow := workflow.NewFormatting(rules.NewSet(formatting), exec, committer)
	depFlow := workflow.NewDependency(rules.NewSet(dependencies), exec, committer, dir)
	analyzer := healer.NewAnalyzer(fmtFlow, depFlow)

	return healer.NewSupervisor(dir, analyzer, committer, opts), nil
}

// recordAttempt logs the run to the history database.
func recordAttempt(res *healer.RunResult) error {
	path, err := history.DefaultDBPath()
	if err != nil {
		return err
	}
	d, err := history.Open(path)
	if err != nil {
		return err
	}
	defer d.Close()
	if err := d.Migrate(); err != nil {
		return err
	}

	a := history.Attempt{
		AttemptID:   res.AttemptID,
		PatternID:   res.Descriptor.PatternID,
		Tool:        res.Descriptor.Tool,
		Severity:    string(res.Descriptor.Severity),
		Healed:      res.Status.Healed,
		Rollback:    res.Status.Rollback,
		ErrorDetail: res.Status.Error,
		DurationMs:  int(res.Elapsed.Milliseconds()),
	}
	if out := res.Outcome; out != nil {
		a.Command = out.CommandExecuted
		a.FilesFixed = len(out.FilesFixed)
		if out.Commit != nil {
			a.CommitHash = out.Commit.Hash
		}
	}
	return d.LogAttempt(a)
}

func printRunResult(w io.Writer, res *healer.RunResult) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	switch {
	case res.Status.Healed:
		fmt.Fprintf(w, "%s %s\n", green("HEALED"), res.Outcome.Message)
	case res.Descriptor.Kind == healer.FixNone:
		fmt.Fprintf(w, "%s %s\n", yellow("SKIPPED"), res.Status.Error)
	default:
		fmt.Fprintf(w, "%s %s\n", red("FAILED"), res.Status.Error)
	}

	if res.Descriptor.Kind != healer.FixNone {
		fmt.Fprintf(w, "  pattern:  %s (%s, %s)\n", res.Descriptor.PatternID, res.Descriptor.Tool, res.Descriptor.Severity)
	}
	if out := res.Outcome; out != nil {
		if out.CommandExecuted != "" {
			fmt.Fprintf(w, "  command:  %s\n", out.CommandExecuted)
		}
		if len(out.FilesFixed) > 0 {
			fmt.Fprintf(w, "  files:    %d\n", len(out.FilesFixed))
		}
		if out.Commit != nil && out.Commit.Success {
			fmt.Fprintf(w, "  commit:   %s\n", out.Commit.Hash)
		}
	}
	fmt.Fprintf(w, "  elapsed:  %dms\n", res.Elapsed.Milliseconds())
}
