package verify

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// defaultExtensions is the recognized-source set checked when the caller
// does not configure one.
var defaultExtensions = []string{".go", ".json", ".yaml", ".yml"}

// Committer inspects the working tree for files changed by a fix,
// syntax-checks the relevant subset, and performs an atomic stage+commit.
// It is the atomicity boundary of the pipeline: the only place state is
// durably persisted, and the only place guaranteed to undo everything on
// failure.
type Committer struct {
	git        GitRunner
	dir        string
	extensions map[string]bool
	exclude    []string
}

// NewCommitter creates a Committer for the given repository root.
// extensions is the recognized-source set for syntax checking; nil selects
// the default set.
func NewCommitter(git GitRunner, dir string, extensions []string) *Committer {
	if len(extensions) == 0 {
		extensions = defaultExtensions
	}
	set := make(map[string]bool, len(extensions))
	for _, e := range extensions {
		set[strings.ToLower(e)] = true
	}
	return &Committer{git: git, dir: dir, extensions: set}
}

// Exclude registers paths (files or directory roots, relative to the repo)
// that are never staged or reported as changed. Engine bookkeeping files
// live inside the working tree and must not leak into fix commits.
func (c *Committer) Exclude(paths ...string) {
	c.exclude = append(c.exclude, paths...)
}

func (c *Committer) isExcluded(name string) bool {
	for _, p := range c.exclude {
		if name == p || strings.HasPrefix(name, p+"/") {
			return true
		}
	}
	return false
}

// CommitResult holds the outcome of a commit attempt.
type CommitResult struct {
	Success      bool
	Hash         string
	Message      string
	Files        []string
	ErrorMessage string
}

// CommitOptions parameterizes AtomicCommit.
type CommitOptions struct {
	MessageTemplate  string
	Tool             string
	Author           string
	IncludeFileCount bool
	VerifySyntax     bool
}

// ChangedFiles enumerates working-tree changes from git status. Only
// modified, added, and renamed entries count; deletions and untracked files
// are excluded.
func (c *Committer) ChangedFiles() ([]string, error) {
	out, err := c.git.Run(c.dir, "status", "--porcelain")
	if err != nil {
		return nil, &GitError{Op: "status", Err: err}
	}

	var files []string
	for _, line := range strings.Split(out, "\n") {
		if len(line) < 4 {
			continue
		}
		status := line[:2]
		name := line[3:]
		if !strings.ContainsAny(status, "MAR") {
			continue
		}
		// Renames are reported as "old -> new"; the new path is what exists.
		if idx := strings.Index(name, " -> "); idx >= 0 {
			name = name[idx+4:]
		}
		if c.isExcluded(name) {
			continue
		}
		files = append(files, name)
	}
	return files, nil
}

// VerifyChanged syntax-checks every changed file whose extension is in the
// recognized set. Files outside the set are not checked and are treated as
// valid. On any parse failure it returns a *SyntaxVerificationError carrying
// all failed files.
func (c *Committer) VerifyChanged() ([]CheckResult, error) {
	changed, err := c.ChangedFiles()
	if err != nil {
		return nil, err
	}

	var results []CheckResult
	var failed []CheckResult
	for _, rel := range changed {
		ext := strings.ToLower(filepath.Ext(rel))
		if !c.extensions[ext] {
			continue
		}
		res := CheckFile(filepath.Join(c.dir, rel), ext)
		res.Path = rel
		results = append(results, res)
		if !res.Valid {
			failed = append(failed, res)
		}
	}

	if len(failed) > 0 {
		return results, &SyntaxVerificationError{Failed: failed}
	}
	return results, nil
}

// RestoreAll discards both staged and unstaged changes, returning the
// working tree to its last committed state.
func (c *Committer) RestoreAll() error {
	if _, err := c.git.Run(c.dir, "restore", "--staged", "."); err != nil {
		return &GitError{Op: "restore --staged", Err: err}
	}
	if _, err := c.git.Run(c.dir, "restore", "."); err != nil {
		return &GitError{Op: "restore", Err: err}
	}
	return nil
}

// AtomicCommit verifies, stages, and commits all working-tree changes.
// Any failure inside this unit — syntax verification, staging, committing —
// restores the tree to its pre-fix state before the error is returned, so no
// partially-applied fix survives.
func (c *Committer) AtomicCommit(opts CommitOptions) (*CommitResult, error) {
	if opts.VerifySyntax {
		if _, err := c.VerifyChanged(); err != nil {
			// Restore unconditionally before propagating; a git failure
			// during restore must not mask the verification error.
			_ = c.RestoreAll()
			return nil, err
		}
	}

	addArgs := []string{"add", "--", "."}
	for _, p := range c.exclude {
		addArgs = append(addArgs, ":(exclude)"+p)
	}
	if _, err := c.git.Run(c.dir, addArgs...); err != nil {
		_ = c.RestoreAll()
		return nil, &GitError{Op: "add", Err: err}
	}

	staged, err := c.stagedFiles()
	if err != nil {
		_ = c.RestoreAll()
		return nil, err
	}
	if len(staged) == 0 {
		return &CommitResult{
			Success:      false,
			Message:      "no files to commit",
			ErrorMessage: "no changes detected",
		}, nil
	}

	message := buildMessage(opts.MessageTemplate, opts.Tool, time.Now())
	if opts.IncludeFileCount {
		if len(staged) == 1 {
			message += " (1 file)"
		} else {
			message += fmt.Sprintf(" (%d files)", len(staged))
		}
	}

	args := []string{"commit", "-m", message}
	if opts.Author != "" {
		args = append(args, "--author", opts.Author)
	}
	out, err := c.git.Run(c.dir, args...)
	if err != nil {
		_ = c.RestoreAll()
		return nil, &GitError{Op: "commit", Err: err}
	}

	return &CommitResult{
		Success: true,
		Hash:    parseCommitHash(out),
		Message: message,
		Files:   staged,
	}, nil
}

func (c *Committer) stagedFiles() ([]string, error) {
	out, err := c.git.Run(c.dir, "diff", "--cached", "--name-only")
	if err != nil {
		return nil, &GitError{Op: "diff --cached", Err: err}
	}
	var files []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			files = append(files, line)
		}
	}
	return files, nil
}

func buildMessage(template, tool string, now time.Time) string {
	msg := strings.ReplaceAll(template, "{tool}", tool)
	return strings.ReplaceAll(msg, "{timestamp}", now.Format("2006-01-02 15:04:05"))
}

// parseCommitHash extracts the short hash from commit output of the form
// "[branch hash] message".
func parseCommitHash(out string) string {
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "[") {
			end := strings.Index(line, "]")
			if end < 0 {
				continue
			}
			parts := strings.Fields(line[1:end])
			if len(parts) >= 2 {
				return parts[len(parts)-1]
			}
		}
	}
	return ""
}
