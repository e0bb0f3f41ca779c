package verify

import (
	"errors"
	"strings"
	"testing"
)

// fakeGit answers git invocations by longest matching prefix of the joined
// argument list, and records every call.
type fakeGit struct {
	responses map[string]fakeResult
	calls     []string
}

type fakeResult struct {
	Output string
	Err    error
}

func (f *fakeGit) Run(dir string, args ...string) (string, error) {
	joined := strings.Join(args, " ")
	f.calls = append(f.calls, joined)

	best := ""
	for key := range f.responses {
		if strings.HasPrefix(joined, key) && len(key) > len(best) {
			best = key
		}
	}
	if best == "" {
		return "", nil
	}
	r := f.responses[best]
	return r.Output, r.Err
}

func (f *fakeGit) called(prefix string) bool {
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

func TestChangedFiles_FiltersStatuses(t *testing.T) {
	git := &fakeGit{responses: map[string]fakeResult{
		"status --porcelain": {Output: strings.Join([]string{
			" M modified.go",
			"A  added.json",
			"R  old.go -> renamed.go",
			" D deleted.go",
			"?? untracked.go",
		}, "\n")},
	}}
	c := NewCommitter(git, "/repo", nil)

	files, err := c.ChangedFiles()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"modified.go", "added.json", "renamed.go"}
	if len(files) != len(want) {
		t.Fatalf("files = %v, want %v", files, want)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Errorf("files[%d] = %q, want %q", i, files[i], want[i])
		}
	}
}

func TestChangedFiles_SkipsExcludedPaths(t *testing.T) {
	git := &fakeGit{responses: map[string]fakeResult{
		"status --porcelain": {Output: strings.Join([]string{
			" M main.go",
			" M .cihealer_status",
			"A  .cihealer_backup/marker",
		}, "\n")},
	}}
	c := NewCommitter(git, "/repo", nil)
	c.Exclude(".cihealer_backup", ".cihealer_status")

	files, err := c.ChangedFiles()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(files) != 1 || files[0] != "main.go" {
		t.Errorf("files = %v, want [main.go]", files)
	}
}

func TestAtomicCommit_StagesWithExcludePathspecs(t *testing.T) {
	git := &fakeGit{responses: map[string]fakeResult{
		"diff --cached": {Output: "main.go"},
		"commit":        {Output: "[main abc1234] msg"},
	}}
	c := NewCommitter(git, "/repo", nil)
	c.Exclude(".cihealer_backup", ".cihealer_status")

	if _, err := c.AtomicCommit(CommitOptions{MessageTemplate: "m", Tool: "ruff"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !git.called("add -- . :(exclude).cihealer_backup :(exclude).cihealer_status") {
		t.Errorf("staging must carry exclude pathspecs, calls: %v", git.calls)
	}
}

func TestChangedFiles_StatusFailure(t *testing.T) {
	git := &fakeGit{responses: map[string]fakeResult{
		"status --porcelain": {Err: errors.New("not a git repository")},
	}}
	c := NewCommitter(git, "/repo", nil)

	_, err := c.ChangedFiles()
	var gerr *GitError
	if !errors.As(err, &gerr) {
		t.Fatalf("expected *GitError, got %v", err)
	}
}

func TestAtomicCommit_NothingToCommit(t *testing.T) {
	git := &fakeGit{responses: map[string]fakeResult{
		"status --porcelain": {Output: ""},
		"diff --cached":      {Output: ""},
	}}
	c := NewCommitter(git, "/repo", nil)

	res, err := c.AtomicCommit(CommitOptions{
		MessageTemplate: "style: fix {tool}",
		Tool:            "ruff",
		VerifySyntax:    true,
	})
	if err != nil {
		t.Fatalf("nothing-to-commit must not be an error: %v", err)
	}
	if res.Success {
		t.Error("success should be false with no staged changes")
	}
	if res.ErrorMessage != "no changes detected" {
		t.Errorf("error message = %q", res.ErrorMessage)
	}
	if git.called("commit") {
		t.Error("commit should not run with nothing staged")
	}
}

func TestAtomicCommit_Success(t *testing.T) {
	git := &fakeGit{responses: map[string]fakeResult{
		"status --porcelain": {Output: ""},
		"diff --cached":      {Output: "a.txt\nb.txt"},
		"commit":             {Output: "[main abc1234] style: fix ruff (2 files)"},
	}}
	c := NewCommitter(git, "/repo", nil)

	res, err := c.AtomicCommit(CommitOptions{
		MessageTemplate:  "style: fix {tool}",
		Tool:             "ruff",
		Author:           "bot <bot@example.com>",
		IncludeFileCount: true,
		VerifySyntax:     false,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success {
		t.Fatal("expected success")
	}
	if res.Hash != "abc1234" {
		t.Errorf("hash = %q", res.Hash)
	}
	if res.Message != "style: fix ruff (2 files)" {
		t.Errorf("message = %q", res.Message)
	}
	if len(res.Files) != 2 {
		t.Errorf("files = %v", res.Files)
	}
}

func TestAtomicCommit_SingularFileCountSuffix(t *testing.T) {
	git := &fakeGit{responses: map[string]fakeResult{
		"diff --cached": {Output: "only.txt"},
		"commit":        {Output: "[main beef001] msg"},
	}}
	c := NewCommitter(git, "/repo", nil)

	res, err := c.AtomicCommit(CommitOptions{
		MessageTemplate:  "style: tidy",
		Tool:             "gofmt",
		IncludeFileCount: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasSuffix(res.Message, "(1 file)") {
		t.Errorf("message = %q, want singular suffix", res.Message)
	}
}

func TestAtomicCommit_CommitFailureRestores(t *testing.T) {
	git := &fakeGit{responses: map[string]fakeResult{
		"diff --cached": {Output: "a.txt"},
		"commit":        {Err: errors.New("hook rejected")},
	}}
	c := NewCommitter(git, "/repo", nil)

	_, err := c.AtomicCommit(CommitOptions{MessageTemplate: "m", Tool: "ruff"})
	var gerr *GitError
	if !errors.As(err, &gerr) {
		t.Fatalf("expected *GitError, got %v", err)
	}
	if !git.called("restore --staged") || !git.called("restore .") {
		t.Errorf("commit failure must restore staged and unstaged, calls: %v", git.calls)
	}
}

func TestBuildMessage_Templating(t *testing.T) {
	git := &fakeGit{responses: map[string]fakeResult{
		"diff --cached": {Output: "a.txt"},
		"commit":        {Output: "[main 1111111] x"},
	}}
	c := NewCommitter(git, "/repo", nil)

	res, err := c.AtomicCommit(CommitOptions{
		MessageTemplate: "style: {tool} pass at {timestamp}",
		Tool:            "black",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(res.Message, "{tool}") || strings.Contains(res.Message, "{timestamp}") {
		t.Errorf("placeholders not substituted: %q", res.Message)
	}
	if !strings.Contains(res.Message, "black") {
		t.Errorf("tool missing from message: %q", res.Message)
	}
}

func TestParseCommitHash(t *testing.T) {
	tests := []struct {
		out  string
		want string
	}{
		{"[main abc1234] style: fix", "abc1234"},
		{"[feature/x 99aa001] fix: deps\n 1 file changed", "99aa001"},
		{"no bracket line", ""},
	}
	for _, tt := range tests {
		if got := parseCommitHash(tt.out); got != tt.want {
			t.Errorf("parseCommitHash(%q) = %q, want %q", tt.out, got, tt.want)
		}
	}
}
