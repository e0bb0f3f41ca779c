package healer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// StatusFileName is the flat key-value file a calling automation layer
// parses after a run.
const StatusFileName = ".cihealer_status"

// Status is the terminal record of a healing run: the only externally
// observed result.
type Status struct {
	Healed   bool
	Rollback bool
	Error    string
}

// Write persists the status as key=value lines inside dir.
func (s Status) Write(dir string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "healed=%t\n", s.Healed)
	fmt.Fprintf(&b, "rollback=%t\n", s.Rollback)
	fmt.Fprintf(&b, "error=%s\n", s.Error)

	path := filepath.Join(dir, StatusFileName)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("writing status file: %w", err)
	}
	return nil
}
