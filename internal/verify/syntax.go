package verify

import (
	"encoding/json"
	"fmt"
	"go/parser"
	"go/scanner"
	"go/token"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// CheckResult is the outcome of syntax-checking one file.
type CheckResult struct {
	Path         string
	Valid        bool
	ErrorMessage string
	Line         int
	Column       int
}

// SyntaxVerificationError carries every file that failed syntax checking,
// not just the first.
type SyntaxVerificationError struct {
	Failed []CheckResult
}

func (e *SyntaxVerificationError) Error() string {
	names := make([]string, len(e.Failed))
	for i, f := range e.Failed {
		names[i] = f.Path
	}
	return fmt.Sprintf("syntax errors in %d file(s): %s", len(e.Failed), strings.Join(names, ", "))
}

// CheckFile syntax-checks a single file based on its extension. Extensions
// without a checker are treated as automatically valid.
func CheckFile(path, ext string) CheckResult {
	data, err := os.ReadFile(path)
	if err != nil {
		return CheckResult{Path: path, Valid: false, ErrorMessage: fmt.Sprintf("reading file: %v", err)}
	}

	switch ext {
	case ".go":
		return checkGo(path, data)
	case ".json":
		return checkJSON(path, data)
	case ".yaml", ".yml":
		return checkYAML(path, data)
	default:
		return CheckResult{Path: path, Valid: true}
	}
}

func checkGo(path string, data []byte) CheckResult {
	fset := token.NewFileSet()
	_, err := parser.ParseFile(fset, path, data, 0)
	if err == nil {
		return CheckResult{Path: path, Valid: true}
	}
	res := CheckResult{Path: path, Valid: false, ErrorMessage: err.Error()}
	var list scanner.ErrorList
	if ok := asErrorList(err, &list); ok && len(list) > 0 {
		res.ErrorMessage = list[0].Msg
		res.Line = list[0].Pos.Line
		res.Column = list[0].Pos.Column
	}
	return res
}

func asErrorList(err error, out *scanner.ErrorList) bool {
	if list, ok := err.(scanner.ErrorList); ok {
		*out = list
		return true
	}
	return false
}

func checkJSON(path string, data []byte) CheckResult {
	var v any
	err := json.Unmarshal(data, &v)
	if err == nil {
		return CheckResult{Path: path, Valid: true}
	}
	res := CheckResult{Path: path, Valid: false, ErrorMessage: err.Error()}
	if serr, ok := err.(*json.SyntaxError); ok {
		res.Line, res.Column = offsetToPosition(data, serr.Offset)
	}
	return res
}

func checkYAML(path string, data []byte) CheckResult {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return CheckResult{Path: path, Valid: false, ErrorMessage: err.Error()}
	}
	return CheckResult{Path: path, Valid: true}
}

func offsetToPosition(data []byte, offset int64) (line, col int) {
	line, col = 1, 1
	for i := int64(0); i < offset && i < int64(len(data)); i++ {
		if data[i] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return line, col
}
