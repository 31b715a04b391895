// interp/tools.go
package interp

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// FormatSource re-indents src to four spaces per block level, using the
// same block rules as Parse. Comments and blank lines are kept; trailing
// whitespace is dropped. Invalid source is returned unchanged with the error.
func FormatSource(src string) (string, error) {
	if err := checkUTF8(src); err != nil {
		return src, err
	}
	var (
		out     strings.Builder
		headers []int // indents of enclosing header lines
	)
	lines := strings.Split(strings.TrimRight(src, "\n"), "\n")
	for _, raw := range lines {
		raw = strings.TrimRight(raw, " \t\r")
		if strings.TrimSpace(raw) == "" {
			out.WriteByte('\n')
			continue
		}
		text := strings.TrimLeft(raw, " ")
		indent := len(raw) - len(text)
		for len(headers) > 0 && indent <= headers[len(headers)-1] {
			headers = headers[:len(headers)-1]
		}
		out.WriteString(strings.Repeat("    ", len(headers)))
		out.WriteString(text)
		out.WriteByte('\n')
		if !strings.HasPrefix(text, "#") && strings.HasSuffix(text, ":") {
			headers = append(headers, indent)
		}
	}
	return out.String(), nil
}

// Severity of a Diagnostic.
type Severity string

const (
	SeverityError   Severity = "ERROR"
	SeverityWarning Severity = "WARNING"
)

// Diagnostic is one finding of CheckSource.
type Diagnostic struct {
	Line     int
	Column   int
	Code     string
	Message  string
	Severity Severity
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s [%s] Line %d: %s", d.Severity, d.Code, d.Line, d.Message)
}

// CheckResult groups diagnostics with a one-line summary.
type CheckResult struct {
	Errors   []Diagnostic
	Warnings []Diagnostic
	Summary  string
}

func (r CheckResult) HasErrors() bool { return len(r.Errors) > 0 }

// String renders the summary followed by indented findings.
func (r CheckResult) String() string {
	lines := []string{r.Summary}
	for _, d := range r.Errors {
		lines = append(lines, "  "+d.String())
	}
	for _, d := range r.Warnings {
		lines = append(lines, "  "+d.String())
	}
	return strings.Join(lines, "\n")
}

var checkerBuiltins = []string{
	"print", "len", "str", "int", "float", "bool", "list", "range",
	"sin", "cos", "tan", "sqrt", "pow", "exp", "abs",
	"read_file", "write_file", "input", "randint",
	"time", "sleep", "getcwd", "platform", "listdir",
	"zip", "isdigit", "argv", "self",
}

var deprecatedFuncs = []struct{ name, hint string }{
	{"print_debug", "Use print() instead"},
	{"dbg", "Use print() instead"},
	{"typeof", "Type information is implicit in Ferrum"},
}

// CheckSource runs line-based heuristics over a script:
//
//	E001 source does not parse
//	W001 variable assigned but never used
//	W002 print of a possibly undefined variable
//	W003 deprecated function
//	W004 string and number mixed around '+'
func CheckSource(src string) CheckResult {
	if _, err := Parse(src); err != nil {
		line := 1
		var pe *ParseError
		if errors.As(err, &pe) {
			line = pe.Line
		}
		errs := []Diagnostic{{Line: line, Code: "E001", Message: "Syntax Error: " + err.Error(), Severity: SeverityError}}
		return CheckResult{Errors: errs, Summary: fmt.Sprintf("Script analysis found %d error(s)", len(errs))}
	}
	lines := strings.Split(src, "\n")
	var warns []Diagnostic
	warns = append(warns, checkUndefined(lines)...)
	warns = append(warns, checkDeprecated(lines)...)
	warns = append(warns, checkUnused(lines)...)
	warns = append(warns, checkMixedPlus(lines)...)
	sort.SliceStable(warns, func(i, j int) bool {
		if warns[i].Line != warns[j].Line {
			return warns[i].Line < warns[j].Line
		}
		return warns[i].Code < warns[j].Code
	})
	res := CheckResult{Warnings: warns, Summary: "No issues found - script looks good!"}
	if len(warns) > 0 {
		res.Summary = fmt.Sprintf("Script analysis found 0 error(s) and %d warning(s)", len(warns))
	}
	return res
}

// assignedName returns the first word left of '=' on an assignment line.
func assignedName(trimmed string) (string, bool) {
	lhs, _, ok := strings.Cut(trimmed, "=")
	if !ok {
		return "", false
	}
	fields := strings.Fields(lhs)
	if len(fields) == 0 || strings.Contains(fields[0], "(") {
		return "", false
	}
	return fields[0], true
}

func isIdentifier(s string) bool {
	for i, r := range s {
		switch {
		case r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return s != ""
}

func checkUndefined(lines []string) []Diagnostic {
	defined := map[string]bool{}
	for _, b := range checkerBuiltins {
		defined[b] = true
	}
	var out []Diagnostic
	for i, line := range lines {
		t := strings.TrimSpace(line)
		if strings.HasPrefix(t, "#") {
			continue
		}
		if name, ok := assignedName(t); ok {
			defined[name] = true
		}
		if strings.HasPrefix(t, "def ") || strings.HasPrefix(t, "for ") || strings.HasPrefix(t, "class ") {
			for _, w := range strings.FieldsFunc(t, func(r rune) bool { return !isIdentRune(r) }) {
				defined[w] = true
			}
		}
		content, ok := strings.CutPrefix(t, "print(")
		if !ok || !strings.HasSuffix(content, ")") {
			continue
		}
		fields := strings.Fields(strings.TrimSuffix(content, ")"))
		if len(fields) == 0 {
			continue
		}
		if name := fields[0]; isIdentifier(name) && !defined[name] {
			out = append(out, Diagnostic{
				Line: i + 1, Code: "W002", Severity: SeverityWarning,
				Message: fmt.Sprintf("Variable '%s' may not be defined", name),
			})
		}
	}
	return out
}

func isIdentRune(r rune) bool {
	return r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9'
}

func checkDeprecated(lines []string) []Diagnostic {
	var out []Diagnostic
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		for _, d := range deprecatedFuncs {
			if col := strings.Index(line, d.name); col >= 0 {
				out = append(out, Diagnostic{
					Line: i + 1, Column: col, Code: "W003", Severity: SeverityWarning,
					Message: fmt.Sprintf("Function '%s' is deprecated: %s", d.name, d.hint),
				})
			}
		}
	}
	return out
}

// checkUnused reports variables that never appear again after being
// assigned, either on a line without assignment or right of an '='.
func checkUnused(lines []string) []Diagnostic {
	assigned := map[string]int{}
	used := map[string]bool{}
	for i, line := range lines {
		t := strings.TrimSpace(line)
		if strings.HasPrefix(t, "#") {
			continue
		}
		isAssign := strings.Contains(t, "=") && !strings.Contains(t, "==")
		haystack := t
		if isAssign {
			_, haystack, _ = strings.Cut(t, "=")
		}
		for name := range assigned {
			if strings.Contains(haystack, name) {
				used[name] = true
			}
		}
		if isAssign {
			if name, ok := assignedName(t); ok {
				if _, seen := assigned[name]; !seen {
					assigned[name] = i + 1
				}
			}
		}
	}
	var out []Diagnostic
	for name, line := range assigned {
		if used[name] || strings.HasPrefix(name, "_") || strings.Contains(name, ".") {
			continue
		}
		out = append(out, Diagnostic{
			Line: line, Code: "W001", Severity: SeverityWarning,
			Message: fmt.Sprintf("Variable '%s' is assigned but never used", name),
		})
	}
	return out
}

func looksNumeric(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

func looksString(s string) bool { return strings.HasPrefix(s, `"`) || strings.HasPrefix(s, "'") }

func checkMixedPlus(lines []string) []Diagnostic {
	var out []Diagnostic
	for i, line := range lines {
		t := strings.TrimSpace(line)
		if strings.HasPrefix(t, "#") || strings.HasPrefix(t, "print") || !strings.Contains(t, "+") {
			continue
		}
		if _, rhs, ok := strings.Cut(t, "="); ok {
			t = rhs
		}
		parts := strings.Split(t, "+")
		for j := 0; j+1 < len(parts); j++ {
			l, r := strings.TrimSpace(parts[j]), strings.TrimSpace(parts[j+1])
			if looksNumeric(l) && looksString(r) || looksString(l) && looksNumeric(r) {
				out = append(out, Diagnostic{
					Line: i + 1, Code: "W004", Severity: SeverityWarning,
					Message: "Possible type mismatch: mixing string and number without conversion",
				})
				break
			}
		}
	}
	return out
}

// CheckFile reads and checks one file. Undecodable text is reported as
// E001; only I/O failures are returned as errors.
func CheckFile(path string) (CheckResult, error) {
	src, err := ReadSource(path)
	var pe *ParseError
	switch {
	case errors.As(err, &pe):
		errs := []Diagnostic{{Line: pe.Line, Code: "E001", Message: "Syntax Error: " + pe.Error(), Severity: SeverityError}}
		return CheckResult{Errors: errs, Summary: "Script analysis found 1 error(s)"}, nil
	case err != nil:
		return CheckResult{}, err
	}
	return CheckSource(src), nil
}
