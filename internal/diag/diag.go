// Package diag formats diagnostics (parse failures, analyser warnings)
// with source context and a caret pointing at the offending column,
// adapted from the teacher's internal/errors package.
package diag

import (
	"fmt"
	"strings"
)

// Severity distinguishes a diagnostic that aborts the transform from one
// that is merely reported, e.g. by the audit subcommand.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return "unknown"
	}
}

// Position is a 1-indexed line/column pair.
type Position struct {
	Line   int
	Column int
}

// Diagnostic is a single reported problem, with enough context to render
// a source-pointing caret.
type Diagnostic struct {
	Severity Severity
	Message  string
	Source   string
	File     string
	Pos      Position
}

// New builds a Diagnostic at the given offset within src, converting the
// byte offset to a line/column pair.
func New(severity Severity, message, file string, src []byte, offset int) Diagnostic {
	return Diagnostic{
		Severity: severity,
		Message:  message,
		Source:   string(src),
		File:     file,
		Pos:      positionAt(src, offset),
	}
}

func positionAt(src []byte, offset int) Position {
	if offset > len(src) {
		offset = len(src)
	}
	line, col := 1, 1
	for i := 0; i < offset; i++ {
		if src[i] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return Position{Line: line, Column: col}
}

// Error implements the error interface so a Diagnostic can be returned
// directly by a CLI subcommand.
func (d Diagnostic) Error() string {
	return d.Format(false)
}

// Format renders the diagnostic with a line-numbered source excerpt and a
// caret under the offending column, following internal/errors.CompilerError.Format.
func (d Diagnostic) Format(color bool) string {
	var sb strings.Builder

	if d.File != "" {
		fmt.Fprintf(&sb, "%s in %s:%d:%d\n", strings.ToUpper(d.Severity.String()[:1])+d.Severity.String()[1:], d.File, d.Pos.Line, d.Pos.Column)
	} else {
		fmt.Fprintf(&sb, "%s at line %d:%d\n", strings.ToUpper(d.Severity.String()[:1])+d.Severity.String()[1:], d.Pos.Line, d.Pos.Column)
	}

	if line := d.sourceLine(d.Pos.Line); line != "" {
		lineNumStr := fmt.Sprintf("%4d | ", d.Pos.Line)
		sb.WriteString(lineNumStr)
		sb.WriteString(line)
		sb.WriteString("\n")

		sb.WriteString(strings.Repeat(" ", len(lineNumStr)+d.Pos.Column-1))
		if color {
			sb.WriteString("\033[1;31m")
		}
		sb.WriteString("^")
		if color {
			sb.WriteString("\033[0m")
		}
		sb.WriteString("\n")
	}

	if color {
		sb.WriteString("\033[1m")
	}
	sb.WriteString(d.Message)
	if color {
		sb.WriteString("\033[0m")
	}

	return sb.String()
}

func (d Diagnostic) sourceLine(lineNum int) string {
	if d.Source == "" {
		return ""
	}
	lines := strings.Split(d.Source, "\n")
	if lineNum < 1 || lineNum > len(lines) {
		return ""
	}
	return lines[lineNum-1]
}

// FormatDiagnostics joins multiple diagnostics the way the teacher's
// FormatErrors does, numbering them "[N of M]" when there's more than one.
func FormatDiagnostics(diags []Diagnostic, color bool) string {
	if len(diags) == 0 {
		return ""
	}
	if len(diags) == 1 {
		return diags[0].Format(color)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d diagnostic(s):\n\n", len(diags))
	for i, d := range diags {
		fmt.Fprintf(&sb, "[%d of %d]\n", i+1, len(diags))
		sb.WriteString(d.Format(color))
		if i < len(diags)-1 {
			sb.WriteString("\n\n")
		}
	}
	return sb.String()
}
