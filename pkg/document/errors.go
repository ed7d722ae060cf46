package document

import (
	"bufio"
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ParseError reports a malformed source document.
type ParseError struct {
	File    string
	Line    int
	Column  int
	Message string
	// Snippet shows the lines around the error with a "->" marker, when the
	// source was available.
	Snippet string
	Cause   error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	loc := Location{File: e.File, Line: e.Line, Column: e.Column}
	if e.File == "" && e.Line == 0 {
		return fmt.Sprintf("parse error: %s", e.Message)
	}
	return fmt.Sprintf("parse error at %s: %s", loc, e.Message)
}

// Unwrap returns the underlying decoder error.
func (e *ParseError) Unwrap() error {
	return e.Cause
}

var yamlLineRe = regexp.MustCompile(`line (\d+)`)

// newParseError builds a ParseError for src, attaching a snippet when the
// line is known. A zero line is recovered from "line N" in the cause.
func newParseError(file string, src []byte, line, col int, cause error, format string, args ...any) *ParseError {
	if line == 0 && cause != nil {
		if m := yamlLineRe.FindStringSubmatch(cause.Error()); m != nil {
			line, _ = strconv.Atoi(m[1])
		}
	}
	return &ParseError{
		File:    file,
		Line:    line,
		Column:  col,
		Message: fmt.Sprintf(format, args...),
		Snippet: snippet(src, line, col, 2),
		Cause:   cause,
	}
}

// snippet extracts the lines around line (1-based) for error display.
func snippet(src []byte, line, col, contextLines int) string {
	if line <= 0 || len(src) == 0 {
		return ""
	}

	scanner := bufio.NewScanner(bytes.NewReader(src))
	lines := make([]string, 0)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if scanner.Err() != nil || line > len(lines) {
		return ""
	}

	errorLine := line - 1
	start := max(errorLine-contextLines, 0)
	end := min(errorLine+contextLines, len(lines)-1)

	var sb strings.Builder
	width := len(strconv.Itoa(end + 1))
	for i := start; i <= end; i++ {
		marker := "  "
		if i == errorLine {
			marker = "->"
		}
		fmt.Fprintf(&sb, "%s %*d | %s\n", marker, width, i+1, lines[i])
		if i == errorLine && col > 0 {
			fmt.Fprintf(&sb, "   %s | %s^\n", strings.Repeat(" ", width), strings.Repeat(" ", col-1))
		}
	}
	return sb.String()
}

// lineCol converts a byte offset in src to a 1-based line and column.
func lineCol(src []byte, offset int) (int, int) {
	if offset > len(src) {
		offset = len(src)
	}
	line := 1 + bytes.Count(src[:offset], []byte{'\n'})
	col := offset + 1
	if nl := bytes.LastIndexByte(src[:offset], '\n'); nl >= 0 {
		col = offset - nl
	}
	return line, col
}
