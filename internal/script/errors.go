package script

import (
	"fmt"
	"strings"
)

// SyntaxError is a build-script or module parse failure. Line and Col are
// 1-based. Frame is a caret-annotated excerpt of the source.
type SyntaxError struct {
	Line  int
	Col   int
	Msg   string
	Frame string
}

func (e *SyntaxError) Error() string {
	msg := fmt.Sprintf("syntax error at %d:%d: %s", e.Line, e.Col, e.Msg)
	if e.Frame != "" {
		msg += "\n\n" + e.Frame
	}
	return msg
}

func newSyntaxError(src string, offset int, msg string) *SyntaxError {
	line, col := position(src, offset)
	return &SyntaxError{
		Line:  line,
		Col:   col,
		Msg:   msg,
		Frame: codeFrame(src, line, col),
	}
}

// position converts a byte offset to a 1-based line and column.
func position(src string, offset int) (int, int) {
	if offset > len(src) {
		offset = len(src)
	}
	if offset < 0 {
		offset = 0
	}
	line := 1 + strings.Count(src[:offset], "\n")
	col := offset - strings.LastIndexByte(src[:offset], '\n')
	return line, col
}

// codeFrame renders the offending line with one line of context on each side
// and a caret under the column.
func codeFrame(src string, line, col int) string {
	lines := strings.Split(src, "\n")
	if line < 1 {
		line = 1
	}
	if line > len(lines) {
		line = len(lines)
	}
	if col < 1 {
		col = 1
	}

	var b strings.Builder
	if line > 1 {
		fmt.Fprintf(&b, "%4d | %s\n", line-1, lines[line-2])
	}
	fmt.Fprintf(&b, "%4d | %s\n", line, lines[line-1])
	fmt.Fprintf(&b, "     | %s^\n", strings.Repeat(" ", col-1))
	if line < len(lines) {
		fmt.Fprintf(&b, "%4d | %s\n", line+1, lines[line])
	}
	return strings.TrimRight(b.String(), "\n")
}
