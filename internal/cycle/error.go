package cycle

import "fmt"

// ParseError is a structured parse failure: the offset, line and column of
// the offending token plus a human-readable message, per pattrns'
// specification for mini-notation parse failures.
type ParseError struct {
	Offset  int
	Line    int
	Column  int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cycle: %d:%d: %s", e.Line, e.Column, e.Message)
}
