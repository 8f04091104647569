package parser

import "fmt"

// SyntaxError is raised for every parse failure: unexpected tokens, missing
// semicolons, malformed parameter lists, malformed array literals, and
// shorthand-assignment rejections.
type SyntaxError struct {
	Line    int32
	Column  int
	Message string
}

func CreateSyntaxError(line int32, column int, message string) SyntaxError {
	return SyntaxError{Line: line, Column: column, Message: message}
}

func (e SyntaxError) Error() string {
	return fmt.Sprintf("💥 nilan syntax error:\nline:%d, column:%d - %s", e.Line, e.Column, e.Message)
}
