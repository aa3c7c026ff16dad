package protocol

import "fmt"

// ParseError is the single error kind produced by the parser: a
// human-readable message and no recovery information. The parser
// never attempts recovery (spec.md §4.2).
type ParseError struct {
	Message string
}

func (e *ParseError) Error() string {
	return e.Message
}

func newParseError(format string, args ...any) *ParseError {
	return &ParseError{Message: fmt.Sprintf(format, args...)}
}
