package dfxml

import (
	"errors"
	"fmt"
)

var (
	ErrHashNotFound       = errors.New("dfxml: requested hash not found")
	ErrInvalidDigest      = errors.New("dfxml: invalid hash digest")
	ErrUnknownAlgorithm   = errors.New("dfxml: unknown hash algorithm")
	ErrMalformedTagName   = errors.New("dfxml: malformed tag name")
	ErrStackUnderflow     = errors.New("dfxml: tag stack empty")
	ErrTagMismatch        = errors.New("dfxml: tag stack inconsistent")
	ErrUnbalancedDocument = errors.New("dfxml: tag stack not empty")
	ErrWriterClosed       = errors.New("dfxml: writer closed")
	ErrCloseTagMismatch   = errors.New("dfxml: close tag mismatch")
	ErrNestedRecord       = errors.New("dfxml: nested record")
	ErrSyntax             = errors.New("dfxml: XML syntax error")
	ErrInvalidValue       = errors.New("dfxml: invalid value")
	ErrLimitExceeded      = errors.New("dfxml: limit exceeded")
	ErrInvalidCompression = errors.New("dfxml: invalid compression")
)

// CloseTagMismatchError reports an end tag that does not close the
// innermost open element. Expected is empty when no element was open.
type CloseTagMismatchError struct {
	Found    string
	Expected string
	Line     int
}

func (e *CloseTagMismatchError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("dfxml: close tag '%s' found; '%s' expected (line %d)", e.Found, e.Expected, e.Line)
	}
	return fmt.Sprintf("dfxml: close tag '%s' found; '%s' expected", e.Found, e.Expected)
}

func (e *CloseTagMismatchError) Unwrap() error { return ErrCloseTagMismatch }

// SyntaxError is returned when the tokenizer rejects the input.
type SyntaxError struct {
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("dfxml: XML error: %s at line %d", e.Msg, e.Line)
}

func (e *SyntaxError) Unwrap() error { return ErrSyntax }
