package basic

import "fmt"

// ErrorCode is one of the fixed two-letter error codes the interpreter can
// report. The set is closed; nothing in this package panics.
type ErrorCode string

const (
	ErrNF ErrorCode = "NF" // NEXT without FOR
	ErrSN ErrorCode = "SN" // syntax error
	ErrRG ErrorCode = "RG" // RETURN without GOSUB
	ErrOD ErrorCode = "OD" // out of data
	ErrFC ErrorCode = "FC" // illegal function call
	ErrOV ErrorCode = "OV" // overflow
	ErrOM ErrorCode = "OM" // out of memory
	ErrUL ErrorCode = "UL" // undefined line
	ErrBS ErrorCode = "BS" // bad subscript
	ErrDD ErrorCode = "DD" // redimensioned array
	ErrDZ ErrorCode = "DZ" // division by zero
	ErrID ErrorCode = "ID" // illegal direct
	ErrTM ErrorCode = "TM" // type mismatch
	ErrOS ErrorCode = "OS" // out of string space
	ErrLS ErrorCode = "LS" // string too long
	ErrST ErrorCode = "ST" // string formula too complex
	ErrCN ErrorCode = "CN" // can't continue
	ErrUF ErrorCode = "UF" // undefined user function
	ErrMO ErrorCode = "MO" // missing operand
)

// DirectLine is the line-number sentinel for direct (immediate) mode.
const DirectLine = 0xFFFF

// Error is a runtime error carrying the code and the line it occurred on.
// Every failure in this package is returned as a value of this type.
type Error struct {
	Code ErrorCode
	Line int
}

func (e *Error) Error() string {
	if e.Line == DirectLine || e.Line == 0 {
		return fmt.Sprintf("?%s ERROR", e.Code)
	}
	return fmt.Sprintf("?%s ERROR IN %d", e.Code, e.Line)
}

// codeErr builds an error not yet attached to a line; the run loop stamps
// the current line before rendering.
func codeErr(code ErrorCode) *Error {
	return &Error{Code: code, Line: DirectLine}
}

// at returns a copy of e positioned at line.
func (e *Error) at(line int) *Error {
	return &Error{Code: e.Code, Line: line}
}

// asBasicError maps any error to *Error, defaulting unexpected ones to FC.
func asBasicError(err error) *Error {
	if err == nil {
		return nil
	}
	if be, ok := err.(*Error); ok {
		return be
	}
	return codeErr(ErrFC)
}
