// Package turtle implements a line-oriented turtle drawing language.
package turtle

import (
	"errors"
	"fmt"
)

// ErrorKind classifies every failure the interpreter can report.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindDuplicateDefinition
	KindUndefinedVariable
	KindUndefinedMethod
	KindArityMismatch
	KindMalformedCondition
	KindUnknownOperator
	KindInvalidOperand
	KindUnknownCommand
	KindMalformedCommand
	KindMismatchedBlock
	KindNestedBlockNotSupported
	KindCancelled
	KindLimitExceeded
)

var kindNames = map[ErrorKind]string{
	KindNone:                    "None",
	KindDuplicateDefinition:     "DuplicateDefinition",
	KindUndefinedVariable:       "UndefinedVariable",
	KindUndefinedMethod:         "UndefinedMethod",
	KindArityMismatch:           "ArityMismatch",
	KindMalformedCondition:      "MalformedCondition",
	KindUnknownOperator:         "UnknownOperator",
	KindInvalidOperand:          "InvalidOperand",
	KindUnknownCommand:          "UnknownCommand",
	KindMalformedCommand:        "MalformedCommand",
	KindMismatchedBlock:         "MismatchedBlock",
	KindNestedBlockNotSupported: "NestedBlockNotSupported",
	KindCancelled:               "Cancelled",
	KindLimitExceeded:           "LimitExceeded",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Error is a single interpreter failure. Errors with the same Kind match
// each other under errors.Is, so the sentinels below can be used for checks.
type Error struct {
	Kind      ErrorKind
	Detail    string
	Command   string // keyword being executed, if known
	UsageHint string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Detail
}

// Is reports kind equality.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// WithCommand records the keyword and attaches its usage hint for syntax errors.
func (e *Error) WithCommand(keyword string) *Error {
	e.Command = keyword
	if e.Kind == KindMalformedCommand {
		e.UsageHint = GetCommandUsageHint(keyword)
	}
	return e
}

// Sentinels for errors.Is.
var (
	ErrDuplicateDefinition     = &Error{Kind: KindDuplicateDefinition}
	ErrUndefinedVariable       = &Error{Kind: KindUndefinedVariable}
	ErrUndefinedMethod         = &Error{Kind: KindUndefinedMethod}
	ErrArityMismatch           = &Error{Kind: KindArityMismatch}
	ErrMalformedCondition      = &Error{Kind: KindMalformedCondition}
	ErrUnknownOperator         = &Error{Kind: KindUnknownOperator}
	ErrInvalidOperand          = &Error{Kind: KindInvalidOperand}
	ErrUnknownCommand          = &Error{Kind: KindUnknownCommand}
	ErrMalformedCommand        = &Error{Kind: KindMalformedCommand}
	ErrMismatchedBlock         = &Error{Kind: KindMismatchedBlock}
	ErrNestedBlockNotSupported = &Error{Kind: KindNestedBlockNotSupported}
	ErrCancelled               = &Error{Kind: KindCancelled}
	ErrLimitExceeded           = &Error{Kind: KindLimitExceeded}
)

func newError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// ScriptError ties a failure to the script line that raised it.
// Failures inside loop or method bodies nest: the outer error names the
// endloop or call line, the inner one the body line.
type ScriptError struct {
	Line int // 1-based, relative to the block being executed
	Text string
	Err  error
}

func (e *ScriptError) Error() string {
	return fmt.Sprintf("line %d (%s): %v", e.Line, e.Text, e.Err)
}

func (e *ScriptError) Unwrap() error { return e.Err }

// KindOf returns the kind of the innermost interpreter error in err's chain.
func KindOf(err error) ErrorKind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return KindNone
}

// RootLine returns the innermost script line that failed, or the zero value.
func RootLine(err error) (int, string) {
	line, text := 0, ""
	for err != nil {
		var se *ScriptError
		if !errors.As(err, &se) {
			break
		}
		line, text = se.Line, se.Text
		err = se.Err
	}
	return line, text
}
