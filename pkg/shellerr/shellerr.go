// Package shellerr carries the exit-code-bearing error taxonomy of
// spec.md §7 (syntax, expansion, redirection, exec, signal, resource
// exhaustion), plus a stack-traced wrap helper for internal errors at
// the task-driver boundary.
package shellerr

import (
	"fmt"

	"github.com/go-errors/errors"
	"golang.org/x/xerrors"
)

// Error codes a ComplexError may carry. These map onto spec.md §7, not
// onto shell exit statuses directly — ExitStatus() does that mapping.
const (
	CodeSyntax = iota
	CodeExpansion
	CodeRedirection
	CodeExecNotFound
	CodeExecNotExecutable
	CodeExecOther
	CodeSignal
	CodeResourceExhaustion
)

// ComplexError is an error carrying a taxonomy code, adapted from the
// teacher's ComplexError (itself adapted from a well-known xerrors
// pattern): calling code branches on Code rather than string-matching
// Error().
type ComplexError struct {
	Message string
	Code    int
	Signal  int // only meaningful when Code == CodeSignal
	frame   xerrors.Frame
}

// New builds a ComplexError, capturing the caller's frame for FormatError.
func New(code int, format string, args ...any) *ComplexError {
	return &ComplexError{
		Message: fmt.Sprintf(format, args...),
		Code:    code,
		frame:   xerrors.Caller(1),
	}
}

func (ce *ComplexError) FormatError(p xerrors.Printer) error {
	p.Printf("%s", ce.Message)
	ce.frame.Format(p)
	return nil
}

func (ce *ComplexError) Format(f fmt.State, c rune) {
	xerrors.FormatError(ce, f, c)
}

func (ce *ComplexError) Error() string {
	return fmt.Sprint(ce)
}

// ExitStatus maps a ComplexError onto the numeric shell exit status
// spec.md §7 assigns its taxonomy: exec lookup failures get 127/126,
// a caught signal gets 128+signal, everything else is a generic
// failure (1) — the caller is expected to already know the code
// otherwise (e.g. a simple command's own exit code is not a
// ComplexError at all).
func (ce *ComplexError) ExitStatus() int {
	switch ce.Code {
	case CodeExecNotFound:
		return 127
	case CodeExecNotExecutable:
		return 126
	case CodeExecOther:
		return 126
	case CodeSignal:
		return 128 + ce.Signal
	default:
		return 1
	}
}

// HasCode reports whether err is (or wraps) a ComplexError with the
// given code.
func HasCode(err error, code int) bool {
	var ce *ComplexError
	if xerrors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}

// Wrap attaches a stack trace to err for diagnostics at the top-level
// driver boundary, mirroring the teacher's WrapError — go-errors does
// not return nil for a nil input, so this does that check itself.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, 0)
}
