// Package expand implements the expansion engine of spec.md §4.4: tilde,
// parameter, command, and arithmetic expansion, followed by IFS field
// splitting, pathname expansion, and quote removal, in POSIX order.
//
// The engine never reaches into shell state or the task driver directly;
// it is handed an Env that supplies variable lookup, the special
// parameters, and a hook to run a command substitution's embedded
// program, so pkg/state and pkg/task can depend on pkg/expand without a
// cycle.
package expand

import (
	"fmt"

	"github.com/tarnsh/tarnsh/pkg/ast"
)

// UnsetParameterError is returned when a nounset shell expands an unset
// parameter, or when a `${name?word}` expansion fires. Per
// spec.md §4.4 this is a fatal task error in a non-interactive shell;
// callers distinguish it with errors.As.
type UnsetParameterError struct {
	Name    string
	Message string
}

func (e *UnsetParameterError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Name, e.Message)
	}
	return fmt.Sprintf("%s: parameter not set", e.Name)
}

// Fields expands w (an argument, a `for` word, or other
// field-splitting-eligible word) into zero or more final strings: tilde,
// parameter/command/arithmetic expansion, field splitting, and pathname
// expansion, quote removal applied throughout.
func Fields(w ast.Word, env Env) ([]string, error) {
	return expandToFields(w, env, false)
}

// AssignmentValue expands w as the right-hand side of an assignment:
// tilde expansion repeats after each unquoted `:`, and the result is a
// single field — no IFS splitting or pathname expansion applies to
// assignment values per spec.md §4.4 item 1 and POSIX §2.6.1.
func AssignmentValue(w ast.Word, env Env) (string, error) {
	tilded := expandTilde(w, env, true)
	pieces, err := toPieces(tilded, env)
	if err != nil {
		return "", err
	}
	var out string
	for _, p := range pieces {
		out += p.text
	}
	return out, nil
}

// Literal expands w (parameter/command/arithmetic expansion only, no
// tilde, no field splitting, no pathname expansion) to a single
// string. Used for contexts spec.md §4.7 exempts from tilde
// expansion entirely, such as here-document body lines — unlike a
// redirect's filename operand, which does take tilde expansion and
// uses AssignmentValue instead.
func Literal(w ast.Word, env Env) (string, error) {
	pieces, err := toPieces(w, env)
	if err != nil {
		return "", err
	}
	return piecesText(pieces), nil
}

// expandToFields runs the full phase pipeline from spec.md §4.4 item
// 1 through 7.
func expandToFields(w ast.Word, env Env, assignment bool) ([]string, error) {
	tilded := expandTilde(w, env, assignment)
	pieces, err := toPieces(tilded, env)
	if err != nil {
		return nil, err
	}

	ifs, splitAtAll := resolveIFS(env)
	fieldPieces := splitFieldsPieces(pieces, ifs, splitAtAll)

	if env.NoGlob() {
		out := make([]string, len(fieldPieces))
		for i, fp := range fieldPieces {
			out[i] = piecesText(fp)
		}
		return out, nil
	}
	return expandPathnames(fieldPieces)
}

func piecesText(pieces []piece) string {
	var out string
	for _, p := range pieces {
		out += p.text
	}
	return out
}
