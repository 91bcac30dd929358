package expand

import "github.com/tarnsh/tarnsh/pkg/ast"

// Env is the contract pkg/expand needs from the rest of the shell:
// variable storage, the special parameters of spec.md §4.4 item 2, and a
// hook back into the task framework to run a command substitution's
// embedded program. pkg/state implements the storage half; pkg/task
// (via pkg/exec) implements RunCommandSubstitution.
type Env interface {
	// Lookup returns a plain (non-special, non-positional) variable's
	// value. ok is false if the variable is unset.
	Lookup(name string) (value string, ok bool)

	// Assign implements `${name=word}` and `${name:=word}`'s
	// side-effecting default-assignment.
	Assign(name, value string) error

	// Positional returns the current positional parameters, $1.. in
	// order ($0 is the shell/script/function name and is not included).
	Positional() []string

	// ExitStatus is $?, the most recently completed command's exit
	// status.
	ExitStatus() int

	// Options is $-, the current option letters as a short string
	// (e.g. "ex" for -e -x).
	Options() string

	// ShellPID is $$, the process ID of the shell itself.
	ShellPID() int

	// LastBackgroundPID is $!, the PID of the most recently started
	// background (`&`) command, or 0 if none has run yet.
	LastBackgroundPID() int

	// Line is $LINENO, the source line of the word being expanded.
	Line() int

	// IFS returns the current value of $IFS and whether it is set at
	// all (an unset IFS defaults to " \t\n"; an IFS set to the empty
	// string disables field splitting entirely).
	IFS() (value string, set bool)

	// NoUnset reports whether the `nounset` option is active: an unset
	// parameter expansion becomes a fatal UnsetParameterError instead of
	// expanding to an empty string.
	NoUnset() bool

	// NoGlob reports whether the `noglob` option is active, disabling
	// pathname expansion.
	NoGlob() bool

	// RunCommandSubstitution forks a subshell, runs prog with its
	// stdout captured, and returns the captured output. The caller
	// trims trailing newlines itself (spec.md §4.4 item 3), so an
	// implementation may return the raw capture.
	RunCommandSubstitution(prog *ast.Program) (output string, err error)
}
