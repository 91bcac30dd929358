package exec

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/tarnsh/tarnsh/pkg/ast"
	"github.com/tarnsh/tarnsh/pkg/parser"
	"github.com/tarnsh/tarnsh/pkg/state"
	"github.com/tarnsh/tarnsh/pkg/trap"
)

// specialBuiltins is spec.md §4.6's special built-in table: assignments
// before a special built-in persist after it, its redirects are undone
// once it returns, and Run looks up a user function of the same name
// before consulting this table.
var specialBuiltins = map[string]builtinFunc{
	":":        colonBuiltin,
	"export":   exportBuiltin,
	"readonly": readonlyBuiltin,
	".":        dotBuiltin,
	"break":    breakBuiltin,
	"continue": continueBuiltin,
	"return":   returnBuiltin,
	"set":      setBuiltin,
	"shift":    shiftBuiltin,
	"trap":     trapBuiltin,
	"eval":     evalBuiltin,
	"unset":    unsetBuiltin,
	"times":    timesBuiltin,
	"exit":     exitBuiltin,
}

func colonBuiltin(d *Dispatcher, args []string) (int, error) { return 0, nil }

// exitBuiltin returns ExitRequest as its error, which every level of
// the task driver's poll loop recognizes via errors.As and unwinds to
// immediately, per spec.md §4.5/§4.9 — unlike `exec`, it needs no
// special dispatch in Run since its redirects can be popped normally.
func exitBuiltin(d *Dispatcher, args []string) (int, error) {
	code := d.State.LastExitStatus
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			fmt.Fprintf(d.Stderr, "exit: %s: numeric argument required\n", args[0])
			code = 2
		} else {
			code = n & 0xff
		}
	}
	d.State.PlannedExit = &code
	return code, &ExitRequest{Code: code}
}

func exportBuiltin(d *Dispatcher, args []string) (int, error) {
	if len(args) == 0 || args[0] == "-p" {
		for _, kv := range d.State.ExportedEnviron() {
			fmt.Fprintf(d.Stdout, "export %s\n", kv)
		}
		return 0, nil
	}
	for _, a := range args {
		if a == "-p" {
			continue
		}
		name, value, hasValue := strings.Cut(a, "=")
		if hasValue {
			if err := d.State.Assign(name, value); err != nil {
				fmt.Fprintln(d.Stderr, err)
				return 1, nil
			}
		}
		d.State.Export(name, true)
	}
	return 0, nil
}

func readonlyBuiltin(d *Dispatcher, args []string) (int, error) {
	for _, a := range args {
		if a == "-p" {
			continue
		}
		name, value, hasValue := strings.Cut(a, "=")
		if hasValue {
			if err := d.State.Assign(name, value); err != nil {
				fmt.Fprintln(d.Stderr, err)
				return 1, nil
			}
		}
		d.State.MarkReadOnly(name)
	}
	return 0, nil
}

// dotBuiltin implements `. file [args...]`: the file's program runs in
// the CURRENT call frame (no PushFrame), per POSIX — unlike a function
// call, a sourced script shares the caller's scope.
func dotBuiltin(d *Dispatcher, args []string) (int, error) {
	if len(args) == 0 {
		fmt.Fprintln(d.Stderr, ".: filename argument required")
		return 2, nil
	}
	path, ok := d.Paths.Lookup(args[0], d.pathVar())
	if !ok {
		path = args[0]
	}
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(d.Stderr, ".: %s: %s\n", args[0], err)
		return 1, nil
	}

	prog, err := parser.Parse(string(src), d.State.Aliases())
	if err != nil {
		fmt.Fprintf(d.Stderr, ".: %s: %s\n", args[0], err)
		return 2, nil
	}

	if len(args) > 1 {
		saved := d.State.Positional()
		d.State.SetPositional(args[1:])
		defer d.State.SetPositional(saved)
	}

	return d.Runner.RunProgram(prog)
}

// breakBuiltin sets the current frame's branch signal; pkg/task's
// LoopClause/ForClause runners decrement BranchLevel
// and stop unwinding once it reaches zero, per spec.md §4.5.
func breakBuiltin(d *Dispatcher, args []string) (int, error) {
	n := branchLevel(args)
	frame := d.State.CurrentFrame()
	frame.Branch = state.BranchBreak
	frame.BranchLevel = n
	return 0, nil
}

func continueBuiltin(d *Dispatcher, args []string) (int, error) {
	n := branchLevel(args)
	frame := d.State.CurrentFrame()
	frame.Branch = state.BranchContinue
	frame.BranchLevel = n
	return 0, nil
}

func branchLevel(args []string) int {
	if len(args) == 0 {
		return 1
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// returnBuiltin sets BranchReturn with the function's exit status
// riding in BranchLevel; runFunction picks it back up once the
// Runner's RunCommand call for the function body unwinds to it.
func returnBuiltin(d *Dispatcher, args []string) (int, error) {
	status := d.State.LastExitStatus
	if len(args) > 0 {
		if n, err := strconv.Atoi(args[0]); err == nil {
			status = n & 0xff
		}
	}
	frame := d.State.CurrentFrame()
	frame.Branch = state.BranchReturn
	frame.BranchLevel = status
	return status, nil
}

// setBuiltin implements the subset of `set` spec.md §4.6/§4.9 actually
// exercises: -o/+o long-named options, the short letters in
// optionLetter, `--`, and replacing the positional parameters.
func setBuiltin(d *Dispatcher, args []string) (int, error) {
	i := 0
	for ; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "--":
			i++
			goto positional
		case a == "-o" && i+1 < len(args):
			i++
			d.State.Opts.Set(args[i], true)
		case a == "+o" && i+1 < len(args):
			i++
			d.State.Opts.Set(args[i], false)
		case strings.HasPrefix(a, "-") && a != "-":
			for _, c := range a[1:] {
				if name := optionNameForLetter(byte(c)); name != "" {
					d.State.Opts.Set(name, true)
				}
			}
		case strings.HasPrefix(a, "+") && a != "+":
			for _, c := range a[1:] {
				if name := optionNameForLetter(byte(c)); name != "" {
					d.State.Opts.Set(name, false)
				}
			}
		default:
			goto positional
		}
	}
positional:
	if i < len(args) {
		d.State.SetPositional(args[i:])
	}
	return 0, nil
}

func optionNameForLetter(c byte) string {
	switch c {
	case 'a':
		return "allexport"
	case 'b':
		return "notify"
	case 'C':
		return "noclobber"
	case 'e':
		return "errexit"
	case 'f':
		return "noglob"
	case 'm':
		return "monitor"
	case 'n':
		return "noexec"
	case 'u':
		return "nounset"
	case 'v':
		return "verbose"
	case 'x':
		return "xtrace"
	}
	return ""
}

func shiftBuiltin(d *Dispatcher, args []string) (int, error) {
	n := 1
	if len(args) > 0 {
		v, err := strconv.Atoi(args[0])
		if err != nil || v < 0 {
			fmt.Fprintln(d.Stderr, "shift: bad shift count")
			return 1, nil
		}
		n = v
	}
	pos := d.State.Positional()
	if n > len(pos) {
		return 1, nil
	}
	d.State.SetPositional(pos[n:])
	return 0, nil
}

// trapBuiltin implements `trap`, `trap -p`, `trap -- action sig...`,
// and `trap sig...` (reset to default), over pkg/trap.Registry.
func trapBuiltin(d *Dispatcher, args []string) (int, error) {
	if len(args) == 0 {
		for name, cmd := range d.Traps.All() {
			fmt.Fprintf(d.Stdout, "trap -- %q %s\n", cmd, name)
		}
		return 0, nil
	}
	if args[0] == "-p" {
		sigs := args[1:]
		if len(sigs) == 0 {
			for name, cmd := range d.Traps.All() {
				fmt.Fprintf(d.Stdout, "trap -- %q %s\n", cmd, name)
			}
			return 0, nil
		}
		for _, s := range sigs {
			action, cmd := d.Traps.Get(s)
			if action == trap.ActionCommand {
				fmt.Fprintf(d.Stdout, "trap -- %q %s\n", cmd, s)
			}
		}
		return 0, nil
	}

	first := args[0]
	sigs := args[1:]
	if first == "--" {
		if len(sigs) == 0 {
			fmt.Fprintln(d.Stderr, "trap: usage: trap [-- action] sigspec ...")
			return 2, nil
		}
		first = sigs[0]
		sigs = sigs[1:]
		return applyTrapAction(d, first, sigs)
	}

	if isAllDigits(first) {
		// No action given, every arg is a signal: reset to default.
		return applyTrapAction(d, "", args)
	}
	return applyTrapAction(d, first, sigs)
}

func applyTrapAction(d *Dispatcher, action string, sigs []string) (int, error) {
	if len(sigs) == 0 {
		fmt.Fprintln(d.Stderr, "trap: usage: trap [-lp] [[arg] signal_spec ...]")
		return 2, nil
	}
	var a trap.Action
	switch action {
	case "":
		a = trap.ActionDefault
	case "-":
		a = trap.ActionIgnore // historical ksh idiom; same table slot as ignore below
	case "''":
		a = trap.ActionIgnore
	default:
		a = trap.ActionCommand
	}
	for _, s := range sigs {
		if err := d.Traps.Set(s, a, action); err != nil {
			fmt.Fprintln(d.Stderr, err)
			return 1, nil
		}
	}
	return 0, nil
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// evalBuiltin re-lexes/parses its arguments joined by a space and runs
// the resulting program in the current frame, per spec.md §4.6.
func evalBuiltin(d *Dispatcher, args []string) (int, error) {
	src := strings.Join(args, " ")
	if strings.TrimSpace(src) == "" {
		return 0, nil
	}
	prog, err := parser.Parse(src, d.State.Aliases())
	if err != nil {
		fmt.Fprintf(d.Stderr, "eval: %s\n", err)
		return 2, nil
	}
	return d.Runner.RunProgram(prog)
}

func unsetBuiltin(d *Dispatcher, args []string) (int, error) {
	functionOnly := false
	for _, a := range args {
		switch a {
		case "-f":
			functionOnly = true
			continue
		case "-v":
			functionOnly = false
			continue
		}
		if functionOnly {
			d.State.UnsetFunction(a)
		} else {
			d.State.Unset(a)
		}
	}
	return 0, nil
}

func timesBuiltin(d *Dispatcher, args []string) (int, error) {
	var self, children syscall.Rusage
	_ = syscall.Getrusage(syscall.RUSAGE_SELF, &self)
	_ = syscall.Getrusage(syscall.RUSAGE_CHILDREN, &children)
	fmt.Fprintf(d.Stdout, "%s\n%s\n", rusageLine(&self), rusageLine(&children))
	return 0, nil
}

func rusageLine(r *syscall.Rusage) string {
	user := float64(r.Utime.Sec) + float64(r.Utime.Usec)/1e6
	sys := float64(r.Stime.Sec) + float64(r.Stime.Usec)/1e6
	return fmt.Sprintf("%dm%.3fs %dm%.3fs", int(user)/60, mod60(user), int(sys)/60, mod60(sys))
}

func mod60(seconds float64) float64 {
	whole := int(seconds) / 60 * 60
	return seconds - float64(whole)
}

// execBuiltin implements `exec [command [args...]] [redirects]`: with
// a command, it replaces this process image entirely (no fork, no
// return on success, per spec.md §4.6); with none, its redirects
// attach to the shell permanently instead of being popped the way
// every other built-in's are — Run routes here directly rather than
// through the generic Push/defer-Pop dispatch for that reason.
func execBuiltin(d *Dispatcher, args []string, redirects []*ast.IoRedirect) (int, error) {
	if len(args) == 0 {
		if _, err := d.Redir.Push(redirects, d.State, d.State.Opts.IsSet("noclobber")); err != nil {
			fmt.Fprintln(d.Stderr, err)
			return 1, nil
		}
		return 0, nil
	}

	name := args[0]
	path, ok := d.Paths.Lookup(name, d.pathVar())
	if !ok {
		fmt.Fprintf(d.Stderr, "%s: command not found\n", name)
		return 127, nil
	}

	cio, err := d.Redir.ForChild(redirects, d.State, d.State.Opts.IsSet("noclobber"))
	if err != nil {
		fmt.Fprintln(d.Stderr, err)
		return 1, nil
	}
	// A real in-place exec cannot keep the parent's extra redirect fds
	// around under different numbers the way a forked child's
	// ExtraFiles convention does, so only stdin/stdout/stderr are
	// re-pointed onto 0/1/2 before the syscall.Exec; fd>=3 redirects on
	// a replacing `exec` are a rare enough case to leave unsupported.
	redirectStdFD(0, cio.Stdin)
	redirectStdFD(1, cio.Stdout)
	redirectStdFD(2, cio.Stderr)

	argv := append([]string{name}, args[1:]...)
	err = syscall.Exec(path, argv, d.State.ExportedEnviron())
	fmt.Fprintf(d.Stderr, "%s: %s\n", name, err)
	return 126, nil
}

func redirectStdFD(fd int, f *os.File) {
	if f == nil {
		return
	}
	_ = syscall.Dup2(int(f.Fd()), fd)
}
