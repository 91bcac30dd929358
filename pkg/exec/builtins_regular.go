package exec

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"golang.org/x/sys/unix"

	"github.com/tarnsh/tarnsh/pkg/termio"
)

// regularBuiltins is spec.md §4.6's regular built-in table: these
// behave like external commands for most purposes (a function of the
// same name takes precedence, assignments before them are scoped to
// just this call) but skip the fork/exec round trip.
var regularBuiltins = map[string]builtinFunc{
	"echo":    echoBuiltin,
	"true":    trueBuiltin,
	"false":   falseBuiltin,
	"test":    testBuiltin,
	"[":       bracketBuiltin,
	"wait":    waitBuiltin,
	"jobs":    jobsBuiltin,
	"fg":      fgBuiltin,
	"bg":      bgBuiltin,
	"read":    readBuiltin,
	"pwd":     pwdBuiltin,
	"printf":  printfBuiltin,
	"alias":   aliasBuiltin,
	"unalias": unaliasBuiltin,
	"umask":   umaskBuiltin,
	"hash":    hashBuiltin,
	"getopts": getoptsBuiltin,
	"type":    typeBuiltin,
}

func trueBuiltin(d *Dispatcher, args []string) (int, error)  { return 0, nil }
func falseBuiltin(d *Dispatcher, args []string) (int, error) { return 1, nil }

// echoBuiltin supports the `-n` (no trailing newline) and `-e`
// (backslash escapes) flags most shells' echo agree on.
func echoBuiltin(d *Dispatcher, args []string) (int, error) {
	newline := true
	interpret := false
	for len(args) > 0 {
		switch args[0] {
		case "-n":
			newline = false
		case "-e":
			interpret = true
		case "-E":
			interpret = false
		default:
			goto words
		}
		args = args[1:]
	}
words:
	out := strings.Join(args, " ")
	if interpret {
		out = interpretEscapes(out)
	}
	fmt.Fprint(d.Stdout, out)
	if newline {
		fmt.Fprintln(d.Stdout)
	}
	return 0, nil
}

func interpretEscapes(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 >= len(s) {
			b.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '\\':
			b.WriteByte('\\')
		case 'a':
			b.WriteByte('\a')
		case 'c':
			return b.String()
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

func printfBuiltin(d *Dispatcher, args []string) (int, error) {
	if len(args) == 0 {
		fmt.Fprintln(d.Stderr, "printf: usage: printf format [arguments]")
		return 2, nil
	}
	format := args[0]
	values := args[1:]
	out := renderPrintfFormat(format, values)
	fmt.Fprint(d.Stdout, out)
	return 0, nil
}

// renderPrintfFormat reapplies format to successive slices of values
// until all are consumed (POSIX printf's cycling rule), falling back
// to a single pass when format has no conversions to consume a value.
func renderPrintfFormat(format string, values []string) string {
	var out strings.Builder
	consumed := -1
	for {
		next := expandOnePrintfPass(format, values, &consumed)
		out.WriteString(next)
		if consumed >= len(values) || consumed == 0 {
			break
		}
		values = values[consumed:]
		consumed = -1
	}
	return out.String()
}

func expandOnePrintfPass(format string, values []string, consumed *int) string {
	var out strings.Builder
	vi := 0
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' || i+1 >= len(format) {
			out.WriteByte(c)
			continue
		}
		i++
		spec := format[i]
		switch spec {
		case '%':
			out.WriteByte('%')
		case 's':
			out.WriteString(printfArg(values, vi))
			vi++
		case 'd', 'i':
			n, _ := strconv.Atoi(printfArg(values, vi))
			fmt.Fprintf(&out, "%d", n)
			vi++
		case 'b':
			out.WriteString(interpretEscapes(printfArg(values, vi)))
			vi++
		default:
			out.WriteByte('%')
			out.WriteByte(format[i])
		}
	}
	*consumed = vi
	return out.String()
}

func printfArg(values []string, i int) string {
	if i < len(values) {
		return values[i]
	}
	return ""
}

func pwdBuiltin(d *Dispatcher, args []string) (int, error) {
	wd, err := os.Getwd()
	if err != nil {
		fmt.Fprintln(d.Stderr, err)
		return 1, nil
	}
	fmt.Fprintln(d.Stdout, wd)
	return 0, nil
}

func readBuiltin(d *Dispatcher, args []string) (int, error) {
	silent := false
	for len(args) > 0 && args[0] == "-s" {
		silent = true
		args = args[1:]
	}
	if len(args) == 0 {
		args = []string{"REPLY"}
	}

	if silent {
		if f, ok := d.Stdin.(*os.File); ok {
			restore, err := termio.New(f).DisableEcho()
			if err != nil {
				fmt.Fprintln(d.Stderr, "read:", err)
			} else {
				defer restore()
			}
		}
	}

	reader := bufio.NewReader(d.Stdin)
	line, err := reader.ReadString('\n')
	line = strings.TrimRight(line, "\n")
	if err != nil && line == "" {
		return 1, nil
	}

	ifs, ok := d.State.IFS()
	if !ok {
		ifs = " \t\n"
	}
	fields := strings.FieldsFunc(line, func(r rune) bool {
		return strings.ContainsRune(ifs, r)
	})

	for i, name := range args {
		var value string
		if i == len(args)-1 {
			if i < len(fields) {
				value = strings.Join(fields[i:], " ")
			}
		} else if i < len(fields) {
			value = fields[i]
		}
		if err := d.State.Assign(name, value); err != nil {
			fmt.Fprintln(d.Stderr, err)
			return 1, nil
		}
	}
	return 0, nil
}

func aliasBuiltin(d *Dispatcher, args []string) (int, error) {
	if len(args) == 0 {
		return 0, nil
	}
	status := 0
	for _, a := range args {
		name, value, hasValue := strings.Cut(a, "=")
		if hasValue {
			d.State.SetAlias(name, value)
			continue
		}
		if v, ok := d.State.Aliases().Lookup(name); ok {
			fmt.Fprintf(d.Stdout, "alias %s='%s'\n", name, v)
		} else {
			fmt.Fprintf(d.Stderr, "alias: %s: not found\n", name)
			status = 1
		}
	}
	return status, nil
}

func unaliasBuiltin(d *Dispatcher, args []string) (int, error) {
	for _, a := range args {
		d.State.Unalias(a)
	}
	return 0, nil
}

// umaskBuiltin reports or sets the process umask, which pkg/redirect's
// file-creation paths inherit automatically via the kernel (a Go
// process's umask is genuinely global, so there is nothing else to
// thread through the redirect engine for this to take effect).
func umaskBuiltin(d *Dispatcher, args []string) (int, error) {
	if len(args) == 0 {
		old := unix.Umask(0)
		unix.Umask(old)
		fmt.Fprintf(d.Stdout, "%04o\n", old)
		return 0, nil
	}
	mode, err := strconv.ParseUint(args[0], 8, 32)
	if err != nil {
		fmt.Fprintf(d.Stderr, "umask: %s: octal number required\n", args[0])
		return 1, nil
	}
	unix.Umask(int(mode))
	return 0, nil
}

func hashBuiltin(d *Dispatcher, args []string) (int, error) {
	for i, a := range args {
		switch {
		case a == "-r":
			d.Paths.Clear()
			return 0, nil
		case strings.HasPrefix(a, "-d"):
			// -d name (possibly joined, e.g. "-dname")
			name := strings.TrimPrefix(a, "-d")
			if name == "" && i+1 < len(args) {
				name = args[i+1]
			}
			d.Paths.Forget(name)
			return 0, nil
		}
	}
	names := lo.Keys(d.Paths.Hashed())
	sort.Strings(names)
	hashed := d.Paths.Hashed()
	for _, name := range names {
		fmt.Fprintf(d.Stdout, "%s\t%s\n", name, hashed[name])
	}
	return 0, nil
}

// getoptsBuiltin is spec.md §4.12's supplemented option-parsing
// built-in: OPTIND/OPTARG live as ordinary shell variables so a
// script's own `$OPTIND` reads stay consistent with this built-in's
// updates to it.
func getoptsBuiltin(d *Dispatcher, args []string) (int, error) {
	if len(args) < 2 {
		fmt.Fprintln(d.Stderr, "getopts: usage: getopts optstring name [arg ...]")
		return 2, nil
	}
	optstring := args[0]
	name := args[1]
	operands := args[2:]
	if len(operands) == 0 {
		operands = d.State.Positional()
	}

	optindStr, _ := d.State.Lookup("OPTIND")
	optind, _ := strconv.Atoi(optindStr)
	if optind < 1 {
		optind = 1
	}

	if optind-1 >= len(operands) {
		d.State.Assign(name, "?")
		return 1, nil
	}
	arg := operands[optind-1]
	if len(arg) < 2 || arg[0] != '-' || arg == "--" {
		if arg == "--" {
			d.State.Assign("OPTIND", strconv.Itoa(optind+1))
		}
		d.State.Assign(name, "?")
		return 1, nil
	}

	opt := arg[1]
	idx := strings.IndexByte(optstring, opt)
	if idx < 0 {
		d.State.Assign(name, "?")
		d.State.Assign("OPTARG", string(opt))
		d.State.Assign("OPTIND", strconv.Itoa(optind+1))
		return 0, nil
	}

	d.State.Assign(name, string(opt))
	if idx+1 < len(optstring) && optstring[idx+1] == ':' {
		if len(arg) > 2 {
			d.State.Assign("OPTARG", arg[2:])
			d.State.Assign("OPTIND", strconv.Itoa(optind+1))
		} else if optind < len(operands) {
			d.State.Assign("OPTARG", operands[optind])
			d.State.Assign("OPTIND", strconv.Itoa(optind+2))
		} else {
			d.State.Assign(name, "?")
			d.State.Assign("OPTIND", strconv.Itoa(optind+1))
			return 0, nil
		}
	} else {
		d.State.Assign("OPTIND", strconv.Itoa(optind+1))
	}
	return 0, nil
}

// typeBuiltin implements `type name...`, reporting each name's
// resolution category: function, built-in, hashed/PATH external, or
// unknown, per the precedence order Run itself dispatches in.
func typeBuiltin(d *Dispatcher, args []string) (int, error) {
	status := 0
	for _, name := range args {
		switch {
		case func() bool { _, ok := d.State.Function(name); return ok }():
			fmt.Fprintf(d.Stdout, "%s is a function\n", name)
		case isSpecialBuiltin(name):
			fmt.Fprintf(d.Stdout, "%s is a shell builtin\n", name)
		case isRegularBuiltin(name):
			fmt.Fprintf(d.Stdout, "%s is a shell builtin\n", name)
		default:
			if path, ok := d.Paths.Lookup(name, d.pathVar()); ok {
				fmt.Fprintf(d.Stdout, "%s is %s\n", name, path)
			} else {
				fmt.Fprintf(d.Stderr, "%s: not found\n", name)
				status = 1
			}
		}
	}
	return status, nil
}

func isSpecialBuiltin(name string) bool {
	_, ok := specialBuiltins[name]
	return ok || name == "exec"
}

func isRegularBuiltin(name string) bool {
	_, ok := regularBuiltins[name]
	return ok
}
