// Command tarnsh is the thin CLI driver spec.md §1 calls an
// out-of-scope collaborator: flag parsing and wiring only, no shell
// logic of its own. It resolves configuration, builds a ShellState/
// job.Table/trap.Registry, and hands the resulting program (from
// -c, a script file, or stdin) to pkg/task's Driver.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/integrii/flaggy"
	yaml "github.com/jesseduffield/yaml"
	"github.com/sirupsen/logrus"

	"github.com/tarnsh/tarnsh/pkg/ast"
	"github.com/tarnsh/tarnsh/pkg/config"
	"github.com/tarnsh/tarnsh/pkg/job"
	"github.com/tarnsh/tarnsh/pkg/log"
	"github.com/tarnsh/tarnsh/pkg/parser"
	"github.com/tarnsh/tarnsh/pkg/state"
	"github.com/tarnsh/tarnsh/pkg/task"
	"github.com/tarnsh/tarnsh/pkg/termio"
	"github.com/tarnsh/tarnsh/pkg/trap"
)

const defaultVersion = "unversioned"

var (
	version = defaultVersion

	commandString   string
	stdinFlag       bool
	interactiveFlag bool
	debugFlag       bool
	printConfigFlag bool
	longOptions     []string

	allexport bool
	notify    bool
	noclobber bool
	errexit   bool
	noglob    bool
	hashall   bool
	monitor   bool
	noexec    bool
	nounset   bool
	verbose   bool
	xtrace    bool

	scriptFile string
)

// shortOptions mirrors pkg/state's own letter-to-longname table (spec.md
// §4.4's `set -a/-b/-C/-e/-f/-m/-n/-u/-v/-x`); `-h` (hashall) has no
// equivalent longname option in pkg/state since command-path caching
// always happens (pkg/exec's PathCache), so it is accepted for
// compatibility and otherwise a no-op.
var shortOptions = map[string]*bool{
	"allexport": &allexport,
	"notify":    &notify,
	"noclobber": &noclobber,
	"errexit":   &errexit,
	"noglob":    &noglob,
	"monitor":   &monitor,
	"noexec":    &noexec,
	"nounset":   &nounset,
	"verbose":   &verbose,
	"xtrace":    &xtrace,
}

func main() {
	flaggy.SetName("tarnsh")
	flaggy.SetDescription("A POSIX-conformant shell core")
	flaggy.SetVersion(version)

	flaggy.String(&commandString, "c", "command", "Run command_string as a single complete command, then exit")
	flaggy.Bool(&stdinFlag, "s", "stdin", "Read commands from standard input, even with a script argument present")
	flaggy.Bool(&interactiveFlag, "i", "interactive", "Run as an interactive shell")
	flaggy.Bool(&debugFlag, "d", "debug", "Enable debug logging")
	flaggy.Bool(&printConfigFlag, "", "print-config", "Print the default config and exit")
	flaggy.StringSlice(&longOptions, "o", "option", "Set a shell option by its long name (e.g. -o errexit)")

	flaggy.Bool(&allexport, "a", "allexport", "set -a: export every subsequently assigned variable")
	flaggy.Bool(&notify, "b", "notify", "set -b: report background job completion immediately")
	flaggy.Bool(&noclobber, "C", "noclobber", "set -C: disallow clobbering existing files with >")
	flaggy.Bool(&errexit, "e", "errexit", "set -e: exit on an unhandled command failure")
	flaggy.Bool(&noglob, "f", "noglob", "set -f: disable pathname expansion")
	flaggy.Bool(&hashall, "h", "hashall", "set -h: remember command locations (always on; accepted for compatibility)")
	flaggy.Bool(&monitor, "m", "monitor", "set -m: enable job control")
	flaggy.Bool(&noexec, "n", "noexec", "set -n: read commands without executing them")
	flaggy.Bool(&nounset, "u", "nounset", "set -u: treat an unset parameter expansion as an error")
	flaggy.Bool(&verbose, "v", "verbose", "set -v: echo input lines as they are read")
	flaggy.Bool(&xtrace, "x", "xtrace", "set -x: print each command before executing it")

	flaggy.AddPositionalValue(&scriptFile, "script", 1, false, "script file to run")

	flaggy.Parse()

	if printConfigFlag {
		var buf []byte
		enc, err := yaml.Marshal(config.GetDefaultConfig())
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		buf = enc
		fmt.Printf("%s\n", buf)
		os.Exit(0)
	}

	cfg, err := config.NewShellConfig(version, debugFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, "tarnsh:", err)
		os.Exit(1)
	}

	args := buildArgs()
	st := state.New(cfg, args)
	seedPrompts(st, cfg)
	applyOptionFlags(st)
	seedWindowSize(st)
	if interactiveFlag {
		watchWindowSize(st)
	}

	jobs := job.NewTable(int(os.Stdin.Fd()))
	traps := trap.NewRegistry()
	if interactiveFlag {
		// Interactive shells ignore SIGINT by default unless a trap
		// overrides it, per spec.md §4.9; a non-interactive shell keeps
		// the OS default (terminate) so an unhandled Ctrl-C script kill
		// still works the way a pipeline expects.
		if err := traps.Set("INT", trap.ActionIgnore, ""); err != nil {
			fmt.Fprintln(os.Stderr, "tarnsh:", err)
		}
	}

	logger := log.NewLogger(cfg, os.Getpid(), st.Opts.String())
	driver := task.NewDriver(st, jobs, traps)

	status := run(driver, logger)
	logger.WithField("status", status).Debug("tarnsh: run complete")
	finalStatus, _ := traps.FireExit(func(command string) (int, error) {
		prog, err := parser.Parse(command, st.Aliases())
		if err != nil {
			return 1, err
		}
		return driver.RunProgram(prog)
	})
	if finalStatus != 0 {
		status = finalStatus
	}
	os.Exit(status)
}

// buildArgs assembles $0, $1, ... for the top-level call frame: $0 is
// the script path (or "tarnsh" for -c/stdin input), the rest are
// whatever flaggy left over after the script argument.
func buildArgs() []string {
	name := scriptFile
	if name == "" {
		name = "tarnsh"
	}
	rest := flaggy.DefaultParser.TrailingArguments
	return append([]string{name}, rest...)
}

func seedPrompts(st *state.ShellState, cfg *config.ShellConfig) {
	if cfg.UserConfig == nil {
		return
	}
	for name, value := range map[string]string{
		"PS1": cfg.UserConfig.PS1,
		"PS2": cfg.UserConfig.PS2,
		"PS4": cfg.UserConfig.PS4,
	} {
		if _, ok := st.Lookup(name); !ok && value != "" {
			_ = st.Assign(name, value)
		}
	}
}

// seedWindowSize sets $COLUMNS/$LINES from the controlling terminal's
// current size, the way the teacher's streamer.Out.GetTtySize reports
// a hijacked exec session's size to Docker's resize RPC.
func seedWindowSize(st *state.ShellState) {
	cols, lines, ok := termio.New(os.Stdout).Size()
	if !ok {
		return
	}
	_ = st.Assign("COLUMNS", fmt.Sprintf("%d", cols))
	_ = st.Assign("LINES", fmt.Sprintf("%d", lines))
}

// watchWindowSize keeps $COLUMNS/$LINES current across a terminal
// resize, adapted from streamer.Streamer.monitorTtySize's SIGWINCH
// loop (there used to re-issue a container resize RPC; here it just
// re-seeds the two shell variables).
func watchWindowSize(st *state.ShellState) {
	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, syscall.SIGWINCH)
	go func() {
		for range sigch {
			seedWindowSize(st)
		}
	}()
}

func applyOptionFlags(st *state.ShellState) {
	for name, flag := range shortOptions {
		if *flag {
			st.Opts.Set(name, true)
		}
	}
	for _, name := range longOptions {
		st.Opts.Set(name, true)
	}
}

// run dispatches to -c, a script file (unless -s), an interactive
// read-eval loop (-i), or commands read from stdin, in that order.
func run(driver *task.Driver, logger *logrus.Entry) int {
	switch {
	case commandString != "":
		logger.Debug("tarnsh: running -c command string")
		return runSource(driver, commandString)
	case scriptFile != "" && !stdinFlag:
		logger.WithField("script", scriptFile).Debug("tarnsh: running script file")
		src, err := os.ReadFile(scriptFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, "tarnsh:", err)
			return 127
		}
		return runSource(driver, string(src))
	case interactiveFlag:
		logger.Debug("tarnsh: entering interactive read-eval loop")
		return runInteractive(driver, logger)
	default:
		logger.Debug("tarnsh: running standard input as a script")
		src, err := io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintln(os.Stderr, "tarnsh:", err)
			return 1
		}
		return runSource(driver, string(src))
	}
}

func runSource(driver *task.Driver, src string) int {
	prog, err := parser.Parse(src, driver.State.Aliases())
	if err != nil {
		fmt.Fprintln(os.Stderr, "tarnsh:", err)
		return 2
	}
	status, err := driver.RunProgram(prog)
	if err != nil {
		fmt.Fprintln(os.Stderr, "tarnsh:", err)
	}
	if driver.State.PlannedExit != nil {
		return *driver.State.PlannedExit
	}
	return status
}

// runInteractive is a minimal read-eval loop: it reads lines from
// stdin, accumulating them (under PS2) whenever the parser reports an
// unterminated construct — an open here-document, `(`, `{`, or
// if/for/case block — then runs the completed program and prints PS1
// before the next read. Line editing, history, and completion are the
// interactive line-reader front end spec.md §1 calls out of scope; the
// blocking "produce next input chunk" contract it describes is exactly
// what bufio.Scanner.Scan already gives us here.
func runInteractive(driver *task.Driver, logger *logrus.Entry) int {
	status := 0
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		ps1, _ := driver.State.Lookup("PS1")
		fmt.Fprint(os.Stderr, ps1)

		var src strings.Builder
		atEOF := false
		for {
			if !scanner.Scan() {
				atEOF = true
				if src.Len() == 0 {
					return status
				}
			} else {
				src.WriteString(scanner.Text())
				src.WriteByte('\n')
			}

			prog, err := parser.Parse(src.String(), driver.State.Aliases())
			if err == nil {
				status = runParsed(driver, prog)
				if driver.State.PlannedExit != nil {
					return *driver.State.PlannedExit
				}
				break
			}
			if atEOF || !strings.Contains(err.Error(), "unexpected end of input") {
				fmt.Fprintln(os.Stderr, "tarnsh:", err)
				logger.WithError(err).Debug("tarnsh: parse error, abandoning complete command")
				break
			}
			ps2, _ := driver.State.Lookup("PS2")
			fmt.Fprint(os.Stderr, ps2)
		}
		if atEOF {
			return status
		}
	}
}

func runParsed(driver *task.Driver, prog *ast.Program) int {
	status, err := driver.RunProgram(prog)
	if err != nil {
		fmt.Fprintln(os.Stderr, "tarnsh:", err)
	}
	return status
}
