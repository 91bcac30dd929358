// Package state owns the shell's mutable root (spec.md §3's
// ShellState): variables, functions, aliases, the call-frame stack,
// options, and the bookkeeping pkg/expand's Env interface needs.
// Job/process tables live in pkg/job instead of here, to avoid a
// pkg/state<->pkg/job import cycle (pkg/task composes both); ShellState
// only keeps the small cross-cutting fields (current foreground job id,
// last background pid) those packages need to publish back.
package state

import (
	"os"
	"strconv"
	"strings"

	"github.com/tarnsh/tarnsh/pkg/ast"
	"github.com/tarnsh/tarnsh/pkg/config"
)

// CommandSubstitutionRunner executes prog as `$(...)`/backtick output
// capture and returns its stdout. Supplied by the embedder (pkg/task's
// driver) after construction, since running a program task tree is the
// driver's job, not shell-state's — this is the same Env-decoupling
// pattern pkg/expand uses for its own interface.
type CommandSubstitutionRunner func(prog *ast.Program) (string, error)

// ShellState is the root object spec.md §3 describes.
type ShellState struct {
	vars      map[string]*Variable
	functions map[string]ast.Command
	aliases   map[string]string

	frames []*CallFrame

	Opts *Options

	LastExitStatus int
	PlannedExit    *int // non-nil once `exit` has been requested

	ShellPGID            int
	CurrentForegroundJob int // 0 if none
	LastBgPID            int
	CurrentLine          int
	ChildShell           bool

	Runner CommandSubstitutionRunner
}

// New builds a ShellState seeded from the process environment (every
// inherited variable starts AttrExport) and cfg's defaults, with args
// as $0, $1, ... for the top-level frame.
func New(cfg *config.ShellConfig, args []string) *ShellState {
	s := &ShellState{
		vars:      map[string]*Variable{},
		functions: map[string]ast.Command{},
		aliases:   map[string]string{},
		Opts:      newOptions(),
		ShellPGID: os.Getpid(),
	}

	for _, kv := range os.Environ() {
		i := strings.IndexByte(kv, '=')
		if i < 0 {
			continue
		}
		s.vars[kv[:i]] = &Variable{Value: kv[i+1:], Attr: AttrExport}
	}

	if cfg != nil && cfg.UserConfig != nil {
		if _, ok := s.vars["IFS"]; !ok {
			s.vars["IFS"] = &Variable{Value: cfg.UserConfig.IFS}
		}
		for _, opt := range cfg.UserConfig.Options {
			s.Opts.Set(opt, true)
		}
	}

	s.frames = []*CallFrame{newShellFrame(args)}
	return s
}

func (s *ShellState) frame() *CallFrame {
	return s.frames[len(s.frames)-1]
}

// PushFrame enters a function/`.`/`eval` call with its own positional
// parameters; PopFrame leaves it. The shell-level frame (index 0) is
// never popped by callers that follow the push/pop discipline.
func (s *ShellState) PushFrame(functionName string, args []string) {
	s.frames = append(s.frames, &CallFrame{FunctionName: functionName, Args: args})
}

func (s *ShellState) PopFrame() {
	if len(s.frames) > 1 {
		s.frames = s.frames[:len(s.frames)-1]
	}
}

func (s *ShellState) CurrentFrame() *CallFrame { return s.frame() }

// Lookup implements pkg/expand.Env: ordinary variable lookup. Special
// parameters (#, ?, -, $, !, LINENO, positional digits, @, *) are
// handled by pkg/expand itself via the Env interface's other methods,
// never routed through Lookup.
func (s *ShellState) Lookup(name string) (string, bool) {
	v, ok := s.vars[name]
	if !ok {
		return "", false
	}
	return v.Value, true
}

// Assign implements pkg/expand.Env. allexport promotes every new/
// updated variable to exported, per spec.md §4.5's Assignment task
// contract.
func (s *ShellState) Assign(name, value string) error {
	if v, ok := s.vars[name]; ok && v.ReadOnly() {
		return &ReadOnlyError{Name: name}
	}
	attr := VarAttr(0)
	if v, ok := s.vars[name]; ok {
		attr = v.Attr
	}
	if s.Opts.IsSet("allexport") {
		attr |= AttrExport
	}
	s.vars[name] = &Variable{Value: value, Attr: attr}
	return nil
}

// ReadOnlyError is returned by Assign when name's AttrReadOnly bit is
// set, per spec.md §3's invariant.
type ReadOnlyError struct{ Name string }

func (e *ReadOnlyError) Error() string { return e.Name + ": readonly variable" }

// Export and MarkReadOnly implement the `export`/`readonly` built-ins'
// effect on the variable table (the built-ins themselves are out of
// scope; pkg/exec calls these once it dispatches one).
func (s *ShellState) Export(name string, on bool) {
	v, ok := s.vars[name]
	if !ok {
		v = &Variable{}
		s.vars[name] = v
	}
	if on {
		v.Attr |= AttrExport
	} else {
		v.Attr &^= AttrExport
	}
}

func (s *ShellState) MarkReadOnly(name string) {
	v, ok := s.vars[name]
	if !ok {
		v = &Variable{}
		s.vars[name] = v
	}
	v.Attr |= AttrReadOnly
}

// Unset removes name entirely (readonly variables cannot be unset,
// mirrored by the caller checking ReadOnly() first).
func (s *ShellState) Unset(name string) {
	delete(s.vars, name)
}

// ExportedEnviron returns the `name=value` pairs to hand a forked
// child, per spec.md §3's "exported variables are copied into each
// child process's environment."
func (s *ShellState) ExportedEnviron() []string {
	var out []string
	for name, v := range s.vars {
		if v.Exported() {
			out = append(out, name+"="+v.Value)
		}
	}
	return out
}

// Positional implements pkg/expand.Env: the current call frame's
// argv, not the shell's original argv once a function has been
// entered.
func (s *ShellState) Positional() []string {
	return s.frame().Args
}

func (s *ShellState) SetPositional(args []string) {
	s.frame().Args = args
}

// ExitStatus, ShellPID, LastBackgroundPID, Line, IFS, NoUnset, NoGlob,
// Options, and RunCommandSubstitution implement pkg/expand.Env.

func (s *ShellState) ExitStatus() int { return s.LastExitStatus }

func (s *ShellState) ShellPID() int { return os.Getpid() }

func (s *ShellState) LastBackgroundPID() int { return s.LastBgPID }

func (s *ShellState) Line() int { return s.CurrentLine }

func (s *ShellState) IFS() (string, bool) {
	return s.Lookup("IFS")
}

func (s *ShellState) NoUnset() bool { return s.Opts.IsSet("nounset") }

func (s *ShellState) NoGlob() bool { return s.Opts.IsSet("noglob") }

// Options renders $-, per spec.md §4.4's `-` special parameter.
func (s *ShellState) Options() string { return s.Opts.String() }

func (s *ShellState) RunCommandSubstitution(prog *ast.Program) (string, error) {
	if s.Runner == nil {
		return "", nil
	}
	return s.Runner(prog)
}

// Function and SetFunction back pkg/exec's function dispatch
// (spec.md §4.6): bodies are deep-copied in per the FunctionDefinition
// task's contract, so callers never share AST nodes across invocations.
func (s *ShellState) Function(name string) (ast.Command, bool) {
	c, ok := s.functions[name]
	return c, ok
}

func (s *ShellState) SetFunction(name string, body ast.Command) {
	s.functions[name] = body.CopyCommand()
}

// UnsetFunction implements `unset -f`.
func (s *ShellState) UnsetFunction(name string) {
	delete(s.functions, name)
}

// LineNoString is a small convenience for rendering $LINENO as text
// outside the Env interface (e.g. in prompt expansion).
func (s *ShellState) LineNoString() string {
	return strconv.Itoa(s.CurrentLine)
}

// Clone returns an independent copy of s for a subshell environment
// (spec.md §4.5's Subshell task, and each non-last stage of a
// pipeline): variables, functions, aliases, options, and the call
// frame stack are all deep-copied so the subshell's assignments,
// function and alias definitions, and option changes never reach back
// into the parent. Trap settings live in the trap registry, not in
// ShellState, so they are not copied and stay shared. ChildShell
// is set on the copy so nested subshell/exit bookkeeping can tell it
// apart from the top-level shell.
func (s *ShellState) Clone() *ShellState {
	c := &ShellState{
		vars:                 make(map[string]*Variable, len(s.vars)),
		functions:            make(map[string]ast.Command, len(s.functions)),
		aliases:              make(map[string]string, len(s.aliases)),
		Opts:                 newOptions(),
		LastExitStatus:       s.LastExitStatus,
		ShellPGID:            s.ShellPGID,
		CurrentForegroundJob: s.CurrentForegroundJob,
		LastBgPID:            s.LastBgPID,
		CurrentLine:          s.CurrentLine,
		ChildShell:           true,
		Runner:               s.Runner,
	}
	for name, v := range s.vars {
		cv := *v
		c.vars[name] = &cv
	}
	for name, body := range s.functions {
		c.functions[name] = body.CopyCommand()
	}
	for name, v := range s.aliases {
		c.aliases[name] = v
	}
	for name, on := range s.Opts.set {
		c.Opts.Set(name, on)
	}
	c.frames = make([]*CallFrame, len(s.frames))
	for i, f := range s.frames {
		cf := *f
		if f.Args != nil {
			cf.Args = append([]string(nil), f.Args...)
		}
		c.frames[i] = &cf
	}
	return c
}
