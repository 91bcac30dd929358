// Package trap is the trap registry of spec.md §4.9: a per-signal
// action table (default disposition, ignore, or a command to run),
// fed by a channel `os/signal.Notify` delivers to so the rest of the
// shell never runs inside an actual signal handler — Go already does
// the async-signal-safety work libc's sigaction/siginfo dance exists
// for. The task driver drains pending signals and dispatches their
// commands at task boundaries, never mid-task.
package trap

import (
	"fmt"
	"os"
	"os/signal"

	deadlock "github.com/sasha-s/go-deadlock"
)

type Action int

const (
	ActionDefault Action = iota
	ActionIgnore
	ActionCommand
)

type entry struct {
	action  Action
	command string
}

// Registry is the per-signal trap table, EXIT included as a
// pseudo-signal that is never `signal.Notify`'d (it fires via FireExit
// instead, from the shell's own shutdown path).
type Registry struct {
	mu      deadlock.Mutex
	actions map[string]*entry

	sigCh    chan os.Signal
	watching map[string]bool

	exitFired bool
}

func NewRegistry() *Registry {
	return &Registry{
		actions:  map[string]*entry{},
		sigCh:    make(chan os.Signal, 64),
		watching: map[string]bool{},
	}
}

// Set installs action for sig (e.g. "INT", "SIGTERM", "EXIT"); an
// empty command is only valid with ActionDefault/ActionIgnore.
func (r *Registry) Set(sig string, action Action, command string) error {
	name := normalize(sig)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.actions[name] = &entry{action: action, command: command}

	if name == "EXIT" || name == "ERR" || name == "DEBUG" {
		// Pseudo-signals have no OS disposition to install; they fire
		// from the shell's own control flow (FireExit, or the task
		// driver checking ERR/DEBUG around each command — the latter
		// two are recorded here for `trap -p` but not yet dispatched).
		return nil
	}

	s, ok := signalByName[name]
	if !ok {
		return fmt.Errorf("trap: %s: invalid signal specification", sig)
	}
	switch action {
	case ActionIgnore:
		signal.Ignore(s)
		delete(r.watching, name)
	case ActionDefault:
		signal.Reset(s)
		delete(r.watching, name)
	case ActionCommand:
		if !r.watching[name] {
			signal.Notify(r.sigCh, s)
			r.watching[name] = true
		}
	}
	return nil
}

// Get reports the currently installed action for sig, per `trap -p`.
func (r *Registry) Get(sig string) (Action, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.actions[normalize(sig)]
	if !ok {
		return ActionDefault, ""
	}
	return e.action, e.command
}

// All returns every signal name with a non-default action, for
// `trap -p` with no arguments.
func (r *Registry) All() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[string]string{}
	for name, e := range r.actions {
		if e.action == ActionCommand {
			out[name] = e.command
		} else if e.action == ActionIgnore {
			out[name] = ""
		}
	}
	return out
}

// Drain empties the pending-signal channel without blocking,
// returning the trap command to run for each arrival, in order. A
// signal with no ActionCommand (e.g. one whose trap was reset or set
// to ignore after the signal arrived) contributes nothing.
func (r *Registry) Drain() []string {
	var commands []string
	for {
		select {
		case s := <-r.sigCh:
			name := nameOf(s)
			if action, cmd := r.Get(name); action == ActionCommand {
				commands = append(commands, cmd)
			}
		default:
			return commands
		}
	}
}

// FireExit runs the EXIT trap command exactly once, per spec.md §3's
// invariant, regardless of how many times it is called (normal
// termination and a later `exit` inside the trap itself both route
// through here).
func (r *Registry) FireExit(run func(command string) (int, error)) (int, error) {
	r.mu.Lock()
	if r.exitFired {
		r.mu.Unlock()
		return 0, nil
	}
	r.exitFired = true
	e := r.actions["EXIT"]
	r.mu.Unlock()

	if e == nil || e.action != ActionCommand {
		return 0, nil
	}
	return run(e.command)
}
