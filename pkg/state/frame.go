package state

// BranchSignal is how break/continue/return unwind through nested
// tasks, per spec.md §4.5/§7: a task returns STATUS_INTERRUPTED and the
// enclosing loop/function task inspects the top call frame's
// BranchSignal to decide whether to keep unwinding or to stop there.
type BranchSignal int

const (
	BranchNone BranchSignal = iota
	BranchBreak
	BranchContinue
	BranchReturn
)

// CallFrame is one entry of the call-frame stack spec.md §3 requires:
// positional parameters (argc/argv) plus the in-flight branch-control
// state for break/continue/return. The shell-level frame (index 0) is
// never popped; function and `.`/`eval` invocations push one each.
type CallFrame struct {
	FunctionName string // "" for the top-level shell frame
	Args         []string
	Branch       BranchSignal
	BranchLevel  int // the `n` in `break n`/`continue n`/the pending `return` status
}

func newShellFrame(args []string) *CallFrame {
	return &CallFrame{Args: args}
}
