// Package job owns the process/job tables spec.md §4.8 describes: a
// Process per forked child, a Job grouping the processes of one
// pipeline under a single process group, and a Table that a driver
// (pkg/task) holds alongside a *state.ShellState. Kept out of
// pkg/state to avoid a pkg/state<->pkg/job import cycle.
package job

import "golang.org/x/sys/unix"

// Process mirrors spec.md §3's Process record: a single forked child
// and the last wait status observed for it.
type Process struct {
	PID        int
	Cmd        string // argv[0], for job-control status lines
	Stopped    bool
	Terminated bool
	ExitStatus int
	Signal     unix.Signal // last signal that stopped/terminated it, 0 if none
}

// applyWaitStatus records a waitpid(2) result against the process,
// per spec.md §4.8's "process status transitions only happen via a
// reaped wait status" invariant.
func (p *Process) applyWaitStatus(ws unix.WaitStatus) {
	switch {
	case ws.Exited():
		p.Terminated = true
		p.Stopped = false
		p.ExitStatus = ws.ExitStatus()
	case ws.Signaled():
		p.Terminated = true
		p.Stopped = false
		p.Signal = ws.Signal()
		p.ExitStatus = 128 + int(ws.Signal())
	case ws.Stopped():
		p.Stopped = true
		p.Signal = ws.StopSignal()
	}
}
