package job

import (
	"os/exec"
	"sort"

	"github.com/jesseduffield/kill"
	deadlock "github.com/sasha-s/go-deadlock"
	"golang.org/x/sys/unix"
)

// Table is the process/job table spec.md §3 assigns to the shell,
// pulled out into its own package (see the package doc) so pkg/task's
// driver can hold one alongside a *state.ShellState without either
// package importing the other.
type Table struct {
	mu deadlock.Mutex

	jobs   map[int]*Job
	nextID int

	// order records job-id insertion order so %+ / %- (current and
	// previous job) can be derived without a separate stack structure.
	order []int

	terminalFD int
	shellPGID  int
}

func NewTable(terminalFD int) *Table {
	return &Table{
		jobs:       map[int]*Job{},
		terminalFD: terminalFD,
		shellPGID:  unix.Getpgrp(),
	}
}

// NewJob registers a new job for command (the pipeline's source text,
// used by `jobs`), returning it with no processes yet attached.
func (t *Table) NewJob(command string, background bool) *Job {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	j := &Job{ID: t.nextID, Command: command, Background: background}
	t.jobs[j.ID] = j
	t.order = append(t.order, j.ID)
	return j
}

// StartProcess starts cmd as the next process of j: the job's first
// process becomes its own process group leader (pgid == pid); every
// later process in the same job joins that group. Per spec.md §4.8's
// child-side setup, cmd must not yet have been Start()ed.
func (t *Table) StartProcess(j *Job, cmd *exec.Cmd) error {
	kill.PrepareForChildren(cmd)
	if j.PGID != 0 {
		cmd.SysProcAttr.Setpgid = true
		cmd.SysProcAttr.Pgid = j.PGID
	}

	if err := cmd.Start(); err != nil {
		return err
	}

	pid := cmd.Process.Pid
	if j.PGID == 0 {
		j.PGID = pid
		// Join our own freshly-forked child's group too, racing
		// harmlessly against the child's own Setpgid(0,0)-equivalent
		// (it inherited Setpgid:true from PrepareForChildren).
		_ = unix.Setpgid(pid, pid)
	} else {
		_ = unix.Setpgid(pid, j.PGID)
	}

	j.Processes = append(j.Processes, &Process{PID: pid, Cmd: cmd.Path})
	return nil
}

func (t *Table) findProcess(pid int) (*Job, *Process) {
	for _, j := range t.jobs {
		for _, p := range j.Processes {
			if p.PID == pid {
				return j, p
			}
		}
	}
	return nil, nil
}

// Reap performs one non-blocking sweep for terminated/stopped children
// that haven't been waited on yet, updating whichever jobs own them.
// Called by pkg/task between commands (runLists and RunProgram); no
// SIGCHLD handler calls it.
func (t *Table) Reap() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for {
		var ws unix.WaitStatus
		pid, err := unix.Wait4(-1, &ws, unix.WNOHANG|unix.WUNTRACED|unix.WCONTINUED, nil)
		if err != nil || pid <= 0 {
			return
		}
		if j, p := t.findProcess(pid); j != nil {
			if ws.Continued() {
				p.Stopped = false
				continue
			}
			p.applyWaitStatus(ws)
		}
	}
}

// Wait blocks (via repeated blocking Wait4 calls) until every process
// in j has either terminated or stopped, per the Pipeline/Async task
// contracts of spec.md §4.5 and the "wait for the job" semantics of
// §4.8's fg built-in.
func (t *Table) Wait(j *Job) error {
	for {
		t.mu.Lock()
		done := j.Done() || j.Stopped()
		t.mu.Unlock()
		if done {
			return nil
		}

		var ws unix.WaitStatus
		pid, err := unix.Wait4(-j.PGID, &ws, unix.WUNTRACED, nil)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			if err == unix.ECHILD {
				return nil
			}
			return err
		}

		t.mu.Lock()
		if _, p := t.findProcess(pid); p != nil {
			p.applyWaitStatus(ws)
		}
		t.mu.Unlock()
	}
}

// PutInForeground implements spec.md §4.8's fg sequence: hand the
// terminal to j's process group, optionally SIGCONT it, wait for it,
// then save j's terminal modes and hand the terminal back to the
// shell's process group. When the terminal cannot be handed over (no
// controlling terminal), the job is still waited for.
func (t *Table) PutInForeground(j *Job, sendCont bool) error {
	haveTerm := unix.IoctlSetPointerInt(t.terminalFD, unix.TIOCSPGRP, j.PGID) == nil
	if sendCont {
		if j.TermModes != nil {
			_ = restoreTermModes(t.terminalFD, j.TermModes)
		}
		_ = unix.Kill(-j.PGID, unix.SIGCONT)
		for _, p := range j.Processes {
			p.Stopped = false
		}
	}

	waitErr := t.Wait(j)

	if haveTerm {
		modes, _ := saveTermModes(t.terminalFD)
		j.TermModes = modes
		_ = unix.IoctlSetPointerInt(t.terminalFD, unix.TIOCSPGRP, t.shellPGID)
	}

	return waitErr
}

// PutInBackground implements spec.md §4.8's bg sequence: SIGCONT the
// job's group without reclaiming the terminal for it.
func (t *Table) PutInBackground(j *Job, sendCont bool) error {
	if sendCont {
		if err := unix.Kill(-j.PGID, unix.SIGCONT); err != nil {
			return err
		}
		for _, p := range j.Processes {
			p.Stopped = false
		}
	}
	return nil
}

// Kill sends sig to every process in j's group.
func (t *Table) Kill(j *Job, sig unix.Signal) error {
	return unix.Kill(-j.PGID, sig)
}

func (t *Table) Remove(j *Job) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.jobs, j.ID)
	for i, id := range t.order {
		if id == j.ID {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}

// List returns jobs in ascending job-id order, the order `jobs`
// prints them in.
func (t *Table) List() []*Job {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*Job, 0, len(t.jobs))
	for _, j := range t.jobs {
		out = append(out, j)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].ID < out[k].ID })
	return out
}

func (t *Table) Current() *Job {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.order) == 0 {
		return nil
	}
	return t.jobs[t.order[len(t.order)-1]]
}

func (t *Table) Previous() *Job {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.order) < 2 {
		return nil
	}
	return t.jobs[t.order[len(t.order)-2]]
}
