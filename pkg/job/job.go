package job

import "golang.org/x/sys/unix"

// Job groups the processes of one pipeline under a single process
// group id, per spec.md §3/§4.8: "every process belongs to exactly
// one job; a job's pgid equals its first process's pid."
type Job struct {
	ID      int
	PGID    int
	Command string // source text, for `jobs`'s display
	Background bool

	Processes []*Process

	// TermModes is the terminal state captured when this job was last
	// moved to the background or stopped, restored when it is next
	// brought to the foreground. Nil until the job has owned the
	// terminal at least once.
	TermModes *unix.Termios

	notified bool // set once `jobs`/async notification has reported a state change
}

// Stopped reports whether at least one process in the job is stopped
// and none is still running (spec.md §4.8's STATUS_STOPPED condition
// for a job).
func (j *Job) Stopped() bool {
	stopped := false
	for _, p := range j.Processes {
		if p.Stopped {
			stopped = true
		} else if !p.Terminated {
			return false
		}
	}
	return stopped
}

// Done reports whether every process in the job has exited or been
// killed by a signal.
func (j *Job) Done() bool {
	for _, p := range j.Processes {
		if !p.Terminated {
			return false
		}
	}
	return len(j.Processes) > 0
}

// ExitStatus is the exit status of the job's last process, per
// spec.md §4.5's Pipeline task contract (pipestatus of the final
// element, absent `set -o pipefail` support beyond that).
func (j *Job) ExitStatus() int {
	if len(j.Processes) == 0 {
		return 0
	}
	return j.Processes[len(j.Processes)-1].ExitStatus
}

// MarkNotified and Notified back the `jobs` built-in and the
// async "Done" notice that prints before the next prompt, so a
// completed background job is reported exactly once.
func (j *Job) MarkNotified() { j.notified = true }
func (j *Job) Notified() bool { return j.notified }
