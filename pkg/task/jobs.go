package task

import (
	"fmt"

	"github.com/tarnsh/tarnsh/pkg/parser"
)

// printJobNotifications reports each background job that has finished
// (or stopped) since the last report, per spec.md §4.8's "the shell
// reports a background job's completion before the next prompt" rule.
// It is throttled (see Driver.idle) so a burst of job-table changes
// within one RunProgram call collapses into a single pass over the
// table rather than one terminal write per job per Reap.
func (d *Driver) printJobNotifications() {
	for _, j := range d.Jobs.List() {
		if j.Notified() {
			continue
		}
		switch {
		case j.Done():
			fmt.Fprintf(d.Exec.Stdout, "[%d]+  Done\t%s\n", j.ID, j.Command)
			j.MarkNotified()
			d.Jobs.Remove(j)
		case j.Stopped():
			fmt.Fprintf(d.Exec.Stdout, "[%d]+  Stopped\t%s\n", j.ID, j.Command)
			j.MarkNotified()
		}
	}
}

// runTrapCommand runs one pending signal trap's command string in the
// top-level shell environment, per spec.md §4.7: traps execute between
// commands, never inside the middle of one, which is why RunProgram
// only drains them after a full list has finished running.
func (d *Driver) runTrapCommand(command string) {
	prog, err := parser.Parse(command, d.State.Aliases())
	if err != nil {
		fmt.Fprintln(d.Exec.Stderr, err)
		return
	}
	status, err := d.RunProgram(prog)
	if err != nil {
		fmt.Fprintln(d.Exec.Stderr, err)
	}
	d.State.LastExitStatus = status
}
