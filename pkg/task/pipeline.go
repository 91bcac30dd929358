package task

import (
	"io"
	"os"
	"sync"

	"github.com/tarnsh/tarnsh/pkg/ast"
	"github.com/tarnsh/tarnsh/pkg/shellerr"
)

// runPipeline runs one `|`-connected sequence of commands (spec.md
// §4.5's Pipeline task / §4.8's process group rules), negating the
// final status if the pipeline started with `!`. A single-command
// pipeline skips all of the multi-process plumbing below and just
// dispatches straight through.
func (d *Driver) runPipeline(p *ast.Pipeline) (int, error) {
	var status int
	var err error
	if len(p.Commands) == 1 {
		status, err = d.RunCommand(p.Commands[0])
	} else {
		status, err = d.runMultiStage(p)
	}
	if err != nil {
		return status, err
	}
	if p.Bang {
		if status == 0 {
			status = 1
		} else {
			status = 0
		}
	}
	return status, nil
}

// runMultiStage connects len(p.Commands) stages with os.Pipe()s and
// runs each one concurrently (so a stage that blocks reading or
// writing its pipe end doesn't stall the others), joining every
// external process it starts into one job/process group per spec.md
// §4.8. Each stage's dispatch is gated behind the previous stage's so
// any processes a stage starts are appended to the job in pipeline
// order, since job.Table's "last process" bookkeeping (Job.ExitStatus,
// $! for a backgrounded pipeline) assumes that order.
func (d *Driver) runMultiStage(p *ast.Pipeline) (int, error) {
	n := len(p.Commands)
	j := d.Jobs.NewJob(p.Format(), d.Exec.Background)

	readers := make([]*os.File, n-1)
	writers := make([]*os.File, n-1)
	for i := 0; i < n-1; i++ {
		r, w, err := os.Pipe()
		if err != nil {
			for k := 0; k < i; k++ {
				readers[k].Close()
				writers[k].Close()
			}
			return 1, shellerr.Wrap(err)
		}
		readers[i], writers[i] = r, w
	}

	statuses := make([]int, n)
	errs := make([]error, n)

	turn := make(chan struct{}, 1)
	turn <- struct{}{}

	var wg sync.WaitGroup
	for i, cmd := range p.Commands {
		i, cmd := i, cmd
		myTurn := turn

		var next chan struct{}
		if i < n-1 {
			next = make(chan struct{}, 1)
			turn = next
		}

		var stdin io.Reader = d.Exec.Stdin
		if i > 0 {
			stdin = readers[i-1]
		}
		var stdout io.Writer = d.Exec.Stdout
		if i < n-1 {
			stdout = writers[i]
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			<-myTurn
			// Each stage gets its own cloned environment, matching a
			// real shell's default (non-lastpipe) pipeline semantics:
			// none of a stage's assignments are visible to its
			// siblings or to the pipeline's caller. This also keeps
			// concurrent stages from touching the same ShellState
			// maps at once.
			stage := d.fork(d.State.Clone(), stdin, stdout, d.Exec.Stderr)
			stage.Exec.PipelineJob = j
			statuses[i], errs[i] = stage.RunCommand(cmd)
			if i > 0 {
				readers[i-1].Close()
			}
			if i < n-1 {
				writers[i].Close()
				next <- struct{}{}
			}
		}()
	}
	wg.Wait()

	for _, e := range errs {
		if e != nil {
			return statuses[n-1], e
		}
	}

	if d.Exec.Background {
		if len(j.Processes) > 0 {
			d.State.LastBgPID = j.Processes[len(j.Processes)-1].PID
		}
		return 0, nil
	}

	waitErr := d.Jobs.PutInForeground(j, false)
	status := statuses[n-1]
	if len(j.Processes) > 0 {
		status = j.ExitStatus()
	}
	d.Jobs.Remove(j)
	if waitErr != nil {
		return status, shellerr.Wrap(waitErr)
	}
	return status, nil
}
