package exec

import (
	"fmt"
	"strconv"

	"github.com/tarnsh/tarnsh/pkg/job"
)

// waitBuiltin waits for one job (by %spec or pid) or, with no
// arguments, every currently tracked job, per spec.md §4.8.
func waitBuiltin(d *Dispatcher, args []string) (int, error) {
	if len(args) == 0 {
		status := 0
		for _, j := range d.Jobs.List() {
			if err := d.Jobs.Wait(j); err != nil {
				fmt.Fprintln(d.Stderr, err)
				continue
			}
			if j.Done() {
				status = j.ExitStatus()
				d.Jobs.Remove(j)
			}
		}
		return status, nil
	}

	status := 0
	for _, spec := range args {
		j, err := resolveJobArg(d, spec)
		if err != nil {
			fmt.Fprintln(d.Stderr, err)
			status = 127
			continue
		}
		if err := d.Jobs.Wait(j); err != nil {
			fmt.Fprintln(d.Stderr, err)
			status = 1
			continue
		}
		status = j.ExitStatus()
		if j.Done() {
			d.Jobs.Remove(j)
		}
	}
	return status, nil
}

func resolveJobArg(d *Dispatcher, spec string) (*job.Job, error) {
	if spec != "" && spec[0] == '%' {
		return d.Jobs.Lookup(spec)
	}
	pid, err := strconv.Atoi(spec)
	if err != nil {
		return nil, fmt.Errorf("wait: %s: not a pid or valid job spec", spec)
	}
	for _, j := range d.Jobs.List() {
		for _, p := range j.Processes {
			if p.PID == pid {
				return j, nil
			}
		}
	}
	return nil, fmt.Errorf("wait: %s: no such job", spec)
}

// jobsBuiltin lists tracked jobs, per spec.md §4.8; `-l` adds each
// process's pid.
func jobsBuiltin(d *Dispatcher, args []string) (int, error) {
	long := false
	for _, a := range args {
		if a == "-l" {
			long = true
		}
	}
	for _, j := range d.Jobs.List() {
		state := "Running"
		if j.Stopped() {
			state = "Stopped"
		} else if j.Done() {
			state = "Done"
		}
		colored := job.StatusColor(state)
		if long {
			fmt.Fprintf(d.Stdout, "[%d]  %s\t%s\n", j.ID, colored, j.Command)
			for _, p := range j.Processes {
				fmt.Fprintf(d.Stdout, "\t%d\n", p.PID)
			}
		} else {
			fmt.Fprintf(d.Stdout, "[%d]  %s\t%s\n", j.ID, colored, j.Command)
		}
	}
	return 0, nil
}

func fgBuiltin(d *Dispatcher, args []string) (int, error) {
	spec := "%+"
	if len(args) > 0 {
		spec = args[0]
	}
	j, err := d.Jobs.Lookup(spec)
	if err != nil {
		fmt.Fprintln(d.Stderr, err)
		return 1, nil
	}
	fmt.Fprintln(d.Stdout, j.Command)
	if err := d.Jobs.PutInForeground(j, true); err != nil {
		fmt.Fprintln(d.Stderr, err)
		return 1, nil
	}
	status := j.ExitStatus()
	if j.Done() {
		d.Jobs.Remove(j)
	}
	return status, nil
}

func bgBuiltin(d *Dispatcher, args []string) (int, error) {
	spec := "%+"
	if len(args) > 0 {
		spec = args[0]
	}
	j, err := d.Jobs.Lookup(spec)
	if err != nil {
		fmt.Fprintln(d.Stderr, err)
		return 1, nil
	}
	if err := d.Jobs.PutInBackground(j, true); err != nil {
		fmt.Fprintln(d.Stderr, err)
		return 1, nil
	}
	fmt.Fprintf(d.Stdout, "[%d] %s\n", j.ID, j.Command)
	return 0, nil
}
