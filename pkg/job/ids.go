package job

import (
	"fmt"
	"strconv"
	"strings"
)

// Lookup resolves a job identifier per spec.md §4.8: %% and %+ mean
// the current job, %- the previous job, %N a job by number, %prefix a
// job whose command starts with prefix, and %?substr a job whose
// command contains substr. A bare "%" is equivalent to "%%".
func (t *Table) Lookup(spec string) (*Job, error) {
	spec = strings.TrimPrefix(spec, "%")

	switch spec {
	case "", "%", "+":
		if j := t.Current(); j != nil {
			return j, nil
		}
		return nil, fmt.Errorf("no current job")
	case "-":
		if j := t.Previous(); j != nil {
			return j, nil
		}
		return nil, fmt.Errorf("no previous job")
	}

	if n, err := strconv.Atoi(spec); err == nil {
		t.mu.Lock()
		j, ok := t.jobs[n]
		t.mu.Unlock()
		if ok {
			return j, nil
		}
		return nil, fmt.Errorf("%%%s: no such job", spec)
	}

	if strings.HasPrefix(spec, "?") {
		needle := spec[1:]
		var found *Job
		for _, j := range t.List() {
			if strings.Contains(j.Command, needle) {
				if found != nil {
					return nil, fmt.Errorf("%%%s: ambiguous job spec", spec)
				}
				found = j
			}
		}
		if found != nil {
			return found, nil
		}
		return nil, fmt.Errorf("%%%s: no such job", spec)
	}

	var found *Job
	for _, j := range t.List() {
		if strings.HasPrefix(j.Command, spec) {
			if found != nil {
				return nil, fmt.Errorf("%%%s: ambiguous job spec", spec)
			}
			found = j
		}
	}
	if found != nil {
		return found, nil
	}
	return nil, fmt.Errorf("%%%s: no such job", spec)
}
