package job

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sys/unix"
)

func TestJobStoppedAndDone(t *testing.T) {
	j := &Job{Processes: []*Process{{PID: 1}, {PID: 2}}}
	assert.False(t, j.Stopped())
	assert.False(t, j.Done())

	j.Processes[0].Stopped = true
	j.Processes[1].Stopped = true
	assert.True(t, j.Stopped())
	assert.False(t, j.Done())

	j.Processes[0].Terminated = true
	j.Processes[0].Stopped = false
	j.Processes[1].Terminated = true
	j.Processes[1].Stopped = false
	assert.True(t, j.Done())
	assert.False(t, j.Stopped())
}

func TestJobExitStatusIsLastProcess(t *testing.T) {
	j := &Job{Processes: []*Process{
		{PID: 1, Terminated: true, ExitStatus: 1},
		{PID: 2, Terminated: true, ExitStatus: 42},
	}}
	assert.Equal(t, 42, j.ExitStatus())
}

func TestApplyWaitStatusExited(t *testing.T) {
	p := &Process{}
	p.applyWaitStatus(unix.WaitStatus(0)) // exit code 0, not signaled/stopped
	assert.True(t, p.Terminated)
	assert.Equal(t, 0, p.ExitStatus)
}

func TestTableLookupCurrentAndPrevious(t *testing.T) {
	tbl := NewTable(0)
	j1 := tbl.NewJob("sleep 1", true)
	j2 := tbl.NewJob("sleep 2", true)

	cur, err := tbl.Lookup("%%")
	assert.NoError(t, err)
	assert.Equal(t, j2.ID, cur.ID)

	prev, err := tbl.Lookup("%-")
	assert.NoError(t, err)
	assert.Equal(t, j1.ID, prev.ID)
}

func TestTableLookupByNumber(t *testing.T) {
	tbl := NewTable(0)
	j := tbl.NewJob("sleep 1", true)

	got, err := tbl.Lookup("%" + strconv.Itoa(j.ID))
	assert.NoError(t, err)
	assert.Equal(t, j.ID, got.ID)
}

func TestTableLookupByPrefix(t *testing.T) {
	tbl := NewTable(0)
	j := tbl.NewJob("make build", true)
	tbl.NewJob("sleep 5", true)

	got, err := tbl.Lookup("%make")
	assert.NoError(t, err)
	assert.Equal(t, j.ID, got.ID)
}

func TestTableLookupAmbiguousPrefix(t *testing.T) {
	tbl := NewTable(0)
	tbl.NewJob("make build", true)
	tbl.NewJob("make test", true)

	_, err := tbl.Lookup("%make")
	assert.Error(t, err)
}

func TestTableRemove(t *testing.T) {
	tbl := NewTable(0)
	j := tbl.NewJob("sleep 1", true)
	tbl.Remove(j)
	assert.Empty(t, tbl.List())
}
