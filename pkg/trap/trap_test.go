package trap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetAndGetCommand(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Set("INT", ActionCommand, "echo got int"))

	action, cmd := r.Get("sigint")
	assert.Equal(t, ActionCommand, action)
	assert.Equal(t, "echo got int", cmd)
}

func TestSetRejectsUnknownSignal(t *testing.T) {
	r := NewRegistry()
	err := r.Set("NOPE", ActionCommand, "echo x")
	assert.Error(t, err)
}

func TestExitIsPseudoSignal(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Set("EXIT", ActionCommand, "echo bye"))
	action, cmd := r.Get("0")
	assert.Equal(t, ActionCommand, action)
	assert.Equal(t, "echo bye", cmd)
}

func TestFireExitRunsOnce(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Set("EXIT", ActionCommand, "echo bye"))

	calls := 0
	run := func(command string) (int, error) {
		calls++
		return 0, nil
	}

	_, err := r.FireExit(run)
	require.NoError(t, err)
	_, err = r.FireExit(run)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
}

func TestDrainIsEmptyWithNoSignals(t *testing.T) {
	r := NewRegistry()
	assert.Empty(t, r.Drain())
}
