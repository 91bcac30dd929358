package shellerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitStatusMapping(t *testing.T) {
	assert.Equal(t, 127, New(CodeExecNotFound, "no such command: %s", "frobnicate").ExitStatus())
	assert.Equal(t, 126, New(CodeExecNotExecutable, "not executable").ExitStatus())
	assert.Equal(t, 130, (&ComplexError{Code: CodeSignal, Signal: 2}).ExitStatus())
	assert.Equal(t, 1, New(CodeExpansion, "bad substitution").ExitStatus())
}

func TestHasCode(t *testing.T) {
	err := New(CodeRedirection, "no such file or directory")
	assert.True(t, HasCode(err, CodeRedirection))
	assert.False(t, HasCode(err, CodeSyntax))
	assert.False(t, HasCode(errors.New("plain error"), CodeRedirection))
}

func TestWrapNilIsNil(t *testing.T) {
	assert.Nil(t, Wrap(nil))
	assert.NotNil(t, Wrap(fmt.Errorf("boom")))
}
