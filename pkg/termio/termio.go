// Package termio adapts the teacher's streamer.In/Out terminal-mode
// helpers (pkg/commands/streamer/{in,out}.go) from "hand a raw
// container exec session a hijacked terminal" down to the two things
// spec.md's builtins actually need from a controlling terminal:
// suppressing echo for `read -s` and sizing $COLUMNS/$LINES.
package termio

import (
	"os"

	"github.com/moby/term"
)

// Terminal wraps one fd's terminal-mode state, mirroring
// streamer.CommonStream but trimmed to what read/shopt checkwinsize
// need instead of a full hijacked-stream raw mode.
type Terminal struct {
	fd         uintptr
	isTerminal bool
}

// New inspects f the same way streamer.NewIn/NewOut do via
// term.GetFdInfo, rather than assuming Fd() is meaningful.
func New(f *os.File) *Terminal {
	fd, isTerminal := term.GetFdInfo(f)
	return &Terminal{fd: fd, isTerminal: isTerminal}
}

// IsTerminal reports whether the wrapped fd is a real controlling
// terminal; callers use this to skip echo-suppression and sizing work
// when stdin/stdout has been redirected.
func (t *Terminal) IsTerminal() bool {
	return t != nil && t.isTerminal
}

// DisableEcho turns off local echo for the duration of a `read -s`
// call, returning a restore func the caller must run afterward
// (typically deferred). Unlike streamer.In.SetRawTerminal, it leaves
// canonical line mode (backspace, line buffering) intact — only the
// echoed characters are suppressed, per POSIX read -s.
func (t *Terminal) DisableEcho() (restore func(), err error) {
	if !t.IsTerminal() {
		return func() {}, nil
	}
	saved, err := term.SaveState(t.fd)
	if err != nil {
		return nil, err
	}
	if _, err := term.DisableEcho(t.fd, saved); err != nil {
		return nil, err
	}
	return func() { _ = term.RestoreTerminal(t.fd, saved) }, nil
}

// Size reports the terminal's current rows/columns, the values
// $LINES/$COLUMNS track, the same way streamer.Out.GetTtySize reports
// a hijacked exec session's size.
func (t *Terminal) Size() (cols, lines int, ok bool) {
	if !t.IsTerminal() {
		return 0, 0, false
	}
	ws, err := term.GetWinsize(t.fd)
	if err != nil {
		return 0, 0, false
	}
	return int(ws.Width), int(ws.Height), true
}
