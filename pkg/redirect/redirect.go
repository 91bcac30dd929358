// Package redirect implements the redirection engine of spec.md §4.7:
// computing each operator's target file descriptor, opening or dup'ing
// its source, and installing it — either directly on the current
// process (a built-in's temporary FD save/restore) or onto an
// *exec.Cmd about to be forked for an external command.
package redirect

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/tarnsh/tarnsh/pkg/ast"
	"github.com/tarnsh/tarnsh/pkg/expand"
)

// pipeBufSize is POSIX's PIPE_BUF guarantee: a pipe write at or under
// this size can never block, so a here-document that small can be fed
// synchronously; anything larger needs a writer goroutine so the
// shell doesn't deadlock against a child that hasn't started reading.
const pipeBufSize = 4096

// closedFD marks a `<&-`/`>&-` redirect: the target fd is closed, not
// replaced.
const closedFD = -1

// Engine opens and installs redirects. It carries no state of its own;
// every method is a pure function of its arguments, kept as a type so
// call sites read like the rest of the package API (Engine.Push,
// Engine.ForChild) rather than a grab-bag of free functions.
type Engine struct{}

func New() *Engine { return &Engine{} }

// Saved is the state needed to undo one redirect previously installed
// by Push.
type Saved struct {
	fd  int
	dup int // -1 if fd was not open before Push
}

func saveFD(fd int) (*Saved, error) {
	dup, err := unix.Dup(fd)
	if err != nil {
		if err == unix.EBADF {
			return &Saved{fd: fd, dup: -1}, nil
		}
		return nil, err
	}
	return &Saved{fd: fd, dup: dup}, nil
}

func (s *Saved) restore() {
	if s.dup == -1 {
		_ = unix.Close(s.fd)
		return
	}
	_ = unix.Dup2(s.dup, s.fd)
	_ = unix.Close(s.dup)
}

// Push opens and installs redirects on the current process's file
// descriptors in order, returning the state Pop needs to undo them —
// the "temporary FD save/restore" a regular built-in gets per
// spec.md §4.6.
func (e *Engine) Push(redirects []*ast.IoRedirect, env expand.Env, noClobber bool) ([]*Saved, error) {
	var saved []*Saved
	for _, r := range redirects {
		target := targetFD(r)

		sv, err := saveFD(target)
		if err != nil {
			e.Pop(saved)
			return nil, err
		}
		saved = append(saved, sv)

		src, cleanup, err := e.openSource(r, env, noClobber)
		if err != nil {
			e.Pop(saved)
			return nil, err
		}

		if src == closedFD {
			_ = unix.Close(target)
		} else if src != target {
			if err := unix.Dup2(src, target); err != nil {
				if cleanup != nil {
					cleanup()
				}
				e.Pop(saved)
				return nil, err
			}
		}
		if cleanup != nil {
			cleanup()
		}
	}
	return saved, nil
}

// Pop undoes every redirect Push installed, in reverse order.
func (e *Engine) Pop(saved []*Saved) {
	for i := len(saved) - 1; i >= 0; i-- {
		saved[i].restore()
	}
}

// targetFD computes the fd a redirect addresses: an explicit
// IoNumber prefix if given, else the operator's default (0 for the
// input-like operators, 1 otherwise), per spec.md §4.7's
// operator -> default-FD table.
func targetFD(r *ast.IoRedirect) int {
	if r.IoNumber != nil {
		return *r.IoNumber
	}
	switch r.Op {
	case ast.IoLess, ast.IoDLess, ast.IoDLessDash, ast.IoLessAnd, ast.IoLessGreat:
		return 0
	default:
		return 1
	}
}

// openSource resolves a redirect's right-hand side to a source file
// descriptor: closedFD for `<&-`/`>&-`, an existing fd for `<&N`/`>&N`,
// or a freshly opened file/pipe otherwise. cleanup, when non-nil, must
// be called once the caller is done referencing src (closing a
// just-opened file/pipe end after dup2'ing it into place).
func (e *Engine) openSource(r *ast.IoRedirect, env expand.Env, noClobber bool) (src int, cleanup func(), err error) {
	switch r.Op {
	case ast.IoLessAnd, ast.IoGreatAnd:
		name, err := expand.AssignmentValue(r.Name, env)
		if err != nil {
			return 0, nil, err
		}
		if name == "-" {
			return closedFD, nil, nil
		}
		fd, err := strconv.Atoi(name)
		if err != nil {
			return 0, nil, fmt.Errorf("%s: invalid file descriptor", name)
		}
		return fd, nil, nil

	case ast.IoDLess, ast.IoDLessDash:
		rf, err := e.openHereDoc(r, env)
		if err != nil {
			return 0, nil, err
		}
		return int(rf.Fd()), func() { rf.Close() }, nil

	default:
		name, err := expand.AssignmentValue(r.Name, env)
		if err != nil {
			return 0, nil, err
		}
		f, err := openTarget(r.Op, name, noClobber)
		if err != nil {
			return 0, nil, err
		}
		fd := int(f.Fd())
		return fd, func() { _ = f.Close() }, nil
	}
}

func openTarget(op ast.IoOperator, name string, noClobber bool) (*os.File, error) {
	switch op {
	case ast.IoLess:
		return os.OpenFile(name, os.O_RDONLY, 0)
	case ast.IoLessGreat:
		return os.OpenFile(name, os.O_RDWR|os.O_CREATE, 0o666)
	case ast.IoDGreat:
		return os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o666)
	case ast.IoClobber:
		return os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o666)
	case ast.IoGreat:
		flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
		if noClobber {
			flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
		}
		return os.OpenFile(name, flags, 0o666)
	default:
		return nil, fmt.Errorf("redirect: unexpected operator %s", op)
	}
}

// openHereDoc expands r's body lines (parameter/command/arithmetic
// expansion only — no tilde, per expand.Literal's doc — unless the
// delimiter was quoted, in which case the lines are already plain
// text with nothing to expand) and feeds them to the reader through a
// pipe, returning the pipe's read end. The write end is always closed
// by this function, either immediately (content fits in one PIPE_BUF
// write) or by a goroutine once the write completes.
func (e *Engine) openHereDoc(r *ast.IoRedirect, env expand.Env) (*os.File, error) {
	var b strings.Builder
	for _, line := range r.HereDocLines {
		text, err := expand.Literal(line, env)
		if err != nil {
			return nil, err
		}
		b.WriteString(text)
	}
	content := b.String()

	rf, wf, err := os.Pipe()
	if err != nil {
		return nil, err
	}

	if len(content) <= pipeBufSize {
		if _, err := wf.WriteString(content); err != nil {
			rf.Close()
			wf.Close()
			return nil, err
		}
		wf.Close()
	} else {
		go func() {
			_, _ = wf.WriteString(content)
			wf.Close()
		}()
	}

	return rf, nil
}
