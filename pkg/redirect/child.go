package redirect

import (
	"fmt"
	"os"
	"strconv"

	"github.com/tarnsh/tarnsh/pkg/ast"
	"github.com/tarnsh/tarnsh/pkg/expand"
)

// ChildIO is the result of resolving a command's redirects for the
// "external: fork, apply redirections ... in the child, exec" step of
// spec.md §4.6: slots ready to assign onto an *exec.Cmd before
// Start(), plus a Close to release the parent's copies once the
// child owns its own.
type ChildIO struct {
	Stdin, Stdout, Stderr *os.File
	Extra                 []*os.File // Extra[i] becomes fd 3+i in the child, per os/exec.Cmd.ExtraFiles

	opened []*os.File
}

// Close releases every file this call opened on the parent's behalf,
// once the child has inherited its own copies (i.e. after cmd.Start
// returns, success or failure).
func (c *ChildIO) Close() {
	for _, f := range c.opened {
		_ = f.Close()
	}
}

// ForChild resolves redirects into a ChildIO. Defaults are the
// shell's own stdin/stdout/stderr, inherited per spec.md §4.6's
// "external" dispatch step.
func (e *Engine) ForChild(redirects []*ast.IoRedirect, env expand.Env, noClobber bool) (*ChildIO, error) {
	return e.ForChildDefaults(redirects, env, noClobber, os.Stdin, os.Stdout, os.Stderr)
}

// ForChildDefaults is ForChild with caller-supplied defaults instead
// of the process's own stdio, so a pipeline stage (spec.md §4.8) can
// hand each command the pipe end it actually reads from or writes to
// before any of the command's own redirects are applied on top.
func (e *Engine) ForChildDefaults(redirects []*ast.IoRedirect, env expand.Env, noClobber bool, stdin, stdout, stderr *os.File) (*ChildIO, error) {
	c := &ChildIO{Stdin: stdin, Stdout: stdout, Stderr: stderr}

	extraByFD := map[int]*os.File{}
	maxExtraFD := 2

	set := func(fd int, f *os.File) {
		switch fd {
		case 0:
			c.Stdin = f
		case 1:
			c.Stdout = f
		case 2:
			c.Stderr = f
		default:
			extraByFD[fd] = f
			if fd > maxExtraFD {
				maxExtraFD = fd
			}
		}
	}

	for _, r := range redirects {
		target := targetFD(r)

		switch r.Op {
		case ast.IoLessAnd, ast.IoGreatAnd:
			name, err := expand.AssignmentValue(r.Name, env)
			if err != nil {
				c.Close()
				return nil, err
			}
			if name == "-" {
				set(target, nil)
				continue
			}
			n, err := strconv.Atoi(name)
			if err != nil {
				c.Close()
				return nil, fmt.Errorf("%s: invalid file descriptor", name)
			}
			set(target, os.NewFile(uintptr(n), ""))

		case ast.IoDLess, ast.IoDLessDash:
			rf, err := e.openHereDoc(r, env)
			if err != nil {
				c.Close()
				return nil, err
			}
			c.opened = append(c.opened, rf)
			set(target, rf)

		default:
			name, err := expand.AssignmentValue(r.Name, env)
			if err != nil {
				c.Close()
				return nil, err
			}
			f, err := openTarget(r.Op, name, noClobber)
			if err != nil {
				c.Close()
				return nil, err
			}
			c.opened = append(c.opened, f)
			set(target, f)
		}
	}

	if maxExtraFD > 2 {
		c.Extra = make([]*os.File, maxExtraFD-2)
		for fd, f := range extraByFD {
			c.Extra[fd-3] = f
		}
	}

	return c, nil
}
