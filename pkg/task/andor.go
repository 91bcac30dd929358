package task

import (
	"fmt"

	"github.com/tarnsh/tarnsh/pkg/ast"
)

// runAndOr runs one and-or-list node (spec.md §4.5's BinOp task, and
// the Pipeline task it bottoms out at): `&&`/`||` short-circuit on the
// left side's status, skipping the right side entirely when it
// wouldn't run, and a pending break/continue/return also stops the
// chain from evaluating its right side.
func (d *Driver) runAndOr(n ast.AndOrNode) (int, error) {
	switch v := n.(type) {
	case *ast.Pipeline:
		return d.runPipeline(v)

	case *ast.BinOp:
		left, err := d.runAndOr(v.Left)
		if err != nil {
			return left, err
		}
		d.State.LastExitStatus = left
		if d.branchPending() {
			return left, nil
		}
		switch v.Kind {
		case ast.BinOpAnd:
			if left != 0 {
				return left, nil
			}
		case ast.BinOpOr:
			if left == 0 {
				return left, nil
			}
		}
		return d.runAndOr(v.Right)

	default:
		return 1, fmt.Errorf("task: unknown and-or node %T", n)
	}
}
