package executor

import "github.com/tinyshell/mibash/ast"

// executeAnd implements SEP_AND (`&&`): run Left, then run Right only if
// Left's exit status is exactly "0". The comparison is on the string form
// of ?, not a numeric parse — an intentional simplification the spec
// carries over from the source.
func (e *Executor) executeAnd(n *ast.And) {
	e.Process(n.Left)
	if e.Status == "0" {
		e.Process(n.Right)
	}
}

// executeOr implements SEP_OR (`||`): Right runs only if Left did not
// succeed.
func (e *Executor) executeOr(n *ast.Or) {
	e.Process(n.Left)
	if e.Status != "0" {
		e.Process(n.Right)
	}
}

// executeSequence implements SEP_END (`;`) at a position other than the
// root of a background chain: run Left to completion, then Right
// unconditionally. The final ? is whatever Right leaves.
func (e *Executor) executeSequence(n *ast.Sequence) {
	e.Process(n.Left)
	e.Process(n.Right)
}
