package executor

import (
	"fmt"

	"github.com/tinyshell/mibash/ast"
)

// flattenBackground implements the walk described in §4.7: recurse through
// nested Background nodes on both children, collecting every non-Sequence,
// non-Background node as a detached background subtree, and treating a
// Sequence node as the one place a foreground subtree can appear (its Left
// runs in the foreground, its Right is itself background).
func flattenBackground(node ast.Node) (background []ast.Node, foreground ast.Node) {
	switch n := node.(type) {
	case *ast.Background:
		lbg, lfg := flattenBackground(n.Left)
		background = append(background, lbg...)
		if lfg != nil {
			foreground = lfg
		}
		if n.Right != nil {
			rbg, rfg := flattenBackground(n.Right)
			background = append(background, rbg...)
			if rfg != nil && foreground == nil {
				foreground = rfg
			}
		}
		return background, foreground
	case *ast.Sequence:
		return []ast.Node{n.Right}, n.Left
	default:
		return []ast.Node{node}, nil
	}
}

// executeBackground implements SEP_BG: the foreground subtree (if any) runs
// synchronously, every background subtree is forked detached and reported,
// and the root's own Right child (the remainder of the chain after this
// `&`) runs inline once every background child has been launched. ? is
// always left at "0" afterward, per the spec's background-terminator rule.
func (e *Executor) executeBackground(n *ast.Background) {
	background, foreground := flattenBackground(n.Left)

	if foreground != nil {
		e.Process(foreground)
	}

	for _, subtree := range background {
		pid, err := e.spawnChildProcess(subtree, nil, nil, nil)
		if err != nil {
			e.reportSpawnFailure("(background)", err)
			continue
		}
		e.Zombies++
		fmt.Fprintf(e.Stderr, "Backgrounded: %d\n", pid)
	}

	if n.Right != nil {
		e.Process(n.Right)
	}

	e.Status = "0"
}
