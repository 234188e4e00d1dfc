package executor

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/tinyshell/mibash/ast"
)

func TestFlattenPipeLeftLeaning(t *testing.T) {
	a := &ast.Command{Argv: []string{"a"}}
	b := &ast.Command{Argv: []string{"b"}}
	c := &ast.Command{Argv: []string{"c"}}
	tree := &ast.Pipe{Left: &ast.Pipe{Left: a, Right: b}, Right: c}

	got := flattenPipe(tree)
	want := []ast.Node{a, b, c}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("flattenPipe mismatch (-want +got):\n%s", diff)
	}
}

func TestFlattenPipeRightLeaning(t *testing.T) {
	a := &ast.Command{Argv: []string{"a"}}
	b := &ast.Command{Argv: []string{"b"}}
	c := &ast.Command{Argv: []string{"c"}}
	tree := &ast.Pipe{Left: a, Right: &ast.Pipe{Left: b, Right: c}}

	got := flattenPipe(tree)
	want := []ast.Node{a, b, c}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("flattenPipe mismatch (-want +got):\n%s", diff)
	}
}

// `a & b ; c & d` — per §4.7's walk, the interposed SEP_END makes its Left
// (b) the foreground subtree and its Right (c) background; a is background
// too, and d, the top-level Right, is not part of the walk (it runs inline).
func TestFlattenBackgroundMixedChain(t *testing.T) {
	a := &ast.Command{Argv: []string{"a"}}
	b := &ast.Command{Argv: []string{"b"}}
	c := &ast.Command{Argv: []string{"c"}}
	d := &ast.Command{Argv: []string{"d"}}

	// a & (b ; c) & , with d as the outer SEP_BG's Right.
	root := &ast.Background{
		Left: &ast.Background{
			Left:  a,
			Right: &ast.Sequence{Left: b, Right: c},
		},
		Right: d,
	}

	background, foreground := flattenBackground(root.Left)
	assert.Same(t, b, foreground)
	assert.ElementsMatch(t, []ast.Node{a, c}, background)
}

func TestFlattenBackgroundSingleSubtree(t *testing.T) {
	a := &ast.Command{Argv: []string{"a"}}
	background, foreground := flattenBackground(a)
	assert.Nil(t, foreground)
	assert.Equal(t, []ast.Node{a}, background)
}
