/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: tree_test.go
Description: Tests for derivation-tree nodes, merges, parse trees, grammar export and the
YAML document format.
*/

package tree_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/morellic/glade-full/pkg/solver"
	"github.com/morellic/glade-full/pkg/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	root  *tree.Repetition
	open  *tree.Constant
	body  *tree.MultiConstant
	close *tree.Constant
}

// parens builds "(" [abc]* ")" learned from the example "(a)".
func parens(t *testing.T) fixture {
	t.Helper()
	body, err := tree.NewMultiConstant("a", [][]rune{[]rune("abc")}, [][]rune{[]rune("a")})
	require.NoError(t, err)
	f := fixture{open: tree.NewConstant("("), body: body, close: tree.NewConstant(")")}
	f.root = tree.NewRepetition(f.open, f.body, f.close)
	return f
}

// TestNodeConstruction tests examples and constructor validation
func TestNodeConstruction(t *testing.T) {
	f := parens(t)
	assert.Equal(t, "(a)", f.root.Example())
	assert.Equal(t, []tree.Node{f.open, f.body, f.close}, tree.Children(f.root))
	assert.Len(t, tree.Descendants(f.root), 4)
	assert.Equal(t, `repetition("(a)")`, tree.Describe(f.root))
	assert.Contains(t, tree.Format(f.root), `  multiconstant("a")`)

	_, err := tree.NewMultiConstant("ab", [][]rune{[]rune("a")}, [][]rune{[]rune("a")})
	assert.True(t, errors.Is(err, tree.ErrInvalidNode))
	_, err = tree.NewMultiConstant("a", [][]rune{{}}, [][]rune{[]rune("a")})
	assert.True(t, errors.Is(err, tree.ErrInvalidNode))
	_, err = tree.NewMultiConstant("a", [][]rune{[]rune("ab")}, [][]rune{[]rune("az")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, tree.ErrInvalidNode))
	assert.Contains(t, err.Error(), "'z'")
	_, err = tree.NewMultiAlternation()
	assert.True(t, errors.Is(err, tree.ErrInvalidNode))

	mc, err := tree.NewMultiConstant("#", [][]rune{[]rune("##a#")}, [][]rune{[]rune("##")})
	require.NoError(t, err)
	assert.Equal(t, [][]rune{[]rune("#a")}, mc.Options)
	assert.Equal(t, [][]rune{[]rune("#")}, mc.Checks)

	alt := tree.NewAlternation(tree.NewConstant("x"), tree.NewConstant("y"))
	assert.Equal(t, "x", alt.Example())
}

// TestMergesSymmetric tests the merge relation bookkeeping
func TestMergesSymmetric(t *testing.T) {
	f := parens(t)
	m := tree.NewMerges()
	m.Add(f.body, f.root)
	m.Add(f.root, f.body)
	m.Add(f.open, f.open)

	assert.Equal(t, []tree.Node{f.root}, m.Get(f.body))
	assert.Equal(t, []tree.Node{f.body}, m.Get(f.root))
	assert.Empty(t, m.Get(f.open))
	assert.Equal(t, 2, m.Len())

	var nilMerges *tree.Merges
	assert.Empty(t, nilMerges.Get(f.root))
	assert.Zero(t, nilMerges.Len())
}

// TestPartitionRepresentatives tests that merged nodes share the earliest member
func TestPartitionRepresentatives(t *testing.T) {
	f := parens(t)
	m := tree.NewMerges()
	m.Add(f.close, f.body)

	reps := tree.Partition(f.root, m)
	assert.Equal(t, tree.Node(f.root), reps[f.root])
	assert.Equal(t, tree.Node(f.body), reps[f.close])
	assert.Equal(t, tree.Node(f.body), reps[f.body])
	assert.Equal(t, tree.Node(f.open), reps[f.open])
}

// TestIdentityParse tests that the identity parse reproduces the example
func TestIdentityParse(t *testing.T) {
	f := parens(t)
	pt, err := tree.IdentityParse(f.root)
	require.NoError(t, err)

	assert.Equal(t, "(a)", pt.Example)
	require.Len(t, pt.Children, 3)
	assert.Equal(t, tree.Node(f.body), pt.Children[1].Node)

	_, err = tree.IdentityParse(nil)
	assert.True(t, errors.Is(err, tree.ErrInvalidNode))
}

// TestBackupCoversEveryBranch tests that unchosen alternation branches still get backups
func TestBackupCoversEveryBranch(t *testing.T) {
	x, y := tree.NewConstant("x"), tree.NewConstant("y")
	alt := tree.NewAlternation(x, y)
	alt.Text = "y"
	root := tree.NewRepetition(tree.NewConstant("<"), alt, tree.NewConstant(">"))
	root.Text = "<y>"

	backup, err := tree.Backup(root)
	require.NoError(t, err)

	for _, n := range tree.Descendants(root) {
		require.Contains(t, backup, n)
	}
	assert.Equal(t, "y", backup[alt].Example)
	assert.Equal(t, "x", backup[x].Example)
	assert.Equal(t, "<y>", backup[root].Example)
}

// TestDescendantsByType tests the text-like and structural pools
func TestDescendantsByType(t *testing.T) {
	f := parens(t)
	pt, err := tree.IdentityParse(f.root)
	require.NoError(t, err)

	text, structural := pt.Descendants()
	require.Len(t, text, 1)
	assert.Equal(t, tree.Path{1}, text[0].Path)
	require.Len(t, structural, 3)
	assert.Empty(t, structural[0].Path)
	assert.Equal(t, tree.Path{0}, structural[1].Path)
	assert.Equal(t, tree.Path{2}, structural[2].Path)
	assert.Same(t, pt.Children[2], pt.At(tree.Path{2}))
	assert.Nil(t, pt.At(tree.Path{5}))
}

// TestSubstitute tests path substitution and example recomputation
func TestSubstitute(t *testing.T) {
	f := parens(t)
	pt, err := tree.IdentityParse(f.root)
	require.NoError(t, err)

	out, err := tree.Substitute(pt, tree.Path{1}, tree.Leaf(f.body, "c"))
	require.NoError(t, err)
	assert.Equal(t, "(c)", out.Example)
	assert.Equal(t, "(a)", pt.Example, "original must be untouched")
	assert.Same(t, pt.Children[0], out.Children[0])

	whole, err := tree.Substitute(pt, nil, tree.Leaf(f.open, "("))
	require.NoError(t, err)
	assert.Equal(t, "(", whole.Example)

	_, err = tree.Substitute(pt, tree.Path{3}, tree.Leaf(f.body, "c"))
	assert.True(t, errors.Is(err, tree.ErrInvalidNode))
}

// TestToGrammarWithRecursion tests that merges become recursion in the exported grammar
func TestToGrammarWithRecursion(t *testing.T) {
	f := parens(t)
	m := tree.NewMerges()
	m.Add(f.body, f.root)

	ng, err := tree.ToNormalGrammar(f.root, m)
	require.NoError(t, err)

	for _, in := range []string{"a", "c", "()", "(a)", "(abc)", "(a(b)c)", "((()))"} {
		assert.True(t, solver.Accepts(ng, in), "expected %q to be accepted", in)
	}
	for _, in := range []string{"", "((", "(a", "ab", "(d)"} {
		assert.False(t, solver.Accepts(ng, in), "expected %q to be rejected", in)
	}
}

// TestToGrammarWithoutMerges tests the plain export
func TestToGrammarWithoutMerges(t *testing.T) {
	f := parens(t)
	ma, err := tree.NewMultiAlternation(f.root, tree.NewConstant("xy"))
	require.NoError(t, err)

	g, err := tree.ToGrammar(ma, nil)
	require.NoError(t, err)
	ng, err := tree.ToNormalGrammar(ma, tree.NewMerges())
	require.NoError(t, err)
	assert.NotEmpty(t, g.ProductionsByTarget(g.Start()))

	for _, in := range []string{"xy", "()", "(bca)"} {
		assert.True(t, solver.Accepts(ng, in), "expected %q to be accepted", in)
	}
	for _, in := range []string{"x", "(()", "a"} {
		assert.False(t, solver.Accepts(ng, in), "expected %q to be rejected", in)
	}
}

const parensYAML = `
root: r
nodes:
  - {id: r, kind: repetition, start: open, rep: body, end: close}
  - {id: open, kind: constant, text: "("}
  - {id: body, kind: multiconstant, text: "a", options: ["abc"], checks: ["a"]}
  - {id: close, kind: constant, text: ")"}
merges:
  - [body, r]
`

// TestLoadYAML tests decoding a tree document
func TestLoadYAML(t *testing.T) {
	doc, err := tree.LoadYAML(strings.NewReader(parensYAML))
	require.NoError(t, err)

	root, ok := doc.Root.(*tree.Repetition)
	require.True(t, ok)
	assert.Equal(t, "(a)", root.Example())
	assert.Equal(t, []tree.Node{root}, doc.Merges.Get(root.Rep))
}

// TestYAMLRoundTrip tests that encoding then decoding preserves structure and merges
func TestYAMLRoundTrip(t *testing.T) {
	doc, err := tree.LoadYAML(strings.NewReader(parensYAML))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, tree.EncodeYAML(&buf, doc))

	again, err := tree.LoadYAML(&buf)
	require.NoError(t, err)
	assert.Equal(t, tree.Format(doc.Root), tree.Format(again.Root))
	assert.Equal(t, doc.Merges.Len(), again.Merges.Len())
}

// TestLoadYAMLErrors tests malformed documents
func TestLoadYAMLErrors(t *testing.T) {
	cases := map[string]string{
		"unknown id":   "root: x\nnodes: []\n",
		"duplicate id": "root: a\nnodes:\n  - {id: a, kind: constant}\n  - {id: a, kind: constant}\n",
		"cycle":        "root: a\nnodes:\n  - {id: a, kind: alternation, first: a, second: a}\n",
		"bad kind":     "root: a\nnodes:\n  - {id: a, kind: star}\n",
		"bad merge":    "root: a\nnodes:\n  - {id: a, kind: constant}\nmerges:\n  - [a]\n",
		"bad slots":    "root: a\nnodes:\n  - {id: a, kind: multiconstant, text: ab, options: [a], checks: [a]}\n",
		"stray check":  "root: a\nnodes:\n  - {id: a, kind: multiconstant, text: a, options: [a], checks: [z]}\n",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := tree.LoadYAML(strings.NewReader(src))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tree.ErrInvalidNode), err.Error())
		})
	}

	_, err := tree.LoadYAML(strings.NewReader("root: a\nbogus: 1\n"))
	assert.Error(t, err)
}
