/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: parse.go
Description: Parse trees over derivation-tree grammars. A parse tree records which grammar
node produced each fragment of a concrete sample so that one subtree can later be replaced
by a fresh sample of the same node. Identity parses reproduce a node's own example.
*/

package tree

import (
	"fmt"
	"strings"
)

// ParseTree is a concrete derivation. Repetition parses hold start, each repeat, then end
// as children; every other node is a leaf. Parse trees are immutable.
type ParseTree struct {
	Node     Node
	Example  string
	Children []*ParseTree
}

// Leaf creates a childless parse of n producing example.
func Leaf(n Node, example string) *ParseTree {
	return &ParseTree{Node: n, Example: example}
}

// Repeat creates a repetition parse and concatenates its example.
func Repeat(n *Repetition, start *ParseTree, reps []*ParseTree, end *ParseTree) *ParseTree {
	children := make([]*ParseTree, 0, len(reps)+2)
	children = append(children, start)
	children = append(children, reps...)
	children = append(children, end)
	return &ParseTree{Node: n, Example: concat(children), Children: children}
}

func concat(children []*ParseTree) string {
	var sb strings.Builder
	for _, c := range children {
		sb.WriteString(c.Example)
	}
	return sb.String()
}

// IdentityParse returns the parse of n that reproduces its cached example. Alternations
// resolve to the branch whose example matches, falling back to the first branch.
func IdentityParse(n Node) (*ParseTree, error) {
	return identityParse(n, nil)
}

// Backup returns the identity parse of every node in the tree rooted at root. Every
// branch of every alternation is covered, not only the branch the identity parse takes.
func Backup(root Node) (map[Node]*ParseTree, error) {
	backup := make(map[Node]*ParseTree)
	if _, err := identityParse(root, backup); err != nil {
		return nil, err
	}
	return backup, nil
}

func identityParse(n Node, record map[Node]*ParseTree) (*ParseTree, error) {
	var pt *ParseTree
	switch n := n.(type) {
	case *Constant:
		pt = Leaf(n, n.Text)
	case *MultiConstant:
		pt = Leaf(n, n.Text)
	case *Repetition:
		start, err := identityParse(n.Start, record)
		if err != nil {
			return nil, err
		}
		rep, err := identityParse(n.Rep, record)
		if err != nil {
			return nil, err
		}
		end, err := identityParse(n.End, record)
		if err != nil {
			return nil, err
		}
		pt = Repeat(n, start, []*ParseTree{rep}, end)
	case *Alternation:
		branches, err := identityBranches(n.Example(), []Node{n.First, n.Second}, record)
		if err != nil {
			return nil, err
		}
		pt = branches
	case *MultiAlternation:
		branches, err := identityBranches(n.Example(), n.Children, record)
		if err != nil {
			return nil, err
		}
		pt = branches
	default:
		return nil, fmt.Errorf("%w: cannot parse %s", ErrInvalidNode, Describe(n))
	}
	if record != nil {
		if _, ok := record[n]; !ok {
			record[n] = pt
		}
	}
	return pt, nil
}

func identityBranches(example string, children []Node, record map[Node]*ParseTree) (*ParseTree, error) {
	if len(children) == 0 {
		return nil, fmt.Errorf("%w: alternation without branches", ErrInvalidNode)
	}
	var first, chosen *ParseTree
	for i, c := range children {
		pt, err := identityParse(c, record)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			first = pt
		}
		if chosen == nil && pt.Example == example {
			chosen = pt
		}
		if record == nil && chosen != nil {
			break
		}
	}
	if chosen == nil {
		return first, nil
	}
	return chosen, nil
}

// Path addresses a subtree by child indexes from the root.
type Path []int

// Entry is a subtree together with its address.
type Entry struct {
	Path Path
	Tree *ParseTree
}

// Descendants returns every subtree of pt, pt included, split into text-like subtrees
// (multi-constant parses) and structural subtrees (everything else).
func (pt *ParseTree) Descendants() (text, structural []Entry) {
	var walk func(*ParseTree, Path)
	walk = func(cur *ParseTree, path Path) {
		entry := Entry{Path: append(Path(nil), path...), Tree: cur}
		if _, ok := cur.Node.(*MultiConstant); ok {
			text = append(text, entry)
		} else {
			structural = append(structural, entry)
		}
		for i, c := range cur.Children {
			walk(c, append(path, i))
		}
	}
	walk(pt, nil)
	return text, structural
}

// At returns the subtree at path, or nil if the path does not exist.
func (pt *ParseTree) At(path Path) *ParseTree {
	cur := pt
	for _, i := range path {
		if i < 0 || i >= len(cur.Children) {
			return nil
		}
		cur = cur.Children[i]
	}
	return cur
}

// Substitute returns a copy of root with the subtree at path replaced by sub. Ancestors
// along the path are rebuilt with recomputed examples; untouched siblings are shared.
func Substitute(root *ParseTree, path Path, sub *ParseTree) (*ParseTree, error) {
	if len(path) == 0 {
		return sub, nil
	}
	i := path[0]
	if i < 0 || i >= len(root.Children) {
		return nil, fmt.Errorf("%w: path index %d out of range under %s", ErrInvalidNode, i, Describe(root.Node))
	}
	replaced, err := Substitute(root.Children[i], path[1:], sub)
	if err != nil {
		return nil, err
	}
	children := make([]*ParseTree, len(root.Children))
	copy(children, root.Children)
	children[i] = replaced
	return &ParseTree{Node: root.Node, Example: concat(children), Children: children}, nil
}
