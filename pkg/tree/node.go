/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: node.go
Description: Derivation-tree grammar nodes produced by grammar inference. The node set is
closed: constants, multi-constants (per-slot character classes), repetitions, binary
alternations and n-ary multi-alternations. Every node caches the example it was learned from.
Nodes are compared by identity and are immutable once constructed.
*/

package tree

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidNode reports a node that does not belong to the grammar being sampled, or a
// node that violates its own structural constraints.
var ErrInvalidNode = errors.New("invalid node")

// Node is one of *Constant, *MultiConstant, *Repetition, *Alternation or *MultiAlternation.
type Node interface {
	// Example returns the literal string this node was learned from.
	Example() string
	node()
}

// Constant is a fixed literal.
type Constant struct {
	Text string
}

// MultiConstant is a sequence of character slots. Options holds every admissible
// character for each slot; Checks holds the narrower set observed during learning.
type MultiConstant struct {
	Options [][]rune
	Checks  [][]rune
	Text    string
}

// Repetition is start rep* end.
type Repetition struct {
	Start Node
	Rep   Node
	End   Node
	Text  string
}

// Alternation is a choice between two subtrees.
type Alternation struct {
	First  Node
	Second Node
	Text   string
}

// MultiAlternation is a choice among one or more subtrees, typically the roots learned
// from separate examples.
type MultiAlternation struct {
	Children []Node
	Text     string
}

func (*Constant) node()         {}
func (*MultiConstant) node()    {}
func (*Repetition) node()       {}
func (*Alternation) node()      {}
func (*MultiAlternation) node() {}

func (n *Constant) Example() string         { return n.Text }
func (n *MultiConstant) Example() string    { return n.Text }
func (n *Repetition) Example() string       { return n.Text }
func (n *Alternation) Example() string      { return n.Text }
func (n *MultiAlternation) Example() string { return n.Text }

// NewConstant creates a literal node.
func NewConstant(text string) *Constant {
	return &Constant{Text: text}
}

// NewMultiConstant creates a character-class node. The example must have one character
// per slot, and every slot must offer at least one option and one check character.
// Slots are sets: repeated characters are dropped, and each check slot must be a subset
// of its option slot.
func NewMultiConstant(text string, options, checks [][]rune) (*MultiConstant, error) {
	if len(options) != len(checks) || len([]rune(text)) != len(options) {
		return nil, fmt.Errorf("%w: multi-constant %q has %d option slots and %d check slots",
			ErrInvalidNode, text, len(options), len(checks))
	}
	opts := make([][]rune, len(options))
	chks := make([][]rune, len(checks))
	for i := range options {
		if len(options[i]) == 0 || len(checks[i]) == 0 {
			return nil, fmt.Errorf("%w: multi-constant %q slot %d is empty", ErrInvalidNode, text, i)
		}
		opts[i] = distinct(options[i])
		chks[i] = distinct(checks[i])
		for _, r := range chks[i] {
			if !containsRune(opts[i], r) {
				return nil, fmt.Errorf("%w: multi-constant %q slot %d checks %q which is not an option",
					ErrInvalidNode, text, i, r)
			}
		}
	}
	return &MultiConstant{Options: opts, Checks: chks, Text: text}, nil
}

// distinct returns the runes of slot without repeats, in first-seen order.
func distinct(slot []rune) []rune {
	out := make([]rune, 0, len(slot))
	for _, r := range slot {
		if !containsRune(out, r) {
			out = append(out, r)
		}
	}
	return out
}

func containsRune(slot []rune, r rune) bool {
	for _, c := range slot {
		if c == r {
			return true
		}
	}
	return false
}

// NewRepetition creates start rep* end. Its example holds exactly one repeat.
func NewRepetition(start, rep, end Node) *Repetition {
	return &Repetition{
		Start: start,
		Rep:   rep,
		End:   end,
		Text:  start.Example() + rep.Example() + end.Example(),
	}
}

// NewAlternation creates a binary choice whose example is the first branch's.
func NewAlternation(first, second Node) *Alternation {
	return &Alternation{First: first, Second: second, Text: first.Example()}
}

// NewMultiAlternation creates an n-ary choice. At least one child is required.
func NewMultiAlternation(children ...Node) (*MultiAlternation, error) {
	if len(children) == 0 {
		return nil, fmt.Errorf("%w: multi-alternation without children", ErrInvalidNode)
	}
	return &MultiAlternation{Children: children, Text: children[0].Example()}, nil
}

// Children returns the direct subtrees of n in declaration order.
func Children(n Node) []Node {
	switch n := n.(type) {
	case *Repetition:
		return []Node{n.Start, n.Rep, n.End}
	case *Alternation:
		return []Node{n.First, n.Second}
	case *MultiAlternation:
		return n.Children
	default:
		return nil
	}
}

// Descendants returns n and every node below it in preorder.
func Descendants(n Node) []Node {
	var out []Node
	var walk func(Node)
	walk = func(cur Node) {
		out = append(out, cur)
		for _, c := range Children(cur) {
			walk(c)
		}
	}
	walk(n)
	return out
}

// Kind names the variant of n for diagnostics.
func Kind(n Node) string {
	switch n.(type) {
	case *Constant:
		return "constant"
	case *MultiConstant:
		return "multiconstant"
	case *Repetition:
		return "repetition"
	case *Alternation:
		return "alternation"
	case *MultiAlternation:
		return "multialternation"
	case nil:
		return "nil"
	default:
		return fmt.Sprintf("%T", n)
	}
}

// Describe renders n as kind("example") for error messages.
func Describe(n Node) string {
	if n == nil {
		return "nil"
	}
	return fmt.Sprintf("%s(%q)", Kind(n), n.Example())
}

// Format renders the subtree rooted at n, one node per line, for debugging.
func Format(n Node) string {
	var sb strings.Builder
	var walk func(Node, int)
	walk = func(cur Node, depth int) {
		sb.WriteString(strings.Repeat("  ", depth))
		sb.WriteString(Describe(cur))
		sb.WriteString("\n")
		for _, c := range Children(cur) {
			walk(c, depth+1)
		}
	}
	walk(n, 0)
	return sb.String()
}
