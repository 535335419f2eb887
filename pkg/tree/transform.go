/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: transform.go
Description: Export of a derivation-tree grammar to an explicit production grammar. Merged
nodes share the symbol of their class representative, which is how recursion learned
through merges becomes recursion in the exported grammar.
*/

package tree

import (
	"fmt"

	"github.com/morellic/glade-full/pkg/grammar"
)

type exporter struct {
	reps        map[Node]Node
	symbols     map[Node]grammar.Symbol
	fresh       int
	productions []grammar.Production
}

func (e *exporter) symbol(n Node) grammar.Symbol {
	rep, ok := e.reps[n]
	if !ok {
		rep = n
	}
	if s, ok := e.symbols[rep]; ok {
		return s
	}
	s := grammar.NT(fmt.Sprintf("<N%d>", len(e.symbols)))
	e.symbols[rep] = s
	return s
}

func (e *exporter) freshSymbol() grammar.Symbol {
	s := grammar.NT(fmt.Sprintf("<I%d>", e.fresh))
	e.fresh++
	return s
}

func (e *exporter) add(target grammar.Symbol, inputs ...grammar.Symbol) {
	e.productions = append(e.productions, grammar.NewProduction(target, inputs...))
}

// ToGrammar converts the tree rooted at root, under merge relation m, into a production
// grammar whose start symbol is the root's symbol.
//
//	repetition        A -> I end, I -> start, I -> I rep
//	multi-constant    A -> C1 ... Ck, Ci -> c for every option c of slot i
//	(multi-)alternation A -> child for every child
//	constant          A -> c1 ... cn
func ToGrammar(root Node, m *Merges) (*grammar.Grammar, error) {
	e := &exporter{
		reps:    Partition(root, m),
		symbols: make(map[Node]grammar.Symbol),
	}
	start := e.symbol(root)
	if err := e.export(root); err != nil {
		return nil, err
	}
	return grammar.Build(e.productions, start), nil
}

func (e *exporter) export(n Node) error {
	target := e.symbol(n)
	switch n := n.(type) {
	case *Repetition:
		intermediate := e.freshSymbol()
		e.add(intermediate, e.symbol(n.Start))
		e.add(intermediate, intermediate, e.symbol(n.Rep))
		e.add(target, intermediate, e.symbol(n.End))
		for _, c := range []Node{n.Start, n.Rep, n.End} {
			if err := e.export(c); err != nil {
				return err
			}
		}
	case *MultiConstant:
		slots := make([]grammar.Symbol, len(n.Options))
		for i, options := range n.Options {
			slots[i] = e.freshSymbol()
			for _, r := range options {
				e.add(slots[i], grammar.Char(r))
			}
		}
		e.add(target, slots...)
	case *Alternation:
		for _, c := range []Node{n.First, n.Second} {
			e.add(target, e.symbol(c))
			if err := e.export(c); err != nil {
				return err
			}
		}
	case *MultiAlternation:
		for _, c := range n.Children {
			e.add(target, e.symbol(c))
			if err := e.export(c); err != nil {
				return err
			}
		}
	case *Constant:
		e.add(target, grammar.Chars(n.Text)...)
	default:
		return fmt.Errorf("%w: cannot export %s", ErrInvalidNode, Describe(n))
	}
	return nil
}

// ToNormalGrammar exports and binarizes the tree in one step.
func ToNormalGrammar(root Node, m *Merges) (*grammar.NormalGrammar, error) {
	g, err := ToGrammar(root, m)
	if err != nil {
		return nil, err
	}
	return grammar.Normalize(g), nil
}
