/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: multigrammar.go
Description: Unweighted sampler for explicit production grammars. Every nonterminal picks
one of its productions uniformly. Running out of budget abandons the whole sample and
starts over from the start symbol.
*/

package fuzz

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"github.com/morellic/glade-full/pkg/grammar"
)

// ErrBudgetExhausted aborts a sample that visited more symbols than its budget allows.
var ErrBudgetExhausted = errors.New("sampling budget exhausted")

// Derivation is a sampled derivation of an explicit grammar.
type Derivation struct {
	Symbol   grammar.Symbol
	Example  string
	Children []*Derivation
}

// SampleDerivation draws one derivation of g's start symbol using at most boxSize symbol
// visits per attempt. Attempts that exhaust the budget are retried without bound; a
// nonterminal with no productions is a configuration error.
func SampleDerivation(g *grammar.Grammar, boxSize int, rng *rand.Rand) (*Derivation, error) {
	for {
		budget := boxSize
		d, err := sampleSymbol(g, g.Start(), &budget, rng)
		if errors.Is(err, ErrBudgetExhausted) {
			continue
		}
		return d, err
	}
}

func sampleSymbol(g *grammar.Grammar, sym grammar.Symbol, budget *int, rng *rand.Rand) (*Derivation, error) {
	if *budget < 0 {
		return nil, ErrBudgetExhausted
	}
	*budget--

	if sym.IsChar() {
		return &Derivation{Symbol: sym, Example: string(sym.Char)}, nil
	}
	productions := g.ProductionsByTarget(sym)
	if len(productions) == 0 {
		return nil, fmt.Errorf("nonterminal %s has no productions", sym)
	}
	p := productions[rng.Intn(len(productions))]

	var sb strings.Builder
	children := make([]*Derivation, 0, len(p.Inputs))
	for _, in := range p.Inputs {
		child, err := sampleSymbol(g, in, budget, rng)
		if err != nil {
			return nil, err
		}
		sb.WriteString(child.Example)
		children = append(children, child)
	}
	return &Derivation{Symbol: sym, Example: sb.String(), Children: children}, nil
}

// MultiGrammarSampler draws strings from an explicit grammar.
type MultiGrammarSampler struct {
	grammar *grammar.Grammar
	boxSize int
	rng     *rand.Rand
}

// NewMultiGrammarSampler creates a sampler with the given per-attempt budget.
func NewMultiGrammarSampler(g *grammar.Grammar, boxSize int, rng *rand.Rand) (*MultiGrammarSampler, error) {
	if boxSize <= 0 {
		return nil, fmt.Errorf("invalid box size %d", boxSize)
	}
	return &MultiGrammarSampler{grammar: g, boxSize: boxSize, rng: rng}, nil
}

// Sample returns one random string of the grammar.
func (m *MultiGrammarSampler) Sample() (string, error) {
	d, err := SampleDerivation(m.grammar, m.boxSize, m.rng)
	if err != nil {
		return "", err
	}
	return d.Example, nil
}

// Name identifies the sampler in logs.
func (m *MultiGrammarSampler) Name() string {
	return "MultiGrammarSampler"
}
