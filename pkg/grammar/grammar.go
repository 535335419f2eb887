/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: grammar.go
Description: Context-free grammar model for grammar-based fuzzing. Defines symbols,
productions and the Grammar container that indexes productions by their target so
samplers can look up the alternatives of a nonterminal in constant time.
*/

package grammar

import (
	"fmt"
	"strconv"
	"strings"
)

// SymbolKind distinguishes terminal characters from nonterminals.
type SymbolKind uint8

const (
	KindNonterminal SymbolKind = iota
	KindChar
)

// Symbol is an opaque grammar symbol. Character symbols carry their rune,
// nonterminals carry a name. Symbols are comparable and usable as map keys.
type Symbol struct {
	Kind SymbolKind
	Char rune
	Name string
}

// Char returns the terminal symbol for r.
func Char(r rune) Symbol {
	return Symbol{Kind: KindChar, Char: r}
}

// NT returns the nonterminal symbol with the given name.
func NT(name string) Symbol {
	return Symbol{Kind: KindNonterminal, Name: name}
}

// Chars returns one character symbol per rune of s.
func Chars(s string) []Symbol {
	symbols := make([]Symbol, 0, len(s))
	for _, r := range s {
		symbols = append(symbols, Char(r))
	}
	return symbols
}

// IsChar reports whether s is a terminal character.
func (s Symbol) IsChar() bool {
	return s.Kind == KindChar
}

// String renders characters quoted and nonterminals by name.
func (s Symbol) String() string {
	if s.IsChar() {
		return "'" + string(s.Char) + "'"
	}
	return s.Name
}

// GoString is used by %#v in diagnostics.
func (s Symbol) GoString() string {
	if s.IsChar() {
		return "Char(" + strconv.QuoteRune(s.Char) + ")"
	}
	return "NT(" + strconv.Quote(s.Name) + ")"
}

// Production is a rule target -> inputs[0] inputs[1] ... inputs[k-1], k >= 0.
type Production struct {
	Target Symbol
	Inputs []Symbol
}

// NewProduction builds a production from a target and its inputs.
func NewProduction(target Symbol, inputs ...Symbol) Production {
	return Production{Target: target, Inputs: inputs}
}

// Arity returns the number of inputs.
func (p Production) Arity() int {
	return len(p.Inputs)
}

// String renders the production in .gram syntax.
func (p Production) String() string {
	var sb strings.Builder
	sb.WriteString(p.Target.String())
	sb.WriteString(" ::=")
	if len(p.Inputs) == 0 {
		sb.WriteString(" e")
		return sb.String()
	}
	for _, in := range p.Inputs {
		sb.WriteString(" ")
		sb.WriteString(in.String())
	}
	return sb.String()
}

// Equal reports whether two productions have the same target and inputs.
func (p Production) Equal(other Production) bool {
	if p.Target != other.Target || len(p.Inputs) != len(other.Inputs) {
		return false
	}
	for i := range p.Inputs {
		if p.Inputs[i] != other.Inputs[i] {
			return false
		}
	}
	return true
}

// Grammar is an ordered collection of productions with a designated start symbol.
// Grammars are immutable after Build; malformed grammars are legal and may simply
// accept nothing.
type Grammar struct {
	productions []Production
	byTarget    map[Symbol][]Production
	start       Symbol
}

// Build indexes productions by target. No validation is performed.
func Build(productions []Production, start Symbol) *Grammar {
	g := &Grammar{
		productions: make([]Production, len(productions)),
		byTarget:    make(map[Symbol][]Production),
		start:       start,
	}
	copy(g.productions, productions)
	for _, p := range g.productions {
		g.byTarget[p.Target] = append(g.byTarget[p.Target], p)
	}
	return g
}

// Productions returns the productions in declaration order.
func (g *Grammar) Productions() []Production {
	return g.productions
}

// Start returns the start symbol.
func (g *Grammar) Start() Symbol {
	return g.start
}

// ProductionsByTarget returns every production deriving symbol, in declaration order.
func (g *Grammar) ProductionsByTarget(symbol Symbol) []Production {
	return g.byTarget[symbol]
}

// Nonterminals returns the distinct production targets in first-declaration order.
func (g *Grammar) Nonterminals() []Symbol {
	seen := make(map[Symbol]bool)
	var out []Symbol
	for _, p := range g.productions {
		if !seen[p.Target] {
			seen[p.Target] = true
			out = append(out, p.Target)
		}
	}
	return out
}

// String renders the grammar in .gram syntax, including default productions.
func (g *Grammar) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "@%s\n", g.start.Name)
	for _, p := range g.productions {
		sb.WriteString(p.String())
		sb.WriteString("\n")
	}
	return sb.String()
}
