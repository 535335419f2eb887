/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: normal.go
Description: Binarized normal form of a grammar. Every production has arity 0, 1 or 2;
longer productions are folded left-to-right through synthesized intermediate symbols.
Productions are indexed by target and by each input so the membership solver can
propagate chart edges in both directions.
*/

package grammar

import "sort"

// NoSymbol marks an absent stop symbol: the grammar accepts no string.
const NoSymbol = -1

// EmptyProduction is target -> ε.
type EmptyProduction struct {
	Target int
}

// UnaryProduction is target -> input.
type UnaryProduction struct {
	Target int
	Input  int
}

// BinaryProduction is target -> first second.
type BinaryProduction struct {
	Target int
	First  int
	Second int
}

// SymbolTable assigns dense integer ids to symbols on first use.
// Ids are stable for the lifetime of one table.
type SymbolTable struct {
	ids  map[Symbol]int
	next int
}

// NewSymbolTable creates an empty table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{ids: make(map[Symbol]int)}
}

// Fresh allocates an id not bound to any symbol.
func (t *SymbolTable) Fresh() int {
	id := t.next
	t.next++
	return id
}

// ID returns the id of s, assigning the next free id on first use.
func (t *SymbolTable) ID(s Symbol) int {
	if id, ok := t.ids[s]; ok {
		return id
	}
	id := t.Fresh()
	t.ids[s] = id
	return id
}

// Contains reports whether s has been assigned an id.
func (t *SymbolTable) Contains(s Symbol) bool {
	_, ok := t.ids[s]
	return ok
}

// Len returns the number of ids handed out, including fresh ones.
func (t *SymbolTable) Len() int {
	return t.next
}

// Characters returns the character symbols and their ids.
func (t *SymbolTable) Characters() map[rune]int {
	chars := make(map[rune]int)
	for s, id := range t.ids {
		if s.IsChar() {
			chars[s.Char] = id
		}
	}
	return chars
}

// NormalGrammar is the binarized form consumed by the solver.
type NormalGrammar struct {
	StopSymbol        int
	NumSymbols        int
	Characters        map[rune]int
	InverseCharacters map[int]rune

	binaryByTarget map[int][]BinaryProduction
	binaryByFirst  map[int][]BinaryProduction
	binaryBySecond map[int][]BinaryProduction
	unaryByTarget  map[int][]UnaryProduction
	unaryByInput   map[int][]UnaryProduction
	emptyByTarget  map[int][]EmptyProduction
}

func newNormalGrammar() *NormalGrammar {
	return &NormalGrammar{
		StopSymbol:        NoSymbol,
		Characters:        make(map[rune]int),
		InverseCharacters: make(map[int]rune),
		binaryByTarget:    make(map[int][]BinaryProduction),
		binaryByFirst:     make(map[int][]BinaryProduction),
		binaryBySecond:    make(map[int][]BinaryProduction),
		unaryByTarget:     make(map[int][]UnaryProduction),
		unaryByInput:      make(map[int][]UnaryProduction),
		emptyByTarget:     make(map[int][]EmptyProduction),
	}
}

// Normalize binarizes g. Symbol ids are assigned in production declaration order,
// target before inputs for empty and unary rules and inputs before target for
// longer ones, matching the left-to-right fold.
func Normalize(g *Grammar) *NormalGrammar {
	ng := newNormalGrammar()
	symbols := NewSymbolTable()
	for _, p := range g.Productions() {
		ng.addProduction(p, symbols)
	}
	for r, id := range symbols.Characters() {
		ng.Characters[r] = id
		ng.InverseCharacters[id] = r
	}
	ng.NumSymbols = symbols.Len()
	if symbols.Contains(g.Start()) {
		ng.StopSymbol = symbols.ID(g.Start())
	}
	return ng
}

func (ng *NormalGrammar) addProduction(p Production, symbols *SymbolTable) {
	switch len(p.Inputs) {
	case 0:
		ng.addEmpty(EmptyProduction{Target: symbols.ID(p.Target)})
	case 1:
		target := symbols.ID(p.Target)
		ng.addUnary(UnaryProduction{Target: target, Input: symbols.ID(p.Inputs[0])})
	default:
		first := symbols.ID(p.Inputs[0])
		second := symbols.ID(p.Inputs[1])
		for _, in := range p.Inputs[2:] {
			intermediate := symbols.Fresh()
			ng.addBinary(BinaryProduction{Target: intermediate, First: first, Second: second})
			first = intermediate
			second = symbols.ID(in)
		}
		ng.addBinary(BinaryProduction{Target: symbols.ID(p.Target), First: first, Second: second})
	}
}

func (ng *NormalGrammar) addBinary(bp BinaryProduction) {
	ng.binaryByTarget[bp.Target] = append(ng.binaryByTarget[bp.Target], bp)
	ng.binaryByFirst[bp.First] = append(ng.binaryByFirst[bp.First], bp)
	ng.binaryBySecond[bp.Second] = append(ng.binaryBySecond[bp.Second], bp)
}

func (ng *NormalGrammar) addUnary(up UnaryProduction) {
	ng.unaryByTarget[up.Target] = append(ng.unaryByTarget[up.Target], up)
	ng.unaryByInput[up.Input] = append(ng.unaryByInput[up.Input], up)
}

func (ng *NormalGrammar) addEmpty(ep EmptyProduction) {
	ng.emptyByTarget[ep.Target] = append(ng.emptyByTarget[ep.Target], ep)
}

// BinaryByTarget returns the binary productions deriving target.
func (ng *NormalGrammar) BinaryByTarget(target int) []BinaryProduction {
	return ng.binaryByTarget[target]
}

// BinaryByFirst returns the binary productions whose first input is symbol.
func (ng *NormalGrammar) BinaryByFirst(symbol int) []BinaryProduction {
	return ng.binaryByFirst[symbol]
}

// BinaryBySecond returns the binary productions whose second input is symbol.
func (ng *NormalGrammar) BinaryBySecond(symbol int) []BinaryProduction {
	return ng.binaryBySecond[symbol]
}

// UnaryByTarget returns the unary productions deriving target.
func (ng *NormalGrammar) UnaryByTarget(target int) []UnaryProduction {
	return ng.unaryByTarget[target]
}

// UnaryByInput returns the unary productions whose input is symbol.
func (ng *NormalGrammar) UnaryByInput(symbol int) []UnaryProduction {
	return ng.unaryByInput[symbol]
}

// EmptyByTarget returns the empty productions deriving target.
func (ng *NormalGrammar) EmptyByTarget(target int) []EmptyProduction {
	return ng.emptyByTarget[target]
}

// EmptyTargets returns, in ascending order, every symbol with an empty production.
func (ng *NormalGrammar) EmptyTargets() []int {
	targets := make([]int, 0, len(ng.emptyByTarget))
	for t := range ng.emptyByTarget {
		targets = append(targets, t)
	}
	sort.Ints(targets)
	return targets
}

// NumProductions counts empty, unary and binary productions.
func (ng *NormalGrammar) NumProductions() int {
	count := 0
	for _, ps := range ng.emptyByTarget {
		count += len(ps)
	}
	for _, ps := range ng.unaryByTarget {
		count += len(ps)
	}
	for _, ps := range ng.binaryByTarget {
		count += len(ps)
	}
	return count
}

// Size summarizes a normal grammar the way grammar statistics are reported.
type Size struct {
	Characters   int `json:"characters"`
	Nonterminals int `json:"nonterminals"`
	Productions  int `json:"productions"`
}

// Size returns the character, nonterminal and production counts.
func (ng *NormalGrammar) Size() Size {
	return Size{
		Characters:   len(ng.Characters),
		Nonterminals: ng.NumSymbols - len(ng.Characters),
		Productions:  ng.NumProductions(),
	}
}
