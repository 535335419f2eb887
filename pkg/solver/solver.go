/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: solver.go
Description: Chart-parsing membership solver for binarized grammars. Edges (start, end, symbol)
record that a symbol derives a span of the input; new edges are propagated through binary
and unary productions from a FIFO worklist until a fixpoint is reached.
*/

package solver

import (
	"github.com/morellic/glade-full/pkg/grammar"
)

type edge struct {
	start  int
	end    int
	symbol int
}

// Solver decides membership of strings in a normal grammar. A Solver holds
// per-call scratch state and must not be shared between goroutines.
type Solver struct {
	edges    map[edge]struct{}
	worklist []edge
	outgoing []map[int][]edge // position -> symbol -> edges starting there
	incoming []map[int][]edge // position -> symbol -> edges ending there
}

// New creates a Solver.
func New() *Solver {
	return &Solver{}
}

// Solve reports whether ng derives input.
func (s *Solver) Solve(ng *grammar.NormalGrammar, input string) bool {
	if ng.StopSymbol == grammar.NoSymbol {
		return false
	}
	runes := []rune(input)
	n := len(runes)

	s.reset(n)

	for i, r := range runes {
		id, ok := ng.Characters[r]
		if !ok {
			return false
		}
		s.add(edge{start: i, end: i + 1, symbol: id})
	}
	targets := ng.EmptyTargets()
	for i := 0; i <= n; i++ {
		for _, t := range targets {
			s.add(edge{start: i, end: i, symbol: t})
		}
	}

	for head := 0; head < len(s.worklist); head++ {
		e := s.worklist[head]
		for _, bp := range ng.BinaryByFirst(e.symbol) {
			for _, second := range s.outgoing[e.end][bp.Second] {
				s.add(edge{start: e.start, end: second.end, symbol: bp.Target})
			}
		}
		for _, bp := range ng.BinaryBySecond(e.symbol) {
			for _, first := range s.incoming[e.start][bp.First] {
				s.add(edge{start: first.start, end: e.end, symbol: bp.Target})
			}
		}
		for _, up := range ng.UnaryByInput(e.symbol) {
			s.add(edge{start: e.start, end: e.end, symbol: up.Target})
		}
	}

	_, ok := s.edges[edge{start: 0, end: n, symbol: ng.StopSymbol}]
	return ok
}

func (s *Solver) reset(n int) {
	s.edges = make(map[edge]struct{})
	s.worklist = s.worklist[:0]
	s.outgoing = make([]map[int][]edge, n+1)
	s.incoming = make([]map[int][]edge, n+1)
	for i := range s.outgoing {
		s.outgoing[i] = make(map[int][]edge)
		s.incoming[i] = make(map[int][]edge)
	}
}

func (s *Solver) add(e edge) {
	if _, ok := s.edges[e]; ok {
		return
	}
	s.edges[e] = struct{}{}
	s.outgoing[e.start][e.symbol] = append(s.outgoing[e.start][e.symbol], e)
	s.incoming[e.end][e.symbol] = append(s.incoming[e.end][e.symbol], e)
	s.worklist = append(s.worklist, e)
}

// Accepts is a convenience wrapper running a fresh Solver.
func Accepts(ng *grammar.NormalGrammar, input string) bool {
	return New().Solve(ng, input)
}
