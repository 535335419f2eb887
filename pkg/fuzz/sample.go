/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: sample.go
Description: Bounded random sampling from derivation-tree grammars. Each sample draws from a
shared node-visit budget; once the budget is spent, every remaining node expands to its
identity parse, so sampling terminates for any parameters, including certain recursion.
*/

package fuzz

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/morellic/glade-full/pkg/tree"
)

// TreeGrammar is a learned derivation tree with its merge relation and the identity
// parse of every node, computed once and shared by all samples.
type TreeGrammar struct {
	Root   tree.Node
	Merges *tree.Merges
	backup map[tree.Node]*tree.ParseTree
}

// NewTreeGrammar computes identity parses for root and checks that every merge endpoint
// belongs to the tree.
func NewTreeGrammar(root tree.Node, merges *tree.Merges) (*TreeGrammar, error) {
	backup, err := tree.Backup(root)
	if err != nil {
		return nil, err
	}
	if merges == nil {
		merges = tree.NewMerges()
	}
	for _, n := range merges.Keys() {
		if _, ok := backup[n]; !ok {
			return nil, fmt.Errorf("%w: merged node %s is not part of the tree", tree.ErrInvalidNode, tree.Describe(n))
		}
		for _, partner := range merges.Get(n) {
			if _, ok := backup[partner]; !ok {
				return nil, fmt.Errorf("%w: merge partner %s of %s is not part of the tree",
					tree.ErrInvalidNode, tree.Describe(partner), tree.Describe(n))
			}
		}
	}
	return &TreeGrammar{Root: root, Merges: merges, backup: backup}, nil
}

// Backup returns the identity parse of n, or nil if n is not part of the tree.
func (g *TreeGrammar) Backup(n tree.Node) *tree.ParseTree {
	return g.backup[n]
}

// sampling is the per-sample state: one budget shared by the whole expansion.
type sampling struct {
	grammar *TreeGrammar
	params  SampleParameters
	rng     *rand.Rand
	budget  int
}

// Sample expands program, a node of g, into a random parse tree.
func Sample(g *TreeGrammar, program tree.Node, params SampleParameters, rng *rand.Rand) (*tree.ParseTree, error) {
	for _, n := range tree.Descendants(program) {
		if _, ok := g.backup[n]; !ok {
			return nil, fmt.Errorf("%w: %s is not part of the grammar", tree.ErrInvalidNode, tree.Describe(n))
		}
	}
	s := &sampling{grammar: g, params: params, rng: rng, budget: params.BoxSize}
	return s.sample(program)
}

func (s *sampling) sample(n tree.Node) (*tree.ParseTree, error) {
	if s.budget <= 0 {
		return s.grammar.backup[n], nil
	}
	s.budget--

	if partners := s.grammar.Merges.Get(n); len(partners) > 0 && s.params.randRecursion(s.rng) {
		return s.sample(partners[s.rng.Intn(len(partners))])
	}

	switch n := n.(type) {
	case *tree.MultiAlternation:
		return s.sample(n.Children[s.rng.Intn(len(n.Children))])
	case *tree.Alternation:
		if s.rng.Intn(2) == 0 {
			return s.sample(n.First)
		}
		return s.sample(n.Second)
	case *tree.Repetition:
		start, err := s.sample(n.Start)
		if err != nil {
			return nil, err
		}
		count := s.params.randRepetition(s.rng)
		reps := make([]*tree.ParseTree, 0, count)
		for i := 0; i < count; i++ {
			rep, err := s.sample(n.Rep)
			if err != nil {
				return nil, err
			}
			reps = append(reps, rep)
		}
		end, err := s.sample(n.End)
		if err != nil {
			return nil, err
		}
		return tree.Repeat(n, start, reps, end), nil
	case *tree.MultiConstant:
		return tree.Leaf(n, s.sampleCharacters(n)), nil
	case *tree.Constant:
		return tree.Leaf(n, n.Text), nil
	default:
		return nil, fmt.Errorf("%w: cannot sample %s", tree.ErrInvalidNode, tree.Describe(n))
	}
}

func (s *sampling) sampleCharacters(n *tree.MultiConstant) string {
	slots := n.Checks
	if s.params.randAllCharacters(s.rng) {
		slots = n.Options
	}
	var sb strings.Builder
	for _, slot := range slots {
		choices := slot
		if s.params.OmitPound && len(slot) > 1 {
			choices = make([]rune, 0, len(slot))
			for _, r := range slot {
				if r != Pound {
					choices = append(choices, r)
				}
			}
			if len(choices) == 0 {
				choices = slot
			}
		}
		sb.WriteRune(choices[s.rng.Intn(len(choices))])
	}
	return sb.String()
}

// GrammarSampler draws independent samples of the whole tree grammar.
type GrammarSampler struct {
	grammar *TreeGrammar
	params  SampleParameters
	rng     *rand.Rand
}

// NewGrammarSampler validates params and creates a sampler.
func NewGrammarSampler(g *TreeGrammar, params SampleParameters, rng *rand.Rand) (*GrammarSampler, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &GrammarSampler{grammar: g, params: params, rng: rng}, nil
}

// Sample returns one random string of the grammar.
func (gs *GrammarSampler) Sample() (string, error) {
	pt, err := Sample(gs.grammar, gs.grammar.Root, gs.params, gs.rng)
	if err != nil {
		return "", err
	}
	return pt.Example, nil
}

// Name identifies the sampler in logs.
func (gs *GrammarSampler) Name() string {
	return "GrammarSampler"
}
