/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: problem.go
Description: Search problems for the coverage-guided optimizer. A problem produces an initial
example and random neighbours of an example. The learned-grammar problem samples and mutates
parse trees of a tree grammar and keeps only candidates that fit the length cap and that
the membership oracle accepts.
*/

package optimize

import (
	"context"
	"fmt"
	"math/rand"
	"unicode/utf8"

	"github.com/morellic/glade-full/pkg/fuzz"
	"github.com/morellic/glade-full/pkg/oracle"
	"github.com/morellic/glade-full/pkg/tree"
)

// StructuredExample is a candidate input carrying whatever structure its problem needs to
// produce neighbours.
type StructuredExample interface {
	Input() string
}

// GrammarProblem produces a seed and neighbours of an example.
type GrammarProblem[T StructuredExample] interface {
	Seed(ctx context.Context) (T, error)
	Sample(ctx context.Context, seed T) (T, error)
}

// ParseTreeExample is a sampled parse tree.
type ParseTreeExample struct {
	Tree *tree.ParseTree
}

// Input returns the tree's string.
func (p ParseTreeExample) Input() string {
	return p.Tree.Example
}

// LearnedGrammarProblem searches the language of a tree grammar. Candidates longer than
// MaxLength runes or rejected by the oracle are discarded and redrawn; the redraw loop only
// ends through success, an error or ctx.
type LearnedGrammarProblem struct {
	grammar   *fuzz.TreeGrammar
	oracle    oracle.Discriminative
	params    fuzz.SampleParameters
	maxLength int
	rng       *rand.Rand
}

// NewLearnedGrammarProblem validates params and creates a problem.
func NewLearnedGrammarProblem(g *fuzz.TreeGrammar, o oracle.Discriminative, params fuzz.SampleParameters, maxLength int, rng *rand.Rand) (*LearnedGrammarProblem, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if maxLength <= 0 {
		return nil, fmt.Errorf("invalid max length %d", maxLength)
	}
	return &LearnedGrammarProblem{grammar: g, oracle: o, params: params, maxLength: maxLength, rng: rng}, nil
}

// Seed samples the whole grammar until an acceptable example appears.
func (p *LearnedGrammarProblem) Seed(ctx context.Context) (ParseTreeExample, error) {
	return p.draw(ctx, func() (*tree.ParseTree, error) {
		return fuzz.Sample(p.grammar, p.grammar.Root, p.params, p.rng)
	})
}

// Sample mutates one subtree of seed until an acceptable example appears.
func (p *LearnedGrammarProblem) Sample(ctx context.Context, seed ParseTreeExample) (ParseTreeExample, error) {
	return p.draw(ctx, func() (*tree.ParseTree, error) {
		return fuzz.MutateSubtree(p.grammar, seed.Tree, p.params, p.rng)
	})
}

func (p *LearnedGrammarProblem) draw(ctx context.Context, next func() (*tree.ParseTree, error)) (ParseTreeExample, error) {
	for {
		if err := ctx.Err(); err != nil {
			return ParseTreeExample{}, err
		}
		pt, err := next()
		if err != nil {
			return ParseTreeExample{}, err
		}
		if utf8.RuneCountInString(pt.Example) > p.maxLength {
			continue
		}
		ok, err := p.oracle.Query(ctx, pt.Example)
		if err != nil {
			return ParseTreeExample{}, fmt.Errorf("oracle query failed: %w", err)
		}
		if ok {
			return ParseTreeExample{Tree: pt}, nil
		}
	}
}
