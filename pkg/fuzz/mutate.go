/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: mutate.go
Description: Subtree mutation of sampled parse trees. One mutation picks a subtree, preferring
text-like (multi-constant) fragments half of the time, resamples the grammar node that produced
it and splices the result back in. Character-level edit mutants are layered on top for
combined mutation.
*/

package fuzz

import (
	"fmt"
	"math/rand"
	"unicode/utf8"

	"github.com/morellic/glade-full/pkg/tree"
)

// MutateSubtree replaces one randomly chosen subtree of seed with a fresh sample of the
// same grammar node. No length or validity check is applied.
func MutateSubtree(g *TreeGrammar, seed *tree.ParseTree, params SampleParameters, rng *rand.Rand) (*tree.ParseTree, error) {
	text, structural := seed.Descendants()
	pool := structural
	if len(structural) == 0 || (len(text) > 0 && rng.Intn(2) == 0) {
		pool = text
	}
	chosen := pool[rng.Intn(len(pool))]

	sub, err := Sample(g, chosen.Tree.Node, params, rng)
	if err != nil {
		return nil, err
	}
	return tree.Substitute(seed, chosen.Path, sub)
}

// MutationSampler produces samples by applying a random number of subtree mutations to
// the identity parse of the grammar.
type MutationSampler struct {
	grammar      *TreeGrammar
	params       SampleParameters
	maxLength    int
	numMutations int
	rng          *rand.Rand
}

// NewMutationSampler creates a sampler performing between 0 and numMutations-1 mutation
// rounds per sample, each bounded by maxLength characters.
func NewMutationSampler(g *TreeGrammar, params SampleParameters, maxLength, numMutations int, rng *rand.Rand) (*MutationSampler, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if maxLength <= 0 || numMutations <= 0 {
		return nil, fmt.Errorf("invalid mutation sampler: maxLength=%d numMutations=%d must be positive", maxLength, numMutations)
	}
	return &MutationSampler{
		grammar:      g,
		params:       params,
		maxLength:    maxLength,
		numMutations: numMutations,
		rng:          rng,
	}, nil
}

// Mutate applies one subtree mutation, retrying until the result fits in maxLength.
// Retries are unbounded.
func (m *MutationSampler) Mutate(seed *tree.ParseTree) (*tree.ParseTree, error) {
	for {
		result, err := MutateSubtree(m.grammar, seed, m.params, m.rng)
		if err != nil {
			return nil, err
		}
		if utf8.RuneCountInString(result.Example) <= m.maxLength {
			return result, nil
		}
	}
}

// SampleOne mutates the identity parse of n a random number of times.
func (m *MutationSampler) SampleOne(n tree.Node) (string, error) {
	cur := m.grammar.Backup(n)
	if cur == nil {
		return "", fmt.Errorf("%w: %s is not part of the grammar", tree.ErrInvalidNode, tree.Describe(n))
	}
	rounds := m.rng.Intn(m.numMutations)
	for i := 0; i < rounds; i++ {
		next, err := m.Mutate(cur)
		if err != nil {
			return "", err
		}
		cur = next
	}
	return cur.Example, nil
}

// Sample mutates the root, or one uniformly chosen example root of a multi-alternation.
func (m *MutationSampler) Sample() (string, error) {
	root := m.grammar.Root
	if ma, ok := root.(*tree.MultiAlternation); ok {
		return m.SampleOne(ma.Children[m.rng.Intn(len(ma.Children))])
	}
	return m.SampleOne(root)
}

// Name identifies the sampler in logs.
func (m *MutationSampler) Name() string {
	return "MutationSampler"
}

// CombinedMutationSampler applies character edits on top of another sampler's output.
type CombinedMutationSampler struct {
	sampler      Sampler
	numMutations int
	rng          *rand.Rand
}

// NewCombinedMutationSampler wraps sampler with between 0 and numMutations-1 edits per sample.
func NewCombinedMutationSampler(sampler Sampler, numMutations int, rng *rand.Rand) (*CombinedMutationSampler, error) {
	if numMutations <= 0 {
		return nil, fmt.Errorf("invalid combined sampler: numMutations=%d must be positive", numMutations)
	}
	return &CombinedMutationSampler{sampler: sampler, numMutations: numMutations, rng: rng}, nil
}

// Sample draws from the wrapped sampler and edits the result.
func (c *CombinedMutationSampler) Sample() (string, error) {
	s, err := c.sampler.Sample()
	if err != nil {
		return "", err
	}
	return StringMutant(s, c.rng.Intn(c.numMutations), c.rng), nil
}

// Name identifies the sampler in logs.
func (c *CombinedMutationSampler) Name() string {
	return "CombinedMutationSampler"
}

// MutantCharacter draws a printable ASCII character other than the single quote.
func MutantCharacter(rng *rand.Rand) rune {
	r := rune(32 + rng.Intn(94))
	if r >= '\'' {
		r++
	}
	return r
}

// StringMutant applies k random single-character edits to s. Each edit picks a position
// and either inserts a random printable character before it or deletes it; an empty string
// becomes a single random character.
func StringMutant(s string, k int, rng *rand.Rand) string {
	runes := []rune(s)
	for i := 0; i < k; i++ {
		if len(runes) == 0 {
			runes = []rune{MutantCharacter(rng)}
			continue
		}
		pos := rng.Intn(len(runes))
		if rng.Intn(2) == 0 {
			runes = append(runes[:pos:pos], append([]rune{MutantCharacter(rng)}, runes[pos:]...)...)
		} else {
			runes = append(runes[:pos:pos], runes[pos+1:]...)
		}
	}
	return string(runes)
}
