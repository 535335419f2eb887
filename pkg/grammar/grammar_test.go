/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: grammar_test.go
Description: Tests for the grammar model, binarized normal form, flat-stream persistence,
the .gram file format and the built-in synthetic grammars.
*/

package grammar_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/morellic/glade-full/pkg/grammar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func anbn() *grammar.Grammar {
	s := grammar.NT("S")
	return grammar.Build([]grammar.Production{
		grammar.NewProduction(s, grammar.Char('a'), s, grammar.Char('b')),
		grammar.NewProduction(s),
	}, s)
}

// TestBuildIndexesByTarget tests that productions are grouped by target in declaration order
func TestBuildIndexesByTarget(t *testing.T) {
	g := grammar.SimpleParentheses()

	byS := g.ProductionsByTarget(grammar.NT("S"))
	require.Len(t, byS, 3)
	assert.Equal(t, 0, byS[0].Arity())
	assert.Equal(t, 3, byS[1].Arity())
	assert.Equal(t, 2, byS[2].Arity())
	assert.Empty(t, g.ProductionsByTarget(grammar.NT("T")))
	assert.Equal(t, []grammar.Symbol{grammar.NT("S")}, g.Nonterminals())
}

// TestProductionString tests .gram rendering of productions
func TestProductionString(t *testing.T) {
	s := grammar.NT("S")
	assert.Equal(t, "S ::= e", grammar.NewProduction(s).String())
	assert.Equal(t, "S ::= '(' S ')'", grammar.NewProduction(s, grammar.Char('('), s, grammar.Char(')')).String())
	assert.Equal(t, `Char('x')`, grammar.Char('x').GoString())
}

// TestNormalizeFoldsLeftToRight tests the binary decomposition and symbol numbering
func TestNormalizeFoldsLeftToRight(t *testing.T) {
	ng := grammar.Normalize(anbn())

	// a=0, S=1, intermediate=2, b=3
	assert.Equal(t, 4, ng.NumSymbols)
	assert.Equal(t, 1, ng.StopSymbol)
	assert.Equal(t, map[rune]int{'a': 0, 'b': 3}, ng.Characters)
	assert.Equal(t, map[int]rune{0: 'a', 3: 'b'}, ng.InverseCharacters)

	assert.Equal(t, []grammar.BinaryProduction{{Target: 2, First: 0, Second: 1}}, ng.BinaryByTarget(2))
	assert.Equal(t, []grammar.BinaryProduction{{Target: 1, First: 2, Second: 3}}, ng.BinaryByTarget(1))
	assert.Equal(t, ng.BinaryByTarget(2), ng.BinaryByFirst(0))
	assert.Equal(t, ng.BinaryByTarget(1), ng.BinaryBySecond(3))
	assert.Equal(t, []grammar.EmptyProduction{{Target: 1}}, ng.EmptyByTarget(1))
	assert.Equal(t, []int{1}, ng.EmptyTargets())
	assert.Empty(t, ng.UnaryByInput(0))

	size := ng.Size()
	assert.Equal(t, 2, size.Characters)
	assert.Equal(t, 2, size.Nonterminals)
	assert.Equal(t, 3, size.Productions)
}

// TestNormalizeUnary tests unary productions and their input index
func TestNormalizeUnary(t *testing.T) {
	s, x := grammar.NT("S"), grammar.NT("X")
	g := grammar.Build([]grammar.Production{
		grammar.NewProduction(s, x),
		grammar.NewProduction(x, grammar.Char('z')),
	}, s)
	ng := grammar.Normalize(g)

	assert.Equal(t, []grammar.UnaryProduction{{Target: 0, Input: 1}}, ng.UnaryByTarget(0))
	assert.Equal(t, []grammar.UnaryProduction{{Target: 1, Input: 2}}, ng.UnaryByInput(2))
	assert.Equal(t, 2, ng.Characters['z'])
}

// TestNormalizeMissingStart tests that a start symbol absent from every production yields no stop symbol
func TestNormalizeMissingStart(t *testing.T) {
	g := grammar.Build([]grammar.Production{
		grammar.NewProduction(grammar.NT("A"), grammar.Char('a')),
	}, grammar.NT("S"))

	ng := grammar.Normalize(g)
	assert.Equal(t, grammar.NoSymbol, ng.StopSymbol)
}

// TestSerializeLayout tests the exact flat record stream
func TestSerializeLayout(t *testing.T) {
	stream := grammar.Normalize(anbn()).Serialize()
	expected := []int{
		4, 1, 2,
		'a', 0, 'b', 3,
		0, 0, 0, // symbol 0
		1, 1, 0, 1, 1, 2, 3, // symbol 1
		0, 0, 1, 2, 0, 1, // symbol 2
		0, 0, 0, // symbol 3
	}
	assert.Equal(t, expected, stream)
}

// TestDeserializeRestoresInverseCharacters tests that both character maps survive a round trip
func TestDeserializeRestoresInverseCharacters(t *testing.T) {
	ng := grammar.Normalize(grammar.Parentheses())

	restored, err := grammar.Deserialize(ng.Serialize())
	require.NoError(t, err)

	assert.Equal(t, ng.NumSymbols, restored.NumSymbols)
	assert.Equal(t, ng.StopSymbol, restored.StopSymbol)
	assert.Equal(t, ng.Characters, restored.Characters)
	assert.Equal(t, ng.InverseCharacters, restored.InverseCharacters)
	assert.Equal(t, ng.Size(), restored.Size())
	assert.Equal(t, ng.Serialize(), restored.Serialize())
}

// TestDeserializeMalformed tests rejection of truncated and out-of-range streams
func TestDeserializeMalformed(t *testing.T) {
	good := grammar.Normalize(anbn()).Serialize()

	cases := map[string][]int{
		"empty":          {},
		"truncated":      good[:len(good)-1],
		"trailing":       append(append([]int{}, good...), 0),
		"bad stop":       {1, 7, 0, 0, 0, 0},
		"negative count": {1, 0, -1},
		"bad symbol":     {1, 0, 0, 1, 5, 0, 0},
	}
	for name, stream := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := grammar.Deserialize(stream)
			require.Error(t, err)
			assert.True(t, errors.Is(err, grammar.ErrMalformedStream))
		})
	}
}

// TestMsgpackEncoding tests persistence of the flat stream through msgpack
func TestMsgpackEncoding(t *testing.T) {
	ng := grammar.Normalize(grammar.Regex())

	var buf bytes.Buffer
	require.NoError(t, grammar.EncodeNormal(&buf, ng))

	decoded, err := grammar.DecodeNormal(&buf)
	require.NoError(t, err)
	assert.Equal(t, ng.Serialize(), decoded.Serialize())

	_, err = grammar.DecodeNormal(strings.NewReader("not msgpack"))
	assert.Error(t, err)
}

// TestLoadGramFile tests parsing of comments, alternatives, literals and default classes
func TestLoadGramFile(t *testing.T) {
	src := `# numbers with an optional sign
@NUM

NUM ::= SIGN DIGITS
SIGN ::= '-' | '+' | e
DIGITS ::= num | DIGITS numall
`
	g, err := grammar.Load(strings.NewReader(src))
	require.NoError(t, err)

	assert.Equal(t, grammar.NT("NUM"), g.Start())
	sign := g.ProductionsByTarget(grammar.NT("SIGN"))
	require.Len(t, sign, 3)
	assert.Equal(t, []grammar.Symbol{grammar.Char('-')}, sign[0].Inputs)
	assert.Equal(t, []grammar.Symbol{grammar.NT("e")}, sign[2].Inputs)

	assert.Len(t, g.ProductionsByTarget(grammar.NT("num")), 9)
	assert.Len(t, g.ProductionsByTarget(grammar.NT("numall")), 10)
	assert.Len(t, g.ProductionsByTarget(grammar.NT("alphanum")), 62)
	assert.Len(t, g.ProductionsByTarget(grammar.NT("e")), 1)
}

// TestLoadGramFileErrors tests malformed documents
func TestLoadGramFileErrors(t *testing.T) {
	cases := map[string]string{
		"missing start":   "S ::= 'a'\n",
		"no separator":    "@S\nS 'a'\n",
		"long literal":    "@S\nS ::= 'ab'\n",
		"unterminated":    "@S\nS ::= 'a\n",
		"double operator": "@S\nS ::= 'a' ::= 'b'\n",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := grammar.Load(strings.NewReader(src))
			require.Error(t, err)
			assert.True(t, errors.Is(err, grammar.ErrMalformedGrammarFile))
		})
	}
}

// TestSaveSkipsDefaults tests that saving omits the built-in character classes and reloads identically
func TestSaveSkipsDefaults(t *testing.T) {
	src := "@S\nS ::= '(' S ')' | S S | e\n"
	g, err := grammar.Load(strings.NewReader(src))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, grammar.Save(&buf, g))
	assert.Equal(t, "@S\nS ::= '(' S ')'\nS ::= S S\nS ::= e\n", buf.String())

	reloaded, err := grammar.Load(&buf)
	require.NoError(t, err)
	assert.Equal(t, len(g.Productions()), len(reloaded.Productions()))
}

// TestDefaultProductions tests membership of the built-in classes
func TestDefaultProductions(t *testing.T) {
	assert.True(t, grammar.IsDefaultProduction(grammar.NewProduction(grammar.NT("p"), grammar.Char('|'))))
	assert.True(t, grammar.IsDefaultProduction(grammar.NewProduction(grammar.NT("e"))))
	assert.False(t, grammar.IsDefaultProduction(grammar.NewProduction(grammar.NT("num"), grammar.Char('0'))))
}

// TestSyntheticGrammars tests the registry of built-in grammars
func TestSyntheticGrammars(t *testing.T) {
	assert.Equal(t, []string{"paren", "regex", "simple"}, grammar.SyntheticNames())

	for _, name := range grammar.SyntheticNames() {
		g, err := grammar.Synthetic(name)
		require.NoError(t, err)
		assert.NotEmpty(t, g.ProductionsByTarget(g.Start()), name)
	}

	paren, err := grammar.Synthetic("paren")
	require.NoError(t, err)
	assert.Len(t, paren.Productions(), 7)

	_, err = grammar.Synthetic("xml")
	assert.Error(t, err)
}
