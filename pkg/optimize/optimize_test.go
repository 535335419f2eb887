/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: optimize_test.go
Description: Tests for acceptance policies, the beam optimizer and the learned grammar
problem. Coverage comes from fake oracles that map an input's length to one event.
*/

package optimize_test

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/morellic/glade-full/pkg/coverage"
	"github.com/morellic/glade-full/pkg/fuzz"
	"github.com/morellic/glade-full/pkg/optimize"
	"github.com/morellic/glade-full/pkg/oracle"
	"github.com/morellic/glade-full/pkg/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type text string

func (t text) Input() string { return string(t) }

// growProblem seeds "s" and appends one character per neighbour, capped at 30 characters.
type growProblem struct{}

func (growProblem) Seed(context.Context) (text, error) { return "s", nil }

func (growProblem) Sample(_ context.Context, seed text) (text, error) {
	if len(seed) >= 30 {
		return "s", nil
	}
	return seed + "x", nil
}

// lengthOracle covers the single event len(input) in a one-group bitmap.
var lengthOracle = coverage.OracleFunc(func(_ context.Context, input string) (coverage.Bitmap, error) {
	return coverage.FromEvents(1, len(input)%coverage.GroupBits)
})

func newOptimizer(t *testing.T, acceptor optimize.Acceptor, config optimize.Config, seed int64) *optimize.Optimizer[text] {
	t.Helper()
	o, err := optimize.New[text](context.Background(), growProblem{}, lengthOracle, acceptor, config, rand.New(rand.NewSource(seed)))
	require.NoError(t, err)
	return o
}

// TestHillClimb tests strict-improvement acceptance
func TestHillClimb(t *testing.T) {
	var h optimize.HillClimb
	assert.True(t, h.Accept(1, 2))
	assert.False(t, h.Accept(2, 1))
	assert.False(t, h.Accept(1, 1), "ties are rejected")
}

// TestMCMCRatio tests the score-ratio acceptance probability
func TestMCMCRatio(t *testing.T) {
	m := optimize.NewMCMC(rand.New(rand.NewSource(1)))

	for i := 0; i < 100; i++ {
		assert.True(t, m.Accept(2, 2))
		assert.True(t, m.Accept(2, 3))
	}

	accepted := 0
	const n = 4000
	for i := 0; i < n; i++ {
		if m.Accept(4, 1) {
			accepted++
		}
	}
	assert.InDelta(t, 0.25, float64(accepted)/n, 0.03)

	assert.True(t, m.Accept(0, 1), "zero orig accepts positive proposals")
	assert.False(t, m.Accept(0, 0), "0/0 is never accepted")
}

// TestNewAcceptor tests acceptor lookup by name
func TestNewAcceptor(t *testing.T) {
	a, err := optimize.NewAcceptor("hillclimb", nil)
	require.NoError(t, err)
	assert.IsType(t, optimize.HillClimb{}, a)

	a, err = optimize.NewAcceptor("mcmc", rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.IsType(t, &optimize.MCMC{}, a)

	_, err = optimize.NewAcceptor("anneal", nil)
	assert.Error(t, err)
}

// TestConfigValidation tests beam and reweighting bounds
func TestConfigValidation(t *testing.T) {
	assert.NoError(t, optimize.DefaultConfig().Validate())

	err := optimize.Config{NumBeams: 0, NumSubIters: 1}.Validate()
	assert.True(t, errors.Is(err, optimize.ErrEmptyBeam))
	assert.Error(t, optimize.Config{NumBeams: 1, NumSubIters: 0}.Validate())

	_, err = optimize.New[text](context.Background(), growProblem{}, lengthOracle, optimize.HillClimb{},
		optimize.Config{NumSubIters: 1}, rand.New(rand.NewSource(1)))
	assert.True(t, errors.Is(err, optimize.ErrEmptyBeam))
}

// TestSeedPopulation tests the initial scores and coverage
func TestSeedPopulation(t *testing.T) {
	o := newOptimizer(t, optimize.HillClimb{}, optimize.Config{NumBeams: 3, NumSubIters: 100}, 1)

	cur, best := o.Scores()
	assert.Equal(t, 1.0, cur)
	assert.Equal(t, 1.0, best)
	assert.Equal(t, 1, o.Covered())
	assert.Empty(t, o.History(), "the seed is not part of the history")
	assert.Equal(t, []text{"s", "s", "s"}, o.Best())
}

// TestReweightFavoursRareEvents tests that events hit by every beam weigh less than
// events hit by one beam
func TestReweightFavoursRareEvents(t *testing.T) {
	o := newOptimizer(t, optimize.HillClimb{}, optimize.Config{NumBeams: 3, NumSubIters: 1}, 1)

	s, err := o.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sx", s)

	// best population: two seeds covering event 1 and one "sx" covering event 2
	assert.Equal(t, 0.25, o.Weight(1))
	assert.Equal(t, 0.5, o.Weight(2))
	assert.Equal(t, 1.0, o.Weight(7), "events no beam hits keep full weight")
	assert.Less(t, o.Weight(1), o.Weight(2))

	cur, best := o.Scores()
	assert.Equal(t, 0.75, best, "best population is rescored under the new weights")
	assert.Equal(t, best, cur, "working population resets to the best")
}

// TestHistoryRecordsNewCoverage tests that exactly the coverage-new samples are kept
func TestHistoryRecordsNewCoverage(t *testing.T) {
	o := newOptimizer(t, optimize.NewMCMC(rand.New(rand.NewSource(3))), optimize.Config{NumBeams: 4, NumSubIters: 5}, 2)
	ctx := context.Background()

	for i := 0; i < 60; i++ {
		_, err := o.Next(ctx)
		require.NoError(t, err)
	}
	history := o.History()
	assert.Len(t, history, o.Covered()-1)
	seen := map[text]bool{}
	for _, h := range history {
		assert.False(t, seen[h], "duplicate history entry %q", h)
		seen[h] = true
	}
	assert.Equal(t, 60, o.Iterations())
}

// TestOptimizerReproducible tests that equal seeds give equal runs
func TestOptimizerReproducible(t *testing.T) {
	config := optimize.Config{NumBeams: 5, NumSubIters: 3}
	a := newOptimizer(t, optimize.HillClimb{}, config, 9)
	b := newOptimizer(t, optimize.HillClimb{}, config, 9)

	x, err := fuzz.Take(a.Stream(context.Background()), 25)
	require.NoError(t, err)
	y, err := fuzz.Take(b.Stream(context.Background()), 25)
	require.NoError(t, err)
	assert.Len(t, x, 25)
	assert.Equal(t, x, y)
}

// TestOptimizerStreamCancel tests that the stream stops with its context
func TestOptimizerStreamCancel(t *testing.T) {
	o := newOptimizer(t, optimize.HillClimb{}, optimize.DefaultConfig(), 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	vals, err := fuzz.Take(o.Stream(ctx), 3)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, vals)
}

// TestBitmapLengthMismatch tests that a changing bitmap length is reported
func TestBitmapLengthMismatch(t *testing.T) {
	groups := 1
	o, err := optimize.New[text](context.Background(), growProblem{},
		coverage.OracleFunc(func(context.Context, string) (coverage.Bitmap, error) {
			return coverage.NewBitmap(groups), nil
		}),
		optimize.HillClimb{}, optimize.Config{NumBeams: 2, NumSubIters: 10}, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	groups = 2
	_, err = o.Next(context.Background())
	assert.Error(t, err)
}

// TestOracleErrorPropagates tests that oracle failures surface from Next
func TestOracleErrorPropagates(t *testing.T) {
	boom := errors.New("target crashed")
	calls := 0
	o, err := optimize.New[text](context.Background(), growProblem{},
		coverage.OracleFunc(func(context.Context, string) (coverage.Bitmap, error) {
			calls++
			if calls > 1 {
				return nil, boom
			}
			return coverage.NewBitmap(1), nil
		}),
		optimize.HillClimb{}, optimize.Config{NumBeams: 2, NumSubIters: 10}, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	_, err = o.Next(context.Background())
	assert.ErrorIs(t, err, boom)
}

func recursiveGrammar(t *testing.T) *fuzz.TreeGrammar {
	t.Helper()
	body, err := tree.NewMultiConstant("a", [][]rune{[]rune("abc")}, [][]rune{[]rune("abc")})
	require.NoError(t, err)
	root := tree.NewRepetition(tree.NewConstant("("), body, tree.NewConstant(")"))
	merges := tree.NewMerges()
	merges.Add(body, root)
	g, err := fuzz.NewTreeGrammar(root, merges)
	require.NoError(t, err)
	return g
}

// TestLearnedGrammarProblem tests that seeds and neighbours respect the cap and the oracle
func TestLearnedGrammarProblem(t *testing.T) {
	noC := oracle.Func(func(_ context.Context, input string) (bool, error) {
		return !strings.Contains(input, "c"), nil
	})
	p, err := optimize.NewLearnedGrammarProblem(recursiveGrammar(t), noC, fuzz.DefaultSampleParameters(), 20, rand.New(rand.NewSource(4)))
	require.NoError(t, err)
	ctx := context.Background()

	cur, err := p.Seed(ctx)
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		assert.LessOrEqual(t, len(cur.Input()), 20)
		assert.NotContains(t, cur.Input(), "c")
		cur, err = p.Sample(ctx, cur)
		require.NoError(t, err)
	}
}

// TestLearnedGrammarProblemErrors tests cancellation, oracle failures and bad parameters
func TestLearnedGrammarProblemErrors(t *testing.T) {
	g := recursiveGrammar(t)
	never := oracle.Func(func(context.Context, string) (bool, error) { return false, nil })
	p, err := optimize.NewLearnedGrammarProblem(g, never, fuzz.DefaultSampleParameters(), 20, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Seed(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	boom := errors.New("boom")
	failing := oracle.Func(func(context.Context, string) (bool, error) { return false, boom })
	p, err = optimize.NewLearnedGrammarProblem(g, failing, fuzz.DefaultSampleParameters(), 20, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	_, err = p.Seed(context.Background())
	assert.ErrorIs(t, err, boom)

	_, err = optimize.NewLearnedGrammarProblem(g, never, fuzz.DefaultSampleParameters(), 0, nil)
	assert.Error(t, err)
}

// TestOptimizeLearnedGrammar tests the full pipeline over a tree grammar
func TestOptimizeLearnedGrammar(t *testing.T) {
	always := oracle.Func(func(context.Context, string) (bool, error) { return true, nil })
	p, err := optimize.NewLearnedGrammarProblem(recursiveGrammar(t), always, fuzz.DefaultSampleParameters(), 25, rand.New(rand.NewSource(5)))
	require.NoError(t, err)
	o, err := optimize.New[optimize.ParseTreeExample](context.Background(), p, lengthOracle, optimize.HillClimb{},
		optimize.Config{NumBeams: 3, NumSubIters: 4}, rand.New(rand.NewSource(6)))
	require.NoError(t, err)

	vals, err := fuzz.Take(o.Stream(context.Background()), 40)
	require.NoError(t, err)
	assert.Len(t, vals, 40)
	for _, h := range o.History() {
		assert.LessOrEqual(t, len(h.Input()), 25)
	}
}
