/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: commands_test.go
Description: Tests for the command helpers that turn viper settings into grammars,
samplers and configurations.
*/

package commands

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/morellic/glade-full/pkg/solver"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const parensTree = `
root: r
nodes:
  - {id: r, kind: repetition, start: open, rep: body, end: close}
  - {id: open, kind: constant, text: "("}
  - {id: body, kind: multiconstant, text: "a", options: ["ab"], checks: ["a"]}
  - {id: close, kind: constant, text: ")"}
merges:
  - [body, r]
`

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set("sample.recursion", 0.8)
	viper.Set("sample.all_characters", 0.1)
	viper.Set("sample.repetition", []string{"0.2,0.2", "0.2", "0.4"})
	viper.Set("sample.box_size", 100)
	viper.Set("sample.omit_pound", true)
}

func writeTree(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "parens.yaml")
	require.NoError(t, os.WriteFile(path, []byte(parensTree), 0644))
	return path
}

// TestSampleParameters tests repetition parsing from lists and comma separated values
func TestSampleParameters(t *testing.T) {
	resetViper(t)
	params, err := sampleParameters()
	require.NoError(t, err)
	assert.Equal(t, []float64{0.2, 0.2, 0.2, 0.4}, params.Repetition)
	assert.Equal(t, 100, params.BoxSize)

	viper.Set("sample.repetition", []string{"x"})
	_, err = sampleParameters()
	assert.Error(t, err)

	viper.Set("sample.repetition", []string{"0.5"})
	viper.Set("sample.recursion", 1.5)
	_, err = sampleParameters()
	assert.Error(t, err)
}

// TestLoadSource tests tree documents, synthetic grammars and flag conflicts
func TestLoadSource(t *testing.T) {
	resetViper(t)
	_, err := loadSource()
	assert.Error(t, err, "no grammar given")

	viper.Set("tree", writeTree(t))
	source, err := loadSource()
	require.NoError(t, err)
	require.NotNil(t, source.Tree)
	assert.True(t, solver.Accepts(source.Normal, "((b)a)"))

	viper.Set("grammar", "paren")
	_, err = loadSource()
	assert.Error(t, err, "--tree and --grammar together")

	viper.Set("tree", "")
	source, err = loadSource()
	require.NoError(t, err)
	assert.Nil(t, source.Tree)

	viper.Set("grammar", "no-such-grammar")
	_, err = loadSource()
	assert.Error(t, err)
}

// TestNewSampler tests sampler selection
func TestNewSampler(t *testing.T) {
	resetViper(t)
	viper.Set("sample.max_length", 50)
	viper.Set("sample.num_mutations", 5)
	viper.Set("tree", writeTree(t))
	source, err := loadSource()
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(1))

	for _, name := range []string{"grammar", "mutation", "combined", "mixed", "multi"} {
		s, err := newSampler(name, source, rng)
		require.NoError(t, err, name)
		_, err = s.Sample()
		assert.NoError(t, err, name)
	}
	_, err = newSampler("bogus", source, rng)
	assert.Error(t, err)

	source.Tree = nil
	_, err = newSampler("grammar", source, rng)
	assert.Error(t, err, "tree samplers need a tree")

	_, err = newSampler("seed", source, rng)
	assert.Error(t, err, "seed sampler needs --seeds")
	seeds := filepath.Join(t.TempDir(), "seeds.txt")
	require.NoError(t, os.WriteFile(seeds, []byte("(a)\n\n((b))\n"), 0644))
	viper.Set("sample.seeds", seeds)
	viper.Set("sample.num_mutations", 1)
	s, err := newSampler("seed", source, rng)
	require.NoError(t, err)
	for _, want := range []string{"(a)", "((b))", "(a)"} {
		got, err := s.Sample()
		require.NoError(t, err)
		assert.Equal(t, want, got, "one mutation round means zero edits")
	}
}

// TestFuzzConfig tests validation of the fuzz settings
func TestFuzzConfig(t *testing.T) {
	resetViper(t)
	viper.Set("fuzz.membership", "grammar")
	viper.Set("fuzz.max_length", 100)
	viper.Set("fuzz.num_beams", 4)
	viper.Set("fuzz.num_sub_iters", 10)
	viper.Set("fuzz.acceptor", "mcmc")
	viper.Set("fuzz.output_dir", t.TempDir())
	viper.Set("fuzz.cache_size", 16)
	viper.Set("fuzz.target.target", "/bin/true")
	viper.Set("fuzz.target.timeout", time.Second)

	config, err := fuzzConfig()
	require.NoError(t, err)
	assert.Equal(t, 4, config.Optimizer.NumBeams)
	assert.Equal(t, "/bin/true", config.Target.Target)

	viper.Set("fuzz.membership", "maybe")
	_, err = fuzzConfig()
	assert.Error(t, err)

	viper.Set("fuzz.membership", "none")
	viper.Set("fuzz.num_beams", 0)
	_, err = fuzzConfig()
	assert.Error(t, err)

	viper.Set("fuzz.num_beams", 4)
	viper.Set("fuzz.target.target", "")
	_, err = fuzzConfig()
	assert.Error(t, err, "target is required")
}
