/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: sample.go
Description: Sample command implementation. Draws inputs from a tree grammar, an explicit
grammar or a file of seed inputs and prints them to stdout, one per line. Samples longer
than the maximum length are skipped.
*/

package commands

import (
	"bufio"
	"fmt"
	"math/rand"
	"os"

	"github.com/morellic/glade-full/pkg/fuzz"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// RunSample prints sample.count inputs of the loaded grammar
func RunSample(cmd *cobra.Command, args []string) error {
	logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Close()

	source, err := loadSource()
	if err != nil {
		return err
	}
	rng, seed := newRand()
	name := viper.GetString("sample.sampler")
	sampler, err := newSampler(name, source, rng)
	if err != nil {
		return err
	}

	count := viper.GetInt("sample.count")
	if count <= 0 {
		return fmt.Errorf("count must be positive, got %d", count)
	}
	logger.GetLogger().WithFields(logrus.Fields{
		"grammar": source.Name,
		"sampler": name,
		"seed":    seed,
		"count":   count,
	}).Info("Sampling")

	stream := fuzz.FromSampler(sampler)
	if maxLength := viper.GetInt("sample.max_length"); maxLength > 0 {
		stream = fuzz.Filter(stream, fuzz.MaxLength(maxLength))
	}

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()
	quote := viper.GetBool("sample.quote")
	for i := 1; i <= count; i++ {
		s, err := stream.Next()
		if err != nil {
			return fmt.Errorf("sample %d: %w", i, err)
		}
		logger.LogSample(i, name, s)
		if quote {
			fmt.Fprintf(out, "%q\n", s)
		} else {
			fmt.Fprintln(out, s)
		}
	}
	return nil
}

// newSampler builds the named sampler over source
func newSampler(name string, source *GrammarSource, rng *rand.Rand) (fuzz.Sampler, error) {
	switch name {
	case "multi":
		return fuzz.NewMultiGrammarSampler(source.Grammar, viper.GetInt("sample.box_size"), rng)
	case "seed":
		return seedSampler(rng)
	}
	if source.Tree == nil {
		return nil, fmt.Errorf("sampler %q needs a derivation tree (--tree)", name)
	}
	params, err := sampleParameters()
	if err != nil {
		return nil, err
	}

	switch name {
	case "grammar":
		return fuzz.NewGrammarSampler(source.Tree, params, rng)
	case "mutation", "combined":
		mutation, err := fuzz.NewMutationSampler(source.Tree, params,
			viper.GetInt("sample.max_length"), viper.GetInt("sample.num_mutations"), rng)
		if err != nil {
			return nil, err
		}
		if name == "mutation" {
			return mutation, nil
		}
		return fuzz.NewCombinedMutationSampler(mutation, viper.GetInt("sample.num_mutations"), rng)
	case "mixed":
		whole, err := fuzz.NewGrammarSampler(source.Tree, params, rng)
		if err != nil {
			return nil, err
		}
		mutation, err := fuzz.NewMutationSampler(source.Tree, params,
			viper.GetInt("sample.max_length"), viper.GetInt("sample.num_mutations"), rng)
		if err != nil {
			return nil, err
		}
		combined, err := fuzz.NewCombinedMutationSampler(mutation, viper.GetInt("sample.num_mutations"), rng)
		if err != nil {
			return nil, err
		}
		return fuzz.RandomChoice(rng, whole, combined)
	default:
		return nil, fmt.Errorf("unknown sampler %q (grammar, mutation, combined, mixed, multi, seed)", name)
	}
}

// seedSampler edits the lines of sample.seeds in turn
func seedSampler(rng *rand.Rand) (fuzz.Sampler, error) {
	path := viper.GetString("sample.seeds")
	if path == "" {
		return nil, fmt.Errorf("sampler \"seed\" needs a seeds file (--seeds)")
	}
	seeds, err := readLines(path)
	if err != nil {
		return nil, err
	}
	if len(seeds) == 0 {
		return nil, fmt.Errorf("%s: no seed inputs", path)
	}
	samplers := make([]fuzz.Sampler, 0, len(seeds))
	for _, seed := range seeds {
		s, err := fuzz.SeedMutationSampler(seed, viper.GetInt("sample.num_mutations"), rng)
		if err != nil {
			return nil, err
		}
		samplers = append(samplers, s)
	}
	return fuzz.RoundRobin(samplers...)
}
