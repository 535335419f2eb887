/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: stats.go
Description: Stats command implementation. Reports the normal form size of a grammar, its
false negative rate over held-out inputs and, given a target, the false positive rate of
its samples. The report is also written as JSON to the metrics directory.
*/

package commands

import (
	"context"
	"fmt"

	"github.com/morellic/glade-full/pkg/analysis"
	"github.com/morellic/glade-full/pkg/execution"
	"github.com/morellic/glade-full/pkg/fuzz"
	"github.com/morellic/glade-full/pkg/oracle"
	"github.com/morellic/glade-full/pkg/solver"
	"github.com/morellic/glade-full/pkg/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// RunStats computes grammar statistics
func RunStats(cmd *cobra.Command, args []string) error {
	logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Close()
	ctx := context.Background()

	source, err := loadSource()
	if err != nil {
		return err
	}
	evaluator, err := analysis.NewEvaluator(viper.GetInt("stats.workers"), logger.GetLogger())
	if err != nil {
		return err
	}
	report := analysis.Report{Size: source.Normal.Size()}

	if path := viper.GetString("stats.inputs"); path != "" {
		inputs, err := readLines(path)
		if err != nil {
			return err
		}
		membership, err := solver.NewOracle(source.Normal, 0)
		if err != nil {
			return err
		}
		rate, err := evaluator.FalseNegativeRate(ctx, membership, inputs)
		if err != nil {
			return err
		}
		report.FalseNegative = &rate
	}

	if viper.GetString("stats.target.target") != "" {
		if source.Tree == nil {
			return fmt.Errorf("false positive rate needs a derivation tree (--tree)")
		}
		target, err := processOracle("stats")
		if err != nil {
			return err
		}
		params, err := sampleParameters()
		if err != nil {
			return err
		}
		rng, _ := newRand()
		sampler, err := fuzz.NewGrammarSampler(source.Tree, params, rng)
		if err != nil {
			return err
		}

		s := newSpinner(" Checking samples against the target...")
		rate, err := evaluator.FalsePositiveRate(ctx, sampler, target, viper.GetInt("stats.count"))
		if s != nil {
			s.Stop()
		}
		if err != nil {
			return err
		}
		report.FalsePositive = &rate
	}

	printStats(source.Name, report)

	if dir := viper.GetString("stats.metrics_dir"); dir != "" {
		path, err := utils.WriteMetricsResult(dir, "stats", Version, report)
		if err != nil {
			return err
		}
		infoColor.Printf("Report written to %s\n", path)
	}
	return nil
}

// newExecutor builds and validates the <section> target executor
func newExecutor(section string) (*execution.ProcessExecutor, error) {
	config := targetConfig(section)
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("invalid target config: %w", err)
	}
	return execution.NewProcessExecutor(config)
}

// processOracle builds a membership oracle that runs the <section> target
func processOracle(section string) (oracle.Discriminative, error) {
	executor, err := newExecutor(section)
	if err != nil {
		return nil, err
	}
	o, err := oracle.NewProcessOracle(executor, oracle.AcceptMode(viper.GetString(section+".accept_mode")))
	if err != nil {
		return nil, err
	}
	return o, nil
}

func printStats(name string, report analysis.Report) {
	headerColor.Printf("Grammar statistics for %s\n", name)
	fmt.Printf("  characters:   %d\n", report.Size.Characters)
	fmt.Printf("  nonterminals: %d\n", report.Size.Nonterminals)
	fmt.Printf("  productions:  %d\n", report.Size.Productions)
	printRate("false negatives", report.FalseNegative)
	printRate("false positives", report.FalsePositive)
}

func printRate(label string, rate *analysis.Rate) {
	if rate == nil {
		return
	}
	c := successColor
	if rate.Failed > 0 {
		c = warningColor
	}
	c.Printf("  %s: %d/%d (%.2f%%)\n", label, rate.Failed, rate.Checked, 100*rate.Value())
	for _, f := range rate.Failures {
		fmt.Printf("    %q\n", f)
	}
}
