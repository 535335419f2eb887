/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: main.go
Description: Command-line interface for the glade grammar fuzzer. Wires the sample, check,
normalize, stats and fuzz commands, binding every flag to a viper key so that values can
also come from a config file or GLADE_* environment variables.
*/

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/morellic/glade-full/cmd/fuzzer/commands"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Configuration
	configFile string
	logLevel   string
	logFormat  string
	logDir     string
	seed       int64

	// Grammar sources
	treeFile    string
	grammarFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "glade",
		Short: "glade - grammar-based sampling, checking and coverage-guided fuzzing",
		Long: `glade turns a learned derivation tree, or an explicit grammar, into concrete program
inputs. It samples and mutates inputs, decides grammar membership with a chart parser,
and steers generation towards new target coverage with a beam-search optimizer.`,
		Version:       commands.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Logging level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "custom", "Log format (text, json, custom)")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "", "Log output directory (empty disables log files)")
	rootCmd.PersistentFlags().Int64Var(&seed, "seed", 0, "Random seed (0 = time based)")
	rootCmd.PersistentFlags().StringVar(&treeFile, "tree", "", "Derivation tree document (YAML)")
	rootCmd.PersistentFlags().StringVar(&grammarFile, "grammar", "", "Grammar file (.gram) or synthetic grammar name")

	rootCmd.PersistentFlags().Float64("recursion", 0.8, "Probability of following a merge into a recursive node")
	rootCmd.PersistentFlags().Float64("all-characters", 0.1, "Probability of the wide character class")
	rootCmd.PersistentFlags().StringSlice("repetition", []string{"0.2", "0.2", "0.2", "0.4"}, "Repetition count distribution")
	rootCmd.PersistentFlags().Int("box-size", 100, "Node visit budget per sample")
	rootCmd.PersistentFlags().Bool("omit-pound", true, "Drop '#' from character classes unless it is the only option")

	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindPFlag("log_dir", rootCmd.PersistentFlags().Lookup("log-dir"))
	viper.BindPFlag("seed", rootCmd.PersistentFlags().Lookup("seed"))
	viper.BindPFlag("tree", rootCmd.PersistentFlags().Lookup("tree"))
	viper.BindPFlag("grammar", rootCmd.PersistentFlags().Lookup("grammar"))
	viper.BindPFlag("sample.recursion", rootCmd.PersistentFlags().Lookup("recursion"))
	viper.BindPFlag("sample.all_characters", rootCmd.PersistentFlags().Lookup("all-characters"))
	viper.BindPFlag("sample.repetition", rootCmd.PersistentFlags().Lookup("repetition"))
	viper.BindPFlag("sample.box_size", rootCmd.PersistentFlags().Lookup("box-size"))
	viper.BindPFlag("sample.omit_pound", rootCmd.PersistentFlags().Lookup("omit-pound"))

	// sample
	sampleCmd := &cobra.Command{
		Use:   "sample",
		Short: "Print random inputs of a grammar",
		Long: `Draw inputs from a tree grammar (grammar, mutation, combined or mixed sampler), from an
explicit grammar (multi sampler) or by editing seed inputs (seed sampler) and print one per
line. Samples longer than --max-length are skipped.`,
		RunE: commands.RunSample,
	}
	sampleCmd.Flags().String("sampler", "grammar", "Sampler (grammar, mutation, combined, mixed, multi, seed)")
	sampleCmd.Flags().String("seeds", "", "File of seed inputs, one per line, for the seed sampler")
	sampleCmd.Flags().IntP("count", "n", 10, "Number of samples")
	sampleCmd.Flags().Int("max-length", 1000, "Maximum sample length in characters")
	sampleCmd.Flags().Int("num-mutations", 10, "Upper bound on mutation rounds per sample")
	sampleCmd.Flags().Bool("quote", false, "Print samples as quoted Go strings")
	viper.BindPFlag("sample.sampler", sampleCmd.Flags().Lookup("sampler"))
	viper.BindPFlag("sample.count", sampleCmd.Flags().Lookup("count"))
	viper.BindPFlag("sample.max_length", sampleCmd.Flags().Lookup("max-length"))
	viper.BindPFlag("sample.num_mutations", sampleCmd.Flags().Lookup("num-mutations"))
	viper.BindPFlag("sample.quote", sampleCmd.Flags().Lookup("quote"))
	viper.BindPFlag("sample.seeds", sampleCmd.Flags().Lookup("seeds"))
	rootCmd.AddCommand(sampleCmd)

	// check
	checkCmd := &cobra.Command{
		Use:   "check [input files...]",
		Short: "Decide grammar membership of inputs",
		Long: `Run the membership solver on each input file, or on each line of --inputs, and report
which inputs the grammar accepts.`,
		RunE: commands.RunCheck,
	}
	checkCmd.Flags().String("inputs", "", "File with one input per line")
	viper.BindPFlag("check.inputs", checkCmd.Flags().Lookup("inputs"))
	rootCmd.AddCommand(checkCmd)

	// normalize
	normalizeCmd := &cobra.Command{
		Use:   "normalize",
		Short: "Binarize a grammar and save its flat form",
		Long: `Convert a tree grammar or explicit grammar into binarized normal form, print its size
and optionally write the flat integer stream as msgpack.`,
		RunE: commands.RunNormalize,
	}
	normalizeCmd.Flags().StringP("output", "o", "", "Output file for the msgpack encoded grammar")
	normalizeCmd.Flags().String("load", "", "Read a msgpack encoded grammar instead of --tree/--grammar")
	viper.BindPFlag("normalize.output", normalizeCmd.Flags().Lookup("output"))
	viper.BindPFlag("normalize.load", normalizeCmd.Flags().Lookup("load"))
	rootCmd.AddCommand(normalizeCmd)

	// stats
	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Measure grammar size and accuracy",
		Long: `Report the normal form size of a tree grammar, its false negative rate over held-out
inputs and its false positive rate against a target program.`,
		RunE: commands.RunStats,
	}
	statsCmd.Flags().String("inputs", "", "Held-out inputs, one per line")
	statsCmd.Flags().Int("count", 1000, "Grammar samples checked against the target")
	statsCmd.Flags().Int("workers", 4, "Concurrent oracle queries")
	statsCmd.Flags().String("metrics-dir", "metrics", "Directory for the JSON report (empty disables it)")
	addTargetFlags(statsCmd, "stats")
	viper.BindPFlag("stats.inputs", statsCmd.Flags().Lookup("inputs"))
	viper.BindPFlag("stats.count", statsCmd.Flags().Lookup("count"))
	viper.BindPFlag("stats.workers", statsCmd.Flags().Lookup("workers"))
	viper.BindPFlag("stats.metrics_dir", statsCmd.Flags().Lookup("metrics-dir"))
	rootCmd.AddCommand(statsCmd)

	// fuzz
	fuzzCmd := &cobra.Command{
		Use:   "fuzz",
		Short: "Coverage-guided fuzzing of a target program",
		Long: `Search the language of a tree grammar for inputs that reach new coverage in the target.
The target reports coverage on stdout as SCORE:, TOT: and TRACE: lines. Inputs with new
coverage are saved to the output directory.`,
		RunE: commands.RunFuzz,
	}
	fuzzCmd.Flags().String("membership", "grammar", "Membership oracle for samples (grammar, process, none)")
	fuzzCmd.Flags().Int("max-length", 1000, "Maximum sample length")
	fuzzCmd.Flags().Int("beams", 20, "Population size")
	fuzzCmd.Flags().Int("sub-iters", 100, "Steps between reweighting rounds")
	fuzzCmd.Flags().String("acceptor", "mcmc", "Acceptance policy (hillclimb, mcmc)")
	fuzzCmd.Flags().Int("iterations", 0, "Number of steps (0 = until interrupted)")
	fuzzCmd.Flags().String("output", "./fuzz_output", "Directory for coverage-new inputs")
	fuzzCmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address")
	fuzzCmd.Flags().String("metrics-dir", "metrics", "Directory for the JSON run report (empty disables it)")
	fuzzCmd.Flags().Int("cache-size", 8192, "Memoised oracle answers")
	fuzzCmd.Flags().String("profile-dir", "", "Write CPU and heap profiles of the run to this directory")
	fuzzCmd.Flags().String("prefix", "", "Text prepended to every input sent to the target")
	fuzzCmd.Flags().String("suffix", "", "Text appended to every input sent to the target")
	addTargetFlags(fuzzCmd, "fuzz")
	viper.BindPFlag("fuzz.membership", fuzzCmd.Flags().Lookup("membership"))
	viper.BindPFlag("fuzz.max_length", fuzzCmd.Flags().Lookup("max-length"))
	viper.BindPFlag("fuzz.num_beams", fuzzCmd.Flags().Lookup("beams"))
	viper.BindPFlag("fuzz.num_sub_iters", fuzzCmd.Flags().Lookup("sub-iters"))
	viper.BindPFlag("fuzz.acceptor", fuzzCmd.Flags().Lookup("acceptor"))
	viper.BindPFlag("fuzz.iterations", fuzzCmd.Flags().Lookup("iterations"))
	viper.BindPFlag("fuzz.output_dir", fuzzCmd.Flags().Lookup("output"))
	viper.BindPFlag("fuzz.metrics_addr", fuzzCmd.Flags().Lookup("metrics-addr"))
	viper.BindPFlag("fuzz.metrics_dir", fuzzCmd.Flags().Lookup("metrics-dir"))
	viper.BindPFlag("fuzz.cache_size", fuzzCmd.Flags().Lookup("cache-size"))
	viper.BindPFlag("fuzz.profile_dir", fuzzCmd.Flags().Lookup("profile-dir"))
	viper.BindPFlag("fuzz.prefix", fuzzCmd.Flags().Lookup("prefix"))
	viper.BindPFlag("fuzz.suffix", fuzzCmd.Flags().Lookup("suffix"))
	rootCmd.AddCommand(fuzzCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// addTargetFlags adds the target program flags under the given viper section.
func addTargetFlags(cmd *cobra.Command, section string) {
	cmd.Flags().String("target", "", "Path to target binary")
	cmd.Flags().StringSlice("args", []string{}, "Command-line arguments for target")
	cmd.Flags().StringSlice("env", []string{}, "Environment variables for target")
	cmd.Flags().String("input-mode", "file", "How the input reaches the target (file, stdin, both)")
	cmd.Flags().Duration("timeout", 10*time.Second, "Maximum execution time per input")
	cmd.Flags().Float64("rate-limit", 0, "Maximum executions per second (0 = unlimited)")
	cmd.Flags().String("accept-mode", "exit", "Target acceptance signal (exit, stdout, stderr)")

	viper.BindPFlag(section+".target.target", cmd.Flags().Lookup("target"))
	viper.BindPFlag(section+".target.args", cmd.Flags().Lookup("args"))
	viper.BindPFlag(section+".target.env", cmd.Flags().Lookup("env"))
	viper.BindPFlag(section+".target.input_mode", cmd.Flags().Lookup("input-mode"))
	viper.BindPFlag(section+".target.timeout", cmd.Flags().Lookup("timeout"))
	viper.BindPFlag(section+".target.rate_limit", cmd.Flags().Lookup("rate-limit"))
	viper.BindPFlag(section+".accept_mode", cmd.Flags().Lookup("accept-mode"))
}
