/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: fuzz.go
Description: Fuzz command implementation. Runs the coverage-guided optimizer over a tree
grammar against a target program that reports its coverage, saves every input that reached
new coverage and writes a run report. Stops after the configured number of steps or on
SIGINT/SIGTERM.
*/

package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/morellic/glade-full/pkg/core"
	"github.com/morellic/glade-full/pkg/execution"
	"github.com/morellic/glade-full/pkg/monitoring"
	"github.com/morellic/glade-full/pkg/optimize"
	"github.com/morellic/glade-full/pkg/oracle"
	"github.com/morellic/glade-full/pkg/solver"
	"github.com/morellic/glade-full/pkg/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// statsInterval is the number of steps between progress updates
const statsInterval = 100

// FuzzConfig holds the fuzz command settings
type FuzzConfig struct {
	Membership  string            `validate:"oneof=grammar process none"`
	AcceptMode  oracle.AcceptMode `validate:"omitempty,oneof=exit stdout stderr"`
	MaxLength   int               `validate:"gt=0"`
	Optimizer   optimize.Config
	Acceptor    string `validate:"oneof=hillclimb mcmc"`
	Iterations  int    `validate:"gte=0"`
	OutputDir   string `validate:"required"`
	MetricsAddr string
	MetricsDir  string
	CacheSize   int `validate:"gt=0"`
	ProfileDir  string
	Wrapper     oracle.Wrapper
	Target      execution.Config
}

// fuzzConfig reads the fuzz.* settings
func fuzzConfig() (*FuzzConfig, error) {
	config := &FuzzConfig{
		Membership: viper.GetString("fuzz.membership"),
		AcceptMode: oracle.AcceptMode(viper.GetString("fuzz.accept_mode")),
		MaxLength:  viper.GetInt("fuzz.max_length"),
		Optimizer: optimize.Config{
			NumBeams:    viper.GetInt("fuzz.num_beams"),
			NumSubIters: viper.GetInt("fuzz.num_sub_iters"),
		},
		Acceptor:    viper.GetString("fuzz.acceptor"),
		Iterations:  viper.GetInt("fuzz.iterations"),
		OutputDir:   viper.GetString("fuzz.output_dir"),
		MetricsAddr: viper.GetString("fuzz.metrics_addr"),
		MetricsDir:  viper.GetString("fuzz.metrics_dir"),
		CacheSize:   viper.GetInt("fuzz.cache_size"),
		ProfileDir:  viper.GetString("fuzz.profile_dir"),
		Wrapper: oracle.Wrapper{
			Prefix: viper.GetString("fuzz.prefix"),
			Suffix: viper.GetString("fuzz.suffix"),
		},
		Target: targetConfig("fuzz"),
	}
	if err := config.Optimizer.Validate(); err != nil {
		return nil, err
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("invalid fuzz configuration: %w", err)
	}
	return config, nil
}

// RunFuzz executes the fuzzing session
func RunFuzz(cmd *cobra.Command, args []string) error {
	fmt.Println("🚀 glade - Starting Fuzzing Session")
	fmt.Println("===================================")
	fmt.Println()

	logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Close()
	log := logger.GetLogger()

	config, err := fuzzConfig()
	if err != nil {
		return err
	}
	source, err := loadSource()
	if err != nil {
		return err
	}
	if source.Tree == nil {
		return fmt.Errorf("fuzz needs a derivation tree (--tree)")
	}
	params, err := sampleParameters()
	if err != nil {
		return err
	}
	rng, seed := newRand()

	executor, err := execution.NewProcessExecutor(config.Target)
	if err != nil {
		return err
	}
	covOracle, err := oracle.NewCachedCoverageOracle(
		oracle.WrapCoverage(oracle.NewProcessCoverageOracle(executor), config.Wrapper), config.CacheSize)
	if err != nil {
		return err
	}
	membership, err := membershipOracle(config, source, executor)
	if err != nil {
		return err
	}
	problem, err := optimize.NewLearnedGrammarProblem(source.Tree, membership, params, config.MaxLength, rng)
	if err != nil {
		return err
	}
	acceptor, err := optimize.NewAcceptor(config.Acceptor, rng)
	if err != nil {
		return err
	}

	// Set up signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			fmt.Println("\n🛑 Received shutdown signal, stopping fuzzer...")
			cancel()
		case <-ctx.Done():
		}
	}()

	registry := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(registry)
	if config.MetricsAddr != "" {
		go func() {
			if err := monitoring.Serve(ctx, config.MetricsAddr, registry, log); err != nil {
				log.WithError(err).Error("Metrics server failed")
			}
		}()
	}

	if config.ProfileDir != "" {
		profiler := monitoring.NewProfiler(config.ProfileDir, log)
		if err := profiler.Start(); err != nil {
			return err
		}
		defer func() {
			results, err := profiler.Stop()
			if err != nil {
				log.WithError(err).Error("Failed to write profiles")
			}
			for _, r := range results {
				infoColor.Printf("%s profile written to %s\n", r.Type, r.OutputFile)
			}
		}()
	}

	infoColor.Printf("Grammar: %s\nTarget:  %s\nSeed:    %d\n\n", source.Name, config.Target.Target, seed)
	startTime := time.Now()
	opt, err := optimize.New[optimize.ParseTreeExample](ctx, problem, covOracle, acceptor, config.Optimizer, rng,
		optimize.WithLogger(log), optimize.WithMetrics(metrics))
	if err != nil {
		return fmt.Errorf("failed to start optimizer: %w", err)
	}

	corpus := core.NewCorpus()
	reporter := core.MultiReporter{core.NewLoggerReporter(log), core.NewMetricsReporter(metrics)}
	s := newSpinner(" Fuzzing...")
	covered := opt.Covered()
	samples := 0

	for iter := 1; config.Iterations == 0 || iter <= config.Iterations; iter++ {
		input, err := opt.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			if s != nil {
				s.Stop()
			}
			return fmt.Errorf("fuzzing stopped at step %d: %w", iter, err)
		}
		samples++
		tc := core.NewTestCase(input, "optimizer", iter)
		reporter.OnSample(tc)

		if opt.Covered() > covered {
			covered = opt.Covered()
			tc.Covered = covered
			if corpus.Add(tc) {
				reporter.OnNewCoverage(tc)
			}
			_, best := opt.Scores()
			logger.LogCoverage(iter, covered, best)
		}
		if iter%statsInterval == 0 {
			if s != nil {
				s.Suffix = fmt.Sprintf(" Fuzzing... %d samples, %d events covered, %d saved", samples, covered, corpus.Size())
			}
			logger.LogStats(samples, samples, covered, map[string]interface{}{"corpus": corpus.Size()})
		}
	}
	if s != nil {
		s.Stop()
	}

	if err := corpus.Save(config.OutputDir); err != nil {
		return err
	}
	_, best := opt.Scores()
	report := core.RunReport{
		Command:     "fuzz",
		Grammar:     source.Name,
		Sampler:     "optimizer",
		Seed:        seed,
		Samples:     samples,
		Valid:       samples,
		NewCoverage: corpus.Size(),
		Covered:     covered,
		BestScore:   best,
		StartTime:   startTime,
		Duration:    time.Since(startTime),
	}
	logger.LogStats(samples, samples, covered, map[string]interface{}{"corpus": corpus.Size()})
	printFinalStats(report, config.OutputDir)

	if config.MetricsDir != "" {
		path, err := utils.WriteMetricsResult(config.MetricsDir, "fuzz", Version, report)
		if err != nil {
			return err
		}
		infoColor.Printf("Run report written to %s\n", path)
	}

	fmt.Println("\n✨ Fuzzing session completed!")
	return nil
}

// membershipOracle builds the oracle that filters samples before they reach the target
func membershipOracle(config *FuzzConfig, source *GrammarSource, executor *execution.ProcessExecutor) (oracle.Discriminative, error) {
	switch config.Membership {
	case "grammar":
		o, err := solver.NewOracle(source.Normal, config.CacheSize)
		if err != nil {
			return nil, err
		}
		return o, nil
	case "process":
		process, err := oracle.NewProcessOracle(executor, config.AcceptMode)
		if err != nil {
			return nil, err
		}
		cached, err := oracle.NewCachedOracle(oracle.WrapDiscriminative(process, config.Wrapper), config.CacheSize)
		if err != nil {
			return nil, err
		}
		return cached, nil
	case "none":
		return oracle.Func(func(context.Context, string) (bool, error) { return true, nil }), nil
	default:
		return nil, fmt.Errorf("unknown membership oracle %q", config.Membership)
	}
}

func printFinalStats(report core.RunReport, outputDir string) {
	fmt.Println()
	headerColor.Println("📊 Final Statistics")
	fmt.Printf("  samples:      %d\n", report.Samples)
	fmt.Printf("  covered:      %d events\n", report.Covered)
	fmt.Printf("  best score:   %.4g\n", report.BestScore)
	fmt.Printf("  duration:     %s\n", report.Duration.Round(time.Millisecond))
	if report.NewCoverage > 0 {
		successColor.Printf("  saved:        %d inputs in %s\n", report.NewCoverage, outputDir)
	} else {
		warningColor.Println("  saved:        no input reached new coverage")
	}
}
