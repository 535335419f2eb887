/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: utils.go
Description: Shared utilities for the glade commands. Provides configuration loading,
logging setup, grammar loading from tree documents, .gram files or synthetic names, and
the viper-backed construction of sampling and target settings.
*/

package commands

import (
	"bufio"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/morellic/glade-full/pkg/execution"
	"github.com/morellic/glade-full/pkg/fuzz"
	"github.com/morellic/glade-full/pkg/grammar"
	"github.com/morellic/glade-full/pkg/logging"
	"github.com/morellic/glade-full/pkg/tree"
	"github.com/spf13/viper"
)

// Version is reported by --version and stamped on run reports.
const Version = "1.0.0"

var validate = validator.New()

// LoadConfig loads configuration from files and environment
func LoadConfig() error {
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	viper.SetEnvPrefix("GLADE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	return nil
}

// SetupLogging builds the run logger from the log_* settings
func SetupLogging() (*logging.Logger, error) {
	config := logging.DefaultLoggerConfig()
	config.Level = logging.LogLevel(viper.GetString("log_level"))
	config.Format = logging.LogFormat(viper.GetString("log_format"))
	config.OutputDir = viper.GetString("log_dir")

	logger, err := logging.NewLogger(config)
	if err != nil {
		return nil, fmt.Errorf("failed to setup logging: %w", err)
	}
	return logger, nil
}

// setup runs LoadConfig and SetupLogging for a command
func setup() (*logging.Logger, error) {
	if err := LoadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return SetupLogging()
}

// newRand returns the run's random source and the seed it was built from
func newRand() (*rand.Rand, int64) {
	seed := viper.GetInt64("seed")
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed)), seed
}

// GrammarSource is a grammar loaded for a command. Tree is set only for derivation tree
// documents; Grammar and Normal are always set.
type GrammarSource struct {
	Name    string
	Tree    *fuzz.TreeGrammar
	Grammar *grammar.Grammar
	Normal  *grammar.NormalGrammar
}

// loadSource loads the grammar named by --tree or --grammar
func loadSource() (*GrammarSource, error) {
	treePath := viper.GetString("tree")
	grammarName := viper.GetString("grammar")

	switch {
	case treePath != "" && grammarName != "":
		return nil, fmt.Errorf("--tree and --grammar are mutually exclusive")
	case treePath != "":
		doc, err := tree.LoadYAMLFile(treePath)
		if err != nil {
			return nil, err
		}
		tg, err := fuzz.NewTreeGrammar(doc.Root, doc.Merges)
		if err != nil {
			return nil, err
		}
		g, err := tree.ToGrammar(doc.Root, doc.Merges)
		if err != nil {
			return nil, err
		}
		return &GrammarSource{Name: treePath, Tree: tg, Grammar: g, Normal: grammar.Normalize(g)}, nil
	case grammarName != "":
		g, err := loadGrammar(grammarName)
		if err != nil {
			return nil, err
		}
		return &GrammarSource{Name: grammarName, Grammar: g, Normal: grammar.Normalize(g)}, nil
	default:
		return nil, fmt.Errorf("one of --tree or --grammar is required")
	}
}

// loadGrammar reads a .gram file, falling back to the synthetic grammar of that name
func loadGrammar(name string) (*grammar.Grammar, error) {
	if filepath.Ext(name) == ".gram" {
		return grammar.LoadFile(name)
	}
	if _, err := os.Stat(name); err == nil {
		return grammar.LoadFile(name)
	}
	g, err := grammar.Synthetic(name)
	if err != nil {
		return nil, fmt.Errorf("%q is neither a grammar file nor one of %v: %w", name, grammar.SyntheticNames(), err)
	}
	return g, nil
}

// sampleParameters builds the tree sampler parameters from the sample.* settings
func sampleParameters() (fuzz.SampleParameters, error) {
	params := fuzz.SampleParameters{
		Recursion:     viper.GetFloat64("sample.recursion"),
		AllCharacters: viper.GetFloat64("sample.all_characters"),
		BoxSize:       viper.GetInt("sample.box_size"),
		OmitPound:     viper.GetBool("sample.omit_pound"),
	}
	for _, field := range viper.GetStringSlice("sample.repetition") {
		for _, part := range strings.Split(field, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			p, err := strconv.ParseFloat(part, 64)
			if err != nil {
				return fuzz.SampleParameters{}, fmt.Errorf("invalid repetition probability %q: %w", part, err)
			}
			params.Repetition = append(params.Repetition, p)
		}
	}
	if err := params.Validate(); err != nil {
		return fuzz.SampleParameters{}, err
	}
	return params, nil
}

// targetConfig builds the executor configuration from the <section>.target.* settings
func targetConfig(section string) execution.Config {
	return execution.Config{
		Target:    viper.GetString(section + ".target.target"),
		Args:      viper.GetStringSlice(section + ".target.args"),
		Env:       viper.GetStringSlice(section + ".target.env"),
		InputMode: execution.InputMode(viper.GetString(section + ".target.input_mode")),
		Timeout:   viper.GetDuration(section + ".target.timeout"),
		RateLimit: viper.GetFloat64(section + ".target.rate_limit"),
	}
}

// readLines reads one input per line, skipping empty lines
func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open inputs: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read inputs: %w", err)
	}
	return lines, nil
}
