/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: oracle.go
Description: Membership and coverage oracles backed by a target program. A discriminative
oracle answers whether an input belongs to the target's language; a process coverage oracle
decodes the target's coverage report. Wrappers embed inputs in a fixed context before they
reach the target.
*/

package oracle

import (
	"bytes"
	"context"
	"fmt"

	"github.com/morellic/glade-full/pkg/coverage"
	"github.com/morellic/glade-full/pkg/execution"
)

// Discriminative decides membership of an input in the target language.
type Discriminative interface {
	Query(ctx context.Context, input string) (bool, error)
}

// Func adapts a function to Discriminative.
type Func func(ctx context.Context, input string) (bool, error)

// Query calls f.
func (f Func) Query(ctx context.Context, input string) (bool, error) {
	return f(ctx, input)
}

// Executor runs a target once per input.
type Executor interface {
	Execute(ctx context.Context, input []byte) (*execution.Result, error)
}

// AcceptMode selects how a target run is turned into a membership answer.
type AcceptMode string

const (
	// AcceptExitCode accepts runs that exit 0
	AcceptExitCode AcceptMode = "exit"
	// AcceptQuietStdout accepts runs whose stdout is blank
	AcceptQuietStdout AcceptMode = "stdout"
	// AcceptQuietStderr accepts runs whose stderr is blank
	AcceptQuietStderr AcceptMode = "stderr"
)

// ProcessOracle answers membership queries by running a target. Timeouts and crashes
// are rejections.
type ProcessOracle struct {
	executor Executor
	mode     AcceptMode
}

// NewProcessOracle creates an oracle. An empty mode means AcceptExitCode.
func NewProcessOracle(executor Executor, mode AcceptMode) (*ProcessOracle, error) {
	if mode == "" {
		mode = AcceptExitCode
	}
	switch mode {
	case AcceptExitCode, AcceptQuietStdout, AcceptQuietStderr:
	default:
		return nil, fmt.Errorf("unknown accept mode %q", mode)
	}
	return &ProcessOracle{executor: executor, mode: mode}, nil
}

// Query runs the target on input.
func (o *ProcessOracle) Query(ctx context.Context, input string) (bool, error) {
	r, err := o.executor.Execute(ctx, []byte(input))
	if err != nil {
		return false, err
	}
	if r.Status == execution.StatusTimeout || r.Status == execution.StatusCrash {
		return false, nil
	}
	switch o.mode {
	case AcceptQuietStdout:
		return len(bytes.TrimSpace(r.Output)) == 0, nil
	case AcceptQuietStderr:
		return len(bytes.TrimSpace(r.Stderr)) == 0, nil
	default:
		return r.Status == execution.StatusSuccess, nil
	}
}

// ProcessCoverageOracle runs an instrumented target and decodes its report.
type ProcessCoverageOracle struct {
	executor Executor
}

// NewProcessCoverageOracle creates a coverage oracle over executor.
func NewProcessCoverageOracle(executor Executor) *ProcessCoverageOracle {
	return &ProcessCoverageOracle{executor: executor}
}

func (o *ProcessCoverageOracle) run(ctx context.Context, input string) ([]byte, error) {
	r, err := o.executor.Execute(ctx, []byte(input))
	if err != nil {
		return nil, err
	}
	if r.Status == execution.StatusTimeout {
		return nil, fmt.Errorf("coverage run timed out after %s", r.Duration)
	}
	return r.Output, nil
}

// FullCoverage returns the trace reported by the target.
func (o *ProcessCoverageOracle) FullCoverage(ctx context.Context, input string) (coverage.Bitmap, error) {
	out, err := o.run(ctx, input)
	if err != nil {
		return nil, err
	}
	return coverage.DecodeTrace(out)
}

// Coverage returns the score reported by the target.
func (o *ProcessCoverageOracle) Coverage(ctx context.Context, input string) (int, error) {
	out, err := o.run(ctx, input)
	if err != nil {
		return 0, err
	}
	return coverage.DecodeScore(out)
}

// Wrapper embeds an input in a fixed context.
type Wrapper struct {
	Prefix string `mapstructure:"prefix" yaml:"prefix"`
	Suffix string `mapstructure:"suffix" yaml:"suffix"`
}

// Wrap returns prefix + input + suffix.
func (w Wrapper) Wrap(input string) string {
	return w.Prefix + input + w.Suffix
}

// WrapDiscriminative wraps every query before it reaches o.
func WrapDiscriminative(o Discriminative, w Wrapper) Discriminative {
	return Func(func(ctx context.Context, input string) (bool, error) {
		return o.Query(ctx, w.Wrap(input))
	})
}

type wrappedCoverage struct {
	oracle  coverage.Oracle
	wrapper Wrapper
}

// WrapCoverage wraps every input before it reaches o.
func WrapCoverage(o coverage.Oracle, w Wrapper) coverage.Oracle {
	return &wrappedCoverage{oracle: o, wrapper: w}
}

func (c *wrappedCoverage) FullCoverage(ctx context.Context, input string) (coverage.Bitmap, error) {
	return c.oracle.FullCoverage(ctx, c.wrapper.Wrap(input))
}

func (c *wrappedCoverage) Coverage(ctx context.Context, input string) (int, error) {
	return c.oracle.Coverage(ctx, c.wrapper.Wrap(input))
}
