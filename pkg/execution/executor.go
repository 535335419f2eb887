/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: executor.go
Description: Process executor for target programs. Runs the target once per input, passing
the input through a temporary file, stdin or both, and collects exit status, signal and
output. Every run is bounded by a timeout and killed when its context ends. An optional
rate limit caps executions per second across all callers.
*/

package execution

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"golang.org/x/time/rate"
)

// InputMode selects how the input reaches the target.
type InputMode string

const (
	// InputFile appends a temporary file path holding the input to the arguments
	InputFile InputMode = "file"
	// InputStdin writes the input to the target's standard input
	InputStdin InputMode = "stdin"
	// InputBoth does both
	InputBoth InputMode = "both"
)

// Status classifies one execution.
type Status int

const (
	StatusSuccess Status = iota
	StatusFailure
	StatusCrash
	StatusTimeout
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFailure:
		return "failure"
	case StatusCrash:
		return "crash"
	case StatusTimeout:
		return "timeout"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Config describes how to run a target.
type Config struct {
	Target    string        `mapstructure:"target" yaml:"target" validate:"required"`
	Args      []string      `mapstructure:"args" yaml:"args"`
	InputMode InputMode     `mapstructure:"input_mode" yaml:"input_mode" validate:"omitempty,oneof=file stdin both"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout" validate:"gt=0"`
	Env       []string      `mapstructure:"env" yaml:"env"`
	// RateLimit is the maximum number of executions per second, zero for no limit
	RateLimit float64       `mapstructure:"rate_limit" yaml:"rate_limit" validate:"gte=0"`
}

// Result holds the outcome of one execution.
type Result struct {
	Status   Status
	ExitCode int
	Signal   int
	Output   []byte
	Stderr   []byte
	Duration time.Duration
}

// ProcessExecutor runs a target program once per input.
type ProcessExecutor struct {
	config  Config
	limiter *rate.Limiter
}

// NewProcessExecutor creates an executor. An empty input mode means file mode.
func NewProcessExecutor(config Config) (*ProcessExecutor, error) {
	if config.Target == "" {
		return nil, fmt.Errorf("executor: target is required")
	}
	if config.Timeout <= 0 {
		return nil, fmt.Errorf("executor: timeout must be positive, got %s", config.Timeout)
	}
	if config.InputMode == "" {
		config.InputMode = InputFile
	}
	switch config.InputMode {
	case InputFile, InputStdin, InputBoth:
	default:
		return nil, fmt.Errorf("executor: unknown input mode %q", config.InputMode)
	}
	if config.RateLimit < 0 {
		return nil, fmt.Errorf("executor: rate limit must not be negative, got %g", config.RateLimit)
	}
	e := &ProcessExecutor{config: config}
	if config.RateLimit > 0 {
		burst := int(config.RateLimit)
		if burst < 1 {
			burst = 1
		}
		e.limiter = rate.NewLimiter(rate.Limit(config.RateLimit), burst)
	}
	return e, nil
}

// Config returns the executor configuration.
func (e *ProcessExecutor) Config() Config {
	return e.config
}

// Execute runs the target on input. Errors are returned only when the process could not be
// run at all; crashes, failures and timeouts are reported through Result.Status.
func (e *ProcessExecutor) Execute(ctx context.Context, input []byte) (*Result, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}
	args := append([]string(nil), e.config.Args...)
	if e.config.InputMode != InputStdin {
		tmp, err := os.CreateTemp("", "glade-input-*")
		if err != nil {
			return nil, fmt.Errorf("failed to create input file: %w", err)
		}
		defer os.Remove(tmp.Name())
		if _, err := tmp.Write(input); err != nil {
			tmp.Close()
			return nil, fmt.Errorf("failed to write input file: %w", err)
		}
		if err := tmp.Close(); err != nil {
			return nil, fmt.Errorf("failed to close input file: %w", err)
		}
		args = append(args, tmp.Name())
	}

	runCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, e.config.Target, args...)
	cmd.Env = append(os.Environ(), e.config.Env...)
	cmd.WaitDelay = time.Second
	if e.config.InputMode != InputFile {
		cmd.Stdin = bytes.NewReader(input)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	result := &Result{
		Output:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: time.Since(start),
	}

	if err != nil && ctx.Err() == nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		result.Status = StatusTimeout
		result.ExitCode = -1
		return result, nil
	}
	if err != nil && ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return nil, fmt.Errorf("failed to run %s: %w", e.config.Target, err)
	}

	result.ExitCode = cmd.ProcessState.ExitCode()
	if ws, ok := cmd.ProcessState.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		result.Signal = int(ws.Signal())
		result.Status = StatusCrash
		return result, nil
	}
	if result.ExitCode != 0 {
		result.Status = StatusFailure
	}
	return result, nil
}
