/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: stats.go
Description: Grammar quality statistics. A learned grammar is judged two ways: held-out
inputs it fails to accept (false negatives) and samples it generates that the target
rejects (false positives). Oracle queries run on a bounded worker group.
*/

package analysis

import (
	"context"
	"fmt"
	"io"

	"github.com/morellic/glade-full/pkg/fuzz"
	"github.com/morellic/glade-full/pkg/grammar"
	"github.com/morellic/glade-full/pkg/oracle"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// DefaultMaxFailures bounds the failing inputs kept on a Rate.
const DefaultMaxFailures = 10

// Rate counts the inputs that failed a check.
type Rate struct {
	Checked  int      `json:"checked"`
	Failed   int      `json:"failed"`
	Failures []string `json:"failures,omitempty"`
}

// Value returns Failed/Checked, zero when nothing was checked.
func (r Rate) Value() float64 {
	if r.Checked == 0 {
		return 0
	}
	return float64(r.Failed) / float64(r.Checked)
}

// Report gathers the statistics of one grammar.
type Report struct {
	Size          grammar.Size `json:"size"`
	FalseNegative *Rate        `json:"false_negative,omitempty"`
	FalsePositive *Rate        `json:"false_positive,omitempty"`
}

// Evaluator computes grammar statistics.
type Evaluator struct {
	workers     int
	maxFailures int
	logger      logrus.FieldLogger
}

// NewEvaluator creates an evaluator running up to workers oracle queries at once.
// A nil logger discards output.
func NewEvaluator(workers int, logger logrus.FieldLogger) (*Evaluator, error) {
	if workers <= 0 {
		return nil, fmt.Errorf("evaluator needs at least one worker, got %d", workers)
	}
	if logger == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		logger = discard
	}
	return &Evaluator{workers: workers, maxFailures: DefaultMaxFailures, logger: logger}, nil
}

// FalseNegativeRate checks held-out inputs against the grammar's membership oracle.
// An input the grammar rejects is a false negative.
func (e *Evaluator) FalseNegativeRate(ctx context.Context, grammarOracle oracle.Discriminative, inputs []string) (Rate, error) {
	rate, err := e.rejected(ctx, grammarOracle, inputs)
	if err != nil {
		return Rate{}, fmt.Errorf("false negative rate: %w", err)
	}
	e.logger.WithFields(logrus.Fields{
		"checked": rate.Checked,
		"failed":  rate.Failed,
		"rate":    rate.Value(),
	}).Info("False negative rate computed")
	return rate, nil
}

// FalsePositiveRate draws n samples from the grammar and checks them against the target.
// A sample the target rejects is a false positive.
func (e *Evaluator) FalsePositiveRate(ctx context.Context, sampler fuzz.Sampler, target oracle.Discriminative, n int) (Rate, error) {
	if n <= 0 {
		return Rate{}, fmt.Errorf("false positive rate needs a positive sample count, got %d", n)
	}
	samples, err := fuzz.TakeContext(ctx, fuzz.FromSampler(sampler), n)
	if err != nil {
		return Rate{}, fmt.Errorf("failed to draw samples: %w", err)
	}
	rate, err := e.rejected(ctx, target, samples)
	if err != nil {
		return Rate{}, fmt.Errorf("false positive rate: %w", err)
	}
	e.logger.WithFields(logrus.Fields{
		"checked": rate.Checked,
		"failed":  rate.Failed,
		"rate":    rate.Value(),
	}).Info("False positive rate computed")
	return rate, nil
}

// rejected queries o on every input and counts the rejections in input order.
func (e *Evaluator) rejected(ctx context.Context, o oracle.Discriminative, inputs []string) (Rate, error) {
	accepted := make([]bool, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, input := range inputs {
		i, input := i, input
		g.Go(func() error {
			ok, err := o.Query(gctx, input)
			if err != nil {
				return fmt.Errorf("oracle failed on %q: %w", input, err)
			}
			accepted[i] = ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Rate{}, err
	}

	rate := Rate{Checked: len(inputs)}
	for i, ok := range accepted {
		if ok {
			continue
		}
		rate.Failed++
		if len(rate.Failures) < e.maxFailures {
			rate.Failures = append(rate.Failures, inputs[i])
		}
		e.logger.WithField("input", inputs[i]).Debug("Input rejected")
	}
	return rate, nil
}
