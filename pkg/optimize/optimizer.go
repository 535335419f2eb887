/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: optimizer.go
Description: Coverage-guided beam search. A population of examples is scored by the weighted
union of their coverage bitmaps. Each step resamples one beam and lets the acceptor decide
whether the proposal replaces the working population. Periodically every coverage event is
reweighted by how many best-population beams hit it, so rare events become worth more.
*/

package optimize

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/morellic/glade-full/pkg/coverage"
	"github.com/morellic/glade-full/pkg/fuzz"
	"github.com/morellic/glade-full/pkg/monitoring"
	"github.com/sirupsen/logrus"
)

// ErrEmptyBeam is returned when an optimizer is configured without beams.
var ErrEmptyBeam = errors.New("optimizer needs at least one beam")

var validate = validator.New()

// Config sizes the search.
type Config struct {
	// NumBeams is the population size
	NumBeams    int `mapstructure:"num_beams" yaml:"num_beams" validate:"gt=0"`
	// NumSubIters is the number of steps between reweighting rounds
	NumSubIters int `mapstructure:"num_sub_iters" yaml:"num_sub_iters" validate:"gt=0"`
}

// DefaultConfig returns the fuzz command defaults.
func DefaultConfig() Config {
	return Config{NumBeams: 20, NumSubIters: 100}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.NumBeams <= 0 {
		return fmt.Errorf("%w: num_beams=%d", ErrEmptyBeam, c.NumBeams)
	}
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid optimizer config: %w", err)
	}
	return nil
}

// Option customises an Optimizer.
type Option func(*options)

type options struct {
	logger  logrus.FieldLogger
	metrics *monitoring.Metrics
}

// WithLogger sets the logger. New coverage is logged at debug level, reweighting at info.
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics records steps and coverage on m.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

type beam[T StructuredExample] struct {
	example T
	trace   coverage.Bitmap
}

type population[T StructuredExample] struct {
	beams []beam[T]
	score float64
}

// Optimizer is an infinite coverage-guided sample generator. It is not safe for
// concurrent use.
type Optimizer[T StructuredExample] struct {
	problem  GrammarProblem[T]
	oracle   coverage.Oracle
	acceptor Acceptor
	config   Config
	rng      *rand.Rand
	logger   logrus.FieldLogger
	metrics  *monitoring.Metrics

	weights    [][coverage.GroupBits]float64
	covered    [][coverage.GroupBits]bool
	numCovered int
	history    []T

	cur  population[T]
	max  population[T]
	iter int
}

// New seeds an optimizer. The seed's bitmap fixes the bitmap length for the whole run;
// the seed fills every beam and its coverage is not part of the history.
func New[T StructuredExample](ctx context.Context, problem GrammarProblem[T], oracle coverage.Oracle, acceptor Acceptor, config Config, rng *rand.Rand, opts ...Option) (*Optimizer[T], error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		o.logger = discard
	}

	opt := &Optimizer[T]{
		problem:  problem,
		oracle:   oracle,
		acceptor: acceptor,
		config:   config,
		rng:      rng,
		logger:   o.logger,
		metrics:  o.metrics,
		iter:     1,
	}

	seed, err := problem.Seed(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to seed optimizer: %w", err)
	}
	trace, err := opt.fullCoverage(ctx, seed)
	if err != nil {
		return nil, err
	}
	opt.weights = make([][coverage.GroupBits]float64, len(trace))
	for i := range opt.weights {
		for j := range opt.weights[i] {
			opt.weights[i][j] = 1.0
		}
	}
	opt.covered = make([][coverage.GroupBits]bool, len(trace))

	beams := make([]beam[T], config.NumBeams)
	for i := range beams {
		beams[i] = beam[T]{example: seed, trace: trace}
	}
	opt.cur, err = opt.score(beams, -1)
	if err != nil {
		return nil, err
	}
	opt.max = opt.cur

	opt.logger.WithFields(logrus.Fields{
		"beams":   config.NumBeams,
		"groups":  len(trace),
		"covered": opt.numCovered,
		"score":   opt.cur.score,
	}).Info("Optimizer seeded")
	return opt, nil
}

func (o *Optimizer[T]) fullCoverage(ctx context.Context, example T) (coverage.Bitmap, error) {
	start := time.Now()
	trace, err := o.oracle.FullCoverage(ctx, example.Input())
	o.metrics.ObserveOracle(time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("coverage oracle failed on %q: %w", example.Input(), err)
	}
	return trace, nil
}

// score sums the weights of every event in the union of the beams' bitmaps and marks
// events never seen before. If choice names a beam and something new was covered, that
// beam's example joins the history.
func (o *Optimizer[T]) score(beams []beam[T], choice int) (population[T], error) {
	traces := make([]coverage.Bitmap, len(beams))
	for i, b := range beams {
		if len(b.trace) != len(o.weights) {
			return population[T]{}, fmt.Errorf("coverage bitmap of %q has %d groups, want %d",
				b.example.Input(), len(b.trace), len(o.weights))
		}
		traces[i] = b.trace
	}
	all, err := coverage.Union(traces...)
	if err != nil {
		return population[T]{}, err
	}

	total := 0.0
	coveredNew := false
	for _, e := range all.Events() {
		i, j := e/coverage.GroupBits, e%coverage.GroupBits
		total += o.weights[i][j]
		if !o.covered[i][j] {
			o.covered[i][j] = true
			o.numCovered++
			coveredNew = true
		}
	}
	if coveredNew && choice >= 0 {
		o.history = append(o.history, beams[choice].example)
		o.metrics.ObserveCoverage(o.numCovered)
		o.logger.WithFields(logrus.Fields{
			"iter":    o.iter,
			"covered": o.numCovered,
			"score":   total,
			"length":  len(beams[choice].example.Input()),
		}).Debug("New coverage")
	}
	return population[T]{beams: beams, score: total}, nil
}

// reweight sets each event's weight to 2^-count, count being the number of beams hitting it.
func (o *Optimizer[T]) reweight(beams []beam[T]) {
	counts := make([][coverage.GroupBits]int, len(o.weights))
	for _, b := range beams {
		for _, e := range b.trace.Events() {
			counts[e/coverage.GroupBits][e%coverage.GroupBits]++
		}
	}
	for i := range o.weights {
		for j := range o.weights[i] {
			o.weights[i][j] = math.Pow(2, -float64(counts[i][j]))
		}
	}
}

// Next performs one search step and returns the sampled input, whether or not the
// proposal was accepted.
func (o *Optimizer[T]) Next(ctx context.Context) (string, error) {
	choice := o.rng.Intn(len(o.cur.beams))
	example, err := o.problem.Sample(ctx, o.cur.beams[choice].example)
	if err != nil {
		return "", fmt.Errorf("failed to sample beam %d: %w", choice, err)
	}
	trace, err := o.fullCoverage(ctx, example)
	if err != nil {
		return "", err
	}

	beams := append([]beam[T](nil), o.cur.beams...)
	beams[choice] = beam[T]{example: example, trace: trace}
	proposal, err := o.score(beams, choice)
	if err != nil {
		return "", err
	}

	if proposal.score > o.max.score {
		o.max = proposal
	}
	accepted := o.acceptor.Accept(o.cur.score, proposal.score)
	if accepted {
		o.cur = proposal
	}
	o.metrics.ObserveStep(accepted, o.cur.score, o.max.score)

	if o.iter%o.config.NumSubIters == 0 {
		o.reweight(o.max.beams)
		if o.max, err = o.score(o.max.beams, -1); err != nil {
			return "", err
		}
		o.cur = o.max
		o.metrics.ObserveReweight(o.max.score)
		o.logger.WithFields(logrus.Fields{
			"iter":    o.iter,
			"covered": o.numCovered,
			"score":   o.max.score,
			"history": len(o.history),
		}).Info("Reweighted coverage events")
	}

	o.iter++
	return example.Input(), nil
}

// Stream exposes the optimizer as an infinite stream bound to ctx.
func (o *Optimizer[T]) Stream(ctx context.Context) fuzz.Stream {
	return fuzz.StreamFunc(func() (string, error) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		return o.Next(ctx)
	})
}

// History returns, in discovery order, every sampled example that covered a new event.
func (o *Optimizer[T]) History() []T {
	return append([]T(nil), o.history...)
}

// Covered returns the number of events hit so far, seed included.
func (o *Optimizer[T]) Covered() int {
	return o.numCovered
}

// Weight returns the current weight of event e.
func (o *Optimizer[T]) Weight(e int) float64 {
	return o.weights[e/coverage.GroupBits][e%coverage.GroupBits]
}

// Scores returns the working and best population scores.
func (o *Optimizer[T]) Scores() (current, best float64) {
	return o.cur.score, o.max.score
}

// Best returns the examples of the best population.
func (o *Optimizer[T]) Best() []T {
	out := make([]T, len(o.max.beams))
	for i, b := range o.max.beams {
		out[i] = b.example
	}
	return out
}

// Iterations returns the number of completed steps.
func (o *Optimizer[T]) Iterations() int {
	return o.iter - 1
}
