/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: params.go
Description: Tunable probabilities for the bounded tree sampler: the repetition-count
distribution, the recursion probability at merge points, the probability of drawing from
the wide character class, the node-visit budget and whether '#' is avoided.
*/

package fuzz

import (
	"fmt"
	"math/rand"

	"github.com/go-playground/validator/v10"
)

// Pound is the reserved marker character dropped from multi-constant slots when
// OmitPound is set, unless it is the only option of the slot.
const Pound = '#'

var validate = validator.New()

// SampleParameters configures Sample.
type SampleParameters struct {
	// Repetition[i] is the probability of repeating a body i times. Any mass left over
	// after the last entry yields len(Repetition) repeats.
	Repetition    []float64 `mapstructure:"repetition" yaml:"repetition" validate:"required,min=1,dive,gte=0,lte=1"`
	Recursion     float64   `mapstructure:"recursion" yaml:"recursion" validate:"gte=0,lte=1"`
	AllCharacters float64   `mapstructure:"all_characters" yaml:"all_characters" validate:"gte=0,lte=1"`
	BoxSize       int       `mapstructure:"box_size" yaml:"box_size" validate:"gt=0"`
	OmitPound     bool      `mapstructure:"omit_pound" yaml:"omit_pound"`
}

// DefaultSampleParameters returns the parameters used by the fuzz command.
func DefaultSampleParameters() SampleParameters {
	return SampleParameters{
		Repetition:    []float64{0.2, 0.2, 0.2, 0.4},
		Recursion:     0.8,
		AllCharacters: 0.1,
		BoxSize:       100,
		OmitPound:     true,
	}
}

// Validate checks parameter ranges.
func (p SampleParameters) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("invalid sample parameters: %w", err)
	}
	return nil
}

func (p SampleParameters) randRecursion(rng *rand.Rand) bool {
	return p.Recursion >= rng.Float64()
}

func (p SampleParameters) randAllCharacters(rng *rand.Rand) bool {
	return p.AllCharacters >= rng.Float64()
}

func (p SampleParameters) randRepetition(rng *rand.Rand) int {
	sample := rng.Float64()
	sum := 0.0
	for i, prob := range p.Repetition {
		sum += prob
		if sum >= sample {
			return i
		}
	}
	return len(p.Repetition)
}
