/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: stream.go
Description: Samplers and streams. A Sampler draws independent strings; a Stream is a lazy,
possibly infinite sequence the caller bounds explicitly with Take, TakeContext or Bounded.
Combinators mix samplers in round-robin or uniformly random order.
*/

package fuzz

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"unicode/utf8"
)

// ErrEndOfStream is returned by Next once a finite stream is exhausted.
var ErrEndOfStream = errors.New("end of stream")

// Sampler draws one string per call.
type Sampler interface {
	Sample() (string, error)
}

// SamplerFunc adapts a function to Sampler.
type SamplerFunc func() (string, error)

// Sample calls f.
func (f SamplerFunc) Sample() (string, error) {
	return f()
}

// Stream yields strings until it returns ErrEndOfStream. Infinite streams never do.
type Stream interface {
	Next() (string, error)
}

// StreamFunc adapts a function to Stream.
type StreamFunc func() (string, error)

// Next calls f.
func (f StreamFunc) Next() (string, error) {
	return f()
}

// FromSampler turns a sampler into an infinite stream.
func FromSampler(s Sampler) Stream {
	return StreamFunc(s.Sample)
}

// FromSlice streams the given values once.
func FromSlice(values []string) Stream {
	i := 0
	return StreamFunc(func() (string, error) {
		if i >= len(values) {
			return "", ErrEndOfStream
		}
		i++
		return values[i-1], nil
	})
}

// Take collects up to n values, stopping early at the end of the stream.
func Take(s Stream, n int) ([]string, error) {
	return TakeContext(context.Background(), s, n)
}

// TakeContext collects up to n values, stopping early at the end of the stream or when
// ctx is done. The values gathered so far are returned alongside ctx's error.
func TakeContext(ctx context.Context, s Stream, n int) ([]string, error) {
	out := make([]string, 0, n)
	for len(out) < n {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		v, err := s.Next()
		if errors.Is(err, ErrEndOfStream) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Bounded ends s after n values.
func Bounded(s Stream, n int) Stream {
	taken := 0
	return StreamFunc(func() (string, error) {
		if taken >= n {
			return "", ErrEndOfStream
		}
		v, err := s.Next()
		if err != nil {
			return "", err
		}
		taken++
		return v, nil
	})
}

// Filter yields only values accepted by keep. It skips rejected values without bound.
func Filter(s Stream, keep func(string) bool) Stream {
	return StreamFunc(func() (string, error) {
		for {
			v, err := s.Next()
			if err != nil {
				return "", err
			}
			if keep(v) {
				return v, nil
			}
		}
	})
}

// MaxLength keeps values of at most n characters.
func MaxLength(n int) func(string) bool {
	return func(s string) bool { return utf8.RuneCountInString(s) <= n }
}

// RoundRobin cycles through samplers in order.
func RoundRobin(samplers ...Sampler) (Sampler, error) {
	if len(samplers) == 0 {
		return nil, fmt.Errorf("round robin needs at least one sampler")
	}
	cur := -1
	return SamplerFunc(func() (string, error) {
		cur = (cur + 1) % len(samplers)
		return samplers[cur].Sample()
	}), nil
}

// RandomChoice delegates each call to a uniformly chosen sampler.
func RandomChoice(rng *rand.Rand, samplers ...Sampler) (Sampler, error) {
	if len(samplers) == 0 {
		return nil, fmt.Errorf("random choice needs at least one sampler")
	}
	return SamplerFunc(func() (string, error) {
		return samplers[rng.Intn(len(samplers))].Sample()
	}), nil
}

// SeedMutationSampler edits a fixed seed string between 0 and numMutations-1 times.
func SeedMutationSampler(seed string, numMutations int, rng *rand.Rand) (Sampler, error) {
	if numMutations <= 0 {
		return nil, fmt.Errorf("invalid seed mutation sampler: numMutations=%d must be positive", numMutations)
	}
	return SamplerFunc(func() (string, error) {
		return StringMutant(seed, rng.Intn(numMutations), rng), nil
	}), nil
}
