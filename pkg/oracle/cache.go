/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: cache.go
Description: LRU-memoised oracles. Target runs dominate fuzzing time and the optimizer
re-evaluates identical candidates, so answers are cached by input. Errors are never cached.
*/

package oracle

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/morellic/glade-full/pkg/coverage"
)

// DefaultCacheSize bounds the number of memoised answers per cache.
const DefaultCacheSize = 8192

// CachedOracle memoises membership answers.
type CachedOracle struct {
	oracle Discriminative
	cache  *lru.Cache[string, bool]
}

// NewCachedOracle wraps o with a cache of size entries. A size of zero or less uses
// DefaultCacheSize.
func NewCachedOracle(o Discriminative, size int) (*CachedOracle, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, bool](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create oracle cache: %w", err)
	}
	return &CachedOracle{oracle: o, cache: cache}, nil
}

// Query answers from the cache or asks the wrapped oracle.
func (c *CachedOracle) Query(ctx context.Context, input string) (bool, error) {
	if ok, hit := c.cache.Get(input); hit {
		return ok, nil
	}
	ok, err := c.oracle.Query(ctx, input)
	if err != nil {
		return false, err
	}
	c.cache.Add(input, ok)
	return ok, nil
}

// CachedCoverageOracle memoises coverage bitmaps and scores.
type CachedCoverageOracle struct {
	oracle coverage.Oracle
	traces *lru.Cache[string, coverage.Bitmap]
	scores *lru.Cache[string, int]
}

// NewCachedCoverageOracle wraps o with caches of size entries each.
func NewCachedCoverageOracle(o coverage.Oracle, size int) (*CachedCoverageOracle, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	traces, err := lru.New[string, coverage.Bitmap](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace cache: %w", err)
	}
	scores, err := lru.New[string, int](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create score cache: %w", err)
	}
	return &CachedCoverageOracle{oracle: o, traces: traces, scores: scores}, nil
}

// FullCoverage returns a copy of the cached bitmap so callers may modify it.
func (c *CachedCoverageOracle) FullCoverage(ctx context.Context, input string) (coverage.Bitmap, error) {
	if b, hit := c.traces.Get(input); hit {
		return b.Clone(), nil
	}
	b, err := c.oracle.FullCoverage(ctx, input)
	if err != nil {
		return nil, err
	}
	c.traces.Add(input, b.Clone())
	return b, nil
}

// Coverage answers from the cache or asks the wrapped oracle.
func (c *CachedCoverageOracle) Coverage(ctx context.Context, input string) (int, error) {
	if n, hit := c.scores.Get(input); hit {
		return n, nil
	}
	n, err := c.oracle.Coverage(ctx, input)
	if err != nil {
		return 0, err
	}
	c.scores.Add(input, n)
	return n, nil
}
