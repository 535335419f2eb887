/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: oracle.go
Description: Discriminative oracle backed by a normal grammar. Answers are memoised in an
LRU cache because fuzzing loops re-query identical candidates frequently.
*/

package solver

import (
	"context"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/morellic/glade-full/pkg/grammar"
)

// DefaultCacheSize bounds the number of memoised membership answers.
const DefaultCacheSize = 4096

// Oracle answers membership queries against a fixed normal grammar.
// It is safe for concurrent use.
type Oracle struct {
	grammar *grammar.NormalGrammar
	cache   *lru.Cache[string, bool]
	pool    sync.Pool
}

// NewOracle creates a grammar oracle. A cacheSize of zero or less uses DefaultCacheSize.
func NewOracle(ng *grammar.NormalGrammar, cacheSize int) (*Oracle, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, bool](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create membership cache: %w", err)
	}
	return &Oracle{
		grammar: ng,
		cache:   cache,
		pool:    sync.Pool{New: func() any { return New() }},
	}, nil
}

// Query reports whether input is in the grammar's language. It never fails.
func (o *Oracle) Query(_ context.Context, input string) (bool, error) {
	if ok, hit := o.cache.Get(input); hit {
		return ok, nil
	}
	s := o.pool.Get().(*Solver)
	ok := s.Solve(o.grammar, input)
	o.pool.Put(s)
	o.cache.Add(input, ok)
	return ok, nil
}

// Grammar returns the grammar the oracle decides against.
func (o *Oracle) Grammar() *grammar.NormalGrammar {
	return o.grammar
}
