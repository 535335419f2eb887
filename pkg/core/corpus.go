/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: corpus.go
Description: Corpus of generated inputs. Keeps test cases in discovery order, ignores
duplicate inputs, and persists to a directory holding one raw file per input plus a JSON
index. Safe for concurrent use.
*/

package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// IndexFile is the name of the corpus index inside a corpus directory
const IndexFile = "index.json"

// Corpus manages the collection of test cases
type Corpus struct {
	mu     sync.RWMutex
	order  []*TestCase
	byID   map[string]*TestCase
	byData map[string]*TestCase
}

// NewCorpus creates an empty corpus
func NewCorpus() *Corpus {
	return &Corpus{
		byID:   make(map[string]*TestCase),
		byData: make(map[string]*TestCase),
	}
}

// Add adds a test case. It returns false if an entry with the same input already exists.
func (c *Corpus) Add(tc *TestCase) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.byData[tc.Data]; exists {
		return false
	}
	c.order = append(c.order, tc)
	c.byID[tc.ID] = tc
	c.byData[tc.Data] = tc
	return true
}

// Get retrieves a test case by id, or nil
func (c *Corpus) Get(id string) *TestCase {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.byID[id]
}

// Contains reports whether data is already in the corpus
func (c *Corpus) Contains(data string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.byData[data]
	return ok
}

// Entries returns the test cases in insertion order
func (c *Corpus) Entries() []*TestCase {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]*TestCase(nil), c.order...)
}

// Inputs returns the inputs in insertion order
func (c *Corpus) Inputs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.order))
	for i, tc := range c.order {
		out[i] = tc.Data
	}
	return out
}

// Size returns the number of test cases
func (c *Corpus) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}

// Save writes every input to dir/<id>.input and the index to dir/index.json
func (c *Corpus) Save(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create corpus directory: %w", err)
	}
	entries := c.Entries()
	for _, tc := range entries {
		path := filepath.Join(dir, tc.ID+".input")
		if err := os.WriteFile(path, []byte(tc.Data), 0644); err != nil {
			return fmt.Errorf("failed to write corpus entry %s: %w", tc.ID, err)
		}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal corpus index: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, IndexFile), data, 0644); err != nil {
		return fmt.Errorf("failed to write corpus index: %w", err)
	}
	return nil
}

// LoadCorpus reads a corpus saved by Save
func LoadCorpus(dir string) (*Corpus, error) {
	data, err := os.ReadFile(filepath.Join(dir, IndexFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus index: %w", err)
	}
	var entries []*TestCase
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse corpus index: %w", err)
	}
	c := NewCorpus()
	for _, tc := range entries {
		c.Add(tc)
	}
	return c, nil
}
