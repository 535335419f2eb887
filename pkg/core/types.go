/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: types.go
Description: Core types shared by fuzzing commands: generated test cases and the summary
report of one run.
*/

package core

import (
	"time"

	"github.com/google/uuid"
)

// TestCase is one generated input
type TestCase struct {
	ID        string                 `json:"id"`         // Unique identifier
	Data      string                 `json:"data"`       // The generated input
	Source    string                 `json:"source"`     // Sampler that produced it
	Iteration int                    `json:"iteration"`  // Step at which it was produced
	Covered   int                    `json:"covered"`    // Events covered so far when it was kept
	CreatedAt time.Time              `json:"created_at"` // When it was produced
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// NewTestCase creates a test case with a fresh id
func NewTestCase(data, source string, iteration int) *TestCase {
	return &TestCase{
		ID:        uuid.New().String(),
		Data:      data,
		Source:    source,
		Iteration: iteration,
		CreatedAt: time.Now(),
	}
}

// RunReport summarises one run for the metrics directory
type RunReport struct {
	Command     string        `json:"command"`
	Grammar     string        `json:"grammar"`
	Sampler     string        `json:"sampler"`
	Seed        int64         `json:"seed"`
	Samples     int           `json:"samples"`
	Valid       int           `json:"valid"`
	NewCoverage int           `json:"new_coverage"`
	Covered     int           `json:"covered"`
	BestScore   float64       `json:"best_score"`
	StartTime   time.Time     `json:"start_time"`
	Duration    time.Duration `json:"duration"`
}
