/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: main_test.go
Description: Tests for the demo target's coverage events.
*/

package main

import (
	"context"
	"os"
	"sort"
	"syscall"
	"testing"
	"time"

	"github.com/morellic/glade-full/pkg/execution"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runAsTarget makes the test binary behave as the demo target when set.
const runAsTarget = "GLADE_DEMO_TARGET"

func TestMain(m *testing.M) {
	if os.Getenv(runAsTarget) == "1" {
		main()
		os.Exit(0)
	}
	os.Exit(m.Run())
}

// TestAnalyse tests balance detection and depth events
func TestAnalyse(t *testing.T) {
	events, balanced := analyse("((ab))")
	sort.Ints(events)
	assert.True(t, balanced)
	assert.Contains(t, events, depthEvents+2)
	assert.Contains(t, events, classEvents)
	assert.NotContains(t, events, shapeEvents+5)

	events, balanced = analyse("(a")
	assert.False(t, balanced)
	assert.Contains(t, events, shapeEvents+5)

	_, balanced = analyse(")(")
	assert.False(t, balanced)
}

// TestAnalyseCrash tests the deep CRSH path
func TestAnalyseCrash(t *testing.T) {
	assert.Panics(t, func() { analyse("(((CRSH)))") })
	assert.NotPanics(t, func() { analyse("(CRSH)") })
}

// TestTargetCrashIsSignal tests that the executor sees the deep CRSH path as a signal crash
func TestTargetCrashIsSignal(t *testing.T) {
	executor, err := execution.NewProcessExecutor(execution.Config{
		Target:    os.Args[0],
		Env:       []string{runAsTarget + "=1"},
		InputMode: execution.InputStdin,
		Timeout:   30 * time.Second,
	})
	require.NoError(t, err)

	result, err := executor.Execute(context.Background(), []byte("(((CRSH)))"))
	require.NoError(t, err)
	assert.Equal(t, execution.StatusCrash, result.Status)
	assert.Equal(t, int(syscall.SIGABRT), result.Signal)

	result, err = executor.Execute(context.Background(), []byte("(ab)"))
	require.NoError(t, err)
	assert.Equal(t, execution.StatusSuccess, result.Status)
	assert.Contains(t, string(result.Output), "SCORE:")
}
