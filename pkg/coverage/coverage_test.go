/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: coverage_test.go
Description: Tests for coverage bitmaps and the target report protocol.
*/

package coverage_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/morellic/glade-full/pkg/coverage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBitmapOperations tests set operations and event listing
func TestBitmapOperations(t *testing.T) {
	a, err := coverage.FromEvents(2, 0, 5, 31, 40)
	require.NoError(t, err)
	b, err := coverage.FromEvents(2, 5, 63)
	require.NoError(t, err)

	assert.Equal(t, 64, a.Len())
	assert.Equal(t, 4, a.PopCount())
	assert.True(t, a.Has(31), "high bit of a group counts as covered")
	assert.False(t, a.Has(30))

	or, err := a.Or(b)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 5, 31, 40, 63}, or.Events())

	and, err := a.And(b)
	require.NoError(t, err)
	assert.Equal(t, []int{5}, and.Events())

	minus, err := a.Minus(b)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 31, 40}, minus.Events())

	_, err = a.Or(coverage.NewBitmap(3))
	assert.Error(t, err)
	_, err = coverage.FromEvents(1, 32)
	assert.Error(t, err)
}

// TestUnion tests that union leaves its inputs untouched
func TestUnion(t *testing.T) {
	a, _ := coverage.FromEvents(1, 1)
	b, _ := coverage.FromEvents(1, 2)

	u, err := coverage.Union(a, b)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, u.Events())
	assert.Equal(t, []int{1}, a.Events())

	_, err = coverage.Union()
	assert.Error(t, err)
	_, err = coverage.Union(a, coverage.NewBitmap(2))
	assert.Error(t, err)
}

// TestReportRoundTrip tests writing and decoding a target report
func TestReportRoundTrip(t *testing.T) {
	// 0x0a0a0a0a puts newline bytes inside the trace payload
	trace := coverage.Bitmap{0x0a0a0a0a, 0x80000001, 0}
	var buf bytes.Buffer
	buf.WriteString("some target chatter\n")
	require.NoError(t, coverage.WriteReport(&buf, &coverage.Report{Score: 17, Trace: trace}))

	r, err := coverage.Decode(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 17, r.Score)
	assert.Equal(t, trace, r.Trace)
}

// TestDecodeErrors tests missing and malformed protocol lines
func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   error
		trace  bool
	}{
		{"no score", "hello\n", coverage.ErrNoScore, false},
		{"bad score", "SCORE:x\n", coverage.ErrNoScore, false},
		{"no trace", "SCORE:1\nTOT:1\n", coverage.ErrNoTrace, true},
		{"trace before total", "TRACE:\x00\x00\x00\x00\nTOT:1\n", coverage.ErrNoTrace, true},
		{"short trace", "TOT:2\nTRACE:\x00\x00\x00\x01\n", coverage.ErrNoTrace, true},
		{"bad total", "TOT:-3\n", coverage.ErrNoTrace, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err error
			if tt.trace {
				_, err = coverage.DecodeTrace([]byte(tt.output))
			} else {
				_, err = coverage.DecodeScore([]byte(tt.output))
			}
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

// TestOracleFunc tests the scalar score of a bitmap oracle
func TestOracleFunc(t *testing.T) {
	o := coverage.OracleFunc(func(_ context.Context, input string) (coverage.Bitmap, error) {
		events := make([]int, len(input))
		for i := range input {
			events[i] = i
		}
		return coverage.FromEvents(1, events...)
	})

	n, err := o.Coverage(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}
