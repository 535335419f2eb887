/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: main.go
Description: Demo target for the fuzz command. Parses a bracketed input, prints a coverage
report (SCORE:, TOT:, TRACE:) on stdout and exits 1 when the brackets do not balance. Deep
nesting around the word CRSH panics and the process dies by SIGABRT, giving the fuzzer a
crash to find.
*/

package main

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"unicode"

	"github.com/morellic/glade-full/pkg/coverage"
)

const groups = 2

// events 0-15 record the deepest nesting, 16-21 the character classes seen inside
// brackets, 22-29 local shapes and 32-47 the length bucket.
const (
	depthEvents  = 0
	classEvents  = 16
	shapeEvents  = 22
	lengthEvents = 32
)

func classOf(r rune) int {
	switch {
	case unicode.IsLower(r):
		return 0
	case unicode.IsUpper(r):
		return 1
	case unicode.IsDigit(r):
		return 2
	case unicode.IsPunct(r):
		return 3
	case unicode.IsSpace(r):
		return 4
	default:
		return 5
	}
}

// analyse returns the covered events and whether the brackets balance
func analyse(input string) ([]int, bool) {
	seen := map[int]bool{}
	depth, maxDepth := 0, 0
	balanced := true
	var prev rune
	for i, r := range input {
		switch r {
		case '(':
			depth++
			if depth > maxDepth {
				maxDepth = depth
			}
			if prev == ')' {
				seen[shapeEvents] = true
			}
		case ')':
			if depth == 0 {
				balanced = false
				seen[shapeEvents+1] = true
				continue
			}
			if prev == '(' {
				seen[shapeEvents+2] = true
			}
			depth--
		default:
			if depth > 0 {
				seen[classEvents+classOf(r)] = true
			} else {
				seen[shapeEvents+3] = true
			}
			if prev == '(' && unicode.IsLetter(r) {
				seen[shapeEvents+4] = true
			}
			if depth >= 3 && i+4 <= len(input) && input[i:i+4] == "CRSH" {
				panic("demo crash: deep CRSH reached")
			}
		}
		prev = r
	}
	if depth != 0 {
		balanced = false
		seen[shapeEvents+5] = true
	}
	if maxDepth > 15 {
		maxDepth = 15
	}
	seen[depthEvents+maxDepth] = true

	bucket := 0
	for n := len(input); n > 1 && bucket < 15; n >>= 1 {
		bucket++
	}
	seen[lengthEvents+bucket] = true

	events := make([]int, 0, len(seen))
	for e := range seen {
		events = append(events, e)
	}
	return events, balanced
}

func main() {
	// an unrecovered panic raises SIGABRT instead of exiting with status 2
	debug.SetTraceback("crash")

	var (
		data []byte
		err  error
	)
	if len(os.Args) > 1 {
		data, err = os.ReadFile(os.Args[1])
	} else {
		data, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "read input: %v\n", err)
		os.Exit(2)
	}

	events, balanced := analyse(string(data))
	trace, err := coverage.FromEvents(groups, events...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "trace: %v\n", err)
		os.Exit(2)
	}
	if err := coverage.WriteReport(os.Stdout, &coverage.Report{Score: trace.PopCount(), Trace: trace}); err != nil {
		fmt.Fprintf(os.Stderr, "report: %v\n", err)
		os.Exit(2)
	}
	if !balanced {
		fmt.Fprintln(os.Stderr, "unbalanced brackets")
		os.Exit(1)
	}
}
