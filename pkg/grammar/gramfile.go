/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: gramfile.go
Description: Loader and writer for handwritten .gram grammar files. A file names its start
symbol on an @ line and lists productions as "target ::= a 'x' b | e". Every loaded grammar
is extended with a fixed set of character-class productions (lower, upper, digits, ...).
*/

package grammar

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrMalformedGrammarFile is returned when a .gram file cannot be parsed.
var ErrMalformedGrammarFile = errors.New("malformed grammar file")

var defaultProductions = buildDefaultProductions()

// asciiCharacters returns the characters that make up the ascii class:
// tab, newline and every printable ASCII character.
func asciiCharacters() []rune {
	chars := []rune{'\t', '\n'}
	for r := rune(32); r < 127; r++ {
		chars = append(chars, r)
	}
	return chars
}

func isAlphaNumeric(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

func buildDefaultProductions() []Production {
	var ps []Production
	add := func(target string, r rune) {
		ps = append(ps, NewProduction(NT(target), Char(r)))
	}
	for r := 'a'; r <= 'z'; r++ {
		add("lower", r)
		add("alpha", r)
		add("alphanum", r)
	}
	for r := 'A'; r <= 'Z'; r++ {
		add("upper", r)
		add("alpha", r)
		add("alphanum", r)
	}
	for r := '0'; r <= '9'; r++ {
		if r != '0' {
			add("num", r)
		}
		add("numall", r)
		add("alphanum", r)
	}
	for _, r := range asciiCharacters() {
		if !isAlphaNumeric(r) {
			add("nonalphanum", r)
		}
	}
	for _, r := range asciiCharacters() {
		add("ascii", r)
	}
	add("s", ' ')
	add("t", '\t')
	add("n", '\n')
	add("p", '|')
	ps = append(ps, NewProduction(NT("e")))
	return ps
}

// DefaultProductions returns the character-class productions added to every loaded file.
func DefaultProductions() []Production {
	out := make([]Production, len(defaultProductions))
	copy(out, defaultProductions)
	return out
}

// IsDefaultProduction reports whether p is one of the built-in character-class rules.
func IsDefaultProduction(p Production) bool {
	for _, d := range defaultProductions {
		if p.Equal(d) {
			return true
		}
	}
	return false
}

// LoadFile reads a .gram file from disk.
func LoadFile(path string) (*Grammar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open grammar file: %w", err)
	}
	defer f.Close()

	g, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// Load parses a .gram document.
func Load(r io.Reader) (*Grammar, error) {
	productions := DefaultProductions()
	var start string
	haveStart := false

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "#"):
			continue
		case strings.HasPrefix(line, "@"):
			start = line[1:]
			haveStart = true
			continue
		case strings.TrimSpace(line) == "":
			continue
		}

		parsed, err := parseRule(line)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedGrammarFile, lineNo, err)
		}
		productions = append(productions, parsed...)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read grammar: %w", err)
	}
	if !haveStart {
		return nil, fmt.Errorf("%w: missing @start line", ErrMalformedGrammarFile)
	}
	return Build(productions, NT(start)), nil
}

func parseRule(line string) ([]Production, error) {
	parts := strings.Split(line, "::=")
	if len(parts) != 2 {
		return nil, fmt.Errorf("expected exactly one '::=' in %q", line)
	}
	target := NT(strings.TrimSpace(parts[0]))

	var ps []Production
	for _, alt := range strings.Split(strings.TrimSpace(parts[1]), "|") {
		tokens := strings.Fields(alt)
		inputs := make([]Symbol, 0, len(tokens))
		for _, tok := range tokens {
			sym, err := parseToken(tok)
			if err != nil {
				return nil, err
			}
			inputs = append(inputs, sym)
		}
		ps = append(ps, NewProduction(target, inputs...))
	}
	return ps, nil
}

func parseToken(tok string) (Symbol, error) {
	if !strings.HasPrefix(tok, "'") {
		return NT(tok), nil
	}
	runes := []rune(tok)
	if len(runes) != 3 || runes[2] != '\'' {
		return Symbol{}, fmt.Errorf("bad character literal %s", tok)
	}
	return Char(runes[1]), nil
}

// Save writes g in .gram syntax, omitting the built-in character-class productions.
func Save(w io.Writer, g *Grammar) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "@%s\n", g.Start().Name)
	for _, p := range g.Productions() {
		if IsDefaultProduction(p) {
			continue
		}
		fmt.Fprintln(bw, p.String())
	}
	return bw.Flush()
}

// SaveFile writes g to path.
func SaveFile(path string, g *Grammar) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create grammar file: %w", err)
	}
	if err := Save(f, g); err != nil {
		f.Close()
		return fmt.Errorf("failed to write grammar file: %w", err)
	}
	return f.Close()
}
