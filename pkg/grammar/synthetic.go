/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: synthetic.go
Description: Built-in handwritten grammars used for sampler and solver experiments.
*/

package grammar

import (
	"fmt"
	"sort"
)

const parenKinds = 5

// SimpleParentheses is S -> ε | '(' S ')' | S S.
func SimpleParentheses() *Grammar {
	s := NT("S")
	return Build([]Production{
		NewProduction(s),
		NewProduction(s, Char('('), s, Char(')')),
		NewProduction(s, s, s),
	}, s)
}

// Parentheses is balanced parentheses tagged with a digit after each bracket,
// S -> ε | S S | '(' d S ')' d for the first five digits d.
func Parentheses() *Grammar {
	s := NT("S")
	ps := []Production{
		NewProduction(s),
		NewProduction(s, s, s),
	}
	const digits = "0123456789"
	for i := 0; i < parenKinds; i++ {
		d := Char(rune(digits[i]))
		ps = append(ps, NewProduction(s, Char('('), d, s, Char(')'), d))
	}
	return Build(ps, s)
}

// Regex is a small escaped regular-expression language over the characters a and 0.
func Regex() *Grammar {
	var (
		regChar    = NT("<REGCHAR>")
		bkslChar   = NT("<BKSLCHAR>")
		lpChar     = NT("<LPCHAR>")
		rpChar     = NT("<RPCHAR>")
		plChar     = NT("<PLCHAR>")
		asChar     = NT("<ASCHAR>")
		bkbkslChar = NT("<BKBKSLCHAR>")
		regTok     = NT("<REGTOK>")
		regex      = NT("<REGEX>")
		regexPre   = NT("<REGEXPRE>")
	)
	ps := []Production{
		NewProduction(regChar, Char('a')),
		NewProduction(regChar, Char('0')),

		NewProduction(bkslChar, Char('\\')),
		NewProduction(lpChar, Char('\\'), Char('(')),
		NewProduction(rpChar, Char('\\'), Char(')')),
		NewProduction(plChar, Char('\\'), Char('+')),
		NewProduction(asChar, Char('\\'), Char('*')),
		NewProduction(bkbkslChar, Char('\\'), Char('\\')),

		NewProduction(regTok),
		NewProduction(regTok, regChar),
		NewProduction(regTok, bkbkslChar),
	}
	// Weight single tokens so the unweighted sampler does not explode on REGEX REGEX.
	for i := 0; i < 5; i++ {
		ps = append(ps, NewProduction(regex, regTok))
	}
	ps = append(ps,
		NewProduction(regex, regex, regTok),
		NewProduction(regexPre, lpChar, regex),
		NewProduction(regexPre, regexPre, plChar, regex),
		NewProduction(regex, regexPre, rpChar),
		NewProduction(regex, lpChar, regex, rpChar, asChar),
		NewProduction(regex, regex, regex),
	)
	return Build(ps, regex)
}

var synthetic = map[string]func() *Grammar{
	"simple": SimpleParentheses,
	"paren":  Parentheses,
	"regex":  Regex,
}

// Synthetic returns the built-in grammar registered under name.
func Synthetic(name string) (*Grammar, error) {
	build, ok := synthetic[name]
	if !ok {
		return nil, fmt.Errorf("unknown synthetic grammar %q (available: %v)", name, SyntheticNames())
	}
	return build(), nil
}

// SyntheticNames lists the registered built-in grammars in sorted order.
func SyntheticNames() []string {
	names := make([]string, 0, len(synthetic))
	for name := range synthetic {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
