/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: serialize.go
Description: Persistence of normal grammars as a flat integer record stream, and a
msgpack envelope around that stream for writing grammars to disk.
*/

package grammar

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/vmihailenco/msgpack/v5"
)

// ErrMalformedStream is returned when a flat record stream cannot be decoded.
var ErrMalformedStream = errors.New("malformed grammar stream")

// Serialize flattens ng into
//
//	numSymbols stopSymbol numChars (char id)*
//	for each symbol s: numEmpty target* numUnary (target input)* numBinary (target first second)*
//
// Characters are written in ascending rune order so the stream is deterministic.
func (ng *NormalGrammar) Serialize() []int {
	stream := []int{ng.NumSymbols, ng.StopSymbol, len(ng.Characters)}

	chars := make([]rune, 0, len(ng.Characters))
	for r := range ng.Characters {
		chars = append(chars, r)
	}
	sort.Slice(chars, func(i, j int) bool { return chars[i] < chars[j] })
	for _, r := range chars {
		stream = append(stream, int(r), ng.Characters[r])
	}

	for s := 0; s < ng.NumSymbols; s++ {
		empties := ng.emptyByTarget[s]
		stream = append(stream, len(empties))
		for _, ep := range empties {
			stream = append(stream, ep.Target)
		}
		unaries := ng.unaryByTarget[s]
		stream = append(stream, len(unaries))
		for _, up := range unaries {
			stream = append(stream, up.Target, up.Input)
		}
		binaries := ng.binaryByTarget[s]
		stream = append(stream, len(binaries))
		for _, bp := range binaries {
			stream = append(stream, bp.Target, bp.First, bp.Second)
		}
	}
	return stream
}

type streamReader struct {
	data []int
	pos  int
}

func (r *streamReader) next() (int, error) {
	if r.pos >= len(r.data) {
		return 0, fmt.Errorf("%w: truncated at offset %d", ErrMalformedStream, r.pos)
	}
	v := r.data[r.pos]
	r.pos++
	return v, nil
}

func (r *streamReader) count() (int, error) {
	n, err := r.next()
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: negative count %d at offset %d", ErrMalformedStream, n, r.pos-1)
	}
	return n, nil
}

func (r *streamReader) symbol(numSymbols int) (int, error) {
	s, err := r.next()
	if err != nil {
		return 0, err
	}
	if s < 0 || s >= numSymbols {
		return 0, fmt.Errorf("%w: symbol %d out of range at offset %d", ErrMalformedStream, s, r.pos-1)
	}
	return s, nil
}

// Deserialize rebuilds a normal grammar from a stream produced by Serialize.
func Deserialize(stream []int) (*NormalGrammar, error) {
	r := &streamReader{data: stream}
	ng := newNormalGrammar()

	numSymbols, err := r.count()
	if err != nil {
		return nil, err
	}
	ng.NumSymbols = numSymbols
	stop, err := r.next()
	if err != nil {
		return nil, err
	}
	if stop != NoSymbol && (stop < 0 || stop >= numSymbols) {
		return nil, fmt.Errorf("%w: stop symbol %d out of range", ErrMalformedStream, stop)
	}
	ng.StopSymbol = stop

	numChars, err := r.count()
	if err != nil {
		return nil, err
	}
	for i := 0; i < numChars; i++ {
		c, err := r.next()
		if err != nil {
			return nil, err
		}
		id, err := r.symbol(numSymbols)
		if err != nil {
			return nil, err
		}
		ng.Characters[rune(c)] = id
		ng.InverseCharacters[id] = rune(c)
	}

	for s := 0; s < numSymbols; s++ {
		n, err := r.count()
		if err != nil {
			return nil, err
		}
		for j := 0; j < n; j++ {
			t, err := r.symbol(numSymbols)
			if err != nil {
				return nil, err
			}
			ng.addEmpty(EmptyProduction{Target: t})
		}
		if n, err = r.count(); err != nil {
			return nil, err
		}
		for j := 0; j < n; j++ {
			t, err := r.symbol(numSymbols)
			if err != nil {
				return nil, err
			}
			in, err := r.symbol(numSymbols)
			if err != nil {
				return nil, err
			}
			ng.addUnary(UnaryProduction{Target: t, Input: in})
		}
		if n, err = r.count(); err != nil {
			return nil, err
		}
		for j := 0; j < n; j++ {
			t, err := r.symbol(numSymbols)
			if err != nil {
				return nil, err
			}
			first, err := r.symbol(numSymbols)
			if err != nil {
				return nil, err
			}
			second, err := r.symbol(numSymbols)
			if err != nil {
				return nil, err
			}
			ng.addBinary(BinaryProduction{Target: t, First: first, Second: second})
		}
	}

	if r.pos != len(stream) {
		return nil, fmt.Errorf("%w: %d trailing values", ErrMalformedStream, len(stream)-r.pos)
	}
	return ng, nil
}

// EncodeNormal writes ng's flat stream to w as a msgpack array.
func EncodeNormal(w io.Writer, ng *NormalGrammar) error {
	if err := msgpack.NewEncoder(w).Encode(ng.Serialize()); err != nil {
		return fmt.Errorf("failed to encode normal grammar: %w", err)
	}
	return nil
}

// DecodeNormal reads a grammar written by EncodeNormal.
func DecodeNormal(r io.Reader) (*NormalGrammar, error) {
	var stream []int
	if err := msgpack.NewDecoder(r).Decode(&stream); err != nil {
		return nil, fmt.Errorf("failed to decode normal grammar: %w", err)
	}
	return Deserialize(stream)
}
