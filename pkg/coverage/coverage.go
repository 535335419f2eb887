/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: coverage.go
Description: Coverage bitmaps and the coverage oracle contract. A bitmap packs 32 coverage
events into each group; oracles produce one fixed-length bitmap per executed input and a
scalar score. Bitmaps from different inputs are combined with bitwise operations.
*/

package coverage

import (
	"context"
	"fmt"
	"math/bits"
)

// GroupBits is the number of coverage events packed into one bitmap group.
const GroupBits = 32

// Bitmap is a fixed-length coverage vector. Bit j of group i is event i*32+j.
type Bitmap []uint32

// NewBitmap creates an empty bitmap with n groups.
func NewBitmap(groups int) Bitmap {
	return make(Bitmap, groups)
}

// FromEvents creates a bitmap with the given events set.
func FromEvents(groups int, events ...int) (Bitmap, error) {
	b := NewBitmap(groups)
	for _, e := range events {
		if e < 0 || e >= groups*GroupBits {
			return nil, fmt.Errorf("event %d out of range for %d groups", e, groups)
		}
		b.Set(e)
	}
	return b, nil
}

// Len returns the number of events the bitmap can hold.
func (b Bitmap) Len() int {
	return len(b) * GroupBits
}

// Has reports whether event e is set.
func (b Bitmap) Has(e int) bool {
	return b[e/GroupBits]&(1<<uint(e%GroupBits)) != 0
}

// Set marks event e.
func (b Bitmap) Set(e int) {
	b[e/GroupBits] |= 1 << uint(e%GroupBits)
}

// PopCount returns the number of set events.
func (b Bitmap) PopCount() int {
	n := 0
	for _, g := range b {
		n += bits.OnesCount32(g)
	}
	return n
}

// Events lists the set events in ascending order.
func (b Bitmap) Events() []int {
	out := make([]int, 0, b.PopCount())
	for i, g := range b {
		for g != 0 {
			j := bits.TrailingZeros32(g)
			out = append(out, i*GroupBits+j)
			g &^= 1 << uint(j)
		}
	}
	return out
}

// Clone returns an independent copy.
func (b Bitmap) Clone() Bitmap {
	return append(Bitmap(nil), b...)
}

// Or returns the union of b and other. Both must have the same length.
func (b Bitmap) Or(other Bitmap) (Bitmap, error) {
	return combine(b, other, func(x, y uint32) uint32 { return x | y })
}

// And returns the intersection of b and other.
func (b Bitmap) And(other Bitmap) (Bitmap, error) {
	return combine(b, other, func(x, y uint32) uint32 { return x & y })
}

// Minus returns the events of b not in other.
func (b Bitmap) Minus(other Bitmap) (Bitmap, error) {
	return combine(b, other, func(x, y uint32) uint32 { return x &^ y })
}

func combine(a, b Bitmap, op func(x, y uint32) uint32) (Bitmap, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("bitmap length mismatch: %d vs %d groups", len(a), len(b))
	}
	out := make(Bitmap, len(a))
	for i := range a {
		out[i] = op(a[i], b[i])
	}
	return out, nil
}

// Union ORs all bitmaps together. It fails on an empty list or mismatched lengths.
func Union(maps ...Bitmap) (Bitmap, error) {
	if len(maps) == 0 {
		return nil, fmt.Errorf("union of no bitmaps")
	}
	out := maps[0].Clone()
	for _, m := range maps[1:] {
		if len(m) != len(out) {
			return nil, fmt.Errorf("bitmap length mismatch: %d vs %d groups", len(m), len(out))
		}
		for i := range m {
			out[i] |= m[i]
		}
	}
	return out, nil
}

// Oracle executes inputs and reports their coverage. FullCoverage must return bitmaps of
// the same length for every input.
type Oracle interface {
	// FullCoverage returns the coverage bitmap of input
	FullCoverage(ctx context.Context, input string) (Bitmap, error)
	// Coverage returns the scalar coverage score of input
	Coverage(ctx context.Context, input string) (int, error)
}

// OracleFunc adapts a bitmap function to Oracle. The scalar score is the bitmap's
// population count.
type OracleFunc func(ctx context.Context, input string) (Bitmap, error)

// FullCoverage calls f.
func (f OracleFunc) FullCoverage(ctx context.Context, input string) (Bitmap, error) {
	return f(ctx, input)
}

// Coverage counts the events of f's bitmap.
func (f OracleFunc) Coverage(ctx context.Context, input string) (int, error) {
	b, err := f(ctx, input)
	if err != nil {
		return 0, err
	}
	return b.PopCount(), nil
}
