/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: acceptor.go
Description: Acceptance policies deciding whether a proposed population replaces the
working one.
*/

package optimize

import (
	"fmt"
	"math/rand"
)

// Acceptor decides whether to move from a population scoring orig to one scoring proposed.
type Acceptor interface {
	Accept(orig, proposed float64) bool
}

// HillClimb accepts strict improvements only. Ties are always rejected.
type HillClimb struct{}

// Accept reports whether proposed beats orig.
func (HillClimb) Accept(orig, proposed float64) bool {
	if orig == proposed {
		return false
	}
	return orig < proposed
}

// MCMC accepts with probability min(1, proposed/orig). The ratio is taken as is, so it is
// only meaningful for positive scores; a zero orig accepts any positive proposal.
type MCMC struct {
	rng *rand.Rand
}

// NewMCMC creates an MCMC acceptor drawing from rng.
func NewMCMC(rng *rand.Rand) *MCMC {
	return &MCMC{rng: rng}
}

// Accept draws u in [0,1) and accepts iff u <= proposed/orig.
func (m *MCMC) Accept(orig, proposed float64) bool {
	return m.rng.Float64() <= proposed/orig
}

// NewAcceptor returns the acceptor named "hillclimb" or "mcmc".
func NewAcceptor(name string, rng *rand.Rand) (Acceptor, error) {
	switch name {
	case "hillclimb":
		return HillClimb{}, nil
	case "mcmc":
		return NewMCMC(rng), nil
	default:
		return nil, fmt.Errorf("unknown acceptor %q (available: hillclimb, mcmc)", name)
	}
}
