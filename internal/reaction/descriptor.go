// Package reaction defines the immutable per-reaction parameters and
// predicates that decide whether a candidate pair is proposed for bond
// formation or dissociation.
package reaction

import (
	"math"

	"github.com/example/dcre/internal/dcrerand"
	"github.com/example/dcre/internal/particle"
)

// PostProcess is an optional hook invoked after a reaction changes a
// particle's state. It may return additional particles that should be
// treated as modified (for ghost-sync purposes) beyond the two endpoints.
type PostProcess func(self, partner *particle.Particle) []*particle.Particle

// PairList is the owner-partitioned, fixed bond list a reaction mutates.
// Entries are stored once under the lower id on the rank that owns it.
type PairList interface {
	Add(idLow, idHigh int64)
	IAdd(idLow, idHigh int64) bool
	Remove(idLow, idHigh int64)
	UpdateParticlesStorage()
	Iterate(fn func(idLow, idHigh int64))
}

// Descriptor holds one reaction's configuration. It is safe to share a
// *Descriptor across ranks and across the lifetime of an engine. Nothing
// in this module changes it after registration; Disabled is the one field
// a host may toggle between React calls.
type Descriptor struct {
	Index int // position within the engine's reaction list; set at registration

	TypeA, TypeB           int
	StateMinA, StateMaxA   int
	StateMinB, StateMaxB   int
	DeltaA, DeltaB         int
	Rate                   float64
	Cutoff                 float64
	Reverse                bool
	IntraResidual          bool
	IntraMolecular         bool
	Virtual                bool
	// Disabled turns a reaction off without removing its registration.
	// The zero value (false) means active, matching the original's
	// active()-defaults-true semantics — a config that never mentions the
	// flag at all still fires.
	Disabled     bool
	PostProcessA PostProcess
	PostProcessB PostProcess
	BondList     PairList
}

// Validate enforces the configuration errors spec.md §7 calls fatal at
// registration time. Reverse reactions still require a cutoff object in
// the original implementation even though it isn't consulted for pair
// sourcing there; DCRE keeps Cutoff as an upper-bound sanity check on
// reverse reactions and defaults it to +Inf if unset by the caller.
func (d *Descriptor) Validate() {
	if d.BondList == nil {
		panic("reaction: descriptor missing bond list")
	}
	if !d.Reverse && d.Cutoff <= 0 {
		panic("reaction: descriptor missing cutoff")
	}
	if d.Reverse && d.Cutoff <= 0 {
		d.Cutoff = math.Inf(1)
	}
}

func eligible(p *particle.Particle, typ, stateMin, stateMax int) bool {
	return p.Type == typ && p.State >= stateMin && p.State < stateMax
}

// StaticEligible re-checks only the type/state predicates for p1 (as A)
// and p2 (as B), without distance or the stochastic test. The mutation
// engine uses this to confirm a resolved candidate is still valid at
// application time, since an endpoint may have changed type or state (or
// migrated) between proposal and application.
func (d *Descriptor) StaticEligible(p1, p2 *particle.Particle) bool {
	return eligible(p1, d.TypeA, d.StateMinA, d.StateMaxA) &&
		eligible(p2, d.TypeB, d.StateMinB, d.StateMaxB)
}

// IsValidPair decides whether the pair (p1, p2) should be proposed as a
// candidate for this reaction. It returns the pair reordered so that
// ordered[0].Type == d.TypeA, the squared distance between the endpoints,
// and whether the pair passed every predicate including the stochastic
// acceptance test. IsValidPair is the only place randomness enters
// candidate proposal.
//
// dt and interval scale the rate test per spec.md §3: a pair accepts when
// u < rate*dt*interval for u drawn uniformly from [0,1).
func (d *Descriptor) IsValidPair(p1, p2 *particle.Particle, dt float64, interval int, rng dcrerand.Source) (ok bool, ordered [2]*particle.Particle, rSq float64) {
	if d.Disabled {
		return false, ordered, 0
	}

	var a, b *particle.Particle
	switch {
	case p1.Type == d.TypeA && p2.Type == d.TypeB:
		a, b = p1, p2
	case p2.Type == d.TypeA && p1.Type == d.TypeB:
		a, b = p2, p1
	default:
		return false, ordered, 0
	}

	if !eligible(a, d.TypeA, d.StateMinA, d.StateMaxA) || !eligible(b, d.TypeB, d.StateMinB, d.StateMaxB) {
		return false, ordered, 0
	}

	rSq = particle.DistSq(a, b)
	if rSq > d.Cutoff*d.Cutoff {
		return false, ordered, rSq
	}

	threshold := d.Rate * dt * float64(interval)
	if rng.Float64() >= threshold {
		return false, ordered, rSq
	}

	ordered[0], ordered[1] = a, b
	return true, ordered, rSq
}
