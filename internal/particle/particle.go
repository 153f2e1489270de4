// Package particle defines the data owned per particle that the reaction
// engine reads and mutates. The host simulation (out of scope for this
// module) is the source of truth for particle storage; this package only
// describes the shape DCRE needs.
package particle

import "gonum.org/v1/gonum/spatial/r3"

// Particle is the external, read/write view of a single simulated particle.
// Owner ranks may mutate any field; ghost copies are read-only replicas kept
// in sync by the ghost synchronizer (C6).
type Particle struct {
	PID        int64
	Type       int
	State      int
	Mass       float64
	Charge     float64
	Lambda     float64
	ResID      int64
	MoleculeID int64
	Ghost      bool
	Pos        r3.Vec
}

// DistSq returns the squared Euclidean distance between two particles.
// Periodic boundary conditions are the host's concern; callers that need
// minimum-image distances should pre-fold Pos before invoking DCRE.
func DistSq(a, b *Particle) float64 {
	d := r3.Sub(a.Pos, b.Pos)
	return r3.Dot(d, d)
}

// Attributes is the subset of fields the ghost synchronizer propagates.
type Attributes struct {
	PID    int64
	Type   int
	Mass   float64
	Charge float64
	ResID  int64
	Lambda float64
	State  int
}

// Snapshot extracts the attributes carried by a ghost-sync record.
func Snapshot(p *Particle) Attributes {
	return Attributes{
		PID:    p.PID,
		Type:   p.Type,
		Mass:   p.Mass,
		Charge: p.Charge,
		ResID:  p.ResID,
		Lambda: p.Lambda,
		State:  p.State,
	}
}

// Apply overwrites the ghost-visible attributes of p with snap. It never
// touches Ghost or Pos, matching the ghost synchronizer's contract of
// leaving non-ghost copies untouched and never moving particles.
func (a Attributes) Apply(p *Particle) {
	p.Type = a.Type
	p.Mass = a.Mass
	p.Charge = a.Charge
	p.ResID = a.ResID
	p.Lambda = a.Lambda
	p.State = a.State
}
