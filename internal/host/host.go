// Package host declares the collaborator contracts the reaction engine
// requires from the surrounding particle simulation (spec.md §6). None of
// these are implemented by this module — the neighbor list, storage, and
// topology manager all belong to the host simulation, which is explicitly
// out of scope (spec.md §1).
package host

import "github.com/example/dcre/internal/particle"

// NeighborList yields the candidate pairs the reaction engine should test,
// already filtered to within the cutoff the host has been told to
// maintain (see Engine.RequiredNeighborCutoff).
type NeighborList interface {
	Pairs() [][2]*particle.Particle
}

// Storage resolves particle ids to particle values. LookupReal returns
// nil unless the current rank owns pid outright; LookupLocal returns a
// particle the rank has any copy of, owned or ghost.
type Storage interface {
	LookupReal(pid int64) *particle.Particle
	LookupLocal(pid int64) *particle.Particle
}

// TopologyManager answers the three residue/molecule queries the
// conflict resolver needs; DCRE never mutates topology itself.
type TopologyManager interface {
	ResID(pid int64) int64
	MoleculeID(pid int64) int64
	SameMolecule(a, b int64) bool
}
